// Package httpapi is the HTTP front end: location and vessel type catalogues,
// scenario generation in any output format, and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/internal/logging"
	"github.com/signalsfoundry/vessel-track-simulator/internal/observability"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
	"github.com/signalsfoundry/vessel-track-simulator/model"
)

const (
	HeaderRequestID  = "X-Request-ID"
	HeaderScenarioID = "X-Scenario-ID"

	defaultBodyLimit = 1 << 20
)

// Generator produces scenarios; *core.SimulationEngine satisfies it.
type Generator interface {
	Generate(ctx context.Context, req core.GenerationRequest) (*model.Scenario, error)
}

// LocationCatalog is the read side of the location registry.
type LocationCatalog interface {
	Lookup(query string) (kb.Location, error)
	List() []kb.Location
	Regions() []string
}

// Options configures a Server. Zero values select defaults.
type Options struct {
	Logger  logging.Logger
	Metrics *observability.GeneratorCollector
	// DefaultReportInterval applies to requests without an interval.
	DefaultReportInterval time.Duration
	// RequestTimeout bounds one generation request; zero means no bound.
	RequestTimeout time.Duration
	BodyLimit      int
	// Now is used by the health endpoint.
	Now func() time.Time
}

// Server wires the HTTP routes onto a fiber app.
type Server struct {
	app       *fiber.App
	gen       Generator
	locations LocationCatalog
	opts      Options
	log       logging.Logger
	started   time.Time
}

// New builds a Server with its routes registered.
func New(gen Generator, locations LocationCatalog, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimit
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	s := &Server{
		gen:       gen,
		locations: locations,
		opts:      opts,
		log:       opts.Logger,
		started:   opts.Now(),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "trackgen",
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(s.requestID)
	s.app.Use(s.observe)

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/locations", s.handleLocations)
	api.Get("/locations/lookup", s.handleLookup)
	api.Get("/vessel-types", s.handleVesselTypes)
	api.Post("/scenarios", s.handleGenerate)

	if s.opts.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.opts.Metrics.Handler()))
	}
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info(context.Background(), "http server listening", logging.String("addr", ln.Addr().String()))
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestID honours an inbound X-Request-ID or creates one, and stores a
// request-scoped logger on the user context.
func (s *Server) requestID(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if incoming := c.Get(HeaderRequestID); incoming != "" {
		ctx = logging.ContextWithRequestID(ctx, incoming)
	}
	ctx, reqLog := logging.WithRequestLogger(ctx, s.log.With(
		logging.String("method", c.Method()),
		logging.String("path", c.Path()),
	))
	ctx = logging.ContextWithLogger(ctx, reqLog)
	c.SetUserContext(ctx)
	c.Set(HeaderRequestID, logging.RequestIDFromContext(ctx))
	return c.Next()
}

func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status, _ = statusFor(err)
	}
	route := ""
	if r := c.Route(); r != nil && r.Path != "/" {
		route = r.Path
	}
	s.opts.Metrics.ObserveHTTP(c.Method(), route, status, time.Since(start))
	return err
}

// statusFor maps an error onto an HTTP status and a public message.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, core.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, kb.ErrLocationNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, core.ErrDegenerateRoute):
		return fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "scenario generation timed out"
	case errors.Is(err, context.Canceled):
		return fiber.StatusServiceUnavailable, "request cancelled"
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, msg := statusFor(err)
	log := logging.LoggerFromContext(c.UserContext())
	if log == nil {
		log = s.log
	}
	if status >= fiber.StatusInternalServerError {
		log.Error(c.UserContext(), "request failed", logging.Int("status", status), logging.Err(err))
	} else {
		log.Debug(c.UserContext(), "request rejected", logging.Int("status", status), logging.Err(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error":      msg,
		"status":     status,
		"request_id": logging.RequestIDFromContext(c.UserContext()),
	})
}
