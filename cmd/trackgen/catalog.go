package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/vessel-track-simulator/internal/httpapi"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
)

func (a *cli) locationsCmd() *cobra.Command {
	var (
		region string
		kind   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "locations [query]",
		Short: "List known locations, or resolve one place description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				loc, err := a.locations.Lookup(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, httpapi.NewLocationView(loc))
				}
				return writeLocations(out, []kb.Location{loc})
			}

			var filtered []kb.Location
			var want kb.LocationKind
			if kind != "" {
				k, err := kb.ParseLocationKind(kind)
				if err != nil {
					return err
				}
				want = k
			}
			for _, l := range a.locations.List() {
				if region != "" && !strings.EqualFold(l.Region, region) {
					continue
				}
				if kind != "" && l.Kind != want {
					continue
				}
				filtered = append(filtered, l)
			}
			if asJSON {
				views := make([]httpapi.LocationView, len(filtered))
				for i, l := range filtered {
					views[i] = httpapi.NewLocationView(l)
				}
				return writeJSON(out, views)
			}
			return writeLocations(out, filtered)
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "only list locations in this region")
	cmd.Flags().StringVar(&kind, "kind", "", "only list this kind: port, area or region")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *cli) vesselTypesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "vessel-types",
		Short: "List the simulated vessel types and their profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			views := httpapi.VesselTypeViews()
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, views)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tAIS\tCRUISE KN\tMAX KN\tROUTE\tLENGTH M\tDESCRIPTION")
			for _, v := range views {
				fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%s\t%.0f-%.0f\t%s\n",
					v.Name, v.AISShipType, v.CruiseSpeedKnots, v.MaxSpeedKnots,
					v.RouteType, v.LengthM.Min, v.LengthM.Max, v.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeLocations(w io.Writer, locations []kb.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tREGION\tCOUNTRY\tLAT\tLON")
	for _, l := range locations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%.4f\n",
			l.Name, l.Kind, l.Region, l.Country, l.Coordinates.Latitude, l.Coordinates.Longitude)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
