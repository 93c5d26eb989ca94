package core

import (
	"fmt"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// MMSIBase is the first identity handed out to vessels without an explicit
// MMSI.
const MMSIBase uint32 = 123456000

// ValidMMSI reports whether m has the nine digits of a ship station MMSI.
func ValidMMSI(m uint32) bool {
	return m >= 100000000 && m <= 999999999
}

// mmsiAllocator hands out identities from a monotonic counter, skipping any
// value already reserved.
type mmsiAllocator struct {
	next uint32
	used map[uint32]struct{}
}

func newMMSIAllocator(base uint32) *mmsiAllocator {
	return &mmsiAllocator{next: base, used: make(map[uint32]struct{})}
}

func (a *mmsiAllocator) reserve(m uint32) error {
	if !ValidMMSI(m) {
		return fmt.Errorf("%w: MMSI %d is not a nine-digit identity", ErrValidation, m)
	}
	if _, dup := a.used[m]; dup {
		return fmt.Errorf("%w: MMSI %d assigned twice", ErrValidation, m)
	}
	a.used[m] = struct{}{}
	return nil
}

func (a *mmsiAllocator) allocate() (uint32, error) {
	for {
		m := a.next
		if !ValidMMSI(m) {
			return 0, fmt.Errorf("%w: MMSI range exhausted", ErrValidation)
		}
		a.next++
		if _, taken := a.used[m]; !taken {
			a.used[m] = struct{}{}
			return m, nil
		}
	}
}

// VesselName builds the deterministic display name for the vessel at index
// (zero-based) in a scenario, e.g. "CELTIC SEA_1".
func VesselName(t model.VesselType, index int) string {
	pool := []string{t.String()}
	if p, ok := t.Profile(); ok && len(p.NamePool) > 0 {
		pool = p.NamePool
	}
	return fmt.Sprintf("%s_%d", pool[index%len(pool)], index+1)
}
