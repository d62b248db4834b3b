// Package scenario implements the trigger/event engine of spec §4.5: it
// evaluates Time, Proximity, and Area triggers and emits Spawn/Kill
// occurrences that mutate the kernel's node population between barrier
// steps.
package scenario

import (
	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/rng"
	"github.com/simba-sim/simba/internal/simtime"
)

// Kind discriminates a Trigger's evaluation rule (spec §4.5).
type Kind int

const (
	KindTime Kind = iota
	KindProximity
	KindArea
)

// Trigger is a tagged-variant condition; only the fields for its Kind
// are meaningful.
type Trigger struct {
	Kind Kind

	// Time: fixed or random schedule, resolved to concrete instants at
	// configuration time (spec §4.5).
	scheduledTimes []simtime.Time
	fired          map[int]bool

	// Proximity
	ProtectedTarget string // empty means "any pair of robots"
	Distance        float64
	Inside          bool

	// Area
	Region     geom.Area
	AreaInside bool

	// lastState tracks, per robot name (Area) or "a|b" robot pair
	// (Proximity), whether the
	// Proximity/Area condition was satisfied as of the previous
	// evaluation, so only the crossing edge fires (spec §4.5 "fires when
	// ... since the last tick").
	lastState map[string]bool
}

// NewTimeTrigger builds a Time trigger. If dist is a Fixed distribution
// and occurrences >= 1, it schedules k*value for k in [1..occurrences].
// occurrences == 0 repeats with period value until maxTime. If dist is
// not Fixed, occurrences samples are drawn immediately (spec §4.5).
func NewTimeTrigger(dist rng.Distribution, occurrences int, maxTime simtime.Time) *Trigger {
	t := &Trigger{Kind: KindTime, fired: make(map[int]bool)}

	if fixed, ok := dist.(interface{ Value() (float64, bool) }); ok {
		if v, isFixed := fixed.Value(); isFixed {
			if occurrences == 0 {
				for k := 1; ; k++ {
					at := simtime.Round(float64(k) * v)
					if at.After(maxTime) {
						break
					}
					t.scheduledTimes = append(t.scheduledTimes, at)
				}
				return t
			}
			for k := 1; k <= occurrences; k++ {
				t.scheduledTimes = append(t.scheduledTimes, simtime.Round(float64(k)*v))
			}
			return t
		}
	}

	n := occurrences
	if n <= 0 {
		n = 1
	}
	for k := 0; k < n; k++ {
		t.scheduledTimes = append(t.scheduledTimes, simtime.Round(dist.Sample()))
	}
	return t
}

// NewVectorTimeTrigger builds a Time trigger from an N-dimensional
// distribution. sets full vectors are drawn, and every one of their N
// components becomes its own scheduled instant, yielding sets*N
// scheduled instants total (spec §4.5).
func NewVectorTimeTrigger(dist rng.VectorDistribution, sets int) *Trigger {
	t := &Trigger{Kind: KindTime, fired: make(map[int]bool)}
	if sets <= 0 {
		sets = 1
	}
	for k := 0; k < sets; k++ {
		for _, v := range dist.SampleVector() {
			t.scheduledTimes = append(t.scheduledTimes, simtime.Round(v))
		}
	}
	return t
}

// NewProximityTrigger builds a Proximity trigger (spec §4.5).
func NewProximityTrigger(protectedTarget string, distance float64, inside bool) *Trigger {
	return &Trigger{
		Kind:            KindProximity,
		ProtectedTarget: protectedTarget,
		Distance:        distance,
		Inside:          inside,
		lastState:       make(map[string]bool),
	}
}

// NewAreaTrigger builds an Area trigger (spec §4.5).
func NewAreaTrigger(region geom.Area, inside bool) *Trigger {
	return &Trigger{
		Kind:       KindArea,
		Region:     region,
		AreaInside: inside,
		lastState:  make(map[string]bool),
	}
}

// NextFiring returns the earliest not-yet-fired scheduled instant at or
// after now, contributing to the kernel's global next_time_step (spec
// §4.4 step 1). Only Time triggers participate.
func (t *Trigger) NextFiring(now simtime.Time) (simtime.Time, bool) {
	if t.Kind != KindTime {
		return 0, false
	}
	best := simtime.Time(simtime.Infinity)
	found := false
	for i, st := range t.scheduledTimes {
		if t.fired[i] {
			continue
		}
		if st.AtOrAfter(now) && st < best {
			best = st
			found = true
		}
	}
	return best, found
}

// BoundVars reports how many occurrence variables ($0, $1, ...) this
// trigger binds. Every trigger kind currently binds exactly one: the
// occurrence index for Time, the crossing robot's name for Proximity and
// Area (spec §4.5).
func (t *Trigger) BoundVars() int {
	return 1
}
