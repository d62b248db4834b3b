package scenario

import (
	"fmt"

	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/simtime"
)

// RobotPose is the minimal per-robot state the engine needs to evaluate
// Proximity and Area triggers.
type RobotPose struct {
	Name  string
	Point geom.Vector2
}

// Engine holds the configured events and evaluates their triggers
// against kernel state (spec §4.5).
type Engine struct {
	Events []*Event
}

// NewEngine validates every event and returns an Engine, or the first
// ScenarioBindingMissing error encountered (spec §7, fatal at
// validation time).
func NewEngine(events []*Event) (*Engine, error) {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return &Engine{Events: events}, nil
}

// NextFiring returns the earliest scheduled Time-trigger instant at or
// after now across all events, contributing to the kernel's global
// next_time_step (spec §4.4 step 1).
func (eng *Engine) NextFiring(now simtime.Time) (simtime.Time, bool) {
	best := simtime.Time(simtime.Infinity)
	found := false
	for _, e := range eng.Events {
		if t, ok := e.Trigger.NextFiring(now); ok && t < best {
			best = t
			found = true
		}
	}
	return best, found
}

// EvaluateTime fires every Time trigger scheduled exactly at now,
// binding $0 to the occurrence index (spec §4.5).
func (eng *Engine) EvaluateTime(now simtime.Time) []Occurrence {
	var out []Occurrence
	for _, e := range eng.Events {
		if e.Trigger.Kind != KindTime {
			continue
		}
		for i, st := range e.Trigger.scheduledTimes {
			if e.Trigger.fired[i] || !st.Equal(now) {
				continue
			}
			e.Trigger.fired[i] = true
			out = append(out, e.Resolve(map[string]string{"$0": fmt.Sprintf("%d", i)}))
		}
	}
	return out
}

// EvaluateSpatial checks every Proximity and Area trigger against the
// current robot poses, firing once per crossing side per instant (spec
// §4.5). robots excludes any node already killed this step.
func (eng *Engine) EvaluateSpatial(robots []RobotPose) []Occurrence {
	var out []Occurrence
	for _, e := range eng.Events {
		switch e.Trigger.Kind {
		case KindProximity:
			out = append(out, eng.evaluateProximity(e, robots)...)
		case KindArea:
			out = append(out, eng.evaluateArea(e, robots)...)
		}
	}
	return out
}

func (eng *Engine) evaluateProximity(e *Event, robots []RobotPose) []Occurrence {
	t := e.Trigger
	var out []Occurrence

	satisfies := func(d float64) bool {
		if t.Inside {
			return d <= t.Distance
		}
		return d > t.Distance
	}

	checkPair := func(a, b RobotPose) {
		d := geom.Distance(a.Point, b.Point)
		state := satisfies(d)
		prev, known := t.lastState[a.Name+"|"+b.Name]
		t.lastState[a.Name+"|"+b.Name] = state
		if known && prev == state {
			return
		}
		if !state {
			return
		}
		// Spec §9 open question (b): when the target itself is the
		// crosser, $0 binds to the other robot.
		crosser := b.Name
		if t.ProtectedTarget != "" && b.Name == t.ProtectedTarget {
			crosser = a.Name
		}
		out = append(out, e.Resolve(map[string]string{"$0": crosser}))
	}

	if t.ProtectedTarget != "" {
		var target *RobotPose
		for i := range robots {
			if robots[i].Name == t.ProtectedTarget {
				target = &robots[i]
				break
			}
		}
		if target == nil {
			return nil
		}
		for _, r := range robots {
			if r.Name == t.ProtectedTarget {
				continue
			}
			checkPair(*target, r)
		}
		return out
	}

	for i := 0; i < len(robots); i++ {
		for j := i + 1; j < len(robots); j++ {
			checkPair(robots[i], robots[j])
		}
	}
	return out
}

func (eng *Engine) evaluateArea(e *Event, robots []RobotPose) []Occurrence {
	t := e.Trigger
	var out []Occurrence
	for _, r := range robots {
		inside := t.Region.Contains(r.Point)
		state := inside == t.AreaInside
		prev, known := t.lastState[r.Name]
		t.lastState[r.Name] = state
		if known && prev == state {
			continue
		}
		if !state {
			continue
		}
		out = append(out, e.Resolve(map[string]string{"$0": r.Name}))
	}
	return out
}
