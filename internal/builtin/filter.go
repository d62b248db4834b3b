package builtin

import (
	"github.com/simba-sim/simba/internal/landmark"
	"github.com/simba-sim/simba/internal/module"
)

// RangeFilter drops robot and landmark observations beyond a maximum
// range, applied after faults so noise can push a borderline reading
// either side of the cutoff (GLOSSARY "Filter").
type RangeFilter struct {
	name     string
	maxRange float64
}

// NewRangeFilter builds a filter dropping observations farther than
// maxRange.
func NewRangeFilter(name string, maxRange float64) *RangeFilter {
	return &RangeFilter{name: name, maxRange: maxRange}
}

func (f *RangeFilter) Name() string { return f.name }

func (f *RangeFilter) Apply(ctx *module.Context, obs module.Observation) (module.Observation, bool) {
	switch obs.Kind {
	case module.ObservationRobot:
		return obs, obs.Robot.Range <= f.maxRange
	case module.ObservationLandmark:
		return obs, obs.Landmark.Range <= f.maxRange
	default:
		return obs, true
	}
}

// LandmarkVisibilityFilter drops a landmark observation occluded by a
// planar landmark at least as tall along the line of sight, consulting a preloaded
// landmark map (spec §6, SPEC_FULL.md Supplemented Features).
type LandmarkVisibilityFilter struct {
	name string
	m    *landmark.Map
}

// NewLandmarkVisibilityFilter builds a filter consulting m for
// occlusion. Observer position is read from the observation's sensor
// origin via ctx.RealState.
func NewLandmarkVisibilityFilter(name string, m *landmark.Map) *LandmarkVisibilityFilter {
	return &LandmarkVisibilityFilter{name: name, m: m}
}

func (f *LandmarkVisibilityFilter) Name() string { return f.name }

func (f *LandmarkVisibilityFilter) Apply(ctx *module.Context, obs module.Observation) (module.Observation, bool) {
	if obs.Kind != module.ObservationLandmark {
		return obs, true
	}
	target, ok := f.m.Get(obs.Landmark.LandmarkID)
	if !ok {
		return obs, true
	}
	observer, ok := ctx.RealState(ctx.Origin)
	if !ok {
		return obs, true
	}
	return obs, f.m.Visible(observer.Position, target)
}
