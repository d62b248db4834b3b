package builtin

import (
	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/simtime"
)

// UnicycleController turns a tracking error into wheel speeds bounded by
// a target linear speed and a proportional heading gain, matching the
// vₗ, ω → left/right conversion of the classic differential drive
// (spec §4.3 step 6, scenario S1).
type UnicycleController struct {
	period        float64
	wheelDistance float64
	speed         float64
	headingGain   float64
}

// NewUnicycleController builds a controller commanding at most speed
// m/s toward the navigator's target, correcting heading error with gain
// headingGain rad/rad.
func NewUnicycleController(wheelDistance, speed, headingGain, period float64) *UnicycleController {
	return &UnicycleController{period: period, wheelDistance: wheelDistance, speed: speed, headingGain: headingGain}
}

func (c *UnicycleController) Name() string { return "pid" }

func (c *UnicycleController) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(c.period)
}

func (c *UnicycleController) MakeCommand(ctx *module.Context, now simtime.Time, cerr module.ControllerError) (module.Command, error) {
	if cerr.Longitudinal == 0 && cerr.Theta == 0 {
		return module.UnicycleCommand(0, 0), nil
	}
	linear := c.speed
	angular := c.headingGain * cerr.Theta
	left := linear - angular*c.wheelDistance/2
	right := linear + angular*c.wheelDistance/2
	return module.UnicycleCommand(left, right), nil
}

// HolonomicController turns a tracking error directly into a body-frame
// velocity command, since a holonomic model needs no wheel-speed
// conversion.
type HolonomicController struct {
	period      float64
	speed       float64
	headingGain float64
}

// NewHolonomicController builds a Holonomic controller.
func NewHolonomicController(speed, headingGain, period float64) *HolonomicController {
	return &HolonomicController{period: period, speed: speed, headingGain: headingGain}
}

func (c *HolonomicController) Name() string { return "pid" }

func (c *HolonomicController) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(c.period)
}

func (c *HolonomicController) MakeCommand(ctx *module.Context, now simtime.Time, cerr module.ControllerError) (module.Command, error) {
	if cerr.Longitudinal == 0 && cerr.Theta == 0 {
		return module.HolonomicCommand(0, 0, 0), nil
	}
	return module.HolonomicCommand(c.speed, 0, c.headingGain*cerr.Theta), nil
}
