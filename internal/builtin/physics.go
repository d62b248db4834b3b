// Package builtin implements the concrete plug-ins spec.md §1 calls out
// as external collaborators (sensor, navigator, controller, physics,
// state-estimator, fault, filter). They exist here to exercise the
// pluggable-pipeline contracts of internal/module end to end and to
// drive the concrete scenarios of spec §8.
package builtin

import (
	"math"

	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/simtime"
)

// UnicyclePhysics integrates the classic differential-drive kinematic
// model: independent left/right wheel speeds separated by a fixed wheel
// distance (spec §3 Command variant Unicycle).
type UnicyclePhysics struct {
	name          string
	pose          module.Pose
	velocity      module.Velocity
	wheelDistance float64
	period        float64
	lastUpdate    simtime.Time
}

// NewUnicyclePhysics constructs a Unicycle physics module at the given
// initial pose, stepping every period seconds.
func NewUnicyclePhysics(name string, initial module.Pose, wheelDistance, period float64) *UnicyclePhysics {
	return &UnicyclePhysics{name: name, pose: initial.Normalized(), wheelDistance: wheelDistance, period: period}
}

func (p *UnicyclePhysics) Name() string             { return p.name }
func (p *UnicyclePhysics) Model() module.RobotModel { return module.ModelUnicycle }

func (p *UnicyclePhysics) State() (module.Pose, module.Velocity) {
	return p.pose, p.velocity
}

func (p *UnicyclePhysics) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(p.period)
}

// UpdateState integrates the unicycle model over the time elapsed since
// the previous update under cmd's left/right wheel speeds (spec §4.3
// step 2).
func (p *UnicyclePhysics) UpdateState(ctx *module.Context, now simtime.Time, cmd module.Command) error {
	if err := cmd.Validate(module.ModelUnicycle); err != nil {
		return err
	}
	dt := float64(now) - float64(p.lastUpdate)
	linear := (cmd.Left + cmd.Right) / 2
	angular := (cmd.Right - cmd.Left) / p.wheelDistance

	p.pose.X += linear * math.Cos(p.pose.Theta) * dt
	p.pose.Y += linear * math.Sin(p.pose.Theta) * dt
	p.pose.Theta += angular * dt
	p.pose = p.pose.Normalized()
	p.velocity = module.Velocity{Longitudinal: linear, Angular: angular}
	p.lastUpdate = now
	return nil
}

// HolonomicPhysics integrates a body-frame omnidirectional model: forward,
// lateral, and angular velocity commands apply directly (spec §3 Command
// variant Holonomic).
type HolonomicPhysics struct {
	name       string
	pose       module.Pose
	velocity   module.Velocity
	period     float64
	lastUpdate simtime.Time
}

// NewHolonomicPhysics constructs a Holonomic physics module.
func NewHolonomicPhysics(name string, initial module.Pose, period float64) *HolonomicPhysics {
	return &HolonomicPhysics{name: name, pose: initial.Normalized(), period: period}
}

func (p *HolonomicPhysics) Name() string             { return p.name }
func (p *HolonomicPhysics) Model() module.RobotModel { return module.ModelHolonomic }

func (p *HolonomicPhysics) State() (module.Pose, module.Velocity) {
	return p.pose, p.velocity
}

func (p *HolonomicPhysics) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(p.period)
}

func (p *HolonomicPhysics) UpdateState(ctx *module.Context, now simtime.Time, cmd module.Command) error {
	if err := cmd.Validate(module.ModelHolonomic); err != nil {
		return err
	}
	dt := float64(now) - float64(p.lastUpdate)
	cosT, sinT := math.Cos(p.pose.Theta), math.Sin(p.pose.Theta)
	p.pose.X += (cmd.Longitudinal*cosT - cmd.LateralVel*sinT) * dt
	p.pose.Y += (cmd.Longitudinal*sinT + cmd.LateralVel*cosT) * dt
	p.pose.Theta += cmd.Angular * dt
	p.pose = p.pose.Normalized()
	p.velocity = module.Velocity{Longitudinal: cmd.Longitudinal, Lateral: cmd.LateralVel, Angular: cmd.Angular}
	p.lastUpdate = now
	return nil
}
