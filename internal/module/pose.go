package module

import "github.com/simba-sim/simba/internal/geom"

// Pose is a planar robot pose: position plus heading, normalized to
// (-pi, pi] (spec §3).
type Pose struct {
	X, Y, Theta float64
}

// Velocity is a robot's body-frame velocity: longitudinal, lateral, and
// angular rate. Holonomic models use all three; Unicycle models leave
// Lateral at zero.
type Velocity struct {
	Longitudinal float64
	Lateral      float64
	Angular      float64
}

// Point returns the pose's planar position.
func (p Pose) Point() geom.Vector2 {
	return geom.Vector2{X: p.X, Y: p.Y}
}

// Normalized returns p with Theta wrapped into (-pi, pi].
func (p Pose) Normalized() Pose {
	p.Theta = geom.NormalizeAngle(p.Theta)
	return p
}
