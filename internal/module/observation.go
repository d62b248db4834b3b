package module

import "github.com/simba-sim/simba/internal/simtime"

// ObservationKind discriminates the typed payload carried by an
// Observation (spec §3).
type ObservationKind int

const (
	ObservationLandmark ObservationKind = iota
	ObservationRobot
	ObservationSpeed
	ObservationDisplacement
	ObservationGNSS
	ObservationExternal
)

// LandmarkObservation is a sighting of a mapped landmark, in the
// observer's local frame.
type LandmarkObservation struct {
	LandmarkID     string
	Range, Bearing float64
}

// RobotObservation is a sighting of another robot, relative bearing and
// range in the observer's local frame.
type RobotObservation struct {
	RobotName      string
	Range, Bearing float64
}

// SpeedObservation reports a measured body-frame velocity.
type SpeedObservation struct {
	Velocity Velocity
}

// DisplacementObservation reports an odometry-style incremental pose
// change since the previous sample.
type DisplacementObservation struct {
	DX, DY, DTheta float64
}

// GNSSObservation reports an absolute planar fix, optionally noisy.
type GNSSObservation struct {
	X, Y float64
}

// ExternalObservation carries an opaque payload for plug-in sensors that
// do not fit the built-in shapes.
type ExternalObservation struct {
	Payload any
}

// FaultProvenance names a fault that was applied to an observation, in
// application order, for audit/record purposes (spec §3).
type FaultProvenance struct {
	Name string
}

// Observation is the pipeline value a Sensor produces, after Faults and
// Filters have run (spec §3, §4.3). Exactly one of the Kind-selected
// payload fields is meaningful.
type Observation struct {
	SensorName string
	Observer   string
	Time       simtime.Time
	Kind       ObservationKind

	Landmark     LandmarkObservation
	Robot        RobotObservation
	Speed        SpeedObservation
	Displacement DisplacementObservation
	GNSS         GNSSObservation
	External     ExternalObservation

	AppliedFaults []FaultProvenance
}
