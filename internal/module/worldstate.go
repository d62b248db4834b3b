package module

// WorldState is what a StateEstimator publishes for its owning node's
// Navigator to consume: the node's own best-estimate state plus whatever
// it knows about the rest of the world (spec §3).
type WorldState struct {
	Self          *Pose
	SelfVelocity  *Velocity
	Foreign       map[string]Pose
	Landmarks     map[string]LandmarkObservation
	OccupancyGrid *OccupancyGrid
}

// OccupancyGrid is an optional coarse map a StateEstimator may maintain;
// core does not interpret its contents, only carries the pointer.
type OccupancyGrid struct {
	Resolution    float64
	Width, Height int
	Cells         []bool
}

// NewWorldState returns an empty WorldState with initialized maps.
func NewWorldState() WorldState {
	return WorldState{
		Foreign:   make(map[string]Pose),
		Landmarks: make(map[string]LandmarkObservation),
	}
}

// ControllerError is the Navigator's output and the Controller's input:
// a decomposed tracking error (spec §4.3 step 5).
type ControllerError struct {
	Lateral      float64
	Longitudinal float64
	Theta        float64
	Velocity     float64
}
