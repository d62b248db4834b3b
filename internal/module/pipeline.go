// Package module defines the pluggable-pipeline contracts that a Node
// drives each tick: Sensor, StateEstimator, Navigator, Controller, and
// Physics, plus the cross-cutting Fault and Filter transforms and the
// message-handler chain (spec §4.3, §9 "Pluggable pipeline").
//
// Every method takes the calling node's context as an explicit argument
// rather than holding a reference to it, so a module never outlives the
// tick it was invoked in (spec §9 "Cyclic references").
package module

import (
	"github.com/simba-sim/simba/internal/bus"
	"github.com/simba-sim/simba/internal/rng"
	"github.com/simba-sim/simba/internal/simtime"
)

// Context is the per-call handle a module uses to reach its owning
// node's bus access and RNG stream without retaining a pointer to the
// node graph.
type Context struct {
	Now       simtime.Time
	Origin    string
	Bus       *bus.Bus
	Rand      *rng.Stream
	Directory bus.Directory
}

// RealState answers a GetRealStateReq-style synchronous cross-node
// query against the barrier's frozen position snapshot (spec §5): a
// Physics service response without touching another node's live,
// possibly-concurrently-mutating state.
func (c *Context) RealState(node string) (bus.NodeInfo, bool) {
	if c.Directory == nil {
		return bus.NodeInfo{}, false
	}
	return c.Directory.Lookup(node)
}

// Publish is a convenience wrapper resolving path relative to the
// module's owning node before handing it to the bus.
func (c *Context) Publish(path string, payload any, flags ...bus.Flag) {
	c.Bus.Publish(c.Origin, bus.Resolve(c.Origin, path), payload, c.Now, flags)
}

// SendTo publishes directly to a named node, bypassing the subscription
// table, matching a sensor's send_to list (spec §4.3).
func (c *Context) SendTo(destination string, path string, payload any, flags ...bus.Flag) error {
	return c.Bus.SendTo(c.Origin, destination, bus.Resolve(c.Origin, path), payload, c.Now, flags)
}

// Named is the capability every pipeline module shares: a stable name
// used in Record tags and log scoping.
type Named interface {
	Name() string
}

// NextTimeStepper declares the next instant a module wants to run. The
// node aggregates the minimum across all of its modules and its letter
// box (spec §4.3 "Next time step").
type NextTimeStepper interface {
	NextTimeStep(now simtime.Time) simtime.Time
}

// MessageHandler lets a module participate in the pre_loop_hook
// handler chain. The first handler in declaration order that returns
// handled=true stops the walk (spec §4.3 step 1).
type MessageHandler interface {
	HandleMessage(ctx *Context, env *bus.Envelope) (handled bool, err error)
}

// ServiceRequest is the shape of a synchronous cross-node query such as
// GetRealStateReq (spec §5). The kernel does not route ServiceRequests;
// cross-node state queries go through Context.RealState.
type ServiceRequest struct {
	Kind string
	Args any
}

// ServiceResponse carries the result of a ServiceRequest.
type ServiceResponse struct {
	Payload any
}

// ServiceResponder lets a module answer a ServiceRequest. None of the
// built-in modules implements it.
type ServiceResponder interface {
	HandleServiceRequest(ctx *Context, req ServiceRequest) (ServiceResponse, error)
}

// Physics integrates a robot's kinematic model under the latest applied
// command (spec §4.3 step 2).
type Physics interface {
	Named
	NextTimeStepper
	Model() RobotModel
	State() (Pose, Velocity)
	UpdateState(ctx *Context, now simtime.Time, cmd Command) error
}

// Sensor produces raw observations from the current physics state
// (spec §4.3 step 3). SendTo lists additional recipients beyond the
// node's own state estimator.
type Sensor interface {
	Named
	NextTimeStepper
	Sample(ctx *Context, now simtime.Time, pose Pose, vel Velocity) (Observation, error)
	SendTo() []string
}

// Fault is a probabilistic transformation applied to a sensor
// observation, in declared order (spec §4.3 step 3, GLOSSARY).
type Fault interface {
	Named
	Apply(ctx *Context, obs Observation) (Observation, error)
}

// Filter is a deterministic predicate or map applied after faults;
// returning keep=false drops the observation (GLOSSARY).
type Filter interface {
	Named
	Apply(ctx *Context, obs Observation) (out Observation, keep bool)
}

// StateEstimator runs prediction against the last applied command and
// correction against collected observations, then exposes the fused
// WorldState (spec §4.3 step 4).
type StateEstimator interface {
	Named
	NextTimeStepper
	Predict(ctx *Context, now simtime.Time, lastCommand Command) error
	Correct(ctx *Context, now simtime.Time, observations []Observation) error
	WorldState() WorldState
}

// Navigator turns a WorldState into a tracking error (spec §4.3 step 5).
type Navigator interface {
	Named
	NextTimeStepper
	ComputeError(ctx *Context, now simtime.Time, world WorldState) (ControllerError, error)
}

// Controller turns a tracking error into a Command conforming to the
// robot's declared model (spec §4.3 step 6).
type Controller interface {
	Named
	NextTimeStepper
	MakeCommand(ctx *Context, now simtime.Time, cerr ControllerError) (Command, error)
}
