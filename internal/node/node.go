// Package node implements the generic node core of spec §4.3: the fixed
// per-tick pipeline, next-time-step aggregation, and record emission
// shared by every Robot and ComputationUnit.
package node

import (
	"fmt"

	"github.com/simba-sim/simba/internal/bus"
	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/record"
	"github.com/simba-sim/simba/internal/rng"
	"github.com/simba-sim/simba/internal/simerr"
	"github.com/simba-sim/simba/internal/simlog"
	"github.com/simba-sim/simba/internal/simtime"
)

// Role distinguishes a physical Robot, subject to range gates, from a
// non-physical ComputationUnit (spec §3, GLOSSARY).
type Role int

const (
	RoleRobot Role = iota
	RoleComputationUnit
)

// Network holds the per-node communication parameters the bus consults
// for range gating and delivery delay (spec §4.2).
type Network struct {
	Range float64
	Delay float64
}

// Node is the generic runtime state shared by Robots and ComputationUnits.
// A Robot has physics, navigator, and controller modules plus optional
// sensors and state estimators; a ComputationUnit has only state
// estimators (spec §3).
type Node struct {
	Name    string
	Role    Role
	Labels  map[string]string
	Network Network
	Alive   bool

	Physics         module.Physics
	Sensors         []Sensor
	StateEstimators []module.StateEstimator
	Navigator       module.Navigator
	Controller      module.Controller

	letterBox   *bus.LetterBox
	lastCommand module.Command
	zombie      bool

	// due caches each named module's most recently reported
	// NextTimeStep, populated by NextTimeStep and consulted by Tick to
	// decide which sensors/estimators are scheduled at the current
	// instant versus merely along for the ride on this dispatch.
	due map[string]simtime.Time
}

// Sensor bundles a Sensor module with its configured Faults and Filters
// (spec §4.3 step 3). Additional publish destinations come from the
// module's own SendTo().
type Sensor struct {
	Module  module.Sensor
	Faults  []module.Fault
	Filters []module.Filter
}

// New constructs a node bound to its bus letter box. Robot fields
// (Physics, Sensors, Navigator, Controller) are left nil for a
// ComputationUnit.
func New(name string, role Role, net Network, b *bus.Bus) *Node {
	return &Node{
		Name:      name,
		Role:      role,
		Labels:    make(map[string]string),
		Network:   net,
		Alive:     true,
		letterBox: b.LetterBoxFor(name),
		due:       make(map[string]simtime.Time),
	}
}

// Validate checks module completeness: a Robot must carry physics,
// navigator, and controller modules (sensors and state estimators are
// not required; a Robot with none of them validates); a ComputationUnit
// carries only state estimators. It also seeds lastCommand with a zero command of the
// physics module's own declared Model, so the first runPhysics call
// validates cleanly regardless of which Command variant the robot uses.
func (n *Node) Validate() error {
	if n.Role == RoleRobot {
		if n.Physics == nil || n.Navigator == nil || n.Controller == nil {
			return &simerr.ConfigurationError{Path: "robots." + n.Name, Reason: "a Robot requires physics, navigator, and controller modules"}
		}
		switch n.Physics.Model() {
		case module.ModelHolonomic:
			n.lastCommand = module.HolonomicCommand(0, 0, 0)
		default:
			n.lastCommand = module.UnicycleCommand(0, 0)
		}
	}
	if n.Role == RoleComputationUnit {
		if n.Physics != nil || n.Navigator != nil || n.Controller != nil || len(n.Sensors) != 0 {
			return &simerr.ConfigurationError{Path: "computation_units." + n.Name, Reason: "a ComputationUnit may only declare state estimators"}
		}
	}
	return nil
}

// Pose returns the node's current physics pose, or the zero pose for a
// ComputationUnit.
func (n *Node) Pose() module.Pose {
	if n.Physics == nil {
		return module.Pose{}
	}
	p, _ := n.Physics.State()
	return p
}

// Info reports the bus.NodeInfo snapshot the kernel captures at the
// start of each barrier round.
func (n *Node) Info() bus.NodeInfo {
	pose := n.Pose()
	return bus.NodeInfo{
		Alive:          n.Alive,
		Physical:       n.Role == RoleRobot,
		Position:       geom.Vector2{X: pose.X, Y: pose.Y},
		Range:          n.Network.Range,
		ReceptionDelay: n.Network.Delay,
	}
}

// NextTimeStep aggregates the minimum next-activity time across every
// module and the letter box, per spec §4.3. It returns simtime.Infinity
// if nothing has further activity within maxTime.
func (n *Node) NextTimeStep(now simtime.Time, maxTime simtime.Time) (simtime.Time, error) {
	best := simtime.Time(simtime.Infinity)

	consider := func(name string, t simtime.Time) error {
		if t == simtime.Time(simtime.Infinity) {
			return nil
		}
		if !t.After(now) {
			return &simerr.TimeRegressionError{Node: n.Name + "/" + name, Current: float64(now), Next: float64(t)}
		}
		if t.After(maxTime) {
			return nil
		}
		if t < best {
			best = t
		}
		return nil
	}

	for _, m := range n.allSteppers() {
		// A module is asked again only once its cached instant has been
		// reached; otherwise a slower module's schedule would slide forward
		// every time a faster one dispatches the node.
		t, cached := n.due[m.name]
		if !cached || !t.After(now) {
			t = m.step.NextTimeStep(now)
			n.due[m.name] = t
		}
		if err := consider(m.name, t); err != nil {
			return 0, err
		}
	}
	if t, ok := n.letterBox.NextDeliveryTime(maxTime); ok {
		if t < best {
			best = t
		}
	}
	return best, nil
}

type namedStepper struct {
	name string
	step module.NextTimeStepper
}

func (n *Node) allSteppers() []namedStepper {
	var out []namedStepper
	if n.Physics != nil {
		out = append(out, namedStepper{"physics", n.Physics})
	}
	for _, s := range n.Sensors {
		out = append(out, namedStepper{"sensor:" + s.Module.Name(), s.Module})
	}
	for _, se := range n.StateEstimators {
		out = append(out, namedStepper{"estimator:" + se.Name(), se})
	}
	if n.Navigator != nil {
		out = append(out, namedStepper{"navigator", n.Navigator})
	}
	if n.Controller != nil {
		out = append(out, namedStepper{"controller", n.Controller})
	}
	return out
}

// Detach marks the node dead. It first drains and hands the final round
// of pending messages to any StateEstimator message handlers, matching
// the original's zombie/kill draining before removal from the registry
// (SPEC_FULL.md Supplemented Features).
func (n *Node) Detach(now simtime.Time, b *bus.Bus) {
	n.zombie = true
	for _, env := range n.letterBox.Drain(now) {
		for _, se := range n.StateEstimators {
			if h, ok := se.(module.MessageHandler); ok {
				handled, _ := h.HandleMessage(&module.Context{Now: now, Origin: n.Name, Bus: b}, env)
				if handled {
					break
				}
			}
		}
	}
	n.Alive = false
}

// Tick runs the fixed per-instant pipeline of spec §4.3 and appends a
// Record for every stage that executes.
func (n *Node) Tick(now simtime.Time, b *bus.Bus, dir bus.Directory, streams *rng.Factory, store *record.Store) error {
	if err := n.preLoopHook(now, b, dir, streams, store); err != nil {
		return err
	}
	if !n.Alive {
		return nil // a Kill-flagged command message detached the node this instant
	}

	var observations []module.Observation
	if n.Role == RoleRobot {
		pose, vel, err := n.runPhysics(now, b, dir, streams, store)
		if err != nil {
			return err
		}
		observations, err = n.runSensors(now, b, dir, streams, store, pose, vel)
		if err != nil {
			return err
		}
	}

	for _, se := range n.StateEstimators {
		if err := n.runEstimator(se, now, b, dir, streams, store, observations); err != nil {
			return err
		}
	}

	if n.Role == RoleRobot {
		if err := n.runNavigatorAndController(now, b, dir, streams, store); err != nil {
			return err
		}
	}
	return nil
}

// ProcessPending re-runs the message-handler chain against whatever has
// newly landed in the letter box since the last drain, without repeating
// the rest of the pipeline. The kernel calls this once after Flush to
// pick up same-instant, zero-delay envelopes a peer node published during
// the barrier just completed (spec §4.2 "instantaneous within the same
// step"); it is a single reconciliation pass, not a fixed point.
func (n *Node) ProcessPending(now simtime.Time, b *bus.Bus, dir bus.Directory, streams *rng.Factory, store *record.Store) error {
	return n.preLoopHook(now, b, dir, streams, store)
}

func (n *Node) preLoopHook(now simtime.Time, b *bus.Bus, dir bus.Directory, streams *rng.Factory, store *record.Store) error {
	store.Append(record.New(n.Name, record.StagePreLoopHook, now, nil))

	ready := n.letterBox.Drain(now)
	for _, env := range ready {
		if env.Has(bus.FlagKill) {
			n.Detach(now, b)
			return nil
		}
		if env.Has(bus.FlagUnsubscribe) {
			if topic, ok := env.Payload.(bus.Topic); ok {
				b.Unsubscribe(n.Name, topic)
			}
			continue
		}
		handled := false
		for _, m := range n.messageHandlers() {
			ctx := &module.Context{Now: now, Origin: n.Name, Bus: b, Directory: dir, Rand: n.streamFor(streams, m.name)}
			h, err := m.handler.HandleMessage(ctx, env)
			if err != nil {
				mismatch := &simerr.MessageTypeMismatchError{Handler: m.name, Reason: err.Error()}
				simlog.WithScope(n.Name).Warnf("envelope on %s: %v", env.Topic, mismatch)
				continue
			}
			if h {
				handled = true
				break
			}
		}
		if !handled {
			simlog.WithScope(n.Name).Warnf("envelope on %s dropped: no handler accepted it", env.Topic)
		}
	}
	return nil
}

type namedHandler struct {
	name    string
	handler module.MessageHandler
}

func (n *Node) messageHandlers() []namedHandler {
	var out []namedHandler
	for _, se := range n.StateEstimators {
		if h, ok := se.(module.MessageHandler); ok {
			out = append(out, namedHandler{"estimator:" + se.Name(), h})
		}
	}
	if n.Navigator != nil {
		if h, ok := n.Navigator.(module.MessageHandler); ok {
			out = append(out, namedHandler{"navigator", h})
		}
	}
	if n.Physics != nil {
		if h, ok := n.Physics.(module.MessageHandler); ok {
			out = append(out, namedHandler{"physics", h})
		}
	}
	return out
}

func (n *Node) streamFor(streams *rng.Factory, name string) *rng.Stream {
	if streams == nil {
		return nil
	}
	s, err := streams.Stream(n.Name + "/" + name)
	if err != nil {
		return nil
	}
	return s
}

func (n *Node) runPhysics(now simtime.Time, b *bus.Bus, dir bus.Directory, streams *rng.Factory, store *record.Store) (module.Pose, module.Velocity, error) {
	ctx := &module.Context{Now: now, Origin: n.Name, Bus: b, Directory: dir, Rand: n.streamFor(streams, "physics")}
	if err := n.Physics.UpdateState(ctx, now, n.lastCommand); err != nil {
		return module.Pose{}, module.Velocity{}, fmt.Errorf("node %s: physics: %w", n.Name, err)
	}
	pose, vel := n.Physics.State()
	store.Append(record.New(n.Name, record.StagePhysics, now, pose))
	return pose, vel, nil
}

func (n *Node) runSensors(now simtime.Time, b *bus.Bus, dir bus.Directory, streams *rng.Factory, store *record.Store, pose module.Pose, vel module.Velocity) ([]module.Observation, error) {
	var observations []module.Observation
	for _, s := range n.Sensors {
		scheduled, ok := n.due["sensor:"+s.Module.Name()]
		if ok && !scheduled.Equal(now) {
			continue // declared but not scheduled to run at this instant
		}
		obs, err := n.runSensor(s, now, b, dir, streams, store, pose, vel)
		if err != nil {
			return nil, fmt.Errorf("node %s: sensor %s: %w", n.Name, s.Module.Name(), err)
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func (n *Node) runNavigatorAndController(now simtime.Time, b *bus.Bus, dir bus.Directory, streams *rng.Factory, store *record.Store) error {
	world := n.latestWorldState()
	navCtx := &module.Context{Now: now, Origin: n.Name, Bus: b, Directory: dir, Rand: n.streamFor(streams, "navigator")}
	cerr, err := n.Navigator.ComputeError(navCtx, now, world)
	if err != nil {
		return fmt.Errorf("node %s: navigator: %w", n.Name, err)
	}
	store.Append(record.New(n.Name, record.StageNavigator, now, cerr))

	ctrlCtx := &module.Context{Now: now, Origin: n.Name, Bus: b, Directory: dir, Rand: n.streamFor(streams, "controller")}
	cmd, err := n.Controller.MakeCommand(ctrlCtx, now, cerr)
	if err != nil {
		return fmt.Errorf("node %s: controller: %w", n.Name, err)
	}
	store.Append(record.New(n.Name, record.StageController, now, cmd))
	n.lastCommand = cmd
	return nil
}

func (n *Node) runSensor(s Sensor, now simtime.Time, b *bus.Bus, dir bus.Directory, streams *rng.Factory, store *record.Store, pose module.Pose, vel module.Velocity) (module.Observation, error) {
	ctx := &module.Context{Now: now, Origin: n.Name, Bus: b, Directory: dir, Rand: n.streamFor(streams, "sensor:"+s.Module.Name())}
	obs, err := s.Module.Sample(ctx, now, pose, vel)
	if err != nil {
		return module.Observation{}, err
	}
	for _, f := range s.Faults {
		obs, err = f.Apply(ctx, obs)
		if err != nil {
			return module.Observation{}, fmt.Errorf("fault %s: %w", f.Name(), err)
		}
		obs.AppliedFaults = append(obs.AppliedFaults, module.FaultProvenance{Name: f.Name()})
	}
	kept := true
	for _, filt := range s.Filters {
		obs, kept = filt.Apply(ctx, obs)
		if !kept {
			break
		}
	}
	store.Append(record.New(n.Name, record.StageSensor, now, obs))
	if kept {
		ctx.Publish("sensors/observations", obs)
		for _, dest := range s.Module.SendTo() {
			if err := ctx.SendTo(dest, "sensors/observations", obs); err != nil {
				simlog.WithScope(n.Name).Warnf("sensor %s: %v", s.Module.Name(), err)
			}
		}
	}
	return obs, nil
}

func (n *Node) runEstimator(se module.StateEstimator, now simtime.Time, b *bus.Bus, dir bus.Directory, streams *rng.Factory, store *record.Store, observations []module.Observation) error {
	ctx := &module.Context{Now: now, Origin: n.Name, Bus: b, Directory: dir, Rand: n.streamFor(streams, "estimator:"+se.Name())}

	if scheduled, ok := n.due["estimator:"+se.Name()]; !ok || scheduled.Equal(now) {
		if err := se.Predict(ctx, now, n.lastCommand); err != nil {
			return fmt.Errorf("node %s: estimator %s predict: %w", n.Name, se.Name(), err)
		}
		store.Append(record.New(n.Name, record.StageEstimatorPredict, now, se.WorldState()))
	}

	if err := se.Correct(ctx, now, observations); err != nil {
		return fmt.Errorf("node %s: estimator %s correct: %w", n.Name, se.Name(), err)
	}
	store.Append(record.New(n.Name, record.StageEstimatorCorrect, now, se.WorldState()))
	return nil
}

func (n *Node) latestWorldState() module.WorldState {
	if len(n.StateEstimators) == 0 {
		return module.NewWorldState()
	}
	return n.StateEstimators[0].WorldState()
}
