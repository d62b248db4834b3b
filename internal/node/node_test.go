package node

import (
	"errors"
	"testing"

	"github.com/simba-sim/simba/internal/bus"
	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/record"
	"github.com/simba-sim/simba/internal/rng"
	"github.com/simba-sim/simba/internal/simerr"
	"github.com/simba-sim/simba/internal/simtime"
)

// fakePhysics is a minimal Unicycle-style stand-in: it moves by a fixed
// step whenever UpdateState runs, ignoring the command's actual values.
type fakePhysics struct {
	pose   module.Pose
	period float64
}

func (p *fakePhysics) Name() string           { return "physics" }
func (p *fakePhysics) Model() module.RobotModel { return module.ModelUnicycle }
func (p *fakePhysics) State() (module.Pose, module.Velocity) {
	return p.pose, module.Velocity{}
}
func (p *fakePhysics) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(p.period)
}
func (p *fakePhysics) UpdateState(ctx *module.Context, now simtime.Time, cmd module.Command) error {
	p.pose.X += 1
	return nil
}

type fakeSensor struct {
	period float64
	calls  int
}

func (s *fakeSensor) Name() string { return "gnss" }
func (s *fakeSensor) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(s.period)
}
func (s *fakeSensor) Sample(ctx *module.Context, now simtime.Time, pose module.Pose, vel module.Velocity) (module.Observation, error) {
	s.calls++
	return module.Observation{SensorName: s.Name(), Observer: ctx.Origin, Time: now, Kind: module.ObservationGNSS, GNSS: module.GNSSObservation{X: pose.X, Y: pose.Y}}, nil
}
func (s *fakeSensor) SendTo() []string { return nil }

type fakeEstimator struct {
	world          module.WorldState
	predicted      int
	corrected      int
	period         float64
	handleAttempts int
	errOnMessage   bool
}

func (e *fakeEstimator) Name() string { return "perfect" }
func (e *fakeEstimator) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(e.period)
}
func (e *fakeEstimator) Predict(ctx *module.Context, now simtime.Time, lastCommand module.Command) error {
	e.predicted++
	return nil
}
func (e *fakeEstimator) Correct(ctx *module.Context, now simtime.Time, observations []module.Observation) error {
	e.corrected++
	if len(observations) > 0 {
		e.world.Self = &module.Pose{X: observations[0].GNSS.X}
	}
	return nil
}
func (e *fakeEstimator) WorldState() module.WorldState { return e.world }

// HandleMessage rejects with an error when errOnMessage is set, standing
// in for a handler that cannot parse a given envelope's payload;
// otherwise it declines without an error.
func (e *fakeEstimator) HandleMessage(ctx *module.Context, env *bus.Envelope) (bool, error) {
	e.handleAttempts++
	if e.errOnMessage {
		return false, errors.New("cannot parse payload")
	}
	return false, nil
}

type fakeNavigator struct {
	period         float64
	handleAttempts int
	acceptMessage  bool
}

func (n *fakeNavigator) Name() string { return "goto" }
func (n *fakeNavigator) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(n.period)
}
func (n *fakeNavigator) ComputeError(ctx *module.Context, now simtime.Time, world module.WorldState) (module.ControllerError, error) {
	return module.ControllerError{Longitudinal: 1}, nil
}

// HandleMessage accepts only when acceptMessage is set, so a test can
// verify the handler chain keeps walking past an earlier handler's
// error, or drops an envelope no handler accepts.
func (n *fakeNavigator) HandleMessage(ctx *module.Context, env *bus.Envelope) (bool, error) {
	n.handleAttempts++
	return n.acceptMessage, nil
}

type fakeController struct{ period float64 }

func (c *fakeController) Name() string { return "pid" }
func (c *fakeController) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(c.period)
}
func (c *fakeController) MakeCommand(ctx *module.Context, now simtime.Time, cerr module.ControllerError) (module.Command, error) {
	return module.UnicycleCommand(cerr.Longitudinal, cerr.Longitudinal), nil
}

func newTestRobot(t *testing.T, b *bus.Bus) (*Node, *fakePhysics, *fakeSensor, *fakeEstimator) {
	t.Helper()
	physics := &fakePhysics{period: 1}
	sensor := &fakeSensor{period: 1}
	estimator := &fakeEstimator{period: 1}
	n := New("r1", RoleRobot, Network{}, b)
	n.Physics = physics
	n.Sensors = []Sensor{{Module: sensor}}
	n.StateEstimators = []module.StateEstimator{estimator}
	n.Navigator = &fakeNavigator{period: 1}
	n.Controller = &fakeController{period: 1}
	if err := n.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return n, physics, sensor, estimator
}

func TestNode_TickRunsFullPipelineAndRecords(t *testing.T) {
	b := bus.New()
	n, physics, sensor, estimator := newTestRobot(t, b)
	b.SetDirectory(directoryOf(n))

	if _, err := n.NextTimeStep(0, simtime.Time(simtime.Infinity)); err != nil {
		t.Fatalf("NextTimeStep: %v", err)
	}

	store := record.NewStore(record.SaveAtEnd, 0, 0, nil)
	factory := rng.NewFactory()
	factory.SetSeed(1)

	if err := n.Tick(simtime.Round(1.0), b, directoryOf(n), factory, store); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if physics.pose.X != 1 {
		t.Errorf("physics did not advance, X = %v", physics.pose.X)
	}
	if sensor.calls != 1 {
		t.Errorf("sensor.calls = %d, want 1", sensor.calls)
	}
	if estimator.predicted != 1 || estimator.corrected != 1 {
		t.Errorf("estimator predicted=%d corrected=%d, want 1/1", estimator.predicted, estimator.corrected)
	}

	all := store.All()
	stages := map[record.Stage]bool{}
	for _, r := range all {
		stages[r.Stage] = true
	}
	for _, want := range []record.Stage{record.StagePreLoopHook, record.StagePhysics, record.StageSensor, record.StageEstimatorPredict, record.StageEstimatorCorrect, record.StageNavigator, record.StageController} {
		if !stages[want] {
			t.Errorf("missing a record for stage %s", want)
		}
	}
}

func TestNode_NextTimeStep_TimeRegressionIsAnError(t *testing.T) {
	b := bus.New()
	n, physics, _, _ := newTestRobot(t, b)
	physics.period = 0 // NextTimeStep returns the current instant, no strict advance
	b.SetDirectory(directoryOf(n))

	_, err := n.NextTimeStep(simtime.Round(1.0), simtime.Time(simtime.Infinity))
	var regression *simerr.TimeRegressionError
	if err == nil {
		t.Fatal("expected a TimeRegression error")
	}
	if !errors.As(err, &regression) {
		t.Fatalf("expected *simerr.TimeRegressionError, got %T", err)
	}
}

func TestNode_NextTimeStep_RespectsMaxTime(t *testing.T) {
	b := bus.New()
	n, _, _, _ := newTestRobot(t, b)
	b.SetDirectory(directoryOf(n))

	got, err := n.NextTimeStep(0, simtime.Round(0.5))
	if err != nil {
		t.Fatalf("NextTimeStep: %v", err)
	}
	if got != simtime.Time(simtime.Infinity) {
		t.Errorf("expected Infinity when every module's next step exceeds maxTime, got %v", got)
	}
}

func TestNode_Detach_MarksDeadAndDrainsLetterBox(t *testing.T) {
	b := bus.New()
	n, _, _, _ := newTestRobot(t, b)
	b.SetDirectory(directoryOf(n))

	n.Detach(simtime.Round(1.0), b)
	if n.Alive {
		t.Error("node should be dead after Detach")
	}
	if n.letterBox.Len() != 0 {
		t.Error("letter box should be drained on Detach")
	}
}

func TestNode_Validate_RobotRequiresAllModules(t *testing.T) {
	b := bus.New()
	n := New("bad", RoleRobot, Network{}, b)
	if err := n.Validate(); err == nil {
		t.Fatal("expected a validation error for a Robot missing modules")
	}
}

func TestNode_Validate_ComputationUnitRejectsRobotModules(t *testing.T) {
	b := bus.New()
	n := New("cu", RoleComputationUnit, Network{}, b)
	n.Physics = &fakePhysics{}
	if err := n.Validate(); err == nil {
		t.Fatal("expected a validation error for a ComputationUnit declaring physics")
	}
}

// holonomicPhysics is a minimal stand-in that, unlike fakePhysics, only
// accepts Holonomic commands, matching builtin.HolonomicPhysics's
// Command.Validate check.
type holonomicPhysics struct {
	pose   module.Pose
	period float64
}

func (p *holonomicPhysics) Name() string             { return "physics" }
func (p *holonomicPhysics) Model() module.RobotModel { return module.ModelHolonomic }
func (p *holonomicPhysics) State() (module.Pose, module.Velocity) {
	return p.pose, module.Velocity{}
}
func (p *holonomicPhysics) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(p.period)
}
func (p *holonomicPhysics) UpdateState(ctx *module.Context, now simtime.Time, cmd module.Command) error {
	if err := cmd.Validate(module.ModelHolonomic); err != nil {
		return err
	}
	p.pose.X += 1
	return nil
}

type holonomicController struct{ period float64 }

func (c *holonomicController) Name() string { return "pid" }
func (c *holonomicController) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(c.period)
}
func (c *holonomicController) MakeCommand(ctx *module.Context, now simtime.Time, cerr module.ControllerError) (module.Command, error) {
	return module.HolonomicCommand(cerr.Longitudinal, 0, 0), nil
}

func TestNode_Tick_HolonomicRobotRunsThroughValidateAndTick(t *testing.T) {
	b := bus.New()
	physics := &holonomicPhysics{period: 1}
	n := New("h1", RoleRobot, Network{}, b)
	n.Physics = physics
	n.Navigator = &fakeNavigator{period: 1}
	n.Controller = &holonomicController{period: 1}
	if err := n.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	b.SetDirectory(directoryOf(n))

	store := record.NewStore(record.SaveAtEnd, 0, 0, nil)
	factory := rng.NewFactory()
	factory.SetSeed(1)

	if err := n.Tick(simtime.Round(1.0), b, directoryOf(n), factory, store); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if physics.pose.X != 1 {
		t.Errorf("holonomic physics did not advance, X = %v", physics.pose.X)
	}
	if err := n.Tick(simtime.Round(2.0), b, directoryOf(n), factory, store); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if physics.pose.X != 2 {
		t.Errorf("holonomic physics did not advance on the second tick, X = %v", physics.pose.X)
	}
}

func TestNode_PreLoopHook_HandlerErrorContinuesToNextHandlerInChain(t *testing.T) {
	b := bus.New()
	n, physics, sensor, estimator := newTestRobot(t, b)
	estimator.errOnMessage = true
	nav := n.Navigator.(*fakeNavigator)
	nav.acceptMessage = true
	b.SetDirectory(directoryOf(n))

	b.Subscribe(n.Name, bus.ScenarioTopic, false)
	b.Publish("scenario", bus.ScenarioTopic, "payload", simtime.Round(1.0), nil)
	b.Flush()

	store := record.NewStore(record.SaveAtEnd, 0, 0, nil)
	if err := n.Tick(simtime.Round(1.0), b, directoryOf(n), rng.NewFactory(), store); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if estimator.handleAttempts != 1 {
		t.Errorf("estimator.handleAttempts = %d, want 1", estimator.handleAttempts)
	}
	if nav.handleAttempts != 1 {
		t.Errorf("navigator.handleAttempts = %d, want 1 (chain must continue past the estimator's error)", nav.handleAttempts)
	}
	// The rest of the pipeline still ran this instant, proving the
	// handler error did not abort Tick.
	if physics.pose.X != 1 {
		t.Errorf("physics did not advance, X = %v", physics.pose.X)
	}
	if sensor.calls != 1 {
		t.Errorf("sensor.calls = %d, want 1", sensor.calls)
	}
}

func TestNode_PreLoopHook_UnhandledEnvelopeDoesNotAbortTick(t *testing.T) {
	b := bus.New()
	n, physics, _, estimator := newTestRobot(t, b)
	nav := n.Navigator.(*fakeNavigator)
	// estimator and navigator both decline without accepting or
	// erroring, so nothing in the chain ever accepts the envelope.
	b.SetDirectory(directoryOf(n))

	b.Subscribe(n.Name, bus.ScenarioTopic, false)
	b.Publish("scenario", bus.ScenarioTopic, "payload", simtime.Round(1.0), nil)
	b.Flush()

	store := record.NewStore(record.SaveAtEnd, 0, 0, nil)
	if err := n.Tick(simtime.Round(1.0), b, directoryOf(n), rng.NewFactory(), store); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if estimator.handleAttempts != 1 || nav.handleAttempts != 1 {
		t.Errorf("expected every handler in the chain to be tried once, got estimator=%d navigator=%d", estimator.handleAttempts, nav.handleAttempts)
	}
	if physics.pose.X != 1 {
		t.Errorf("physics did not advance despite an unhandled envelope, X = %v", physics.pose.X)
	}
}

func TestNode_PreLoopHook_KillFlagDetachesNode(t *testing.T) {
	b := bus.New()
	n, _, _, _ := newTestRobot(t, b)
	b.SetDirectory(directoryOf(n))
	b.Subscribe(n.Name, bus.CommandTopic(n.Name), false)

	b.Publish("god", bus.CommandTopic(n.Name), nil, simtime.Round(1.0), []bus.Flag{bus.FlagKill})
	b.Flush()

	if err := n.ProcessPending(simtime.Round(1.0), b, directoryOf(n), rng.NewFactory(), record.NewStore(record.SaveAtEnd, 0, 0, nil)); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if n.Alive {
		t.Error("expected the node to be dead after a Kill-flagged command message")
	}
}

func TestNode_PreLoopHook_UnsubscribeFlagRemovesSubscription(t *testing.T) {
	b := bus.New()
	n, _, _, _ := newTestRobot(t, b)
	b.SetDirectory(directoryOf(n))
	target := bus.ScenarioTopic
	b.Subscribe(n.Name, target, false)
	b.Subscribe(n.Name, bus.CommandTopic(n.Name), false)

	b.Publish("god", bus.CommandTopic(n.Name), target, simtime.Round(1.0), []bus.Flag{bus.FlagUnsubscribe})
	b.Flush()

	if err := n.ProcessPending(simtime.Round(1.0), b, directoryOf(n), rng.NewFactory(), record.NewStore(record.SaveAtEnd, 0, 0, nil)); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	b.Publish("scenario", target, "payload", simtime.Round(2.0), nil)
	b.Flush()
	if n.letterBox.Len() != 0 {
		t.Error("expected the node's subscription to be removed, so the scenario publish delivers nothing")
	}
}

func directoryOf(n *Node) fakeDirectory {
	return fakeDirectory{n.Name: n.Info()}
}

type fakeDirectory map[string]bus.NodeInfo

func (d fakeDirectory) Lookup(name string) (bus.NodeInfo, bool) {
	info, ok := d[name]
	return info, ok
}
