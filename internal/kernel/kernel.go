package kernel

import (
	"sync"

	"github.com/simba-sim/simba/internal/bus"
	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/node"
	"github.com/simba-sim/simba/internal/record"
	"github.com/simba-sim/simba/internal/rng"
	"github.com/simba-sim/simba/internal/scenario"
	"github.com/simba-sim/simba/internal/simlog"
	"github.com/simba-sim/simba/internal/simtime"
)

// Kernel drives the global barrier-synchronous clock of spec §4.4. It is
// the sole owner of the node registry, the message bus, and the record
// store (spec §3 Ownership).
type Kernel struct {
	Bus      *bus.Bus
	Store    *record.Store
	Streams  *rng.Factory
	Scenario *scenario.Engine
	MaxTime  simtime.Time

	reg *registry
}

// New constructs a Kernel bound to its bus, record store, randomness
// factory, and scenario engine. Nodes are added with Register before the
// first Run.
func New(b *bus.Bus, store *record.Store, streams *rng.Factory, eng *scenario.Engine, maxTime simtime.Time) *Kernel {
	if eng == nil {
		eng, _ = scenario.NewEngine(nil)
	}
	return &Kernel{
		Bus:      b,
		Store:    store,
		Streams:  streams,
		Scenario: eng,
		MaxTime:  maxTime,
		reg:      newRegistry(),
	}
}

// Register adds n to the alive node population, autospawned at t=0 (spec
// §3 Lifecycle) or ahead of the first Run call. It also subscribes n to
// its own command-flag topic (spec §6), so a Kill- or
// Unsubscribe-flagged message from any publisher reaches n's letter box
// and is acted on by its preLoopHook.
func (k *Kernel) Register(n *node.Node) {
	k.reg.register(n)
	k.Bus.Subscribe(n.Name, bus.CommandTopic(n.Name), false)
}

// RegisterTemplate installs the constructor a Spawn occurrence naming
// model looks up (spec §4.5).
func (k *Kernel) RegisterTemplate(model string, tmpl Template) {
	k.reg.registerTemplate(model, tmpl)
}

// Node looks up a registered node by name, alive or dead.
func (k *Kernel) Node(name string) (*node.Node, bool) {
	return k.reg.get(name)
}

// Run drives the kernel until termination (spec §4.4): max_time
// exceeded, the alive set is empty, or no alive node and no scenario
// trigger has any further finite activity. It returns the first fatal
// error encountered (a TimeRegression); a Spawn or Kill that cannot be
// applied is logged and skipped, and ordinary per-node runtime errors
// are logged and do not halt the run.
func (k *Kernel) Run() error {
	now := simtime.Time(0)
	for {
		if k.reg.empty() {
			break
		}

		nextTimes, tNext, ok, err := k.nextGlobalTime(now)
		if err != nil {
			return err
		}
		if !ok || tNext.After(k.MaxTime) {
			break
		}
		now = tNext

		snap := k.reg.snapshot()
		k.Bus.SetDirectory(snap)

		due := dueNodes(k.reg.alive(), nextTimes, now)
		k.dispatch(now, due, snap)
		k.Bus.Flush()
		k.reconcile(now, snap)

		occs := k.evaluateScenario(now)
		k.applyOccurrences(now, occs)

		k.Store.OnStepComplete(now)
	}
	k.Store.FlushAll()
	return nil
}

// nextGlobalTime implements spec §4.4 step 1: ask every alive node for
// its next_time_step and fold in the scenario engine's earliest firing.
// A TimeRegressionError from any node aborts the run (spec §7).
func (k *Kernel) nextGlobalTime(now simtime.Time) (map[string]simtime.Time, simtime.Time, bool, error) {
	alive := k.reg.alive()
	nextTimes := make(map[string]simtime.Time, len(alive))
	best := simtime.Time(simtime.Infinity)
	found := false

	for _, n := range alive {
		t, err := n.NextTimeStep(now, k.MaxTime)
		if err != nil {
			return nil, 0, false, err
		}
		nextTimes[n.Name] = t
		if t != simtime.Time(simtime.Infinity) && t < best {
			best = t
			found = true
		}
	}
	if k.Scenario != nil {
		if t, ok := k.Scenario.NextFiring(now); ok && t < best {
			best = t
			found = true
		}
	}
	return nextTimes, best, found, nil
}

// dueNodes returns the alive nodes whose reported next_time_step equals
// the chosen global instant (spec §4.4 step 3).
func dueNodes(alive []*node.Node, nextTimes map[string]simtime.Time, tNext simtime.Time) []*node.Node {
	var due []*node.Node
	for _, n := range alive {
		if t, ok := nextTimes[n.Name]; ok && t.Equal(tNext) {
			due = append(due, n)
		}
	}
	return due
}

// dispatch runs every due node's Tick concurrently and lets the barrier
// complete before returning (spec §4.4 step 3, §5 scheduling model).
// Runtime module errors are logged per node, per spec §7, and do not
// interrupt the other nodes in the batch.
func (k *Kernel) dispatch(now simtime.Time, due []*node.Node, dir bus.Directory) {
	var wg sync.WaitGroup
	for _, n := range due {
		wg.Add(1)
		go func(n *node.Node) {
			defer wg.Done()
			if err := n.Tick(now, k.Bus, dir, k.Streams, k.Store); err != nil {
				simlog.WithScope(n.Name).Warnf("tick error: %v", err)
			}
		}(n)
	}
	wg.Wait()
}

// reconcile is the single same-instant reconciliation pass required by
// spec §4.2's "instantaneous within the same step" rule: after Flush,
// every alive node gets one more chance to run its message-handler
// chain against envelopes that just landed with delivery_time == now.
// This is a single pass, not a fixed point (DESIGN.md, internal/kernel,
// reconciliation depth).
func (k *Kernel) reconcile(now simtime.Time, dir bus.Directory) {
	var wg sync.WaitGroup
	for _, n := range k.reg.alive() {
		wg.Add(1)
		go func(n *node.Node) {
			defer wg.Done()
			if err := n.ProcessPending(now, k.Bus, dir, k.Streams, k.Store); err != nil {
				simlog.WithScope(n.Name).Warnf("reconciliation error: %v", err)
			}
		}(n)
	}
	wg.Wait()
}

// evaluateScenario runs the scenario engine's Time and spatial checks
// against the state as of the end of the barrier just completed (spec
// §4.4 step 5).
func (k *Kernel) evaluateScenario(now simtime.Time) []scenario.Occurrence {
	if k.Scenario == nil {
		return nil
	}
	var occs []scenario.Occurrence
	occs = append(occs, k.Scenario.EvaluateTime(now)...)

	var robots []scenario.RobotPose
	for _, n := range k.reg.alive() {
		info := n.Info()
		if !info.Physical {
			continue
		}
		robots = append(robots, scenario.RobotPose{Name: n.Name, Point: geom.Vector2{X: info.Position.X, Y: info.Position.Y}})
	}
	occs = append(occs, k.Scenario.EvaluateSpatial(robots)...)
	return occs
}

// applyOccurrences performs every Spawn/Kill the scenario engine fired
// this step, atomically with respect to the next step's node listing
// (spec §4.4 step 5, §3 Lifecycle).
func (k *Kernel) applyOccurrences(now simtime.Time, occs []scenario.Occurrence) {
	for _, occ := range occs {
		switch occ.Kind {
		case scenario.EventKill:
			n, ok := k.reg.get(occ.Target)
			if !ok || !n.Alive {
				simlog.WithScope("kernel").Warnf("scenario kill: target %q not alive", occ.Target)
				continue
			}
			n.Detach(now, k.Bus)
			simlog.WithScope("kernel").Infof("killed node %s at t=%v", occ.Target, now)
		case scenario.EventSpawn:
			tmpl, ok := k.reg.templateFor(occ.ModelName)
			if !ok {
				simlog.WithScope("kernel").Warnf("scenario spawn: no template registered for model %q", occ.ModelName)
				continue
			}
			n, err := tmpl(occ.NodeName)
			if err != nil {
				simlog.WithScope("kernel").Warnf("scenario spawn: constructing %q from model %q: %v", occ.NodeName, occ.ModelName, err)
				continue
			}
			k.Register(n)
			simlog.WithScope("kernel").Infof("spawned node %s from model %s at t=%v", occ.NodeName, occ.ModelName, now)
		}
	}
}
