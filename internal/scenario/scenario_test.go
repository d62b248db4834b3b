package scenario

import (
	"testing"

	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/rng"
	"github.com/simba-sim/simba/internal/simtime"
)

func newFactory(t *testing.T) *rng.Factory {
	t.Helper()
	f := rng.NewFactory()
	f.SetSeed(1)
	return f
}

func TestTimeTrigger_FixedOccurrences(t *testing.T) {
	f := newFactory(t)
	stream := f.MustStream("scenario")
	trig := NewTimeTrigger(stream.Fixed(2.0), 3, simtime.Round(100))
	event := &Event{Trigger: trig, Kind: EventSpawn, ModelName: "template", NodeName: "robot_$0"}
	eng, err := NewEngine([]*Event{event})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	var times []simtime.Time
	for _, want := range []float64{2, 4, 6} {
		next, ok := eng.NextFiring(simtime.Round(want - 1))
		if !ok || !next.Equal(simtime.Round(want)) {
			t.Fatalf("NextFiring near %v = %v, ok=%v", want, next, ok)
		}
		times = append(times, next)
		occ := eng.EvaluateTime(next)
		if len(occ) != 1 || occ[0].NodeName == "" {
			t.Fatalf("expected exactly one occurrence at %v, got %v", next, occ)
		}
	}
	if _, ok := eng.NextFiring(simtime.Round(6.5)); ok {
		t.Error("no further firings should remain after occurrences is exhausted")
	}
	_ = times
}

func TestTimeTrigger_Periodic(t *testing.T) {
	f := newFactory(t)
	stream := f.MustStream("scenario")
	trig := NewTimeTrigger(stream.Fixed(1.0), 0, simtime.Round(3.0))
	if len(trig.scheduledTimes) != 3 {
		t.Fatalf("periodic schedule length = %d, want 3", len(trig.scheduledTimes))
	}
}

func TestVectorTimeTrigger_SetsTimesComponentsYieldSetsTimesNInstants(t *testing.T) {
	f := newFactory(t)
	stream := f.MustStream("scenario")
	dist, err := stream.NormalVector([]float64{10, 20, 30}, [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})
	if err != nil {
		t.Fatalf("NormalVector: %v", err)
	}
	trig := NewVectorTimeTrigger(dist, 4)
	if len(trig.scheduledTimes) != 4*3 {
		t.Fatalf("scheduledTimes length = %d, want %d (sets * dimensions)", len(trig.scheduledTimes), 4*3)
	}
}

func TestVectorTimeTrigger_ZeroSetsDefaultsToOne(t *testing.T) {
	f := newFactory(t)
	stream := f.MustStream("scenario")
	dist, err := stream.NormalVector([]float64{1, 2}, [][]float64{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("NormalVector: %v", err)
	}
	trig := NewVectorTimeTrigger(dist, 0)
	if len(trig.scheduledTimes) != 2 {
		t.Fatalf("scheduledTimes length = %d, want 2", len(trig.scheduledTimes))
	}
}

func TestProximityTrigger_FiresOnceOnCrossing(t *testing.T) {
	trig := NewProximityTrigger("", 1.0, true)
	event := &Event{Trigger: trig, Kind: EventKill, Target: "$0"}
	eng, err := NewEngine([]*Event{event})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	far := []RobotPose{{Name: "a", Point: geom.Vector2{X: 0, Y: 0}}, {Name: "b", Point: geom.Vector2{X: 5, Y: 0}}}
	if got := eng.EvaluateSpatial(far); len(got) != 0 {
		t.Fatalf("no occurrence expected while robots are far apart, got %v", got)
	}

	near := []RobotPose{{Name: "a", Point: geom.Vector2{X: 0, Y: 0}}, {Name: "b", Point: geom.Vector2{X: 0.5, Y: 0}}}
	got := eng.EvaluateSpatial(near)
	if len(got) != 1 {
		t.Fatalf("expected exactly one occurrence on crossing, got %v", got)
	}

	// Re-evaluating the same state must not refire (idempotent per instant).
	if got := eng.EvaluateSpatial(near); len(got) != 0 {
		t.Fatalf("re-evaluating unchanged state should not refire, got %v", got)
	}
}

func TestProximityTrigger_ProtectedTargetBindsOtherRobot(t *testing.T) {
	trig := NewProximityTrigger("protected", 1.0, true)
	event := &Event{Trigger: trig, Kind: EventKill, Target: "$0"}
	eng, err := NewEngine([]*Event{event})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	robots := []RobotPose{
		{Name: "protected", Point: geom.Vector2{X: 0, Y: 0}},
		{Name: "intruder", Point: geom.Vector2{X: 0.3, Y: 0}},
	}
	occ := eng.EvaluateSpatial(robots)
	if len(occ) != 1 || occ[0].Target != "intruder" {
		t.Fatalf("expected $0 bound to the other robot, got %v", occ)
	}
}

func TestAreaTrigger_FiresOnEnter(t *testing.T) {
	region := geom.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	trig := NewAreaTrigger(region, true)
	event := &Event{Trigger: trig, Kind: EventKill, Target: "$0"}
	eng, err := NewEngine([]*Event{event})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	outside := []RobotPose{{Name: "a", Point: geom.Vector2{X: 5, Y: 5}}}
	if got := eng.EvaluateSpatial(outside); len(got) != 0 {
		t.Fatalf("no occurrence expected outside the area, got %v", got)
	}
	inside := []RobotPose{{Name: "a", Point: geom.Vector2{X: 0.5, Y: 0.5}}}
	if got := eng.EvaluateSpatial(inside); len(got) != 1 {
		t.Fatalf("expected one occurrence entering the area, got %v", got)
	}
}

func TestEvent_ValidateRejectsUnboundVariable(t *testing.T) {
	trig := NewProximityTrigger("", 1.0, true)
	event := &Event{Trigger: trig, Kind: EventKill, Target: "$1"}
	if _, err := NewEngine([]*Event{event}); err == nil {
		t.Fatal("expected a ScenarioBindingMissing error for $1, which no trigger binds")
	}
}

func TestBind_SubstitutesTemplate(t *testing.T) {
	got := Bind("robot_$0_clone", map[string]string{"$0": "3"})
	if got != "robot_3_clone" {
		t.Errorf("Bind = %q, want %q", got, "robot_3_clone")
	}
}
