// Package record implements the append-only record store of spec §4.6:
// it accumulates (node, stage, time, payload) tuples produced by every
// pipeline stage and exposes them, in per-node/per-time/per-stage order,
// at run end.
package record

import (
	"github.com/simba-sim/simba/internal/simtime"
)

// Stage names a pipeline point a Record was produced at. The declared
// order below is the tie-break order used when sorting records that
// share a (node, time) pair (spec §4.6).
type Stage string

const (
	StagePreLoopHook       Stage = "pre_loop_hook"
	StagePhysics           Stage = "physics"
	StageSensor            Stage = "sensor"
	StageEstimatorPredict  Stage = "estimator_predict"
	StageEstimatorCorrect  Stage = "estimator_correct"
	StageNavigator         Stage = "navigator"
	StageController        Stage = "controller"
	StageScenario          Stage = "scenario"
	StageTiming            Stage = "timing"
)

var stageOrder = map[Stage]int{
	StagePreLoopHook:      0,
	StagePhysics:          1,
	StageSensor:           2,
	StageEstimatorPredict: 3,
	StageEstimatorCorrect: 4,
	StageNavigator:        5,
	StageController:       6,
	StageScenario:         7,
	StageTiming:           8,
}

// Record is one append-only datum: what a pipeline stage produced, for
// which node, at what simulation time (spec §3, §4.6).
type Record struct {
	Node    string
	Stage   Stage
	Time    simtime.Time
	Payload any

	// seq breaks ties between records sharing (Node, Stage, Time), so
	// iteration order matches production order deterministically.
	seq uint64
}

// New builds a record; the store stamps seq when it is appended.
func New(node string, stage Stage, t simtime.Time, payload any) Record {
	return Record{Node: node, Stage: stage, Time: t, Payload: payload}
}

// less orders two records per spec §4.6: node name, then time, then
// declared stage order, then production sequence.
func (r Record) less(other Record) bool {
	if r.Node != other.Node {
		return r.Node < other.Node
	}
	if !r.Time.Equal(other.Time) {
		return r.Time < other.Time
	}
	if stageOrder[r.Stage] != stageOrder[other.Stage] {
		return stageOrder[r.Stage] < stageOrder[other.Stage]
	}
	return r.seq < other.seq
}

// Sink receives flushed batches of records; the built-in JSON/results
// writer lives outside core (spec §1 "result serialization... out of
// scope"), so Sink is the seam a caller wires in.
type Sink interface {
	Write(records []Record) error
}

// nopSink discards records; used when a Store is constructed without an
// explicit sink (e.g. in tests that only care about the in-memory copy).
type nopSink struct{}

func (nopSink) Write([]Record) error { return nil }

var _ Sink = nopSink{}
