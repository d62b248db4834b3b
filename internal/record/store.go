package record

import (
	"sort"
	"sync"

	"github.com/simba-sim/simba/internal/simtime"
)

// SaveMode governs when the store hands buffered records to its Sink.
// The mode is a policy setting only: it never changes which records are
// eventually observable, only when they leave the buffer (spec §4.6).
type SaveMode int

const (
	// SaveAtEnd buffers every record and writes once, at FlushAll.
	SaveAtEnd SaveMode = iota
	// SaveContinuous writes every record as it is appended.
	SaveContinuous
	// SaveBatched writes once every N completed kernel steps.
	SaveBatched
	// SavePeriodic writes once every Δt of simulation time elapsed.
	SavePeriodic
)

// Store is the append-only record store the kernel exclusively owns
// (spec §3 Ownership, §4.6). Concurrent appenders append to one shared
// slice under a single lock; there are no per-node shards.
type Store struct {
	mu  sync.Mutex
	all []Record
	seq uint64

	mode      SaveMode
	batchN    int
	periodDt  float64
	sink      Sink
	pending   []Record
	stepsDone int
	nextFlush simtime.Time
}

// NewStore constructs a store in the given mode. sink may be nil, in
// which case flushed batches are discarded (matching the out-of-scope
// result-serialization boundary of spec §1).
func NewStore(mode SaveMode, batchN int, periodDt float64, sink Sink) *Store {
	if sink == nil {
		sink = nopSink{}
	}
	return &Store{
		mode:     mode,
		batchN:   batchN,
		periodDt: periodDt,
		sink:     sink,
		// The first periodic flush falls one full interval after t=0.
		nextFlush: simtime.Round(periodDt),
	}
}

// Append records one datum, stamping it with a store-wide sequence
// number for stable tie-breaking, and eagerly flushes under
// SaveContinuous.
func (s *Store) Append(r Record) {
	s.mu.Lock()
	s.seq++
	r.seq = s.seq
	s.all = append(s.all, r)
	if s.mode == SaveContinuous {
		s.mu.Unlock()
		_ = s.sink.Write([]Record{r})
		return
	}
	s.pending = append(s.pending, r)
	s.mu.Unlock()
}

// OnStepComplete runs the Batched/Periodic flush policy after a kernel
// barrier step finishes at instant now.
func (s *Store) OnStepComplete(now simtime.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case SaveBatched:
		s.stepsDone++
		if s.batchN > 0 && s.stepsDone >= s.batchN {
			s.flushPendingLocked()
			s.stepsDone = 0
		}
	case SavePeriodic:
		if s.periodDt <= 0 {
			return
		}
		if now.AtOrAfter(s.nextFlush) {
			s.flushPendingLocked()
			s.nextFlush = now.Add(s.periodDt)
		}
	}
}

// FlushAll writes any remaining buffered records, called at kernel
// termination regardless of mode.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushPendingLocked()
}

func (s *Store) flushPendingLocked() {
	if len(s.pending) == 0 {
		return
	}
	batch := s.pending
	s.pending = nil
	_ = s.sink.Write(batch)
}

// All returns every record appended so far, ordered per spec §4.6:
// per-node, then per-time, then declared pipeline-stage order.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Record(nil), s.all...)
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// ForNode returns every record for a single node, in the same order as
// All.
func (s *Store) ForNode(node string) []Record {
	var out []Record
	for _, r := range s.All() {
		if r.Node == node {
			out = append(out, r)
		}
	}
	return out
}
