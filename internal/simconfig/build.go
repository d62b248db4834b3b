package simconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simba-sim/simba/internal/bus"
	"github.com/simba-sim/simba/internal/kernel"
	"github.com/simba-sim/simba/internal/landmark"
	"github.com/simba-sim/simba/internal/node"
	"github.com/simba-sim/simba/internal/record"
	"github.com/simba-sim/simba/internal/rng"
	"github.com/simba-sim/simba/internal/simerr"
	"github.com/simba-sim/simba/internal/simlog"
	"github.com/simba-sim/simba/internal/simtime"
)

// Built is the assembled runtime a Document resolves into: a kernel
// ready for Run, plus the pieces a CLI command wants to report on or
// close out afterward.
type Built struct {
	Kernel *kernel.Kernel
	Store  *record.Store
}

// Build wires a decoded Document into a runnable *kernel.Kernel,
// in this order: environment, then the scenario engine, then robots and
// computation units, then templates.
func Build(doc *Document) (*Built, error) {
	filter := simlog.NewScopeFilter(doc.Log.IncludedNodes, doc.Log.ExcludedNodes)
	logrus.AddHook(simlog.NewScopeHook(nil, filter))
	if err := applyLogLevel(doc.Log.Level); err != nil {
		return nil, err
	}

	var landmarks *landmark.Map
	if doc.Environment.MapPath != "" {
		m, err := landmark.Load(doc.Environment.MapPath)
		if err != nil {
			return nil, err
		}
		landmarks = m
	}

	streams := rng.NewFactory()
	if doc.RandomSeed != nil {
		streams.SetSeed(*doc.RandomSeed)
	} else {
		streams.SetSeed(time.Now().UnixNano())
	}

	b := bus.New()
	store, err := buildStore(doc.Results)
	if err != nil {
		return nil, err
	}

	maxTime := simtime.Round(doc.MaxTime)
	scenarioEngine, err := buildScenarioEngine(doc.Scenario, streams, maxTime)
	if err != nil {
		return nil, err
	}

	k := kernel.New(b, store, streams, scenarioEngine, maxTime)

	seen := make(map[string]bool)
	for i, rc := range doc.Robots {
		if rc.Name == "" {
			return nil, &simerr.ConfigurationError{Path: fmt.Sprintf("robots[%d].name", i), Reason: "must not be empty"}
		}
		if seen[rc.Name] {
			return nil, &simerr.ConfigurationError{Path: fmt.Sprintf("robots[%d].name", i), Reason: fmt.Sprintf("duplicate node name %q", rc.Name)}
		}
		seen[rc.Name] = true
		n, err := buildRobot(rc, rc.Name, b, landmarks)
		if err != nil {
			return nil, err
		}
		k.Register(n)
	}

	for i, cc := range doc.ComputationUnits {
		if cc.Name == "" {
			return nil, &simerr.ConfigurationError{Path: fmt.Sprintf("computation_units[%d].name", i), Reason: "must not be empty"}
		}
		if seen[cc.Name] {
			return nil, &simerr.ConfigurationError{Path: fmt.Sprintf("computation_units[%d].name", i), Reason: fmt.Sprintf("duplicate node name %q", cc.Name)}
		}
		seen[cc.Name] = true
		n, err := buildComputationUnit(cc, b)
		if err != nil {
			return nil, err
		}
		k.Register(n)
	}

	for model, tmpl := range doc.Templates {
		tmplCfg := tmpl
		modelName := model
		k.RegisterTemplate(modelName, func(name string) (*node.Node, error) {
			return buildRobot(tmplCfg, name, b, landmarks)
		})
	}

	return &Built{Kernel: k, Store: store}, nil
}

func applyLogLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return &simerr.ConfigurationError{Path: "log.level", Reason: err.Error()}
	}
	logrus.SetLevel(lvl)
	return nil
}

func buildStore(cfg ResultsConfig) (*record.Store, error) {
	var sink record.Sink
	if cfg.Path != "" {
		sink = &jsonlSink{path: cfg.Path}
	}
	switch cfg.SaveMode {
	case "", "at_end":
		return record.NewStore(record.SaveAtEnd, 0, 0, sink), nil
	case "continuous":
		return record.NewStore(record.SaveContinuous, 0, 0, sink), nil
	case "batched":
		if cfg.BatchSize <= 0 {
			return nil, &simerr.ConfigurationError{Path: "results.batch_size", Reason: "must be positive for save_mode: batched"}
		}
		return record.NewStore(record.SaveBatched, cfg.BatchSize, 0, sink), nil
	case "periodic":
		if cfg.PeriodSeconds <= 0 {
			return nil, &simerr.ConfigurationError{Path: "results.period_seconds", Reason: "must be positive for save_mode: periodic"}
		}
		return record.NewStore(record.SavePeriodic, 0, cfg.PeriodSeconds, sink), nil
	default:
		return nil, &simerr.ConfigurationError{Path: "results.save_mode", Reason: fmt.Sprintf("unknown save mode %q", cfg.SaveMode)}
	}
}

// jsonlSink appends flushed record batches to a newline-delimited JSON
// file, opened once and reused across every flush (spec §4.6). Result
// serialization proper (schemas, post-processing) is out of scope per
// spec §1; this is the minimal built-in sink a save_mode needs to be
// observable at all. save_mode: continuous flushes from every node's
// Tick goroutine, so writes are serialized under mu.
type jsonlSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

func (s *jsonlSink) Write(records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		f, err := os.Create(s.path)
		if err != nil {
			return err
		}
		s.file = f
		s.enc = json.NewEncoder(f)
	}
	for _, r := range records {
		if err := s.enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
