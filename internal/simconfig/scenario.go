package simconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/rng"
	"github.com/simba-sim/simba/internal/scenario"
	"github.com/simba-sim/simba/internal/simerr"
	"github.com/simba-sim/simba/internal/simtime"
)

// ScenarioConfig is the top-level scenario array of spec §4.5.
type ScenarioConfig struct {
	Events []EventConfig `yaml:"events"`
}

// EventConfig pairs a polymorphic Trigger sub-document with the action
// it drives (spec §4.5).
type EventConfig struct {
	Trigger   yaml.Node `yaml:"trigger"`
	Kind      string    `yaml:"kind"` // spawn | kill
	ModelName string    `yaml:"model_name"`
	NodeName  string    `yaml:"node_name"`
	Target    string    `yaml:"target"`
}

type distributionConfig struct {
	Type       string      `yaml:"type"` // fixed | uniform | normal | poisson | exponential | normal_vector
	Value      float64     `yaml:"value"`
	Low        float64     `yaml:"low"`
	High       float64     `yaml:"high"`
	Mean       float64     `yaml:"mean"`
	Stddev     float64     `yaml:"stddev"`
	Lambda     float64     `yaml:"lambda"`
	Rate       float64     `yaml:"rate"`
	MeanVector []float64   `yaml:"mean_vector"`
	Covariance [][]float64 `yaml:"covariance"`
}

func buildDistribution(cfg distributionConfig, stream *rng.Stream, path string) (rng.Distribution, error) {
	switch cfg.Type {
	case "fixed":
		return stream.Fixed(cfg.Value), nil
	case "uniform":
		return stream.Uniform(cfg.Low, cfg.High), nil
	case "normal":
		return stream.Normal(cfg.Mean, cfg.Stddev), nil
	case "poisson":
		return stream.Poisson(cfg.Lambda), nil
	case "exponential":
		return stream.Exponential(cfg.Rate), nil
	default:
		return nil, &simerr.InvalidDistributionError{Stream: stream.Name(), Reason: fmt.Sprintf("%s: unknown distribution type %q", path, cfg.Type)}
	}
}

// buildVectorDistribution handles the N-dimensional "normal_vector" case
// of spec §4.5's Time trigger, kept separate from buildDistribution
// because it produces an rng.VectorDistribution rather than a scalar
// rng.Distribution.
func buildVectorDistribution(cfg distributionConfig, stream *rng.Stream, path string) (rng.VectorDistribution, error) {
	if cfg.Type != "normal_vector" {
		return nil, &simerr.InvalidDistributionError{Stream: stream.Name(), Reason: fmt.Sprintf("%s: unknown vector distribution type %q", path, cfg.Type)}
	}
	dist, err := stream.NormalVector(cfg.MeanVector, cfg.Covariance)
	if err != nil {
		return nil, err
	}
	return dist, nil
}

type triggerTimeConfig struct {
	Type        string             `yaml:"type"`
	Distribution distributionConfig `yaml:"distribution"`
	Occurrences int                `yaml:"occurrences"`
	Stream      string             `yaml:"stream"`
}

type triggerProximityConfig struct {
	Type            string  `yaml:"type"`
	ProtectedTarget string  `yaml:"protected_target"`
	Distance        float64 `yaml:"distance"`
	Inside          bool    `yaml:"inside"`
}

type regionConfig struct {
	Type    string  `yaml:"type"` // rect | circle
	MinX    float64 `yaml:"min_x"`
	MinY    float64 `yaml:"min_y"`
	MaxX    float64 `yaml:"max_x"`
	MaxY    float64 `yaml:"max_y"`
	CenterX float64 `yaml:"center_x"`
	CenterY float64 `yaml:"center_y"`
	Radius  float64 `yaml:"radius"`
}

func buildRegion(cfg regionConfig, path string) (geom.Area, error) {
	switch cfg.Type {
	case "rect":
		return geom.Rect{MinX: cfg.MinX, MinY: cfg.MinY, MaxX: cfg.MaxX, MaxY: cfg.MaxY}, nil
	case "circle":
		return geom.Circle{Center: geom.Vector2{X: cfg.CenterX, Y: cfg.CenterY}, Radius: cfg.Radius}, nil
	default:
		return nil, &simerr.ConfigurationError{Path: path + ".type", Reason: fmt.Sprintf("unknown region type %q", cfg.Type)}
	}
}

type triggerAreaConfig struct {
	Type   string       `yaml:"type"`
	Region regionConfig `yaml:"region"`
	Inside bool         `yaml:"inside"`
}

func buildTrigger(raw yaml.Node, path string, streams *rng.Factory, maxTime simtime.Time) (*scenario.Trigger, error) {
	kind, err := peekType(&raw, path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "time":
		var cfg triggerTimeConfig
		if err := decodeStrict(&raw, path, &cfg); err != nil {
			return nil, err
		}
		streamName := cfg.Stream
		if streamName == "" {
			streamName = "scenario"
		}
		stream, err := streams.Stream(streamName)
		if err != nil {
			return nil, err
		}
		if cfg.Distribution.Type == "normal_vector" {
			dist, err := buildVectorDistribution(cfg.Distribution, stream, path+".distribution")
			if err != nil {
				return nil, err
			}
			return scenario.NewVectorTimeTrigger(dist, cfg.Occurrences), nil
		}
		dist, err := buildDistribution(cfg.Distribution, stream, path+".distribution")
		if err != nil {
			return nil, err
		}
		return scenario.NewTimeTrigger(dist, cfg.Occurrences, maxTime), nil
	case "proximity":
		var cfg triggerProximityConfig
		if err := decodeStrict(&raw, path, &cfg); err != nil {
			return nil, err
		}
		return scenario.NewProximityTrigger(cfg.ProtectedTarget, cfg.Distance, cfg.Inside), nil
	case "area":
		var cfg triggerAreaConfig
		if err := decodeStrict(&raw, path, &cfg); err != nil {
			return nil, err
		}
		region, err := buildRegion(cfg.Region, path+".region")
		if err != nil {
			return nil, err
		}
		return scenario.NewAreaTrigger(region, cfg.Inside), nil
	default:
		return nil, &simerr.ConfigurationError{Path: path + ".type", Reason: fmt.Sprintf("unknown trigger type %q", kind)}
	}
}

func buildEvent(cfg EventConfig, path string, streams *rng.Factory, maxTime simtime.Time) (*scenario.Event, error) {
	trig, err := buildTrigger(cfg.Trigger, path+".trigger", streams, maxTime)
	if err != nil {
		return nil, err
	}
	var kind scenario.EventKind
	switch cfg.Kind {
	case "spawn":
		kind = scenario.EventSpawn
	case "kill":
		kind = scenario.EventKill
	default:
		return nil, &simerr.ConfigurationError{Path: path + ".kind", Reason: fmt.Sprintf("unknown event kind %q", cfg.Kind)}
	}
	return &scenario.Event{Trigger: trig, Kind: kind, ModelName: cfg.ModelName, NodeName: cfg.NodeName, Target: cfg.Target}, nil
}

func buildScenarioEngine(cfg ScenarioConfig, streams *rng.Factory, maxTime simtime.Time) (*scenario.Engine, error) {
	var events []*scenario.Event
	for i, ec := range cfg.Events {
		e, err := buildEvent(ec, fmt.Sprintf("scenario.events[%d]", i), streams, maxTime)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return scenario.NewEngine(events)
}
