// Package simconfig loads the top-level YAML configuration document of
// spec §6: version, max_time, log, results, time_analysis, random_seed,
// environment, robots, computation_units, templates, and scenario, and wires the
// decoded document into a runnable *kernel.Kernel.
package simconfig

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/simba-sim/simba/internal/simerr"
)

// Version is this build's schema version, compared against a config
// document's declared version. A mismatch is a warning, not a failure,
// per spec §6 and the original's load_config_full version check.
const Version = "1.0"

// Document is the full top-level configuration (spec §6). Every field
// here is required for gopkg.in/yaml.v3's KnownFields(true) strict
// decoding to reject an unrecognized top-level key.
type Document struct {
	Version          string                  `yaml:"version"`
	MaxTime          float64                 `yaml:"max_time"`
	Log              LogConfig               `yaml:"log"`
	Results          ResultsConfig           `yaml:"results"`
	TimeAnalysis     TimeAnalysisConfig      `yaml:"time_analysis"`
	RandomSeed       *int64                  `yaml:"random_seed"`
	Environment      EnvironmentConfig       `yaml:"environment"`
	Robots           []RobotConfig           `yaml:"robots"`
	ComputationUnits []ComputationUnitConfig `yaml:"computation_units"`
	Templates        map[string]RobotConfig  `yaml:"templates"`
	Scenario         ScenarioConfig          `yaml:"scenario"`
}

// LogConfig maps onto internal/simlog's level and scope filter.
type LogConfig struct {
	Level         string   `yaml:"level"`
	IncludedNodes []string `yaml:"included_nodes"`
	ExcludedNodes []string `yaml:"excluded_nodes"`
}

// ResultsConfig selects the record.Store save mode and destination.
type ResultsConfig struct {
	Path          string  `yaml:"path"`
	SaveMode      string  `yaml:"save_mode"` // at_end | continuous | batched | periodic
	BatchSize     int     `yaml:"batch_size"`
	PeriodSeconds float64 `yaml:"period_seconds"`
	PostRunScript string  `yaml:"post_run_script"`
}

// TimeAnalysisConfig names the (out-of-scope, external) profile exporter
// and its unit; core only carries these fields through for the CLI to
// report, per spec §1's external-collaborator boundary.
type TimeAnalysisConfig struct {
	Exporter string `yaml:"exporter"`
	Unit     string `yaml:"unit"`
}

// EnvironmentConfig points at the landmark map file of spec §6.
type EnvironmentConfig struct {
	MapPath string `yaml:"map_path"`
}

// Load reads and strictly decodes a configuration document at path,
// warning (not failing) on a Version mismatch, per spec §6.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &simerr.ConfigurationError{Path: path, Reason: err.Error()}
	}
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, &simerr.ConfigurationError{Path: path, Reason: err.Error()}
	}
	if doc.Version != "" && doc.Version != Version {
		logrus.Warnf("config %s declares version %q, running against %q", path, doc.Version, Version)
	}
	if doc.MaxTime <= 0 {
		return nil, &simerr.ConfigurationError{Path: path + ".max_time", Reason: "must be positive"}
	}
	return &doc, nil
}

// decodeStrict re-decodes a nested yaml.Node with KnownFields(true),
// since Node.Decode itself offers no way to request strict mode. This is
// the "custom yaml.Node-based unknown-field check" the polymorphic,
// type-tagged sub-documents of robots/sensors/scenario events need.
func decodeStrict(node *yaml.Node, path string, v any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return &simerr.ConfigurationError{Path: path, Reason: err.Error()}
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(v); err != nil {
		return &simerr.ConfigurationError{Path: path, Reason: err.Error()}
	}
	return nil
}

type typeTag struct {
	Type string `yaml:"type"`
}

func peekType(node *yaml.Node, path string) (string, error) {
	var tag typeTag
	if err := node.Decode(&tag); err != nil {
		return "", &simerr.ConfigurationError{Path: path, Reason: err.Error()}
	}
	if tag.Type == "" {
		return "", &simerr.ConfigurationError{Path: path, Reason: `missing required field "type"`}
	}
	return tag.Type, nil
}
