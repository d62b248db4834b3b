// Package cmd implements the CLI surface: run, schema, and replay.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simba-sim/simba/internal/simconfig"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "simba",
	Short: "Discrete-event multi-robot simulator",
}

// runCmd loads a configuration document and drives the kernel to
// completion.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a configuration document",
	Run: func(cmd *cobra.Command, args []string) {
		if configPath == "" {
			logrus.Fatal("--config is required")
		}
		doc, err := simconfig.Load(configPath)
		if err != nil {
			logrus.Fatalf("loading config: %v", err)
		}
		built, err := simconfig.Build(doc)
		if err != nil {
			logrus.Fatalf("building simulation: %v", err)
		}
		if err := built.Kernel.Run(); err != nil {
			logrus.Fatalf("simulation aborted: %v", err)
		}
		records := built.Store.All()
		logrus.Infof("simulation complete: %d records", len(records))
		fmt.Printf("recorded %d datapoints across the run\n", len(records))
	},
}

// schemaCmd prints a placeholder banner. The real JSON-schema generator
// for the configuration document is an external collaborator, out of
// scope for core (spec §1).
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print a placeholder note about configuration schema generation",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("schema generation is provided by an external collaborator tool; core only decodes and validates configuration documents at load time")
	},
}

var replayPath string

// replayCmd re-reads a previously saved JSON-lines results file and
// re-emits summary statistics without re-running the kernel.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Summarize a saved results file",
	Run: func(cmd *cobra.Command, args []string) {
		if replayPath == "" {
			logrus.Fatal("--file is required")
		}
		summary, err := replaySummary(replayPath)
		if err != nil {
			logrus.Fatalf("replay: %v", err)
		}
		fmt.Printf("%d records across %d nodes, spanning t=%.4f to t=%.4f\n",
			summary.total, len(summary.byNode), summary.minTime, summary.maxTime)
	},
}

type replayRecord struct {
	Node  string  `json:"Node"`
	Stage string  `json:"Stage"`
	Time  float64 `json:"Time"`
}

type replaySummaryResult struct {
	total   int
	byNode  map[string]int
	minTime float64
	maxTime float64
}

func replaySummary(path string) (*replaySummaryResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	summary := &replaySummaryResult{byNode: make(map[string]int)}
	dec := json.NewDecoder(f)
	first := true
	for dec.More() {
		var r replayRecord
		if err := dec.Decode(&r); err != nil {
			return nil, err
		}
		summary.total++
		summary.byNode[r.Node]++
		if first || r.Time < summary.minTime {
			summary.minTime = r.Time
		}
		if first || r.Time > summary.maxTime {
			summary.maxTime = r.Time
		}
		first = false
	}
	return summary, nil
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to the simulation configuration document")
	replayCmd.Flags().StringVar(&replayPath, "file", "", "path to a saved JSON-lines results file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(replayCmd)
}
