// Package trajectory loads the 2-D waypoint files referenced by a
// robot's navigator configuration (spec §6 "Trajectory file").
package trajectory

import (
	"bytes"
	"os"

	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/simerr"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a trajectory file.
type document struct {
	Points []point `yaml:"points"`
	DoLoop bool    `yaml:"do_loop"`
}

type point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Path is a sequence of waypoints, optionally looping back to the start
// once the last one is reached (spec §6).
type Path struct {
	points []geom.Vector2
	doLoop bool
}

// Load reads and parses a trajectory file at path.
func Load(path string) (*Path, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &simerr.ConfigurationError{Path: path, Reason: err.Error()}
	}
	var doc document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, &simerr.ConfigurationError{Path: path, Reason: err.Error()}
	}
	if len(doc.Points) == 0 {
		return nil, &simerr.ConfigurationError{Path: path, Reason: "trajectory file has no points"}
	}
	p := &Path{doLoop: doc.DoLoop}
	for _, pt := range doc.Points {
		p.points = append(p.points, geom.Vector2{X: pt.X, Y: pt.Y})
	}
	return p, nil
}

// New builds a Path directly from waypoints, for tests and programmatic
// scenario construction.
func New(points []geom.Vector2, doLoop bool) *Path {
	return &Path{points: append([]geom.Vector2(nil), points...), doLoop: doLoop}
}

// Len reports the number of waypoints.
func (p *Path) Len() int { return len(p.points) }

// At returns the waypoint at index i, clamped to the last point when i is
// out of range (reached the end without looping).
func (p *Path) At(i int) geom.Vector2 {
	if i < 0 {
		i = 0
	}
	if i >= len(p.points) {
		i = len(p.points) - 1
	}
	return p.points[i]
}

// Advance returns the next index after i, wrapping to 0 when DoLoop is
// set. ok is false when the path has ended and does not loop.
func (p *Path) Advance(i int) (int, bool) {
	next := i + 1
	if next >= len(p.points) {
		if !p.doLoop {
			return i, false
		}
		next = 0
	}
	return next, true
}

// DoLoop reports whether the path wraps back to its first waypoint.
func (p *Path) DoLoop() bool { return p.doLoop }
