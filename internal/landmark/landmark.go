// Package landmark loads the landmark map file of spec §6 and answers
// line-of-sight visibility queries against it, including the planar
// occlusion rule inherited from original_source's sensor fault/filter
// directories (SPEC_FULL.md Supplemented Features).
package landmark

import (
	"bytes"
	"math"
	"os"

	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/simerr"
	"gopkg.in/yaml.v3"
)

// Landmark is one entry of the map file. Width/Height of zero marks a
// point landmark, which never occludes anything; a positive Width and
// Height marks a planar landmark, which occludes lower landmarks behind
// it unless XRay is set (spec §6).
type Landmark struct {
	ID     string  `yaml:"id"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Theta  float64 `yaml:"theta"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	XRay   bool    `yaml:"xray"`
}

func (l Landmark) point() geom.Vector2 { return geom.Vector2{X: l.X, Y: l.Y} }
func (l Landmark) isPlanar() bool      { return l.Width > 0 && l.Height > 0 }
func (l Landmark) elevation() float64  { return l.Height }

type document struct {
	Landmarks []Landmark `yaml:"landmarks"`
}

// Map is a loaded landmark set, indexed by id.
type Map struct {
	byID map[string]Landmark
	all  []Landmark
}

// Load reads and parses a landmark map file.
func Load(path string) (*Map, error) {
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
	return New(doc.Landmarks), nil
}

// New builds a Map from an already-parsed landmark list, for tests and
// programmatic scenario construction.
func New(landmarks []Landmark) *Map {
	m := &Map{byID: make(map[string]Landmark, len(landmarks)), all: landmarks}
	for _, l := range landmarks {
		m.byID[l.ID] = l
	}
	return m
}

// Get looks up a landmark by id.
func (m *Map) Get(id string) (Landmark, bool) {
	l, ok := m.byID[id]
	return l, ok
}

// All returns every landmark in file order.
func (m *Map) All() []Landmark {
	return append([]Landmark(nil), m.all...)
}

// Visible reports whether target is unoccluded as seen from observer:
// point landmarks never occlude; a planar landmark strictly between
// observer and target, at an elevation at or above target's, occludes it
// unless it is marked XRay (spec §6).
func (m *Map) Visible(observer geom.Vector2, target Landmark) bool {
	targetDist := geom.Distance(observer, target.point())
	for _, l := range m.all {
		if l.ID == target.ID || !l.isPlanar() || l.XRay {
			continue
		}
		if l.elevation() < target.elevation() {
			continue
		}
		occluderDist := geom.Distance(observer, l.point())
		if occluderDist >= targetDist {
			continue
		}
		if isBetween(observer, target.point(), l.point()) {
			return false
		}
	}
	return true
}

// isBetween reports whether p lies close enough to the segment a-b to be
// treated as blocking the line of sight between them.
func isBetween(a, b, p geom.Vector2) bool {
	const corridor = 0.5

	abx, aby := b.X-a.X, b.Y-a.Y
	length2 := abx*abx + aby*aby
	if length2 == 0 {
		return geom.Distance(a, p) < corridor
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / length2
	if t < 0 || t > 1 {
		return false
	}
	projX, projY := a.X+t*abx, a.Y+t*aby
	dist := math.Hypot(p.X-projX, p.Y-projY)
	return dist < corridor
}
