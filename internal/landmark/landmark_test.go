package landmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/simba-sim/simba/internal/geom"
)

func TestLoad_ParsesLandmarks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	content := "landmarks:\n  - id: L1\n    x: 1\n    y: 2\n    theta: 0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	l, ok := m.Get("L1")
	if !ok || l.X != 1 || l.Y != 2 {
		t.Fatalf("Get(L1) = %+v, %v", l, ok)
	}
}

func TestVisible_PointLandmarkNeverOccludes(t *testing.T) {
	m := New([]Landmark{
		{ID: "point", X: 5, Y: 0},
		{ID: "far", X: 10, Y: 0},
	})
	target, _ := m.Get("far")
	if !m.Visible(geom.Vector2{}, target) {
		t.Error("a point landmark must never occlude")
	}
}

func TestVisible_PlanarLandmarkOccludesLowerOneBehindIt(t *testing.T) {
	m := New([]Landmark{
		{ID: "wall", X: 5, Y: 0, Width: 2, Height: 2},
		{ID: "behind", X: 10, Y: 0, Height: 1},
	})
	target, _ := m.Get("behind")
	if m.Visible(geom.Vector2{}, target) {
		t.Error("expected the planar landmark to occlude the shorter one behind it")
	}
}

func TestVisible_XRayBypassesOcclusion(t *testing.T) {
	m := New([]Landmark{
		{ID: "wall", X: 5, Y: 0, Width: 2, Height: 2, XRay: true},
		{ID: "behind", X: 10, Y: 0, Height: 1},
	})
	target, _ := m.Get("behind")
	if !m.Visible(geom.Vector2{}, target) {
		t.Error("an xray landmark must not occlude")
	}
}

func TestVisible_TallerLandmarkNotBehindDoesNotOcclude(t *testing.T) {
	m := New([]Landmark{
		{ID: "wall", X: 5, Y: 8, Width: 2, Height: 2},
		{ID: "ahead", X: 10, Y: 0, Height: 1},
	})
	target, _ := m.Get("ahead")
	if !m.Visible(geom.Vector2{}, target) {
		t.Error("a landmark off the line of sight must not occlude")
	}
}
