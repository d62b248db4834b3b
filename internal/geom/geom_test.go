package geom

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	d := Distance(Vector2{0, 0}, Vector2{3, 4})
	if math.Abs(d-5) > 1e-9 {
		t.Errorf("Distance = %v, want 5", d)
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{-3 * math.Pi, math.Pi},
	}
	for _, c := range cases {
		got := NormalizeAngle(c.in)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", c.in, got, c.want)
		}
		if got <= -math.Pi || got > math.Pi+1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v out of (-pi, pi]", c.in, got)
		}
	}
}

func TestWithinRange_ZeroMeansUnlimited(t *testing.T) {
	if !WithinRange(Vector2{0, 0}, Vector2{1000, 1000}, 0) {
		t.Error("range 0 should mean unlimited")
	}
}

func TestWithinRange_Bounded(t *testing.T) {
	a, b := Vector2{0, 0}, Vector2{1, 0}
	if !WithinRange(a, b, 1.0) {
		t.Error("distance 1 should satisfy range 1.0")
	}
	if WithinRange(a, b, 0.5) {
		t.Error("distance 1 should not satisfy range 0.5")
	}
}

func TestRect_Contains(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	if !r.Contains(Vector2{5, 5}) {
		t.Error("(5,5) should be inside")
	}
	if r.Contains(Vector2{11, 5}) {
		t.Error("(11,5) should be outside")
	}
	if !r.Contains(Vector2{10, 10}) {
		t.Error("boundary should be inside")
	}
}

func TestCircle_Contains(t *testing.T) {
	c := Circle{Center: Vector2{0, 0}, Radius: 2}
	if !c.Contains(Vector2{2, 0}) {
		t.Error("boundary point should be inside")
	}
	if c.Contains(Vector2{2.01, 0}) {
		t.Error("point just outside radius should not be inside")
	}
}
