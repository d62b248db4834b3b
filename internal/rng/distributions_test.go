package rng

import (
	"errors"
	"testing"

	"github.com/simba-sim/simba/internal/simerr"
)

func newStream(t *testing.T, seed int64, name string) *Stream {
	t.Helper()
	f := NewFactory()
	f.SetSeed(seed)
	s, err := f.Stream(name)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFixed_AlwaysReturnsSameValue(t *testing.T) {
	s := newStream(t, 1, "x")
	d := s.Fixed(3.5)
	for i := 0; i < 5; i++ {
		if d.Sample() != 3.5 {
			t.Fatalf("Fixed distribution drifted on sample %d", i)
		}
	}
}

func TestUniform_StaysInBounds(t *testing.T) {
	s := newStream(t, 1, "u")
	d := s.Uniform(-2, 2)
	for i := 0; i < 200; i++ {
		v := d.Sample()
		if v < -2 || v >= 2 {
			t.Fatalf("Uniform sample %v out of [-2,2)", v)
		}
	}
}

func TestBernoulli_ExtremesAreDeterministic(t *testing.T) {
	s := newStream(t, 1, "b")
	always1 := s.Bernoulli(1.0)
	for i := 0; i < 20; i++ {
		if always1.Sample() != 1 {
			t.Fatal("p=1 Bernoulli produced 0")
		}
	}
	s2 := newStream(t, 1, "b0")
	always0 := s2.Bernoulli(0.0)
	for i := 0; i < 20; i++ {
		if always0.Sample() != 0 {
			t.Fatal("p=0 Bernoulli produced 1")
		}
	}
}

func TestPoisson_NonNegativeIntegers(t *testing.T) {
	s := newStream(t, 1, "p")
	d := s.Poisson(3.0)
	for i := 0; i < 50; i++ {
		v := d.Sample()
		if v < 0 {
			t.Fatalf("Poisson sample negative: %v", v)
		}
		if v != float64(int(v)) {
			t.Fatalf("Poisson sample not integral: %v", v)
		}
	}
}

func TestExponential_NonNegative(t *testing.T) {
	s := newStream(t, 1, "e")
	d := s.Exponential(2.0)
	for i := 0; i < 50; i++ {
		if d.Sample() < 0 {
			t.Fatal("Exponential sample negative")
		}
	}
}

func TestNormalVector_ValidCovariance(t *testing.T) {
	s := newStream(t, 1, "nv")
	cov := [][]float64{
		{1.0, 0.0},
		{0.0, 4.0},
	}
	d, err := s.NormalVector([]float64{10, 20}, cov)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := d.SampleVector()
	if len(v) != 2 {
		t.Fatalf("expected 2-vector, got %d", len(v))
	}
}

func TestNormalVector_SingularButPSD_Accepted(t *testing.T) {
	s := newStream(t, 1, "nv0")
	// A zero-variance axis is a degenerate but valid PSD covariance.
	cov := [][]float64{
		{1.0, 0.0},
		{0.0, 0.0},
	}
	d, err := s.NormalVector([]float64{0, 5}, cov)
	if err != nil {
		t.Fatalf("unexpected error for singular PSD matrix: %v", err)
	}
	for i := 0; i < 10; i++ {
		v := d.SampleVector()
		if v[1] != 5 {
			t.Fatalf("zero-variance axis drifted: got %v want 5", v[1])
		}
	}
}

func TestNormalVector_AsymmetricRejected(t *testing.T) {
	s := newStream(t, 1, "nva")
	cov := [][]float64{
		{1.0, 2.0},
		{0.0, 1.0},
	}
	_, err := s.NormalVector([]float64{0, 0}, cov)
	var covErr *simerr.InvalidCovarianceError
	if !errors.As(err, &covErr) {
		t.Fatalf("expected InvalidCovarianceError, got %v", err)
	}
}

func TestNormalVector_NotPSDRejected(t *testing.T) {
	s := newStream(t, 1, "nvn")
	// Negative eigenvalue: not positive semi-definite.
	cov := [][]float64{
		{1.0, 2.0},
		{2.0, 1.0},
	}
	_, err := s.NormalVector([]float64{0, 0}, cov)
	var covErr *simerr.InvalidCovarianceError
	if !errors.As(err, &covErr) {
		t.Fatalf("expected InvalidCovarianceError, got %v", err)
	}
}
