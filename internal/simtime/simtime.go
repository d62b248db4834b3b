// Package simtime provides the monotonic simulation clock primitives shared
// by the kernel, bus, and node packages: a fixed-precision time type and the
// rounding rule that keeps floating point drift from breaking determinism.
package simtime

import "math"

// Epsilon is the fixed rounding precision applied to every simulation time
// value.
const Epsilon = 1e-6

// Infinity represents "no further activity scheduled".
const Infinity = math.MaxFloat64

// Time is a rounded, monotonic non-negative simulation instant.
type Time float64

// Round snaps t to the fixed Epsilon precision so that repeated additions
// of the same step size never accumulate floating point drift that would
// otherwise break the strictly-non-decreasing ordering invariant.
func Round(t float64) Time {
	return Time(math.Round(t/Epsilon) * Epsilon)
}

// Add returns t+d, rounded to Epsilon precision.
func (t Time) Add(d float64) Time {
	return Round(float64(t) + d)
}

// After reports whether t is strictly later than other, past rounding.
func (t Time) After(other Time) bool {
	return float64(t) > float64(other)+Epsilon/2
}

// AtOrAfter reports whether t is later than or equal to other, past rounding.
func (t Time) AtOrAfter(other Time) bool {
	return !other.After(t)
}

// Equal reports whether t and other round to the same instant.
func (t Time) Equal(other Time) bool {
	return math.Abs(float64(t)-float64(other)) < Epsilon
}

// Min returns the earlier of a and b.
func Min(a, b Time) Time {
	if a.After(b) {
		return b
	}
	return a
}
