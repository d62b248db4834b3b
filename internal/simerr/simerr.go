// Package simerr defines the typed error kinds used across the simulator,
// following spec §7. Each kind is a distinct type so callers can use
// errors.As to branch on it, and each carries enough context (node name,
// field path, offending value) to produce the path-qualified messages the
// error handling design calls for.
package simerr

import "fmt"

// ConfigurationError covers unknown fields, invalid enum tags, missing
// required fields, schema/version mismatch, and file-not-found for a
// referenced path. Fatal during setup.
type ConfigurationError struct {
	Path   string // dotted path into the config document, e.g. "robots[0].sensors[1].type"
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error at %s: %s", e.Path, e.Reason)
}

// SeedMissingError is raised when a component requests a random stream
// before the randomness factory has been initialized with a seed.
type SeedMissingError struct {
	Stream string
}

func (e *SeedMissingError) Error() string {
	return fmt.Sprintf("random stream %q requested before factory seed was set", e.Stream)
}

// InvalidDistributionError is raised for a malformed distribution
// definition (unknown kind, mismatched parameter arity).
type InvalidDistributionError struct {
	Stream string
	Reason string
}

func (e *InvalidDistributionError) Error() string {
	return fmt.Sprintf("invalid distribution for stream %q: %s", e.Stream, e.Reason)
}

// InvalidCovarianceError is raised when a Normal distribution's covariance
// matrix is not symmetric positive semi-definite.
type InvalidCovarianceError struct {
	Stream string
}

func (e *InvalidCovarianceError) Error() string {
	return fmt.Sprintf("covariance matrix for stream %q is not symmetric positive semi-definite", e.Stream)
}

// TimeRegressionError indicates a plug-in module reported a next activity
// time that does not strictly advance past the current instant.
type TimeRegressionError struct {
	Node    string
	Current float64
	Next    float64
}

func (e *TimeRegressionError) Error() string {
	return fmt.Sprintf("node %q reported next_time_step=%g which does not strictly exceed current time %g", e.Node, e.Next, e.Current)
}

// MessageTypeMismatchError is raised (and logged, not propagated) when a
// message handler cannot parse an envelope's payload.
type MessageTypeMismatchError struct {
	Handler string
	Reason  string
}

func (e *MessageTypeMismatchError) Error() string {
	return fmt.Sprintf("handler %q rejected message payload: %s", e.Handler, e.Reason)
}

// UnreachableDestinationError is raised (as a warning) when a publish's
// send_to names a node that is not alive at publication time.
type UnreachableDestinationError struct {
	Destination string
}

func (e *UnreachableDestinationError) Error() string {
	return fmt.Sprintf("destination node %q is not alive", e.Destination)
}

// ScenarioBindingMissingError is raised at validation time when an event
// references an occurrence variable its trigger never binds.
type ScenarioBindingMissingError struct {
	Variable string
	Event    string
}

func (e *ScenarioBindingMissingError) Error() string {
	return fmt.Sprintf("event %q references unbound variable %q", e.Event, e.Variable)
}
