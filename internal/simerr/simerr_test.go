package simerr

import (
	"errors"
	"testing"
)

func TestConfigurationError_MessageIncludesPathWhenSet(t *testing.T) {
	err := &ConfigurationError{Path: "robots[0].model", Reason: "unknown model"}
	if got := err.Error(); got != `configuration error at robots[0].model: unknown model` {
		t.Errorf("Error() = %q", got)
	}
}

func TestConfigurationError_OmitsPathWhenEmpty(t *testing.T) {
	err := &ConfigurationError{Reason: "no such file"}
	if got := err.Error(); got != "configuration error: no such file" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrors_SupportErrorsAs(t *testing.T) {
	var target *TimeRegressionError
	err := error(&TimeRegressionError{Node: "r1", Current: 1, Next: 1})
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to match *TimeRegressionError")
	}
	if target.Node != "r1" {
		t.Errorf("Node = %q, want r1", target.Node)
	}
}
