// Package simlog wires logrus into the simulator the way the original
// implementation's env_logger formatter did: every log line is tagged with
// the current simulation time and the emitting node's name, and a scope
// filter can include or exclude specific node names from the output.
package simlog

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ScopeFilter mirrors the log.excluded_nodes / log.included_nodes config
// fields: when Included is non-empty only those scopes (plus "simulator")
// are emitted; Excluded scopes are always dropped.
type ScopeFilter struct {
	Included map[string]struct{}
	Excluded map[string]struct{}
}

// NewScopeFilter builds a filter from the raw name lists in a config file.
func NewScopeFilter(included, excluded []string) *ScopeFilter {
	f := &ScopeFilter{Included: map[string]struct{}{}, Excluded: map[string]struct{}{}}
	for _, n := range included {
		f.Included[n] = struct{}{}
	}
	if len(f.Included) > 0 {
		f.Included["simulator"] = struct{}{}
	}
	for _, n := range excluded {
		f.Excluded[n] = struct{}{}
	}
	return f
}

func (f *ScopeFilter) allows(scope string) bool {
	if _, excluded := f.Excluded[scope]; excluded {
		return false
	}
	if len(f.Included) == 0 {
		return true
	}
	_, ok := f.Included[scope]
	return ok
}

// Clock is anything that reports the current simulation time for the
// timestamp prefix on log lines.
type Clock interface {
	Now() float64
}

// ScopeHook is a logrus.Hook that stamps entries with the current
// simulation time and blanks the message of entries whose "scope" field
// (the node name) is filtered out.
type ScopeHook struct {
	mu     sync.RWMutex
	filter *ScopeFilter
	clock  Clock
}

// NewScopeHook constructs a hook bound to clock and filter. filter may be
// nil, in which case every scope is allowed through.
func NewScopeHook(clock Clock, filter *ScopeFilter) *ScopeHook {
	return &ScopeHook{clock: clock, filter: filter}
}

// SetFilter swaps the active scope filter, e.g. after a config reload.
func (h *ScopeHook) SetFilter(filter *ScopeFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.filter = filter
}

// Levels implements logrus.Hook.
func (h *ScopeHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *ScopeHook) Fire(entry *logrus.Entry) error {
	h.mu.RLock()
	filter := h.filter
	h.mu.RUnlock()

	scope, _ := entry.Data["scope"].(string)
	if scope == "" {
		scope = "simulator"
	}
	if filter != nil && !filter.allows(scope) {
		// A hook cannot veto an entry outright; blank the message instead so
		// the formatter emits nothing of substance for a filtered scope.
		entry.Message = ""
		return nil
	}
	if h.clock != nil {
		entry.Message = fmt.Sprintf("[t=%.4f][%s] %s", h.clock.Now(), scope, entry.Message)
	} else {
		entry.Message = fmt.Sprintf("[%s] %s", scope, entry.Message)
	}
	return nil
}

// WithScope returns a logrus.Entry pre-tagged with the given node/scope
// name, for use by node-local components.
func WithScope(scope string) *logrus.Entry {
	return logrus.WithField("scope", scope)
}
