// Package kernel implements the simulation kernel of spec §4.4: it owns
// the node registry, drives the global barrier-synchronous clock, and
// applies the scenario engine's spawn/kill occurrences between steps
// using a goroutine-per-node barrier round.
package kernel

import (
	"sort"
	"sync"

	"github.com/simba-sim/simba/internal/bus"
	"github.com/simba-sim/simba/internal/node"
)

// Template constructs a fresh node for a Spawn occurrence's model_name
// (spec §4.5). Concrete construction (wiring physics/sensors/estimators
// from configuration) is a builtin/simconfig concern; the kernel only
// needs a name-in, node-out seam.
type Template func(name string) (*node.Node, error)

// registry is the kernel-exclusive node population (spec §3 Ownership).
type registry struct {
	mu        sync.Mutex
	nodes     map[string]*node.Node
	order     []string
	templates map[string]Template
}

func newRegistry() *registry {
	return &registry{
		nodes:     make(map[string]*node.Node),
		templates: make(map[string]Template),
	}
}

func (r *registry) register(n *node.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[n.Name]; !exists {
		r.order = append(r.order, n.Name)
	}
	r.nodes[n.Name] = n
}

func (r *registry) registerTemplate(model string, tmpl Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[model] = tmpl
}

func (r *registry) templateFor(model string) (Template, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[model]
	return t, ok
}

func (r *registry) get(name string) (*node.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[name]
	return n, ok
}

// alive returns every currently-alive node in registration order, the
// order the kernel iterates for the "ask every node" step of spec §4.4.
func (r *registry) alive() []*node.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*node.Node, 0, len(r.order))
	for _, name := range r.order {
		if n := r.nodes[name]; n.Alive {
			out = append(out, n)
		}
	}
	return out
}

// empty reports whether the alive set is empty, one of the kernel's
// termination conditions (spec §4.4).
func (r *registry) empty() bool {
	return len(r.alive()) == 0
}

// snapshot freezes every registered node's bus.NodeInfo (dead nodes
// included, so a stale subscriber resolves to Alive=false rather than
// "not found") for the barrier round about to run (spec §4.4
// "Determinism with parallelism").
func (r *registry) snapshot() directorySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(directorySnapshot, len(r.nodes))
	for name, n := range r.nodes {
		snap[name] = n.Info()
	}
	return snap
}

// names returns every registered node name sorted alphabetically, for
// deterministic test assertions.
func (r *registry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}

// directorySnapshot implements bus.Directory over a frozen map.
type directorySnapshot map[string]bus.NodeInfo

func (d directorySnapshot) Lookup(name string) (bus.NodeInfo, bool) {
	info, ok := d[name]
	return info, ok
}
