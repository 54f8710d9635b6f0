package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/wavedash/internal/registry"
)

// Callback declares one handler and the properties it touches.
type Callback struct {
	ID       string
	Outputs  []registry.Ref
	Triggers []registry.Ref
	State    []registry.Ref
	Handler  Handler
}

// Lookup answers whether a property is registered. *registry.Registry
// satisfies it.
type Lookup interface {
	Has(ref registry.Ref) bool
}

type node struct {
	cb    Callback
	index int // registration order
	rank  int // topological position, set by Build
	next  []*node
}

// Graph is the callback dependency graph of one session.
type Graph struct {
	mu     sync.RWMutex
	lookup Lookup
	sealed bool

	nodes    []*node
	byID     map[string]*node
	owner    map[registry.Ref]*node
	triggers map[registry.Ref][]*node
	order    []*node
}

// New returns an empty graph validating refs against lookup.
func New(lookup Lookup) *Graph {
	return &Graph{
		lookup:   lookup,
		byID:     make(map[string]*node),
		owner:    make(map[registry.Ref]*node),
		triggers: make(map[registry.Ref][]*node),
	}
}

// Register adds a callback. It fails with GraphSealedError after Build,
// InvalidCallbackError for a malformed declaration,
// DuplicateOutputOwnershipError when an output is already owned, and
// UnknownPropertyError when any ref is not registered. A failed Register
// leaves the graph unchanged.
func (g *Graph) Register(cb Callback) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sealed {
		return &GraphSealedError{Op: "register " + cb.ID}
	}
	if err := g.validate(cb); err != nil {
		return err
	}

	for _, out := range cb.Outputs {
		if owner, taken := g.owner[out]; taken {
			return &DuplicateOutputOwnershipError{Ref: out, Owner: owner.cb.ID, Callback: cb.ID}
		}
	}
	roles := []struct {
		name string
		refs []registry.Ref
	}{
		{"output", cb.Outputs},
		{"trigger", cb.Triggers},
		{"state", cb.State},
	}
	for _, role := range roles {
		for _, ref := range role.refs {
			if !g.lookup.Has(ref) {
				return &UnknownPropertyError{Callback: cb.ID, Role: role.name, Ref: ref}
			}
		}
	}

	n := &node{cb: copyCallback(cb), index: len(g.nodes)}
	g.nodes = append(g.nodes, n)
	g.byID[cb.ID] = n
	for _, out := range cb.Outputs {
		g.owner[out] = n
	}
	for _, in := range cb.Triggers {
		g.triggers[in] = append(g.triggers[in], n)
	}
	return nil
}

func (g *Graph) validate(cb Callback) error {
	invalid := func(format string, args ...any) error {
		return &InvalidCallbackError{Callback: cb.ID, Message: fmt.Sprintf(format, args...)}
	}
	switch {
	case cb.ID == "":
		return invalid("id is empty")
	case g.byID[cb.ID] != nil:
		return invalid("id already registered")
	case len(cb.Outputs) == 0:
		return invalid("no outputs declared")
	case len(cb.Triggers) == 0:
		return invalid("no triggers declared")
	case cb.Handler == nil:
		return invalid("handler is nil")
	}

	for _, refs := range [][]registry.Ref{cb.Outputs, cb.Triggers, cb.State} {
		seen := make(map[registry.Ref]bool, len(refs))
		for _, ref := range refs {
			if seen[ref] {
				return invalid("%s listed twice", ref)
			}
			seen[ref] = true
		}
	}
	return nil
}

func copyCallback(cb Callback) Callback {
	return Callback{
		ID:       cb.ID,
		Outputs:  append([]registry.Ref(nil), cb.Outputs...),
		Triggers: append([]registry.Ref(nil), cb.Triggers...),
		State:    append([]registry.Ref(nil), cb.State...),
		Handler:  cb.Handler,
	}
}

// Build derives the dependency edges, rejects cycles and seals the graph.
// Calling Build twice fails with GraphSealedError.
func (g *Graph) Build() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sealed {
		return &GraphSealedError{Op: "build"}
	}

	for _, n := range g.nodes {
		n.next = nil
		linked := make(map[*node]bool)
		for _, out := range n.cb.Outputs {
			for _, m := range g.triggers[out] {
				if !linked[m] {
					linked[m] = true
					n.next = append(n.next, m)
				}
			}
		}
	}

	if cycle := findCycle(g.nodes); cycle != nil {
		return &CyclicDependencyError{Cycle: cycle}
	}

	g.order = topoOrder(g.nodes)
	for rank, n := range g.order {
		n.rank = rank
	}
	g.sealed = true
	return nil
}

// Sealed reports whether Build has succeeded.
func (g *Graph) Sealed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sealed
}

// Callback returns the declaration for id.
func (g *Graph) Callback(id string) (Callback, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.byID[id]
	if !ok {
		return Callback{}, false
	}
	return n.cb, true
}

// Callbacks returns every declaration in registration order.
func (g *Graph) Callbacks() []Callback {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Callback, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.cb
	}
	return out
}

// Order returns callback ids in topological order. It is empty before Build.
func (g *Graph) Order() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return ids(g.order)
}

// Owner returns the callback that writes ref.
func (g *Graph) Owner(ref registry.Ref) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.owner[ref]
	if !ok {
		return "", false
	}
	return n.cb.ID, true
}

// Downstream returns the callbacks triggered by id's outputs, in rank order.
func (g *Graph) Downstream(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.byID[id]
	if !ok {
		return nil
	}
	next := append([]*node(nil), n.next...)
	sortByRank(next)
	return ids(next)
}

// Seeds returns the callbacks with at least one trigger in changed, in rank
// order.
func (g *Graph) Seeds(changed []registry.Ref) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := make(map[*node]bool)
	for _, ref := range changed {
		for _, n := range g.triggers[ref] {
			set[n] = true
		}
	}
	return ids(sortedSet(set))
}

// Affected returns seeds plus every callback reachable from them, in rank
// order. Unknown ids are ignored.
func (g *Graph) Affected(seeds []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := make(map[*node]bool)
	var stack []*node
	for _, id := range seeds {
		if n, ok := g.byID[id]; ok && !set[n] {
			set[n] = true
			stack = append(stack, n)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range n.next {
			if !set[m] {
				set[m] = true
				stack = append(stack, m)
			}
		}
	}
	return ids(sortedSet(set))
}

func sortedSet(set map[*node]bool) []*node {
	out := make([]*node, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sortByRank(out)
	return out
}

func sortByRank(nodes []*node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].rank != nodes[j].rank {
			return nodes[i].rank < nodes[j].rank
		}
		return nodes[i].index < nodes[j].index
	})
}

func ids(nodes []*node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.cb.ID
	}
	return out
}
