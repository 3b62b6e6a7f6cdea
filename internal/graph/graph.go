package graph

import (
	"fmt"
	"reflect"
	"sync"
)

// Provider defines a node source that can be added to the graph.
type Provider interface {
	// GetServices returns every key the provider satisfies.
	GetServices() []NodeKey

	// GetDependencies returns the keys the provider needs when activated.
	GetDependencies() []NodeKey
}

// NodeKey uniquely identifies a node in the graph
type NodeKey struct {
	Type reflect.Type
	Key  any // for keyed services
}

func (k NodeKey) String() string {
	if k.Key != nil {
		return fmt.Sprintf("%v[%v]", k.Type, k.Key)
	}
	return fmt.Sprintf("%v", k.Type)
}

// DependencyGraph records the dependency edges between explicitly registered
// services so cycles can be reported before any resolution happens.
// Edges to keys no provider satisfies are kept; they simply have no outgoing
// edges, since a registration source may synthesize them later.
type DependencyGraph struct {
	mu    sync.RWMutex
	order []NodeKey
	edges map[NodeKey][]NodeKey
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edges: make(map[NodeKey][]NodeKey),
	}
}

// AddProvider adds edges from every service of provider to each of its dependencies.
func (g *DependencyGraph) AddProvider(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	deps := provider.GetDependencies()

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, key := range provider.GetServices() {
		g.ensure(key)
		for _, dep := range deps {
			g.ensure(dep)
			g.edges[key] = append(g.edges[key], dep)
		}
	}

	return nil
}

func (g *DependencyGraph) ensure(key NodeKey) {
	if _, exists := g.edges[key]; !exists {
		g.edges[key] = nil
		g.order = append(g.order, key)
	}
}

// Size returns the number of nodes in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// FindCycle returns the first cycle found, walking nodes in insertion order.
// The returned path starts and ends at the same node. It returns nil when the
// graph is acyclic.
func (g *DependencyGraph) FindCycle() []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeKey]int, len(g.order))
	var stack []NodeKey

	var visit func(key NodeKey) []NodeKey
	visit = func(key NodeKey) []NodeKey {
		color[key] = gray
		stack = append(stack, key)

		for _, dep := range g.edges[key] {
			switch color[dep] {
			case gray:
				for i, k := range stack {
					if k == dep {
						cycle := append([]NodeKey{}, stack[i:]...)
						return append(cycle, dep)
					}
				}
			case white:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[key] = black
		return nil
	}

	for _, key := range g.order {
		if color[key] == white {
			if cycle := visit(key); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}
