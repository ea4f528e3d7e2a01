package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Bridge is the common capability every bridge implements: a stable,
// registry-unique name. Concrete bridges additionally implement
// InboundBridge, OutboundBridge, or both (FullBridge) — spec.md §4.5
// favors this capability-tagged shape over an open class hierarchy
// (DESIGN NOTES §9).
type Bridge interface {
	Name() string
}

// InboundBridge polls an external system and converts its items to bus
// Events. State is an opaque, bridge-owned JSON blob persisted by the
// caller between polls.
type InboundBridge interface {
	Bridge
	PollEvents(ctx context.Context, state json.RawMessage) (events []Event, newState json.RawMessage, err error)
}

// OutboundBridge delivers Actions to an external system. Targets declares
// the set of routing targets this bridge exclusively owns.
type OutboundBridge interface {
	Bridge
	Targets() []string
	DeliverAction(ctx context.Context, action Action) (ActionResult, error)
}

// FullBridge is both inbound and outbound.
type FullBridge interface {
	InboundBridge
	OutboundBridge
}

// Registry is the exclusive owner of each claimed target; Register
// validates unique names and non-overlapping targets between bridges with
// outbound capability.
type Registry struct {
	mu          sync.Mutex
	bridges     map[string]Bridge
	targetOwner map[string]string // target -> bridge name
}

// NewRegistry returns an empty bridge registry.
func NewRegistry() *Registry {
	return &Registry{
		bridges:     make(map[string]Bridge),
		targetOwner: make(map[string]string),
	}
}

// Register adds b to the registry. Fails if the name is already taken, or
// if b is outbound and any of its targets is already claimed by another
// bridge.
func (r *Registry) Register(b Bridge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Name()
	if _, exists := r.bridges[name]; exists {
		return fmt.Errorf("bus: bridge %q is already registered", name)
	}

	if ob, ok := b.(OutboundBridge); ok {
		for _, target := range ob.Targets() {
			if owner, claimed := r.targetOwner[target]; claimed {
				return fmt.Errorf("bus: target %q already claimed by bridge %q", target, owner)
			}
		}
		for _, target := range ob.Targets() {
			r.targetOwner[target] = name
		}
	}

	r.bridges[name] = b
	return nil
}

// Get returns the bridge registered under name.
func (r *Registry) Get(name string) (Bridge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bridges[name]
	return b, ok
}

// ForTarget returns the outbound bridge that owns target, if any.
func (r *Registry) ForTarget(target string) (OutboundBridge, bool) {
	r.mu.Lock()
	name, claimed := r.targetOwner[target]
	r.mu.Unlock()
	if !claimed {
		return nil, false
	}
	b, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	ob, ok := b.(OutboundBridge)
	return ob, ok
}

// Inbound returns every registered bridge that implements InboundBridge, in
// registration order is not guaranteed — callers that need a stable poll
// order should sort by Name().
func (r *Registry) Inbound() []InboundBridge {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []InboundBridge
	for _, b := range r.bridges {
		if ib, ok := b.(InboundBridge); ok {
			result = append(result, ib)
		}
	}
	return result
}
