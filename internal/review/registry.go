package review

import (
	"fmt"
	"sync"

	"github.com/daydemir/ralphd/internal/bus"
)

// DefaultProviderName is used when a workspace's config does not name a
// review provider explicitly (spec.md §4.7: "default is the platform
// provider for backwards compatibility").
const DefaultProviderName = "platform"

// Registry is a small name -> Provider lookup; it intentionally has none
// of bus.Registry's target-exclusivity machinery since review providers
// are mutually exclusive by configuration, not by claimed targets.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry returns an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p, failing if its name is already taken.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name()]; exists {
		return fmt.Errorf("review: provider %q is already registered", p.Name())
	}
	r.providers[p.Name()] = p
	return nil
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[name]
	return p, ok
}

// Resolve returns the configured provider, falling back to
// DefaultProviderName when name is empty.
func (r *Registry) Resolve(name string) (Provider, error) {
	if name == "" {
		name = DefaultProviderName
	}
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("review: no provider registered as %q", name)
	}
	return p, nil
}

// ToEvent converts a review Item into the bus Event a bridged adapter
// feeds into the same triage pipeline as platform bridge events (spec.md
// §4.7: "A bridged adapter converts each ReviewItem to a bus Event with
// source review:<providerName> and type review_feedback").
func ToEvent(providerName string, item Item) bus.Event {
	ctx := map[string]any{}
	if item.File != "" {
		ctx["file"] = item.File
	}
	if item.Line != 0 {
		ctx["line"] = item.Line
	}
	if item.Side != "" {
		ctx["side"] = item.Side
	}
	if len(ctx) == 0 {
		ctx = nil
	}
	return bus.Event{
		ID:       fmt.Sprintf("review-%s-%s", providerName, item.ID),
		Source:   "review:" + providerName,
		Type:     "review_feedback",
		Severity: bus.SeverityInfo,
		Title:    item.Text,
		Body:     item.Text,
		Context:  ctx,
	}
}
