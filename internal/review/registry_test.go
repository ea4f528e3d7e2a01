package review

import (
	"context"
	"encoding/json"
	"testing"
)

type stubProvider struct{ name string }

func (s stubProvider) Name() string { return s.name }
func (s stubProvider) Poll(ctx context.Context, state json.RawMessage) ([]Item, json.RawMessage, error) {
	return nil, state, nil
}

func TestRegistryResolveDefaultsToPlatform(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubProvider{name: "platform"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\"): %v", err)
	}
	if p.Name() != "platform" {
		t.Errorf("Resolve(\"\") = %q, want platform", p.Name())
	}
}

func TestRegistryResolveUnknownErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("nope"); err == nil {
		t.Fatal("expected error resolving an unregistered provider")
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubProvider{name: "local"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(stubProvider{name: "local"}); err == nil {
		t.Fatal("expected error on duplicate name")
	}
}

func TestToEventShape(t *testing.T) {
	ev := ToEvent("local", Item{ID: "abc123", Text: "fix this", File: "f.go", Line: 5, Side: "right"})
	if ev.Source != "review:local" || ev.Type != "review_feedback" {
		t.Fatalf("ev = %+v", ev)
	}
	if ev.Context["file"] != "f.go" || ev.Context["line"] != 5 {
		t.Fatalf("ev.Context = %+v", ev.Context)
	}
}
