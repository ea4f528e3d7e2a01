package bus

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeBridge struct {
	name    string
	targets []string
}

func (f *fakeBridge) Name() string     { return f.name }
func (f *fakeBridge) Targets() []string { return f.targets }
func (f *fakeBridge) PollEvents(ctx context.Context, state json.RawMessage) ([]Event, json.RawMessage, error) {
	return nil, state, nil
}
func (f *fakeBridge) DeliverAction(ctx context.Context, action Action) (ActionResult, error) {
	return ActionResult{Success: true}, nil
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	b := &fakeBridge{name: "github", targets: []string{"github:owner/repo"}}
	if err := r.Register(b); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(&fakeBridge{name: "github", targets: []string{"github:other/repo"}}); err == nil {
		t.Fatal("expected error registering a duplicate name")
	}
}

func TestRegistryRejectsOverlappingTargets(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeBridge{name: "a", targets: []string{"shared"}}); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	if err := r.Register(&fakeBridge{name: "b", targets: []string{"shared"}}); err == nil {
		t.Fatal("expected error registering an overlapping target")
	}
}

func TestRegistryForTargetAndInbound(t *testing.T) {
	r := NewRegistry()
	b := &fakeBridge{name: "github", targets: []string{"github:owner/repo#1"}}
	if err := r.Register(b); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ob, ok := r.ForTarget("github:owner/repo#1")
	if !ok || ob.(*fakeBridge).name != "github" {
		t.Fatalf("ForTarget = %v, %v", ob, ok)
	}
	if _, ok := r.ForTarget("nobody-claims-this"); ok {
		t.Fatal("unclaimed target should not resolve")
	}
	inbound := r.Inbound()
	if len(inbound) != 1 || inbound[0].Name() != "github" {
		t.Fatalf("Inbound() = %+v", inbound)
	}
}
