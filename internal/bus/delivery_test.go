package bus

import (
	"context"
	"errors"
	"testing"
)

type scriptedBridge struct {
	name    string
	target  string
	results map[string]ActionResult
	calls   []string
}

func (s *scriptedBridge) Name() string      { return s.name }
func (s *scriptedBridge) Targets() []string { return []string{s.target} }
func (s *scriptedBridge) DeliverAction(ctx context.Context, action Action) (ActionResult, error) {
	s.calls = append(s.calls, action.ID)
	return s.results[action.ID], nil
}

func TestProcessActionsSkipsAlreadyDelivered(t *testing.T) {
	p := testPaths(t)
	reg := NewRegistry()
	b := &scriptedBridge{name: "gh", target: "t1", results: map[string]ActionResult{
		"a1": {Success: true},
	}}
	if err := reg.Register(b); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := AppendAction(p, Action{ID: "a1", Target: ReplyTarget{Target: "t1"}}); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}

	cursor := &DispatcherCursor{}
	if err := ProcessActions(context.Background(), p, reg, cursor, nil); err != nil {
		t.Fatalf("ProcessActions first pass: %v", err)
	}
	if len(b.calls) != 1 {
		t.Fatalf("expected exactly one delivery call, got %d", len(b.calls))
	}
	if cursor.ActionsOffset == 0 {
		t.Fatal("offset should advance after a fully processed batch")
	}

	// Re-process the same record range (as if the dispatcher restarted
	// without persisting the cursor): already-delivered actions must not
	// be redelivered.
	cursor2 := &DispatcherCursor{}
	if err := ProcessActions(context.Background(), p, reg, cursor2, nil); err != nil {
		t.Fatalf("ProcessActions replay: %v", err)
	}
	if len(b.calls) != 1 {
		t.Fatalf("action was redelivered: calls = %v", b.calls)
	}
}

func TestProcessActionsHaltsBatchOnRetryable(t *testing.T) {
	p := testPaths(t)
	reg := NewRegistry()
	b := &scriptedBridge{name: "gh", target: "t1", results: map[string]ActionResult{
		"a1": {Success: false, Retryable: true, Err: errors.New("connection refused")},
		"a2": {Success: true},
	}}
	if err := reg.Register(b); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := AppendAction(p, Action{ID: "a1", Target: ReplyTarget{Target: "t1"}}); err != nil {
		t.Fatalf("AppendAction a1: %v", err)
	}
	if err := AppendAction(p, Action{ID: "a2", Target: ReplyTarget{Target: "t1"}}); err != nil {
		t.Fatalf("AppendAction a2: %v", err)
	}

	cursor := &DispatcherCursor{}
	if err := ProcessActions(context.Background(), p, reg, cursor, nil); err != nil {
		t.Fatalf("ProcessActions: %v", err)
	}
	if cursor.ActionsOffset != 0 {
		t.Fatalf("offset should not advance when the batch halts, got %d", cursor.ActionsOffset)
	}
	if len(b.calls) != 1 {
		t.Fatalf("a2 should not be attempted before a1 resolves, calls = %v", b.calls)
	}
}

func TestProcessActionsAdvancesPastNonRetryableFailure(t *testing.T) {
	p := testPaths(t)
	reg := NewRegistry()
	b := &scriptedBridge{name: "gh", target: "t1", results: map[string]ActionResult{
		"a1": {Success: false, Retryable: false, Err: errors.New("validation failed")},
	}}
	if err := reg.Register(b); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := AppendAction(p, Action{ID: "a1", Target: ReplyTarget{Target: "t1"}}); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}

	var logged []string
	cursor := &DispatcherCursor{}
	if err := ProcessActions(context.Background(), p, reg, cursor, func(msg string) { logged = append(logged, msg) }); err != nil {
		t.Fatalf("ProcessActions: %v", err)
	}
	if cursor.ActionsOffset == 0 {
		t.Fatal("offset should advance past a permanently failed action")
	}
	if len(logged) != 1 {
		t.Fatalf("expected one log line for the permanent failure, got %v", logged)
	}
}

func TestProcessActionsLogsUnclaimedTarget(t *testing.T) {
	p := testPaths(t)
	reg := NewRegistry()
	if err := AppendAction(p, Action{ID: "a1", Target: ReplyTarget{Target: "nobody"}}); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}
	var logged []string
	cursor := &DispatcherCursor{}
	if err := ProcessActions(context.Background(), p, reg, cursor, func(msg string) { logged = append(logged, msg) }); err != nil {
		t.Fatalf("ProcessActions: %v", err)
	}
	if cursor.ActionsOffset == 0 {
		t.Fatal("offset should still advance past an unclaimed-target action")
	}
	if len(logged) != 1 {
		t.Fatalf("expected one log line for the unclaimed target, got %v", logged)
	}
}

func TestIsRetryableHeuristic(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil error should not be retryable")
	}
	if !IsRetryable(errors.New("rate limit exceeded")) {
		t.Error("rate limit should be retryable")
	}
	if !IsRetryable(errors.New("dial tcp: connection refused")) {
		t.Error("connection refused should be retryable")
	}
	if IsRetryable(errors.New("invalid payload: missing field")) {
		t.Error("a validation error should not be retryable")
	}
}
