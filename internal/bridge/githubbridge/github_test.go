package githubbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/daydemir/ralphd/internal/bus"
)

func newTestBridge(t *testing.T, handler http.HandlerFunc) (*Bridge, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	b := New(context.Background(), "fake-token", "acme", "widgets")
	base, err := url.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	b.client.BaseURL = base
	t.Cleanup(server.Close)
	return b, server
}

func TestNameAndTargets(t *testing.T) {
	b := New(context.Background(), "tok", "acme", "widgets")
	if b.Name() != "github" {
		t.Errorf("Name() = %q", b.Name())
	}
	targets := b.Targets()
	if len(targets) != 1 || targets[0] != "github:acme/widgets" {
		t.Errorf("Targets() = %v", targets)
	}
}

func TestDeliverActionComment(t *testing.T) {
	var gotBody string
	b, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Body string `json:"body"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotBody = body.Body
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"html_url":"https://github.com/acme/widgets/issues/5#comment-1"}`))
	})

	action := bus.Action{
		ID:     "act-1",
		Target: bus.ReplyTarget{Target: "github:acme/widgets", Token: "5"},
		Payload: map[string]any{
			"type": bus.PayloadComment,
			"body": "hello from the dispatcher",
		},
	}
	result, err := b.DeliverAction(context.Background(), action)
	if err != nil {
		t.Fatalf("DeliverAction: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if gotBody != "hello from the dispatcher" {
		t.Errorf("posted body = %q", gotBody)
	}
	if len(result.ExternalArtifactIDs) != 1 {
		t.Errorf("expected one artifact id, got %v", result.ExternalArtifactIDs)
	}
}

func TestDeliverActionUnrecognizedPayloadIsNonRetryable(t *testing.T) {
	b, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no HTTP call should be made for an unrecognized payload type")
	})
	action := bus.Action{
		ID:      "act-2",
		Target:  bus.ReplyTarget{Target: "github:acme/widgets", Token: "5"},
		Payload: map[string]any{"type": "unknown_thing"},
	}
	result, err := b.DeliverAction(context.Background(), action)
	if err != nil {
		t.Fatalf("DeliverAction: %v", err)
	}
	if result.Success || result.Retryable {
		t.Errorf("result = %+v, want non-retryable failure", result)
	}
}

func TestDeliverActionMalformedTokenIsNonRetryable(t *testing.T) {
	b, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no HTTP call should be made for a malformed token")
	})
	action := bus.Action{
		ID:      "act-3",
		Target:  bus.ReplyTarget{Target: "github:acme/widgets", Token: "not-a-number"},
		Payload: map[string]any{"type": bus.PayloadComment, "body": "x"},
	}
	result, err := b.DeliverAction(context.Background(), action)
	if err != nil {
		t.Fatalf("DeliverAction: %v", err)
	}
	if result.Success || result.Retryable {
		t.Errorf("result = %+v, want non-retryable failure", result)
	}
}

func TestDeliverActionRateLimitIsRetryable(t *testing.T) {
	b, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Reset", "9999999999")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})
	action := bus.Action{
		ID:      "act-4",
		Target:  bus.ReplyTarget{Target: "github:acme/widgets", Token: "5"},
		Payload: map[string]any{"type": bus.PayloadComment, "body": "x"},
	}
	result, err := b.DeliverAction(context.Background(), action)
	if err != nil {
		t.Fatalf("DeliverAction: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure on rate limit response")
	}
	if !result.Retryable {
		t.Error("rate-limited delivery should be retryable")
	}
}
