// Package review implements the pluggable review-feedback ingress
// described in spec.md §4.7: a local (review.md) provider and a platform
// (bridge-delegating) provider, both converted to bus events by a common
// adapter.
package review

import (
	"context"
	"encoding/json"
)

// Item is one piece of review feedback, regardless of provider.
type Item struct {
	ID   string
	Text string
	File string
	Line int
	Side string // "left" or "right"; empty when the provider has no inline position
}

// RespondRequest is passed to a Responder to post a reply against the item
// (or the review thread generally, if RelatedItemID is empty).
type RespondRequest struct {
	Message       string
	RelatedItemID string
}

// Provider is the minimal review-feedback source contract: a name and a
// poll step. State is an opaque, provider-owned JSON blob the caller
// persists between polls, the same shape as bus.InboundBridge's state.
type Provider interface {
	Name() string
	Poll(ctx context.Context, state json.RawMessage) (items []Item, newState json.RawMessage, err error)
}

// Responder is an optional capability: providers that can post a reply
// back into the review thread implement it in addition to Provider.
type Responder interface {
	Respond(ctx context.Context, req RespondRequest) error
}
