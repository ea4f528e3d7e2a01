package review

import (
	"context"
	"encoding/json"

	"github.com/daydemir/ralphd/internal/bus"
)

// PlatformProvider delegates polling to the configured platform bridge's
// inbound capability, converting each bus.Event to a review Item. It is
// the default provider for backwards compatibility with workspaces that
// only configured a bridge (spec.md §4.7).
type PlatformProvider struct {
	bridge bus.InboundBridge
}

// NewPlatformProvider wraps bridge as a review Provider.
func NewPlatformProvider(bridge bus.InboundBridge) *PlatformProvider {
	return &PlatformProvider{bridge: bridge}
}

func (p *PlatformProvider) Name() string { return "platform" }

func (p *PlatformProvider) Poll(ctx context.Context, state json.RawMessage) ([]Item, json.RawMessage, error) {
	events, newState, err := p.bridge.PollEvents(ctx, state)
	if err != nil {
		return nil, state, err
	}
	items := make([]Item, 0, len(events))
	for _, ev := range events {
		item := Item{ID: ev.ID, Text: ev.Body}
		if ev.Context != nil {
			if file, ok := ev.Context["file"].(string); ok {
				item.File = file
			}
			if line, ok := ev.Context["line"].(float64); ok {
				item.Line = int(line)
			}
			if side, ok := ev.Context["side"].(string); ok {
				item.Side = side
			}
		}
		items = append(items, item)
	}
	return items, newState, nil
}
