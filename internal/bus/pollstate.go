package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// pollStatePath is the per-bridge inbound poll cursor, e.g. a "since"
// timestamp or external cursor — opaque to the bus itself (spec.md §6's
// on-disk layout, <bus>/state/bridge.<name>.json).
func pollStatePath(p Paths, bridgeName string) string {
	return filepath.Join(p.StateDir(), fmt.Sprintf("bridge.%s.json", bridgeName))
}

// LoadPollState reads an inbound bridge's persisted poll cursor, returning
// a null raw message if none has been recorded yet.
func LoadPollState(p Paths, bridgeName string) (json.RawMessage, error) {
	data, err := os.ReadFile(pollStatePath(p, bridgeName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bus: cannot read poll state for %s: %w", bridgeName, err)
	}
	return json.RawMessage(data), nil
}

// SavePollState atomically persists an inbound bridge's poll cursor.
func SavePollState(p Paths, bridgeName string, state json.RawMessage) error {
	if err := InitBusDir(p); err != nil {
		return err
	}
	if len(state) == 0 {
		state = json.RawMessage("null")
	}
	path := pollStatePath(p, bridgeName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, state, 0644); err != nil {
		return fmt.Errorf("bus: cannot write temp poll state for %s: %w", bridgeName, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("bus: cannot rename temp poll state for %s: %w", bridgeName, err)
	}
	return nil
}

// TickEvents polls every registered inbound bridge once, appending any new
// events to events.jsonl and persisting each bridge's poll cursor. Bridges
// are polled in Name() order for deterministic append ordering within a
// tick (spec.md §5's "events are appended in the order bridges are
// polled").
func TickEvents(ctx context.Context, p Paths, reg *Registry, onLog func(string)) error {
	inbound := reg.Inbound()
	sort.Slice(inbound, func(i, j int) bool { return inbound[i].Name() < inbound[j].Name() })

	for _, bridge := range inbound {
		state, err := LoadPollState(p, bridge.Name())
		if err != nil {
			if onLog != nil {
				onLog(fmt.Sprintf("bus: load poll state for %s: %v", bridge.Name(), err))
			}
			continue
		}
		events, newState, err := bridge.PollEvents(ctx, state)
		if err != nil {
			if onLog != nil {
				onLog(fmt.Sprintf("bus: poll %s: %v", bridge.Name(), err))
			}
			continue
		}
		for _, ev := range events {
			if err := AppendEvent(p, ev); err != nil {
				if onLog != nil {
					onLog(fmt.Sprintf("bus: append event from %s: %v", bridge.Name(), err))
				}
			}
		}
		if err := SavePollState(p, bridge.Name(), newState); err != nil {
			if onLog != nil {
				onLog(fmt.Sprintf("bus: save poll state for %s: %v", bridge.Name(), err))
			}
		}
	}
	return nil
}
