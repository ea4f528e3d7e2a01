package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DeliveryRecord marks one Action as having been delivered by a bridge.
type DeliveryRecord struct {
	DeliveredAt         string   `json:"deliveredAt"`
	ExternalArtifactIDs []string `json:"externalArtifactIds,omitempty"`
}

// DeliveryState is a bridge's idempotency ledger: actionId -> record. It is
// persisted at <bus>/state/bridge.<name>.actions.json so a re-delivered
// batch (spec.md's at-least-once guarantee) never double-applies an action
// a bridge already carried out.
type DeliveryState struct {
	Delivered map[string]DeliveryRecord `json:"delivered"`
}

func deliveryStatePath(p Paths, bridgeName string) string {
	return filepath.Join(p.StateDir(), fmt.Sprintf("bridge.%s.actions.json", bridgeName))
}

// LoadDeliveryState reads a bridge's idempotency ledger, returning an empty
// one if it has never delivered anything yet.
func LoadDeliveryState(p Paths, bridgeName string) (*DeliveryState, error) {
	data, err := os.ReadFile(deliveryStatePath(p, bridgeName))
	if err != nil {
		if os.IsNotExist(err) {
			return &DeliveryState{Delivered: make(map[string]DeliveryRecord)}, nil
		}
		return nil, fmt.Errorf("bus: cannot read delivery state for %s: %w", bridgeName, err)
	}
	var s DeliveryState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("bus: cannot decode delivery state for %s: %w", bridgeName, err)
	}
	if s.Delivered == nil {
		s.Delivered = make(map[string]DeliveryRecord)
	}
	return &s, nil
}

// SaveDeliveryState writes the ledger atomically via temp+rename.
func SaveDeliveryState(p Paths, bridgeName string, s *DeliveryState) error {
	if err := InitBusDir(p); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("bus: cannot marshal delivery state for %s: %w", bridgeName, err)
	}
	path := deliveryStatePath(p, bridgeName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("bus: cannot write temp delivery state for %s: %w", bridgeName, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("bus: cannot rename temp delivery state for %s: %w", bridgeName, err)
	}
	return nil
}

// retryableMarkers are substrings in an error's text that indicate the
// failure is transient and worth retrying on the next tick, per spec.md
// §4.5's "rate-limit markers, connection-refused, timeout" heuristic.
var retryableMarkers = []string{
	"rate limit",
	"429",
	"connection refused",
	"timeout",
	"timed out",
	"deadline exceeded",
	"temporarily unavailable",
	"503",
	"502",
}

// IsRetryable classifies err using the transient-failure heuristic. A nil
// error is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ProcessActions drains actions.jsonl starting at cursor.ActionsOffset,
// routing each to the OutboundBridge that owns its target. The routing
// contract (spec.md §4.5):
//
//  1. No bridge claims the target: log and treat as processed (there is
//     nothing to retry toward).
//  2. The action was already delivered (present in that bridge's
//     DeliveryState): skip it, already idempotent.
//  3. Delivery succeeds: record it in the bridge's DeliveryState.
//  4. Delivery fails with Retryable=true: halt the whole batch without
//     advancing cursor.ActionsOffset past it, so the next tick re-reads
//     from the same point (earlier successes in this batch are safely
//     skipped next time via step 2).
//  5. Delivery fails with Retryable=false: log and treat as processed.
//
// onLog, if non-nil, receives a human-readable line for cases 1 and 5.
func ProcessActions(ctx context.Context, p Paths, reg *Registry, cursor *DispatcherCursor, onLog func(string)) error {
	actions, recs, newOffset, err := readActionsWithRecords(p, cursor.ActionsOffset)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return nil
	}
	_ = recs

	states := make(map[string]*DeliveryState)
	stateFor := func(name string) (*DeliveryState, error) {
		if s, ok := states[name]; ok {
			return s, nil
		}
		s, err := LoadDeliveryState(p, name)
		if err != nil {
			return nil, err
		}
		states[name] = s
		return s, nil
	}

	for _, action := range actions {
		bridge, ok := reg.ForTarget(action.Target.Target)
		if !ok {
			if onLog != nil {
				onLog(fmt.Sprintf("bus: no bridge claims target %q, dropping action %s", action.Target.Target, action.ID))
			}
			continue
		}

		state, err := stateFor(bridge.Name())
		if err != nil {
			return err
		}
		if _, already := state.Delivered[action.ID]; already {
			continue
		}

		result, deliverErr := bridge.DeliverAction(ctx, action)
		if deliverErr != nil && result.Err == nil {
			result.Err = deliverErr
		}

		if result.Success {
			state.Delivered[action.ID] = DeliveryRecord{
				DeliveredAt:         time.Now().UTC().Format(time.RFC3339Nano),
				ExternalArtifactIDs: result.ExternalArtifactIDs,
			}
			if err := SaveDeliveryState(p, bridge.Name(), state); err != nil {
				return err
			}
			continue
		}

		if result.Retryable {
			// Halt without advancing the cursor; persist whatever
			// delivery state we've already recorded this batch.
			for name, s := range states {
				if err := SaveDeliveryState(p, name, s); err != nil {
					return err
				}
			}
			return nil
		}

		if onLog != nil {
			onLog(fmt.Sprintf("bus: action %s delivery failed permanently: %v", action.ID, result.Err))
		}
	}

	for name, s := range states {
		if err := SaveDeliveryState(p, name, s); err != nil {
			return err
		}
	}
	cursor.ActionsOffset = newOffset
	return nil
}

// readActionsWithRecords is ReadActions plus the raw Record slice, kept
// internal since callers outside this package only need the Action view.
func readActionsWithRecords(p Paths, sinceOffset int64) ([]Action, []Record, int64, error) {
	recs, newOffset, err := ReadSlice(p.ActionsPath(), sinceOffset)
	if err != nil {
		return nil, nil, sinceOffset, err
	}
	actions := make([]Action, 0, len(recs))
	for _, r := range recs {
		if r.Kind != KindAction {
			continue
		}
		var ac Action
		if err := json.Unmarshal(r.Data, &ac); err != nil {
			continue
		}
		actions = append(actions, ac)
	}
	return actions, recs, newOffset, nil
}
