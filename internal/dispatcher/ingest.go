package dispatcher

import (
	"time"

	"github.com/daydemir/ralphd/internal/statestore"
)

// ingestInboxPlans scans <local>/inbox for plans not yet tracked in
// state.json and registers each as a fresh queued PlanState (spec.md
// §4.8's "new plan files dropped into the inbox are picked up on the next
// tick"). A plan's agent comes from its inbox metadata, falling back to
// the workspace's configured default.
func (d *Dispatcher) ingestInboxPlans(st *statestore.State) error {
	entries, err := statestore.ListInbox(d.Paths)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if _, tracked := st.Plans[e.PlanID]; tracked {
			continue
		}
		if e.Meta.Hidden {
			continue
		}

		now := time.Now().UTC()
		st.AddPlan(&statestore.PlanState{
			PlanID:    e.PlanID,
			Status:    statestore.StatusQueued,
			Agent:     d.agentFor(e),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return nil
}

// agentFor resolves an inbox entry's assistant, preferring an explicit
// "agent" key in its metadata over the workspace default.
func (d *Dispatcher) agentFor(e statestore.InboxEntry) statestore.Agent {
	if e.Meta.Metadata != nil {
		if raw, ok := e.Meta.Metadata["agent"]; ok {
			if name, ok := raw.(string); ok && name != "" {
				return statestore.Agent(name)
			}
		}
	}
	return statestore.Agent(d.Config.DefaultAgent())
}
