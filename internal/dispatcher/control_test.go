package dispatcher

import (
	"context"
	"testing"

	"github.com/daydemir/ralphd/internal/statestore"
)

func seedDispatcherState(t *testing.T, d *Dispatcher, ps *statestore.PlanState) {
	t.Helper()
	st := statestore.NewState()
	st.AddPlan(ps)
	if err := statestore.Save(d.Paths, st); err != nil {
		t.Fatal(err)
	}
}

func TestStopMarksBlockedAndClearsSubprocess(t *testing.T) {
	d := newTestDispatcherForAdvance(t)
	seedDispatcherState(t, d, &statestore.PlanState{
		PlanID: "sample-plan",
		Status: statestore.StatusActive,
		Pid:    0, // no real subprocess to kill in this test
	})

	if err := d.Stop(context.Background(), "sample-plan"); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	st, err := statestore.Load(d.Paths)
	if err != nil {
		t.Fatal(err)
	}
	ps := st.Plans["sample-plan"]
	if !ps.Blocked {
		t.Errorf("expected Blocked=true")
	}
	if ps.HasSubprocess() {
		t.Errorf("expected subprocess handle cleared")
	}
}

func TestUnblockClearsBlockedAndResetsRetries(t *testing.T) {
	d := newTestDispatcherForAdvance(t)
	seedDispatcherState(t, d, &statestore.PlanState{
		PlanID:         "sample-plan",
		Status:         statestore.StatusActive,
		Blocked:        true,
		LastError:      "no progress on item 2 (attempt 3)",
		LastTodoIndex:  2,
		TodoRetryCount: 3,
	})

	if err := d.Unblock(context.Background(), "sample-plan"); err != nil {
		t.Fatalf("Unblock: %v", err)
	}

	st, err := statestore.Load(d.Paths)
	if err != nil {
		t.Fatal(err)
	}
	ps := st.Plans["sample-plan"]
	if ps.Blocked {
		t.Errorf("expected Blocked=false")
	}
	if ps.TodoRetryCount != 0 {
		t.Errorf("TodoRetryCount = %d, want 0", ps.TodoRetryCount)
	}
	if ps.Status != statestore.StatusActive {
		t.Errorf("Status = %q, want unchanged active", ps.Status)
	}
}

func TestStopUnknownPlanErrors(t *testing.T) {
	d := newTestDispatcherForAdvance(t)
	seedDispatcherState(t, d, &statestore.PlanState{PlanID: "sample-plan", Status: statestore.StatusActive})

	if err := d.Stop(context.Background(), "does-not-exist"); err == nil {
		t.Fatalf("expected error for unknown plan identifier")
	}
}
