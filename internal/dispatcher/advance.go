package dispatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/daydemir/ralphd/internal/agent"
	"github.com/daydemir/ralphd/internal/bus"
	"github.com/daydemir/ralphd/internal/errlog"
	"github.com/daydemir/ralphd/internal/hooks"
	"github.com/daydemir/ralphd/internal/plan"
	"github.com/daydemir/ralphd/internal/statestore"
	"github.com/daydemir/ralphd/internal/utils"
	"github.com/daydemir/ralphd/internal/workspace"
)

// planFile is the filename a plan is copied to inside its worktree's local
// directory (spec.md §6's on-disk layout).
const planFile = "plan.md"

// maxTodoRetries is the number of consecutive no-progress attempts at the
// same checklist item before the plan is blocked (spec.md §4.8).
const maxTodoRetries = 3

// tickPlan is one plan's slice of a tick: poll its worktree bus, run
// onEvent hooks scoped to it, advance its state machine by one step, then
// flush any actions the hooks emitted.
func (d *Dispatcher) tickPlan(ctx context.Context, st *statestore.State, ps *statestore.PlanState) {
	if ps.Status == statestore.StatusQueued {
		d.activate(ctx, st, ps)
		return
	}

	local := d.worktreeLocal(ps)
	var runAgent hooks.RunAgentFunc
	if ps.Worktree != "" {
		runAgent = hooks.NewRunAgent(ps.Worktree, ps.Agent, d.CompletionTimeout)
	}

	d.tickPlanBus(ctx, ps, local, runAgent)
	if ps.Blocked {
		return
	}

	d.advanceOne(ctx, ps, local, runAgent)
}

// worktreeLocal returns the repo-local config dir inside a plan's
// worktree, the root every per-plan file (plan.md, bus, plugin-state,
// errors.jsonl) hangs off.
func (d *Dispatcher) worktreeLocal(ps *statestore.PlanState) string {
	return filepath.Join(ps.Worktree, statestore.LocalDirName)
}

func (d *Dispatcher) planPath(ps *statestore.PlanState) string {
	return filepath.Join(d.worktreeLocal(ps), planFile)
}

// recordErr mirrors a plan-scoped error into <worktree>/<local>/errors.jsonl
// (spec.md §7) alongside the ps.LastError assignment callers already make.
// local is empty for the handful of activation failures that occur before a
// worktree exists; those have nowhere to record to and are skipped.
func (d *Dispatcher) recordErr(ps *statestore.PlanState, local, stage string, err error) {
	if local == "" || err == nil {
		return
	}
	if recErr := errlog.New(local).Record(ps.PlanID, stage, err); recErr != nil {
		d.log("dispatcher: plan %s: errlog record: %v", ps.PlanID, recErr)
	}
}

// activate turns a queued inbox plan into an active one: cut a branch,
// materialize a worktree, copy the plan file in, and drop the inbox
// entry. A failure to list the inbox or create the worktree aborts
// activation and leaves the plan queued (not blocked) with LastError set;
// a plan whose inbox entry is already gone is blocked. Failures after the
// worktree exists (copying the plan, removing the inbox entry) are also
// recorded in the worktree's error log.
func (d *Dispatcher) activate(ctx context.Context, st *statestore.State, ps *statestore.PlanState) {
	entries, err := statestore.ListInbox(d.Paths)
	if err != nil {
		ps.LastError = "activate: list inbox: " + err.Error()
		return
	}
	var entry *statestore.InboxEntry
	for i := range entries {
		if entries[i].PlanID == ps.PlanID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		// Tracked in state.json but the inbox files are already gone
		// (e.g. a prior activation died after RemoveInboxEntry but before
		// the state save): nothing left to activate from.
		ps.LastError = "activate: no inbox entry for " + ps.PlanID
		ps.Blocked = true
		return
	}

	branch := utils.Slugify(ps.PlanID)
	result, err := workspace.CreateWorktree(ctx, d.RepoRoot, d.Config.WorktreesDir, branch, d.Config.BaseBranch, "")
	if err != nil {
		ps.LastError = "activate: " + err.Error()
		return
	}

	ps.Worktree = result.WorktreePath
	ps.Branch = result.Branch
	ps.BaseBranch = d.Config.BaseBranch
	ps.PlanRelpath = filepath.Join(statestore.LocalDirName, planFile)

	if err := plan.CopyInto(entry.MDPath, d.planPath(ps)); err != nil {
		ps.LastError = "activate: copy plan: " + err.Error()
		d.recordErr(ps, d.worktreeLocal(ps), "activate.copyPlan", err)
		ps.Worktree = ""
		ps.Branch = ""
		return
	}

	if err := statestore.RemoveInboxEntry(*entry); err != nil {
		ps.LastError = "activate: remove inbox entry: " + err.Error()
		d.recordErr(ps, d.worktreeLocal(ps), "activate.removeInboxEntry", err)
		return
	}

	ps.Status = statestore.StatusActive
	ps.LastError = ""
	ps.UpdatedAt = time.Now().UTC()
}

// advanceOne performs the status=active/review state-machine step of
// spec.md §4.8. Activation (status=queued) is handled by tickPlan before
// this is reached; status=done is filtered out by the caller in Tick.
func (d *Dispatcher) advanceOne(ctx context.Context, ps *statestore.PlanState, local string, runAgent hooks.RunAgentFunc) {
	switch ps.Status {
	case statestore.StatusReview:
		d.advanceReview(ctx, ps, local, runAgent)
	default:
		d.advanceActive(ctx, ps, local, runAgent)
	}
}

func (d *Dispatcher) advanceActive(ctx context.Context, ps *statestore.PlanState, local string, runAgent hooks.RunAgentFunc) {
	path := d.planPath(ps)
	p, err := plan.ParsePlan(path)
	if err != nil {
		ps.Blocked = true
		ps.LastError = "parse plan: " + err.Error()
		d.recordErr(ps, local, "advanceActive.parsePlan", err)
		return
	}

	if len(p.Todos) == 0 {
		ps.Blocked = true
		ps.LastError = "zero TODO items"
		d.recordErr(ps, local, "advanceActive.zeroTodos", fmt.Errorf("zero TODO items"))
		return
	}

	// findNextUnchecked==none means no item carries the literal unchecked
	// marker — every item is either done or explicitly [b]. That splits
	// into "all clean" (finish) and "some still blocked" (block).
	if plan.FindNextUnchecked(p) == nil {
		if plan.HasBlockedMarker(p) {
			ps.Status = statestore.StatusBlocked
			ps.Blocked = true
			ps.LastError = "all items resolved but a [b] marker remains"
			d.recordErr(ps, local, "advanceActive.blockedMarker", fmt.Errorf("%s", ps.LastError))
			return
		}
		d.finishPlan(ctx, ps, local, runAgent, path)
		return
	}

	// At least one unchecked item exists somewhere. Checklist items run
	// strictly in file order (spec.md §5), so the item that actually
	// governs this step is the first one not yet done — which may be an
	// earlier [b] item blocking everything behind it.
	head := plan.HeadTodo(p)
	if head.Blocked() {
		ps.Status = statestore.StatusBlocked
		ps.Blocked = true
		ps.LastError = fmt.Sprintf("checklist item %d is marked blocked", head.Index)
		d.recordErr(ps, local, "advanceActive.headBlocked", fmt.Errorf("%s", ps.LastError))
		return
	}

	d.runTodo(ctx, ps, local, runAgent, path, head)
}

// finishPlan handles the "all items clean done" branch: run beforeFinish,
// and either remain active (the hook added work) or commit and transition
// to review.
func (d *Dispatcher) finishPlan(ctx context.Context, ps *statestore.PlanState, local string, runAgent hooks.RunAgentFunc, path string) {
	hctx := d.hookContext(ps, local, runAgent)

	text, err := plan.ReadRaw(path)
	if err != nil {
		ps.Blocked = true
		ps.LastError = "finish: read plan: " + err.Error()
		d.recordErr(ps, local, "finishPlan.readPlan", err)
		return
	}
	updated, err := d.Hooks.RunPlanHooks(ctx, hooks.PointBeforeFinish, hctx, text)
	if err != nil {
		ps.Blocked = true
		ps.LastError = err.Error()
		d.recordErr(ps, local, "finishPlan.beforeFinish", err)
		return
	}
	if updated != text {
		if err := plan.WriteRaw(path, updated); err != nil {
			ps.Blocked = true
			ps.LastError = "finish: write plan: " + err.Error()
			d.recordErr(ps, local, "finishPlan.writePlan", err)
			return
		}
	}

	reparsed, err := plan.ParsePlan(path)
	if err != nil {
		ps.Blocked = true
		ps.LastError = "finish: reparse plan: " + err.Error()
		d.recordErr(ps, local, "finishPlan.reparsePlan", err)
		return
	}
	if plan.FindNextUnchecked(reparsed) != nil {
		// beforeFinish materialized new work; stay active for the next tick.
		return
	}

	if _, err := workspace.CommitAll(ps.Worktree, fmt.Sprintf("ralphd: finish plan %s", ps.PlanID)); err != nil {
		ps.Blocked = true
		ps.LastError = "finish: commit: " + err.Error()
		d.recordErr(ps, local, "finishPlan.commit", err)
		return
	}

	if err := workspace.ForcePushWithLease(ctx, ps.Worktree, "", ps.Branch); err != nil {
		// A failed push leaves the branch committed locally but not on the
		// remote; review providers that operate off the remote branch won't
		// see it yet, so this blocks rather than silently dropping to review.
		ps.Blocked = true
		ps.LastError = "finish: push: " + err.Error()
		d.recordErr(ps, local, "finishPlan.push", err)
		return
	}

	if _, err := d.Hooks.RunPlanHooks(ctx, hooks.PointAfterFinish, hctx, updated); err != nil {
		ps.Blocked = true
		ps.LastError = err.Error()
		d.recordErr(ps, local, "finishPlan.afterFinish", err)
		return
	}

	ps.Status = statestore.StatusReview
	ps.LastError = ""
	ps.UpdatedAt = time.Now().UTC()
}

// runTodo handles the "otherwise" branch: beforeTodo, invoke the agent,
// afterTodo, then compare the head item to decide success vs. retry.
func (d *Dispatcher) runTodo(ctx context.Context, ps *statestore.PlanState, local string, runAgent hooks.RunAgentFunc, path string, head *plan.TODO) {
	hctx := d.hookContext(ps, local, runAgent)
	hctx.TodoCompleted = ""

	text, err := plan.ReadRaw(path)
	if err != nil {
		ps.Blocked = true
		ps.LastError = "todo: read plan: " + err.Error()
		d.recordErr(ps, local, "runTodo.readPlan", err)
		return
	}
	text, err = d.Hooks.RunPlanHooks(ctx, hooks.PointBeforeTodo, hctx, text)
	if err != nil {
		ps.Blocked = true
		ps.LastError = err.Error()
		d.recordErr(ps, local, "runTodo.beforeTodo", err)
		return
	}
	if err := plan.WriteRaw(path, text); err != nil {
		ps.Blocked = true
		ps.LastError = "todo: write plan: " + err.Error()
		d.recordErr(ps, local, "runTodo.writePlan", err)
		return
	}

	adapter, err := agent.Get(ps.Agent)
	if err != nil {
		ps.Blocked = true
		ps.LastError = "todo: " + err.Error()
		d.recordErr(ps, local, "runTodo.getAgent", err)
		return
	}
	result, err := adapter.Execute(ctx, agent.ExecuteOptions{
		Cwd:     ps.Worktree,
		Prompt:  renderTodoPrompt(path, head),
		Purpose: "worker",
	})
	if err != nil {
		ps.Blocked = true
		ps.LastError = "todo: execute: " + err.Error()
		d.recordErr(ps, local, "runTodo.execute", err)
		return
	}
	ps.TmuxSession = result.TmuxSession
	ps.Pid = result.Pid

	outcome, err := agent.WaitForCompletion(ctx, result, d.CompletionTimeout)
	ps.ClearSubprocess()
	if err != nil {
		ps.Blocked = true
		ps.LastError = "todo: wait: " + err.Error()
		d.recordErr(ps, local, "runTodo.wait", err)
		return
	}
	if outcome.Outcome != agent.CompletionFound {
		ps.Blocked = true
		ps.LastError = "todo: agent " + string(outcome.Outcome)
		d.recordErr(ps, local, "runTodo.outcome", fmt.Errorf("%s", ps.LastError))
		return
	}

	hctx.TodoCompleted = head.Text
	afterText, err := plan.ReadRaw(path)
	if err != nil {
		ps.Blocked = true
		ps.LastError = "todo: reread plan: " + err.Error()
		d.recordErr(ps, local, "runTodo.rereadPlan", err)
		return
	}
	afterText, err = d.Hooks.RunPlanHooks(ctx, hooks.PointAfterTodo, hctx, afterText)
	if err != nil {
		ps.Blocked = true
		ps.LastError = err.Error()
		d.recordErr(ps, local, "runTodo.afterTodo", err)
		return
	}
	if err := plan.WriteRaw(path, afterText); err != nil {
		ps.Blocked = true
		ps.LastError = "todo: write plan: " + err.Error()
		d.recordErr(ps, local, "runTodo.writePlan", err)
		return
	}

	reparsed, err := plan.ParsePlan(path)
	if err != nil {
		ps.Blocked = true
		ps.LastError = "todo: reparse plan: " + err.Error()
		d.recordErr(ps, local, "runTodo.reparsePlan", err)
		return
	}
	if head.Index >= len(reparsed.Todos) {
		ps.Blocked = true
		ps.LastError = "todo: checklist shrank under the agent"
		d.recordErr(ps, local, "runTodo.checklistShrank", fmt.Errorf("%s", ps.LastError))
		return
	}
	current := reparsed.Todos[head.Index]

	if current.Done() {
		ps.ResetRetries(head.Index)
		ps.LastError = ""
		if _, err := workspace.CommitAll(ps.Worktree, fmt.Sprintf("ralphd: %s", current.Text)); err != nil {
			ps.Blocked = true
			ps.LastError = "todo: commit: " + err.Error()
			d.recordErr(ps, local, "runTodo.commit", err)
		}
		return
	}

	if ps.LastTodoIndex != head.Index {
		ps.LastTodoIndex = head.Index
		ps.TodoRetryCount = 0
	}
	ps.TodoRetryCount++
	ps.LastError = fmt.Sprintf("no progress on item %d (attempt %d)", head.Index, ps.TodoRetryCount)
	if ps.TodoRetryCount >= maxTodoRetries {
		ps.Blocked = true
		d.recordErr(ps, local, "runTodo.retriesExhausted", fmt.Errorf("%s", ps.LastError))
	}
}

// advanceReview polls nothing directly (tickPlanBus already polled the
// review provider and onEvent hooks into this plan's bus); it only
// re-checks the plan for newly materialized unchecked items, which a
// triage onEvent hook is expected to have added via RunAgent.
func (d *Dispatcher) advanceReview(ctx context.Context, ps *statestore.PlanState, local string, runAgent hooks.RunAgentFunc) {
	p, err := plan.ParsePlan(d.planPath(ps))
	if err != nil {
		ps.Blocked = true
		ps.LastError = "review: parse plan: " + err.Error()
		d.recordErr(ps, local, "advanceReview.parsePlan", err)
		return
	}
	if plan.FindNextUnchecked(p) != nil {
		ps.Status = statestore.StatusActive
		ps.LastError = ""
		ps.UpdatedAt = time.Now().UTC()
	}
}

func (d *Dispatcher) hookContext(ps *statestore.PlanState, local string, runAgent hooks.RunAgentFunc) *hooks.Context {
	worktreeBus := bus.NewPaths(local)
	emit := func(a bus.Action) {
		if err := bus.AppendAction(worktreeBus, a); err != nil {
			d.log("dispatcher: plan %s: emit action: %v", ps.PlanID, err)
		}
	}
	hctx := hooks.NewContext(d.RepoRoot, ps.Worktree, ps.PlanID, hooks.NewStateStore(local), runAgent, emit)
	hctx.ChangeRequestRef = ps.ChangeRequestRef
	return hctx
}

// renderTodoPrompt builds the per-item prompt handed to the agent adapter,
// pointing it at the plan file and naming the one checklist item it is
// expected to mark done.
func renderTodoPrompt(planPath string, head *plan.TODO) string {
	return fmt.Sprintf(`Work the plan at %s.

Complete exactly the next unchecked checklist item:

- [ ] %s

When you have finished it, edit the plan file and change its marker to
"- [x] %s". If it cannot be completed, mark it "- [b] %s" and explain why
in the Progress Log section, rather than leaving it unchecked.

Begin now.`, planPath, head.Text, head.Text, head.Text)
}
