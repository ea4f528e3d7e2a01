// Package statestore persists the dispatcher's durable PlanState map and
// owns the repo-local process lock.
package statestore

import (
	"sort"
	"time"
)

// Status is the scheduler-visible lifecycle state of a plan.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusBlocked   Status = "blocked"
	StatusReview    Status = "review"
	StatusReviewing Status = "reviewing"
	StatusTriaging  Status = "triaging"
	StatusDone      Status = "done"
)

// ValidStatuses is the exhaustive list of allowed plan statuses.
var ValidStatuses = []Status{
	StatusDraft, StatusQueued, StatusActive, StatusBlocked,
	StatusReview, StatusReviewing, StatusTriaging, StatusDone,
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Agent identifies which assistant implementation backs a plan.
type Agent string

const (
	AgentCodex    Agent = "codex"
	AgentOpencode Agent = "opencode"
	AgentClaude   Agent = "claude"
	AgentGemini   Agent = "gemini"
	AgentAmp      Agent = "amp"
	AgentManual   Agent = "manual"
)

// PlanState is the unit the scheduler reads and mutates. It is the only
// record format the state store is allowed to overwrite in bulk; workspace
// contents are owned elsewhere.
type PlanState struct {
	PlanID string `json:"planId"`

	Status  Status `json:"status"`
	Agent   Agent  `json:"agent"`
	Blocked bool   `json:"blocked"`

	Worktree    string `json:"worktree,omitempty"`
	Branch      string `json:"branch,omitempty"`
	BaseBranch  string `json:"baseBranch,omitempty"`
	PlanRelpath string `json:"planRelpath,omitempty"`

	ChangeRequestRef string `json:"changeRequestRef,omitempty"`

	TmuxSession string `json:"tmuxSession,omitempty"`
	Pid         int    `json:"pid,omitempty"`

	LastTodoIndex  int `json:"lastTodoIndex"`
	TodoRetryCount int `json:"todoRetryCount"`

	LastError    string     `json:"lastError,omitempty"`
	LastPolledAt *time.Time `json:"lastPolledAt,omitempty"`

	PollOnce      bool `json:"pollOnce,omitempty"`
	PendingReview bool `json:"pendingReview,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasSubprocess reports whether a subprocess handle is currently recorded.
// Spec invariant: tmuxSession XOR pid, or neither.
func (p *PlanState) HasSubprocess() bool {
	return p.TmuxSession != "" || p.Pid != 0
}

// ClearSubprocess drops the subprocess identity, used by "take over"/"stop".
func (p *PlanState) ClearSubprocess() {
	p.TmuxSession = ""
	p.Pid = 0
}

// ResetRetries clears the todo retry counter and records the new head index.
// Called whenever the head checklist item advances, or on unblock.
func (p *PlanState) ResetRetries(newHeadIndex int) {
	p.LastTodoIndex = newHeadIndex
	p.TodoRetryCount = 0
}

// State is the full persisted document at <local>/state.json.
type State struct {
	ControlCursor int                   `json:"controlCursor"`
	Plans         map[string]*PlanState `json:"plans"`

	// PlanOrder records the sequence plan ids were first added to Plans,
	// since a Go map (and a re-marshaled JSON object) carries no ordering
	// of its own. The dispatcher ticks plans in this order (spec.md §4.8).
	PlanOrder []string `json:"planOrder"`

	// legacyInboxFolded records whether Load folded an old top-level
	// "inbox" map into Plans. Only the flag is kept; never written back.
	legacyInboxFolded bool
}

// LegacyInboxFolded reports whether State.Load folded a legacy top-level
// "inbox" map into Plans on this load.
func (s *State) LegacyInboxFolded() bool {
	return s.legacyInboxFolded
}

// NewState returns an empty, ready-to-save State.
func NewState() *State {
	return &State{Plans: make(map[string]*PlanState)}
}

// AddPlan inserts ps into Plans, recording its arrival in PlanOrder. A
// planId already present is left at its original position.
func (s *State) AddPlan(ps *PlanState) {
	if _, exists := s.Plans[ps.PlanID]; !exists {
		s.PlanOrder = append(s.PlanOrder, ps.PlanID)
	}
	s.Plans[ps.PlanID] = ps
}

// Ordered returns every plan in PlanOrder, appending (in sorted order) any
// plan present in Plans but missing from PlanOrder — e.g. one added by an
// older build, or by hand-editing state.json.
func (s *State) Ordered() []*PlanState {
	seen := make(map[string]bool, len(s.PlanOrder))
	result := make([]*PlanState, 0, len(s.Plans))
	for _, id := range s.PlanOrder {
		if ps, ok := s.Plans[id]; ok {
			result = append(result, ps)
			seen[id] = true
		}
	}
	var stray []string
	for id := range s.Plans {
		if !seen[id] {
			stray = append(stray, id)
		}
	}
	sort.Strings(stray)
	for _, id := range stray {
		result = append(result, s.Plans[id])
	}
	return result
}

// Lock is the contents of the repo-local <local>/lock file.
type Lock struct {
	Pid       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}
