// Package agent implements the uniform execute/interactive/resume contract
// over the external coding-assistant CLIs (spec.md §4.4), generalizing the
// teacher's Claude-only internal/llm package to six variants.
package agent

import (
	"context"

	"github.com/daydemir/ralphd/internal/statestore"
)

// Kind identifies which assistant implementation to invoke; aliases the
// canonical enum already owned by statestore.PlanState.Agent.
type Kind = statestore.Agent

const (
	KindCodex    = statestore.AgentCodex
	KindOpencode = statestore.AgentOpencode
	KindClaude   = statestore.AgentClaude
	KindGemini   = statestore.AgentGemini
	KindAmp      = statestore.AgentAmp
	KindManual   = statestore.AgentManual
)

// Mode is the execution strategy chosen for a given Execute call.
type Mode string

const (
	ModeTmux        Mode = "tmux"
	ModeDetached    Mode = "detached"
	ModeInteractive Mode = "interactive"
)

// ExecuteOptions parametrizes a single invocation of an assistant.
type ExecuteOptions struct {
	Cwd       string
	Prompt    string
	Tmux      string // non-empty selects the attached-multiplexer mode
	Model     string
	SessionID string // resume target, if any
	Purpose   string // "worker" | "designer" | "triage" | "hook"
}

// ExecutionResult describes how to observe an invocation's progress and
// completion.
type ExecutionResult struct {
	Mode         Mode
	Pid          int
	TmuxSession  string
	SessionID    string
	LogPath      string
	ExitCodePath string
	PromptPath   string
}

// CompletionOutcome is the result of polling a detached/tmux invocation for
// completion.
type CompletionOutcome string

const (
	CompletionFound       CompletionOutcome = "found"
	CompletionTimedOut    CompletionOutcome = "timedOut"
	CompletionSessionDied CompletionOutcome = "sessionDied"
)

// CompletionResult is returned by WaitForCompletion.
type CompletionResult struct {
	Outcome  CompletionOutcome
	ExitCode int
}

// Adapter is the polymorphic interface over the capability set
// {execute, interactive, resume?}.
type Adapter interface {
	Name() Kind
	// Execute spawns the assistant in tmux or detached mode (chosen by
	// whether opts.Tmux is set) and returns immediately with a handle to
	// poll for completion.
	Execute(ctx context.Context, opts ExecuteOptions) (*ExecutionResult, error)
	// Interactive runs the assistant in the foreground, inheriting stdio,
	// and blocks until it exits.
	Interactive(ctx context.Context, opts ExecuteOptions) error
	// SupportsResume reports whether this assistant can resume a prior
	// session id.
	SupportsResume() bool
}

// ErrResumeUnsupported is the error for an assistant with no resume syntax
// (the manual variant). No adapter in this package returns it; ResumeArgs
// reports that case as (nil, false).
var ErrResumeUnsupported = &resumeUnsupportedError{}

type resumeUnsupportedError struct{}

func (*resumeUnsupportedError) Error() string { return "agent: this assistant does not support resume" }
