package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// genericAdapter implements Adapter for the five subprocess-backed
// variants, parametrized by binary resolution and CLI argument building.
// This mirrors the teacher's internal/llm/claude.go shape (resolveBinary +
// buildArgs + exec.CommandContext) generalized over all six assistants
// instead of special-casing Claude.
type genericAdapter struct {
	kind          Kind
	binaryNames   []string // candidates to search PATH + fallback dirs for
	buildArgs     func(opts ExecuteOptions) []string
	supportResume bool
}

func (a *genericAdapter) Name() Kind { return a.kind }

func (a *genericAdapter) SupportsResume() bool { return a.supportResume }

func (a *genericAdapter) Execute(ctx context.Context, opts ExecuteOptions) (*ExecutionResult, error) {
	binary, err := resolveBinaryPath(a.binaryNames)
	if err != nil {
		return nil, err
	}
	if _, err := materializePrompt(opts.Cwd, opts.Prompt); err != nil {
		return nil, err
	}
	args := a.buildArgs(opts)

	if opts.Tmux != "" {
		return spawnTmux(ctx, opts.Cwd, opts.Tmux, binary, args)
	}
	return spawnDetached(ctx, opts.Cwd, binary, args)
}

func (a *genericAdapter) Interactive(ctx context.Context, opts ExecuteOptions) error {
	binary, err := resolveBinaryPath(a.binaryNames)
	if err != nil {
		return err
	}
	if _, err := materializePrompt(opts.Cwd, opts.Prompt); err != nil {
		return err
	}
	args := a.buildArgs(opts)
	return runInteractive(ctx, opts.Cwd, binary, args)
}

// resolveBinaryPath searches PATH, then a few conventional install
// locations, matching internal/llm/claude.go's resolveBinaryPath.
func resolveBinaryPath(candidates []string) (string, error) {
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	home, _ := os.UserHomeDir()
	fallbackDirs := []string{
		home + "/.local/bin",
		"/usr/local/bin",
		"/opt/homebrew/bin",
	}
	for _, dir := range fallbackDirs {
		for _, name := range candidates {
			path := dir + "/" + name
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("agent: none of %v found on PATH or in fallback install locations", candidates)
}

// promptFlag returns the "-p <prompt>" argument pair, where <prompt> is a
// sentinel later expanded (by buildCommandLine) to a shell substitution
// reading the materialized worker.prompt file — avoiding command-line
// length limits (spec.md §4.4).
func promptFlag(opts ExecuteOptions) []string {
	return []string{"-p", promptSubstitutionToken}
}

// NewClaude returns the claude adapter. The caller pre-generates the
// session id and passes it as opts.SessionID, which this adapter forwards
// as --session-id when it is set; the --resume form comes from ResumeArgs.
func NewClaude() Adapter {
	return &genericAdapter{
		kind:        KindClaude,
		binaryNames: []string{"claude"},
		buildArgs: func(opts ExecuteOptions) []string {
			args := []string{"--output-format", "stream-json", "--verbose"}
			if opts.Model != "" {
				args = append(args, "--model", opts.Model)
			}
			if opts.SessionID != "" {
				args = append(args, "--session-id", opts.SessionID)
			}
			args = append(args, promptFlag(opts)...)
			return args
		},
		supportResume: true,
	}
}

// NewCodex returns the codex adapter, which discovers its session id from
// a {type: thread.started, thread_id} JSON line rather than accepting one
// up front.
func NewCodex() Adapter {
	return &genericAdapter{
		kind:        KindCodex,
		binaryNames: []string{"codex"},
		buildArgs: func(opts ExecuteOptions) []string {
			args := []string{"exec"}
			if opts.SessionID != "" {
				args = []string{"exec", "resume", opts.SessionID}
			}
			if opts.Model != "" {
				args = append(args, "--model", opts.Model)
			}
			args = append(args, promptFlag(opts)...)
			return args
		},
		supportResume: true,
	}
}

// NewOpencode returns the opencode adapter.
func NewOpencode() Adapter {
	return &genericAdapter{
		kind:        KindOpencode,
		binaryNames: []string{"opencode"},
		buildArgs: func(opts ExecuteOptions) []string {
			args := []string{"run"}
			if opts.SessionID != "" {
				args = append(args, "--session", opts.SessionID)
			}
			if opts.Model != "" {
				args = append(args, "--model", opts.Model)
			}
			args = append(args, promptFlag(opts)...)
			return args
		},
		supportResume: true,
	}
}

// NewGemini returns the gemini adapter.
func NewGemini() Adapter {
	return &genericAdapter{
		kind:        KindGemini,
		binaryNames: []string{"gemini"},
		buildArgs: func(opts ExecuteOptions) []string {
			args := []string{}
			if opts.SessionID != "" {
				args = append(args, "--resume", opts.SessionID)
			}
			if opts.Model != "" {
				args = append(args, "--model", opts.Model)
			}
			args = append(args, promptFlag(opts)...)
			return args
		},
		supportResume: true,
	}
}

// NewAmp returns the amp adapter. Its session id is recovered from stdout
// if present, else the caller's pre-generated UUID is used as a fallback
// (never passed to the CLI as a flag, since amp has no such flag — it only
// supports "threads continue" to resume the most recent thread).
func NewAmp() Adapter {
	return &genericAdapter{
		kind:        KindAmp,
		binaryNames: []string{"amp"},
		buildArgs: func(opts ExecuteOptions) []string {
			args := []string{"threads", "new"}
			if opts.SessionID != "" {
				args = []string{"threads", "continue"}
			}
			args = append(args, promptFlag(opts)...)
			return args
		},
		supportResume: true,
	}
}

// manualAdapter is the no-op variant: the operator works directly in their
// editor/IDE, so there is no subprocess to spawn.
type manualAdapter struct{}

// ErrManualRequiresOperator signals that the manual variant cannot be
// executed automatically.
var ErrManualRequiresOperator = fmt.Errorf("agent: manual plans require operator action, not automated execution")

func (manualAdapter) Name() Kind { return KindManual }

func (manualAdapter) SupportsResume() bool { return false }

func (manualAdapter) Execute(ctx context.Context, opts ExecuteOptions) (*ExecutionResult, error) {
	return nil, ErrManualRequiresOperator
}

func (manualAdapter) Interactive(ctx context.Context, opts ExecuteOptions) error {
	return ErrManualRequiresOperator
}

// NewManual returns the manual (no-op) adapter.
func NewManual() Adapter {
	return manualAdapter{}
}
