package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daydemir/ralphd/internal/agent"
	"github.com/daydemir/ralphd/internal/statestore"
)

// hookAnswerFile is where NewRunAgent tells the worker assistant to write
// its response, relative to the worktree.
const hookAnswerFile = ".ralphd-hook-answer.md"

// NewRunAgent builds the RunAgentFunc a hook Context exposes, scoped to
// one plan's worktree and configured assistant. It wraps the caller's
// prompt with a plan-format reminder and a "write your answer to this
// path" instruction, invokes the configured worker assistant, blocks
// until it finishes, and reads back the answer file (spec.md §4.6).
func NewRunAgent(worktree string, kind statestore.Agent, timeout time.Duration) RunAgentFunc {
	return func(ctx context.Context, prompt string, files []string) (string, error) {
		answerPath := filepath.Join(worktree, hookAnswerFile)
		os.Remove(answerPath) // a stale answer from a prior runAgent call must not leak through

		fullPrompt := fmt.Sprintf(
			"%s\n\nRespond using the same markdown plan format already present in this worktree. Write your complete answer to the file %q and nothing else.",
			prompt, answerPath,
		)
		if len(files) > 0 {
			fullPrompt += fmt.Sprintf("\n\nRelevant files: %s", strings.Join(files, ", "))
		}

		adapter, err := agent.Get(kind)
		if err != nil {
			return "", fmt.Errorf("hooks: runAgent: %w", err)
		}
		result, err := adapter.Execute(ctx, agent.ExecuteOptions{
			Cwd:     worktree,
			Prompt:  fullPrompt,
			Purpose: "hook",
		})
		if err != nil {
			return "", fmt.Errorf("hooks: runAgent: execute: %w", err)
		}
		if _, err := agent.WaitForCompletion(ctx, result, timeout); err != nil {
			return "", fmt.Errorf("hooks: runAgent: wait: %w", err)
		}

		answer, err := os.ReadFile(answerPath)
		if err != nil {
			return "", fmt.Errorf("hooks: runAgent: answer file not written: %w", err)
		}
		return string(answer), nil
	}
}
