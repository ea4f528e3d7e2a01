package hooks

import (
	"context"
	"encoding/json"

	"github.com/daydemir/ralphd/internal/bus"
)

// RunAgentFunc invokes the configured worker assistant out-of-band of the
// main checklist-item loop, for hooks that need the assistant's help
// shaping a plan (spec.md §4.6).
type RunAgentFunc func(ctx context.Context, prompt string, files []string) (string, error)

// Context is what every hook function receives, scoped to the plugin
// currently running.
type Context struct {
	RepoRoot         string
	Worktree         string
	PlanID           string
	HookPoint        Point
	ChangeRequestRef string
	TodoCompleted    string // the checklist item text just completed; empty outside afterTodo

	RunAgent   RunAgentFunc
	EmitAction func(bus.Action)

	pluginName string
	state      *StateStore
}

// NewContext builds the base Context the engine scopes per plugin before
// invoking each hook in a chain.
func NewContext(repoRoot, worktree, planID string, state *StateStore, runAgent RunAgentFunc, emitAction func(bus.Action)) *Context {
	return &Context{
		RepoRoot:   repoRoot,
		Worktree:   worktree,
		PlanID:     planID,
		RunAgent:   runAgent,
		EmitAction: emitAction,
		state:      state,
	}
}

// forPlugin returns a shallow copy scoped to name, so a hook chain can
// share one base Context while each entry still gets its own
// getState/setState namespace.
func (c *Context) forPlugin(name string) *Context {
	clone := *c
	clone.pluginName = name
	return &clone
}

// GetState reads a plugin-scoped key previously set by this same plugin.
func (c *Context) GetState(key string) (json.RawMessage, bool, error) {
	return c.state.Get(c.pluginName, key)
}

// SetState writes a plugin-scoped key, visible only to this plugin.
func (c *Context) SetState(key string, value json.RawMessage) error {
	return c.state.Set(c.pluginName, key, value)
}

// GetGlobalState reads a key from the shared, cross-plugin namespace.
func (c *Context) GetGlobalState(key string) (json.RawMessage, bool, error) {
	return c.state.Get(globalScope, key)
}

// SetGlobalState writes a key into the shared, cross-plugin namespace.
func (c *Context) SetGlobalState(key string, value json.RawMessage) error {
	return c.state.Set(globalScope, key, value)
}
