// Package hooks implements the lifecycle-interception engine of spec.md
// §4.6: ordered per-point hook chains that transform plan text or react to
// bus events, backed by a statically-linked plugin registry plus an
// optional dynamically loaded one.
package hooks

import (
	"context"

	"github.com/daydemir/ralphd/internal/bus"
)

// Point is one of the dispatcher's lifecycle interception points.
type Point string

const (
	PointAfterDesign  Point = "afterDesign"
	PointBeforeTodo   Point = "beforeTodo"
	PointAfterTodo    Point = "afterTodo"
	PointBeforeFinish Point = "beforeFinish"
	PointAfterFinish  Point = "afterFinish"
	PointOnEvent      Point = "onEvent"
)

// PlanHook receives the plan's current markdown text and returns the next
// version of it. Hooks within a point run in configured order; one hook's
// output is the next hook's input.
type PlanHook func(ctx context.Context, hctx *Context, planText string) (string, error)

// EventOutcome is what an onEvent hook decided to do with the event.
type EventOutcome int

const (
	EventUnhandled EventOutcome = iota
	EventHandled
	EventDeferred
)

// EventHook inspects one bus.Event and may emit actions via
// Context.EmitAction, returning whether it consumed the event.
type EventHook func(ctx context.Context, hctx *Context, event bus.Event) (EventOutcome, error)
