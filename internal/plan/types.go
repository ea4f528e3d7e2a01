// Package plan parses and mutates the markdown plan documents the
// dispatcher drives to completion.
package plan

// Mark is the ternary checklist marker of a TODO line.
type Mark string

const (
	MarkUnchecked Mark = " "
	MarkDone      Mark = "x"
	MarkBlocked   Mark = "b"
)

// TODO is one checklist item, in file order.
type TODO struct {
	Index   int
	Mark    Mark
	Text    string
	Context []string // indented lines following the bullet
}

// Done reports whether the item is marked complete.
func (t TODO) Done() bool { return t.Mark == MarkDone }

// Blocked reports whether the item carries the explicit blocked marker.
func (t TODO) Blocked() bool { return t.Mark == MarkBlocked }

// sectionOrder is the canonical, case-insensitive heading order from
// spec.md §3. Only TODO is scheduler-semantic; the rest are carried
// through unexamined by the parser but exposed for hooks/templates.
var sectionOrder = []string{
	"Title",
	"Plan Summary",
	"Objective",
	"Context",
	"Scope",
	"Success Criteria",
	"Constraints",
	"Assumptions",
	"Architecture Notes",
	"Decision Log",
	"Implementation Notes",
	"Plan-Specific Checks",
	"Review Focus",
	"Open Questions",
	"TODO",
	"Progress Log",
}

// Plan is the parsed form of a plan markdown document.
type Plan struct {
	// Sections maps a canonical heading name (case-insensitive match) to
	// its raw body text; being a map, it carries no order.
	Sections map[string]string
	// Order preserves the heading order as they appeared on disk,
	// including headings the parser does not know about.
	Order []string

	Title string
	Todos []TODO

	// raw retains the original document text as parsed. SetStatus and
	// SetBranch do not use it: they re-read the file from disk.
	raw string
}

// PlanParseError is returned when a plan's structure is too malformed to
// extract a usable TODO checklist. Missing optional sections are never an
// error; only structural breakage (e.g. a line in the TODO section that is
// neither a checklist item nor indented context under one) is.
type PlanParseError struct {
	Path   string
	Reason string
}

func (e *PlanParseError) Error() string {
	return "plan parse error in " + e.Path + ": " + e.Reason
}
