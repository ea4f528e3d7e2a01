package plan

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	headingPattern    = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)
	todoLinePattern   = regexp.MustCompile(`^-\s\[([ xb])\]\s(.*)$`)
	frontmatterFences = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n?`)
)

// Frontmatter is the small YAML block a plan may carry at the top of the
// file, mirroring the teacher's PlanFrontmatter.
type Frontmatter struct {
	Status string `yaml:"status,omitempty"`
	Branch string `yaml:"branch,omitempty"`
}

// ParsePlan reads a markdown file and extracts its sections and checklist.
func ParsePlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PlanParseError{Path: path, Reason: err.Error()}
	}
	return parsePlanText(path, string(data))
}

func parsePlanText(path, text string) (*Plan, error) {
	body := stripFrontmatter(text)

	p := &Plan{
		Sections: make(map[string]string),
		raw:      text,
	}

	locs := headingPattern.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		// No "## Heading" structure at all: treat the whole body as Title
		// text, consistent with "never panic on missing optional sections".
		p.Title = strings.TrimSpace(firstLine(body))
		return p, nil
	}

	for i, loc := range locs {
		name := strings.TrimSpace(body[loc[2]:loc[3]])
		contentStart := loc[1]
		contentEnd := len(body)
		if i+1 < len(locs) {
			contentEnd = locs[i+1][0]
		}
		content := strings.TrimSpace(body[contentStart:contentEnd])

		canonical := canonicalSection(name)
		p.Sections[canonical] = content
		p.Order = append(p.Order, canonical)

		if canonical == "TODO" {
			todos, err := parseTodos(content)
			if err != nil {
				return nil, &PlanParseError{Path: path, Reason: err.Error()}
			}
			p.Todos = todos
		}
	}

	if title, ok := p.Sections["Title"]; ok {
		p.Title = title
	} else {
		p.Title = strings.TrimSpace(firstLine(body))
	}

	return p, nil
}

// canonicalSection matches a heading case-insensitively against the known
// schema so "## todo", "## TODO", "## Todo" are all the same section;
// unrecognized headings pass through with their own casing preserved.
func canonicalSection(name string) string {
	for _, known := range sectionOrder {
		if strings.EqualFold(known, name) {
			return known
		}
	}
	return name
}

// firstLine returns the first non-blank line of s with any leading "#"
// heading marker removed, used as the title when no Title section exists.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}

// parseTodos parses the TODO section body into ordered checklist items.
// Each item is "- [<mark>] <text>" followed by any lines indented deeper
// than the bullet itself.
func parseTodos(section string) ([]TODO, error) {
	if strings.TrimSpace(section) == "" {
		return nil, nil
	}
	lines := strings.Split(section, "\n")

	var todos []TODO
	var current *TODO
	for _, line := range lines {
		if m := todoLinePattern.FindStringSubmatch(strings.TrimLeft(line, " \t")); m != nil {
			if current != nil {
				todos = append(todos, *current)
			}
			current = &TODO{
				Index: len(todos),
				Mark:  Mark(m[1]),
				Text:  strings.TrimSpace(m[2]),
			}
			continue
		}
		if current == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, fmt.Errorf("TODO section: content before first checklist item: %q", line)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if leadingWhitespace(line) > 0 {
			current.Context = append(current.Context, strings.TrimRight(line, " \t"))
			continue
		}
		return nil, fmt.Errorf("TODO section: unindented line does not start a checklist item: %q", line)
	}
	if current != nil {
		todos = append(todos, *current)
	}
	return todos, nil
}

func leadingWhitespace(s string) int {
	n := 0
	for _, c := range s {
		if c == ' ' || c == '\t' {
			n++
			continue
		}
		break
	}
	return n
}

// FindNextUnchecked returns the first unchecked TODO item, or nil if none
// remain (either because all are resolved, or because there are none).
func FindNextUnchecked(p *Plan) *TODO {
	for i := range p.Todos {
		if p.Todos[i].Mark == MarkUnchecked {
			return &p.Todos[i]
		}
	}
	return nil
}

// HeadTodo returns the first TODO item that is not yet marked done, in
// file order, or nil if every item is done (or there are none). Unlike
// FindNextUnchecked, it does not skip past a blocked item to find a later
// unchecked one: the dispatcher executes items strictly in file order
// (spec.md §5), so a blocked item at the front of the list is the head
// regardless of what comes after it.
func HeadTodo(p *Plan) *TODO {
	for i := range p.Todos {
		if !p.Todos[i].Done() {
			return &p.Todos[i]
		}
	}
	return nil
}

// HasBlockedMarker reports whether any TODO anywhere carries the explicit
// [b] marker, used by advanceOne's "all done but something is blocked"
// branch.
func HasBlockedMarker(p *Plan) bool {
	for _, t := range p.Todos {
		if t.Blocked() {
			return true
		}
	}
	return false
}

// ExtractBody returns the full section body text for a canonical heading
// name, or "" if the plan does not carry that section.
func ExtractBody(p *Plan, section string) string {
	return p.Sections[canonicalSection(section)]
}

// stripFrontmatter removes a leading "---\n...\n---\n" YAML block, if any.
func stripFrontmatter(text string) string {
	if loc := frontmatterFences.FindStringIndex(text); loc != nil {
		return text[loc[1]:]
	}
	return text
}

// readFrontmatter parses the leading YAML block, if present.
func readFrontmatter(text string) (Frontmatter, bool) {
	m := frontmatterFences.FindStringSubmatch(text)
	if m == nil {
		return Frontmatter{}, false
	}
	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
		return Frontmatter{}, false
	}
	return fm, true
}

// writeFrontmatter replaces (or prepends) the leading YAML block.
func writeFrontmatter(text string, fm Frontmatter) (string, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("plan: cannot marshal frontmatter: %w", err)
	}
	block := "---\n" + string(data) + "---\n"
	rest := stripFrontmatter(text)
	return block + rest, nil
}
