package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/template"
)

// Overlay marks runtime state on the graph.
type Overlay struct {
	// Visited lists template ids on the active stack.
	Visited []string
	// Current is the template a suspended run resumes at.
	Current string
}

// GenerateMermaid renders a prepared template tree as a Mermaid flowchart.
// Solid edges follow the tree; dotted edges are jumps. Shapes:
//   - input and loop: [/parallelogram/] and (rounded)
//   - tool: [[subroutine]]
//   - conditional: {diamond}
//   - end and END: ((circle))
func GenerateMermaid(root template.Template, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	endUsed := false
	template.Walk(root, func(t template.Template, _ int) bool {
		id := sanitizeMermaidID(t.TemplateID())
		opener, closer := shape(t)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label(t), closer)

		children := t.Children()
		for i, c := range children {
			arrow := "-->"
			if cond, ok := t.(*template.Conditional); ok {
				branch := "then"
				if i == 1 && cond.Else != nil {
					branch = "else"
				}
				arrow = fmt.Sprintf("-- %s -->", branch)
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", id, arrow, sanitizeMermaidID(c.TemplateID()))
		}
		if loop, ok := t.(*template.Loop); ok && len(children) > 0 {
			fmt.Fprintf(&sb, "    %s -. repeat .-> %s\n",
				sanitizeMermaidID(children[len(children)-1].TemplateID()), sanitizeMermaidID(loop.TemplateID()))
		}
		if j, ok := t.(*template.Jump); ok {
			if j.Target == domain.EndTemplateID {
				endUsed = true
			}
			fmt.Fprintf(&sb, "    %s -.-> %s\n", id, sanitizeMermaidID(j.Target))
		}
		return true
	})
	if endUsed {
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", domain.EndTemplateID, domain.EndTemplateID)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, v := range overlay.Visited {
			id := sanitizeMermaidID(v)
			if id != "" && !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}
	return sb.String()
}

// OverlayFor derives the overlay of a stored session.
func OverlayFor(s *domain.Session) *Overlay {
	o := &Overlay{}
	for _, f := range s.Stack() {
		o.Visited = append(o.Visited, f.TemplateID)
	}
	if target, ok := s.JumpTarget(); ok {
		o.Current = target
	}
	return o
}

func shape(t template.Template) (string, string) {
	switch v := t.(type) {
	case *template.Message:
		if v.Source == template.UserProvided {
			return "[/", "/]"
		}
	case *template.ToolInvocation, *template.Subroutine:
		return "[[", "]]"
	case *template.Conditional:
		return "{", "}"
	case *template.Loop:
		return "(", ")"
	case *template.End:
		return "((", "))"
	case *template.Jump:
		return "{{", "}}"
	}
	return "[", "]"
}

func label(t template.Template) string {
	text := t.TemplateID()
	if m, ok := t.(*template.Message); ok {
		text = fmt.Sprintf("%s <br/> %s %s", text, m.Role, m.Source)
	}
	return strings.ReplaceAll(text, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
