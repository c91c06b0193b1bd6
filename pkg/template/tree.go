package template

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// generateID names the template at pre-order position pos of its tree. The
// result depends only on the tree's shape, so a session suspended at an
// unnamed template resumes in any process that builds the same tree.
func generateID(k Kind, pos int, taken map[string]Template) string {
	id := fmt.Sprintf("%s#%d", k, pos)
	for n := 2; taken[id] != nil; n++ {
		id = fmt.Sprintf("%s#%d.%d", k, pos, n)
	}
	return id
}

// Walk visits the tree depth-first in pre-order. Returning false from fn
// skips the children of t. A template reachable through several parents is
// visited once.
func Walk(root Template, fn func(t Template, depth int) bool) {
	seen := make(map[Template]bool)
	var visit func(t Template, depth int)
	visit = func(t Template, depth int) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		if !fn(t, depth) {
			return
		}
		for _, c := range t.Children() {
			visit(c, depth+1)
		}
	}
	visit(root, 0)
}

// Prepare readies a tree for rendering. It assigns ids to templates that
// have none and rejects duplicate ids, the reserved END id, missing children
// and subroutines with conflicting overrides. It is idempotent.
func Prepare(root Template) error {
	if root == nil {
		return &domain.ConfigurationError{Err: errors.New("nil root template")}
	}
	// Explicit ids are claimed first so a generated one never takes them.
	named := make(map[string]Template)
	Walk(root, func(t Template, _ int) bool {
		if id := t.TemplateID(); id != "" && named[id] == nil {
			named[id] = t
		}
		return true
	})

	ids := make(map[string]Template)
	pos := 0
	var err error
	Walk(root, func(t Template, _ int) bool {
		if err != nil {
			return false
		}
		pos++
		b := t.base()
		if b.ID == "" {
			b.ID = generateID(t.Kind(), pos, named)
			named[b.ID] = t
		}
		switch {
		case b.ID == domain.EndTemplateID:
			err = &domain.ConfigurationError{TemplateID: b.ID, Err: domain.ErrReservedTemplateID}
			return false
		case ids[b.ID] != nil:
			err = &domain.ConfigurationError{TemplateID: b.ID, Err: domain.ErrDuplicateTemplateID}
			return false
		}
		ids[b.ID] = t
		err = checkShape(t)
		return err == nil
	})
	return err
}

func checkShape(t Template) error {
	fail := func(format string, args ...any) error {
		return &domain.ConfigurationError{TemplateID: t.TemplateID(), Err: fmt.Errorf(format, args...)}
	}
	switch v := t.(type) {
	case *Linear:
		for i, c := range v.Templates {
			if c == nil {
				return fail("nil template at position %d", i)
			}
		}
	case *Loop:
		if len(v.Templates) == 0 {
			return fail("loop has no templates")
		}
		for i, c := range v.Templates {
			if c == nil {
				return fail("nil template at position %d", i)
			}
		}
		if v.MaxIterations < 0 {
			return fail("negative max iterations %d", v.MaxIterations)
		}
	case *Conditional:
		if v.Condition == nil || v.Then == nil {
			return fail("conditional needs a condition and a then branch")
		}
	case *Jump:
		if v.Target == "" {
			return fail("jump has no target")
		}
	case *Message:
		if v.Source == Static && v.Role == "" {
			return fail("static message has no role")
		}
	case *Subroutine:
		if v.Inner == nil {
			return fail("subroutine has no inner template")
		}
		if v.Model != nil && v.Environment != nil {
			return &domain.ConfigurationError{TemplateID: t.TemplateID(), Err: domain.ErrConflictingOverride}
		}
	}
	return nil
}

// Path locates a template inside a tree.
type Path struct {
	// Ancestors runs from the root down to the target's parent.
	Ancestors []Template
	// Positions[i] is the index, within Ancestors[i].Children(), of the
	// next template on the way to Target.
	Positions []int
	Target    Template
}

// Frames returns the stack frames a render resuming at the target would hold.
func (p Path) Frames() []domain.StackFrame {
	frames := make([]domain.StackFrame, len(p.Ancestors))
	for i, a := range p.Ancestors {
		frames[i] = domain.StackFrame{TemplateID: a.TemplateID(), Position: p.Positions[i]}
	}
	return frames
}

// Find searches the tree breadth-first for id. Children are visited in
// position order, so the result is deterministic for a given tree.
func Find(root Template, id string) (Path, error) {
	type node struct {
		t      Template
		parent *node
		pos    int
	}
	seen := make(map[Template]bool)
	queue := []*node{{t: root}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.t == nil || seen[n.t] {
			continue
		}
		seen[n.t] = true
		if n.t.TemplateID() == id {
			var p Path
			p.Target = n.t
			for cur := n; cur.parent != nil; cur = cur.parent {
				p.Ancestors = append([]Template{cur.parent.t}, p.Ancestors...)
				p.Positions = append([]int{cur.pos}, p.Positions...)
			}
			return p, nil
		}
		for i, c := range n.t.Children() {
			queue = append(queue, &node{t: c, parent: n, pos: i})
		}
	}
	return Path{}, fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, id)
}

// CheckJumps reports the first static Jump whose target is neither in the
// tree nor the reserved END id.
func CheckJumps(root Template) error {
	var err error
	Walk(root, func(t Template, _ int) bool {
		j, ok := t.(*Jump)
		if !ok || err != nil || j.Target == domain.EndTemplateID {
			return err == nil
		}
		if _, ferr := Find(root, j.Target); ferr != nil {
			err = &domain.ConfigurationError{TemplateID: j.ID, Err: ferr}
		}
		return err == nil
	})
	return err
}
