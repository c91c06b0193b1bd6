package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/aretw0/tendril/pkg/template"
)

// Report summarizes a loaded flow.
type Report struct {
	Name      string
	Templates int
	Kinds     map[template.Kind]int
	MaxDepth  int
	Tools     []string
}

// Validate opens the flow in dir and reports its shape. Loading already
// rejects duplicate ids, unknown jump targets and unknown tools, so a nil
// error means the flow is runnable.
func Validate(dir, flowFile string) (*Report, error) {
	p, err := OpenProject(dir, flowFile, nil, false, NewLogger(false))
	if err != nil {
		return nil, err
	}
	rep := &Report{Name: p.Name, Kinds: make(map[template.Kind]int)}
	template.Walk(p.Root, func(t template.Template, depth int) bool {
		rep.Templates++
		rep.Kinds[t.Kind()]++
		rep.MaxDepth = max(rep.MaxDepth, depth)
		return true
	})
	for _, spec := range p.Tools.Specs() {
		rep.Tools = append(rep.Tools, spec.Name)
	}
	slices.Sort(rep.Tools)
	return rep, nil
}

// Print writes a human readable summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Flow %q is valid.\n", r.Name)
	fmt.Fprintf(w, "  templates: %d (depth %d)\n", r.Templates, r.MaxDepth)
	for _, k := range slices.Sorted(maps.Keys(r.Kinds)) {
		fmt.Fprintf(w, "    %-12s %d\n", k, r.Kinds[k])
	}
	if len(r.Tools) == 0 {
		fmt.Fprintln(w, "  tools: none")
		return
	}
	fmt.Fprintf(w, "  tools: %d\n", len(r.Tools))
	for _, name := range r.Tools {
		fmt.Fprintf(w, "    - %s\n", name)
	}
}
