package template

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct{}

func (stubModel) Send(context.Context, *domain.Session, ...ports.CallOption) (domain.Message, error) {
	return domain.NewMessage(domain.RoleAssistant, "stub"), nil
}

func sampleTree() *Linear {
	return Named("root", Seq(
		Named("sys", System("hi")),
		Named("loop", &Loop{
			Templates: []Template{
				Named("ask", UserInput("question", "")),
				Named("branch", &Conditional{
					Condition: Always,
					Then:      Named("target", Assistant("deep")),
				}),
			},
			ExitCondition: LastMessageIs("END"),
		}),
		Named("target", Assistant("shallow")),
	))
}

func TestPrepare_AssignsMissingIDs(t *testing.T) {
	gen := Generate()
	root := Seq(System("a"), gen)

	require.NoError(t, Prepare(root))
	assert.NotEmpty(t, root.ID)
	assert.True(t, strings.HasPrefix(gen.ID, "message#"))

	// Idempotent.
	before := gen.ID
	require.NoError(t, Prepare(root))
	assert.Equal(t, before, gen.ID)
}

func TestPrepare_GeneratedIDsDependOnTreeShape(t *testing.T) {
	build := func() (*Linear, *Message) {
		gen := Generate()
		return Seq(System("a"), gen), gen
	}
	first, firstGen := build()
	require.NoError(t, Prepare(first))
	// Trees prepared in between must not shift the numbering.
	for range 3 {
		other, _ := build()
		require.NoError(t, Prepare(other))
	}
	second, secondGen := build()
	require.NoError(t, Prepare(second))

	assert.Equal(t, "message#3", firstGen.ID)
	assert.Equal(t, firstGen.ID, secondGen.ID)
	assert.Equal(t, first.ID, second.ID)
}

func TestPrepare_GeneratedIDAvoidsExplicitOnes(t *testing.T) {
	unnamed := Assistant("y")
	root := Seq(unnamed, Named("message#2", Assistant("x")))
	require.NoError(t, Prepare(root))
	assert.Equal(t, "message#2.2", unnamed.ID)
}

func TestPrepare_RejectsInvalidTrees(t *testing.T) {
	tests := []struct {
		name string
		root Template
		want error
	}{
		{
			name: "duplicate id",
			root: Seq(Named("x", System("a")), Named("x", User("b"))),
			want: domain.ErrDuplicateTemplateID,
		},
		{
			name: "reserved END",
			root: Seq(Named(domain.EndTemplateID, Assistant("a"))),
			want: domain.ErrReservedTemplateID,
		},
		{
			name: "conflicting overrides",
			root: &Subroutine{
				Inner:       Generate(),
				Model:       stubModel{},
				Environment: &Environment{Model: stubModel{}},
			},
			want: domain.ErrConflictingOverride,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Prepare(tt.root)
			var cfg *domain.ConfigurationError
			require.ErrorAs(t, err, &cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPrepare_SharedInstanceIsNotDuplicate(t *testing.T) {
	shared := Named("shared", Generate())
	root := Seq(shared, shared)
	assert.NoError(t, Prepare(root))
}

func TestPrepare_ShapeErrors(t *testing.T) {
	var cfg *domain.ConfigurationError
	assert.ErrorAs(t, Prepare(&Loop{}), &cfg)
	assert.ErrorAs(t, Prepare(&Jump{}), &cfg)
	assert.ErrorAs(t, Prepare(&Subroutine{}), &cfg)
	assert.ErrorAs(t, Prepare(&Conditional{Condition: Always}), &cfg)
	assert.ErrorAs(t, Prepare(Seq(nil)), &cfg)
	assert.ErrorAs(t, Prepare(nil), &cfg)
}

func TestFind_BreadthFirstIsDeterministic(t *testing.T) {
	root := sampleTree()
	// Two templates share the id; Prepare would reject this tree, but Find
	// must still prefer the shallower one.
	for range 3 {
		p, err := Find(root, "target")
		require.NoError(t, err)
		assert.Equal(t, "shallow", p.Target.(*Message).Content)
		assert.Equal(t, []int{2}, p.Positions)
		assert.Equal(t, []domain.StackFrame{{TemplateID: "root", Position: 2}}, p.Frames())
	}
}

func TestFind_NestedPath(t *testing.T) {
	root := sampleTree()
	p, err := Find(root, "ask")
	require.NoError(t, err)
	require.Len(t, p.Ancestors, 2)
	assert.Equal(t, "root", p.Ancestors[0].TemplateID())
	assert.Equal(t, "loop", p.Ancestors[1].TemplateID())
	assert.Equal(t, []int{1, 0}, p.Positions)
}

func TestFind_Missing(t *testing.T) {
	_, err := Find(sampleTree(), "nope")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestCheckJumps(t *testing.T) {
	ok := Seq(Named("a", System("x")), &Jump{Target: "a"}, &Jump{Target: domain.EndTemplateID})
	assert.NoError(t, CheckJumps(ok))

	bad := Seq(&Jump{Base: Base{ID: "j"}, Target: "nowhere"})
	var cfg *domain.ConfigurationError
	require.ErrorAs(t, CheckJumps(bad), &cfg)
	assert.Equal(t, "j", cfg.TemplateID)
}

func TestLoopLimit(t *testing.T) {
	assert.Equal(t, domain.DefaultMaxIterations, (&Loop{}).Limit())
	assert.Equal(t, 0, (&Loop{ExitCondition: Always}).Limit())
	assert.Equal(t, 3, (&Loop{ExitCondition: Always, MaxIterations: 3}).Limit())
}

func TestConditions(t *testing.T) {
	s := domain.NewSession(domain.WithMessages(
		domain.NewMessage(domain.RoleUser, "END"),
		domain.NewMessage(domain.RoleControl, "tick"),
	))
	s.SetMeta("done", true)

	assert.True(t, LastMessageIs("END")(s))
	assert.True(t, MetaTrue("done")(s))
	assert.False(t, Not(MetaTrue("done"))(s))
	assert.False(t, MetaEquals("missing", 1)(s))
}

func TestMetaEquals_NumbersSurviveJSON(t *testing.T) {
	s := domain.NewSession()
	s.SetMeta("n", 1)
	s.SetMeta("name", "ada")
	require.True(t, MetaEquals("n", 1)(s))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	restored := domain.NewSession()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.True(t, MetaEquals("n", 1)(restored))
	assert.True(t, MetaEquals("n", 1.0)(restored))
	assert.False(t, MetaEquals("n", 2)(restored))
	assert.False(t, MetaEquals("n", "1")(restored))
	assert.True(t, MetaEquals("name", "ada")(restored))
}
