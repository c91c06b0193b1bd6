package template

import (
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Source selects where a Message template gets its content.
type Source int

const (
	// Static content, expanded as a text/template over session metadata.
	Static Source = iota
	// Generated content comes from the model.
	Generated
	// UserProvided content comes from the user interaction.
	UserProvided
)

func (s Source) String() string {
	switch s {
	case Static:
		return "static"
	case Generated:
		return "generated"
	case UserProvided:
		return "user"
	}
	return "unknown"
}

// Message emits a single message.
type Message struct {
	Base
	Role   domain.Role
	Source Source
	// Content is the static text, or the prompt shown when asking the user.
	Content string
	// Default is offered to the user when Source is UserProvided.
	Default string
	// Model overrides the runtime model for this template only.
	Model ports.Model
	// Stream requests chunked generation when the model supports it.
	Stream bool
}

func (t *Message) Kind() Kind           { return KindMessage }
func (t *Message) Children() []Template { return nil }

// System returns a static system message.
func System(content string) *Message {
	return &Message{Role: domain.RoleSystem, Source: Static, Content: content}
}

// Assistant returns a static assistant message.
func Assistant(content string) *Message {
	return &Message{Role: domain.RoleAssistant, Source: Static, Content: content}
}

// User returns a static user message.
func User(content string) *Message {
	return &Message{Role: domain.RoleUser, Source: Static, Content: content}
}

// UserInput asks the user interaction for the next user message.
func UserInput(prompt, defaultAnswer string) *Message {
	return &Message{Role: domain.RoleUser, Source: UserProvided, Content: prompt, Default: defaultAnswer}
}

// Generate asks the model for the next assistant message.
func Generate() *Message {
	return &Message{Role: domain.RoleAssistant, Source: Generated}
}

// GenerateWith is Generate with a per-template model override.
func GenerateWith(model ports.Model) *Message {
	return &Message{Role: domain.RoleAssistant, Source: Generated, Model: model}
}

// ToolInvocation lets the model call one of Tools, then asks it to follow up
// on the result.
type ToolInvocation struct {
	Base
	Tools []domain.Tool
	// Model overrides the runtime model for this template only.
	Model ports.Model
}

func (t *ToolInvocation) Kind() Kind           { return KindTool }
func (t *ToolInvocation) Children() []Template { return nil }

// Tool returns the tool registered under name.
func (t *ToolInvocation) Tool(name string) (domain.Tool, bool) {
	for _, tool := range t.Tools {
		if tool.Spec().Name == name {
			return tool, true
		}
	}
	return nil, false
}

// Specs returns the model-facing description of every tool.
func (t *ToolInvocation) Specs() []domain.ToolSpec {
	specs := make([]domain.ToolSpec, len(t.Tools))
	for i, tool := range t.Tools {
		specs[i] = tool.Spec()
	}
	return specs
}
