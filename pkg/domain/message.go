package domain

import "fmt"

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
	// RoleControl marks engine bookkeeping messages. Model doubles and
	// interactions skip them when they look for the last turn.
	RoleControl Role = "control"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleToolResult, RoleControl:
		return true
	}
	return false
}

// ToolCall is a model's request to invoke a tool.
type ToolCall struct {
	ID   string         `json:"id" yaml:"id" mapstructure:"id"`
	Name string         `json:"name" yaml:"name" mapstructure:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// Message is a single conversation turn. It is treated as immutable once
// created: helpers that change it return a copy.
type Message struct {
	Content  string    `json:"content"`
	Role     Role      `json:"role"`
	Metadata Metadata  `json:"metadata,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
}

// NewMessage creates a message with empty metadata.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// WithMeta returns a copy of m with key set in its metadata.
func (m Message) WithMeta(key string, value any) Message {
	m.Metadata = m.Metadata.With(key, value)
	return m
}

// Clone returns a copy of m that shares no mutable state with it.
func (m Message) Clone() Message {
	m.Metadata = m.Metadata.Clone()
	if m.ToolCall != nil {
		tc := *m.ToolCall
		tc.Args = Metadata(tc.Args).Clone()
		m.ToolCall = &tc
	}
	return m
}

func (m Message) String() string {
	if m.ToolCall != nil {
		return fmt.Sprintf("%s: %s [call %s]", m.Role, m.Content, m.ToolCall.Name)
	}
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}
