package domain

import "context"

// Argument describes one named tool argument.
type Argument struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Type        string `json:"type" yaml:"type" mapstructure:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
}

// ToolSpec is the model-facing description of a tool.
type ToolSpec struct {
	Name        string     `json:"name" yaml:"name" mapstructure:"name"`
	Description string     `json:"description" yaml:"description" mapstructure:"description"`
	Arguments   []Argument `json:"arguments,omitempty" yaml:"arguments,omitempty" mapstructure:"arguments"`
}

// ToolResult is the output of a tool execution.
type ToolResult struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
	// Terminate asks the runner to end the conversation after the result
	// is recorded.
	Terminate bool `json:"terminate,omitempty"`
}

// Tool is a callable the model may invoke. Arguments are validated against
// Spec before Execute is called.
type Tool interface {
	Spec() ToolSpec
	Execute(ctx context.Context, args map[string]any) (ToolResult, error)
}
