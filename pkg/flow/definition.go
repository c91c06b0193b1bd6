package flow

// Definition is a flow file.
type Definition struct {
	Name     string         `mapstructure:"name"`
	Tools    string         `mapstructure:"tools"`
	Metadata map[string]any `mapstructure:"metadata"`
	Root     *Node          `mapstructure:"root"`
}

// Node describes one template. Which fields apply depends on Type.
type Node struct {
	ID   string `mapstructure:"id"`
	Type string `mapstructure:"type"`

	// Message nodes.
	Content string `mapstructure:"content"`
	Default string `mapstructure:"default"`
	Model   string `mapstructure:"model"`
	Stream  bool   `mapstructure:"stream"`

	// Linear, loop and subroutine bodies.
	Templates     []Node     `mapstructure:"templates"`
	Until         *Condition `mapstructure:"until"`
	MaxIterations int        `mapstructure:"max_iterations"`

	// Conditional branches and jump guards.
	When *Condition `mapstructure:"when"`
	Then *Node      `mapstructure:"then"`
	Else *Node      `mapstructure:"else"`

	Target   string `mapstructure:"target"`
	Farewell string `mapstructure:"farewell"`

	// Tool invocations list registry tool names.
	Tools []string `mapstructure:"tools"`

	Init   *Init   `mapstructure:"init"`
	Squash *Squash `mapstructure:"squash"`

	Before []Hook `mapstructure:"before"`
	After  []Hook `mapstructure:"after"`
}

// Condition is a predicate over the session. Exactly one field is set.
type Condition struct {
	LastMessageIs *string        `mapstructure:"last_message_is"`
	MetaEquals    map[string]any `mapstructure:"meta_equals"`
	MetaTrue      string         `mapstructure:"meta_true"`
	Not           *Condition     `mapstructure:"not"`
	Always        bool           `mapstructure:"always"`
}

// Init selects how a subroutine seeds its child session.
type Init struct {
	// Type is clean, inherit_system, last_n or roles.
	Type  string   `mapstructure:"type"`
	N     int      `mapstructure:"n"`
	Roles []string `mapstructure:"roles"`
}

// Squash selects what a subroutine hands back to its parent.
type Squash struct {
	// Type is last_message, roles, all, llm_filter or llm_summarize.
	Type   string   `mapstructure:"type"`
	Roles  []string `mapstructure:"roles"`
	Prompt string   `mapstructure:"prompt"`
	Model  string   `mapstructure:"model"`
}

// Hook is a session transformer run before or after a template. Exactly
// one field is set.
type Hook struct {
	Set         map[string]any `mapstructure:"set"`
	Reset       []string       `mapstructure:"reset"`
	CountUp     string         `mapstructure:"count_up"`
	Increment   *IncrementHook `mapstructure:"increment"`
	ExtractCode *ExtractHook   `mapstructure:"extract_code"`
	Exec        *ExecHook      `mapstructure:"exec"`
	JumpIf      *JumpIfHook    `mapstructure:"jump_if"`
	Debug       string         `mapstructure:"debug"`
}

type IncrementHook struct {
	Key     string `mapstructure:"key"`
	Initial int    `mapstructure:"initial"`
	By      int    `mapstructure:"by"`
}

type ExtractHook struct {
	Key  string `mapstructure:"key"`
	Lang string `mapstructure:"lang"`
}

type ExecHook struct {
	Key     string `mapstructure:"key"`
	CodeKey string `mapstructure:"code_key"`
	Tool    string `mapstructure:"tool"`
}

type JumpIfHook struct {
	When   *Condition `mapstructure:"when"`
	Target string     `mapstructure:"target"`
}
