package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// StackFrame identifies a control-flow template being executed and the index
// of the child it is currently rendering.
type StackFrame struct {
	TemplateID string `json:"template_id"`
	Position   int    `json:"position"`
}

// Session is the conversation state threaded through rendering.
//
// Messages are append-only. Metadata is copy-on-write: the map returned by
// Metadata is never mutated after it is handed out. A Session is safe for
// concurrent readers while one run appends to it; batches appended with a
// single Append call become visible atomically.
type Session struct {
	mu         sync.RWMutex
	id         string
	messages   []Message
	metadata   Metadata
	stack      []StackFrame
	jumpTarget string
}

// SessionOption configures a new Session.
type SessionOption func(*Session)

// WithID sets the session identifier. By default a UUIDv7 is generated.
func WithID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// WithMessages seeds the session with messages.
func WithMessages(msgs ...Message) SessionOption {
	return func(s *Session) { s.messages = append(s.messages, msgs...) }
}

// WithMetadata seeds the session metadata. The map is deep-copied.
func WithMetadata(m map[string]any) SessionOption {
	return func(s *Session) { s.metadata = Metadata(m).Clone() }
}

// NewSession creates an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{metadata: Metadata{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = newID()
	}
	return s
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Messages returns a snapshot of the conversation.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Len returns the number of messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message.
func (s *Session) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// LastNonControl returns the most recent message whose role is not control.
func (s *Session) LastNonControl() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role != RoleControl {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

// Append adds messages to the end of the conversation as a single batch.
func (s *Session) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// Metadata returns the current metadata map. Callers must treat it as
// read-only.
func (s *Session) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// SetMetadata replaces the metadata map.
func (s *Session) SetMetadata(m Metadata) {
	if m == nil {
		m = Metadata{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = m
}

// SetMeta sets a single metadata key.
func (s *Session) SetMeta(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = s.metadata.With(key, value)
}

// Stack returns a copy of the control-flow stack, outermost frame first.
func (s *Session) Stack() []StackFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stack)
}

// Push enters a control-flow template.
func (s *Session) Push(f StackFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack = append(s.stack, f)
}

// Pop leaves the innermost control-flow template.
func (s *Session) Pop() (StackFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return StackFrame{}, false
	}
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return f, true
}

// SetPosition updates the position of the innermost frame.
func (s *Session) SetPosition(pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.stack); n > 0 {
		s.stack[n-1].Position = pos
	}
}

// ResetStack replaces the whole stack.
func (s *Session) ResetStack(frames []StackFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack = slices.Clone(frames)
}

// JumpTarget returns the pending jump target, if any.
func (s *Session) JumpTarget() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jumpTarget, s.jumpTarget != ""
}

// SetJumpTarget requests a jump to the template with the given id.
func (s *Session) SetJumpTarget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jumpTarget = id
}

// ClearJumpTarget drops any pending jump.
func (s *Session) ClearJumpTarget() {
	s.SetJumpTarget("")
}

// Fork returns a new Session sharing the message history and metadata of s.
// Appends to either session are not visible to the other. Hooks use Fork to
// return an updated session without touching their input.
func (s *Session) Fork() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Session{
		id:         s.id,
		messages:   slices.Clip(s.messages),
		metadata:   s.metadata,
		stack:      slices.Clone(s.stack),
		jumpTarget: s.jumpTarget,
	}
}

// WithMeta is shorthand for Fork followed by SetMeta.
func (s *Session) WithMeta(key string, value any) *Session {
	next := s.Fork()
	next.SetMeta(key, value)
	return next
}

// Clone returns a deep copy of s. Nothing in the copy aliases s.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	for i, m := range s.messages {
		msgs[i] = m.Clone()
	}
	md := s.metadata.Clone()
	if md == nil {
		md = Metadata{}
	}
	return &Session{
		id:         s.id,
		messages:   msgs,
		metadata:   md,
		stack:      slices.Clone(s.stack),
		jumpTarget: s.jumpTarget,
	}
}

// Adopt copies the observable state of next into s. It is how a hook's
// returned session replaces the one being rendered. next must extend the
// history of s; messages beyond the current length are appended.
func (s *Session) Adopt(next *Session) error {
	if next == nil || next == s {
		return nil
	}
	next.mu.RLock()
	tail := next.messages
	md := next.metadata
	jump := next.jumpTarget
	next.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tail) < len(s.messages) {
		return &ValidationError{Reason: fmt.Sprintf("history rewritten: %d messages, had %d", len(tail), len(s.messages))}
	}
	s.messages = append(s.messages, tail[len(s.messages):]...)
	if md == nil {
		md = Metadata{}
	}
	s.metadata = md
	s.jumpTarget = jump
	return nil
}

// Validate checks the structural invariants of the conversation: every role
// is known, and at most one system message exists, in first position.
// Violations are reported, never repaired.
func (s *Session) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, m := range s.messages {
		if !m.Role.Valid() {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("unknown role %q", m.Role)}
		}
		if m.Role == RoleSystem && i != 0 {
			return &ValidationError{Index: i, Reason: "system message must be first"}
		}
	}
	return nil
}

// Snapshot is the serializable form of a Session.
type Snapshot struct {
	ID         string       `json:"id"`
	Messages   []Message    `json:"messages"`
	Metadata   Metadata     `json:"metadata,omitempty"`
	Stack      []StackFrame `json:"stack,omitempty"`
	JumpTarget string       `json:"jump_target,omitempty"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:         s.id,
		Messages:   slices.Clone(s.messages),
		Metadata:   s.metadata,
		Stack:      slices.Clone(s.stack),
		JumpTarget: s.jumpTarget,
	}
}

// Restore builds a Session from a snapshot.
func Restore(snap Snapshot) *Session {
	s := &Session{
		id:         snap.ID,
		messages:   snap.Messages,
		metadata:   snap.Metadata,
		stack:      snap.Stack,
		jumpTarget: snap.JumpTarget,
	}
	if s.metadata == nil {
		s.metadata = Metadata{}
	}
	if s.id == "" {
		s.id = newID()
	}
	return s
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	r := Restore(snap)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.messages, s.metadata, s.stack, s.jumpTarget = r.id, r.messages, r.metadata, r.stack, r.jumpTarget
	return nil
}
