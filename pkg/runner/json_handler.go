package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
)

// Event types written by JSONHandler, one JSON object per line.
const (
	EventTypeMessage      = "message"
	EventTypeChunk        = "chunk"
	EventTypeInput        = "input_request"
	EventTypeSystem       = "system"
	EventTypeSessionDelta = "session_diff"
)

// JSONEvent is one line of JSONHandler output.
type JSONEvent struct {
	Type       string              `json:"type"`
	TemplateID string              `json:"template_id,omitempty"`
	Message    *domain.Message     `json:"message,omitempty"`
	Prompt     string              `json:"prompt,omitempty"`
	Default    string              `json:"default,omitempty"`
	Text       string              `json:"text,omitempty"`
	Diff       *domain.SessionDiff `json:"diff,omitempty"`
}

// JSONHandler speaks JSON Lines: events out, answers in. An answer may be a
// JSON string or a bare line of text.
type JSONHandler struct {
	Reader *bufio.Reader
	// Diffs also emits session_diff events after every message.
	Diffs bool

	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) emit(ev JSONEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(ev)
}

func (h *JSONHandler) Output(_ context.Context, msg domain.Message) error {
	return h.emit(JSONEvent{Type: EventTypeMessage, Message: &msg})
}

func (h *JSONHandler) Chunk(_ context.Context, templateID string, fragment domain.Message) error {
	return h.emit(JSONEvent{Type: EventTypeChunk, TemplateID: templateID, Message: &fragment})
}

func (h *JSONHandler) Input(ctx context.Context, prompt, defaultAnswer string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := h.emit(JSONEvent{Type: EventTypeInput, Prompt: prompt, Default: defaultAnswer}); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		text = val
	}
	return SanitizeInput(text)
}

func (h *JSONHandler) SystemOutput(_ context.Context, msg string) error {
	return h.emit(JSONEvent{Type: EventTypeSystem, Text: msg})
}

// SessionChanged emits the diff when Diffs is enabled.
func (h *JSONHandler) SessionChanged(_ context.Context, diff *domain.SessionDiff) error {
	if !h.Diffs {
		return nil
	}
	return h.emit(JSONEvent{Type: EventTypeSessionDelta, Diff: diff})
}
