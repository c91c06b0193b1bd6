package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/aretw0/tendril/pkg/domain"
)

// TextHandler presents a run on a terminal or any line-oriented stream.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	// Verbose also prints system, user and control messages.
	Verbose bool

	interactive bool
	streaming   bool

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) { h.Renderer = renderer }
}

// WithVerbose prints every role, not only assistant and tool traffic.
func WithVerbose(verbose bool) TextHandlerOption {
	return func(h *TextHandler) { h.Verbose = verbose }
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader:      bufio.NewReader(r),
		Writer:      w,
		interactive: IsTerminal(r),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) Output(_ context.Context, msg domain.Message) error {
	if h.streaming {
		h.streaming = false
		if msg.Role == domain.RoleAssistant && msg.ToolCall == nil {
			_, err := fmt.Fprintln(h.Writer)
			return err
		}
	}

	var line string
	switch msg.Role {
	case domain.RoleAssistant:
		if msg.ToolCall != nil {
			line = fmt.Sprintf("[Tool Call] ID=%s Name=%s Args=%v", msg.ToolCall.ID, msg.ToolCall.Name, msg.ToolCall.Args)
			break
		}
		line = h.render(msg.Content)
	case domain.RoleToolResult:
		line = fmt.Sprintf("[Tool Result] %s", msg.Content)
	default:
		if !h.Verbose {
			return nil
		}
		line = fmt.Sprintf("[%s] %s", msg.Role, msg.Content)
	}
	if line == "" {
		return nil
	}
	_, err := fmt.Fprintln(h.Writer, line)
	return err
}

func (h *TextHandler) render(content string) string {
	if h.Renderer == nil {
		return strings.TrimSpace(content)
	}
	rendered, err := h.Renderer(content)
	if err != nil {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(rendered)
}

func (h *TextHandler) Chunk(_ context.Context, _ string, fragment domain.Message) error {
	h.streaming = true
	_, err := fmt.Fprint(h.Writer, fragment.Content)
	return err
}

// Input prints the prompt and reads one line. Invalid input is rejected and
// asked again. A closed input returns io.EOF.
func (h *TextHandler) Input(ctx context.Context, prompt, defaultAnswer string) (string, error) {
	h.initPump()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		switch {
		case prompt != "" && defaultAnswer != "":
			fmt.Fprintf(h.Writer, "%s [%s] > ", prompt, defaultAnswer)
		case prompt != "":
			fmt.Fprintf(h.Writer, "%s > ", prompt)
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			if !h.interactive {
				// Piped input is not echoed by a terminal.
				fmt.Fprintln(h.Writer, clean)
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}
