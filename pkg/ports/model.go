package ports

import (
	"context"
	"iter"

	"github.com/aretw0/tendril/pkg/domain"
)

// Call carries per-request options for a model call.
type Call struct {
	// Tools are offered to the model. A model that supports tool calling
	// may answer with a message whose ToolCall is set.
	Tools []domain.ToolSpec
}

// CallOption configures a Call.
type CallOption func(*Call)

// WithTools offers the given tools to the model.
func WithTools(specs ...domain.ToolSpec) CallOption {
	return func(c *Call) { c.Tools = append(c.Tools, specs...) }
}

// ApplyCallOptions folds opts into a Call.
func ApplyCallOptions(opts ...CallOption) Call {
	var c Call
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Model is the language-model collaborator. Retries and timeouts are the
// implementation's concern; the engine treats any error as fatal.
type Model interface {
	Send(ctx context.Context, session *domain.Session, opts ...CallOption) (domain.Message, error)
}

// StreamingModel is implemented by models that can yield partial content.
// Each yielded message is a fragment; the concatenated Content forms the
// final message.
type StreamingModel interface {
	Model
	SendStream(ctx context.Context, session *domain.Session, opts ...CallOption) iter.Seq2[domain.Message, error]
}
