package runner

import (
	"context"
	"errors"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// RichResponse summarizes a run for request/response clients (HTTP, MCP):
// the final session, the messages this run appended and whether it ended.
type RichResponse struct {
	Session  *domain.Session  `json:"session"`
	Messages []domain.Message `json:"messages,omitempty"`
	Terminal bool             `json:"terminal"`
	// Pending is the template the next run resumes at, if any.
	Pending string `json:"pending,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunAndCollect runs s to completion and reports what was appended. A run
// failure is reported both in the response and as the returned error.
func RunAndCollect(ctx context.Context, r ports.FlowRunner, s *domain.Session) (*RichResponse, error) {
	if s == nil {
		s = domain.NewSession()
	}
	before := s.Len()
	out, err := r.Run(ctx, s)
	if out == nil {
		out = s
	}
	resp := &RichResponse{Session: out, Terminal: true}
	if msgs := out.Messages(); len(msgs) > before {
		resp.Messages = msgs[before:]
	}
	if target, ok := out.JumpTarget(); ok {
		resp.Pending = target
	}
	if err != nil {
		resp.Error = err.Error()
		var runErr *RunError
		resp.Terminal = errors.As(err, &runErr)
	}
	return resp, err
}
