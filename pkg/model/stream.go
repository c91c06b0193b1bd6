package model

import (
	"context"
	"iter"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Chunked turns any Model into a ports.StreamingModel by splitting its
// response into fragments of at most Size runes.
type Chunked struct {
	Inner ports.Model
	Size  int
}

func (c Chunked) Send(ctx context.Context, s *domain.Session, opts ...ports.CallOption) (domain.Message, error) {
	return c.Inner.Send(ctx, s, opts...)
}

func (c Chunked) SendStream(ctx context.Context, s *domain.Session, opts ...ports.CallOption) iter.Seq2[domain.Message, error] {
	return func(yield func(domain.Message, error) bool) {
		msg, err := c.Inner.Send(ctx, s, opts...)
		if err != nil {
			yield(domain.Message{}, err)
			return
		}
		size := max(c.Size, 1)
		runes := []rune(msg.Content)
		for start := 0; start < len(runes); start += size {
			if err := ctx.Err(); err != nil {
				yield(domain.Message{}, err)
				return
			}
			end := min(start+size, len(runes))
			if !yield(domain.NewMessage(msg.Role, string(runes[start:end])), nil) {
				return
			}
		}
	}
}
