package strategy

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// SquashFunc adapts a function to the template.SquashStrategy interface.
type SquashFunc func(ctx context.Context, msgs []domain.Message) ([]domain.Message, error)

func (f SquashFunc) Squash(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
	return f(ctx, msgs)
}

// LastMessage keeps only the final message.
func LastMessage() SquashFunc {
	return func(_ context.Context, msgs []domain.Message) ([]domain.Message, error) {
		if len(msgs) == 0 {
			return nil, nil
		}
		return []domain.Message{msgs[len(msgs)-1]}, nil
	}
}

// FilterByRole keeps messages with one of roles, in their original order.
func FilterByRole(roles ...domain.Role) SquashFunc {
	keep := Roles(roles...)
	return func(_ context.Context, msgs []domain.Message) ([]domain.Message, error) {
		var out []domain.Message
		for _, m := range msgs {
			if keep(m) {
				out = append(out, m)
			}
		}
		return out, nil
	}
}

// KeepAll forwards every message.
func KeepAll() SquashFunc {
	return func(_ context.Context, msgs []domain.Message) ([]domain.Message, error) {
		return msgs, nil
	}
}
