package strategy

import (
	"github.com/aretw0/tendril/pkg/domain"
)

// InitFunc adapts a function to the template.InitStrategy interface.
type InitFunc func(parent *domain.Session) *domain.Session

func (f InitFunc) Initialize(parent *domain.Session) *domain.Session { return f(parent) }

// inherit builds a child session holding deep copies of the parent messages
// selected by keep, and a deep copy of the parent metadata.
func inherit(parent *domain.Session, msgs []domain.Message) *domain.Session {
	copied := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		copied[i] = m.Clone()
	}
	return domain.NewSession(
		domain.WithMessages(copied...),
		domain.WithMetadata(parent.Metadata()),
	)
}

// Clean starts the child with no messages.
func Clean() InitFunc {
	return func(parent *domain.Session) *domain.Session {
		return inherit(parent, nil)
	}
}

// InheritSystem copies only the parent's system messages.
func InheritSystem() InitFunc {
	return Filtered(func(m domain.Message) bool { return m.Role == domain.RoleSystem })
}

// LastN copies the parent's last n messages.
func LastN(n int) InitFunc {
	return func(parent *domain.Session) *domain.Session {
		msgs := parent.Messages()
		if n < len(msgs) {
			msgs = msgs[len(msgs)-max(n, 0):]
		}
		return inherit(parent, msgs)
	}
}

// Filtered copies the parent messages accepted by keep.
func Filtered(keep func(domain.Message) bool) InitFunc {
	return func(parent *domain.Session) *domain.Session {
		var msgs []domain.Message
		for _, m := range parent.Messages() {
			if keep(m) {
				msgs = append(msgs, m)
			}
		}
		return inherit(parent, msgs)
	}
}

// Roles is a Filtered predicate accepting the given roles.
func Roles(roles ...domain.Role) func(domain.Message) bool {
	return func(m domain.Message) bool {
		for _, r := range roles {
			if m.Role == r {
				return true
			}
		}
		return false
	}
}
