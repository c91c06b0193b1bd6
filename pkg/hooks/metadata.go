package hooks

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/template"
)

// UpdateMetadata replaces the metadata with the result of fn. fn receives a
// deep copy and may modify it freely.
func UpdateMetadata(fn func(md domain.Metadata, s *domain.Session) domain.Metadata) template.Hook {
	return func(_ context.Context, s *domain.Session) (*domain.Session, error) {
		next := s.Fork()
		next.SetMetadata(fn(s.Metadata().Clone(), s))
		return next, nil
	}
}

// Set stores value under key.
func Set(key string, value any) template.Hook {
	return func(_ context.Context, s *domain.Session) (*domain.Session, error) {
		return s.WithMeta(key, value), nil
	}
}

// ResetMetadata removes the given keys, or every key when none are given.
// Removing a key that is not present is an error.
func ResetMetadata(keys ...string) template.Hook {
	return func(_ context.Context, s *domain.Session) (*domain.Session, error) {
		md := s.Metadata()
		for _, k := range keys {
			if _, ok := md[k]; !ok {
				return nil, fmt.Errorf("reset metadata: key %q not found", k)
			}
		}
		next := s.Fork()
		next.SetMetadata(md.Without(keys...))
		return next, nil
	}
}

// Increment adds by to the integer under key, starting from initial when the
// key is absent. A non-integer value is an error.
func Increment(key string, initial, by int) template.Hook {
	return func(_ context.Context, s *domain.Session) (*domain.Session, error) {
		md := s.Metadata()
		current := initial
		if _, present := md[key]; present {
			n, ok := md.Int(key)
			if !ok {
				return nil, fmt.Errorf("increment %q: value %v is not an integer", key, md[key])
			}
			current = n
		}
		return s.WithMeta(key, current+by), nil
	}
}

// CountUp counts how many times it has run under key.
func CountUp(key string) template.Hook {
	return Increment(key, 0, 1)
}

// Lambda adapts a plain function to a hook.
func Lambda(fn func(ctx context.Context, s *domain.Session) (*domain.Session, error)) template.Hook {
	return fn
}
