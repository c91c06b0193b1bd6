package template

import (
	"reflect"

	"github.com/aretw0/tendril/pkg/domain"
)

// LastMessageIs holds when the newest non-control message has exactly the
// given content.
func LastMessageIs(content string) Condition {
	return func(s *domain.Session) bool {
		m, ok := s.LastNonControl()
		return ok && m.Content == content
	}
}

// MetaEquals holds when the metadata key equals value. Numbers compare by
// value, so an int written by a hook still matches after the session went
// through a JSON store and came back as float64.
func MetaEquals(key string, value any) Condition {
	return func(s *domain.Session) bool {
		v, ok := s.Metadata().Get(key)
		if !ok {
			return false
		}
		if a, ok := number(v); ok {
			b, ok := number(value)
			return ok && a == b
		}
		return reflect.DeepEqual(v, value)
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// MetaTrue holds when the metadata key is the boolean true.
func MetaTrue(key string) Condition {
	return MetaEquals(key, true)
}

// Not negates c.
func Not(c Condition) Condition {
	return func(s *domain.Session) bool { return !c(s) }
}

// Always is the condition that always holds.
func Always(*domain.Session) bool { return true }
