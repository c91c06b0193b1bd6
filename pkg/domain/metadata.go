package domain

import "maps"

// Metadata is a copy-on-write key/value store. A Metadata value handed out by
// a Session or Message must never be written to directly; use With and
// Without, which return a fresh map.
type Metadata map[string]any

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// String returns the value under key if it is a string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Int returns the value under key as an int. Float values (common after JSON
// decoding) are truncated.
func (m Metadata) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// With returns a copy of m with key set to value.
func (m Metadata) With(key string, value any) Metadata {
	out := make(Metadata, len(m)+1)
	maps.Copy(out, m)
	out[key] = value
	return out
}

// Merge returns a copy of m with every entry of other applied on top.
func (m Metadata) Merge(other map[string]any) Metadata {
	out := make(Metadata, len(m)+len(other))
	maps.Copy(out, m)
	maps.Copy(out, other)
	return out
}

// Without returns a copy of m without the given keys. With no keys it
// returns an empty map.
func (m Metadata) Without(keys ...string) Metadata {
	if len(keys) == 0 {
		return Metadata{}
	}
	out := maps.Clone(m)
	if out == nil {
		out = Metadata{}
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Clone performs a deep copy. Nested maps and slices are copied recursively;
// any other value is copied by assignment and is expected to be immutable.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = deepClone(v)
	}
	return out
}

func deepClone(v any) any {
	switch t := v.(type) {
	case Metadata:
		return t.Clone()
	case map[string]any:
		return map[string]any(Metadata(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepClone(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []int:
		return append([]int(nil), t...)
	case Message:
		return t.Clone()
	case []Message:
		out := make([]Message, len(t))
		for i, e := range t {
			out[i] = e.Clone()
		}
		return out
	default:
		return v
	}
}
