package domain

import "reflect"

// SessionDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	SessionID string `json:"session_id"`

	// Appended holds messages added since the old snapshot.
	Appended []Message `json:"appended,omitempty"`

	// Metadata contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Metadata map[string]any `json:"metadata,omitempty"`

	// JumpTarget is set when the pending jump changed.
	JumpTarget *string `json:"jump_target,omitempty"`
}

// Diff calculates the difference between two snapshots. If old is nil, the
// diff represents the entire new snapshot. It returns nil when nothing changed.
func Diff(old *Snapshot, new Snapshot) *SessionDiff {
	diff := &SessionDiff{SessionID: new.ID}

	start := 0
	if old != nil {
		start = min(len(old.Messages), len(new.Messages))
	}
	if len(new.Messages) > start {
		diff.Appended = new.Messages[start:]
	}

	diff.Metadata = diffMetadata(old, new)

	if old == nil {
		if new.JumpTarget != "" {
			diff.JumpTarget = &new.JumpTarget
		}
	} else if old.JumpTarget != new.JumpTarget {
		diff.JumpTarget = &new.JumpTarget
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffMetadata(old *Snapshot, new Snapshot) map[string]any {
	delta := make(map[string]any)
	if old == nil {
		for k, v := range new.Metadata {
			delta[k] = v
		}
	} else {
		for k, v := range new.Metadata {
			if ov, ok := old.Metadata[k]; !ok || !reflect.DeepEqual(ov, v) {
				delta[k] = v
			}
		}
		for k := range old.Metadata {
			if _, ok := new.Metadata[k]; !ok {
				delta[k] = nil
			}
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return len(d.Appended) == 0 && len(d.Metadata) == 0 && d.JumpTarget == nil
}
