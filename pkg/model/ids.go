package model

import "github.com/google/uuid"

func newCallID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "call_" + uuid.NewString()
	}
	return "call_" + id.String()
}
