package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsControlSignal(t *testing.T) {
	assert.True(t, IsControlSignal(&TerminationSignal{TemplateID: "end"}))
	assert.True(t, IsControlSignal(fmt.Errorf("wrapped: %w", &JumpSignal{Target: "x"})))
	assert.True(t, IsControlSignal(&BreakSignal{}))

	assert.False(t, IsControlSignal(errors.New("boom")))
	assert.False(t, IsControlSignal(&ConfigurationError{Err: ErrTemplateNotFound}))
	assert.False(t, IsControlSignal(nil))
}

func TestErrorUnwrapping(t *testing.T) {
	assert.ErrorIs(t, &TerminationSignal{}, ErrEndOfConversation)
	assert.ErrorIs(t, &UnknownToolError{Tool: "x"}, ErrToolNotFound)
	assert.ErrorIs(t, &ConfigurationError{TemplateID: "j", Err: ErrTemplateNotFound}, ErrTemplateNotFound)

	cause := errors.New("rate limited")
	err := &CollaboratorError{TemplateID: "gen", Collaborator: CollaboratorModel, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `"gen"`)
}
