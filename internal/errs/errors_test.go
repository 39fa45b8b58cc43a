package errs

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	assert.Equal(t, "validation: phone: not a NANP number", NewValidation("phone", "not a NANP number").Error())
	assert.Equal(t, "validation: empty request", NewValidation("", "empty request").Error())
}

func TestNotFoundError_Message(t *testing.T) {
	assert.Equal(t, "lane not found: dallas->atlanta", NewNotFound("lane", "dallas->atlanta").Error())
}

func TestExternalServiceError_Unwrap(t *testing.T) {
	err := NewExternal("fmcsa", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsValidation(NewValidation("name", "empty")))
	assert.True(t, IsNotFound(NewNotFound("rate", "reefer/300")))
	assert.True(t, IsStaleData(&StaleDataError{Age: 3 * time.Hour, MaxAge: 2 * time.Hour}))
	assert.True(t, IsExternal(NewExternal("feed", context.DeadlineExceeded)))

	assert.False(t, IsValidation(nil))
	assert.False(t, IsNotFound(NewValidation("name", "empty")))
	assert.False(t, IsExternal(NewNotFound("rate", "x")))
}

func TestIsHelpers_SurviveWrapping(t *testing.T) {
	// Domain errors wrapped for context must still satisfy the type checks.
	wrapped := eris.Wrap(NewNotFound("carrier", "MC-12345"), "registry lookup")
	assert.True(t, IsNotFound(wrapped))

	wrapped = eris.Wrapf(NewValidation("zip", "too short"), "normalizing record %d", 7)
	assert.True(t, IsValidation(wrapped))
}
