package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	var ve ValidationError
	assert.False(t, ve.HasAny())
	ve.Add("views.concurrency", "must be at least 1")
	ve.Add("", "bare message")

	assert.True(t, ve.HasAny())
	assert.True(t, errors.Is(ve, ErrInvalid))
	assert.Contains(t, ve.Error(), "views.concurrency: must be at least 1")
	assert.Contains(t, ve.Error(), " - bare message")
}

func TestKindedErrors(t *testing.T) {
	wrapped := fmt.Errorf("handle: %w", ErrNoPaths)
	assert.True(t, errors.Is(wrapped, New(KindBadRequest, "anything")))
	assert.False(t, errors.Is(wrapped, ErrMethodNotAllowed))
	assert.Equal(t, KindBadRequest, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	cause := errors.New("disk full")
	err := Wrap(cause, KindConfig, "cannot load")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[CONFIG] cannot load: disk full", err.Error())
}
