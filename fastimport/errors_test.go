package fastimport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("short read")
	err := wrapError(SizeMismatch, "blob", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "size mismatch")
	assert.Contains(t, err.Error(), "blob")
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "malformed stream", MalformedStream.String())
	assert.Equal(t, "callback error", CallbackError.String())
}
