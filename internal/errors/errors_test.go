package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackendErrorCarriesBackendName(t *testing.T) {
	err := NewBackendError("request failed", "replicate", BackendUnreachable, stderrors.New("connection refused"))

	assert.Equal(t, "replicate", err.Backend())
	assert.Equal(t, BackendUnreachable, err.Kind())
	assert.Contains(t, err.Error(), "replicate backend")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsBackendUnreachableThroughWrapping(t *testing.T) {
	inner := NewBackendError("request failed", "local", BackendUnreachable, nil)
	wrapped := Wrap(inner, "generation failed")

	assert.True(t, IsBackendError(wrapped))
	assert.True(t, IsBackendUnreachable(wrapped))
	assert.False(t, IsInvalidConfig(wrapped))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrapf(cause, "while generating %q", "sunset")

	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), `while generating "sunset"`)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
}

func TestUnknownProjectKind(t *testing.T) {
	err := NewConfigError("project not found", "no-such-slug", UnknownProject, nil)
	assert.True(t, IsUnknownProject(err))
	assert.Equal(t, "no-such-slug", err.Param())
}
