package errcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(OK))
	assert.False(t, Retryable(InvalidDocument))
	assert.False(t, Retryable(ResourceMissing))
	assert.True(t, Retryable(SystemError))
	assert.True(t, Retryable(RendererUnavailable))
}
