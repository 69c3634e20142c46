package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_HappyPath(t *testing.T) {
	s := NewSession("sid")
	assert.Equal(t, Waiting, s.State())
	require.NoError(t, s.MarkReady())
	require.NoError(t, s.MarkReceived())
	assert.Equal(t, Received, s.State())

	assert.ErrorIs(t, s.MarkReceived(), ErrInvalidTransition, "delivery happens once")
	assert.False(t, s.Expire())
}

func TestSession_TimeoutIsFinal(t *testing.T) {
	s := NewSession("sid")
	assert.True(t, s.Expire())
	assert.Equal(t, TimedOut, s.State())
	assert.ErrorIs(t, s.MarkReady(), ErrTimedOut)
	assert.False(t, s.Expire())
}

func TestSession_ReceivedRequiresReady(t *testing.T) {
	s := NewSession("sid")
	assert.ErrorIs(t, s.MarkReceived(), ErrInvalidTransition)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "waiting", Waiting.String())
	assert.Equal(t, "timed_out", TimedOut.String())
}
