package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickets_SignVerify(t *testing.T) {
	tickets := NewTickets("secret")
	ticket, err := tickets.Sign("sid-1", time.Minute)
	require.NoError(t, err)

	sid, err := tickets.Verify(ticket)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", sid)
}

func TestTickets_Expired(t *testing.T) {
	tickets := NewTickets("secret")
	base := time.Now()
	tickets.now = func() time.Time { return base }
	ticket, err := tickets.Sign("sid", time.Second)
	require.NoError(t, err)

	tickets.now = func() time.Time { return base.Add(time.Minute) }
	_, err = tickets.Verify(ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestTickets_WrongSecret(t *testing.T) {
	ticket, err := NewTickets("a").Sign("sid", time.Minute)
	require.NoError(t, err)
	_, err = NewTickets("b").Verify(ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	_, err = NewTickets("a").Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidTicket)
}
