package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brunomdev/crebito/internal/cache/cachewire"
	"github.com/brunomdev/crebito/internal/models"
)

func TestCorrelatorResolvesPendingCall(t *testing.T) {
	c := newCorrelator()
	ch := c.register("req-1")

	ok := c.resolve(cachewire.Reply{ID: "req-1", Found: true, Snapshot: &models.AccountSnapshot{}})
	require.True(t, ok)

	reply := <-ch
	require.Equal(t, "req-1", reply.ID)
	require.True(t, reply.Found)
}

func TestCorrelatorDiscardsUnknownReply(t *testing.T) {
	c := newCorrelator()
	require.False(t, c.resolve(cachewire.Reply{ID: "never-sent"}))
}

func TestCorrelatorDiscardsLateReply(t *testing.T) {
	c := newCorrelator()
	c.register("req-1")
	c.cancel("req-1")

	require.False(t, c.resolve(cachewire.Reply{ID: "req-1"}), "reply after cancel must be discarded")
}

func TestCorrelatorResolvesEachIDOnce(t *testing.T) {
	c := newCorrelator()
	c.register("req-1")

	require.True(t, c.resolve(cachewire.Reply{ID: "req-1"}))
	require.False(t, c.resolve(cachewire.Reply{ID: "req-1"}), "duplicate reply must not resolve twice")
}
