package client

import (
	"sync"

	"github.com/brunomdev/crebito/internal/cache/cachewire"
)

// correlator matches authority replies to the pending call that issued
// the request. Unmatched or late replies are discarded, never reapplied.
type correlator struct {
	mu      sync.Mutex
	waiting map[string]chan cachewire.Reply
}

func newCorrelator() *correlator {
	return &correlator{waiting: make(map[string]chan cachewire.Reply)}
}

func (c *correlator) register(id string) chan cachewire.Reply {
	ch := make(chan cachewire.Reply, 1)
	c.mu.Lock()
	c.waiting[id] = ch
	c.mu.Unlock()
	return ch
}

func (c *correlator) cancel(id string) {
	c.mu.Lock()
	delete(c.waiting, id)
	c.mu.Unlock()
}

// resolve delivers a reply to its waiter. Returns false if no call is
// pending under that id.
func (c *correlator) resolve(reply cachewire.Reply) bool {
	c.mu.Lock()
	ch, ok := c.waiting[reply.ID]
	if ok {
		delete(c.waiting, reply.ID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- reply
	return true
}
