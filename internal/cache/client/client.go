// Package client is the per-worker stub for the cache authority. Every
// call is a correlated request/response exchange over a DEALER socket;
// the authority's reply is the result, a worker never trusts a local
// mirror.
package client

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/brunomdev/crebito/internal/cache/cachewire"
	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models"
)

// DefaultTimeout bounds the wait for an authority reply so a wedged
// channel fails the request instead of stalling it indefinitely.
const DefaultTimeout = 2 * time.Second

// recvPoll caps how long a freshly queued request can sit behind an
// idle receive before the loop flushes it.
const recvPoll = time.Millisecond

// Option configures a Client.
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// Client presents the authority's operations as local calls. Safe for
// concurrent use; a single I/O goroutine owns the socket.
type Client struct {
	log     zerolog.Logger
	timeout time.Duration
	pending *correlator

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects a DEALER socket to the authority endpoint and starts
// the I/O loop.
func Dial(endpoint string, opts ...Option) (*Client, error) {
	c := &Client{
		log:     zerolog.Nop(),
		timeout: DefaultTimeout,
		pending: newCorrelator(),
		send:    make(chan []byte, 256),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	ready := make(chan error, 1)
	go c.ioLoop(endpoint, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return c, nil
}

// Close stops the I/O loop. In-flight calls fail with
// models.ErrCacheUnavailable.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) ioLoop(endpoint string, ready chan<- error) {
	soc, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		ready <- fmt.Errorf("cache socket: %w", err)
		return
	}
	defer soc.Close()
	if err := soc.SetLinger(0); err != nil {
		ready <- err
		return
	}
	if err := soc.SetRcvtimeo(recvPoll); err != nil {
		ready <- err
		return
	}
	if err := soc.Connect(endpoint); err != nil {
		ready <- fmt.Errorf("cache connect %s: %w", endpoint, err)
		return
	}
	ready <- nil

	for {
		select {
		case <-c.done:
			return
		default:
		}

		// Flush queued requests before polling for replies.
		for flushed := false; !flushed; {
			select {
			case raw := <-c.send:
				if _, err := soc.SendBytes(raw, 0); err != nil {
					c.log.Error().Err(err).Msg("cache send failed")
				}
			default:
				flushed = true
			}
		}

		raw, err := soc.RecvBytes(0)
		if err != nil {
			if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
				continue
			}
			c.log.Error().Err(err).Msg("cache receive failed")
			continue
		}

		var reply cachewire.Reply
		if err := msgpack.Unmarshal(raw, &reply); err != nil {
			c.log.Warn().Err(err).Msg("discarding undecodable reply")
			continue
		}
		if !c.pending.resolve(reply) {
			c.log.Debug().Str("request_id", reply.ID).Msg("discarding late reply")
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, req cachewire.Request) (cachewire.Reply, error) {
	req.ID = uuid.NewString()
	raw, err := msgpack.Marshal(req)
	if err != nil {
		return cachewire.Reply{}, err
	}

	ch := c.pending.register(req.ID)
	defer c.pending.cancel(req.ID)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case c.send <- raw:
	case <-c.done:
		return cachewire.Reply{}, models.ErrCacheUnavailable
	case <-ctx.Done():
		return cachewire.Reply{}, ctx.Err()
	case <-timer.C:
		return cachewire.Reply{}, fmt.Errorf("%w: send queue full", models.ErrCacheUnavailable)
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-c.done:
		return cachewire.Reply{}, models.ErrCacheUnavailable
	case <-ctx.Done():
		return cachewire.Reply{}, ctx.Err()
	case <-timer.C:
		return cachewire.Reply{}, fmt.Errorf("%w: no reply within %s", models.ErrCacheUnavailable, c.timeout)
	}
}

func replyError(reply cachewire.Reply) error {
	switch reply.Error {
	case "":
		return nil
	case cachewire.ErrCodeNoLimit:
		return models.ErrLimitExceeded
	case cachewire.ErrCodeNotFound:
		return models.ErrAccountNotFound
	default:
		return fmt.Errorf("cache rejected request: %s", reply.Error)
	}
}

func (c *Client) Get(ctx context.Context, accountID int) (models.AccountSnapshot, bool, error) {
	reply, err := c.roundTrip(ctx, cachewire.Request{
		Queue: cachewire.QueueAdd,
		Data:  &cachewire.Operation{Type: cachewire.OpGet, Key: accountID},
	})
	if err != nil {
		return models.AccountSnapshot{}, false, err
	}
	if err := replyError(reply); err != nil {
		return models.AccountSnapshot{}, false, err
	}
	if !reply.Found || reply.Snapshot == nil {
		return models.AccountSnapshot{}, false, nil
	}
	return *reply.Snapshot, true, nil
}

func (c *Client) Put(ctx context.Context, accountID int, snapshot models.AccountSnapshot) (models.AccountSnapshot, error) {
	reply, err := c.roundTrip(ctx, cachewire.Request{
		Queue: cachewire.QueueAdd,
		Data:  &cachewire.Operation{Type: cachewire.OpPut, Key: accountID, Snapshot: &snapshot},
	})
	if err != nil {
		return models.AccountSnapshot{}, err
	}
	if err := replyError(reply); err != nil {
		return models.AccountSnapshot{}, err
	}
	if reply.Snapshot == nil {
		return models.AccountSnapshot{}, fmt.Errorf("cache put: reply without snapshot")
	}
	return *reply.Snapshot, nil
}

func (c *Client) Transaction(ctx context.Context, accountID int, tx models.TransactionInput) (models.AccountSnapshot, error) {
	reply, err := c.roundTrip(ctx, cachewire.Request{
		Queue: cachewire.QueueAdd,
		Data:  &cachewire.Operation{Type: cachewire.OpTransaction, Key: accountID, Tx: &tx},
	})
	if err != nil {
		return models.AccountSnapshot{}, err
	}
	if err := replyError(reply); err != nil {
		return models.AccountSnapshot{}, err
	}
	if reply.Snapshot == nil {
		return models.AccountSnapshot{}, fmt.Errorf("cache transaction: reply without snapshot")
	}
	return *reply.Snapshot, nil
}

func (c *Client) Clear(ctx context.Context) error {
	reply, err := c.roundTrip(ctx, cachewire.Request{Queue: cachewire.QueueClear})
	if err != nil {
		return err
	}
	return replyError(reply)
}

var _ interfaces.AccountCache = (*Client)(nil)
