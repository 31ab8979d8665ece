package authority

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/brunomdev/crebito/internal/cache/cachewire"
	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models"
)

const recvPoll = 200 * time.Millisecond

// Server exposes the dispatcher over a ZeroMQ ROUTER socket. Workers
// connect DEALER sockets and may keep several requests in flight;
// replies are addressed to the requesting identity and matched client
// side by request id. The socket loop processes messages one at a time,
// preserving the dispatcher's arrival-order guarantee.
type Server struct {
	endpoint string
	cache    interfaces.AccountCache
	log      zerolog.Logger
}

func NewServer(endpoint string, cache interfaces.AccountCache, log zerolog.Logger) *Server {
	return &Server{endpoint: endpoint, cache: cache, log: log}
}

// Run binds the ROUTER socket and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	soc, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return fmt.Errorf("authority socket: %w", err)
	}
	defer soc.Close()
	if err := soc.SetLinger(0); err != nil {
		return err
	}
	if err := soc.SetRcvtimeo(recvPoll); err != nil {
		return err
	}
	if err := soc.Bind(s.endpoint); err != nil {
		return fmt.Errorf("authority bind %s: %w", s.endpoint, err)
	}
	s.log.Info().Str("endpoint", s.endpoint).Msg("cache authority listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		parts, err := soc.RecvMessageBytes(0)
		if err != nil {
			if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
				continue
			}
			s.log.Error().Err(err).Msg("authority receive failed")
			continue
		}
		if len(parts) < 2 {
			s.log.Warn().Int("frames", len(parts)).Msg("dropping short message")
			continue
		}
		identity := parts[0]
		payload := parts[len(parts)-1]

		var req cachewire.Request
		if err := msgpack.Unmarshal(payload, &req); err != nil {
			s.log.Warn().Err(err).Msg("dropping undecodable request")
			continue
		}

		reply := s.handle(ctx, req)
		raw, err := msgpack.Marshal(reply)
		if err != nil {
			s.log.Error().Err(err).Str("request_id", req.ID).Msg("encode reply failed")
			continue
		}
		if _, err := soc.SendMessage(identity, raw); err != nil {
			s.log.Error().Err(err).Str("request_id", req.ID).Msg("send reply failed")
		}
	}
}

func (s *Server) handle(ctx context.Context, req cachewire.Request) cachewire.Reply {
	reply := cachewire.Reply{ID: req.ID}

	switch req.Queue {
	case cachewire.QueueClear:
		if err := s.cache.Clear(ctx); err != nil {
			reply.Error = cachewire.ErrCodeBadRequest
			return reply
		}
		reply.Found = true
		return reply

	case cachewire.QueueAdd:
		if req.Data == nil {
			reply.Error = cachewire.ErrCodeBadRequest
			return reply
		}
		return s.handleOp(ctx, req.ID, *req.Data)

	default:
		reply.Error = cachewire.ErrCodeBadRequest
		return reply
	}
}

func (s *Server) handleOp(ctx context.Context, id string, op cachewire.Operation) cachewire.Reply {
	reply := cachewire.Reply{ID: id}

	switch op.Type {
	case cachewire.OpGet:
		snap, found, err := s.cache.Get(ctx, op.Key)
		if err != nil {
			reply.Error = cachewire.ErrCodeBadRequest
			return reply
		}
		reply.Found = found
		if found {
			reply.Snapshot = &snap
		}
		return reply

	case cachewire.OpPut:
		if op.Snapshot == nil {
			reply.Error = cachewire.ErrCodeBadRequest
			return reply
		}
		snap, err := s.cache.Put(ctx, op.Key, *op.Snapshot)
		if err != nil {
			reply.Error = cachewire.ErrCodeBadRequest
			return reply
		}
		reply.Found = true
		reply.Snapshot = &snap
		return reply

	case cachewire.OpTransaction:
		if op.Tx == nil {
			reply.Error = cachewire.ErrCodeBadRequest
			return reply
		}
		snap, err := s.cache.Transaction(ctx, op.Key, *op.Tx)
		switch {
		case errors.Is(err, models.ErrLimitExceeded):
			reply.Error = cachewire.ErrCodeNoLimit
		case errors.Is(err, models.ErrAccountNotFound):
			reply.Error = cachewire.ErrCodeNotFound
		case err != nil:
			reply.Error = cachewire.ErrCodeBadRequest
		default:
			reply.Found = true
			reply.Snapshot = &snap
		}
		return reply

	default:
		reply.Error = cachewire.ErrCodeBadRequest
		return reply
	}
}
