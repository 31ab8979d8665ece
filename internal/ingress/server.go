// Package ingress accepts raw byte-stream connections, assembles
// request frames and writes back raw response frames. There is no
// general-purpose HTTP stack on this path.
package ingress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog"
)

// HandlerFunc produces exactly one response per request.
type HandlerFunc func(ctx context.Context, req *Request) *Response

// Server is the accept loop. One goroutine per connection; connections
// are persistent and serve requests until EOF or error.
type Server struct {
	handler HandlerFunc
	log     zerolog.Logger
	lis     net.Listener
}

func NewServer(handler HandlerFunc, log zerolog.Logger) *Server {
	return &Server{handler: handler, log: log}
}

// Listen binds the TCP listener.
func (s *Server) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ingress listen %s: %w", addr, err)
	}
	s.lis = lis
	return nil
}

// Addr returns the bound address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.lis.Close()
	}()

	for {
		conn, err := s.lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ingress accept: %w", err)
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)

	for {
		req, err := ReadRequest(br)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Debug().Err(err).Msg("dropping connection")
			}
			return
		}
		resp := s.handler(ctx, req)
		if err := resp.WriteTo(conn); err != nil {
			s.log.Debug().Err(err).Msg("response write failed")
			return
		}
	}
}
