package ingress

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/brunomdev/crebito/internal/models"
	"github.com/brunomdev/crebito/internal/service"
)

// TransactionSubmitter handles POST /clientes/{id}/transacoes.
type TransactionSubmitter interface {
	Submit(ctx context.Context, accountID int, body []byte) (service.TransactionResult, *service.Rejection)
}

// StatementProvider handles GET /clientes/{id}/extrato.
type StatementProvider interface {
	Statement(ctx context.Context, accountID int) (models.AccountSnapshot, *service.Rejection)
}

// Resetter handles POST /admin/reset.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Router dispatches parsed requests. Path ids are validated before any
// service is invoked: non-numeric ids are a 422, ids outside [1, N] a
// 404.
type Router struct {
	accounts     int
	transactions TransactionSubmitter
	statements   StatementProvider
	reset        Resetter
	log          zerolog.Logger
}

func NewRouter(accounts int, transactions TransactionSubmitter, statements StatementProvider, reset Resetter, log zerolog.Logger) *Router {
	return &Router{
		accounts:     accounts,
		transactions: transactions,
		statements:   statements,
		reset:        reset,
		log:          log,
	}
}

// Handle routes one request to its handler.
func (r *Router) Handle(ctx context.Context, req *Request) *Response {
	segments := strings.Split(strings.Trim(req.Path, "/"), "/")

	switch {
	case req.Method == "POST" && len(segments) == 2 && segments[0] == "admin" && segments[1] == "reset":
		return r.handleReset(ctx)

	case req.Method == "GET" && len(segments) == 3 && segments[0] == "clientes" && segments[2] == "extrato":
		return r.withAccountID(segments[1], func(id int) *Response {
			return r.handleStatement(ctx, id)
		})

	case req.Method == "POST" && len(segments) == 3 && segments[0] == "clientes" && segments[2] == "transacoes":
		return r.withAccountID(segments[1], func(id int) *Response {
			return r.handleTransaction(ctx, id, req.Body)
		})

	default:
		return PlainText(404, service.MsgRouteNotFound)
	}
}

func (r *Router) withAccountID(raw string, handler func(id int) *Response) *Response {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return PlainText(422, service.MsgInvalidID)
	}
	if id < 1 || id > r.accounts {
		return PlainText(404, service.MsgUnknownAccount)
	}
	return handler(id)
}

func (r *Router) handleTransaction(ctx context.Context, accountID int, body []byte) *Response {
	result, rej := r.transactions.Submit(ctx, accountID, body)
	if rej != nil {
		return PlainText(rej.Status, rej.Message)
	}
	return JSON(200, result)
}

func (r *Router) handleStatement(ctx context.Context, accountID int) *Response {
	snapshot, rej := r.statements.Statement(ctx, accountID)
	if rej != nil {
		return PlainText(rej.Status, rej.Message)
	}
	return JSON(200, snapshot)
}

func (r *Router) handleReset(ctx context.Context) *Response {
	if err := r.reset.Reset(ctx); err != nil {
		r.log.Error().Err(err).Msg("reset failed")
		return PlainText(500, service.MsgInternal)
	}
	return JSON(200, map[string]string{"message": "Banco de dados resetado com sucesso"})
}
