package ingress

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/brunomdev/crebito/internal/models"
	"github.com/brunomdev/crebito/internal/service"
)

type stubSubmitter struct {
	result service.TransactionResult
	rej    *service.Rejection
	gotID  int
	body   []byte
}

func (s *stubSubmitter) Submit(_ context.Context, accountID int, body []byte) (service.TransactionResult, *service.Rejection) {
	s.gotID = accountID
	s.body = body
	return s.result, s.rej
}

type stubStatements struct {
	snap models.AccountSnapshot
	rej  *service.Rejection
}

func (s *stubStatements) Statement(context.Context, int) (models.AccountSnapshot, *service.Rejection) {
	return s.snap, s.rej
}

type stubResetter struct {
	called bool
	err    error
}

func (s *stubResetter) Reset(context.Context) error {
	s.called = true
	return s.err
}

func newTestRouter(tx *stubSubmitter, st *stubStatements, rs *stubResetter) *Router {
	return NewRouter(5, tx, st, rs, zerolog.Nop())
}

func TestRouteTransaction(t *testing.T) {
	tx := &stubSubmitter{result: service.TransactionResult{Total: -500, Limit: 1000}}
	router := newTestRouter(tx, &stubStatements{}, &stubResetter{})

	resp := router.Handle(context.Background(), &Request{
		Method: "POST",
		Path:   "/clientes/3/transacoes",
		Body:   []byte(`{"valor": 500, "tipo": "d", "descricao": "x"}`),
	})

	require.Equal(t, 200, resp.Status)
	require.Equal(t, 3, tx.gotID)
	require.JSONEq(t, `{"saldo": -500, "limite": 1000}`, string(resp.Body))
}

func TestRouteTransactionRejected(t *testing.T) {
	tx := &stubSubmitter{rej: &service.Rejection{Status: 422, Message: service.MsgLimitExceeded}}
	router := newTestRouter(tx, &stubStatements{}, &stubResetter{})

	resp := router.Handle(context.Background(), &Request{Method: "POST", Path: "/clientes/1/transacoes"})
	require.Equal(t, 422, resp.Status)
	require.Equal(t, service.MsgLimitExceeded, string(resp.Body))
	require.Equal(t, "text/plain", resp.ContentType)
}

func TestRouteStatement(t *testing.T) {
	st := &stubStatements{snap: models.AccountSnapshot{
		Balance: models.Balance{Total: 10, Limit: 1000},
		Recent:  []models.LedgerEntry{},
	}}
	router := newTestRouter(&stubSubmitter{}, st, &stubResetter{})

	resp := router.Handle(context.Background(), &Request{Method: "GET", Path: "/clientes/1/extrato"})
	require.Equal(t, 200, resp.Status)
	require.Contains(t, string(resp.Body), `"saldo"`)
	require.Contains(t, string(resp.Body), `"ultimas_transacoes"`)
}

func TestRouteNonNumericID(t *testing.T) {
	router := newTestRouter(&stubSubmitter{}, &stubStatements{}, &stubResetter{})

	for _, path := range []string{"/clientes/abc/extrato", "/clientes/1.5/transacoes"} {
		method := "GET"
		if path == "/clientes/1.5/transacoes" {
			method = "POST"
		}
		resp := router.Handle(context.Background(), &Request{Method: method, Path: path})
		require.Equal(t, 422, resp.Status, path)
		require.Equal(t, service.MsgInvalidID, string(resp.Body), path)
	}
}

func TestRouteAccountOutOfRange(t *testing.T) {
	router := newTestRouter(&stubSubmitter{}, &stubStatements{}, &stubResetter{})

	for _, id := range []string{"0", "6", "-1"} {
		resp := router.Handle(context.Background(), &Request{Method: "GET", Path: "/clientes/" + id + "/extrato"})
		require.Equal(t, 404, resp.Status, id)
		require.Equal(t, service.MsgUnknownAccount, string(resp.Body), id)
	}
}

func TestRouteUnknownPath(t *testing.T) {
	router := newTestRouter(&stubSubmitter{}, &stubStatements{}, &stubResetter{})

	for _, req := range []*Request{
		{Method: "GET", Path: "/"},
		{Method: "POST", Path: "/clientes/1/extrato"},
		{Method: "GET", Path: "/clientes/1/transacoes"},
		{Method: "DELETE", Path: "/admin/reset"},
	} {
		resp := router.Handle(context.Background(), req)
		require.Equal(t, 404, resp.Status, req.Path)
		require.Equal(t, service.MsgRouteNotFound, string(resp.Body), req.Path)
	}
}

func TestRouteReset(t *testing.T) {
	rs := &stubResetter{}
	router := newTestRouter(&stubSubmitter{}, &stubStatements{}, rs)

	resp := router.Handle(context.Background(), &Request{Method: "POST", Path: "/admin/reset"})
	require.Equal(t, 200, resp.Status)
	require.True(t, rs.called)
	require.JSONEq(t, `{"message": "Banco de dados resetado com sucesso"}`, string(resp.Body))
}

func TestRouteResetFailure(t *testing.T) {
	rs := &stubResetter{err: errors.New("store down")}
	router := newTestRouter(&stubSubmitter{}, &stubStatements{}, rs)

	resp := router.Handle(context.Background(), &Request{Method: "POST", Path: "/admin/reset"})
	require.Equal(t, 500, resp.Status)
	require.Equal(t, service.MsgInternal, string(resp.Body))
}
