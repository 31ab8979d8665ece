package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/brunomdev/crebito/internal/config"
)

// startStandaloneWorker boots a full worker on a loopback port and
// returns its address once it accepts connections.
func startStandaloneWorker(t *testing.T, accounts int, limits []int64) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	cfg := config.DefaultConfig()
	cfg.ListenAddr = addr
	cfg.Standalone = true
	cfg.Accounts = accounts
	cfg.SeedLimits = limits
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errs := make(chan error, 1)
	go func() {
		errs <- RunWorker(ctx, cfg, zerolog.Nop())
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errs:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("worker did not shut down")
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("worker never started listening")
	return ""
}

type rawResponse struct {
	Status int
	Body   string
}

// do writes one request frame on the connection and reads back exactly
// one response frame.
func do(t *testing.T, conn net.Conn, br *bufio.Reader, method, path, body string) rawResponse {
	t.Helper()

	var frame strings.Builder
	fmt.Fprintf(&frame, "%s %s HTTP/1.1\r\n", method, path)
	if body != "" {
		fmt.Fprintf(&frame, "Content-Type: application/json\r\nContent-Length: %d\r\n", len(body))
	}
	frame.WriteString("\r\n")
	frame.WriteString(body)

	_, err := conn.Write([]byte(frame.String()))
	require.NoError(t, err)

	status, err := br.ReadString('\n')
	require.NoError(t, err)
	parts := strings.SplitN(status, " ", 3)
	require.Len(t, parts, 3)
	code, err := strconv.Atoi(parts[1])
	require.NoError(t, err)

	length := -1
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if v, ok := strings.CutPrefix(strings.ToLower(line), "content-length:"); ok {
			length, err = strconv.Atoi(strings.TrimSpace(v))
			require.NoError(t, err)
		}
	}
	require.GreaterOrEqual(t, length, 0, "response missing content-length")

	buf := make([]byte, length)
	_, err = io.ReadFull(br, buf)
	require.NoError(t, err)
	return rawResponse{Status: code, Body: string(buf)}
}

func TestWorkerEndToEnd(t *testing.T) {
	addr := startStandaloneWorker(t, 1, []int64{1000})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	// A debit inside the limit is accepted and the new balance returned.
	resp := do(t, conn, br, "POST", "/clientes/1/transacoes",
		`{"valor": 500, "tipo": "d", "descricao": "almoco"}`)
	require.Equal(t, 200, resp.Status)
	require.JSONEq(t, `{"limite": 1000, "saldo": -500}`, resp.Body)

	// The statement reflects the debit immediately.
	resp = do(t, conn, br, "GET", "/clientes/1/extrato", "")
	require.Equal(t, 200, resp.Status)

	var statement struct {
		Balance struct {
			Total       int64  `json:"total"`
			Limit       int64  `json:"limite"`
			StatementAt string `json:"data_extrato"`
		} `json:"saldo"`
		Recent []struct {
			Amount      int64  `json:"valor"`
			Kind        string `json:"tipo"`
			Description string `json:"descricao"`
		} `json:"ultimas_transacoes"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &statement))
	require.Equal(t, int64(-500), statement.Balance.Total)
	require.Equal(t, int64(1000), statement.Balance.Limit)
	require.NotEmpty(t, statement.Balance.StatementAt)
	require.Len(t, statement.Recent, 1)
	require.Equal(t, int64(500), statement.Recent[0].Amount)
	require.Equal(t, "d", statement.Recent[0].Kind)
	require.Equal(t, "almoco", statement.Recent[0].Description)

	// A debit that would land below -limit is rejected and changes
	// nothing.
	resp = do(t, conn, br, "POST", "/clientes/1/transacoes",
		`{"valor": 600, "tipo": "d", "descricao": "tv"}`)
	require.Equal(t, 422, resp.Status)

	resp = do(t, conn, br, "GET", "/clientes/1/extrato", "")
	require.Equal(t, 200, resp.Status)
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &statement))
	require.Equal(t, int64(-500), statement.Balance.Total)
	require.Len(t, statement.Recent, 1)

	// A credit lifts the balance back up.
	resp = do(t, conn, br, "POST", "/clientes/1/transacoes",
		`{"valor": 700, "tipo": "c", "descricao": "salario"}`)
	require.Equal(t, 200, resp.Status)
	require.JSONEq(t, `{"limite": 1000, "saldo": 200}`, resp.Body)
}

func TestWorkerValidationAndRouting(t *testing.T) {
	addr := startStandaloneWorker(t, 1, []int64{1000})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	resp := do(t, conn, br, "POST", "/clientes/1/transacoes",
		`{"valor": 1.5, "tipo": "d", "descricao": "x"}`)
	require.Equal(t, 422, resp.Status)
	require.Equal(t, "valor precisa ser um número inteiro", resp.Body)

	resp = do(t, conn, br, "POST", "/clientes/abc/transacoes", `{}`)
	require.Equal(t, 422, resp.Status)
	require.Equal(t, "Id precisa ser um número", resp.Body)

	resp = do(t, conn, br, "GET", "/clientes/2/extrato", "")
	require.Equal(t, 404, resp.Status)
	require.Equal(t, "Cliente não existe", resp.Body)

	resp = do(t, conn, br, "GET", "/nada", "")
	require.Equal(t, 404, resp.Status)
	require.Equal(t, "Endpoint não encontrado!", resp.Body)
}

func TestWorkerAdminReset(t *testing.T) {
	addr := startStandaloneWorker(t, 1, []int64{1000})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	resp := do(t, conn, br, "POST", "/clientes/1/transacoes",
		`{"valor": 250, "tipo": "d", "descricao": "caf"}`)
	require.Equal(t, 200, resp.Status)

	// The durable write is published off the request path; let it land
	// before wiping everything.
	time.Sleep(100 * time.Millisecond)

	resp = do(t, conn, br, "POST", "/admin/reset", "")
	require.Equal(t, 200, resp.Status)
	require.JSONEq(t, `{"message": "Banco de dados resetado com sucesso"}`, resp.Body)

	resp = do(t, conn, br, "GET", "/clientes/1/extrato", "")
	require.Equal(t, 200, resp.Status)

	var statement struct {
		Balance struct {
			Total int64 `json:"total"`
		} `json:"saldo"`
		Recent []json.RawMessage `json:"ultimas_transacoes"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &statement))
	require.Equal(t, int64(0), statement.Balance.Total)
	require.Empty(t, statement.Recent)
}
