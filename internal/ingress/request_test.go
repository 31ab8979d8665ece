package ingress

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadRequestFull(t *testing.T) {
	raw := "POST /clientes/1/transacoes HTTP/1.1\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 16\r\n" +
		"\r\n" +
		`{"valor": 10000}`

	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, "POST", req.Method)
	require.Equal(t, "/clientes/1/transacoes", req.Path)
	require.Equal(t, "HTTP/1.1", req.Proto)
	require.Equal(t, "application/json", req.Headers["content-type"])
	require.Equal(t, `{"valor": 10000}`, string(req.Body))
}

func TestReadRequestWithoutBody(t *testing.T) {
	raw := "GET /clientes/1/extrato HTTP/1.1\r\nHost: localhost\r\n\r\n"
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, "GET", req.Method)
	require.Empty(t, req.Body)
}

// A request fragmented across many TCP segments must be reassembled,
// not dropped.
func TestReadRequestFragmented(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	raw := "POST /clientes/2/transacoes HTTP/1.1\r\n" +
		"Content-Length: 45\r\n" +
		"\r\n" +
		`{"valor": 1, "tipo": "c", "descricao": "pix"}`

	go func() {
		defer clientConn.Close()
		for i := 0; i < len(raw); i += 7 {
			end := i + 7
			if end > len(raw) {
				end = len(raw)
			}
			clientConn.Write([]byte(raw[i:end]))
			time.Sleep(time.Millisecond)
		}
	}()

	req, err := ReadRequest(bufio.NewReader(serverConn))
	require.NoError(t, err)
	require.Equal(t, "/clientes/2/transacoes", req.Path)
	require.Len(t, req.Body, 45)
}

func TestReadRequestMalformedStartLine(t *testing.T) {
	_, err := ReadRequest(bufio.NewReader(strings.NewReader("GARBAGE\r\n\r\n")))
	require.Error(t, err)
}

func TestReadRequestOverlongStartLine(t *testing.T) {
	raw := "GET /" + strings.Repeat("a", 8192) + " HTTP/1.1\r\n\r\n"
	_, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
}

// Headers are bounded in total, not just per line, so a peer cannot
// grow memory by streaming them forever.
func TestReadRequestHeaderFlood(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "X-Pad-%d: %s\r\n", i, strings.Repeat("x", 100))
	}
	sb.WriteString("\r\n")

	_, err := ReadRequest(bufio.NewReader(strings.NewReader(sb.String())))
	require.Error(t, err)
}

func TestReadRequestBadContentLength(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nContent-Length: nope\r\n\r\n"
	_, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
}

func TestResponseFraming(t *testing.T) {
	var sb strings.Builder
	resp := PlainText(422, "Id precisa ser um número")
	require.NoError(t, resp.WriteTo(&sb))

	out := sb.String()
	require.True(t, strings.HasPrefix(out, "HTTP/1.1 422 UNPROCESSABLE ENTITY\r\n"))
	require.Contains(t, out, "Content-Type: text/plain\r\n")
	// The declared length must match the body exactly, including
	// multi-byte characters.
	body := "Id precisa ser um número"
	require.Contains(t, out, "Content-Length: 25\r\n")
	require.Len(t, []byte(body), 25)
	require.True(t, strings.HasSuffix(out, "\r\n\r\n"+body))
}

func TestResponseJSON(t *testing.T) {
	var sb strings.Builder
	resp := JSON(200, map[string]int64{"saldo": -500})
	require.NoError(t, resp.WriteTo(&sb))
	require.True(t, strings.HasPrefix(sb.String(), "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, sb.String(), "Content-Type: application/json\r\n")
	require.True(t, strings.HasSuffix(sb.String(), `{"saldo":-500}`))
}
