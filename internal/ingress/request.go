package ingress

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxBodyBytes bounds a single request body read; maxHeaderBytes bounds
// the start line and headers together. One line can never exceed the
// bufio buffer: readLine fails instead of growing it.
const (
	maxBodyBytes   = 1 << 20
	maxHeaderBytes = 8 << 10
)

var errMalformedRequest = errors.New("malformed request")

// Request is the tuple handed to the router: start line, headers and
// body. Header names are lowercased.
type Request struct {
	Method  string
	Path    string
	Proto   string
	Headers map[string]string
	Body    []byte
}

// ReadRequest incrementally assembles one request frame from the
// stream: start line and headers are read line by line, the body is
// read exactly to Content-Length. Requests split across several TCP
// reads are reassembled rather than dropped.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: bad start line %q", errMalformedRequest, line)
	}
	req := &Request{
		Method:  parts[0],
		Path:    parts[1],
		Proto:   parts[2],
		Headers: make(map[string]string),
	}

	headerBytes := len(line)
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		headerBytes += len(line) + 2
		if headerBytes > maxHeaderBytes {
			return nil, fmt.Errorf("%w: headers exceed %d bytes", errMalformedRequest, maxHeaderBytes)
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: bad header %q", errMalformedRequest, line)
		}
		req.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	if cl, ok := req.Headers["content-length"]; ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 || n > maxBodyBytes {
			return nil, fmt.Errorf("%w: bad content-length %q", errMalformedRequest, cl)
		}
		if n > 0 {
			req.Body = make([]byte, n)
			if _, err := io.ReadFull(br, req.Body); err != nil {
				return nil, err
			}
		}
	}
	return req, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return "", fmt.Errorf("%w: line too long", errMalformedRequest)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}
