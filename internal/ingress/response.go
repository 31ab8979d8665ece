package ingress

import (
	"encoding/json"
	"fmt"
	"io"
)

// Response is a raw frame written back to the connection. Content-Type
// and Content-Length always match the body exactly.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// PlainText builds a text/plain response.
func PlainText(status int, message string) *Response {
	return &Response{Status: status, ContentType: "text/plain", Body: []byte(message)}
}

// JSON builds an application/json response from v.
func JSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return PlainText(500, "Erro interno ao serializar a resposta.")
	}
	return &Response{Status: status, ContentType: "application/json", Body: body}
}

func reasonPhrase(status int) string {
	switch status {
	case 200:
		return "OK"
	case 404:
		return "NOT FOUND"
	case 422:
		return "UNPROCESSABLE ENTITY"
	case 500:
		return "INTERNAL SERVER ERROR"
	default:
		return "UNKNOWN"
	}
}

// WriteTo writes the full response frame.
func (r *Response) WriteTo(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n",
		r.Status, reasonPhrase(r.Status), r.ContentType, len(r.Body)); err != nil {
		return err
	}
	_, err := w.Write(r.Body)
	return err
}
