package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/brunomdev/crebito/internal/models"
)

// Client-facing messages. The wording is part of the wire contract.
const (
	MsgMalformedBody      = "Houve um erro ao processar o corpo enviado."
	MsgInvalidAmount      = "valor precisa ser um número inteiro"
	MsgInvalidKind        = "tipo precisa ser c ou d"
	MsgInvalidDescription = "descricao precisa ser uma string com no maximo 10 caracteres"
	MsgLimitExceeded      = "Saldo não cobre essa transação."
	MsgUnknownAccount     = "Cliente não existe"
	MsgInvalidID          = "Id precisa ser um número"
	MsgRouteNotFound      = "Endpoint não encontrado!"
	MsgInternal           = "Erro interno ao processar a requisição."
)

// Rejection is a structured request failure carrying the HTTP status
// and the exact body to send back. Never retried.
type Rejection struct {
	Status  int
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func reject(status int, message string) *Rejection {
	return &Rejection{Status: status, Message: message}
}

// ParseTransaction validates a transaction submission body. Fields are
// checked in order valor, tipo, descricao; the first failure wins.
func ParseTransaction(body []byte) (models.TransactionInput, *Rejection) {
	var raw struct {
		Valor     json.RawMessage `json:"valor"`
		Tipo      json.RawMessage `json:"tipo"`
		Descricao json.RawMessage `json:"descricao"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.TransactionInput{}, reject(422, MsgMalformedBody)
	}

	amount, ok := parseAmount(raw.Valor)
	if !ok {
		return models.TransactionInput{}, reject(422, MsgInvalidAmount)
	}

	var kind string
	if raw.Tipo == nil || json.Unmarshal(raw.Tipo, &kind) != nil {
		return models.TransactionInput{}, reject(422, MsgInvalidKind)
	}
	if kind != models.KindCredit && kind != models.KindDebit {
		return models.TransactionInput{}, reject(422, MsgInvalidKind)
	}

	var description string
	if raw.Descricao == nil || json.Unmarshal(raw.Descricao, &description) != nil {
		return models.TransactionInput{}, reject(422, MsgInvalidDescription)
	}
	if n := utf8.RuneCountInString(description); n < 1 || n > 10 {
		return models.TransactionInput{}, reject(422, MsgInvalidDescription)
	}
	// A description that parses as a number is not a description.
	if _, err := strconv.ParseFloat(description, 64); err == nil {
		return models.TransactionInput{}, reject(422, MsgInvalidDescription)
	}

	return models.TransactionInput{Amount: amount, Kind: kind, Description: description}, nil
}

// parseAmount accepts only a positive integral JSON number. Quoted
// strings, fractions, and non-finite values are rejected.
func parseAmount(raw json.RawMessage) (int64, bool) {
	if raw == nil {
		return 0, false
	}
	s := string(bytes.TrimSpace(raw))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n >= 1
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if f != math.Trunc(f) || f < 1 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
