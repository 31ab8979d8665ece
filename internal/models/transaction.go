package models

// TransactionInput represents a validated intent to debit or credit an
// account. Amount is a positive integer number of centavos.
type TransactionInput struct {
	Amount      int64  `json:"valor" msgpack:"valor"`
	Kind        string `json:"tipo" msgpack:"tipo"`
	Description string `json:"descricao" msgpack:"descricao"`
}
