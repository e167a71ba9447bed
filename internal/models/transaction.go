package models

import "time"

type Transaction struct {
	ID        int64             `json:"id"`
	Reference string            `json:"reference"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Email     string            `json:"email"`
	WalletID  *int64            `json:"wallet_id,omitempty"`
	RequestID *int64            `json:"request_id,omitempty"`
	Kind      TransactionKind   `json:"kind"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type TransactionKind string

const (
	KindWalletFunding  TransactionKind = "wallet_funding"
	KindRequestPayment TransactionKind = "request_payment"
)

type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// Terminal reports whether a status can no longer change.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}
