package models

import "time"

type Wallet struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalletEntry is one applied balance delta. Reference is unique across
// all entries and doubles as the idempotency tag: a delta carrying a
// reference that is already recorded is never applied a second time.
type WalletEntry struct {
	ID        int64     `json:"id"`
	WalletID  int64     `json:"wallet_id"`
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
