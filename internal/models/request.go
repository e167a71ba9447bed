package models

import "time"

// Request is a creator deal owned by the request subsystem. The
// settlement core only reads the creator and amounts and writes Paid.
type Request struct {
	ID           int64     `json:"id"`
	CreatorID    string    `json:"creator_id"`
	Amount       int64     `json:"amount"`
	FastTrackFee int64     `json:"fast_track_fee"`
	Paid         bool      `json:"paid"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
