package models

import "time"

// CardAuthorization is a tokenized card credential for off-session
// charges. At most one record exists per email.
type CardAuthorization struct {
	ID                int64     `json:"id"`
	AuthorizationCode string    `json:"authorization_code"`
	Email             string    `json:"email"`
	CardType          string    `json:"card_type,omitempty"`
	Last4             string    `json:"last4,omitempty"`
	ExpMonth          string    `json:"exp_month,omitempty"`
	ExpYear           string    `json:"exp_year,omitempty"`
	Bank              string    `json:"bank,omitempty"`
	AccountName       string    `json:"account_name,omitempty"`
	Reusable          bool      `json:"reusable"`
	CountryCode       string    `json:"country_code,omitempty"`
	Bin               string    `json:"bin,omitempty"`
	Channel           string    `json:"channel,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
