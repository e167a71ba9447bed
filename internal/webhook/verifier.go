package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
)

// Notification is the parsed, authenticated webhook payload.
type Notification struct {
	Reference         string
	Status            string
	Email             string
	Amount            int64
	AuthorizationCode string
	CardType          string
	Last4             string
	ExpMonth          string
	ExpYear           string
	Bank              string
	AccountName       string
	Reusable          bool
	CountryCode       string
	Bin               string
	Channel           string
}

// HasCardAuthorization reports whether the provider attached a reusable
// card token to the notification.
func (n *Notification) HasCardAuthorization() bool {
	return n.AuthorizationCode != ""
}

type payload struct {
	Data *struct {
		Reference         string `json:"reference"`
		Status            string `json:"status"`
		Email             string `json:"email"`
		Amount            int64  `json:"amount"`
		AuthorizationCode string `json:"authorizationCode"`
		CardType          string `json:"cardType"`
		Last4             string `json:"last4"`
		ExpMonth          string `json:"expMonth"`
		ExpYear           string `json:"expYear"`
		Bank              string `json:"bank"`
		AccountName       string `json:"accountName"`
		Reusable          bool   `json:"reusable"`
		CountryCode       string `json:"countryCode"`
		Bin               string `json:"bin"`
		Channel           string `json:"channel"`
	} `json:"data"`
}

// Verifier authenticates and parses provider notifications. It has no
// side effects; nothing downstream sees a payload that failed either
// check.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the HMAC-SHA512 signature over the raw request bytes,
// then parses the payload. The signature is computed over the bytes as
// delivered, not over a re-serialized form.
func (v *Verifier) Verify(rawBody []byte, signature string) (*Notification, error) {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		slog.Error("webhook signature mismatch")
		return nil, pkgerrors.ErrSignatureMismatch
	}

	var p payload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrMalformedPayload, err)
	}
	if p.Data == nil {
		return nil, fmt.Errorf("%w: missing data", pkgerrors.ErrMalformedPayload)
	}
	if p.Data.Reference == "" || p.Data.Status == "" {
		return nil, fmt.Errorf("%w: reference and status are required", pkgerrors.ErrMalformedPayload)
	}

	return &Notification{
		Reference:         p.Data.Reference,
		Status:            p.Data.Status,
		Email:             p.Data.Email,
		Amount:            p.Data.Amount,
		AuthorizationCode: p.Data.AuthorizationCode,
		CardType:          p.Data.CardType,
		Last4:             p.Data.Last4,
		ExpMonth:          p.Data.ExpMonth,
		ExpYear:           p.Data.ExpYear,
		Bank:              p.Data.Bank,
		AccountName:       p.Data.AccountName,
		Reusable:          p.Data.Reusable,
		CountryCode:       p.Data.CountryCode,
		Bin:               p.Data.Bin,
		Channel:           p.Data.Channel,
	}, nil
}
