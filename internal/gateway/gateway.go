package gateway

import "context"

// ProviderStatus is the transaction state reported by the provider on a
// verify call.
type ProviderStatus struct {
	Reference string
	Status    string
	Amount    int64 // minor units
	Email     string
}

// PaymentGateway abstracts the payment provider's REST API. Amounts on
// this interface are in the platform's major unit; implementations own
// the minor-unit conversion.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, amount int64, email, reference string, metadata map[string]string) (authorizationURL string, err error)
	VerifyTransaction(ctx context.Context, reference string) (*ProviderStatus, error)
	CreateTransfer(ctx context.Context, recipientCode string, amount int64, currency string) (transferReference string, err error)
}
