package repository

import (
	"context"

	"github.com/tomiwa-dev/creatorpay/internal/models"
)

type WalletRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)
	// Credit applies a positive delta tagged with reference. A reference
	// already recorded against the wallet yields ErrEntryAlreadyApplied
	// and leaves the balance untouched.
	Credit(ctx context.Context, walletID, amount int64, reference string) (newBalance int64, err error)
	// Debit applies a negative delta under the same idempotency
	// discipline and fails with ErrInsufficientFunds if the balance
	// would go negative.
	Debit(ctx context.Context, walletID, amount int64, reference string) (newBalance int64, err error)
	Entries(ctx context.Context, walletID int64) ([]models.WalletEntry, error)
}
