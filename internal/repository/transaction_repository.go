package repository

import (
	"context"

	"github.com/tomiwa-dev/creatorpay/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (int64, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	// FinalizeByReference moves a pending transaction to the given
	// terminal status. Exactly one concurrent caller wins; the rest get
	// ErrAlreadyProcessed. ErrTransactionNotFound if the reference is
	// unknown.
	FinalizeByReference(ctx context.Context, reference string, status models.TransactionStatus) (*models.Transaction, error)
}
