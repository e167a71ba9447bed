package repository

import (
	"context"

	"github.com/tomiwa-dev/creatorpay/internal/models"
)

type TransferRepository interface {
	Create(ctx context.Context, transfer *models.Transfer) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Transfer, error)
	GetByReference(ctx context.Context, reference string) (*models.Transfer, error)
	SetReference(ctx context.Context, id int64, reference string) error
	// FinalizeByID moves a pending transfer to a terminal status with
	// the same single-winner guarantee as transaction finalization.
	FinalizeByID(ctx context.Context, id int64, status models.TransactionStatus) error
}
