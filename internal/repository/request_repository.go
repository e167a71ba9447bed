package repository

import (
	"context"

	"github.com/tomiwa-dev/creatorpay/internal/models"
)

type RequestRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	MarkPaid(ctx context.Context, id int64) error
}
