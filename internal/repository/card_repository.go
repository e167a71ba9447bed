package repository

import (
	"context"

	"github.com/tomiwa-dev/creatorpay/internal/models"
)

type CardRepository interface {
	// StoreIfAbsent inserts the authorization unless one already exists
	// for the email, in which case it returns ErrCardAlreadyStored.
	StoreIfAbsent(ctx context.Context, card *models.CardAuthorization) error
	GetByEmail(ctx context.Context, email string) (*models.CardAuthorization, error)
}
