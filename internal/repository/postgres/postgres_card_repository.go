package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/tomiwa-dev/creatorpay/internal/models"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
)

type PostgresCardRepository struct {
	db *sql.DB
}

func NewPostgresCardRepository(db *sql.DB) *PostgresCardRepository {
	return &PostgresCardRepository{db: db}
}

// StoreIfAbsent relies on the unique index on email; the conflict clause
// makes the second store for an email a detectable no-op.
func (r *PostgresCardRepository) StoreIfAbsent(ctx context.Context, card *models.CardAuthorization) error {
	if card == nil {
		return pkgerrors.ErrNilCard
	}
	if card.AuthorizationCode == "" || card.Email == "" {
		return fmt.Errorf("%w: authorization code and email are required", pkgerrors.ErrInvalidInput)
	}

	query := `INSERT INTO card_authorizations
		(authorization_code, email, card_type, last4, exp_month, exp_year, bank, account_name, reusable, country_code, bin, channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (email) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		card.AuthorizationCode, card.Email, card.CardType, card.Last4, card.ExpMonth, card.ExpYear,
		card.Bank, card.AccountName, card.Reusable, card.CountryCode, card.Bin, card.Channel,
	)
	if err != nil {
		slog.Error("failed to store card authorization", "method", "StoreIfAbsent", "email", card.Email, "error", err)
		return fmt.Errorf("failed to store card authorization: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if inserted == 0 {
		return pkgerrors.ErrCardAlreadyStored
	}

	slog.Info("card authorization stored", "method", "StoreIfAbsent", "email", card.Email, "card_type", card.CardType, "last4", card.Last4)
	return nil
}

func (r *PostgresCardRepository) GetByEmail(ctx context.Context, email string) (*models.CardAuthorization, error) {
	var card models.CardAuthorization
	query := `SELECT id, authorization_code, email, card_type, last4, exp_month, exp_year, bank, account_name, reusable, country_code, bin, channel, created_at
		FROM card_authorizations WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&card.ID, &card.AuthorizationCode, &card.Email, &card.CardType, &card.Last4, &card.ExpMonth, &card.ExpYear,
		&card.Bank, &card.AccountName, &card.Reusable, &card.CountryCode, &card.Bin, &card.Channel, &card.CreatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get card authorization: %w", err)
	}
	return &card, nil
}
