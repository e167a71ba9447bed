package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/tomiwa-dev/creatorpay/internal/models"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
)

type PostgresRequestRepository struct {
	db *sql.DB
}

func NewPostgresRequestRepository(db *sql.DB) *PostgresRequestRepository {
	return &PostgresRequestRepository{db: db}
}

func (r *PostgresRequestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	var req models.Request
	query := `SELECT id, creator_id, amount, fast_track_fee, paid, created_at, updated_at FROM requests WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.CreatorID, &req.Amount, &req.FastTrackFee, &req.Paid, &req.CreatedAt, &req.UpdatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrRequestNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

func (r *PostgresRequestRepository) MarkPaid(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE requests SET paid = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark request paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrRequestNotFound
	}
	return nil
}
