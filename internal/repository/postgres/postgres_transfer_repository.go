package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/observability"
	"github.com/tomiwa-dev/creatorpay/internal/models"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresTransferRepository struct {
	db *sql.DB
}

func NewPostgresTransferRepository(db *sql.DB) *PostgresTransferRepository {
	return &PostgresTransferRepository{db: db}
}

func (r *PostgresTransferRepository) Create(ctx context.Context, transfer *models.Transfer) (int64, error) {
	var err error
	tracer := otel.Tracer("transfer-repository")
	ctx, span := tracer.Start(ctx, "CreateTransfer")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateTransfer", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateTransfer").Observe(time.Since(start).Seconds())
	}()

	if transfer == nil {
		err = fmt.Errorf("transfer is nil")
		return 0, err
	}
	if transfer.Amount <= 0 {
		err = pkgerrors.ErrInvalidAmount
		slog.Error("amount must be positive", "method", "Create", "amount", transfer.Amount, "error", err)
		return 0, err
	}

	span.SetAttributes(attribute.String("user_id", transfer.UserID), attribute.Int64("amount", transfer.Amount))

	query := `INSERT INTO transfers (user_id, amount, currency, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, transfer.UserID, transfer.Amount, transfer.Currency).
		Scan(&transfer.ID, &transfer.CreatedAt, &transfer.UpdatedAt)
	if err != nil {
		slog.Error("failed to create transfer", "method", "Create", "user_id", transfer.UserID, "error", err)
		return 0, fmt.Errorf("failed to create transfer: %w", err)
	}

	transfer.Status = models.StatusPending
	slog.Info("transfer created", "method", "Create", "id", transfer.ID, "user_id", transfer.UserID, "amount", transfer.Amount)
	return transfer.ID, nil
}

func (r *PostgresTransferRepository) GetByID(ctx context.Context, id int64) (*models.Transfer, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *PostgresTransferRepository) GetByReference(ctx context.Context, reference string) (*models.Transfer, error) {
	return r.get(ctx, `WHERE reference = $1`, reference)
}

func (r *PostgresTransferRepository) get(ctx context.Context, where string, arg interface{}) (*models.Transfer, error) {
	var t models.Transfer
	var reference sql.NullString
	query := `SELECT id, user_id, amount, currency, reference, status, created_at, updated_at FROM transfers ` + where
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&t.ID, &t.UserID, &t.Amount, &t.Currency, &reference, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrTransferNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	t.Reference = reference.String
	return &t, nil
}

func (r *PostgresTransferRepository) SetReference(ctx context.Context, id int64, reference string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transfers SET reference = $2, updated_at = now() WHERE id = $1`, id, reference)
	if err != nil {
		return fmt.Errorf("failed to set transfer reference: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrTransferNotFound
	}
	return nil
}

func (r *PostgresTransferRepository) FinalizeByID(ctx context.Context, id int64, status models.TransactionStatus) error {
	if !status.Terminal() {
		return pkgerrors.ErrInvalidStatus
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transfers SET status = $2, updated_at = now() WHERE id = $1 AND status = 'pending'`,
		id, status)
	if err != nil {
		slog.Error("failed to finalize transfer", "method", "FinalizeByID", "transfer_id", id, "error", err)
		return fmt.Errorf("failed to finalize transfer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if probeErr := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transfers WHERE id = $1)`, id).Scan(&exists); probeErr != nil {
			return fmt.Errorf("failed to probe transfer: %w", probeErr)
		}
		if !exists {
			return pkgerrors.ErrTransferNotFound
		}
		return pkgerrors.ErrAlreadyProcessed
	}

	slog.Info("transfer finalized", "method", "FinalizeByID", "transfer_id", id, "status", status)
	return nil
}
