package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/observability"
	"github.com/tomiwa-dev/creatorpay/internal/models"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (int64, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateTransaction").Observe(time.Since(start).Seconds())
	}()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return 0, err
	}

	if tx.Kind != models.KindWalletFunding && tx.Kind != models.KindRequestPayment {
		err = pkgerrors.ErrInvalidKind
		slog.Error("invalid transaction kind", "method", "Create", "kind", tx.Kind, "error", err)
		return 0, err
	}

	if tx.Amount <= 0 {
		err = pkgerrors.ErrInvalidAmount
		slog.Error("amount must be positive", "method", "Create", "amount", tx.Amount, "error", err)
		return 0, err
	}

	if tx.Reference == "" {
		err = fmt.Errorf("reference is required")
		slog.Error("reference is required", "method", "Create", "error", err)
		return 0, err
	}

	span.SetAttributes(
		attribute.String("reference", tx.Reference),
		attribute.Int64("amount", tx.Amount),
		attribute.String("kind", string(tx.Kind)),
	)

	query := `INSERT INTO transactions (reference, amount, currency, email, wallet_id, request_id, kind, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, tx.Reference, tx.Amount, tx.Currency, tx.Email, tx.WalletID, tx.RequestID, tx.Kind).
		Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			slog.Error("duplicate transaction reference", "method", "Create", "reference", tx.Reference)
			return 0, fmt.Errorf("reference %q already exists: %w", tx.Reference, err)
		}
		slog.Error("failed to create transaction", "method", "Create", "reference", tx.Reference, "error", err)
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	tx.Status = models.StatusPending
	slog.Info("transaction created", "method", "Create", "id", tx.ID, "reference", tx.Reference, "kind", tx.Kind, "amount", tx.Amount)
	return tx.ID, nil
}

func (r *PostgresTransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "GetTransactionByReference")
	span.SetAttributes(attribute.String("reference", reference))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetTransactionByReference", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetTransactionByReference").Observe(time.Since(start).Seconds())
	}()

	var tx models.Transaction
	query := `SELECT id, reference, amount, currency, email, wallet_id, request_id, kind, status, created_at, updated_at
		FROM transactions WHERE reference = $1`
	err = r.db.QueryRowContext(ctx, query, reference).Scan(
		&tx.ID, &tx.Reference, &tx.Amount, &tx.Currency, &tx.Email,
		&tx.WalletID, &tx.RequestID, &tx.Kind, &tx.Status, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction by reference", "method", "GetByReference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	return &tx, nil
}

// FinalizeByReference is the settlement race decider: the guarded UPDATE
// flips status only while it is still pending, so exactly one of any
// number of concurrent callers observes a row.
func (r *PostgresTransactionRepository) FinalizeByReference(ctx context.Context, reference string, status models.TransactionStatus) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "FinalizeTransaction")
	span.SetAttributes(attribute.String("reference", reference), attribute.String("status", string(status)))
	defer span.End()

	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("FinalizeTransaction", result).Inc()
		observability.RepositoryDuration.WithLabelValues("FinalizeTransaction").Observe(time.Since(start).Seconds())
	}()

	if !status.Terminal() {
		err = pkgerrors.ErrInvalidStatus
		slog.Error("finalize requires a terminal status", "method", "FinalizeByReference", "status", status, "error", err)
		return nil, err
	}

	var tx models.Transaction
	query := `UPDATE transactions
		SET status = $2, updated_at = now()
		WHERE reference = $1 AND status = 'pending'
		RETURNING id, reference, amount, currency, email, wallet_id, request_id, kind, status, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, reference, status).Scan(
		&tx.ID, &tx.Reference, &tx.Amount, &tx.Currency, &tx.Email,
		&tx.WalletID, &tx.RequestID, &tx.Kind, &tx.Status, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		// Lost the race or the reference is unknown.
		var existing models.TransactionStatus
		probeErr := r.db.QueryRowContext(ctx, `SELECT status FROM transactions WHERE reference = $1`, reference).Scan(&existing)
		if stderrors.Is(probeErr, sql.ErrNoRows) {
			err = pkgerrors.ErrTransactionNotFound
			return nil, err
		}
		if probeErr != nil {
			err = fmt.Errorf("failed to probe transaction status: %w", probeErr)
			slog.Error("failed to probe transaction status", "method", "FinalizeByReference", "reference", reference, "error", probeErr)
			return nil, err
		}
		err = pkgerrors.ErrAlreadyProcessed
		slog.Info("transaction already finalized", "method", "FinalizeByReference", "reference", reference, "status", existing)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to finalize transaction", "method", "FinalizeByReference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to finalize transaction: %w", err)
	}

	slog.Info("transaction finalized", "method", "FinalizeByReference", "reference", reference, "status", status)
	return &tx, nil
}
