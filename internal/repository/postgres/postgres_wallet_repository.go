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

type PostgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) *PostgresWalletRepository {
	return &PostgresWalletRepository{db: db}
}

func (r *PostgresWalletRepository) GetByID(ctx context.Context, id int64) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.CreatedAt, &wallet.UpdatedAt)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrWalletNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *PostgresWalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.CreatedAt, &wallet.UpdatedAt)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrWalletNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get wallet by user id: %w", err)
	}
	return &wallet, nil
}

func (r *PostgresWalletRepository) Credit(ctx context.Context, walletID, amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, pkgerrors.ErrInvalidAmount
	}
	return r.applyDelta(ctx, "CreditWallet", walletID, amount, reference)
}

func (r *PostgresWalletRepository) Debit(ctx context.Context, walletID, amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, pkgerrors.ErrInvalidAmount
	}
	return r.applyDelta(ctx, "DebitWallet", walletID, -amount, reference)
}

// applyDelta records the entry and moves the balance in one database
// transaction. The unique index on wallet_entries.reference makes the
// delta at-most-once per tag; the balance guard keeps it non-negative.
func (r *PostgresWalletRepository) applyDelta(ctx context.Context, op string, walletID, delta int64, reference string) (int64, error) {
	var err error
	tracer := otel.Tracer("wallet-repository")
	ctx, span := tracer.Start(ctx, op)
	span.SetAttributes(
		attribute.Int64("wallet_id", walletID),
		attribute.Int64("delta", delta),
		attribute.String("reference", reference),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues(op, status).Inc()
		observability.RepositoryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	if reference == "" {
		err = fmt.Errorf("idempotency reference is required")
		return 0, err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", op, "wallet_id", walletID, "error", err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`INSERT INTO wallet_entries (wallet_id, reference, amount) VALUES ($1, $2, $3)
		ON CONFLICT (reference) DO NOTHING`,
		walletID, reference, delta,
	)
	if err != nil {
		slog.Error("failed to record wallet entry", "method", op, "wallet_id", walletID, "reference", reference, "error", err)
		return 0, fmt.Errorf("failed to record wallet entry: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if inserted == 0 {
		err = pkgerrors.ErrEntryAlreadyApplied
		slog.Info("wallet entry already applied", "method", op, "wallet_id", walletID, "reference", reference)
		return 0, err
	}

	var newBalance int64
	err = dbTx.QueryRowContext(ctx,
		`UPDATE wallets
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance`,
		delta, walletID,
	).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		var exists bool
		probeErr := dbTx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, walletID).Scan(&exists)
		if probeErr != nil {
			err = fmt.Errorf("failed to probe wallet: %w", probeErr)
			return 0, err
		}
		if !exists {
			err = pkgerrors.ErrWalletNotFound
			return 0, err
		}
		err = pkgerrors.ErrInsufficientFunds
		slog.Error("insufficient funds", "method", op, "wallet_id", walletID, "delta", delta)
		return 0, err
	}
	if err != nil {
		slog.Error("failed to update balance", "method", op, "wallet_id", walletID, "error", err)
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit", "method", op, "wallet_id", walletID, "error", err)
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Info("wallet delta applied", "method", op, "wallet_id", walletID, "delta", delta, "reference", reference, "balance", newBalance)
	return newBalance, nil
}

func (r *PostgresWalletRepository) Entries(ctx context.Context, walletID int64) ([]models.WalletEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, wallet_id, reference, amount, created_at FROM wallet_entries WHERE wallet_id = $1 ORDER BY created_at`,
		walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []models.WalletEntry
	for rows.Next() {
		var e models.WalletEntry
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Reference, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
