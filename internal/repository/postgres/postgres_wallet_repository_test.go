package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
)

var (
	entryInsertQuery = regexp.QuoteMeta(`INSERT INTO wallet_entries (wallet_id, reference, amount) VALUES ($1, $2, $3)
		ON CONFLICT (reference) DO NOTHING`)
	balanceUpdateQuery = regexp.QuoteMeta(`UPDATE wallets
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance`)
	walletProbeQuery = regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`)
)

func newWalletRepo(t *testing.T) (*PostgresWalletRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresWalletRepository(db), mock
}

func TestWalletRepository_Credit(t *testing.T) {
	t.Run("entry and balance move in one transaction", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(entryInsertQuery).
			WithArgs(int64(42), "R1", int64(5000)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(balanceUpdateQuery).
			WithArgs(int64(5000), int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(7000))
		mock.ExpectCommit()

		balance, err := repo.Credit(context.Background(), 42, 5000, "R1")
		require.NoError(t, err)
		assert.Equal(t, int64(7000), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replayed reference is not applied twice", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(entryInsertQuery).
			WithArgs(int64(42), "R1", int64(5000)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repo.Credit(context.Background(), 42, 5000, "R1")
		assert.ErrorIs(t, err, pkgerrors.ErrEntryAlreadyApplied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		_, err := repo.Credit(context.Background(), 42, 0, "R1")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty reference", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		_, err := repo.Credit(context.Background(), 42, 5000, "")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_Debit(t *testing.T) {
	t.Run("records a negative entry", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(entryInsertQuery).
			WithArgs(int64(42), "transfer:7", int64(-20000)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(balanceUpdateQuery).
			WithArgs(int64(-20000), int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(30000))
		mock.ExpectCommit()

		balance, err := repo.Debit(context.Background(), 42, 20000, "transfer:7")
		require.NoError(t, err)
		assert.Equal(t, int64(30000), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds rolls the entry back", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(entryInsertQuery).
			WithArgs(int64(42), "transfer:7", int64(-20000)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(balanceUpdateQuery).
			WithArgs(int64(-20000), int64(42)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(walletProbeQuery).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := repo.Debit(context.Background(), 42, 20000, "transfer:7")
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown wallet", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(entryInsertQuery).
			WithArgs(int64(99), "transfer:7", int64(-20000)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(balanceUpdateQuery).
			WithArgs(int64(-20000), int64(99)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(walletProbeQuery).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := repo.Debit(context.Background(), 99, 20000, "transfer:7")
		assert.ErrorIs(t, err, pkgerrors.ErrWalletNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_GetByUserID(t *testing.T) {
	selectQuery := regexp.QuoteMeta(`SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`)

	t.Run("found", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		now := time.Now()
		mock.ExpectQuery(selectQuery).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}).
				AddRow(42, "u1", 7000, now, now))

		wallet, err := repo.GetByUserID(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), wallet.ID)
		assert.Equal(t, int64(7000), wallet.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectQuery(selectQuery).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByUserID(context.Background(), "ghost")
		assert.ErrorIs(t, err, pkgerrors.ErrWalletNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_Entries(t *testing.T) {
	repo, mock := newWalletRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, wallet_id, reference, amount, created_at FROM wallet_entries WHERE wallet_id = $1 ORDER BY created_at`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "wallet_id", "reference", "amount", "created_at"}).
			AddRow(1, 42, "R1", 5000, now).
			AddRow(2, 42, "transfer:7", -2000, now))

	entries, err := repo.Entries(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "R1", entries[0].Reference)
	assert.Equal(t, int64(-2000), entries[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
