package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(ownerID uuid.UUID) *domain.Wallet {
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Address:   "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		KeyRef:    "v1:c2FsdA:c2VhbGVk",
		Balance:   decimal.RequireFromString("12.5"),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "owner_id", "address", "key_ref", "balance", "created_at", "updated_at"}).
		AddRow(w.ID, w.OwnerID, w.Address, w.KeyRef, w.Balance.String(), w.CreatedAt, w.UpdatedAt)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.OwnerID, w.Address, w.KeyRef, "12.5", w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Create_DuplicateOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.OwnerID, w.Address, w.KeyRef, "12.5", w.CreatedAt, w.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "wallets_owner_id_key"})

	err = repo.Create(context.Background(), w)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Create_OtherError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.OwnerID, w.Address, w.KeyRef, "12.5", w.CreatedAt, w.UpdatedAt).
		WillReturnError(errors.New("connection reset"))

	err = repo.Create(context.Background(), w)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)
}

func TestWalletRepo_GetByOwnerID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_id").
		WithArgs(w.OwnerID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByOwnerID(context.Background(), w.OwnerID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.Equal(t, w.Address, result.Address)
	assert.True(t, w.Balance.Equal(result.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByOwnerID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ownerID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner_id").
		WithArgs(ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	result, err := repo.GetByOwnerID(context.Background(), ownerID)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestWalletRepo_GetByAddress(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE lower\\(address\\)").
		WithArgs("0x71c7656ec7ab88b098defb751b7401b5f6d8976f").
		WillReturnRows(walletRow(w))

	result, err := repo.GetByAddress(context.Background(), "0x71c7656ec7ab88b098defb751b7401b5f6d8976f")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.OwnerID, result.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs("42.75", "0xabc").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateBalance(context.Background(), "0xabc", decimal.RequireFromString("42.75"))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs("1", "0xabc").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateBalance(context.Background(), "0xabc", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet not found")
}

func TestWalletRepo_AdjustBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ownerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance = balance \\+").
		WithArgs("-30", ownerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.AdjustBalance(context.Background(), tx, ownerID, decimal.NewFromInt(-30))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_AdjustBalance_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ownerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance = balance \\+").
		WithArgs("5", ownerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.AdjustBalance(context.Background(), tx, ownerID, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet not found")
}
