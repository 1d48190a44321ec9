package postgres

import (
	"context"
	"testing"
	"time"

	"campus-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := &domain.TransactionLog{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Amount:      decimal.NewFromInt(10),
		Kind:        domain.LedgerKindReward,
		Description: "attendance streak",
		TxHash:      "0xaaa",
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transaction_logs .+ ON CONFLICT").
		WithArgs(e.ID, e.OwnerID, "10", e.Kind, e.Description, e.TxHash, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Append(context.Background(), tx, e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	ownerID := uuid.New()
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "owner_id", "amount", "kind", "description", "tx_hash", "created_at"}).
		AddRow(uuid.New(), ownerID, "30", domain.LedgerKindPurchase, "order", "0x02", now).
		AddRow(uuid.New(), ownerID, "5.5", domain.LedgerKindReward, "quiz", "0x01", now.Add(-time.Hour))

	mock.ExpectQuery("SELECT .+ FROM transaction_logs WHERE owner_id").
		WithArgs(ownerID, 20).
		WillReturnRows(rows)

	logs, err := repo.ListByOwner(context.Background(), ownerID, 20)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.LedgerKindPurchase, logs[0].Kind)
	assert.True(t, logs[1].Amount.Equal(decimal.RequireFromString("5.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
