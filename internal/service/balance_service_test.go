package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testAddr = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

type balanceTestDeps struct {
	svc        *BalanceServiceImpl
	chain      *mocks.MockTokenChain
	walletRepo *mocks.MockWalletRepository
}

func setupBalanceService(t *testing.T) *balanceTestDeps {
	ctrl := gomock.NewController(t)
	d := &balanceTestDeps{
		chain:      mocks.NewMockTokenChain(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
	}
	d.svc = NewBalanceService(d.chain, d.walletRepo, zerolog.Nop())
	return d
}

func cachedWallet(balance int64) *domain.Wallet {
	return &domain.Wallet{ID: uuid.New(), OwnerID: uuid.New(), Address: testAddr, Balance: decimal.NewFromInt(balance)}
}

func TestBalanceService_SyncBalance_WritesChangedValue(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()

	d.chain.EXPECT().ReadBalance(ctx, testAddr).Return(decimal.NewFromInt(75), nil)
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddr).Return(cachedWallet(50), nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, testAddr, decimal.NewFromInt(75)).Return(nil)

	got, err := d.svc.SyncBalance(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(75).Equal(got))
}

func TestBalanceService_SyncBalance_SkipsUnchangedValue(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()

	// 50 vs 50.000: equal by value, no write.
	d.chain.EXPECT().ReadBalance(ctx, testAddr).Return(decimal.RequireFromString("50.000"), nil)
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddr).Return(cachedWallet(50), nil)

	got, err := d.svc.SyncBalance(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(got))
}

func TestBalanceService_ReadBalance_NeverWrites(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()

	d.chain.EXPECT().ReadBalance(ctx, testAddr).Return(decimal.NewFromInt(9), nil)

	got, err := d.svc.ReadBalance(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(9).Equal(got))
}

func TestBalanceService_FallsBackToCacheWhenChainFails(t *testing.T) {
	for _, name := range []string{"sync", "read"} {
		t.Run(name, func(t *testing.T) {
			d := setupBalanceService(t)
			ctx := context.Background()

			d.chain.EXPECT().ReadBalance(ctx, testAddr).Return(decimal.Zero, errors.New("dial tcp 127.0.0.1:8545: connection refused"))
			d.walletRepo.EXPECT().GetByAddress(ctx, testAddr).Return(cachedWallet(42), nil)

			var got decimal.Decimal
			var err error
			if name == "sync" {
				got, err = d.svc.SyncBalance(ctx, testAddr)
			} else {
				got, err = d.svc.ReadBalance(ctx, testAddr)
			}
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(42).Equal(got))
		})
	}
}

func TestBalanceService_ChainFailsWithoutWallet(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()

	d.chain.EXPECT().ReadBalance(ctx, testAddr).Return(decimal.Zero, errors.New("timeout"))
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddr).Return(nil, nil)

	_, err := d.svc.ReadBalance(ctx, testAddr)
	assertAppError(t, err, "CHN_001")
}

func TestBalanceService_CacheWriteFailureStillAnswers(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()

	d.chain.EXPECT().ReadBalance(ctx, testAddr).Return(decimal.NewFromInt(3), nil)
	d.walletRepo.EXPECT().GetByAddress(ctx, testAddr).Return(cachedWallet(1), nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, testAddr, gomock.Any()).Return(errors.New("deadlock"))

	got, err := d.svc.SyncBalance(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(got))
}

func TestBalanceService_InvalidAddress(t *testing.T) {
	d := setupBalanceService(t)

	_, err := d.svc.SyncBalance(context.Background(), "alice")
	assertAppError(t, err, "VAL_003")
}

func TestBalanceService_CollapsesConcurrentReads(t *testing.T) {
	d := setupBalanceService(t)
	ctx := context.Background()

	release := make(chan struct{})
	d.chain.EXPECT().ReadBalance(gomock.Any(), testAddr).DoAndReturn(func(context.Context, string) (decimal.Decimal, error) {
		<-release
		return decimal.NewFromInt(5), nil
	}).MinTimes(1).MaxTimes(2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := d.svc.ReadBalance(ctx, testAddr)
			assert.NoError(t, err)
			assert.True(t, decimal.NewFromInt(5).Equal(got))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
}
