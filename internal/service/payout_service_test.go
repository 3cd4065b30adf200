package service

import (
	"context"
	"testing"
	"time"

	"tourhub/config"
	"tourhub/internal/apperr"
	"tourhub/internal/cache"
	"tourhub/internal/domain"
	"tourhub/internal/models"
	"tourhub/internal/repository"
	"tourhub/internal/testutil"
	"tourhub/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPayoutService(db *gorm.DB, gw payment.Gateway) *PayoutService {
	return NewPayoutService(db, config.PayoutConfig{
		MinimumCents:      5000,
		ReconcileInterval: time.Minute,
		StaleAfter:        10 * time.Minute,
		MaxAttempts:       3,
	}, "usd", gw, cache.NewMemoryLocker(), nil)
}

func fundHost(t *testing.T, db *gorm.DB, hostID uint, cents int64) {
	t.Helper()
	require.NoError(t, db.Model(&models.Host{}).Where("id = ?", hostID).Update("balance_cents", cents).Error)
}

func TestPayoutBelowMinimum(t *testing.T) {
	db := testutil.NewDB(t)
	user, host := testutil.CreateHost(t, db)
	fundHost(t, db, host.ID, 10000)

	_, err := newPayoutService(db, payment.NewStubGateway("s")).Request(context.Background(), hostActor(user), PayoutRequest{AmountCents: 4000})
	assert.EqualError(t, err, "Minimum payout amount is $50")

	var fresh models.Host
	testutil.Reload(t, db, &fresh, host.ID)
	assert.Equal(t, int64(10000), fresh.BalanceCents)
}

func TestPayoutMinimumKeepsCents(t *testing.T) {
	db := testutil.NewDB(t)
	user, host := testutil.CreateHost(t, db)
	fundHost(t, db, host.ID, 10000)
	svc := NewPayoutService(db, config.PayoutConfig{MinimumCents: 5050, MaxAttempts: 3}, "usd",
		payment.NewStubGateway("s"), cache.NewMemoryLocker(), nil)

	_, err := svc.Request(context.Background(), hostActor(user), PayoutRequest{AmountCents: 5000})
	assert.EqualError(t, err, "Minimum payout amount is $50.50")
	assert.Equal(t, 400, apperr.StatusOf(err))
}

func TestPayoutInsufficientBalance(t *testing.T) {
	db := testutil.NewDB(t)
	user, host := testutil.CreateHost(t, db)
	fundHost(t, db, host.ID, 6000)

	_, err := newPayoutService(db, payment.NewStubGateway("s")).Request(context.Background(), hostActor(user), PayoutRequest{AmountCents: 7000})
	assert.EqualError(t, err, "Insufficient balance")

	var count int64
	require.NoError(t, db.Model(&models.Payout{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPayoutCompletes(t *testing.T) {
	db := testutil.NewDB(t)
	gw := payment.NewStubGateway("s")
	user, host := testutil.CreateHost(t, db)
	fundHost(t, db, host.ID, 12000)

	p, err := newPayoutService(db, gw).Request(context.Background(), hostActor(user), PayoutRequest{AmountCents: 8000})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutCompleted, p.Status)
	assert.NotEmpty(t, p.TransferID)
	assert.Equal(t, 1, p.Attempts)

	transfers := gw.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, "acct_test", transfers[0].Destination)
	assert.Equal(t, int64(8000), transfers[0].AmountCents)

	var fresh models.Host
	testutil.Reload(t, db, &fresh, host.ID)
	assert.Equal(t, int64(4000), fresh.BalanceCents)
	assert.NotNil(t, fresh.LastPayoutAt)
}

func TestFailedTransferRestoresBalance(t *testing.T) {
	db := testutil.NewDB(t)
	gw := payment.NewStubGateway("s")
	gw.FailTransfers = true
	user, host := testutil.CreateHost(t, db)
	fundHost(t, db, host.ID, 9000)

	p, err := newPayoutService(db, gw).Request(context.Background(), hostActor(user), PayoutRequest{AmountCents: 9000})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutFailed, p.Status)
	assert.Contains(t, p.FailureReason, "declined")

	var fresh models.Host
	testutil.Reload(t, db, &fresh, host.ID)
	assert.Equal(t, int64(9000), fresh.BalanceCents)

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("host_id = ?", host.ID).Order("id").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-9000), entries[0].AmountCents)
	assert.Equal(t, domain.LedgerPayoutReversal, entries[1].Type)
}

func TestPayoutRequiresAccount(t *testing.T) {
	db := testutil.NewDB(t)
	user, host := testutil.CreateHost(t, db)
	fundHost(t, db, host.ID, 9000)
	require.NoError(t, db.Model(&models.Host{}).Where("id = ?", host.ID).Update("payout_account_id", "").Error)

	_, err := newPayoutService(db, payment.NewStubGateway("s")).Request(context.Background(), hostActor(user), PayoutRequest{AmountCents: 6000})
	assert.Equal(t, 400, apperr.StatusOf(err))
}

func TestReconcileSettlesStalePayouts(t *testing.T) {
	db := testutil.NewDB(t)
	gw := payment.NewStubGateway("s")
	_, host := testutil.CreateHost(t, db)
	old := time.Now().Add(-time.Hour)

	retry := &models.Payout{HostID: host.ID, AmountCents: 6000, Currency: "usd", Status: domain.PayoutPending,
		Destination: "acct_test", Attempts: 1, CreatedAt: old, UpdatedAt: old}
	exhausted := &models.Payout{HostID: host.ID, AmountCents: 7000, Currency: "usd", Status: domain.PayoutPending,
		Destination: "acct_test", Attempts: 3, CreatedAt: old, UpdatedAt: old}
	fresh := &models.Payout{HostID: host.ID, AmountCents: 5000, Currency: "usd", Status: domain.PayoutPending,
		Destination: "acct_test"}
	require.NoError(t, db.Create(retry).Error)
	require.NoError(t, db.Create(exhausted).Error)
	require.NoError(t, db.Create(fresh).Error)

	n, err := newPayoutService(db, gw).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var got models.Payout
	testutil.Reload(t, db, &got, retry.ID)
	assert.Equal(t, domain.PayoutCompleted, got.Status)
	assert.Equal(t, 2, got.Attempts)

	testutil.Reload(t, db, &got, exhausted.ID)
	assert.Equal(t, domain.PayoutFailed, got.Status)

	testutil.Reload(t, db, &got, fresh.ID)
	assert.Equal(t, domain.PayoutPending, got.Status)

	var h models.Host
	testutil.Reload(t, db, &h, host.ID)
	assert.Equal(t, int64(7000), h.BalanceCents)
	assert.Len(t, gw.Transfers(), 1)
}

func TestPayoutStatsAndLedger(t *testing.T) {
	db := testutil.NewDB(t)
	user, host := testutil.CreateHost(t, db)
	svc := newPayoutService(db, payment.NewStubGateway("s"))
	fundHost(t, db, host.ID, 15000)

	_, err := svc.Request(context.Background(), hostActor(user), PayoutRequest{AmountCents: 5000})
	require.NoError(t, err)

	stats, err := svc.Stats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), stats.BalanceCents)
	assert.True(t, stats.CanRequest)
	assert.Equal(t, int64(5000), stats.TotalPaidCents)

	entries, total, err := svc.Ledger(user.ID, repository.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, domain.LedgerPayout, entries[0].Type)
}
