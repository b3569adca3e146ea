package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository/memstore"
)

func TestArtifacts_OrderNumberFormat(t *testing.T) {
	g := NewArtifactGenerator()
	n, err := g.OrderNumber(time.Date(2026, 1, 2, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Regexp(t, `^ORD_20260102_[0-9A-F]{6}$`, n)
}

func TestArtifacts_OTPIsSixDigits(t *testing.T) {
	g := NewArtifactGenerator()
	for i := 0; i < 50; i++ {
		otp, err := g.OTP()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, otp)
	}
}

func TestArtifacts_QRCodeIsPNGDataURL(t *testing.T) {
	url, err := NewArtifactGenerator().QRCode(QRPayload{OrderID: uuid.New(), OTP: "123456", UserID: uuid.New()})
	require.NoError(t, err)
	assert.Contains(t, url, "data:image/png;base64,iVBOR")
}

func TestLedger_RejectsNonPositivePoints(t *testing.T) {
	store := memstore.New()
	repo := store.Read().LedgerRepo
	var l Ledger

	_, err := l.RecordEarn(context.Background(), repo, uuid.New(), uuid.New(), 0, 30, testNow)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = l.RecordRedeem(context.Background(), repo, uuid.New(), uuid.New(), -3, testNow)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestLedger_ExpiredEarnsDoNotCount(t *testing.T) {
	store := memstore.New()
	cid := uuid.New()
	var l Ledger
	ctx := context.Background()

	err := store.InTx(ctx, func(r *repository.Repository) error {
		if _, err := l.RecordEarn(ctx, r.LedgerRepo, cid, uuid.New(), 40, 10, testNow); err != nil {
			return err
		}
		_, err := l.RecordRedeem(ctx, r.LedgerRepo, cid, uuid.New(), 30, testNow)
		return err
	})
	require.NoError(t, err)

	read := store.Read().LedgerRepo
	bal, err := l.AvailableBalance(ctx, read, cid, testNow.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal)

	// After expiry the raw sum is -30; the available balance floors at zero.
	bal, err = l.AvailableBalance(ctx, read, cid, testNow.AddDate(0, 0, 11))
	require.NoError(t, err)
	assert.Zero(t, bal)

	_, err = l.RecordRedeem(ctx, read, cid, uuid.New(), 1, testNow.AddDate(0, 0, 11))
	require.ErrorIs(t, err, domain.ErrInsufficientLoyaltyBalance)
}
