package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository"
)

// Ledger applies loyalty rules over a LedgerRepositoryInterface. Callers pass
// the transaction-bound repository so check and insert share one boundary.
type Ledger struct{}

// AvailableBalance never reports below zero: earn entries that expire after
// a redemption can push the raw sum negative.
func (Ledger) AvailableBalance(ctx context.Context, repo repository.LedgerRepositoryInterface, customerID uuid.UUID, asOf time.Time) (int64, error) {
	bal, err := repo.Balance(ctx, customerID, asOf)
	if err != nil {
		return 0, err
	}
	if bal < 0 {
		return 0, nil
	}
	return bal, nil
}

func (Ledger) RecordEarn(ctx context.Context, repo repository.LedgerRepositoryInterface,
	customerID, orderID uuid.UUID, points int64, expiryDays int, now time.Time) (domain.LedgerEntry, error) {
	if points <= 0 {
		return domain.LedgerEntry{}, domain.NewValidationError("points", "gt=0")
	}
	e := domain.LedgerEntry{
		ID:         uuid.New(),
		CustomerID: customerID,
		OrderID:    &orderID,
		Kind:       domain.LedgerEarn,
		Points:     points,
		CreatedAt:  now,
	}
	if expiryDays > 0 {
		exp := now.AddDate(0, 0, expiryDays)
		e.ExpiresAt = &exp
	}
	return e, repo.Insert(ctx, &e)
}

func (l Ledger) RecordRedeem(ctx context.Context, repo repository.LedgerRepositoryInterface,
	customerID, orderID uuid.UUID, points int64, now time.Time) (domain.LedgerEntry, error) {
	if points <= 0 {
		return domain.LedgerEntry{}, domain.NewValidationError("points", "gt=0")
	}
	bal, err := l.AvailableBalance(ctx, repo, customerID, now)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if points > bal {
		return domain.LedgerEntry{}, &domain.BalanceError{Available: bal, Requested: points}
	}
	e := domain.LedgerEntry{
		ID:         uuid.New(),
		CustomerID: customerID,
		OrderID:    &orderID,
		Kind:       domain.LedgerRedeem,
		Points:     points,
		CreatedAt:  now,
	}
	return e, repo.Insert(ctx, &e)
}

// RecordClawback takes back points earned on an order whose total went down.
// It is written as a redeem entry and skips the balance check: points already
// spent leave the balance floored at zero.
func (Ledger) RecordClawback(ctx context.Context, repo repository.LedgerRepositoryInterface,
	customerID, orderID uuid.UUID, points int64, now time.Time) (domain.LedgerEntry, error) {
	if points <= 0 {
		return domain.LedgerEntry{}, domain.NewValidationError("points", "gt=0")
	}
	e := domain.LedgerEntry{
		ID:         uuid.New(),
		CustomerID: customerID,
		OrderID:    &orderID,
		Kind:       domain.LedgerRedeem,
		Points:     points,
		CreatedAt:  now,
	}
	return e, repo.Insert(ctx, &e)
}
