package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation                 = errors.New("validation failed")
	ErrTableUnavailable           = errors.New("table unavailable")
	ErrInsufficientLoyaltyBalance = errors.New("insufficient loyalty balance")
	ErrInvalidTransition          = errors.New("invalid kitchen status transition")
	ErrOrderNotFound              = errors.New("order not found")
	ErrPersistenceConflict        = errors.New("persistence conflict")
	ErrNotificationDelivery       = errors.New("notification delivery failed")
	ErrInvalidOTP                 = errors.New("invalid or already used otp")
	ErrItemsLocked                = errors.New("order items are locked")

	// ErrInvalidOrderPayload is the order-entry name for a validation failure.
	ErrInvalidOrderPayload = ErrValidation
)

// ValidationError lists offending fields and their failed rule.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type TransitionError struct {
	From KitchenStatus
	To   KitchenStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move kitchen item from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type BalanceError struct {
	Available int64
	Requested int64
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("insufficient loyalty balance: available %d, requested %d", e.Available, e.Requested)
}

func (e *BalanceError) Is(target error) bool { return target == ErrInsufficientLoyaltyBalance }

type TableError struct {
	Number int
	Status TableStatus
}

func (e *TableError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("table %d does not exist", e.Number)
	}
	return fmt.Sprintf("table %d is %s", e.Number, e.Status)
}

func (e *TableError) Is(target error) bool { return target == ErrTableUnavailable }
