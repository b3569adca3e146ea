package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyValues(t *testing.T) {
	s, err := ApplyValues(DefaultSettings(), map[string]string{
		SettingLoyaltyEnabled:      "true",
		SettingEarnRate:            "0.25",
		SettingExpiryDays:          "30",
		SettingPickupInitialStatus: "preparing",
		"unknown_key":              "ignored",
	})
	require.NoError(t, err)

	assert.True(t, s.LoyaltyEnabled)
	assert.True(t, decimal.RequireFromString("0.25").Equal(s.EarnRate))
	assert.Equal(t, 30, s.ExpiryDays)
	assert.Equal(t, OrderPreparing, s.InitialStatus(OrderTypePickup))
}

func TestApplyValues_BadValueKeepsBase(t *testing.T) {
	base := DefaultSettings()
	s, err := ApplyValues(base, map[string]string{SettingExpiryDays: "soon"})
	assert.Error(t, err)
	assert.Equal(t, base.ExpiryDays, s.ExpiryDays)

	_, err = ApplyValues(base, map[string]string{SettingDineInInitialStatus: "completed"})
	assert.Error(t, err)
}

func TestSettings_EarnedPoints(t *testing.T) {
	s := DefaultSettings()
	s.EarnRate = decimal.RequireFromString("0.1")

	assert.Zero(t, s.EarnedPoints(decimal.NewFromInt(50)), "loyalty disabled")

	s.LoyaltyEnabled = true
	assert.Equal(t, int64(5), s.EarnedPoints(decimal.NewFromInt(50)))
	assert.Equal(t, int64(4), s.EarnedPoints(decimal.RequireFromString("49.99")))
	assert.Zero(t, s.EarnedPoints(decimal.RequireFromString("9.99")))
	assert.Zero(t, s.EarnedPoints(decimal.Zero))
}

func TestSettings_InitialStatus(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, OrderPreparing, s.InitialStatus(OrderTypeDineIn))
	assert.Equal(t, OrderPreparing, s.InitialStatus(OrderTypePOSCounter))
	assert.Equal(t, OrderPending, s.InitialStatus(OrderTypePickup))
}
