package domain

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Settings is the per-request snapshot of restaurant configuration.
// It is loaded once and passed by value through a request.
type Settings struct {
	LoyaltyEnabled       bool            `json:"loyaltyEnabled"`
	EarnRate             decimal.Decimal `json:"earnRate"`
	ExpiryDays           int             `json:"expiryDays"`
	RedeemValue          decimal.Decimal `json:"redeemValue"`
	Currency             string          `json:"currency"`
	DineInInitialStatus  OrderStatus     `json:"dineInInitialStatus"`
	CounterInitialStatus OrderStatus     `json:"counterInitialStatus"`
	PickupInitialStatus  OrderStatus     `json:"pickupInitialStatus"`
	FeedbackEnabled      bool            `json:"feedbackEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		LoyaltyEnabled:       false,
		EarnRate:             decimal.NewFromFloat(0.1),
		ExpiryDays:           365,
		RedeemValue:          decimal.NewFromFloat(0.01),
		Currency:             "USD",
		DineInInitialStatus:  OrderPreparing,
		CounterInitialStatus: OrderPreparing,
		PickupInitialStatus:  OrderPending,
		FeedbackEnabled:      false,
	}
}

const (
	SettingLoyaltyEnabled       = "loyalty_enabled"
	SettingEarnRate             = "loyalty_earn_rate"
	SettingExpiryDays           = "loyalty_expiry_days"
	SettingRedeemValue          = "loyalty_redeem_value"
	SettingCurrency             = "currency"
	SettingDineInInitialStatus  = "dine_in_initial_status"
	SettingCounterInitialStatus = "counter_initial_status"
	SettingPickupInitialStatus  = "pickup_initial_status"
	SettingFeedbackEnabled      = "feedback_enabled"
)

// ApplyValues overlays key/value rows from the settings store onto base.
// Unknown keys are ignored.
func ApplyValues(base Settings, kv map[string]string) (Settings, error) {
	s := base
	for k, v := range kv {
		var err error
		switch k {
		case SettingLoyaltyEnabled:
			s.LoyaltyEnabled, err = strconv.ParseBool(v)
		case SettingEarnRate:
			s.EarnRate, err = decimal.NewFromString(v)
		case SettingExpiryDays:
			s.ExpiryDays, err = strconv.Atoi(v)
		case SettingRedeemValue:
			s.RedeemValue, err = decimal.NewFromString(v)
		case SettingCurrency:
			s.Currency = v
		case SettingDineInInitialStatus:
			s.DineInInitialStatus, err = parseInitialStatus(v)
		case SettingCounterInitialStatus:
			s.CounterInitialStatus, err = parseInitialStatus(v)
		case SettingPickupInitialStatus:
			s.PickupInitialStatus, err = parseInitialStatus(v)
		case SettingFeedbackEnabled:
			s.FeedbackEnabled, err = strconv.ParseBool(v)
		}
		if err != nil {
			return base, fmt.Errorf("setting %s=%q: %w", k, v, err)
		}
	}
	return s, nil
}

func parseInitialStatus(v string) (OrderStatus, error) {
	switch OrderStatus(v) {
	case OrderPending, OrderPreparing:
		return OrderStatus(v), nil
	}
	return "", fmt.Errorf("initial status must be pending or preparing")
}

func (s Settings) InitialStatus(t OrderType) OrderStatus {
	switch t {
	case OrderTypeDineIn:
		return s.DineInInitialStatus
	case OrderTypePOSCounter:
		return s.CounterInitialStatus
	default:
		return s.PickupInitialStatus
	}
}

// RedemptionDiscount converts redeemed points to a currency amount.
func (s Settings) RedemptionDiscount(points int64) decimal.Decimal {
	if points <= 0 {
		return decimal.Zero
	}
	return s.RedeemValue.Mul(decimal.NewFromInt(points))
}

// EarnedPoints is floor(total × rate), or zero when loyalty is off. A
// redemption discount does not lower the earn base.
func (s Settings) EarnedPoints(total decimal.Decimal) int64 {
	if !s.LoyaltyEnabled || !total.IsPositive() {
		return 0
	}
	return total.Mul(s.EarnRate).Floor().IntPart()
}
