package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddonInput struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price"`
}

type ItemInput struct {
	Name           string          `json:"name" validate:"required"`
	Quantity       int             `json:"quantity" validate:"gt=0"`
	Price          decimal.Decimal `json:"price"`
	SelectedAddons []AddonInput    `json:"selectedAddons,omitempty" validate:"dive"`
}

type CustomerDetails struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required,min=5,max=32"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type LoyaltyRequest struct {
	UsePoints      bool  `json:"usePoints"`
	PointsToRedeem int64 `json:"pointsToRedeem" validate:"gte=0"`
}

type PlaceOrderRequest struct {
	OrderType       OrderType       `json:"orderType" validate:"required,oneof=dine-in pickup pos-counter"`
	TableNumber     *int            `json:"tableNumber,omitempty" validate:"omitempty,gt=0"`
	PickupLocation  string          `json:"pickupLocation,omitempty" validate:"max=128"`
	Items           []ItemInput     `json:"items" validate:"required,min=1,dive"`
	Total           decimal.Decimal `json:"total"`
	CustomerDetails CustomerDetails `json:"customerDetails"`
	LoyaltyPoints   *LoyaltyRequest `json:"loyaltyPoints,omitempty"`
	// AssignedBy names the terminal or staff member entering the order.
	AssignedBy string `json:"assignedBy,omitempty"`
}

// RedeemPoints is the number of points the request asks to spend.
func (r *PlaceOrderRequest) RedeemPoints() int64 {
	if r.LoyaltyPoints == nil || !r.LoyaltyPoints.UsePoints {
		return 0
	}
	return r.LoyaltyPoints.PointsToRedeem
}

func (r *PlaceOrderRequest) LineItems() LineItems {
	out := make(LineItems, 0, len(r.Items))
	for _, it := range r.Items {
		li := LineItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.Price}
		for _, a := range it.SelectedAddons {
			li.SelectedAddons = append(li.SelectedAddons, Addon{Name: a.Name, Price: a.Price})
		}
		out = append(out, li)
	}
	return out
}

type PlaceOrderResult struct {
	OrderID        uuid.UUID   `json:"orderId"`
	OrderNumber    string      `json:"orderNumber"`
	OTP            string      `json:"otp"`
	QRCodeURL      string      `json:"qrCodeUrl"`
	PointsEarned   int64       `json:"pointsEarned"`
	PointsRedeemed int64       `json:"pointsRedeemed"`
	Status         OrderStatus `json:"status"`
	Warnings       []string    `json:"warnings,omitempty"`
	Order          *Order      `json:"-"`
}

type KitchenStatusRequest struct {
	Status  KitchenStatus `json:"status" validate:"required,oneof=pending preparing ready completed cancelled"`
	StaffID string        `json:"staffId" validate:"max=64"`
}

type KitchenUpdate struct {
	WorkItem KitchenWorkItem `json:"workItem"`
	Order    Order           `json:"order"`
	Warnings []string        `json:"warnings,omitempty"`
}

type CancelRequest struct {
	StaffID string `json:"staffId" validate:"max=64"`
	Reason  string `json:"reason" validate:"max=512"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type AmendItemsRequest struct {
	Items []ItemInput     `json:"items" validate:"required,min=1,dive"`
	Total decimal.Decimal `json:"total"`
}

func (r *AmendItemsRequest) LineItems() LineItems {
	p := PlaceOrderRequest{Items: r.Items}
	return p.LineItems()
}

type Balance struct {
	CustomerID uuid.UUID `json:"customerId"`
	Points     int64     `json:"points"`
}
