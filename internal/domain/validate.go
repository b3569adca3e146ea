package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate runs struct tag rules and returns a *ValidationError on failure.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[trimRoot(fe.Namespace())] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// ValidatePlaceOrder checks the payload shape plus the money and channel rules
// that tags cannot express.
func ValidatePlaceOrder(r *PlaceOrderRequest) error {
	fields := map[string]string{}
	if err := Validate(r); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		for k, v := range ve.Fields {
			fields[k] = v
		}
	}
	if !r.Total.IsPositive() {
		fields["total"] = "gt=0"
	}
	checkItemPrices(r.Items, fields)
	if r.OrderType == OrderTypeDineIn && r.TableNumber == nil {
		fields["tableNumber"] = "required_for_dine_in"
	}
	if r.OrderType != OrderTypeDineIn && r.TableNumber != nil {
		fields["tableNumber"] = "dine_in_only"
	}
	if r.LoyaltyPoints != nil && r.LoyaltyPoints.UsePoints && r.LoyaltyPoints.PointsToRedeem <= 0 {
		fields["loyaltyPoints.pointsToRedeem"] = "gt=0"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func ValidateAmendItems(r *AmendItemsRequest) error {
	fields := map[string]string{}
	if err := Validate(r); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		for k, v := range ve.Fields {
			fields[k] = v
		}
	}
	if !r.Total.IsPositive() {
		fields["total"] = "gt=0"
	}
	checkItemPrices(r.Items, fields)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func checkItemPrices(items []ItemInput, fields map[string]string) {
	for i, it := range items {
		if it.Price.LessThan(decimal.Zero) {
			fields[fmt.Sprintf("items[%d].price", i)] = "gte=0"
		}
		for j, a := range it.SelectedAddons {
			if a.Price.LessThan(decimal.Zero) {
				fields[fmt.Sprintf("items[%d].selectedAddons[%d].price", i, j)] = "gte=0"
			}
		}
	}
}
