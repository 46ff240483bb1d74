// Package validation holds the field rules applied before any write to the
// store. Each rule is a pure function returning nil or an *apperr.Error of
// kind Validation, so services can compose them and tests can call them
// directly.
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/judyrop/sil-crm/apperr"
)

// Messages returned to callers. They are part of the API surface.
const (
	MsgNameRequired     = "Name is required"
	MsgInvalidEmail     = "Invalid email format"
	MsgEmailExists      = "Email already exists"
	MsgInvalidPhone     = "Invalid phone format"
	MsgPriceNotPositive = "Price must be positive"
	MsgPriceScale       = "Price must have at most two decimal places"
	MsgPriceTooLarge    = "Price must be less than 100000000"
	MsgStockNegative    = "Stock cannot be negative"
	MsgInvalidCustomer  = "Invalid customer ID"
	MsgNoProducts       = "At least one product ID is required"
	MsgInvalidProducts  = "One or more product IDs are invalid"
	MsgThresholdNeg     = "Threshold cannot be negative"
	MsgIncrementNotPos  = "Increment must be positive"
)

// phonePattern accepts "+" followed by 10-15 digits, or ddd-ddd-dddd.
var phonePattern = regexp.MustCompile(`^(\+\d{10,15}|\d{3}-\d{3}-\d{4})$`)

var validate = validator.New()

func Name(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation(MsgNameRequired)
	}
	return nil
}

func Email(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return apperr.Validation(MsgInvalidEmail)
	}
	return nil
}

// Phone validates an optional phone number. Empty means "not supplied".
func Phone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return apperr.Validation(MsgInvalidPhone)
	}
	return nil
}

// maxPrice is the first value a decimal(10,2) column cannot hold.
var maxPrice = decimal.New(1, 8)

func Price(price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperr.Validation(MsgPriceNotPositive)
	}
	if !price.Equal(price.Truncate(2)) {
		return apperr.Validation(MsgPriceScale)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return apperr.Validation(MsgPriceTooLarge)
	}
	return nil
}

func Stock(stock int) error {
	if stock < 0 {
		return apperr.Validation(MsgStockNegative)
	}
	return nil
}

// ProductIDs rejects an empty list and returns the distinct IDs in input
// order. An order's product association is a set.
func ProductIDs(ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation(MsgNoProducts)
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// Restock checks the parameters of a restock run. Restocking only ever
// increases stock.
func Restock(threshold, increment int) error {
	if threshold < 0 {
		return apperr.Validation(MsgThresholdNeg)
	}
	if increment <= 0 {
		return apperr.Validation(MsgIncrementNotPos)
	}
	return nil
}

// Customer runs the field rules for a new customer in the order callers
// see them reported. Uniqueness is checked by the service inside its
// transaction.
func Customer(name, email, phone string) error {
	if err := Name(name); err != nil {
		return err
	}
	if err := Email(email); err != nil {
		return err
	}
	return Phone(phone)
}

func Product(name string, price decimal.Decimal, stock int) error {
	if err := Name(name); err != nil {
		return err
	}
	if err := Price(price); err != nil {
		return err
	}
	return Stock(stock)
}
