package checkout

import (
	"strings"
	"unicode/utf8"

	"storefront/models"
)

const (
	MinCardNumberLength = 16
	MinCVVLength        = 3
)

// Shipping holds the delivery fields of the checkout form.
type Shipping struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	ZipCode  string `json:"zipCode"`
	Country  string `json:"country"`
}

// Payment holds the mock card fields. Nothing is charged.
type Payment struct {
	CardNumber string `json:"cardNumber"`
	CVV        string `json:"cvv"`
}

type Form struct {
	Shipping Shipping `json:"shipping"`
	Payment  Payment  `json:"payment"`
}

// ShippingAddress joins the address fields into the single line stored on the order.
func (s Shipping) ShippingAddress() string {
	return strings.Join([]string{s.Address, s.City, s.ZipCode, s.Country}, ", ")
}

// complete reports whether every field is filled. Spaces count as filled.
func (s Shipping) complete() bool {
	for _, field := range []string{s.FullName, s.Email, s.Address, s.City, s.ZipCode, s.Country} {
		if field == "" {
			return false
		}
	}
	return true
}

// ValidateCardNumber checks the minimum card number length.
func ValidateCardNumber(cardNumber string) bool {
	return utf8.RuneCountInString(cardNumber) >= MinCardNumberLength
}

func ValidateCVV(cvv string) bool {
	return utf8.RuneCountInString(cvv) >= MinCVVLength
}

// Validate applies the form rules in order and returns the first failure.
func Validate(form Form) error {
	if !form.Shipping.complete() {
		return ErrShippingIncomplete
	}
	if !ValidateCardNumber(form.Payment.CardNumber) {
		return ErrInvalidCardNumber
	}
	if !ValidateCVV(form.Payment.CVV) {
		return ErrInvalidCVV
	}
	return nil
}

// MaskCardNumber keeps only the last four characters of a card number.
func MaskCardNumber(cardNumber string) string {
	runes := []rune(cardNumber)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

// PrefillShipping seeds the shipping fields from the signed-in session.
func PrefillShipping(sess models.Session) Shipping {
	return Shipping{
		FullName: sess.UserName,
		Email:    sess.Email,
		Address:  sess.Address,
	}
}
