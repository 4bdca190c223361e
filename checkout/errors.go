package checkout

import (
	"errors"

	"storefront/clients"
)

var (
	ErrShippingIncomplete = errors.New("shipping fields incomplete")
	ErrInvalidCardNumber  = errors.New("invalid card number")
	ErrInvalidCVV         = errors.New("invalid cvv")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInProgress         = errors.New("checkout already in progress")
	ErrOrderNotCreated    = errors.New("backend did not return an order id")
)

const (
	MsgShippingIncomplete = "All shipping fields are required."
	MsgInvalidCardNumber  = "Please enter a valid card number."
	MsgInvalidCVV         = "Please enter a valid CVV."
	MsgNotAuthenticated   = "You must be logged in to place an order."
	MsgEmptyCart          = "Your cart is empty."
	MsgInProgress         = "Your order is already being placed."
	MsgOrderFailed        = "Something went wrong while placing your order."
	MsgCheckoutFailed     = "Failed to process checkout."
)

// UserMessage maps a checkout error to the message shown on the form.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrShippingIncomplete):
		return MsgShippingIncomplete
	case errors.Is(err, ErrInvalidCardNumber):
		return MsgInvalidCardNumber
	case errors.Is(err, ErrInvalidCVV):
		return MsgInvalidCVV
	case errors.Is(err, ErrNotAuthenticated):
		return MsgNotAuthenticated
	case errors.Is(err, ErrEmptyCart):
		return MsgEmptyCart
	case errors.Is(err, ErrInProgress):
		return MsgInProgress
	case errors.Is(err, ErrOrderNotCreated):
		return MsgOrderFailed
	}

	var apiErr *clients.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return MsgOrderFailed
	}
	return MsgCheckoutFailed
}
