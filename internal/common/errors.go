package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status. Fields are
// echoed back to the client next to the message; API names the sub-component that
// produced the error during checkout.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Fields     map[string]any
	API        string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// With returns a copy carrying an additional echoed field.
func (e *AppError) With(key string, value any) *AppError {
	out := e.clone()
	out.Fields[key] = value
	return out
}

// Wrap returns a copy with err as the underlying cause.
func (e *AppError) Wrap(err error) *AppError {
	out := e.clone()
	out.Err = err
	return out
}

// Tagged returns a copy annotated with the sub-component that produced it.
func (e *AppError) Tagged(api string) *AppError {
	out := e.clone()
	out.API = api
	return out
}

func (e *AppError) clone() *AppError {
	out := *e
	out.Fields = make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	return &out
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// AsAppError extracts the AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// TagError annotates err with api when it is an AppError; other errors pass through.
func TagError(err error, api string) error {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Tagged(api)
	}
	return err
}

var (
	ErrInvalidCartCheckData  = NewAppError("invalid_cart_check_data", "Either a coupon or a cart must be provided.", http.StatusBadRequest, nil)
	ErrInvalidCouponCode     = NewAppError("invalid_coupon_code", "The coupon code is invalid or no longer active.", http.StatusBadRequest, nil)
	ErrInvalidProductItemSku = NewAppError("invalid_product_item_sku", "The product item is not available.", http.StatusBadRequest, nil)
	ErrInvalidProductItemQty = NewAppError("invalid_product_item_quantity", "The requested quantity is not available.", http.StatusBadRequest, nil)
	ErrInvalidCouponForCart  = NewAppError("invalid_coupon_for_cart", "The coupon does not apply to any item in the cart.", http.StatusBadRequest, nil)
	ErrCurrencyMismatch      = NewAppError("currency_mismatch", "Currencies do not match.", http.StatusConflict, nil)
	ErrGrandTotalMismatch    = NewAppError("grand_total_mismatch", "The grand total has changed.", http.StatusConflict, nil)
	ErrInvalidShipping       = NewAppError("invalid_shipping", "The shipping details are invalid.", http.StatusBadRequest, nil)
	ErrInvalidPayment        = NewAppError("invalid_payment", "The payment details are invalid.", http.StatusBadRequest, nil)
	ErrInvalidPayload        = NewAppError("invalid", "Invalid input.", http.StatusBadRequest, nil)
	ErrNotFound              = NewAppError("not_found", "Not found.", http.StatusNotFound, nil)
	ErrIdempotentReplay      = NewAppError("idempotent_replay", "Duplicate request.", http.StatusConflict, nil)
	ErrRateLimited           = NewAppError("rate_limited", "Too many requests.", http.StatusTooManyRequests, nil)
	ErrPayloadTooLarge       = NewAppError("payload_too_large", "Request entity too large.", http.StatusRequestEntityTooLarge, nil)
)

// InternalMessage is returned to clients for failures that are not AppErrors.
const InternalMessage = "A server error occurred."
