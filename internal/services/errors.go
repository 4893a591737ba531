package services

import (
	"errors"

	"golang-food-checkout/pkg/apiclient"
)

type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindBusiness   ErrorKind = "business"
	KindValidation ErrorKind = "validation"
	KindSequence   ErrorKind = "sequence"
	KindStale      ErrorKind = "stale"
	KindDuplicate  ErrorKind = "duplicate"
)

var (
	ErrMissingSelection    = errors.New("required selection is missing")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidDeliveryType = errors.New("invalid delivery type")
	ErrDeliveryUnavailable = errors.New("delivery is not available for this address")
	ErrInvalidVoucher      = errors.New("invalid voucher")
	ErrOutOfSequence       = errors.New("checkout step out of sequence")
	ErrStaleResponse       = errors.New("response superseded by a newer request")
	ErrDuplicateSubmission = errors.New("order submission already in progress")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	ErrUnknownOption       = errors.New("option not offered")
)

// CheckoutError is the single error type returned by store and flow
// operations. Message is what the UI shows.
type CheckoutError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func (e *CheckoutError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, sentinel error, msg string) *CheckoutError {
	if msg == "" && sentinel != nil {
		msg = sentinel.Error()
	}
	return &CheckoutError{Kind: kind, Op: op, Message: msg, Err: sentinel}
}

func validationError(op string, sentinel error, msg string) *CheckoutError {
	return newError(KindValidation, op, sentinel, msg)
}

func sequenceError(op, msg string) *CheckoutError {
	return newError(KindSequence, op, ErrOutOfSequence, msg)
}

func staleError(op string) *CheckoutError {
	return newError(KindStale, op, ErrStaleResponse, "")
}

// backendError classifies an apiclient failure. sentinel, when non-nil, is
// attached to business failures so callers can errors.Is on the meaning.
func backendError(op string, err error, sentinel error) *CheckoutError {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		wrapped := err
		if sentinel != nil {
			wrapped = errors.Join(sentinel, err)
		}
		return &CheckoutError{Kind: KindBusiness, Op: op, Message: apiErr.Message, Err: wrapped}
	}
	return &CheckoutError{Kind: KindTransport, Op: op, Message: "network error, please try again", Err: err}
}

// KindOf returns the kind of a CheckoutError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var checkoutErr *CheckoutError
	if errors.As(err, &checkoutErr) {
		return checkoutErr.Kind
	}
	return ""
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var checkoutErr *CheckoutError
	if errors.As(err, &checkoutErr) {
		return checkoutErr.Message
	}
	return err.Error()
}
