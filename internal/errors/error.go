package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrTenantMissing = errors.New("tenant is missing")
	ErrValidation    = errors.New("validation failed")

	// transport errors
	ErrTransportUnavailable = errors.New("smtp server unavailable")
	ErrDeliveryRejected     = errors.New("delivery rejected")

	// ErrOutcomeWriteFailed signals that a message left the building but the
	// terminal status write on its delivery record did not stick. The record
	// may still read pending even though the send succeeded.
	ErrOutcomeWriteFailed = errors.New("delivery outcome write failed after send")
)
