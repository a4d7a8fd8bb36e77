package swap

import (
	"errors"
	"fmt"
)

var (
	// ErrScriptVersion is returned for funding outputs of a script
	// version other than CurrentScriptVersion.
	ErrScriptVersion = errors.New("unsupported swap script version")

	// ErrInvoiceMismatch is returned when the swap pays a different
	// invoice than the one requested.
	ErrInvoiceMismatch = errors.New("swap invoice mismatch")

	// ErrDestinationMismatch is returned when the invoice destination is
	// not the swap receiver.
	ErrDestinationMismatch = errors.New("invoice destination mismatch")

	// ErrPaymentHashMismatch is returned when the funding output locks a
	// different payment hash than the invoice's.
	ErrPaymentHashMismatch = errors.New("payment hash mismatch")

	// ErrExpirationMismatch is returned when the funding output expiry
	// differs from the requested one.
	ErrExpirationMismatch = errors.New("expiration mismatch")

	// ErrExpirationTooLarge is returned for expirations that don't fit a
	// relative lock time.
	ErrExpirationTooLarge = errors.New("expiration exceeds relative " +
		"lock time limit")

	// ErrUserKeyMismatch is returned when the declared user key is not
	// derived from the user's extended key.
	ErrUserKeyMismatch = errors.New("user public key mismatch")

	// ErrMuunKeyMismatch is returned when the declared co-signing key is
	// not derived from the co-signer's extended key.
	ErrMuunKeyMismatch = errors.New("muun public key mismatch")

	// ErrAddressMismatch is returned when the funding output address
	// doesn't pay to the rebuilt witness script.
	ErrAddressMismatch = errors.New("output address mismatch")

	// ErrPreimageMismatch is returned when a revealed preimage doesn't
	// hash to the payment hash.
	ErrPreimageMismatch = errors.New("preimage doesn't match payment hash")

	// ErrPolicyMismatch is returned when the funding output disagrees
	// with the server policies.
	ErrPolicyMismatch = errors.New("funding output doesn't follow " +
		"policies")

	// ErrInvoiceExpired is returned for invoices past their expiry.
	ErrInvoiceExpired = errors.New("invoice expired")
)

// InvalidSwapError signals a swap the server proposed that must not be
// funded.
type InvalidSwapError struct {
	// SwapID is the server id of the rejected swap.
	SwapID string

	// Err is the failed check.
	Err error
}

// Error returns the reason the swap was rejected.
func (e *InvalidSwapError) Error() string {
	return fmt.Sprintf("invalid swap %v: %v", e.SwapID, e.Err)
}

// Unwrap returns the failed check.
func (e *InvalidSwapError) Unwrap() error {
	return e.Err
}
