package swap

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/zpay32"
)

// DecodeInvoice decodes a lightning invoice and refuses it if it already
// expired. Expired invoices are reported before any swap is requested for
// them.
func DecodeInvoice(invoice string, params *chaincfg.Params,
	clk clock.Clock) (*zpay32.Invoice, error) {

	decoded, err := zpay32.Decode(invoice, params)
	if err != nil {
		return nil, fmt.Errorf("unable to decode invoice: %w", err)
	}

	if err := CheckInvoiceExpiry(decoded, clk.Now()); err != nil {
		return nil, err
	}

	return decoded, nil
}

// InvoiceExpiry returns the time after which the invoice can't be paid.
func InvoiceExpiry(invoice *zpay32.Invoice) time.Time {
	return invoice.Timestamp.Add(invoice.Expiry())
}

// CheckInvoiceExpiry returns ErrInvoiceExpired if the invoice expired at the
// given time.
func CheckInvoiceExpiry(invoice *zpay32.Invoice, now time.Time) error {
	expiry := InvoiceExpiry(invoice)
	if !now.Before(expiry) {
		return fmt.Errorf("%w at %v", ErrInvoiceExpired,
			expiry.Format(time.RFC3339))
	}

	return nil
}
