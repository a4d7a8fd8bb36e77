package payengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/payengine/fees"
	"github.com/lightninglabs/payengine/rates"
)

var (
	// ErrMissingAmount is returned when analyzing a request without an
	// amount that can't be resolved either.
	ErrMissingAmount = errors.New("payment request has no amount")

	// ErrMissingFeeRate is returned when analyzing an on-chain payment
	// without a fee rate.
	ErrMissingFeeRate = errors.New("payment request has no fee rate")

	// ErrInvalidRequest is returned for requests that can't be analyzed,
	// such as a negative amount.
	ErrInvalidRequest = errors.New("invalid payment request")

	// ErrInconsistentSwap is returned when a swap's funding output
	// doesn't add up to its amount and fees.
	ErrInconsistentSwap = errors.New("swap amounts are inconsistent")

	// ErrInvalidContext is returned when analyzing against a payment
	// context that is missing parts or holds invalid ones.
	ErrInvalidContext = errors.New("invalid payment context")

	// ErrNotPayable is returned when preparing a payment whose analysis
	// is not valid.
	ErrNotPayable = errors.New("payment is not valid")
)

// PaymentContext is the immutable wallet state payments are analyzed
// against.
type PaymentContext struct {
	// NextTransactionSize is the utxo snapshot of the wallet.
	NextTransactionSize *fees.NextTransactionSize `json:"nextTransactionSize"`

	// FeeWindow holds the recommended fee rates.
	FeeWindow *fees.Window `json:"feeWindow"`

	// RateWindow holds the exchange rates amounts are converted with.
	RateWindow *rates.Window `json:"exchangeRateWindow"`

	// PrimaryCurrency is the currency the user displays amounts in.
	PrimaryCurrency string `json:"primaryCurrency"`
}

// Validate checks that the context can be used to analyze payments.
func (c *PaymentContext) Validate() error {
	if c.NextTransactionSize == nil {
		return errors.New("missing next transaction size")
	}
	if err := c.NextTransactionSize.Validate(); err != nil {
		return err
	}

	if c.FeeWindow == nil {
		return errors.New("missing fee window")
	}
	if err := c.FeeWindow.Validate(); err != nil {
		return err
	}

	if c.RateWindow == nil {
		return errors.New("missing exchange rate window")
	}
	if !c.RateWindow.HasCurrency(c.PrimaryCurrency) {
		return fmt.Errorf("primary currency: %w: %v",
			rates.ErrUnknownCurrency, c.PrimaryCurrency)
	}

	return nil
}

// UserBalance is the balance the user can spend, after any debt.
func (c *PaymentContext) UserBalance() btcutil.Amount {
	return c.NextTransactionSize.UserBalance()
}

// UtxoBalance is the sum of the wallet utxos.
func (c *PaymentContext) UtxoBalance() btcutil.Amount {
	return c.NextTransactionSize.UtxoBalance()
}

// FeeOptions returns the fee rates the user can pick from, in ascending
// confirmation target order.
func (c *PaymentContext) FeeOptions() []fees.Option {
	return c.FeeWindow.Options()
}

// ClosestFeeOptionFasterThan returns the cheapest option that still confirms
// within target blocks. When all targets are slower, the fastest is used.
func (c *PaymentContext) ClosestFeeOptionFasterThan(target uint32) (fees.Option,
	error) {

	if target == 0 {
		return fees.Option{}, errors.New("confirmation target must " +
			"be positive")
	}

	return c.FeeWindow.ClosestOptionFasterThan(target), nil
}

// EstimateMaxTime returns how long a transaction paying rate may take to
// confirm.
func (c *PaymentContext) EstimateMaxTime(rate fees.SatPerVByte) time.Duration {
	return c.FeeWindow.EstimateMaxTime(rate)
}

// ToSatoshis converts money to satoshis with the context rates.
func (c *PaymentContext) ToSatoshis(m rates.Money) (btcutil.Amount, error) {
	return c.RateWindow.ToSatoshis(m)
}

// ToBitcoinAmount expresses a satoshi amount in the input and primary
// currencies.
func (c *PaymentContext) ToBitcoinAmount(sats btcutil.Amount,
	inputCurrency string) (BitcoinAmount, error) {

	input, err := c.RateWindow.FromSatoshis(sats, inputCurrency)
	if err != nil {
		return BitcoinAmount{}, err
	}

	primary, err := c.RateWindow.FromSatoshis(sats, c.PrimaryCurrency)
	if err != nil {
		return BitcoinAmount{}, err
	}

	return BitcoinAmount{
		Sats:              sats,
		InInputCurrency:   input,
		InPrimaryCurrency: primary,
	}, nil
}

// Analyze analyzes a single payment request.
func (c *PaymentContext) Analyze(req PaymentRequest) (*PaymentAnalysis,
	error) {

	return NewAnalyzer(c).Analyze(req)
}
