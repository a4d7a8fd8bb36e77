package fees

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil"
)

// MinimumFeeRate is the lowest fee rate the network relays.
const MinimumFeeRate SatPerVByte = 1

// SatPerVByte is a fee rate in satoshis per virtual byte. Fractional rates are
// allowed, fees are always rounded up to the next satoshi.
type SatPerVByte float64

// FeeForVSize returns the fee for a transaction of the given virtual size.
func (s SatPerVByte) FeeForVSize(vsize int64) btcutil.Amount {
	return btcutil.Amount(math.Ceil(float64(vsize) * float64(s)))
}

// String returns a human readable version of the fee rate.
func (s SatPerVByte) String() string {
	return fmt.Sprintf("%v sat/vB", float64(s))
}

// Calculator computes on-chain fees for a given fee rate over a snapshot of
// the wallet utxo set.
type Calculator struct {
	rate SatPerVByte
	nts  *NextTransactionSize
}

// NewCalculator returns a fee calculator for the given rate and size
// progression.
func NewCalculator(rate SatPerVByte, nts *NextTransactionSize) *Calculator {
	return &Calculator{
		rate: rate,
		nts:  nts,
	}
}

// Rate returns the fee rate of the calculator.
func (c *Calculator) Rate() SatPerVByte {
	return c.rate
}

// Calculate returns the fee to spend amount. The thresholds of the size
// progression are reduced by the outstanding debt, since that part of the
// utxos is not the user's to spend.
//
// With takeFeeFromAmount, amount is the gross spend and the step is picked on
// it directly. Otherwise the fee is added on top, and the step must fit both.
// If no step fits, the fee of the largest transaction is returned and the
// caller decides the payment is not affordable.
func (c *Calculator) Calculate(amount btcutil.Amount,
	takeFeeFromAmount bool) btcutil.Amount {

	return c.calculate(amount, c.nts.Debt(), takeFeeFromAmount)
}

// CalculateForCollect returns the fee to fund a swap output that already
// includes the debt being collected. The thresholds are used as they are,
// since the whole utxo balance backs the output.
func (c *Calculator) CalculateForCollect(output btcutil.Amount,
	takeFeeFromAmount bool) btcutil.Amount {

	return c.calculate(output, 0, takeFeeFromAmount)
}

func (c *Calculator) calculate(amount, debt btcutil.Amount,
	takeFeeFromAmount bool) btcutil.Amount {

	progression := c.nts.SizeProgression
	if len(progression) == 0 || amount == 0 {
		return 0
	}

	for _, step := range progression {
		fee := c.rate.FeeForVSize(step.VSize)
		threshold := step.Amount - debt

		if takeFeeFromAmount {
			if amount <= threshold {
				return fee
			}

			continue
		}

		if amount+fee <= threshold {
			return fee
		}
	}

	last := progression[len(progression)-1]
	fee := c.rate.FeeForVSize(last.VSize)

	log.Tracef("Amount %v does not fit any step at %v, using last "+
		"fee %v", amount, c.rate, fee)

	return fee
}
