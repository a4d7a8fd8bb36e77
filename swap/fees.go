package swap

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

const (
	// FeeRateTotalParts defines the granularity of the fee rate.
	// Throughout the codebase, we'll use fix based arithmetic to compute
	// fees.
	FeeRateTotalParts = 1e6
)

// CalcFee returns the routing fee for a given amount.
func CalcFee(amount, feeBase btcutil.Amount, feeRate int64) btcutil.Amount {
	return feeBase + amount*btcutil.Amount(feeRate)/
		btcutil.Amount(FeeRateTotalParts)
}

// BestRouteFees is the fee policy of a route the server can pay through, and
// the largest amount it can carry.
type BestRouteFees struct {
	MaxCapacity              btcutil.Amount `json:"maxCapacityInSat"`
	FeeProportionalMillionth int64          `json:"proportionalMillionth"`
	FeeBase                  btcutil.Amount `json:"baseInSat"`
}

// ForAmount returns the routing fee to pay amount through the route.
func (b *BestRouteFees) ForAmount(amount btcutil.Amount) btcutil.Amount {
	return CalcFee(amount, b.FeeBase, b.FeeProportionalMillionth)
}

// LightningFee returns the fee of the first route able to carry amount. If
// none can, the last route is used.
func LightningFee(amount btcutil.Amount, routes []BestRouteFees) btcutil.Amount {
	for i := range routes {
		if amount <= routes[i].MaxCapacity {
			return routes[i].ForAmount(amount)
		}
	}

	return routes[len(routes)-1].ForAmount(amount)
}

// SwapFees are the swap parameters computed by the wallet for an amountless
// invoice.
type SwapFees struct {
	RoutingFee          btcutil.Amount
	DebtType            DebtType
	DebtAmount          btcutil.Amount
	OutputPadding       btcutil.Amount
	ConfirmationsNeeded uint32

	// OutputAmount is what the wallet spends into the funding output. It
	// is zero for lent swaps, which have no funding transaction.
	OutputAmount btcutil.Amount

	// FundingOutputAmount is the output amount the server reports.
	FundingOutputAmount btcutil.Amount
}

// ComputeSwapFees computes the parameters the server would pick for a swap
// paying amount. Swaps taking the fee from the amount spend all funds, and are
// never lent.
func (p *FundingOutputPolicies) ComputeSwapFees(amount btcutil.Amount,
	routes []BestRouteFees, takeFeeFromAmount bool) *SwapFees {

	policies := p
	if takeFeeFromAmount {
		policies = &FundingOutputPolicies{
			MaximumDebt:       0,
			PotentialCollect:  p.PotentialCollect,
			MaxAmountFor0Conf: p.MaxAmountFor0Conf,
		}
	}

	lnFee := LightningFee(amount, routes)
	padding := policies.FundingOutputPadding(amount, lnFee, false)
	debtType := policies.DebtType(amount, lnFee, false)
	debtAmount := policies.DebtAmount(amount, lnFee, false)

	outputAmount := amount + lnFee + padding
	switch debtType {
	case DebtTypeCollect:
		outputAmount += debtAmount

	case DebtTypeLend:
		outputAmount = 0
	}

	return &SwapFees{
		RoutingFee:          lnFee,
		DebtType:            debtType,
		DebtAmount:          debtAmount,
		OutputPadding:       padding,
		ConfirmationsNeeded: policies.FundingConfirmations(amount, lnFee),
		OutputAmount:        outputAmount,
		FundingOutputAmount: policies.FundingOutputAmount(
			amount, lnFee, false,
		),
	}
}

// GetInvoiceAmt gets the invoice amount. It requires an amount to be
// specified.
func GetInvoiceAmt(params *chaincfg.Params,
	payReq string) (btcutil.Amount, error) {

	swapPayReq, err := zpay32.Decode(
		payReq, params,
	)
	if err != nil {
		return 0, err
	}

	if swapPayReq.MilliSat == nil {
		return 0, errors.New("no amount in invoice")
	}

	return swapPayReq.MilliSat.ToSatoshis(), nil
}
