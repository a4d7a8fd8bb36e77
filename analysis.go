package payengine

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/payengine/rates"
	"github.com/lightninglabs/payengine/swap"
)

// MinDescriptionLength is the shortest description accepted for payments
// that need one.
const MinDescriptionLength = 1

// BitcoinAmount is a satoshi amount along with its value in the currency the
// user typed it in and in the user's primary currency.
type BitcoinAmount struct {
	Sats              btcutil.Amount `json:"inSatoshis"`
	InInputCurrency   rates.Money    `json:"inInputCurrency"`
	InPrimaryCurrency rates.Money    `json:"inPrimaryCurrency"`
}

// Costs are the on-chain fee and total debited from the wallet, when they can
// be determined.
type Costs interface {
	costs()
}

// Payable costs are known. It does not imply the wallet can afford them,
// that is told by the payability flags of the analysis.
type Payable struct {
	Fee   BitcoinAmount `json:"fee"`
	Total BitcoinAmount `json:"total"`
}

func (Payable) costs() {}

// Unpayable means the amount can't be paid at all, so no fee or total is
// computed.
type Unpayable struct{}

func (Unpayable) costs() {}

// PaymentAnalysis is the outcome of analyzing a payment request against a
// payment context.
type PaymentAnalysis struct {
	Request PaymentRequest

	// TotalBalance is the user balance, after any expected debt.
	TotalBalance BitcoinAmount

	// Amount is what the receiver gets.
	Amount BitcoinAmount

	// OutputAmount is the amount of the payment output. For swaps it
	// includes the swap fees and any collected debt.
	OutputAmount BitcoinAmount

	// SweepFee and LightningFee are only set for swaps.
	SweepFee     *BitcoinAmount
	LightningFee *BitcoinAmount

	Costs Costs

	CanPayWithoutFee      bool
	CanPayWithSelectedFee bool
	CanPayWithMinimumFee  bool

	// RateWindowID is the exchange rate window the amounts were
	// converted with.
	RateWindowID int64

	// HasOnChainTransaction is false for payments settled on credit.
	HasOnChainTransaction bool

	// UpdatedRequest is set when the analysis resolved the request,
	// such as picking the amount of an amountless swap. It is the
	// request to prepare from then on.
	UpdatedRequest *PaymentRequest
}

// Fee returns the on-chain fee, if known.
func (a *PaymentAnalysis) Fee() (BitcoinAmount, bool) {
	payable, ok := a.Costs.(Payable)
	if !ok {
		return BitcoinAmount{}, false
	}

	return payable.Fee, true
}

// Total returns the total debited from the wallet, if known.
func (a *PaymentAnalysis) Total() (BitcoinAmount, bool) {
	payable, ok := a.Costs.(Payable)
	if !ok {
		return BitcoinAmount{}, false
	}

	return payable.Total, true
}

// IsAmountTooSmall returns whether the payment output would be dust. Payments
// settled on credit have no output, only a zero amount is too small for them.
func (a *PaymentAnalysis) IsAmountTooSmall() bool {
	if !a.HasOnChainTransaction {
		return a.Amount.Sats <= 0
	}

	return a.OutputAmount.Sats <= swap.DustThreshold
}

// IsDescriptionTooShort returns whether the request lacks a required
// description.
func (a *PaymentAnalysis) IsDescriptionTooShort() bool {
	if !a.Request.RequiresDescription() {
		return false
	}

	return len(strings.TrimSpace(a.Request.Description)) <
		MinDescriptionLength
}

// IsValid returns whether the payment can be prepared.
func (a *PaymentAnalysis) IsValid() bool {
	return !a.IsAmountTooSmall() && !a.IsDescriptionTooShort() &&
		a.CanPayWithSelectedFee
}

// PaymentRequest returns the request to go on with: the resolved request when
// there is one, the analyzed request otherwise.
func (a *PaymentAnalysis) PaymentRequest() PaymentRequest {
	if a.UpdatedRequest != nil {
		return *a.UpdatedRequest
	}

	return a.Request
}
