package swap

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// DustThreshold is the smallest output amount the network relays.
const DustThreshold btcutil.Amount = 546

// FundingOutputPolicies are the swap server's risk parameters. The wallet uses
// them to recompute the debt, confirmation and funding decisions the server
// makes, and to reject a swap whose funding output disagrees.
type FundingOutputPolicies struct {
	// MaximumDebt is the largest amount the server lends this user.
	MaximumDebt btcutil.Amount `json:"maximumDebtInSat"`

	// PotentialCollect is the debt the server collects on the next
	// funded swap.
	PotentialCollect btcutil.Amount `json:"potentialCollectInSat"`

	// MaxAmountFor0Conf is the largest swap paid before its funding
	// transaction confirms.
	MaxAmountFor0Conf btcutil.Amount `json:"maxAmountInSatFor0Conf"`
}

// FundingConfirmations returns the confirmations the funding transaction
// needs before the server pays the invoice.
func (p *FundingOutputPolicies) FundingConfirmations(amount,
	lnFee btcutil.Amount) uint32 {

	if amount+lnFee <= p.MaxAmountFor0Conf {
		return 0
	}

	return 1
}

// DebtType returns how the swap settles debt. A swap with a known funding
// transaction can't be lent.
func (p *FundingOutputPolicies) DebtType(amount, lnFee btcutil.Amount,
	hasTx bool) DebtType {

	if !hasTx && p.FundingConfirmations(amount, lnFee) == 0 &&
		amount+lnFee <= p.MaximumDebt {

		return DebtTypeLend
	}

	if p.PotentialCollect > 0 {
		return DebtTypeCollect
	}

	return DebtTypeNone
}

// DebtAmount returns the amount lent or collected by the swap.
func (p *FundingOutputPolicies) DebtAmount(amount, lnFee btcutil.Amount,
	hasTx bool) btcutil.Amount {

	switch p.DebtType(amount, lnFee, hasTx) {
	case DebtTypeLend:
		return amount + lnFee

	case DebtTypeCollect:
		return p.PotentialCollect

	default:
		return 0
	}
}

// MinFundingAmount returns the funding output amount before dust padding.
func (p *FundingOutputPolicies) MinFundingAmount(amount, lnFee btcutil.Amount,
	hasTx bool) btcutil.Amount {

	minAmount := amount + lnFee
	if p.DebtType(amount, lnFee, hasTx) == DebtTypeCollect {
		minAmount += p.DebtAmount(amount, lnFee, hasTx)
	}

	return minAmount
}

// FundingOutputAmount returns the funding output amount, padded up to the
// dust threshold.
func (p *FundingOutputPolicies) FundingOutputAmount(amount,
	lnFee btcutil.Amount, hasTx bool) btcutil.Amount {

	minAmount := p.MinFundingAmount(amount, lnFee, hasTx)
	if minAmount < DustThreshold {
		return DustThreshold
	}

	return minAmount
}

// FundingOutputPadding returns the amount added to reach the dust threshold.
func (p *FundingOutputPolicies) FundingOutputPadding(amount,
	lnFee btcutil.Amount, hasTx bool) btcutil.Amount {

	return p.FundingOutputAmount(amount, lnFee, hasTx) -
		p.MinFundingAmount(amount, lnFee, hasTx)
}

// ReplicatedOutput is the subset of a funding output decided by the
// server's policies.
type ReplicatedOutput struct {
	DebtType            DebtType       `json:"debtType"`
	DebtAmount          btcutil.Amount `json:"debtAmountInSatoshis"`
	ConfirmationsNeeded uint32         `json:"confirmationsNeeded"`
	OutputAmount        btcutil.Amount `json:"outputAmountInSatoshis"`
	OutputPadding       btcutil.Amount `json:"outputPaddingInSatoshis"`
}

// Replicate recomputes the policy driven fields of a funding output.
func (p *FundingOutputPolicies) Replicate(amount, lnFee btcutil.Amount,
	hasTx bool) *ReplicatedOutput {

	return &ReplicatedOutput{
		DebtType:            p.DebtType(amount, lnFee, hasTx),
		DebtAmount:          p.DebtAmount(amount, lnFee, hasTx),
		ConfirmationsNeeded: p.FundingConfirmations(amount, lnFee),
		OutputAmount:        p.FundingOutputAmount(amount, lnFee, hasTx),
		OutputPadding:       p.FundingOutputPadding(amount, lnFee, hasTx),
	}
}

// CheckFundingOutput compares a server funding output with the one the
// policies produce.
func (p *FundingOutputPolicies) CheckFundingOutput(fo *FundingOutput, amount,
	lnFee btcutil.Amount, hasTx bool) error {

	expected := p.Replicate(amount, lnFee, hasTx)

	switch {
	case fo.DebtType != expected.DebtType:
		return fmt.Errorf("%w: debt type %v, expected %v",
			ErrPolicyMismatch, fo.DebtType, expected.DebtType)

	case fo.DebtAmount != expected.DebtAmount:
		return fmt.Errorf("%w: debt amount %v, expected %v",
			ErrPolicyMismatch, fo.DebtAmount, expected.DebtAmount)

	case fo.ConfirmationsNeeded != expected.ConfirmationsNeeded:
		return fmt.Errorf("%w: confirmations %v, expected %v",
			ErrPolicyMismatch, fo.ConfirmationsNeeded,
			expected.ConfirmationsNeeded)

	case fo.OutputAmount != expected.OutputAmount:
		return fmt.Errorf("%w: output amount %v, expected %v",
			ErrPolicyMismatch, fo.OutputAmount,
			expected.OutputAmount)
	}

	return nil
}
