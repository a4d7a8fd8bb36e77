package payengine

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/google/uuid"
	"github.com/lightninglabs/payengine/swap"
)

// PreparedPayment is a valid analysis reduced to what is needed to build the
// payment transaction.
type PreparedPayment struct {
	// ID identifies the prepared payment locally.
	ID uuid.UUID `json:"id"`

	Type PaymentType `json:"type"`

	Amount   btcutil.Amount `json:"amountInSatoshis"`
	Fee      btcutil.Amount `json:"feeInSatoshis"`
	SweepFee btcutil.Amount `json:"sweepFeeInSatoshis"`
	Total    btcutil.Amount `json:"totalInSatoshis"`

	Description string `json:"description,omitempty"`

	// RateWindowID is the exchange rate window the payment was analyzed
	// with. The payment is refused if rates moved before it is
	// committed.
	RateWindowID int64 `json:"rateWindowId"`

	// Swap is set for lightning payments.
	Swap *swap.SubmarineSwap `json:"swap,omitempty"`

	PreparedAt time.Time `json:"preparedAt"`
}

// Prepare analyzes the request and reduces it into a prepared payment stamped
// with the analyzer clock. Only valid analyses can be prepared.
func (a *Analyzer) Prepare(req PaymentRequest) (*PreparedPayment, error) {
	analysis, err := a.Analyze(req)
	if err != nil {
		return nil, err
	}

	return PrepareAnalysis(analysis, a.clock.Now())
}

// Prepare analyzes and prepares a single payment request.
func (c *PaymentContext) Prepare(req PaymentRequest,
	opts ...AnalyzerOption) (*PreparedPayment, error) {

	return NewAnalyzer(c, opts...).Prepare(req)
}

// PrepareAnalysis reduces an analysis into a prepared payment.
func PrepareAnalysis(analysis *PaymentAnalysis,
	now time.Time) (*PreparedPayment, error) {

	if !analysis.IsValid() {
		return nil, fmt.Errorf("%w: too small=%v, description too "+
			"short=%v, payable=%v", ErrNotPayable,
			analysis.IsAmountTooSmall(),
			analysis.IsDescriptionTooShort(),
			analysis.CanPayWithSelectedFee)
	}

	payable, ok := analysis.Costs.(Payable)
	if !ok {
		return nil, fmt.Errorf("%w: unknown fee", ErrNotPayable)
	}

	req := analysis.PaymentRequest()

	prepared := &PreparedPayment{
		ID:           uuid.New(),
		Type:         req.Type,
		Amount:       analysis.Amount.Sats,
		Fee:          payable.Fee.Sats,
		Total:        payable.Total.Sats,
		Description:  req.Description,
		RateWindowID: analysis.RateWindowID,
		Swap:         req.Swap,
		PreparedAt:   now,
	}
	if analysis.SweepFee != nil {
		prepared.SweepFee = analysis.SweepFee.Sats
	}

	log.Infof("Prepared %v payment %v: amount=%v fee=%v total=%v",
		prepared.Type, prepared.ID, prepared.Amount, prepared.Fee,
		prepared.Total)

	return prepared, nil
}
