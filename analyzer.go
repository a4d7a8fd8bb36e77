package payengine

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/payengine/fees"
	"github.com/lightninglabs/payengine/rates"
	"github.com/lightninglabs/payengine/swap"
	"github.com/lightningnetwork/lnd/clock"
)

// Analysis branches, used to label logs and metrics.
const (
	branchCannotPay     = "cannot_pay"
	branchLendSwap      = "lend_swap"
	branchCollectSwap   = "collect_swap"
	branchSwap          = "swap"
	branchAmountlessFFA = "amountless_fee_from_amount_swap"
	branchFeeFromAmount = "fee_from_amount"
	branchRegular       = "regular"
)

// defaultMaxParallel is the number of requests AnalyzeAll analyzes at once
// unless configured otherwise.
const defaultMaxParallel = 4

// Analyzer decides whether payment requests can be paid in a payment context,
// and computes their amounts and fees.
type Analyzer struct {
	ctx *PaymentContext

	// ctxErr is set when ctx can't be analyzed against, and returned by
	// every analysis.
	ctxErr error

	// maxParallel bounds the concurrent analyses of AnalyzeAll.
	maxParallel int

	metrics *Metrics

	// clock stamps prepared payments.
	clock clock.Clock
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithMetrics records every analysis in m.
func WithMetrics(m *Metrics) AnalyzerOption {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithClock sets the clock prepared payments are stamped with.
func WithClock(c clock.Clock) AnalyzerOption {
	return func(a *Analyzer) {
		a.clock = c
	}
}

// WithMaxParallel sets how many requests AnalyzeAll analyzes at once.
func WithMaxParallel(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxParallel = n
		}
	}
}

// NewAnalyzer returns an analyzer over the given context. The context is
// validated once, an invalid context fails every analysis with
// ErrInvalidContext.
func NewAnalyzer(ctx *PaymentContext, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		ctx:         ctx,
		maxParallel: defaultMaxParallel,
		clock:       clock.NewDefaultClock(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if ctx == nil {
		a.ctxErr = fmt.Errorf("%w: no context", ErrInvalidContext)
	} else if err := ctx.Validate(); err != nil {
		a.ctxErr = fmt.Errorf("%w: %w", ErrInvalidContext, err)
	}

	return a
}

// outcome holds the satoshi figures of an analysis, before conversion.
type outcome struct {
	branch string

	amount btcutil.Amount
	output btcutil.Amount

	// fee and total are ignored when unpayable is set.
	fee       btcutil.Amount
	total     btcutil.Amount
	unpayable bool

	// swapFees is only set for swaps.
	swapFees *swap.Fees

	canPayWithoutFee      bool
	canPayWithSelectedFee bool
	canPayWithMinimumFee  bool

	hasOnChainTx bool

	updated *PaymentRequest
}

// Analyze analyzes a payment request. Unaffordable payments are reported in
// the analysis, errors are only returned for requests that can't be
// analyzed.
func (a *Analyzer) Analyze(req PaymentRequest) (*PaymentAnalysis, error) {
	if a.ctxErr != nil {
		a.metrics.observeError(a.ctxErr)
		return nil, a.ctxErr
	}

	o, err := a.analyze(req)
	if err != nil {
		a.metrics.observeError(err)
		return nil, err
	}

	analysis, err := a.newAnalysis(req, o)
	if err != nil {
		a.metrics.observeError(err)
		return nil, err
	}

	a.metrics.observeAnalysis(o.branch, analysis)

	log.Debugf("Analyzed %v payment of %v (%v): fee=%v total=%v "+
		"selected=%v minimum=%v", req.Type, o.amount, o.branch, o.fee,
		o.total, o.canPayWithSelectedFee, o.canPayWithMinimumFee)
	log.Tracef("Payment analysis: %v", dump(analysis))

	return analysis, nil
}

func (a *Analyzer) analyze(req PaymentRequest) (*outcome, error) {
	s := req.Swap
	amountlessFFA := s != nil && s.IsAmountless() && req.TakeFeeFromAmount

	var amount btcutil.Amount
	switch {
	case req.Amount != nil:
		var err error
		amount, err = a.ctx.ToSatoshis(*req.Amount)
		if err != nil {
			return nil, err
		}

	// Spending all funds on an amountless invoice, the amount will be
	// whatever is left after fees.
	case amountlessFFA:
		amount = a.ctx.UserBalance()

	default:
		return nil, ErrMissingAmount
	}

	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount %v",
			ErrInvalidRequest, amount)
	}

	if s == nil && req.FeeRate == nil {
		return nil, ErrMissingFeeRate
	}

	if amount > a.ctx.UserBalance() {
		var output btcutil.Amount
		if s != nil && !s.IsAmountless() {
			output = s.FundingOutput.OutputAmount
		}

		return cannotPay(amount, output, s), nil
	}

	switch {
	case s == nil && req.TakeFeeFromAmount:
		return a.analyzeFeeFromAmount(req, amount), nil

	case s == nil:
		return a.analyzeFeeFromRemainingBalance(req, amount), nil

	// A zero amount can't be taken from, it is analyzed as a fixed
	// amount.
	case amountlessFFA && amount > 0:
		return a.analyzeAmountlessFeeFromAmountSwap(req)

	case s.IsAmountless():
		swapFees := s.FundingOutputPolicies.ComputeSwapFees(
			amount, s.BestRouteFees, req.TakeFeeFromAmount,
		)
		updated := req.WithSwap(s.WithFees(amount, swapFees)).
			WithTakeFeeFromAmount(false)

		o, err := a.analyzeSwap(updated, amount)
		if err != nil {
			return nil, err
		}
		o.updated = &updated

		return o, nil

	default:
		return a.analyzeSwap(req, amount)
	}
}

// cannotPay is the outcome of payments above the balance.
func cannotPay(amount, output btcutil.Amount, s *swap.SubmarineSwap) *outcome {
	o := &outcome{
		branch:       branchCannotPay,
		amount:       amount,
		output:       amount,
		unpayable:    true,
		hasOnChainTx: true,
	}
	if output > 0 {
		o.output = output
	}
	if s != nil {
		o.swapFees = s.Fees
		o.hasOnChainTx = !s.IsLend()
	}

	return o
}

// calculators returns fee calculators for the selected and minimum fee rates.
func (a *Analyzer) calculators(rate fees.SatPerVByte) (*fees.Calculator,
	*fees.Calculator) {

	nts := a.ctx.NextTransactionSize

	return fees.NewCalculator(rate, nts),
		fees.NewCalculator(fees.MinimumFeeRate, nts)
}

// swapFeeRate returns the rate funding a swap output. The user's pick wins
// over the window recommendation.
func (a *Analyzer) swapFeeRate(req PaymentRequest,
	confirmationsNeeded uint32) fees.SatPerVByte {

	if req.FeeRate != nil {
		return *req.FeeRate
	}

	return a.ctx.FeeWindow.SwapFeeRate(confirmationsNeeded)
}

func (a *Analyzer) analyzeFeeFromAmount(req PaymentRequest,
	total btcutil.Amount) *outcome {

	calc, minCalc := a.calculators(*req.FeeRate)

	fee := calc.Calculate(total, true)
	minFee := minCalc.Calculate(total, true)

	return &outcome{
		branch:                branchFeeFromAmount,
		amount:                max(0, total-fee),
		output:                max(0, total-fee),
		fee:                   fee,
		total:                 total,
		canPayWithoutFee:      true,
		canPayWithSelectedFee: total > fee+swap.DustThreshold,
		canPayWithMinimumFee:  total > minFee+swap.DustThreshold,
		hasOnChainTx:          true,
	}
}

func (a *Analyzer) analyzeFeeFromRemainingBalance(req PaymentRequest,
	amount btcutil.Amount) *outcome {

	calc, minCalc := a.calculators(*req.FeeRate)
	balance := a.ctx.UserBalance()

	fee := calc.Calculate(amount, false)
	minFee := minCalc.Calculate(amount, false)

	return &outcome{
		branch:                branchRegular,
		amount:                amount,
		output:                amount,
		fee:                   fee,
		total:                 amount + fee,
		canPayWithoutFee:      true,
		canPayWithSelectedFee: amount+fee <= balance,
		canPayWithMinimumFee:  amount+minFee <= balance,
		hasOnChainTx:          true,
	}
}

func (a *Analyzer) analyzeSwap(req PaymentRequest,
	amount btcutil.Amount) (*outcome, error) {

	switch {
	case req.Swap.IsLend():
		return a.analyzeLendSwap(req, amount), nil

	case req.Swap.IsCollect():
		return a.analyzeCollectSwap(req, amount)

	default:
		return a.analyzeNonDebtSwap(req, amount)
	}
}

// analyzeLendSwap analyzes a swap paid on credit. There is no transaction,
// the output amount and sweep fee of the server are ignored.
func (a *Analyzer) analyzeLendSwap(req PaymentRequest,
	amount btcutil.Amount) *outcome {

	s := req.Swap
	balance := a.ctx.UserBalance()
	lnFee := s.LightningFee()

	total := amount + lnFee
	canPayLightningFee := total <= balance

	return &outcome{
		branch:                branchLendSwap,
		amount:                amount,
		output:                s.FundingOutput.OutputAmount,
		total:                 total,
		unpayable:             !canPayLightningFee,
		swapFees:              &swap.Fees{Lightning: lnFee},
		canPayWithoutFee:      amount > 0 && amount <= balance,
		canPayWithSelectedFee: canPayLightningFee,
		canPayWithMinimumFee:  canPayLightningFee,
	}
}

// analyzeCollectSwap analyzes a swap whose output also repays the user's
// debt. The whole utxo balance backs the output, but the part paid by the
// user must still fit the user balance, or it would spend debt that is not
// collected by this swap.
func (a *Analyzer) analyzeCollectSwap(req PaymentRequest,
	amount btcutil.Amount) (*outcome, error) {

	s := req.Swap
	output := s.FundingOutput.OutputAmount
	collect := s.FundingOutput.DebtAmount

	expected := amount + s.LightningFee() + s.SweepFee()
	if output-collect != expected {
		return nil, fmt.Errorf("%w: output %v minus collect %v, "+
			"expected amount %v plus lightning fee %v plus sweep "+
			"fee %v", ErrInconsistentSwap, output, collect, amount,
			s.LightningFee(), s.SweepFee())
	}

	utxoBalance := a.ctx.UtxoBalance()
	if output > utxoBalance {
		o := cannotPay(amount, output, s)
		o.branch = branchCollectSwap

		return o, nil
	}

	rate := a.swapFeeRate(req, s.FundingOutput.ConfirmationsNeeded)
	calc, minCalc := a.calculators(rate)

	fee := calc.CalculateForCollect(output, false)
	minFee := minCalc.CalculateForCollect(output, false)

	balance := a.ctx.UserBalance()
	canPay := func(fee btcutil.Amount) bool {
		return output+fee <= utxoBalance &&
			output-collect+fee <= balance
	}

	return &outcome{
		branch:                branchCollectSwap,
		amount:                amount,
		output:                output,
		fee:                   fee,
		total:                 output - collect + fee,
		swapFees:              s.Fees,
		canPayWithoutFee:      true,
		canPayWithSelectedFee: canPay(fee),
		canPayWithMinimumFee:  canPay(minFee),
		hasOnChainTx:          true,
	}, nil
}

// analyzeNonDebtSwap analyzes a swap whose output pays exactly the amount
// and the swap fees.
func (a *Analyzer) analyzeNonDebtSwap(req PaymentRequest,
	amount btcutil.Amount) (*outcome, error) {

	s := req.Swap
	output := s.FundingOutput.OutputAmount
	balance := a.ctx.UserBalance()

	expected := amount + s.LightningFee() + s.SweepFee()
	if output != expected {
		return nil, fmt.Errorf("%w: output %v, expected amount %v plus "+
			"lightning fee %v plus sweep fee %v", ErrInconsistentSwap,
			output, amount, s.LightningFee(), s.SweepFee())
	}

	// The output includes the swap fees, so it may not fit even when the
	// amount does.
	if output > balance {
		o := cannotPay(amount, output, s)
		o.branch = branchSwap

		return o, nil
	}

	rate := a.swapFeeRate(req, s.FundingOutput.ConfirmationsNeeded)
	calc, minCalc := a.calculators(rate)

	fee := calc.Calculate(output, false)
	minFee := minCalc.Calculate(output, false)

	return &outcome{
		branch:                branchSwap,
		amount:                amount,
		output:                output,
		fee:                   fee,
		total:                 output + fee,
		swapFees:              s.Fees,
		canPayWithoutFee:      true,
		canPayWithSelectedFee: output+fee <= balance,
		canPayWithMinimumFee:  output+minFee <= balance,
		hasOnChainTx:          true,
	}, nil
}

// tffaSwapParams are the amount and fees of a swap spending all funds.
type tffaSwapParams struct {
	amount     btcutil.Amount
	lnFee      btcutil.Amount
	onChainFee btcutil.Amount
}

var errNoRouteCapacity = errors.New("no route can carry the amount")

// feeForAllFunds returns the on-chain fee of a swap spending all funds, along
// with the debt it collects.
func (a *Analyzer) feeForAllFunds(s *swap.SubmarineSwap,
	rate fees.SatPerVByte) btcutil.Amount {

	onChainAmount := a.ctx.UserBalance() +
		s.FundingOutputPolicies.PotentialCollect

	return fees.NewCalculator(rate, a.ctx.NextTransactionSize).
		CalculateForCollect(onChainAmount, true)
}

// computeTFFASwapParams finds the largest amount x such that x plus its
// routing fee plus the on-chain fee spends the user balance. With a route
// charging l(x) = prop * x / 1e6 + base:
//
//	x + l(x) = balance - onChainFee
//	x = (balance - onChainFee - base) * 1e6 / (prop + 1e6)
//
// Each route is tried until one has the capacity for the result.
func (a *Analyzer) computeTFFASwapParams(req PaymentRequest,
	confirmations uint32) (*tffaSwapParams, error) {

	s := req.Swap
	onChainFee := a.feeForAllFunds(s, a.swapFeeRate(req, confirmations))
	available := a.ctx.UserBalance() - onChainFee

	for _, route := range s.BestRouteFees {
		amount := (available - route.FeeBase) *
			swap.FeeRateTotalParts /
			btcutil.Amount(route.FeeProportionalMillionth+
				swap.FeeRateTotalParts)

		// Fees are rounded down, so one more satoshi may fit for the
		// same fee.
		lnFee := route.ForAmount(amount)
		if route.ForAmount(amount+1) == lnFee {
			amount++
		}

		if amount+lnFee <= route.MaxCapacity {
			return &tffaSwapParams{
				amount:     amount,
				lnFee:      lnFee,
				onChainFee: onChainFee,
			}, nil
		}
	}

	return nil, errNoRouteCapacity
}

// analyzeAmountlessFeeFromAmountSwap analyzes paying an amountless invoice
// with all funds. The amount depends on the fees, which depend on the
// confirmations needed, which depend on the amount. 0-conf fees are tried
// first, and 1-conf fees when the resulting amount needs a confirmation.
func (a *Analyzer) analyzeAmountlessFeeFromAmountSwap(
	req PaymentRequest) (*outcome, error) {

	s := req.Swap
	policies := s.FundingOutputPolicies
	balance := a.ctx.UserBalance()
	utxoBalance := a.ctx.UtxoBalance()

	unpayable := &outcome{
		branch:       branchAmountlessFFA,
		unpayable:    true,
		hasOnChainTx: true,
	}

	params, err := a.computeTFFASwapParams(req, 0)
	if err == nil &&
		policies.FundingConfirmations(params.amount, params.lnFee) == 1 {

		params, err = a.computeTFFASwapParams(req, 1)
	}
	if errors.Is(err, errNoRouteCapacity) {
		log.Debugf("No route for a swap spending %v", balance)
		return unpayable, nil
	}
	if err != nil {
		return nil, err
	}

	// Not even the fees can be paid.
	if params.amount <= 0 {
		return unpayable, nil
	}

	amount := params.amount
	swapFees := policies.ComputeSwapFees(amount, s.BestRouteFees, true)
	if swapFees.DebtType == swap.DebtTypeLend {
		return nil, fmt.Errorf("%w: swap spending all funds is lent",
			ErrInconsistentSwap)
	}
	if swapFees.RoutingFee != params.lnFee {
		return nil, fmt.Errorf("%w: routing fee %v, expected %v",
			ErrInconsistentSwap, swapFees.RoutingFee, params.lnFee)
	}

	output := swapFees.OutputAmount
	total := output + params.onChainFee
	totalForDisplay := total - swapFees.DebtAmount

	minFee := a.feeForAllFunds(s, fees.MinimumFeeRate)

	resolved := s.WithFees(amount, swapFees)
	updated := req.WithSwap(resolved).WithTakeFeeFromAmount(false)
	if req.Amount != nil {
		money, err := a.ctx.RateWindow.FromSatoshis(
			amount, req.Amount.Currency,
		)
		if err != nil {
			return nil, err
		}
		updated = updated.WithAmount(money)
	} else {
		updated = updated.WithAmount(rates.Bitcoin(amount))
	}

	canPay := total <= utxoBalance && totalForDisplay <= balance
	canPayMin := output+minFee <= utxoBalance &&
		output+minFee-swapFees.DebtAmount <= balance

	return &outcome{
		branch:                branchAmountlessFFA,
		amount:                amount,
		output:                output,
		fee:                   params.onChainFee,
		total:                 totalForDisplay,
		swapFees:              resolved.Fees,
		canPayWithoutFee:      true,
		canPayWithSelectedFee: canPay,
		canPayWithMinimumFee:  canPayMin,
		hasOnChainTx:          true,
		updated:               &updated,
	}, nil
}

// newAnalysis converts an outcome into an analysis, expressing every amount
// in the input and primary currencies of the rate window.
func (a *Analyzer) newAnalysis(req PaymentRequest,
	o *outcome) (*PaymentAnalysis, error) {

	inputCurrency := rates.BTC
	if req.Amount != nil {
		inputCurrency = req.Amount.Currency
	}

	var convErr error
	convert := func(sats btcutil.Amount) BitcoinAmount {
		amount, err := a.ctx.ToBitcoinAmount(max(0, sats), inputCurrency)
		if err != nil && convErr == nil {
			convErr = err
		}

		return amount
	}
	convertPtr := func(sats btcutil.Amount) *BitcoinAmount {
		amount := convert(sats)
		return &amount
	}

	analysis := &PaymentAnalysis{
		Request:               req,
		TotalBalance:          convert(a.ctx.UserBalance()),
		Amount:                convert(o.amount),
		OutputAmount:          convert(o.output),
		CanPayWithoutFee:      o.canPayWithoutFee,
		CanPayWithSelectedFee: o.canPayWithSelectedFee,
		CanPayWithMinimumFee:  o.canPayWithMinimumFee,
		RateWindowID:          a.ctx.RateWindow.ID,
		HasOnChainTransaction: o.hasOnChainTx,
		UpdatedRequest:        o.updated,
	}

	if o.unpayable {
		analysis.Costs = Unpayable{}
	} else {
		analysis.Costs = Payable{
			Fee:   convert(o.fee),
			Total: convert(o.total),
		}
	}

	if o.swapFees != nil {
		analysis.LightningFee = convertPtr(o.swapFees.Lightning)
		analysis.SweepFee = convertPtr(o.swapFees.Sweep)
	} else if req.Swap != nil {
		analysis.LightningFee = convertPtr(0)
		analysis.SweepFee = convertPtr(0)
	}

	if convErr != nil {
		return nil, convErr
	}

	return analysis, nil
}
