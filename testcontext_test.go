package payengine

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/payengine/fees"
	"github.com/lightninglabs/payengine/rates"
	"github.com/lightninglabs/payengine/swap"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testRateWindowID = 7

	testDescription = "coffee"
)

// testFeeWindow is the fee window of the amountless regression cases: swaps
// that need no confirmation are funded at 0.25 sat/vB.
func testFeeWindow() *fees.Window {
	return &fees.Window{
		ID: 1,
		TargetedFees: map[uint32]fees.SatPerVByte{
			1:  100,
			5:  50,
			10: 0.25,
		},
		FastConfTarget:   1,
		MediumConfTarget: 5,
		SlowConfTarget:   10,
	}
}

func testRateWindow() *rates.Window {
	return &rates.Window{
		ID: testRateWindowID,
		Rates: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(50_000),
			"EUR": decimal.NewFromInt(45_000),
			"ARS": decimal.NewFromInt(30_000),
		},
	}
}

// newTestContext returns a context over a single utxo step.
func newTestContext(balance btcutil.Amount, vsize int64,
	debt btcutil.Amount) *PaymentContext {

	return &PaymentContext{
		NextTransactionSize: &fees.NextTransactionSize{
			SizeProgression: []fees.SizeForAmount{{
				Amount: balance,
				VSize:  vsize,
			}},
			ExpectedDebt: debt,
		},
		FeeWindow:       testFeeWindow(),
		RateWindow:      testRateWindow(),
		PrimaryCurrency: "USD",
	}
}

func btc(sats btcutil.Amount) *rates.Money {
	money := rates.Bitcoin(sats)
	return &money
}

func feeRate(rate fees.SatPerVByte) *fees.SatPerVByte {
	return &rate
}

func addressRequest(amount btcutil.Amount,
	rate fees.SatPerVByte) PaymentRequest {

	return PaymentRequest{
		Type:        TypeToAddress,
		Amount:      btc(amount),
		Description: testDescription,
		FeeRate:     feeRate(rate),
	}
}

func swapRequest(amount btcutil.Amount, s *swap.SubmarineSwap) PaymentRequest {
	return PaymentRequest{
		Type:        TypeToLnInvoice,
		Amount:      btc(amount),
		Description: testDescription,
		Swap:        s,
	}
}

// amountlessSwap returns a swap for an invoice without amount, routed
// through a single route.
func amountlessSwap(route swap.BestRouteFees,
	policies swap.FundingOutputPolicies) *swap.SubmarineSwap {

	return &swap.SubmarineSwap{
		ID:                    "amountless",
		BestRouteFees:         []swap.BestRouteFees{route},
		FundingOutputPolicies: &policies,
		FundingOutput: swap.FundingOutput{
			ExpirationInBlocks: 144,
			ScriptVersion:      swap.CurrentScriptVersion,
		},
	}
}

// requirePayable asserts the costs of an analysis are known and returns
// them.
func requirePayable(t *testing.T, analysis *PaymentAnalysis) Payable {
	t.Helper()

	payable, ok := analysis.Costs.(Payable)
	require.Truef(t, ok, "expected payable costs, got %T", analysis.Costs)

	return payable
}

func requireUnpayable(t *testing.T, analysis *PaymentAnalysis) {
	t.Helper()

	require.IsType(t, Unpayable{}, analysis.Costs)

	_, ok := analysis.Fee()
	require.False(t, ok)
	_, ok = analysis.Total()
	require.False(t, ok)
}
