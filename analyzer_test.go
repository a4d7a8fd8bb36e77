package payengine

import (
	"math"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/payengine/fees"
	"github.com/lightninglabs/payengine/rates"
	"github.com/lightninglabs/payengine/swap"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestAnalyzeZeroAmount tests that a zero amount is payable but too small to
// be sent.
func TestAnalyzeZeroAmount(t *testing.T) {
	ctx := newTestContext(100_000, 200, 0)

	analysis, err := ctx.Analyze(addressRequest(0, 10))
	require.NoError(t, err)

	payable := requirePayable(t, analysis)
	require.Zero(t, payable.Fee.Sats)
	require.Zero(t, payable.Total.Sats)

	require.True(t, analysis.CanPayWithoutFee)
	require.True(t, analysis.IsAmountTooSmall())
	require.False(t, analysis.IsValid())
}

// TestAnalyzeAboveBalance tests that an amount a single satoshi above the
// balance can't be paid at all.
func TestAnalyzeAboveBalance(t *testing.T) {
	ctx := newTestContext(100_000, 200, 0)

	analysis, err := ctx.Analyze(addressRequest(100_001, 10))
	require.NoError(t, err)

	requireUnpayable(t, analysis)
	require.False(t, analysis.CanPayWithoutFee)
	require.False(t, analysis.CanPayWithSelectedFee)
	require.False(t, analysis.CanPayWithMinimumFee)
	require.False(t, analysis.IsValid())
	require.Equal(t, btcutil.Amount(100_001), analysis.Amount.Sats)
}

// TestAnalyzeRegular tests payments whose fee is paid on top of the amount.
func TestAnalyzeRegular(t *testing.T) {
	tests := []struct {
		name    string
		amount  btcutil.Amount
		rate    fees.SatPerVByte
		debt    btcutil.Amount
		fee     btcutil.Amount
		canPay  bool
		canMin  bool
		tooThin bool
	}{
		{
			name:   "fits",
			amount: 50_000,
			rate:   10,
			fee:    2_000,
			canPay: true,
			canMin: true,
		},
		{
			name:   "amount plus fee is the balance",
			amount: 98_000,
			rate:   10,
			fee:    2_000,
			canPay: true,
			canMin: true,
		},
		{
			name:   "selected fee one satoshi short",
			amount: 98_001,
			rate:   10,
			fee:    2_000,
			canMin: true,
		},
		{
			name:   "whole balance without fee",
			amount: 100_000,
			rate:   0,
			fee:    0,
			canPay: true,
			canMin: false,
		},
		{
			name:   "whole balance with fee",
			amount: 100_000,
			rate:   1,
			fee:    200,
		},
		{
			name:   "debt lowers the balance",
			amount: 60_000,
			rate:   10,
			debt:   39_000,
			fee:    2_000,
			canMin: true,
		},
		{
			name:    "dust output",
			amount:  swap.DustThreshold,
			rate:    1,
			fee:     200,
			canPay:  true,
			canMin:  true,
			tooThin: true,
		},
		{
			name:   "smallest non dust output",
			amount: swap.DustThreshold + 1,
			rate:   1,
			fee:    200,
			canPay: true,
			canMin: true,
		},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			ctx := newTestContext(100_000, 200, test.debt)

			analysis, err := ctx.Analyze(
				addressRequest(test.amount, test.rate),
			)
			require.NoError(t, err)

			payable := requirePayable(t, analysis)
			require.Equal(t, test.fee, payable.Fee.Sats)
			require.Equal(t, test.amount+test.fee, payable.Total.Sats)
			require.Equal(t, test.amount, analysis.OutputAmount.Sats)

			require.True(t, analysis.CanPayWithoutFee)
			require.Equal(t, test.canPay, analysis.CanPayWithSelectedFee)
			require.Equal(t, test.canMin, analysis.CanPayWithMinimumFee)
			require.Equal(t, test.tooThin, analysis.IsAmountTooSmall())
			require.Equal(
				t, test.canPay && !test.tooThin, analysis.IsValid(),
			)
			require.True(t, analysis.HasOnChainTransaction)
			require.Nil(t, analysis.LightningFee)
			require.Nil(t, analysis.SweepFee)
		})
	}
}

// TestAnalyzeFeeFromAmount tests payments whose fee is deducted from the
// amount the user typed.
func TestAnalyzeFeeFromAmount(t *testing.T) {
	ctx := newTestContext(100_000, 200, 0)

	t.Run("whole balance", func(t *testing.T) {
		req := addressRequest(100_000, 10).WithTakeFeeFromAmount(true)

		analysis, err := ctx.Analyze(req)
		require.NoError(t, err)

		payable := requirePayable(t, analysis)
		require.Equal(t, btcutil.Amount(2_000), payable.Fee.Sats)
		require.Equal(t, btcutil.Amount(100_000), payable.Total.Sats)
		require.Equal(t, btcutil.Amount(98_000), analysis.Amount.Sats)
		require.True(t, analysis.CanPayWithSelectedFee)
		require.True(t, analysis.CanPayWithMinimumFee)
		require.True(t, analysis.IsValid())
	})

	t.Run("fee eats the amount", func(t *testing.T) {
		req := addressRequest(2_000, 10).WithTakeFeeFromAmount(true)

		analysis, err := ctx.Analyze(req)
		require.NoError(t, err)

		payable := requirePayable(t, analysis)
		require.Equal(t, btcutil.Amount(2_000), payable.Fee.Sats)
		require.Zero(t, analysis.Amount.Sats)
		require.True(t, analysis.CanPayWithoutFee)
		require.False(t, analysis.CanPayWithSelectedFee)
		require.True(t, analysis.CanPayWithMinimumFee)
		require.True(t, analysis.IsAmountTooSmall())
	})
}

// TestFeeFromAmountRoundTrip tests that paying the net amount of a fee from
// amount payment, with the fee on top, spends the same gross amount.
func TestFeeFromAmountRoundTrip(t *testing.T) {
	ctx := newTestContext(100_000, 300, 0)
	ctx.NextTransactionSize.SizeProgression = []fees.SizeForAmount{
		{Amount: 10_000, VSize: 100},
		{Amount: 50_000, VSize: 200},
		{Amount: 100_000, VSize: 300},
	}

	for _, gross := range []btcutil.Amount{10_000, 30_000, 50_000, 100_000} {
		ffa, err := ctx.Analyze(
			addressRequest(gross, 10).WithTakeFeeFromAmount(true),
		)
		require.NoError(t, err)

		regular, err := ctx.Analyze(addressRequest(ffa.Amount.Sats, 10))
		require.NoError(t, err)

		total, ok := regular.Total()
		require.True(t, ok)
		require.Equal(t, gross, total.Sats, "gross %v", gross)
	}
}

// TestAnalyzeInvalidContext tests that incomplete contexts fail analyses
// with an error.
func TestAnalyzeInvalidContext(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PaymentContext)
	}{
		{
			name: "no utxo snapshot",
			mutate: func(c *PaymentContext) {
				c.NextTransactionSize = nil
			},
		},
		{
			name: "empty fee window",
			mutate: func(c *PaymentContext) {
				c.FeeWindow.TargetedFees = nil
			},
		},
		{
			name: "no exchange rates",
			mutate: func(c *PaymentContext) {
				c.RateWindow = nil
			},
		},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			ctx := newTestContext(100_000, 200, 0)
			test.mutate(ctx)

			_, err := ctx.Analyze(addressRequest(1_000, 1))
			require.ErrorIs(t, err, ErrInvalidContext)

			s := amountlessSwap(
				swap.BestRouteFees{
					MaxCapacity: 1_000_000,
					FeeBase:     1,
				},
				swap.FundingOutputPolicies{},
			)
			_, err = ctx.Analyze(
				swapRequest(1_000, s).WithTakeFeeFromAmount(true),
			)
			require.ErrorIs(t, err, ErrInvalidContext)
		})
	}

	_, err := NewAnalyzer(nil).Analyze(addressRequest(1_000, 1))
	require.ErrorIs(t, err, ErrInvalidContext)
}

// TestAnalyzeErrors tests the requests that can't be analyzed.
func TestAnalyzeErrors(t *testing.T) {
	ctx := newTestContext(100_000, 200, 0)

	tests := []struct {
		name string
		req  PaymentRequest
		err  error
	}{
		{
			name: "no amount",
			req: PaymentRequest{
				Type:    TypeToAddress,
				FeeRate: feeRate(1),
			},
			err: ErrMissingAmount,
		},
		{
			name: "no fee rate",
			req: PaymentRequest{
				Type:   TypeToAddress,
				Amount: btc(1_000),
			},
			err: ErrMissingFeeRate,
		},
		{
			name: "negative amount",
			req:  addressRequest(-1, 1),
			err:  ErrInvalidRequest,
		},
		{
			name: "unknown currency",
			req: addressRequest(0, 1).WithAmount(rates.NewMoney(
				decimal.NewFromInt(1), "XYZ",
			)),
			err: rates.ErrUnknownCurrency,
		},
		{
			name: "fixed swap without amount",
			req: PaymentRequest{
				Type: TypeToLnInvoice,
				Swap: &swap.SubmarineSwap{},
			},
			err: ErrMissingAmount,
		},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			_, err := ctx.Analyze(test.req)
			require.ErrorIs(t, err, test.err)
		})
	}
}

// TestAnalyzeCurrencies tests that amounts are converted back into the input
// and primary currencies.
func TestAnalyzeCurrencies(t *testing.T) {
	ctx := newTestContext(100_000, 200, 0)
	ctx.PrimaryCurrency = "EUR"

	req := addressRequest(0, 1).WithAmount(
		rates.NewMoney(decimal.NewFromInt(10), "usd"),
	)

	analysis, err := ctx.Analyze(req)
	require.NoError(t, err)

	require.Equal(t, btcutil.Amount(20_000), analysis.Amount.Sats)
	require.Equal(t, "USD", analysis.Amount.InInputCurrency.Currency)
	require.True(t, decimal.NewFromInt(10).Equal(
		analysis.Amount.InInputCurrency.Amount,
	))
	require.Equal(t, "EUR", analysis.Amount.InPrimaryCurrency.Currency)
	require.True(t, decimal.NewFromInt(9).Equal(
		analysis.Amount.InPrimaryCurrency.Amount,
	))
	require.Equal(t, int64(testRateWindowID), analysis.RateWindowID)

	fee, ok := analysis.Fee()
	require.True(t, ok)
	require.Equal(t, btcutil.Amount(200), fee.Sats)
	require.Equal(t, "USD", fee.InInputCurrency.Currency)

	// Fractions of a satoshi are truncated.
	sats, err := ctx.ToSatoshis(
		rates.NewMoney(decimal.NewFromInt(1), "ARS"),
	)
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(3_333), sats)
}

// TestAnalyzeLendSwap tests swaps paid on credit, which have no funding
// transaction.
func TestAnalyzeLendSwap(t *testing.T) {
	lend := func() *swap.SubmarineSwap {
		return &swap.SubmarineSwap{
			ID: "lend",
			FundingOutput: swap.FundingOutput{
				OutputAmount: 1_010,
				DebtType:     swap.DebtTypeLend,
				DebtAmount:   1_010,
			},
			Fees: &swap.Fees{
				Lightning: 10,
			},
		}
	}

	t.Run("payable", func(t *testing.T) {
		ctx := newTestContext(100_000, 200, 0)

		analysis, err := ctx.Analyze(swapRequest(1_000, lend()))
		require.NoError(t, err)

		payable := requirePayable(t, analysis)
		require.Zero(t, payable.Fee.Sats)
		require.Equal(t, btcutil.Amount(1_010), payable.Total.Sats)
		require.Equal(t, btcutil.Amount(10), analysis.LightningFee.Sats)
		require.Zero(t, analysis.SweepFee.Sats)

		require.False(t, analysis.HasOnChainTransaction)
		require.True(t, analysis.CanPayWithSelectedFee)
		require.True(t, analysis.CanPayWithMinimumFee)
		require.False(t, analysis.IsAmountTooSmall())
		require.True(t, analysis.IsValid())
	})

	t.Run("lightning fee above balance", func(t *testing.T) {
		ctx := newTestContext(1_005, 200, 0)

		analysis, err := ctx.Analyze(swapRequest(1_000, lend()))
		require.NoError(t, err)

		requireUnpayable(t, analysis)
		require.True(t, analysis.CanPayWithoutFee)
		require.False(t, analysis.CanPayWithSelectedFee)
		require.False(t, analysis.CanPayWithMinimumFee)
		require.False(t, analysis.HasOnChainTransaction)
	})

	t.Run("zero amount", func(t *testing.T) {
		ctx := newTestContext(100_000, 200, 0)

		analysis, err := ctx.Analyze(swapRequest(0, lend()))
		require.NoError(t, err)

		require.False(t, analysis.CanPayWithoutFee)
		require.True(t, analysis.IsAmountTooSmall())
		require.False(t, analysis.IsValid())
	})
}

// TestAnalyzeCollectSwap tests swaps whose output also repays debt.
func TestAnalyzeCollectSwap(t *testing.T) {
	collect := func(output btcutil.Amount) *swap.SubmarineSwap {
		return &swap.SubmarineSwap{
			ID: "collect",
			FundingOutput: swap.FundingOutput{
				OutputAmount: output,
				DebtType:     swap.DebtTypeCollect,
				DebtAmount:   3_000,
			},
		}
	}

	t.Run("payable", func(t *testing.T) {
		ctx := newTestContext(10_401, 240, 3_000)

		req := swapRequest(5_000, collect(8_000)).WithFeeRate(10)
		analysis, err := ctx.Analyze(req)
		require.NoError(t, err)

		payable := requirePayable(t, analysis)
		require.Equal(t, btcutil.Amount(2_400), payable.Fee.Sats)
		require.Equal(t, btcutil.Amount(7_400), payable.Total.Sats)
		require.Equal(t, btcutil.Amount(8_000), analysis.OutputAmount.Sats)
		require.Equal(t, btcutil.Amount(7_401), analysis.TotalBalance.Sats)

		require.True(t, analysis.CanPayWithSelectedFee)
		require.True(t, analysis.CanPayWithMinimumFee)
		require.True(t, analysis.HasOnChainTransaction)
		require.True(t, analysis.IsValid())
	})

	t.Run("inconsistent output", func(t *testing.T) {
		ctx := newTestContext(10_401, 240, 3_000)

		req := swapRequest(5_000, collect(8_001)).WithFeeRate(10)
		_, err := ctx.Analyze(req)
		require.ErrorIs(t, err, ErrInconsistentSwap)
	})

	t.Run("output above utxos", func(t *testing.T) {
		ctx := newTestContext(10_401, 240, 3_000)

		s := collect(11_000)
		s.FundingOutput.DebtAmount = 6_000

		analysis, err := ctx.Analyze(swapRequest(5_000, s))
		require.NoError(t, err)

		requireUnpayable(t, analysis)
		require.Equal(t, btcutil.Amount(11_000), analysis.OutputAmount.Sats)
		require.False(t, analysis.CanPayWithSelectedFee)
	})

	// The utxos cover the output, but collecting less than the debt
	// would spend funds still owed.
	t.Run("collect below debt", func(t *testing.T) {
		ctx := newTestContext(10_000, 200, 3_000)

		s := collect(7_910)
		s.FundingOutput.DebtAmount = 1_000
		s.Fees = &swap.Fees{Lightning: 10}

		req := swapRequest(6_900, s).WithFeeRate(1)
		analysis, err := ctx.Analyze(req)
		require.NoError(t, err)

		payable := requirePayable(t, analysis)
		require.Equal(t, btcutil.Amount(200), payable.Fee.Sats)
		require.Equal(t, btcutil.Amount(7_110), payable.Total.Sats)
		require.Equal(t, btcutil.Amount(7_000), analysis.TotalBalance.Sats)

		require.True(t, analysis.CanPayWithoutFee)
		require.False(t, analysis.CanPayWithSelectedFee)
		require.False(t, analysis.CanPayWithMinimumFee)
		require.False(t, analysis.IsValid())
	})
}

// TestAnalyzeSwap tests swaps without debt.
func TestAnalyzeSwap(t *testing.T) {
	newSwap := func(output btcutil.Amount) *swap.SubmarineSwap {
		return &swap.SubmarineSwap{
			ID: "swap",
			FundingOutput: swap.FundingOutput{
				OutputAmount: output,
			},
			Fees: &swap.Fees{
				Lightning: 10,
				Sweep:     20,
			},
		}
	}

	t.Run("window fee rate", func(t *testing.T) {
		ctx := newTestContext(100_000, 200, 0)

		analysis, err := ctx.Analyze(swapRequest(5_000, newSwap(5_030)))
		require.NoError(t, err)

		payable := requirePayable(t, analysis)
		require.Equal(t, btcutil.Amount(50), payable.Fee.Sats)
		require.Equal(t, btcutil.Amount(5_080), payable.Total.Sats)
		require.Equal(t, btcutil.Amount(10), analysis.LightningFee.Sats)
		require.Equal(t, btcutil.Amount(20), analysis.SweepFee.Sats)
		require.True(t, analysis.IsValid())
	})

	t.Run("selected fee rate", func(t *testing.T) {
		ctx := newTestContext(100_000, 200, 0)

		req := swapRequest(5_000, newSwap(5_030)).WithFeeRate(2)
		analysis, err := ctx.Analyze(req)
		require.NoError(t, err)

		fee, ok := analysis.Fee()
		require.True(t, ok)
		require.Equal(t, btcutil.Amount(400), fee.Sats)
	})

	t.Run("output above balance", func(t *testing.T) {
		ctx := newTestContext(100_000, 200, 0)

		analysis, err := ctx.Analyze(
			swapRequest(99_990, newSwap(100_020)),
		)
		require.NoError(t, err)

		requireUnpayable(t, analysis)
		require.Equal(t, btcutil.Amount(99_990), analysis.Amount.Sats)
		require.Equal(t, btcutil.Amount(100_020), analysis.OutputAmount.Sats)
		require.False(t, analysis.CanPayWithoutFee)
	})

	t.Run("amount above balance", func(t *testing.T) {
		ctx := newTestContext(100_000, 200, 0)

		analysis, err := ctx.Analyze(
			swapRequest(100_001, newSwap(100_031)),
		)
		require.NoError(t, err)

		requireUnpayable(t, analysis)
		require.Equal(t, btcutil.Amount(100_031), analysis.OutputAmount.Sats)
		require.Equal(t, btcutil.Amount(10), analysis.LightningFee.Sats)
	})

	t.Run("inflated output", func(t *testing.T) {
		ctx := newTestContext(100_000, 200, 0)

		_, err := ctx.Analyze(swapRequest(5_000, newSwap(9_030)))
		require.ErrorIs(t, err, ErrInconsistentSwap)
	})

	t.Run("short output", func(t *testing.T) {
		ctx := newTestContext(100_000, 200, 0)

		_, err := ctx.Analyze(swapRequest(5_000, newSwap(5_029)))
		require.ErrorIs(t, err, ErrInconsistentSwap)
	})
}

// TestAnalyzeAmountlessSwap tests that an amountless swap paying a fixed
// amount is resolved into a fixed swap.
func TestAnalyzeAmountlessSwap(t *testing.T) {
	ctx := newTestContext(100_000, 200, 0)

	s := amountlessSwap(
		swap.BestRouteFees{
			MaxCapacity:              1_000_000,
			FeeProportionalMillionth: 1_000,
			FeeBase:                  1,
		},
		swap.FundingOutputPolicies{
			MaxAmountFor0Conf: 1_000_000,
		},
	)

	analysis, err := ctx.Analyze(swapRequest(10_000, s))
	require.NoError(t, err)

	payable := requirePayable(t, analysis)
	require.Equal(t, btcutil.Amount(50), payable.Fee.Sats)
	require.Equal(t, btcutil.Amount(10_061), payable.Total.Sats)
	require.Equal(t, btcutil.Amount(10_011), analysis.OutputAmount.Sats)
	require.Equal(t, btcutil.Amount(11), analysis.LightningFee.Sats)
	require.True(t, analysis.IsValid())

	// The analyzed request is left untouched.
	require.True(t, s.IsAmountless())
	require.Nil(t, s.Fees)

	require.NotNil(t, analysis.UpdatedRequest)
	updated := analysis.PaymentRequest()
	require.False(t, updated.Swap.IsAmountless())
	require.False(t, updated.TakeFeeFromAmount)
	require.Equal(t, btcutil.Amount(11), updated.Swap.Fees.Lightning)
	require.Equal(
		t, btcutil.Amount(10_011), updated.Swap.FundingOutput.OutputAmount,
	)
	require.Equal(t, swap.DebtTypeNone, updated.Swap.FundingOutput.DebtType)
}

// TestAnalyzeAmountlessFeeFromAmountSwap tests paying amountless invoices
// with all funds. The cases are regressions of amounts that once disagreed
// with the swap server.
func TestAnalyzeAmountlessFeeFromAmountSwap(t *testing.T) {
	type expected struct {
		unpayable bool

		amount   btcutil.Amount
		fee      btcutil.Amount
		lnFee    btcutil.Amount
		padding  btcutil.Amount
		output   btcutil.Amount
		debtType swap.DebtType
		debt     btcutil.Amount
		confs    uint32
		total    btcutil.Amount
		canPay   bool
	}

	tests := []struct {
		name     string
		utxos    btcutil.Amount
		vsize    int64
		debt     btcutil.Amount
		route    swap.BestRouteFees
		policies swap.FundingOutputPolicies
		expected expected

		// steps replaces the single utxos/vsize step when set.
		steps []fees.SizeForAmount
	}{
		{
			name:  "failure 1",
			utxos: 36_931,
			vsize: 253,
			debt:  26_876,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1051,
				FeeBase:                  4,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       123_124,
				PotentialCollect:  20_686,
				MaxAmountFor0Conf: 193_437,
			},
			expected: expected{
				amount:   9_977,
				fee:      64,
				lnFee:    14,
				output:   30_677,
				debtType: swap.DebtTypeCollect,
				debt:     20_686,
				total:    10_055,
				canPay:   true,
			},
		},
		{
			name:  "failure 2",
			utxos: 83_880,
			vsize: 495,
			debt:  73_590,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 297,
				FeeBase:                  4,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       76_410,
				PotentialCollect:  33_292,
				MaxAmountFor0Conf: 254_235,
			},
			expected: expected{
				amount:   10_159,
				fee:      124,
				lnFee:    7,
				output:   43_458,
				debtType: swap.DebtTypeCollect,
				debt:     33_292,
				total:    10_290,
				canPay:   true,
			},
		},
		{
			name:  "failure 3",
			utxos: 1_597,
			vsize: 391,
			debt:  1_511,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 875,
				FeeBase:                  2,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       148_489,
				PotentialCollect:  759,
				MaxAmountFor0Conf: 163_704,
			},
			expected: expected{
				unpayable: true,
			},
		},
		{
			name:  "failure 4",
			utxos: 1_016,
			vsize: 409,
			debt:  776,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 468,
				FeeBase:                  4,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       149_224,
				PotentialCollect:  246,
				MaxAmountFor0Conf: 243_320,
			},
			expected: expected{
				amount:   133,
				fee:      103,
				lnFee:    4,
				padding:  163,
				output:   546,
				debtType: swap.DebtTypeCollect,
				debt:     246,
				total:    403,
			},
		},
		{
			name:  "failure 5",
			utxos: 1_843,
			vsize: 475,
			debt:  458,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1417,
				FeeBase:                  2,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       149_542,
				PotentialCollect:  222,
				MaxAmountFor0Conf: 223_421,
			},
			expected: expected{
				amount:   1_263,
				fee:      119,
				lnFee:    3,
				output:   1_488,
				debtType: swap.DebtTypeCollect,
				debt:     222,
				total:    1_385,
				canPay:   true,
			},
		},
		{
			name:  "failure 6",
			utxos: 6_658,
			vsize: 262,
			debt:  6_539,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1991,
				FeeBase:                  1,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       143_461,
				PotentialCollect:  6_422,
				MaxAmountFor0Conf: 254_856,
			},
			expected: expected{
				amount:   52,
				fee:      66,
				lnFee:    1,
				output:   6_475,
				debtType: swap.DebtTypeCollect,
				debt:     6_422,
				total:    119,
				canPay:   true,
			},
		},
		{
			name:  "failure 7",
			utxos: 8_169,
			vsize: 301,
			debt:  5_619,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1009,
				FeeBase:                  2,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       144_381,
				PotentialCollect:  1_140,
				MaxAmountFor0Conf: 210_617,
			},
			expected: expected{
				amount:   2_470,
				fee:      76,
				lnFee:    4,
				output:   3_614,
				debtType: swap.DebtTypeCollect,
				debt:     1_140,
				total:    2_550,
				canPay:   true,
			},
		},
		{
			name:  "failure 8",
			debt:  40_471,
			steps: []fees.SizeForAmount{
				{Amount: 46_785, VSize: 365},
				{Amount: 99_948, VSize: 857},
			},
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 655,
				FeeBase:                  1,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       109_529,
				PotentialCollect:  13_892,
				MaxAmountFor0Conf: 258_399,
			},
			expected: expected{
				amount:   59_223,
				fee:      215,
				lnFee:    39,
				output:   73_154,
				debtType: swap.DebtTypeCollect,
				debt:     13_892,
				total:    59_477,
				canPay:   true,
			},
		},
		{
			name:  "failure 9",
			debt:  84_117,
			steps: []fees.SizeForAmount{
				{Amount: 10_087, VSize: 430},
				{Amount: 156_784, VSize: 851},
			},
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1146,
				FeeBase:                  3,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       65_883,
				PotentialCollect:  77_393,
				MaxAmountFor0Conf: 240_440,
			},
			expected: expected{
				amount:   72_369,
				fee:      213,
				lnFee:    85,
				output:   149_847,
				debtType: swap.DebtTypeCollect,
				debt:     77_393,
				total:    72_667,
				canPay:   true,
			},
		},
		{
			name:  "failure 10",
			utxos: 117_197,
			vsize: 333,
			debt:  18_225,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 890,
				FeeBase:                  1,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       131_775,
				PotentialCollect:  16_109,
				MaxAmountFor0Conf: 182_743,
			},
			expected: expected{
				amount:   98_800,
				fee:      84,
				lnFee:    88,
				output:   114_997,
				debtType: swap.DebtTypeCollect,
				debt:     16_109,
				total:    98_972,
				canPay:   true,
			},
		},
		{
			name:  "failure 11",
			utxos: 3_165,
			vsize: 402,
			debt:  2_812,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1461,
				FeeBase:                  3,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       147_188,
				PotentialCollect:  222,
				MaxAmountFor0Conf: 164_563,
			},
			expected: expected{
				amount:   249,
				fee:      101,
				lnFee:    3,
				padding:  72,
				output:   546,
				debtType: swap.DebtTypeCollect,
				debt:     222,
				total:    425,
			},
		},
		{
			name:  "failure 11 with less debt",
			utxos: 3_165,
			vsize: 402,
			debt:  2_740,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1461,
				FeeBase:                  3,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       147_188,
				PotentialCollect:  222,
				MaxAmountFor0Conf: 164_563,
			},
			expected: expected{
				amount:   321,
				fee:      101,
				lnFee:    3,
				output:   546,
				debtType: swap.DebtTypeCollect,
				debt:     222,
				total:    425,
				canPay:   true,
			},
		},
		{
			name:  "failure 12",
			utxos: 86_343,
			vsize: 358,
			debt:  32_639,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1457,
				FeeBase:                  2,
			},
			policies: swap.FundingOutputPolicies{
				MaximumDebt:       117_361,
				PotentialCollect:  27_161,
				MaxAmountFor0Conf: 287_685,
			},
			expected: expected{
				amount:   53_534,
				fee:      90,
				lnFee:    79,
				output:   80_774,
				debtType: swap.DebtTypeCollect,
				debt:     27_161,
				total:    53_703,
				canPay:   true,
			},
		},
		{
			name:  "failure 13",
			utxos: 500,
			vsize: 209,
			route: swap.BestRouteFees{
				MaxCapacity:              100_000,
				FeeProportionalMillionth: 1000,
				FeeBase:                  1,
			},
			policies: swap.FundingOutputPolicies{
				MaxAmountFor0Conf: math.MaxInt64,
			},
			expected: expected{
				amount:   446,
				fee:      53,
				lnFee:    1,
				padding:  99,
				output:   546,
				debtType: swap.DebtTypeNone,
				total:    599,
			},
		},
		{
			name:  "needs a confirmation",
			utxos: 100_000,
			vsize: 200,
			route: swap.BestRouteFees{
				MaxCapacity:              1_000_000,
				FeeProportionalMillionth: 1000,
				FeeBase:                  1,
			},
			policies: swap.FundingOutputPolicies{
				MaxAmountFor0Conf: 10_000,
			},
			expected: expected{
				amount:   79_920,
				fee:      20_000,
				lnFee:    80,
				output:   80_000,
				debtType: swap.DebtTypeNone,
				confs:    1,
				total:    100_000,
				canPay:   true,
			},
		},
		{
			name:  "no route for the amount",
			utxos: 100_000,
			vsize: 200,
			route: swap.BestRouteFees{
				MaxCapacity:              1_000,
				FeeProportionalMillionth: 1000,
				FeeBase:                  1,
			},
			policies: swap.FundingOutputPolicies{
				MaxAmountFor0Conf: 1_000_000,
			},
			expected: expected{
				unpayable: true,
			},
		},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			ctx := newTestContext(test.utxos, test.vsize, test.debt)
			if test.steps != nil {
				ctx.NextTransactionSize.SizeProgression = test.steps
			}
			balance := ctx.UserBalance()

			req := swapRequest(
				balance, amountlessSwap(test.route, test.policies),
			).WithTakeFeeFromAmount(true)

			analysis, err := ctx.Analyze(req)
			require.NoError(t, err)

			exp := test.expected
			if exp.unpayable {
				requireUnpayable(t, analysis)
				require.False(t, analysis.CanPayWithSelectedFee)
				require.Nil(t, analysis.UpdatedRequest)

				return
			}

			payable := requirePayable(t, analysis)
			require.Equal(t, exp.amount, analysis.Amount.Sats)
			require.Equal(t, exp.fee, payable.Fee.Sats)
			require.Equal(t, exp.total, payable.Total.Sats)
			require.Equal(t, exp.output, analysis.OutputAmount.Sats)
			require.Equal(t, exp.lnFee, analysis.LightningFee.Sats)
			require.Equal(t, exp.padding, analysis.SweepFee.Sats)
			require.Equal(t, exp.canPay, analysis.CanPayWithSelectedFee)

			updated := analysis.PaymentRequest()
			require.False(t, updated.TakeFeeFromAmount)
			require.False(t, updated.Swap.IsAmountless())

			fo := updated.Swap.FundingOutput
			require.Equal(t, exp.debtType, fo.DebtType)
			require.Equal(t, exp.debt, fo.DebtAmount)
			require.Equal(t, exp.output, fo.OutputAmount)
			require.Equal(t, exp.confs, fo.ConfirmationsNeeded)

			amount, err := ctx.ToSatoshis(*updated.Amount)
			require.NoError(t, err)
			require.Equal(t, exp.amount, amount)

			// The resolved funding output is the one the server
			// policies produce, knowing swaps spending all funds
			// are never lent.
			policies := test.policies
			policies.MaximumDebt = 0
			require.NoError(t, policies.CheckFundingOutput(
				&fo, exp.amount, exp.lnFee, false,
			))
		})
	}
}

// TestAnalyzeAmountlessWithoutAmount tests that spending all funds on an
// amountless invoice doesn't need an amount.
func TestAnalyzeAmountlessWithoutAmount(t *testing.T) {
	ctx := newTestContext(36_931, 253, 26_876)

	s := amountlessSwap(
		swap.BestRouteFees{
			MaxCapacity:              100_000,
			FeeProportionalMillionth: 1051,
			FeeBase:                  4,
		},
		swap.FundingOutputPolicies{
			MaximumDebt:       123_124,
			PotentialCollect:  20_686,
			MaxAmountFor0Conf: 193_437,
		},
	)
	req := PaymentRequest{
		Type:              TypeToLnInvoice,
		Description:       testDescription,
		TakeFeeFromAmount: true,
		Swap:              s,
	}

	analysis, err := ctx.Analyze(req)
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(9_977), analysis.Amount.Sats)
	require.Equal(t, rates.BTC, analysis.Amount.InInputCurrency.Currency)

	updated := analysis.PaymentRequest()
	require.NotNil(t, updated.Amount)
	require.True(t, updated.Amount.IsBitcoin())
	require.True(t, rates.Bitcoin(9_977).Amount.Equal(updated.Amount.Amount))
}

// TestCheckCollectSwapPolicy tests that the analyzed debt of a swap is the
// one the policies replicate.
func TestCheckCollectSwapPolicy(t *testing.T) {
	policies := swap.FundingOutputPolicies{
		PotentialCollect:  3_000,
		MaxAmountFor0Conf: 100_000,
	}
	routes := []swap.BestRouteFees{{
		MaxCapacity:              1_000_000,
		FeeProportionalMillionth: 1_000,
		FeeBase:                  1,
	}}

	for _, amount := range []btcutil.Amount{1, 545, 5_000, 99_000} {
		replicated := policies.Replicate(
			amount, swap.LightningFee(amount, routes), false,
		)

		s := amountlessSwap(routes[0], policies)
		analysis, err := newTestContext(200_000, 200, 0).Analyze(
			swapRequest(amount, s).WithFeeRate(1),
		)
		require.NoError(t, err)

		fo := analysis.PaymentRequest().Swap.FundingOutput
		require.Equal(t, replicated.DebtType, fo.DebtType)
		require.Equal(t, replicated.DebtAmount, fo.DebtAmount)
		require.Equal(t, replicated.OutputAmount, fo.OutputAmount)
		require.Equal(
			t, replicated.ConfirmationsNeeded, fo.ConfirmationsNeeded,
		)
	}
}
