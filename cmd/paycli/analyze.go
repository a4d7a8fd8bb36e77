package main

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/payengine"
	"github.com/urfave/cli"
)

var analyzeCommand = cli.Command{
	Name:      "analyze",
	Usage:     "analyze payment requests",
	ArgsUsage: "",
	Description: `
	Analyzes payment requests against a payment context, and shows
	whether they can be paid along with their fees.

	The request file holds a single request, or an array of requests
	when --batch is set.`,
	Flags: []cli.Flag{
		contextFlag,
		requestFlag,
		cli.BoolFlag{
			Name:  "batch",
			Usage: "the request file holds an array of requests",
		},
	},
	Action: analyze,
}

// analysisResponse is the displayed form of an analysis.
type analysisResponse struct {
	Type        payengine.PaymentType `json:"type"`
	Amount      btcutil.Amount        `json:"amount_sat"`
	Output      btcutil.Amount        `json:"output_sat"`
	Fee         *btcutil.Amount       `json:"fee_sat"`
	Total       *btcutil.Amount       `json:"total_sat"`
	Lightning   *btcutil.Amount       `json:"lightning_fee_sat,omitempty"`
	Sweep       *btcutil.Amount       `json:"sweep_fee_sat,omitempty"`
	Balance     btcutil.Amount        `json:"balance_sat"`
	TotalFiat   string                `json:"total_primary,omitempty"`
	WithoutFee  bool                  `json:"can_pay_without_fee"`
	WithFee     bool                  `json:"can_pay_with_selected_fee"`
	WithMinFee  bool                  `json:"can_pay_with_minimum_fee"`
	TooSmall    bool                  `json:"amount_too_small"`
	NoDesc      bool                  `json:"description_too_short"`
	Valid       bool                  `json:"valid"`
	OnChain     bool                  `json:"on_chain"`
	RateWindow  int64                 `json:"rate_window_id"`
	Updated     bool                  `json:"request_updated"`
	MaxConfTime string                `json:"max_confirmation_time,omitempty"`
}

func newAnalysisResponse(paymentCtx *payengine.PaymentContext,
	analysis *payengine.PaymentAnalysis) *analysisResponse {

	resp := &analysisResponse{
		Type:       analysis.Request.Type,
		Amount:     analysis.Amount.Sats,
		Output:     analysis.OutputAmount.Sats,
		Balance:    analysis.TotalBalance.Sats,
		WithoutFee: analysis.CanPayWithoutFee,
		WithFee:    analysis.CanPayWithSelectedFee,
		WithMinFee: analysis.CanPayWithMinimumFee,
		TooSmall:   analysis.IsAmountTooSmall(),
		NoDesc:     analysis.IsDescriptionTooShort(),
		Valid:      analysis.IsValid(),
		OnChain:    analysis.HasOnChainTransaction,
		RateWindow: analysis.RateWindowID,
		Updated:    analysis.UpdatedRequest != nil,
	}

	if fee, ok := analysis.Fee(); ok {
		resp.Fee = &fee.Sats
	}
	if total, ok := analysis.Total(); ok {
		resp.Total = &total.Sats
		resp.TotalFiat = total.InPrimaryCurrency.String()
	}
	if analysis.LightningFee != nil {
		resp.Lightning = &analysis.LightningFee.Sats
	}
	if analysis.SweepFee != nil {
		resp.Sweep = &analysis.SweepFee.Sats
	}

	req := analysis.Request
	if req.Swap == nil && req.FeeRate != nil {
		resp.MaxConfTime = paymentCtx.EstimateMaxTime(
			*req.FeeRate,
		).String()
	}

	return resp
}

func analyze(ctx *cli.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	paymentCtx, err := readContext(ctx)
	if err != nil {
		return err
	}

	metrics, writeMetrics := newMetrics(cfg)
	defer writeMetrics()

	analyzer := payengine.NewAnalyzer(
		paymentCtx, payengine.WithMetrics(metrics),
		payengine.WithMaxParallel(cfg.MaxParallel),
	)

	if !ctx.Bool("batch") {
		var req payengine.PaymentRequest
		err := readJSON(ctx.String(requestFlag.Name), &req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}

		analysis, err := analyzer.Analyze(req)
		if err != nil {
			return err
		}

		printJSON(newAnalysisResponse(paymentCtx, analysis))

		return nil
	}

	var reqs []payengine.PaymentRequest
	if err := readJSON(ctx.String(requestFlag.Name), &reqs); err != nil {
		return fmt.Errorf("requests: %w", err)
	}

	analyses, err := analyzer.AnalyzeAll(context.Background(), reqs)
	if err != nil {
		return err
	}

	resps := make([]*analysisResponse, 0, len(analyses))
	for _, analysis := range analyses {
		resps = append(resps, newAnalysisResponse(paymentCtx, analysis))
	}
	printJSON(resps)

	return nil
}
