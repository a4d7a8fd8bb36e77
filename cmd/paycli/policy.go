package main

import (
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/payengine/swap"
	"github.com/urfave/cli"
)

var policyCommand = cli.Command{
	Name:      "policy",
	Usage:     "replicate the swap server funding output decisions",
	ArgsUsage: "amt lnfee",
	Description: `
	Shows the debt type, debt amount, confirmations and funding output
	amount the swap server should pick for a swap of the given amount and
	lightning fee.`,
	Flags: []cli.Flag{
		cli.Int64Flag{
			Name:  "maxdebt",
			Usage: "the largest amount the server lends",
		},
		cli.Int64Flag{
			Name:  "collect",
			Usage: "the debt collected on the next funded swap",
		},
		cli.Int64Flag{
			Name:  "max0conf",
			Usage: "the largest swap paid without confirmation",
		},
		cli.BoolFlag{
			Name:  "hastx",
			Usage: "the funding transaction is already known",
		},
	},
	Action: policy,
}

var feeOptionsCommand = cli.Command{
	Name:      "feeoptions",
	Usage:     "show the fee rates of a payment context",
	ArgsUsage: "[conf_target]",
	Flags:     []cli.Flag{contextFlag},
	Action:    feeOptions,
}

func parseAmt(text string) (btcutil.Amount, error) {
	amtInt64, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amt value")
	}
	return btcutil.Amount(amtInt64), nil
}

func policy(ctx *cli.Context) error {
	// Show command help if the incorrect number arguments was provided.
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "policy")
	}

	args := ctx.Args()
	amt, err := parseAmt(args[0])
	if err != nil {
		return err
	}

	lnFee, err := parseAmt(args[1])
	if err != nil {
		return err
	}

	policies := &swap.FundingOutputPolicies{
		MaximumDebt:       btcutil.Amount(ctx.Int64("maxdebt")),
		PotentialCollect:  btcutil.Amount(ctx.Int64("collect")),
		MaxAmountFor0Conf: btcutil.Amount(ctx.Int64("max0conf")),
	}

	printJSON(policies.Replicate(amt, lnFee, ctx.Bool("hastx")))

	return nil
}

func feeOptions(ctx *cli.Context) error {
	if _, err := getConfig(ctx); err != nil {
		return err
	}

	paymentCtx, err := readContext(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() == 1 {
		target, err := strconv.ParseUint(ctx.Args().First(), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid confirmation target: %w",
				err)
		}

		option, err := paymentCtx.ClosestFeeOptionFasterThan(
			uint32(target),
		)
		if err != nil {
			return err
		}

		fmt.Printf("%v: %v blocks, %v - %v\n", option.Rate,
			option.ConfirmationTarget, option.MinTime,
			option.MaxTime)

		return nil
	}

	for _, option := range paymentCtx.FeeOptions() {
		fmt.Printf("%v: %v blocks, %v - %v\n", option.Rate,
			option.ConfirmationTarget, option.MinTime,
			option.MaxTime)
	}

	return nil
}
