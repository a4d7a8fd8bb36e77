package main

import (
	"fmt"

	"github.com/lightninglabs/payengine/swap"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/urfave/cli"
)

var validateSwapCommand = cli.Command{
	Name:  "validateswap",
	Usage: "validate a swap proposed by the swap server",
	Description: `
	Checks that a swap pays the requested invoice into an output only the
	user and the swap server can spend. Valid swaps are stored.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "swap",
			Usage: "path to the swap json file",
		},
		cli.StringFlag{
			Name:  "invoice",
			Usage: "the invoice the swap was requested for",
		},
		cli.Int64Flag{
			Name:  "expiration",
			Usage: "the expiration in blocks the swap was requested with",
			Value: 144,
		},
		cli.StringFlag{
			Name:  "userkey",
			Usage: "the user extended public key",
		},
		cli.StringFlag{
			Name:  "muunkey",
			Usage: "the co-signer extended public key",
		},
		cli.StringFlag{
			Name:  "path",
			Usage: "the derivation path of both extended keys",
			Value: "m",
		},
	},
	Action: validateSwap,
}

func validateSwap(ctx *cli.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	sw := &swap.SubmarineSwap{}
	if err := readJSON(ctx.String("swap"), sw); err != nil {
		return fmt.Errorf("swap: %w", err)
	}

	invoice := ctx.String("invoice")
	if invoice == "" {
		return fmt.Errorf("invoice required")
	}

	// Expired invoices are refused before looking at the swap.
	_, err = swap.DecodeInvoice(
		invoice, cfg.params, clock.NewDefaultClock(),
	)
	if err != nil {
		return err
	}

	keys, err := swap.NewKeyPair(
		ctx.String("userkey"), ctx.String("muunkey"),
		ctx.String("path"), cfg.params,
	)
	if err != nil {
		return err
	}

	metrics, writeMetrics := newMetrics(cfg)
	defer writeMetrics()

	err = swap.NewValidator(cfg.params).Validate(
		invoice, ctx.Int64("expiration"), keys, sw,
	)
	metrics.ObserveSwapValidation(err)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PutValidatedSwap(sw); err != nil {
		return err
	}

	fmt.Printf("Swap %v is valid, funding %v to %v\n", sw.ID,
		sw.FundingOutput.OutputAmount, sw.FundingOutput.OutputAddress)

	return nil
}
