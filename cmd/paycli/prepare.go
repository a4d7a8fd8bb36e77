package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lightninglabs/payengine"
	"github.com/lightninglabs/payengine/paydb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/urfave/cli"
)

var prepareCommand = cli.Command{
	Name:  "prepare",
	Usage: "analyze a payment request and store the prepared payment",
	Description: `
	Analyzes a payment request and, if it is valid, stores the prepared
	payment so it can be committed later.`,
	Flags:  []cli.Flag{contextFlag, requestFlag},
	Action: prepare,
}

var commitCommand = cli.Command{
	Name:      "commit",
	Usage:     "commit a prepared payment",
	ArgsUsage: "id",
	Description: `
	Commits a prepared payment. The payment is refused if the exchange
	rate window of the context is not the one it was analyzed with.`,
	Flags:  []cli.Flag{contextFlag},
	Action: commit,
}

var listCommand = cli.Command{
	Name:   "list",
	Usage:  "list prepared payments",
	Action: list,
}

func openStore(cfg *Config) (*paydb.BoltStore, error) {
	return paydb.NewBoltStore(cfg.DataDir, clock.NewDefaultClock())
}

func prepare(ctx *cli.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	paymentCtx, err := readContext(ctx)
	if err != nil {
		return err
	}

	var req payengine.PaymentRequest
	if err := readJSON(ctx.String(requestFlag.Name), &req); err != nil {
		return fmt.Errorf("request: %w", err)
	}

	metrics, writeMetrics := newMetrics(cfg)
	defer writeMetrics()

	prepared, err := payengine.NewAnalyzer(
		paymentCtx, payengine.WithMetrics(metrics),
		payengine.WithClock(clock.NewDefaultClock()),
	).Prepare(req)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PutPrepared(prepared); err != nil {
		return err
	}

	printJSON(prepared)

	return nil
}

func commit(ctx *cli.Context) error {
	// Show command help if the incorrect number arguments was provided.
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "commit")
	}

	id, err := uuid.Parse(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid payment id: %w", err)
	}

	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	paymentCtx, err := readContext(ctx)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	payment, err := store.CommitPrepared(id, paymentCtx.RateWindow.ID)
	if err != nil {
		return err
	}

	printJSON(payment)

	return nil
}

func list(ctx *cli.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	payments, err := store.ListPrepared()
	if err != nil {
		return err
	}

	for _, payment := range payments {
		state := "prepared"
		if payment.Committed() {
			state = "committed"
		}

		fmt.Printf("%v %-9v %-20v total=%v fee=%v\n", payment.ID, state,
			payment.Type, payment.Total, payment.Fee)
	}

	return nil
}
