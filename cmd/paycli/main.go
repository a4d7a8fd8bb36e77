package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lightninglabs/payengine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
)

var (
	contextFlag = cli.StringFlag{
		Name:  "context",
		Usage: "path to the payment context json file",
	}

	requestFlag = cli.StringFlag{
		Name:  "request",
		Usage: "path to the payment request json file",
	}
)

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		fmt.Println("unable to encode response: ", err)
		return
	}

	fmt.Println(string(out))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[paycli] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()

	app.Version = payengine.Version()
	app.Name = "paycli"
	app.Usage = "analyze and prepare wallet payments"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "configfile",
			Value: defaultConfigFile,
			Usage: "path to the configuration file",
		},
		cli.StringFlag{
			Name:  "network, n",
			Usage: "network to run on, overrides the config file",
		},
		cli.StringFlag{
			Name: "debuglevel",
			Usage: "logging level, overrides the config file, " +
				"use show to list subsystems",
		},
	}
	app.Commands = []cli.Command{
		analyzeCommand, prepareCommand, commitCommand, listCommand,
		validateSwapCommand, policyCommand, feeOptionsCommand,
	}

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

// getConfig loads the config file and applies the global flags over it.
func getConfig(ctx *cli.Context) (*Config, error) {
	cfg, err := LoadConfig(ctx.GlobalString("configfile"))
	if err != nil {
		return nil, err
	}

	if network := ctx.GlobalString("network"); network != "" {
		cfg.Network = network
	}
	if level := ctx.GlobalString("debuglevel"); level != "" {
		cfg.DebugLevel = level
	}

	if cfg.DebugLevel == "show" {
		fmt.Printf("Supported subsystems: %v\n", supportedSubsystems())
		os.Exit(0)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	if err := setupLoggers(cfg.DebugLevel); err != nil {
		return nil, err
	}

	log.Debugf("Running paycli %v on %v", payengine.Version(),
		cfg.Network)

	return cfg, nil
}

// newMetrics returns the engine metrics along with a function writing them
// out, when a metrics file is configured.
func newMetrics(cfg *Config) (*payengine.Metrics, func()) {
	if cfg.MetricsFile == "" {
		return nil, func() {}
	}

	reg := prometheus.NewRegistry()
	metrics := payengine.NewMetrics(reg)

	return metrics, func() {
		err := prometheus.WriteToTextfile(cfg.MetricsFile, reg)
		if err != nil {
			log.Errorf("Unable to write metrics: %v", err)
		}
	}
}

func readJSON(path string, v interface{}) error {
	if path == "" {
		return fmt.Errorf("missing file path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unable to decode %v: %w", path, err)
	}

	return nil
}

// readContext reads and validates the payment context.
func readContext(ctx *cli.Context) (*payengine.PaymentContext, error) {
	paymentCtx := &payengine.PaymentContext{}
	if err := readJSON(ctx.String(contextFlag.Name), paymentCtx); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	if err := paymentCtx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid context: %w", err)
	}

	return paymentCtx, nil
}
