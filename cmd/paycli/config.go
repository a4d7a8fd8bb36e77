package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"github.com/lightninglabs/payengine/swap"
	"github.com/lightningnetwork/lnd/lncfg"
)

var (
	payDirBase = btcutil.AppDataDir("paycli", false)

	defaultNetwork        = "mainnet"
	defaultLogLevel       = "info"
	defaultConfigFilename = "paycli.conf"
	defaultConfigFile     = filepath.Join(payDirBase, defaultConfigFilename)
	defaultMaxParallel    = 4
)

// Config holds the settings read from the config file. Command line flags
// override them.
type Config struct {
	Network    string `long:"network" description:"network to run on" choice:"regtest" choice:"testnet" choice:"mainnet" choice:"simnet" choice:"signet"`
	DataDir    string `long:"datadir" description:"Directory for the payment database."`
	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	MaxParallel int    `long:"maxparallel" description:"Maximum number of payment requests analyzed at once."`
	MetricsFile string `long:"metricsfile" description:"File the engine metrics are written to after each command, in the prometheus text format."`

	// params is set by Validate.
	params *chaincfg.Params
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		Network:     defaultNetwork,
		DataDir:     payDirBase,
		DebugLevel:  defaultLogLevel,
		MaxParallel: defaultMaxParallel,
	}
}

// LoadConfig reads the config file on top of the defaults. A missing config
// file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	configFile = lncfg.CleanAndExpandPath(configFile)
	if err := flags.IniParse(configFile, &cfg); err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		if _, ok := err.(*flags.IniError); ok {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate cleans up paths in the config provided and validates it.
func Validate(cfg *Config) error {
	params, err := swap.ChainParamsFromNetwork(cfg.Network)
	if err != nil {
		return err
	}
	cfg.params = params

	if cfg.MaxParallel <= 0 {
		return fmt.Errorf("maxparallel must be positive, got %v",
			cfg.MaxParallel)
	}

	// Append the network type to the data directory so it is
	// "namespaced" per network.
	cfg.DataDir = filepath.Join(
		lncfg.CleanAndExpandPath(cfg.DataDir), cfg.Network,
	)
	if cfg.MetricsFile != "" {
		cfg.MetricsFile = lncfg.CleanAndExpandPath(cfg.MetricsFile)
	}

	return os.MkdirAll(cfg.DataDir, 0700)
}
