package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	btclogv1 "github.com/btcsuite/btclog"
	"github.com/btcsuite/btclog/v2"
	"github.com/lightninglabs/payengine"
	"github.com/lightninglabs/payengine/fees"
	"github.com/lightninglabs/payengine/paydb"
	"github.com/lightninglabs/payengine/swap"
)

// Subsystem defines the logging code of the cli itself.
const Subsystem = "PCLI"

var log = btclog.Disabled

// subLoggers maps each subsystem to the function installing its logger.
var subLoggers = map[string]func(btclog.Logger){
	Subsystem:           func(l btclog.Logger) { log = l },
	payengine.Subsystem: payengine.UseLogger,
	fees.Subsystem:      fees.UseLogger,
	swap.Subsystem:      swap.UseLogger,
	paydb.Subsystem:     paydb.UseLogger,
}

// supportedSubsystems returns the sorted subsystem codes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subLoggers))
	for subsystem := range subLoggers {
		subsystems = append(subsystems, subsystem)
	}
	sort.Strings(subsystems)

	return subsystems
}

// parseDebugLevels parses a global level optionally followed by
// <subsystem>=<level> pairs, all comma separated.
func parseDebugLevels(debugLevel string) (btclogv1.Level,
	map[string]btclogv1.Level, error) {

	global := btclog.LevelInfo
	levels := make(map[string]btclogv1.Level)

	for _, part := range strings.Split(debugLevel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		subsystem, levelStr, found := strings.Cut(part, "=")
		if !found {
			level, ok := btclog.LevelFromString(part)
			if !ok {
				return 0, nil, fmt.Errorf("invalid debug "+
					"level %q", part)
			}
			global = level

			continue
		}

		if _, ok := subLoggers[subsystem]; !ok {
			return 0, nil, fmt.Errorf("unknown subsystem %q, "+
				"supported subsystems: %v", subsystem,
				supportedSubsystems())
		}

		level, ok := btclog.LevelFromString(levelStr)
		if !ok {
			return 0, nil, fmt.Errorf("invalid debug level %q "+
				"for %v", levelStr, subsystem)
		}
		levels[subsystem] = level
	}

	return global, levels, nil
}

// setupLoggers logs every subsystem to stderr at the configured levels.
func setupLoggers(debugLevel string) error {
	global, levels, err := parseDebugLevels(debugLevel)
	if err != nil {
		return err
	}

	root := btclog.NewSLogger(btclog.NewDefaultHandler(os.Stderr))

	for subsystem, useLogger := range subLoggers {
		logger := root.SubSystem(subsystem)

		level, ok := levels[subsystem]
		if !ok {
			level = global
		}
		logger.SetLevel(level)

		useLogger(logger)
	}

	return nil
}
