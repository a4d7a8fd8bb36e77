package fees

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	// SwapConfTarget is the confirmation target used to fund swaps that
	// don't need any confirmation. It is roughly two days.
	SwapConfTarget = 250

	// expirationTime is how long a fee window can be used after being
	// fetched.
	expirationTime = 5 * time.Minute

	// avgBlockTime is the expected time between two blocks.
	avgBlockTime = 10 * time.Minute
)

// ErrEmptyWindow is returned when a fee window has no targets.
var ErrEmptyWindow = errors.New("fee window has no targets")

// Window maps confirmation targets (in blocks) to the fee rate recommended to
// hit them.
type Window struct {
	// ID is the server side identifier of the window.
	ID int64 `json:"id"`

	// FetchDate is when the window was fetched.
	FetchDate time.Time `json:"fetchDate"`

	// TargetedFees maps confirmation targets to fee rates.
	TargetedFees map[uint32]SatPerVByte `json:"targetedFees"`

	// FastConfTarget, MediumConfTarget and SlowConfTarget are the
	// targets offered to the user.
	FastConfTarget   uint32 `json:"fastConfTarget"`
	MediumConfTarget uint32 `json:"mediumConfTarget"`
	SlowConfTarget   uint32 `json:"slowConfTarget"`
}

// Validate checks that the window can be used to pick fee rates.
func (w *Window) Validate() error {
	if len(w.TargetedFees) == 0 {
		return ErrEmptyWindow
	}

	for target, rate := range w.TargetedFees {
		if target == 0 {
			return fmt.Errorf("invalid confirmation target 0")
		}
		if rate <= 0 {
			return fmt.Errorf("invalid fee rate %v for target %d",
				rate, target)
		}
	}

	return nil
}

// IsRecent returns whether the window is still fresh at the given time.
func (w *Window) IsRecent(now time.Time) bool {
	return now.Add(-expirationTime).Before(w.FetchDate)
}

// Targets returns the confirmation targets of the window in ascending order.
func (w *Window) Targets() []uint32 {
	targets := make([]uint32, 0, len(w.TargetedFees))
	for target := range w.TargetedFees {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i] < targets[j]
	})

	return targets
}

// FastestFeeRate returns the rate of the shortest target.
func (w *Window) FastestFeeRate() SatPerVByte {
	return w.TargetedFees[w.Targets()[0]]
}

// closestTargetFasterThan returns the highest target that is at or below the
// given one. When all targets are above it, the fastest target is used.
func (w *Window) closestTargetFasterThan(target uint32) uint32 {
	for closest := target; closest > 0; closest-- {
		if _, ok := w.TargetedFees[closest]; ok {
			return closest
		}
	}

	return w.Targets()[0]
}

// MinimumFeeRate returns the lowest rate in the window that still hits the
// given confirmation target.
func (w *Window) MinimumFeeRate(target uint32) SatPerVByte {
	return w.TargetedFees[w.closestTargetFasterThan(target)]
}

// SwapFeeRate returns the rate used to fund a swap output. Outputs that need
// no confirmation can take their time, the others must confirm quickly.
func (w *Window) SwapFeeRate(confirmationsNeeded uint32) SatPerVByte {
	if confirmationsNeeded == 0 {
		return w.MinimumFeeRate(SwapConfTarget)
	}

	return w.FastestFeeRate()
}

// Option is a fee rate the user can pick, with the expected confirmation
// time.
type Option struct {
	// Rate is the fee rate.
	Rate SatPerVByte

	// ConfirmationTarget is the target the rate was estimated for.
	ConfirmationTarget uint32

	// MinTime and MaxTime bound the expected confirmation time.
	MinTime time.Duration
	MaxTime time.Duration
}

func newOption(target uint32, rate SatPerVByte) Option {
	return Option{
		Rate:               rate,
		ConfirmationTarget: target,
		MinTime:            time.Duration(target) * avgBlockTime / 2,
		MaxTime:            time.Duration(target) * avgBlockTime * 2,
	}
}

// Options returns one option per target, in ascending target order.
func (w *Window) Options() []Option {
	targets := w.Targets()
	options := make([]Option, 0, len(targets))
	for _, target := range targets {
		options = append(
			options, newOption(target, w.TargetedFees[target]),
		)
	}

	return options
}

// ClosestOptionFasterThan returns the cheapest option that still hits the
// given confirmation target.
func (w *Window) ClosestOptionFasterThan(target uint32) Option {
	closest := w.closestTargetFasterThan(target)
	return newOption(closest, w.TargetedFees[closest])
}

// EstimateMaxTime returns the maximum expected confirmation time for a
// transaction paying the given rate.
func (w *Window) EstimateMaxTime(rate SatPerVByte) time.Duration {
	options := w.Options()
	for _, option := range options {
		if option.Rate <= rate {
			return option.MaxTime
		}
	}

	return options[len(options)-1].MaxTime
}
