package payengine

import (
	"errors"

	"github.com/lightninglabs/payengine/rates"
	"github.com/lightninglabs/payengine/swap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "payengine"

// Metrics holds the prometheus collectors of the engine. A nil *Metrics
// records nothing.
type Metrics struct {
	// AnalysesTotal counts analyses by branch and validity.
	AnalysesTotal *prometheus.CounterVec

	// AnalysisErrorsTotal counts requests that couldn't be analyzed.
	AnalysisErrorsTotal *prometheus.CounterVec

	// FeeSats observes the on-chain fee of payable analyses.
	FeeSats *prometheus.HistogramVec

	// SwapValidationsTotal counts swap validations by result.
	SwapValidationsTotal *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "analyses_total",
			Help:      "The total number of payment analyses",
		}, []string{"branch", "valid"}),
		AnalysisErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analysis_errors_total",
				Help: "The total number of payment requests " +
					"that could not be analyzed",
			}, []string{"reason"},
		),
		FeeSats: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "fee_sats",
			Help:      "On-chain fee of analyzed payments",
			Buckets: prometheus.ExponentialBuckets(
				100, 2, 12,
			),
		}, []string{"branch"}),
		SwapValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "swap_validations_total",
				Help:      "The total number of validated swaps",
			}, []string{"result"},
		),
	}
}

func (m *Metrics) observeAnalysis(branch string, analysis *PaymentAnalysis) {
	if m == nil {
		return
	}

	valid := "false"
	if analysis.IsValid() {
		valid = "true"
	}
	m.AnalysesTotal.WithLabelValues(branch, valid).Inc()

	if fee, ok := analysis.Fee(); ok {
		m.FeeSats.WithLabelValues(branch).Observe(float64(fee.Sats))
	}
}

func (m *Metrics) observeError(err error) {
	if m == nil {
		return
	}

	m.AnalysisErrorsTotal.WithLabelValues(errorReason(err)).Inc()
}

// ObserveSwapValidation records the result of a swap validation.
func (m *Metrics) ObserveSwapValidation(err error) {
	if m == nil {
		return
	}

	m.SwapValidationsTotal.WithLabelValues(swapValidationResult(err)).Inc()
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidContext):
		return "invalid_context"

	case errors.Is(err, ErrMissingAmount):
		return "missing_amount"

	case errors.Is(err, ErrMissingFeeRate):
		return "missing_fee_rate"

	case errors.Is(err, ErrInconsistentSwap):
		return "inconsistent_swap"

	case errors.Is(err, rates.ErrUnknownCurrency):
		return "unknown_currency"

	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"

	default:
		return "other"
	}
}

func swapValidationResult(err error) string {
	var invalid *swap.InvalidSwapError
	switch {
	case err == nil:
		return "valid"

	case errors.As(err, &invalid):
		return "invalid"

	default:
		return "error"
	}
}
