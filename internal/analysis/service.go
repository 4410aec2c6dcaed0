// Package analysis turns a farm's latest NDVI classification into a monthly
// credit estimate. The earlier image of the classification provides the
// baseline stock and the later image the current one.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/satfarm/farmcarbon/internal/carbon"
	"github.com/satfarm/farmcarbon/internal/logging"
	"github.com/satfarm/farmcarbon/internal/metrics"
	"github.com/satfarm/farmcarbon/internal/ndvi"
	"github.com/satfarm/farmcarbon/internal/snapshot"
)

var (
	// ErrNoSnapshot is returned when the live fetch failed and no cached
	// snapshot exists. The fetch error is wrapped alongside it.
	ErrNoSnapshot = errors.New("no classification snapshot available")

	// ErrInvalidFarmerID is returned for an empty farmer ID.
	ErrInvalidFarmerID = errors.New("farmer ID is required")

	// ErrBadClassification is returned when a classification was fetched or
	// cached but its class percentages cannot be estimated. The estimator
	// error is wrapped alongside it.
	ErrBadClassification = errors.New("classification data unusable")

	errFetcherDisabled = fmt.Errorf("%w: classification service not configured", ndvi.ErrUpstream)
)

// MonthLayout formats the month label of analysis estimates.
const MonthLayout = "2006-01"

// Source says where the classification behind a Report came from.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
)

// Report is the outcome of one farm analysis.
type Report struct {
	FarmerID    string    `json:"farmerId"`
	TraceID     string    `json:"traceId"`
	Source      Source    `json:"source"`
	GeneratedAt time.Time `json:"generatedAt"`

	// FetchError is set when the report was served from the cache.
	FetchError string `json:"fetchError,omitempty"`

	TotalAreaHa float64                      `json:"totalAreaHa"`
	Before      carbon.VegetationPercentages `json:"before"`
	After       carbon.VegetationPercentages `json:"after"`

	// BaselineTCPerHa is the stock of the earlier image.
	BaselineTCPerHa float64 `json:"baseline_tC_perHa"`

	Result carbon.MonthlyCarbonResult `json:"result"`
	URLs   []string                   `json:"urls,omitempty"`
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEstimator replaces the default carbon estimator.
func WithEstimator(e carbon.CreditEstimator) Option {
	return func(s *Service) { s.estimator = e }
}

// Service runs analyses and direct estimates. It is safe for concurrent use.
type Service struct {
	fetcher   ndvi.Fetcher
	cache     snapshot.Cache
	estimator carbon.CreditEstimator
	coeffs    carbon.Coefficients
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService wires a Service. A nil fetcher disables live fetches so only
// cached snapshots can be analysed; a nil cache uses an in-memory one; m may
// be nil.
func NewService(fetcher ndvi.Fetcher, cache snapshot.Cache, coeffs carbon.Coefficients, logger zerolog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	if cache == nil {
		cache = snapshot.NewMemory()
	}
	s := &Service{
		fetcher:   fetcher,
		cache:     cache,
		estimator: carbon.NewEstimator(),
		coeffs:    coeffs,
		logger:    logger.With().Str(logging.FieldComponent, "analysis").Logger(),
		metrics:   m,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Coefficients returns the calibration used for analyses.
func (s *Service) Coefficients() carbon.Coefficients {
	return s.coeffs
}

// Analyze fetches the latest classification for farmerID and estimates the
// month's credits. A live classification is cached only once it has been
// estimated. Unless refresh is set, a failed fetch or an unusable live
// classification falls back to the last cached one.
func (s *Service) Analyze(ctx context.Context, farmerID string, refresh bool) (*Report, error) {
	start := time.Now()
	ctx, traceID := logging.EnsureTraceID(ctx)
	log := s.logger.With().
		Str(logging.FieldTraceID, traceID).
		Str(logging.FieldOperation, "Analyze").
		Str(logging.FieldFarmerID, farmerID).
		Logger()

	if strings.TrimSpace(farmerID) == "" {
		return nil, ErrInvalidFarmerID
	}

	var cached *ndvi.ChangeResult
	if !refresh {
		cached = s.cached(ctx, log, farmerID)
	}

	report := &Report{
		FarmerID:    farmerID,
		TraceID:     traceID,
		Source:      SourceLive,
		GeneratedAt: s.now().UTC(),
	}

	result, err := s.fetch(ctx, farmerID)
	if err == nil {
		// Only a classification that estimates cleanly replaces the snapshot
		err = s.estimate(log, report, result)
		switch {
		case err == nil:
			if putErr := s.cache.Put(ctx, farmerID, result); putErr != nil {
				log.Warn().Err(putErr).Msg("failed to cache snapshot")
			}
		case !errors.Is(err, ErrBadClassification):
			return nil, err
		}
	}

	if err != nil {
		if cached == nil {
			log.Error().Err(err).Msg("classification unavailable")
			return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
		}
		log.Warn().Err(err).Msg("live classification unavailable, using cached snapshot")
		s.metrics.ObserveFallback()
		report.Source = SourceCache
		report.FetchError = err.Error()
		if err := s.estimate(log, report, cached); err != nil {
			return nil, err
		}
	}

	elapsed := time.Since(start)
	s.metrics.ObserveAnalysis(elapsed.Seconds())
	log.Info().
		Str("source", string(report.Source)).
		Float64("credits_t", report.Result.CreditsT).
		Float64("baseline_tC_perHa", report.BaselineTCPerHa).
		Int64(logging.FieldDurationMs, elapsed.Milliseconds()).
		Msg("analysis completed")

	return report, nil
}

func (s *Service) cached(ctx context.Context, log zerolog.Logger, farmerID string) *ndvi.ChangeResult {
	result, ok, err := s.cache.Get(ctx, farmerID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read cached snapshot")
		return nil
	}
	if !ok {
		return nil
	}
	return result
}

func (s *Service) fetch(ctx context.Context, farmerID string) (*ndvi.ChangeResult, error) {
	if s.fetcher == nil {
		return nil, errFetcherDisabled
	}
	return s.fetcher.Fetch(ctx, farmerID)
}

func (s *Service) estimate(log zerolog.Logger, report *Report, result *ndvi.ChangeResult) error {
	before := normalize(log, "before", result.Before())
	after := normalize(log, "after", result.After())

	baseline := carbon.CarbonStockTCPerHa(before, s.coeffs.K, s.coeffs.CF, s.coeffs.RootRatio)

	input := carbon.MonthlyCarbonInput{
		AreaHa:                result.TotalAreaHa,
		Month:                 report.GeneratedAt.Format(MonthLayout),
		Percentages:           after,
		PrevMonthStockTCPerHa: baseline,
	}
	s.coeffs.Apply(&input)

	est, err := s.estimator.EstimateMonthlyCarbon(input)
	if err != nil {
		s.metrics.ObserveEstimate(outcome(err), 0)
		log.Error().Err(err).Msg("estimate failed")
		if errors.Is(err, carbon.ErrInvalidPercentages) {
			return fmt.Errorf("%w for farmer %s: %w", ErrBadClassification, report.FarmerID, err)
		}
		return fmt.Errorf("estimate for farmer %s: %w", report.FarmerID, err)
	}
	s.metrics.ObserveEstimate(metrics.OutcomeOK, est.CreditsT)

	report.TotalAreaHa = result.TotalAreaHa
	report.Before = before
	report.After = after
	report.BaselineTCPerHa = baseline
	report.Result = est
	if result.URLs != nil {
		report.URLs = append([]string(nil), result.URLs...)
	}
	return nil
}

func normalize(log zerolog.Logger, image string, p carbon.VegetationPercentages) carbon.VegetationPercentages {
	if drift := ndvi.Drift(p); drift > ndvi.DriftWarnThreshold {
		log.Warn().
			Str("image", image).
			Float64("sum", p.Sum()).
			Msg("class percentages do not sum to 100, rescaling")
	}
	out, _ := ndvi.Normalize(p)
	return out
}

// Estimate runs the estimator on input. Coefficients left nil in input take
// the configured calibration.
func (s *Service) Estimate(ctx context.Context, input carbon.MonthlyCarbonInput) (carbon.MonthlyCarbonResult, error) {
	_, traceID := logging.EnsureTraceID(ctx)

	s.coeffs.Fill(&input)
	result, err := s.estimator.EstimateMonthlyCarbon(input)
	if err != nil {
		s.metrics.ObserveEstimate(outcome(err), 0)
		s.logger.Warn().
			Str(logging.FieldTraceID, traceID).
			Str(logging.FieldOperation, "Estimate").
			Err(err).
			Msg("estimate rejected")
		return carbon.MonthlyCarbonResult{}, err
	}

	s.metrics.ObserveEstimate(metrics.OutcomeOK, result.CreditsT)
	s.logger.Debug().
		Str(logging.FieldTraceID, traceID).
		Str(logging.FieldOperation, "Estimate").
		Str("month", result.Month).
		Float64("credits_t", result.CreditsT).
		Msg("estimate completed")
	return result, nil
}

func outcome(err error) string {
	if errors.Is(err, carbon.ErrInvalidPercentages) {
		return metrics.OutcomeInvalidInput
	}
	return metrics.OutcomeError
}
