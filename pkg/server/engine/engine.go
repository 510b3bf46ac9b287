package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/metrics"
	"tc.com/price-api/pkg/server/fx"
	"tc.com/price-api/pkg/server/history"
	"tc.com/price-api/pkg/server/pricing"
	"tc.com/price-api/pkg/server/sources"
)

// Config carries the wired collaborators for an Engine.
type Config struct {
	Sources        []sources.Source
	PreciseSources []sources.Source
	Weights        map[string]float64
	Ceilings       map[string]float64
	FX             *fx.Resolver
	CrossQuoter    sources.Source
	History        []history.Provider
	MaxPoints      int
	Logger         *logging.Logger
}

// Engine runs the per-request pipelines: quote fan-out, FX resolution,
// consolidation, outlier rejection and aggregation.
type Engine struct {
	sources        []sources.Source
	preciseSources []sources.Source
	weights        map[string]float64
	ceilings       map[string]decimal.Decimal
	timeouts       map[string]time.Duration
	fx             *fx.Resolver
	crossQuoter    sources.Source
	history        []history.Provider
	maxPoints      int
	logger         *logging.Logger
}

// New builds an Engine from cfg. The per-provider timeout table used for
// confidence scoring is derived from the configured sources.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	ceilings := make(map[string]decimal.Decimal, len(cfg.Ceilings))
	for asset, ceiling := range cfg.Ceilings {
		if ceiling > 0 {
			ceilings[asset] = decimal.NewFromFloat(ceiling)
		}
	}

	timeouts := make(map[string]time.Duration)
	for _, src := range cfg.Sources {
		timeouts[src.Name()] = src.Timeout()
	}
	for _, src := range cfg.PreciseSources {
		timeouts[src.Name()] = src.Timeout()
	}

	return &Engine{
		sources:        cfg.Sources,
		preciseSources: cfg.PreciseSources,
		weights:        cfg.Weights,
		ceilings:       ceilings,
		timeouts:       timeouts,
		fx:             cfg.FX,
		crossQuoter:    cfg.CrossQuoter,
		history:        cfg.History,
		maxPoints:      cfg.MaxPoints,
		logger:         logger,
	}
}

// MaxPoints returns the configured cap on history points per response.
func (e *Engine) MaxPoints() int {
	return e.maxPoints
}

// PriceResult is the outcome of a standard price aggregation.
type PriceResult struct {
	Base      string
	Target    string
	Price     decimal.Decimal
	Quotes    []sources.Quote
	UpdatedAt time.Time
}

// Price aggregates a price for base denominated in target. All configured
// sources are queried concurrently and every response is awaited; partial
// failures degrade the result rather than aborting it. When no usable quote
// survives, a zero price with an empty quote set is returned without error.
func (e *Engine) Price(ctx context.Context, base, target string) (*PriceResult, error) {
	start := time.Now()

	raw, fxRate, fxOK := e.fanOut(ctx, e.sources, base, target)

	consolidated := pricing.Consolidate(raw, target, fxRate, fxOK, e.logger)
	result := &PriceResult{
		Base:      base,
		Target:    strings.ToUpper(sources.NormalizeCurrency(target)),
		Price:     decimal.Zero,
		Quotes:    []sources.Quote{},
		UpdatedAt: time.Now().UTC(),
	}
	if len(consolidated) == 0 {
		e.logger.Warn("No usable quotes, returning degraded result", "asset", base, "currency", target)
		metrics.RecordAggregation("standard", time.Since(start))
		return result, nil
	}

	filtered := pricing.FilterOutliers(consolidated, base, e.ceilings[base], e.logger)

	price, err := pricing.Aggregate(filtered, e.weights)
	if err != nil {
		price, err = e.fallbackPrice(raw, consolidated, target)
		if err != nil {
			return nil, err
		}
		e.logger.Warn("Aggregation failed, using fallback quote", "asset", base)
	}

	result.Price = price
	result.Quotes = filtered
	metrics.RecordAggregation("standard", time.Since(start))
	return result, nil
}

// fallbackPrice picks a single quote when weighted aggregation cannot
// produce a price: first a quote already denominated in the target
// currency, then an FX-converted one.
func (e *Engine) fallbackPrice(raw []*sources.Quote, consolidated []sources.Quote, target string) (decimal.Decimal, error) {
	for _, q := range raw {
		if q != nil && sources.SameCurrency(q.Currency, target) {
			return q.Price, nil
		}
	}
	for _, q := range consolidated {
		if strings.Contains(q.Source, "->") {
			return q.Price, nil
		}
	}
	return decimal.Zero, ErrAggregationFailed
}

// PreciseResult is the outcome of a precise price computation.
type PreciseResult struct {
	Base      string
	Target    string
	Detail    *pricing.PreciseResult
	UpdatedAt time.Time
}

// PrecisePrice aggregates only the high-fidelity sources and attaches
// per-source confidence scoring. Unlike Price it fails hard when no
// precise quote is available.
func (e *Engine) PrecisePrice(ctx context.Context, base, target string) (*PreciseResult, error) {
	start := time.Now()

	raw, fxRate, fxOK := e.fanOut(ctx, e.preciseSources, base, target)
	consolidated := pricing.Consolidate(raw, target, fxRate, fxOK, e.logger)

	detail, err := pricing.BuildPrecise(consolidated, e.timeouts)
	if err != nil {
		return nil, fmt.Errorf("precise price for %s/%s: %w", base, target, err)
	}

	metrics.RecordAggregation("precise", time.Since(start))
	return &PreciseResult{
		Base:      base,
		Target:    strings.ToUpper(sources.NormalizeCurrency(target)),
		Detail:    detail,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// HistoryResult is a merged historical series.
type HistoryResult struct {
	Base      string
	Target    string
	Interval  string
	Points    []history.Point
	UpdatedAt time.Time
}

// History fetches the historical series from every configured provider,
// normalizes them into the target currency and merges them into a single
// ascending series capped at limit points.
func (e *Engine) History(ctx context.Context, base, target, interval string, limit int) (*HistoryResult, error) {
	if !history.SupportedInterval(interval) {
		return nil, fmt.Errorf("%w: %s", history.ErrUnsupportedInterval, interval)
	}
	if limit <= 0 || limit > e.maxPoints {
		limit = e.maxPoints
	}

	type fetched struct {
		points   []history.Point
		currency string
	}

	results := make([]fetched, len(e.history))
	var group errgroup.Group
	for i, provider := range e.history {
		i, provider := i, provider
		group.Go(func() error {
			points, currency, err := provider.Series(ctx, base, target, interval, limit)
			if err != nil {
				e.logger.Warn("History fetch failed", "provider", provider.Name(), "error", err)
				return nil
			}
			results[i] = fetched{points: points, currency: currency}
			return nil
		})
	}
	_ = group.Wait()

	var seriesList [][]history.Point
	var pendingConversion [][]history.Point
	for _, r := range results {
		if len(r.points) == 0 {
			continue
		}
		if sources.SameCurrency(r.currency, target) {
			seriesList = append(seriesList, r.points)
			continue
		}
		if sources.IsUSDEquivalent(r.currency) {
			pendingConversion = append(pendingConversion, r.points)
			continue
		}
		e.logger.Warn("Dropping history series in unconvertible currency", "currency", r.currency, "target", target)
	}

	if len(pendingConversion) > 0 {
		rate, ok := e.resolveRate(ctx, base, target)
		if ok {
			for _, points := range pendingConversion {
				seriesList = append(seriesList, history.Convert(points, rate))
			}
		} else {
			e.logger.Warn("Dropping USD-denominated history, no conversion rate", "target", target)
		}
	}

	merged := history.Merge(seriesList...)
	if len(merged) == 0 {
		return nil, fmt.Errorf("history for %s/%s: %w", base, target, history.ErrNoData)
	}

	return &HistoryResult{
		Base:      base,
		Target:    strings.ToUpper(sources.NormalizeCurrency(target)),
		Interval:  interval,
		Points:    history.Tail(merged, limit),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// fanOut queries every source concurrently and, when the target is not a
// USD equivalent, resolves the USD conversion rate in the same window.
// Every launched call is awaited; failed calls leave nil slots.
func (e *Engine) fanOut(ctx context.Context, srcs []sources.Source, base, target string) ([]*sources.Quote, decimal.Decimal, bool) {
	raw := make([]*sources.Quote, len(srcs))
	var fxRate decimal.Decimal
	fxOK := false

	var group errgroup.Group
	for i, src := range srcs {
		i, src := i, src
		group.Go(func() error {
			quote, err := src.Fetch(ctx, base, target)
			if err != nil {
				e.logger.Warn("Source fetch failed", "source", src.Name(), "asset", base, "error", err)
				return nil
			}
			raw[i] = quote
			return nil
		})
	}
	if !sources.IsUSDEquivalent(target) {
		group.Go(func() error {
			rate, ok := e.resolveRate(ctx, base, target)
			fxRate, fxOK = rate, ok
			return nil
		})
	}
	_ = group.Wait()

	return raw, fxRate, fxOK
}

// resolveRate returns the USD to target rate, deriving a cross rate from
// the direct quoter when no FX provider or fallback entry covers it.
func (e *Engine) resolveRate(ctx context.Context, asset, target string) (decimal.Decimal, bool) {
	if sources.IsUSDEquivalent(target) {
		return decimal.NewFromInt(1), true
	}
	if e.fx != nil {
		rate, err := e.fx.Resolve(ctx, "USD", target)
		if err == nil {
			return rate, true
		}
		e.logger.Debug("FX resolution failed", "currency", target, "error", err)
	}
	if e.crossQuoter != nil {
		rate, err := fx.DeriveCrossRate(ctx, e.crossQuoter, asset, target)
		if err == nil {
			metrics.RecordFXResolution("cross_rate")
			return rate, true
		}
		e.logger.Warn("Cross-rate derivation failed", "currency", target, "error", err)
	}
	return decimal.Zero, false
}
