package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/server/fx"
	"tc.com/price-api/pkg/server/history"
	"tc.com/price-api/pkg/server/sources"
)

// stubSource returns a canned quote or error.
type stubSource struct {
	name  string
	typ   sources.SourceType
	quote sources.Quote
	err   error
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Type() sources.SourceType { return s.typ }
func (s *stubSource) Timeout() time.Duration { return time.Second }

func (s *stubSource) Fetch(_ context.Context, _, _ string) (*sources.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	q := s.quote
	return &q, nil
}

func usdSource(name string, price float64) *stubSource {
	return &stubSource{
		name: name,
		typ:  sources.SourceTypeCEX,
		quote: sources.Quote{
			Source:    name + ":BTCUSD",
			Currency:  "USD",
			Price:     decimal.NewFromFloat(price),
			Timestamp: time.Now(),
		},
	}
}

func downSource(name string) *stubSource {
	return &stubSource{name: name, typ: sources.SourceTypeCEX, err: errors.New("upstream down")}
}

// stubHistory returns a canned series.
type stubHistory struct {
	name     string
	points   []history.Point
	currency string
	err      error
}

func (s *stubHistory) Name() string { return s.name }

func (s *stubHistory) Series(_ context.Context, _, _, _ string, _ int) ([]history.Point, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.points, s.currency, nil
}

func newTestEngine(cfg Config) *Engine {
	cfg.Logger = logging.NewNoopLogger()
	if cfg.MaxPoints == 0 {
		cfg.MaxPoints = 1000
	}
	return New(cfg)
}

func TestPrice_AggregatesAcrossSources(t *testing.T) {
	eng := newTestEngine(Config{
		Sources: []sources.Source{
			usdSource("binance", 50000),
			usdSource("kraken", 50100),
			usdSource("coinbase", 50050),
		},
	})

	result, err := eng.Price(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", result.Base)
	assert.Equal(t, "USD", result.Target)
	assert.Len(t, result.Quotes, 3)
	assert.True(t, result.Price.GreaterThanOrEqual(decimal.NewFromInt(50000)))
	assert.True(t, result.Price.LessThanOrEqual(decimal.NewFromInt(50100)))
}

func TestPrice_ToleratesPartialFailure(t *testing.T) {
	eng := newTestEngine(Config{
		Sources: []sources.Source{
			downSource("binance"),
			usdSource("kraken", 50100),
			downSource("coinbase"),
		},
	})

	result, err := eng.Price(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)

	require.Len(t, result.Quotes, 1)
	assert.True(t, result.Price.Equal(decimal.NewFromInt(50100)))
}

func TestPrice_TotalFailureDegradesToZero(t *testing.T) {
	eng := newTestEngine(Config{
		Sources: []sources.Source{downSource("binance"), downSource("kraken")},
	})

	result, err := eng.Price(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)

	assert.True(t, result.Price.IsZero())
	assert.Empty(t, result.Quotes)
}

func TestPrice_ConvertsUSDQuotesViaFallbackRate(t *testing.T) {
	resolver := fx.NewResolver(nil, map[string]float64{"EUR": 0.92}, time.Second, logging.NewNoopLogger())
	eng := newTestEngine(Config{
		Sources: []sources.Source{usdSource("binance", 50000)},
		FX:      resolver,
	})

	result, err := eng.Price(context.Background(), "bitcoin", "eur")
	require.NoError(t, err)

	require.Len(t, result.Quotes, 1)
	assert.Equal(t, "binance:BTCUSD->EUR", result.Quotes[0].Source)
	assert.True(t, result.Price.Equal(decimal.NewFromInt(46000)))
	assert.Equal(t, "EUR", result.Target)
}

func TestPrice_DropsUSDQuotesWhenRateUnavailable(t *testing.T) {
	resolver := fx.NewResolver(nil, nil, time.Second, logging.NewNoopLogger())
	eng := newTestEngine(Config{
		Sources: []sources.Source{usdSource("binance", 50000)},
		FX:      resolver,
	})

	result, err := eng.Price(context.Background(), "bitcoin", "nok")
	require.NoError(t, err)

	assert.True(t, result.Price.IsZero())
	assert.Empty(t, result.Quotes)
}

func TestPrice_CrossRateDerivation(t *testing.T) {
	// No FX provider covers NOK; the index source quotes bitcoin both in
	// NOK and USD, so the engine derives the rate from the ratio.
	quoter := &fetchFunc{name: "coingecko", fn: func(_ context.Context, _, target string) (*sources.Quote, error) {
		price := decimal.NewFromInt(50000)
		if sources.NormalizeCurrency(target) == "NOK" {
			price = decimal.NewFromInt(500000)
		}
		return &sources.Quote{
			Source:   "coingecko:bitcoin",
			Currency: target,
			Price:    price,
		}, nil
	}}

	resolver := fx.NewResolver(nil, nil, time.Second, logging.NewNoopLogger())
	eng := newTestEngine(Config{
		Sources:     []sources.Source{usdSource("binance", 50000)},
		FX:          resolver,
		CrossQuoter: quoter,
	})

	result, err := eng.Price(context.Background(), "bitcoin", "nok")
	require.NoError(t, err)

	require.Len(t, result.Quotes, 1)
	// 50000 USD × (500000/50000) = 500000 NOK
	assert.True(t, result.Price.Equal(decimal.NewFromInt(500000)), "got %s", result.Price.String())
}

// fetchFunc adapts a closure to the Source interface.
type fetchFunc struct {
	name string
	fn   func(ctx context.Context, base, target string) (*sources.Quote, error)
}

func (f *fetchFunc) Name() string { return f.name }
func (f *fetchFunc) Type() sources.SourceType { return sources.SourceTypeIndex }
func (f *fetchFunc) Timeout() time.Duration { return time.Second }
func (f *fetchFunc) Fetch(ctx context.Context, base, target string) (*sources.Quote, error) {
	return f.fn(ctx, base, target)
}

func TestPrecisePrice_UsesOnlyPreciseSources(t *testing.T) {
	precise := usdSource("binance", 50000)
	precise.quote.Volume = decimal.NewFromInt(1000)
	precise.quote.High = decimal.NewFromInt(51000)
	precise.quote.Low = decimal.NewFromInt(49000)

	eng := newTestEngine(Config{
		Sources:        []sources.Source{precise, usdSource("coinpaprika", 90000)},
		PreciseSources: []sources.Source{precise},
	})

	result, err := eng.PrecisePrice(context.Background(), "bitcoin", "usd")
	require.NoError(t, err)

	require.Len(t, result.Detail.Quotes, 1)
	assert.Equal(t, "binance:BTCUSD", result.Detail.Quotes[0].Source)
	assert.True(t, result.Detail.Price.Equal(decimal.NewFromInt(50000)))
	assert.Greater(t, result.Detail.Confidence, 0.0)
}

func TestPrecisePrice_FailsHardWithoutSources(t *testing.T) {
	eng := newTestEngine(Config{
		Sources:        []sources.Source{usdSource("binance", 50000)},
		PreciseSources: []sources.Source{downSource("kraken")},
	})

	_, err := eng.PrecisePrice(context.Background(), "bitcoin", "usd")
	require.Error(t, err)
}

func TestHistory_MergesProviders(t *testing.T) {
	a := &stubHistory{
		name:     "coingecko",
		currency: "USD",
		points:   []history.Point{{Timestamp: 1000, Price: decimal.NewFromInt(50000)}},
	}
	b := &stubHistory{
		name:     "binance",
		currency: "USD",
		points: []history.Point{
			{Timestamp: 1000, Price: decimal.NewFromInt(50010)},
			{Timestamp: 2000, Price: decimal.NewFromInt(50020)},
		},
	}

	eng := newTestEngine(Config{History: []history.Provider{a, b}})

	result, err := eng.History(context.Background(), "bitcoin", "usd", "1h", 100)
	require.NoError(t, err)

	require.Len(t, result.Points, 2)
	assert.True(t, result.Points[0].Price.Equal(decimal.NewFromInt(50005)))
	assert.True(t, result.Points[1].Price.Equal(decimal.NewFromInt(50020)))
}

func TestHistory_ConvertsUSDTSeries(t *testing.T) {
	provider := &stubHistory{
		name:     "binance",
		currency: "USDT",
		points:   []history.Point{{Timestamp: 1000, Price: decimal.NewFromInt(50000)}},
	}
	resolver := fx.NewResolver(nil, map[string]float64{"EUR": 0.92}, time.Second, logging.NewNoopLogger())

	eng := newTestEngine(Config{History: []history.Provider{provider}, FX: resolver})

	result, err := eng.History(context.Background(), "bitcoin", "eur", "1h", 100)
	require.NoError(t, err)

	require.Len(t, result.Points, 1)
	assert.True(t, result.Points[0].Price.Equal(decimal.NewFromInt(46000)))
}

func TestHistory_DropsUnconvertibleSeries(t *testing.T) {
	provider := &stubHistory{
		name:     "binance",
		currency: "USDT",
		points:   []history.Point{{Timestamp: 1000, Price: decimal.NewFromInt(50000)}},
	}
	resolver := fx.NewResolver(nil, nil, time.Second, logging.NewNoopLogger())

	eng := newTestEngine(Config{History: []history.Provider{provider}, FX: resolver})

	_, err := eng.History(context.Background(), "bitcoin", "nok", "1h", 100)
	require.ErrorIs(t, err, history.ErrNoData)
}

func TestHistory_RejectsUnknownInterval(t *testing.T) {
	eng := newTestEngine(Config{History: []history.Provider{&stubHistory{name: "coingecko"}}})

	_, err := eng.History(context.Background(), "bitcoin", "usd", "2h", 100)
	require.ErrorIs(t, err, history.ErrUnsupportedInterval)
}

func TestHistory_TailLimitsPoints(t *testing.T) {
	points := make([]history.Point, 10)
	for i := range points {
		points[i] = history.Point{Timestamp: int64(1000 + i), Price: decimal.NewFromInt(int64(50000 + i))}
	}
	provider := &stubHistory{name: "coingecko", currency: "USD", points: points}

	eng := newTestEngine(Config{History: []history.Provider{provider}})

	result, err := eng.History(context.Background(), "bitcoin", "usd", "1h", 3)
	require.NoError(t, err)

	require.Len(t, result.Points, 3)
	assert.Equal(t, int64(1007), result.Points[0].Timestamp)
}
