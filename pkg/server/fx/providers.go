package fx

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/server/sources"
)

// Provider resolves a single conversion rate from one upstream API.
type Provider interface {
	Name() string
	// Rate returns how many units of target one unit of base buys.
	Rate(ctx context.Context, base, target string) (decimal.Decimal, error)
}

// NewProvider creates an FX provider by name.
func NewProvider(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case "frankfurter":
		return &frankfurterProvider{apiURL: "https://api.frankfurter.app", client: &http.Client{}}, nil
	case "erapi":
		return &erapiProvider{apiURL: "https://open.er-api.com", client: &http.Client{}}, nil
	case "exchangeratehost":
		return &exchangerateHostProvider{apiURL: "https://api.exchangerate.host", client: &http.Client{}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}

// frankfurterProvider uses the free Frankfurter API (no API key).
// https://www.frankfurter.app/docs/
type frankfurterProvider struct {
	apiURL string
	client *http.Client
}

type frankfurterResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Rates  map[string]float64 `json:"rates"`
}

func (p *frankfurterProvider) Name() string { return "frankfurter" }

func (p *frankfurterProvider) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/latest?from=%s&to=%s", p.apiURL, strings.ToUpper(base), strings.ToUpper(target))

	var data frankfurterResponse
	if err := sources.GetJSON(ctx, p.client, url, &data); err != nil {
		return decimal.Zero, err
	}

	rate, ok := data.Rates[strings.ToUpper(target)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, target)
	}
	return rateFromFloat(rate)
}

// erapiProvider uses the free open.er-api.com endpoint.
type erapiProvider struct {
	apiURL string
	client *http.Client
}

type erapiResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

func (p *erapiProvider) Name() string { return "erapi" }

func (p *erapiProvider) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v6/latest/%s", p.apiURL, strings.ToUpper(base))

	var data erapiResponse
	if err := sources.GetJSON(ctx, p.client, url, &data); err != nil {
		return decimal.Zero, err
	}
	if data.Result != "success" {
		return decimal.Zero, fmt.Errorf("%w: result %q", ErrProviderError, data.Result)
	}

	rate, ok := data.Rates[strings.ToUpper(target)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, target)
	}
	return rateFromFloat(rate)
}

// exchangerateHostProvider uses exchangerate.host.
type exchangerateHostProvider struct {
	apiURL string
	client *http.Client
}

type exchangerateHostResponse struct {
	Success bool               `json:"success"`
	Rates   map[string]float64 `json:"rates"`
}

func (p *exchangerateHostProvider) Name() string { return "exchangeratehost" }

func (p *exchangerateHostProvider) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/latest?base=%s&symbols=%s", p.apiURL, strings.ToUpper(base), strings.ToUpper(target))

	var data exchangerateHostResponse
	if err := sources.GetJSON(ctx, p.client, url, &data); err != nil {
		return decimal.Zero, err
	}
	if !data.Success {
		return decimal.Zero, fmt.Errorf("%w: success=false", ErrProviderError)
	}

	rate, ok := data.Rates[strings.ToUpper(target)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, target)
	}
	return rateFromFloat(rate)
}

func rateFromFloat(f float64) (decimal.Decimal, error) {
	rate, err := sources.PriceFromFloat(f)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidRate, f)
	}
	return rate, nil
}

// allow tests to point providers at stub servers
func newTestProvider(name, apiURL string) Provider {
	switch name {
	case "frankfurter":
		return &frankfurterProvider{apiURL: apiURL, client: &http.Client{Timeout: 5 * time.Second}}
	case "erapi":
		return &erapiProvider{apiURL: apiURL, client: &http.Client{Timeout: 5 * time.Second}}
	default:
		return &exchangerateHostProvider{apiURL: apiURL, client: &http.Client{Timeout: 5 * time.Second}}
	}
}
