package sources

import (
	"net"
	"net/http"
	"time"

	"tc.com/price-api/pkg/logging"
)

// BaseSource provides common functionality for all quote adapters.
// Adapters are stateless between requests; the base only carries
// configuration and the shared HTTP client.
type BaseSource struct {
	name       string
	sourcetype SourceType
	pairs      map[string]string // asset id -> source-specific symbol mapping
	timeout    time.Duration
	client     *http.Client
	logger     *logging.Logger
}

// NewBaseSource creates a new base source with pair mappings.
// pairs: map of asset id (e.g., "bitcoin") -> source-specific symbol (e.g., "BTCUSDT").
func NewBaseSource(name string, sourcetype SourceType, pairs map[string]string, timeout time.Duration, logger *logging.Logger) *BaseSource {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &BaseSource{
		name:       name,
		sourcetype: sourcetype,
		pairs:      pairs,
		timeout:    timeout,
		client:     newHTTPClient(),
		logger:     logger,
	}
}

// newHTTPClient builds the shared transport. Deadlines come from the
// per-attempt context, not from the client.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// Name returns the source name
func (b *BaseSource) Name() string {
	return b.name
}

// Type returns the source type
func (b *BaseSource) Type() SourceType {
	return b.sourcetype
}

// Timeout returns the per-attempt deadline
func (b *BaseSource) Timeout() time.Duration {
	return b.timeout
}

// Client returns the shared HTTP client
func (b *BaseSource) Client() *http.Client {
	return b.client
}

// Logger returns the logger
func (b *BaseSource) Logger() *logging.Logger {
	return b.logger
}

// SourceSymbol converts an asset id to the source-specific symbol.
// Returns false if the asset is not mapped for this source.
func (b *BaseSource) SourceSymbol(asset string) (string, bool) {
	symbol, ok := b.pairs[asset]
	return symbol, ok
}

// Pairs returns a copy of the pair mappings
func (b *BaseSource) Pairs() map[string]string {
	pairs := make(map[string]string, len(b.pairs))
	for k, v := range b.pairs {
		pairs[k] = v
	}
	return pairs
}
