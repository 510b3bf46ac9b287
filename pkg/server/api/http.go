// Package api provides the HTTP endpoints for the price server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/metrics"
	"tc.com/price-api/pkg/server/engine"
	"tc.com/price-api/pkg/server/history"
	"tc.com/price-api/pkg/server/pricing"
	"tc.com/price-api/pkg/server/sources"
)

const (
	defaultBase   = "bitcoin"
	defaultTarget = "usd"

	// The history pipeline serves bitcoin only.
	historyAsset  = "bitcoin"
	historySymbol = "BTC"
)

// Server represents the HTTP API server.
type Server struct {
	addr           string
	engine         *engine.Engine
	server         *http.Server
	requestTimeout time.Duration
	logger         *logging.Logger
}

// NewServer creates a new HTTP API server around eng.
func NewServer(addr string, eng *engine.Engine, requestTimeout time.Duration, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Server{
		addr:           addr,
		engine:         eng,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler returns the configured mux without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/prices", s.recovered(s.handlePrices))
	mux.HandleFunc("/precise-prices", s.recovered(s.handlePrecisePrices))
	mux.HandleFunc("/history", s.recovered(s.handleHistory))
	return mux
}

// recovered wraps a handler with panic recovery; a panicking request
// yields a 500 instead of killing the server.
func (s *Server) recovered(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic in handler", "path", r.URL.Path, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
				metrics.RecordHTTPRequest(r.URL.Path, "500", 0)
				s.sendError(w, http.StatusInternalServerError, "internal server error", "", "")
			}
		}()
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// quoteEntry is one backing quote in a /prices response.
type quoteEntry struct {
	Source string           `json:"source"`
	Price  decimal.Decimal  `json:"price"`
	Volume *decimal.Decimal `json:"volume,omitempty"`
}

type pricesResponse struct {
	Base      string          `json:"base"`
	Target    string          `json:"vs"`
	Price     decimal.Decimal `json:"price"`
	Sources   []quoteEntry    `json:"sources"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// handlePrices serves the standard aggregated price. Total source
// failure still yields a 200 with a zero price and an empty source
// list; a 502 is reserved for quotes that cannot be aggregated.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/prices", status, time.Since(start))
	}()

	base, target := s.pairParams(r)
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.engine.Price(ctx, base, target)
	if err != nil {
		status = "502"
		s.logger.Error("Price aggregation failed", "asset", base, "currency", target, "error", err)
		s.sendError(w, http.StatusBadGateway, "failed to aggregate price", base, target)
		return
	}

	entries := make([]quoteEntry, 0, len(result.Quotes))
	for i := range result.Quotes {
		q := &result.Quotes[i]
		entry := quoteEntry{Source: q.Source, Price: q.Price}
		if q.Volume.IsPositive() {
			entry.Volume = &q.Volume
		}
		entries = append(entries, entry)
	}

	s.sendJSON(w, http.StatusOK, pricesResponse{
		Base:      result.Base,
		Target:    result.Target,
		Price:     result.Price,
		Sources:   entries,
		UpdatedAt: result.UpdatedAt,
	})
}

type precisePricesResponse struct {
	Base       string                 `json:"base"`
	Target     string                 `json:"vs"`
	Price      decimal.Decimal        `json:"price"`
	Confidence float64                `json:"confidence"`
	Sources    []pricing.PreciseQuote `json:"sources"`
	PriceRange pricing.PriceRange     `json:"priceRange"`
	Volatility float64                `json:"volatility"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// handlePrecisePrices serves the confidence-scored price. Unlike
// /prices it returns a 502 when no precise source resolves.
func (s *Server) handlePrecisePrices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/precise-prices", status, time.Since(start))
	}()

	base, target := s.pairParams(r)
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.engine.PrecisePrice(ctx, base, target)
	if err != nil {
		status = "502"
		s.logger.Error("Precise price failed", "asset", base, "currency", target, "error", err)
		s.sendError(w, http.StatusBadGateway, "no precise price data available", base, target)
		return
	}

	s.sendJSON(w, http.StatusOK, precisePricesResponse{
		Base:       result.Base,
		Target:     result.Target,
		Price:      result.Detail.Price,
		Confidence: result.Detail.Confidence,
		Sources:    result.Detail.Quotes,
		PriceRange: result.Detail.Range,
		Volatility: result.Detail.Volatility,
		UpdatedAt:  result.UpdatedAt,
	})
}

type historyResponse struct {
	Base      string          `json:"base"`
	Target    string          `json:"vs"`
	Interval  string          `json:"interval"`
	Data      []history.Point `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// handleHistory serves the merged bitcoin price series.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/history", status, time.Since(start))
	}()

	target := r.URL.Query().Get("vs")
	if target == "" {
		target = defaultTarget
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1h"
	}
	limit := s.engine.MaxPoints()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			status = "400"
			s.sendError(w, http.StatusBadRequest, "invalid limit: "+raw, historySymbol, target)
			return
		}
		if n < limit {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.engine.History(ctx, historyAsset, target, interval, limit)
	if err != nil {
		if errors.Is(err, history.ErrUnsupportedInterval) {
			status = "400"
			s.sendError(w, http.StatusBadRequest, "unsupported interval: "+interval, historySymbol, target)
			return
		}
		status = "502"
		s.logger.Error("History fetch failed", "currency", target, "interval", interval, "error", err)
		s.sendError(w, http.StatusBadGateway, "no historical data available", historySymbol, target)
		return
	}

	s.sendJSON(w, http.StatusOK, historyResponse{
		Base:      historySymbol,
		Target:    result.Target,
		Interval:  result.Interval,
		Data:      result.Points,
		UpdatedAt: result.UpdatedAt,
	})
}

// pairParams extracts the base asset and target currency query
// parameters, applying bitcoin/usd defaults.
func (s *Server) pairParams(r *http.Request) (base, target string) {
	base = strings.ToLower(strings.TrimSpace(r.URL.Query().Get("base")))
	if base == "" {
		base = defaultBase
	}
	target = strings.TrimSpace(r.URL.Query().Get("vs"))
	if target == "" {
		target = defaultTarget
	}
	return base, target
}

type errorResponse struct {
	Error     string    `json:"error"`
	Base      string    `json:"base,omitempty"`
	Target    string    `json:"vs,omitempty"`
	Sources   []string  `json:"sources"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// sendError writes a structured JSON error body.
func (s *Server) sendError(w http.ResponseWriter, code int, msg, base, target string) {
	resp := errorResponse{
		Error:     msg,
		Base:      base,
		Target:    strings.ToUpper(sources.NormalizeCurrency(target)),
		Sources:   []string{},
		UpdatedAt: time.Now().UTC(),
	}
	if target == "" {
		resp.Target = ""
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
