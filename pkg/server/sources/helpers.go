// Package sources provides quote source interfaces and implementations.
package sources

import (
	"fmt"
	"time"

	"tc.com/price-api/pkg/logging"
)

// GetLoggerFromConfig extracts logger from config map or returns a default noop logger.
// Sources should use this to get the logger passed from main.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}
	return logging.NewNoopLogger()
}

// GetTimeoutFromConfig extracts the per-attempt deadline from config.
// Accepts a time.Duration (injected by the builder) or an integer
// millisecond value (from raw YAML).
func GetTimeoutFromConfig(config map[string]interface{}, def time.Duration) time.Duration {
	switch t := config["timeout"].(type) {
	case time.Duration:
		if t > 0 {
			return t
		}
	case int:
		if t > 0 {
			return time.Duration(t) * time.Millisecond
		}
	case float64:
		if t > 0 {
			return time.Duration(t) * time.Millisecond
		}
	}
	return def
}

// ParsePairsFromMap extracts pair mappings from config where pairs is a map.
// Expected format: pairs: { "bitcoin": "BTCUSDT", "ethereum": "ETHUSDT" }.
// Keys are asset ids, values source-specific symbols.
func ParsePairsFromMap(config map[string]interface{}) (map[string]string, error) {
	pairsRaw, ok := config["pairs"]
	if !ok {
		return nil, fmt.Errorf("%w: 'pairs' key", ErrInvalidConfig)
	}

	pairsMap, ok := pairsRaw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: pairs must be map[string]string", ErrInvalidConfig)
	}

	pairs := make(map[string]string, len(pairsMap))
	for asset, symbolRaw := range pairsMap {
		symbol, ok := symbolRaw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T", ErrInvalidConfig, asset, symbolRaw)
		}
		if asset == "" || symbol == "" {
			return nil, fmt.Errorf("%w: empty pair entry", ErrInvalidConfig)
		}
		pairs[asset] = symbol
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w", ErrNoPairsConfigured)
	}

	return pairs, nil
}
