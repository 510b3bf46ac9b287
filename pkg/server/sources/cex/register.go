package cex

import (
	"tc.com/price-api/pkg/server/sources"
)

func init() {
	// Register all CEX and index sources
	sources.Register("cex.binance", NewBinanceSource)
	sources.Register("cex.coinbase", NewCoinbaseSource)
	sources.Register("cex.kraken", NewKrakenSource)
	sources.Register("index.coingecko", NewCoinGeckoSource)
	sources.Register("index.coinpaprika", NewCoinpaprikaSource)
}
