package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"finsight/internal/config"
	"finsight/internal/models"
	"finsight/internal/retrieval"
	"finsight/internal/store"
)

// SeriesFetcher is the market-data source the pipeline pulls from.
// *VantageClient satisfies it.
type SeriesFetcher interface {
	FetchStockSeries(ctx context.Context, symbol string) ([]Bar, error)
	FetchCryptoSeries(ctx context.Context, symbol, market string) ([]Bar, error)
}

// RefreshResult reports the outcome of one ingestion run.
type RefreshResult struct {
	RecordsStored int      `json:"records_stored"`
	Symbols       []string `json:"symbols"`
	Failed        []string `json:"failed,omitempty"`
	Pruned        int64    `json:"pruned,omitempty"`
}

// Pipeline fetches configured symbols, validates and enriches them, stores
// the records, prunes old data, and refreshes the report collection.
type Pipeline struct {
	fetcher SeriesFetcher
	store   store.MarketStore
	reports retrieval.Collection
	market  config.MarketConfig
	log     zerolog.Logger
}

// NewPipeline wires an ingestion pipeline. reports may be nil when no
// report indexing is wanted.
func NewPipeline(fetcher SeriesFetcher, st store.MarketStore, reports retrieval.Collection, market config.MarketConfig, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		store:   st,
		reports: reports,
		market:  market,
		log:     log.With().Str("component", "ingest").Logger(),
	}
}

// Refresh runs one full ingestion cycle. Per-symbol failures are collected
// rather than aborting the run; the error return is non-nil only when every
// symbol failed.
func (p *Pipeline) Refresh(ctx context.Context) (*RefreshResult, error) {
	result := &RefreshResult{}
	latest := make(map[string]models.MarketRecord)

	process := func(symbol string, bars []Bar, err error) {
		if err != nil {
			p.log.Error().Err(err).Str("symbol", symbol).Msg("fetch failed")
			result.Failed = append(result.Failed, symbol)
			return
		}
		if err := ValidateBars(symbol, bars); err != nil {
			p.log.Error().Err(err).Str("symbol", symbol).Msg("validation failed")
			result.Failed = append(result.Failed, symbol)
			return
		}

		records := ComputeRecords(symbol, bars)
		stored, err := p.store.SaveRecords(ctx, records)
		if err != nil {
			p.log.Error().Err(err).Str("symbol", symbol).Msg("store failed")
			result.Failed = append(result.Failed, symbol)
			return
		}

		result.RecordsStored += stored
		result.Symbols = append(result.Symbols, symbol)
		latest[symbol] = records[len(records)-1]

		p.log.Info().Str("symbol", symbol).Int("records", stored).Msg("symbol ingested")
	}

	for _, symbol := range p.market.Stocks {
		bars, err := p.fetcher.FetchStockSeries(ctx, symbol)
		process(symbol, bars, err)
	}
	for _, symbol := range p.market.Cryptos {
		bars, err := p.fetcher.FetchCryptoSeries(ctx, symbol, p.market.CryptoMarket)
		process(symbol+"-"+p.market.CryptoMarket, bars, err)
	}

	if len(result.Symbols) == 0 {
		return result, fmt.Errorf("market refresh failed for all %d symbols", len(result.Failed))
	}

	if p.market.RetentionDays > 0 {
		pruned, err := p.store.Prune(ctx, p.market.RetentionDays)
		if err != nil {
			p.log.Error().Err(err).Msg("prune failed")
		} else {
			result.Pruned = pruned
		}
	}

	if p.reports != nil {
		if err := p.reports.Update(ctx, ReportDocuments(latest)); err != nil {
			p.log.Error().Err(err).Msg("report indexing failed")
		}
	}

	p.log.Info().
		Int("records", result.RecordsStored).
		Int("symbols", len(result.Symbols)).
		Int("failed", len(result.Failed)).
		Msg("market refresh complete")

	return result, nil
}
