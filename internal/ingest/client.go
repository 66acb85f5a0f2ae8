// Package ingest fetches market data from Alpha Vantage, computes technical
// indicators, and writes the enriched records into the market store.
package ingest

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	apperrors "finsight/internal/errors"
	"finsight/pkg/utils"
)

const vantageBaseURL = "https://www.alphavantage.co/query"

// Bar is one daily OHLCV observation, date ascending when in a series.
type Bar struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// VantageClient fetches daily stock and crypto series from Alpha Vantage.
// A circuit breaker stops the client from hammering the API once it starts
// failing consistently (expired key, exhausted daily quota).
type VantageClient struct {
	client  *resty.Client
	apiKey  string
	retry   utils.RetryConfig
	breaker *utils.Breaker
	log     zerolog.Logger
}

// NewVantageClient creates an Alpha Vantage client.
func NewVantageClient(apiKey string, log zerolog.Logger) *VantageClient {
	client := resty.New()
	client.SetBaseURL(vantageBaseURL)
	client.SetTimeout(30 * time.Second)

	return &VantageClient{
		client:  client,
		apiKey:  apiKey,
		retry:   utils.DefaultRetryConfig(),
		breaker: utils.NewBreaker(5, time.Minute),
		log:     log.With().Str("component", "vantage").Logger(),
	}
}

// FetchStockSeries fetches the recent daily series for a stock symbol,
// oldest first.
func (c *VantageClient) FetchStockSeries(ctx context.Context, symbol string) ([]Bar, error) {
	body, err := c.get(ctx, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": "compact",
		"apikey":     c.apiKey,
	})
	if err != nil {
		return nil, apperrors.NewIngestError("fetch", symbol, "stock series request failed", err)
	}

	bars, err := parseDailySeries(body, "Time Series (Daily)")
	if err != nil {
		return nil, apperrors.NewIngestError("parse", symbol, "stock series", err)
	}
	return bars, nil
}

// FetchCryptoSeries fetches the recent daily series for a crypto symbol
// quoted in market (e.g. BTC in USD), oldest first.
func (c *VantageClient) FetchCryptoSeries(ctx context.Context, symbol, market string) ([]Bar, error) {
	body, err := c.get(ctx, map[string]string{
		"function": "DIGITAL_CURRENCY_DAILY",
		"symbol":   symbol,
		"market":   market,
		"apikey":   c.apiKey,
	})
	if err != nil {
		return nil, apperrors.NewIngestError("fetch", symbol, "crypto series request failed", err)
	}

	bars, err := parseDailySeries(body, "Time Series (Digital Currency Daily)")
	if err != nil {
		return nil, apperrors.NewIngestError("parse", symbol, "crypto series", err)
	}
	return bars, nil
}

func (c *VantageClient) get(ctx context.Context, params map[string]string) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}

	body, err := utils.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get("")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, apperrors.Wrapf(apperrors.ErrConnectionFailed, "http status %d", resp.StatusCode())
		}
		return resp.Body(), nil
	})

	c.breaker.Record(err)
	return body, err
}

// parseDailySeries decodes an Alpha Vantage daily series response into bars
// sorted oldest first. API throttle and error payloads come back as 200s
// with "Information" or "Note" keys and are surfaced as errors.
func parseDailySeries(body []byte, seriesKey string) ([]Bar, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	if info, ok := envelope["Information"]; ok {
		return nil, apperrors.Wrap(apperrors.ErrRateLimited, strings.Trim(string(info), `"`))
	}
	if note, ok := envelope["Note"]; ok {
		return nil, apperrors.Wrap(apperrors.ErrRateLimited, strings.Trim(string(note), `"`))
	}

	raw, ok := envelope[seriesKey]
	if !ok {
		return nil, apperrors.ErrNoData
	}

	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(series))
	for date, fields := range series {
		bar := Bar{Date: date}
		var err error
		if bar.Open, err = fieldFloat(fields, "open"); err != nil {
			return nil, err
		}
		if bar.High, err = fieldFloat(fields, "high"); err != nil {
			return nil, err
		}
		if bar.Low, err = fieldFloat(fields, "low"); err != nil {
			return nil, err
		}
		if bar.Close, err = fieldFloat(fields, "close"); err != nil {
			return nil, err
		}
		volume, err := fieldFloat(fields, "volume")
		if err != nil {
			return nil, err
		}
		bar.Volume = int64(volume)
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}

// fieldFloat finds a series field by suffix match: stock fields are named
// "1. open" while crypto fields vary by quote market ("1a. open (USD)").
func fieldFloat(fields map[string]string, name string) (float64, error) {
	for key, value := range fields {
		lower := strings.ToLower(key)
		if strings.Contains(lower, name) {
			return strconv.ParseFloat(value, 64)
		}
	}
	return 0, apperrors.Wrapf(apperrors.ErrNoData, "missing field %q", name)
}
