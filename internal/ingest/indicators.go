package ingest

import (
	"math"

	"finsight/internal/models"
)

// Indicator window sizes.
const (
	maShortWindow      = 5
	maMidWindow        = 10
	maLongWindow       = 20
	rsiWindow          = 14
	atrWindow          = 14
	volatilityWindow   = 20
	tradingDaysPerYear = 252
)

// ComputeRecords enriches a daily bar series (oldest first) with technical
// indicators and returns one record per bar, timestamped at midnight ISO.
// Indicators are nil until their window has enough history, mirroring how
// the columns are stored as nullable.
func ComputeRecords(symbol string, bars []Bar) []models.MarketRecord {
	n := len(bars)
	records := make([]models.MarketRecord, n)

	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	returns := pctChanges(closes)
	trueRanges := trueRanges(bars)

	for i, b := range bars {
		r := models.MarketRecord{
			Symbol:    symbol,
			Timestamp: b.Date + "T00:00:00",
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}

		r.MA5 = rollingMean(closes, i, maShortWindow)
		r.MA10 = rollingMean(closes, i, maMidWindow)
		r.MA20 = rollingMean(closes, i, maLongWindow)
		r.RSI = rsi(closes, i)
		r.ATR = rollingMean(trueRanges, i, atrWindow)

		if vol := rollingStd(returns, i, volatilityWindow); vol != nil {
			annualized := *vol * math.Sqrt(tradingDaysPerYear)
			r.Volatility = &annualized
		}

		if i > 0 && closes[i-1] != 0 {
			change := (closes[i] - closes[i-1]) / closes[i-1] * 100
			r.PctChange = &change
		}

		records[i] = r
	}

	return records
}

// pctChanges returns day-over-day fractional returns; index 0 is NaN since
// there is no prior close.
func pctChanges(closes []float64) []float64 {
	changes := make([]float64, len(closes))
	for i := range closes {
		if i == 0 || closes[i-1] == 0 {
			changes[i] = math.NaN()
			continue
		}
		changes[i] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	return changes
}

// trueRanges returns the daily true range: max of high-low, |high-prevClose|,
// |low-prevClose|. Index 0 falls back to high-low.
func trueRanges(bars []Bar) []float64 {
	ranges := make([]float64, len(bars))
	for i, b := range bars {
		highLow := b.High - b.Low
		if i == 0 {
			ranges[i] = highLow
			continue
		}
		prevClose := bars[i-1].Close
		ranges[i] = math.Max(highLow, math.Max(
			math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return ranges
}

// rollingMean averages the window ending at index i, or nil while there is
// not enough history or the window contains NaN.
func rollingMean(values []float64, i, window int) *float64 {
	if i+1 < window {
		return nil
	}
	var sum float64
	for _, v := range values[i+1-window : i+1] {
		if math.IsNaN(v) {
			return nil
		}
		sum += v
	}
	mean := sum / float64(window)
	return &mean
}

// rollingStd returns the sample standard deviation of the window ending at
// index i, or nil while there is not enough history.
func rollingStd(values []float64, i, window int) *float64 {
	mean := rollingMean(values, i, window)
	if mean == nil {
		return nil
	}
	var sum float64
	for _, v := range values[i+1-window : i+1] {
		d := v - *mean
		sum += d * d
	}
	std := math.Sqrt(sum / float64(window-1))
	return &std
}

// rsi computes the 14-period relative strength index at i using rolling
// means of gains and losses. A window with no losses saturates at 100.
func rsi(closes []float64, i int) *float64 {
	if i < rsiWindow {
		return nil
	}
	var gains, losses float64
	for j := i - rsiWindow + 1; j <= i; j++ {
		delta := closes[j] - closes[j-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / rsiWindow
	avgLoss := losses / rsiWindow

	if avgLoss == 0 {
		if avgGain == 0 {
			// Flat window: relative strength is undefined.
			return nil
		}
		v := 100.0
		return &v
	}

	rs := avgGain / avgLoss
	v := 100 - 100/(1+rs)
	return &v
}
