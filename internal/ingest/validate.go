package ingest

import (
	apperrors "finsight/internal/errors"
)

// ValidateBars rejects a series with non-positive prices or inverted
// high/low ranges before indicators are computed. An empty series is
// rejected too.
func ValidateBars(symbol string, bars []Bar) error {
	if len(bars) == 0 {
		return apperrors.NewIngestError("validate", symbol, "empty series", apperrors.ErrNoData)
	}
	for _, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return apperrors.NewIngestError("validate", symbol,
				"non-positive price on "+b.Date, nil)
		}
		if b.High < b.Low {
			return apperrors.NewIngestError("validate", symbol,
				"high below low on "+b.Date, nil)
		}
		if b.Volume < 0 {
			return apperrors.NewIngestError("validate", symbol,
				"negative volume on "+b.Date, nil)
		}
	}
	return nil
}
