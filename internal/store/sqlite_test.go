package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"finsight/internal/models"
)

func newTestStore(t *testing.T) *SQLiteMarketStore {
	t.Helper()
	st, err := NewSQLiteMarketStore(filepath.Join(t.TempDir(), "market.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func ptr(v float64) *float64 { return &v }

func testRecord(symbol, date string, close float64) models.MarketRecord {
	return models.MarketRecord{
		Symbol:    symbol,
		Timestamp: date + "T00:00:00",
		Open:      close - 1,
		High:      close + 2,
		Low:       close - 2,
		Close:     close,
		Volume:    100000,
		MA5:       ptr(close - 0.5),
		RSI:       ptr(55.2),
	}
}

func TestSaveRecordsRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	today := time.Now().UTC().Format("2006-01-02")
	records := []models.MarketRecord{testRecord("AAPL", today, 200.63)}

	stored, err := st.SaveRecords(ctx, records)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if stored != 1 {
		t.Fatalf("stored = %d", stored)
	}

	history, err := st.SymbolHistory(ctx, "AAPL", 7)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history len = %d", len(history))
	}

	got := history[0]
	if got.Close != 200.63 || got.Volume != 100000 {
		t.Errorf("record = %+v", got)
	}
	if got.MA5 == nil || *got.MA5 != 200.13 {
		t.Errorf("ma5 = %v", got.MA5)
	}
	if got.MA20 != nil {
		t.Errorf("ma20 = %v, want nil", *got.MA20)
	}
}

func TestSaveRecordsUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	today := time.Now().UTC().Format("2006-01-02")
	if _, err := st.SaveRecords(ctx, []models.MarketRecord{testRecord("AAPL", today, 100)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := st.SaveRecords(ctx, []models.MarketRecord{testRecord("AAPL", today, 105)}); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	history, err := st.SymbolHistory(ctx, "AAPL", 7)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("duplicate (symbol, timestamp) stored twice: %d rows", len(history))
	}
	if history[0].Close != 105 {
		t.Errorf("close = %v, want replacement value 105", history[0].Close)
	}
}

func TestSelectReturnsOrderedRows(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	records := []models.MarketRecord{
		testRecord("AAPL", "2025-03-10", 198.5),
		testRecord("AAPL", "2025-03-11", 199.4),
	}
	if _, err := st.SaveRecords(ctx, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	rows, err := st.Select(ctx,
		"SELECT symbol, timestamp, close FROM market_data WHERE symbol = ? ORDER BY timestamp DESC",
		[]any{"AAPL"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}

	cols := rows[0].Columns()
	want := []string{"symbol", "timestamp", "close"}
	for i, col := range want {
		if cols[i] != col {
			t.Fatalf("columns = %v, want %v", cols, want)
		}
	}
	if rows[0].String("timestamp") != "2025-03-11T00:00:00" {
		t.Errorf("first row = %v", rows[0].Value("timestamp"))
	}
}

func TestPrune(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -120).Format("2006-01-02")
	recent := time.Now().UTC().Format("2006-01-02")
	records := []models.MarketRecord{
		testRecord("AAPL", old, 150),
		testRecord("AAPL", recent, 200),
	}
	if _, err := st.SaveRecords(ctx, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	pruned, err := st.Prune(ctx, 90)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	history, err := st.SymbolHistory(ctx, "AAPL", 365)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("remaining records = %d", len(history))
	}
}

func TestLatestRecords(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	records := []models.MarketRecord{
		testRecord("AAPL", "2025-03-10", 198.5),
		testRecord("AAPL", "2025-03-11", 199.4),
		testRecord("BTC-USD", "2025-03-10", 80750.25),
	}
	if _, err := st.SaveRecords(ctx, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	latest, err := st.LatestRecords(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("latest len = %d, want one record per symbol", len(latest))
	}
	if latest[0].Symbol != "AAPL" || latest[1].Symbol != "BTC-USD" {
		t.Errorf("symbol order = %s, %s", latest[0].Symbol, latest[1].Symbol)
	}
	if latest[0].Timestamp != "2025-03-11T00:00:00" {
		t.Errorf("AAPL latest = %s, want newest row", latest[0].Timestamp)
	}
	if latest[0].Close != 199.4 {
		t.Errorf("AAPL close = %v", latest[0].Close)
	}
}

func TestSummary(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	records := []models.MarketRecord{
		testRecord("AAPL", "2025-03-10", 198.5),
		testRecord("AAPL", "2025-03-11", 199.4),
		testRecord("BTC-USD", "2025-03-11", 80750.25),
	}
	if _, err := st.SaveRecords(ctx, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	summary, err := st.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalRecords != 3 || summary.UniqueSymbols != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.SymbolStats) != 2 {
		t.Fatalf("symbol stats = %v", summary.SymbolStats)
	}
}

// Property: saving any valid batch and reading it back preserves every
// numeric field within float tolerance.
func TestPropertyRecordRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	base := time.Now().UTC()
	run := 0

	properties.Property("round-trip preserves values", prop.ForAll(
		func(count int, basePrice float64, volume int64) bool {
			run++
			symbol := fmt.Sprintf("SYM%d", run)

			records := make([]models.MarketRecord, count)
			for i := range records {
				date := base.AddDate(0, 0, -i).Format("2006-01-02")
				r := testRecord(symbol, date, basePrice+float64(i))
				r.Volume = volume
				records[i] = r
			}

			if _, err := st.SaveRecords(ctx, records); err != nil {
				t.Logf("save failed: %v", err)
				return false
			}

			history, err := st.SymbolHistory(ctx, symbol, count+1)
			if err != nil {
				t.Logf("history failed: %v", err)
				return false
			}
			if len(history) != count {
				t.Logf("count mismatch: saved %d, got %d", count, len(history))
				return false
			}

			byTimestamp := make(map[string]models.MarketRecord, count)
			for _, r := range records {
				byTimestamp[r.Timestamp] = r
			}
			for _, got := range history {
				want, ok := byTimestamp[got.Timestamp]
				if !ok {
					t.Logf("unexpected timestamp %s", got.Timestamp)
					return false
				}
				if math.Abs(got.Close-want.Close) > 1e-9 || got.Volume != want.Volume {
					t.Logf("mismatch at %s: got %+v want %+v", got.Timestamp, got, want)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.Float64Range(10.0, 5000.0),
		gen.Int64Range(1000, 1_000_000_000),
	))

	properties.TestingRun(t)
}
