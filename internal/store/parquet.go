package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"tradewire/internal/tradeapi"
)

// Compile-time interface checks.
var _ BarWriter = (*ParquetStore)(nil)
var _ TradeWriter = (*ParquetStore)(nil)
var _ BarReader = (*ParquetStore)(nil)

// ParquetStore captures streamed market data as Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for captured bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// TradeRecord is the Parquet schema for captured tick data.
type TradeRecord struct {
	TradeID   string  `parquet:"trade_id"`
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Size      float64 `parquet:"size"`
	Side      int32   `parquet:"side"`
}

// ---------------------------------------------------------------------------
// BarWriter implementation
// ---------------------------------------------------------------------------

// WriteBars appends bar data to Parquet files grouped by symbol, timeframe,
// and year. Each group produces a separate file at:
//
//	<DataDir>/bars/<SYMBOL>/<TF>/<YYYY>.parquet
//
// Existing records for the same (symbol, timestamp) are replaced, so a stream
// that re-emits the forming bar converges on the final values.
func (s *ParquetStore) WriteBars(_ context.Context, tf tradeapi.TimeFrame, bars []tradeapi.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: b.Symbol, year: b.Timestamp.Year()}
		groups[k] = append(groups[k], BarRecord{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for k, records := range groups {
		path := s.barPath(k.symbol, tf, k.year)

		// Read existing records to merge.
		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%s/%d: %w", k.symbol, tf, k.year, err)
		}
	}
	return nil
}

// ReadBars reads captured bars for the given symbol and timeframe within
// [start, end], in timestamp order.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, tf tradeapi.TimeFrame, start, end time.Time) ([]tradeapi.Bar, error) {
	var bars []tradeapi.Bar
	for year := start.Year(); year <= end.Year(); year++ {
		path := s.barPath(symbol, tf, year)
		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading bars for %s/%s/%d: %w", symbol, tf, year, err)
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			bars = append(bars, tradeapi.Bar{
				Symbol:    r.Symbol,
				Timestamp: ts,
				Open:      r.Open,
				High:      r.High,
				Low:       r.Low,
				Close:     r.Close,
				Volume:    r.Volume,
			})
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// ---------------------------------------------------------------------------
// TradeWriter implementation
// ---------------------------------------------------------------------------

// WriteTrades appends tick data to Parquet files grouped by symbol and day at:
//
//	<DataDir>/trades/<SYMBOL>/<YYYY-MM-DD>.parquet
//
// Trades are deduplicated by trade id.
func (s *ParquetStore) WriteTrades(_ context.Context, trades []tradeapi.MarketTrade) error {
	if len(trades) == 0 {
		return nil
	}

	type key struct {
		symbol string
		day    string
	}
	groups := make(map[key][]TradeRecord)
	for _, t := range trades {
		k := key{symbol: t.Symbol, day: t.Timestamp.UTC().Format("2006-01-02")}
		groups[k] = append(groups[k], TradeRecord{
			TradeID:   t.TradeID,
			Symbol:    t.Symbol,
			Timestamp: t.Timestamp.UnixMilli(),
			Price:     t.Price,
			Size:      t.Size,
			Side:      int32(t.Side),
		})
	}

	for k, records := range groups {
		path := s.tradePath(k.symbol, k.day)

		existing, _ := readParquetFile[TradeRecord](path)
		merged := mergeTradeRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing trades for %s/%s: %w", k.symbol, k.day, err)
		}
	}
	return nil
}

// ReadTrades reads captured trades for the given symbol and day, in
// timestamp order.
func (s *ParquetStore) ReadTrades(_ context.Context, symbol string, day time.Time) ([]tradeapi.MarketTrade, error) {
	path := s.tradePath(symbol, day.UTC().Format("2006-01-02"))
	records, err := readParquetFile[TradeRecord](path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading trades for %s: %w", symbol, err)
	}
	trades := make([]tradeapi.MarketTrade, 0, len(records))
	for _, r := range records {
		trades = append(trades, tradeapi.MarketTrade{
			TradeID:   r.TradeID,
			Symbol:    r.Symbol,
			Price:     r.Price,
			Size:      r.Size,
			Side:      tradeapi.Side(r.Side),
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		})
	}
	return trades, nil
}

// ListSymbols returns the symbols that have captured bar data for a timeframe.
func (s *ParquetStore) ListSymbols(tf tradeapi.TimeFrame) ([]string, error) {
	root := filepath.Join(s.DataDir, "bars")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var symbols []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), tf.String())); err == nil {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// Paths and file helpers
// ---------------------------------------------------------------------------

func (s *ParquetStore) barPath(symbol string, tf tradeapi.TimeFrame, year int) string {
	return filepath.Join(s.DataDir, "bars", symbol, tf.String(), fmt.Sprintf("%d.parquet", year))
}

func (s *ParquetStore) tradePath(symbol, day string) string {
	return filepath.Join(s.DataDir, "trades", symbol, day+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeBarRecords merges two record sets, with incoming replacing existing on
// the same (symbol, timestamp), sorted by timestamp.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	byKey := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		byKey[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		byKey[key{r.Symbol, r.Timestamp}] = r
	}
	merged := make([]BarRecord, 0, len(byKey))
	for _, r := range byKey {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })
	return merged
}

// mergeTradeRecords merges two record sets, deduplicating by trade id, sorted
// by timestamp.
func mergeTradeRecords(existing, incoming []TradeRecord) []TradeRecord {
	byID := make(map[string]TradeRecord, len(existing)+len(incoming))
	for _, r := range existing {
		byID[r.TradeID] = r
	}
	for _, r := range incoming {
		byID[r.TradeID] = r
	}
	merged := make([]TradeRecord, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })
	return merged
}
