package feed

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := csv.NewWriter(file)
	require.NoError(t, writer.WriteAll(rows))
	return path
}

func TestNewCSVFeed(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]string{
		{"time", "open", "close", "low", "high", "volume"},
	}
	for i := 0; i < 6; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		rows = append(rows, candleRow(at, 100+float64(i)))
	}

	feed, err := NewCSVFeed("1h", PairFeed{
		Pair:      "BTCUSDT",
		File:      writeCSV(t, rows),
		Timeframe: "1h",
	})
	require.NoError(t, err)

	candles, err := feed.CandlesByLimit(context.Background(), "BTCUSDT", "1h", 6)
	require.NoError(t, err)
	require.Len(t, candles, 6)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, base, candles[0].Time)
	assert.True(t, candles[0].Complete)
}

func TestCSVFeedResample(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]string{
		{"time", "open", "close", "low", "high", "volume"},
	}
	for i := 0; i < 8; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		rows = append(rows, candleRow(at, 100+float64(i)))
	}

	feed, err := NewCSVFeed("2h", PairFeed{
		Pair:      "BTCUSDT",
		File:      writeCSV(t, rows),
		Timeframe: "1h",
	})
	require.NoError(t, err)

	candles, err := feed.CandlesByLimit(context.Background(), "BTCUSDT", "2h", 4)
	require.NoError(t, err)
	require.Len(t, candles, 4)

	first := candles[0]
	assert.Equal(t, base, first.Time)
	assert.Equal(t, 100.0, first.Open, "resampled open comes from the first source candle")
	assert.Equal(t, 102.0, first.Close, "resampled close comes from the last source candle")
	assert.Equal(t, 20.0, first.Volume, "resampled volume is the sum of the group")
	assert.True(t, first.Complete)
}

func TestCSVFeedInsufficientData(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]string{
		{"time", "open", "close", "low", "high", "volume"},
		candleRow(base, 100),
	}

	feed, err := NewCSVFeed("1h", PairFeed{
		Pair:      "BTCUSDT",
		File:      writeCSV(t, rows),
		Timeframe: "1h",
	})
	require.NoError(t, err)

	_, err = feed.CandlesByLimit(context.Background(), "BTCUSDT", "1h", 10)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCSVFeedEmptyFile(t *testing.T) {
	_, err := NewCSVFeed("1h", PairFeed{
		Pair:      "BTCUSDT",
		File:      writeCSV(t, nil),
		Timeframe: "1h",
	})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCSVFeedLimit(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]string{
		{"time", "open", "close", "low", "high", "volume"},
	}
	for i := 0; i < 48; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		rows = append(rows, candleRow(at, 100+float64(i)))
	}

	feed, err := NewCSVFeed("1h", PairFeed{
		Pair:      "BTCUSDT",
		File:      writeCSV(t, rows),
		Timeframe: "1h",
	})
	require.NoError(t, err)

	feed.Limit(12 * time.Hour)
	candles, err := feed.CandlesByLimit(context.Background(), "BTCUSDT", "1h", 12)
	require.NoError(t, err)
	require.Len(t, candles, 12)
	assert.Equal(t, base.Add(36*time.Hour), candles[0].Time,
		"only candles inside the window before the newest survive")

	// Limiting an emptied feed must not fail.
	feed.CandlePairTimeFrame["BTCUSDT--1h"] = nil
	feed.Limit(12 * time.Hour)
}

func TestCSVFeedMetadataColumns(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]string{
		{"time", "open", "close", "low", "high", "volume", "trades"},
		append(candleRow(base, 100), "42"),
	}

	feed, err := NewCSVFeed("1h", PairFeed{
		Pair:      "BTCUSDT",
		File:      writeCSV(t, rows),
		Timeframe: "1h",
	})
	require.NoError(t, err)

	candles, err := feed.CandlesByLimit(context.Background(), "BTCUSDT", "1h", 1)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 42.0, candles[0].Metadata["trades"])
}

func candleRow(at time.Time, price float64) []string {
	return []string{
		strconv.FormatInt(at.Unix(), 10),
		strconv.FormatFloat(price, 'f', 2, 64),
		strconv.FormatFloat(price+1, 'f', 2, 64),
		strconv.FormatFloat(price-1, 'f', 2, 64),
		strconv.FormatFloat(price+2, 'f', 2, 64),
		"10",
	}
}
