package download

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kchart-dev/kchart/feed"
	"github.com/kchart-dev/kchart/model"
)

type stubSource struct{}

func (stubSource) CandlesByLimit(_ context.Context, _, _ string, _ int) ([]model.Candle, error) {
	return nil, nil
}

func (stubSource) CandlesByPeriod(_ context.Context, pair, timeframe string, start, end time.Time) ([]model.Candle, error) {
	candles := make([]model.Candle, 0)
	for at := start; !at.After(end); at = at.Add(time.Hour) {
		candles = append(candles, model.Candle{
			Pair:     pair,
			Time:     at,
			Open:     100,
			High:     102,
			Low:      99,
			Close:    101,
			Volume:   10,
			Complete: true,
		})
	}
	return candles, nil
}

func (stubSource) CandlesSubscription(_ context.Context, _, _ string) (chan model.Candle, chan error) {
	return nil, nil
}

func TestDownloadWritesReadableCSV(t *testing.T) {
	output := filepath.Join(t.TempDir(), "BTCUSDT-1h.csv")
	downloader := NewDownloader(stubSource{})

	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC)
	err := downloader.Download(context.Background(), "BTCUSDT", "1h", output,
		WithInterval(start, end), WithPrecision(2))
	require.NoError(t, err)

	csvFeed, err := feed.NewCSVFeed("1h", feed.PairFeed{
		Pair:      "BTCUSDT",
		File:      output,
		Timeframe: "1h",
	})
	require.NoError(t, err)

	candles, err := csvFeed.CandlesByPeriod(context.Background(), "BTCUSDT", "1h", start, end)
	require.NoError(t, err)
	require.NotEmpty(t, candles)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, start, candles[0].Time)
}

func TestCandlesCount(t *testing.T) {
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	count, interval, err := candlesCount(start, end, "1h")
	require.NoError(t, err)
	assert.Equal(t, 24, count)
	assert.Equal(t, time.Hour, interval)

	_, _, err = candlesCount(start, end, "bogus")
	assert.Error(t, err)
}
