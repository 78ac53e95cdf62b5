package kchart

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kchart-dev/kchart/chart"
	"github.com/kchart-dev/kchart/indicator"
	"github.com/kchart-dev/kchart/model"
	"github.com/kchart-dev/kchart/storage"
)

type replaySource struct {
	candles []model.Candle
}

func (r *replaySource) CandlesByLimit(_ context.Context, _, _ string, limit int) ([]model.Candle, error) {
	if limit > len(r.candles) {
		limit = len(r.candles)
	}
	return r.candles[:limit], nil
}

func (r *replaySource) CandlesByPeriod(_ context.Context, _, _ string, _, _ time.Time) ([]model.Candle, error) {
	return r.candles, nil
}

func (r *replaySource) CandlesSubscription(_ context.Context, _, _ string) (chan model.Candle, chan error) {
	ccandle := make(chan model.Candle)
	cerr := make(chan error)
	go func() {
		for _, c := range r.candles {
			ccandle <- c
		}
		close(ccandle)
		close(cerr)
	}()
	return ccandle, cerr
}

func sessionCandles(n int) []model.Candle {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := range candles {
		open := 100 + float64(i)
		candles[i] = model.Candle{
			Pair:     "BTCUSDT",
			Time:     base.Add(time.Duration(i) * time.Hour),
			Open:     open,
			High:     open + 2,
			Low:      open - 1,
			Close:    open + 1,
			Volume:   10,
			Complete: true,
		}
	}
	return candles
}

type countingSubscriber struct {
	count int
}

func (c *countingSubscriber) OnCandle(model.Candle) {
	c.count++
}

func newReplaySession(t *testing.T, n int, options ...Option) *ChartSession {
	t.Helper()
	memory, err := storage.FromMemory()
	require.NoError(t, err)

	options = append([]Option{WithReplay(), WithStorage(memory), WithReducedMotion()}, options...)
	session, err := NewSession(context.Background(), Settings{
		Pair:      "BTCUSDT",
		Timeframe: "1h",
		Width:     640,
		Height:    480,
	}, &replaySource{candles: sessionCandles(n)}, options...)
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session
}

func TestSessionReplay(t *testing.T) {
	subscriber := &countingSubscriber{}
	session := newReplaySession(t, 50, WithCandleSubscription(subscriber))

	require.NoError(t, session.Run(context.Background()))
	assert.Equal(t, 50, subscriber.count)
	assert.Len(t, session.Renderer().History(), 50)
}

func TestSessionPerformanceReport(t *testing.T) {
	session := newReplaySession(t, 50)
	require.NoError(t, session.Run(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, session.PerformanceReport(&buf))
	assert.Contains(t, buf.String(), "Score")
	assert.Contains(t, buf.String(), "fps")
}

func TestSessionPersistsCandles(t *testing.T) {
	memory, err := storage.FromMemory()
	require.NoError(t, err)

	session, err := NewSession(context.Background(), Settings{
		Pair:      "BTCUSDT",
		Timeframe: "1h",
	}, &replaySource{candles: sessionCandles(10)},
		WithReplay(), WithStorage(memory), WithReducedMotion())
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Run(context.Background()))

	stored, err := memory.Candles(storage.WithPair("BTCUSDT"))
	require.NoError(t, err)
	assert.Len(t, stored, 10)
}

func TestSessionExportChart(t *testing.T) {
	session := newReplaySession(t, 30, WithIndicators(indicator.Config{
		indicator.NameSMA: {Period: 10},
	}))
	require.NoError(t, session.Run(context.Background()))

	path, err := session.ExportChart(t.TempDir()+"/chart.png", chart.FormatPNG)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestSessionTickFoldsDuplicateTime(t *testing.T) {
	candles := sessionCandles(5)
	// A second update of the last candle carries the same open time.
	update := candles[4]
	update.Close = 999
	update.Complete = false
	update.UpdatedAt = update.Time.Add(time.Minute)
	candles = append(candles, update)

	memory, err := storage.FromMemory()
	require.NoError(t, err)
	session, err := NewSession(context.Background(), Settings{
		Pair:      "BTCUSDT",
		Timeframe: "1h",
	}, &replaySource{candles: candles},
		WithReplay(), WithStorage(memory), WithReducedMotion())
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Run(context.Background()))

	history := session.Renderer().History()
	require.Len(t, history, 5, "updates of the same candle must fold, not append")
	assert.Equal(t, 999.0, history[4].Close)
}

func TestAnimateZoomReducedMotionJumps(t *testing.T) {
	session := newReplaySession(t, 20)
	require.NoError(t, session.Run(context.Background()))

	session.AnimateZoom(2)
	assert.Equal(t, 2.0, session.Renderer().View().ZoomLevel)
}

func TestAnimateZoomRendersFrames(t *testing.T) {
	session := newReplaySession(t, 20)
	require.NoError(t, session.Run(context.Background()))

	before := len(session.Monitor().GetPerformanceReport().RenderSamples)
	session.AnimateZoom(2)
	report := session.Monitor().GetPerformanceReport()

	assert.Equal(t, 2.0, session.Renderer().View().ZoomLevel)
	assert.Greater(t, len(report.RenderSamples), before, "zoom updates draw frames")
}

func TestSessionRequiresPair(t *testing.T) {
	_, err := NewSession(context.Background(), Settings{}, &replaySource{})
	assert.Error(t, err)
}
