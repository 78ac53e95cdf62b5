package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kchart-dev/kchart/model"
)

type fakeSource struct {
	candles []model.Candle
}

func (f *fakeSource) CandlesByLimit(_ context.Context, _, _ string, limit int) ([]model.Candle, error) {
	if limit > len(f.candles) {
		limit = len(f.candles)
	}
	return f.candles[:limit], nil
}

func (f *fakeSource) CandlesByPeriod(_ context.Context, _, _ string, start, end time.Time) ([]model.Candle, error) {
	result := make([]model.Candle, 0)
	for _, c := range f.candles {
		if !c.Time.Before(start) && !c.Time.After(end) {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *fakeSource) CandlesSubscription(_ context.Context, _, _ string) (chan model.Candle, chan error) {
	ccandle := make(chan model.Candle)
	cerr := make(chan error)
	go func() {
		for _, c := range f.candles {
			ccandle <- c
		}
		close(ccandle)
		close(cerr)
	}()
	return ccandle, cerr
}

func fakeCandles(n int) []model.Candle {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{
			Pair:     "BTCUSDT",
			Time:     base.Add(time.Duration(i) * time.Hour),
			Open:     100 + float64(i),
			High:     102 + float64(i),
			Low:      99 + float64(i),
			Close:    101 + float64(i),
			Volume:   10,
			Complete: true,
		}
	}
	return candles
}

func TestSubscriberDeliversCandles(t *testing.T) {
	source := &fakeSource{candles: fakeCandles(5)}
	subscriber := NewSubscriber(source)

	received := make([]model.Candle, 0)
	subscriber.Subscribe("BTCUSDT", "1h", func(candle model.Candle) {
		received = append(received, candle)
	}, true)

	subscriber.Start(context.Background(), true)
	require.Len(t, received, 5)
	for i := 1; i < len(received); i++ {
		assert.True(t, received[i].Time.After(received[i-1].Time))
	}
}

func TestSubscriberSkipsOpenCandlesOnCandleClose(t *testing.T) {
	candles := fakeCandles(4)
	candles[3].Complete = false
	source := &fakeSource{candles: candles}
	subscriber := NewSubscriber(source)

	closed := 0
	all := 0
	subscriber.Subscribe("BTCUSDT", "1h", func(model.Candle) { closed++ }, true)
	subscriber.Subscribe("BTCUSDT", "1h", func(model.Candle) { all++ }, false)

	subscriber.Start(context.Background(), true)
	assert.Equal(t, 3, closed)
	assert.Equal(t, 4, all)
}

func TestSubscriberPreload(t *testing.T) {
	subscriber := NewSubscriber(&fakeSource{})

	candles := fakeCandles(3)
	candles[2].Complete = false

	received := 0
	subscriber.Subscribe("BTCUSDT", "1h", func(model.Candle) { received++ }, true)
	subscriber.Preload("BTCUSDT", "1h", candles)
	assert.Equal(t, 2, received, "preload must skip incomplete candles")
}
