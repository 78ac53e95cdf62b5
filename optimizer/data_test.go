package optimizer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kchart-dev/kchart/model"
)

func candleHistory(n int) []model.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	history := make([]model.Candle, n)
	for i := range history {
		price := 100 + float64(i)
		history[i] = model.Candle{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   price + 2,
			Low:    price - 2,
			Close:  price + 1,
			Volume: 10,
		}
	}
	return history
}

func TestOptimizeForRendering(t *testing.T) {
	history := candleHistory(100)

	t.Run("returns visible slice", func(t *testing.T) {
		d := NewData(10)
		slice := d.OptimizeForRendering(history, model.Range{Start: 10, End: 30}, 1, 8)
		require.Len(t, slice, 20)
		assert.Equal(t, history[10], slice[0])
	})

	t.Run("cache hit returns identical slice", func(t *testing.T) {
		d := NewData(10)
		first := d.OptimizeForRendering(history, model.Range{Start: 0, End: 50}, 1, 8)
		second := d.OptimizeForRendering(history, model.Range{Start: 0, End: 50}, 1, 8)
		require.NotEmpty(t, first)
		assert.Same(t, &first[0], &second[0])
		assert.Equal(t, 1, d.CacheLen())
	})

	t.Run("different key recomputes", func(t *testing.T) {
		d := NewData(10)
		d.OptimizeForRendering(history, model.Range{Start: 0, End: 50}, 1, 8)
		d.OptimizeForRendering(history, model.Range{Start: 0, End: 50}, 2, 8)
		assert.Equal(t, 2, d.CacheLen())
	})

	t.Run("reduces on narrow candles", func(t *testing.T) {
		d := NewData(10)
		slice := d.OptimizeForRendering(history, model.Range{Start: 0, End: 100}, 0.2, 2)
		assert.Less(t, len(slice), 100)
	})

	t.Run("empty history", func(t *testing.T) {
		d := NewData(10)
		slice := d.OptimizeForRendering(nil, model.Range{Start: 0, End: 10}, 1, 8)
		assert.Empty(t, slice)
	})

	t.Run("range clamped to history", func(t *testing.T) {
		d := NewData(10)
		slice := d.OptimizeForRendering(history, model.Range{Start: 90, End: 500}, 1, 8)
		assert.Len(t, slice, 10)
	})

	t.Run("cache bounded with FIFO eviction", func(t *testing.T) {
		d := NewData(5)
		for i := 0; i < 20; i++ {
			d.OptimizeForRendering(history, model.Range{Start: i, End: i + 10}, 1, 8)
			assert.LessOrEqual(t, d.CacheLen(), 5)
		}
		// the first key is long gone, the last is still cached
		assert.Equal(t, 5, d.CacheLen())
	})

	t.Run("clear cache", func(t *testing.T) {
		d := NewData(10)
		d.OptimizeForRendering(history, model.Range{Start: 0, End: 10}, 1, 8)
		d.ClearCache()
		assert.Zero(t, d.CacheLen())
	})
}

func TestReduceDataPoints(t *testing.T) {
	history := candleHistory(10)

	t.Run("length is ceil(n/factor)", func(t *testing.T) {
		for factor := 2; factor <= 6; factor++ {
			reduced := ReduceDataPoints(history, factor)
			expected := (len(history) + factor - 1) / factor
			assert.Len(t, reduced, expected, fmt.Sprintf("factor %d", factor))
		}
	})

	t.Run("aggregation rules", func(t *testing.T) {
		reduced := ReduceDataPoints(history, 3)
		first := reduced[0]
		assert.Equal(t, history[0].Open, first.Open)
		assert.Equal(t, history[2].Close, first.Close)
		assert.Equal(t, history[2].High, first.High)
		assert.Equal(t, history[0].Low, first.Low)
		assert.Equal(t, history[0].Volume+history[1].Volume+history[2].Volume, first.Volume)
	})

	t.Run("high low bound constituents", func(t *testing.T) {
		reduced := ReduceDataPoints(history, 4)
		for g, merged := range reduced {
			for i := g * 4; i < (g+1)*4 && i < len(history); i++ {
				assert.GreaterOrEqual(t, merged.High, history[i].High)
				assert.LessOrEqual(t, merged.Low, history[i].Low)
			}
		}
	})

	t.Run("volume is exact sum", func(t *testing.T) {
		reduced := ReduceDataPoints(history, 10)
		var total float64
		for _, c := range history {
			total += c.Volume
		}
		require.Len(t, reduced, 1)
		assert.Equal(t, total, reduced[0].Volume)
	})

	t.Run("factor one is a no-op", func(t *testing.T) {
		reduced := ReduceDataPoints(history, 1)
		assert.Equal(t, history, reduced)
	})
}
