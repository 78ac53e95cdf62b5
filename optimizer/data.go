// Package optimizer holds the performance-adaptation subsystems of the
// chart: visible-slice caching/reduction and layered dirty-region
// compositing with path simplification.
package optimizer

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kchart-dev/kchart/model"
)

// DefaultCacheSize bounds the slice cache of a Data optimizer.
const DefaultCacheSize = 50

// When candles get narrower than this many pixels, neighbouring candles are
// merged before drawing.
const reduceWidthThreshold = 3.0

// Data returns the visible, possibly reduced, slice of a candle history and
// caches the result by (range, zoom, width). A cache hit returns the
// identical slice header, so callers may compare slices by reference to
// skip re-renders.
type Data struct {
	cache    map[string][]model.Candle
	keyOrder []string
	maxSize  int
}

// NewData creates a Data optimizer with a bounded cache. maxSize <= 0 falls
// back to DefaultCacheSize.
func NewData(maxSize int) *Data {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Data{
		cache:   make(map[string][]model.Candle, maxSize),
		maxSize: maxSize,
	}
}

// OptimizeForRendering returns history[visible.Start:visible.End], reduced
// when the candle width indicates a heavy zoom-out. Identical inputs return
// the cached slice itself.
func (d *Data) OptimizeForRendering(history []model.Candle, visible model.Range, zoomLevel, candleWidth float64) []model.Candle {
	if len(history) == 0 {
		return []model.Candle{}
	}

	visible = visible.Clamp(len(history))
	key := fmt.Sprintf("%d-%d-%.3f-%.3f", visible.Start, visible.End, zoomLevel, candleWidth)
	if cached, ok := d.cache[key]; ok {
		return cached
	}

	slice := history[visible.Start:visible.End]
	if candleWidth < reduceWidthThreshold && len(slice) > 0 {
		factor := int(reduceWidthThreshold/candleWidth) + 1
		slice = ReduceDataPoints(slice, factor)
	}

	d.store(key, slice)
	return slice
}

// ReduceDataPoints merges runs of factor candles into one synthetic candle:
// first open, last close, max high, min low, summed volume. factor <= 1 is
// a no-op.
func ReduceDataPoints(data []model.Candle, factor int) []model.Candle {
	if factor <= 1 || len(data) == 0 {
		return data
	}

	reduced := make([]model.Candle, 0, (len(data)+factor-1)/factor)
	for start := 0; start < len(data); start += factor {
		end := start + factor
		if end > len(data) {
			end = len(data)
		}

		group := data[start:end]
		merged := group[0]
		merged.Close = group[len(group)-1].Close
		for _, c := range group[1:] {
			if c.High > merged.High {
				merged.High = c.High
			}
			if c.Low < merged.Low {
				merged.Low = c.Low
			}
			merged.Volume += c.Volume
		}
		reduced = append(reduced, merged)
	}
	return reduced
}

// ClearCache drops every cached slice.
func (d *Data) ClearCache() {
	d.cache = make(map[string][]model.Candle, d.maxSize)
	d.keyOrder = d.keyOrder[:0]
}

// CacheLen returns the number of cached entries.
func (d *Data) CacheLen() int {
	return len(d.cache)
}

// store inserts under the key, evicting the oldest entry at the bound.
func (d *Data) store(key string, slice []model.Candle) {
	if len(d.cache) >= d.maxSize && len(d.keyOrder) > 0 {
		oldest := d.keyOrder[0]
		d.keyOrder = d.keyOrder[1:]
		delete(d.cache, oldest)
		log.WithField("key", oldest).Debug("optimizer: cache entry evicted")
	}
	d.cache[key] = slice
	d.keyOrder = append(d.keyOrder, key)
}
