// Package storage persists candle histories so chart sessions can reload
// them without hitting the exchange again.
package storage

import (
	"time"

	"github.com/kchart-dev/kchart/model"
)

// CandleFilter reports whether a candle should be included in a query
// result.
type CandleFilter func(model.Candle) bool

// Storage is the candle persistence contract. SaveCandle upserts on
// (pair, time), so re-downloading a range is safe.
type Storage interface {
	SaveCandle(candle *model.Candle) error
	Candles(filters ...CandleFilter) ([]*model.Candle, error)
}

// WithPair keeps candles of the given trading pair.
func WithPair(pair string) CandleFilter {
	return func(candle model.Candle) bool {
		return candle.Pair == pair
	}
}

// WithTimeBetween keeps candles inside [start, end].
func WithTimeBetween(start, end time.Time) CandleFilter {
	return func(candle model.Candle) bool {
		return !candle.Time.Before(start) && !candle.Time.After(end)
	}
}

// WithComplete keeps only closed candles.
func WithComplete() CandleFilter {
	return func(candle model.Candle) bool {
		return candle.Complete
	}
}
