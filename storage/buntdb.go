package storage

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/kchart-dev/kchart/model"
)

// Bunt stores candles as JSON values in a buntdb key/value database, keyed
// by pair and open time.
type Bunt struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory candle store, useful for tests and
// throwaway sessions.
func FromMemory() (Storage, error) {
	return newBunt(":memory:")
}

// FromFile creates a file-backed candle store.
func FromFile(file string) (Storage, error) {
	return newBunt(file)
}

func newBunt(sourceFile string) (Storage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, err
	}

	err = db.CreateIndex("time_index", "*", buntdb.IndexJSON("Time"))
	if err != nil {
		return nil, err
	}

	return &Bunt{db: db}, nil
}

func candleKey(candle *model.Candle) string {
	return fmt.Sprintf("%s:%d", candle.Pair, candle.Time.UnixMilli())
}

// SaveCandle upserts the candle under its (pair, time) key.
func (b *Bunt) SaveCandle(candle *model.Candle) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(candle)
		if err != nil {
			return err
		}

		_, _, err = tx.Set(candleKey(candle), string(content), nil)
		return err
	})
}

// Candles returns every stored candle matching all filters, in ascending
// time order.
func (b *Bunt) Candles(filters ...CandleFilter) ([]*model.Candle, error) {
	candles := make([]*model.Candle, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("time_index", func(key, value string) bool {
			var candle model.Candle
			if err := json.Unmarshal([]byte(value), &candle); err != nil {
				return true
			}

			for _, filter := range filters {
				if !filter(candle) {
					return true
				}
			}
			candles = append(candles, &candle)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}
