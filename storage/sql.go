package storage

import (
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kchart-dev/kchart/model"
)

// candleRecord is the relational shape of a candle. The Metadata map is
// not persisted.
type candleRecord struct {
	ID        int64     `gorm:"primaryKey,autoIncrement"`
	Pair      string    `gorm:"uniqueIndex:idx_pair_time"`
	Time      time.Time `gorm:"uniqueIndex:idx_pair_time"`
	UpdatedAt time.Time
	Open      float64
	Close     float64
	Low       float64
	High      float64
	Volume    float64
	Complete  bool
}

func toRecord(candle *model.Candle) candleRecord {
	return candleRecord{
		Pair:      candle.Pair,
		Time:      candle.Time,
		UpdatedAt: candle.UpdatedAt,
		Open:      candle.Open,
		Close:     candle.Close,
		Low:       candle.Low,
		High:      candle.High,
		Volume:    candle.Volume,
		Complete:  candle.Complete,
	}
}

func (r candleRecord) toCandle() *model.Candle {
	return &model.Candle{
		Pair:      r.Pair,
		Time:      r.Time,
		UpdatedAt: r.UpdatedAt,
		Open:      r.Open,
		Close:     r.Close,
		Low:       r.Low,
		High:      r.High,
		Volume:    r.Volume,
		Complete:  r.Complete,
	}
}

// SQL stores candles through gorm, so any dialect gorm supports works as a
// backend.
type SQL struct {
	db *gorm.DB
}

// FromSQL opens a gorm-backed candle store and migrates its schema.
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (Storage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&candleRecord{}); err != nil {
		return nil, err
	}

	return &SQL{db: db}, nil
}

// SaveCandle upserts the candle on its (pair, time) key.
func (s *SQL) SaveCandle(candle *model.Candle) error {
	record := toRecord(candle)
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair"}, {Name: "time"}},
		UpdateAll: true,
	}).Create(&record)
	return result.Error
}

// Candles returns every stored candle matching all filters, in ascending
// time order.
func (s *SQL) Candles(filters ...CandleFilter) ([]*model.Candle, error) {
	records := make([]candleRecord, 0)
	result := s.db.Order("time").Find(&records)
	if result.Error != nil && result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	candles := lo.Map(records, func(r candleRecord, _ int) *model.Candle {
		return r.toCandle()
	})
	return lo.Filter(candles, func(candle *model.Candle, _ int) bool {
		for _, filter := range filters {
			if !filter(*candle) {
				return false
			}
		}
		return true
	}), nil
}
