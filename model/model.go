package model

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Candle is a single OHLCV record. Candles are ordered by ascending Time;
// deduplication is the producer's responsibility.
type Candle struct {
	Pair      string
	Time      time.Time
	UpdatedAt time.Time
	Open      float64
	Close     float64
	Low       float64
	High      float64
	Volume    float64
	Complete  bool

	// Extra columns attached from CSV input
	Metadata map[string]float64
}

// Empty reports whether the candle carries no data.
func (c Candle) Empty() bool {
	return c.Pair == "" && c.Close == 0 && c.Open == 0 && c.Volume == 0
}

// ToSlice formats the candle as CSV columns.
func (c Candle) ToSlice(precision int) []string {
	return []string{
		fmt.Sprintf("%d", c.Time.Unix()),
		strconv.FormatFloat(c.Open, 'f', precision, 64),
		strconv.FormatFloat(c.Close, 'f', precision, 64),
		strconv.FormatFloat(c.Low, 'f', precision, 64),
		strconv.FormatFloat(c.High, 'f', precision, 64),
		strconv.FormatFloat(c.Volume, 'f', precision, 64),
	}
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Less orders candles by time, then update time, then pair.
func (c Candle) Less(j Item) bool {
	diff := j.(Candle).Time.Sub(c.Time)
	if diff < 0 {
		return false
	}
	if diff > 0 {
		return true
	}

	diff = j.(Candle).UpdatedAt.Sub(c.UpdatedAt)
	if diff < 0 {
		return false
	}
	if diff > 0 {
		return true
	}

	return c.Pair < j.(Candle).Pair
}

// Tick is the latest traded price pushed by a real-time feed. The renderer
// folds it into the last candle instead of appending a new one.
type Tick struct {
	Pair  string
	Price float64
	Time  time.Time
}

// Apply folds the tick into the candle: the close follows the tick and the
// high/low stretch to contain it. The candle keeps its open.
func (t Tick) Apply(c Candle) Candle {
	c.Close = t.Price
	c.High = math.Max(c.High, t.Price)
	c.Low = math.Min(c.Low, t.Price)
	c.UpdatedAt = t.Time
	return c
}

// IndicatorPoint is one value of a derived series, aligned to a candle time.
type IndicatorPoint struct {
	Time  time.Time
	Value float64
}

// IndicatorSeries is an ordered sequence of indicator points. It is shorter
// than its source history by the indicator's warm-up period.
type IndicatorSeries []IndicatorPoint

// Values returns the raw values of the series.
func (s IndicatorSeries) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Dataframe stores a candle history as aligned column series, the shape the
// indicator functions consume.
type Dataframe struct {
	Pair string

	Close  Series[float64]
	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Volume Series[float64]

	Time       []time.Time
	LastUpdate time.Time

	// Custom user metadata
	Metadata map[string]Series[float64]
}

// Sample returns a dataframe with the last positions entries.
func (df Dataframe) Sample(positions int) Dataframe {
	size := len(df.Time)
	start := size - positions
	if start <= 0 {
		return df
	}

	sample := Dataframe{
		Pair:       df.Pair,
		Close:      df.Close.LastValues(positions),
		Open:       df.Open.LastValues(positions),
		High:       df.High.LastValues(positions),
		Low:        df.Low.LastValues(positions),
		Volume:     df.Volume.LastValues(positions),
		Time:       df.Time[start:],
		LastUpdate: df.LastUpdate,
		Metadata:   make(map[string]Series[float64]),
	}

	for key := range df.Metadata {
		sample.Metadata[key] = df.Metadata[key].LastValues(positions)
	}

	return sample
}

// FromCandles builds a dataframe from an ordered candle history.
func FromCandles(pair string, candles []Candle) *Dataframe {
	df := &Dataframe{
		Pair:     pair,
		Metadata: make(map[string]Series[float64]),
	}
	for _, c := range candles {
		df.Open = append(df.Open, c.Open)
		df.Close = append(df.Close, c.Close)
		df.High = append(df.High, c.High)
		df.Low = append(df.Low, c.Low)
		df.Volume = append(df.Volume, c.Volume)
		df.Time = append(df.Time, c.Time)
		df.LastUpdate = c.Time
	}
	return df
}

// HeikinAshi carries the state needed to smooth a candle stream into
// Heikin-Ashi candles.
type HeikinAshi struct {
	PreviousHACandle Candle
}

func NewHeikinAshi() *HeikinAshi {
	return &HeikinAshi{}
}

// ToHeikinAshi converts a regular candle into its Heikin-Ashi form.
func (c Candle) ToHeikinAshi(ha *HeikinAshi) Candle {
	haCandle := ha.CalculateHeikinAshi(c)

	return Candle{
		Pair:      c.Pair,
		Open:      haCandle.Open,
		High:      haCandle.High,
		Low:       haCandle.Low,
		Close:     haCandle.Close,
		Volume:    c.Volume,
		Complete:  c.Complete,
		Time:      c.Time,
		UpdatedAt: c.UpdatedAt,
	}
}

// CalculateHeikinAshi computes the next Heikin-Ashi candle and advances the
// smoothing state.
func (ha *HeikinAshi) CalculateHeikinAshi(c Candle) Candle {
	var hkCandle Candle

	openValue := ha.PreviousHACandle.Open
	closeValue := ha.PreviousHACandle.Close

	// First candle seeds the smoothing with its own open/close.
	if ha.PreviousHACandle.Empty() {
		openValue = c.Open
		closeValue = c.Close
	}

	hkCandle.Open = (openValue + closeValue) / 2
	hkCandle.Close = (c.Open + c.High + c.Low + c.Close) / 4
	hkCandle.High = math.Max(c.High, math.Max(hkCandle.Open, hkCandle.Close))
	hkCandle.Low = math.Min(c.Low, math.Min(hkCandle.Open, hkCandle.Close))
	ha.PreviousHACandle = hkCandle

	return hkCandle
}
