// Package indicator implements technical-analysis series derived from OHLCV
// history. All functions are pure: insufficient or malformed input yields an
// InsufficientData result instead of an error or panic.
package indicator

import (
	"math"
	"time"

	"github.com/kchart-dev/kchart/model"
)

// Result is the outcome of an indicator computation. It distinguishes a
// series that was computed (possibly short) from one that could not be
// computed for lack of warm-up data.
type Result struct {
	values []float64
	offset int
	ok     bool
}

// Ok wraps computed values. offset is the warm-up offset: values[0] is
// aligned to source index offset.
func Ok(values []float64, offset int) Result {
	return Result{values: values, offset: offset, ok: true}
}

// Insufficient marks a computation that had too little input.
func Insufficient() Result {
	return Result{}
}

// OK reports whether the indicator could be computed.
func (r Result) OK() bool {
	return r.ok
}

// Values returns the computed values, empty for an insufficient result.
func (r Result) Values() []float64 {
	if !r.ok {
		return []float64{}
	}
	return r.values
}

// Offset returns the warm-up offset of the first value.
func (r Result) Offset() int {
	return r.offset
}

// Points aligns the result against the source timestamps, producing a
// renderable series. Values that fall outside the timestamp range are
// dropped.
func (r Result) Points(times []time.Time) model.IndicatorSeries {
	if !r.ok {
		return model.IndicatorSeries{}
	}
	series := make(model.IndicatorSeries, 0, len(r.values))
	for i, v := range r.values {
		idx := r.offset + i
		if idx < 0 || idx >= len(times) {
			continue
		}
		series = append(series, model.IndicatorPoint{Time: times[idx], Value: v})
	}
	return series
}

// sanitize reports whether the input is usable: non-empty and free of NaN.
func sanitize(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func windowMean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// windowStdDev is the population standard deviation of the window.
func windowStdDev(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
