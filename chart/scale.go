package chart

import (
	"math"

	"github.com/kchart-dev/kchart/model"
)

const (
	priceBandRatio   = 0.8  // top share of the plot area reserved for price
	volumeBandRatio  = 0.15 // bottom share shared by volume and oscillators
	priceRangePad    = 0.1  // vertical padding applied around the price range
	horizontalLines  = 5
	verticalLines    = 8
	maxTimeLabels    = 8
	priceLabelCount  = 6
	minVisibleSlots  = 10
)

type rect struct {
	x, y, w, h float64
}

// scales maps candle indexes and values to pixel coordinates for a single
// frame. It is rebuilt on every render from the visible slice.
type scales struct {
	plot rect

	priceMin float64
	priceMax float64
	volMax   float64

	slot        float64 // horizontal space per full-resolution candle
	candleWidth float64 // drawn body width, widened by the reduction factor
	factor      int     // reduction factor applied to the visible slice
}

func (r *Renderer) computeScales(visible []model.Candle) scales {
	factor := r.reductionFactor
	if factor < 1 {
		factor = 1
	}
	s := scales{
		plot: rect{
			x: r.view.Padding.Left,
			y: r.view.Padding.Top,
			w: float64(r.width) - r.view.Padding.Left - r.view.Padding.Right,
			h: float64(r.height) - r.view.Padding.Top - r.view.Padding.Bottom,
		},
		priceMin:    math.Inf(1),
		priceMax:    math.Inf(-1),
		slot:        r.view.CandleWidth + r.view.CandleSpacing,
		candleWidth: r.view.CandleWidth * float64(factor),
		factor:      factor,
	}

	for _, c := range visible {
		if !finiteCandle(c) {
			continue
		}
		s.priceMin = math.Min(s.priceMin, c.Low)
		s.priceMax = math.Max(s.priceMax, c.High)
		s.volMax = math.Max(s.volMax, c.Volume)
	}

	if math.IsInf(s.priceMin, 1) || math.IsInf(s.priceMax, -1) {
		s.priceMin, s.priceMax = 0, 1
	}
	if s.priceMax == s.priceMin {
		s.priceMin--
		s.priceMax++
	}
	pad := (s.priceMax - s.priceMin) * priceRangePad
	s.priceMin -= pad
	s.priceMax += pad
	return s
}

// x returns the pixel center of the candle at position i in the visible
// slice. A reduced candle stands in for factor raw slots, so its center
// advances factor slots per position.
func (s scales) x(i int) float64 {
	span := s.slot * float64(s.factor)
	return s.plot.x + float64(i)*span + span/2
}

// y maps a price into the upper price band. Higher prices map to smaller
// pixel values.
func (s scales) y(price float64) float64 {
	if !isFinite(price) {
		return s.plot.y + s.plot.h*priceBandRatio
	}
	band := s.plot.h * priceBandRatio
	return s.plot.y + (s.priceMax-price)/(s.priceMax-s.priceMin)*band
}

// yVolume maps a volume value into the bottom band of the plot.
func (s scales) yVolume(v float64) float64 {
	top := s.plot.y + s.plot.h*(1-volumeBandRatio)
	if s.volMax <= 0 || !isFinite(v) {
		return s.plot.y + s.plot.h
	}
	return top + (1-v/s.volMax)*s.plot.h*volumeBandRatio
}

// yOsc maps an oscillator value into the bottom band given the value range
// of its panel.
func (s scales) yOsc(v, min, max float64) float64 {
	top := s.plot.y + s.plot.h*(1-volumeBandRatio)
	band := s.plot.h * volumeBandRatio
	if max <= min || !isFinite(v) {
		return top + band/2
	}
	return top + (max-v)/(max-min)*band
}

// slotFor converts an absolute history index into a position in the
// visible slice, accounting for data reduction.
func (s scales) slotFor(historyIdx, visibleStart int) (int, bool) {
	if historyIdx < visibleStart {
		return 0, false
	}
	pos := historyIdx - visibleStart
	if s.factor > 1 {
		pos /= s.factor
	}
	return pos, true
}

func finiteCandle(c model.Candle) bool {
	return isFinite(c.Open) && isFinite(c.High) && isFinite(c.Low) &&
		isFinite(c.Close) && isFinite(c.Volume)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
