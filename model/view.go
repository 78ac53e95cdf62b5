package model

// Zoom and candle sizing bounds shared by the renderer and its callers.
const (
	MinZoom = 0.1
	MaxZoom = 5.0

	MinCandleWidth = 2.0
	MaxCandleWidth = 20.0
)

// Range is an index window [Start, End) into a candle history.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Clamp bounds the range to [0, size], keeping Start <= End.
func (r Range) Clamp(size int) Range {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > size {
		r.End = size
	}
	if r.Start > r.End {
		r.Start = r.End
	}
	return r
}

// Padding is the inset between the surface border and the plotting box.
type Padding struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// ViewState is the mutable pan/zoom state of one chart instance.
//
// Invariants: 0 <= VisibleRange.Start <= VisibleRange.End <= history length,
// ZoomLevel in [MinZoom, MaxZoom], CandleWidth in [MinCandleWidth,
// MaxCandleWidth].
type ViewState struct {
	VisibleRange  Range
	ZoomLevel     float64
	PanOffset     float64
	CandleWidth   float64
	CandleSpacing float64
	Padding       Padding
}

// DefaultViewState returns the initial view for a fresh chart.
func DefaultViewState() ViewState {
	return ViewState{
		ZoomLevel:     1,
		CandleWidth:   8,
		CandleSpacing: 2,
		Padding:       Padding{Top: 20, Right: 60, Bottom: 30, Left: 10},
	}
}
