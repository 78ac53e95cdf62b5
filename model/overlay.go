package model

// OverlayPoint addresses a location on the chart: X is a history index and
// Y a price.
type OverlayPoint struct {
	X int
	Y float64
}

// Overlay is a caller-owned shape drawn on top of the chart. The renderer
// only reads overlays; it never mutates or retains them.
type Overlay interface {
	overlay()
}

// Trendline is a polyline through chart points.
type Trendline struct {
	Points []OverlayPoint
	Color  string
	Width  float64
	Dashed bool
}

// HorizontalLine marks a price level across the full plot width.
type HorizontalLine struct {
	Price     float64
	Color     string
	Dashed    bool
	ShowLabel bool
}

// Rectangle is a filled box between two chart points.
type Rectangle struct {
	TopLeft     OverlayPoint
	BottomRight OverlayPoint
	FillColor   string
	BorderColor string
}

func (Trendline) overlay()      {}
func (HorizontalLine) overlay() {}
func (Rectangle) overlay()      {}
