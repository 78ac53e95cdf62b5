package chart

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fogleman/gg"
	log "github.com/sirupsen/logrus"

	"github.com/kchart-dev/kchart/indicator"
	"github.com/kchart-dev/kchart/model"
	"github.com/kchart-dev/kchart/optimizer"
)

// Polylines denser than this are simplified before stroking.
const pathSimplifyTolerance = 0.5

// Oscillator panels with a fixed value range.
var fixedOscRange = map[string][2]float64{
	indicator.NameRSI:        {0, 100},
	indicator.NameStochastic: {0, 100},
	indicator.NameMFI:        {0, 100},
	indicator.NameWilliamsR:  {-100, 0},
}

// drawFrame redraws the dirty layers and returns the composite order for
// this frame, dropping skipped layers under degraded performance.
func (r *Renderer) drawFrame(s scales, visible []model.Candle, score float64) []string {
	draw := func(id string, fn func(dc *gg.Context)) {
		if _, err := r.layers.RenderLayer(id, fn); err != nil {
			log.WithError(err).WithField("layer", id).Warn("chart: layer render failed")
		}
	}

	draw(LayerGrid, func(dc *gg.Context) { r.drawGrid(dc, s) })
	draw(LayerVolume, func(dc *gg.Context) { r.drawVolume(dc, s, visible) })
	draw(LayerCandles, func(dc *gg.Context) { r.drawCandles(dc, s, visible) })

	order := []string{LayerGrid, LayerVolume, LayerCandles}
	if score >= scoreSkipHeavy {
		draw(LayerIndicators, func(dc *gg.Context) { r.drawIndicators(dc, s, visible) })
		order = append(order, LayerIndicators)
	}
	draw(LayerOverlays, func(dc *gg.Context) { r.drawOverlays(dc, s) })
	draw(LayerAxes, func(dc *gg.Context) { r.drawAxes(dc, s, visible) })
	order = append(order, LayerOverlays, LayerAxes)
	if score >= scoreSkipCrosshair && r.cursorPos != nil {
		draw(LayerCrosshair, func(dc *gg.Context) { r.drawCrosshair(dc, s) })
		order = append(order, LayerCrosshair)
	}
	return order
}

// renderEmpty paints the background and a centered placeholder message.
func (r *Renderer) renderEmpty() error {
	if _, err := r.layers.RenderLayer(LayerGrid, func(dc *gg.Context) {
		dc.SetHexColor(r.theme.Background)
		dc.Clear()
		dc.SetHexColor(r.theme.NoData)
		dc.DrawStringAnchored("no data available", float64(r.width)/2, float64(r.height)/2, 0.5, 0.5)
	}); err != nil {
		return err
	}
	return r.layers.CompositeLayers([]string{LayerGrid})
}

func (r *Renderer) drawGrid(dc *gg.Context, s scales) {
	dc.SetHexColor(r.theme.Background)
	dc.Clear()

	dc.SetHexColor(r.theme.Grid)
	dc.SetLineWidth(1)
	for i := 0; i <= horizontalLines; i++ {
		y := s.plot.y + s.plot.h*float64(i)/float64(horizontalLines)
		dc.DrawLine(s.plot.x, y, s.plot.x+s.plot.w, y)
	}
	for i := 0; i <= verticalLines; i++ {
		x := s.plot.x + s.plot.w*float64(i)/float64(verticalLines)
		dc.DrawLine(x, s.plot.y, x, s.plot.y+s.plot.h)
	}
	dc.Stroke()
}

func (r *Renderer) drawVolume(dc *gg.Context, s scales, visible []model.Candle) {
	if s.volMax <= 0 {
		return
	}

	bottom := s.plot.y + s.plot.h
	dc.SetHexColor(r.theme.Volume)
	for i, c := range visible {
		if !finiteCandle(c) || c.Volume <= 0 {
			continue
		}
		top := s.yVolume(c.Volume)
		dc.DrawRectangle(s.x(i)-s.candleWidth/2, top, s.candleWidth, bottom-top)
	}
	dc.Fill()
}

func (r *Renderer) drawCandles(dc *gg.Context, s scales, visible []model.Candle) {
	halfWidth := s.candleWidth / 2
	for i, c := range visible {
		if !finiteCandle(c) {
			continue
		}

		x := s.x(i)
		if c.Bullish() {
			dc.SetHexColor(r.theme.Bullish)
		} else {
			dc.SetHexColor(r.theme.Bearish)
		}

		// Wick.
		dc.SetLineWidth(1)
		dc.DrawLine(x, s.y(c.High), x, s.y(c.Low))
		dc.Stroke()

		// Body, at least one pixel tall so dojis stay visible.
		top := s.y(math.Max(c.Open, c.Close))
		bodyH := math.Abs(s.y(c.Open) - s.y(c.Close))
		if bodyH < 1 {
			bodyH = 1
		}
		dc.DrawRectangle(x-halfWidth, top, s.candleWidth, bodyH)
		dc.Fill()
	}
}

func (r *Renderer) drawIndicators(dc *gg.Context, s scales, visible []model.Candle) {
	slotByTime := make(map[int64]int, len(visible))
	for i, c := range visible {
		slotByTime[c.Time.UnixMilli()] = i
	}

	names := make([]string, 0, len(r.computed))
	for name := range r.computed {
		names = append(names, name)
	}
	sort.Strings(names)

	colorIdx := 0
	nextColor := func() string {
		color := r.theme.IndicatorLines[colorIdx%len(r.theme.IndicatorLines)]
		colorIdx++
		return color
	}

	for _, name := range names {
		computed := r.computed[name]
		lineNames := make([]string, 0, len(computed.Series))
		for lineName := range computed.Series {
			lineNames = append(lineNames, lineName)
		}
		sort.Strings(lineNames)

		if computed.Overlay {
			if name == indicator.NameBollinger {
				r.fillBand(dc, s, computed.Series["upper"], computed.Series["lower"], slotByTime)
			}
			for _, lineName := range lineNames {
				r.strokeOverlayLine(dc, s, computed.Series[lineName], slotByTime, nextColor())
			}
			continue
		}

		min, max := oscillatorRange(name, computed)
		r.drawOscillatorRefs(dc, s, name, min, max)
		for _, lineName := range lineNames {
			series := computed.Series[lineName]
			if name == indicator.NameMACD && lineName == "histogram" {
				r.drawHistogram(dc, s, series, slotByTime, min, max)
				continue
			}
			r.strokeOscillatorLine(dc, s, series, slotByTime, min, max, nextColor())
		}
	}
}

// fillBand shades the area between the upper and lower series of a band
// indicator on the price panel.
func (r *Renderer) fillBand(dc *gg.Context, s scales, upper, lower model.IndicatorSeries, slotByTime map[int64]int) {
	project := func(series model.IndicatorSeries) []optimizer.Point {
		points := make([]optimizer.Point, 0, len(series))
		for _, p := range series {
			slot, ok := slotByTime[p.Time.UnixMilli()]
			if !ok || !isFinite(p.Value) {
				continue
			}
			points = append(points, optimizer.Point{X: s.x(slot), Y: s.y(p.Value)})
		}
		return points
	}

	top := project(upper)
	bottom := project(lower)
	if len(top) < 2 || len(bottom) < 2 {
		return
	}

	dc.SetHexColor(r.theme.BandFill)
	dc.MoveTo(top[0].X, top[0].Y)
	for _, p := range top[1:] {
		dc.LineTo(p.X, p.Y)
	}
	for i := len(bottom) - 1; i >= 0; i-- {
		dc.LineTo(bottom[i].X, bottom[i].Y)
	}
	dc.ClosePath()
	dc.Fill()
}

// strokeOverlayLine draws an indicator series on the price panel, simplified
// through the path optimizer before stroking.
func (r *Renderer) strokeOverlayLine(dc *gg.Context, s scales, series model.IndicatorSeries, slotByTime map[int64]int, color string) {
	points := make([]optimizer.Point, 0, len(series))
	for _, p := range series {
		slot, ok := slotByTime[p.Time.UnixMilli()]
		if !ok || !isFinite(p.Value) {
			continue
		}
		points = append(points, optimizer.Point{X: s.x(slot), Y: s.y(p.Value)})
	}
	r.strokePath(dc, optimizer.OptimizePath(points, pathSimplifyTolerance), color)
}

func (r *Renderer) strokeOscillatorLine(dc *gg.Context, s scales, series model.IndicatorSeries, slotByTime map[int64]int, min, max float64, color string) {
	points := make([]optimizer.Point, 0, len(series))
	for _, p := range series {
		slot, ok := slotByTime[p.Time.UnixMilli()]
		if !ok || !isFinite(p.Value) {
			continue
		}
		points = append(points, optimizer.Point{X: s.x(slot), Y: s.yOsc(p.Value, min, max)})
	}
	r.strokePath(dc, optimizer.OptimizePath(points, pathSimplifyTolerance), color)
}

func (r *Renderer) strokePath(dc *gg.Context, points []optimizer.Point, color string) {
	if len(points) < 2 {
		return
	}
	dc.SetHexColor(color)
	dc.SetLineWidth(1.5)
	dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()
}

func (r *Renderer) drawHistogram(dc *gg.Context, s scales, series model.IndicatorSeries, slotByTime map[int64]int, min, max float64) {
	zero := s.yOsc(0, min, max)
	barWidth := math.Max(s.candleWidth*0.6, 1)
	for _, p := range series {
		slot, ok := slotByTime[p.Time.UnixMilli()]
		if !ok || !isFinite(p.Value) {
			continue
		}
		if p.Value >= 0 {
			dc.SetHexColor(r.theme.Bullish)
		} else {
			dc.SetHexColor(r.theme.Bearish)
		}
		y := s.yOsc(p.Value, min, max)
		top := math.Min(y, zero)
		dc.DrawRectangle(s.x(slot)-barWidth/2, top, barWidth, math.Max(math.Abs(y-zero), 1))
		dc.Fill()
	}
}

// drawOscillatorRefs draws the reference lines of a fixed-range oscillator
// panel, such as the 30/50/70 levels of an RSI.
func (r *Renderer) drawOscillatorRefs(dc *gg.Context, s scales, name string, min, max float64) {
	var refs []float64
	switch name {
	case indicator.NameRSI, indicator.NameStochastic, indicator.NameMFI:
		refs = []float64{30, 50, 70}
	case indicator.NameWilliamsR:
		refs = []float64{-80, -50, -20}
	case indicator.NameMACD, indicator.NameCCI:
		refs = []float64{0}
	default:
		return
	}

	dc.SetHexColor(r.theme.Grid)
	dc.SetLineWidth(1)
	dc.SetDash(2, 4)
	for _, ref := range refs {
		y := s.yOsc(ref, min, max)
		dc.DrawLine(s.plot.x, y, s.plot.x+s.plot.w, y)
	}
	dc.Stroke()
	dc.SetDash()
}

// oscillatorRange returns the value range of an oscillator panel: fixed for
// bounded oscillators, data-driven otherwise.
func oscillatorRange(name string, computed indicator.Computed) (float64, float64) {
	if bounds, ok := fixedOscRange[name]; ok {
		return bounds[0], bounds[1]
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, series := range computed.Series {
		for _, p := range series {
			if !isFinite(p.Value) {
				continue
			}
			min = math.Min(min, p.Value)
			max = math.Max(max, p.Value)
		}
	}
	if math.IsInf(min, 1) || min == max {
		return -1, 1
	}
	return min, max
}

func (r *Renderer) drawOverlays(dc *gg.Context, s scales) {
	start := r.view.VisibleRange.Start
	for _, overlay := range r.overlays {
		switch shape := overlay.(type) {
		case model.Trendline:
			r.drawTrendline(dc, s, shape, start)
		case model.HorizontalLine:
			r.drawHorizontalLine(dc, s, shape)
		case model.Rectangle:
			r.drawRectangle(dc, s, shape, start)
		}
	}
}

func (r *Renderer) drawTrendline(dc *gg.Context, s scales, line model.Trendline, start int) {
	if len(line.Points) < 2 {
		return
	}

	dc.SetHexColor(line.Color)
	dc.SetLineWidth(math.Max(line.Width, 1))
	if line.Dashed {
		dc.SetDash(4, 4)
		defer dc.SetDash()
	}

	first := true
	for _, p := range line.Points {
		slot, ok := s.slotFor(p.X, start)
		if !ok {
			continue
		}
		if first {
			dc.MoveTo(s.x(slot), s.y(p.Y))
			first = false
			continue
		}
		dc.LineTo(s.x(slot), s.y(p.Y))
	}
	dc.Stroke()
}

func (r *Renderer) drawHorizontalLine(dc *gg.Context, s scales, line model.HorizontalLine) {
	y := s.y(line.Price)
	dc.SetHexColor(line.Color)
	dc.SetLineWidth(1)
	if line.Dashed {
		dc.SetDash(4, 4)
		defer dc.SetDash()
	}
	dc.DrawLine(s.plot.x, y, s.plot.x+s.plot.w, y)
	dc.Stroke()

	if line.ShowLabel {
		dc.SetHexColor(r.theme.Axis)
		dc.DrawStringAnchored(formatPrice(line.Price), s.plot.x+s.plot.w+4, y, 0, 0.5)
	}
}

func (r *Renderer) drawRectangle(dc *gg.Context, s scales, rectShape model.Rectangle, start int) {
	topSlot, okTop := s.slotFor(rectShape.TopLeft.X, start)
	bottomSlot, okBottom := s.slotFor(rectShape.BottomRight.X, start)
	if !okTop && !okBottom {
		return
	}

	x0 := s.x(topSlot) - s.candleWidth/2
	x1 := s.x(bottomSlot) + s.candleWidth/2
	y0 := s.y(rectShape.TopLeft.Y)
	y1 := s.y(rectShape.BottomRight.Y)

	dc.SetHexColor(rectShape.FillColor)
	dc.DrawRectangle(x0, math.Min(y0, y1), x1-x0, math.Abs(y1-y0))
	dc.Fill()
	dc.SetHexColor(rectShape.BorderColor)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x0, math.Min(y0, y1), x1-x0, math.Abs(y1-y0))
	dc.Stroke()
}

func (r *Renderer) drawAxes(dc *gg.Context, s scales, visible []model.Candle) {
	dc.SetHexColor(r.theme.Axis)

	// Price labels along the right edge of the price band.
	for i := 0; i <= priceLabelCount; i++ {
		price := s.priceMax - (s.priceMax-s.priceMin)*float64(i)/float64(priceLabelCount)
		dc.DrawStringAnchored(formatPrice(price), s.plot.x+s.plot.w+4, s.y(price), 0, 0.5)
	}

	// Time labels, downsampled so they never collide.
	if len(visible) == 0 {
		return
	}
	step := (len(visible) + maxTimeLabels - 1) / maxTimeLabels
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(visible); i += step {
		label := formatTime(visible[i].Time, visible[len(visible)-1].Time.Sub(visible[0].Time))
		dc.DrawStringAnchored(label, s.x(i), s.plot.y+s.plot.h+12, 0.5, 0.5)
	}
}

func (r *Renderer) drawCrosshair(dc *gg.Context, s scales) {
	pos := r.cursorPos
	if pos == nil {
		return
	}

	dc.SetHexColor(r.theme.Crosshair)
	dc.SetLineWidth(1)
	dc.SetDash(4, 4)
	dc.DrawLine(pos.x, s.plot.y, pos.x, s.plot.y+s.plot.h)
	dc.DrawLine(s.plot.x, pos.y, s.plot.x+s.plot.w, pos.y)
	dc.Stroke()
	dc.SetDash()

	// Price readout at the vertical cursor position.
	band := s.plot.h * priceBandRatio
	if band > 0 && pos.y >= s.plot.y && pos.y <= s.plot.y+band {
		price := s.priceMax - (pos.y-s.plot.y)/band*(s.priceMax-s.priceMin)
		dc.DrawStringAnchored(formatPrice(price), s.plot.x+s.plot.w+4, pos.y, 0, 0.5)
	}
}

func formatPrice(price float64) string {
	switch {
	case math.Abs(price) >= 1000:
		return fmt.Sprintf("%.0f", price)
	case math.Abs(price) >= 1:
		return fmt.Sprintf("%.2f", price)
	default:
		return fmt.Sprintf("%.4f", price)
	}
}

// formatTime picks a label granularity from the visible time span.
func formatTime(t time.Time, span time.Duration) string {
	if span >= 48*time.Hour {
		return t.Format("Jan 02")
	}
	return t.Format("15:04")
}
