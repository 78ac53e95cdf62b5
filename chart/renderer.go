// Package chart renders candlestick charts with overlaid indicators onto an
// off-screen raster surface and owns the pan/zoom view state of one chart
// instance.
package chart

import (
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/kchart-dev/kchart/animation"
	"github.com/kchart-dev/kchart/indicator"
	"github.com/kchart-dev/kchart/model"
	"github.com/kchart-dev/kchart/optimizer"
	"github.com/kchart-dev/kchart/perf"
)

var (
	// ErrDestroyed is returned for operations on a destroyed renderer.
	ErrDestroyed = errors.New("chart: renderer destroyed")
)

// Layer ids in back-to-front composite order.
const (
	LayerGrid       = "grid"
	LayerVolume     = "volume"
	LayerCandles    = "candles"
	LayerIndicators = "indicators"
	LayerOverlays   = "overlays"
	LayerAxes       = "axes"
	LayerCrosshair  = "crosshair"
)

var layerOrder = []string{
	LayerGrid, LayerVolume, LayerCandles, LayerIndicators,
	LayerOverlays, LayerAxes, LayerCrosshair,
}

// Degraded-performance thresholds. Below the first the crosshair layer is
// skipped, below the second indicators are skipped as well and the visible
// range is capped.
const (
	scoreSkipCrosshair = 70.0
	scoreSkipHeavy     = 50.0
	degradedMaxVisible = 150
)

const resizeDebounce = 100 * time.Millisecond

type pointerState int

const (
	pointerIdle pointerState = iota
	pointerDragging
)

type cursor struct {
	x, y float64
}

// Renderer draws one candle history onto a layered raster surface. It is
// safe for concurrent use; every exported method takes the instance lock.
type Renderer struct {
	mu sync.Mutex

	width  int
	height int
	view   model.ViewState
	theme  Theme

	pair            string
	history         []model.Candle
	overlays        []model.Overlay
	indicatorConfig indicator.Config
	computed        map[string]indicator.Computed

	data      *optimizer.Data
	layers    *optimizer.Render
	scheduler *animation.Scheduler
	monitor   *perf.Monitor

	// reductionFactor is the merge factor applied by the last data
	// optimization pass, needed to map history indexes to screen slots.
	reductionFactor int
	lastVisible     []model.Candle

	pointer     pointerState
	dragOriginX float64
	dragPan     float64
	cursorPos   *cursor

	resizeMu    sync.Mutex
	resizeTimer *time.Timer

	destroyed bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTheme replaces the default palette.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithScheduler attaches an animation scheduler. Without one, view changes
// apply immediately.
func WithScheduler(scheduler *animation.Scheduler) Option {
	return func(r *Renderer) {
		r.scheduler = scheduler
	}
}

// WithMonitor attaches a performance monitor driving the degradation
// thresholds. Without one a private monitor is created.
func WithMonitor(monitor *perf.Monitor) Option {
	return func(r *Renderer) {
		r.monitor = monitor
	}
}

// NewRenderer creates a renderer with a surface of the given size.
func NewRenderer(width, height int, options ...Option) *Renderer {
	r := &Renderer{
		width:  width,
		height: height,
		view:   model.DefaultViewState(),
		theme:  DefaultTheme(),
		data:   optimizer.NewData(0),
		layers: optimizer.NewRender(width, height),
	}
	for _, option := range options {
		option(r)
	}
	if r.monitor == nil {
		r.monitor = perf.NewMonitor()
	}

	for _, id := range layerOrder {
		if err := r.layers.CreateLayer(id, width, height); err != nil {
			log.WithError(err).WithField("layer", id).Error("chart: layer setup failed")
		}
	}
	return r
}

// SetHistory replaces the candle history and resets the view to show the
// most recent candles.
func (r *Renderer) SetHistory(pair string, history []model.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}

	r.pair = pair
	r.history = history
	r.view.PanOffset = 0
	r.data.ClearCache()
	r.recompute()
	r.layers.MarkAllDirty()
}

// AppendCandle appends a closed candle to the history.
func (r *Renderer) AppendCandle(candle model.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}

	r.history = append(r.history, candle)
	r.data.ClearCache()
	r.recompute()
	r.markDataDirty()
}

// OnTick folds a live tick into the last candle. Ticks before any history
// exists are dropped.
func (r *Renderer) OnTick(tick model.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || len(r.history) == 0 {
		return
	}

	last := len(r.history) - 1
	r.history[last] = tick.Apply(r.history[last])
	r.data.ClearCache()
	r.recompute()
	r.markDataDirty()
}

// SetIndicators replaces the indicator configuration and recomputes every
// series.
func (r *Renderer) SetIndicators(config indicator.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}

	r.indicatorConfig = config
	r.recompute()
	r.markDirty(LayerIndicators)
}

// SetOverlays replaces the user-drawn overlay shapes.
func (r *Renderer) SetOverlays(overlays []model.Overlay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}

	r.overlays = overlays
	r.markDirty(LayerOverlays)
}

// History returns the candle history backing the chart. Callers must not
// mutate it.
func (r *Renderer) History() []model.Candle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history
}

// View returns a copy of the current view state.
func (r *Renderer) View() model.ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Monitor exposes the performance monitor of this renderer.
func (r *Renderer) Monitor() *perf.Monitor {
	return r.monitor
}

// Render draws one full frame: recompute the visible range, redraw the
// dirty layers and composite them. Clean layers with an unchanged visible
// slice are not redrawn.
func (r *Renderer) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrDestroyed
	}

	start := time.Now()
	defer func() {
		r.monitor.RecordRenderDuration(time.Since(start))
		r.monitor.RecordFrame(time.Now())
		r.monitor.RecordMemory()
	}()

	if len(r.history) == 0 {
		return r.renderEmpty()
	}

	score := r.monitor.GetPerformanceReport().Score
	r.updateVisibleRange(score)

	visible := r.data.OptimizeForRendering(r.history, r.view.VisibleRange, r.view.ZoomLevel, r.view.CandleWidth)
	r.reductionFactor = 1
	if span := r.view.VisibleRange.Len(); len(visible) > 0 && span > len(visible) {
		r.reductionFactor = (span + len(visible) - 1) / len(visible)
	}
	if !sameSlice(visible, r.lastVisible) {
		r.markDataDirty()
	}
	r.lastVisible = visible

	s := r.computeScales(visible)
	order := r.drawFrame(s, visible, score)
	return r.layers.CompositeLayers(order)
}

// Zoom applies one wheel step around the current view. A positive delta
// zooms out, a negative one zooms in.
func (r *Renderer) Zoom(delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}

	step := 1.1
	if delta > 0 {
		step = 0.9
	}
	r.view.ZoomLevel = lo.Clamp(r.view.ZoomLevel*step, model.MinZoom, model.MaxZoom)
	r.view.CandleWidth = lo.Clamp(8*r.view.ZoomLevel, model.MinCandleWidth, model.MaxCandleWidth)
	r.markViewDirty()
}

// SetZoom sets the zoom level directly, clamped to the allowed range. Used
// by animated zoom transitions.
func (r *Renderer) SetZoom(level float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}

	r.view.ZoomLevel = lo.Clamp(level, model.MinZoom, model.MaxZoom)
	r.view.CandleWidth = lo.Clamp(8*r.view.ZoomLevel, model.MinCandleWidth, model.MaxCandleWidth)
	r.markViewDirty()
}

// StartDrag begins a pan gesture at the given surface position.
func (r *Renderer) StartDrag(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || r.pointer != pointerIdle {
		return
	}
	r.pointer = pointerDragging
	r.dragOriginX = x
	r.dragPan = r.view.PanOffset
}

// Drag updates the pan offset while a gesture is active. Moves outside a
// gesture are treated as cursor moves and only refresh the crosshair.
func (r *Renderer) Drag(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}

	r.cursorPos = &cursor{x: x, y: y}
	r.markDirty(LayerCrosshair)
	if r.pointer != pointerDragging {
		return
	}

	slot := r.view.CandleWidth + r.view.CandleSpacing
	if slot <= 0 {
		return
	}
	// Dragging right pulls older candles into view.
	offset := r.dragPan - (x-r.dragOriginX)/slot
	r.view.PanOffset = r.clampPan(offset)
	r.markViewDirty()
}

// EndDrag finishes a pan gesture. Calling it while idle is a no-op.
func (r *Renderer) EndDrag() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointer = pointerIdle
}

// SetCursor moves the crosshair. ClearCursor hides it.
func (r *Renderer) SetCursor(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	r.cursorPos = &cursor{x: x, y: y}
	r.markDirty(LayerCrosshair)
}

// ClearCursor hides the crosshair.
func (r *Renderer) ClearCursor() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursorPos = nil
	r.markDirty(LayerCrosshair)
}

// Resize applies a new surface size immediately. Resizing to the current
// size is a no-op.
func (r *Renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || (width == r.width && height == r.height) {
		return
	}

	r.width = width
	r.height = height
	r.data.ClearCache()
	r.layers.Resize(width, height)
}

// ScheduleResize coalesces a burst of resize events and applies only the
// last size after a short quiet period.
func (r *Renderer) ScheduleResize(width, height int) {
	r.resizeMu.Lock()
	defer r.resizeMu.Unlock()
	if r.resizeTimer != nil {
		r.resizeTimer.Stop()
	}
	r.resizeTimer = time.AfterFunc(resizeDebounce, func() {
		r.Resize(width, height)
	})
}

// Destroy releases the drawing surfaces and pending resize timers. Further
// operations fail or are ignored.
func (r *Renderer) Destroy() {
	r.resizeMu.Lock()
	if r.resizeTimer != nil {
		r.resizeTimer.Stop()
		r.resizeTimer = nil
	}
	r.resizeMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	r.destroyed = true
	if r.scheduler != nil {
		r.scheduler.StopAllAnimations()
	}
	r.layers.Close()
	r.history = nil
	r.computed = nil
	r.lastVisible = nil
}

// updateVisibleRange derives the index window from surface width, candle
// sizing and pan offset. Under heavy degradation the window is capped.
func (r *Renderer) updateVisibleRange(score float64) {
	plotW := float64(r.width) - r.view.Padding.Left - r.view.Padding.Right
	slot := r.view.CandleWidth + r.view.CandleSpacing
	count := len(r.history)
	if slot > 0 {
		count = int(plotW / slot)
	}
	if count < 1 {
		count = 1
	}
	if score < scoreSkipHeavy && count > degradedMaxVisible {
		count = degradedMaxVisible
	}

	end := len(r.history) + int(r.view.PanOffset)
	if end > len(r.history) {
		end = len(r.history)
	}
	start := end - count
	r.view.VisibleRange = model.Range{Start: start, End: end}.Clamp(len(r.history))
}

// clampPan keeps at least a few candles on screen on both ends.
func (r *Renderer) clampPan(offset float64) float64 {
	min := -float64(len(r.history) - minVisibleSlots)
	if min > 0 {
		min = 0
	}
	return lo.Clamp(offset, min, 0)
}

func (r *Renderer) recompute() {
	r.computed = indicator.ComputeAll(r.history, r.indicatorConfig)
}

func (r *Renderer) markDirty(id string) {
	if err := r.layers.MarkDirty(id); err != nil && !errors.Is(err, optimizer.ErrClosed) {
		log.WithError(err).WithField("layer", id).Warn("chart: mark dirty failed")
	}
}

// markDataDirty flags every layer whose content depends on candle data.
func (r *Renderer) markDataDirty() {
	for _, id := range []string{LayerVolume, LayerCandles, LayerIndicators, LayerOverlays, LayerAxes, LayerCrosshair} {
		r.markDirty(id)
	}
}

// markViewDirty flags the layers affected by pan and zoom. The grid is
// static and stays clean.
func (r *Renderer) markViewDirty() {
	r.markDataDirty()
}

// sameSlice reports whether two slices share the same backing array and
// length, the identity contract of the data optimizer cache.
func sameSlice(a, b []model.Candle) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
