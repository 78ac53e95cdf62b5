package chart

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kchart-dev/kchart/indicator"
	"github.com/kchart-dev/kchart/model"
)

func testCandles(n int) []model.Candle {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := range candles {
		open := 100 + float64(i)
		candles[i] = model.Candle{
			Pair:     "BTCUSDT",
			Time:     base.Add(time.Duration(i) * time.Hour),
			Open:     open,
			High:     open + 2,
			Low:      open - 1,
			Close:    open + 1,
			Volume:   10 + float64(i%5),
			Complete: true,
		}
	}
	return candles
}

func TestZoomStep(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()

	r.Zoom(1) // positive delta zooms out
	view := r.View()
	assert.InDelta(t, 0.9, view.ZoomLevel, 1e-9)
	assert.InDelta(t, 7.2, view.CandleWidth, 1e-9)

	r.Zoom(-1)
	view = r.View()
	assert.InDelta(t, 0.99, view.ZoomLevel, 1e-9)
}

func TestZoomClamped(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()

	for i := 0; i < 100; i++ {
		r.Zoom(-1)
	}
	view := r.View()
	assert.Equal(t, model.MaxZoom, view.ZoomLevel)
	assert.Equal(t, model.MaxCandleWidth, view.CandleWidth)

	for i := 0; i < 100; i++ {
		r.Zoom(1)
	}
	view = r.View()
	assert.InDelta(t, model.MinZoom, view.ZoomLevel, 1e-9)
	assert.Equal(t, model.MinCandleWidth, view.CandleWidth)
}

func TestReducedVisibleSliceSpansPlot(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()
	r.SetHistory("BTCUSDT", testCandles(2000))

	for i := 0; i < 40; i++ {
		r.Zoom(1) // zoom all the way out so candles merge
	}
	require.NoError(t, r.Render())

	visible := r.lastVisible
	require.NotEmpty(t, visible)
	s := r.computeScales(visible)
	require.Greater(t, s.factor, 1)
	assert.InDelta(t, r.View().CandleWidth*float64(s.factor), s.candleWidth, 1e-9)

	// The last reduced candle must land at the right edge of the plot,
	// not in its left half.
	span := s.slot * float64(s.factor)
	lastX := s.x(len(visible) - 1)
	plotRight := s.plot.x + s.plot.w
	assert.Greater(t, lastX, plotRight-2*span)
	assert.LessOrEqual(t, lastX, plotRight)
}

func TestPriceScaleMonotonic(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()
	r.SetHistory("BTCUSDT", testCandles(50))
	require.NoError(t, r.Render())

	s := r.computeScales(r.lastVisible)
	prev := s.y(s.priceMin)
	for price := s.priceMin; price <= s.priceMax; price += (s.priceMax - s.priceMin) / 20 {
		y := s.y(price)
		assert.LessOrEqual(t, y, prev, "higher prices must map to smaller y")
		prev = y
	}
	assert.Greater(t, s.y(s.priceMin), s.y(s.priceMax))
}

func TestRenderEmptyHistory(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()

	require.NoError(t, r.Render())
	data, err := r.Export(FormatPNG, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderWithIndicators(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()

	r.SetHistory("BTCUSDT", testCandles(120))
	r.SetIndicators(indicator.Config{
		indicator.NameSMA:  {Period: 20},
		indicator.NameRSI:  {Period: 14},
		indicator.NameMACD: {},
	})
	r.SetOverlays([]model.Overlay{
		model.HorizontalLine{Price: 150, Color: "#ffffff", ShowLabel: true},
		model.Trendline{Points: []model.OverlayPoint{{X: 10, Y: 110}, {X: 40, Y: 140}}, Color: "#00ff00", Width: 2},
	})
	require.NoError(t, r.Render())
}

func TestPanClamped(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()
	r.SetHistory("BTCUSDT", testCandles(100))

	r.StartDrag(400, 300)
	r.Drag(400+1e6, 300)
	view := r.View()
	assert.Equal(t, -90.0, view.PanOffset, "panning into history must keep candles on screen")

	r.Drag(400-1e6, 300)
	view = r.View()
	assert.Equal(t, 0.0, view.PanOffset, "panning past the newest candle must clamp to zero")
	r.EndDrag()
}

func TestDragOutsideGestureOnlyMovesCursor(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()
	r.SetHistory("BTCUSDT", testCandles(100))

	before := r.View().PanOffset
	r.Drag(100, 100)
	assert.Equal(t, before, r.View().PanOffset)
}

func TestVisibleRangeFollowsPan(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()
	r.SetHistory("BTCUSDT", testCandles(200))
	require.NoError(t, r.Render())

	view := r.View()
	assert.Equal(t, 200, view.VisibleRange.End, "initial view shows the newest candles")
	assert.Greater(t, view.VisibleRange.Len(), 0)

	r.StartDrag(400, 300)
	r.Drag(800, 300) // drag right reveals older candles
	r.EndDrag()
	require.NoError(t, r.Render())
	assert.Less(t, r.View().VisibleRange.End, 200)
}

func TestResizeIdempotent(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()
	r.SetHistory("BTCUSDT", testCandles(50))

	r.Resize(1024, 768)
	r.Resize(1024, 768)
	require.NoError(t, r.Render())

	w, h := r.layers.Size()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)
}

func TestScheduleResizeCoalesces(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()

	r.ScheduleResize(900, 700)
	r.ScheduleResize(1000, 800)
	r.ScheduleResize(1100, 900)

	assert.Eventually(t, func() bool {
		w, h := r.layers.Size()
		return w == 1100 && h == 900
	}, time.Second, 10*time.Millisecond)
}

func TestOnTickFoldsIntoLastCandle(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()
	candles := testCandles(10)
	r.SetHistory("BTCUSDT", candles)

	last := candles[len(candles)-1]
	r.OnTick(model.Tick{Pair: "BTCUSDT", Price: last.High + 5, Time: last.Time.Add(time.Minute)})

	assert.Len(t, r.history, 10, "a tick must not append a candle")
	updated := r.history[len(r.history)-1]
	assert.Equal(t, last.High+5, updated.Close)
	assert.Equal(t, last.High+5, updated.High)
}

func TestAppendCandleExtendsHistory(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()
	r.SetHistory("BTCUSDT", testCandles(10))

	next := testCandles(11)[10]
	r.AppendCandle(next)
	assert.Len(t, r.history, 11)
}

func TestExportFormats(t *testing.T) {
	r := NewRenderer(400, 300)
	defer r.Destroy()
	r.SetHistory("BTCUSDT", testCandles(30))
	require.NoError(t, r.Render())

	pngData, err := r.Export(FormatPNG, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, pngData)

	jpegData, err := r.Export(FormatJPEG, 80)
	require.NoError(t, err)
	assert.NotEmpty(t, jpegData)

	webpData, err := r.Export(FormatWebP, 0)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Nil(t, webpData)
}

func TestDestroyedRendererRejectsOperations(t *testing.T) {
	r := NewRenderer(400, 300)
	r.SetHistory("BTCUSDT", testCandles(10))
	r.Destroy()

	assert.ErrorIs(t, r.Render(), ErrDestroyed)
	_, err := r.Export(FormatPNG, 0)
	assert.ErrorIs(t, err, ErrDestroyed)

	r.Destroy() // second destroy is a no-op
}

func TestNaNCandlesSkipped(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()

	candles := testCandles(20)
	candles[5].High = math.NaN()
	candles[5].Low = math.NaN()
	r.SetHistory("BTCUSDT", candles)
	require.NoError(t, r.Render())

	s := r.computeScales(r.lastVisible)
	assert.False(t, s.priceMin > s.priceMax)
	assert.True(t, isFinite(s.priceMin))
	assert.True(t, isFinite(s.priceMax))
}

func TestFlatPricesGetPaddedRange(t *testing.T) {
	r := NewRenderer(800, 600)
	defer r.Destroy()

	candles := testCandles(10)
	for i := range candles {
		candles[i].Open, candles[i].High, candles[i].Low, candles[i].Close = 100, 100, 100, 100
	}
	r.SetHistory("BTCUSDT", candles)
	require.NoError(t, r.Render())

	s := r.computeScales(r.lastVisible)
	assert.Less(t, s.priceMin, 100.0)
	assert.Greater(t, s.priceMax, 100.0)
}
