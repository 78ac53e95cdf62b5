// Package kchart assembles a live candlestick chart session: a data feed,
// a layered renderer, indicator overlays, animations and performance
// monitoring behind one handle.
package kchart

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/kchart-dev/kchart/animation"
	"github.com/kchart-dev/kchart/chart"
	"github.com/kchart-dev/kchart/download"
	"github.com/kchart-dev/kchart/feed"
	"github.com/kchart-dev/kchart/indicator"
	"github.com/kchart-dev/kchart/model"
	"github.com/kchart-dev/kchart/perf"
	"github.com/kchart-dev/kchart/storage"
	"github.com/kchart-dev/kchart/tools/log"
)

const defaultDatabase = "kchart.db"

// Default zoom animation duration, halved and then dropped under degraded
// performance.
const defaultZoomDuration = 200 * time.Millisecond

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04",
	})
}

// CandleSubscriber receives every candle the session processes.
type CandleSubscriber interface {
	OnCandle(model.Candle)
}

// CandleSubscriberFunc adapts a plain function into a CandleSubscriber.
type CandleSubscriberFunc func(model.Candle)

func (f CandleSubscriberFunc) OnCandle(candle model.Candle) { f(candle) }

// Settings configures one chart session.
type Settings struct {
	Pair      string
	Timeframe string
	Width     int
	Height    int
	// Warmup is the number of historical candles preloaded before the
	// live stream starts.
	Warmup int
}

// ChartSession owns one live chart: it streams candles from a source into
// the renderer, persists them, and exposes the interaction surface.
type ChartSession struct {
	ctx      context.Context
	settings Settings
	source   feed.Source

	storage    storage.Storage
	subscriber *feed.Subscriber
	renderer   *chart.Renderer
	scheduler  *animation.Scheduler
	monitor    *perf.Monitor
	queue      *model.PriorityQueue

	candleSubscriptions []CandleSubscriber
	indicators          indicator.Config
	rendererOptions     []chart.Option
	reducedMotion       bool

	// replay sessions consume a finite source synchronously, the way a
	// recorded CSV is reviewed.
	replay bool
}

// Option configures a ChartSession.
type Option func(*ChartSession)

// WithStorage replaces the default candle store.
func WithStorage(st storage.Storage) Option {
	return func(s *ChartSession) {
		s.storage = st
	}
}

// WithLogLevel sets the log verbosity of the session.
func WithLogLevel(level log.Level) Option {
	return func(s *ChartSession) {
		log.SetLevel(level)
	}
}

// WithIndicators configures the indicator set drawn on the chart.
func WithIndicators(config indicator.Config) Option {
	return func(s *ChartSession) {
		s.indicators = config
	}
}

// WithTheme sets the renderer palette.
func WithTheme(theme chart.Theme) Option {
	return func(s *ChartSession) {
		s.rendererOptions = append(s.rendererOptions, chart.WithTheme(theme))
	}
}

// WithReducedMotion disables animated transitions; view changes jump to
// their end state.
func WithReducedMotion() Option {
	return func(s *ChartSession) {
		s.reducedMotion = true
	}
}

// WithReplay marks the source as finite: Run consumes it synchronously and
// returns when it is exhausted.
func WithReplay() Option {
	return func(s *ChartSession) {
		s.replay = true
	}
}

// WithCandleSubscription registers an additional candle consumer.
func WithCandleSubscription(subscriber CandleSubscriber) Option {
	return func(s *ChartSession) {
		s.candleSubscriptions = append(s.candleSubscriptions, subscriber)
	}
}

// NewSession wires a chart session over the given source.
func NewSession(ctx context.Context, settings Settings, source feed.Source, options ...Option) (*ChartSession, error) {
	if settings.Pair == "" || settings.Timeframe == "" {
		return nil, fmt.Errorf("invalid settings: pair and timeframe are required")
	}
	if settings.Width <= 0 {
		settings.Width = 800
	}
	if settings.Height <= 0 {
		settings.Height = 600
	}
	if settings.Warmup <= 0 {
		settings.Warmup = 200
	}

	session := &ChartSession{
		ctx:        ctx,
		settings:   settings,
		source:     source,
		subscriber: feed.NewSubscriber(source),
		monitor:    perf.NewMonitor(),
		queue:      model.NewPriorityQueue(nil),
	}

	for _, option := range options {
		option(session)
	}

	schedulerOptions := []animation.Option{}
	if session.reducedMotion {
		schedulerOptions = append(schedulerOptions, animation.WithReducedMotion())
	}
	session.scheduler = animation.NewScheduler(animation.NewTickerClock(0), schedulerOptions...)

	rendererOptions := append([]chart.Option{
		chart.WithMonitor(session.monitor),
		chart.WithScheduler(session.scheduler),
	}, session.rendererOptions...)
	session.renderer = chart.NewRenderer(settings.Width, settings.Height, rendererOptions...)
	if len(session.indicators) > 0 {
		session.renderer.SetIndicators(session.indicators)
	}

	var err error
	if session.storage == nil {
		if session.replay {
			session.storage, err = storage.FromMemory()
		} else {
			session.storage, err = storage.FromFile(defaultDatabase)
		}
		if err != nil {
			return nil, err
		}
	}

	return session, nil
}

// Renderer exposes the interaction surface of the session.
func (s *ChartSession) Renderer() *chart.Renderer {
	return s.renderer
}

// Monitor exposes the performance monitor of the session.
func (s *ChartSession) Monitor() *perf.Monitor {
	return s.monitor
}

// SubscribeCandle registers candle consumers after construction.
func (s *ChartSession) SubscribeCandle(subscriptions ...CandleSubscriber) {
	s.candleSubscriptions = append(s.candleSubscriptions, subscriptions...)
}

// AnimateZoom tweens the zoom level to target. Under reduced motion or
// degraded performance the view jumps straight to the target.
func (s *ChartSession) AnimateZoom(target float64) {
	view := s.renderer.View()
	duration := defaultZoomDuration

	score := s.monitor.GetPerformanceReport().Score
	if score < 50 {
		duration /= 2
	}
	if score < 30 {
		duration = 0
	}

	s.scheduler.CreateAnimation("zoom", animation.Config{
		Duration: duration,
		Easing:   animation.EaseInOutCubic,
		From:     animation.Values{"zoom": view.ZoomLevel},
		To:       animation.Values{"zoom": target},
		OnUpdate: func(values animation.Values, _ float64) {
			s.renderer.SetZoom(values["zoom"])
			if err := s.renderer.Render(); err != nil {
				log.Warnf("render zoom frame fail: %v", err)
			}
		},
	})
}

// ExportChart renders the current frame to a file.
func (s *ChartSession) ExportChart(path string, format chart.Format) (string, error) {
	if err := s.renderer.Render(); err != nil {
		return "", err
	}
	return s.renderer.ExportFile(path, format, 0)
}

// DownloadChart exports the candle history of the session pair to CSV.
func (s *ChartSession) DownloadChart(ctx context.Context, days int, output string) error {
	return download.NewDownloader(s.source).Download(ctx, s.settings.Pair, s.settings.Timeframe,
		output, download.WithDays(days))
}

// onCandle queues a candle for processing in time order.
func (s *ChartSession) onCandle(candle model.Candle) {
	s.queue.Push(candle)
}

// processCandle folds a candle into the chart and persists it once closed.
func (s *ChartSession) processCandle(candle model.Candle) {
	history := s.renderer.History()
	switch {
	case len(history) > 0 && history[len(history)-1].Time.Equal(candle.Time):
		s.renderer.OnTick(model.Tick{Pair: candle.Pair, Price: candle.Close, Time: candle.UpdatedAt})
	default:
		s.renderer.AppendCandle(candle)
	}

	if candle.Complete {
		if err := s.storage.SaveCandle(&candle); err != nil {
			log.Errorf("save candle fail: %v", err)
		}
	}

	for _, subscription := range s.candleSubscriptions {
		subscription.OnCandle(candle)
	}

	if err := s.renderer.Render(); err != nil {
		log.Warnf("render fail: %v", err)
	}
}

// processCandles drains the queue for the lifetime of a live session.
func (s *ChartSession) processCandles() {
	for item := range s.queue.PopLock() {
		s.processCandle(item.(model.Candle))
	}
}

// replayCandles drains the queue synchronously with a progress bar, used
// for finite sources.
func (s *ChartSession) replayCandles() {
	log.Info("starting replay")
	progressBar := progressbar.Default(int64(s.queue.Len()))

	for s.queue.Len() > 0 {
		item := s.queue.Pop()
		s.processCandle(item.(model.Candle))
		if err := progressBar.Add(1); err != nil {
			log.Warnf("update progressbar fail: %v", err)
		}
	}

	if err := s.PerformanceReport(os.Stdout); err != nil {
		log.Warnf("write performance report fail: %v", err)
	}
}

// PerformanceReport writes the render statistics collected so far.
func (s *ChartSession) PerformanceReport(w io.Writer) error {
	return perf.WriteReport(w, s.monitor.GetPerformanceReport())
}

// preload seeds the renderer and subscriptions with recent history.
func (s *ChartSession) preload(ctx context.Context) error {
	if s.replay {
		return nil
	}

	candles, err := s.source.CandlesByLimit(ctx, s.settings.Pair, s.settings.Timeframe, s.settings.Warmup)
	if err != nil {
		return err
	}

	s.renderer.SetHistory(s.settings.Pair, candles)
	for i := range candles {
		if err := s.storage.SaveCandle(&candles[i]); err != nil {
			log.Errorf("save candle fail: %v", err)
		}
	}
	s.subscriber.Preload(s.settings.Pair, s.settings.Timeframe, candles)
	return s.renderer.Render()
}

// Run preloads history and consumes the candle stream until the context is
// cancelled or, in replay mode, the source runs out.
func (s *ChartSession) Run(ctx context.Context) error {
	if err := s.preload(ctx); err != nil {
		return err
	}

	s.subscriber.Subscribe(s.settings.Pair, s.settings.Timeframe, s.onCandle, false)
	s.subscriber.Start(ctx, s.replay)

	if s.replay {
		s.replayCandles()
	} else {
		s.processCandles()
	}
	return nil
}

// Close releases the renderer surfaces and stops running animations.
func (s *ChartSession) Close() {
	s.scheduler.StopAllAnimations()
	s.renderer.Destroy()
}
