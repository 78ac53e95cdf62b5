// Package feed streams candles from a market data source into chart
// consumers, with per pair/timeframe subscriptions.
package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/StudioSol/set"

	"github.com/kchart-dev/kchart/model"
	"github.com/kchart-dev/kchart/tools/log"
)

// Source provides historical candles and a live candle stream for one
// market.
type Source interface {
	CandlesByLimit(ctx context.Context, pair, timeframe string, limit int) ([]model.Candle, error)
	CandlesByPeriod(ctx context.Context, pair, timeframe string, start, end time.Time) ([]model.Candle, error)
	CandlesSubscription(ctx context.Context, pair, timeframe string) (chan model.Candle, chan error)
}

// DataFeed carries the candle stream of one pair/timeframe pair plus its
// errors.
type DataFeed struct {
	Data chan model.Candle
	Err  chan error
}

// Consumer receives every candle of a subscribed feed.
type Consumer func(model.Candle)

// Subscription binds one consumer to a feed. Consumers interested only in
// closed candles skip in-progress updates.
type Subscription struct {
	onCandleClose bool
	consumer      Consumer
}

// Subscriber fans candles from a Source out to consumers.
type Subscriber struct {
	source Source

	Feeds               *set.LinkedHashSetString
	DataFeeds           map[string]*DataFeed
	SubscriptionsByFeed map[string][]Subscription
}

// NewSubscriber creates a Subscriber over the given source.
func NewSubscriber(source Source) *Subscriber {
	return &Subscriber{
		source:              source,
		Feeds:               set.NewLinkedHashSetString(),
		DataFeeds:           make(map[string]*DataFeed),
		SubscriptionsByFeed: make(map[string][]Subscription),
	}
}

func (s *Subscriber) feedKey(pair, timeframe string) string {
	return fmt.Sprintf("%s--%s", pair, timeframe)
}

func (s *Subscriber) pairTimeframeFromKey(key string) (pair, timeframe string) {
	parts := strings.Split(key, "--")
	return parts[0], parts[1]
}

// Subscribe registers a consumer for the pair/timeframe feed. When
// onCandleClose is set, only closed candles reach the consumer.
func (s *Subscriber) Subscribe(pair, timeframe string, consumer Consumer, onCandleClose bool) {
	key := s.feedKey(pair, timeframe)
	s.Feeds.Add(key)
	s.SubscriptionsByFeed[key] = append(s.SubscriptionsByFeed[key], Subscription{
		onCandleClose: onCandleClose,
		consumer:      consumer,
	})
}

// Preload replays historical candles through the subscriptions before the
// live stream starts. Incomplete candles are skipped.
func (s *Subscriber) Preload(pair, timeframe string, candles []model.Candle) {
	log.Infof("preloading %d candles for %s-%s", len(candles), pair, timeframe)
	key := s.feedKey(pair, timeframe)
	for _, candle := range candles {
		if !candle.Complete {
			continue
		}
		for _, subscription := range s.SubscriptionsByFeed[key] {
			subscription.consumer(candle)
		}
	}
}

// Connect opens one source subscription per registered feed.
func (s *Subscriber) Connect(ctx context.Context) {
	log.Info("connecting to the data source")
	for feed := range s.Feeds.Iter() {
		pair, timeframe := s.pairTimeframeFromKey(feed)
		ccandle, cerr := s.source.CandlesSubscription(ctx, pair, timeframe)
		s.DataFeeds[feed] = &DataFeed{
			Data: ccandle,
			Err:  cerr,
		}
	}
}

// Start connects and launches a goroutine per feed. With loadSync set it
// blocks until every feed channel is closed, which is how file-backed
// sources signal the end of their data.
func (s *Subscriber) Start(ctx context.Context, loadSync bool) {
	s.Connect(ctx)
	wg := new(sync.WaitGroup)
	for key, feed := range s.DataFeeds {
		wg.Add(1)
		go func(key string, feed *DataFeed) {
			for {
				select {
				case candle, ok := <-feed.Data:
					if !ok {
						wg.Done()
						return
					}
					for _, subscription := range s.SubscriptionsByFeed[key] {
						if subscription.onCandleClose && !candle.Complete {
							continue
						}
						subscription.consumer(candle)
					}
				case err := <-feed.Err:
					if err != nil {
						log.Error("feed/start: ", err)
					}
				}
			}
		}(key, feed)
	}

	log.Info("data feed connected")
	if loadSync {
		wg.Wait()
	}
}
