package feed

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"

	"github.com/kchart-dev/kchart/model"
	"github.com/kchart-dev/kchart/tools/log"
)

// MetadataFetcher attaches one extra metadata column to every closed
// candle, keyed by the string it returns.
type MetadataFetcher func(pair string, t time.Time) (string, float64)

// Binance streams market data from the Binance spot API.
type Binance struct {
	ctx        context.Context
	client     *binance.Client
	HeikinAshi bool

	APIKey    string
	APISecret string

	MetadataFetchers []MetadataFetcher
}

// BinanceOption configures a Binance source.
type BinanceOption func(*Binance)

// WithBinanceCredentials sets the API key pair. Market data endpoints work
// without credentials, so this is optional.
func WithBinanceCredentials(key, secret string) BinanceOption {
	return func(b *Binance) {
		b.APIKey = key
		b.APISecret = secret
	}
}

// WithBinanceHeikinAshiCandle smooths every delivered candle into its
// Heikin-Ashi form.
func WithBinanceHeikinAshiCandle() BinanceOption {
	return func(b *Binance) {
		b.HeikinAshi = true
	}
}

// WithMetadataFetcher registers a fetcher that runs on every closed candle.
func WithMetadataFetcher(fetcher MetadataFetcher) BinanceOption {
	return func(b *Binance) {
		b.MetadataFetchers = append(b.MetadataFetchers, fetcher)
	}
}

// WithTestNet points the client at the Binance testnet.
func WithTestNet() BinanceOption {
	return func(b *Binance) {
		binance.UseTestnet = true
	}
}

// NewBinance creates a Binance market data source and checks connectivity.
func NewBinance(ctx context.Context, options ...BinanceOption) (*Binance, error) {
	b := &Binance{ctx: ctx}
	for _, option := range options {
		option(b)
	}

	b.client = binance.NewClient(b.APIKey, b.APISecret)
	if err := b.client.NewPingService().Do(ctx); err != nil {
		return nil, err
	}

	log.Info("using Binance market data")
	return b, nil
}

// LastQuote returns the most recent traded price of the pair.
func (b *Binance) LastQuote(ctx context.Context, pair string) (float64, error) {
	candles, err := b.CandlesByLimit(ctx, pair, "1m", 1)
	if err != nil || len(candles) < 1 {
		return 0, err
	}
	return candles[0].Close, nil
}

// CandlesSubscription streams kline updates over a websocket. The
// connection is retried with exponential backoff until ctx is cancelled.
func (b *Binance) CandlesSubscription(ctx context.Context, pair, timeframe string) (chan model.Candle, chan error) {
	ccandle := make(chan model.Candle)
	cerr := make(chan error)
	ha := model.NewHeikinAshi()

	go func() {
		ba := &backoff.Backoff{
			Min: 100 * time.Millisecond,
			Max: 1 * time.Second,
		}

		for {
			done, _, err := binance.WsKlineServe(pair, timeframe, func(event *binance.WsKlineEvent) {
				ba.Reset()
				candle := candleFromWsKline(pair, event.Kline)

				if candle.Complete && b.HeikinAshi {
					candle = candle.ToHeikinAshi(ha)
				}

				if candle.Complete {
					for _, fetcher := range b.MetadataFetchers {
						key, value := fetcher(pair, candle.Time)
						candle.Metadata[key] = value
					}
				}

				ccandle <- candle
			}, func(err error) {
				cerr <- err
			})
			if err != nil {
				cerr <- err
				close(cerr)
				close(ccandle)
				return
			}

			select {
			case <-ctx.Done():
				close(cerr)
				close(ccandle)
				return
			case <-done:
				time.Sleep(ba.Duration())
			}
		}
	}()

	return ccandle, cerr
}

// CandlesByLimit returns the latest closed candles of the pair. The
// still-forming candle is dropped.
func (b *Binance) CandlesByLimit(ctx context.Context, pair, timeframe string, limit int) ([]model.Candle, error) {
	candles := make([]model.Candle, 0)
	klineService := b.client.NewKlinesService()
	ha := model.NewHeikinAshi()

	data, err := klineService.Symbol(pair).
		Interval(timeframe).
		Limit(limit + 1).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range data {
		candle := candleFromKline(pair, *d)
		if b.HeikinAshi {
			candle = candle.ToHeikinAshi(ha)
		}
		candles = append(candles, candle)
	}

	// The last kline is still open.
	return candles[:len(candles)-1], nil
}

// CandlesByPeriod returns the closed candles of the pair inside
// [start, end].
func (b *Binance) CandlesByPeriod(ctx context.Context, pair, timeframe string,
	start, end time.Time) ([]model.Candle, error) {
	candles := make([]model.Candle, 0)
	klineService := b.client.NewKlinesService()
	ha := model.NewHeikinAshi()

	data, err := klineService.Symbol(pair).
		Interval(timeframe).
		StartTime(start.UnixNano() / int64(time.Millisecond)).
		EndTime(end.UnixNano() / int64(time.Millisecond)).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range data {
		candle := candleFromKline(pair, *d)
		if b.HeikinAshi {
			candle = candle.ToHeikinAshi(ha)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func candleFromKline(pair string, k binance.Kline) model.Candle {
	t := time.Unix(0, k.OpenTime*int64(time.Millisecond))
	candle := model.Candle{Pair: pair, Time: t, UpdatedAt: t}
	candle.Open, _ = strconv.ParseFloat(k.Open, 64)
	candle.Close, _ = strconv.ParseFloat(k.Close, 64)
	candle.High, _ = strconv.ParseFloat(k.High, 64)
	candle.Low, _ = strconv.ParseFloat(k.Low, 64)
	candle.Volume, _ = strconv.ParseFloat(k.Volume, 64)
	candle.Complete = true
	candle.Metadata = make(map[string]float64)
	return candle
}

func candleFromWsKline(pair string, k binance.WsKline) model.Candle {
	t := time.Unix(0, k.StartTime*int64(time.Millisecond))
	candle := model.Candle{Pair: pair, Time: t, UpdatedAt: t}
	candle.Open, _ = strconv.ParseFloat(k.Open, 64)
	candle.Close, _ = strconv.ParseFloat(k.Close, 64)
	candle.High, _ = strconv.ParseFloat(k.High, 64)
	candle.Low, _ = strconv.ParseFloat(k.Low, 64)
	candle.Volume, _ = strconv.ParseFloat(k.Volume, 64)
	candle.Complete = k.IsFinal
	candle.Metadata = make(map[string]float64)
	return candle
}
