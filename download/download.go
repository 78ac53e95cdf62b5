// Package download exports candle history from a feed source into CSV
// files, batching requests and showing progress.
package download

import (
	"context"
	"encoding/csv"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/xhit/go-str2duration/v2"

	"github.com/kchart-dev/kchart/feed"
	"github.com/kchart-dev/kchart/tools/log"
)

// batchSize is the number of candles fetched per request.
const batchSize = 500

// defaultPrecision is the number of decimal places written per price
// column.
const defaultPrecision = 8

// Downloader fetches historical candles from a source and writes them to
// CSV, the format the CSV feed reads back.
type Downloader struct {
	source feed.Source
}

// NewDownloader creates a Downloader over the given source.
func NewDownloader(source feed.Source) Downloader {
	return Downloader{source: source}
}

// Parameters holds the effective download window and output precision.
type Parameters struct {
	Start     time.Time
	End       time.Time
	Precision int
}

// Option mutates download Parameters.
type Option func(*Parameters)

// WithInterval sets an explicit download window.
func WithInterval(start, end time.Time) Option {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

// WithDays downloads the last n days up to now.
func WithDays(days int) Option {
	return func(parameters *Parameters) {
		parameters.Start = time.Now().AddDate(0, 0, -days)
		parameters.End = time.Now()
	}
}

// WithPrecision sets the decimal places of the written prices.
func WithPrecision(precision int) Option {
	return func(parameters *Parameters) {
		parameters.Precision = precision
	}
}

// candlesCount returns how many candles of the timeframe fit into
// [start, end] and the duration of one candle.
func candlesCount(start, end time.Time, timeframe string) (int, time.Duration, error) {
	totalDuration := end.Sub(start)
	interval, err := str2duration.ParseDuration(timeframe)
	if err != nil {
		return 0, 0, err
	}
	return int(totalDuration / interval), interval, nil
}

// Download writes the candle history of the pair to a CSV file. The window
// defaults to the last month and is aligned to day boundaries in UTC.
func (d Downloader) Download(ctx context.Context, pair, timeframe string, output string, options ...Option) error {
	recordFile, err := os.Create(output)
	if err != nil {
		return err
	}

	now := time.Now()
	parameters := &Parameters{
		Start:     now.AddDate(0, -1, 0),
		End:       now,
		Precision: defaultPrecision,
	}

	for _, option := range options {
		option(parameters)
	}

	parameters.Start = time.Date(parameters.Start.Year(), parameters.Start.Month(), parameters.Start.Day(),
		0, 0, 0, 0, time.UTC)

	if now.Sub(parameters.End) > 0 {
		parameters.End = time.Date(parameters.End.Year(), parameters.End.Month(), parameters.End.Day(),
			0, 0, 0, 0, time.UTC)
	} else {
		parameters.End = now
	}

	candlesCount, interval, err := candlesCount(parameters.Start, parameters.End, timeframe)
	if err != nil {
		return err
	}
	candlesCount++
	log.Infof("downloading %d candles of %s for %s", candlesCount, timeframe, pair)

	writer := csv.NewWriter(recordFile)
	progressBar := progressbar.Default(int64(candlesCount))
	lostData := 0
	isLastLoop := false

	err = writer.Write([]string{
		"time", "open", "close", "low", "high", "volume",
	})
	if err != nil {
		return err
	}

	for begin := parameters.Start; begin.Before(parameters.End); begin = begin.Add(interval * batchSize) {
		end := begin.Add(interval * batchSize)
		if end.Before(parameters.End) {
			end = end.Add(-1 * time.Second)
		} else {
			end = parameters.End
			isLastLoop = true
		}

		candles, err := d.source.CandlesByPeriod(ctx, pair, timeframe, begin, end)
		if err != nil {
			return err
		}

		for _, candle := range candles {
			err := writer.Write(candle.ToSlice(parameters.Precision))
			if err != nil {
				return err
			}
		}

		countCandles := len(candles)
		if !isLastLoop {
			lostData += batchSize - countCandles
		}

		if err = progressBar.Add(countCandles); err != nil {
			log.Warnf("update progressbar fail: %s", err.Error())
		}
	}

	if err = progressBar.Close(); err != nil {
		log.Warnf("close progressbar fail: %s", err.Error())
	}

	if lostData > 0 {
		log.Warnf("%d missing candles", lostData)
	}

	writer.Flush()
	log.Info("download finished")
	return writer.Error()
}
