package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kchart-dev/kchart"
	"github.com/kchart-dev/kchart/chart"
	"github.com/kchart-dev/kchart/download"
	"github.com/kchart-dev/kchart/feed"
	"github.com/kchart-dev/kchart/indicator"
)

func main() {
	app := &cli.App{
		Name:     "kchart",
		HelpName: "kchart",
		Usage:    "Candlestick chart utilities",
		Commands: []*cli.Command{
			downloadCommand(),
			renderCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:     "download",
		HelpName: "download",
		Usage:    "Download historical candles to CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "pair",
				Aliases:  []string{"p"},
				Usage:    "eg. BTCUSDT",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "eg. 100 (default 30 days)",
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "eg. 2021-12-01",
				Layout:  "2006-01-02",
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "eg. 2020-12-31",
				Layout:  "2006-01-02",
			},
			&cli.StringFlag{
				Name:     "timeframe",
				Aliases:  []string{"t"},
				Usage:    "eg. 1h",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "eg. ./btc.csv",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			source, err := feed.NewBinance(c.Context)
			if err != nil {
				return err
			}

			var options []download.Option
			if days := c.Int("days"); days > 0 {
				options = append(options, download.WithDays(days))
			}

			start := c.Timestamp("start")
			end := c.Timestamp("end")
			if start != nil && end != nil && !start.IsZero() && !end.IsZero() {
				options = append(options, download.WithInterval(*start, *end))
			} else if start != nil || end != nil {
				log.Fatal("START and END must be informed together")
			}

			return download.NewDownloader(source).Download(c.Context, c.String("pair"),
				c.String("timeframe"), c.String("output"), options...)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:     "serve",
		HelpName: "serve",
		Usage:    "Stream a live chart over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "pair",
				Aliases:  []string{"p"},
				Usage:    "eg. BTCUSDT",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "timeframe",
				Aliases:  []string{"t"},
				Usage:    "eg. 1h",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP listen port",
				Value: 8080,
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "surface width in pixels",
				Value: 1280,
			},
			&cli.IntFlag{
				Name:  "height",
				Usage: "surface height in pixels",
				Value: 720,
			},
			&cli.StringSliceFlag{
				Name:    "indicator",
				Aliases: []string{"i"},
				Usage:   "eg. sma, rsi, macd (repeatable)",
			},
		},
		Action: func(c *cli.Context) error {
			source, err := feed.NewBinance(c.Context)
			if err != nil {
				return err
			}

			indicators := indicator.Config{}
			for _, name := range c.StringSlice("indicator") {
				indicators[name] = indicator.Params{}
			}

			session, err := kchart.NewSession(c.Context, kchart.Settings{
				Pair:      c.String("pair"),
				Timeframe: c.String("timeframe"),
				Width:     c.Int("width"),
				Height:    c.Int("height"),
			}, source, kchart.WithIndicators(indicators))
			if err != nil {
				return err
			}
			defer session.Close()

			go func() {
				if err := session.Run(c.Context); err != nil {
					log.Fatal(err)
				}
			}()

			return kchart.NewServer(session, kchart.WithServerPort(c.Int("port"))).Start()
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:     "render",
		HelpName: "render",
		Usage:    "Render a candle CSV to an image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "pair",
				Aliases:  []string{"p"},
				Usage:    "eg. BTCUSDT",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "csv",
				Aliases:  []string{"c"},
				Usage:    "eg. ./btc.csv",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "timeframe",
				Aliases:  []string{"t"},
				Usage:    "eg. 1h",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "eg. ./btc.png",
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "surface width in pixels",
				Value: 1280,
			},
			&cli.IntFlag{
				Name:  "height",
				Usage: "surface height in pixels",
				Value: 720,
			},
			&cli.StringSliceFlag{
				Name:    "indicator",
				Aliases: []string{"i"},
				Usage:   "eg. sma, rsi, macd (repeatable)",
			},
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "render only the most recent N days",
			},
		},
		Action: func(c *cli.Context) error {
			csvFeed, err := feed.NewCSVFeed(c.String("timeframe"), feed.PairFeed{
				Pair:      c.String("pair"),
				File:      c.String("csv"),
				Timeframe: c.String("timeframe"),
			})
			if err != nil {
				return err
			}
			if days := c.Int("days"); days > 0 {
				csvFeed.Limit(time.Duration(days) * 24 * time.Hour)
			}

			indicators := indicator.Config{}
			for _, name := range c.StringSlice("indicator") {
				indicators[name] = indicator.Params{}
			}

			session, err := kchart.NewSession(c.Context, kchart.Settings{
				Pair:      c.String("pair"),
				Timeframe: c.String("timeframe"),
				Width:     c.Int("width"),
				Height:    c.Int("height"),
			}, csvFeed,
				kchart.WithReplay(),
				kchart.WithIndicators(indicators),
			)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Run(c.Context); err != nil {
				return err
			}

			path, err := session.ExportChart(c.String("output"), chart.FormatPNG)
			if err != nil {
				return err
			}
			log.Printf("chart written to %s", path)
			return nil
		},
	}
}
