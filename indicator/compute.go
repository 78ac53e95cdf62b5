package indicator

import (
	"github.com/kchart-dev/kchart/model"
	log "github.com/sirupsen/logrus"
)

// Canonical indicator names accepted by ComputeAll.
const (
	NameSMA        = "sma"
	NameEMA        = "ema"
	NameRSI        = "rsi"
	NameMACD       = "macd"
	NameBollinger  = "bollinger"
	NameStochastic = "stochastic"
	NameATR        = "atr"
	NameWilliamsR  = "williamsr"
	NameCCI        = "cci"
	NameMFI        = "mfi"
	NameSAR        = "sar"
	NameIchimoku   = "ichimoku"
	NameOBV        = "obv"
	NameVWAP       = "vwap"
	NameSuperTrend = "supertrend"
)

// Params configures one indicator. Zero fields fall back to the usual
// defaults of the indicator in question.
type Params struct {
	Period     int
	Fast       int
	Slow       int
	Signal     int
	Multiplier float64
	KPeriod    int
	DPeriod    int
	Step       float64
	MaxStep    float64
}

// Config maps an indicator name to its parameters. An absent key disables
// that indicator.
type Config map[string]Params

// Computed is the output of one configured indicator: one or more named
// aligned series, plus whether they belong on the price panel.
type Computed struct {
	// Series maps a line name ("value", "macd", "signal", ...) to its points.
	Series map[string]model.IndicatorSeries
	// Overlay indicators draw on the price panel, others on the oscillator
	// sub-panel.
	Overlay bool
}

func single(series model.IndicatorSeries, overlay bool) Computed {
	return Computed{Series: map[string]model.IndicatorSeries{"value": series}, Overlay: overlay}
}

// ComputeAll computes every configured indicator over the history. Unknown
// names are skipped. Any unexpected failure yields an empty map rather
// than an error.
func ComputeAll(history []model.Candle, config Config) (computed map[string]Computed) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("recover", r).Error("indicator: compute failed")
			computed = map[string]Computed{}
		}
	}()

	computed = make(map[string]Computed, len(config))
	if len(history) == 0 {
		return computed
	}

	df := model.FromCandles("", history)
	times := df.Time

	for name, params := range config {
		switch name {
		case NameSMA:
			computed[name] = single(SMA(df.Close, orDefault(params.Period, 20)).Points(times), true)
		case NameEMA:
			computed[name] = single(EMA(df.Close, orDefault(params.Period, 20)).Points(times), true)
		case NameRSI:
			computed[name] = single(RSI(df.Close, orDefault(params.Period, 14)).Points(times), false)
		case NameMACD:
			macd := MACD(df.Close, orDefault(params.Fast, 12), orDefault(params.Slow, 26), orDefault(params.Signal, 9))
			computed[name] = Computed{Series: map[string]model.IndicatorSeries{
				"macd":      macd.MACD.Points(times),
				"signal":    macd.Signal.Points(times),
				"histogram": macd.Histogram.Points(times),
			}}
		case NameBollinger:
			bb := BollingerBands(df.Close, orDefault(params.Period, 20), params.Multiplier)
			computed[name] = Computed{Overlay: true, Series: map[string]model.IndicatorSeries{
				"upper":  bb.Upper.Points(times),
				"middle": bb.Middle.Points(times),
				"lower":  bb.Lower.Points(times),
			}}
		case NameStochastic:
			stoch := Stochastic(df.High, df.Low, df.Close, orDefault(params.KPeriod, 14), orDefault(params.DPeriod, 3))
			computed[name] = Computed{Series: map[string]model.IndicatorSeries{
				"k": stoch.K.Points(times),
				"d": stoch.D.Points(times),
			}}
		case NameATR:
			computed[name] = single(ATR(df.High, df.Low, df.Close, orDefault(params.Period, 14)).Points(times), false)
		case NameWilliamsR:
			computed[name] = single(WilliamsR(df.High, df.Low, df.Close, orDefault(params.Period, 14)).Points(times), false)
		case NameCCI:
			computed[name] = single(CCI(df.High, df.Low, df.Close, orDefault(params.Period, 20)).Points(times), false)
		case NameMFI:
			computed[name] = single(MFI(df.High, df.Low, df.Close, df.Volume, orDefault(params.Period, 14)).Points(times), false)
		case NameSAR:
			computed[name] = single(ParabolicSAR(df.High, df.Low, params.Step, params.MaxStep).Points(times), true)
		case NameIchimoku:
			ichimoku := Ichimoku(df.High, df.Low, df.Close)
			computed[name] = Computed{Overlay: true, Series: map[string]model.IndicatorSeries{
				"tenkan":  ichimoku.Tenkan.Points(times),
				"kijun":   ichimoku.Kijun.Points(times),
				"senkouA": ichimoku.SenkouA.Points(times),
				"senkouB": ichimoku.SenkouB.Points(times),
				"chikou":  ichimoku.Chikou.Points(times),
			}}
		case NameOBV:
			computed[name] = single(OBV(df.Close, df.Volume).Points(times), false)
		case NameVWAP:
			computed[name] = single(VWAP(df.High, df.Low, df.Close, df.Volume).Points(times), true)
		case NameSuperTrend:
			computed[name] = single(
				SuperTrend(df.High, df.Low, df.Close, orDefault(params.Period, 10), params.Multiplier).Points(times), true)
		default:
			log.WithField("indicator", name).Debug("indicator: unknown name skipped")
		}
	}
	return computed
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
