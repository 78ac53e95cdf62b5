package indicator

// SuperTrend computes the supertrend line from ATR bands around the median
// price. The line flips between the upper and lower band as the close
// breaks through it.
func SuperTrend(high, low, close []float64, period int, factor float64) Result {
	if factor <= 0 {
		factor = 3
	}
	atr := ATR(high, low, close, period)
	if !atr.OK() {
		return Insufficient()
	}

	atrValues := atr.Values()
	offset := atr.Offset()
	n := len(atrValues)

	basicUpper := make([]float64, n)
	basicLower := make([]float64, n)
	finalUpper := make([]float64, n)
	finalLower := make([]float64, n)
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		idx := offset + i
		median := (high[idx] + low[idx]) / 2
		basicUpper[i] = median + factor*atrValues[i]
		basicLower[i] = median - factor*atrValues[i]

		if i == 0 {
			finalUpper[i] = basicUpper[i]
			finalLower[i] = basicLower[i]
			out[i] = finalUpper[i]
			continue
		}

		prevClose := close[idx-1]
		if basicUpper[i] < finalUpper[i-1] || prevClose > finalUpper[i-1] {
			finalUpper[i] = basicUpper[i]
		} else {
			finalUpper[i] = finalUpper[i-1]
		}
		if basicLower[i] > finalLower[i-1] || prevClose < finalLower[i-1] {
			finalLower[i] = basicLower[i]
		} else {
			finalLower[i] = finalLower[i-1]
		}

		if out[i-1] == finalUpper[i-1] {
			if close[idx] <= finalUpper[i] {
				out[i] = finalUpper[i]
			} else {
				out[i] = finalLower[i]
			}
		} else {
			if close[idx] >= finalLower[i] {
				out[i] = finalLower[i]
			} else {
				out[i] = finalUpper[i]
			}
		}
	}
	return Ok(out, offset)
}
