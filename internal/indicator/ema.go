package indicator

// EMA returns the exponential moving average of values at the last element.
func EMA(values []float64, period int) (float64, error) {
	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}

	return series[len(series)-1], nil
}

// EMASeries returns the EMA for every position from period-1 onwards, so
// series[0] lines up with values[period-1].
//
// The first value is seeded with the SMA of the first period values and the
// recurrence uses alpha = 2/(period+1).
func EMASeries(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return nil, err
	}

	if err := checkLength("EMA", values, period); err != nil {
		return nil, err
	}

	alpha := 2.0 / float64(period+1)
	series := make([]float64, 0, len(values)-period+1)

	ema := mean(values[:period])
	series = append(series, ema)

	for i := period; i < len(values); i++ {
		ema = (values[i] * alpha) + (ema * (1 - alpha))
		series = append(series, ema)
	}

	return series, nil
}
