package indicator

// RSI returns the relative strength index at the last element of values using
// Wilder's smoothing. It needs period+1 values. A series without losses
// returns 100 and a flat series returns 50.
func RSI(values []float64, period int) (float64, error) {
	if err := checkPeriod("RSI", period); err != nil {
		return 0, err
	}

	if err := checkLength("RSI", values, period+1); err != nil {
		return 0, err
	}

	avgGain := 0.0
	avgLoss := 0.0

	// First average
	for i := 1; i <= period; i++ {
		gain, loss := split(values[i] - values[i-1])
		avgGain += gain
		avgLoss += loss
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Subsequent averages using Wilder's smoothing method
	for i := period + 1; i < len(values); i++ {
		gain, loss := split(values[i] - values[i-1])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}

		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}

func split(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}

	return 0, -change
}
