package indicator

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if err := checkPeriod("SMA", period); err != nil {
		return 0, err
	}

	if err := checkLength("SMA", values, period); err != nil {
		return 0, err
	}

	return mean(values[len(values)-period:]), nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
