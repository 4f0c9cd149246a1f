package indicator

import (
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// MACDResult holds the aligned MACD series. All three slices end at the last
// input value; Histogram and Signal have the same length.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// LastHistogram returns the histogram at the last input value.
func (m MACDResult) LastHistogram() float64 {
	return m.Histogram[len(m.Histogram)-1]
}

// PreviousHistogram returns the histogram one value before the last.
func (m MACDResult) PreviousHistogram() float64 {
	return m.Histogram[len(m.Histogram)-2]
}

// LastLine returns the MACD line at the last input value.
func (m MACDResult) LastLine() float64 {
	return m.Line[len(m.Line)-1]
}

// MACDMinLength is the number of values MACD needs to produce two histogram
// points, enough to detect a crossover.
func MACDMinLength(slow, signal int) int {
	return slow + signal
}

// MACD computes line = EMA(fast) - EMA(slow), signal = EMA(line, signal) and
// histogram = line - signal.
func MACD(values []float64, fast, slow, signal int) (MACDResult, error) {
	if err := checkPeriod("MACD fast", fast); err != nil {
		return MACDResult{}, err
	}

	if err := checkPeriod("MACD slow", slow); err != nil {
		return MACDResult{}, err
	}

	if err := checkPeriod("MACD signal", signal); err != nil {
		return MACDResult{}, err
	}

	if fast >= slow {
		return MACDResult{}, errors.Newf(errors.ErrCodeInvalidPeriod, "MACD fast period %d must be less than slow period %d", fast, slow)
	}

	if err := checkLength("MACD", values, MACDMinLength(slow, signal)); err != nil {
		return MACDResult{}, err
	}

	fastSeries, err := EMASeries(values, fast)
	if err != nil {
		return MACDResult{}, err
	}

	slowSeries, err := EMASeries(values, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// slowSeries[0] lines up with values[slow-1]; fastSeries with values[fast-1]
	offset := slow - fast
	line := make([]float64, len(slowSeries))

	for i := range slowSeries {
		line[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries, err := EMASeries(line, signal)
	if err != nil {
		return MACDResult{}, errors.Wrap(errors.ErrCodeIndicatorCalculation, "failed to calculate MACD signal line", err)
	}

	histogram := make([]float64, len(signalSeries))
	lineOffset := signal - 1

	for i := range signalSeries {
		histogram[i] = line[i+lineOffset] - signalSeries[i]
	}

	return MACDResult{
		Line:      line,
		Signal:    signalSeries,
		Histogram: histogram,
	}, nil
}
