package sampen

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNegativeFraction = errors.New("tolerance fraction must be non-negative")
)

// Detrend removes a linear trend from the series: it fits an ordinary least
// squares regression line over the sample positions 1..N and returns a new
// slice holding the residuals. The input slice is never modified. A series
// shorter than 2 samples has no trend to remove and is returned as an
// unmodified copy.
//
// Detrending physiological waveforms before estimating their entropy follows
// Pincus, S.M.; Goldberger, A.L. (1994), Physiological time-series analysis:
// what does regularity quantify?
func Detrend(series []float64) []float64 {
	n := len(series)
	detrended := make([]float64, n)
	if n < 2 {
		copy(detrended, series)
		return detrended
	}

	positions := make([]float64, n)
	floats.Span(positions, 1, float64(n))

	alpha, beta := stat.LinearRegression(positions, series, nil, false)
	for i, x := range positions {
		detrended[i] = series[i] - (alpha + beta*x)
	}

	return detrended
}

// Tolerance returns the match tolerance conventionally used for Sample
// Entropy: the given fraction of the population standard deviation of the
// series. The conventional fraction for physiological waveforms is 0.2.
func Tolerance(series []float64, fraction float64) float64 {
	_, sigma := stat.PopMeanStdDev(series, nil)
	return fraction * sigma
}

// DetrendedSampleEntropy computes the Sample Entropy of the series after
// linear detrending, with the tolerance derived from the detrended series:
// r is the given fraction of the residuals' population standard deviation.
// The fraction must be non-negative.
//
// When SampleEntropy returns an error while processing the detrended series,
// DetrendedSampleEntropy returns that error.
func DetrendedSampleEntropy(series []float64, m int, fraction float64, opts ...Option) (Result, error) {
	// Guard statements
	if fraction < 0 {
		return Result{}, ErrNegativeFraction
	}

	detrended := Detrend(series)
	r := Tolerance(detrended, fraction)

	return SampleEntropy(detrended, m, r, opts...)
}
