package sampen

import (
	"errors"
	"math"
	"slices"
	"testing"
)

const floatToleranceForFuncsTest = 2e-6

func TestDetrend(t *testing.T) {
	t.Parallel() // this test is stateless and can be run in parallel with other tests

	// residuals is a zero-mean sequence orthogonal to the sample positions,
	// so fitting a line to residuals (or to residuals plus any line) leaves
	// exactly these values.
	residuals := []float64{-0.6, 0.3, 1.2, -0.9, 0, 0.9, -1.2, -0.3, 0.6}

	type TestCase struct {
		Name        string
		InputSeries []float64
		Expected    []float64
	}

	testCases := []TestCase{
		{
			Name:        "pure line detrends to zeros",
			InputSeries: []float64{5, 8, 11, 14, 17, 20}, // 2 + 3x
			Expected:    []float64{0, 0, 0, 0, 0, 0},
		},
		{
			Name:        "constant series detrends to zeros",
			InputSeries: []float64{3, 3, 3, 3},
			Expected:    []float64{0, 0, 0, 0},
		},
		{
			Name: "residuals around a descending line are preserved",
			InputSeries: []float64{
				6.15, 6.8, 7.45, 5.1, 5.75, 6.4, 4.05, 4.7, 5.35, // residuals + (7 - 0.25x)
			},
			Expected: residuals,
		},
		{
			Name:        "single sample returned unchanged",
			InputSeries: []float64{42},
			Expected:    []float64{42},
		},
		{
			Name:        "empty series",
			InputSeries: nil,
			Expected:    []float64{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			actual := Detrend(tc.InputSeries)

			if len(actual) != len(tc.Expected) {
				t.Fatalf("expected %d residuals, got %d", len(tc.Expected), len(actual))
			}
			for i := range actual {
				if math.Abs(actual[i]-tc.Expected[i]) > floatToleranceForFuncsTest {
					t.Errorf("residual %d: expected %v, got %v", i, tc.Expected[i], actual[i])
				}
			}
		})
	}
}

func TestDetrend_DoesNotMutateInput(t *testing.T) {
	t.Parallel() // this test is stateless and can be run in parallel with other tests

	series := []float64{11, 22, 33, 41, 52, 63}
	original := slices.Clone(series)

	_ = Detrend(series)

	if !slices.Equal(series, original) {
		t.Errorf("input series was modified: %v", series)
	}
}

func TestDetrend_ResidualsSumToZero(t *testing.T) {
	t.Parallel() // this test is stateless and can be run in parallel with other tests

	// An OLS fit with an intercept term leaves residuals that sum to zero.
	series := []float64{3.2, -1.4, 7.9, 0.6, 5.5, -2.3, 4.4, 8.1}

	var sum float64
	for _, residual := range Detrend(series) {
		sum += residual
	}

	if math.Abs(sum) > floatToleranceForFuncsTest {
		t.Errorf("expected residuals to sum to zero, got %v", sum)
	}
}

func TestTolerance(t *testing.T) {
	t.Parallel() // this test is stateless and can be run in parallel with other tests

	type TestCase struct {
		Name          string
		InputSeries   []float64
		InputFraction float64
		Expected      float64
	}

	testCases := []TestCase{
		{
			// Population sigma of this series is exactly 2.
			Name:          "conventional fraction of a known sigma",
			InputSeries:   []float64{2, 4, 4, 4, 5, 5, 7, 9},
			InputFraction: 0.2,
			Expected:      0.4,
		},
		{
			Name:          "full sigma",
			InputSeries:   []float64{2, 4, 4, 4, 5, 5, 7, 9},
			InputFraction: 1,
			Expected:      2,
		},
		{
			Name:          "constant series has zero sigma",
			InputSeries:   []float64{5, 5, 5, 5},
			InputFraction: 0.2,
			Expected:      0,
		},
		{
			Name:          "zero fraction",
			InputSeries:   []float64{2, 4, 4, 4, 5, 5, 7, 9},
			InputFraction: 0,
			Expected:      0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			actual := Tolerance(tc.InputSeries, tc.InputFraction)

			if math.Abs(actual-tc.Expected) > floatToleranceForFuncsTest {
				t.Errorf("expected tolerance %v, got %v", tc.Expected, actual)
			}
		})
	}
}

func TestDetrendedSampleEntropy(t *testing.T) {
	t.Parallel() // this test is stateless and can be run in parallel with other tests

	// The period-3 series detrends to residuals whose length-2 templates
	// match in 4 unordered pairs at half a standard deviation, 3 of which
	// extend: B=8, A=6. Adding a line to the input must not change that.
	periodic := []float64{1, 2, 3, 1, 2, 3, 1, 2, 3}
	withRamp := make([]float64, len(periodic))
	for i, v := range periodic {
		withRamp[i] = v + 10*float64(i+1)
	}

	type TestCase struct {
		Name              string
		InputSeries       []float64
		InputM            int
		InputFraction     float64
		ExpectedB         uint64
		ExpectedA         uint64
		ExpectedEntropy   float64
		ExpectedUndefined bool
		ExpectedErr       error
	}

	testCases := []TestCase{
		{
			Name:            "periodic residuals at half sigma",
			InputSeries:     periodic,
			InputM:          2,
			InputFraction:   0.5,
			ExpectedB:       8,
			ExpectedA:       6,
			ExpectedEntropy: 0.2876820724517809, // -ln(6/8)
		},
		{
			Name:            "steep ramp changes nothing",
			InputSeries:     withRamp,
			InputM:          2,
			InputFraction:   0.5,
			ExpectedB:       8,
			ExpectedA:       6,
			ExpectedEntropy: 0.2876820724517809,
		},
		{
			// At the conventional 0.2 fraction the residual templates are
			// all farther apart than the tolerance.
			Name:              "no matches at the conventional fraction is undefined",
			InputSeries:       periodic,
			InputM:            2,
			InputFraction:     0.2,
			ExpectedUndefined: true,
		},
		{
			Name:          "negative fraction",
			InputSeries:   periodic,
			InputM:        2,
			InputFraction: -0.2,
			ExpectedErr:   ErrNegativeFraction,
		},
		{
			Name:          "series too short for the embedding",
			InputSeries:   []float64{1, 2, 3},
			InputM:        2,
			InputFraction: 0.2,
			ExpectedErr:   ErrSeriesTooShort,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			actual, actualErr := DetrendedSampleEntropy(tc.InputSeries, tc.InputM, tc.InputFraction)

			// Don't make assertions about the result if DetrendedSampleEntropy
			// returned an error when one was not expected.
			if actualErr != nil && tc.ExpectedErr == nil {
				t.Fatalf("DetrendedSampleEntropy failed: %v", actualErr)
			}

			// When we expect an error, test that we received that error.
			if tc.ExpectedErr != nil {
				if !errors.Is(actualErr, tc.ExpectedErr) {
					t.Errorf("expected error %v, got %v", tc.ExpectedErr, actualErr)
				}

				// Since this test case was about the returned error value, do
				// not make assertions about the entropy result.
				return
			}

			if tc.ExpectedUndefined {
				if !actual.IsUndefined() {
					t.Errorf("expected an undefined result, got B=%d A=%d entropy=%v",
						actual.B, actual.A, actual.Entropy)
				}
				if !math.IsNaN(actual.Entropy) {
					t.Errorf("expected NaN entropy, got %v", actual.Entropy)
				}
				return
			}

			if actual.B != tc.ExpectedB || actual.A != tc.ExpectedA {
				t.Errorf("expected B=%d A=%d, got B=%d A=%d", tc.ExpectedB, tc.ExpectedA, actual.B, actual.A)
			}
			if math.Abs(actual.Entropy-tc.ExpectedEntropy) > floatToleranceForFuncsTest {
				t.Errorf("expected entropy %.10e, got %.10e (difference of %.10e)",
					tc.ExpectedEntropy, actual.Entropy, math.Abs(actual.Entropy-tc.ExpectedEntropy))
			}
		})
	}
}
