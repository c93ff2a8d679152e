// MIT License
//
// Copyright (c) 2026 The vitalstat Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS
// IN THE SOFTWARE.

// Package sampen implements Sample Entropy (SampEn), a statistic quantifying
// the irregularity of a scalar time series: the negative natural logarithm of
// the conditional probability that two subsequences of the series that match
// for m points, compared element-wise under a Chebyshev distance tolerance
// and excluding self-matches, still match at m+1 points. Low values indicate
// regularity, high values irregularity. The package provides the
// match-counting engine with optional parallel partitioning of the pair
// space, the entropy reduction with explicit degenerate-case policy, and the
// linear-detrending and tolerance-derivation preprocessing conventionally
// applied to physiological waveforms.
//
// Citation: Richman, J.S.; Moorman, J.R. (2000), Physiological time-series
// analysis using approximate entropy and sample entropy, American Journal of
// Physiology - Heart and Circulatory Physiology 278(6):H2039-H2049, URL:
// https://journals.physiology.org/doi/full/10.1152/ajpheart.2000.278.6.H2039
package sampen

import (
	"errors"
	"math"
	"sync"
)

var (
	ErrEmptySeries           = errors.New("empty or nil series")
	ErrMMustBePositive       = errors.New("embedding dimension m must be a positive integer")
	ErrNegativeTolerance     = errors.New("tolerance r must be non-negative")
	ErrSeriesTooShort        = errors.New("series too short for embedding dimension m (need at least m+2 samples)")
	ErrWorkersMustBePositive = errors.New("workers must be a positive integer")
)

// Result holds the outcome of a Sample Entropy computation: the entropy
// estimate together with the match counts it was reduced from.
//
// Two degenerate outcomes are distinguished. When no length-m template pair
// matches at all (B == 0) the defining ratio is 0/0 and the entropy is
// undefined: Entropy is NaN and IsUndefined reports true. When length-m
// matches exist but none of them extends to length m+1 (B > 0, A == 0) the
// entropy is maximal: Entropy is +Inf and IsInf reports true. Callers can
// therefore tell "no data to estimate from" apart from "perfectly irregular".
type Result struct {
	// Entropy is -ln(A/B), or NaN when undefined, or +Inf when no match
	// extends.
	Entropy float64
	// B is the number of ordered index pairs whose length-m templates match.
	B uint64
	// A is the number of ordered index pairs whose length-(m+1) templates
	// match.
	A uint64
}

// IsUndefined reports whether the series produced no length-m template
// matches at all, leaving the entropy undefined (Entropy is NaN).
func (r Result) IsUndefined() bool {
	return r.B == 0
}

// IsInf reports whether length-m template matches exist but none of them
// extends to length m+1, making the entropy +Inf.
func (r Result) IsInf() bool {
	return r.B > 0 && r.A == 0
}

// SampleEntropy computes the Sample Entropy of the series for embedding
// dimension m and Chebyshev distance tolerance r. Degenerate outcomes are
// first-class results, not errors: see Result.
//
// The series must not be empty or nil and must contain at least m+2 samples
// so that at least one pair of length-(m+1) templates exists. The embedding
// dimension must be a positive integer and the tolerance must be
// non-negative. An error is returned when the inputs are invalid.
//
// By default the pair space is scanned sequentially; pass WithWorkers to
// partition it across parallel workers. The result is identical for every
// worker count.
func SampleEntropy(series []float64, m int, r float64, opts ...Option) (Result, error) {
	// Guard statements
	if len(series) == 0 {
		return Result{}, ErrEmptySeries
	} else if m < 1 {
		return Result{}, ErrMMustBePositive
	} else if r < 0 {
		return Result{}, ErrNegativeTolerance
	} else if m+1 >= len(series) {
		return Result{}, ErrSeriesTooShort
	}

	counts, err := CountMatches(series, m, r, opts...)
	if err != nil {
		return Result{}, err
	}

	return counts.Entropy(), nil
}

// MatchCounts holds the number of ordered template-pair matches of a series
// at embedding length m (B) and at length m+1 (A). The counts are uint64
// because they grow quadratically in the series length.
type MatchCounts struct {
	B uint64
	A uint64
}

// Entropy reduces the match counts to a Sample Entropy result, -ln(A/B).
// When B is zero the entropy is undefined and the result carries NaN; when B
// is positive but A is zero the result carries +Inf. See Result.
func (c MatchCounts) Entropy() Result {
	result := Result{B: c.B, A: c.A}
	switch {
	case c.B == 0:
		result.Entropy = math.NaN()
	case c.A == 0:
		result.Entropy = math.Inf(1)
	default:
		result.Entropy = -math.Log(float64(c.A) / float64(c.B))
	}
	return result
}

// CountMatches counts the template matches of the series at embedding
// lengths m and m+1 under the Chebyshev distance tolerance r.
//
// B counts the ordered pairs of distinct starting indices (i, j) with
// 0 <= i, j <= N-m-1 whose length-m templates lie strictly within r at every
// offset. A counts the ordered pairs whose length-(m+1) templates lie
// strictly within r, over the one-shorter valid range 0 <= i, j <= N-m-2.
// Self-matches (i == j) are never counted. Each unordered pair is compared
// once and contributes 2, so B and A are always even and A <= B always
// holds: the length-(m+1) comparison runs only after the length-m templates
// already matched, and then examines just the single extension element.
//
// A series with fewer than two valid starting indices (N <= m+1, including
// an empty series) yields zero counts and no error. The embedding dimension
// must be a positive integer and the tolerance non-negative; an error is
// returned when the parameters are invalid.
//
// The computation examines O(K^2) index pairs for K = N-m valid starts, with
// early exit on the first out-of-tolerance offset. WithWorkers splits the
// outer index across parallel workers without changing the result.
func CountMatches(series []float64, m int, r float64, opts ...Option) (MatchCounts, error) {
	// Guard statements
	if m < 1 {
		return MatchCounts{}, ErrMMustBePositive
	} else if r < 0 {
		return MatchCounts{}, ErrNegativeTolerance
	}

	cfg := config{workers: 1}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return MatchCounts{}, err
		}
	}

	// starts is the number of valid length-m template starting indices,
	// 0..N-m-1. With fewer than 2 there is no pair to compare: a defined
	// degenerate result, not an error.
	starts := len(series) - m
	if starts < 2 {
		return MatchCounts{}, nil
	}

	if cfg.workers == 1 {
		return countMatchesSequential(series, m, r, starts), nil
	}
	return countMatchesStriped(series, m, r, starts, cfg.workers), nil
}

// Option configures a match-counting run.
type Option func(*config) error

type config struct {
	workers int
}

// WithWorkers sets the number of workers the match-counting engine
// partitions the pair space across. The default is 1, a sequential scan.
// Worker counts greater than the number of outer indices are reduced to it.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return ErrWorkersMustBePositive
		}
		c.workers = n
		return nil
	}
}

// countMatchesSequential scans the unordered pair space
// {(i, j): 0 <= i < j < starts} on the calling goroutine.
func countMatchesSequential(series []float64, m int, r float64, starts int) MatchCounts {
	var counts MatchCounts
	for i := 0; i < starts-1; i++ {
		b, a := countPairsFrom(series, m, r, i, starts)
		counts.B += b
		counts.A += a
	}
	return counts
}

// countMatchesStriped partitions the outer index across workers: worker w
// handles every i with i % workers == w. The stripes tile the pair space
// exactly, each worker accumulates into its own private slot, and the final
// counts are the sum over slots. Integer summation is commutative and
// associative, so the result does not depend on scheduling or worker count.
func countMatchesStriped(series []float64, m int, r float64, starts, workers int) MatchCounts {
	// The outer index ranges over 0..starts-2; never run more workers than
	// outer indices.
	if outer := starts - 1; workers > outer {
		workers = outer
	}

	partials := make([]MatchCounts, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			var local MatchCounts
			for i := w; i < starts-1; i += workers {
				b, a := countPairsFrom(series, m, r, i, starts)
				local.B += b
				local.A += a
			}
			partials[w] = local
		}(w)
	}
	wg.Wait()

	var counts MatchCounts
	for _, partial := range partials {
		counts.B += partial.B
		counts.A += partial.A
	}
	return counts
}

// countPairsFrom accumulates the ordered-pair match contributions of a
// single outer starting index i against every later start j. The extension
// to length m+1 is tested only when the length-m templates matched and j is
// still a valid length-(m+1) start (j <= starts-2; i < j covers i's bound).
func countPairsFrom(series []float64, m int, r float64, i, starts int) (b, a uint64) {
	for j := i + 1; j < starts; j++ {
		if !chebyshevWithin(series, i, j, m, r) {
			continue
		}
		b += 2
		if j <= starts-2 && math.Abs(series[i+m]-series[j+m]) < r {
			a += 2
		}
	}
	return b, a
}

// chebyshevWithin reports whether the length-m templates starting at i and j
// stay strictly within the tolerance at every offset, exiting at the first
// offset that is not. The negated form keeps NaN samples from ever matching.
func chebyshevWithin(series []float64, i, j, m int, r float64) bool {
	for k := 0; k < m; k++ {
		if !(math.Abs(series[i+k]-series[j+k]) < r) {
			return false
		}
	}
	return true
}
