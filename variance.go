// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyResult is returned when there are no genes left to
// write or render.
var ErrEmptyResult = errors.New("empty result: no genes to analyze")

const DefaultQuantile = 0.75

// FilteredMatrix is the subset of an expression matrix whose gene
// variances exceed Threshold.
type FilteredMatrix struct {
	*ExpressionMatrix
	// quantile (0..1) used to compute Threshold
	Quantile  float64
	Threshold float64
	// variance of each retained gene, same order as Genes
	Variances []float64
	// number of genes in the unfiltered input
	InputGenes int
}

// RowVariances returns the sample variance (N-1 denominator) of
// each gene.
func RowVariances(m *ExpressionMatrix) []float64 {
	vars := make([]float64, len(m.Genes))
	for i := range vars {
		vars[i] = stat.Variance(m.Row(i), nil)
	}
	return vars
}

// Quantile returns the p-quantile of x, interpolating linearly
// between the order statistics at floor((n-1)p) and ceil((n-1)p).
// x need not be sorted, and is not modified.
func Quantile(p float64, x []float64) float64 {
	if len(x) == 0 || p < 0 || p > 1 {
		return math.NaN()
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// FilterByVariance returns the genes whose variance is strictly
// greater than the q-quantile of all gene variances, in input
// order.
//
// If all variances are equal, the result is empty (but err is nil).
// If m has no genes, the threshold is undefined and ErrEmptyResult
// is returned.
func FilterByVariance(m *ExpressionMatrix, q float64) (*FilteredMatrix, error) {
	if q < 0 || q > 1 {
		return nil, fmt.Errorf("invalid quantile %v (must be between 0 and 1)", q)
	}
	genes, samples := m.Dims()
	if genes == 0 {
		return nil, fmt.Errorf("variance filter: %w", ErrEmptyResult)
	}
	if samples < 2 {
		return nil, fmt.Errorf("variance filter: need at least 2 samples, have %d", samples)
	}
	vars := RowVariances(m)
	threshold := Quantile(q, vars)
	var keep []int
	var keptVars []float64
	for i, v := range vars {
		if v > threshold {
			keep = append(keep, i)
			keptVars = append(keptVars, v)
		}
	}
	return &FilteredMatrix{
		ExpressionMatrix: m.SelectRows(keep),
		Quantile:         q,
		Threshold:        threshold,
		Variances:        keptVars,
		InputGenes:       genes,
	}, nil
}
