// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// normalize converts a to z-scores in place. If a has zero standard
// deviation, it becomes all zeros.
func normalize(a []float64) {
	mean, std := stat.MeanStdDev(a, nil)
	for i, x := range a {
		if std > 0 {
			a[i] = (x - mean) / std
		} else {
			a[i] = 0
		}
	}
}

// ScaleRows returns a copy of m with each row converted to z-scores.
func ScaleRows(m *mat.Dense) *mat.Dense {
	var scaled mat.Dense
	scaled.CloneFrom(m)
	rows, _ := scaled.Dims()
	for i := 0; i < rows; i++ {
		normalize(scaled.RawRowView(i))
	}
	return &scaled
}
