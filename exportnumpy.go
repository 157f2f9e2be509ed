// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"errors"
	"io"

	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"
)

// writeNumpy writes the matrix values (genes x samples) to w in
// numpy .npy format.
func writeNumpy(w io.Writer, m *ExpressionMatrix) error {
	if m.Values == nil {
		return errors.New("cannot write empty matrix to numpy file")
	}
	return writeNumpyMatrix(w, m.Values)
}

func writeNumpyMatrix(w io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out = append(out, m.At(i, j))
		}
	}
	npw, err := gonpy.NewWriter(nopCloser{w})
	if err != nil {
		return err
	}
	npw.Shape = []int{rows, cols}
	return npw.WriteFloat64(out)
}
