// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

const geneColumnHeader = "Gene"

// ExpressionMatrix holds one row per gene and one column per
// sample. Values is nil if there are no genes or no samples.
type ExpressionMatrix struct {
	Genes   []string
	Samples []string
	Values  *mat.Dense
}

func newExpressionMatrix(genes, samples []string, data []float64) *ExpressionMatrix {
	m := &ExpressionMatrix{Genes: genes, Samples: samples}
	if len(genes) > 0 && len(samples) > 0 {
		m.Values = mat.NewDense(len(genes), len(samples), data)
	}
	return m
}

// Dims returns the number of genes and samples.
func (m *ExpressionMatrix) Dims() (genes, samples int) {
	return len(m.Genes), len(m.Samples)
}

// Row returns the values for gene i. The returned slice must not
// be modified.
func (m *ExpressionMatrix) Row(i int) []float64 {
	if m.Values == nil {
		return nil
	}
	return m.Values.RawRowView(i)
}

// SelectRows returns a new matrix with the given rows, in the
// given order.
func (m *ExpressionMatrix) SelectRows(rows []int) *ExpressionMatrix {
	genes := make([]string, len(rows))
	data := make([]float64, 0, len(rows)*len(m.Samples))
	for i, row := range rows {
		genes[i] = m.Genes[row]
		data = append(data, m.Row(row)...)
	}
	return newExpressionMatrix(genes, append([]string(nil), m.Samples...), data)
}

// SelectColumns returns a new matrix with the given columns, in the
// given order.
func (m *ExpressionMatrix) SelectColumns(cols []int) *ExpressionMatrix {
	samples := make([]string, len(cols))
	for j, col := range cols {
		samples[j] = m.Samples[col]
	}
	data := make([]float64, 0, len(m.Genes)*len(cols))
	for i := range m.Genes {
		row := m.Row(i)
		for _, col := range cols {
			data = append(data, row[col])
		}
	}
	return newExpressionMatrix(append([]string(nil), m.Genes...), samples, data)
}

// ReadExpressionMatrix reads a tab-separated matrix with a header
// row. The first column holds gene IDs, and each remaining column
// holds the values for one sample.
func ReadExpressionMatrix(r io.Reader) (*ExpressionMatrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<28)
	var samples, genes []string
	var data []float64
	seenGene := map[string]bool{}
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if samples == nil {
			// header row
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: header row has no sample columns", lineno)
			}
			if fields[0] != geneColumnHeader {
				log.Warnf("expression matrix: first column header is %q, expected %q", fields[0], geneColumnHeader)
			}
			samples = fields[1:]
			seenSample := make(map[string]bool, len(samples))
			for _, s := range samples {
				if s == "" {
					return nil, fmt.Errorf("line %d: empty sample ID in header row", lineno)
				}
				if seenSample[s] {
					return nil, fmt.Errorf("line %d: duplicate sample ID %q in header row", lineno, s)
				}
				seenSample[s] = true
			}
			continue
		}
		if len(fields) != len(samples)+1 {
			return nil, fmt.Errorf("line %d: found %d fields, expected %d", lineno, len(fields), len(samples)+1)
		}
		gene := fields[0]
		if seenGene[gene] {
			return nil, fmt.Errorf("line %d: duplicate gene ID %q", lineno, gene)
		}
		seenGene[gene] = true
		genes = append(genes, gene)
		for col, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: gene %q sample %q: %w", lineno, gene, samples[col], err)
			}
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d: gene %q sample %q: invalid expression value %v (must be finite and non-negative)", lineno, gene, samples[col], v)
			}
			data = append(data, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if samples == nil {
		return nil, errors.New("missing header row")
	}
	return newExpressionMatrix(genes, samples, data), nil
}

// WriteTSV writes the matrix in the same format accepted by
// ReadExpressionMatrix.
func (m *ExpressionMatrix) WriteTSV(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\t%s\n", geneColumnHeader, strings.Join(m.Samples, "\t"))
	if err != nil {
		return err
	}
	buf := make([]byte, 0, 64*len(m.Samples))
	for i, gene := range m.Genes {
		buf = append(buf[:0], gene...)
		for _, v := range m.Row(i) {
			buf = append(buf, '\t')
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		_, err = w.Write(buf)
		if err != nil {
			return err
		}
	}
	return nil
}
