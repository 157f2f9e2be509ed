// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

type statscmd struct {
	filtercmd
}

func (cmd *statscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input expression matrix tsv `file`")
	outputFilename := flags.String("o", "-", "output json `file`")
	cmd.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}

	m, err := loadMatrixFile(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	ret, err := matrixStats(m, cmd.quantile)
	if err != nil {
		return 1
	}
	err = writeFile(*outputFilename, stdout, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ret)
	})
	if err != nil {
		return 1
	}
	return 0
}

type varianceSummary struct {
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
	Mean   float64
}

type matrixSummary struct {
	Genes     int
	Samples   int
	Variance  varianceSummary
	Quantile  float64
	Threshold float64
	Retained  int
	// mean expression per sample, same order as SampleIDs
	SampleMeans []float64
	SampleIDs   []string
}

func matrixStats(m *ExpressionMatrix, q float64) (*matrixSummary, error) {
	fm, err := FilterByVariance(m, q)
	if err != nil {
		return nil, err
	}
	vars := RowVariances(m)
	ret := &matrixSummary{
		Genes:   len(m.Genes),
		Samples: len(m.Samples),
		Variance: varianceSummary{
			Min:    Quantile(0, vars),
			Q25:    Quantile(0.25, vars),
			Median: Quantile(0.5, vars),
			Q75:    Quantile(0.75, vars),
			Max:    Quantile(1, vars),
			Mean:   stat.Mean(vars, nil),
		},
		Quantile:  q,
		Threshold: fm.Threshold,
		Retained:  len(fm.Genes),
		SampleIDs: m.Samples,
	}
	col := make([]float64, len(m.Genes))
	for j := range m.Samples {
		for i := range m.Genes {
			col[i] = m.Row(i)[j]
		}
		ret.SampleMeans = append(ret.SampleMeans, stat.Mean(col, nil))
	}
	return ret, nil
}
