// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/james-bowman/nlp"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

type goPCA struct {
	filter filtercmd
}

func (cmd *goPCA) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input expression matrix tsv `file`")
	outputFilename := flags.String("o", "-", "output numpy `file` (samples x components)")
	tsvFilename := flags.String("output-tsv", "", "also write components to tsv `file`, one row per sample")
	components := flags.Int("components", 2, "number of components")
	applyFilter := flags.Bool("filter", false, "apply variance filter before PCA")
	cmd.filter.Flags(flags)
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

	log.Print("reading")
	m, err := loadMatrixFile(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	if *applyFilter {
		log.Info("filtering")
		var fm *FilteredMatrix
		fm, err = FilterByVariance(m, cmd.filter.quantile)
		if err != nil {
			return 1
		}
		m = fm.ExpressionMatrix
	}

	var pcs *mat.Dense
	pcs, err = samplePCA(m, *components)
	if err != nil {
		return 1
	}

	rows, cols := pcs.Dims()
	log.Printf("writing numpy: %d rows, %d cols", rows, cols)
	err = writeFile(*outputFilename, stdout, func(w io.Writer) error {
		return writeNumpyMatrix(w, pcs)
	})
	if err != nil {
		return 1
	}
	if *tsvFilename != "" {
		err = writeFile(*tsvFilename, stdout, func(w io.Writer) error {
			return writeComponentsTSV(w, m.Samples, pcs)
		})
		if err != nil {
			return 1
		}
	}
	log.Print("done")
	return 0
}

// samplePCA projects the samples (columns of m) onto the first n
// principal components. The result has one row per sample.
func samplePCA(m *ExpressionMatrix, n int) (*mat.Dense, error) {
	genes, samples := m.Dims()
	if m.Values == nil {
		return nil, fmt.Errorf("pca: %w", ErrEmptyResult)
	}
	if n < 1 || n > genes || n > samples {
		return nil, fmt.Errorf("pca: cannot compute %d components from %d genes x %d samples", n, genes, samples)
	}
	log.Printf("fitting: %d genes, %d samples", genes, samples)
	transformer := nlp.NewPCA(n)
	transformer.Fit(m.Values)
	log.Printf("transforming")
	mtx, err := transformer.Transform(m.Values)
	if err != nil {
		return nil, err
	}
	var out mat.Dense
	out.CloneFrom(mtx.T())
	return &out, nil
}

func writeComponentsTSV(w io.Writer, samples []string, pcs mat.Matrix) error {
	_, cols := pcs.Dims()
	header := []byte("sample")
	for j := 0; j < cols; j++ {
		header = append(header, fmt.Sprintf("\tPC%d", j+1)...)
	}
	header = append(header, '\n')
	_, err := w.Write(header)
	if err != nil {
		return err
	}
	for i, s := range samples {
		line := []byte(s)
		for j := 0; j < cols; j++ {
			line = append(line, '\t')
			line = strconv.AppendFloat(line, pcs.At(i, j), 'g', -1, 64)
		}
		line = append(line, '\n')
		_, err = w.Write(line)
		if err != nil {
			return err
		}
	}
	return nil
}
