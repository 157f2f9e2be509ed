// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"flag"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

type filtercmd struct {
	quantile float64
}

func (f *filtercmd) Flags(flags *flag.FlagSet) {
	flags.Float64Var(&f.quantile, "quantile", DefaultQuantile, "keep genes whose variance exceeds this quantile `q` of all gene variances")
}

func (cmd *filtercmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input expression matrix tsv `file`")
	outputFilename := flags.String("o", "-", "output tsv `file`")
	numpyFilename := flags.String("output-numpy", "", "also write filtered values to numpy `file` (genes x samples, float64)")
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

	log.Print("reading")
	m, err := loadMatrixFile(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	genes, samples := m.Dims()
	log.Printf("reading done, %d genes x %d samples", genes, samples)

	log.Print("filtering")
	fm, err := FilterByVariance(m, cmd.quantile)
	if err != nil {
		return 1
	}
	log.Printf("filtering done, threshold %g, retained %d of %d genes", fm.Threshold, len(fm.Genes), fm.InputGenes)
	if len(fm.Genes) == 0 {
		log.Warn("no genes retained (all variances equal?)")
	}

	log.Print("writing")
	err = writeFile(*outputFilename, stdout, fm.WriteTSV)
	if err != nil {
		return 1
	}
	if *numpyFilename != "" && len(fm.Genes) == 0 {
		log.Warnf("not writing empty matrix to %s", *numpyFilename)
	} else if *numpyFilename != "" {
		err = writeFile(*numpyFilename, stdout, func(w io.Writer) error {
			return writeNumpy(w, fm.ExpressionMatrix)
		})
		if err != nil {
			return 1
		}
	}
	log.Print("writing done")
	return 0
}
