// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// gendata writes a synthetic expression matrix and matching sample
// metadata, for demos and tests.
type gendata struct {
	columns MetadataColumns
}

func (cmd *gendata) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	outputDir := flags.String("output-dir", "data", "output `directory`")
	genes := flags.Int("genes", 100, "number of genes")
	samples := flags.Int("samples", 19, "number of samples")
	seed := flags.Uint64("random-seed", 1, "PRNG seed")
	cmd.columns.Flags(flags)
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
	if *genes < 0 || *samples < 1 {
		err = fmt.Errorf("invalid dimensions %d genes x %d samples", *genes, *samples)
		return 2
	}

	err = os.MkdirAll(*outputDir, 0777)
	if err != nil {
		return 1
	}
	m, md := syntheticDataset(*genes, *samples, *seed)
	matrixPath := filepath.Join(*outputDir, "expression.tsv")
	log.Infof("writing %s", matrixPath)
	err = writeFile(matrixPath, stdout, m.WriteTSV)
	if err != nil {
		return 1
	}
	metadataPath := filepath.Join(*outputDir, "metadata.tsv")
	log.Infof("writing %s", metadataPath)
	err = writeFile(metadataPath, stdout, func(w io.Writer) error {
		return writeMetadataTSV(w, md, cmd.columns)
	})
	if err != nil {
		return 1
	}
	return 0
}

var syntheticGroups = []string{"TET2", "IDH2", "WT"}

// syntheticDataset returns a dataset where every 5th gene responds
// to the mutation group, and gene noise levels vary widely.
func syntheticDataset(ngenes, nsamples int, seed uint64) (*ExpressionMatrix, Metadata) {
	src := rand.NewSource(seed)
	unif := distuv.Uniform{Min: 0, Max: 1, Src: src}

	md := make(Metadata, nsamples)
	samples := make([]string, nsamples)
	for j := range md {
		group := syntheticGroups[j%len(syntheticGroups)]
		if j%7 == 6 {
			group = "control"
		}
		treatment := "vehicle"
		if j%2 == 1 {
			treatment = "AG-221"
		}
		md[j] = SampleInfo{
			Accession: fmt.Sprintf("SRR%07d", 1000001+j),
			Title:     fmt.Sprintf("%s-sample%d", group, j+1),
			Treatment: treatment,
		}
		samples[j] = md[j].Accession
	}

	genes := make([]string, ngenes)
	data := make([]float64, 0, ngenes*nsamples)
	for i := range genes {
		genes[i] = fmt.Sprintf("ENSG%011d", 1000+i)
		u := unif.Rand()
		noise := distuv.Normal{Mu: 2 + 8*unif.Rand(), Sigma: 0.1 + 2*u*u, Src: src}
		for j := 0; j < nsamples; j++ {
			v := noise.Rand()
			if i%5 == 0 {
				switch MutationGroup(md[j].Title) {
				case "TET2":
					v += 3
				case "IDH2":
					v -= 1.5
				}
			}
			v = math.Round(math.Max(v, 0)*1e4) / 1e4
			data = append(data, v)
		}
	}
	return newExpressionMatrix(genes, samples, data), md
}

func writeMetadataTSV(w io.Writer, md Metadata, cols MetadataColumns) error {
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\trefinebio_organism\n", cols.Accession, cols.Title, cols.Treatment)
	if err != nil {
		return err
	}
	for _, si := range md {
		_, err = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", si.Accession, si.Title, si.Treatment, "HOMO_SAPIENS")
		if err != nil {
			return err
		}
	}
	return nil
}
