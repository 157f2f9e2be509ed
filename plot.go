// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arvados/varheat/hclust"
	log "github.com/sirupsen/logrus"
)

type heatmapCmd struct {
	columns MetadataColumns
}

func (cmd *heatmapCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dataDir := flags.String("data-dir", "data", "input data `directory`")
	plotsDir := flags.String("plots-dir", "plots", "output `directory` for plots")
	resultsDir := flags.String("results-dir", "results", "output `directory` for tables")
	matrixFilename := flags.String("matrix", "", "expression matrix tsv `file` (default <data-dir>/expression.tsv)")
	metadataFilename := flags.String("metadata", "", "sample metadata tsv `file` (default <data-dir>/metadata.tsv)")
	outputFilename := flags.String("o", "heatmap.png", "output png `filename`, relative to -plots-dir")
	filteredFilename := flags.String("filtered", "filtered_expression.tsv", "filtered matrix `filename`, relative to -results-dir")
	quantile := flags.Float64("quantile", DefaultQuantile, "keep genes whose variance exceeds this quantile `q` of all gene variances")
	linkageName := flags.String("linkage", "complete", "hierarchical clustering `method`: complete, average, or single")
	showTreatment := flags.Bool("show-treatment", true, "include treatment annotation bar")
	cellWidth := flags.Int("cell-width", DefaultRenderer.CellWidth, "heatmap cell width in `pixels`")
	cellHeight := flags.Int("cell-height", 0, "heatmap cell height in `pixels` (0 = automatic)")
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
	linkage, err := hclust.ParseLinkage(*linkageName)
	if err != nil {
		return 2
	}
	if *matrixFilename == "" {
		*matrixFilename = filepath.Join(*dataDir, "expression.tsv")
	}
	if *metadataFilename == "" {
		*metadataFilename = filepath.Join(*dataDir, "metadata.tsv")
	}

	for _, dir := range []string{*dataDir, *plotsDir, *resultsDir} {
		err = os.MkdirAll(dir, 0777)
		if err != nil {
			return 1
		}
	}

	m, md, err := LoadDataset(*matrixFilename, *metadataFilename, cmd.columns)
	if err != nil {
		return 1
	}

	log.Printf("filtering genes by variance (quantile %g)", *quantile)
	fm, err := FilterByVariance(m, *quantile)
	if err != nil {
		return 1
	}
	log.Printf("variance threshold %g, retained %d of %d genes", fm.Threshold, len(fm.Genes), fm.InputGenes)
	if len(fm.Genes) == 0 {
		err = fmt.Errorf("no gene variance exceeds threshold %g: %w", fm.Threshold, ErrEmptyResult)
		return 1
	}

	filteredPath := filepath.Join(*resultsDir, *filteredFilename)
	log.Printf("writing %s", filteredPath)
	err = writeFile(filteredPath, stdout, fm.WriteTSV)
	if err != nil {
		return 1
	}

	ann := BuildAnnotations(md)
	renderer := DefaultRenderer
	renderer.Linkage = linkage
	renderer.ShowTreatment = *showTreatment
	renderer.CellWidth = *cellWidth
	renderer.CellHeight = *cellHeight
	plotPath := filepath.Join(*plotsDir, *outputFilename)
	log.Printf("rendering %s", plotPath)
	err = renderer.RenderFile(plotPath, fm, ann)
	if err != nil {
		return 1
	}
	log.Print("done")
	return 0
}
