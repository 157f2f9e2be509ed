// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
)

// MetadataColumns names the metadata header columns that hold the
// sample accession code, title, and treatment.
type MetadataColumns struct {
	Accession string
	Title     string
	Treatment string
}

var DefaultMetadataColumns = MetadataColumns{
	Accession: "refinebio_accession_code",
	Title:     "refinebio_title",
	Treatment: "refinebio_treatment",
}

func (mc *MetadataColumns) Flags(flags *flag.FlagSet) {
	flags.StringVar(&mc.Accession, "accession-column", DefaultMetadataColumns.Accession, "metadata column `name` holding sample accession codes")
	flags.StringVar(&mc.Title, "title-column", DefaultMetadataColumns.Title, "metadata column `name` holding sample titles")
	flags.StringVar(&mc.Treatment, "treatment-column", DefaultMetadataColumns.Treatment, "metadata column `name` holding sample treatments")
}

type SampleInfo struct {
	Accession string
	Title     string
	Treatment string
}

// Metadata has one entry per sample, in file order.
type Metadata []SampleInfo

func (md Metadata) Accessions() []string {
	ids := make([]string, len(md))
	for i, si := range md {
		ids[i] = si.Accession
	}
	return ids
}

// ReadMetadata reads a tab-separated sample metadata table. Columns
// are located by header name; other columns are ignored.
func ReadMetadata(r io.Reader, cols MetadataColumns) (Metadata, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<26)
	var md Metadata
	accCol, titleCol, trtCol := -1, -1, -1
	seen := map[string]bool{}
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		split := strings.Split(line, "\t")
		if accCol < 0 {
			// header row
			for col, name := range split {
				switch name {
				case cols.Accession:
					accCol = col
				case cols.Title:
					titleCol = col
				case cols.Treatment:
					trtCol = col
				}
			}
			for _, c := range []struct {
				idx  int
				name string
			}{{accCol, cols.Accession}, {titleCol, cols.Title}, {trtCol, cols.Treatment}} {
				if c.idx < 0 {
					return nil, fmt.Errorf("line %d: no column named %q in header row", lineno, c.name)
				}
			}
			continue
		}
		field := func(col int) string {
			if col < len(split) {
				return split[col]
			}
			return ""
		}
		si := SampleInfo{
			Accession: field(accCol),
			Title:     field(titleCol),
			Treatment: field(trtCol),
		}
		if si.Accession == "" {
			return nil, fmt.Errorf("line %d: empty accession code", lineno)
		}
		if seen[si.Accession] {
			return nil, fmt.Errorf("line %d: duplicate accession code %q", lineno, si.Accession)
		}
		seen[si.Accession] = true
		md = append(md, si)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if accCol < 0 {
		return nil, errors.New("missing header row")
	}
	return md, nil
}

// AlignmentMismatchError indicates that the expression matrix
// columns and the metadata accession codes are not the same set.
type AlignmentMismatchError struct {
	// accession codes with no matrix column
	MissingFromMatrix []string
	// matrix columns with no metadata row
	MissingFromMetadata []string
}

func (e *AlignmentMismatchError) Error() string {
	var msgs []string
	if n := len(e.MissingFromMatrix); n > 0 {
		msgs = append(msgs, fmt.Sprintf("%d metadata samples missing from expression matrix (%s)", n, abbrev(e.MissingFromMatrix)))
	}
	if n := len(e.MissingFromMetadata); n > 0 {
		msgs = append(msgs, fmt.Sprintf("%d expression matrix samples missing from metadata (%s)", n, abbrev(e.MissingFromMetadata)))
	}
	return "sample alignment mismatch: " + strings.Join(msgs, "; ")
}

func abbrev(ids []string) string {
	if len(ids) > 5 {
		return strings.Join(ids[:5], ", ") + ", ..."
	}
	return strings.Join(ids, ", ")
}

// Align returns a copy of m with its columns reordered to match the
// accession order in md. The column set of m and the accession set
// of md must be identical.
func Align(m *ExpressionMatrix, md Metadata) (*ExpressionMatrix, error) {
	colIndex := make(map[string]int, len(m.Samples))
	for col, s := range m.Samples {
		colIndex[s] = col
	}
	var mismatch AlignmentMismatchError
	inMetadata := make(map[string]bool, len(md))
	cols := make([]int, 0, len(md))
	for _, si := range md {
		inMetadata[si.Accession] = true
		col, ok := colIndex[si.Accession]
		if !ok {
			mismatch.MissingFromMatrix = append(mismatch.MissingFromMatrix, si.Accession)
			continue
		}
		cols = append(cols, col)
	}
	for _, s := range m.Samples {
		if !inMetadata[s] {
			mismatch.MissingFromMetadata = append(mismatch.MissingFromMetadata, s)
		}
	}
	if len(mismatch.MissingFromMatrix) > 0 || len(mismatch.MissingFromMetadata) > 0 {
		sort.Strings(mismatch.MissingFromMatrix)
		sort.Strings(mismatch.MissingFromMetadata)
		return nil, &mismatch
	}
	aligned := m.SelectColumns(cols)
	for i, acc := range md.Accessions() {
		if aligned.Samples[i] != acc {
			return nil, fmt.Errorf("BUG: aligned column %d is %q, expected %q", i, aligned.Samples[i], acc)
		}
	}
	return aligned, nil
}
