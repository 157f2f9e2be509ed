// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"fmt"
	"io"
	"strings"
)

const MutationUnknown = "unknown"

// Title prefixes that identify a sample's mutation group. The first
// matching prefix wins.
var MutationPrefixes = []string{"TET2", "IDH2", "WT"}

type Annotation struct {
	Accession string
	Mutation  string
	Treatment string
}

// AnnotationTable has one entry per sample, in metadata order.
type AnnotationTable []Annotation

// MutationGroup returns the first of MutationPrefixes that title
// starts with, or MutationUnknown.
func MutationGroup(title string) string {
	for _, prefix := range MutationPrefixes {
		if strings.HasPrefix(title, prefix) {
			return prefix
		}
	}
	return MutationUnknown
}

func BuildAnnotations(md Metadata) AnnotationTable {
	ann := make(AnnotationTable, len(md))
	for i, si := range md {
		ann[i] = Annotation{
			Accession: si.Accession,
			Mutation:  MutationGroup(si.Title),
			Treatment: si.Treatment,
		}
	}
	return ann
}

// Lookup returns a map from accession code to annotation.
func (ann AnnotationTable) Lookup() map[string]Annotation {
	m := make(map[string]Annotation, len(ann))
	for _, a := range ann {
		m[a.Accession] = a
	}
	return m
}

func (ann AnnotationTable) WriteTSV(w io.Writer) error {
	_, err := fmt.Fprint(w, "accession\tmutation\ttreatment\n")
	if err != nil {
		return err
	}
	for _, a := range ann {
		_, err = fmt.Fprintf(w, "%s\t%s\t%s\n", a.Accession, a.Mutation, a.Treatment)
		if err != nil {
			return err
		}
	}
	return nil
}
