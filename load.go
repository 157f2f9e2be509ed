// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

func loadMatrixFile(fnm string, stdin io.Reader) (*ExpressionMatrix, error) {
	f, err := zopen(fnm, stdin)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadExpressionMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	err = f.Close()
	if err != nil {
		return nil, err
	}
	return m, nil
}

func loadMetadataFile(fnm string, stdin io.Reader, cols MetadataColumns) (Metadata, error) {
	f, err := zopen(fnm, stdin)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	md, err := ReadMetadata(f, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	err = f.Close()
	if err != nil {
		return nil, err
	}
	return md, nil
}

// LoadDataset reads an expression matrix and sample metadata, and
// returns the matrix with its columns in metadata order. It fails
// with *AlignmentMismatchError if the two files do not describe the
// same set of samples.
func LoadDataset(matrixFilename, metadataFilename string, cols MetadataColumns) (*ExpressionMatrix, Metadata, error) {
	log.Infof("reading expression matrix %s", matrixFilename)
	m, err := loadMatrixFile(matrixFilename, nil)
	if err != nil {
		return nil, nil, err
	}
	genes, samples := m.Dims()
	log.Infof("read %d genes x %d samples", genes, samples)

	log.Infof("reading metadata %s", metadataFilename)
	md, err := loadMetadataFile(metadataFilename, nil, cols)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("read metadata for %d samples", len(md))

	m, err = Align(m, md)
	if err != nil {
		return nil, nil, err
	}
	return m, md, nil
}
