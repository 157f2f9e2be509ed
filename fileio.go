// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// zopen returns a reader for the given file, transparently
// decompressing the input if fnm ends with ".gz". If fnm is "-",
// stdin is returned (and never closed).
func zopen(fnm string, stdin io.Reader) (io.ReadCloser, error) {
	if fnm == "-" {
		return ioutil.NopCloser(stdin), nil
	}
	f, err := os.Open(fnm)
	if err != nil || !strings.HasSuffix(fnm, ".gz") {
		return f, err
	}
	rdr, err := pgzip.NewReader(bufio.NewReaderSize(f, 4*1024*1024))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return gzipr{rdr, f}, nil
}

// gzipr wraps a ReadCloser and a Closer, presenting a single Close()
// method that closes both wrapped objects.
type gzipr struct {
	io.ReadCloser
	io.Closer
}

func (gr gzipr) Close() error {
	e1 := gr.ReadCloser.Close()
	e2 := gr.Closer.Close()
	if e1 != nil {
		return e1
	}
	return e2
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// writeFile calls write with a buffered writer for fnm. The data is
// written to fnm+"~" and renamed into place only after write, flush
// and close all succeed; on any error the partial file is removed.
// If fnm is "-", output goes to stdout.
func writeFile(fnm string, stdout io.Writer, write func(io.Writer) error) (err error) {
	if fnm == "-" {
		bufw := bufio.NewWriter(stdout)
		err = write(bufw)
		if err != nil {
			return err
		}
		return bufw.Flush()
	}
	tmp := fnm + "~"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	defer func() {
		if f != nil {
			f.Close()
		}
		if err != nil {
			os.Remove(tmp)
		}
	}()
	bufw := bufio.NewWriterSize(f, 1<<20)
	err = write(bufw)
	if err != nil {
		return fmt.Errorf("write %s: %w", fnm, err)
	}
	err = bufw.Flush()
	if err != nil {
		return fmt.Errorf("write %s: %w", fnm, err)
	}
	err = f.Close()
	f = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", fnm, err)
	}
	return os.Rename(tmp, fnm)
}
