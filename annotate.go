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

type annotatecmd struct {
	columns MetadataColumns
}

func (cmd *annotatecmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *annotatecmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input sample metadata tsv `file`")
	outputFilename := flags.String("o", "-", "output annotation tsv `file`")
	cmd.columns.Flags(flags)
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "errant command line arguments after parsed flags: %v\n", flags.Args())
		return errUsage
	}

	md, err := loadMetadataFile(*inputFilename, stdin, cmd.columns)
	if err != nil {
		return err
	}
	ann := BuildAnnotations(md)
	counts := map[string]int{}
	for _, a := range ann {
		counts[a.Mutation]++
	}
	for _, group := range append(append([]string(nil), MutationPrefixes...), MutationUnknown) {
		log.Infof("%s: %d samples", group, counts[group])
	}
	return writeFile(*outputFilename, stdout, ann.WriteTSV)
}
