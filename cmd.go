// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"errors"
	"os"

	"git.arvados.org/arvados.git/lib/cmd"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	handler = cmd.Multi(map[string]cmd.Handler{
		"version":   cmd.Version,
		"-version":  cmd.Version,
		"--version": cmd.Version,

		"heatmap":  &heatmapCmd{},
		"filter":   &filtercmd{},
		"annotate": &annotatecmd{},
		"stats":    &statscmd{},
		"pca-go":   &goPCA{},
		"gendata":  &gendata{},
	})
)

// errUsage is returned by subcommands whose flag parsing has
// already reported the problem.
var errUsage = errors.New("usage error")

func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.StandardLogger().Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(handler.RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
