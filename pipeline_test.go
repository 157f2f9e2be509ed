// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"sync"

	"gopkg.in/check.v1"
)

type pipelineSuite struct{}

var _ = check.Suite(&pipelineSuite{})

func runGendata(c *check.C, dir string, args ...string) {
	code := (&gendata{}).RunCommand("varheat gendata", append([]string{"-output-dir", dir}, args...), bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)
}

func runHeatmap(dataDir, outDir string, args ...string) (int, string) {
	stderr := &bytes.Buffer{}
	code := (&heatmapCmd{}).RunCommand("varheat heatmap", append([]string{
		"-data-dir", dataDir,
		"-plots-dir", outDir + "/plots",
		"-results-dir", outDir + "/results",
	}, args...), bytes.NewReader(nil), &bytes.Buffer{}, stderr)
	return code, stderr.String()
}

func (s *pipelineSuite) TestHeatmap(c *check.C) {
	tmpdir := c.MkDir()
	runGendata(c, tmpdir+"/data", "-genes", "100", "-samples", "19", "-random-seed", "7")

	code, stderr := runHeatmap(tmpdir+"/data", tmpdir+"/out1")
	c.Assert(code, check.Equals, 0, check.Commentf("%s", stderr))
	filtered, err := ioutil.ReadFile(tmpdir + "/out1/results/filtered_expression.tsv")
	c.Assert(err, check.IsNil)
	lines := strings.Split(strings.TrimSuffix(string(filtered), "\n"), "\n")
	c.Check(lines[0], check.Matches, `Gene\tSRR1000001\t.*\tSRR1000019`)
	// 100 genes, upper quartile: at most 25 retained
	c.Check(len(lines)-1 > 0, check.Equals, true)
	c.Check(len(lines)-1 <= 25, check.Equals, true)
	png1, err := ioutil.ReadFile(tmpdir + "/out1/plots/heatmap.png")
	c.Assert(err, check.IsNil)
	c.Check(bytes.HasPrefix(png1, []byte("\x89PNG")), check.Equals, true)

	// same inputs, same outputs
	code, stderr = runHeatmap(tmpdir+"/data", tmpdir+"/out2")
	c.Assert(code, check.Equals, 0, check.Commentf("%s", stderr))
	filtered2, err := ioutil.ReadFile(tmpdir + "/out2/results/filtered_expression.tsv")
	c.Assert(err, check.IsNil)
	c.Check(string(filtered2), check.Equals, string(filtered))
	png2, err := ioutil.ReadFile(tmpdir + "/out2/plots/heatmap.png")
	c.Assert(err, check.IsNil)
	c.Check(bytes.Equal(png1, png2), check.Equals, true)

	// regenerating with the same seed gives the same data
	runGendata(c, tmpdir+"/data2", "-genes", "100", "-samples", "19", "-random-seed", "7")
	for _, fnm := range []string{"expression.tsv", "metadata.tsv"} {
		a, err := ioutil.ReadFile(tmpdir + "/data/" + fnm)
		c.Assert(err, check.IsNil)
		b, err := ioutil.ReadFile(tmpdir + "/data2/" + fnm)
		c.Assert(err, check.IsNil)
		c.Check(bytes.Equal(a, b), check.Equals, true, check.Commentf("%s", fnm))
	}

	code, stderr = runHeatmap(tmpdir+"/data", tmpdir+"/out3", "-linkage", "average", "-show-treatment=false", "-o", "avg.png")
	c.Assert(code, check.Equals, 0, check.Commentf("%s", stderr))
	_, err = os.Stat(tmpdir + "/out3/plots/avg.png")
	c.Check(err, check.IsNil)
}

func (s *pipelineSuite) TestHeatmapMismatch(c *check.C) {
	tmpdir := c.MkDir()
	runGendata(c, tmpdir+"/data", "-genes", "20", "-samples", "6")
	md, err := ioutil.ReadFile(tmpdir + "/data/metadata.tsv")
	c.Assert(err, check.IsNil)
	// drop the last sample from the metadata
	lines := strings.SplitAfter(string(md), "\n")
	c.Assert(ioutil.WriteFile(tmpdir+"/data/metadata.tsv", []byte(strings.Join(lines[:len(lines)-2], "")), 0644), check.IsNil)

	code, stderr := runHeatmap(tmpdir+"/data", tmpdir+"/out")
	c.Check(code, check.Equals, 1)
	c.Check(stderr, check.Matches, `(?s).*sample alignment mismatch: 1 expression matrix samples missing from metadata \(SRR1000006\).*`)
	for _, fnm := range []string{"/out/results/filtered_expression.tsv", "/out/plots/heatmap.png"} {
		_, err = os.Stat(tmpdir + fnm)
		c.Check(os.IsNotExist(err), check.Equals, true, check.Commentf("%s", fnm))
	}
}

func (s *pipelineSuite) TestHeatmapEmpty(c *check.C) {
	tmpdir := c.MkDir()
	metadata := "refinebio_accession_code\trefinebio_title\trefinebio_treatment\nS1\tTET2-a\tvehicle\nS2\tWT-b\tAG-221\n"
	for _, trial := range []struct {
		matrix string
		errmsg string
	}{
		{"Gene\tS1\tS2\n", `(?s).*empty result: no genes to analyze.*`},
		{"Gene\tS1\tS2\ng1\t1\t2\ng2\t5\t6\n", `(?s).*no gene variance exceeds threshold 0\.5: empty result.*`},
	} {
		dataDir := c.MkDir()
		c.Assert(ioutil.WriteFile(dataDir+"/expression.tsv", []byte(trial.matrix), 0644), check.IsNil)
		c.Assert(ioutil.WriteFile(dataDir+"/metadata.tsv", []byte(metadata), 0644), check.IsNil)
		code, stderr := runHeatmap(dataDir, tmpdir)
		c.Check(code, check.Equals, 1)
		c.Check(stderr, check.Matches, trial.errmsg)
		_, err := os.Stat(tmpdir + "/plots/heatmap.png")
		c.Check(os.IsNotExist(err), check.Equals, true)
		_, err = os.Stat(tmpdir + "/results/filtered_expression.tsv")
		c.Check(os.IsNotExist(err), check.Equals, true)
	}
}

func (s *pipelineSuite) TestUsageErrors(c *check.C) {
	tmpdir := c.MkDir()
	for _, trial := range []struct {
		cmd  interface {
			RunCommand(string, []string, io.Reader, io.Writer, io.Writer) int
		}
		args []string
	}{
		{&heatmapCmd{}, []string{"-linkage", "ward", "-data-dir", tmpdir}},
		{&heatmapCmd{}, []string{"-no-such-flag"}},
		{&heatmapCmd{}, []string{"-data-dir", tmpdir, "extra"}},
		{&filtercmd{}, []string{"-quantile", "x"}},
		{&annotatecmd{}, []string{"extra"}},
		{&statscmd{}, []string{"-bogus"}},
		{&gendata{}, []string{"-samples", "0", "-output-dir", tmpdir}},
	} {
		code := trial.cmd.RunCommand("varheat", trial.args, bytes.NewReader(nil), &bytes.Buffer{}, &bytes.Buffer{})
		c.Check(code, check.Equals, 2, check.Commentf("%T %q", trial.cmd, trial.args))
	}
	code := handler.RunCommand("varheat", []string{"no-such-command"}, bytes.NewReader(nil), &bytes.Buffer{}, &bytes.Buffer{})
	c.Check(code, check.Equals, 2)
}

func (s *pipelineSuite) TestFilterStats(c *check.C) {
	tmpdir := c.MkDir()
	runGendata(c, tmpdir, "-genes", "40", "-samples", "10")

	var wg sync.WaitGroup
	statsin, filterout := io.Pipe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		code := (&filtercmd{}).RunCommand("varheat filter", []string{"-i", tmpdir + "/expression.tsv"}, bytes.NewReader(nil), filterout, os.Stderr)
		c.Check(code, check.Equals, 0)
		filterout.Close()
	}()
	statsout := &bytes.Buffer{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		code := (&statscmd{}).RunCommand("varheat stats", []string{"-quantile", "0"}, statsin, statsout, os.Stderr)
		c.Check(code, check.Equals, 0)
	}()
	wg.Wait()

	var summary matrixSummary
	c.Assert(json.Unmarshal(statsout.Bytes(), &summary), check.IsNil)
	c.Check(summary.Genes, check.Equals, 10)
	c.Check(summary.Samples, check.Equals, 10)
	c.Check(summary.SampleIDs, check.HasLen, 10)
	c.Check(summary.SampleMeans, check.HasLen, 10)
	c.Check(summary.Quantile, check.Equals, 0.0)
	c.Check(summary.Threshold, check.Equals, summary.Variance.Min)
	c.Check(summary.Retained, check.Equals, 9)
	c.Check(summary.Variance.Min <= summary.Variance.Median && summary.Variance.Median <= summary.Variance.Max, check.Equals, true)
}

func (s *pipelineSuite) TestAnnotate(c *check.C) {
	tmpdir := c.MkDir()
	runGendata(c, tmpdir, "-genes", "5", "-samples", "7")
	out := &bytes.Buffer{}
	code := (&annotatecmd{}).RunCommand("varheat annotate", []string{"-i", tmpdir + "/metadata.tsv"}, bytes.NewReader(nil), out, os.Stderr)
	c.Assert(code, check.Equals, 0)
	c.Check(out.String(), check.Equals, "accession\tmutation\ttreatment\n"+
		"SRR1000001\tTET2\tvehicle\n"+
		"SRR1000002\tIDH2\tAG-221\n"+
		"SRR1000003\tWT\tvehicle\n"+
		"SRR1000004\tTET2\tAG-221\n"+
		"SRR1000005\tIDH2\tvehicle\n"+
		"SRR1000006\tWT\tAG-221\n"+
		"SRR1000007\tunknown\tvehicle\n")

	code = (&annotatecmd{}).RunCommand("varheat annotate", []string{"-i", tmpdir + "/nonexistent.tsv"}, bytes.NewReader(nil), out, &bytes.Buffer{})
	c.Check(code, check.Equals, 1)
}
