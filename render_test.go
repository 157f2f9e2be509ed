// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/check.v1"
)

type renderSuite struct{}

var _ = check.Suite(&renderSuite{})

func testFiltered(c *check.C) (*FilteredMatrix, AnnotationTable) {
	m, md := syntheticDataset(40, 12, 3)
	fm, err := FilterByVariance(m, DefaultQuantile)
	c.Assert(err, check.IsNil)
	c.Assert(len(fm.Genes) > 0, check.Equals, true)
	return fm, BuildAnnotations(md)
}

func (s *renderSuite) TestScaleRows(c *check.C) {
	m := newExpressionMatrix([]string{"a", "b"}, []string{"x", "y", "z"}, []float64{
		1, 2, 3,
		5, 5, 5,
	})
	scaled := ScaleRows(m.Values)
	c.Check(scaled.RawRowView(0), check.DeepEquals, []float64{-1, 0, 1})
	c.Check(scaled.RawRowView(1), check.DeepEquals, []float64{0, 0, 0})
	// original is not modified
	c.Check(m.Row(0), check.DeepEquals, []float64{1, 2, 3})

	fm, _ := testFiltered(c)
	scaled = ScaleRows(fm.Values)
	for i := range fm.Genes {
		mean, std := stat.MeanStdDev(scaled.RawRowView(i), nil)
		c.Check(math.Abs(mean) < 1e-9, check.Equals, true)
		c.Check(math.Abs(std-1) < 1e-9, check.Equals, true)
	}
}

func (s *renderSuite) TestRender(c *check.C) {
	fm, ann := testFiltered(c)
	var buf bytes.Buffer
	r := DefaultRenderer
	c.Assert(r.Render(&buf, fm, ann), check.IsNil)
	img, err := png.Decode(bytes.NewReader(buf.Bytes()))
	c.Assert(err, check.IsNil)
	bounds := img.Bounds()
	c.Check(bounds.Dx() > len(fm.Samples)*r.CellWidth+r.TreeSize, check.Equals, true)
	c.Check(bounds.Dy() > len(fm.Genes)+r.TreeSize, check.Equals, true)

	// same input, same bytes
	var again bytes.Buffer
	c.Assert(r.Render(&again, fm, ann), check.IsNil)
	c.Check(bytes.Equal(buf.Bytes(), again.Bytes()), check.Equals, true)

	// without the treatment bar, the image is shorter
	r.ShowTreatment = false
	short, err := r.Image(fm, ann)
	c.Assert(err, check.IsNil)
	c.Check(short.Bounds().Dy() <= bounds.Dy(), check.Equals, true)
}

func (s *renderSuite) TestRenderFile(c *check.C) {
	fm, ann := testFiltered(c)
	tmpdir := c.MkDir()
	r := DefaultRenderer
	c.Assert(r.RenderFile(tmpdir+"/heatmap.png", fm, ann), check.IsNil)
	fi, err := os.Stat(tmpdir + "/heatmap.png")
	c.Assert(err, check.IsNil)
	c.Check(fi.Size() > 0, check.Equals, true)
	_, err = os.Stat(tmpdir + "/heatmap.png~")
	c.Check(os.IsNotExist(err), check.Equals, true)
}

func (s *renderSuite) TestRenderEmpty(c *check.C) {
	tmpdir := c.MkDir()
	fm := &FilteredMatrix{ExpressionMatrix: newExpressionMatrix(nil, []string{"S1", "S2"}, nil)}
	r := DefaultRenderer
	err := r.RenderFile(tmpdir+"/heatmap.png", fm, nil)
	c.Check(errors.Is(err, ErrEmptyResult), check.Equals, true)
	_, err = os.Stat(tmpdir + "/heatmap.png")
	c.Check(os.IsNotExist(err), check.Equals, true)
	_, err = os.Stat(tmpdir + "/heatmap.png~")
	c.Check(os.IsNotExist(err), check.Equals, true)
}

func (s *renderSuite) TestRenderMissingAnnotation(c *check.C) {
	fm, ann := testFiltered(c)
	var buf bytes.Buffer
	r := DefaultRenderer
	err := r.Render(&buf, fm, ann[1:])
	c.Check(err, check.ErrorMatches, `heatmap: no annotation for sample "SRR1000001"`)
	c.Check(buf.Len(), check.Equals, 0)
}

func (s *renderSuite) TestRenderCells(c *check.C) {
	m, md := syntheticDataset(60, 9, 5)
	fm, err := FilterByVariance(m, DefaultQuantile)
	c.Assert(err, check.IsNil)
	ann := BuildAnnotations(md)
	r := DefaultRenderer
	r.CellHeight = 5
	l, err := r.prepare(fm, ann)
	c.Assert(err, check.IsNil)
	img := r.draw(l)
	colors := r.Scale.Colors()
	left, top := r.gridOrigin(l)
	cw, ch := r.CellWidth, r.CellHeight

	// cells in dendrogram order, centre pixel of each
	for y, gene := range l.rowOrder {
		for x, sample := range l.colOrder {
			expect := colors[r.Scale.Bin(l.scaled[gene][sample], l.limit)]
			c.Check(img.RGBAAt(left+x*cw+cw/2, top+y*ch+ch/2), check.Equals, expect, check.Commentf("gene %d sample %d", gene, sample))
		}
	}

	// mutation bar, then treatment bar
	_, trtColors := categoryColors([]string{"vehicle", "AG-221"})
	for x, sample := range l.colOrder {
		px := left + x*cw + cw/2
		c.Check(img.RGBAAt(px, r.barsTop()+barHeight/2), check.Equals, mutationColors[ann[sample].Mutation], check.Commentf("sample %d", sample))
		c.Check(img.RGBAAt(px, r.barsTop()+barHeight+2+barHeight/2), check.Equals, trtColors[ann[sample].Treatment], check.Commentf("sample %d", sample))
	}

	// nothing (e.g., gene labels) between the row dendrogram and the grid
	for py := top; py < top+len(l.rowOrder)*ch; py++ {
		for px := left - gap + 1; px < left; px++ {
			c.Check(img.RGBAAt(px, py), check.Equals, white, check.Commentf("x %d y %d", px, py))
		}
	}
}

func (s *renderSuite) TestRenderFileStdout(c *check.C) {
	fm, ann := testFiltered(c)
	r := DefaultRenderer
	c.Check(r.RenderFile("-", fm, ann), check.ErrorMatches, `heatmap: cannot render to stdout.*`)
}
