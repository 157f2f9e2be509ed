// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/arvados/varheat/hclust"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Renderer draws a clustered heatmap of row-scaled expression
// values with dendrograms, sample annotation bars, sample labels,
// and legends.
type Renderer struct {
	Linkage hclust.Linkage
	Scale   DivergingScale
	// Cell size in pixels. CellHeight 0 means choose automatically
	// based on the number of genes.
	CellWidth  int
	CellHeight int
	// Dendrogram size in pixels.
	TreeSize      int
	ShowTreatment bool
}

var DefaultRenderer = Renderer{
	Linkage:       hclust.Complete,
	Scale:         DefaultScale,
	CellWidth:     16,
	TreeSize:      60,
	ShowTreatment: true,
}

const (
	margin          = 10
	gap             = 4
	barHeight       = 12
	legendSwatch    = 12
	legendBinHeight = 6
)

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
	face  = basicfont.Face7x13
)

// annotationTrack is one colored bar along the sample axis.
type annotationTrack struct {
	name   string
	values []string // one per sample, in matrix column order
	legend []string
	colors map[string]color.RGBA
}

// heatmapLayout is the result of clustering, before rasterizing.
type heatmapLayout struct {
	scaled   [][]float64 // scaled values, [gene][sample], original order
	rowTree  *hclust.Dendrogram
	colTree  *hclust.Dendrogram
	rowOrder []int
	colOrder []int
	limit    float64
	tracks   []annotationTrack
	samples  []string
}

func (r *Renderer) prepare(fm *FilteredMatrix, ann AnnotationTable) (*heatmapLayout, error) {
	genes, samples := fm.Dims()
	if genes == 0 || samples == 0 {
		return nil, fmt.Errorf("heatmap: %w", ErrEmptyResult)
	}
	lookup := ann.Lookup()
	mutations := make([]string, samples)
	treatments := make([]string, samples)
	for j, s := range fm.Samples {
		a, ok := lookup[s]
		if !ok {
			return nil, fmt.Errorf("heatmap: no annotation for sample %q", s)
		}
		mutations[j] = a.Mutation
		treatments[j] = a.Treatment
	}

	scaled := ScaleRows(fm.Values)
	log.Infof("clustering %d genes (%s linkage)", genes, r.Linkage)
	rowTree := hclust.Cluster(hclust.EuclideanRows(scaled), r.Linkage)
	log.Infof("clustering %d samples (%s linkage)", samples, r.Linkage)
	colTree := hclust.Cluster(hclust.EuclideanCols(scaled), r.Linkage)

	layout := &heatmapLayout{
		rowTree:  rowTree,
		colTree:  colTree,
		rowOrder: rowTree.Order(),
		colOrder: colTree.Order(),
		samples:  fm.Samples,
	}
	for i := 0; i < genes; i++ {
		row := scaled.RawRowView(i)
		layout.scaled = append(layout.scaled, row)
		for _, v := range row {
			layout.limit = math.Max(layout.limit, math.Abs(v))
		}
	}

	names, colors := mutationLegend(mutations)
	layout.tracks = append(layout.tracks, annotationTrack{name: "mutation", values: mutations, legend: names, colors: colors})
	if r.ShowTreatment {
		names, colors := categoryColors(treatments)
		layout.tracks = append(layout.tracks, annotationTrack{name: "treatment", values: treatments, legend: names, colors: colors})
	}
	return layout, nil
}

// Render clusters the filtered matrix and writes the heatmap to w
// as a PNG image.
func (r *Renderer) Render(w io.Writer, fm *FilteredMatrix, ann AnnotationTable) error {
	img, err := r.Image(fm, ann)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// RenderFile renders the heatmap into the named PNG file. Nothing is
// written if rendering fails. fnm must be a real file name, not "-".
func (r *Renderer) RenderFile(fnm string, fm *FilteredMatrix, ann AnnotationTable) error {
	if fnm == "-" {
		return errors.New("heatmap: cannot render to stdout by filename, use Render")
	}
	img, err := r.Image(fm, ann)
	if err != nil {
		return err
	}
	return writeFile(fnm, nil, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}

// Image returns the rasterized heatmap.
func (r *Renderer) Image(fm *FilteredMatrix, ann AnnotationTable) (image.Image, error) {
	if r.CellWidth < 1 || r.TreeSize < 0 || r.CellHeight < 0 {
		return nil, errors.New("heatmap: invalid renderer dimensions")
	}
	layout, err := r.prepare(fm, ann)
	if err != nil {
		return nil, err
	}
	return r.draw(layout), nil
}

func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

func (r *Renderer) draw(l *heatmapLayout) *image.RGBA {
	ngenes, nsamples := len(l.rowOrder), len(l.colOrder)
	cw := r.CellWidth
	ch := r.CellHeight
	if ch == 0 {
		ch = 600 / ngenes
		if ch < 1 {
			ch = 1
		} else if ch > 12 {
			ch = 12
		}
	}
	lineHeight := face.Metrics().Height.Ceil()

	maxLabel := 0
	for _, s := range l.samples {
		if w := textWidth(s); w > maxLabel {
			maxLabel = w
		}
	}
	maxTrackName := 0
	for _, t := range l.tracks {
		if w := textWidth(t.name); w > maxTrackName {
			maxTrackName = w
		}
	}

	tree := r.TreeSize
	colTreeTop := margin
	barsTop := r.barsTop()
	gridLeft, gridTop := r.gridOrigin(l)
	gridRight := gridLeft + nsamples*cw
	gridBottom := gridTop + ngenes*ch
	labelsBottom := gridBottom + gap + maxLabel

	legendLeft := gridRight + gap + maxTrackName + 3*gap
	legendRight, legendBottom := r.legendExtent(l, legendLeft, gridTop, lineHeight)

	width := legendRight + margin
	height := labelsBottom + margin
	if legendBottom+margin > height {
		height = legendBottom + margin
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)

	// cells
	colors := r.Scale.Colors()
	for y, gene := range l.rowOrder {
		row := l.scaled[gene]
		for x, sample := range l.colOrder {
			c := colors[r.Scale.Bin(row[sample], l.limit)]
			fill(img, gridLeft+x*cw, gridTop+y*ch, cw, ch, c)
		}
	}

	// annotation bars, with track names to the right
	for t, track := range l.tracks {
		top := barsTop + t*(barHeight+2)
		for x, sample := range l.colOrder {
			fill(img, gridLeft+x*cw, top, cw, barHeight, track.colors[track.values[sample]])
		}
		drawText(img, gridRight+gap, top+barHeight-2, track.name, black)
	}

	// sample labels, no gene labels
	for x, sample := range l.colOrder {
		drawTextDown(img, gridLeft+x*cw+(cw-lineHeight)/2, gridBottom+gap, l.samples[sample], black)
	}

	drawColumnTree(img, l.colTree, l.colOrder, gridLeft, cw, colTreeTop, tree)
	drawRowTree(img, l.rowTree, l.rowOrder, gridTop, ch, margin, tree)
	r.drawLegend(img, l, legendLeft, gridTop, lineHeight)
	return img
}

func (r *Renderer) barsTop() int {
	return margin + r.TreeSize + gap
}

// gridOrigin returns the top left corner of the heatmap cells.
func (r *Renderer) gridOrigin(l *heatmapLayout) (left, top int) {
	return margin + r.TreeSize + gap, r.barsTop() + len(l.tracks)*(barHeight+2) + gap
}

// legendExtent returns the right and bottom edges of the legend
// drawn by drawLegend.
func (r *Renderer) legendExtent(l *heatmapLayout, left, top, lineHeight int) (right, bottom int) {
	right = left + legendSwatch + gap + textWidth(fmt.Sprintf("%.2f", -l.limit))
	if w := left + textWidth("z-score"); w > right {
		right = w
	}
	bottom = top + lineHeight + r.Scale.Bins*legendBinHeight
	for _, t := range l.tracks {
		bottom += 2*gap + lineHeight
		if w := left + textWidth(t.name); w > right {
			right = w
		}
		for _, name := range t.legend {
			bottom += legendSwatch + 2
			if w := left + legendSwatch + gap + textWidth(name); w > right {
				right = w
			}
		}
	}
	return
}

func (r *Renderer) drawLegend(img *image.RGBA, l *heatmapLayout, left, top, lineHeight int) {
	y := top
	drawText(img, left, y+lineHeight-3, "z-score", black)
	y += lineHeight
	colors := r.Scale.Colors()
	for i := range colors {
		// highest values at the top
		fill(img, left, y+i*legendBinHeight, legendSwatch, legendBinHeight, colors[len(colors)-1-i])
	}
	barBottom := y + len(colors)*legendBinHeight
	drawText(img, left+legendSwatch+gap, y+lineHeight-3, fmt.Sprintf("%.2f", l.limit), black)
	drawText(img, left+legendSwatch+gap, (y+barBottom)/2+lineHeight/2-3, "0", black)
	drawText(img, left+legendSwatch+gap, barBottom, fmt.Sprintf("%.2f", -l.limit), black)
	y = barBottom

	for _, t := range l.tracks {
		y += 2 * gap
		drawText(img, left, y+lineHeight-3, t.name, black)
		y += lineHeight
		for _, name := range t.legend {
			fill(img, left, y, legendSwatch, legendSwatch, t.colors[name])
			drawText(img, left+legendSwatch+gap, y+legendSwatch-2, name, black)
			y += legendSwatch + 2
		}
	}
}

// nodePositions returns the position (in leaf units, leaf i at
// order index i) of every node in the dendrogram.
func nodePositions(dg *hclust.Dendrogram, order []int) []float64 {
	pos := make([]float64, dg.N+len(dg.Merges))
	for i, leaf := range order {
		pos[leaf] = float64(i)
	}
	for i, m := range dg.Merges {
		pos[dg.N+i] = (pos[m.A] + pos[m.B]) / 2
	}
	return pos
}

// drawColumnTree draws the sample dendrogram above the grid, root at
// the top.
func drawColumnTree(img *image.RGBA, dg *hclust.Dendrogram, order []int, left, cw, top, size int) {
	if len(dg.Merges) == 0 || size == 0 {
		return
	}
	pos := nodePositions(dg, order)
	maxh := dg.MaxHeight()
	bottom := top + size
	x := func(node int) int { return left + int(pos[node]*float64(cw)) + cw/2 }
	y := func(node int) int {
		if maxh == 0 {
			return bottom
		}
		return bottom - int(math.Round(dg.Height(node)/maxh*float64(size)))
	}
	for i, m := range dg.Merges {
		node := dg.N + i
		ny := y(node)
		vline(img, x(m.A), ny, y(m.A), black)
		vline(img, x(m.B), ny, y(m.B), black)
		hline(img, x(m.A), x(m.B), ny, black)
	}
}

// drawRowTree draws the gene dendrogram left of the grid, root at
// the left.
func drawRowTree(img *image.RGBA, dg *hclust.Dendrogram, order []int, top, ch, left, size int) {
	if len(dg.Merges) == 0 || size == 0 {
		return
	}
	pos := nodePositions(dg, order)
	maxh := dg.MaxHeight()
	right := left + size
	y := func(node int) int { return top + int(pos[node]*float64(ch)) + ch/2 }
	x := func(node int) int {
		if maxh == 0 {
			return right
		}
		return right - int(math.Round(dg.Height(node)/maxh*float64(size)))
	}
	for i, m := range dg.Merges {
		node := dg.N + i
		nx := x(node)
		hline(img, nx, x(m.A), y(m.A), black)
		hline(img, nx, x(m.B), y(m.B), black)
		vline(img, nx, y(m.A), y(m.B), black)
	}
}

func fill(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	draw.Draw(img, image.Rect(x, y, x+w, y+h), image.NewUniform(c), image.Point{}, draw.Src)
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	fill(img, x0, y, x1-x0+1, 1, c)
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	fill(img, x, y0, 1, y1-y0+1, c)
}

// drawText draws s with its baseline at y.
func drawText(img draw.Image, x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

// drawTextDown draws s rotated 90 degrees clockwise (reading top to
// bottom), with the top-left corner of the rotated text at (x, y).
func drawTextDown(img *image.RGBA, x, y int, s string, c color.RGBA) {
	w := textWidth(s)
	h := face.Metrics().Height.Ceil()
	if w == 0 {
		return
	}
	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	drawText(tmp, 0, face.Metrics().Ascent.Ceil(), s, c)
	for ty := 0; ty < h; ty++ {
		for tx := 0; tx < w; tx++ {
			px := tmp.RGBAAt(tx, ty)
			if px.A == 0 {
				continue
			}
			dx, dy := x+h-1-ty, y+tx
			if !(image.Point{dx, dy}.In(img.Bounds())) {
				continue
			}
			img.SetRGBA(dx, dy, blend(img.RGBAAt(dx, dy), px))
		}
	}
}

// blend composites premultiplied src over dst.
func blend(dst, src color.RGBA) color.RGBA {
	a := 255 - uint32(src.A)
	return color.RGBA{
		R: uint8(uint32(src.R) + uint32(dst.R)*a/255),
		G: uint8(uint32(src.G) + uint32(dst.G)*a/255),
		B: uint8(uint32(src.B) + uint32(dst.B)*a/255),
		A: uint8(uint32(src.A) + uint32(dst.A)*a/255),
	}
}
