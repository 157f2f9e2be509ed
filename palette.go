// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package varheat

import (
	"image/color"
	"math"
	"sort"
)

// DivergingScale maps values in [-limit, limit] onto Bins discrete
// colors interpolated from Low through Mid to High.
type DivergingScale struct {
	Low, Mid, High color.RGBA
	Bins           int
}

var DefaultScale = DivergingScale{
	Low:  color.RGBA{0, 0, 128, 255},     // navy
	Mid:  color.RGBA{255, 255, 255, 255}, // white
	High: color.RGBA{205, 38, 38, 255},   // firebrick3
	Bins: 25,
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + t*(float64(y)-float64(x))))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// Colors returns the Bins colors of the scale, lowest first.
func (s DivergingScale) Colors() []color.RGBA {
	if s.Bins < 2 {
		return []color.RGBA{s.Mid}
	}
	colors := make([]color.RGBA, s.Bins)
	for i := range colors {
		t := float64(i) / float64(s.Bins-1)
		if t <= 0.5 {
			colors[i] = lerp(s.Low, s.Mid, 2*t)
		} else {
			colors[i] = lerp(s.Mid, s.High, 2*t-1)
		}
	}
	return colors
}

// Bin returns the index of the bin containing v, for a scale
// spanning [-limit, limit]. Out-of-range values are clamped.
func (s DivergingScale) Bin(v, limit float64) int {
	bins := s.Bins
	if bins < 2 {
		return 0
	}
	if limit <= 0 || math.IsNaN(v) {
		return bins / 2
	}
	bin := int(math.Floor((v + limit) / (2 * limit) * float64(bins)))
	if bin < 0 {
		bin = 0
	} else if bin >= bins {
		bin = bins - 1
	}
	return bin
}

// Qualitative colors for mutation groups; anything else is gray.
var mutationColors = map[string]color.RGBA{
	"TET2":          {228, 26, 28, 255},
	"IDH2":          {55, 126, 184, 255},
	"WT":            {77, 175, 74, 255},
	MutationUnknown: {153, 153, 153, 255},
}

// Qualitative palette for other categorical annotations.
var qualitativePalette = []color.RGBA{
	{102, 194, 165, 255},
	{252, 141, 98, 255},
	{141, 160, 203, 255},
	{231, 138, 195, 255},
	{166, 216, 84, 255},
	{255, 217, 47, 255},
	{229, 196, 148, 255},
	{179, 179, 179, 255},
}

// categoryColors assigns a color to each distinct value, in sorted
// order, cycling through the qualitative palette if needed.
func categoryColors(values []string) (names []string, colors map[string]color.RGBA) {
	colors = map[string]color.RGBA{}
	for _, v := range values {
		colors[v] = color.RGBA{}
	}
	for v := range colors {
		names = append(names, v)
	}
	sort.Strings(names)
	for i, v := range names {
		colors[v] = qualitativePalette[i%len(qualitativePalette)]
	}
	return names, colors
}

// mutationLegend returns the mutation groups present in values, in
// MutationPrefixes order followed by "unknown".
func mutationLegend(values []string) (names []string, colors map[string]color.RGBA) {
	present := map[string]bool{}
	for _, v := range values {
		present[v] = true
	}
	for _, name := range append(append([]string(nil), MutationPrefixes...), MutationUnknown) {
		if present[name] {
			names = append(names, name)
		}
	}
	colors = make(map[string]color.RGBA, len(mutationColors))
	for name, c := range mutationColors {
		colors[name] = c
	}
	// groups added to MutationPrefixes at runtime
	extra := 0
	for _, name := range names {
		if _, ok := colors[name]; !ok {
			colors[name] = qualitativePalette[extra%len(qualitativePalette)]
			extra++
		}
	}
	return names, colors
}
