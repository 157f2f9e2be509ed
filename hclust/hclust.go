// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package hclust implements agglomerative hierarchical clustering
// over Euclidean distances, producing dendrograms whose leaf order
// can be used to lay out heatmap rows and columns.
package hclust

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type Linkage int

const (
	Complete Linkage = iota
	Average
	Single
)

var linkageNames = map[string]Linkage{
	"complete": Complete,
	"average":  Average,
	"single":   Single,
}

func ParseLinkage(s string) (Linkage, error) {
	l, ok := linkageNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown linkage method %q (expected complete, average, or single)", s)
	}
	return l, nil
}

func (l Linkage) String() string {
	for name, ll := range linkageNames {
		if ll == l {
			return name
		}
	}
	return fmt.Sprintf("Linkage(%d)", int(l))
}

// update returns the distance from the union of clusters a and b
// (sizes na, nb) to some other cluster x, given dax and dbx
// (Lance-Williams).
func (l Linkage) update(dax, dbx float64, na, nb int) float64 {
	switch l {
	case Single:
		return math.Min(dax, dbx)
	case Average:
		return (float64(na)*dax + float64(nb)*dbx) / float64(na+nb)
	default:
		return math.Max(dax, dbx)
	}
}

// Distances is a condensed symmetric distance matrix over n items.
type Distances struct {
	n int
	d []float64
}

func NewDistances(n int) *Distances {
	return &Distances{n: n, d: make([]float64, n*(n-1)/2)}
}

func (d *Distances) Len() int { return d.n }

func (d *Distances) index(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return i*d.n - i*(i+1)/2 + j - i - 1
}

func (d *Distances) At(i, j int) float64 {
	if i == j {
		return 0
	}
	return d.d[d.index(i, j)]
}

func (d *Distances) Set(i, j int, v float64) {
	if i == j {
		return
	}
	d.d[d.index(i, j)] = v
}

// EuclideanRows returns the pairwise Euclidean distances between
// the rows of m.
func EuclideanRows(m mat.Matrix) *Distances {
	rows, cols := m.Dims()
	vecs := make([][]float64, rows)
	for i := range vecs {
		vecs[i] = mat.Row(make([]float64, cols), i, m)
	}
	d := NewDistances(rows)
	for i := 0; i < rows; i++ {
		for j := i + 1; j < rows; j++ {
			d.Set(i, j, floats.Distance(vecs[i], vecs[j], 2))
		}
	}
	return d
}

// EuclideanCols returns the pairwise Euclidean distances between
// the columns of m.
func EuclideanCols(m mat.Matrix) *Distances {
	return EuclideanRows(m.T())
}

// Merge records one agglomeration step. Node IDs 0..N-1 are leaves;
// the cluster created by Merges[i] has ID N+i. A < B always, so a
// leaf sorts before a cluster, and an older cluster before a newer
// one.
type Merge struct {
	A, B   int
	Height float64
	Size   int
}

type Dendrogram struct {
	N      int
	Merges []Merge
}

// Cluster builds a dendrogram from the given distances using the
// nearest-neighbor chain algorithm. Ties are resolved in favor of
// the lowest item index, so the result is deterministic.
func Cluster(dist *Distances, linkage Linkage) *Dendrogram {
	n := dist.Len()
	dg := &Dendrogram{N: n}
	if n < 2 {
		return dg
	}
	d := &Distances{n: n, d: append([]float64(nil), dist.d...)}
	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}

	type step struct {
		a, b   int // slots; the merged cluster lives on in slot b
		height float64
	}
	steps := make([]step, 0, n-1)
	chain := make([]int, 0, n)
	for len(steps) < n-1 {
		if len(chain) == 0 {
			for i, ok := range active {
				if ok {
					chain = append(chain, i)
					break
				}
			}
		}
		var a, b int
		var best float64
		for {
			a = chain[len(chain)-1]
			// On ties, stay with the previous chain element
			// (guarantees termination), otherwise take the
			// lowest index.
			b, best = -1, math.Inf(1)
			if len(chain) > 1 {
				b = chain[len(chain)-2]
				best = d.At(a, b)
			}
			for x, ok := range active {
				if !ok || x == a {
					continue
				}
				if dx := d.At(a, x); dx < best || b < 0 {
					b, best = x, dx
				}
			}
			if len(chain) > 1 && b == chain[len(chain)-2] {
				break
			}
			chain = append(chain, b)
		}
		chain = chain[:len(chain)-2]
		if a > b {
			a, b = b, a
		}
		for x, ok := range active {
			if !ok || x == a || x == b {
				continue
			}
			d.Set(b, x, linkage.update(d.At(a, x), d.At(b, x), size[a], size[b]))
		}
		active[a] = false
		size[b] += size[a]
		steps = append(steps, step{a: a, b: b, height: best})
	}

	// The chain algorithm finds merges out of height order; sort
	// them and relabel clusters the way a naive agglomeration
	// would have numbered them.
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].height < steps[j].height })
	parent := make([]int, n)
	label := make([]int, n)
	count := make([]int, n)
	for i := range parent {
		parent[i] = i
		label[i] = i
		count[i] = 1
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i, s := range steps {
		ra, rb := find(s.a), find(s.b)
		la, lb := label[ra], label[rb]
		if la > lb {
			la, lb = lb, la
		}
		parent[ra] = rb
		count[rb] += count[ra]
		label[rb] = n + i
		dg.Merges = append(dg.Merges, Merge{A: la, B: lb, Height: s.height, Size: count[rb]})
	}
	return dg
}

// Order returns the leaves in dendrogram order, left subtree first.
func (dg *Dendrogram) Order() []int {
	if dg.N == 0 {
		return nil
	}
	if len(dg.Merges) == 0 {
		order := make([]int, dg.N)
		for i := range order {
			order[i] = i
		}
		return order
	}
	order := make([]int, 0, dg.N)
	todo := []int{dg.N + len(dg.Merges) - 1}
	for len(todo) > 0 {
		node := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if node < dg.N {
			order = append(order, node)
			continue
		}
		m := dg.Merges[node-dg.N]
		todo = append(todo, m.B, m.A)
	}
	return order
}

// Height returns the merge height of the given node (0 for leaves).
func (dg *Dendrogram) Height(node int) float64 {
	if node < dg.N {
		return 0
	}
	return dg.Merges[node-dg.N].Height
}

// MaxHeight returns the height of the root merge.
func (dg *Dendrogram) MaxHeight() float64 {
	max := 0.0
	for _, m := range dg.Merges {
		if m.Height > max {
			max = m.Height
		}
	}
	return max
}
