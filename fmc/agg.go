/*
Copyright © 2017 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package fmc

import (
	"math"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/spatialmodel/ncap/ncvar"
	"gonum.org/v1/gonum/floats"
)

// reduction maps each element of a value to its element in the result
// of reducing the value over some of its dimensions.
type reduction struct {
	dims []ncvar.Dim // shape of the result
	grp  []int       // result element of each input element
	n    int         // number of result elements
}

// newReduction reduces v over the named dimensions, or over all of its
// dimensions if over is empty. Names that are not dimensions of v are
// ignored.
func newReduction(v *ncvar.Var, over []string) *reduction {
	red := make([]bool, v.Rank())
	for i := range red {
		red[i] = len(over) == 0
	}
	for _, d := range over {
		if i := v.DimIndex(d); i >= 0 {
			red[i] = true
		}
	}
	r := &reduction{grp: make([]int, v.Len()), n: 1}
	var keep []int
	for i, d := range v.Dims {
		if !red[i] {
			r.dims = append(r.dims, d)
			r.n *= d.Len
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return r
	}
	shape := v.Shape()
	for k := range r.grp {
		c := ncvar.Unravel(shape, k)
		g := 0
		for _, i := range keep {
			g = g*shape[i] + c[i]
		}
		r.grp[k] = g
	}
	return r
}

// collect returns the values of v that are not missing, by group.
func (r *reduction) collect(v *ncvar.Var) [][]float64 {
	g := make([][]float64, r.n)
	for k, gi := range r.grp {
		if !v.IsMissing(k) {
			g[gi] = append(g[gi], v.Float64(k))
		}
	}
	return g
}

// Aggregate holds the functions that reduce a value over some or all
// of its dimensions, e.g. avg(var, $time).
type Aggregate struct{}

const (
	aggAvg = iota
	aggAvgSqr
	aggMabs
	aggMebs
	aggMibs
	aggMax
	aggMin
	aggRMS
	aggRMSSdn
	aggSqrAvg
	aggTtl
)

func (Aggregate) Funcs() []Func {
	return funcs("avg", "avgsqr", "mabs", "mebs", "mibs", "max", "min", "rms", "rmssdn", "sqravg", "ttl")
}

func (Aggregate) Eval(w Walker, c Call) (*ncvar.Var, error) {
	exprs, dims := splitDims(c.Args)
	if len(exprs) != 1 {
		return nil, argError(c, "requires one variable argument followed by optional dimensions")
	}
	v, err := w.Out(exprs[0])
	if err != nil {
		return nil, err
	}
	if v.Undefined {
		return v, nil
	}
	if err := numeric(c, v); err != nil {
		return nil, err
	}
	r := newReduction(v, dims)
	out := ncvar.New(v.Name, v.Type, r.dims, false)
	out.SetMissing(v.MissingVar())
	if w.InitialScan() || !v.HasData() {
		return out, nil
	}
	out.Val = ncvar.Zero(out.Type, out.Len())
	for g, vals := range r.collect(v) {
		f, ok := aggregate(c.Code, vals)
		if !ok {
			if miss := v.MissingVar(); miss != nil {
				if err := ncvar.PutOne(out, g, miss); err != nil {
					return nil, err
				}
			}
			continue
		}
		if out.Type.IsInteger() {
			f = math.Round(f)
		}
		out.SetFloat64(g, f)
	}
	return out, nil
}

// aggregate applies the aggregation code to vals. It returns false if
// the aggregate is not defined for vals.
func aggregate(code int, vals []float64) (float64, bool) {
	n := float64(len(vals))
	if len(vals) == 0 || (code == aggRMSSdn && len(vals) < 2) {
		return 0, false
	}
	switch code {
	case aggAvg:
		return stats.StatsMean(vals), true
	case aggAvgSqr:
		return floats.Dot(vals, vals) / n, true
	case aggMabs:
		return floats.Max(abs(vals)), true
	case aggMebs:
		return floats.Sum(abs(vals)) / n, true
	case aggMibs:
		return floats.Min(abs(vals)), true
	case aggMax:
		return floats.Max(vals), true
	case aggMin:
		return floats.Min(vals), true
	case aggRMS:
		return math.Sqrt(floats.Dot(vals, vals) / n), true
	case aggRMSSdn:
		return math.Sqrt(floats.Dot(vals, vals) / (n - 1)), true
	case aggSqrAvg:
		m := stats.StatsMean(vals)
		return m * m, true
	case aggTtl:
		return floats.Sum(vals), true
	}
	return 0, false
}

func abs(vals []float64) []float64 {
	a := make([]float64, len(vals))
	for i, v := range vals {
		a[i] = math.Abs(v)
	}
	return a
}

// AggIndex holds min_index and max_index, which return the position of
// the extreme value. Without dimension arguments the result holds the
// index along each dimension of the first extreme element; with one
// dimension argument it holds, for every other position, the index
// along that dimension.
type AggIndex struct{}

func (AggIndex) Funcs() []Func { return funcs("min_index", "max_index") }

func (AggIndex) Eval(w Walker, c Call) (*ncvar.Var, error) {
	exprs, dims := splitDims(c.Args)
	if len(exprs) != 1 || len(dims) > 1 {
		return nil, argError(c, "requires one variable argument and at most one dimension")
	}
	v, err := w.Out(exprs[0])
	if err != nil {
		return nil, err
	}
	if v.Undefined {
		return v, nil
	}
	if err := numeric(c, v); err != nil {
		return nil, err
	}
	isMax := c.Code == 1
	better := func(a, b float64) bool {
		if isMax {
			return a > b
		}
		return a < b
	}

	if len(dims) == 0 {
		n := v.Rank()
		if n == 0 {
			n = 1
		}
		out := &ncvar.Var{Name: v.Name, Type: ncvar.Int, Sz: n}
		if w.InitialScan() || !v.HasData() {
			return out, nil
		}
		out.Val = make([]int32, n)
		best := -1
		for k := 0; k < v.Len(); k++ {
			if !v.IsMissing(k) && (best < 0 || better(v.Float64(k), v.Float64(best))) {
				best = k
			}
		}
		if best >= 0 && v.Rank() > 0 {
			for i, x := range ncvar.Unravel(v.Shape(), best) {
				out.Val.([]int32)[i] = int32(x)
			}
		}
		return out, nil
	}

	di := v.DimIndex(dims[0])
	if di < 0 {
		return nil, argError(c, "%s is not a dimension of %s", dims[0], v.Name)
	}
	r := newReduction(v, dims)
	out := ncvar.New(v.Name, ncvar.Int, r.dims, false)
	if w.InitialScan() || !v.HasData() {
		return out, nil
	}
	idx := make([]int32, r.n)
	best := make([]float64, r.n)
	found := make([]bool, r.n)
	shape := v.Shape()
	for k, g := range r.grp {
		if v.IsMissing(k) {
			continue
		}
		if x := v.Float64(k); !found[g] || better(x, best[g]) {
			found[g], best[g] = true, x
			idx[g] = int32(ncvar.Unravel(shape, k)[di])
		}
	}
	out.Val = idx
	return out, nil
}
