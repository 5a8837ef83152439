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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

// Bilinear holds bilinear_interp(data_in, data_out[, y_out, x_out, y_in,
// x_in]), which interpolates the two dimensional data_in onto the grid
// of data_out, and bilinear_interp_wrap, which also wraps the x axis
// around 360 degrees. Without the coordinate arguments the coordinate
// variables named after the dimensions are used.
type Bilinear struct{}

func (Bilinear) Funcs() []Func { return funcs("bilinear_interp", "bilinear_interp_wrap") }

func (Bilinear) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if len(c.Args) != 2 && len(c.Args) != 6 {
		return nil, argError(c, "requires 2 or 6 arguments, got %d", len(c.Args))
	}
	vs, err := evalAll(w, c.Args[:2])
	if err != nil {
		return nil, err
	}
	if anyUndefined(vs...) {
		return ncvar.NewUndefined(vs[1].Name), nil
	}
	in, tmpl := vs[0], vs[1]
	if in.Rank() != 2 || tmpl.Rank() != 2 {
		return nil, argError(c, "input %s and output %s must both have two dimensions", in.Name, tmpl.Name)
	}
	if err := numeric(c, in); err != nil {
		return nil, err
	}
	out := ncvar.New(tmpl.Name, ncvar.Double, tmpl.Dims, false)
	out.SetMissing(in.MissingVar())
	if w.InitialScan() || !in.HasData() {
		return out, nil
	}

	crdNodes := c.Args[2:]
	if len(crdNodes) == 0 {
		for _, d := range []ncvar.Dim{tmpl.Dims[0], tmpl.Dims[1], in.Dims[0], in.Dims[1]} {
			crdNodes = append(crdNodes, ast.New(ast.VAR_ID, d.Name))
		}
	}
	lens := []int{tmpl.Dims[0].Len, tmpl.Dims[1].Len, in.Dims[0].Len, in.Dims[1].Len}
	crd := make([][]float64, 4)
	for i, n := range crdNodes {
		v, err := w.Out(n)
		if err != nil {
			return nil, err
		}
		if !v.HasData() || v.Len() != lens[i] {
			return nil, argError(c, "coordinate %s has %d elements, %d are needed", v.Name, v.Len(), lens[i])
		}
		crd[i] = v.Float64s()
	}
	yOut, xOut, yIn, xIn := crd[0], crd[1], crd[2], crd[3]

	grid := sparse.ZerosDense(len(yIn), len(xIn))
	missing := make(map[int]bool)
	for k := 0; k < in.Len(); k++ {
		if in.IsMissing(k) {
			missing[k] = true
		}
		grid.Elements[k] = in.Float64(k)
	}
	wrap := c.Code == 1
	out.Val = ncvar.Zero(ncvar.Double, out.Len())
	for j, y := range yOut {
		for i, x := range xOut {
			k := j*len(xOut) + i
			val, ok, err := bilinear(grid, missing, yIn, xIn, y, x, wrap)
			if err != nil {
				return nil, argError(c, "%v", err)
			}
			if !ok {
				if err := ncvar.PutOne(out, k, out.MissingVar()); err != nil {
					return nil, err
				}
				continue
			}
			out.SetFloat64(k, val)
		}
	}
	return out, nil
}

// bracket returns the index i such that x lies between crd[i] and
// crd[i+1], for monotonic crd.
func bracket(crd []float64, x float64) (int, bool) {
	if len(crd) == 1 {
		return 0, x == crd[0]
	}
	for i := 0; i < len(crd)-1; i++ {
		lo, hi := crd[i], crd[i+1]
		if lo > hi {
			lo, hi = hi, lo
		}
		if x >= lo && x <= hi {
			return i, true
		}
	}
	return 0, false
}

// linear interpolates between (x1, q1) and (x2, q2) at x.
func linear(x1, x2, x, q1, q2 float64) float64 {
	if x1 == x2 {
		return q1
	}
	return q1 + (q2-q1)*(x-x1)/(x2-x1)
}

// bilinear interpolates grid, whose coordinates are yIn and xIn, at
// (y, x). It returns false if one of the surrounding points is missing.
func bilinear(grid *sparse.DenseArray, missing map[int]bool, yIn, xIn []float64, y, x float64, wrap bool) (float64, bool, error) {
	j0, ok := bracket(yIn, y)
	if !ok {
		return 0, false, errOutside("y", y)
	}
	j1 := j0 + 1
	if len(yIn) == 1 {
		j1 = j0
	}
	nx := len(xIn)
	i0, ok := bracket(xIn, x)
	i1 := i0 + 1
	x0, x1 := 0.0, 0.0
	switch {
	case ok:
		if nx == 1 {
			i1 = i0
		}
		x0, x1 = xIn[i0], xIn[i1]
	case wrap && nx > 1:
		// Between the last and first columns, across the 360 degree seam.
		i0, i1 = nx-1, 0
		x0, x1 = xIn[nx-1], xIn[0]+360
		if x < x0 {
			x += 360
		}
		if x < x0 || x > x1 {
			return 0, false, errOutside("x", x)
		}
	default:
		return 0, false, errOutside("x", x)
	}
	for _, k := range []int{j0*nx + i0, j0*nx + i1, j1*nx + i0, j1*nx + i1} {
		if missing[k] {
			return 0, false, nil
		}
	}
	q0 := linear(x0, x1, x, grid.Get(j0, i0), grid.Get(j0, i1))
	q1 := linear(x0, x1, x, grid.Get(j1, i0), grid.Get(j1, i1))
	return linear(yIn[j0], yIn[j1], y, q0, q1), true, nil
}

func errOutside(axis string, v float64) error {
	return fmt.Errorf("output %s coordinate %g is outside the input grid", axis, v)
}

// Coord holds coord(coord_var, value), which returns the index of the
// element of the one dimensional coord_var nearest to value, or -1 if
// value lies outside the range of coord_var.
type Coord struct{}

func (Coord) Funcs() []Func { return funcs("coord") }

func (Coord) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if err := needArgs(c, 2, 2); err != nil {
		return nil, err
	}
	vs, err := evalAll(w, c.Args)
	if err != nil {
		return nil, err
	}
	if anyUndefined(vs...) {
		return ncvar.NewUndefined(c.Name), nil
	}
	crd, val := vs[0], vs[1]
	if crd.Rank() != 1 {
		return nil, argError(c, "coordinate %s must have one dimension", crd.Name)
	}
	if err := numeric(c, crd); err != nil {
		return nil, err
	}
	if w.InitialScan() || !crd.HasData() || !val.HasData() {
		return ncvar.NewInt(c.Name, 0).Meta(), nil
	}
	x := val.Float64(0)
	if _, ok := bracket(crd.Float64s(), x); !ok {
		return ncvar.NewInt(c.Name, -1), nil
	}
	best, dist := 0, math.Inf(1)
	for i := 0; i < crd.Len(); i++ {
		if d := math.Abs(crd.Float64(i) - x); d < dist {
			best, dist = i, d
		}
	}
	return ncvar.NewInt(c.Name, int32(best)), nil
}
