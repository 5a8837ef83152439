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

	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
	"gonum.org/v1/gonum/floats"
)

// PDQ holds reverse and permute, which reorder the elements of a value
// along its dimensions.
type PDQ struct{}

const (
	pdqReverse = iota
	pdqPermute
)

func (PDQ) Funcs() []Func { return funcs("reverse", "permute") }

func (PDQ) Eval(w Walker, c Call) (*ncvar.Var, error) {
	exprs, dims := splitDims(c.Args)
	if len(exprs) != 1 {
		return nil, argError(c, "requires one variable argument followed by dimensions")
	}
	v, err := w.Out(exprs[0])
	if err != nil {
		return nil, err
	}
	if v.Undefined {
		return v, nil
	}
	for _, d := range dims {
		if v.DimIndex(d) < 0 {
			return nil, argError(c, "%s is not a dimension of %s", d, v.Name)
		}
	}
	if c.Code == pdqPermute {
		if len(dims) != v.Rank() {
			return nil, argError(c, "%s has %d dimensions but %d were given", v.Name, v.Rank(), len(dims))
		}
		p, err := ncvar.PermuteTo(v, dims)
		if err != nil {
			return nil, argError(c, "%v", err)
		}
		if w.InitialScan() {
			return p.Meta(), nil
		}
		return p, nil
	}

	if w.InitialScan() || !v.HasData() || v.Rank() == 0 {
		if w.InitialScan() {
			return v.Meta(), nil
		}
		return v, nil
	}
	if len(dims) == 0 {
		dims = v.DimNames()
	}
	rev := make([]bool, v.Rank())
	for _, d := range dims {
		rev[v.DimIndex(d)] = true
	}
	shape := v.Shape()
	idx := make([]int, v.Len())
	for k := range idx {
		src := 0
		for i, x := range ncvar.Unravel(shape, k) {
			if rev[i] {
				x = shape[i] - 1 - x
			}
			src = src*shape[i] + x
		}
		idx[k] = src
	}
	return ncvar.Take(v, idx), nil
}

// Mask holds mask(var, value), which returns an int value of var's
// shape that is 1 where var equals value and 0 elsewhere.
type Mask struct{}

func (Mask) Funcs() []Func { return funcs("mask") }

func (Mask) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if err := needArgs(c, 2, 2); err != nil {
		return nil, err
	}
	vs, err := evalAll(w, c.Args)
	if err != nil {
		return nil, err
	}
	if anyUndefined(vs...) {
		return ncvar.NewUndefined(vs[0].Name), nil
	}
	v, val := vs[0], vs[1]
	v.Missing, val.Missing = nil, nil
	m, err := ncvar.Binary(v, val, ncvar.Eq)
	if err != nil {
		return nil, argError(c, "%v", err)
	}
	m = m.Convert(ncvar.Int)
	m.Name = v.Name
	if w.InitialScan() {
		return m.Meta(), nil
	}
	return m, nil
}

// Pack holds the functions that pack a value into a smaller integer
// type with a scale factor and offset, and unpack, which reverses it.
type Pack struct{}

const (
	pckPack = iota
	pckByte
	pckChar
	pckShort
	pckInt
	pckUnpack
)

func (Pack) Funcs() []Func {
	return funcs("pack", "pack_byte", "pack_char", "pack_short", "pack_int", "unpack")
}

func (Pack) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if err := needArgs(c, 1, 1); err != nil {
		return nil, err
	}
	v, err := w.Out(c.Args[0])
	if err != nil {
		return nil, err
	}
	if v.Undefined {
		return v, nil
	}
	if err := numeric(c, v); err != nil {
		return nil, err
	}
	if c.Code == pckUnpack {
		return unpack(w, c, v)
	}

	t := ncvar.Short
	switch c.Code {
	case pckByte:
		t = ncvar.Byte
	case pckChar:
		t = ncvar.Char
	case pckInt:
		t = ncvar.Int
	}
	out := ncvar.New(v.Name, t, v.Dims, false)
	out.Sz = v.Len()
	if v.HasMissing() {
		out.SetMissing(ncvar.DefaultFill(t))
	}
	if w.InitialScan() || !v.HasData() {
		out.Pack = &ncvar.Packing{Scale: 1}
		return out, nil
	}
	var vals []float64
	for i := 0; i < v.Len(); i++ {
		if !v.IsMissing(i) {
			vals = append(vals, v.Float64(i))
		}
	}
	p := ncvar.Packing{Scale: 0}
	if len(vals) > 0 {
		lo, hi := floats.Min(vals), floats.Max(vals)
		// Signed types are centered on zero; char is unsigned.
		ndrv := 2 * (math.Pow(2, float64(8*t.Size()-1)) - 1)
		p.Offset = (hi + lo) / 2
		if t == ncvar.Char {
			p.Offset = lo
		}
		p.Scale = (hi - lo) / ndrv
	}
	out.Val = ncvar.Zero(t, out.Len())
	for i := 0; i < v.Len(); i++ {
		if v.IsMissing(i) {
			if err := ncvar.PutOne(out, i, out.MissingVar()); err != nil {
				return nil, err
			}
			continue
		}
		if p.Scale != 0 {
			out.SetFloat64(i, math.Round((v.Float64(i)-p.Offset)/p.Scale))
		}
	}
	out.Pack = &p
	return out, nil
}

// unpack applies the packing of v, taken from v itself or from the
// scale_factor and add_offset attributes of the variable it names.
func unpack(w Walker, c Call, v *ncvar.Var) (*ncvar.Var, error) {
	p := v.Pack
	t := ncvar.Float
	if p == nil && c.Args[0].Is(ast.VAR_ID) {
		pp := ncvar.Packing{Scale: 1}
		found := false
		for _, a := range []struct {
			name string
			dst  *float64
		}{{"scale_factor", &pp.Scale}, {"add_offset", &pp.Offset}} {
			name := c.Args[0].Text + "@" + a.name
			if !w.VarExists(name) {
				continue
			}
			att, err := w.Out(ast.New(ast.ATT_ID, name))
			if err != nil {
				return nil, err
			}
			found = true
			t = ncvar.Highest(t, att.Type)
			if att.HasData() && att.Len() > 0 {
				*a.dst = att.Float64(0)
			}
		}
		if found {
			p = &pp
		}
	}
	if p == nil {
		return v, nil
	}
	out := ncvar.New(v.Name, t, v.Dims, false)
	out.Sz = v.Len()
	if v.HasMissing() {
		out.SetMissing(ncvar.DefaultFill(t))
	}
	if w.InitialScan() || !v.HasData() {
		return out, nil
	}
	out.Val = ncvar.Zero(t, out.Len())
	for i := 0; i < v.Len(); i++ {
		if v.IsMissing(i) {
			if err := ncvar.PutOne(out, i, out.MissingVar()); err != nil {
				return nil, err
			}
			continue
		}
		out.SetFloat64(i, v.Float64(i)*p.Scale+p.Offset)
	}
	return out, nil
}

// Array holds array(start, increment, template), which returns a value
// shaped like the template whose elements are start, start+increment,
// start+2*increment and so on. The template is a dimension or a value.
type Array struct{}

func (Array) Funcs() []Func { return funcs("array") }

func (Array) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if err := needArgs(c, 3, 3); err != nil {
		return nil, err
	}
	vs, err := evalAll(w, c.Args[:2])
	if err != nil {
		return nil, err
	}
	start, inc := vs[0], vs[1]
	var dims []ncvar.Dim
	sz := 1
	if tn := c.Args[2]; tn.Is(ast.DIM_ID) {
		n, ok := w.DimSize(tn.Text)
		if !ok {
			if w.InitialScan() {
				return ncvar.NewUndefined(c.Name), nil
			}
			return nil, argError(c, "unable to find dimension %s", tn.Text)
		}
		dims, sz = []ncvar.Dim{{Name: tn.Text, Len: n}}, n
	} else {
		tmpl, err := w.Out(tn)
		if err != nil {
			return nil, err
		}
		if tmpl.Undefined {
			return tmpl, nil
		}
		dims, sz = tmpl.Dims, tmpl.Len()
	}
	if anyUndefined(start, inc) {
		return ncvar.NewUndefined(c.Name), nil
	}
	if err := numeric(c, start); err != nil {
		return nil, err
	}
	if err := numeric(c, inc); err != nil {
		return nil, err
	}
	t := ncvar.Highest(start.Type, inc.Type)
	out := ncvar.New(c.Name, t, dims, false)
	out.Sz = sz
	if w.InitialScan() || !start.HasData() || !inc.HasData() {
		return out, nil
	}
	out.Val = ncvar.Zero(t, sz)
	s0, d := start.Float64(0), inc.Float64(0)
	if sz == 1 {
		out.SetFloat64(0, s0)
		return out, nil
	}
	vals := floats.Span(make([]float64, sz), s0, s0+d*float64(sz-1))
	for i, x := range vals {
		out.SetFloat64(i, x)
	}
	return out, nil
}
