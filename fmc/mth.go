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

	"github.com/spatialmodel/ncap/ncvar"
)

// mathFuncs are the single argument math functions, in code order.
var mathFuncs = []struct {
	name string
	f    func(float64) float64
}{
	{"sin", math.Sin},
	{"cos", math.Cos},
	{"tan", math.Tan},
	{"asin", math.Asin},
	{"acos", math.Acos},
	{"atan", math.Atan},
	{"sinh", math.Sinh},
	{"cosh", math.Cosh},
	{"tanh", math.Tanh},
	{"asinh", math.Asinh},
	{"acosh", math.Acosh},
	{"atanh", math.Atanh},
	{"exp", math.Exp},
	{"log", math.Log},
	{"ln", math.Log},
	{"log10", math.Log10},
	{"sqrt", math.Sqrt},
	{"ceil", math.Ceil},
	{"floor", math.Floor},
	{"round", math.Round},
	{"trunc", math.Trunc},
	{"rint", math.RoundToEven},
	{"nearbyint", math.RoundToEven},
	{"erf", math.Erf},
	{"erfc", math.Erfc},
	{"gamma", math.Gamma},
	{"fabs", math.Abs},
}

// Math holds the single argument math functions. Integer arguments are
// converted to double; float arguments stay float.
type Math struct{}

func (Math) Funcs() []Func {
	f := make([]Func, len(mathFuncs))
	for i, m := range mathFuncs {
		f[i] = Func{Name: m.name, Code: i}
	}
	return f
}

func (Math) Eval(w Walker, c Call) (*ncvar.Var, error) {
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
	if !v.Type.IsFloat() {
		v = v.Convert(ncvar.Double)
	}
	if w.InitialScan() || !v.HasData() {
		return v.Meta(), nil
	}
	apply(v, mathFuncs[c.Code].f)
	return v, nil
}

// apply replaces every element of v that is not missing with f of it.
func apply(v *ncvar.Var, f func(float64) float64) {
	for i := 0; i < v.Len(); i++ {
		if !v.IsMissing(i) {
			v.SetFloat64(i, f(v.Float64(i)))
		}
	}
}

// Math2 holds pow, atan2 and convert.
type Math2 struct{}

const (
	mth2Pow = iota
	mth2Atan2
	mth2Convert
)

func (Math2) Funcs() []Func { return funcs("pow", "atan2", "convert") }

func (Math2) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if err := needArgs(c, 2, 2); err != nil {
		return nil, err
	}
	if c.Code == mth2Convert {
		v, err := w.Out(c.Args[0])
		if err != nil {
			return nil, err
		}
		t, err := intArg(w, c, c.Args[1])
		if err != nil {
			return nil, err
		}
		if v.Undefined {
			return v, nil
		}
		if !ncvar.Type(t).Valid() {
			return nil, argError(c, "%d is not a valid type", t)
		}
		return v.Convert(ncvar.Type(t)), nil
	}

	vs, err := evalAll(w, c.Args)
	if err != nil {
		return nil, err
	}
	if anyUndefined(vs...) {
		return ncvar.NewUndefined(vs[0].Name), nil
	}
	if c.Code == mth2Pow {
		return ncvar.Binary(vs[0], vs[1], ncvar.Pow)
	}
	for _, v := range vs {
		if err := numeric(c, v); err != nil {
			return nil, err
		}
	}
	t := ncvar.Highest(vs[0].Type, vs[1].Type)
	if !t.IsFloat() {
		t = ncvar.Double
	}
	y, x, err := ncvar.Conform(vs[0].Convert(t), vs[1].Convert(t))
	if err != nil {
		return nil, argError(c, "%v", err)
	}
	out := y.Dup()
	if w.InitialScan() || !y.HasData() || !x.HasData() {
		return out.Meta(), nil
	}
	for i := 0; i < out.Len(); i++ {
		if y.IsMissing(i) || x.IsMissing(i) {
			continue
		}
		out.SetFloat64(i, math.Atan2(y.Float64(i), x.Float64(i)))
	}
	return out, nil
}

// Unary holds abs and sqr, which keep the type of their argument.
type Unary struct{}

func (Unary) Funcs() []Func { return funcs("abs", "sqr") }

func (Unary) Eval(w Walker, c Call) (*ncvar.Var, error) {
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
	if w.InitialScan() || !v.HasData() {
		return v.Meta(), nil
	}
	if c.Code == 0 {
		apply(v, math.Abs)
	} else {
		apply(v, func(x float64) float64 { return x * x })
	}
	return v, nil
}

// Conversion holds the functions named after types, which convert
// their argument to that type.
type Conversion struct{}

var conversionTypes = []ncvar.Type{ncvar.Byte, ncvar.UByte, ncvar.Short, ncvar.UShort, ncvar.Int,
	ncvar.UInt, ncvar.Int64, ncvar.UInt64, ncvar.Float, ncvar.Double, ncvar.Char}

func (Conversion) Funcs() []Func {
	f := make([]Func, len(conversionTypes))
	for i, t := range conversionTypes {
		f[i] = Func{Name: t.String(), Code: i}
	}
	return f
}

func (Conversion) Eval(w Walker, c Call) (*ncvar.Var, error) {
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
	return v.Convert(conversionTypes[c.Code]), nil
}
