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
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"testing"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

// testWalker evaluates variable references, attribute references and
// literals from in-memory tables.
type testWalker struct {
	vars    map[string]*ncvar.Var
	dims    map[string]int
	initial bool
	out     bytes.Buffer
}

func newTestWalker() *testWalker {
	return &testWalker{vars: make(map[string]*ncvar.Var), dims: make(map[string]int)}
}

func (w *testWalker) Out(n *ast.Node) (*ncvar.Var, error) {
	switch n.Tag {
	case ast.VAR_ID, ast.ATT_ID:
		v, ok := w.vars[n.Text]
		if !ok {
			return nil, fmt.Errorf("unknown variable %s", n.Text)
		}
		return v.Dup(), nil
	case ast.NCAP_INT:
		i, err := strconv.Atoi(n.Text)
		return ncvar.NewInt("~int", int32(i)), err
	case ast.NCAP_DOUBLE:
		f, err := strconv.ParseFloat(n.Text, 64)
		return ncvar.NewDouble("~double", f), err
	case ast.NSTRING:
		return ncvar.NewChar("~string", n.Text), nil
	}
	return nil, fmt.Errorf("cannot evaluate %v", n)
}

func (w *testWalker) InitialScan() bool { return w.initial }
func (w *testWalker) Logger() logrus.FieldLogger { return logrus.StandardLogger() }
func (w *testWalker) Stdout() io.Writer { return &w.out }
func (w *testWalker) DimSize(name string) (int, bool) {
	n, ok := w.dims[name]
	return n, ok
}
func (w *testWalker) VarExists(name string) bool {
	_, ok := w.vars[name]
	return ok
}
func (w *testWalker) RAMWrite(name string) error { return nil }
func (w *testWalker) RAMDelete(name string) error {
	delete(w.vars, name)
	return nil
}
func (w *testWalker) SetVar(name string, v *ncvar.Var) error {
	w.vars[name] = v
	return nil
}

func (w *testWalker) VarNames(input bool) []string {
	var names []string
	for n := range w.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (w *testWalker) SetMissing(name string, m *ncvar.Var, change bool) error {
	v, ok := w.vars[name]
	if !ok {
		return fmt.Errorf("unknown variable %s", name)
	}
	v.SetMissing(m)
	return nil
}

func (w *testWalker) add(name string, dims []ncvar.Dim, val interface{}) *ncvar.Var {
	v, err := ncvar.FromValues(name, dims, val)
	if err != nil {
		panic(err)
	}
	w.vars[name] = v
	for _, d := range dims {
		w.dims[d.Name] = d.Len
	}
	return v
}

func call(t *testing.T, w Walker, name string, args ...*ast.Node) *ncvar.Var {
	t.Helper()
	r := Default()
	i, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("function %s not found", name)
	}
	v, err := r.Call(w, i, nil, args)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func varID(name string) *ast.Node { return ast.New(ast.VAR_ID, name) }
func dimID(name string) *ast.Node { return ast.New(ast.DIM_ID, name) }
func intLit(i int) *ast.Node { return ast.New(ast.NCAP_INT, strconv.Itoa(i)) }
func dblLit(f float64) *ast.Node { return ast.New(ast.NCAP_DOUBLE, strconv.FormatFloat(f, 'g', -1, 64)) }
func strLit(s string) *ast.Node { return ast.New(ast.NSTRING, s) }

var timeLat = []ncvar.Dim{{Name: "time", Len: 2}, {Name: "lat", Len: 3}}

func TestRegistry(t *testing.T) {
	r := Default()
	seen := make(map[string]bool)
	for i := 0; i < r.Len(); i++ {
		f, _ := r.Func(i)
		if seen[f.Name] {
			t.Errorf("duplicate function %s", f.Name)
		}
		seen[f.Name] = true
		if j, ok := r.Lookup(f.Name); !ok || j != i {
			t.Errorf("Lookup(%s): have %d, want %d", f.Name, j, i)
		}
	}
	for _, name := range []string{"avg", "min_index", "set_miss", "size", "sin", "pow", "int",
		"reverse", "mask", "abs", "pack", "sort", "array", "bilinear_interp", "coord",
		"get_vars_in", "sprint"} {
		if !seen[name] {
			t.Errorf("function %s is missing", name)
		}
	}
	if _, ok := r.Func(r.Len()); ok {
		t.Error("out of range index should not be found")
	}
}

func TestAggregate(t *testing.T) {
	w := newTestWalker()
	w.add("v", timeLat, []float64{1, 2, 3, 4, 5, 6})
	tests := []struct {
		name string
		args []*ast.Node
		dims []ncvar.Dim
		want []float64
	}{
		{"avg", []*ast.Node{varID("v")}, nil, []float64{3.5}},
		{"avg", []*ast.Node{varID("v"), dimID("time")}, timeLat[1:], []float64{2.5, 3.5, 4.5}},
		{"ttl", []*ast.Node{varID("v"), dimID("lat")}, timeLat[:1], []float64{6, 15}},
		{"max", []*ast.Node{varID("v"), dimID("time")}, timeLat[1:], []float64{4, 5, 6}},
		{"min", []*ast.Node{varID("v")}, nil, []float64{1}},
		{"sqravg", []*ast.Node{varID("v"), dimID("time")}, timeLat[1:], []float64{6.25, 12.25, 20.25}},
		{"avgsqr", []*ast.Node{varID("v"), dimID("lat")}, timeLat[:1], []float64{14.0 / 3, 77.0 / 3}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := call(t, w, test.name, test.args...)
			if !reflect.DeepEqual(v.Dims, test.dims) && len(v.Dims)+len(test.dims) > 0 {
				t.Errorf("dims: have %v, want %v", v.Dims, test.dims)
			}
			have := v.Float64s()
			if len(have) != len(test.want) {
				t.Fatalf("have %v, want %v", have, test.want)
			}
			for i := range have {
				if math.Abs(have[i]-test.want[i]) > 1e-12 {
					t.Errorf("have %v, want %v", have, test.want)
				}
			}
		})
	}
}

func TestAggregateMissing(t *testing.T) {
	w := newTestWalker()
	v := w.add("v", timeLat, []float64{1, -99, 3, -99, -99, 6})
	v.Missing = []float64{-99}
	r := call(t, w, "avg", varID("v"), dimID("time"))
	want := []float64{1, -99, 4.5}
	if diff := pretty.Diff(r.Val, want); len(diff) > 0 {
		t.Error(diff)
	}
}

func TestAggregateIntegerRounds(t *testing.T) {
	w := newTestWalker()
	w.add("i", []ncvar.Dim{{Name: "x", Len: 2}}, []int32{1, 2})
	r := call(t, w, "avg", varID("i"))
	if r.Type != ncvar.Int || r.Int64(0) != 2 {
		t.Errorf("have %v, want int 2", r)
	}
}

func TestAggregateInitialScan(t *testing.T) {
	w := newTestWalker()
	w.add("v", timeLat, []float64{1, 2, 3, 4, 5, 6})
	w.initial = true
	r := call(t, w, "avg", varID("v"), dimID("lat"))
	if r.HasData() || r.Len() != 2 || r.Type != ncvar.Double {
		t.Errorf("have %#v", r)
	}
}

func TestAggIndex(t *testing.T) {
	w := newTestWalker()
	w.add("v", timeLat, []float64{5, 1, 3, 4, 9, 2})
	if have, want := call(t, w, "min_index", varID("v")).Val, []int32{0, 1}; !reflect.DeepEqual(have, want) {
		t.Errorf("min_index: have %v, want %v", have, want)
	}
	if have, want := call(t, w, "max_index", varID("v")).Val, []int32{1, 1}; !reflect.DeepEqual(have, want) {
		t.Errorf("max_index: have %v, want %v", have, want)
	}
	if have, want := call(t, w, "max_index", varID("v"), dimID("lat")).Val, []int32{0, 1}; !reflect.DeepEqual(have, want) {
		t.Errorf("max_index over lat: have %v, want %v", have, want)
	}
}

func TestUtility(t *testing.T) {
	w := newTestWalker()
	w.add("v", []ncvar.Dim{{Name: "x", Len: 3}}, []float64{1, -1, 3})
	if r := call(t, w, "has_miss", varID("v")); r.Int64(0) != 0 {
		t.Error("v should have no missing value")
	}
	call(t, w, "set_miss", varID("v"), dblLit(-1))
	if r := call(t, w, "number_miss", varID("v")); r.Int64(0) != 1 {
		t.Errorf("number_miss: have %v, want 1", r)
	}
	if r := call(t, w, "get_miss", varID("v")); r.Float64(0) != -1 {
		t.Errorf("get_miss: have %v, want -1", r)
	}
	call(t, w, "delete_miss", varID("v"))
	if r := call(t, w, "get_miss", varID("v")); r.Float64(0) != 9.9692099683868690e+36 {
		t.Errorf("get_miss: have %v, want the default fill value", r)
	}
}

func TestBasic(t *testing.T) {
	w := newTestWalker()
	w.add("v", timeLat, make([]float32, 6))
	tests := []struct {
		name string
		want int64
	}{
		{"size", 6},
		{"ndims", 2},
		{"type", int64(ncvar.Float)},
		{"exists", 1},
	}
	for _, test := range tests {
		if have := call(t, w, test.name, varID("v")).Int64(0); have != test.want {
			t.Errorf("%s: have %d, want %d", test.name, have, test.want)
		}
	}
	if have := call(t, w, "exists", varID("nope")).Int64(0); have != 0 {
		t.Errorf("exists: have %d, want 0", have)
	}
	if have, want := call(t, w, "getdims", varID("v")).Val, []string{"time", "lat"}; !reflect.DeepEqual(have, want) {
		t.Errorf("getdims: have %v, want %v", have, want)
	}
}

func TestMath(t *testing.T) {
	w := newTestWalker()
	w.add("i", nil, []int32{4, 9})
	r := call(t, w, "sqrt", varID("i"))
	if want := []float64{2, 3}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("sqrt: have %#v, want %#v", r.Val, want)
	}
	w.add("f", nil, []float32{-1.5})
	r = call(t, w, "fabs", varID("f"))
	if want := []float32{1.5}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("fabs: have %#v, want %#v", r.Val, want)
	}
	r = call(t, w, "pow", intLit(2), intLit(3))
	if r.Float64(0) != 8 {
		t.Errorf("pow: have %v, want 8", r)
	}
	r = call(t, w, "atan2", dblLit(1), dblLit(1))
	if math.Abs(r.Float64(0)-math.Pi/4) > 1e-12 {
		t.Errorf("atan2: have %v", r)
	}
	r = call(t, w, "convert", dblLit(2.7), intLit(int(ncvar.Short)))
	if r.Type != ncvar.Short || r.Int64(0) != 2 {
		t.Errorf("convert: have %v", r)
	}
	r = call(t, w, "sqr", intLit(-3))
	if r.Type != ncvar.Int || r.Int64(0) != 9 {
		t.Errorf("sqr: have %v", r)
	}
	r = call(t, w, "ubyte", intLit(200))
	if r.Type != ncvar.UByte || r.Int64(0) != 200 {
		t.Errorf("ubyte: have %v", r)
	}
}

func TestReversePermute(t *testing.T) {
	w := newTestWalker()
	w.add("v", timeLat, []int32{0, 1, 2, 3, 4, 5})
	r := call(t, w, "reverse", varID("v"), dimID("lat"))
	if want := []int32{2, 1, 0, 5, 4, 3}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("reverse: have %v, want %v", r.Val, want)
	}
	r = call(t, w, "reverse", varID("v"))
	if want := []int32{5, 4, 3, 2, 1, 0}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("reverse all: have %v, want %v", r.Val, want)
	}
	r = call(t, w, "permute", varID("v"), dimID("lat"), dimID("time"))
	if want := []int32{0, 3, 1, 4, 2, 5}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("permute: have %v, want %v", r.Val, want)
	}
}

func TestMask(t *testing.T) {
	w := newTestWalker()
	w.add("v", nil, []float64{1, 2, 1})
	r := call(t, w, "mask", varID("v"), intLit(1))
	if want := []int32{1, 0, 1}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %v, want %v", r.Val, want)
	}
}

func TestPackUnpack(t *testing.T) {
	w := newTestWalker()
	w.add("v", nil, []float64{-10, 0, 2.5, 10})
	p := call(t, w, "pack", varID("v"))
	if p.Type != ncvar.Short || p.Pack == nil {
		t.Fatalf("have %#v", p)
	}
	w.vars["p"] = p
	u := call(t, w, "unpack", varID("p"))
	want := []float64{-10, 0, 2.5, 10}
	for i, x := range u.Float64s() {
		if math.Abs(x-want[i]) > 1e-3 {
			t.Errorf("element %d: have %v, want %v", i, x, want[i])
		}
	}
}

func TestSort(t *testing.T) {
	w := newTestWalker()
	w.add("v", nil, []float64{3, 1, 2})
	r := call(t, w, "dsort", varID("v"), varID("smap"))
	if want := []float64{3, 2, 1}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("dsort: have %v, want %v", r.Val, want)
	}
	if want := []int32{0, 2, 1}; !reflect.DeepEqual(w.vars["smap"].Val, want) {
		t.Errorf("map: have %v, want %v", w.vars["smap"].Val, want)
	}
	r = call(t, w, "sort", varID("v"))
	if want := []float64{1, 2, 3}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("sort: have %v, want %v", r.Val, want)
	}
}

func TestArray(t *testing.T) {
	w := newTestWalker()
	w.dims["x"] = 4
	r := call(t, w, "array", intLit(1), intLit(2), dimID("x"))
	if want := []int32{1, 3, 5, 7}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %v, want %v", r.Val, want)
	}
	if r.Rank() != 1 || r.Dims[0].Name != "x" {
		t.Errorf("dims: have %v", r.Dims)
	}
	w.add("tmpl", timeLat, make([]float64, 6))
	r = call(t, w, "array", dblLit(0), dblLit(0.5), varID("tmpl"))
	if want := []float64{0, 0.5, 1, 1.5, 2, 2.5}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %v, want %v", r.Val, want)
	}
}

func TestBilinear(t *testing.T) {
	w := newTestWalker()
	w.add("in", []ncvar.Dim{{Name: "y", Len: 2}, {Name: "x", Len: 2}}, []float64{0, 1, 2, 3})
	w.add("y", []ncvar.Dim{{Name: "y", Len: 2}}, []float64{0, 1})
	w.add("x", []ncvar.Dim{{Name: "x", Len: 2}}, []float64{0, 1})
	w.add("out", []ncvar.Dim{{Name: "yo", Len: 1}, {Name: "xo", Len: 2}}, make([]float64, 2))
	w.add("yo", []ncvar.Dim{{Name: "yo", Len: 1}}, []float64{0.5})
	w.add("xo", []ncvar.Dim{{Name: "xo", Len: 2}}, []float64{0.5, 1})
	r := call(t, w, "bilinear_interp", varID("in"), varID("out"))
	if want := []float64{1.5, 2}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %v, want %v", r.Val, want)
	}
}

func TestBilinearWrap(t *testing.T) {
	w := newTestWalker()
	w.add("in", []ncvar.Dim{{Name: "lat", Len: 1}, {Name: "lon", Len: 2}}, []float64{0, 10})
	w.add("lat", []ncvar.Dim{{Name: "lat", Len: 1}}, []float64{0})
	w.add("lon", []ncvar.Dim{{Name: "lon", Len: 2}}, []float64{0, 180})
	w.add("out", []ncvar.Dim{{Name: "lat", Len: 1}, {Name: "olon", Len: 1}}, []float64{0})
	w.add("olon", []ncvar.Dim{{Name: "olon", Len: 1}}, []float64{270})
	r := call(t, w, "bilinear_interp_wrap", varID("in"), varID("out"))
	if r.Float64(0) != 5 {
		t.Errorf("have %v, want 5", r.Float64(0))
	}
	r2, err := Default().Call(w, mustLookup(t, "bilinear_interp"), nil, []*ast.Node{varID("in"), varID("out")})
	if err == nil {
		t.Errorf("without wrapping 270 is outside the grid, have %v", r2)
	}
}

func mustLookup(t *testing.T, name string) int {
	i, ok := Default().Lookup(name)
	if !ok {
		t.Fatalf("function %s not found", name)
	}
	return i
}

func TestCoord(t *testing.T) {
	w := newTestWalker()
	w.add("lat", []ncvar.Dim{{Name: "lat", Len: 3}}, []float64{10, 20, 30})
	if r := call(t, w, "coord", varID("lat"), dblLit(21)); r.Int64(0) != 1 {
		t.Errorf("have %v, want 1", r)
	}
	if r := call(t, w, "coord", varID("lat"), dblLit(40)); r.Int64(0) != -1 {
		t.Errorf("have %v, want -1", r)
	}
}

func TestVarList(t *testing.T) {
	w := newTestWalker()
	w.add("temp", nil, []float64{1})
	w.add("time", nil, []float64{1})
	w.add("lat", nil, []float64{1})
	r := call(t, w, "get_vars_in", strLit("^t"))
	if want := []string{"temp", "time"}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %v, want %v", r.Val, want)
	}
	if r := call(t, w, "atoi", strLit(" 42")); r.Type != ncvar.Int || r.Int64(0) != 42 {
		t.Errorf("atoi: have %v", r)
	}
	if r := call(t, w, "atol", strLit("-7")); r.Type != ncvar.Int64 || r.Int64(0) != -7 {
		t.Errorf("atol: have %v", r)
	}
	if _, err := Default().Call(w, mustLookup(t, "atoi"), nil, []*ast.Node{strLit("x1")}); err == nil {
		t.Error("expected an error")
	}
}

func TestPrint(t *testing.T) {
	w := newTestWalker()
	w.add("v", nil, []int32{1, 2})
	call(t, w, "print", varID("v"))
	call(t, w, "print", varID("v"), strLit("%d;"))
	if have, want := w.out.String(), "v = 1, 2\n1;2;"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
	r := call(t, w, "sprint", varID("v"), strLit("%03ld "))
	if have, want := r.Text(), "001 002 "; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}

func TestMethodCall(t *testing.T) {
	w := newTestWalker()
	w.add("v", timeLat, []float64{1, 2, 3, 4, 5, 6})
	r, err := Default().Call(w, mustLookup(t, "avg"), varID("v"), []*ast.Node{dimID("time")})
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{2.5, 3.5, 4.5}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %v, want %v", r.Val, want)
	}
}
