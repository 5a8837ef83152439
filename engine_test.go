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

package ncap

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

func nd(tag ast.Tag, text string, kids ...*ast.Node) *ast.Node { return ast.New(tag, text, kids...) }
func vid(name string, kids ...*ast.Node) *ast.Node { return nd(ast.VAR_ID, name, kids...) }
func aid(name string) *ast.Node { return nd(ast.ATT_ID, name) }
func num(s string) *ast.Node { return nd(ast.NCAP_INT, s) }
func dbl(s string) *ast.Node { return nd(ast.NCAP_DOUBLE, s) }
func stmt(x *ast.Node) *ast.Node { return nd(ast.EXPR, "", x) }
func asn(l, r *ast.Node) *ast.Node { return nd(ast.ASSIGN, "", l, r) }
func ram(x *ast.Node) *ast.Node { return nd(ast.UTIMES, "", x) }
func block(kids ...*ast.Node) *ast.Node { return nd(ast.BLOCK, "", kids...) }
func op(tag ast.Tag, a, b *ast.Node) *ast.Node { return nd(tag, "", a, b) }
func lmt(kids ...*ast.Node) *ast.Node { return nd(ast.LMT, "", kids...) }
func lmts(kids ...*ast.Node) *ast.Node { return nd(ast.LMT_LIST, "", kids...) }
func null() *ast.Node { return nd(ast.NULL_NODE, "") }

func dims(names ...string) *ast.Node {
	l := nd(ast.DMN_LIST, "")
	kids := make([]*ast.Node, len(names))
	for i, n := range names {
		kids[i] = nd(ast.DIM_ID, n)
	}
	l.SetChildren(kids...)
	return l
}

func newTestEvaluator() *Evaluator {
	return NewEvaluator(nil, NewOutput(""))
}

func run(t *testing.T, e *Evaluator, script *ast.Node) {
	t.Helper()
	if err := e.Run(context.Background(), script); err != nil {
		t.Fatal(err)
	}
}

func ramValue(t *testing.T, e *Evaluator, name string) *ncvar.Var {
	t.Helper()
	s := e.Vars.Find(name)
	if s == nil || !s.RAM {
		t.Fatalf("%s is not a RAM variable", name)
	}
	return s.Var
}

func outValue(t *testing.T, e *Evaluator, name string) *ncvar.Var {
	t.Helper()
	v, err := e.Output.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestWhileBreak(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		stmt(asn(ram(vid("i")), num("0"))),
		nd(ast.WHILE, "", op(ast.LTHAN, vid("i"), num("10")), block(
			stmt(nd(ast.POST_INC, "", vid("i"))),
			nd(ast.IF, "", op(ast.EQ, vid("i"), num("3")), nd(ast.BREAK, "")),
		)),
		stmt(asn(vid("x"), vid("i"))),
	))
	x := outValue(t, e, "x")
	if have, want := x.Val, []int32{3}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestWhileContinue(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		stmt(asn(ram(vid("i")), num("0"))),
		stmt(asn(ram(vid("n")), num("0"))),
		nd(ast.WHILE, "", op(ast.LTHAN, vid("i"), num("5")), block(
			stmt(nd(ast.POST_INC, "", vid("i"))),
			nd(ast.IF, "", op(ast.EQ, vid("i"), num("2")), nd(ast.CONTINUE, "")),
			stmt(nd(ast.INC, "", vid("n"))),
		)),
	))
	if have, want := ramValue(t, e, "n").Val, []int32{4}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
	if have, want := ramValue(t, e, "i").Val, []int32{5}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestFor(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		stmt(asn(ram(vid("sum")), num("0"))),
		nd(ast.FOR, "",
			asn(ram(vid("i")), num("1")),
			op(ast.LEQ, vid("i"), num("4")),
			nd(ast.POST_INC, "", vid("i")),
			stmt(op(ast.PLUS_ASSIGN, vid("sum"), vid("i"))),
		),
	))
	if have, want := ramValue(t, e, "sum").Val, []int32{10}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestNestedBreak(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		stmt(asn(ram(vid("x")), num("0"))),
		nd(ast.FOR, "",
			asn(ram(vid("i")), num("0")),
			op(ast.LTHAN, vid("i"), num("3")),
			nd(ast.POST_INC, "", vid("i")),
			nd(ast.FOR, "",
				asn(ram(vid("j")), num("0")),
				op(ast.LTHAN, vid("j"), num("3")),
				nd(ast.POST_INC, "", vid("j")),
				block(
					nd(ast.IF, "", op(ast.EQ, vid("j"), num("1")), nd(ast.BREAK, "")),
					stmt(op(ast.PLUS_ASSIGN, vid("x"), num("1"))),
				),
			),
		),
	))
	if have, want := ramValue(t, e, "x").Val, []int32{3}; !reflect.DeepEqual(have, want) {
		t.Errorf("x: have %v, want %v", have, want)
	}
	if have, want := ramValue(t, e, "i").Val, []int32{3}; !reflect.DeepEqual(have, want) {
		t.Errorf("i: have %v, want %v", have, want)
	}
}

func TestBreakOutsideLoop(t *testing.T) {
	e := newTestEvaluator()
	err := e.Run(context.Background(), block(
		stmt(asn(ram(vid("i")), num("0"))),
		nd(ast.BREAK, ""),
	))
	if err == nil || !strings.Contains(err.Error(), "outside a loop") {
		t.Errorf("have %v, want error about a loop", err)
	}
}

func grid() *ncvar.Var {
	v := ncvar.New("x", ncvar.Double, []ncvar.Dim{{Name: "a", Len: 2}, {Name: "b", Len: 3}}, false)
	v.Val = []float64{0, 10, 20, 30, 40, 50}
	return v
}

func line() *ncvar.Var {
	v := ncvar.New("x", ncvar.Double, []ncvar.Dim{{Name: "a", Len: 5}}, false)
	v.Val = []float64{10, 20, 30, 40, 50}
	return v
}

func TestPointIndex(t *testing.T) {
	for _, test := range []struct {
		v       func() *ncvar.Var
		fortran bool
		index   string
		want    float64
	}{
		{v: grid, index: "3", want: 30},
		{v: grid, index: "-1", want: 50},
		{v: grid, fortran: true, index: "4", want: 30},
		{v: line, index: "2", want: 30},
		{v: line, index: "-1", want: 50},
		{v: line, fortran: true, index: "3", want: 30},
	} {
		e := newTestEvaluator()
		e.FortranIndex = test.fortran
		e.Define("x", test.v())
		run(t, e, block(stmt(asn(vid("y"), vid("x", lmts(lmt(num(test.index))))))))
		y := outValue(t, e, "y")
		if have, want := y.Val, []float64{test.want}; !reflect.DeepEqual(have, want) {
			t.Errorf("%v fortran=%v index %s: have %v, want %v", test.v().Dims, test.fortran, test.index, have, want)
		}
	}
}

func TestPointIndexOutOfBounds(t *testing.T) {
	e := newTestEvaluator()
	e.Define("x", grid())
	err := e.Run(context.Background(), block(stmt(asn(vid("y"), vid("x", lmts(lmt(num("6"))))))))
	if err == nil || !strings.Contains(err.Error(), "out of bounds") {
		t.Errorf("have %v, want out of bounds error", err)
	}
}

func TestValueList(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		stmt(asn(ram(vid("v")), nd(ast.VALUE_LIST, "", num("1"), dbl("2.5")))),
		stmt(asn(ram(vid("s")), nd(ast.VALUE_LIST, "", nd(ast.N4STRING, ""), nd(ast.N4STRING, "")))),
	))
	v := ramValue(t, e, "v")
	if v.Type != ncvar.Double {
		t.Errorf("type: have %v, want double", v.Type)
	}
	if have, want := v.Val, []float64{1, 2.5}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
	s := ramValue(t, e, "s")
	if s.Type != ncvar.String || s.Sz != 2 {
		t.Errorf("have %v of size %d, want string of size 2", s.Type, s.Sz)
	}
}

func TestWhere(t *testing.T) {
	e := newTestEvaluator()
	x := ncvar.New("x", ncvar.Double, []ncvar.Dim{{Name: "a", Len: 4}}, false)
	x.Val = []float64{1, 2, 3, 4}
	e.Define("x", x)
	run(t, e, block(
		nd(ast.WHERE, "", op(ast.GTHAN, vid("x"), num("2")),
			stmt(asn(vid("x"), num("0"))),
			stmt(asn(vid("x"), num("1"))),
		),
	))
	if have, want := ramValue(t, e, "x").Val, []float64{1, 1, 0, 0}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestWhereKeepsMissing(t *testing.T) {
	e := newTestEvaluator()
	x := ncvar.New("x", ncvar.Double, []ncvar.Dim{{Name: "a", Len: 3}}, false)
	x.Val = []float64{-1, 5, 6}
	x.Missing = []float64{-1}
	e.Define("x", x)
	run(t, e, block(
		nd(ast.WHERE, "", op(ast.GTHAN, vid("x"), num("5")), stmt(asn(vid("x"), num("9")))),
	))
	if have, want := ramValue(t, e, "x").Val, []float64{-1, 5, 9}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestDeclarativeScanIdempotent(t *testing.T) {
	e := newTestEvaluator()
	if err := e.Output.DefineDim("t", 5, false); err != nil {
		t.Fatal(err)
	}
	script := block(
		stmt(asn(vid("x", dims("t")), num("1"))),
		stmt(asn(vid("y"), op(ast.TIMES, vid("x"), dbl("2.5")))),
		stmt(asn(ram(vid("z")), op(ast.PLUS, vid("y"), vid("undefined_var")))),
	)
	type decl struct {
		Name  string
		Type  ncvar.Type
		Dims  []ncvar.Dim
		State State
		RAM   bool
	}
	snapshot := func() []decl {
		var d []decl
		for _, n := range e.Vars.Names() {
			s := e.Vars.Find(n)
			d = append(d, decl{n, s.Var.Type, s.Var.Dims, s.State, s.RAM})
		}
		return d
	}
	e.initial = true
	for i := 0; i < 2; i++ {
		if _, err := e.Statements(script, 0); err != nil {
			t.Fatal(err)
		}
		e.Ints.Clear()
	}
	first := snapshot()
	if _, err := e.Statements(script, 0); err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(first, snapshot()); len(diff) > 0 {
		t.Errorf("declarations changed: %v", diff)
	}
	if len(first) != 2 {
		t.Errorf("have %d declarations, want 2: %# v", len(first), pretty.Formatter(first))
	}
}

func TestTwoScanConsistency(t *testing.T) {
	e := newTestEvaluator()
	if err := e.Output.DefineDim("t", 3, false); err != nil {
		t.Fatal(err)
	}
	script := block(
		stmt(asn(vid("x", dims("t")), num("1"))),
		stmt(asn(vid("y"), op(ast.TIMES, vid("x"), dbl("2.5")))),
	)
	e.initial = true
	if _, err := e.Statements(script, 0); err != nil {
		t.Fatal(err)
	}
	declared := e.Output.Meta("y")
	e.initial = false
	e.Ints.Clear()
	if _, err := e.Statements(script, 0); err != nil {
		t.Fatal(err)
	}
	y := outValue(t, e, "y")
	if y.Type != declared.Type || !reflect.DeepEqual(y.Dims, declared.Dims) {
		t.Errorf("declared %v%v, wrote %v%v", declared.Type, declared.Dims, y.Type, y.Dims)
	}
	if have, want := y.Val, []float64{2.5, 2.5, 2.5}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestHyperslab(t *testing.T) {
	e := newTestEvaluator()
	for _, d := range []Dim{{Name: "t", Size: 5}, {Name: "s", Size: 3}} {
		if err := e.Output.DefineDim(d.Name, d.Size, false); err != nil {
			t.Fatal(err)
		}
	}
	run(t, e, block(
		stmt(asn(vid("x", dims("t")), dbl("0"))),
		stmt(asn(vid("x", lmts(lmt(num("1"), num("3")))), dbl("7"))),
		stmt(asn(vid("y", dims("s")), vid("x", lmts(lmt(num("1"), num("3")))))),
		stmt(asn(vid("w"), vid("x", lmts(lmt(null(), null()))))),
	))
	for _, test := range []struct {
		name string
		want []float64
	}{
		{"x", []float64{0, 7, 7, 7, 0}},
		{"y", []float64{7, 7, 7}},
		{"w", []float64{0, 7, 7, 7, 0}},
	} {
		if have := outValue(t, e, test.name).Val; !reflect.DeepEqual(have, test.want) {
			t.Errorf("%s: have %v, want %v", test.name, have, test.want)
		}
	}
	if have, want := outValue(t, e, "y").DimNames(), []string{"s"}; !reflect.DeepEqual(have, want) {
		t.Errorf("y dims: have %v, want %v", have, want)
	}
}

func TestRecastDiskVariable(t *testing.T) {
	e := newTestEvaluator()
	err := e.Run(context.Background(), block(
		stmt(asn(vid("x"), dbl("1"))),
		stmt(asn(ram(vid("x")), dbl("2"))),
	))
	if err == nil || !strings.Contains(err.Error(), "impossible to recast disk variable") {
		t.Errorf("have %v, want recast error", err)
	}
}

func TestAttributes(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		stmt(asn(vid("x"), dbl("1.5"))),
		stmt(asn(aid("x@units"), nd(ast.NSTRING, "m s-1"))),
		stmt(asn(aid("x@scale"), num("2"))),
		stmt(op(ast.TIMES_ASSIGN, aid("x@scale"), num("3"))),
		stmt(asn(aid("x@_FillValue"), dbl("-999"))),
	))
	units := e.Vars.Find("x@units")
	if units == nil || units.Var.Text() != "m s-1" {
		t.Errorf("units: have %v", units)
	}
	if have, want := e.Vars.Find("x@scale").Var.Val, []int32{6}; !reflect.DeepEqual(have, want) {
		t.Errorf("scale: have %v, want %v", have, want)
	}
	if have, want := e.Output.Meta("x").Missing, []float64{-999}; !reflect.DeepEqual(have, want) {
		t.Errorf("missing value: have %v, want %v", have, want)
	}
}

func TestQuestion(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		stmt(asn(ram(vid("a")), nd(ast.QUESTION, "", op(ast.GTHAN, num("2"), num("1")), num("10"), num("20")))),
	))
	if have, want := ramValue(t, e, "a").Val, []int32{10}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestPrint(t *testing.T) {
	e := newTestEvaluator()
	var b bytes.Buffer
	e.SetStdout(&b)
	run(t, e, block(
		stmt(asn(ram(vid("x")), nd(ast.VALUE_LIST, "", num("1"), num("2")))),
		nd(ast.PRINT, "", vid("x")),
		nd(ast.PRINT, "", nd(ast.NSTRING, `done\n`)),
		nd(ast.PRINT, "", vid("nothing")),
	))
	if have, want := b.String(), "x = 1, 2\ndone\n"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}

func TestDefdim(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		nd(ast.DEFDIM, "1", nd(ast.NSTRING, "lat"), num("4")),
		nd(ast.DEFDIM, "1", nd(ast.NSTRING, "time"), num("2"), num("0")),
		stmt(asn(ram(vid("n")), nd(ast.DIM_ID_SIZE, "lat"))),
	))
	if d := e.DimsOut.Find("lat"); d == nil || d.Size != 4 || d.Unlimited {
		t.Errorf("lat: have %+v", d)
	}
	if d := e.DimsOut.Find("time"); d == nil || !d.Unlimited {
		t.Errorf("time: have %+v", d)
	}
	if have, want := ramValue(t, e, "n").Val, []int32{4}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestStructureErrorSkipsStatement(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(
		nd(ast.LMT, ""),
		stmt(asn(ram(vid("x")), num("1"))),
	))
	if have, want := ramValue(t, e, "x").Val, []int32{1}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestFunctionCall(t *testing.T) {
	e := newTestEvaluator()
	x := ncvar.New("x", ncvar.Double, []ncvar.Dim{{Name: "a", Len: 4}}, false)
	x.Val = []float64{1, 2, 3, 6}
	e.Define("x", x)
	run(t, e, block(
		stmt(asn(ram(vid("m")), nd(ast.FUNC, "avg", nd(ast.ARG_LIST, "", vid("x"))))),
		stmt(asn(ram(vid("n")), nd(ast.DOT, "size", vid("x"), nd(ast.ARG_LIST, "")))),
	))
	if have, want := ramValue(t, e, "m").Float64(0), 3.0; have != want {
		t.Errorf("avg: have %v, want %v", have, want)
	}
	if have, want := ramValue(t, e, "n").Int64(0), int64(4); have != want {
		t.Errorf("size: have %v, want %v", have, want)
	}
}

func TestParallelRead(t *testing.T) {
	e := newTestEvaluator()
	run(t, e, block(stmt(asn(vid("x"), dbl("1.5")))))
	e.InParallel = func() bool { return true }
	if _, ok := e.output().(*OutputFile); ok {
		t.Error("output inside a parallel region should be read-only")
	}
	v, err := e.varInit("x", true)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := v.Val, []float64{1.5}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestConstantExpr(t *testing.T) {
	for _, test := range []struct {
		n    *ast.Node
		want bool
	}{
		{lmts(lmt(num("2"))), true},
		{lmts(lmt(num("0"), op(ast.MINUS, nd(ast.DIM_ID_SIZE, "a"), num("1")))), true},
		{lmts(lmt(null(), null(), num("2"))), true},
		{lmts(lmt(vid("i"))), false},
		{lmts(lmt(aid("x@n"))), false},
		{lmts(lmt(nd(ast.FUNC, "avg", nd(ast.ARG_LIST, "", num("2"))))), false},
		{lmts(lmt(op(ast.PLUS, num("1"), nd(ast.FUNC, "avg", nd(ast.ARG_LIST, "", num("2")))))), false},
	} {
		if have := constantExpr(test.n); have != test.want {
			t.Errorf("%v: have %v, want %v", test.n, have, test.want)
		}
	}
}

func TestInitialLimitsSkipsCalls(t *testing.T) {
	e := newTestEvaluator()
	e.initial = true
	l, err := e.initialLimits(lmts(lmt(nd(ast.FUNC, "avg", nd(ast.ARG_LIST, "", num("2"))))), line())
	if err != nil {
		t.Fatal(err)
	}
	if l != nil {
		t.Errorf("have %v, want no limits", l)
	}
	if !e.initial {
		t.Error("declarative scan flag was reset")
	}
	l, err = e.initialLimits(lmts(lmt(num("1"), num("3"))), line())
	if err != nil {
		t.Fatal(err)
	}
	if want := []ncvar.Limit{{Name: "a", Start: 1, Count: 3, Stride: 1}}; !reflect.DeepEqual(l, want) {
		t.Errorf("have %v, want %v", l, want)
	}
}
