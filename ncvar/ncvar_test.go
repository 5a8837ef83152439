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

package ncvar

import (
	"reflect"
	"testing"

	"github.com/kr/pretty"
)

func TestHighest(t *testing.T) {
	tests := []struct {
		a, b, want Type
	}{
		{Int, Double, Double},
		{Byte, Short, Short},
		{UInt64, Float, Float},
		{Char, UByte, UByte},
		{NAT, Int, Int},
		{Short, NAT, Short},
		{Int, String, String},
	}
	for _, test := range tests {
		if have := Highest(test.a, test.b); have != test.want {
			t.Errorf("Highest(%v, %v): have %v, want %v", test.a, test.b, have, test.want)
		}
		if have := Highest(test.b, test.a); have != test.want {
			t.Errorf("Highest(%v, %v): have %v, want %v", test.b, test.a, have, test.want)
		}
	}
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"byte", "char", "short", "int", "float", "double",
		"ubyte", "ushort", "uint", "int64", "uint64", "string"} {
		ty, err := ParseType(name)
		if err != nil {
			t.Fatal(err)
		}
		if ty.String() != name {
			t.Errorf("have %s, want %s", ty, name)
		}
	}
	if _, err := ParseType("nat"); err == nil {
		t.Error("nat should not parse")
	}
}

func TestBinaryPromotion(t *testing.T) {
	a := NewInt("a", 1, 2, 3)
	b := NewDouble("b", 0.5)
	r, err := Binary(a, b, Add)
	if err != nil {
		t.Fatal(err)
	}
	if r.Type != Double {
		t.Errorf("type: have %v, want double", r.Type)
	}
	want := []float64{1.5, 2.5, 3.5}
	if !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %#v, want %#v", r.Val, want)
	}
	if !reflect.DeepEqual(a.Val, []int32{1, 2, 3}) {
		t.Errorf("operand was modified: %#v", a.Val)
	}
}

func TestBinaryPowPromotesIntegers(t *testing.T) {
	r, err := Binary(NewInt("a", 2, 3), NewInt("b", 2), Pow)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{4, 9}
	if !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %#v, want %#v", r.Val, want)
	}
}

func TestBinaryMissing(t *testing.T) {
	a := NewDouble("a", 1, -999, 3)
	a.Missing = []float64{-999}
	r, err := Binary(a, NewDouble("b", 2), Mul)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{2, -999, 6}
	if diff := pretty.Diff(r.Val, want); len(diff) > 0 {
		t.Error(diff)
	}
	if !reflect.DeepEqual(r.Missing, []float64{-999}) {
		t.Errorf("missing: have %#v", r.Missing)
	}
}

func TestBinaryComparison(t *testing.T) {
	tests := []struct {
		op   Op
		want []int32
	}{
		{Lt, []int32{1, 0, 0}},
		{Ge, []int32{0, 1, 1}},
		{Eq, []int32{0, 1, 0}},
		{Lesser, []int32{1, 2, 2}},
		{Greater, []int32{2, 2, 3}},
	}
	for _, test := range tests {
		r, err := Binary(NewInt("a", 1, 2, 3), NewInt("b", 2), test.op)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(r.Val, test.want) {
			t.Errorf("%v: have %#v, want %#v", test.op, r.Val, test.want)
		}
	}
}

func TestBinaryUndefined(t *testing.T) {
	r, err := Binary(NewUndefined("a"), NewInt("b", 1), Add)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Undefined {
		t.Error("result should be undefined")
	}
}

func TestDivideByZero(t *testing.T) {
	if _, err := Binary(NewInt("a", 1), NewInt("b", 0), Div); err == nil {
		t.Error("expected an error")
	}
	r, err := Binary(NewDouble("a", 1), NewDouble("b", 0), Div)
	if err != nil {
		t.Fatal(err)
	}
	if r.Float64(0) <= 1e300 {
		t.Errorf("have %v, want +Inf", r.Float64(0))
	}
}

func TestUnary(t *testing.T) {
	r, err := Unary(NewInt("a", 0, 2, -3), Neg)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int32{0, -2, 3}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %#v, want %#v", r.Val, want)
	}
	r, err = Unary(NewInt("a", 0, 2), Not)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int32{1, 0}; !reflect.DeepEqual(r.Val, want) {
		t.Errorf("have %#v, want %#v", r.Val, want)
	}
}

func TestTruth(t *testing.T) {
	tests := []struct {
		v    *Var
		want bool
	}{
		{NewInt("a", 1), true},
		{NewInt("a", 0, 1), false},
		{NewDouble("a", 0.1), true},
		{NewStrings("a", ""), false},
		{NewStrings("a", "x"), true},
		{NewUndefined("a"), false},
	}
	for i, test := range tests {
		if have := Truth(test.v); have != test.want {
			t.Errorf("%d: have %v, want %v", i, have, test.want)
		}
	}
}

func TestConvert(t *testing.T) {
	v := NewDouble("a", 1.7, -2.2)
	v.Missing = []float64{-2.2}
	v.Convert(Int)
	if want := []int32{1, -2}; !reflect.DeepEqual(v.Val, want) {
		t.Errorf("have %#v, want %#v", v.Val, want)
	}
	if want := []int32{-2}; !reflect.DeepEqual(v.Missing, want) {
		t.Errorf("missing: have %#v, want %#v", v.Missing, want)
	}
	s := NewChar("s", "abc").Convert(String)
	if s.Sz != 1 || s.Text() != "abc" {
		t.Errorf("have %v", s)
	}
	c := NewStrings("s", "ab", "cd").Convert(Char)
	if c.Sz != 4 || c.Text() != "abcd" {
		t.Errorf("have %v", c)
	}
}

func TestMiss2Zero(t *testing.T) {
	v := NewDouble("a", 1, -1, 2, -1)
	v.Missing = []float64{-1}
	if n := v.NumMissing(); n != 2 {
		t.Errorf("NumMissing: have %d, want 2", n)
	}
	v.Miss2Zero()
	if want := []float64{1, 0, 2, 0}; !reflect.DeepEqual(v.Val, want) {
		t.Errorf("have %#v, want %#v", v.Val, want)
	}
	if v.HasMissing() {
		t.Error("missing value should be removed")
	}
}

func TestIncrement(t *testing.T) {
	v := NewInt("v", 1, -5, 3)
	v.Missing = []int32{-5}
	if err := Increment(v, 1); err != nil {
		t.Fatal(err)
	}
	if want := []int32{2, -5, 4}; !reflect.DeepEqual(v.Val, want) {
		t.Errorf("have %#v, want %#v", v.Val, want)
	}
	if err := Increment(NewChar("c", "a"), 1); err == nil {
		t.Error("expected an error for char")
	}
}

func TestIncrementLarge(t *testing.T) {
	for _, test := range []struct {
		v     *Var
		delta int
		want  interface{}
	}{
		{NewInt64("i", 1<<53+1), 1, []int64{1<<53 + 2}},
		{NewInt64("i", 1<<62), -1, []int64{1<<62 - 1}},
		{&Var{Name: "u", Type: UInt64, Sz: 1, Val: []uint64{1<<64 - 2}}, 1, []uint64{1<<64 - 1}},
		{NewDouble("d", 0.5), -1, []float64{-0.5}},
	} {
		if err := Increment(test.v, test.delta); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(test.v.Val, test.want) {
			t.Errorf("have %#v, want %#v", test.v.Val, test.want)
		}
	}
}
