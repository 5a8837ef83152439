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
)

var latlon = []Dim{{Name: "lat", Len: 2}, {Name: "lon", Len: 3}}

func TestBroadcast(t *testing.T) {
	tests := []struct {
		dims []Dim
		val  []float64
		want []float64
	}{
		{
			dims: []Dim{{Name: "lat", Len: 2}},
			val:  []float64{1, 2},
			want: []float64{1, 1, 1, 2, 2, 2},
		},
		{
			dims: []Dim{{Name: "lon", Len: 3}},
			val:  []float64{1, 2, 3},
			want: []float64{1, 2, 3, 1, 2, 3},
		},
	}
	for _, test := range tests {
		v, err := FromValues("v", test.dims, test.val)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Broadcast(v, latlon)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(b.Val, test.want) {
			t.Errorf("have %#v, want %#v", b.Val, test.want)
		}
		if !reflect.DeepEqual(b.Dims, latlon) {
			t.Errorf("dims: have %v, want %v", b.Dims, latlon)
		}
	}
}

func TestConformSymmetric(t *testing.T) {
	big := New("big", Double, latlon, true)
	small, _ := FromValues("small", []Dim{{Name: "lon", Len: 3}}, []float64{1, 2, 3})
	r1, err := Binary(big, small, Add)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Binary(small, big, Add)
	if err != nil {
		t.Fatal(err)
	}
	if r1.Sz != 6 || r2.Sz != 6 {
		t.Errorf("sizes: %d, %d", r1.Sz, r2.Sz)
	}
	if !reflect.DeepEqual(r1.Val, r2.Val) {
		t.Errorf("have %#v and %#v", r1.Val, r2.Val)
	}
}

func TestConformScalar(t *testing.T) {
	big := New("big", Int, latlon, true)
	a, b, err := Conform(big, NewInt("one", 7))
	if err != nil {
		t.Fatal(err)
	}
	if a != big {
		t.Error("larger operand should be returned unchanged")
	}
	if want := []int32{7, 7, 7, 7, 7, 7}; !reflect.DeepEqual(b.Val, want) {
		t.Errorf("have %#v, want %#v", b.Val, want)
	}
}

func TestConformMismatch(t *testing.T) {
	a, _ := FromValues("a", []Dim{{Name: "x", Len: 2}}, []float64{1, 2})
	b, _ := FromValues("b", []Dim{{Name: "y", Len: 3}}, []float64{1, 2, 3})
	if _, _, err := Conform(a, b); err == nil {
		t.Error("expected an error")
	}
}

func TestPermute(t *testing.T) {
	v, err := FromValues("v", []Dim{{Name: "a", Len: 2}, {Name: "b", Len: 3}}, []int32{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	p, err := PermuteTo(v, []string{"b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []int32{0, 3, 1, 4, 2, 5}; !reflect.DeepEqual(p.Val, want) {
		t.Errorf("have %#v, want %#v", p.Val, want)
	}
	if want := []string{"b", "a"}; !reflect.DeepEqual(p.DimNames(), want) {
		t.Errorf("have %v, want %v", p.DimNames(), want)
	}
}
