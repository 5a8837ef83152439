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

package hash

import "testing"

type request struct {
	Path, Var string
}

type keyed string

func (k keyed) Key() string { return "k:" + string(k) }

type unexported struct {
	a int
}

func TestHash(t *testing.T) {
	a := Hash(request{Path: "in.nc", Var: "x"})
	b := Hash(request{Path: "in.nc", Var: "x"})
	c := Hash(request{Path: "in.nc", Var: "y"})
	if a != b {
		t.Errorf("equal requests: have %s and %s", a, b)
	}
	if a == c {
		t.Errorf("different requests share key %s", a)
	}
	if len(a) != 32 {
		t.Errorf("key length: have %d, want 32", len(a))
	}
	if have, want := Hash(keyed("x")), "k:x"; have != want {
		t.Errorf("have %s, want %s", have, want)
	}
	if Hash(unexported{1}) == Hash(unexported{2}) {
		t.Error("spew fallback ignores field values")
	}
}
