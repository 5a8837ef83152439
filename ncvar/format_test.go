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

import "testing"

func TestFormat(t *testing.T) {
	miss := NewDouble("m", 1.5, -9, 3)
	miss.Missing = []float64{-9}
	tests := []struct {
		v      *Var
		format string
		want   string
	}{
		{NewInt("a", 1, 2, 3), "", "1, 2, 3"},
		{miss, "", "1.5, _, 3"},
		{NewChar("c", "hi"), "", `"hi"`},
		{NewChar("c", "hi"), "<%s>", "<hi>"},
		{NewDouble("d", 1, 2), "%d;", "1;2;"},
		{NewInt("i", 3), "%.2f", "3.00"},
		{NewInt("i", 3), "plain", "plain"},
	}
	for _, test := range tests {
		if have := Format(test.v, test.format); have != test.want {
			t.Errorf("Format(%v, %q): have %q, want %q", test.v, test.format, have, test.want)
		}
	}
}

func TestCFormat(t *testing.T) {
	if have, want := CFormat("%ld %lf %i"), "%d %f %d"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}
