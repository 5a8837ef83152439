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
	"github.com/spatialmodel/ncap/ncvar"
	"gonum.org/v1/gonum/floats"
)

// Sort holds sort and asort, which sort the elements of a value in
// ascending order, and dsort, which sorts them in descending order.
// The value keeps its shape. An optional second argument names a RAM
// variable that receives the sort map: element i of the map is the
// position in the input of element i of the result.
type Sort struct{}

const (
	srtSort = iota
	srtASort
	srtDSort
)

func (Sort) Funcs() []Func { return funcs("sort", "asort", "dsort") }

func (Sort) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if err := needArgs(c, 1, 2); err != nil {
		return nil, err
	}
	var mapName string
	if len(c.Args) == 2 {
		var err error
		if mapName, err = varName(c, c.Args[1]); err != nil {
			return nil, err
		}
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
		if mapName != "" {
			m := ncvar.New(mapName, ncvar.Int, v.Dims, false)
			m.Sz = v.Len()
			if err := w.SetVar(mapName, m); err != nil {
				return nil, err
			}
		}
		return v.Meta(), nil
	}

	vals := v.Float64s()
	idx := make([]int, len(vals))
	floats.Argsort(vals, idx)
	if c.Code == srtDSort {
		for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	if mapName != "" {
		m := ncvar.New(mapName, ncvar.Int, v.Dims, true)
		m.Sz = v.Len()
		mv := make([]int32, len(idx))
		for i, j := range idx {
			mv[i] = int32(j)
		}
		m.Val = mv
		if err := w.SetVar(mapName, m); err != nil {
			return nil, err
		}
	}
	return ncvar.Take(v, idx), nil
}
