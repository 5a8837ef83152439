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
	"fmt"

	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

// index converts a script index into a 0-based index into a dimension
// of the given size.
func (e *Evaluator) index(k, size int) int {
	switch {
	case e.FortranIndex:
		return k - 1
	case k < 0:
		return k + size
	}
	return k
}

// limitIndex evaluates one slot of a hyperslab limit. It reports false
// for an omitted slot.
func (e *Evaluator) limitIndex(n *ast.Node, size int) (int, bool, error) {
	if n == nil || n.Is(ast.NULL_NODE) {
		return 0, false, nil
	}
	v, err := e.Out(n)
	if err != nil {
		return 0, false, err
	}
	if v.Undefined || !v.HasData() || v.Sz < 1 {
		return 0, false, fmt.Errorf("ncap: hyperslab index %v has no value", n)
	}
	return e.index(int(v.Int64(0)), size), true, nil
}

// limits evaluates the LMT_LIST lmtList against the shape of meta.
func (e *Evaluator) limits(lmtList *ast.Node, meta *ncvar.Var) ([]ncvar.Limit, error) {
	lmts := lmtList.Children()
	if len(lmts) != meta.Rank() {
		return nil, fmt.Errorf("ncap: Number of hyperslab limits for variable %s doesn't match number of dimensions", meta.Name)
	}
	out := make([]ncvar.Limit, len(lmts))
	for i, l := range lmts {
		d := meta.Dims[i]
		kids := l.Children()
		start, end, stride := 0, d.Len-1, 1
		switch len(kids) {
		case 1:
			k, ok, err := e.limitIndex(kids[0], d.Len)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, structureErr(l, "empty hyperslab limit")
			}
			start, end = k, k
		case 2, 3:
			if k, ok, err := e.limitIndex(kids[0], d.Len); err != nil {
				return nil, err
			} else if ok {
				start = k
			}
			if k, ok, err := e.limitIndex(kids[1], d.Len); err != nil {
				return nil, err
			} else if ok {
				end = k
			}
			if len(kids) == 3 && !kids[2].Is(ast.NULL_NODE) {
				v, err := e.Out(kids[2])
				if err != nil {
					return nil, err
				}
				if !v.HasData() || v.Sz < 1 {
					return nil, fmt.Errorf("ncap: hyperslab stride %v has no value", kids[2])
				}
				stride = int(v.Int64(0))
			}
		default:
			return nil, structureErr(l, "hyperslab limit has %d parts", len(kids))
		}
		if start < 0 || end >= d.Len || start > end {
			return nil, fmt.Errorf("ncap: hyperslab %d:%d is out of bounds for dimension %s of %s with size %d",
				start, end, d.Name, meta.Name, d.Len)
		}
		if stride < 1 {
			return nil, fmt.Errorf("ncap: invalid hyperslab stride %d for dimension %s of %s", stride, d.Name, meta.Name)
		}
		out[i] = ncvar.Limit{Name: d.Name, Start: start, Count: (end-start)/stride + 1, Stride: stride}
	}
	return out, nil
}

// isPoint reports whether lmtList is a single index such as x(5).
func isPoint(lmtList *ast.Node) bool {
	if lmtList.NumChildren() != 1 {
		return false
	}
	l := lmtList.FirstChild()
	return l.NumChildren() == 1 && !l.FirstChild().Is(ast.NULL_NODE)
}

// constantExpr reports whether n is built only from number literals and
// dimension sizes, joined by arithmetic or limit syntax, so that it can
// be evaluated during the declarative scan.
func constantExpr(n *ast.Node) bool {
	ok := true
	n.Walk(func(k *ast.Node) bool {
		switch k.Tag {
		case ast.LMT_LIST, ast.LMT, ast.NULL_NODE, ast.DIM_ID_SIZE,
			ast.PLUS, ast.MINUS, ast.TIMES, ast.DIVIDE, ast.MOD:
		default:
			if !k.Tag.IsNumber() {
				ok = false
			}
		}
		return ok && !k.Is(ast.DIM_ID_SIZE)
	})
	return ok
}

// initialLimits evaluates limits during the declarative scan, which is
// only possible when they are constant expressions. It returns nil
// limits otherwise.
func (e *Evaluator) initialLimits(lmtList *ast.Node, meta *ncvar.Var) ([]ncvar.Limit, error) {
	if !constantExpr(lmtList) {
		return nil, nil
	}
	e.initial = false
	defer func() { e.initial = true }()
	return e.limits(lmtList, meta)
}

// normalDims returns the dimensions a hyperslab keeps if every limit
// selects either one element or the whole dimension, and false
// otherwise.
func normalDims(meta *ncvar.Var, lmts []ncvar.Limit) ([]ncvar.Dim, bool) {
	var dims []ncvar.Dim
	for i, l := range lmts {
		switch {
		case l.Count == 1:
		case l.Count == meta.Dims[i].Len:
			dims = append(dims, meta.Dims[i])
		default:
			return nil, false
		}
	}
	return dims, true
}

// varLmt evaluates a hyperslab of a variable, x(a:b, c, ...).
func (e *Evaluator) varLmt(n *ast.Node) (*ncvar.Var, error) {
	name, lmtList := n.Text, n.FirstChild()
	meta, err := e.varInit(name, false)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		if e.initial {
			return ncvar.NewUndefined(name), nil
		}
		return nil, fmt.Errorf("ncap: unable to find variable %s", name)
	}
	if meta.Undefined {
		return meta, nil
	}
	if isPoint(lmtList) && meta.Rank() != 1 {
		return e.varLmtOne(name, lmtList, meta)
	}

	var lmts []ncvar.Limit
	if e.initial {
		if lmts, err = e.initialLimits(lmtList, meta); err != nil || lmts == nil {
			return ncvar.NewUndefined(name), err
		}
	} else if lmts, err = e.limits(lmtList, meta); err != nil {
		return nil, err
	}
	dims, norm := normalDims(meta, lmts)

	if e.initial {
		if !norm {
			return ncvar.NewUndefined(name), nil
		}
		v := ncvar.New(name, meta.Type, dims, false)
		v.Missing = meta.Missing
		if v.Sz > 1 && e.cast != nil {
			return e.castDo(v)
		}
		return v, nil
	}

	full, err := e.varInit(name, true)
	if err != nil {
		return nil, err
	}
	v, err := ncvar.GetSlab(full, lmts)
	if err != nil {
		return nil, err
	}
	v.Sliced = true
	switch {
	case v.Sz == 1:
		return ncvar.GetOne(v, 0)
	case norm:
		if err := v.Reshape(dims); err != nil {
			return nil, err
		}
		v.Sliced = false
		if e.cast != nil && v.Sz != e.cast.Sz {
			return e.castDo(v)
		}
	}
	return v, nil
}

// varLmtOne evaluates x(k) for a variable x of rank other than one: k
// is an index into the flattened variable.
func (e *Evaluator) varLmtOne(name string, lmtList *ast.Node, meta *ncvar.Var) (*ncvar.Var, error) {
	if e.initial {
		v := ncvar.NewScalar(name, meta.Type, false)
		v.Missing = meta.Missing
		return v, nil
	}
	k, err := e.pointIndex(name, lmtList, meta.Sz)
	if err != nil {
		return nil, err
	}
	full, err := e.varInit(name, true)
	if err != nil {
		return nil, err
	}
	return ncvar.GetOne(full, k)
}

func (e *Evaluator) pointIndex(name string, lmtList *ast.Node, sz int) (int, error) {
	k, _, err := e.limitIndex(lmtList.FirstChild().FirstChild(), sz)
	if err != nil {
		return 0, err
	}
	if k < 0 || k >= sz {
		return 0, fmt.Errorf("ncap: Limit of %d for variable \"%s\" with size=%d is out of bounds", k, name, sz)
	}
	return k, nil
}

// varLmtOneLHS assigns to x(k) for a variable x of rank other than one.
func (e *Evaluator) varLmtOneLHS(name string, lmtList, rhs *ast.Node, ram, noret bool) (*ncvar.Var, error) {
	meta, err := e.varInit(name, false)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("ncap: unable to find variable %s", name)
	}
	k, err := e.pointIndex(name, lmtList, meta.Sz)
	if err != nil {
		return nil, err
	}
	r, err := e.Out(rhs)
	if err != nil {
		return nil, err
	}
	if r.Sz != 1 {
		return nil, fmt.Errorf("ncap: Hyperslab for %s - number of elements on LHS(1) doesn't equal number of elements on RHS(%d)", name, r.Sz)
	}
	if ram {
		s := e.Vars.Find(name)
		var target *ncvar.Var
		if s != nil && s.RAM && s.Var.HasData() {
			target = s.Var
		} else if target, err = e.varInit(name, true); err != nil {
			return nil, err
		}
		if err := ncvar.PutOne(target, k, r); err != nil {
			return nil, err
		}
		if s == nil || target != s.Var {
			if err := e.varWrite(target, true); err != nil {
				return nil, err
			}
		} else {
			s.State = Populated
		}
	} else {
		if err := e.diskTarget(name); err != nil {
			return nil, err
		}
		lmts := make([]ncvar.Limit, meta.Rank())
		for i, c := range ncvar.Unravel(meta.Shape(), k) {
			lmts[i] = ncvar.Limit{Name: meta.Dims[i].Name, Start: c, Count: 1, Stride: 1}
		}
		if err := e.Output.PutSlab(name, lmts, r); err != nil {
			return nil, err
		}
	}
	if noret {
		return nil, nil
	}
	return e.varInit(name, true)
}

// castTemplate returns a value shaped by the dimensions of a DMN_LIST.
func (e *Evaluator) castTemplate(dmnList *ast.Node) (*ncvar.Var, error) {
	var dims []ncvar.Dim
	for _, d := range dmnList.Children() {
		sz, ok := e.DimSize(d.Text)
		if !ok {
			return nil, fmt.Errorf("ncap: unable to find dimension %s", d.Text)
		}
		dims = append(dims, ncvar.Dim{Name: d.Text, Len: sz})
	}
	return ncvar.New("~cast", ncvar.Int, dims, false), nil
}
