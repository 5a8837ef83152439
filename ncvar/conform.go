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

import "fmt"

// Conform makes a and b the same size so that they can be combined
// element-wise. A single element operand is stretched to the other
// operand's shape; an operand whose dimensions are a subset of the
// other's is broadcast to the larger shape; operands with the same
// dimensions in a different order are permuted to the order of a.
// The returned values may be a and b themselves.
func Conform(a, b *Var) (*Var, *Var, error) {
	if a.Sz == b.Sz {
		if a.Rank() > 1 && a.Rank() == b.Rank() && !sameOrder(a, b) && subset(b, a) {
			p, err := PermuteTo(b, a.DimNames())
			return a, p, err
		}
		return a, b, nil
	}
	switch {
	case b.Sz == 1:
		return a, b.Stretch(a), nil
	case a.Sz == 1:
		return a.Stretch(b), b, nil
	case subset(b, a):
		bb, err := Broadcast(b, a.Dims)
		return a, bb, err
	case subset(a, b):
		aa, err := Broadcast(a, b.Dims)
		return aa, b, err
	}
	return nil, nil, fmt.Errorf("ncvar: cannot make %s%v and %s%v conform", a.Name, a.Dims, b.Name, b.Dims)
}

// ConformTo makes v the shape of tmpl, stretching or broadcasting as
// needed. It is an error for v to have more elements than tmpl.
func ConformTo(tmpl, v *Var) (*Var, error) {
	switch {
	case v.Sz == tmpl.Sz:
		if v.Rank() > 1 && v.Rank() == tmpl.Rank() && !sameOrder(tmpl, v) && subset(v, tmpl) {
			return PermuteTo(v, tmpl.DimNames())
		}
		return v, nil
	case v.Sz == 1:
		return v.Stretch(tmpl), nil
	case subset(v, tmpl):
		return Broadcast(v, tmpl.Dims)
	}
	return nil, fmt.Errorf("ncvar: cannot make %s%v conform to %s%v", v.Name, v.Dims, tmpl.Name, tmpl.Dims)
}

func sameOrder(a, b *Var) bool {
	if a.Rank() != b.Rank() {
		return false
	}
	for i := range a.Dims {
		if a.Dims[i].Name != b.Dims[i].Name {
			return false
		}
	}
	return true
}

// subset returns whether every dimension of a (which must have at least
// one) is also a dimension of b with the same length.
func subset(a, b *Var) bool {
	if a.Rank() == 0 {
		return false
	}
	for _, d := range a.Dims {
		i := b.DimIndex(d.Name)
		if i < 0 || b.Dims[i].Len != d.Len {
			return false
		}
	}
	return true
}

// Stretch returns a copy of v with the shape of tmpl in which every
// element is v's first element.
func (v *Var) Stretch(tmpl *Var) *Var {
	o := &Var{Name: v.Name, Type: v.Type, Dims: append([]Dim(nil), tmpl.Dims...), Sz: tmpl.Sz,
		Missing: cloneSlice(v.Missing), IsAtt: v.IsAtt && tmpl.IsAtt}
	if v.Val != nil && v.Sz > 0 {
		o.Val = Zero(v.Type, o.Sz)
		for i := 0; i < o.Sz; i++ {
			setElem(o.Val, i, v.Val, 0)
		}
	}
	return o
}

// StretchN returns a copy of v with n elements, each equal to v's first.
func (v *Var) StretchN(n int) *Var {
	return v.Stretch(&Var{Sz: n})
}

// Broadcast replicates v over the shape dims, which must contain every
// dimension of v.
func Broadcast(v *Var, dims []Dim) (*Var, error) {
	pos := make([]int, v.Rank())
	for i, d := range v.Dims {
		pos[i] = -1
		for j, dd := range dims {
			if dd.Name == d.Name && dd.Len == d.Len {
				pos[i] = j
			}
		}
		if pos[i] < 0 {
			return nil, fmt.Errorf("ncvar: cannot broadcast %s: dimension %s not in %v", v.Name, d.Name, dims)
		}
	}
	o := &Var{Name: v.Name, Type: v.Type, Dims: append([]Dim(nil), dims...), Sz: dimsLen(dims),
		Missing: cloneSlice(v.Missing)}
	if v.Val == nil {
		return o, nil
	}
	in := newIndexer(v.Shape())
	idx := make([]int, 0, o.Sz)
	nd := make([]int, len(dims))
	c := make([]int, v.Rank())
	shape := o.Shape()
	for ok := o.Sz > 0; ok; ok = next(nd, shape) {
		for i, p := range pos {
			c[i] = nd[p]
		}
		idx = append(idx, in.flat(c))
	}
	o.Val = gather(v.Val, idx)
	return o, nil
}

// Permute returns a copy of v whose dimension i is v's dimension
// order[i].
func Permute(v *Var, order []int) (*Var, error) {
	if len(order) != v.Rank() {
		return nil, fmt.Errorf("ncvar: permutation of %s needs %d dimensions, got %d", v.Name, v.Rank(), len(order))
	}
	seen := make([]bool, v.Rank())
	dims := make([]Dim, v.Rank())
	for i, o := range order {
		if o < 0 || o >= v.Rank() || seen[o] {
			return nil, fmt.Errorf("ncvar: invalid permutation %v of %s", order, v.Name)
		}
		seen[o] = true
		dims[i] = v.Dims[o]
	}
	p := v.Meta()
	p.Dims = dims
	if v.Val == nil {
		return p, nil
	}
	in := newIndexer(v.Shape())
	idx := make([]int, 0, v.Sz)
	nd := make([]int, v.Rank())
	c := make([]int, v.Rank())
	shape := p.Shape()
	for ok := v.Sz > 0; ok; ok = next(nd, shape) {
		for i, o := range order {
			c[o] = nd[i]
		}
		idx = append(idx, in.flat(c))
	}
	p.Val = gather(v.Val, idx)
	return p, nil
}

// PermuteTo returns a copy of v with its dimensions in the order names.
func PermuteTo(v *Var, names []string) (*Var, error) {
	order := make([]int, len(names))
	for i, n := range names {
		if order[i] = v.DimIndex(n); order[i] < 0 {
			return nil, fmt.Errorf("ncvar: %s has no dimension %s", v.Name, n)
		}
	}
	return Permute(v, order)
}
