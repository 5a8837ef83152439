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
	"fmt"

	"github.com/ctessum/sparse"
)

// Limit is the hyperslab of one dimension: Count elements beginning at
// the 0-based index Start, Stride apart.
type Limit struct {
	Name                 string
	Start, Count, Stride int
}

// End returns the last index selected by l.
func (l Limit) End() int { return l.Start + (l.Count-1)*l.Stride }

// FullLimits returns limits that select the whole of shape.
func FullLimits(dims []Dim) []Limit {
	l := make([]Limit, len(dims))
	for i, d := range dims {
		l[i] = Limit{Name: d.Name, Start: 0, Count: d.Len, Stride: 1}
	}
	return l
}

// indexer converts per-dimension row-major indices to flat indices.
type indexer struct {
	a    *sparse.SparseArray
	rank int
}

func newIndexer(shape []int) indexer {
	return indexer{a: sparse.ZerosSparse(shape...), rank: len(shape)}
}

func (ix indexer) flat(c []int) int {
	if ix.rank == 0 {
		return 0
	}
	return ix.a.Index1d(c...)
}

// next advances c to the next position of shape in row-major order and
// reports whether there is one.
func next(c, shape []int) bool {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]++
		if c[i] < shape[i] {
			return true
		}
		c[i] = 0
	}
	return false
}

// Unravel converts the flat row-major index k into one index per
// dimension of shape by successive division by the running product of
// the trailing dimensions.
func Unravel(shape []int, k int) []int {
	c := make([]int, len(shape))
	n := 1
	for _, s := range shape {
		n *= s
	}
	for i, s := range shape {
		n /= s
		c[i] = k / n
		k -= c[i] * n
	}
	return c
}

// SlabIndex returns the flat indices into an array of the given shape
// that the limits select, in row-major order of the slab.
func SlabIndex(shape []int, lmts []Limit) ([]int, error) {
	if len(lmts) != len(shape) {
		return nil, fmt.Errorf("ncvar: %d hyperslab limits for %d dimensions", len(lmts), len(shape))
	}
	counts := make([]int, len(lmts))
	n := 1
	for i, l := range lmts {
		if l.Count < 1 || l.Stride < 1 || l.Start < 0 || l.End() >= shape[i] {
			return nil, fmt.Errorf("ncvar: hyperslab %d:%d:%d is out of bounds for dimension %s of size %d",
				l.Start, l.End(), l.Stride, l.Name, shape[i])
		}
		counts[i] = l.Count
		n *= l.Count
	}
	in := newIndexer(shape)
	idx := make([]int, 0, n)
	nd := make([]int, len(shape))
	c := make([]int, len(shape))
	for ok := n > 0; ok; ok = next(nd, counts) {
		for i, l := range lmts {
			c[i] = l.Start + nd[i]*l.Stride
		}
		idx = append(idx, in.flat(c))
	}
	return idx, nil
}

// GetSlab returns the hyperslab of v selected by lmts, with one
// dimension per limit.
func GetSlab(v *Var, lmts []Limit) (*Var, error) {
	idx, err := SlabIndex(v.Shape(), lmts)
	if err != nil {
		return nil, fmt.Errorf("%v in %s", err, v.Name)
	}
	o := v.Meta()
	o.Sz = len(idx)
	o.Dims = make([]Dim, len(lmts))
	for i, l := range lmts {
		o.Dims[i] = Dim{Name: v.Dims[i].Name, Len: l.Count}
	}
	if v.Val != nil {
		o.Val = gather(v.Val, idx)
	}
	return o, nil
}

// PutSlab writes src into the hyperslab of v selected by lmts. src is
// converted to v's type and must hold one element or as many elements
// as the hyperslab.
func PutSlab(v *Var, lmts []Limit, src *Var) error {
	idx, err := SlabIndex(v.Shape(), lmts)
	if err != nil {
		return fmt.Errorf("%v in %s", err, v.Name)
	}
	if src.Sz != 1 && src.Sz != len(idx) {
		return fmt.Errorf("ncvar: hyperslab of %s holds %d elements but the value has %d", v.Name, len(idx), src.Sz)
	}
	if v.Val == nil || src.Val == nil {
		return nil
	}
	s := src.Dup().Convert(v.Type)
	scatter(v.Val, idx, s.Val)
	return nil
}

// GetOne returns element k of v as a scalar.
func GetOne(v *Var, k int) (*Var, error) {
	if k < 0 || k >= v.Sz {
		return nil, fmt.Errorf("ncvar: index %d is out of bounds for %s with size %d", k, v.Name, v.Sz)
	}
	o := &Var{Name: v.Name, Type: v.Type, Sz: 1, Missing: cloneSlice(v.Missing)}
	if v.Val != nil {
		o.Val = sliceOf(v.Val, k, k+1)
	}
	return o, nil
}

// PutOne sets element k of v from the first element of src.
func PutOne(v *Var, k int, src *Var) error {
	if k < 0 || k >= v.Sz {
		return fmt.Errorf("ncvar: index %d is out of bounds for %s with size %d", k, v.Name, v.Sz)
	}
	if v.Val == nil || src.Val == nil {
		return nil
	}
	s := src.Dup().Convert(v.Type)
	setElem(v.Val, k, s.Val, 0)
	return nil
}

// CopyMasked copies src into dst at every position where mask is
// nonzero. A position is left alone when dst already holds its missing
// value there, or, for a src of more than one element, when src holds
// the missing value. The missing value is dst's if it has one,
// otherwise src's. src must already have dst's type and either one
// element or dst's size; mask must have dst's size.
func CopyMasked(dst, src, mask *Var) error {
	if src.Sz != 1 && src.Sz != dst.Sz {
		return fmt.Errorf("ncvar: cannot copy %d elements of %s into %s of size %d", src.Sz, src.Name, dst.Name, dst.Sz)
	}
	if mask.Sz != dst.Sz {
		return fmt.Errorf("ncvar: mask %s has %d elements but %s has %d", mask.Name, mask.Sz, dst.Name, dst.Sz)
	}
	if src.Type != dst.Type {
		return fmt.Errorf("ncvar: cannot copy %v values of %s into %v %s", src.Type, src.Name, dst.Type, dst.Name)
	}
	if dst.Val == nil || src.Val == nil || mask.Val == nil {
		return nil
	}
	miss := dst.Missing
	if miss == nil {
		miss = src.Missing
	}
	for i := 0; i < dst.Sz; i++ {
		if mask.Float64(i) == 0 {
			continue
		}
		si := i
		if src.Sz == 1 {
			si = 0
		}
		if miss != nil {
			if elemEqual(dst.Val, i, miss, 0) {
				continue
			}
			if src.Sz > 1 && elemEqual(src.Val, si, miss, 0) {
				continue
			}
		}
		setElem(dst.Val, i, src.Val, si)
	}
	return nil
}

// Take returns a copy of v whose element i is element idx[i] of v. The
// copy keeps v's dimensions, so idx must have v.Len() elements unless
// the caller reshapes the result.
func Take(v *Var, idx []int) *Var {
	o := v.Meta()
	o.Sz = len(idx)
	if v.Val != nil {
		o.Val = gather(v.Val, idx)
	}
	return o
}
