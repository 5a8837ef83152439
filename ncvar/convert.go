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
	"strconv"
	"strings"
)

type integer interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64
}

type float interface {
	~float32 | ~float64
}

type number interface {
	integer | float
}

// Convert returns v converted to type t. The returned value may be v
// itself, so v should not be used after the call.
func (v *Var) Convert(t Type) *Var {
	if v.Type == t {
		return v
	}
	v.Val = convertVal(v.Val, v.Type, t)
	v.Missing = convertVal(v.Missing, v.Type, t)
	if t == Char && v.Val != nil && v.Type == String {
		v.Sz = len(v.Val.([]byte))
		if len(v.Dims) > 0 {
			v.Dims = []Dim{{Name: v.Dims[0].Name, Len: v.Sz}}
		}
	}
	if t == String && v.Type == Char {
		v.Sz, v.Dims = 1, nil
	}
	v.Type = t
	return v
}

// Zero returns a zeroed buffer of type t with n elements.
func Zero(t Type, n int) interface{} {
	switch t {
	case Byte:
		return make([]int8, n)
	case Char, UByte:
		return make([]byte, n)
	case Short:
		return make([]int16, n)
	case UShort:
		return make([]uint16, n)
	case Int:
		return make([]int32, n)
	case UInt:
		return make([]uint32, n)
	case Int64:
		return make([]int64, n)
	case UInt64:
		return make([]uint64, n)
	case Float:
		return make([]float32, n)
	case Double:
		return make([]float64, n)
	case String:
		return make([]string, n)
	}
	return nil
}

func convertVal(val interface{}, from, to Type) interface{} {
	if val == nil {
		return nil
	}
	switch to {
	case Byte:
		return convertTo[int8](val)
	case UByte:
		return convertTo[uint8](val)
	case Char:
		if s, ok := val.([]string); ok {
			return []byte(strings.Join(s, ""))
		}
		return convertTo[uint8](val)
	case Short:
		return convertTo[int16](val)
	case UShort:
		return convertTo[uint16](val)
	case Int:
		return convertTo[int32](val)
	case UInt:
		return convertTo[uint32](val)
	case Int64:
		return convertTo[int64](val)
	case UInt64:
		return convertTo[uint64](val)
	case Float:
		return convertTo[float32](val)
	case Double:
		return convertTo[float64](val)
	case String:
		return toStrings(val, from)
	}
	panic(fmt.Errorf("ncvar: invalid conversion type %v", to))
}

func convertTo[D number](val interface{}) []D {
	switch s := val.(type) {
	case []int8:
		return conv[int8, D](s)
	case []uint8:
		return conv[uint8, D](s)
	case []int16:
		return conv[int16, D](s)
	case []uint16:
		return conv[uint16, D](s)
	case []int32:
		return conv[int32, D](s)
	case []uint32:
		return conv[uint32, D](s)
	case []int64:
		return conv[int64, D](s)
	case []uint64:
		return conv[uint64, D](s)
	case []float32:
		return conv[float32, D](s)
	case []float64:
		return conv[float64, D](s)
	case []string:
		d := make([]D, len(s))
		for i, x := range s {
			d[i] = D(parseFloat(x))
		}
		return d
	}
	panic(fmt.Errorf("ncvar: invalid buffer type %T", val))
}

func conv[S, D number](s []S) []D {
	d := make([]D, len(s))
	for i, x := range s {
		d[i] = D(x)
	}
	return d
}

func toStrings(val interface{}, from Type) []string {
	switch s := val.(type) {
	case []string:
		return append([]string(nil), s...)
	case []byte:
		if from == Char {
			return []string{strings.TrimRight(string(s), "\x00")}
		}
	}
	f := convertTo[float64](val)
	out := make([]string, len(f))
	for i, x := range f {
		out[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return out
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func valLen(val interface{}) int {
	switch s := val.(type) {
	case []int8:
		return len(s)
	case []uint8:
		return len(s)
	case []int16:
		return len(s)
	case []uint16:
		return len(s)
	case []int32:
		return len(s)
	case []uint32:
		return len(s)
	case []int64:
		return len(s)
	case []uint64:
		return len(s)
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	case []string:
		return len(s)
	}
	return 0
}

func cloneSlice(val interface{}) interface{} {
	if val == nil {
		return nil
	}
	return sliceOf(val, 0, valLen(val))
}

// sliceOf returns a copy of val[lo:hi].
func sliceOf(val interface{}, lo, hi int) interface{} {
	switch s := val.(type) {
	case []int8:
		return append([]int8(nil), s[lo:hi]...)
	case []uint8:
		return append([]uint8(nil), s[lo:hi]...)
	case []int16:
		return append([]int16(nil), s[lo:hi]...)
	case []uint16:
		return append([]uint16(nil), s[lo:hi]...)
	case []int32:
		return append([]int32(nil), s[lo:hi]...)
	case []uint32:
		return append([]uint32(nil), s[lo:hi]...)
	case []int64:
		return append([]int64(nil), s[lo:hi]...)
	case []uint64:
		return append([]uint64(nil), s[lo:hi]...)
	case []float32:
		return append([]float32(nil), s[lo:hi]...)
	case []float64:
		return append([]float64(nil), s[lo:hi]...)
	case []string:
		return append([]string(nil), s[lo:hi]...)
	}
	return nil
}

// setElem copies src[si] into dst[di]. Both buffers must have the same
// element type.
func setElem(dst interface{}, di int, src interface{}, si int) {
	switch d := dst.(type) {
	case []int8:
		d[di] = src.([]int8)[si]
	case []uint8:
		d[di] = src.([]uint8)[si]
	case []int16:
		d[di] = src.([]int16)[si]
	case []uint16:
		d[di] = src.([]uint16)[si]
	case []int32:
		d[di] = src.([]int32)[si]
	case []uint32:
		d[di] = src.([]uint32)[si]
	case []int64:
		d[di] = src.([]int64)[si]
	case []uint64:
		d[di] = src.([]uint64)[si]
	case []float32:
		d[di] = src.([]float32)[si]
	case []float64:
		d[di] = src.([]float64)[si]
	case []string:
		d[di] = src.([]string)[si]
	}
}

// elemEqual returns whether a[ai] == b[bi] for buffers of the same
// element type.
func elemEqual(a interface{}, ai int, b interface{}, bi int) bool {
	switch x := a.(type) {
	case []int8:
		return x[ai] == b.([]int8)[bi]
	case []uint8:
		return x[ai] == b.([]uint8)[bi]
	case []int16:
		return x[ai] == b.([]int16)[bi]
	case []uint16:
		return x[ai] == b.([]uint16)[bi]
	case []int32:
		return x[ai] == b.([]int32)[bi]
	case []uint32:
		return x[ai] == b.([]uint32)[bi]
	case []int64:
		return x[ai] == b.([]int64)[bi]
	case []uint64:
		return x[ai] == b.([]uint64)[bi]
	case []float32:
		return x[ai] == b.([]float32)[bi]
	case []float64:
		return x[ai] == b.([]float64)[bi]
	case []string:
		return x[ai] == b.([]string)[bi]
	}
	return false
}

// gather returns a new buffer holding val[idx[0]], val[idx[1]], ...
func gather(val interface{}, idx []int) interface{} {
	switch s := val.(type) {
	case []int8:
		return gatherT(s, idx)
	case []uint8:
		return gatherT(s, idx)
	case []int16:
		return gatherT(s, idx)
	case []uint16:
		return gatherT(s, idx)
	case []int32:
		return gatherT(s, idx)
	case []uint32:
		return gatherT(s, idx)
	case []int64:
		return gatherT(s, idx)
	case []uint64:
		return gatherT(s, idx)
	case []float32:
		return gatherT(s, idx)
	case []float64:
		return gatherT(s, idx)
	case []string:
		return gatherT(s, idx)
	}
	return nil
}

func gatherT[T any](s []T, idx []int) []T {
	o := make([]T, len(idx))
	for i, j := range idx {
		o[i] = s[j]
	}
	return o
}

// scatter sets dst[idx[i]] = src[i] for every i. If src holds a single
// element it is copied to every position.
func scatter(dst interface{}, idx []int, src interface{}) {
	stretch := valLen(src) == 1
	for i, j := range idx {
		si := i
		if stretch {
			si = 0
		}
		setElem(dst, j, src, si)
	}
}
