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
	"strings"
)

// Dim is one dimension of a value's shape.
type Dim struct {
	Name string
	Len  int
}

// Var is a typed array value: a variable, an attribute or an
// intermediate result.
//
// Val holds the data as a typed slice ([]int8 for Byte, []byte for Char
// and UByte, []int16, []uint16, []int32, []uint32, []int64, []uint64,
// []float32, []float64 or []string). Val is nil for values that carry
// only type and shape, such as those built during the declarative scan.
//
// Missing is nil or a single element slice of the same type as Val that
// holds the missing value sentinel.
type Var struct {
	Name string
	Type Type
	Dims []Dim

	// Sz is the number of elements. It is the product of the dimension
	// lengths for variables, but attributes have no dimensions and any size.
	Sz int

	Val     interface{}
	Missing interface{}

	// Undefined marks a placeholder for a value that could not be
	// resolved during the declarative scan.
	Undefined bool

	// IsAtt marks attribute values.
	IsAtt bool

	// Sliced marks the result of a hyperslab read that could not be
	// represented as a plain reduced-shape value.
	Sliced bool

	// Pack holds the packing parameters of packed values.
	Pack *Packing
}

// Packing holds the scale_factor and add_offset attributes that
// unpack a packed value: unpacked = packed*Scale + Offset.
type Packing struct {
	Scale, Offset float64
}

// New creates a value with the given shape. If fill is true the value
// is given a zeroed buffer.
func New(name string, t Type, dims []Dim, fill bool) *Var {
	v := &Var{Name: name, Type: t, Dims: append([]Dim(nil), dims...), Sz: dimsLen(dims)}
	if fill {
		v.Val = Zero(t, v.Sz)
	}
	return v
}

// NewScalar creates a scalar value.
func NewScalar(name string, t Type, fill bool) *Var { return New(name, t, nil, fill) }

// NewUndefined creates an undefined placeholder.
func NewUndefined(name string) *Var {
	return &Var{Name: name, Type: Int, Sz: 1, Undefined: true}
}

// FromValues creates a value holding val, which must be one of the
// slice types listed for Var.Val, or a string which is stored as Char.
// If dims is nil the value has no dimensions and len(val) elements.
func FromValues(name string, dims []Dim, val interface{}) (*Var, error) {
	var t Type
	switch vv := val.(type) {
	case []int8:
		t = Byte
	case []uint8:
		t = UByte
	case []int16:
		t = Short
	case []uint16:
		t = UShort
	case []int32:
		t = Int
	case []uint32:
		t = UInt
	case []int64:
		t = Int64
	case []uint64:
		t = UInt64
	case []float32:
		t = Float
	case []float64:
		t = Double
	case []string:
		t = String
	case string:
		t = Char
		val = []byte(vv)
	default:
		return nil, fmt.Errorf("ncvar: unsupported value type %T", val)
	}
	n := valLen(val)
	if dims != nil && dimsLen(dims) != n {
		return nil, fmt.Errorf("ncvar: %s has %d values but its shape holds %d", name, n, dimsLen(dims))
	}
	return &Var{Name: name, Type: t, Dims: append([]Dim(nil), dims...), Sz: n, Val: val}, nil
}

// NewDouble creates a dimensionless double value holding vals.
func NewDouble(name string, vals ...float64) *Var {
	return &Var{Name: name, Type: Double, Sz: len(vals), Val: append([]float64(nil), vals...)}
}

// NewInt creates a dimensionless int value holding vals.
func NewInt(name string, vals ...int32) *Var {
	return &Var{Name: name, Type: Int, Sz: len(vals), Val: append([]int32(nil), vals...)}
}

// NewInt64 creates a dimensionless int64 value holding vals.
func NewInt64(name string, vals ...int64) *Var {
	return &Var{Name: name, Type: Int64, Sz: len(vals), Val: append([]int64(nil), vals...)}
}

// NewChar creates a char value holding the bytes of s.
func NewChar(name, s string) *Var {
	return &Var{Name: name, Type: Char, Sz: len(s), Val: []byte(s)}
}

// NewStrings creates a dimensionless string value.
func NewStrings(name string, vals ...string) *Var {
	return &Var{Name: name, Type: String, Sz: len(vals), Val: append([]string(nil), vals...)}
}

func dimsLen(dims []Dim) int {
	n := 1
	for _, d := range dims {
		n *= d.Len
	}
	return n
}

// Len returns the number of elements.
func (v *Var) Len() int { return v.Sz }

// Rank returns the number of dimensions.
func (v *Var) Rank() int { return len(v.Dims) }

// Shape returns the dimension lengths.
func (v *Var) Shape() []int {
	s := make([]int, len(v.Dims))
	for i, d := range v.Dims {
		s[i] = d.Len
	}
	return s
}

// DimNames returns the dimension names.
func (v *Var) DimNames() []string {
	s := make([]string, len(v.Dims))
	for i, d := range v.Dims {
		s[i] = d.Name
	}
	return s
}

// DimIndex returns the position of the named dimension, or -1.
func (v *Var) DimIndex(name string) int {
	for i, d := range v.Dims {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// HasData returns whether v holds a buffer.
func (v *Var) HasData() bool { return v.Val != nil }

// HasMissing returns whether v has a missing value.
func (v *Var) HasMissing() bool { return v.Missing != nil }

// Dup returns a deep copy of v.
func (v *Var) Dup() *Var {
	o := *v
	o.Dims = append([]Dim(nil), v.Dims...)
	o.Val = cloneSlice(v.Val)
	o.Missing = cloneSlice(v.Missing)
	return &o
}

// Meta returns a copy of v without its buffer.
func (v *Var) Meta() *Var {
	o := *v
	o.Dims = append([]Dim(nil), v.Dims...)
	o.Val = nil
	o.Missing = cloneSlice(v.Missing)
	return &o
}

// Reshape gives v the dimensions dims, which must hold v.Len() elements.
func (v *Var) Reshape(dims []Dim) error {
	if dimsLen(dims) != v.Sz {
		return fmt.Errorf("ncvar: cannot reshape %s of size %d to %v", v.Name, v.Sz, dims)
	}
	v.Dims = append([]Dim(nil), dims...)
	return nil
}

// SetMissing sets the missing value of v, converting m to v's type.
// A nil m removes the missing value.
func (v *Var) SetMissing(m *Var) {
	if m == nil || m.Val == nil || m.Len() == 0 {
		v.Missing = nil
		return
	}
	v.Missing = convertVal(sliceOf(m.Val, 0, 1), m.Type, v.Type)
}

// MissingVar returns the missing value as a scalar, or nil.
func (v *Var) MissingVar() *Var {
	if v.Missing == nil {
		return nil
	}
	return &Var{Name: v.Name, Type: v.Type, Sz: 1, Val: cloneSlice(v.Missing)}
}

// IsMissing returns whether element i equals the missing value.
func (v *Var) IsMissing(i int) bool {
	if v.Missing == nil || v.Val == nil {
		return false
	}
	return elemEqual(v.Val, i, v.Missing, 0)
}

// NumMissing returns the number of elements equal to the missing value.
func (v *Var) NumMissing() int {
	if v.Missing == nil || v.Val == nil {
		return 0
	}
	n := 0
	for i := 0; i < v.Sz; i++ {
		if elemEqual(v.Val, i, v.Missing, 0) {
			n++
		}
	}
	return n
}

// Miss2Zero sets every missing element to zero and removes the missing
// value.
func (v *Var) Miss2Zero() {
	if v.Missing != nil && v.Val != nil {
		zero := Zero(v.Type, 1)
		for i := 0; i < v.Sz; i++ {
			if elemEqual(v.Val, i, v.Missing, 0) {
				setElem(v.Val, i, zero, 0)
			}
		}
	}
	v.Missing = nil
}

// Float64 returns element i as a float64.
func (v *Var) Float64(i int) float64 {
	switch s := v.Val.(type) {
	case []int8:
		return float64(s[i])
	case []uint8:
		return float64(s[i])
	case []int16:
		return float64(s[i])
	case []uint16:
		return float64(s[i])
	case []int32:
		return float64(s[i])
	case []uint32:
		return float64(s[i])
	case []int64:
		return float64(s[i])
	case []uint64:
		return float64(s[i])
	case []float32:
		return float64(s[i])
	case []float64:
		return s[i]
	case []string:
		return parseFloat(s[i])
	}
	return 0
}

// Int64 returns element i as an int64.
func (v *Var) Int64(i int) int64 {
	switch s := v.Val.(type) {
	case []int64:
		return s[i]
	case []uint64:
		return int64(s[i])
	}
	return int64(v.Float64(i))
}

// Float64s returns all elements as float64s.
func (v *Var) Float64s() []float64 {
	if f, ok := v.Val.([]float64); ok {
		return append([]float64(nil), f...)
	}
	return convertTo[float64](v.Val)
}

// SetFloat64 sets element i from a float64.
func (v *Var) SetFloat64(i int, f float64) {
	setElem(v.Val, i, convertVal([]float64{f}, Double, v.Type), 0)
}

// Text returns the value of a char or string value as a Go string.
// String values are joined with commas.
func (v *Var) Text() string {
	switch s := v.Val.(type) {
	case []byte:
		if v.Type == Char {
			return strings.TrimRight(string(s), "\x00")
		}
	case []string:
		return strings.Join(s, ",")
	}
	var parts []string
	for i := 0; i < v.Sz && v.Val != nil; i++ {
		parts = append(parts, v.Elem(i))
	}
	return strings.Join(parts, ",")
}

// Elem formats element i with the default format for v's type.
func (v *Var) Elem(i int) string {
	switch s := v.Val.(type) {
	case []string:
		return s[i]
	case []byte:
		if v.Type == Char {
			return string(s[i : i+1])
		}
		return fmt.Sprint(s[i])
	case []float32:
		return fmt.Sprintf("%g", s[i])
	case []float64:
		return fmt.Sprintf("%g", s[i])
	case []int64:
		return fmt.Sprint(s[i])
	case []uint64:
		return fmt.Sprint(s[i])
	}
	return fmt.Sprint(v.Int64(i))
}

func (v *Var) String() string {
	if v.Undefined {
		return fmt.Sprintf("%s: undefined", v.Name)
	}
	return fmt.Sprintf("%s(%s)%v: %s", v.Name, v.Type, v.Dims, v.Text())
}
