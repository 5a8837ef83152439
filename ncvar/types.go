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

// Package ncvar holds typed, shaped array values: the variables and
// attributes that ncap scripts compute with, along with the element-wise
// arithmetic, type promotion, broadcasting and hyperslab primitives
// that operate on them.
package ncvar

import (
	"fmt"
	"strings"
)

// Type is the element type of a value.
type Type int

// The element types. NAT is the zero value and is not a valid type.
const (
	NAT Type = iota
	Byte
	Char
	Short
	Int
	Float
	Double
	UByte
	UShort
	UInt
	Int64
	UInt64
	String
)

var typeNames = [...]string{
	NAT:    "nat",
	Byte:   "byte",
	Char:   "char",
	Short:  "short",
	Int:    "int",
	Float:  "float",
	Double: "double",
	UByte:  "ubyte",
	UShort: "ushort",
	UInt:   "uint",
	Int64:  "int64",
	UInt64: "uint64",
	String: "string",
}

// typeRank orders the numeric types for promotion. String is not ranked.
var typeRank = map[Type]int{
	Byte:   1,
	Char:   2,
	UByte:  3,
	Short:  4,
	UShort: 5,
	Int:    6,
	UInt:   7,
	Int64:  8,
	UInt64: 9,
	Float:  10,
	Double: 11,
}

func (t Type) String() string {
	if t < NAT || int(t) >= len(typeNames) {
		return fmt.Sprintf("<%d>", int(t))
	}
	return typeNames[t]
}

// ParseType returns the type with the given name, e.g. "double".
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if i != int(NAT) && n == name {
			return Type(i), nil
		}
	}
	return NAT, fmt.Errorf("ncvar: invalid type name %q", name)
}

// Valid returns whether t is one of the defined types.
func (t Type) Valid() bool { return t > NAT && t <= String }

// IsFloat returns whether t is a floating point type.
func (t Type) IsFloat() bool { return t == Float || t == Double }

// IsInteger returns whether t is an integer (or char) type.
func (t Type) IsInteger() bool { return t.Valid() && t != String && !t.IsFloat() }

// IsUnsigned returns whether t is an unsigned integer type.
func (t Type) IsUnsigned() bool {
	switch t {
	case Char, UByte, UShort, UInt, UInt64:
		return true
	}
	return false
}

// Size returns the number of bytes one element of type t occupies.
func (t Type) Size() int {
	switch t {
	case Byte, Char, UByte:
		return 1
	case Short, UShort:
		return 2
	case Int, UInt, Float:
		return 4
	case Double, Int64, UInt64, String:
		return 8
	}
	return 0
}

// Highest returns the higher ranked of the two types. NAT is lower
// than every type, and String is higher than every numeric type.
func Highest(a, b Type) Type {
	switch {
	case a == NAT:
		return b
	case b == NAT:
		return a
	case a == String || b == String:
		return String
	}
	if typeRank[b] > typeRank[a] {
		return b
	}
	return a
}

// DefaultFill returns the netCDF default fill value of type t as a
// scalar.
func DefaultFill(t Type) *Var {
	v := NewScalar("_FillValue", t, false)
	switch t {
	case Byte:
		v.Val = []int8{-127}
	case Char:
		v.Val = []byte{0}
	case Short:
		v.Val = []int16{-32767}
	case Int:
		v.Val = []int32{-2147483647}
	case Float:
		v.Val = []float32{9.9692099683868690e+36}
	case Double:
		v.Val = []float64{9.9692099683868690e+36}
	case UByte:
		v.Val = []uint8{255}
	case UShort:
		v.Val = []uint16{65535}
	case UInt:
		v.Val = []uint32{4294967295}
	case Int64:
		v.Val = []int64{-9223372036854775806}
	case UInt64:
		v.Val = []uint64{18446744073709551614}
	case String:
		v.Val = []string{""}
	}
	return v
}
