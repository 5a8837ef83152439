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
	"errors"
	"fmt"
	"math"
)

// Op is an element-wise operator.
type Op int

// The operators. Lesser and Greater return the element-wise lesser or
// greater operand.
const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
	Pow
	Lt
	Gt
	Le
	Ge
	Eq
	Ne
	And
	Or
	Lesser
	Greater
	Neg
	Not
)

var opNames = [...]string{"+", "-", "*", "/", "%", "^", "<", ">", "<=", ">=", "==", "!=",
	"&&", "||", "<<", ">>", "-", "!"}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return fmt.Sprintf("op(%d)", int(op))
	}
	return opNames[op]
}

// ErrDivideByZero is returned for integer division or modulus by zero.
var ErrDivideByZero = errors.New("ncvar: integer divide by zero")

// Binary applies op element-wise to a and b. The operands are made to
// conform and promoted to their highest type first; the power operator
// promotes integers to Float. Neither operand is modified.
//
// If either operand is undefined the result is undefined. If either
// operand has no buffer the result carries only type and shape.
func Binary(a, b *Var, op Op) (*Var, error) {
	if a.Undefined || b.Undefined {
		return NewUndefined(a.Name), nil
	}
	if a.Type == String || b.Type == String {
		return nil, fmt.Errorf("ncvar: operator %v is not defined for string values %s and %s", op, a.Name, b.Name)
	}
	t := Highest(a.Type, b.Type)
	if op == Pow && !t.IsFloat() {
		t = Float
	}
	x, y, err := Conform(a.Dup().Convert(t), b.Dup().Convert(t))
	if err != nil {
		return nil, err
	}
	res := &Var{Name: x.Name, Type: t, Dims: x.Dims, Sz: x.Sz, IsAtt: x.IsAtt && y.IsAtt}
	if x.Val == nil || y.Val == nil {
		return res, nil
	}
	res.Missing = x.Missing
	if res.Missing == nil {
		res.Missing = cloneSlice(y.Missing)
	}
	if res.Val, err = binaryVal(op, x, y); err != nil {
		return nil, fmt.Errorf("%v (%s %v %s)", err, a.Name, op, b.Name)
	}
	return res, nil
}

func missOf[T any](m interface{}) *T {
	if m == nil {
		return nil
	}
	return &m.([]T)[0]
}

func binaryVal(op Op, x, y *Var) (interface{}, error) {
	switch xs := x.Val.(type) {
	case []int8:
		return intBinary(op, xs, y.Val.([]int8), missOf[int8](x.Missing), missOf[int8](y.Missing))
	case []uint8:
		return intBinary(op, xs, y.Val.([]uint8), missOf[uint8](x.Missing), missOf[uint8](y.Missing))
	case []int16:
		return intBinary(op, xs, y.Val.([]int16), missOf[int16](x.Missing), missOf[int16](y.Missing))
	case []uint16:
		return intBinary(op, xs, y.Val.([]uint16), missOf[uint16](x.Missing), missOf[uint16](y.Missing))
	case []int32:
		return intBinary(op, xs, y.Val.([]int32), missOf[int32](x.Missing), missOf[int32](y.Missing))
	case []uint32:
		return intBinary(op, xs, y.Val.([]uint32), missOf[uint32](x.Missing), missOf[uint32](y.Missing))
	case []int64:
		return intBinary(op, xs, y.Val.([]int64), missOf[int64](x.Missing), missOf[int64](y.Missing))
	case []uint64:
		return intBinary(op, xs, y.Val.([]uint64), missOf[uint64](x.Missing), missOf[uint64](y.Missing))
	case []float32:
		return floatBinary(op, xs, y.Val.([]float32), missOf[float32](x.Missing), missOf[float32](y.Missing))
	case []float64:
		return floatBinary(op, xs, y.Val.([]float64), missOf[float64](x.Missing), missOf[float64](y.Missing))
	}
	return nil, fmt.Errorf("ncvar: invalid buffer type %T", x.Val)
}

func isMiss[T number](x []T, i int, m *T) bool { return m != nil && x[i] == *m }

func intBinary[T integer](op Op, x, y []T, xm, ym *T) ([]T, error) {
	out := make([]T, len(x))
	m := xm
	if m == nil {
		m = ym
	}
	for i := range x {
		if isMiss(x, i, xm) || isMiss(y, i, ym) {
			out[i] = *m
			continue
		}
		a, b := x[i], y[i]
		switch op {
		case Add:
			out[i] = a + b
		case Sub:
			out[i] = a - b
		case Mul:
			out[i] = a * b
		case Div:
			if b == 0 {
				return nil, ErrDivideByZero
			}
			out[i] = a / b
		case Mod:
			if b == 0 {
				return nil, ErrDivideByZero
			}
			out[i] = a % b
		case Pow:
			out[i] = T(math.Pow(float64(a), float64(b)))
		default:
			out[i] = compare(op, a, b)
		}
	}
	return out, nil
}

func floatBinary[T float](op Op, x, y []T, xm, ym *T) ([]T, error) {
	out := make([]T, len(x))
	m := xm
	if m == nil {
		m = ym
	}
	for i := range x {
		if isMiss(x, i, xm) || isMiss(y, i, ym) {
			out[i] = *m
			continue
		}
		a, b := x[i], y[i]
		switch op {
		case Add:
			out[i] = a + b
		case Sub:
			out[i] = a - b
		case Mul:
			out[i] = a * b
		case Div:
			out[i] = a / b
		case Mod:
			out[i] = T(math.Mod(float64(a), float64(b)))
		case Pow:
			out[i] = T(math.Pow(float64(a), float64(b)))
		default:
			out[i] = compare(op, a, b)
		}
	}
	return out, nil
}

func b2n[T number](b bool) T {
	if b {
		return 1
	}
	return 0
}

func compare[T number](op Op, a, b T) T {
	switch op {
	case Lt:
		return b2n[T](a < b)
	case Gt:
		return b2n[T](a > b)
	case Le:
		return b2n[T](a <= b)
	case Ge:
		return b2n[T](a >= b)
	case Eq:
		return b2n[T](a == b)
	case Ne:
		return b2n[T](a != b)
	case And:
		return b2n[T](a != 0 && b != 0)
	case Or:
		return b2n[T](a != 0 || b != 0)
	case Lesser:
		if a < b {
			return a
		}
		return b
	case Greater:
		if a > b {
			return a
		}
		return b
	}
	panic(fmt.Errorf("ncvar: %v is not a binary operator", op))
}

// Unary applies Neg or Not to v, returning a new value.
func Unary(v *Var, op Op) (*Var, error) {
	if v.Undefined {
		return NewUndefined(v.Name), nil
	}
	if op != Neg && op != Not {
		return nil, fmt.Errorf("ncvar: %v is not a unary operator", op)
	}
	if v.Type == String {
		return nil, fmt.Errorf("ncvar: operator %v is not defined for string value %s", op, v.Name)
	}
	res := v.Dup()
	switch s := res.Val.(type) {
	case []int8:
		unaryT(op, s, missOf[int8](res.Missing))
	case []uint8:
		unaryT(op, s, missOf[uint8](res.Missing))
	case []int16:
		unaryT(op, s, missOf[int16](res.Missing))
	case []uint16:
		unaryT(op, s, missOf[uint16](res.Missing))
	case []int32:
		unaryT(op, s, missOf[int32](res.Missing))
	case []uint32:
		unaryT(op, s, missOf[uint32](res.Missing))
	case []int64:
		unaryT(op, s, missOf[int64](res.Missing))
	case []uint64:
		unaryT(op, s, missOf[uint64](res.Missing))
	case []float32:
		unaryT(op, s, missOf[float32](res.Missing))
	case []float64:
		unaryT(op, s, missOf[float64](res.Missing))
	}
	return res, nil
}

func unaryT[T number](op Op, x []T, m *T) {
	for i := range x {
		if isMiss(x, i, m) {
			continue
		}
		if op == Neg {
			x[i] = -x[i]
		} else {
			x[i] = b2n[T](x[i] == 0)
		}
	}
}

// Truth returns the logical value of v: whether its first element is
// nonzero, or for strings non-empty. Empty and undefined values are false.
func Truth(v *Var) bool {
	if v.Undefined || v.Val == nil || v.Sz == 0 {
		return false
	}
	if s, ok := v.Val.([]string); ok {
		return s[0] != ""
	}
	return v.Float64(0) != 0
}

// Increment adds delta to every element of v that is not missing,
// keeping v's type. Integers are incremented without passing through
// float64, so 64-bit values keep their precision.
func Increment(v *Var, delta int) error {
	if v.Type == String || v.Type == Char {
		return fmt.Errorf("ncvar: cannot increment %v value %s", v.Type, v.Name)
	}
	switch s := v.Val.(type) {
	case []int8:
		incrementT(s, missOf[int8](v.Missing), delta)
	case []uint8:
		incrementT(s, missOf[uint8](v.Missing), delta)
	case []int16:
		incrementT(s, missOf[int16](v.Missing), delta)
	case []uint16:
		incrementT(s, missOf[uint16](v.Missing), delta)
	case []int32:
		incrementT(s, missOf[int32](v.Missing), delta)
	case []uint32:
		incrementT(s, missOf[uint32](v.Missing), delta)
	case []int64:
		incrementT(s, missOf[int64](v.Missing), delta)
	case []uint64:
		incrementT(s, missOf[uint64](v.Missing), delta)
	case []float32:
		incrementT(s, missOf[float32](v.Missing), delta)
	case []float64:
		incrementT(s, missOf[float64](v.Missing), delta)
	}
	return nil
}

func incrementT[T number](x []T, m *T, delta int) {
	for i := range x {
		if isMiss(x, i, m) {
			continue
		}
		if delta < 0 {
			x[i] -= T(-delta)
		} else {
			x[i] += T(delta)
		}
	}
}
