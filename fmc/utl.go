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
	"regexp"
	"strconv"
	"strings"

	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

// Utility holds the functions that manage missing values and RAM
// variables.
type Utility struct{}

const (
	utlSetMiss = iota
	utlChangeMiss
	utlDeleteMiss
	utlGetMiss
	utlNumberMiss
	utlHasMiss
	utlRAMWrite
	utlRAMDelete
)

func (Utility) Funcs() []Func {
	return funcs("set_miss", "change_miss", "delete_miss", "get_miss", "number_miss", "has_miss",
		"ram_write", "ram_delete")
}

func (Utility) Eval(w Walker, c Call) (*ncvar.Var, error) {
	switch c.Code {
	case utlSetMiss, utlChangeMiss:
		if err := needArgs(c, 2, 2); err != nil {
			return nil, err
		}
		name, err := varName(c, c.Args[0])
		if err != nil {
			return nil, err
		}
		m, err := w.Out(c.Args[1])
		if err != nil {
			return nil, err
		}
		if !w.InitialScan() && !m.Undefined {
			if err := w.SetMissing(name, m, c.Code == utlChangeMiss); err != nil {
				return nil, err
			}
		}
		return ncvar.NewInt(c.Name, 1), nil

	case utlDeleteMiss, utlRAMWrite, utlRAMDelete:
		if err := needArgs(c, 1, 1); err != nil {
			return nil, err
		}
		name, err := varName(c, c.Args[0])
		if err != nil {
			return nil, err
		}
		if w.InitialScan() {
			return ncvar.NewInt(c.Name, 1), nil
		}
		switch c.Code {
		case utlDeleteMiss:
			err = w.SetMissing(name, nil, false)
		case utlRAMWrite:
			err = w.RAMWrite(name)
		default:
			err = w.RAMDelete(name)
		}
		if err != nil {
			return nil, err
		}
		return ncvar.NewInt(c.Name, 1), nil
	}

	if err := needArgs(c, 1, 1); err != nil {
		return nil, err
	}
	v, err := w.Out(c.Args[0])
	if err != nil {
		return nil, err
	}
	if v.Undefined {
		return v, nil
	}
	switch c.Code {
	case utlGetMiss:
		m := v.MissingVar()
		if m == nil {
			m = ncvar.DefaultFill(v.Type)
		}
		m.Name = v.Name
		return m, nil
	case utlNumberMiss:
		if w.InitialScan() {
			return ncvar.NewInt64(c.Name, 0).Meta(), nil
		}
		return ncvar.NewInt64(c.Name, int64(v.NumMissing())), nil
	default:
		var has int32
		if v.HasMissing() {
			has = 1
		}
		return ncvar.NewInt(c.Name, has), nil
	}
}

// Basic holds the functions that describe a value.
type Basic struct{}

const (
	bscSize = iota
	bscType
	bscNDims
	bscExists
	bscGetDims
)

func (Basic) Funcs() []Func { return funcs("size", "type", "ndims", "exists", "getdims") }

func (Basic) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if err := needArgs(c, 1, 1); err != nil {
		return nil, err
	}
	if c.Code == bscExists {
		a := c.Args[0]
		if !a.Is(ast.VAR_ID) && !a.Is(ast.ATT_ID) {
			return nil, argError(c, "argument must be a variable or attribute name, not %v", a)
		}
		var e int32
		if w.VarExists(a.Text) {
			e = 1
		}
		return ncvar.NewInt(c.Name, e), nil
	}
	v, err := w.Out(c.Args[0])
	if err != nil {
		return nil, err
	}
	switch c.Code {
	case bscSize:
		if v.Undefined {
			return ncvar.NewInt64(c.Name, 0).Meta(), nil
		}
		return ncvar.NewInt64(c.Name, int64(v.Len())), nil
	case bscType:
		return ncvar.NewInt(c.Name, int32(v.Type)), nil
	case bscNDims:
		return ncvar.NewInt(c.Name, int32(v.Rank())), nil
	}
	if v.Undefined {
		return v, nil
	}
	d := ncvar.NewStrings(v.Name, v.DimNames()...)
	if w.InitialScan() {
		return d.Meta(), nil
	}
	return d, nil
}

// VarList holds the functions that list variable names and convert
// strings to numbers.
type VarList struct{}

const (
	vlGetVarsIn = iota
	vlGetVarsOut
	vlAtoi
	vlAtol
)

func (VarList) Funcs() []Func { return funcs("get_vars_in", "get_vars_out", "atoi", "atol") }

func (VarList) Eval(w Walker, c Call) (*ncvar.Var, error) {
	switch c.Code {
	case vlGetVarsIn, vlGetVarsOut:
		if err := needArgs(c, 0, 1); err != nil {
			return nil, err
		}
		var re *regexp.Regexp
		if len(c.Args) == 1 {
			p, err := w.Out(c.Args[0])
			if err != nil {
				return nil, err
			}
			if p.Type != ncvar.Char && p.Type != ncvar.String {
				return nil, argError(c, "the filter must be a string")
			}
			if p.HasData() {
				if re, err = regexp.Compile(p.Text()); err != nil {
					return nil, argError(c, "invalid filter: %v", err)
				}
			}
		}
		var names []string
		for _, n := range w.VarNames(c.Code == vlGetVarsIn) {
			if re == nil || re.MatchString(n) {
				names = append(names, n)
			}
		}
		return ncvar.NewStrings(c.Name, names...), nil
	}

	if err := needArgs(c, 1, 1); err != nil {
		return nil, err
	}
	s, err := w.Out(c.Args[0])
	if err != nil {
		return nil, err
	}
	if s.Undefined {
		return s, nil
	}
	if s.Type != ncvar.Char && s.Type != ncvar.String {
		return nil, argError(c, "argument %s must be a string", s.Name)
	}
	if w.InitialScan() || !s.HasData() {
		if c.Code == vlAtoi {
			return ncvar.NewInt(c.Name, 0).Meta(), nil
		}
		return ncvar.NewInt64(c.Name, 0).Meta(), nil
	}
	txt := strings.TrimSpace(s.Text())
	if c.Code == vlAtoi {
		i, err := strconv.ParseInt(txt, 10, 32)
		if err != nil {
			return nil, argError(c, "cannot convert %q to an int: %v", txt, err)
		}
		return ncvar.NewInt(c.Name, int32(i)), nil
	}
	i, err := strconv.ParseInt(txt, 10, 64)
	if err != nil {
		return nil, argError(c, "cannot convert %q to an int64: %v", txt, err)
	}
	return ncvar.NewInt64(c.Name, i), nil
}
