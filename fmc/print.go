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
	"fmt"
	"io"

	"github.com/spatialmodel/ncap/ncvar"
)

// PrintValue writes v to out. With a format the elements are written
// with that printf-style format and nothing else; without one the
// value is written as "name = elements".
func PrintValue(out io.Writer, v *ncvar.Var, format string) error {
	var err error
	if format != "" {
		_, err = io.WriteString(out, ncvar.Format(v, ncvar.CFormat(format)))
	} else {
		_, err = fmt.Fprintf(out, "%s = %s\n", v.Name, ncvar.Format(v, ""))
	}
	return err
}

// Print holds print(value[, format]), which writes a value to standard
// output and returns it, and sprint(value[, format]), which returns the
// formatted value as a char string.
type Print struct{}

const (
	prnPrint = iota
	prnSprint
)

func (Print) Funcs() []Func { return funcs("print", "sprint") }

func (Print) Eval(w Walker, c Call) (*ncvar.Var, error) {
	if err := needArgs(c, 1, 2); err != nil {
		return nil, err
	}
	v, err := w.Out(c.Args[0])
	if err != nil {
		return nil, err
	}
	var format string
	if len(c.Args) == 2 {
		f, err := w.Out(c.Args[1])
		if err != nil {
			return nil, err
		}
		if f.Type != ncvar.Char && f.Type != ncvar.String {
			return nil, argError(c, "the format must be a string")
		}
		format = f.Text()
	}
	if w.InitialScan() || v.Undefined {
		if c.Code == prnSprint {
			return ncvar.NewChar(c.Name, "").Meta(), nil
		}
		return v, nil
	}
	if c.Code == prnSprint {
		s := ncvar.Format(v, ncvar.CFormat(format))
		if format == "" && v.Type == ncvar.Char {
			s = v.Text()
		}
		return ncvar.NewChar(v.Name, s), nil
	}
	if err := PrintValue(w.Stdout(), v, format); err != nil {
		return nil, err
	}
	return v, nil
}
