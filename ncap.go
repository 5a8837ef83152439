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
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap/fmc"
	"github.com/spatialmodel/ncap/ncvar"
)

// Version is the version of ncap.
const Version = "1.0.0"

// Evaluator holds the state of one script run.
type Evaluator struct {
	Log logrus.FieldLogger

	// FortranIndex selects 1-based hyperslab indices. Otherwise indices
	// are 0-based and negative indices count back from the end.
	FortranIndex bool

	// CopyInput copies input variables that the script does not write
	// to the output when the run is closed.
	CopyInput bool

	Funcs *fmc.Registry

	// Vars holds the variables and attributes the script defines, and
	// Ints the values that could not be resolved during the
	// declarative scan.
	Vars, Ints *SymbolTable

	DimsOut, DimsIn *DimTable

	In     *InputFile
	Output *OutputFile

	// InParallel reports whether evaluation is inside a parallel
	// region, where the output may only be read through a read-only
	// view.
	InParallel func() bool

	stdout  io.Writer
	initial bool

	// cast is the shape of the left hand side of a cast assignment
	// while its right hand side is evaluated.
	cast *ncvar.Var

	ctx context.Context
}

var _ fmc.Walker = (*Evaluator)(nil)

// NewEvaluator returns an evaluator that reads from in, which may be
// nil, and writes to out.
func NewEvaluator(in *InputFile, out *OutputFile) *Evaluator {
	e := &Evaluator{
		Log:        logrus.StandardLogger(),
		CopyInput:  true,
		Funcs:      fmc.Default(),
		Vars:       NewSymbolTable(),
		Ints:       NewSymbolTable(),
		DimsOut:    out.Dims,
		In:         in,
		Output:     out,
		InParallel: func() bool { return false },
		stdout:     os.Stdout,
		ctx:        context.Background(),
	}
	if in != nil {
		e.DimsIn = in.Dims
		out.InputDims = in.Dims
	}
	return e
}

// SetStdout sets where print statements write.
func (e *Evaluator) SetStdout(w io.Writer) { e.stdout = w }

// InitialScan reports whether the declarative scan is running.
func (e *Evaluator) InitialScan() bool { return e.initial }

// Logger returns the run's logger.
func (e *Evaluator) Logger() logrus.FieldLogger { return e.Log }

// Stdout returns where print statements write.
func (e *Evaluator) Stdout() io.Writer { return e.stdout }

// DimSize returns the size of the named dimension, looking in the
// output before the input.
func (e *Evaluator) DimSize(name string) (int, bool) {
	if d := e.DimsOut.Find(name); d != nil {
		return d.Size, true
	}
	if d := e.DimsIn.Find(name); d != nil {
		return d.Size, true
	}
	return 0, false
}

// splitAtt splits an attribute name "var@att".
func splitAtt(name string) (v, a string) {
	v, a, _ = strings.Cut(name, "@")
	return v, a
}

func isAttName(name string) bool { return strings.Contains(name, "@") }

// VarExists reports whether the named variable or attribute exists.
func (e *Evaluator) VarExists(name string) bool {
	if isAttName(name) {
		if e.Vars.Find(name) != nil || (e.initial && e.Ints.Find(name) != nil) {
			return true
		}
		_, ok := e.attInit(name)
		return ok
	}
	if s := e.Vars.Find(name); s != nil && !s.Att {
		return true
	}
	if e.In.HasVar(name) {
		return true
	}
	return e.initial && e.Ints.Find(name) != nil
}

// VarNames returns the variables of the input file, or those defined in
// the output.
func (e *Evaluator) VarNames(input bool) []string {
	if input {
		return e.In.VarNames()
	}
	return e.Output.VarNames()
}

// RAMWrite writes the named RAM variable to the output.
func (e *Evaluator) RAMWrite(name string) error {
	s := e.Vars.Find(name)
	if s == nil || !s.RAM || s.Att {
		return fmt.Errorf("ncap: ram_write: %s is not a RAM variable", name)
	}
	v, err := e.varInit(name, true)
	if err != nil {
		return err
	}
	m, err := e.Output.Put(v)
	if err != nil {
		return err
	}
	s.Var, s.RAM, s.State = m, false, Populated
	return nil
}

// RAMDelete removes the named RAM variable.
func (e *Evaluator) RAMDelete(name string) error {
	s := e.Vars.Find(name)
	if s == nil || !s.RAM || s.Att {
		return fmt.Errorf("ncap: ram_delete: %s is not a RAM variable", name)
	}
	e.Vars.Delete(name)
	return nil
}

// SetMissing sets the missing value of the named variable to m, or
// removes it if m is nil. If change is true, elements holding the old
// missing value are given the new one.
func (e *Evaluator) SetMissing(name string, m *ncvar.Var, change bool) error {
	v, err := e.varInit(name, true)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("ncap: setting missing value: unable to find variable %s", name)
	}
	if change && m != nil && v.HasData() {
		nm := m.Dup().Convert(v.Type)
		for i := 0; i < v.Sz; i++ {
			if v.IsMissing(i) {
				if err := ncvar.PutOne(v, i, nm); err != nil {
					return err
				}
			}
		}
	}
	v.SetMissing(m)
	s := e.Vars.Find(name)
	return e.varWrite(v, s != nil && s.RAM)
}

// SetVar stores v under name. A new variable is kept in memory.
func (e *Evaluator) SetVar(name string, v *ncvar.Var) error {
	s := e.Vars.Find(name)
	v = v.Dup()
	v.Name = name
	return e.varWrite(v, s == nil || s.RAM)
}

func (e *Evaluator) output() VarReader {
	if e.InParallel() {
		return e.Output.ReadOnly()
	}
	return e.Output
}

// varInit returns the named variable, from the variables the script
// has defined or else from the input file. The data is read only if
// data is true and the execute scan is running. It returns nil if the
// variable cannot be found.
func (e *Evaluator) varInit(name string, data bool) (*ncvar.Var, error) {
	data = data && !e.initial
	if e.initial {
		if s := e.Ints.Find(name); s != nil {
			return s.Var.Dup(), nil
		}
	}
	if s := e.Vars.Find(name); s != nil && !s.Att {
		switch {
		case s.RAM:
			if !data {
				return s.Var.Meta(), nil
			}
			if s.Var.HasData() {
				return s.Var.Dup(), nil
			}
			return e.declared(s.Var)
		case s.State == Populated:
			if data {
				return e.output().Get(name)
			}
			return s.Var.Meta(), nil
		default:
			if data {
				return e.declared(s.Var)
			}
			return s.Var.Meta(), nil
		}
	}
	if e.In.HasVar(name) {
		if data {
			return e.In.ReadVar(e.ctx, name)
		}
		return e.In.VarMeta(name)
	}
	return nil, nil
}

// declared returns the data of a variable that has been declared but
// not written: the input variable of the same name, or zeros.
func (e *Evaluator) declared(meta *ncvar.Var) (*ncvar.Var, error) {
	if e.In.HasVar(meta.Name) {
		v, err := e.In.ReadVar(e.ctx, meta.Name)
		if err != nil {
			return nil, err
		}
		if v.Sz == meta.Sz {
			return v.Convert(meta.Type), nil
		}
	}
	v := meta.Meta()
	v.Val = ncvar.Zero(v.Type, v.Sz)
	return v, nil
}

// varWrite stores v. On the declarative scan only the type and shape are
// recorded and disk variables are defined in the output; on the execute
// scan RAM variables are kept in memory and the others written to the
// output. A variable that is already in memory stays there.
func (e *Evaluator) varWrite(v *ncvar.Var, ram bool) error {
	name := v.Name
	s := e.Vars.Find(name)
	if e.initial {
		switch {
		case v.Undefined:
			if s == nil {
				e.Ints.PushOW(name, &Symbol{Var: v.Meta()})
			}
			return nil
		case s != nil:
			return nil
		}
		m := v.Meta()
		e.Vars.Push(name, &Symbol{Var: m, State: Declared, RAM: ram})
		e.Ints.Delete(name)
		if !ram {
			if err := e.Output.DefineVar(m); err != nil {
				return err
			}
		}
		e.Log.WithFields(logrus.Fields{"var": name, "type": m.Type, "ram": ram}).Debug("declared variable")
		return nil
	}

	if v.Undefined {
		return fmt.Errorf("ncap: writing %s: value is undefined", name)
	}
	if s != nil && s.RAM {
		ram = true
	}
	if ram {
		e.Vars.PushOW(name, &Symbol{Var: v.Dup(), State: Populated, RAM: true})
	} else {
		m, err := e.Output.Put(v)
		if err != nil {
			return err
		}
		e.Vars.PushOW(name, &Symbol{Var: m, State: Populated})
	}
	if v.Pack != nil {
		e.pushAtt(ncvar.NewDouble(name+"@scale_factor", v.Pack.Scale))
		e.pushAtt(ncvar.NewDouble(name+"@add_offset", v.Pack.Offset))
	}
	return nil
}

func (e *Evaluator) pushAtt(a *ncvar.Var) {
	a.IsAtt = true
	e.Vars.PushOW(a.Name, &Symbol{Var: a, State: Populated, Att: true})
}

// attInit returns the named attribute from the input file. The
// variable part of the name may be empty or "global" for a global
// attribute.
func (e *Evaluator) attInit(name string) (*ncvar.Var, bool) {
	v, a := splitAtt(name)
	if v == "global" {
		v = ""
	}
	att, ok := e.In.Attribute(v, a)
	if !ok {
		return nil, false
	}
	att.Name = name
	return att, true
}

// attCpy gives variable dst every attribute of variable src that dst
// does not have yet.
func (e *Evaluator) attCpy(dst, src string) {
	if src == "" || isAttName(src) || strings.HasPrefix(src, "~") {
		return
	}
	for _, a := range e.In.AttNames(src) {
		n := dst + "@" + a
		if e.Vars.Find(n) != nil {
			continue
		}
		if att, ok := e.In.Attribute(src, a); ok {
			att.Name = n
			e.pushAtt(att)
		}
	}
	if dst == src {
		return
	}
	prefix := src + "@"
	for _, n := range e.Vars.Names() {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		dn := dst + "@" + n[len(prefix):]
		if e.Vars.Find(dn) == nil {
			a := e.Vars.Find(n).Var.Dup()
			a.Name = dn
			e.pushAtt(a)
		}
	}
}

// attrWrite stores the attribute v. Writing a _FillValue attribute sets
// the missing value of its variable.
func (e *Evaluator) attrWrite(v *ncvar.Var) error {
	a := v.Dup()
	a.Missing = nil
	a.Dims = nil
	a.Sliced = false
	e.pushAtt(a)
	if vn, an := splitAtt(a.Name); an == "_FillValue" && !e.initial && e.VarExists(vn) {
		return e.SetMissing(vn, a, false)
	}
	return nil
}
