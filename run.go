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
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

// Run evaluates script: first a declarative scan that defines the
// output variables, then the execute scan.
func (e *Evaluator) Run(ctx context.Context, script *ast.Node) error {
	if err := e.resolve(ctx, script); err != nil {
		return err
	}
	for _, initial := range []bool{true, false} {
		if err := e.scan(ctx, script, initial); err != nil {
			return err
		}
	}
	return nil
}

// Check runs only the declarative scan of script. Afterwards Vars
// holds every variable the script would define, with its type and
// shape.
func (e *Evaluator) Check(ctx context.Context, script *ast.Node) error {
	if err := e.resolve(ctx, script); err != nil {
		return err
	}
	return e.scan(ctx, script, true)
}

func (e *Evaluator) resolve(ctx context.Context, script *ast.Node) error {
	e.ctx = ctx
	if err := ast.Resolve(script, e.Funcs.Lookup); err != nil {
		return fmt.Errorf("ncap: %v", err)
	}
	return nil
}

func (e *Evaluator) scan(ctx context.Context, script *ast.Node, initial bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.initial = initial
	defer func() { e.initial = false }()
	log := e.Log.WithField("scan", scanName(initial))
	log.Debug("starting scan")
	if _, err := e.Statements(script, 0); err != nil {
		var se *StructureError
		if !errors.As(err, &se) {
			return err
		}
		log.Error(se)
	}
	if initial {
		e.Ints.Clear()
	}
	log.WithFields(logrus.Fields{"vars": e.Vars.Len()}).Debug("finished scan")
	return nil
}

func scanName(initial bool) string {
	if initial {
		return "declarative"
	}
	return "execute"
}

// Define makes v available to the script as the RAM variable name.
func (e *Evaluator) Define(name string, v *ncvar.Var) {
	v = v.Dup()
	v.Name = name
	e.Vars.PushOW(name, &Symbol{Var: v, State: Populated, RAM: true})
}

// Close finishes the run: input variables the script did not write are
// copied to the output if CopyInput is set, attributes are attached and
// the output file is written.
func (e *Evaluator) Close() error {
	if e.CopyInput {
		if err := e.copyInput(); err != nil {
			return err
		}
	}
	for _, n := range e.Vars.Names() {
		s := e.Vars.Find(n)
		if !s.Att {
			continue
		}
		vn, an := splitAtt(n)
		if vn == "global" {
			vn = ""
		}
		if vn != "" && !e.Output.HasVar(vn) {
			continue
		}
		if err := e.Output.SetAttribute(vn, an, s.Var); err != nil {
			return err
		}
	}
	err := e.Output.Flush()
	if cerr := e.In.Close(); err == nil {
		err = cerr
	}
	return err
}

func (e *Evaluator) copyInput() error {
	for _, name := range e.In.VarNames() {
		if e.Output.HasVar(name) {
			continue
		}
		v, err := e.In.ReadVar(e.ctx, name)
		if err != nil {
			return err
		}
		if _, err := e.Output.Put(v); err != nil {
			return err
		}
		for _, a := range e.In.AttNames(name) {
			att, _ := e.In.Attribute(name, a)
			if err := e.Output.SetAttribute(name, a, att); err != nil {
				return err
			}
		}
		e.Log.WithField("var", name).Debug("copied input variable")
	}
	for _, a := range e.In.AttNames("") {
		if _, ok := e.Output.Attribute("", a); ok {
			continue
		}
		att, _ := e.In.Attribute("", a)
		if err := e.Output.SetAttribute("", a, att); err != nil {
			return err
		}
	}
	return nil
}
