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
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

type lhsShape int

const (
	lhsPlain   lhsShape = iota // x = ...
	lhsIndexed                 // x(0:2) = ...
	lhsCast                    // x[lat,lon] = ...
)

// shapeOf classifies an assignment target, returning its LMT_LIST or
// DMN_LIST if it has one.
func shapeOf(n *ast.Node) (lhsShape, *ast.Node, error) {
	if !n.Is(ast.VAR_ID) && !n.Is(ast.ATT_ID) {
		return 0, nil, structureErr(n, "invalid assignment target")
	}
	c := n.FirstChild()
	switch {
	case c == nil:
		return lhsPlain, nil, nil
	case c.Is(ast.LMT_LIST):
		return lhsIndexed, c, nil
	case c.Is(ast.DMN_LIST):
		return lhsCast, c, nil
	}
	return 0, nil, structureErr(n, "unexpected %v in assignment target", c.Tag)
}

// assignExpr evaluates an ASSIGN node. With noret the assigned value is
// not read back, and nil is returned.
func (e *Evaluator) assignExpr(n *ast.Node, noret bool) (*ncvar.Var, error) {
	kids := n.Children()
	if len(kids) != 2 {
		return nil, structureErr(n, "assignment needs two operands, has %d", len(kids))
	}
	lhs, rhs := kids[0], kids[1]
	ram := false
	if lhs.Is(ast.UTIMES) {
		lhs, ram = lhs.FirstChild(), true
		if lhs.Is(ast.VAR_ID) {
			if s := e.Vars.Find(lhs.Text); s != nil && !s.RAM {
				return nil, fmt.Errorf("ncap: It is impossible to recast disk variable: \"%s\" as a RAM variable.", lhs.Text)
			}
		}
	}
	if e.initial {
		return e.assignNTL(lhs, rhs, ram)
	}
	return e.assign(lhs, rhs, ram, noret)
}

// outAsn resolves the target of an increment or compound assignment.
func (e *Evaluator) outAsn(n *ast.Node) (*ncvar.Var, error) {
	if n.Is(ast.UTIMES) {
		n = n.FirstChild()
	}
	switch {
	case n.Is(ast.VAR_ID):
		if n.FirstChild() != nil {
			return nil, fmt.Errorf("ncap: Invalid Lvalue %s", n.Text)
		}
		if s := e.Vars.Find(n.Text); s == nil || s.State == Declared {
			e.attCpy(n.Text, n.Text)
		}
		v, err := e.varInit(n.Text, true)
		if err != nil {
			return nil, err
		}
		if v == nil {
			if e.initial {
				return ncvar.NewUndefined(n.Text), nil
			}
			return nil, fmt.Errorf("ncap: unable to find variable %s", n.Text)
		}
		return v, nil
	case n.Is(ast.ATT_ID):
		return e.attID(n)
	}
	return nil, structureErr(n, "invalid assignment target")
}

func (e *Evaluator) unsupportedTarget(name string) (*ncvar.Var, error) {
	e.Log.WithField("att", name).Warn("hyperslabs and casts of attributes are not supported; assignment ignored")
	return ncvar.NewUndefined(name), nil
}

// undefined records name as unresolved on the declarative scan.
func (e *Evaluator) undefined(name string) *ncvar.Var {
	u := ncvar.NewUndefined(name)
	if e.Vars.Find(name) == nil {
		e.Ints.PushOW(name, &Symbol{Var: u})
	}
	return u.Dup()
}

// assignNTL is assignment on the declarative scan: it records the type
// and shape of the target.
func (e *Evaluator) assignNTL(lhs, rhs *ast.Node, ram bool) (*ncvar.Var, error) {
	shape, sub, err := shapeOf(lhs)
	if err != nil {
		return nil, err
	}
	name := lhs.Text
	if lhs.Is(ast.ATT_ID) {
		if shape != lhsPlain {
			return e.unsupportedTarget(name)
		}
		return e.undefined(name), nil
	}

	switch shape {
	case lhsIndexed:
		if _, err := e.Out(rhs); err != nil {
			return nil, err
		}
		v, err := e.varInit(name, false)
		if err != nil {
			return nil, err
		}
		if v == nil || v.Undefined {
			return e.undefined(name), nil
		}
		ret := v.Dup()
		return ret, e.varWrite(v, ram)

	case lhsCast:
		tmpl, err := e.castTemplate(sub)
		if err != nil {
			return e.undefined(name), nil
		}
		prev := e.cast
		e.cast = tmpl
		r, err := e.Out(rhs)
		e.cast = prev
		if err != nil {
			return nil, err
		}
		if r.Undefined {
			return e.undefined(name), nil
		}
		v := tmpl.Meta()
		v.Name, v.Type, v.Missing = name, r.Type, r.Missing
		ret := v.Dup()
		return ret, e.varWrite(v, ram)
	}

	r, err := e.Out(rhs)
	if err != nil {
		return nil, err
	}
	if r.Undefined {
		return e.undefined(name), nil
	}
	v := r.Meta()
	v.Name, v.IsAtt, v.Sliced = name, false, false
	ret := v.Dup()
	return ret, e.varWrite(v, ram)
}

// assign is assignment on the execute scan.
func (e *Evaluator) assign(lhs, rhs *ast.Node, ram, noret bool) (*ncvar.Var, error) {
	shape, sub, err := shapeOf(lhs)
	if err != nil {
		return nil, err
	}
	name := lhs.Text
	if lhs.Is(ast.ATT_ID) {
		if shape != lhsPlain {
			return e.unsupportedTarget(name)
		}
		r, err := e.Out(rhs)
		if err != nil {
			return nil, err
		}
		r.Name = name
		if err := e.attrWrite(r); err != nil {
			return nil, err
		}
		return result(r, noret), nil
	}

	switch shape {
	case lhsIndexed:
		return e.assignSlab(name, sub, rhs, ram, noret)
	case lhsCast:
		return e.assignCast(name, sub, rhs, ram, noret)
	}

	r, err := e.Out(rhs)
	if err != nil {
		return nil, err
	}
	if r.Undefined {
		return nil, fmt.Errorf("ncap: assigning %s: value is undefined", name)
	}
	src := r.Name
	r.Name = name
	s := e.Vars.Find(name)
	if s == nil || s.State == Declared {
		e.attCpy(name, src)
	}
	if s != nil && s.State == Populated && r.Sz == 1 && s.Var.Sz > 1 {
		hasMiss := r.HasMissing()
		r = r.Convert(s.Var.Type).Stretch(s.Var)
		if !hasMiss {
			r.Missing = s.Var.Meta().Missing
		}
	}
	r.IsAtt, r.Sliced = false, false
	if err := e.varWrite(r, ram); err != nil {
		return nil, err
	}
	return result(r, noret), nil
}

func result(v *ncvar.Var, noret bool) *ncvar.Var {
	if noret {
		return nil
	}
	return v
}

// diskTarget makes sure the named variable has been written to the
// output so that part of it can be overwritten.
func (e *Evaluator) diskTarget(name string) error {
	if s := e.Vars.Find(name); s != nil && s.State == Populated {
		return nil
	}
	v, err := e.varInit(name, true)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("ncap: unable to find variable %s", name)
	}
	e.attCpy(name, name)
	if e.In.HasVar(name) {
		e.Log.WithField("var", name).Warn("Var being read and written in ASSIGN")
	}
	return e.varWrite(v, false)
}

// assignSlab assigns to a hyperslab of a variable.
func (e *Evaluator) assignSlab(name string, lmtList, rhs *ast.Node, ram, noret bool) (*ncvar.Var, error) {
	s := e.Vars.Find(name)
	if s != nil {
		ram = s.RAM
	}
	meta, err := e.varInit(name, false)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("ncap: unable to find variable %s", name)
	}
	if isPoint(lmtList) && meta.Rank() != 1 {
		return e.varLmtOneLHS(name, lmtList, rhs, ram, noret)
	}

	var target *ncvar.Var
	if ram {
		if s != nil && s.RAM && s.Var.HasData() {
			target = s.Var
		} else if target, err = e.varInit(name, true); err != nil {
			return nil, err
		}
	} else {
		if err := e.diskTarget(name); err != nil {
			return nil, err
		}
		target = e.Output.Meta(name)
	}

	lmts, err := e.limits(lmtList, target)
	if err != nil {
		return nil, err
	}
	r, err := e.Out(rhs)
	if err != nil {
		return nil, err
	}
	n := 1
	for _, l := range lmts {
		n *= l.Count
	}
	if r.Sz != 1 && r.Sz != n {
		return nil, fmt.Errorf("ncap: Hyperslab for %s - number of elements on LHS(%d) doesn't equal number of elements on RHS(%d)", name, n, r.Sz)
	}
	r.Convert(target.Type)

	if ram {
		if err := ncvar.PutSlab(target, lmts, r); err != nil {
			return nil, err
		}
		if s == nil || target != s.Var {
			if err := e.varWrite(target, true); err != nil {
				return nil, err
			}
		} else {
			s.State = Populated
		}
	} else if err := e.Output.PutSlab(name, lmts, r); err != nil {
		return nil, err
	}
	e.Log.WithFields(logrus.Fields{"var": name, "ram": ram}).Debug("wrote hyperslab")
	if noret {
		return nil, nil
	}
	return e.varInit(name, true)
}

// assignCast assigns a value to a variable with the dimensions listed
// on the left hand side, x[lat,lon] = ....
func (e *Evaluator) assignCast(name string, dmnList, rhs *ast.Node, ram, noret bool) (*ncvar.Var, error) {
	tmpl, err := e.castTemplate(dmnList)
	if err != nil {
		return nil, err
	}
	prev := e.cast
	e.cast = tmpl
	r, err := e.Out(rhs)
	e.cast = prev
	if err != nil {
		return nil, err
	}
	src := r.Name
	switch {
	case r.Sz == 1:
		r = r.Stretch(tmpl)
	case r.Sz == tmpl.Sz && (r.IsAtt || r.Sliced || r.Rank() == 0):
		if err := r.Reshape(tmpl.Dims); err != nil {
			return nil, err
		}
	case r.Sz == tmpl.Sz:
		if r, err = ncvar.ConformTo(tmpl, r); err != nil || !sameDims(r, tmpl) {
			return nil, fmt.Errorf("ncap: LHS cast for %s - cannot make RHS %s conform.", name, src)
		}
	default:
		return nil, fmt.Errorf("ncap: LHS cast for %s - cannot make RHS %s conform.", name, src)
	}
	r.Name, r.IsAtt, r.Sliced = name, false, false
	if s := e.Vars.Find(name); s == nil || s.State == Declared {
		e.attCpy(name, src)
	}
	if err := e.varWrite(r, ram); err != nil {
		return nil, err
	}
	return result(r, noret), nil
}

func sameDims(a, b *ncvar.Var) bool {
	if a.Rank() != b.Rank() {
		return false
	}
	for i, d := range a.Dims {
		if d != b.Dims[i] {
			return false
		}
	}
	return true
}
