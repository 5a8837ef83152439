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
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/fmc"
	"github.com/spatialmodel/ncap/ncvar"
)

type stmtFunc func(e *Evaluator, n *ast.Node, depth int) (ast.Tag, error)

// stmtTable dispatches statement nodes by tag. It is filled in init
// because its entries refer back to Statements.
var stmtTable map[ast.Tag]stmtFunc

func init() {
	passTag := func(e *Evaluator, n *ast.Node, depth int) (ast.Tag, error) { return n.Tag, nil }
	stmtTable = map[ast.Tag]stmtFunc{
		ast.BLOCK:     (*Evaluator).block,
		ast.EXPR:      (*Evaluator).expr,
		ast.FEXPR:     (*Evaluator).fexpr,
		ast.IF:        (*Evaluator).ifStmt,
		ast.WHILE:     (*Evaluator).whileStmt,
		ast.FOR:       (*Evaluator).forStmt,
		ast.WHERE:     (*Evaluator).where,
		ast.DEFDIM:    (*Evaluator).defdim,
		ast.PRINT:     (*Evaluator).print,
		ast.BREAK:     passTag,
		ast.CONTINUE:  passTag,
		ast.ELSE:      passTag,
		ast.NULL_NODE: passTag,
	}
}

// Statements executes the statement n. depth is the number of loops
// that enclose it. The returned tag is BREAK or CONTINUE when one of
// those statements was reached, so that the enclosing loop can act on
// it.
func (e *Evaluator) Statements(n *ast.Node, depth int) (ast.Tag, error) {
	if n == nil {
		return ast.NULL_NODE, structureErr(nil, "missing statement")
	}
	f, ok := stmtTable[n.Tag]
	if !ok {
		return n.Tag, structureErr(n, "unexpected statement")
	}
	return f(e, n, depth)
}

// block executes each statement of a block in turn. A statement the
// evaluator does not understand is logged and skipped.
func (e *Evaluator) block(n *ast.Node, depth int) (ast.Tag, error) {
	for c := n.FirstChild(); c != nil; c = c.Next() {
		tag, err := e.Statements(c, depth)
		var se *StructureError
		switch {
		case errors.As(err, &se):
			e.Log.WithField("node", c.String()).Error(se)
			continue
		case err != nil:
			return tag, err
		}
		if tag == ast.BREAK || tag == ast.CONTINUE {
			if depth == 0 {
				return tag, fmt.Errorf("ncap: %v outside a loop", tag)
			}
			return tag, nil
		}
	}
	return ast.BLOCK, nil
}

// body executes the body of a loop or branch.
func (e *Evaluator) body(n *ast.Node, depth int) (ast.Tag, error) {
	if n.Is(ast.BLOCK) {
		return e.block(n, depth)
	}
	tag, err := e.Statements(n, depth)
	if err == nil && (tag == ast.BREAK || tag == ast.CONTINUE) && depth == 0 {
		return tag, fmt.Errorf("ncap: %v outside a loop", tag)
	}
	return tag, err
}

func (e *Evaluator) expr(n *ast.Node, depth int) (ast.Tag, error) {
	c := n.FirstChild()
	var err error
	if c.Is(ast.ASSIGN) {
		_, err = e.assignExpr(c, !e.initial)
	} else {
		_, err = e.Out(c)
	}
	return ast.EXPR, err
}

func (e *Evaluator) fexpr(n *ast.Node, depth int) (ast.Tag, error) {
	_, err := e.Out(n.FirstChild())
	return ast.FEXPR, err
}

// truth evaluates a condition.
func (e *Evaluator) truth(n *ast.Node) (bool, error) {
	v, err := e.Out(n)
	if err != nil {
		return false, err
	}
	return ncvar.Truth(v), nil
}

func (e *Evaluator) ifStmt(n *ast.Node, depth int) (ast.Tag, error) {
	if e.initial {
		return ast.IF, nil
	}
	kids := n.Children()
	if len(kids) < 2 || len(kids) > 3 {
		return ast.IF, structureErr(n, "if statement has %d parts", len(kids))
	}
	ok, err := e.truth(kids[0])
	if err != nil {
		return ast.IF, err
	}
	switch {
	case ok:
		return e.body(kids[1], depth)
	case len(kids) == 3:
		els := kids[2]
		if els.Is(ast.ELSE) {
			els = els.FirstChild()
		}
		return e.body(els, depth)
	}
	return ast.IF, nil
}

func (e *Evaluator) whileStmt(n *ast.Node, depth int) (ast.Tag, error) {
	if e.initial {
		return ast.WHILE, nil
	}
	kids := n.Children()
	if len(kids) != 2 {
		return ast.WHILE, structureErr(n, "while statement has %d parts", len(kids))
	}
	for {
		ok, err := e.truth(kids[0])
		if err != nil || !ok {
			return ast.WHILE, err
		}
		tag, err := e.body(kids[1], depth+1)
		if err != nil {
			return ast.WHILE, err
		}
		if tag == ast.BREAK {
			return ast.WHILE, nil
		}
	}
}

func (e *Evaluator) forStmt(n *ast.Node, depth int) (ast.Tag, error) {
	if e.initial {
		return ast.FOR, nil
	}
	kids := n.Children()
	if len(kids) != 4 {
		return ast.FOR, structureErr(n, "for statement has %d parts", len(kids))
	}
	start, cond, incr, body := kids[0], kids[1], kids[2], kids[3]
	if err := e.forPart(start, depth); err != nil {
		return ast.FOR, err
	}
	for {
		if !cond.Is(ast.NULL_NODE) {
			ok, err := e.truth(cond)
			if err != nil || !ok {
				return ast.FOR, err
			}
		}
		tag, err := e.body(body, depth+1)
		if err != nil {
			return ast.FOR, err
		}
		if tag == ast.BREAK {
			return ast.FOR, nil
		}
		if err := e.forPart(incr, depth); err != nil {
			return ast.FOR, err
		}
	}
}

// forPart runs the initialization or increment of a for loop, which
// may be an expression or an expression statement.
func (e *Evaluator) forPart(n *ast.Node, depth int) error {
	switch {
	case n.Is(ast.NULL_NODE):
		return nil
	case n.Tag.IsStatement():
		_, err := e.Statements(n, depth)
		return err
	}
	_, err := e.Out(n)
	return err
}

// where executes where(mask) body [elsewhere body]: each assignment in
// the body only changes the elements where the mask is true.
func (e *Evaluator) where(n *ast.Node, depth int) (ast.Tag, error) {
	if e.initial {
		return ast.WHERE, nil
	}
	kids := n.Children()
	if len(kids) < 2 || len(kids) > 3 {
		return ast.WHERE, structureErr(n, "where statement has %d parts", len(kids))
	}
	mask, err := e.Out(kids[0])
	if err != nil {
		return ast.WHERE, err
	}
	mask = mask.Convert(ncvar.Short)
	if mask.HasMissing() {
		mask.Miss2Zero()
	}
	if err := e.whereBody(kids[1], mask); err != nil {
		return ast.WHERE, err
	}
	if len(kids) == 3 {
		inv, err := ncvar.Unary(mask, ncvar.Not)
		if err != nil {
			return ast.WHERE, err
		}
		if err := e.whereBody(kids[2], inv); err != nil {
			return ast.WHERE, err
		}
	}
	return ast.WHERE, nil
}

func (e *Evaluator) whereBody(n *ast.Node, mask *ncvar.Var) error {
	stmts := []*ast.Node{n}
	if n.Is(ast.BLOCK) {
		stmts = n.Children()
	}
	for _, s := range stmts {
		err := e.whereAssign(s, mask)
		var se *StructureError
		if errors.As(err, &se) {
			e.Log.WithField("node", s.String()).Error(se)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// whereAssign executes one assignment of a where body.
func (e *Evaluator) whereAssign(stmt *ast.Node, mask *ncvar.Var) error {
	a := stmt
	if a.Is(ast.EXPR) {
		a = a.FirstChild()
	}
	if !(a.Is(ast.ASSIGN) || a.Is(ast.WHERE_ASSIGN)) || a.NumChildren() != 2 {
		return structureErr(stmt, "where bodies may only hold assignments")
	}
	lhs, rhs := a.FirstChild(), a.FirstChild().Next()
	if !lhs.Is(ast.VAR_ID) || lhs.FirstChild() != nil {
		return structureErr(lhs, "where assignments need a plain variable on the left hand side")
	}
	name := lhs.Text
	r, err := e.Out(rhs)
	if err != nil {
		return err
	}
	l, err := e.varInit(name, true)
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("ncap: unable to find variable %s", name)
	}
	src := r.Name
	r = r.Convert(l.Type)
	if r.Sz > 1 && (r.Sz != l.Sz || (r.Rank() > 0 && !sameDims(r, l))) {
		if r, err = ncvar.ConformTo(l, r); err != nil {
			return fmt.Errorf("ncap: Cannot make variable: %s and variable %s conform in where statement.", name, src)
		}
	}
	if mask.Sz != l.Sz || (mask.Rank() > 0 && !sameDims(mask, l)) {
		m, err := ncvar.ConformTo(l, mask)
		if err != nil {
			return fmt.Errorf("ncap: Cannot make variable: %s and where mask variable %s conform.", name, mask.Name)
		}
		mask = m
	}
	if err := ncvar.CopyMasked(l, r, mask); err != nil {
		return err
	}
	if e.Vars.Find(name) == nil {
		e.attCpy(name, name)
	}
	return e.varWrite(l, false)
}

// evalNow evaluates n as on the execute scan.
func (e *Evaluator) evalNow(n *ast.Node) (*ncvar.Var, error) {
	if e.initial {
		e.initial = false
		defer func() { e.initial = true }()
	}
	v, err := e.Out(n)
	if err != nil {
		return nil, err
	}
	if !v.HasData() || v.Sz < 1 {
		return nil, fmt.Errorf("ncap: %v has no value", n)
	}
	return v, nil
}

// defdim defines an output dimension: defdim(name, size[, flag]). A
// flag of 0 makes the dimension unlimited.
func (e *Evaluator) defdim(n *ast.Node, depth int) (ast.Tag, error) {
	kids := n.Children()
	if len(kids) < 2 || len(kids) > 3 || !kids[0].Is(ast.NSTRING) {
		return ast.DEFDIM, structureErr(n, "defdim needs a name and a size")
	}
	name := unescape(kids[0].Text)
	for _, k := range kids[1:] {
		if e.initial && !constantExpr(k) {
			return ast.DEFDIM, nil
		}
	}
	unlimited := n.Text == "0"
	if n.Text == "1" && len(kids) == 3 {
		f, err := e.evalNow(kids[2])
		if err != nil {
			return ast.DEFDIM, err
		}
		switch f.Int64(0) {
		case 0:
			unlimited = true
		case 1:
			unlimited = false
		default:
			return ast.DEFDIM, fmt.Errorf("ncap: defdim for %s. Third argument must be 0 for \"UNLIMITED\" or 1 for \"LIMITED\" or void", name)
		}
	}
	sz, err := e.evalNow(kids[1])
	if err != nil {
		return ast.DEFDIM, err
	}
	if err := e.Output.DefineDim(name, int(sz.Int64(0)), unlimited); err != nil {
		return ast.DEFDIM, err
	}
	e.Log.WithFields(logrus.Fields{"dim": name, "size": sz.Int64(0), "unlimited": unlimited}).Debug("defined dimension")
	return ast.DEFDIM, nil
}

// print writes a variable, an attribute or a string to standard output.
func (e *Evaluator) print(n *ast.Node, depth int) (ast.Tag, error) {
	if e.initial {
		return ast.PRINT, nil
	}
	kids := n.Children()
	if len(kids) < 1 || len(kids) > 2 {
		return ast.PRINT, structureErr(n, "print statement has %d parts", len(kids))
	}
	var format string
	if len(kids) == 2 {
		if !kids[1].Is(ast.NSTRING) {
			return ast.PRINT, structureErr(n, "print format must be a string")
		}
		format = unescape(kids[1].Text)
	}
	t := kids[0]
	var v *ncvar.Var
	var err error
	switch {
	case t.Is(ast.NSTRING):
		_, err = io.WriteString(e.stdout, unescape(t.Text))
		return ast.PRINT, err
	case t.Is(ast.VAR_ID) && t.FirstChild() != nil:
		v, err = e.Out(t)
	case t.Is(ast.VAR_ID):
		s := e.Vars.Find(t.Text)
		switch {
		case s != nil && !s.Att && (s.State == Populated || s.RAM):
			v, err = e.varInit(t.Text, true)
		case e.In.HasVar(t.Text):
			v, err = e.In.ReadVar(e.ctx, t.Text)
		default:
			e.Log.Warnf("Print function cannot find var \"%s\" in input or output", t.Text)
			return ast.PRINT, nil
		}
	case t.Is(ast.ATT_ID):
		vn, an := splitAtt(t.Text)
		if an == "_FillValue" && e.Vars.Find(vn) != nil {
			m, err := e.varInit(vn, false)
			if err != nil {
				return ast.PRINT, err
			}
			if v = m.MissingVar(); v == nil {
				e.Log.Warnf("Cannot print missing value for variable %s as it is undefined", vn)
				return ast.PRINT, nil
			}
			v.Name = t.Text
		} else if v = e.attLookup(t.Text); v == nil {
			e.Log.Warnf("Cannot print attribute \"%s\". Not present in input or output files.", t.Text)
			return ast.PRINT, nil
		}
	default:
		return ast.PRINT, structureErr(n, "cannot print %v", t.Tag)
	}
	if err != nil {
		return ast.PRINT, err
	}
	return ast.PRINT, fmc.PrintValue(e.stdout, v, format)
}
