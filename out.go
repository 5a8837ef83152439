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
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

type outFunc func(e *Evaluator, n *ast.Node) (*ncvar.Var, error)

// outTable dispatches expression nodes by tag. It is filled in init
// because its entries refer back to Out.
var outTable map[ast.Tag]outFunc

var binaryOps = map[ast.Tag]ncvar.Op{
	ast.PLUS:   ncvar.Add,
	ast.MINUS:  ncvar.Sub,
	ast.TIMES:  ncvar.Mul,
	ast.DIVIDE: ncvar.Div,
	ast.MOD:    ncvar.Mod,
	ast.CARET:  ncvar.Pow,
	ast.LTHAN:  ncvar.Lt,
	ast.GTHAN:  ncvar.Gt,
	ast.LEQ:    ncvar.Le,
	ast.GEQ:    ncvar.Ge,
	ast.EQ:     ncvar.Eq,
	ast.NEQ:    ncvar.Ne,
	ast.LAND:   ncvar.And,
	ast.LOR:    ncvar.Or,
	ast.FLTHAN: ncvar.Lesser,
	ast.FGTHAN: ncvar.Greater,
}

var compoundOps = map[ast.Tag]ncvar.Op{
	ast.PLUS_ASSIGN:   ncvar.Add,
	ast.MINUS_ASSIGN:  ncvar.Sub,
	ast.TIMES_ASSIGN:  ncvar.Mul,
	ast.DIVIDE_ASSIGN: ncvar.Div,
}

func init() {
	outTable = map[ast.Tag]outFunc{
		ast.LNOT:          (*Evaluator).not,
		ast.INC:           (*Evaluator).increment,
		ast.DEC:           (*Evaluator).increment,
		ast.POST_INC:      (*Evaluator).increment,
		ast.POST_DEC:      (*Evaluator).increment,
		ast.PLUS_ASSIGN:   (*Evaluator).compound,
		ast.MINUS_ASSIGN:  (*Evaluator).compound,
		ast.TIMES_ASSIGN:  (*Evaluator).compound,
		ast.DIVIDE_ASSIGN: (*Evaluator).compound,
		ast.ASSIGN: func(e *Evaluator, n *ast.Node) (*ncvar.Var, error) {
			return e.assignExpr(n, false)
		},
		ast.WHERE_ASSIGN: func(e *Evaluator, n *ast.Node) (*ncvar.Var, error) {
			return ncvar.NewUndefined("~where_assign"), nil
		},
		ast.UTIMES: func(e *Evaluator, n *ast.Node) (*ncvar.Var, error) {
			return e.Out(n.FirstChild())
		},
		ast.QUESTION:    (*Evaluator).question,
		ast.FUNC:        (*Evaluator).call,
		ast.DOT:         (*Evaluator).call,
		ast.DIM_ID_SIZE: (*Evaluator).dimSize,
		ast.ATT_ID:      (*Evaluator).attID,
		ast.VALUE_LIST:  (*Evaluator).valueList,
		ast.NSTRING:     (*Evaluator).nstring,
		ast.N4STRING: func(e *Evaluator, n *ast.Node) (*ncvar.Var, error) {
			v := ncvar.NewStrings("~n4string", unescape(n.Text))
			if e.initial {
				return v.Meta(), nil
			}
			return v, nil
		},
		ast.VAR_ID: (*Evaluator).varID,
	}
	for t := range binaryOps {
		outTable[t] = (*Evaluator).binary
	}
	for t := ast.NCAP_BYTE; t <= ast.NCAP_DOUBLE; t++ {
		outTable[t] = (*Evaluator).number
	}
}

// Out evaluates the expression n and returns a new value. On the
// declarative scan the value carries only type and shape, or is
// undefined.
func (e *Evaluator) Out(n *ast.Node) (*ncvar.Var, error) {
	if n == nil {
		return nil, structureErr(nil, "missing expression")
	}
	f, ok := outTable[n.Tag]
	if !ok {
		return nil, structureErr(n, "unexpected expression")
	}
	return f(e, n)
}

func (e *Evaluator) binary(n *ast.Node) (*ncvar.Var, error) {
	kids := n.Children()
	if len(kids) == 1 && (n.Is(ast.PLUS) || n.Is(ast.MINUS)) {
		v, err := e.Out(kids[0])
		if err != nil || n.Is(ast.PLUS) {
			return v, err
		}
		return ncvar.Unary(v, ncvar.Neg)
	}
	if len(kids) != 2 {
		return nil, structureErr(n, "operator needs two operands, has %d", len(kids))
	}
	a, err := e.Out(kids[0])
	if err != nil {
		return nil, err
	}
	b, err := e.Out(kids[1])
	if err != nil {
		return nil, err
	}
	return ncvar.Binary(a, b, binaryOps[n.Tag])
}

func (e *Evaluator) not(n *ast.Node) (*ncvar.Var, error) {
	v, err := e.Out(n.FirstChild())
	if err != nil {
		return nil, err
	}
	return ncvar.Unary(v, ncvar.Not)
}

func (e *Evaluator) increment(n *ast.Node) (*ncvar.Var, error) {
	c := n.FirstChild()
	lhs, err := e.outAsn(c)
	if err != nil {
		return nil, err
	}
	return e.incr(lhs, nil, n.Tag, c.Is(ast.UTIMES))
}

func (e *Evaluator) compound(n *ast.Node) (*ncvar.Var, error) {
	kids := n.Children()
	if len(kids) != 2 {
		return nil, structureErr(n, "assignment needs two operands, has %d", len(kids))
	}
	rhs, err := e.Out(kids[1])
	if err != nil {
		return nil, err
	}
	lhs, err := e.outAsn(kids[0])
	if err != nil {
		return nil, err
	}
	return e.incr(lhs, rhs, n.Tag, kids[0].Is(ast.UTIMES))
}

// incr applies an increment, decrement or compound assignment to lhs
// and stores the result. The postfix forms return the value from
// before the change.
func (e *Evaluator) incr(lhs, rhs *ncvar.Var, tag ast.Tag, ram bool) (*ncvar.Var, error) {
	isAtt := isAttName(lhs.Name)
	if e.initial {
		if lhs.Undefined {
			return lhs, nil
		}
		m := lhs.Meta()
		if !isAtt {
			if err := e.varWrite(m, ram); err != nil {
				return nil, err
			}
		}
		return m, nil
	}

	var ret *ncvar.Var
	switch tag {
	case ast.INC, ast.DEC, ast.POST_INC, ast.POST_DEC:
		if tag == ast.POST_INC || tag == ast.POST_DEC {
			ret = lhs.Dup()
		}
		delta := 1
		if tag == ast.DEC || tag == ast.POST_DEC {
			delta = -1
		}
		if err := ncvar.Increment(lhs, delta); err != nil {
			return nil, err
		}
	default:
		r, err := ncvar.ConformTo(lhs, rhs)
		if err != nil {
			return nil, fmt.Errorf("ncap: %v %s: %v", tag, lhs.Name, err)
		}
		res, err := ncvar.Binary(lhs, r, compoundOps[tag])
		if err != nil {
			return nil, err
		}
		res.Convert(lhs.Type)
		res.Name, res.Dims, res.IsAtt = lhs.Name, lhs.Dims, lhs.IsAtt
		lhs = res
	}
	if ret == nil {
		ret = lhs.Dup()
	}
	var err error
	if isAtt {
		err = e.attrWrite(lhs)
	} else {
		err = e.varWrite(lhs, ram)
	}
	return ret, err
}

func (e *Evaluator) question(n *ast.Node) (*ncvar.Var, error) {
	kids := n.Children()
	if len(kids) != 3 {
		return nil, structureErr(n, "conditional needs three operands, has %d", len(kids))
	}
	if e.initial {
		return ncvar.NewUndefined("~question"), nil
	}
	c, err := e.Out(kids[0])
	if err != nil {
		return nil, err
	}
	if ncvar.Truth(c) {
		return e.Out(kids[1])
	}
	return e.Out(kids[2])
}

func (e *Evaluator) call(n *ast.Node) (*ncvar.Var, error) {
	fn := n.Fn
	if fn < 0 {
		i, ok := e.Funcs.Lookup(n.Text)
		if !ok {
			return nil, fmt.Errorf("ncap: unknown function %s", n.Text)
		}
		fn = i
	}
	var target *ast.Node
	args := n.FirstChild()
	if n.Is(ast.DOT) {
		target, args = n.FirstChild(), n.FirstChild().Next()
	}
	return e.Funcs.Call(e, fn, target, args.Children())
}

func (e *Evaluator) dimSize(n *ast.Node) (*ncvar.Var, error) {
	sz, ok := e.DimSize(n.Text)
	if e.initial {
		t := ncvar.Int
		if sz > math.MaxInt32 {
			t = ncvar.Int64
		}
		return ncvar.NewScalar("~dmn", t, false), nil
	}
	if !ok {
		return nil, fmt.Errorf("ncap: Unable to locate dimension %s in input or output files", n.Text)
	}
	if sz > math.MaxInt32 {
		return ncvar.NewInt64("~dmn", int64(sz)), nil
	}
	return ncvar.NewInt("~dmn", int32(sz)), nil
}

// attLookup returns the named attribute or nil.
func (e *Evaluator) attLookup(name string) *ncvar.Var {
	if e.initial {
		if s := e.Ints.Find(name); s != nil {
			return s.Var.Dup()
		}
	}
	if s := e.Vars.Find(name); s != nil {
		return s.Var.Dup()
	}
	if a, ok := e.attInit(name); ok {
		return a
	}
	return nil
}

func (e *Evaluator) attID(n *ast.Node) (*ncvar.Var, error) {
	a := e.attLookup(n.Text)
	switch {
	case a == nil && e.initial:
		return ncvar.NewUndefined(n.Text), nil
	case a == nil:
		return nil, fmt.Errorf("ncap: Unable to locate attribute %s in input or output files.", n.Text)
	case e.initial:
		return a.Meta(), nil
	}
	return a, nil
}

// valueList evaluates {a, b, ...}: a dimensionless value of the
// highest type of the elements, holding the first element of each.
func (e *Evaluator) valueList(n *ast.Node) (*ncvar.Var, error) {
	kids := n.Children()
	vals := make([]*ncvar.Var, len(kids))
	strs := false
	undef := false
	t := ncvar.NAT
	for i, k := range kids {
		v, err := e.Out(k)
		if err != nil {
			return nil, err
		}
		vals[i] = v
		strs = strs || v.Type == ncvar.String
		undef = undef || v.Undefined
		t = ncvar.Highest(t, v.Type)
	}
	if strs {
		if e.initial {
			return &ncvar.Var{Name: "~zz@value_list", Type: ncvar.String, Sz: len(vals)}, nil
		}
		s := make([]string, len(vals))
		for i, v := range vals {
			if v.Type != ncvar.String {
				return nil, fmt.Errorf("ncap: value list: cannot mix strings with values of type %v", v.Type)
			}
			s[i] = v.Val.([]string)[0]
		}
		return ncvar.NewStrings("~zz@value_list", s...), nil
	}
	if e.initial {
		if undef {
			return ncvar.NewUndefined("~zz@value_list"), nil
		}
		return &ncvar.Var{Name: "~zz@value_list", Type: t, Sz: len(vals)}, nil
	}
	res := &ncvar.Var{Name: "~zz@value_list", Type: t, Sz: len(vals), Val: ncvar.Zero(t, len(vals))}
	for i, v := range vals {
		if v.Sz == 0 || !v.HasData() {
			return nil, fmt.Errorf("ncap: value list: element %d is empty", i)
		}
		if err := ncvar.PutOne(res, i, v); err != nil {
			return nil, err
		}
	}
	return res, nil
}

var escapes = strings.NewReplacer(
	`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`, `\a`, "\a", `\b`, "\b",
	`\f`, "\f", `\r`, "\r", `\v`, "\v", `\'`, "'",
)

func unescape(s string) string { return escapes.Replace(s) }

func (e *Evaluator) nstring(n *ast.Node) (*ncvar.Var, error) {
	v := ncvar.NewChar("~nstring", unescape(n.Text))
	if e.initial {
		return v.Meta(), nil
	}
	return v, nil
}

// number evaluates a numeric literal, typed by its tag.
func (e *Evaluator) number(n *ast.Node) (*ncvar.Var, error) {
	var val interface{}
	var err error
	s := strings.TrimSpace(n.Text)
	switch n.Tag {
	case ast.NCAP_BYTE:
		var i int64
		i, err = strconv.ParseInt(s, 0, 8)
		val = []int8{int8(i)}
	case ast.NCAP_UBYTE:
		var i uint64
		i, err = strconv.ParseUint(s, 0, 8)
		val = []uint8{uint8(i)}
	case ast.NCAP_SHORT:
		var i int64
		i, err = strconv.ParseInt(s, 0, 16)
		val = []int16{int16(i)}
	case ast.NCAP_USHORT:
		var i uint64
		i, err = strconv.ParseUint(s, 0, 16)
		val = []uint16{uint16(i)}
	case ast.NCAP_INT:
		var i int64
		i, err = strconv.ParseInt(s, 0, 32)
		val = []int32{int32(i)}
	case ast.NCAP_UINT:
		var i uint64
		i, err = strconv.ParseUint(s, 0, 32)
		val = []uint32{uint32(i)}
	case ast.NCAP_INT64:
		var i int64
		i, err = strconv.ParseInt(s, 0, 64)
		val = []int64{i}
	case ast.NCAP_UINT64:
		var i uint64
		i, err = strconv.ParseUint(s, 0, 64)
		val = []uint64{i}
	case ast.NCAP_FLOAT:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		val = []float32{float32(f)}
	default:
		var f float64
		f, err = strconv.ParseFloat(s, 64)
		val = []float64{f}
	}
	if err != nil {
		return nil, fmt.Errorf("ncap: invalid %v literal %q: %v", n.Tag, n.Text, err)
	}
	v, err := ncvar.FromValues("~"+strings.ToLower(n.Tag.String()), nil, val)
	if err != nil {
		return nil, err
	}
	if e.initial {
		return v.Meta(), nil
	}
	return v, nil
}

// varID evaluates a variable reference, with or without a hyperslab.
func (e *Evaluator) varID(n *ast.Node) (*ncvar.Var, error) {
	if c := n.FirstChild(); c != nil {
		if !c.Is(ast.LMT_LIST) {
			return nil, structureErr(n, "unexpected %v in variable reference", c.Tag)
		}
		return e.varLmt(n)
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
	if e.cast != nil && v.Sz > 1 {
		return e.castDo(v)
	}
	return v, nil
}

// castDo makes v the shape of the active cast.
func (e *Evaluator) castDo(v *ncvar.Var) (*ncvar.Var, error) {
	c, err := ncvar.ConformTo(e.cast, v)
	if err != nil {
		e.Log.WithFields(logrus.Fields{"var": v.Name}).Debug("value does not conform to cast")
		return v, nil
	}
	return c, nil
}
