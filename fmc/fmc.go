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

// Package fmc holds the library of functions that ncap scripts can
// call, such as aggregation, sorting, masking, packing and
// interpolation. Functions are grouped into families and collected
// in a Registry; a call is dispatched by the registry index stored on
// the call node. Each function evaluates its own arguments.
package fmc

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap/ast"
	"github.com/spatialmodel/ncap/ncvar"
)

// Walker is the evaluator that functions call back into.
type Walker interface {
	// Out evaluates an expression.
	Out(n *ast.Node) (*ncvar.Var, error)

	// InitialScan reports whether this is the declarative scan.
	InitialScan() bool

	Logger() logrus.FieldLogger

	// Stdout is where print output goes.
	Stdout() io.Writer

	// DimSize returns the size of the named dimension.
	DimSize(name string) (int, bool)

	// VarExists reports whether a variable or attribute ("var@att") is
	// known to the run.
	VarExists(name string) bool

	// VarNames returns the names of the variables in the input file or
	// the output.
	VarNames(input bool) []string

	// RAMWrite writes a RAM variable to the output and RAMDelete
	// removes one.
	RAMWrite(name string) error
	RAMDelete(name string) error

	// SetMissing sets the missing value of the named variable, or
	// removes it if m is nil. If change is true, existing missing
	// elements are changed to the new missing value.
	SetMissing(name string, m *ncvar.Var, change bool) error

	// SetVar stores v as a RAM variable.
	SetVar(name string, v *ncvar.Var) error
}

// Call is one invocation of a function.
type Call struct {
	Name string

	// Code identifies the function within its family.
	Code int

	// Method is true for calls of the form expr.name(...), in which
	// case the target expression is Args[0].
	Method bool

	Args []*ast.Node
}

// A Family is a group of related functions.
type Family interface {
	// Funcs returns the functions in the family.
	Funcs() []Func

	// Eval evaluates a call of one of the family's functions.
	Eval(w Walker, c Call) (*ncvar.Var, error)
}

// Func is a function in a family.
type Func struct {
	Name string
	Code int
	Fam  Family
}

// Registry is the ordered collection of callable functions.
type Registry struct {
	funcs []Func
	index map[string]int
}

// NewRegistry creates a registry holding the functions of fams. When
// two families define the same name the first wins.
func NewRegistry(fams ...Family) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, fam := range fams {
		for _, f := range fam.Funcs() {
			if _, ok := r.index[f.Name]; ok {
				continue
			}
			f.Fam = fam
			r.index[f.Name] = len(r.funcs)
			r.funcs = append(r.funcs, f)
		}
	}
	return r
}

// Default returns a registry holding every function family.
func Default() *Registry {
	return NewRegistry(
		Aggregate{}, AggIndex{}, Utility{}, Basic{}, Math{}, Math2{},
		Conversion{}, PDQ{}, Mask{}, Unary{}, Pack{}, Sort{}, Array{},
		Bilinear{}, Coord{}, VarList{}, Print{},
	)
}

// Lookup returns the index of the named function.
func (r *Registry) Lookup(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Len returns the number of functions.
func (r *Registry) Len() int { return len(r.funcs) }

// Func returns function i.
func (r *Registry) Func(i int) (Func, bool) {
	if i < 0 || i >= len(r.funcs) {
		return Func{}, false
	}
	return r.funcs[i], true
}

// Call invokes function i. For a method call, target is the expression
// the method is called on; otherwise it is nil.
func (r *Registry) Call(w Walker, i int, target *ast.Node, args []*ast.Node) (*ncvar.Var, error) {
	f, ok := r.Func(i)
	if !ok {
		return nil, fmt.Errorf("fmc: invalid function index %d", i)
	}
	c := Call{Name: f.Name, Code: f.Code, Args: args}
	if target != nil {
		c.Method = true
		c.Args = append([]*ast.Node{target}, args...)
	}
	w.Logger().WithFields(logrus.Fields{"func": f.Name, "nargs": len(c.Args)}).Debug("calling function")
	return f.Fam.Eval(w, c)
}

// funcs builds a function table from names in code order.
func funcs(names ...string) []Func {
	f := make([]Func, len(names))
	for i, n := range names {
		f[i] = Func{Name: n, Code: i}
	}
	return f
}

func argError(c Call, format string, a ...interface{}) error {
	return fmt.Errorf("fmc: %s(): %s", c.Name, fmt.Sprintf(format, a...))
}

// needArgs returns an error unless c has between min and max arguments.
func needArgs(c Call, min, max int) error {
	if n := len(c.Args); n < min || n > max {
		if min == max {
			return argError(c, "requires %d argument(s), got %d", min, n)
		}
		return argError(c, "requires %d to %d arguments, got %d", min, max, n)
	}
	return nil
}

// splitDims separates dimension arguments ($dim) from the others.
func splitDims(args []*ast.Node) (exprs []*ast.Node, dims []string) {
	for _, a := range args {
		if a.Is(ast.DIM_ID) {
			dims = append(dims, a.Text)
		} else {
			exprs = append(exprs, a)
		}
	}
	return exprs, dims
}

// varName returns the name of the variable that a plain variable
// reference argument names.
func varName(c Call, n *ast.Node) (string, error) {
	if !n.Is(ast.VAR_ID) || n.FirstChild() != nil {
		return "", argError(c, "argument must be a variable name, not %v", n)
	}
	return n.Text, nil
}

// evalAll evaluates every node in args.
func evalAll(w Walker, args []*ast.Node) ([]*ncvar.Var, error) {
	vs := make([]*ncvar.Var, len(args))
	for i, a := range args {
		v, err := w.Out(a)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

func anyUndefined(vs ...*ncvar.Var) bool {
	for _, v := range vs {
		if v.Undefined {
			return true
		}
	}
	return false
}

// intArg evaluates n as an integer.
func intArg(w Walker, c Call, n *ast.Node) (int64, error) {
	v, err := w.Out(n)
	if err != nil {
		return 0, err
	}
	if v.Undefined || !v.HasData() || v.Len() == 0 {
		return 0, nil
	}
	if v.Type == ncvar.String {
		return 0, argError(c, "argument %s must be numeric", v.Name)
	}
	return v.Int64(0), nil
}

// numeric returns an error if v is not numeric.
func numeric(c Call, v *ncvar.Var) error {
	if v.Type == ncvar.String {
		return argError(c, "%s is of type %v, a numeric type is required", v.Name, v.Type)
	}
	return nil
}
