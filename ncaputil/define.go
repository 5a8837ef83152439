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

package ncaputil

import (
	"fmt"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/spatialmodel/ncap"
	"github.com/spatialmodel/ncap/ncvar"
)

// Definition is a scalar variable given on the command line.
type Definition struct {
	Name  string
	Value *ncvar.Var
}

var defineFuncs = map[string]govaluate.ExpressionFunction{
	"exp":   mathFunc("exp", math.Exp),
	"log":   mathFunc("log", math.Log),
	"sqrt":  mathFunc("sqrt", math.Sqrt),
	"floor": mathFunc("floor", math.Floor),
	"ceil":  mathFunc("ceil", math.Ceil),
}

func mathFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("ncap: got %d arguments for function '%s', but needs 1", len(args), name)
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("ncap: argument of '%s' must be a number, not %v", name, args[0])
		}
		return f(x), nil
	}
}

// Defines evaluates definitions of the form name=expression. The
// expressions may use the global attributes and the dimension sizes of
// in, which may be nil, and the names defined before them. A dimension
// hides a global attribute of the same name.
func Defines(defs []string, in *ncap.InputFile) ([]Definition, error) {
	params := make(map[string]interface{})
	if in != nil {
		for _, a := range in.AttNames("") {
			att, ok := in.Attribute("", a)
			if !ok {
				continue
			}
			if att.Type == ncvar.Char {
				params[a] = att.Text()
			} else if att.Sz == 1 {
				params[a] = att.Float64(0)
			}
		}
		for _, d := range in.Dims.Dims() {
			params[d.Name] = float64(d.Size)
		}
	}
	var o []Definition
	for _, def := range defs {
		name, expr, ok := strings.Cut(def, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("ncap: definition %q must have the form name=expression", def)
		}
		x, err := govaluate.NewEvaluableExpressionWithFunctions(expr, defineFuncs)
		if err != nil {
			return nil, fmt.Errorf("ncap: definition of %s: %v", name, err)
		}
		r, err := x.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("ncap: definition of %s: %v", name, err)
		}
		var v *ncvar.Var
		switch rr := r.(type) {
		case float64:
			v = ncvar.NewDouble(name, rr)
		case bool:
			var b int32
			if rr {
				b = 1
			}
			v = ncvar.NewInt(name, b)
		case string:
			v = ncvar.NewChar(name, rr)
		default:
			return nil, fmt.Errorf("ncap: definition of %s has unsupported value %v (%T)", name, r, r)
		}
		params[name] = r
		o = append(o, Definition{Name: name, Value: v})
	}
	return o, nil
}
