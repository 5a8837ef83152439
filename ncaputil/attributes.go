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
	"io"
	"math"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/ncap"
	"github.com/spatialmodel/ncap/ncvar"
)

// Attributes are attributes to set on the output, by variable name and
// then attribute name. The variable "global" holds global attributes.
type Attributes map[string]map[string]interface{}

// ReadAttributes reads attributes in TOML form, for example:
//
//	[global]
//	history = "created by ncap"
//
//	[temperature]
//	units = "K"
//	valid_range = [200.0, 350.0]
func ReadAttributes(r io.Reader) (Attributes, error) {
	var a Attributes
	if _, err := toml.DecodeReader(r, &a); err != nil {
		return nil, fmt.Errorf("ncap: reading attributes: %v", err)
	}
	return a, nil
}

// ReadAttributeFile reads attributes from a TOML file.
func ReadAttributeFile(path string) (Attributes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncap: opening attribute file: %v", err)
	}
	defer f.Close()
	return ReadAttributes(f)
}

// Apply sets the attributes in e, replacing any the script set.
func (a Attributes) Apply(e *ncap.Evaluator) error {
	vars := make([]string, 0, len(a))
	for v := range a {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	for _, v := range vars {
		names := make([]string, 0, len(a[v]))
		for n := range a[v] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			full := v + "@" + n
			att, err := attValue(full, a[v][n])
			if err != nil {
				return err
			}
			e.Vars.PushOW(full, &ncap.Symbol{Var: att, State: ncap.Populated, Att: true})
		}
	}
	return nil
}

// attValue converts a TOML value to an attribute. Integers that fit
// are stored as int and other numbers as double.
func attValue(name string, val interface{}) (*ncvar.Var, error) {
	var v *ncvar.Var
	switch x := val.(type) {
	case string:
		v = ncvar.NewChar(name, x)
	case int64:
		v = numbers(name, []interface{}{x})
	case float64:
		v = ncvar.NewDouble(name, x)
	case bool:
		v = numbers(name, []interface{}{x})
	case []interface{}:
		v = numbers(name, x)
	}
	if v == nil {
		return nil, fmt.Errorf("ncap: attribute %s has unsupported value %v (%T)", name, val, val)
	}
	v.IsAtt = true
	return v, nil
}

// numbers converts a list of TOML numbers, or nil if the list holds
// something else.
func numbers(name string, vals []interface{}) *ncvar.Var {
	if len(vals) == 0 {
		return nil
	}
	ints := make([]int32, len(vals))
	floats := make([]float64, len(vals))
	isInt := true
	for i, val := range vals {
		switch x := val.(type) {
		case int64:
			floats[i] = float64(x)
			if x < math.MinInt32 || x > math.MaxInt32 {
				isInt = false
			}
			ints[i] = int32(x)
		case float64:
			floats[i] = x
			isInt = false
		case bool:
			if x {
				ints[i], floats[i] = 1, 1
			}
		default:
			return nil
		}
	}
	if isInt {
		return ncvar.NewInt(name, ints...)
	}
	return ncvar.NewDouble(name, floats...)
}
