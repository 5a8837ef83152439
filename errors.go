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

// Package ncap evaluates ncap scripts, given as syntax trees, against a
// netCDF input file and writes the variables they define to a netCDF
// output file.
//
// A script is walked twice. The first, declarative, scan works out the
// type and shape of every variable the script writes so the output can
// be defined without computing any data. The second scan executes the
// script.
package ncap

import (
	"fmt"

	"github.com/spatialmodel/ncap/ast"
)

// StructureError reports a syntax tree whose shape the evaluator does
// not understand. A block logs these and carries on with its next
// statement; every other error aborts the run.
type StructureError struct {
	Node *ast.Node
	Msg  string
}

func (e *StructureError) Error() string {
	if e.Node == nil {
		return "ncap: " + e.Msg
	}
	return fmt.Sprintf("ncap: %s in %v", e.Msg, e.Node.Tag)
}

func structureErr(n *ast.Node, format string, a ...interface{}) error {
	return &StructureError{Node: n, Msg: fmt.Sprintf(format, a...)}
}
