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
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spatialmodel/ncap"
	"github.com/spatialmodel/ncap/ast"
)

// readScript reads a script syntax tree from a YAML file.
func readScript(path string) (*ast.Node, error) {
	if path == "" {
		return nil, fmt.Errorf("ncap: you need to specify a script file (for example --script=script.yaml)")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncap: opening script: %v", err)
	}
	defer f.Close()
	return ast.Decode(f)
}

// newEvaluator opens the input file, if any, and returns an evaluator
// with the --define variables set.
func newEvaluator(inputFile, outputFile string, defs []string, fortran bool, stdout io.Writer) (*ncap.Evaluator, error) {
	var in *ncap.InputFile
	if inputFile != "" {
		var err error
		if in, err = ncap.OpenInput(inputFile); err != nil {
			return nil, err
		}
	}
	out := ncap.NewOutput(outputFile)
	out.Log = Log
	e := ncap.NewEvaluator(in, out)
	e.Log = Log
	e.FortranIndex = fortran
	e.SetStdout(stdout)
	d, err := Defines(defs, in)
	if err != nil {
		in.Close()
		return nil, err
	}
	for _, def := range d {
		e.Define(def.Name, def.Value)
	}
	return e, nil
}

// Run evaluates the script in scriptFile against inputFile, which may
// be empty, and writes outputFile. Attributes from attrFile, if given,
// are set on the output after the script has run. Print statements
// write to stdout.
func Run(ctx context.Context, scriptFile, inputFile, outputFile, attrFile string, defs []string, fortran, copyInput bool, stdout io.Writer) error {
	if outputFile == "" {
		return fmt.Errorf("ncap: you need to specify an output file (for example --output=out.nc)")
	}
	script, err := readScript(scriptFile)
	if err != nil {
		return err
	}
	var attrs Attributes
	if attrFile != "" {
		if attrs, err = ReadAttributeFile(attrFile); err != nil {
			return err
		}
	}
	e, err := newEvaluator(inputFile, outputFile, defs, fortran, stdout)
	if err != nil {
		return err
	}
	e.CopyInput = copyInput
	Log.WithField("script", scriptFile).Info("running script")
	if err := e.Run(ctx, script); err != nil {
		e.In.Close()
		return err
	}
	if err := attrs.Apply(e); err != nil {
		e.In.Close()
		return err
	}
	if err := e.Close(); err != nil {
		return err
	}
	Log.WithField("output", outputFile).Info("finished")
	return nil
}

// Check runs the declarative scan of the script in scriptFile and
// writes the variables it would define to w, one per line.
func Check(ctx context.Context, scriptFile, inputFile string, defs []string, fortran bool, w io.Writer) error {
	script, err := readScript(scriptFile)
	if err != nil {
		return err
	}
	e, err := newEvaluator(inputFile, "", defs, fortran, w)
	if err != nil {
		return err
	}
	defer e.In.Close()
	if err := e.Check(ctx, script); err != nil {
		return err
	}
	for _, name := range e.Vars.Names() {
		s := e.Vars.Find(name)
		if s.Att {
			continue
		}
		where := "disk"
		if s.RAM {
			where = "ram"
		}
		if _, err := fmt.Fprintf(w, "%s\t%v\t(%s)\t%s\n", name, s.Var.Type, strings.Join(s.Var.DimNames(), ","), where); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes the syntax tree of the script in scriptFile to w.
func Dump(scriptFile string, w io.Writer) error {
	script, err := readScript(scriptFile)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, script)
	return err
}
