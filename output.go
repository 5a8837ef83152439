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
	"io"
	"os"
	"reflect"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncap/ncvar"
)

// VarReader reads variables that have been written to an output.
type VarReader interface {
	HasVar(name string) bool
	Get(name string) (*ncvar.Var, error)
}

// OutputFile is the dataset a script writes. Variables are defined,
// written and patched in memory and the whole dataset is written to a
// netCDF classic file by Flush. It is safe for concurrent use.
type OutputFile struct {
	Path string

	// Dims holds the output dimensions.
	Dims *DimTable

	// InputDims, if set, supplies the unlimited flag of dimensions that
	// are defined implicitly by writing a variable.
	InputDims *DimTable

	Log logrus.FieldLogger

	mu     sync.RWMutex
	vars   []*outVar
	index  map[string]int
	global []*ncvar.Var
}

type outVar struct {
	v       *ncvar.Var
	written bool
	atts    []*ncvar.Var
}

// NewOutput returns an empty output that Flush will write to path. An
// output with no path is never written to disk.
func NewOutput(path string) *OutputFile {
	return &OutputFile{
		Path:  path,
		Dims:  NewDimTable(),
		Log:   logrus.StandardLogger(),
		index: make(map[string]int),
	}
}

// DefineDim defines a dimension. Defining an existing dimension again
// with the same size does nothing; an unlimited dimension may grow.
func (o *OutputFile) DefineDim(name string, size int, unlimited bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.defineDim(name, size, unlimited)
}

func (o *OutputFile) defineDim(name string, size int, unlimited bool) error {
	if size < 0 || (size == 0 && !unlimited) {
		return fmt.Errorf("ncap: dimension %s: invalid size %d", name, size)
	}
	d := o.Dims.Find(name)
	switch {
	case d == nil:
		o.Dims.Add(&Dim{Name: name, Size: size, Unlimited: unlimited, Origin: OutputOrigin})
	case d.Size == size:
	case d.Unlimited && size > d.Size:
		d.Size = size
	case d.Unlimited:
	default:
		return fmt.Errorf("ncap: dimension %s is already defined with size %d, not %d", name, d.Size, size)
	}
	return nil
}

// defineDims defines the dimensions of v that are not defined yet.
func (o *OutputFile) defineDims(v *ncvar.Var) error {
	if v.Rank() == 0 && v.Sz > 1 {
		return fmt.Errorf("ncap: %s has %d elements but no dimensions; cast it to a shape before writing it", v.Name, v.Sz)
	}
	for _, d := range v.Dims {
		unlimited := false
		if in := o.InputDims.Find(d.Name); in != nil {
			unlimited = in.Unlimited
		}
		if od := o.Dims.Find(d.Name); od != nil {
			unlimited = od.Unlimited
		}
		if err := o.defineDim(d.Name, d.Len, unlimited); err != nil {
			return fmt.Errorf("%v (variable %s)", err, v.Name)
		}
	}
	return nil
}

// DefineVar defines a variable with the type and shape of meta. A
// variable that has not been written yet is redefined.
func (o *OutputFile) DefineVar(meta *ncvar.Var) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i, ok := o.index[meta.Name]; ok && o.vars[i].written {
		return nil
	}
	if err := o.defineDims(meta); err != nil {
		return err
	}
	m := meta.Meta()
	m.IsAtt, m.Sliced, m.Undefined = false, false, false
	o.store(&outVar{v: m})
	return nil
}

// store adds ov, or replaces the variable of the same name keeping its
// attributes.
func (o *OutputFile) store(ov *outVar) {
	if i, ok := o.index[ov.v.Name]; ok {
		ov.atts = o.vars[i].atts
		o.vars[i] = ov
		return
	}
	o.index[ov.v.Name] = len(o.vars)
	o.vars = append(o.vars, ov)
}

// Put writes the whole of v and returns the stored value's metadata.
// Once a variable has been written its type and shape are fixed and
// later writes are converted to them.
func (o *OutputFile) Put(v *ncvar.Var) (*ncvar.Var, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v.Val == nil {
		return nil, fmt.Errorf("ncap: writing %s: no data", v.Name)
	}
	if i, ok := o.index[v.Name]; ok && o.vars[i].written {
		s := o.vars[i].v
		if v.Sz != s.Sz {
			return nil, fmt.Errorf("ncap: writing %s: %d elements do not fit the %d of the output variable", v.Name, v.Sz, s.Sz)
		}
		c := v.Dup().Convert(s.Type)
		s.Val, s.Missing, s.Pack = c.Val, c.Missing, c.Pack
		return s.Meta(), nil
	}
	if err := o.defineDims(v); err != nil {
		return nil, err
	}
	s := v.Dup()
	s.IsAtt, s.Sliced, s.Undefined = false, false, false
	o.store(&outVar{v: s, written: true})
	return s.Meta(), nil
}

// PutSlab writes src into the hyperslab lmts of the named variable.
// Elements of a variable that have not been written hold its missing
// value, or the default fill value of its type.
func (o *OutputFile) PutSlab(name string, lmts []ncvar.Limit, src *ncvar.Var) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	i, ok := o.index[name]
	if !ok {
		return fmt.Errorf("ncap: writing hyperslab of %s: variable is not defined", name)
	}
	ov := o.vars[i]
	if !ov.written {
		ov.v.Val = filled(ov.v)
		ov.written = true
	}
	return ncvar.PutSlab(ov.v, lmts, src)
}

// filled returns a buffer for v holding its fill value.
func filled(v *ncvar.Var) interface{} {
	f := v.MissingVar()
	if f == nil {
		f = ncvar.DefaultFill(v.Type)
	}
	return f.StretchN(v.Sz).Val
}

// Get returns a copy of the named variable. A variable that has been
// defined but not written reads as its fill value.
func (o *OutputFile) Get(name string) (*ncvar.Var, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	i, ok := o.index[name]
	if !ok {
		return nil, fmt.Errorf("ncap: variable %s is not in the output", name)
	}
	ov := o.vars[i]
	if !ov.written {
		v := ov.v.Meta()
		v.Val = filled(v)
		return v, nil
	}
	return ov.v.Dup(), nil
}

// Meta returns the metadata of the named variable or nil.
func (o *OutputFile) Meta(name string) *ncvar.Var {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if i, ok := o.index[name]; ok {
		return o.vars[i].v.Meta()
	}
	return nil
}

// HasVar returns whether the named variable has been defined.
func (o *OutputFile) HasVar(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.index[name]
	return ok
}

// Written returns whether the named variable has been written.
func (o *OutputFile) Written(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	i, ok := o.index[name]
	return ok && o.vars[i].written
}

// VarNames returns the names of the defined variables.
func (o *OutputFile) VarNames() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n := make([]string, len(o.vars))
	for i, ov := range o.vars {
		n[i] = ov.v.Name
	}
	return n
}

type readOnly struct{ o *OutputFile }

func (r readOnly) HasVar(name string) bool              { return r.o.HasVar(name) }
func (r readOnly) Get(name string) (*ncvar.Var, error) { return r.o.Get(name) }

// ReadOnly returns a view of o that can only read.
func (o *OutputFile) ReadOnly() VarReader { return readOnly{o} }

// SetAttribute sets attribute a of variable v, or the global attribute
// a if v is empty, replacing any previous value.
func (o *OutputFile) SetAttribute(v, a string, val *ncvar.Var) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	att := val.Dup()
	att.Name, att.IsAtt, att.Missing = a, true, nil
	list := &o.global
	if v != "" {
		i, ok := o.index[v]
		if !ok {
			return fmt.Errorf("ncap: setting attribute %s@%s: variable is not in the output", v, a)
		}
		list = &o.vars[i].atts
	}
	for i, x := range *list {
		if x.Name == a {
			(*list)[i] = att
			return nil
		}
	}
	*list = append(*list, att)
	return nil
}

// Attribute returns attribute a of variable v, or the global attribute
// a if v is empty.
func (o *OutputFile) Attribute(v, a string) (*ncvar.Var, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	list := o.global
	if v != "" {
		i, ok := o.index[v]
		if !ok {
			return nil, false
		}
		list = o.vars[i].atts
	}
	for _, x := range list {
		if x.Name == a {
			return x.Dup(), true
		}
	}
	return nil, false
}

// classicType returns the netCDF classic type that holds values of t.
func classicType(t ncvar.Type) ncvar.Type {
	switch t {
	case ncvar.UByte:
		return ncvar.Short
	case ncvar.UShort:
		return ncvar.Int
	case ncvar.UInt, ncvar.Int64, ncvar.UInt64:
		return ncvar.Double
	}
	return t
}

// cdfValues converts v to a buffer that cdf can write.
func cdfValues(v *ncvar.Var) interface{} {
	c := v.Dup()
	if c.Type == ncvar.String {
		c.Convert(ncvar.Char)
	}
	c.Convert(classicType(c.Type))
	switch s := c.Val.(type) {
	case []int8:
		b := make([]uint8, len(s))
		for i, x := range s {
			b[i] = uint8(x)
		}
		return b
	}
	return c.Val
}

// cdfZero returns the value that tells cdf the type of a variable.
func cdfZero(t ncvar.Type) interface{} {
	switch t {
	case ncvar.Byte:
		return []uint8{}
	case ncvar.Char:
		return ""
	}
	return ncvar.Zero(classicType(t), 0)
}

// cdfAttr converts an attribute to a value that cdf can store.
func cdfAttr(a *ncvar.Var) interface{} {
	if a.Type == ncvar.Char || a.Type == ncvar.String {
		return a.Dup().Convert(ncvar.Char).Text()
	}
	return cdfValues(a)
}

// Flush writes the output to a netCDF classic file at o.Path. The
// first unlimited dimension becomes the record dimension and the others
// are written with their current size. String variables cannot be
// stored in a classic file and are skipped.
func (o *OutputFile) Flush() error {
	if o.Path == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	names := o.Dims.Names()
	lengths := make([]int, len(names))
	recDim := ""
	nrec := 0
	for i, n := range names {
		d := o.Dims.Find(n)
		lengths[i] = d.Size
		if d.Unlimited && recDim == "" {
			recDim, nrec, lengths[i] = n, d.Size, 0
		}
	}

	var vars []*outVar
	for _, ov := range o.vars {
		if ov.v.Type == ncvar.String {
			o.Log.WithField("var", ov.v.Name).Warn("string variables cannot be written to a netCDF classic file")
			continue
		}
		for i, d := range ov.v.Dims {
			if d.Name == recDim && i != 0 {
				return fmt.Errorf("ncap: writing %s: record dimension %s must be its first dimension", ov.v.Name, recDim)
			}
		}
		vars = append(vars, ov)
	}

	h := cdf.NewHeader(names, lengths)
	for _, a := range o.global {
		h.AddAttribute("", a.Name, cdfAttr(a))
	}
	for _, ov := range vars {
		h.AddVariable(ov.v.Name, ov.v.DimNames(), cdfZero(ov.v.Type))
		for _, a := range ov.atts {
			if a.Name == "_FillValue" {
				continue
			}
			h.AddAttribute(ov.v.Name, a.Name, cdfAttr(a))
		}
		if m := ov.v.MissingVar(); m != nil {
			h.AddAttribute(ov.v.Name, "_FillValue", cdfAttr(m))
		}
	}
	h.Define()

	ff, err := os.Create(o.Path)
	if err != nil {
		return fmt.Errorf("ncap: creating output file: %v", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return fmt.Errorf("ncap: creating output file %s: %v", o.Path, err)
	}
	for _, ov := range vars {
		v := ov.v
		if !ov.written {
			v = v.Meta()
			v.Val = filled(v)
		}
		if v.Rank() > 0 && v.Dims[0].Name == recDim && v.Dims[0].Len < nrec {
			if v, err = padRecords(v, nrec); err != nil {
				ff.Close()
				return err
			}
		}
		if v.Sz == 0 {
			continue
		}
		var begin, end []int
		if v.Rank() > 0 && v.Dims[0].Name != recDim {
			end = f.Header.Lengths(v.Name)
			begin = make([]int, len(end))
		}
		vals := cdfValues(v)
		n, err := f.Writer(v.Name, begin, end).Write(vals)
		if err == io.EOF && n == reflect.ValueOf(vals).Len() {
			// A scalar write ends exactly at the variable's last byte.
			err = nil
		}
		if err != nil {
			ff.Close()
			return fmt.Errorf("ncap: writing variable %s: %v", v.Name, err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		ff.Close()
		return fmt.Errorf("ncap: writing output file %s: %v", o.Path, err)
	}
	return ff.Close()
}

// padRecords returns v extended along its first dimension to nrec
// records of fill values.
func padRecords(v *ncvar.Var, nrec int) (*ncvar.Var, error) {
	dims := append([]ncvar.Dim(nil), v.Dims...)
	dims[0].Len = nrec
	p := ncvar.New(v.Name, v.Type, dims, false)
	p.Missing = v.Missing
	p.Val = filled(p)
	if err := ncvar.PutSlab(p, ncvar.FullLimits(v.Dims), v); err != nil {
		return nil, fmt.Errorf("ncap: padding records of %s: %v", v.Name, err)
	}
	return p, nil
}
