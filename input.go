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
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/ncap/internal/hash"
	"github.com/spatialmodel/ncap/ncvar"
)

// InputFile is a netCDF classic file that scripts read from.
type InputFile struct {
	Path string

	// Dims holds the dimensions of the file. The record dimension, if
	// any, is unlimited and has the number of records as its size.
	Dims *DimTable

	// CacheSize is the number of variables kept in memory once read.
	CacheSize int

	f    *os.File
	cf   *cdf.File
	nrec int

	cache     *requestcache.Cache
	cacheInit sync.Once
}

// OpenInput opens the netCDF file at path.
func OpenInput(path string) (*InputFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncap: opening input file: %v", err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncap: reading input file %s: %v", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncap: reading input file %s: %v", path, err)
	}
	in := &InputFile{
		Path:      path,
		Dims:      NewDimTable(),
		CacheSize: 64,
		f:         f,
		cf:        cf,
		nrec:      int(cf.Header.NumRecs(fi.Size())),
	}
	names := cf.Header.Dimensions("")
	for i, l := range cf.Header.Lengths("") {
		d := &Dim{Name: names[i], Size: l, Origin: InputOrigin}
		if l == 0 {
			d.Size, d.Unlimited = in.nrec, true
		}
		in.Dims.Add(d)
	}
	return in, nil
}

// Close closes the file.
func (in *InputFile) Close() error {
	if in == nil || in.f == nil {
		return nil
	}
	return in.f.Close()
}

// HasVar returns whether the file holds the named variable.
func (in *InputFile) HasVar(name string) bool {
	if in == nil {
		return false
	}
	return in.cf.Header.ZeroValue(name, 0) != nil
}

// VarNames returns the names of the variables in the file.
func (in *InputFile) VarNames() []string {
	if in == nil {
		return nil
	}
	return in.cf.Header.Variables()
}

// cdfType returns the type of a variable from a zero value of it.
func cdfType(zero interface{}) (ncvar.Type, error) {
	switch zero.(type) {
	case []uint8:
		return ncvar.Byte, nil
	case string:
		return ncvar.Char, nil
	case []int16:
		return ncvar.Short, nil
	case []int32:
		return ncvar.Int, nil
	case []float32:
		return ncvar.Float, nil
	case []float64:
		return ncvar.Double, nil
	}
	return ncvar.NAT, fmt.Errorf("ncap: unsupported netCDF type %T", zero)
}

// VarMeta returns the type, shape and missing value of the named
// variable without reading its data.
func (in *InputFile) VarMeta(name string) (*ncvar.Var, error) {
	if !in.HasVar(name) {
		return nil, fmt.Errorf("ncap: variable %s is not in input file %s", name, in.Path)
	}
	h := in.cf.Header
	t, err := cdfType(h.ZeroValue(name, 0))
	if err != nil {
		return nil, fmt.Errorf("%v for variable %s", err, name)
	}
	names := h.Dimensions(name)
	dims := make([]ncvar.Dim, len(names))
	for i, l := range h.Lengths(name) {
		if l == 0 {
			l = in.nrec
		}
		dims[i] = ncvar.Dim{Name: names[i], Len: l}
	}
	v := ncvar.New(name, t, dims, false)
	if fv, ok := in.Attribute(name, "_FillValue"); ok {
		v.SetMissing(fv)
	}
	return v, nil
}

type readRequest struct {
	Path, Var string
}

// Key returns the cache key of the read. NUL cannot occur in a netCDF
// name, so distinct requests have distinct keys.
func (r readRequest) Key() string { return r.Path + "\x00" + r.Var }

// ReadVar reads the whole of the named variable. Reads are cached, and
// concurrent reads of the same variable share one file read. The
// returned value belongs to the caller.
func (in *InputFile) ReadVar(ctx context.Context, name string) (*ncvar.Var, error) {
	in.cacheInit.Do(func() {
		in.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			return in.readVar(request.(readRequest).Var)
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(in.CacheSize))
	})
	r := readRequest{Path: in.Path, Var: name}
	res, err := in.cache.NewRequest(ctx, r, hash.Hash(r)).Result()
	if err != nil {
		return nil, err
	}
	return res.(*ncvar.Var).Dup(), nil
}

func (in *InputFile) readVar(name string) (*ncvar.Var, error) {
	v, err := in.VarMeta(name)
	if err != nil {
		return nil, err
	}
	v.Val = ncvar.Zero(v.Type, v.Sz)
	if v.Sz == 0 {
		return v, nil
	}
	end := make([]int, v.Rank())
	for i, d := range v.Dims {
		end[i] = d.Len - 1
	}
	buf := in.cf.Header.ZeroValue(name, v.Sz)
	if _, ok := buf.(string); ok {
		buf = make([]byte, v.Sz)
	}
	r := in.cf.Reader(name, nil, end)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncap: reading variable %s: %v", name, err)
	}
	if v.Type == ncvar.Byte {
		v.Val = toInt8(buf)
	} else {
		v.Val = buf
	}
	return v, nil
}

// toInt8 reinterprets netCDF byte data, which cdf returns as []uint8.
func toInt8(val interface{}) interface{} {
	b, ok := val.([]uint8)
	if !ok {
		return val
	}
	o := make([]int8, len(b))
	for i, x := range b {
		o[i] = int8(x)
	}
	return o
}

// Attribute returns attribute a of variable v, or the global attribute
// a if v is empty.
func (in *InputFile) Attribute(v, a string) (*ncvar.Var, bool) {
	if in == nil {
		return nil, false
	}
	val := in.cf.Header.GetAttribute(v, a)
	if val == nil {
		return nil, false
	}
	var att *ncvar.Var
	switch vv := val.(type) {
	case string:
		att = ncvar.NewChar("", strings.TrimRight(vv, "\x00"))
	case []uint8:
		att = &ncvar.Var{Type: ncvar.Byte, Sz: len(vv), Val: toInt8(vv)}
	default:
		var err error
		if att, err = ncvar.FromValues("", nil, cloneAttr(vv)); err != nil {
			return nil, false
		}
	}
	att.Name = v + "@" + a
	att.IsAtt = true
	return att, true
}

func cloneAttr(val interface{}) interface{} {
	switch s := val.(type) {
	case []int16:
		return append([]int16(nil), s...)
	case []int32:
		return append([]int32(nil), s...)
	case []float32:
		return append([]float32(nil), s...)
	case []float64:
		return append([]float64(nil), s...)
	}
	return val
}

// AttNames returns the names of the attributes of variable v, or the
// global attributes if v is empty.
func (in *InputFile) AttNames(v string) []string {
	if in == nil {
		return nil
	}
	return in.cf.Header.Attributes(v)
}
