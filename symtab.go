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

import "github.com/spatialmodel/ncap/ncvar"

// State is how far a symbol has got.
type State int

const (
	// Declared symbols have a type and shape from the declarative scan.
	Declared State = iota + 1

	// Populated symbols have been written on the execute scan.
	Populated
)

// Symbol is an entry of a SymbolTable.
type Symbol struct {
	Var   *ncvar.Var
	State State

	// RAM symbols hold their data in memory and are not written to the
	// output file unless asked.
	RAM bool

	// Att marks attributes, which are named "var@att".
	Att bool
}

// SymbolTable maps names to symbols, remembering insertion order.
type SymbolTable struct {
	syms  map[string]*Symbol
	order []string
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[string]*Symbol)}
}

// Find returns the named symbol or nil.
func (t *SymbolTable) Find(name string) *Symbol {
	return t.syms[name]
}

// Push adds s under name unless the name is taken, and reports whether
// it was added.
func (t *SymbolTable) Push(name string, s *Symbol) bool {
	if _, ok := t.syms[name]; ok {
		return false
	}
	t.syms[name] = s
	t.order = append(t.order, name)
	return true
}

// PushOW adds s under name, replacing any symbol already there.
func (t *SymbolTable) PushOW(name string, s *Symbol) {
	if !t.Push(name, s) {
		t.syms[name] = s
	}
}

// Delete removes the named symbol and reports whether it was present.
func (t *SymbolTable) Delete(name string) bool {
	if _, ok := t.syms[name]; !ok {
		return false
	}
	delete(t.syms, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the symbol names in insertion order.
func (t *SymbolTable) Names() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of symbols.
func (t *SymbolTable) Len() int { return len(t.order) }

// Clear removes every symbol.
func (t *SymbolTable) Clear() {
	t.syms = make(map[string]*Symbol)
	t.order = nil
}

// Origin is the file a dimension was found in.
type Origin int

// The origins.
const (
	InputOrigin Origin = iota
	OutputOrigin
)

// Dim is a dimension record.
type Dim struct {
	Name      string
	Size      int
	Unlimited bool
	Origin    Origin
}

// DimTable holds the dimensions of one file in definition order.
type DimTable struct {
	dims  map[string]*Dim
	order []string
}

// NewDimTable returns an empty table.
func NewDimTable() *DimTable {
	return &DimTable{dims: make(map[string]*Dim)}
}

// Find returns the named dimension or nil.
func (t *DimTable) Find(name string) *Dim {
	if t == nil {
		return nil
	}
	return t.dims[name]
}

// Add adds or replaces d.
func (t *DimTable) Add(d *Dim) {
	if _, ok := t.dims[d.Name]; !ok {
		t.order = append(t.order, d.Name)
	}
	t.dims[d.Name] = d
}

// Names returns the dimension names.
func (t *DimTable) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Dims returns the dimensions.
func (t *DimTable) Dims() []*Dim {
	names := t.Names()
	d := make([]*Dim, len(names))
	for i, n := range names {
		d[i] = t.dims[n]
	}
	return d
}
