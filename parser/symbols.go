package parser

import (
	"fmt"
	"sort"
)

// Symbol represents one bound label.
type Symbol struct {
	Name   string
	Value  uint32
	Global bool
	Pos    Position
}

// SymbolTable maps label names to addresses. Entries are written once
// during pass 1 and read-only during pass 2.
type SymbolTable struct {
	symbols map[string]*Symbol
}

// NewSymbolTable creates a new symbol table
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		symbols: make(map[string]*Symbol),
	}
}

// Define binds a label to an address. Each label binds exactly once;
// a second definition is an error.
func (st *SymbolTable) Define(name string, value uint32, pos Position) error {
	if sym, exists := st.symbols[name]; exists {
		if sym.defined() {
			return fmt.Errorf("symbol %q already defined at %s", name, sym.Pos)
		}
		// Marked global before being bound
		sym.Value = value
		sym.Pos = pos
		return nil
	}
	st.symbols[name] = &Symbol{
		Name:  name,
		Value: value,
		Pos:   pos,
	}
	return nil
}

// MarkGlobal marks a symbol as exported. The symbol does not need to be
// defined yet; the mark is applied when it is.
func (st *SymbolTable) MarkGlobal(name string) {
	if sym, exists := st.symbols[name]; exists {
		sym.Global = true
		return
	}
	st.symbols[name] = &Symbol{Name: name, Global: true}
}

// defined reports whether the symbol has a bound address. A symbol created
// only by MarkGlobal has no position and no binding.
func (s *Symbol) defined() bool {
	return s.Pos.Line != 0
}

// Lookup looks up a symbol by name.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, exists := st.symbols[name]
	if !exists || !sym.defined() {
		return nil, false
	}
	return sym, true
}

// Get returns a symbol's address, or an error if it was never bound.
func (st *SymbolTable) Get(name string) (uint32, error) {
	sym, exists := st.symbols[name]
	if !exists || !sym.defined() {
		return 0, fmt.Errorf("undefined symbol %q", name)
	}
	return sym.Value, nil
}

// All returns the bound symbols sorted by address.
func (st *SymbolTable) All() []*Symbol {
	out := make([]*Symbol, 0, len(st.symbols))
	for _, sym := range st.symbols {
		if sym.defined() {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of bound symbols.
func (st *SymbolTable) Len() int {
	n := 0
	for _, sym := range st.symbols {
		if sym.defined() {
			n++
		}
	}
	return n
}
