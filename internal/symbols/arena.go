package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"stc/internal/source"
)

// Symbols is the session-wide symbol arena. Index 0 is reserved for NoSymbolID.
type Symbols struct {
	data    []Symbol
	Strings *source.Interner
}

// NewSymbols creates an arena with optional capacity hint.
func NewSymbols(strings *source.Interner, capacity uint32) *Symbols {
	if capacity == 0 {
		capacity = 64
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Symbols{
		data:    make([]Symbol, 1, capacity+1),
		Strings: strings,
	}
}

// New stores sym and returns its ID.
func (s *Symbols) New(sym Symbol) SymbolID {
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("symbols arena overflow: %w", err))
	}
	s.data = append(s.data, sym)
	return SymbolID(value)
}

// Create allocates a symbol with name text and flags.
func (s *Symbols) Create(flags SymbolFlags, name string) SymbolID {
	return s.New(Symbol{Name: s.Strings.Intern(name), Flags: flags})
}

// Get returns the symbol pointer or nil if ID is invalid.
func (s *Symbols) Get(id SymbolID) *Symbol {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Name returns the symbol's name text.
func (s *Symbols) Name(id SymbolID) string {
	sym := s.Get(id)
	if sym == nil {
		return ""
	}
	return s.Strings.MustLookup(sym.Name)
}

// Flags returns the flags of id, or None.
func (s *Symbols) Flags(id SymbolID) SymbolFlags {
	if sym := s.Get(id); sym != nil {
		return sym.Flags
	}
	return None
}

// Len reports total number of symbols excluding the sentinel.
func (s *Symbols) Len() int { return len(s.data) - 1 }
