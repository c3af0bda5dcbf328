package source

import (
	"fmt"
	"slices"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// StringID identifies an interned string (identifier, literal text, path).
type StringID uint32

const NoStringID StringID = 0

// Interner maps strings to stable ids. It is safe for concurrent use so
// several files can be decoded in parallel against one table.
type Interner struct {
	mu    sync.RWMutex
	byID  []string // индекс -> строка (byID[0] = "" для NoStringID)
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": NoStringID},
	}
}

// Intern returns the id of s, inserting it on first use.
func (i *Interner) Intern(s string) StringID {
	i.mu.RLock()
	id, ok := i.index[s]
	i.mu.RUnlock()
	if ok {
		return id
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if id, ok := i.index[s]; ok {
		return id
	}
	// собственная копия, чтобы не держать исходный буфер документа
	cpy := string([]byte(s))
	n, err := safecast.Conv[uint32](len(i.byID))
	if err != nil {
		panic(fmt.Errorf("string interner overflow: %w", err))
	}
	id = StringID(n)
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// InternIdent interns an identifier after NFC normalisation, so that
// "é" spelled with a combining accent and the precomposed form bind to
// the same symbol.
func (i *Interner) InternIdent(name string) StringID {
	if !norm.NFC.IsNormalString(name) {
		name = norm.NFC.String(name)
	}
	return i.Intern(name)
}

// Lookup returns the string for id.
func (i *Interner) Lookup(id StringID) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup panics when id was never issued by this interner.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("invalid string ID")
	}
	return s
}

// Len returns the number of strings including the NoStringID slot.
func (i *Interner) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byID)
}

// Snapshot returns a copy of all interned strings ordered by id.
func (i *Interner) Snapshot() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.byID)
}
