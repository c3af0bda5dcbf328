package symbols

// SymbolID identifies a symbol inside one checking session. Zero is invalid.
type SymbolID uint32

const NoSymbolID SymbolID = 0

func (id SymbolID) IsValid() bool { return id != NoSymbolID }
