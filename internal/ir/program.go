package ir

// InitItem is one element of a GlobalVar's initializer: either a literal
// 32-bit word or a run of zero bytes. Adjacent Zero items are coalesced by
// Program.AddGlobal so a long run of zero-initialized array elements collapses to
// one item.
type InitItem struct {
	IsZero bool
	Word   uint32 // valid when !IsZero
	Zero   int    // byte count, valid when IsZero
}

// GlobalVar is a module-level variable: a name, element type, and an
// initializer. BSS iff the initializer is a single all-covering Zero item.
type GlobalVar struct {
	Name string
	Elem Type
	Len  int // element count (1 for scalars)
	Init []InitItem
}

// IsBSS reports whether this global belongs in .sbss (a single Zero
// initializer covering the whole variable).
func (g *GlobalVar) IsBSS() bool {
	return len(g.Init) == 1 && g.Init[0].IsZero
}

// SizeBytes returns the global's total size in bytes (4 bytes/element,
// matching i32/f32 word size).
func (g *GlobalVar) SizeBytes() int {
	return g.Len * 4
}

// Program owns every function and global, plus the shared TempManager so
// ids stay unique across the whole compilation, per spec.md's concurrency
// model.
type Program struct {
	Funcs   []*Function
	Globals []*GlobalVar
	Temps   *TempManager
}

func NewProgram() *Program {
	return &Program{Temps: NewTempManager()}
}

// FuncByName looks up a function by name, or returns nil.
func (p *Program) FuncByName(name string) *Function {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// AddGlobal registers a module-level variable and coalesces adjacent Zero
// items in its initializer.
func (p *Program) AddGlobal(g *GlobalVar) {
	g.Init = coalesceZeros(g.Init)
	p.Globals = append(p.Globals, g)
}

func coalesceZeros(items []InitItem) []InitItem {
	var out []InitItem
	for _, it := range items {
		if it.IsZero && it.Zero == 0 {
			continue
		}
		if it.IsZero && len(out) > 0 && out[len(out)-1].IsZero {
			out[len(out)-1].Zero += it.Zero
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		out = []InitItem{{IsZero: true, Zero: 0}}
	}
	return out
}
