package ir

// Builder provides the low-level SSA construction primitives the frontend's
// AST walker (frontend/irgen) drives: block/temp allocation plus the
// variable-stack + incomplete-phi + sealed-block technique (Braun et al.)
// for placing phis without a separate dominance-frontier pass during the
// initial AST->IR lowering.
type Builder struct {
	Program *Program
	Func    *Function
	Block   *BasicBlock

	// SSA construction state, one entry per source-level variable name.
	defs           map[string]map[*BasicBlock]*Value
	incompletePhis map[*BasicBlock]map[string]*PhiInstr
	sealed         map[*BasicBlock]bool
}

// NewBuilder creates a builder writing into prog.
func NewBuilder(prog *Program) *Builder {
	return &Builder{
		Program:        prog,
		defs:           map[string]map[*BasicBlock]*Value{},
		incompletePhis: map[*BasicBlock]map[string]*PhiInstr{},
		sealed:         map[*BasicBlock]bool{},
	}
}

// StartFunction begins a new function and positions the builder at its
// entry block.
func (b *Builder) StartFunction(name string, ret Type, params []*Parameter) *Function {
	f := NewFunction(name, ret, params)
	b.Program.Funcs = append(b.Program.Funcs, f)
	b.Func = f
	b.Block = f.NewBlock("entry")
	b.SealBlock(b.Block)
	return f
}

// NewBlock allocates a block in the current function without switching the
// insertion point to it.
func (b *Builder) NewBlock(label string) *BasicBlock {
	return b.Func.NewBlock(label)
}

// SetBlock moves the insertion point.
func (b *Builder) SetBlock(blk *BasicBlock) {
	b.Block = blk
}

// NewTemp allocates a fresh temporary of type t via the program's shared
// TempManager.
func (b *Builder) NewTemp(t Type) *Value {
	return b.Program.Temps.NewTemp(t)
}

// Emit appends an ordinary (non-terminator) instruction to the current
// block.
func (b *Builder) Emit(inst Instruction) {
	b.Block.Instrs = append(b.Block.Instrs, inst)
}

// Terminate sets the current block's terminator and wires successor edges;
// it is an error (caught by the frontend, not here) to terminate a block
// twice.
func (b *Builder) Terminate(term Terminator) {
	b.Block.Term = term
	for _, s := range term.Successors() {
		if s != nil {
			b.Block.AddSucc(s)
		}
	}
}

// WriteVariable records that, at the end of blk, the source variable name
// holds value v.
func (b *Builder) WriteVariable(name string, blk *BasicBlock, v *Value) {
	m, ok := b.defs[name]
	if !ok {
		m = map[*BasicBlock]*Value{}
		b.defs[name] = m
	}
	m[blk] = v
}

// ReadVariable resolves the current SSA value of a source variable at the
// end of blk, inserting phis (possibly incomplete, for unsealed blocks) as
// needed.
func (b *Builder) ReadVariable(name string, blk *BasicBlock, t Type) *Value {
	if v, ok := b.defs[name][blk]; ok {
		return v
	}
	return b.readVariableRecursive(name, blk, t)
}

func (b *Builder) readVariableRecursive(name string, blk *BasicBlock, t Type) *Value {
	var val *Value
	if !b.sealed[blk] {
		phi := &PhiInstr{Dst: b.NewTemp(t), Block: blk}
		blk.Phis = append(blk.Phis, phi)
		if b.incompletePhis[blk] == nil {
			b.incompletePhis[blk] = map[string]*PhiInstr{}
		}
		b.incompletePhis[blk][name] = phi
		val = phi.Dst
	} else if len(blk.Preds) == 1 {
		val = b.ReadVariable(name, blk.Preds[0], t)
	} else if len(blk.Preds) == 0 {
		// Unreachable / entry with no writer: default-initialize to zero,
		// matching SysY's implicit zero-initialization of locals.
		val = zeroValue(t)
	} else {
		phi := &PhiInstr{Dst: b.NewTemp(t), Block: blk}
		blk.Phis = append(blk.Phis, phi)
		b.WriteVariable(name, blk, phi.Dst)
		b.addPhiOperands(name, phi, t)
		val = phi.Dst
	}
	b.WriteVariable(name, blk, val)
	return val
}

func (b *Builder) addPhiOperands(name string, phi *PhiInstr, t Type) {
	for _, pred := range phi.Block.Preds {
		v := b.ReadVariable(name, pred, t)
		phi.Sources = append(phi.Sources, PhiSource{Pred: pred, Value: v})
	}
	b.tryRemoveTrivialPhi(phi)
}

// tryRemoveTrivialPhi implements useless-phi removal inline during
// construction: a phi whose operands are all itself or one other value
// collapses to that value (mirrors internal/midend's UselessPhiRemoval,
// which also runs as a dedicated pass for phis introduced later by other
// transforms).
func (b *Builder) tryRemoveTrivialPhi(phi *PhiInstr) {
	var same *Value
	for _, src := range phi.Sources {
		if src.Value == phi.Dst || src.Value == same {
			continue
		}
		if same != nil {
			return // merges at least two distinct values, not trivial
		}
		same = src.Value
	}
	if same == nil {
		same = zeroValue(phi.Dst.Type)
	}
	blk := phi.Block
	blk.Phis = removePhi(blk.Phis, phi)
	for name, defs := range b.defs {
		for dblk, v := range defs {
			if v == phi.Dst {
				b.defs[name][dblk] = same
			}
		}
	}
}

func removePhi(list []*PhiInstr, target *PhiInstr) []*PhiInstr {
	out := list[:0]
	for _, p := range list {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}

// SealBlock marks blk as having all its predecessors known, completing any
// phi placeholders created while it was open.
func (b *Builder) SealBlock(blk *BasicBlock) {
	for name, phi := range b.incompletePhis[blk] {
		b.addPhiOperands(name, phi, phi.Dst.Type)
		_ = name
	}
	delete(b.incompletePhis, blk)
	b.sealed[blk] = true
}

func zeroValue(t Type) *Value {
	if IsFloat(t) {
		return ConstF32(0)
	}
	return ConstI32(0)
}
