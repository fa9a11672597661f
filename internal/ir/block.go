package ir

// BasicBlock is a straight-line instruction sequence with no internal
// branches: a label, leading φ instructions, ordinary instructions, exactly
// one terminator (stored separately, never inside Instrs), predecessor /
// successor links, and the analysis caches mid-end passes and the register
// allocator read and rewrite (Defs/Uses/LiveIn/LiveOut, Loop, Weight).
type BasicBlock struct {
	ID    int
	Label string

	Phis  []*PhiInstr
	Instrs []Instruction
	Term   Terminator

	Preds []*BasicBlock
	Succs []*BasicBlock

	// Liveness caches, recomputed by internal/cfg.Liveness.
	Defs    map[*Value]bool
	Uses    map[*Value]bool
	LiveIn  map[*Value]bool
	LiveOut map[*Value]bool

	// Dominator-tree cache, recomputed by internal/cfg.Dominators.
	IDom     *BasicBlock
	DomChildren []*BasicBlock

	// Loop-tree cache, recomputed by internal/cfg.NaturalLoops.
	Loop *Loop

	// Weight is a nesting-depth-weighted frequency estimate (10^depth),
	// used by the spill heuristic and move-coalescing benefit.
	Weight float64
}

// Loop describes one natural loop: header, nesting, preheader (if any), and
// containment. Defined here (rather than internal/cfg) because BasicBlock.Loop
// needs the type and internal/loopopt needs to attach induction-variable
// data to it without an import cycle.
type Loop struct {
	Header    *BasicBlock
	Blocks    []*BasicBlock // all blocks in the loop body, including Header
	Latches   []*BasicBlock // blocks with a back-edge into Header
	Preheader *BasicBlock   // nil if none exists yet
	Outer     *Loop
	Inner     []*Loop
	Depth     int

	// IndVars holds induction-variable info keyed by the defined temp's ID,
	// populated by internal/loopopt.ClassifyInductionVariables.
	IndVars map[int]*IndVar
}

// HasInner reports whether this loop contains nested loops.
func (l *Loop) HasInner() bool { return len(l.Inner) > 0 }

// IndVar characterizes a temporary whose value in each iteration equals
// base + scale*i + step-contributions, i being the loop's counter; from one
// iteration to the next it advances by step: value_{n+1} = value_n + step.
type IndVar struct {
	Base  *Value // loop-invariant base value
	Scale *Value // constant scale; Value(1) for an ordinary IV
	Step  *Value // per-iteration step
	ZFP   *Value // optional zero-fixed-point (mod/shift-capped) marker
}

// NewBlock creates a detached basic block (not yet inserted into a
// function's block list).
func NewBlock(id int, label string) *BasicBlock {
	return &BasicBlock{
		ID:      id,
		Label:   label,
		Defs:    map[*Value]bool{},
		Uses:    map[*Value]bool{},
		LiveIn:  map[*Value]bool{},
		LiveOut: map[*Value]bool{},
		Weight:  1,
	}
}

// AllInstrs returns phis followed by ordinary instructions followed by the
// terminator -- the full, printable instruction stream of the block.
func (b *BasicBlock) AllInstrs() []Instruction {
	out := make([]Instruction, 0, len(b.Phis)+len(b.Instrs)+1)
	for _, p := range b.Phis {
		out = append(out, p)
	}
	out = append(out, b.Instrs...)
	if b.Term != nil {
		out = append(out, b.Term)
	}
	return out
}

// AddSucc links b -> s in both directions.
func (b *BasicBlock) AddSucc(s *BasicBlock) {
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}

// RemovePred removes p from b's predecessor list (used when unreachable
// blocks are dropped, or a CFG edge is redirected).
func (b *BasicBlock) RemovePred(p *BasicBlock) {
	b.Preds = removeBlock(b.Preds, p)
}

// RemoveSucc removes s from b's successor list.
func (b *BasicBlock) RemoveSucc(s *BasicBlock) {
	b.Succs = removeBlock(b.Succs, s)
}

// Detach clears b's own prev/succ references and removes b from its
// neighbors' lists, breaking the bidirectional links before b is dropped --
// the arena-ownership analogue of spec.md's note on breaking prev/succ
// cycles before deletion.
func (b *BasicBlock) Detach() {
	for _, p := range b.Preds {
		p.Succs = removeBlock(p.Succs, b)
	}
	for _, s := range b.Succs {
		s.Preds = removeBlock(s.Preds, b)
	}
	b.Preds = nil
	b.Succs = nil
}

func removeBlock(list []*BasicBlock, target *BasicBlock) []*BasicBlock {
	out := list[:0]
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}

// ReplaceSucc rewrites a successor edge, keeping the matching predecessor
// list in the old/new target consistent. Used by jump-retargeting passes
// (useless-code cleanup, loop preheader synthesis).
func (b *BasicBlock) ReplaceSucc(old, new *BasicBlock) {
	for n, s := range b.Succs {
		if s == old {
			b.Succs[n] = new
			new.Preds = append(new.Preds, b)
			old.Preds = removeBlock(old.Preds, b)
		}
	}
	switch t := b.Term.(type) {
	case *JumpInstr:
		if t.Target == old {
			t.Target = new
		}
	case *CondJumpInstr:
		if t.True == old {
			t.True = new
		}
		if t.False == old {
			t.False = new
		}
	}
}
