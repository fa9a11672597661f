package isel

import "github.com/rrvm-project/sysycc/internal/riscv"

// Schedule reorders each block's lowered instructions by building a
// dependency DAG and list-scheduling it, rather than leaving them in raw
// selection order. Grounded on original_source/backend/transform/src/
// {instr_dag.rs,instr_schedule.rs}: a node per instruction, an edge from
// a def to each of its uses (read-after-write) and, conservatively, from
// every earlier store to every later load and vice versa (no alias
// analysis survives into the backend), then a topological pop-the-front
// walk. Scheduling never reorders across a block terminator, which this
// package always leaves last per insertBeforeTerminator's convention.
func Schedule(rf *riscv.Function) {
	for _, b := range rf.Blocks {
		b.Instrs = scheduleBlock(b.Instrs)
	}
}

type dagNode struct {
	instr   riscv.Instr
	succs   []*dagNode
	inDeg   int
	lastUse int // index in original order, used as the tie-break priority
}

func scheduleBlock(instrs []riscv.Instr) []riscv.Instr {
	if len(instrs) <= 1 {
		return instrs
	}

	term := instrs[len(instrs)-1]
	switch term.(type) {
	case *riscv.JInstr, *riscv.BranInstr, *riscv.RetInstr:
		instrs = instrs[:len(instrs)-1]
	default:
		term = nil
	}
	if len(instrs) <= 1 {
		if term != nil {
			return append(instrs, term)
		}
		return instrs
	}

	// regKey: a vreg's id, or a negative key for a physical register (call
	// argument and result registers are def/use edges too).
	regKey := func(v riscv.Value) (int, bool) {
		if v.Kind == riscv.VPhysical {
			return -1 - int(v.PReg), true
		}
		return v.VReg, v.Kind == riscv.VTemp
	}
	defOf := map[int]*dagNode{} // register key -> defining node
	readersOf := map[int][]*dagNode{} // register key -> later readers of its current value
	var pendingStores []*dagNode
	var pendingLoads []*dagNode
	nodes := make([]*dagNode, len(instrs))

	for n := len(instrs) - 1; n >= 0; n-- {
		node := &dagNode{instr: instrs[n], lastUse: n}
		nodes[n] = node

		for _, w := range instrs[n].Writes() {
			k, ok := regKey(w)
			if !ok {
				continue
			}
			if laterDef, ok := defOf[k]; ok {
				node.succs = append(node.succs, laterDef)
			}
			defOf[k] = node
			node.succs = append(node.succs, readersOf[k]...)
			readersOf[k] = nil
		}
		for _, r := range instrs[n].Reads() {
			k, ok := regKey(r)
			if !ok {
				continue
			}
			if def, ok := defOf[k]; ok && def != node {
				node.succs = append(node.succs, def)
			}
			readersOf[k] = append(readersOf[k], node)
		}
		if mem, ok := instrs[n].(*riscv.MemInstr); ok {
			if mem.Store {
				node.succs = append(node.succs, pendingLoads...)
				pendingStores = append(pendingStores, node)
			} else {
				node.succs = append(node.succs, pendingStores...)
				pendingLoads = append(pendingLoads, node)
			}
		}
	}

	for _, n := range nodes {
		for _, s := range n.succs {
			s.inDeg++
		}
	}

	var ready []*dagNode
	for _, n := range nodes {
		if n.inDeg == 0 {
			ready = append(ready, n)
		}
	}

	var out []riscv.Instr
	for len(ready) > 0 {
		// Prefer the instruction furthest from its definition in the original
		// order: it has had the most time for its operands to become live,
		// so scheduling it next keeps register pressure from growing further.
		best := 0
		for n := 1; n < len(ready); n++ {
			if ready[n].lastUse > ready[best].lastUse {
				best = n
			}
		}
		node := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		out = append(out, node.instr)
		for _, s := range node.succs {
			s.inDeg--
			if s.inDeg == 0 {
				ready = append(ready, s)
			}
		}
	}

	if term != nil {
		out = append(out, term)
	}
	return out
}
