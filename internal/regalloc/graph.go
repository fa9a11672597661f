// Package regalloc assigns internal/riscv's virtual registers to physical
// ones via iterated-coalescing graph coloring, spilling to the stack (or
// rematerializing a known constant) when a function needs more
// simultaneously-live values of a class than the physical file has.
// Grounded on original_source/backend/register/src/{allocator.rs,
// spill.rs,utils.rs} -- that package's graph.rs/solver.rs (the
// interference-graph and per-var-type driver proper) weren't present in
// the retrieved example pack, so the graph representation and outer
// build-color-spill-retry loop here are original to this port, built to
// the shape allocator.rs's own driving loop implies.
package regalloc

import "github.com/rrvm-project/sysycc/internal/riscv"

// graph is an undirected interference graph over one register class
// (int or float) of one function's virtual registers.
type graph struct {
	adj      map[int]map[int]bool
	weight   map[int]float64
	moveWith map[[2]int]float64 // coalescing benefit, keyed by the sorted pair
	nodes    map[int]bool
}

func newGraph() *graph {
	return &graph{
		adj:      map[int]map[int]bool{},
		weight:   map[int]float64{},
		moveWith: map[[2]int]float64{},
		nodes:    map[int]bool{},
	}
}

func (g *graph) addNode(v int) {
	g.nodes[v] = true
	if g.adj[v] == nil {
		g.adj[v] = map[int]bool{}
	}
}

func (g *graph) addEdge(a, b int) {
	if a == b {
		return
	}
	g.addNode(a)
	g.addNode(b)
	g.adj[a][b] = true
	g.adj[b][a] = true
}

func (g *graph) addWeight(v int, w float64) {
	g.weight[v] += w
}

func movePairKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

func (g *graph) addBenefit(a, b int, w float64) {
	g.moveWith[movePairKey(a, b)] += w
}

func (g *graph) degree(v int) int {
	return len(g.adj[v])
}

func (g *graph) interferes(a, b int) bool {
	return g.adj[a][b]
}

// removeNode takes v out of the graph entirely (used during simplification
// and after two nodes are coalesced into one).
func (g *graph) removeNode(v int) {
	for other := range g.adj[v] {
		delete(g.adj[other], v)
	}
	delete(g.adj, v)
	delete(g.nodes, v)
}

// buildGraph runs the liveness-driven interference construction:
// LiveOut is seeded per block by a backward fixed point over riscv's
// block-level Reads()/Writes(), then walked instruction-by-instruction in
// reverse per original_source/backend/register/src/allocator.rs's `lives`
// set, adding an edge between a definition and everything simultaneously
// live, and a coalescing-benefit entry for every move whose endpoints are
// both in this register class.
func buildGraph(rf *riscv.Function, float bool) *graph {
	liveOut := computeLiveOut(rf, float)
	g := newGraph()

	for _, b := range rf.Blocks {
		weight := blockWeight(b)
		live := map[int]bool{}
		for v := range liveOut[b] {
			live[v] = true
		}
		for n := len(b.Instrs) - 1; n >= 0; n-- {
			inst := b.Instrs[n]
			writes := classRegs(inst.Writes(), float)
			reads := classRegs(inst.Reads(), float)

			for _, w := range writes {
				delete(live, w)
				g.addNode(w)
				for other := range live {
					g.addEdge(w, other)
				}
				g.addWeight(w, weight)
			}
			for _, r := range reads {
				g.addNode(r)
				for other := range live {
					g.addEdge(r, other)
				}
				g.addWeight(r, weight)
				live[r] = true
			}

			if inst.IsMove() && len(writes) == 1 && len(reads) == 1 {
				g.addBenefit(writes[0], reads[0], weight)
			}
		}
	}
	return g
}

// classRegs returns the virtual-register ids among vs that belong to the
// requested class (float or int), skipping physical/immediate operands --
// those never need coloring.
func classRegs(vs []riscv.Value, float bool) []int {
	var out []int
	for _, v := range vs {
		if v.Kind == riscv.VTemp && v.Float == float {
			out = append(out, v.VReg)
		}
	}
	return out
}

// blockWeight is internal/isel's copy of the block's internal/ir.BasicBlock
// Weight (10^loop-nesting-depth), carried through instruction selection
// onto riscv.Block so a node's summed weight still favors keeping loop-body
// values in registers over straight-line ones, per the spill-choice
// priority formula in alloc.go's choosePotentialSpill.
func blockWeight(b *riscv.Block) float64 { return b.Weight }

// computeLiveOut runs a backward fixed point over the function's blocks
// (successors discovered from each block's own Bran/J instructions, since
// internal/isel never relies on implicit fallthrough) restricted to one
// register class.
func computeLiveOut(rf *riscv.Function, float bool) map[*riscv.Block]map[int]bool {
	liveIn := map[*riscv.Block]map[int]bool{}
	liveOut := map[*riscv.Block]map[int]bool{}
	succs := map[*riscv.Block][]*riscv.Block{}
	for _, b := range rf.Blocks {
		liveIn[b] = map[int]bool{}
		liveOut[b] = map[int]bool{}
		succs[b] = blockSuccessors(b)
	}

	changed := true
	for changed {
		changed = false
		for n := len(rf.Blocks) - 1; n >= 0; n-- {
			b := rf.Blocks[n]
			out := map[int]bool{}
			for _, s := range succs[b] {
				for v := range liveIn[s] {
					out[v] = true
				}
			}
			in := map[int]bool{}
			for v := range out {
				in[v] = true
			}
			for i := len(b.Instrs) - 1; i >= 0; i-- {
				for _, w := range classRegs(b.Instrs[i].Writes(), float) {
					delete(in, w)
				}
				for _, r := range classRegs(b.Instrs[i].Reads(), float) {
					in[r] = true
				}
			}
			if !setEqual(in, liveIn[b]) || !setEqual(out, liveOut[b]) {
				liveIn[b] = in
				liveOut[b] = out
				changed = true
			}
		}
	}
	return liveOut
}

func setEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func blockSuccessors(b *riscv.Block) []*riscv.Block {
	var out []*riscv.Block
	for _, inst := range b.Instrs {
		switch v := inst.(type) {
		case *riscv.BranInstr:
			out = append(out, v.Target)
		case *riscv.JInstr:
			out = append(out, v.Target)
		}
	}
	return out
}
