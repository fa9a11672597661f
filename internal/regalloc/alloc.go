package regalloc

import "github.com/rrvm-project/sysycc/internal/riscv"

// maxSpillRounds bounds the build-color-spill retry loop; each round that
// actually spills strictly shrinks that vreg's live range to the point a
// later round can color it, so this should never be exhausted -- it guards
// against a bug in spill insertion rather than an expected case.
const maxSpillRounds = 64

// Allocate assigns every virtual register in rf a physical one, spilling
// to the stack (or rematerializing, for constant-origin vregs) as needed.
// Run once per register class, since internal/riscv shares one Reg enum
// between int and float operands and only Value.Float disambiguates them.
// Grounded on original_source/backend/register/src/allocator.rs's
// build-coalesce-color-spill-retry loop, parameterized there by var_type
// the same way this is parameterized by float.
func Allocate(rf *riscv.Function) {
	allocateClass(rf, false)
	allocateClass(rf, true)
	rf.FrameSize = int(align16(int32(rf.FrameSize)))
}

func align16(n int32) int32 { return (n + 15) &^ 15 }

func allocateClass(rf *riscv.Function, float bool) {
	sp := newSpiller(rf)
	k := len(riscv.Allocable)

	for round := 0; round < maxSpillRounds; round++ {
		g := buildGraph(rf, float)
		root := coalesce(g, k)
		color, spilled := colorGraph(g, k, sp.origin)
		if len(spilled) == 0 {
			applyColors(rf, color, root, float)
			return
		}
		sp.spill(spilled, float)
	}
	panic("regalloc: spill-and-retry loop did not converge")
}

// coalesce repeatedly merges move-related, non-interfering node pairs that
// pass Briggs' conservative test (the combined neighborhood has fewer than
// k significant-degree nodes), eliminating the move entirely. It mutates g
// in place and returns, for every merged-away node, the surviving node its
// color should be copied from.
func coalesce(g *graph, k int) map[int]int {
	root := map[int]int{}
	changed := true
	for changed {
		changed = false
		var candidates [][2]int
		for pair, benefit := range g.moveWith {
			if benefit > 0 {
				candidates = append(candidates, pair)
			}
		}
		for _, pair := range candidates {
			a, b := pair[0], pair[1]
			if !g.nodes[a] || !g.nodes[b] || a == b || g.interferes(a, b) {
				continue
			}
			if !briggsSafe(g, a, b, k) {
				continue
			}
			mergeNodes(g, a, b)
			root[b] = a
			changed = true
		}
	}
	for b := range root {
		a := root[b]
		for {
			next, ok := root[a]
			if !ok {
				break
			}
			a = next
		}
		root[b] = a
	}
	return root
}

func briggsSafe(g *graph, a, b int, k int) bool {
	neighbors := map[int]bool{}
	for n := range g.adj[a] {
		neighbors[n] = true
	}
	for n := range g.adj[b] {
		if n != a {
			neighbors[n] = true
		}
	}
	highDegree := 0
	for n := range neighbors {
		if g.degree(n) >= k {
			highDegree++
		}
	}
	return highDegree < k
}

// mergeNodes folds b into a: every edge and move-benefit touching b is
// redirected to a, and b is removed from the graph.
func mergeNodes(g *graph, a, b int) {
	for n := range g.adj[b] {
		if n != a {
			g.addEdge(a, n)
		}
	}
	g.weight[a] += g.weight[b]

	type carried struct {
		other   int
		benefit float64
	}
	var carry []carried
	for pair, benefit := range g.moveWith {
		if pair[0] != b && pair[1] != b {
			continue
		}
		other := pair[0]
		if other == b {
			other = pair[1]
		}
		carry = append(carry, carried{other, benefit})
		delete(g.moveWith, pair)
	}
	for _, c := range carry {
		if c.other != a {
			g.addBenefit(a, c.other, c.benefit)
		}
	}
	g.removeNode(b)
}

// colorGraph runs simplification (removing nodes with fewer than k
// interfering neighbors onto a stack) and, when no such node remains,
// optimistic spilling (pushing the worst-priority remaining node anyway,
// on the chance its neighbors don't all end up needing distinct colors).
// Popping the stack in reverse and greedily picking an unused neighbor
// color either succeeds for every node or reports the ones that didn't as
// actually needing a spill slot.
func colorGraph(g *graph, k int, origin map[int]constOrigin) (map[int]riscv.Reg, map[int]bool) {
	work := cloneGraph(g)
	var stack []int

	for len(work.nodes) > 0 {
		picked := -1
		for v := range work.nodes {
			if work.degree(v) < k {
				picked = v
				break
			}
		}
		if picked == -1 {
			picked = choosePotentialSpill(work, origin)
		}
		stack = append(stack, picked)
		work.removeNode(picked)
	}

	color := map[int]riscv.Reg{}
	spilled := map[int]bool{}
	for n := len(stack) - 1; n >= 0; n-- {
		v := stack[n]
		used := map[riscv.Reg]bool{}
		for neighbor := range g.adj[v] {
			if c, ok := color[neighbor]; ok {
				used[c] = true
			}
		}
		assigned := false
		for _, r := range riscv.Allocable {
			if !used[r] {
				color[v] = r
				assigned = true
				break
			}
		}
		if !assigned {
			spilled[v] = true
		}
	}
	return color, spilled
}

// choosePotentialSpill picks the node with the worst spill priority --
// original_source/backend/register/src/utils.rs's degree + 1/weight,
// scaled up by ConstSpillWeightRatio when the node is a known constant
// cheap to rematerialize instead of spilled to the stack.
func choosePotentialSpill(work *graph, origin map[int]constOrigin) int {
	best := -1
	var bestPriority float64
	for v := range work.nodes {
		w := work.weight[v]
		if w <= 0 {
			w = 0.0001
		}
		priority := float64(work.degree(v)) + 1.0/w
		if _, remat := origin[v]; remat {
			priority *= ConstSpillWeightRatio
		}
		if best == -1 || priority > bestPriority {
			best = v
			bestPriority = priority
		}
	}
	return best
}

func cloneGraph(g *graph) *graph {
	c := newGraph()
	for v := range g.nodes {
		c.addNode(v)
	}
	for v, neighbors := range g.adj {
		for n := range neighbors {
			c.adj[v][n] = true
		}
	}
	for v, w := range g.weight {
		c.weight[v] = w
	}
	return c
}

// applyColors rewrites every operand of the requested class through each
// instruction's own SetReg, resolving a coalesced-away vreg through root
// to the surviving node that actually holds a color.
func applyColors(rf *riscv.Function, color map[int]riscv.Reg, root map[int]int, float bool) {
	resolve := func(v int) riscv.Reg {
		for {
			if c, ok := color[v]; ok {
				return c
			}
			next, ok := root[v]
			if !ok {
				panic("regalloc: vreg left uncolored")
			}
			v = next
		}
	}
	for _, b := range rf.Blocks {
		for _, inst := range b.Instrs {
			for _, w := range inst.Writes() {
				if w.Kind == riscv.VTemp && w.Float == float {
					inst.SetReg(w.VReg, resolve(w.VReg))
				}
			}
			for _, r := range inst.Reads() {
				if r.Kind == riscv.VTemp && r.Float == float {
					inst.SetReg(r.VReg, resolve(r.VReg))
				}
			}
		}
	}
}
