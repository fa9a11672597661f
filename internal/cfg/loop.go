package cfg

import "github.com/rrvm-project/sysycc/internal/ir"

// NaturalLoops builds the natural-loop tree of f: every back-edge
// n->header where header dominates n defines a loop whose body is found
// by the standard reverse walk (Aho/Sethi/Ullman's algorithm) from n
// until header is reached. Loops sharing a header are merged (SysY's
// for/while never produces this, but a future multi-latch source could).
// Dominators must already be populated; Liveness should run after this so
// block weights see the right nesting depth.
func NaturalLoops(f *ir.Function) []*ir.Loop {
	for _, b := range f.Blocks {
		b.Loop = nil
	}

	headerLoops := map[*ir.BasicBlock]*ir.Loop{}
	var order []*ir.BasicBlock // header discovery order, for deterministic output

	for _, n := range f.Blocks {
		for _, h := range n.Succs {
			if !Dominates(h, n) {
				continue
			}
			loop, ok := headerLoops[h]
			if !ok {
				loop = &ir.Loop{Header: h, IndVars: map[int]*ir.IndVar{}}
				headerLoops[h] = loop
				order = append(order, h)
				loop.Blocks = append(loop.Blocks, h)
				h.Loop = loop
			}
			loop.Latches = append(loop.Latches, n)
			collectLoopBody(loop, n)
		}
	}

	var loops []*ir.Loop
	for _, h := range order {
		loops = append(loops, headerLoops[h])
	}

	nestLoops(loops)
	for _, l := range loops {
		assignDepth(l, 1)
	}
	for _, l := range loops {
		l.Preheader = findPreheader(l)
	}
	return loops
}

// collectLoopBody walks predecessors backward from the latch n until it
// reaches the header, adding every newly-seen block to the loop.
func collectLoopBody(loop *ir.Loop, n *ir.BasicBlock) {
	if n.Loop == loop {
		return
	}
	var stack []*ir.BasicBlock
	seen := map[*ir.BasicBlock]bool{loop.Header: true}
	for _, b := range loop.Blocks {
		seen[b] = true
	}
	if !seen[n] {
		stack = append(stack, n)
		seen[n] = true
		loop.Blocks = append(loop.Blocks, n)
		n.Loop = loop
	}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range b.Preds {
			if seen[p] {
				continue
			}
			seen[p] = true
			loop.Blocks = append(loop.Blocks, p)
			p.Loop = loop
			stack = append(stack, p)
		}
	}
}

// nestLoops establishes Outer/Inner links: a loop whose header is
// strictly contained in another loop's block set nests inside it. The
// tightest (smallest) enclosing loop becomes the immediate Outer.
func nestLoops(loops []*ir.Loop) {
	for _, inner := range loops {
		var best *ir.Loop
		for _, outer := range loops {
			if outer == inner {
				continue
			}
			if !containsBlock(outer, inner.Header) || outer.Header == inner.Header {
				continue
			}
			if best == nil || len(outer.Blocks) < len(best.Blocks) {
				best = outer
			}
		}
		if best != nil {
			inner.Outer = best
			best.Inner = append(best.Inner, inner)
		}
	}
}

func containsBlock(l *ir.Loop, b *ir.BasicBlock) bool {
	for _, x := range l.Blocks {
		if x == b {
			return true
		}
	}
	return false
}

func assignDepth(l *ir.Loop, base int) {
	depth := base
	for o := l.Outer; o != nil; o = o.Outer {
		depth++
	}
	l.Depth = depth
	for _, b := range l.Blocks {
		if b.Loop == nil || b.Loop.Depth < depth {
			b.Loop = l
		}
	}
}

// findPreheader returns the loop's existing preheader if the header has
// exactly one predecessor outside the loop and that predecessor has no
// other successor; otherwise nil, signaling internal/loopopt to
// synthesize one before running LICM or strength reduction.
func findPreheader(l *ir.Loop) *ir.BasicBlock {
	var outside *ir.BasicBlock
	for _, p := range l.Header.Preds {
		if containsBlock(l, p) {
			continue
		}
		if outside != nil {
			return nil // more than one entry edge, no single preheader
		}
		outside = p
	}
	if outside == nil || len(outside.Succs) != 1 {
		return nil
	}
	return outside
}
