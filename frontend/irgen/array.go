package irgen

import (
	"github.com/rrvm-project/sysycc/frontend/ast"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// collectIndices walks a chain of nested IndexExpr down to its root Ident,
// returning the identifier and the indices in source (outermost-dimension-
// first) order. frontend/grammar's convert.go builds this chain with the
// outermost IndexExpr holding the LAST subscript, so indices are collected
// by prepending as the walk descends toward the Ident.
func collectIndices(e ast.Expr) (*ast.Ident, []ast.Expr) {
	var indices []ast.Expr
	cur := e
	for {
		idx, ok := cur.(*ast.IndexExpr)
		if !ok {
			break
		}
		indices = append([]ast.Expr{idx.Index}, indices...)
		cur = idx.Base
	}
	return cur.(*ast.Ident), indices
}

// arrayBase returns the base address of slot's storage and the scalar
// element type backing it -- a local alloca or parameter pointer value
// already in hand, or a global rematerialized fresh at this access site.
func (g *Generator) arrayBase(slot *varSlot) (*ir.Value, ir.Type) {
	if slot.Addr != nil {
		return slot.Addr, slot.Addr.Type.(ir.PointerType).Elem
	}
	elemType := irType(slot.Type)
	return g.prog.Temps.NewGlobalTemp(ir.PointerType{Elem: elemType}, slot.GlobalName), elemType
}

// computeOffset linearizes a chain of per-dimension indices into a single
// element offset: offset = sum(index[i] * stride[i]), stride[i] being the
// product of the dimensions nested inside dimension i. This is the one
// place multi-dimensional indexing happens, since the IR's GEP is a single
// pointer+i32 step with no notion of more than one dimension.
func (g *Generator) computeOffset(indices []ast.Expr, dims []int) *ir.Value {
	var sum *ir.Value
	for i, idxExpr := range indices {
		stride := 1
		for _, d := range dims[i+1:] {
			stride *= d
		}
		v := g.lowerExpr(idxExpr)
		term := v
		if stride != 1 {
			t := g.b.NewTemp(ir.I32Type{})
			g.b.Emit(&ir.BinaryInstr{Dst: t, Op: ir.OpMul, LHS: v, RHS: ir.ConstI32(int32(stride))})
			term = t
		}
		if sum == nil {
			sum = term
			continue
		}
		t := g.b.NewTemp(ir.I32Type{})
		g.b.Emit(&ir.BinaryInstr{Dst: t, Op: ir.OpAdd, LHS: sum, RHS: term})
		sum = t
	}
	if sum == nil {
		return ir.ConstI32(0)
	}
	return sum
}

// indexAddr computes the address reached by applying indices to slot: a
// full index chain yields the address of a scalar element, a partial one
// (fewer indices than dimensions, e.g. passing a row of a 2-D array to a
// function expecting a pointer) yields the address of the sub-array's
// first element -- both fall out of the same linearized-offset arithmetic.
func (g *Generator) indexAddr(slot *varSlot, indices []ast.Expr) (*ir.Value, ir.Type) {
	base, elemType := g.arrayBase(slot)
	offset := g.computeOffset(indices, slot.Dims)
	dst := g.b.NewTemp(ir.PointerType{Elem: elemType})
	g.b.Emit(&ir.GEPInstr{Dst: dst, Base: base, Offset: offset})
	return dst, elemType
}

func zeroFor(t ast.Type) *ir.Value {
	if t == ast.Float {
		return ir.ConstF32(0)
	}
	return ir.ConstI32(0)
}

func (g *Generator) storeElement(base *ir.Value, idx int, v *ir.Value) {
	addr := base
	if idx != 0 {
		t := g.b.NewTemp(base.Type)
		g.b.Emit(&ir.GEPInstr{Dst: t, Base: base, Offset: ir.ConstI32(int32(idx))})
		addr = t
	}
	g.b.Emit(&ir.StoreInstr{Addr: addr, Value: v})
}

// storeArrayInit stores exactly total elements of a (possibly nested,
// possibly partial) brace initializer into base starting at flat index
// start, zero-padding whatever the source initializer leaves unspecified --
// the runtime-value counterpart of frontend/sema's foldArrayInit, which
// only needs to run for globals since their image is built at compile time.
func (g *Generator) storeArrayInit(base *ir.Value, list *ast.InitList, dims []int, total int, elemType ast.Type, start int) {
	end := start + total
	idx := start
	if list != nil {
		idx = g.storeFlattenedInitList(base, list, dims, elemType, idx)
	}
	for idx < end {
		g.storeElement(base, idx, zeroFor(elemType))
		idx++
	}
}

func (g *Generator) storeFlattenedInitList(base *ir.Value, list *ast.InitList, dims []int, elemType ast.Type, idx int) int {
	innerSize := 1
	if len(dims) > 1 {
		for _, n := range dims[1:] {
			innerSize *= n
		}
	}
	for i, isNested := range list.IsList {
		if isNested {
			g.storeArrayInit(base, list.Nested[i], dims[1:], innerSize, elemType, idx)
			idx += innerSize
			continue
		}
		v := g.convertValueTo(g.lowerExpr(list.Items[i]), irType(elemType))
		g.storeElement(base, idx, v)
		idx++
	}
	return idx
}
