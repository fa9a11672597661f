// Package isel lowers internal/ir's SSA-form IR into internal/riscv's
// virtual-register RV64 instruction set: one ir.Function becomes one
// riscv.Function, one ir.BasicBlock becomes one riscv.Block, and (almost)
// every ir.Instruction becomes one or a short fixed sequence of
// riscv.Instr. Grounded on original_source/backend/transform/src/
// {instr_dag.rs,transformer.rs} -- that file's `to_riscv` is this
// package's per-instruction lowering, done here as a direct switch over
// ir.Instruction rather than that file's separate DAG-node wrapper, since
// internal/loopopt and internal/midend already leave the IR in the linear
// block order instruction selection needs; nothing here depends on tree
// shape the way classic maximal-munch selectors do. dag.go supplies the
// DAG/list-scheduling stage transformer.rs's instr_dag.rs and
// instr_schedule.rs actually perform, as a separate, later, per-block pass
// over the lowered riscv.Instr stream.
package isel

import (
	"fmt"
	"math"

	"github.com/rrvm-project/sysycc/internal/ir"
	"github.com/rrvm-project/sysycc/internal/riscv"
)

func float32bits(f float32) uint32 { return math.Float32bits(f) }

// SelectProgram lowers every function and global in prog.
func SelectProgram(prog *ir.Program) *riscv.Program {
	rp := riscv.NewProgram()
	for _, g := range prog.Globals {
		rp.Globals = append(rp.Globals, lowerGlobal(g))
	}
	s := &selector{prog: prog, rp: rp, fconsts: map[uint32]string{}}
	for _, f := range prog.Funcs {
		rp.Funcs = append(rp.Funcs, s.selectFunction(f))
	}
	return rp
}

func lowerGlobal(g *ir.GlobalVar) *riscv.GlobalVar {
	rg := &riscv.GlobalVar{Name: g.Name, Size: g.SizeBytes(), BSS: g.IsBSS()}
	if rg.BSS {
		return rg
	}
	for _, item := range g.Init {
		if item.IsZero {
			for n := 0; n < item.Zero/4; n++ {
				rg.Init = append(rg.Init, 0)
			}
			continue
		}
		rg.Init = append(rg.Init, item.Word)
	}
	return rg
}

// selector holds the per-program state shared across functions (the
// dedup'd float-constant pool: two functions referencing the literal
// 3.14 share one .rodata entry) plus per-function scratch state, reset by
// selectFunction.
type selector struct {
	prog    *ir.Program
	rp      *riscv.Program
	fconsts map[uint32]string // float32 bit pattern -> pool symbol name

	f            *ir.Function
	rf           *riscv.Function
	blocks       map[*ir.BasicBlock]*riscv.Block
	vregs        map[*ir.Value]riscv.Value
	allocaOffset map[*ir.Value]int32
	localsSize   int32
}

func (s *selector) selectFunction(f *ir.Function) *riscv.Function {
	rf := riscv.NewFunction(f.Name)
	rf.External = f.External
	if f.External {
		return rf
	}

	s.f = f
	s.rf = rf
	s.blocks = map[*ir.BasicBlock]*riscv.Block{}
	s.vregs = map[*ir.Value]riscv.Value{}
	s.allocaOffset = map[*ir.Value]int32{}
	s.localsSize = 0

	for _, b := range f.Blocks {
		s.blocks[b] = rf.NewBlockWeighted(b.Label, b.Weight)
	}
	for _, p := range f.Params {
		s.vregs[p.Value] = rf.NewVReg(ir.IsFloat(p.Value.Type))
	}
	for _, t := range f.AllTemps() {
		s.vregs[t] = rf.NewVReg(ir.IsFloat(t.Type))
	}
	s.assignAllocaSlots()

	for n, b := range f.Blocks {
		rb := s.blocks[b]
		if n == 0 {
			s.lowerPrologue(rb)
		}
		// b.Phis are resolved after every block's straight-line code is
		// lowered, by ResolvePhis below -- they need every predecessor's
		// riscv.Block to already exist.
		for _, inst := range b.Instrs {
			s.lowerInstr(rb, inst)
		}
		s.lowerTerminator(rb, b)
	}

	// Frame layout beyond the locals region (spill slots) is internal/
	// regalloc's concern; it must only ever grow FrameSize from here, never
	// shrink it, since these offsets are already baked into every addi/lw/sw
	// above.
	rf.FrameSize = int(align16(s.localsSize))

	ResolvePhis(s)
	return rf
}

// assignAllocaSlots gives every stack allocation in the function a fixed
// FP-relative offset, most negative first, 4-byte-per-element sized.
func (s *selector) assignAllocaSlots() {
	var offset int32
	for _, b := range s.f.Blocks {
		for _, inst := range b.Instrs {
			alloc, ok := inst.(*ir.AllocaInstr)
			if !ok {
				continue
			}
			offset += int32(alloc.NumElems) * 4
			s.allocaOffset[alloc.Dst] = -offset
		}
	}
	s.localsSize = offset
}

func align16(n int32) int32 {
	return (n + 15) &^ 15
}

// lowerPrologue copies incoming arguments out of the fixed parameter
// registers into their assigned virtual registers. Per internal/riscv/
// reg.go's ParameterRegs note, int/pointer/float arguments alike pass in
// the integer a-registers -- only the destination vreg's Float marker
// differs, since this backend never gives floats a disjoint physical file.
func (s *selector) lowerPrologue(entry *riscv.Block) {
	for n, p := range s.f.Params {
		if n >= len(riscv.ParameterRegs) {
			// spec.md's SysY subset never exercises more than 8 arguments in a
			// single call; stack-passed overflow args are not implemented.
			break
		}
		dst := s.vregs[p.Value]
		entry.Instrs = append(entry.Instrs, &riscv.MvInstr{Rd: dst, Rs: riscv.NewPhysical(riscv.ParameterRegs[n])})
	}
}

func (s *selector) lowerInstr(rb *riscv.Block, inst ir.Instruction) {
	switch v := inst.(type) {
	case *ir.BinaryInstr:
		s.lowerBinary(rb, v)
	case *ir.CompareInstr:
		s.lowerCompare(rb, v)
	case *ir.ConvertInstr:
		s.lowerConvert(rb, v)
	case *ir.AllocaInstr:
		dst := s.vregs[v.Dst]
		rb.Instrs = append(rb.Instrs, &riscv.ITriInstr{Op: riscv.Addi, Rd: dst, Rs1: riscv.NewPhysical(riscv.FP), Imm: riscv.NewImm(s.allocaOffset[v.Dst])})
	case *ir.StoreInstr:
		addr := s.address(rb, v.Addr)
		val := s.operandReg(rb, v.Value)
		rb.Instrs = append(rb.Instrs, &riscv.MemInstr{Store: true, Float: val.Float, Value: val, Base: addr})
	case *ir.LoadInstr:
		addr := s.address(rb, v.Addr)
		dst := s.vregs[v.Dst]
		rb.Instrs = append(rb.Instrs, &riscv.MemInstr{Store: false, Float: dst.Float, Value: dst, Base: addr})
	case *ir.GEPInstr:
		s.lowerGEP(rb, v)
	case *ir.CallInstr:
		s.lowerCall(rb, v)
	default:
		panic(fmt.Sprintf("isel: unhandled ir instruction %T", inst))
	}
}

func (s *selector) lowerBinary(rb *riscv.Block, v *ir.BinaryInstr) {
	dst := s.vregs[v.Dst]
	if ir.IsInt(v.Dst.Type) && (v.Op == ir.OpAdd || v.Op == ir.OpSub) {
		if imm, ok := s.operandImm12(v.RHS); ok {
			if v.Op == ir.OpSub {
				imm = riscv.NewImm(-imm.Imm)
			}
			lhs := s.operandReg(rb, v.LHS)
			rb.Instrs = append(rb.Instrs, &riscv.ITriInstr{Op: riscv.Addi, Rd: dst, Rs1: lhs, Imm: imm})
			return
		}
	}
	lhs := s.operandReg(rb, v.LHS)
	rhs := s.operandReg(rb, v.RHS)
	rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: binOpTable[v.Op], Rd: dst, Rs1: lhs, Rs2: rhs})
}

var binOpTable = map[ir.ArithOp]riscv.RTriOp{
	ir.OpAdd: riscv.Add, ir.OpSub: riscv.Sub, ir.OpMul: riscv.Mul,
	ir.OpDiv: riscv.Div, ir.OpRem: riscv.Rem,
	ir.OpFAdd: riscv.Fadd, ir.OpFSub: riscv.Fsub, ir.OpFMul: riscv.Fmul, ir.OpFDiv: riscv.Fdiv,
}

// lowerCompare expands a 0/1-result comparison into the one or two RV64
// instructions RISC-V's base ISA (no direct sge/sle/ne) needs:
// eq/ne via xor+sltiu/sltu against zero, sgt/sge via operand-swapped
// slt(+negate), float compares via feq.s/flt.s/fle.s the same way.
func (s *selector) lowerCompare(rb *riscv.Block, v *ir.CompareInstr) {
	dst := s.vregs[v.Dst]
	lhs := s.operandReg(rb, v.LHS)
	rhs := s.operandReg(rb, v.RHS)
	zero := riscv.NewPhysical(riscv.X0)

	switch v.Op {
	case ir.CmpEq:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Xor, Rd: dst, Rs1: lhs, Rs2: rhs})
		rb.Instrs = append(rb.Instrs, &riscv.ITriInstr{Op: riscv.Sltiu, Rd: dst, Rs1: dst, Imm: riscv.NewImm(1)})
	case ir.CmpNe:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Xor, Rd: dst, Rs1: lhs, Rs2: rhs})
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Sltu, Rd: dst, Rs1: zero, Rs2: dst})
	case ir.CmpSlt:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Slt, Rd: dst, Rs1: lhs, Rs2: rhs})
	case ir.CmpSgt:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Slt, Rd: dst, Rs1: rhs, Rs2: lhs})
	case ir.CmpSle:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Slt, Rd: dst, Rs1: rhs, Rs2: lhs})
		rb.Instrs = append(rb.Instrs, &riscv.ITriInstr{Op: riscv.Xori, Rd: dst, Rs1: dst, Imm: riscv.NewImm(1)})
	case ir.CmpSge:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Slt, Rd: dst, Rs1: lhs, Rs2: rhs})
		rb.Instrs = append(rb.Instrs, &riscv.ITriInstr{Op: riscv.Xori, Rd: dst, Rs1: dst, Imm: riscv.NewImm(1)})
	case ir.CmpFEq:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Feq, Rd: dst, Rs1: lhs, Rs2: rhs})
	case ir.CmpFNe:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Feq, Rd: dst, Rs1: lhs, Rs2: rhs})
		rb.Instrs = append(rb.Instrs, &riscv.ITriInstr{Op: riscv.Xori, Rd: dst, Rs1: dst, Imm: riscv.NewImm(1)})
	case ir.CmpFLt:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Flt, Rd: dst, Rs1: lhs, Rs2: rhs})
	case ir.CmpFGt:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Flt, Rd: dst, Rs1: rhs, Rs2: lhs})
	case ir.CmpFLe:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Fle, Rd: dst, Rs1: lhs, Rs2: rhs})
	case ir.CmpFGe:
		rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Fle, Rd: dst, Rs1: rhs, Rs2: lhs})
	}
}

func (s *selector) lowerConvert(rb *riscv.Block, v *ir.ConvertInstr) {
	dst := s.vregs[v.Dst]
	src := s.operandReg(rb, v.Src)
	op := riscv.Float2Int
	if v.ToFloat {
		op = riscv.Int2Float
	}
	rb.Instrs = append(rb.Instrs, &riscv.ConvertInstr{Op: op, Rd: dst, Rs: src})
}

// lowerGEP computes base + offset*4 (ir.GEPInstr.Offset counts elements,
// every SysY scalar is 4 bytes), scaling by an immediate shift when the
// index isn't already a compile-time constant.
func (s *selector) lowerGEP(rb *riscv.Block, v *ir.GEPInstr) {
	dst := s.vregs[v.Dst]
	base := s.operandReg(rb, v.Base)
	if v.Offset.IsConst() {
		byteOff := v.Offset.ConstInt * 4
		if imm := riscv.NewImm(byteOff); imm.FitsImm12() {
			rb.Instrs = append(rb.Instrs, &riscv.ITriInstr{Op: riscv.Addi, Rd: dst, Rs1: base, Imm: imm})
			return
		}
	}
	idx := s.operandReg(rb, v.Offset)
	scaled := s.rf.NewVReg(false)
	rb.Instrs = append(rb.Instrs, &riscv.ITriInstr{Op: riscv.Slli, Rd: scaled, Rs1: idx, Imm: riscv.NewImm(2)})
	rb.Instrs = append(rb.Instrs, &riscv.RTriInstr{Op: riscv.Add, Rd: dst, Rs1: base, Rs2: scaled})
}

func (s *selector) lowerCall(rb *riscv.Block, v *ir.CallInstr) {
	var args []riscv.Value
	for n, a := range v.Args {
		if n >= len(riscv.ParameterRegs) {
			break // see lowerPrologue: stack-passed overflow args unsupported
		}
		reg := s.operandReg(rb, a)
		phys := riscv.NewPhysical(riscv.ParameterRegs[n])
		rb.Instrs = append(rb.Instrs, &riscv.MvInstr{Rd: phys, Rs: reg})
		args = append(args, phys)
	}
	call := &riscv.CallInstr{Symbol: v.Callee, Args: args}
	if v.Dst != nil {
		retReg := riscv.NewPhysical(riscv.A0)
		call.Dst = &retReg
	}
	rb.Instrs = append(rb.Instrs, call)
	if v.Dst != nil {
		dst := s.vregs[v.Dst]
		retReg := riscv.NewPhysical(riscv.A0)
		retReg.Float = dst.Float
		rb.Instrs = append(rb.Instrs, &riscv.MvInstr{Rd: dst, Rs: retReg})
	}
}

func (s *selector) lowerTerminator(rb *riscv.Block, b *ir.BasicBlock) {
	switch v := b.Term.(type) {
	case *ir.JumpInstr:
		rb.Instrs = append(rb.Instrs, &riscv.JInstr{Target: s.blocks[v.Target]})
	case *ir.CondJumpInstr:
		cond := s.operandReg(rb, v.Cond)
		rb.Instrs = append(rb.Instrs, &riscv.BranInstr{Op: riscv.Bne, Rs1: cond, Rs2: riscv.NewPhysical(riscv.X0), Target: s.blocks[v.True]})
		rb.Instrs = append(rb.Instrs, &riscv.JInstr{Target: s.blocks[v.False]})
	case *ir.RetInstr:
		if v.Value != nil {
			val := s.operandReg(rb, v.Value)
			ret := riscv.NewPhysical(riscv.A0)
			ret.Float = val.Float
			rb.Instrs = append(rb.Instrs, &riscv.MvInstr{Rd: ret, Rs: val})
		}
		rb.Instrs = append(rb.Instrs, &riscv.RetInstr{})
	default:
		panic(fmt.Sprintf("isel: unhandled terminator %T", b.Term))
	}
}

// address lowers a pointer-typed value used as a memory operand's base.
func (s *selector) address(rb *riscv.Block, addr *ir.Value) riscv.Value {
	return s.operandReg(rb, addr)
}

// operandImm12 reports whether v is an integer constant that fits
// straight into an I-type immediate, for the addi-folding fast path.
func (s *selector) operandImm12(v *ir.Value) (riscv.Value, bool) {
	if v.Kind != ir.ValueConstInt {
		return riscv.Value{}, false
	}
	imm := riscv.NewImm(v.ConstInt)
	return imm, imm.FitsImm12()
}

// operandReg materializes v into a register: an existing virtual register
// for a temporary/parameter, or a freshly emitted li/float-pool-load for a
// literal constant.
func (s *selector) operandReg(rb *riscv.Block, v *ir.Value) riscv.Value {
	switch v.Kind {
	case ir.ValueConstInt:
		dst := s.rf.NewVReg(false)
		rb.Instrs = append(rb.Instrs, &riscv.LiInstr{Rd: dst, Imm: v.ConstInt})
		return dst
	case ir.ValueConstFloat:
		return s.materializeFloatConst(rb, v.ConstFloat)
	default:
		if v.Global {
			dst := s.rf.NewVReg(false)
			rb.Instrs = append(rb.Instrs, &riscv.LaInstr{Rd: dst, Symbol: v.Name[1:]}) // strip the "@"
			return dst
		}
		return s.vregs[v]
	}
}

func (s *selector) materializeFloatConst(rb *riscv.Block, f float32) riscv.Value {
	bits := float32bits(f)
	name, ok := s.fconsts[bits]
	if !ok {
		name = fmt.Sprintf("__fconst.%d", len(s.fconsts))
		s.fconsts[bits] = name
		s.rp.Globals = append(s.rp.Globals, &riscv.GlobalVar{Name: name, Size: 4, Init: []uint32{bits}})
	}
	addr := s.rf.NewVReg(false)
	rb.Instrs = append(rb.Instrs, &riscv.LaInstr{Rd: addr, Symbol: name})
	dst := s.rf.NewVReg(true)
	rb.Instrs = append(rb.Instrs, &riscv.MemInstr{Store: false, Float: true, Value: dst, Base: addr})
	return dst
}
