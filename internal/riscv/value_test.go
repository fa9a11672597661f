package riscv

import "testing"

func TestFitsImm12(t *testing.T) {
	if !NewImm(2047).FitsImm12() {
		t.Error("2047 should fit in 12 bits signed")
	}
	if !NewImm(-2048).FitsImm12() {
		t.Error("-2048 should fit in 12 bits signed")
	}
	if NewImm(2048).FitsImm12() {
		t.Error("2048 should not fit in 12 bits signed")
	}
	if NewImm(-2049).FitsImm12() {
		t.Error("-2049 should not fit in 12 bits signed")
	}
	if NewVTemp(1, false).FitsImm12() {
		t.Error("a virtual register is not an immediate")
	}
}

func TestValueKindPredicates(t *testing.T) {
	v := NewVTemp(3, true)
	if !v.IsVirtual() || v.IsPhysical() || v.IsImm() {
		t.Errorf("unexpected kind predicates for vtemp: %+v", v)
	}
	p := NewPhysical(A0)
	if !p.IsPhysical() || p.IsVirtual() || p.IsImm() {
		t.Errorf("unexpected kind predicates for physical: %+v", p)
	}
}

func TestInstrSetReg(t *testing.T) {
	rd := NewVTemp(1, false)
	rs1 := NewVTemp(2, false)
	rs2 := NewVTemp(1, false)
	inst := &RTriInstr{Op: Add, Rd: rd, Rs1: rs1, Rs2: rs2}

	inst.SetReg(1, A0)

	if !inst.Rd.IsPhysical() || inst.Rd.PReg != A0 {
		t.Errorf("expected Rd rewritten to a0, got %v", inst.Rd)
	}
	if !inst.Rs2.IsPhysical() || inst.Rs2.PReg != A0 {
		t.Errorf("expected Rs2 rewritten to a0, got %v", inst.Rs2)
	}
	if inst.Rs1.IsPhysical() {
		t.Error("Rs1 (different vreg) should be untouched")
	}
}
