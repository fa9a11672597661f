package ir

import "testing"

func TestCoalesceZeros(t *testing.T) {
	items := []InitItem{
		{IsZero: true, Zero: 4},
		{IsZero: true, Zero: 8},
		{Word: 7},
		{IsZero: true, Zero: 4},
		{IsZero: true, Zero: 4},
	}
	out := coalesceZeros(items)
	if len(out) != 3 {
		t.Fatalf("expected 3 coalesced items, got %d: %+v", len(out), out)
	}
	if !out[0].IsZero || out[0].Zero != 12 {
		t.Errorf("expected first run to coalesce to 12 zero bytes, got %+v", out[0])
	}
	if out[1].IsZero || out[1].Word != 7 {
		t.Errorf("expected middle word item preserved, got %+v", out[1])
	}
	if !out[2].IsZero || out[2].Zero != 8 {
		t.Errorf("expected trailing run to coalesce to 8 zero bytes, got %+v", out[2])
	}
}

func TestCoalesceZerosEmptyDefaultsToOneItem(t *testing.T) {
	out := coalesceZeros(nil)
	if len(out) != 1 || !out[0].IsZero {
		t.Errorf("expected a single zero item for an empty initializer, got %+v", out)
	}
}

func TestGlobalVarIsBSS(t *testing.T) {
	bss := &GlobalVar{Name: "arr", Elem: I32Type{}, Len: 10, Init: []InitItem{{IsZero: true, Zero: 40}}}
	if !bss.IsBSS() {
		t.Error("all-zero initializer should be classified as BSS")
	}
	if bss.SizeBytes() != 40 {
		t.Errorf("expected 40 bytes, got %d", bss.SizeBytes())
	}

	data := &GlobalVar{Name: "x", Elem: I32Type{}, Len: 1, Init: []InitItem{{Word: 5}}}
	if data.IsBSS() {
		t.Error("non-zero initializer should not be classified as BSS")
	}
}

func TestProgramAddGlobalAndFuncByName(t *testing.T) {
	p := NewProgram()
	p.AddGlobal(&GlobalVar{Name: "g", Elem: I32Type{}, Len: 1, Init: []InitItem{{IsZero: true, Zero: 4}}})
	if len(p.Globals) != 1 {
		t.Fatal("expected one global registered")
	}

	f := NewFunction("main", I32Type{}, nil)
	p.Funcs = append(p.Funcs, f)
	if p.FuncByName("main") != f {
		t.Error("FuncByName should find the registered function")
	}
	if p.FuncByName("missing") != nil {
		t.Error("FuncByName should return nil for an unknown name")
	}
}
