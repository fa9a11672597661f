package irgen

import (
	"testing"

	"github.com/rrvm-project/sysycc/frontend/grammar"
	"github.com/rrvm-project/sysycc/frontend/sema"
	"github.com/rrvm-project/sysycc/internal/ir"
)

func mustGenerate(t *testing.T, src string) *ir.Program {
	t.Helper()
	cu, err := grammar.ParseString("test.sy", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ast := grammar.ToAST(cu)
	info, diags := sema.Check(ast)
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return Generate(ast, info)
}

func findFunc(t *testing.T, prog *ir.Program, name string) *ir.Function {
	t.Helper()
	f := prog.FuncByName(name)
	if f == nil {
		t.Fatalf("function %s not found", name)
	}
	return f
}

func TestGenerateTerminatesEveryBlock(t *testing.T) {
	prog := mustGenerate(t, `int main() { return 0; }`)
	f := findFunc(t, prog, "main")
	for _, b := range f.Blocks {
		if b.Term == nil {
			t.Fatalf("block %s has no terminator", b.Label)
		}
	}
}

func TestGenerateRegistersRuntimeLinkageStubs(t *testing.T) {
	prog := mustGenerate(t, `int main() { putint(1); return 0; }`)
	for name := range ir.RuntimeLinkage {
		f := prog.FuncByName(name)
		if f == nil {
			t.Fatalf("missing external stub for %s", name)
		}
		if !f.External {
			t.Fatalf("%s should be marked External", name)
		}
	}
}

func TestGenerateGlobalScalarZeroUsesBSS(t *testing.T) {
	prog := mustGenerate(t, `int g; int main() { return g; }`)
	if len(prog.Globals) != 1 {
		t.Fatalf("expected 1 global, got %d", len(prog.Globals))
	}
	if !prog.Globals[0].IsBSS() {
		t.Fatalf("expected zero-valued global to be BSS")
	}
}

func TestGenerateGlobalArrayPartialInitZeroPads(t *testing.T) {
	prog := mustGenerate(t, `int a[4] = {1, 2}; int main() { return a[3]; }`)
	g := prog.Globals[0]
	if g.Len != 4 {
		t.Fatalf("expected Len 4, got %d", g.Len)
	}
	if g.IsBSS() {
		t.Fatalf("partially-initialized array should not collapse to BSS")
	}
}

func TestGenerateIfElseProducesThreeExtraBlocks(t *testing.T) {
	prog := mustGenerate(t, `
		int main() {
			int x;
			if (x > 0) { x = 1; } else { x = 2; }
			return x;
		}`)
	f := findFunc(t, prog, "main")
	var labels []string
	for _, b := range f.Blocks {
		labels = append(labels, b.Label)
	}
	want := map[string]bool{"if.then": false, "if.else": false, "if.end": false}
	for _, l := range labels {
		if _, ok := want[l]; ok {
			want[l] = true
		}
	}
	for l, seen := range want {
		if !seen {
			t.Fatalf("missing expected block %q among %v", l, labels)
		}
	}
}

func TestGenerateWhileLoopHasBackEdge(t *testing.T) {
	prog := mustGenerate(t, `
		int main() {
			int i;
			i = 0;
			while (i < 10) {
				i = i + 1;
			}
			return i;
		}`)
	f := findFunc(t, prog, "main")
	var cond *ir.BasicBlock
	for _, b := range f.Blocks {
		if b.Label == "while.cond" {
			cond = b
		}
	}
	if cond == nil {
		t.Fatalf("no while.cond block found")
	}
	if len(cond.Preds) < 2 {
		t.Fatalf("while.cond should have a back-edge predecessor in addition to the entry edge, got %d preds", len(cond.Preds))
	}
}

func TestGenerateBreakAndContinueJumpToLoopBlocks(t *testing.T) {
	prog := mustGenerate(t, `
		int main() {
			int i;
			i = 0;
			while (i < 10) {
				if (i == 5) break;
				if (i == 1) continue;
				i = i + 1;
			}
			return 0;
		}`)
	f := findFunc(t, prog, "main")
	if len(f.Blocks) == 0 {
		t.Fatalf("expected non-empty function body")
	}
	var breakToEnd, continueToCond bool
	for _, b := range f.Blocks {
		j, ok := b.Term.(*ir.JumpInstr)
		if !ok || b.Label != "if.then" {
			continue
		}
		switch j.Target.Label {
		case "while.end":
			breakToEnd = true
		case "while.cond":
			continueToCond = true
		}
	}
	if !breakToEnd || !continueToCond {
		t.Fatalf("expected break to jump to while.end and continue to while.cond (break: %v, continue: %v)", breakToEnd, continueToCond)
	}
}

func TestGenerateArrayIndexLowersToGEPAndLoad(t *testing.T) {
	prog := mustGenerate(t, `
		int main() {
			int a[10];
			a[2] = 5;
			return a[2];
		}`)
	f := findFunc(t, prog, "main")
	var sawAlloca, sawGEP, sawStore, sawLoad bool
	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			switch inst.(type) {
			case *ir.AllocaInstr:
				sawAlloca = true
			case *ir.GEPInstr:
				sawGEP = true
			case *ir.StoreInstr:
				sawStore = true
			case *ir.LoadInstr:
				sawLoad = true
			}
		}
	}
	if !sawAlloca || !sawGEP || !sawStore || !sawLoad {
		t.Fatalf("expected alloca/gep/store/load, got alloca=%v gep=%v store=%v load=%v",
			sawAlloca, sawGEP, sawStore, sawLoad)
	}
}

func TestGenerateFloatIntPromotionInsertsConvert(t *testing.T) {
	prog := mustGenerate(t, `
		float main_helper(int n) {
			float f;
			f = n + 1.5;
			return f;
		}
		int main() { return 0; }`)
	f := findFunc(t, prog, "main_helper")
	var sawConvert bool
	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			if _, ok := inst.(*ir.ConvertInstr); ok {
				sawConvert = true
			}
		}
	}
	if !sawConvert {
		t.Fatalf("expected an int->float conversion for mixed arithmetic")
	}
}

func TestGenerateShortCircuitAndAvoidsEvaluatingRHSBlock(t *testing.T) {
	prog := mustGenerate(t, `
		int main() {
			int a;
			int b;
			if (a != 0 && b != 0) {
				return 1;
			}
			return 0;
		}`)
	f := findFunc(t, prog, "main")
	var sawMid bool
	for _, b := range f.Blocks {
		if b.Label == "and.rhs" {
			sawMid = true
		}
	}
	if !sawMid {
		t.Fatalf("expected a distinct block for the right-hand side of &&")
	}
}

func TestGenerateArrayParamDegradesToPointer(t *testing.T) {
	prog := mustGenerate(t, `
		int sum(int a[], int n) {
			int i;
			int s;
			i = 0;
			s = 0;
			while (i < n) {
				s = s + a[i];
				i = i + 1;
			}
			return s;
		}
		int main() { return 0; }`)
	f := findFunc(t, prog, "sum")
	if len(f.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(f.Params))
	}
	if _, ok := f.Params[0].Value.Type.(ir.PointerType); !ok {
		t.Fatalf("expected array parameter to be a pointer type, got %s", f.Params[0].Value.Type)
	}
}
