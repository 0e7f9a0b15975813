package seccomp

import (
	"testing"

	"golang.org/x/net/bpf"
)

func TestProgramAssembles(t *testing.T) {
	prog := Program()
	if len(prog) == 0 {
		t.Fatal("Program() returned no instructions")
	}
	if _, err := bpf.Assemble(prog); err != nil {
		t.Fatalf("bpf.Assemble(Program()) = %v", err)
	}
}

func TestProgramEndsInAllow(t *testing.T) {
	prog := Program()
	last, ok := prog[len(prog)-1].(bpf.RetConstant)
	if !ok {
		t.Fatalf("last instruction = %T, want bpf.RetConstant", prog[len(prog)-1])
	}
	if last.Val != uint32(retAllow) {
		t.Errorf("last RetConstant = %#x, want ALLOW %#x", last.Val, retAllow)
	}
}

func TestBuilderRejectsBackwardJump(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected resolve() to panic on a backward jump")
		}
	}()

	b := newBuilder()
	b.label("top")
	b.emit(bpf.LoadAbsolute{Off: 0, Size: 4})
	b.jumpIfEqualTo(1, "top", "")
	b.resolve()
}
