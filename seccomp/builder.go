package seccomp

import (
	"fmt"

	"golang.org/x/net/bpf"
)

// Classic BPF only permits forward jumps (no loops), so this builder only
// ever resolves a label to an instruction that comes after the jump
// referencing it; resolve panics otherwise, which would mean a filter bug
// rather than a runtime condition.

type node struct {
	label string // non-empty for a label marker; doesn't occupy an instruction slot
	instr bpf.Instruction
	jump  *pendingJump
}

type pendingJump struct {
	val                  uint32
	trueLabel, falseLabel string // "" means "fall through" (skip 0)
}

type builder struct {
	nodes []node
}

func newBuilder() *builder {
	return &builder{}
}

func (b *builder) emit(i bpf.Instruction) {
	b.nodes = append(b.nodes, node{instr: i})
}

func (b *builder) label(name string) {
	b.nodes = append(b.nodes, node{label: name})
}

// jumpIfEqualTo appends a JumpIf comparing the most recently loaded value
// to val: trueLabel on equality, falseLabel otherwise. Either label may be
// "" to mean "fall through to the next instruction".
func (b *builder) jumpIfEqualTo(val uint32, trueLabel, falseLabel string) {
	b.nodes = append(b.nodes, node{jump: &pendingJump{val: val, trueLabel: trueLabel, falseLabel: falseLabel}})
}

// jumpTo appends an unconditional forward jump to label.
func (b *builder) jumpTo(label string) {
	b.nodes = append(b.nodes, node{jump: &pendingJump{trueLabel: label, falseLabel: label}})
}

// resolve computes every label's instruction index and every jump's skip
// counts, and returns the final, literal instruction sequence.
func (b *builder) resolve() []bpf.Instruction {
	positions := map[string]int{}
	idx := 0
	for _, n := range b.nodes {
		if n.label != "" {
			positions[n.label] = idx
			continue
		}
		idx++
	}

	out := make([]bpf.Instruction, 0, idx)
	idx = 0
	for _, n := range b.nodes {
		switch {
		case n.label != "":
			continue

		case n.jump != nil:
			target := func(label string) int {
				if label == "" {
					return idx + 1
				}
				pos, ok := positions[label]
				if !ok {
					panic(fmt.Sprintf("seccomp: undefined label %q", label))
				}
				if pos <= idx {
					panic(fmt.Sprintf("seccomp: backward jump to %q not supported by classic BPF", label))
				}
				return pos
			}

			if n.jump.trueLabel == n.jump.falseLabel && n.instr == nil {
				// unconditional jump, emitted by jumpTo
				skip := target(n.jump.trueLabel) - idx - 1
				out = append(out, bpf.Jump{Skip: uint32(skip)})
			} else {
				skipTrue := target(n.jump.trueLabel) - idx - 1
				skipFalse := target(n.jump.falseLabel) - idx - 1
				out = append(out, bpf.JumpIf{
					Cond:      bpf.JumpEqual,
					Val:       n.jump.val,
					SkipTrue:  uint8(skipTrue),
					SkipFalse: uint8(skipFalse),
				})
			}
			idx++

		default:
			out = append(out, n.instr)
			idx++
		}
	}

	return out
}
