// Package seccomp builds and installs the fixed classic-BPF filter that
// turns uid/gid-spoofing syscalls into silent no-ops inside a rootless
// user namespace: the kernel often refuses chown/setuid-family calls on
// files the caller doesn't truly own, which breaks package installers
// that only chown cosmetically.
//
// Built on golang.org/x/net/bpf rather than a hand-rolled byte-array
// encoder or libseccomp-golang (present in the retrieval pack only as a
// name, with no source to ground an API against); bpf.Assemble gives the
// same classic-BPF opcodes with instruction validation for free.
package seccomp

import (
	"golang.org/x/net/bpf"
)

// AUDIT_ARCH_* from <linux/audit.h>: the architecture personality value
// the kernel reports in seccomp_data.arch.
const (
	auditArchX86_64  = 0xc000003e
	auditArchAARCH64 = 0xc00000b7
)

// seccomp_data field offsets (struct seccomp_data, <linux/seccomp.h>):
// nr at 0, arch at 4, instruction_pointer at 8, args[0..5] at 16, 24, ...
const (
	offNr   = 0
	offArch = 4
	offArg0 = 16
)

const probeValue = 0xffffffff // (uint32_t)-1, the setfsuid/setfsgid probe arg

// abi names one architecture's syscall numbers for the filtered set. Not
// every name exists on every architecture (chown/lchown have no syscall
// number on arm64, glibc only ever emits fchownat there); a zero ok means
// "absent, skip it".
type abi struct {
	arch     uint32
	syscalls map[string]uint32
}

// amd64ABI and arm64ABI are the two architectures the filter recognizes;
// any other reports SECCOMP_RET_KILL. Numbers are each architecture's
// fixed syscall table entries for the names the filter cares about.
var amd64ABI = abi{
	arch: auditArchX86_64,
	syscalls: map[string]uint32{
		"chown":      92,
		"fchown":     93,
		"lchown":     94,
		"setuid":     105,
		"setgid":     106,
		"setgroups":  116,
		"setreuid":   113,
		"setregid":   114,
		"setresuid":  117,
		"setresgid":  119,
		"fchownat":   260,
		"setfsuid":   122,
		"setfsgid":   123,
	},
}

var arm64ABI = abi{
	arch: auditArchAARCH64,
	syscalls: map[string]uint32{
		// chown/lchown have no syscall number on arm64: the C library
		// always emits fchownat instead, which is covered below.
		"fchownat":  54,
		"fchown":    55,
		"setregid":  143,
		"setgid":    144,
		"setreuid":  145,
		"setuid":    146,
		"setresuid": 147,
		"setresgid": 149,
		"setfsuid":  151,
		"setfsgid":  152,
		"setgroups": 159,
	},
}

// errno0Names are the syscalls that unconditionally return success without
// executing. setfsuid/setfsgid are handled separately below: they only
// get the errno0 treatment outside of probe mode.
var errno0Names = []string{
	"chown", "lchown", "setuid", "setgid", "setreuid", "setregid",
	"setresuid", "setresgid", "setgroups", "fchownat", "fchown",
}

// Program builds the ID-spoofing filter's classic-BPF instructions.
func Program() []bpf.Instruction {
	b := newBuilder()

	b.emit(bpf.LoadAbsolute{Off: offArch, Size: 4})
	b.jumpIfEqualTo(auditArchX86_64, "amd64_body", "")
	b.jumpIfEqualTo(auditArchAARCH64, "arm64_body", "kill")

	b.label("kill")
	b.emit(bpf.RetConstant{Val: uint32(retKill)})

	b.label("amd64_body")
	b.emitBody(amd64ABI, "amd64_errno0")
	b.jumpTo("allow")
	b.label("amd64_errno0")
	b.emit(bpf.RetConstant{Val: uint32(retErrno)})

	b.label("arm64_body")
	b.emitBody(arm64ABI, "arm64_errno0")
	b.jumpTo("allow")
	b.label("arm64_errno0")
	b.emit(bpf.RetConstant{Val: uint32(retErrno)})

	b.label("allow")
	b.emit(bpf.RetConstant{Val: uint32(retAllow)})

	return b.resolve()
}

// emitBody appends one architecture's nr-dispatch: every name in
// errno0Names present in a.syscalls jumps to errnoLabel, and
// setfsuid/setfsgid get the probe-mode special case. Falls through to
// ALLOW (the caller arranges what follows).
func (b *builder) emitBody(a abi, errnoLabel string) {
	b.emit(bpf.LoadAbsolute{Off: offNr, Size: 4})

	for _, name := range errno0Names {
		nr, ok := a.syscalls[name]
		if !ok {
			continue
		}
		b.jumpIfEqualTo(nr, errnoLabel, "")
	}

	for _, name := range []string{"setfsuid", "setfsgid"} {
		nr, ok := a.syscalls[name]
		if !ok {
			continue
		}
		// Labels are prefixed with errnoLabel so each architecture body
		// gets its own check/skip targets.
		check := errnoLabel + "_" + name + "_check"
		next := errnoLabel + "_" + name + "_skip"
		b.jumpIfEqualTo(nr, check, next)
		b.label(check)
		b.emit(bpf.LoadAbsolute{Off: offArg0, Size: 4})
		b.jumpIfEqualTo(probeValue, "allow", errnoLabel)
		b.label(next)
	}
}
