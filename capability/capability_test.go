package capability

import "testing"

func TestCapStringKnownAndUnknown(t *testing.T) {
	if got := CAP_SYS_ADMIN.String(); got != "sys_admin" {
		t.Fatalf("CAP_SYS_ADMIN.String() = %q, want sys_admin", got)
	}
	if got := Cap(999).String(); got != "unknown" {
		t.Fatalf("Cap(999).String() = %q, want unknown", got)
	}
}

func TestListContainsEveryDocumentedCap(t *testing.T) {
	caps := List()
	want := map[Cap]bool{
		CAP_SYS_ADMIN:       false,
		CAP_MKNOD:           false,
		CAP_DAC_OVERRIDE:    false,
		CAP_DAC_READ_SEARCH: false,
	}

	for _, c := range caps {
		if _, ok := want[c]; ok {
			want[c] = true
		}
	}
	for c, found := range want {
		if !found {
			t.Errorf("List() missing %s", c)
		}
	}
}

func TestCapTypeString(t *testing.T) {
	cases := map[CapType]string{
		EFFECTIVE:   "effective",
		PERMITTED:   "permitted",
		INHERITABLE: "inheritable",
		BOUNDING:    "bounding",
		AMBIENT:     "ambient",
		CAPS:        "caps",
	}
	for ct, want := range cases {
		if got := ct.String(); got != want {
			t.Errorf("CapType(%d).String() = %q, want %q", ct, got, want)
		}
	}
}

// fakeCaps is a minimal in-memory Capabilities used to test Bracket's
// bit arithmetic without touching the kernel.
type fakeCaps struct {
	sets map[CapType]map[Cap]bool
}

func newFakeCaps() *fakeCaps {
	return &fakeCaps{sets: map[CapType]map[Cap]bool{
		EFFECTIVE:   {},
		PERMITTED:   {},
		INHERITABLE: {},
		BOUNDING:    {},
		AMBIENT:     {},
	}}
}

func (f *fakeCaps) Get(which CapType, cp Cap) bool { return f.sets[which][cp] }

func (f *fakeCaps) Empty(which CapType) bool {
	for _, types := range []CapType{EFFECTIVE, PERMITTED, INHERITABLE, BOUNDING, AMBIENT} {
		if which&types == 0 {
			continue
		}
		if len(f.sets[types]) != 0 {
			return false
		}
	}
	return true
}

func (f *fakeCaps) apply(which CapType, caps []Cap, val bool) {
	for _, t := range []CapType{EFFECTIVE, PERMITTED, INHERITABLE, BOUNDING, AMBIENT} {
		if which&t == 0 {
			continue
		}
		for _, cp := range caps {
			if val {
				f.sets[t][cp] = true
			} else {
				delete(f.sets[t], cp)
			}
		}
	}
}

func (f *fakeCaps) Set(which CapType, caps ...Cap)   { f.apply(which, caps, true) }
func (f *fakeCaps) Unset(which CapType, caps ...Cap) { f.apply(which, caps, false) }

func (f *fakeCaps) Clear(kind CapType) {
	for _, t := range []CapType{EFFECTIVE, PERMITTED, INHERITABLE, BOUNDING, AMBIENT} {
		if kind&t != 0 {
			f.sets[t] = map[Cap]bool{}
		}
	}
}

func (f *fakeCaps) Load() error           { return nil }
func (f *fakeCaps) Apply(kind CapType) error { return nil }

func TestBracketRaiseReleaseRestoresEffectiveSet(t *testing.T) {
	caps := newFakeCaps()
	b := &Bracket{caps: caps, cp: CAP_SYS_ADMIN}

	caps.Set(EFFECTIVE, CAP_SYS_ADMIN)
	if !caps.Get(EFFECTIVE, CAP_SYS_ADMIN) {
		t.Fatal("expected CAP_SYS_ADMIN to be effective after raise")
	}

	if err := b.Release(); err != nil {
		t.Fatalf("Release() = %v", err)
	}
	if caps.Get(EFFECTIVE, CAP_SYS_ADMIN) {
		t.Fatal("expected CAP_SYS_ADMIN to be lowered after Release")
	}
}

func TestBracketReleaseNilIsNoop(t *testing.T) {
	var b *Bracket
	if err := b.Release(); err != nil {
		t.Fatalf("Release() on nil bracket = %v, want nil", err)
	}

	b = &Bracket{caps: nil, cp: CAP_SYS_ADMIN}
	if err := b.Release(); err != nil {
		t.Fatalf("Release() on already-effective bracket = %v, want nil", err)
	}
}
