package overlay

import "testing"

func TestClassify(t *testing.T) {
	cases := map[string]kind{
		".wh..wh..opq":  kindOpaque,
		".wh..wh.plink": kindReservedUnsupported,
		".wh.foo":       kindWhiteout,
		".wh.":          kindWhiteout,
		"foo":           kindNone,
		"":               kindNone,
	}
	for base, want := range cases {
		if got := classify(base); got != want {
			t.Errorf("classify(%q) = %v, want %v", base, got, want)
		}
	}
}

func TestDeviceOfSameFilesystem(t *testing.T) {
	root := t.TempDir()
	dev, err := deviceOf(root)
	if err != nil {
		t.Fatalf("deviceOf() = %v", err)
	}
	dev2, err := deviceOf(root)
	if err != nil {
		t.Fatalf("deviceOf() = %v", err)
	}
	if dev != dev2 {
		t.Fatalf("deviceOf() not stable across calls: %d != %d", dev, dev2)
	}
}
