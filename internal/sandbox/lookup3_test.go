package sandbox

import "testing"

func TestHashLittle2_EmptyKey(t *testing.T) {
	pc, pb := hashLittle2(nil, 0, 0)
	if pc != 0xdeadbeef || pb != 0xdeadbeef {
		t.Errorf("empty key: expected (0xdeadbeef, 0xdeadbeef), got (%#x, %#x)", pc, pb)
	}
}

func TestHashLittle2_KnownVector(t *testing.T) {
	// published lookup3 self-test value
	pc, _ := hashLittle2([]byte("Four score and seven years ago"), 0, 0)
	if pc != 0x17770551 {
		t.Errorf("expected 0x17770551, got %#x", pc)
	}
}

func TestHashLittle2_Deterministic(t *testing.T) {
	a1, b1 := hashLittle2([]byte("reproducible"), 0, 0)
	a2, b2 := hashLittle2([]byte("reproducible"), 0, 0)
	if a1 != a2 || b1 != b2 {
		t.Errorf("same input hashed differently: (%#x,%#x) vs (%#x,%#x)", a1, b1, a2, b2)
	}
}

func TestHashLittle2_InputSensitivity(t *testing.T) {
	// all lengths across the 12-byte block boundary must produce distinct
	// pairs for distinct inputs
	seen := make(map[uint64]string)
	key := make([]byte, 0, 40)
	for i := 0; i < 40; i++ {
		key = append(key, byte('a'+i%26))
		a, b := hashLittle2(key, 0, 0)
		packed := uint64(a)<<32 | uint64(b)
		if prev, dup := seen[packed]; dup {
			t.Fatalf("collision between %q and %q", prev, string(key))
		}
		seen[packed] = string(key)
	}
}

func TestHashLittle2_SeedsChangeOutput(t *testing.T) {
	a1, _ := hashLittle2([]byte("seeded"), 0, 0)
	a2, _ := hashLittle2([]byte("seeded"), 1, 0)
	if a1 == a2 {
		t.Errorf("initial value ignored: both %#x", a1)
	}
}
