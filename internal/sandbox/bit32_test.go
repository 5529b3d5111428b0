package sandbox

import "testing"

func TestBit32_Operations(t *testing.T) {
	sb, _ := newTestSandbox(t)

	err := sb.L.DoString(`
		assert(bit32.band(0xF0, 0x3C) == 0x30, "band")
		assert(bit32.band() == 0xFFFFFFFF, "band identity")
		assert(bit32.bor(1, 2, 4) == 7, "bor")
		assert(bit32.bxor(0xFF, 0x0F) == 0xF0, "bxor")
		assert(bit32.bnot(0) == 0xFFFFFFFF, "bnot")
		assert(bit32.btest(6, 4), "btest hit")
		assert(not bit32.btest(2, 4), "btest miss")
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBit32_Shifts(t *testing.T) {
	sb, _ := newTestSandbox(t)

	err := sb.L.DoString(`
		assert(bit32.lshift(1, 4) == 16, "lshift")
		assert(bit32.lshift(1, 32) == 0, "lshift overflow")
		assert(bit32.lshift(16, -2) == 4, "lshift negative disp")
		assert(bit32.rshift(0x80000000, 31) == 1, "rshift")
		assert(bit32.rshift(1, 40) == 0, "rshift overflow")
		assert(bit32.arshift(0x80000000, 31) == 0xFFFFFFFF, "arshift sign fill")
		assert(bit32.arshift(0x80000000, 40) == 0xFFFFFFFF, "arshift saturates negative")
		assert(bit32.arshift(0x40000000, 40) == 0, "arshift saturates positive")
		assert(bit32.arshift(16, 2) == 4, "arshift positive")
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBit32_NegativeInputNormalized(t *testing.T) {
	sb, _ := newTestSandbox(t)

	if err := sb.L.DoString(`assert(bit32.band(-1, 0xFF) == 0xFF, "negative wraps mod 2^32")`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
