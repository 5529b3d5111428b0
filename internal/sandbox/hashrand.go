package sandbox

import (
	"encoding/binary"
	"errors"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// Hash pair used when hash_random is called with no seed. Arbitrary but
// fixed: "no seed" still means a deterministic, non-host-derived value.
const (
	noSeedHashA = 0xBF42B131
	noSeedHashB = 0x2A40F7F2
)

// ErrNaNSeed is returned for a numeric seed that is not a number.
var ErrNaNSeed = errors.New("hash_random seed must not be NaN")

type seedKind int

const (
	seedNone seedKind = iota
	seedText
	seedNumeric
)

// Seed is the argument accepted by the deterministic randomness source:
// absent, a string of bytes, or a float64.
type Seed struct {
	kind seedKind
	text string
	num  float64
}

// NoSeed returns the absent-seed value.
func NoSeed() Seed { return Seed{kind: seedNone} }

// TextSeed returns a seed hashing the raw bytes of s.
func TextSeed(s string) Seed { return Seed{kind: seedText, text: s} }

// NumericSeed returns a seed hashing the IEEE-754 encoding of n.
func NumericSeed(n float64) Seed { return Seed{kind: seedNumeric, num: n} }

// HashFraction maps a seed to a fraction in [0,1) with full double
// precision. Pure and stateless: equal seeds produce equal results on every
// run and every platform.
func HashFraction(seed Seed) (float64, error) {
	var a, b uint32
	switch seed.kind {
	case seedNone:
		a, b = noSeedHashA, noSeedHashB
	case seedText:
		a, b = hashLittle2([]byte(seed.text), 0, 0)
	case seedNumeric:
		if math.IsNaN(seed.num) {
			return 0, ErrNaNSeed
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(seed.num))
		a, b = hashLittle2(buf[:], 0, 0)
	}
	// 53-bit mantissa built from the upper bits of each half.
	x := float64(a>>5)*67108864.0 + float64(b>>6)
	return x / 9007199254740992.0, nil
}

// HashInteger maps the seed's fraction into the inclusive range [lo, hi].
func HashInteger(seed Seed, lo, hi int64) (int64, error) {
	x, err := HashFraction(seed)
	if err != nil {
		return 0, err
	}
	return lo + int64(x*float64(hi-lo+1)), nil
}

// luaHashRandom implements math.hash_random:
//
//	hash_random()            -> fraction in [0,1) from the fixed no-seed pair
//	hash_random(seed)        -> fraction in [0,1)
//	hash_random(seed, n)     -> integer in [1, n]
//	hash_random(seed, m, n)  -> integer in [m, n]
//
// Bad argument kinds and arities raise ordinary Lua errors, so misuse is
// caught by the protected-call pipeline like any other script failure.
func luaHashRandom(L *lua.LState) int {
	nargs := L.GetTop()
	if nargs > 3 {
		L.RaiseError("unknown argument to hash_random")
	}

	var seed Seed
	switch v := L.Get(1).(type) {
	case *lua.LNilType:
		seed = NoSeed()
	case lua.LString:
		seed = TextSeed(string(v))
	case lua.LNumber:
		if math.IsNaN(float64(v)) {
			L.ArgError(1, "seed must not be NaN")
		}
		seed = NumericSeed(float64(v))
	default:
		L.ArgError(1, "expected a string or a number for argument 1")
	}

	if nargs <= 1 {
		x, err := HashFraction(seed)
		if err != nil {
			L.RaiseError("hash_random: %v", err)
		}
		L.Push(lua.LNumber(x))
		return 1
	}

	var lo, hi int64
	if nargs == 2 {
		lo, hi = 1, L.CheckInt64(2)
	} else {
		lo, hi = L.CheckInt64(2), L.CheckInt64(3)
	}
	n, err := HashInteger(seed, lo, hi)
	if err != nil {
		L.RaiseError("hash_random: %v", err)
	}
	L.Push(lua.LNumber(n))
	return 1
}
