package sandbox

import (
	lua "github.com/yuin/gopher-lua"
)

// openBit32 registers a bit32 facility with Lua 5.2 semantics: arguments are
// normalized to unsigned 32-bit integers, shift counts of 32 or more produce
// zero (sign fill for arshift). gopher-lua ships no bit library, so the
// facility is implemented natively.
func openBit32(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, bit32Funcs)
	L.SetGlobal("bit32", mod)
}

var bit32Funcs = map[string]lua.LGFunction{
	"band":    bit32Band,
	"bor":     bit32Bor,
	"bxor":    bit32Bxor,
	"bnot":    bit32Bnot,
	"btest":   bit32Btest,
	"lshift":  bit32Lshift,
	"rshift":  bit32Rshift,
	"arshift": bit32Arshift,
}

func checkUint32(L *lua.LState, idx int) uint32 {
	return uint32(int64(L.CheckNumber(idx)))
}

func bit32Band(L *lua.LState) int {
	r := uint32(0xffffffff)
	for i := 1; i <= L.GetTop(); i++ {
		r &= checkUint32(L, i)
	}
	L.Push(lua.LNumber(r))
	return 1
}

func bit32Bor(L *lua.LState) int {
	var r uint32
	for i := 1; i <= L.GetTop(); i++ {
		r |= checkUint32(L, i)
	}
	L.Push(lua.LNumber(r))
	return 1
}

func bit32Bxor(L *lua.LState) int {
	var r uint32
	for i := 1; i <= L.GetTop(); i++ {
		r ^= checkUint32(L, i)
	}
	L.Push(lua.LNumber(r))
	return 1
}

func bit32Bnot(L *lua.LState) int {
	L.Push(lua.LNumber(^checkUint32(L, 1)))
	return 1
}

func bit32Btest(L *lua.LState) int {
	r := uint32(0xffffffff)
	for i := 1; i <= L.GetTop(); i++ {
		r &= checkUint32(L, i)
	}
	L.Push(lua.LBool(r != 0))
	return 1
}

func bit32Lshift(L *lua.LState) int {
	L.Push(lua.LNumber(shiftLeft(checkUint32(L, 1), int(L.CheckInt(2)))))
	return 1
}

func bit32Rshift(L *lua.LState) int {
	L.Push(lua.LNumber(shiftLeft(checkUint32(L, 1), -int(L.CheckInt(2)))))
	return 1
}

func bit32Arshift(L *lua.LState) int {
	x := checkUint32(L, 1)
	disp := int(L.CheckInt(2))
	if disp < 0 {
		L.Push(lua.LNumber(shiftLeft(x, -disp)))
		return 1
	}
	if disp >= 32 {
		if x&0x80000000 != 0 {
			L.Push(lua.LNumber(uint32(0xffffffff)))
		} else {
			L.Push(lua.LNumber(0))
		}
		return 1
	}
	L.Push(lua.LNumber(uint32(int32(x) >> uint(disp))))
	return 1
}

// shiftLeft shifts x by disp bits; negative disp shifts right. Shifts of 32
// bits or more yield zero, matching bit32.
func shiftLeft(x uint32, disp int) uint32 {
	switch {
	case disp >= 32 || disp <= -32:
		return 0
	case disp >= 0:
		return x << uint(disp)
	default:
		return x >> uint(-disp)
	}
}
