package sandbox

import (
	lua "github.com/yuin/gopher-lua"
)

// ReadOnly wraps backing in a proxy table: reads fall through to backing,
// any write raises an error naming the attempted key, and the metatable is
// locked (__metatable = false) so scripts can neither inspect nor replace
// the protection. Construction is O(1) and copies nothing.
func ReadOnly(L *lua.LState, backing *lua.LTable) *lua.LTable {
	proxy := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", backing)
	mt.RawSetString("__newindex", L.NewFunction(readOnlyNewIndex))
	mt.RawSetString("__metatable", lua.LFalse)
	L.SetMetatable(proxy, mt)
	return proxy
}

func readOnlyNewIndex(L *lua.LState) int {
	key := L.Get(2)
	L.RaiseError("attempt to modify read-only table (key %q)", key.String())
	return 0
}
