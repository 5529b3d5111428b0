// Package sandbox builds capability-restricted gopher-lua environments for
// semi-trusted game and mod scripts. A Sandbox exposes only an allowlisted
// set of standard facilities, replaces the host RNG with a deterministic
// hash-based source, and funnels every script failure through one
// protected-call pipeline.
package sandbox

import (
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

type stdLib struct {
	name string
	open lua.LGFunction
}

// standardLibs are the facilities opened into every sandbox. package, io, os
// and channel are deliberately absent: module loading bypasses the host's
// file service and can pull in native code, io reaches arbitrary host files,
// and os runs shell commands and renames or removes files.
var standardLibs = []stdLib{
	{lua.BaseLibName, lua.OpenBase},
	{lua.CoroutineLibName, lua.OpenCoroutine},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.DebugLibName, lua.OpenDebug},
}

// blockedBaseFunctions are base-library globals that compile or run chunks
// from arbitrary host paths. They are removed after the base library opens.
var blockedBaseFunctions = []string{"dofile", "loadfile", "load", "loadstring", "require"}

// Options configures a Sandbox.
type Options struct {
	// Diag receives warnings and recoverable error reports. Defaults to a
	// zerolog sink on stderr.
	Diag Diag

	// Fatal is invoked with a composite diagnostic for unrecoverable
	// runtime failures. The default logs the message and exits the
	// process; tests install a recording function instead.
	Fatal func(msg string)
}

// Sandbox owns one restricted Lua state. It is not safe for concurrent use;
// one goroutine owns the Sandbox for its whole lifetime.
type Sandbox struct {
	L    *lua.LState
	diag Diag

	fatal   func(msg string)
	errHook ErrorHandler
}

// New creates a Lua state containing exactly the allowlisted facilities:
// base primitives, coroutines, table, string, math, debug, and a native
// bit32 module. The math facility is patched: random and randomseed are
// removed (host RNG, non-reproducible and non-portable), deg2rad aliases
// rad, and hash_random is installed.
func New(opts Options) (*Sandbox, error) {
	diag := opts.Diag
	if diag == nil {
		diag = NewLogDiag(os.Stderr)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range standardLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open library %q: %w", lib.name, err)
		}
	}
	openBit32(L)

	for _, name := range blockedBaseFunctions {
		L.SetGlobal(name, lua.LNil)
	}

	mathTable, ok := L.GetGlobal(lua.MathLibName).(*lua.LTable)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("math library did not open as a table")
	}
	mathTable.RawSetString("random", lua.LNil)
	mathTable.RawSetString("randomseed", lua.LNil)
	mathTable.RawSetString("deg2rad", mathTable.RawGetString("rad"))
	mathTable.RawSetString("hash_random", L.NewFunction(luaHashRandom))

	s := &Sandbox{L: L, diag: diag}
	s.fatal = opts.Fatal
	if s.fatal == nil {
		s.fatal = func(msg string) {
			diag.Errorf("%s", msg)
			os.Exit(1)
		}
	}
	// Last-resort handler for errors raised outside any protected frame.
	// It reports through the fatal path, then keeps unwinding so a test
	// fatal function that returns still sees normal panic propagation.
	L.Panic = func(L *lua.LState) {
		msg := L.Get(-1).String()
		s.fatal(fmt.Sprintf("%s%s\n%s", L.Where(1), msg, formatFrames(s.stackFrames(0))))
		panic(&lua.ApiError{Type: lua.ApiErrorPanic, Object: lua.LString(msg)})
	}
	return s, nil
}

// Close releases the Lua state.
func (s *Sandbox) Close() {
	s.L.Close()
}

// Diag returns the sandbox's diagnostic sink.
func (s *Sandbox) Diag() Diag {
	return s.diag
}

// Frame is one level of a Lua call-stack listing.
type Frame struct {
	Level  int
	Source string
	Line   int
	Name   string
	What   string
}

// stackFrames lists the live call stack starting at the given level,
// mirroring lua_getinfo("nSl").
func (s *Sandbox) stackFrames(level int) []Frame {
	var frames []Frame
	for {
		dbg, ok := s.L.GetStack(level)
		if !ok {
			break
		}
		if _, err := s.L.GetInfo("nSl", dbg, lua.LNil); err != nil {
			break
		}
		name := dbg.Name
		if name == "" {
			name = "<unknown>"
		}
		frames = append(frames, Frame{
			Level:  level,
			Source: dbg.Source,
			Line:   dbg.CurrentLine,
			Name:   name,
			What:   dbg.What,
		})
		level++
	}
	return frames
}

func formatFrames(frames []Frame) string {
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "  [%d] %s:%d -- %s [%s]\n", f.Level, f.Source, f.Line, f.Name, f.What)
	}
	return b.String()
}

// Warnf reports a warning to the diagnostic sink together with a listing of
// the current Lua call stack.
func (s *Sandbox) Warnf(format string, args ...any) {
	s.diag.Warnf(format, args...)
	for _, f := range s.stackFrames(0) {
		s.diag.Warnf("  [%d] %s:%d -- %s [%s]", f.Level, f.Source, f.Line, f.Name, f.What)
	}
}
