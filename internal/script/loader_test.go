package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/modkit/luahost/internal/sandbox"
)

type recordDiag struct {
	warns []string
	errs  []string
}

func (d *recordDiag) Warnf(format string, args ...any) {
	d.warns = append(d.warns, fmt.Sprintf(format, args...))
}

func (d *recordDiag) Errorf(format string, args ...any) {
	d.errs = append(d.errs, fmt.Sprintf(format, args...))
}

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestLoader(t *testing.T, root string) (*Loader, *sandbox.Sandbox, *recordDiag) {
	t.Helper()
	diag := &recordDiag{}
	sb, err := sandbox.New(sandbox.Options{Diag: diag, Fatal: func(string) {}})
	if err != nil {
		t.Fatalf("sandbox.New: %v", err)
	}
	t.Cleanup(sb.Close)
	return NewLoader(sb, NewOSFileService(root), diag), sb, diag
}

func TestLoader_LoadTreeExecutesScriptsOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.lua", `executed = (executed or "") .. "a;"`)
	writeFile(t, root, "b.lua", `executed = (executed or "") .. "b;"`)
	writeFile(t, root, "sub/c.lua", `executed = (executed or "") .. "c;"; c_dir = CurrentDirectory`)
	writeFile(t, root, "notes.txt", `this is not a script`)
	loader, sb, _ := newTestLoader(t, root)

	if err := loader.LoadTree(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := sb.L.GetGlobal("executed"); got != lua.LString("a;b;c;") {
		t.Errorf("expected a;b;c; got %s", got.String())
	}
	if got := sb.L.GetGlobal("c_dir"); got != lua.LString("sub") {
		t.Errorf("script in sub/ should see CurrentDirectory == sub, got %s", got.String())
	}
	if got := sb.L.GetGlobal("CurrentDirectory"); got != lua.LNil {
		t.Errorf("CurrentDirectory should be cleared after the tree load, got %s", got.String())
	}
	if loaded, failed := loader.Stats(); loaded != 3 || failed != 0 {
		t.Errorf("expected 3 loaded / 0 failed, got %d / %d", loaded, failed)
	}
}

func TestLoader_LoadScriptDirectoryContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.lua", `top_dir = CurrentDirectory`)
	writeFile(t, root, "mods/deep.lua", `deep_dir = CurrentDirectory`)
	loader, sb, _ := newTestLoader(t, root)

	if err := loader.LoadScript("top.lua"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sb.L.GetGlobal("top_dir"); got != lua.LString(".") {
		t.Errorf(`rootless script should see ".", got %s`, got.String())
	}

	if err := loader.LoadScript("mods/deep.lua"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sb.L.GetGlobal("deep_dir"); got != lua.LString("mods") {
		t.Errorf("expected mods, got %s", got.String())
	}
	if got := sb.L.GetGlobal("CurrentDirectory"); got != lua.LNil {
		t.Errorf("CurrentDirectory should be cleared, got %s", got.String())
	}
}

func TestLoader_LoadScriptMissing(t *testing.T) {
	loader, _, diag := newTestLoader(t, t.TempDir())

	err := loader.LoadScript("nope.lua")
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	if len(diag.errs) == 0 {
		t.Error("miss should be reported to the diagnostic sink")
	}
}

func TestLoader_LoadScriptRuntimeFault(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "mods/bad.lua", `error("kaboom")`)
	loader, sb, diag := newTestLoader(t, root)

	err := loader.LoadScript("mods/bad.lua")
	var se *sandbox.ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("expected *sandbox.ScriptError, got %T", err)
	}
	if se.Kind != sandbox.RuntimeFault {
		t.Errorf("expected RuntimeFault, got %s", se.Kind)
	}
	if got := sb.L.GetGlobal("CurrentDirectory"); got != lua.LNil {
		t.Errorf("failed load must not leak its directory context, got %s", got.String())
	}
	found := false
	for _, line := range diag.errs {
		if strings.Contains(line, "runtime fault") && strings.Contains(line, "mods/bad.lua") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostic should classify the fault and name the path, got %v", diag.errs)
	}
}

func TestLoader_LoadTreeFaultDoesNotStopSiblings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "aa.lua", `error("broken")`)
	writeFile(t, root, "bb.lua", `survivor = true`)
	loader, sb, _ := newTestLoader(t, root)

	err := loader.LoadTree("")
	if err == nil {
		t.Fatal("expected the fault to surface in the result")
	}
	if got := sb.L.GetGlobal("survivor"); got != lua.LTrue {
		t.Error("sibling script should still have run")
	}
	if loaded, failed := loader.Stats(); loaded != 2 || failed != 1 {
		t.Errorf("expected 2 loaded / 1 failed, got %d / %d", loaded, failed)
	}
}

func TestLoader_LoadPathKinds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "mods/init.lua", `ran = true`)
	writeFile(t, root, "notes.txt", `not a script`)
	loader, sb, _ := newTestLoader(t, root)

	if err := loader.LoadPath("mods"); err != nil {
		t.Fatalf("directory load: %v", err)
	}
	if sb.L.GetGlobal("ran") != lua.LTrue {
		t.Error("directory load did not execute scripts")
	}

	if err := loader.LoadPath("mods/init.lua"); err != nil {
		t.Fatalf("file load: %v", err)
	}

	if err := loader.LoadPath("notes.txt"); !errors.Is(err, ErrInvalidPathKind) {
		t.Errorf("expected ErrInvalidPathKind for wrong suffix, got %v", err)
	}
	if err := loader.LoadPath("ghost.lua"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestLoader_LoadPathSkipsExecutionOnBadSuffix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", `error("must never run")`)
	loader, _, _ := newTestLoader(t, root)

	if err := loader.LoadPath("notes.txt"); !errors.Is(err, ErrInvalidPathKind) {
		t.Fatalf("expected ErrInvalidPathKind, got %v", err)
	}
	if loaded, _ := loader.Stats(); loaded != 0 {
		t.Errorf("no execution should have been attempted, loaded = %d", loaded)
	}
}

func TestLoader_LoadPathRestoresOuterContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.lua", `x_ran = true`)
	loader, sb, _ := newTestLoader(t, root)

	sb.L.SetGlobal("CurrentDirectory", lua.LString("outer"))
	if err := loader.LoadPath("x.lua"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sb.L.GetGlobal("CurrentDirectory"); got != lua.LString("outer") {
		t.Errorf("outer context not restored, got %s", got.String())
	}
}

func TestLoader_LoadLuaGlobalNestedLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.lua", `
		load_lua("sub/child.lua")
		after_dir = CurrentDirectory
	`)
	writeFile(t, root, "sub/child.lua", `child_dir = CurrentDirectory`)
	loader, sb, _ := newTestLoader(t, root)

	if err := loader.LoadScript("main.lua"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sb.L.GetGlobal("child_dir"); got != lua.LString("sub") {
		t.Errorf("nested script should see its own directory, got %s", got.String())
	}
	if got := sb.L.GetGlobal("after_dir"); got != lua.LString(".") {
		t.Errorf("outer script's context should survive the nested load, got %s", got.String())
	}
}

func TestLoader_LoadLuaFailuresCatchable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.lua", `
		ok_missing = pcall(load_lua, "ghost.lua")
		ok_suffix = pcall(load_lua, "notes.txt")
		finished = true
	`)
	writeFile(t, root, "notes.txt", `nope`)
	loader, sb, _ := newTestLoader(t, root)

	if err := loader.LoadScript("main.lua"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.L.GetGlobal("ok_missing") != lua.LFalse {
		t.Error("load_lua on a missing path should raise a catchable error")
	}
	if sb.L.GetGlobal("ok_suffix") != lua.LFalse {
		t.Error("load_lua on a non-script file should raise a catchable error")
	}
	if sb.L.GetGlobal("finished") != lua.LTrue {
		t.Error("script should continue after caught load failures")
	}
}

func TestIsScriptPath(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"a.lua", true},
		{"mods/init.lua", true},
		{".lua", false},
		{"a.LUA", false},
		{"a.Lua", false},
		{"alua", false},
		{"a.lua.txt", false},
	}
	for _, tc := range cases {
		if got := isScriptPath(tc.path); got != tc.want {
			t.Errorf("isScriptPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
