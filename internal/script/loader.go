package script

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/modkit/luahost/internal/sandbox"
)

// scriptSuffix is the recognized script-file extension: case-sensitive,
// exact suffix match, and the path must be longer than the suffix itself.
const scriptSuffix = ".lua"

func isScriptPath(p string) bool {
	return len(p) > len(scriptSuffix) && strings.HasSuffix(p, scriptSuffix)
}

// Loader executes script files from a file service inside one sandbox.
//
// While a script body runs, the CurrentDirectory global holds the directory
// the script was loaded from so it can resolve relative sibling references.
// The slot is cleared on every exit path, success or failure, and LoadPath
// saves and restores any outer value across nested loads.
type Loader struct {
	sb   *sandbox.Sandbox
	fs   FileService
	diag sandbox.Diag

	loaded int
	failed int
}

// NewLoader creates a loader bound to the given sandbox and file service,
// and registers the script-visible load_lua(path) entry point.
func NewLoader(sb *sandbox.Sandbox, fs FileService, diag sandbox.Diag) *Loader {
	l := &Loader{sb: sb, fs: fs, diag: diag}
	sb.L.SetGlobal("load_lua", sb.L.NewFunction(l.luaLoadPath))
	return l
}

// Stats reports how many scripts were executed and how many of those failed.
func (l *Loader) Stats() (loaded, failed int) {
	return l.loaded, l.failed
}

func (l *Loader) setDir(dir string) {
	l.sb.L.SetGlobal("CurrentDirectory", lua.LString(dir))
}

func (l *Loader) clearDir() {
	l.sb.L.SetGlobal("CurrentDirectory", lua.LNil)
}

// LoadScript reads and executes a single script file. The CurrentDirectory
// global holds the file's containing directory ("." when it has none) for
// the duration of the run and is cleared afterwards even on failure.
func (l *Loader) LoadScript(p string) error {
	unit, err := l.fs.Read(p)
	if err != nil {
		l.diag.Errorf("could not read script %q: %v", p, err)
		return err
	}

	l.setDir(path.Dir(unit.Path))
	defer l.clearDir()
	return l.execute(unit)
}

// LoadTree recursively executes every recognized script file under dir.
// Non-script files are skipped silently. One failing script is reported and
// does not stop its siblings from loading; the first errors encountered are
// joined into the returned error.
func (l *Loader) LoadTree(dir string) error {
	entries, err := l.fs.Enumerate(dir, true)
	if err != nil {
		l.diag.Errorf("could not enumerate %q: %v", dir, err)
		return err
	}

	walkDir := dir
	if walkDir == "" {
		walkDir = "."
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir {
			if err := l.LoadTree(e.Path); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if !isScriptPath(e.Path) {
			continue
		}
		if err := l.runTreeFile(walkDir, e.Path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Loader) runTreeFile(walkDir, p string) error {
	unit, err := l.fs.Read(p)
	if err != nil {
		l.diag.Errorf("could not read script %q: %v", p, err)
		return err
	}
	l.setDir(walkDir)
	defer l.clearDir()
	return l.execute(unit)
}

// LoadPath is the compatibility entry point: a directory loads as a tree, a
// script file loads alone, anything else is rejected. Any outer
// CurrentDirectory value is preserved across the call, so scripts may nest
// loads safely.
func (l *Loader) LoadPath(p string) error {
	outer := l.sb.L.GetGlobal("CurrentDirectory")
	defer l.sb.L.SetGlobal("CurrentDirectory", outer)

	info := l.fs.Lookup(p)
	switch {
	case info.IsDir:
		return l.LoadTree(p)
	case info.IsFile && isScriptPath(p):
		return l.LoadScript(p)
	case info.IsFile:
		err := fmt.Errorf("%q is not a script file: %w", p, ErrInvalidPathKind)
		l.diag.Errorf("%v", err)
		return err
	case !info.Exists:
		err := fmt.Errorf("%q: %w", p, ErrSourceNotFound)
		l.diag.Errorf("%v", err)
		return err
	default:
		err := fmt.Errorf("%q is not a loadable path: %w", p, ErrInvalidPathKind)
		l.diag.Errorf("%v", err)
		return err
	}
}

// execute compiles the unit and runs it through the protected-call
// pipeline, reporting any classified fault to the diagnostic sink.
func (l *Loader) execute(unit *SourceUnit) error {
	l.loaded++
	fn, err := l.sb.L.Load(bytes.NewReader(unit.Data), unit.Path)
	if err != nil {
		l.failed++
		se := &sandbox.ScriptError{Kind: sandbox.RuntimeFault, Msg: err.Error()}
		l.diag.Errorf("%s in %q: %s", se.Kind, unit.Path, se.Msg)
		return se
	}
	if err := l.sb.ProtectedCall(fn); err != nil {
		l.failed++
		var se *sandbox.ScriptError
		if errors.As(err, &se) {
			l.diag.Errorf("%s in %q: %s", se.Kind, unit.Path, se.Msg)
			if se.Traceback != "" {
				l.diag.Errorf("%s", se.Traceback)
			}
		} else {
			l.diag.Errorf("error in %q: %v", unit.Path, err)
		}
		return err
	}
	return nil
}

// luaLoadPath exposes LoadPath to scripts as load_lua(path). Failures raise
// Lua errors, so a caller may wrap the call in pcall.
func (l *Loader) luaLoadPath(L *lua.LState) int {
	p := L.CheckString(1)
	info := l.fs.Lookup(p)
	switch {
	case info.IsDir, info.IsFile && isScriptPath(p):
		if err := l.LoadPath(p); err != nil {
			L.RaiseError("load_lua(%q): %v", p, err)
		}
	case info.IsFile:
		L.RaiseError("load_lua(%q) called on a file without a %s extension", p, scriptSuffix)
	case !info.Exists:
		L.RaiseError("load_lua(%q) called on a path that doesn't exist", p)
	default:
		L.RaiseError("load_lua(%q) called on a path that doesn't refer to a valid file", p)
	}
	return 0
}
