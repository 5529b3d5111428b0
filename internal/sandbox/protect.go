package sandbox

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// FaultKind classifies a failure intercepted by the protected-call pipeline.
type FaultKind int

const (
	// RuntimeFault is an ordinary script-level error (error(), bad index,
	// syntax error in a loaded chunk, and so on).
	RuntimeFault FaultKind = iota
	// OutOfMemory is an allocation failure inside the runtime.
	OutOfMemory
	// HandlerFault means the error handler itself failed while processing
	// an earlier error.
	HandlerFault
	// FatalRuntimeFailure is a runtime-internal failure that is not safe
	// to recover from. By the time it is returned the fatal function has
	// already been invoked; the top-level driver terminates on it.
	FatalRuntimeFailure
)

func (k FaultKind) String() string {
	switch k {
	case RuntimeFault:
		return "runtime fault"
	case OutOfMemory:
		return "out of memory"
	case HandlerFault:
		return "error handler fault"
	case FatalRuntimeFailure:
		return "fatal runtime failure"
	}
	return "unknown fault"
}

// ScriptError is a classified failure from the protected-call pipeline.
type ScriptError struct {
	Kind      FaultKind
	Msg       string
	Traceback string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// ErrorHandler receives the raw error message and the captured script stack
// trace of a failed protected call, and returns the diagnostic message to
// report. It may consult host state (log sinks, symbol maps); if it panics,
// the failure is escalated as a HandlerFault.
type ErrorHandler func(raw, traceback string) string

// SetErrorHandler replaces the single handler every intercepted failure is
// routed through. The default reports the raw message unchanged.
func (s *Sandbox) SetErrorHandler(h ErrorHandler) {
	s.errHook = h
}

// ProtectedCall executes fn with the given arguments, intercepting any
// runtime failure instead of letting it unwind into the host. Failures are
// routed through the registered error handler and returned as a classified
// *ScriptError; the Lua call stack is restored on every path. A failure
// classified FatalRuntimeFailure has already been routed through the fatal
// function before ProtectedCall returns.
func (s *Sandbox) ProtectedCall(fn *lua.LFunction, args ...lua.LValue) error {
	s.L.Push(fn)
	for _, a := range args {
		s.L.Push(a)
	}
	err := s.L.PCall(len(args), 0, nil)
	if err == nil {
		return nil
	}
	return s.escalate(err)
}

// escalate classifies an error returned by the runtime and routes it
// through the error handler, or through the fatal function for
// runtime-internal panics.
func (s *Sandbox) escalate(err error) *ScriptError {
	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return s.runHandler(RuntimeFault, err.Error(), "")
	}

	msg := apiErr.Object.String()
	tb := apiErr.StackTrace

	if apiErr.Type == lua.ApiErrorPanic {
		se := &ScriptError{Kind: FatalRuntimeFailure, Msg: msg, Traceback: tb}
		s.fatal(fmt.Sprintf("%s%s\n%s", s.L.Where(1), msg, tb))
		return se
	}

	kind := RuntimeFault
	if isOutOfMemory(msg) {
		kind = OutOfMemory
	}
	return s.runHandler(kind, msg, tb)
}

// runHandler feeds the raw error through the registered handler. A handler
// that panics escalates to HandlerFault carrying the handler's own failure.
func (s *Sandbox) runHandler(kind FaultKind, msg, tb string) (se *ScriptError) {
	se = &ScriptError{Kind: kind, Msg: msg, Traceback: tb}
	if s.errHook == nil {
		return se
	}
	defer func() {
		if rcv := recover(); rcv != nil {
			se = &ScriptError{
				Kind:      HandlerFault,
				Msg:       fmt.Sprintf("error handler failed: %v (while handling: %s)", rcv, msg),
				Traceback: tb,
			}
		}
	}()
	se.Msg = s.errHook(msg, tb)
	return se
}

func isOutOfMemory(msg string) bool {
	return strings.Contains(msg, "out of memory") ||
		strings.Contains(msg, "cannot allocate memory")
}

// Fatalf routes an unrecoverable failure through the host's fatal path,
// attaching the triggering source location and a full stack trace. The
// default fatal function does not return.
func (s *Sandbox) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.fatal(fmt.Sprintf("%s%s\n%s", s.L.Where(1), msg, formatFrames(s.stackFrames(0))))
}
