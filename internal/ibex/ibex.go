// package ibex defines the typed error kinds surfaced across the planner.
package ibex

import "fmt"

// Kind classifies a planner-level failure so the CLI layer can react without
// string-matching error text.
type Kind int

const (
	// Resolution covers unknown extensions and paths outside both roots.
	Resolution Kind = iota
	// Plan covers undoable targets and stuck waves.
	Plan
	// Slot covers an attempt to reassign an explicit job output.
	Slot
	// Config covers missing files and forbidden config syntax.
	Config
	// Tool covers a failed compiler, linker, or build-runner invocation.
	Tool
	// NoProgress covers a wave computation that got stuck: specs remain
	// unready with nothing left ready to unblock them.
	NoProgress
)

func (k Kind) String() string {
	switch k {
	case Resolution:
		return "resolution error"
	case Plan:
		return "plan error"
	case Slot:
		return "slot error"
	case Config:
		return "config error"
	case Tool:
		return "tool error"
	case NoProgress:
		return "no progress"
	default:
		return "error"
	}
}

// Error is the single typed error the planner ever returns. Internal helpers
// return it (or wrap it) explicitly; nothing in this module uses panics for
// control flow.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New builds an Error with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that carries cause as its unwrap target.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
