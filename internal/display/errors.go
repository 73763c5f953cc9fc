package display

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

// ErrorMessage is the one-line message shown for any failure.
func ErrorMessage(err error) string {
	return "An error occurred: " + err.Error()
}

// PanicError wraps a value recovered from a panic with the panicking stack.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Recovered converts a recover() value into an error, capturing the stack.
func Recovered(v any) error {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Trace returns the detailed report for err. Errors that carry a stack
// print it; others get the stack of the calling goroutine.
func Trace(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s\n\n%s", err, pe.Stack)
	}
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", err)
	}
	return fmt.Sprintf("%+v\n\n%s", err, debug.Stack())
}
