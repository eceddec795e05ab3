// Package catchpanic turns panics in background work into errors.
package catchpanic

import (
	"fmt"

	"fknsrs.biz/p/vidshelf/internal/stackutil"
)

// PanicError is what a recovered panic becomes. Stack is where the panic
// happened, outermost frames last.
type PanicError struct {
	Value interface{}
	Stack []string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("catchpanic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

func Catch(fn func()) (err error) {
	defer func() {
		if ex := recover(); ex != nil {
			err = &PanicError{
				Value: ex,
				Stack: stackutil.FormatStack(stackutil.WithoutRuntime(stackutil.GetStack(32, 1))),
			}
		}
	}()

	fn()

	return
}

func CatchErr0(fn func() error) error {
	var err error

	if err1 := Catch(func() { err = fn() }); err1 != nil {
		return err1
	}

	return err
}
