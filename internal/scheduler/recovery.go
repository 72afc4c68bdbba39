package scheduler

import (
	"fmt"
	"runtime/debug"
)

// safely runs fn and turns a panic into an error carrying the stack.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}
