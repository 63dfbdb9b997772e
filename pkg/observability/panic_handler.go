package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic logs a recovered panic with its stack trace and swallows it.
// Meant for deferred use at the top of long-lived goroutines, where an
// unhandled panic would otherwise take the whole decision service down:
//
//	go func() {
//	    defer observability.RecoverPanic(logger, "health server")
//	    // ...
//	}()
func RecoverPanic(logger *Logger, scope string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("scope", scope).
			Error("Recovered from panic")
	}
}

// MustRecover converts the result of recover() into an error. Pass the
// recover() value directly; a nil value returns nil:
//
//	defer func() {
//	    if err := observability.MustRecover(recover()); err != nil {
//	        // handle as an ordinary error
//	    }
//	}()
//
// The error carries no stack trace; callers that need one capture
// debug.Stack themselves.
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
