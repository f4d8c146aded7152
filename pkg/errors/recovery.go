package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a recovered panic value into an internal error. The
// stack trace goes to the returned value for logging, never into Details:
// the ingress endpoints face provider infrastructure and error responses
// must not echo internals.
func RecoverPanic(r interface{}) (error, string) {
	if r == nil {
		return nil, ""
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("panic: %s", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	return ErrInternal.
		WithCause(err).
		WithDetail("panic", true).
		AsFatal(), string(debug.Stack())
}
