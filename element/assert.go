package element

import "github.com/wippyai/hello-element/errors"

// AssertAndGet returns v when ok holds and panics with an assertion error
// carrying msg otherwise.
func AssertAndGet[T any](v T, ok bool, msg string) T {
	if !ok {
		panic(errors.Assertion(msg))
	}
	return v
}

// recoverAssertion converts an assertion panic into *err. Other panics are
// re-raised.
func recoverAssertion(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*errors.Error); ok && e.Kind == errors.KindAssertion {
		*err = e
		return
	}
	panic(r)
}
