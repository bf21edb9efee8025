// Package errors provides structured error types for the hello-element module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending value, a field path into guest memory
// and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
//		Path("children", "2", "text").
//		Value(ptr).
//		Detail("pointer 0x%x past end of memory", ptr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotInitialized(errors.PhaseRender, "component")
//	err := errors.Assertion("Could not find shadow root")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
