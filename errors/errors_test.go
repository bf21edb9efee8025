package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindOutOfBounds,
				Path:   []string{"children", "1", "text"},
				Detail: "pointer 0x10000 out of bounds",
			},
			contains: []string{"[decode]", "out_of_bounds", "children.1.text", "pointer 0x10000"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRender,
				Kind:  KindNotInitialized,
			},
			contains: []string{"[render]", "not_initialized"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInit,
				Kind:   KindInstantiation,
				Detail: "instantiate ./hello.wasm",
				Cause:  errors.New("unreachable"),
			},
			contains: []string{"[init]", "instantiation", "./hello.wasm", "caused by", "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Load("read ./hello.wasm", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindNilPointer,
		Path:  []string{"type"},
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindNilPointer}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseRender, Kind: KindNilPointer}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindInvalidData}) {
		t.Error("Is should not match different kind")
	}

	wrapped := Wrap(PhaseRender, KindTrap, err, "render")
	if !errors.Is(wrapped, &Error{Phase: PhaseDecode, Kind: KindNilPointer}) {
		t.Error("errors.Is should match through the cause chain")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindOutOfBounds).
		Path("children", "0").
		Value(uint32(42)).
		Cause(cause).
		Detail("pointer %d past %d", 42, 16).
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindOutOfBounds {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
	}
	if len(err.Path) != 2 || err.Path[1] != "0" {
		t.Errorf("Path = %v", err.Path)
	}
	if err.Value != uint32(42) {
		t.Errorf("Value = %v", err.Value)
	}
	if err.Detail != "pointer 42 past 16" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not preserved")
	}
}

func TestBuilder_DetailWithoutArgs(t *testing.T) {
	err := New(PhaseDOM, KindInvalidInput).Detail("literal detail").Build()
	if err.Detail != "literal detail" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err   *Error
		phase Phase
		kind  Kind
		want  string
	}{
		{Assertion("Could not find shadow root"), PhaseDOM, KindAssertion, "Could not find shadow root"},
		{OutOfBounds(PhaseDecode, nil, 0x20000, 65536), PhaseDecode, KindOutOfBounds, "0x20000"},
		{NilPointer(PhaseDecode, []string{"type"}, "element type"), PhaseDecode, KindNilPointer, "element type is NULL"},
		{NotInitialized(PhaseRender, "component"), PhaseRender, KindNotInitialized, "component not initialized"},
		{NotFound(PhaseInit, "export", "render_component"), PhaseInit, KindNotFound, `export "render_component" not found`},
		{Registration("hello-world", "already defined"), PhaseHost, KindRegistration, `define "hello-world": already defined`},
		{Instantiation("./hello.wasm", errors.New("x")), PhaseInit, KindInstantiation, "instantiate ./hello.wasm"},
		{Trap(PhaseRender, "render_component", errors.New("x")), PhaseRender, KindTrap, "call render_component"},
		{Unsupported(PhaseDOM, "closed shadow root"), PhaseDOM, KindUnsupported, "closed shadow root"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("%q does not contain %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestMissingImportsError(t *testing.T) {
	err := NewMissingImportsError([]string{
		"env#platform_alert",
		"env#platform_now",
		"wasi#fd_write",
	})

	if len(err.Imports) != 3 {
		t.Fatalf("Imports = %d, want 3", len(err.Imports))
	}
	if err.Imports[0].Module != "env" || err.Imports[0].Function != "platform_alert" {
		t.Errorf("Imports[0] = %+v", err.Imports[0])
	}

	msg := err.Error()
	for _, want := range []string{"missing 3 host function(s)", "env:", "- platform_alert", "- platform_now", "wasi:", "- fd_write"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not contain %q", msg, want)
		}
	}

	if !errors.Is(err, &MissingImportsError{}) {
		t.Error("errors.Is should match MissingImportsError")
	}
	if !errors.Is(err, &Error{Phase: PhaseInit, Kind: KindMissingImport}) {
		t.Error("errors.Is should match init/missing_import")
	}
}

func TestMissingImportsError_NoSeparator(t *testing.T) {
	err := NewMissingImportsError([]string{"bare"})
	if err.Imports[0].Module != "bare" || err.Imports[0].Function != "" {
		t.Errorf("Imports[0] = %+v", err.Imports[0])
	}
}

func TestMissingImportsError_Empty(t *testing.T) {
	err := &MissingImportsError{}
	if !strings.Contains(err.Error(), "no imports specified") {
		t.Errorf("Error() = %q", err.Error())
	}
}
