package guest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/util"

	helloelement "github.com/wippyai/hello-element"
	werrors "github.com/wippyai/hello-element/errors"
	"github.com/wippyai/hello-element/internal/wasmbuild"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	eng, err := NewEngine(ctx, &Config{MemoryLimitPages: 16})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })
	return eng
}

// spanGuest renders <span>hi</span>.
func spanGuest(opts wasmbuild.GuestOptions) []byte {
	h := wasmbuild.NewHeap(1024)
	opts.Root = h.Element(wasmbuild.El{Tag: "span", Text: "hi"})
	return wasmbuild.Guest(h, opts)
}

// counterGuest renders a counter and switches to the incremented tree when
// the button is clicked.
func counterGuest() []byte {
	h := wasmbuild.NewHeap(1024)
	before := h.Element(wasmbuild.El{
		Tag: "div",
		Children: []wasmbuild.El{
			{Tag: "h2", Text: "Count: 0"},
			{Tag: "button", Text: "Increment", OnClick: 1},
		},
	})
	after := h.Element(wasmbuild.El{
		Tag:   "div",
		Index: 71,
		Children: []wasmbuild.El{
			{Tag: "h2", Text: "Count: 1", Index: 69},
			{Tag: "button", Text: "Increment", OnClick: 1, Index: 70},
		},
	})
	return wasmbuild.Guest(h, wasmbuild.GuestOptions{Root: before, ClickRoot: after})
}

func fsWith(t *testing.T, wasm []byte) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	if err := util.WriteFile(fs, "hello.wasm", wasm, 0o644); err != nil {
		t.Fatalf("write module: %v", err)
	}
	return fs
}

func TestComponent_Render(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	c := eng.Component(fsWith(t, spanGuest(wasmbuild.GuestOptions{})), helloelement.DefaultModulePath)
	defer c.Close(ctx)

	if err := c.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	res, err := c.Render(ctx)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res != (helloelement.RenderResult{Tag: "span", Text: "hi"}) {
		t.Errorf("Render() = %+v, want span/hi", res)
	}

	// Each call produces a fresh result.
	again, err := c.Render(ctx)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if again != res {
		t.Errorf("second Render() = %+v", again)
	}
}

func TestComponent_RenderBeforeInit(t *testing.T) {
	eng := newEngine(t)
	c := eng.Component(fsWith(t, spanGuest(wasmbuild.GuestOptions{})), helloelement.DefaultModulePath)

	_, err := c.Render(context.Background())
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseRender, Kind: werrors.KindNotInitialized}) {
		t.Errorf("err = %v, want render/not_initialized", err)
	}

	_, err = c.Click(context.Background(), 69)
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseRuntime, Kind: werrors.KindNotInitialized}) {
		t.Errorf("Click err = %v, want runtime/not_initialized", err)
	}
}

func TestComponent_InitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	c := eng.Component(fsWith(t, spanGuest(wasmbuild.GuestOptions{InitOutput: "booted\n"})), "hello.wasm")
	defer c.Close(ctx)

	for i := 0; i < 2; i++ {
		if err := c.Init(ctx); err != nil {
			t.Fatalf("init %d: %v", i, err)
		}
	}
	if got := c.Output(); got != "booted\n" {
		t.Errorf("Output() = %q, want a single boot message", got)
	}
}

func TestComponent_InitErrors(t *testing.T) {
	tests := []struct {
		name   string
		fs     func(t *testing.T) billy.Filesystem
		target error
	}{
		{
			name:   "missing module",
			fs:     func(t *testing.T) billy.Filesystem { return memfs.New() },
			target: &werrors.Error{Phase: werrors.PhaseLoad, Kind: werrors.KindInvalidData},
		},
		{
			name:   "not wasm",
			fs:     func(t *testing.T) billy.Filesystem { return fsWith(t, []byte("<html>")) },
			target: &werrors.Error{Phase: werrors.PhaseLoad, Kind: werrors.KindInvalidData},
		},
		{
			name: "no render export",
			fs: func(t *testing.T) billy.Filesystem {
				return fsWith(t, spanGuest(wasmbuild.GuestOptions{NoRender: true}))
			},
			target: &werrors.Error{Phase: werrors.PhaseInit, Kind: werrors.KindNotFound},
		},
		{
			name: "unknown import",
			fs: func(t *testing.T) billy.Filesystem {
				return fsWith(t, spanGuest(wasmbuild.GuestOptions{ExtraImports: []string{"env#platform_alert"}}))
			},
			target: &werrors.MissingImportsError{},
		},
		{
			name: "trap in _initialize",
			fs: func(t *testing.T) billy.Filesystem {
				return fsWith(t, spanGuest(wasmbuild.GuestOptions{TrapOnInit: true}))
			},
			target: &werrors.Error{Phase: werrors.PhaseInit, Kind: werrors.KindInstantiation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			eng := newEngine(t)
			c := eng.Component(tt.fs(t), helloelement.DefaultModulePath)

			err := c.Init(ctx)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}

			if _, err := c.Render(ctx); err == nil {
				t.Error("Render after failed Init should fail")
			}
		})
	}
}

func TestComponent_MissingImportNamesFunction(t *testing.T) {
	eng := newEngine(t)
	c := eng.Component(fsWith(t, spanGuest(wasmbuild.GuestOptions{
		ExtraImports: []string{"env#platform_alert", "host#now"},
	})), "hello.wasm")

	err := c.Init(context.Background())
	var missing *werrors.MissingImportsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingImportsError", err)
	}
	if len(missing.Imports) != 2 {
		t.Fatalf("Imports = %+v", missing.Imports)
	}
	if !strings.Contains(err.Error(), "platform_alert") || !strings.Contains(err.Error(), "now") {
		t.Errorf("err = %q", err)
	}
}

func TestComponent_RenderTrap(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	c := eng.Component(fsWith(t, spanGuest(wasmbuild.GuestOptions{TrapOnRender: true})), "hello.wasm")
	defer c.Close(ctx)

	if err := c.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	_, err := c.Render(ctx)
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseRender, Kind: werrors.KindTrap}) {
		t.Errorf("err = %v, want render/trap", err)
	}
}

func TestComponent_OutputAndStdout(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	var stdout bytes.Buffer
	c := eng.Component(
		fsWith(t, spanGuest(wasmbuild.GuestOptions{InitOutput: "hello from guest"})),
		"hello.wasm",
		WithStdout(&stdout),
	)
	defer c.Close(ctx)

	if err := c.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := c.Output(); got != "hello from guest" {
		t.Errorf("Output() = %q", got)
	}
	if got := stdout.String(); got != "hello from guest" {
		t.Errorf("stdout = %q", got)
	}
}

func TestComponent_OutputRoutedPerInstance(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	a := eng.Component(fsWith(t, spanGuest(wasmbuild.GuestOptions{InitOutput: "a"})), "hello.wasm")
	b := eng.Component(fsWith(t, spanGuest(wasmbuild.GuestOptions{InitOutput: "bb"})), "hello.wasm")
	defer a.Close(ctx)
	defer b.Close(ctx)

	if err := a.Init(ctx); err != nil {
		t.Fatalf("init a: %v", err)
	}
	if err := b.Init(ctx); err != nil {
		t.Fatalf("init b: %v", err)
	}

	if a.Output() != "a" || b.Output() != "bb" {
		t.Errorf("outputs = %q, %q", a.Output(), b.Output())
	}
}

func TestComponent_Click(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	hooks := 0
	c := eng.Component(fsWith(t, counterGuest()), "hello.wasm", WithRerender(func() { hooks++ }))
	defer c.Close(ctx)

	if err := c.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	tree, err := c.Tree(ctx)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	buttons := tree.Clickables()
	if len(buttons) != 1 {
		t.Fatalf("clickables = %d, want 1", len(buttons))
	}
	if tree.Children[0].Text != "Count: 0" {
		t.Errorf("before click = %q", tree.Children[0].Text)
	}

	rerender, err := c.Click(ctx, buttons[0].Index)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if !rerender {
		t.Error("Click should report the rerender request")
	}
	if hooks != 1 {
		t.Errorf("rerender hook called %d times, want 1", hooks)
	}

	tree, err = c.Tree(ctx)
	if err != nil {
		t.Fatalf("tree after click: %v", err)
	}
	if tree.Children[0].Text != "Count: 1" {
		t.Errorf("after click = %q", tree.Children[0].Text)
	}
}

func TestComponent_CloseAndReinit(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	c := eng.Component(fsWith(t, spanGuest(wasmbuild.GuestOptions{})), "hello.wasm")

	if err := c.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if n := eng.Instances(); n != 1 {
		t.Errorf("Instances() = %d after init, want 1", n)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := eng.Instances(); n != 0 {
		t.Errorf("Instances() = %d after close, want 0", n)
	}
	if _, err := c.Render(ctx); err == nil {
		t.Error("Render after Close should fail")
	}
	if err := c.Init(ctx); err != nil {
		t.Fatalf("reinit: %v", err)
	}
	if _, err := c.Render(ctx); err != nil {
		t.Errorf("render after reinit: %v", err)
	}
	if err := c.Close(ctx); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := c.Close(ctx); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestEngine_Loader(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	load := eng.Loader(fsWith(t, spanGuest(wasmbuild.GuestOptions{})))

	comp := load(helloelement.DefaultModulePath)
	c, ok := comp.(*Component)
	if !ok {
		t.Fatalf("Loader returned %T", comp)
	}
	if c.Path() != helloelement.DefaultModulePath {
		t.Errorf("Path() = %q", c.Path())
	}
	if err := comp.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer c.Close(ctx)
}

func TestEngine_Inspect(t *testing.T) {
	eng := newEngine(t)
	imports, exports, err := eng.Inspect(context.Background(), fsWith(t, counterGuest()), "hello.wasm")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}

	var importSigs []string
	for _, f := range imports {
		importSigs = append(importSigs, f.String())
	}
	want := []string{"env.platform_write(i32, i32)", "env.platform_rerender()"}
	if strings.Join(importSigs, ";") != strings.Join(want, ";") {
		t.Errorf("imports = %v, want %v", importSigs, want)
	}

	var exportSigs []string
	for _, f := range exports {
		exportSigs = append(exportSigs, f.String())
	}
	wantExports := []string{"invoke_on_click(i32)", "render_component() -> i32"}
	if strings.Join(exportSigs, ";") != strings.Join(wantExports, ";") {
		t.Errorf("exports = %v, want %v", exportSigs, wantExports)
	}
}
