//go:build js && wasm

package browser

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"syscall/js"

	"go.uber.org/zap"

	helloelement "github.com/wippyai/hello-element"
	"github.com/wippyai/hello-element/abi"
	"github.com/wippyai/hello-element/errors"
)

// Option configures a Component.
type Option func(*Component)

// WithLogger sets the component logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Component) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRerender sets the hook invoked when the guest calls platform_rerender.
func WithRerender(fn func()) Option {
	return func(c *Component) {
		c.onRerender = fn
	}
}

// Component is the module wrapper backed by the browser's WebAssembly API.
type Component struct {
	path       string
	log        *zap.Logger
	onRerender func()

	exports js.Value
	memory  *memory
	funcs   []js.Func

	outputMu sync.Mutex
	output   strings.Builder
	rerender bool
}

var _ helloelement.Component = (*Component)(nil)

// NewComponent returns an uninitialized component for the module at path,
// resolved against the page URL.
func NewComponent(path string, opts ...Option) *Component {
	c := &Component{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Loader returns a helloelement.Loader creating browser components.
func Loader(opts ...Option) helloelement.Loader {
	return func(path string) helloelement.Component {
		return NewComponent(path, opts...)
	}
}

// Init fetches and instantiates the module and runs _initialize when the
// module exports it. It blocks until the instantiation promise settles.
func (c *Component) Init(ctx context.Context) error {
	if present(c.exports) {
		return nil
	}

	imports := c.imports()
	wasm := js.Global().Get("WebAssembly")

	var promise js.Value
	err := try(func() {
		if fn := wasm.Get("instantiateStreaming"); fn.Type() == js.TypeFunction {
			promise = wasm.Call("instantiateStreaming", js.Global().Call("fetch", c.path), imports)
			return
		}
		promise = js.Global().Call("fetch", c.path)
	})
	if err != nil {
		c.release()
		return errors.Load("fetch "+c.path, err)
	}

	result, err := await(ctx, promise)
	if err != nil {
		c.release()
		return errors.Instantiation(c.path, err)
	}

	instance := result.Get("instance")
	if !present(instance) {
		// Response from plain fetch.
		buf, err := await(ctx, result.Call("arrayBuffer"))
		if err != nil {
			c.release()
			return errors.Load("read "+c.path, err)
		}
		result, err = await(ctx, wasm.Call("instantiate", buf, imports))
		if err != nil {
			c.release()
			return errors.Instantiation(c.path, err)
		}
		instance = result.Get("instance")
	}

	exports := instance.Get("exports")
	mem := exports.Get(abi.ExportMemory)
	if !present(mem) {
		c.release()
		return errors.NotFound(errors.PhaseInit, "export", abi.ExportMemory)
	}
	if exports.Get(abi.ExportRender).Type() != js.TypeFunction {
		c.release()
		return errors.NotFound(errors.PhaseInit, "export", abi.ExportRender)
	}

	c.exports = exports
	c.memory = &memory{mem: mem}

	if initialize := exports.Get(abi.ExportInitialize); initialize.Type() == js.TypeFunction {
		if err := try(func() { initialize.Invoke() }); err != nil {
			c.exports = js.Undefined()
			c.memory = nil
			c.release()
			return errors.Instantiation(c.path, err)
		}
	}

	c.log.Debug("guest initialized", zap.String("module", c.path), zap.Uint32("memory", c.memory.Size()))
	return nil
}

func (c *Component) imports() js.Value {
	write := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ptr := uint32(arg(args, 0).Int())
		length := uint32(arg(args, 1).Int())
		if c.memory == nil {
			return nil
		}
		buf, err := c.memory.Read(ptr, length)
		if err != nil {
			c.log.Warn("platform_write out of range", zap.Error(err))
			return nil
		}
		c.write(buf)
		return nil
	})
	rerender := js.FuncOf(func(js.Value, []js.Value) any {
		c.rerender = true
		if c.onRerender != nil {
			c.onRerender()
		}
		return nil
	})
	c.funcs = append(c.funcs, write, rerender)

	return js.ValueOf(map[string]any{
		abi.ImportModule: map[string]any{
			abi.ImportWrite:    write,
			abi.ImportRerender: rerender,
		},
	})
}

func (c *Component) write(p []byte) {
	c.outputMu.Lock()
	c.output.Write(p)
	c.outputMu.Unlock()

	fmt.Print(string(p))
}

// Render calls render_component and returns the root element's tag and text.
func (c *Component) Render(ctx context.Context) (helloelement.RenderResult, error) {
	tree, err := c.Tree(ctx)
	if err != nil {
		return helloelement.RenderResult{}, err
	}
	return tree.Result(), nil
}

// Tree calls render_component and decodes the whole element tree.
func (c *Component) Tree(_ context.Context) (*abi.Node, error) {
	if !present(c.exports) {
		return nil, errors.NotInitialized(errors.PhaseRender, "component")
	}

	var ptr js.Value
	if err := try(func() { ptr = c.exports.Call(abi.ExportRender) }); err != nil {
		return nil, errors.Trap(errors.PhaseRender, abi.ExportRender, err)
	}
	return abi.Decode(c.memory, uint32(ptr.Int()))
}

// Click invokes the guest click handler for the element index and reports
// whether the guest asked for a rerender.
func (c *Component) Click(_ context.Context, index uint32) (bool, error) {
	if !present(c.exports) {
		return false, errors.NotInitialized(errors.PhaseRuntime, "component")
	}
	if c.exports.Get(abi.ExportClick).Type() != js.TypeFunction {
		return false, errors.NotFound(errors.PhaseRuntime, "export", abi.ExportClick)
	}

	c.rerender = false
	if err := try(func() { c.exports.Call(abi.ExportClick, index) }); err != nil {
		return false, errors.Trap(errors.PhaseRuntime, abi.ExportClick, err)
	}
	return c.rerender, nil
}

// Output returns everything the guest wrote through platform_write.
func (c *Component) Output() string {
	c.outputMu.Lock()
	defer c.outputMu.Unlock()
	return c.output.String()
}

func (c *Component) release() {
	for _, f := range c.funcs {
		f.Release()
	}
	c.funcs = nil
}

// memory reads the guest's exported WebAssembly.Memory.
type memory struct {
	mem js.Value
}

var uint8Array = js.Global().Get("Uint8Array")

func (m *memory) Read(offset, length uint32) ([]byte, error) {
	buf := m.mem.Get("buffer")
	size := uint64(buf.Get("byteLength").Int())
	if uint64(offset)+uint64(length) > size {
		return nil, fmt.Errorf("read %d bytes at 0x%x: out of range", length, offset)
	}
	out := make([]byte, length)
	js.CopyBytesToGo(out, uint8Array.New(buf, offset, length))
	return out, nil
}

func (m *memory) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *memory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *memory) Size() uint32 {
	return uint32(m.mem.Get("buffer").Get("byteLength").Int())
}
