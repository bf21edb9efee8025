package guest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	billy "gopkg.in/src-d/go-billy.v4"

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
// The hook runs on the goroutine of the guest call that triggered it.
func WithRerender(fn func()) Option {
	return func(c *Component) {
		c.onRerender = fn
	}
}

// WithStdout mirrors guest output written through platform_write to w.
// WASI guests also get w as stdout.
func WithStdout(w io.Writer) Option {
	return func(c *Component) {
		c.stdout = w
	}
}

// Component is the module wrapper for one guest instance.
// It is not safe for concurrent use.
type Component struct {
	engine     *Engine
	fs         billy.Filesystem
	log        *zap.Logger
	stdout     io.Writer
	onRerender func()
	module     api.Module
	memory     *Memory
	render     api.Function
	click      api.Function
	path       string
	name       string
	output     bytes.Buffer
	outputMu   sync.Mutex
	rerender   bool
}

var _ helloelement.Component = (*Component)(nil)

// Path returns the module path the component loads.
func (c *Component) Path() string {
	return c.path
}

// Init reads, compiles and instantiates the guest. Calling Init on an
// initialized component is a no-op.
func (c *Component) Init(ctx context.Context) error {
	if c.module != nil {
		return nil
	}

	wasm, err := ReadFile(c.fs, c.path)
	if err != nil {
		return err
	}

	cm, err := c.engine.compile(ctx, wasm)
	if err != nil {
		return errors.Load("compile "+c.path, err)
	}
	if err := c.engine.resolveImports(ctx, cm); err != nil {
		return err
	}

	c.name = c.engine.nextName()
	c.engine.components.Store(c.name, c)

	modCfg := wazero.NewModuleConfig().
		WithName(c.name).
		WithStartFunctions(abi.ExportInitialize)
	if c.stdout != nil {
		modCfg = modCfg.WithStdout(c.stdout)
	}

	mod, err := c.engine.runtime.InstantiateModule(ctx, cm, modCfg)
	if err != nil {
		c.engine.components.Delete(c.name)
		return errors.Instantiation(c.path, err)
	}

	mem := mod.Memory()
	if mem == nil {
		c.discard(ctx, mod)
		return errors.NotFound(errors.PhaseInit, "export", abi.ExportMemory)
	}
	render := mod.ExportedFunction(abi.ExportRender)
	if render == nil {
		c.discard(ctx, mod)
		return errors.NotFound(errors.PhaseInit, "export", abi.ExportRender)
	}

	c.module = mod
	c.memory = &Memory{mem: mem}
	c.render = render
	c.click = mod.ExportedFunction(abi.ExportClick)

	c.log.Debug("guest initialized",
		zap.String("instance", c.name),
		zap.Uint32("memory", mem.Size()),
		zap.Bool("clickable", c.click != nil))
	return nil
}

func (c *Component) discard(ctx context.Context, mod api.Module) {
	_ = mod.Close(ctx)
	c.engine.components.Delete(c.name)
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
func (c *Component) Tree(ctx context.Context) (*abi.Node, error) {
	if c.module == nil {
		return nil, errors.NotInitialized(errors.PhaseRender, "component")
	}

	results, err := c.render.Call(ctx)
	if err != nil {
		return nil, errors.Trap(errors.PhaseRender, abi.ExportRender, err)
	}
	if len(results) != 1 {
		return nil, errors.InvalidData(errors.PhaseRender, nil, abi.ExportRender+" must return one pointer")
	}

	return abi.Decode(c.memory, api.DecodeU32(results[0]))
}

// Click invokes the guest click handler for the element index and reports
// whether the guest asked for a rerender while handling it.
func (c *Component) Click(ctx context.Context, index uint32) (bool, error) {
	if c.module == nil {
		return false, errors.NotInitialized(errors.PhaseRuntime, "component")
	}
	if c.click == nil {
		return false, errors.NotFound(errors.PhaseRuntime, "export", abi.ExportClick)
	}

	c.rerender = false
	if _, err := c.click.Call(ctx, api.EncodeU32(index)); err != nil {
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

// Close releases the guest instance. The component can be initialized again.
func (c *Component) Close(ctx context.Context) error {
	if c.module == nil {
		return nil
	}
	err := c.module.Close(ctx)
	c.engine.components.Delete(c.name)
	c.module = nil
	c.memory = nil
	c.render = nil
	c.click = nil
	return err
}

func (c *Component) write(p []byte) {
	c.outputMu.Lock()
	c.output.Write(p)
	c.outputMu.Unlock()

	c.log.Debug("guest output", zap.ByteString("text", p))
	if c.stdout != nil {
		_, _ = c.stdout.Write(p)
	}
}

func (c *Component) requestRerender() {
	c.rerender = true
	c.log.Debug("guest requested rerender")
	if c.onRerender != nil {
		c.onRerender()
	}
}
