//go:build js && wasm

package browser

import (
	"context"
	"sync"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/wippyai/hello-element/element"
	"github.com/wippyai/hello-element/errors"
)

const instanceKey = "__goElementID"

// classFactory builds an HTMLElement subclass that forwards the lifecycle
// callbacks to Go.
const classFactory = `
return class extends HTMLElement {
	constructor() {
		super();
		hooks.construct(this);
	}
	connectedCallback() {
		hooks.connected(this);
	}
	disconnectedCallback() {
		hooks.disconnected(this);
	}
};`

// Binder connects registry definitions to window.customElements.
type Binder struct {
	ctx context.Context
	reg *element.Registry
	doc *Document
	log *zap.Logger

	mu        sync.Mutex
	instances map[int]element.Lifecycle
	nextID    int
	funcs     []js.Func
}

// NewBinder creates a binder for reg. ctx bounds every connected callback.
func NewBinder(ctx context.Context, reg *element.Registry, log *zap.Logger) *Binder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Binder{
		ctx:       ctx,
		reg:       reg,
		doc:       CurrentDocument(),
		log:       log,
		instances: make(map[int]element.Lifecycle),
	}
}

// Define registers a JS class for every name in the registry. Elements
// already in the page are upgraded by the browser.
func (b *Binder) Define() error {
	customElements := js.Global().Get("customElements")
	for _, name := range b.reg.Names() {
		if present(customElements.Call("get", name)) {
			return errors.Registration(name, "already defined in customElements")
		}

		hooks := map[string]any{
			"construct":    b.hook(b.construct),
			"connected":    b.hook(b.connected),
			"disconnected": b.hook(b.disconnected),
		}
		class := js.Global().Get("Function").New("hooks", classFactory).Invoke(hooks)

		if err := try(func() { customElements.Call("define", name, class) }); err != nil {
			return errors.New(errors.PhaseHost, errors.KindRegistration).
				Value(name).
				Cause(err).
				Detail("define %q", name).
				Build()
		}
		b.log.Debug("custom element defined", zap.String("name", name))
	}
	return nil
}

// Release frees the JS callbacks. Defined classes stop working afterwards.
func (b *Binder) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.funcs {
		f.Release()
	}
	b.funcs = nil
}

func (b *Binder) hook(fn func(this js.Value)) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		fn(arg(args, 0))
		return nil
	})
	b.mu.Lock()
	b.funcs = append(b.funcs, f)
	b.mu.Unlock()
	return f
}

// construct runs inside the JS constructor and must not block.
func (b *Binder) construct(this js.Value) {
	el, err := b.reg.Upgrade(b.doc, &Element{v: this})
	if err != nil {
		b.log.Error("upgrade failed", zap.Error(err))
		ConsoleUnhandled(this.Get("localName").String(), err)
		return
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.instances[id] = el
	b.mu.Unlock()

	this.Set(instanceKey, id)
}

func (b *Binder) lookup(this js.Value) (element.Lifecycle, bool) {
	id := this.Get(instanceKey)
	if id.Type() != js.TypeNumber {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	el, ok := b.instances[id.Int()]
	return el, ok
}

// connected returns immediately; the callback runs on its own goroutine.
func (b *Binder) connected(this js.Value) {
	el, ok := b.lookup(this)
	if !ok {
		return
	}
	b.reg.Connect(b.ctx, el)
}

func (b *Binder) disconnected(this js.Value) {
	if el, ok := b.lookup(this); ok {
		b.reg.Disconnect(el)
	}
}

// ConsoleUnhandled reports connected callback failures on console.error.
func ConsoleUnhandled(name string, err error) {
	js.Global().Get("console").Call("error", "<"+name+">: "+err.Error())
}
