package element

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/hello-element/dom"
	"github.com/wippyai/hello-element/errors"
)

// Lifecycle is implemented by custom element instances.
type Lifecycle interface {
	ConnectedCallback(ctx context.Context) error
	DisconnectedCallback()
}

// Constructor builds an element instance on an upgraded host.
type Constructor func(doc dom.Document, host dom.ShadowHost) (Lifecycle, error)

// Tree is a document that can be searched for elements to upgrade.
type Tree interface {
	dom.Document
	GetElementsByTagName(tag string) []dom.Element
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithUnhandled sets the hook that receives connected callback failures.
// The default logs them at error level.
func WithUnhandled(fn func(name string, err error)) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.unhandled = fn
		}
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// Registry maps custom element names to constructors.
type Registry struct {
	mu        sync.RWMutex
	defs      map[string]Constructor
	names     map[Lifecycle]string
	log       *zap.Logger
	unhandled func(name string, err error)
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		defs:  make(map[string]Constructor),
		names: make(map[Lifecycle]string),
		log:   Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.unhandled == nil {
		r.unhandled = func(name string, err error) {
			r.log.Error("unhandled connected callback failure",
				zap.String("element", name),
				zap.Error(err))
		}
	}
	return r
}

// Define registers ctor under name.
func (r *Registry) Define(name string, ctor Constructor) error {
	if err := dom.ValidateCustomElementName(name); err != nil {
		return errors.New(errors.PhaseHost, errors.KindRegistration).
			Value(name).
			Cause(err).
			Detail("define %q: invalid name", name).
			Build()
	}
	if ctor == nil {
		return errors.Registration(name, "nil constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[name]; ok {
		return errors.Registration(name, "already defined")
	}
	r.defs[name] = ctor
	r.log.Debug("defined element", zap.String("name", name))
	return nil
}

// Get returns the constructor registered under name.
func (r *Registry) Get(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.defs[name]
	return ctor, ok
}

// Names returns the defined names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Upgrade constructs the element registered for host's tag name.
// Assertion failures in the constructor are returned as errors.
func (r *Registry) Upgrade(doc dom.Document, host dom.Element) (el Lifecycle, err error) {
	name := strings.ToLower(host.TagName())
	ctor, ok := r.Get(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseHost, "element definition", name)
	}
	sh, ok := host.(dom.ShadowHost)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseHost, "<"+name+"> cannot host a shadow root")
	}

	defer recoverAssertion(&err)

	el, err = ctor(doc, sh)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, errors.Registration(name, "constructor returned nil")
	}

	r.mu.Lock()
	r.names[el] = name
	r.mu.Unlock()
	return el, nil
}

// UpgradeAll upgrades every element in doc whose tag name is defined,
// in tree order.
func (r *Registry) UpgradeAll(doc Tree) ([]Lifecycle, error) {
	var out []Lifecycle
	for _, name := range r.Names() {
		for _, host := range doc.GetElementsByTagName(name) {
			el, err := r.Upgrade(doc, host)
			if err != nil {
				return out, err
			}
			out = append(out, el)
		}
	}
	return out, nil
}

// Connect runs el's connected callback on its own goroutine. The returned
// channel receives the outcome once and is then closed. Failures are also
// passed to the unhandled hook.
func (r *Registry) Connect(ctx context.Context, el Lifecycle) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := r.connect(ctx, el)
		if err != nil {
			r.unhandled(r.nameOf(el), err)
		}
		done <- err
	}()
	return done
}

func (r *Registry) connect(ctx context.Context, el Lifecycle) (err error) {
	if el == nil {
		return errors.InvalidInput(errors.PhaseHost, "connect a nil element")
	}
	defer recoverAssertion(&err)
	return el.ConnectedCallback(ctx)
}

// Disconnect runs el's disconnected callback.
func (r *Registry) Disconnect(el Lifecycle) {
	el.DisconnectedCallback()
}

func (r *Registry) nameOf(el Lifecycle) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[el]
}

// Define registers the hello-world element in reg.
func Define(reg *Registry, opts ...Option) error {
	return reg.Define(TagName, func(doc dom.Document, host dom.ShadowHost) (Lifecycle, error) {
		el, err := New(doc, host, opts...)
		if err != nil {
			return nil, err
		}
		return el, nil
	})
}
