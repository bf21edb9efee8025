package element

import (
	"context"
	"sync"

	"go.uber.org/zap"

	helloelement "github.com/wippyai/hello-element"
	"github.com/wippyai/hello-element/dom"
	"github.com/wippyai/hello-element/errors"
)

// TagName is the custom element name the element registers under.
const TagName = "hello-world"

// ContainerID is the id of the placeholder rendered children are appended to.
const ContainerID = "hello"

// Template is injected into the shadow root on construction.
const Template = `<style>:host { display: block; width: 100%; height: 100%; background-color: white; }</style>` +
	`<div id="` + ContainerID + `"></div>`

const errNoShadowRoot = "Could not find shadow root"

// Option configures a HelloWorld element.
type Option func(*HelloWorld)

// WithLoader sets the function that constructs the module wrapper.
func WithLoader(load helloelement.Loader) Option {
	return func(e *HelloWorld) {
		e.load = load
	}
}

// WithModulePath overrides the module path handed to the loader.
func WithModulePath(path string) Option {
	return func(e *HelloWorld) {
		if path != "" {
			e.path = path
		}
	}
}

// WithLogger sets the element logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *HelloWorld) {
		if l != nil {
			e.log = l
		}
	}
}

// HelloWorld is one hello-world element instance.
type HelloWorld struct {
	doc  dom.Document
	host dom.ShadowHost
	load helloelement.Loader
	path string
	log  *zap.Logger

	mu        sync.Mutex
	component helloelement.Component
	connected bool
}

// New constructs the element on host: it attaches an open shadow root and
// injects Template.
func New(doc dom.Document, host dom.ShadowHost, opts ...Option) (*HelloWorld, error) {
	e := &HelloWorld{
		doc:  doc,
		host: host,
		path: helloelement.DefaultModulePath,
		log:  Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if _, err := host.AttachShadow(dom.ShadowRootInit{Mode: dom.ModeOpen}); err != nil {
		return nil, err
	}
	if err := e.ShadowRoot().SetInnerHTML(Template); err != nil {
		return nil, err
	}
	return e, nil
}

// Host returns the element the instance was constructed on.
func (e *HelloWorld) Host() dom.ShadowHost {
	return e.host
}

// ShadowRoot returns the element's shadow root. It panics with an assertion
// error if the root cannot be retrieved.
func (e *HelloWorld) ShadowRoot() dom.ShadowRoot {
	root := e.host.ShadowRoot()
	return AssertAndGet(root, root != nil, errNoShadowRoot)
}

// Component returns the module wrapper, or nil until the first successful
// initialization.
func (e *HelloWorld) Component() helloelement.Component {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.component
}

// Connected reports whether the element is attached.
func (e *HelloWorld) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// ConnectedCallback loads the module, waits for it to initialize and appends
// one element built from its render result to the container.
//
// Every call appends a new child. Detaching while Init is pending does not
// cancel the render.
func (e *HelloWorld) ConnectedCallback(ctx context.Context) error {
	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()

	if e.load == nil {
		return errors.InvalidInput(errors.PhaseLoad, "no module loader configured")
	}

	comp := e.load(e.path)
	if err := comp.Init(ctx); err != nil {
		e.log.Debug("module init failed", zap.String("path", e.path), zap.Error(err))
		return err
	}

	e.mu.Lock()
	e.component = comp
	e.mu.Unlock()

	container, ok := e.ShadowRoot().GetElementByID(ContainerID)
	if !ok {
		e.log.Debug("container missing, nothing rendered", zap.String("id", ContainerID))
		return nil
	}

	res, err := comp.Render(ctx)
	if err != nil {
		return err
	}

	child, err := e.doc.CreateElement(res.Tag)
	if err != nil {
		return err
	}
	child.SetTextContent(res.Text)
	if err := container.AppendChild(child); err != nil {
		return err
	}

	e.log.Debug("rendered",
		zap.String("tag", res.Tag),
		zap.String("text", res.Text),
		zap.Bool("connected", e.Connected()))
	return nil
}

// DisconnectedCallback records the detachment.
func (e *HelloWorld) DisconnectedCallback() {
	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()

	e.log.Debug("disconnected")
}
