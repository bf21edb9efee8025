package main

import (
	"bytes"
	"context"
	_ "embed"
	stderrors "errors"
	"io"
	"sync"

	"go.uber.org/zap"
	billy "gopkg.in/src-d/go-billy.v4"

	helloelement "github.com/wippyai/hello-element"
	"github.com/wippyai/hello-element/dom"
	"github.com/wippyai/hello-element/element"
	"github.com/wippyai/hello-element/guest"
)

//go:embed static/index.html
var indexHTML []byte

// app holds the engine and resource filesystem shared by every mode.
type app struct {
	cfg config
	log *zap.Logger
	fs  billy.Filesystem
	eng *guest.Engine
}

func newApp(ctx context.Context, cfg config, log *zap.Logger, fs billy.Filesystem) (*app, error) {
	eng, err := guest.NewEngine(ctx, &guest.Config{
		Logger:           log.Named("guest"),
		MemoryLimitPages: cfg.MemoryPages,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, fs: fs, eng: eng}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.eng.Close(ctx); err != nil {
		a.log.Warn("close engine", zap.Error(err))
	}
}

// session tracks the guest components created while rendering one page.
type session struct {
	mu    sync.Mutex
	comps []*guest.Component
}

func (s *session) loader(a *app) helloelement.Loader {
	return func(path string) helloelement.Component {
		c := a.eng.Component(a.fs, path, guest.WithLogger(a.log.Named("guest")))
		s.mu.Lock()
		s.comps = append(s.comps, c)
		s.mu.Unlock()
		return c
	}
}

func (s *session) close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, c := range s.comps {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.comps = nil
	return stderrors.Join(errs...)
}

// registry returns a registry with hello-world defined on the app engine.
// Components are created through load.
func (a *app) registry(load helloelement.Loader) (*element.Registry, error) {
	reg := element.NewRegistry(
		element.WithRegistryLogger(a.log.Named("registry")),
		element.WithUnhandled(func(name string, err error) {
			a.log.Error("element failed", zap.String("element", name), zap.Error(err))
		}),
	)
	err := element.Define(reg,
		element.WithLoader(load),
		element.WithModulePath(a.cfg.Module),
		element.WithLogger(a.log.Named("element")),
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// renderPage parses the index page, upgrades and connects every hello-world
// element in it, waits for all of them to settle and writes the document to
// w. The guest instances are closed once the page is written.
func (a *app) renderPage(ctx context.Context, w io.Writer) error {
	doc, err := dom.ParseDocument(bytes.NewReader(indexHTML))
	if err != nil {
		return err
	}

	sess := &session{}
	defer func() {
		if cerr := sess.close(context.Background()); cerr != nil {
			a.log.Warn("close guests", zap.Error(cerr))
		}
	}()

	reg, err := a.registry(sess.loader(a))
	if err != nil {
		return err
	}
	els, err := reg.UpgradeAll(doc)
	if err != nil {
		return err
	}

	pending := make([]<-chan error, len(els))
	for i, el := range els {
		pending[i] = reg.Connect(ctx, el)
	}

	var errs []error
	for _, done := range pending {
		if err := <-done; err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}

	a.log.Debug("page rendered", zap.Int("elements", len(els)))
	return doc.Render(w)
}
