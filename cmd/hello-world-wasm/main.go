//go:build js && wasm

// Command hello-world-wasm registers the hello-world custom element in the
// browser. Build with GOOS=js GOARCH=wasm and load it with wasm_exec.js.
package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/hello-element/browser"
	"github.com/wippyai/hello-element/element"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}
	defer func() { _ = log.Sync() }()

	reg := element.NewRegistry(
		element.WithRegistryLogger(log.Named("registry")),
		element.WithUnhandled(browser.ConsoleUnhandled),
	)
	err = element.Define(reg,
		element.WithLoader(browser.Loader(browser.WithLogger(log.Named("guest")))),
		element.WithLogger(log.Named("element")),
	)
	if err != nil {
		log.Fatal("define element", zap.Error(err))
	}

	binder := browser.NewBinder(context.Background(), reg, log.Named("browser"))
	defer binder.Release()
	if err := binder.Define(); err != nil {
		log.Fatal("register custom elements", zap.Error(err))
	}

	log.Info("hello-world defined")
	select {}
}
