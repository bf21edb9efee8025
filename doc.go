// Package helloelement provides a hello-world custom element backed by a
// WebAssembly guest module.
//
// The element attaches an open shadow root, loads ./hello.wasm, waits for the
// guest to initialize and appends one element built from the guest's render
// result. It runs natively on an in-memory DOM (guest executed by wazero) and
// in the browser on the real DOM (guest executed by the WebAssembly API).
//
// # Architecture Overview
//
//	helloelement/        Root package with Memory, Component and RenderResult
//	├── element/         The hello-world element, registry and assertion helper
//	├── dom/             DOM interfaces and the in-memory implementation
//	├── abi/             Guest struct layout and render tree decoding
//	├── guest/           wazero-backed module wrapper and env host module
//	├── browser/         syscall/js DOM and module wrapper (js && wasm)
//	├── errors/          Structured error types for debugging
//	└── cmd/             CLI, dev server and the browser entrypoint
//
// # Quick Start
//
// Render the element natively:
//
//	eng, err := guest.NewEngine(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	reg := element.NewRegistry()
//	if err := element.Define(reg, element.WithLoader(eng.Loader(osfs.New(".")))); err != nil {
//	    log.Fatal(err)
//	}
//
//	doc := dom.NewDocument()
//	host, _ := doc.CreateElement("hello-world")
//	doc.Body().AppendChild(host)
//
//	el, err := reg.Upgrade(doc, host)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := <-reg.Connect(ctx, el); err != nil {
//	    log.Fatal(err)
//	}
//	doc.Render(os.Stdout)
//
// # Guest Contract
//
// The guest exports memory, render_component and invoke_on_click, and imports
// env.platform_write and env.platform_rerender. See package abi for the
// struct layout returned by render_component.
//
// # Thread Safety
//
// Document mutations are serialized per document. A guest Component is not
// safe for concurrent calls; each element owns its own Component.
package helloelement
