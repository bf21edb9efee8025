// Package browser runs the hello element in a web page (GOOS=js GOARCH=wasm).
//
// Document, Element and ShadowRoot implement the dom interfaces over
// syscall/js. Component implements the module wrapper with the browser's
// WebAssembly API: instantiateStreaming fetches the guest, the env imports
// are Go callbacks, and render trees are read from the exported memory and
// decoded with package abi.
//
// Binder defines a JS class per registry entry. Its constructor upgrades the
// host through the registry, and connectedCallback hands off to
// Registry.Connect so the event loop is never blocked while the guest loads.
package browser
