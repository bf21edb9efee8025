// Package element implements the hello-world custom element.
//
// New attaches an open shadow root to the host and fills it with Template:
// one inline stylesheet and the <div id="hello"> container. ConnectedCallback
// loads ./hello.wasm through the configured Loader, waits for Init and
// appends one element built from the module's render result:
//
//	render() -> {Tag: "span", Text: "hi"}
//	<hello-world>
//	  #shadow-root (open)
//	    <style>...</style>
//	    <div id="hello"><span>hi</span></div>
//	</hello-world>
//
// The wrapper reference stays nil until Init succeeds. Each connected
// callback appends a new child; nothing is replaced or diffed.
//
// Registry plays the part of customElements: Define, Upgrade and Connect.
// Connect runs the callback asynchronously and reports failures both on the
// returned channel and to the unhandled hook.
package element
