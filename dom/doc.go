// Package dom defines the DOM surface the hello element is written against
// and an in-memory implementation built on golang.org/x/net/html.
//
// The interfaces (Document, Element, ShadowHost, ShadowRoot) are implemented
// twice: by HTMLDocument here, for native rendering and tests, and by package
// browser over syscall/js.
//
//	doc := dom.NewDocument()
//	host, _ := doc.CreateElement("hello-world")
//	_ = doc.Body().AppendChild(host)
//
//	root, _ := host.(dom.ShadowHost).AttachShadow(dom.ShadowRootInit{Mode: dom.ModeOpen})
//	_ = root.SetInnerHTML(`<div id="hello"></div>`)
//
//	_ = doc.Render(os.Stdout)
//
// Render serializes shadow roots as declarative shadow DOM, so the output
// displays the same in a browser without running any script:
//
//	<hello-world><template shadowrootmode="open"><div id="hello"></div></template></hello-world>
//
// All operations on one document are serialized by a document mutex.
package dom
