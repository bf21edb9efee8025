package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wippyai/hello-element/errors"
)

// Elements that may host a shadow root besides autonomous custom elements.
var shadowHostTags = map[string]bool{
	"article": true, "aside": true, "blockquote": true, "body": true,
	"div": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "main": true,
	"nav": true, "p": true, "section": true, "span": true,
}

// HTMLDocument is an in-memory document backed by an x/net/html node tree.
type HTMLDocument struct {
	mu        sync.Mutex
	root      *html.Node
	body      *html.Node
	shadows   map[*html.Node]*shadowRoot // host -> root
	fragments map[*html.Node]*html.Node  // shadow fragment -> host
}

var _ Document = (*HTMLDocument)(nil)

// NewDocument returns an empty HTML document with a head and a body.
func NewDocument() *HTMLDocument {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := newElementNode("html")
	head := newElementNode("head")
	body := newElementNode("body")
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	root.AppendChild(htmlEl)

	return newDocument(root, body)
}

// ParseDocument parses a complete HTML document.
func ParseDocument(r io.Reader) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDOM, errors.KindInvalidData, err, "parse document")
	}
	body := findElement(root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if body == nil {
		return nil, errors.NotFound(errors.PhaseDOM, "element", "body")
	}
	return newDocument(root, body), nil
}

func newDocument(root, body *html.Node) *HTMLDocument {
	return &HTMLDocument{
		root:      root,
		body:      body,
		shadows:   make(map[*html.Node]*shadowRoot),
		fragments: make(map[*html.Node]*html.Node),
	}
}

func newElementNode(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: atom.Lookup([]byte(tag)), Data: tag}
}

// CreateElement creates a detached element. Tag names are lowercased.
func (d *HTMLDocument) CreateElement(tag string) (Element, error) {
	if err := ValidateElementName(tag); err != nil {
		return nil, err
	}
	return &node{doc: d, n: newElementNode(strings.ToLower(tag))}, nil
}

// Body returns the body element.
func (d *HTMLDocument) Body() ShadowHost {
	return &node{doc: d, n: d.body}
}

// GetElementByID returns the first element in the document tree with the
// given id. Shadow trees are not searched.
func (d *HTMLDocument) GetElementByID(id string) (Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id == "" {
		return nil, false
	}
	found := findElement(d.root, func(n *html.Node) bool { return attr(n, "id") == id })
	if found == nil {
		return nil, false
	}
	return &node{doc: d, n: found}, true
}

// GetElementsByTagName returns elements of the document tree with the given
// tag name in tree order.
func (d *HTMLDocument) GetElementsByTagName(tag string) []Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	tag = strings.ToLower(tag)
	var out []Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, &node{doc: d, n: n})
		}
	})
	return out
}

// Render writes the document as HTML, emitting shadow roots as declarative
// shadow DOM templates.
func (d *HTMLDocument) Render(w io.Writer) error {
	d.mu.Lock()
	out := d.project(d.root)
	d.mu.Unlock()

	return html.Render(w, out)
}

// RenderElement writes el and its subtree, including shadow roots.
func (d *HTMLDocument) RenderElement(w io.Writer, el Element) error {
	n, err := d.own(el)
	if err != nil {
		return err
	}
	d.mu.Lock()
	out := d.project(n)
	d.mu.Unlock()

	return html.Render(w, out)
}

// project copies the tree rooted at n with shadow roots inlined.
func (d *HTMLDocument) project(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if sr, ok := d.shadows[n]; ok {
		tmpl := newElementNode("template")
		tmpl.Attr = []html.Attribute{{Key: "shadowrootmode", Val: string(sr.mode)}}
		for ch := sr.fragment.FirstChild; ch != nil; ch = ch.NextSibling {
			tmpl.AppendChild(d.project(ch))
		}
		c.AppendChild(tmpl)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(d.project(ch))
	}
	return c
}

func (d *HTMLDocument) own(el Element) (*html.Node, error) {
	n, ok := el.(*node)
	if !ok || n.doc != d {
		return nil, errors.InvalidInput(errors.PhaseDOM, fmt.Sprintf("%T does not belong to this document", el))
	}
	return n.n, nil
}

// parent crosses shadow boundaries from a fragment to its host.
func (d *HTMLDocument) parent(n *html.Node) *html.Node {
	if host, ok := d.fragments[n]; ok {
		return host
	}
	return n.Parent
}

func (d *HTMLDocument) forget(n *html.Node) {
	walk(n, func(c *html.Node) {
		if sr, ok := d.shadows[c]; ok {
			d.forget(sr.fragment)
			delete(d.fragments, sr.fragment)
			delete(d.shadows, c)
		}
	})
}

// node is an element of an HTMLDocument.
type node struct {
	doc *HTMLDocument
	n   *html.Node
}

var _ ShadowHost = (*node)(nil)

func (e *node) TagName() string {
	return strings.ToUpper(e.n.Data)
}

func (e *node) GetAttribute(name string) (string, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *node) SetAttribute(name, value string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	name = strings.ToLower(name)
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

// AppendChild moves child to the end of e's children.
func (e *node) AppendChild(child Element) error {
	c, err := e.doc.own(child)
	if err != nil {
		return err
	}

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for p := e.n; p != nil; p = e.doc.parent(p) {
		if p == c {
			return errors.InvalidInput(errors.PhaseDOM, "the new child is an ancestor of the parent")
		}
	}
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	e.n.AppendChild(c)
	return nil
}

func (e *node) SetTextContent(text string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	e.clear()
	if text != "" {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func (e *node) clear() {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		e.doc.forget(c)
		c = next
	}
}

func (e *node) TextContent() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var b strings.Builder
	walk(e.n, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return b.String()
}

func (e *node) Children() []Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var out []Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &node{doc: e.doc, n: c})
		}
	}
	return out
}

// AttachShadow attaches a shadow root. Attaching twice, or to an element
// that cannot host one, fails with an unsupported error.
func (e *node) AttachShadow(init ShadowRootInit) (ShadowRoot, error) {
	if init.Mode != ModeOpen && init.Mode != ModeClosed {
		return nil, errors.InvalidInput(errors.PhaseDOM, fmt.Sprintf("invalid shadow root mode %q", init.Mode))
	}

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	tag := e.n.Data
	if !shadowHostTags[tag] && ValidateCustomElementName(tag) != nil {
		return nil, errors.Unsupported(errors.PhaseDOM, fmt.Sprintf("<%s> cannot host a shadow root", tag))
	}
	if _, ok := e.doc.shadows[e.n]; ok {
		return nil, errors.Unsupported(errors.PhaseDOM, fmt.Sprintf("<%s> already hosts a shadow root", tag))
	}

	sr := &shadowRoot{
		doc:      e.doc,
		host:     e.n,
		mode:     init.Mode,
		fragment: &html.Node{Type: html.DocumentNode},
	}
	e.doc.shadows[e.n] = sr
	e.doc.fragments[sr.fragment] = e.n
	return sr, nil
}

func (e *node) ShadowRoot() ShadowRoot {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	sr, ok := e.doc.shadows[e.n]
	if !ok || sr.mode != ModeOpen {
		return nil
	}
	return sr
}

type shadowRoot struct {
	doc      *HTMLDocument
	host     *html.Node
	mode     ShadowRootMode
	fragment *html.Node
}

var _ ShadowRoot = (*shadowRoot)(nil)

func (r *shadowRoot) Mode() ShadowRootMode { return r.mode }

// Host returns the element the root is attached to.
func (r *shadowRoot) Host() Element {
	return &node{doc: r.doc, n: r.host}
}

// SetInnerHTML replaces the root's content with the parsed markup.
func (r *shadowRoot) SetInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), newElementNode("div"))
	if err != nil {
		return errors.Wrap(errors.PhaseDOM, errors.KindInvalidData, err, "parse shadow root markup")
	}

	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	for c := r.fragment.FirstChild; c != nil; {
		next := c.NextSibling
		r.fragment.RemoveChild(c)
		r.doc.forget(c)
		c = next
	}
	for _, n := range nodes {
		r.fragment.AppendChild(n)
	}
	return nil
}

// InnerHTML serializes the root's content.
func (r *shadowRoot) InnerHTML() string {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	var b strings.Builder
	for c := r.fragment.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, r.doc.project(c))
	}
	return b.String()
}

func (r *shadowRoot) GetElementByID(id string) (Element, bool) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	if id == "" {
		return nil, false
	}
	found := findElement(r.fragment, func(n *html.Node) bool { return attr(n, "id") == id })
	if found == nil {
		return nil, false
	}
	return &node{doc: r.doc, n: found}, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// walk visits n and its descendants in tree order.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}
