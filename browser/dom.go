//go:build js && wasm

package browser

import (
	"fmt"
	"strings"
	"syscall/js"

	"github.com/wippyai/hello-element/dom"
	"github.com/wippyai/hello-element/errors"
)

// Document wraps the page document.
type Document struct {
	v js.Value
}

var _ dom.Document = (*Document)(nil)

// CurrentDocument returns the global document.
func CurrentDocument() *Document {
	return &Document{v: js.Global().Get("document")}
}

func (d *Document) CreateElement(tag string) (dom.Element, error) {
	if err := dom.ValidateElementName(tag); err != nil {
		return nil, err
	}
	var el js.Value
	if err := try(func() { el = d.v.Call("createElement", tag) }); err != nil {
		return nil, errors.Wrap(errors.PhaseDOM, errors.KindInvalidInput, err, "createElement "+tag)
	}
	return &Element{v: el}, nil
}

// Body returns document.body.
func (d *Document) Body() dom.ShadowHost {
	return &Element{v: d.v.Get("body")}
}

func (d *Document) GetElementsByTagName(tag string) []dom.Element {
	return collection(d.v.Call("getElementsByTagName", tag))
}

// Element wraps a DOM element.
type Element struct {
	v js.Value
}

var _ dom.ShadowHost = (*Element)(nil)

// Value returns the wrapped JS object.
func (e *Element) Value() js.Value {
	return e.v
}

func (e *Element) TagName() string {
	return e.v.Get("tagName").String()
}

func (e *Element) GetAttribute(name string) (string, bool) {
	v := e.v.Call("getAttribute", name)
	if v.IsNull() {
		return "", false
	}
	return v.String(), true
}

func (e *Element) SetAttribute(name, value string) {
	e.v.Call("setAttribute", name, value)
}

func (e *Element) AppendChild(child dom.Element) error {
	c, ok := child.(*Element)
	if !ok {
		return errors.InvalidInput(errors.PhaseDOM, fmt.Sprintf("%T is not a browser element", child))
	}
	if err := try(func() { e.v.Call("appendChild", c.v) }); err != nil {
		return errors.Wrap(errors.PhaseDOM, errors.KindInvalidInput, err, "appendChild")
	}
	return nil
}

func (e *Element) SetTextContent(text string) {
	e.v.Set("textContent", text)
}

func (e *Element) TextContent() string {
	v := e.v.Get("textContent")
	if !present(v) {
		return ""
	}
	return v.String()
}

func (e *Element) Children() []dom.Element {
	return collection(e.v.Get("children"))
}

func (e *Element) AttachShadow(init dom.ShadowRootInit) (dom.ShadowRoot, error) {
	var root js.Value
	opts := map[string]any{"mode": string(init.Mode)}
	if err := try(func() { root = e.v.Call("attachShadow", opts) }); err != nil {
		return nil, errors.Wrap(errors.PhaseDOM, errors.KindUnsupported, err,
			"attachShadow on <"+strings.ToLower(e.TagName())+">")
	}
	return &ShadowRoot{v: root}, nil
}

func (e *Element) ShadowRoot() dom.ShadowRoot {
	root := e.v.Get("shadowRoot")
	if !present(root) {
		return nil
	}
	return &ShadowRoot{v: root}
}

// ShadowRoot wraps a JS ShadowRoot.
type ShadowRoot struct {
	v js.Value
}

var _ dom.ShadowRoot = (*ShadowRoot)(nil)

func (r *ShadowRoot) Mode() dom.ShadowRootMode {
	return dom.ShadowRootMode(r.v.Get("mode").String())
}

func (r *ShadowRoot) SetInnerHTML(markup string) error {
	return try(func() { r.v.Set("innerHTML", markup) })
}

func (r *ShadowRoot) GetElementByID(id string) (dom.Element, bool) {
	el := r.v.Call("getElementById", id)
	if !present(el) {
		return nil, false
	}
	return &Element{v: el}, true
}

// collection converts an HTMLCollection to elements.
func collection(c js.Value) []dom.Element {
	n := c.Length()
	out := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &Element{v: c.Index(i)})
	}
	return out
}
