package dom

import (
	"errors"
	"strings"
	"testing"

	werrors "github.com/wippyai/hello-element/errors"
)

func mustCreate(t *testing.T, d *HTMLDocument, tag string) *node {
	t.Helper()
	el, err := d.CreateElement(tag)
	if err != nil {
		t.Fatalf("CreateElement(%q): %v", tag, err)
	}
	return el.(*node)
}

func TestCreateElement(t *testing.T) {
	tests := []struct {
		tag     string
		want    string
		wantErr bool
	}{
		{tag: "span", want: "SPAN"},
		{tag: "DIV", want: "DIV"},
		{tag: "hello-world", want: "HELLO-WORLD"},
		{tag: "", wantErr: true},
		{tag: "1abc", wantErr: true},
		{tag: "a b", wantErr: true},
		{tag: "a>b", wantErr: true},
	}

	d := NewDocument()
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			el, err := d.CreateElement(tt.tag)
			if tt.wantErr {
				if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseDOM, Kind: werrors.KindInvalidInput}) {
					t.Errorf("err = %v, want dom/invalid_input", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := el.TagName(); got != tt.want {
				t.Errorf("TagName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateCustomElementName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"hello-world", true},
		{"x-1", true},
		{"my-el.v2", true},
		{"hello", false},
		{"Hello-world", false},
		{"hello-World", false},
		{"-hello", false},
		{"font-face", false},
		{"annotation-xml", false},
		{"", false},
	}

	for _, tt := range tests {
		err := ValidateCustomElementName(tt.name)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateCustomElementName(%q) = %v, want valid=%v", tt.name, err, tt.valid)
		}
	}
}

func TestAppendChildAndText(t *testing.T) {
	d := NewDocument()
	parent := mustCreate(t, d, "div")
	child := mustCreate(t, d, "span")
	child.SetTextContent("hi")

	if err := parent.AppendChild(child); err != nil {
		t.Fatalf("AppendChild: %v", err)
	}
	if err := d.Body().AppendChild(parent); err != nil {
		t.Fatalf("AppendChild to body: %v", err)
	}

	kids := parent.Children()
	if len(kids) != 1 || kids[0].TagName() != "SPAN" || kids[0].TextContent() != "hi" {
		t.Fatalf("children = %+v", kids)
	}
	if parent.TextContent() != "hi" {
		t.Errorf("TextContent() = %q", parent.TextContent())
	}

	// Appending again moves the node instead of duplicating it.
	other := mustCreate(t, d, "p")
	if err := d.Body().AppendChild(other); err != nil {
		t.Fatal(err)
	}
	if err := other.AppendChild(child); err != nil {
		t.Fatal(err)
	}
	if len(parent.Children()) != 0 || len(other.Children()) != 1 {
		t.Errorf("child not moved: parent=%d other=%d", len(parent.Children()), len(other.Children()))
	}

	child.SetTextContent("")
	if child.TextContent() != "" {
		t.Errorf("TextContent after clear = %q", child.TextContent())
	}
}

func TestAppendChildRejectsAncestor(t *testing.T) {
	d := NewDocument()
	outer := mustCreate(t, d, "div")
	inner := mustCreate(t, d, "div")
	if err := outer.AppendChild(inner); err != nil {
		t.Fatal(err)
	}
	if err := inner.AppendChild(outer); err == nil {
		t.Error("appending an ancestor should fail")
	}
	if err := inner.AppendChild(inner); err == nil {
		t.Error("appending an element to itself should fail")
	}

	other := NewDocument()
	foreign := mustCreate(t, other, "span")
	if err := inner.AppendChild(foreign); err == nil {
		t.Error("appending an element of another document should fail")
	}
}

func TestAttributes(t *testing.T) {
	d := NewDocument()
	el := mustCreate(t, d, "div")

	if _, ok := el.GetAttribute("id"); ok {
		t.Error("unexpected id attribute")
	}
	el.SetAttribute("id", "one")
	el.SetAttribute("ID", "two")
	if v, ok := el.GetAttribute("id"); !ok || v != "two" {
		t.Errorf("GetAttribute(id) = %q, %v", v, ok)
	}
}

func TestAttachShadow(t *testing.T) {
	d := NewDocument()
	host := mustCreate(t, d, "hello-world")

	if host.ShadowRoot() != nil {
		t.Fatal("ShadowRoot() before attach should be nil")
	}

	root, err := host.AttachShadow(ShadowRootInit{Mode: ModeOpen})
	if err != nil {
		t.Fatalf("AttachShadow: %v", err)
	}
	if root.Mode() != ModeOpen {
		t.Errorf("Mode() = %q", root.Mode())
	}
	if host.ShadowRoot() == nil {
		t.Error("ShadowRoot() after open attach is nil")
	}

	_, err = host.AttachShadow(ShadowRootInit{Mode: ModeOpen})
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseDOM, Kind: werrors.KindUnsupported}) {
		t.Errorf("second attach err = %v, want dom/unsupported", err)
	}
}

func TestAttachShadowRestrictions(t *testing.T) {
	d := NewDocument()

	closed := mustCreate(t, d, "div")
	if _, err := closed.AttachShadow(ShadowRootInit{Mode: ModeClosed}); err != nil {
		t.Fatalf("closed attach: %v", err)
	}
	if closed.ShadowRoot() != nil {
		t.Error("closed root must not be exposed")
	}

	img := mustCreate(t, d, "img")
	if _, err := img.AttachShadow(ShadowRootInit{Mode: ModeOpen}); err == nil {
		t.Error("img should not host a shadow root")
	}

	div := mustCreate(t, d, "div")
	if _, err := div.AttachShadow(ShadowRootInit{Mode: "sideways"}); err == nil {
		t.Error("invalid mode should fail")
	}
}

func TestShadowRootInnerHTML(t *testing.T) {
	d := NewDocument()
	host := mustCreate(t, d, "hello-world")
	root, err := host.AttachShadow(ShadowRootInit{Mode: ModeOpen})
	if err != nil {
		t.Fatal(err)
	}

	markup := `<style>:host { display: block; }</style><div id="hello"></div>`
	if err := root.SetInnerHTML(markup); err != nil {
		t.Fatalf("SetInnerHTML: %v", err)
	}

	container, ok := root.GetElementByID("hello")
	if !ok {
		t.Fatal("#hello not found")
	}
	if container.TagName() != "DIV" {
		t.Errorf("container = %s", container.TagName())
	}
	if _, ok := root.GetElementByID("missing"); ok {
		t.Error("found nonexistent id")
	}
	if _, ok := root.GetElementByID(""); ok {
		t.Error("empty id must not match")
	}

	// Shadow content is not part of the document tree.
	if err := d.Body().AppendChild(host); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.GetElementByID("hello"); ok {
		t.Error("document lookup crossed into the shadow tree")
	}

	sr := root.(*shadowRoot)
	if got := sr.InnerHTML(); got != markup {
		t.Errorf("InnerHTML() = %q, want %q", got, markup)
	}

	if err := root.SetInnerHTML(""); err != nil {
		t.Fatal(err)
	}
	if _, ok := root.GetElementByID("hello"); ok {
		t.Error("SetInnerHTML did not replace content")
	}
}

func TestRenderDeclarativeShadowDOM(t *testing.T) {
	d := NewDocument()
	host := mustCreate(t, d, "hello-world")
	if err := d.Body().AppendChild(host); err != nil {
		t.Fatal(err)
	}
	root, err := host.AttachShadow(ShadowRootInit{Mode: ModeOpen})
	if err != nil {
		t.Fatal(err)
	}
	if err := root.SetInnerHTML(`<div id="hello"></div>`); err != nil {
		t.Fatal(err)
	}
	container, _ := root.GetElementByID("hello")
	span := mustCreate(t, d, "span")
	span.SetTextContent("a < b")
	if err := container.AppendChild(span); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	if err := d.Render(&b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `<!DOCTYPE html><html><head></head><body>` +
		`<hello-world><template shadowrootmode="open"><div id="hello"><span>a &lt; b</span></div></template></hello-world>` +
		`</body></html>`
	if b.String() != want {
		t.Errorf("Render() =\n%s\nwant\n%s", b.String(), want)
	}

	b.Reset()
	if err := d.RenderElement(&b, span); err != nil {
		t.Fatal(err)
	}
	if b.String() != "<span>a &lt; b</span>" {
		t.Errorf("RenderElement() = %q", b.String())
	}
}

func TestAppendChildRejectsHostIntoOwnShadow(t *testing.T) {
	d := NewDocument()
	host := mustCreate(t, d, "hello-world")
	root, err := host.AttachShadow(ShadowRootInit{Mode: ModeOpen})
	if err != nil {
		t.Fatal(err)
	}
	if err := root.SetInnerHTML(`<div id="hello"></div>`); err != nil {
		t.Fatal(err)
	}
	container, _ := root.GetElementByID("hello")
	if err := container.AppendChild(host); err == nil {
		t.Error("host appended into its own shadow tree")
	}
}

func TestParseDocument(t *testing.T) {
	d, err := ParseDocument(strings.NewReader(`<!DOCTYPE html><title>x</title><hello-world></hello-world><p id="p">text</p><hello-world></hello-world>`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if got := len(d.GetElementsByTagName("HELLO-WORLD")); got != 2 {
		t.Errorf("hello-world count = %d, want 2", got)
	}
	p, ok := d.GetElementByID("p")
	if !ok || p.TextContent() != "text" {
		t.Errorf("GetElementByID(p) = %v, %v", p, ok)
	}
	if len(d.Body().Children()) != 3 {
		t.Errorf("body children = %d", len(d.Body().Children()))
	}
}
