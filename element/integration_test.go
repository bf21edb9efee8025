package element_test

import (
	"context"
	"strings"
	"testing"

	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/util"

	"github.com/wippyai/hello-element/dom"
	"github.com/wippyai/hello-element/element"
	"github.com/wippyai/hello-element/guest"
	"github.com/wippyai/hello-element/internal/wasmbuild"
)

func TestHelloWorldWithWasmGuest(t *testing.T) {
	ctx := context.Background()

	h := wasmbuild.NewHeap(1024)
	root := h.Element(wasmbuild.El{Tag: "span", Text: "hi"})
	wasm := wasmbuild.Guest(h, wasmbuild.GuestOptions{Root: root})

	fs := memfs.New()
	if err := util.WriteFile(fs, "hello.wasm", wasm, 0o644); err != nil {
		t.Fatal(err)
	}

	eng, err := guest.NewEngine(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close(ctx)

	reg := element.NewRegistry()
	if err := element.Define(reg, element.WithLoader(eng.Loader(fs))); err != nil {
		t.Fatal(err)
	}

	doc := dom.NewDocument()
	host, err := doc.CreateElement(element.TagName)
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Body().AppendChild(host); err != nil {
		t.Fatal(err)
	}

	el, err := reg.Upgrade(doc, host)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if err := <-reg.Connect(ctx, el); err != nil {
		t.Fatalf("connect: %v", err)
	}

	var b strings.Builder
	if err := doc.Render(&b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), `<div id="hello"><span>hi</span></div>`) {
		t.Errorf("rendered document:\n%s", b.String())
	}
}

func TestHelloWorldMissingModule(t *testing.T) {
	ctx := context.Background()
	eng, err := guest.NewEngine(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close(ctx)

	var unhandled error
	reg := element.NewRegistry(element.WithUnhandled(func(_ string, err error) { unhandled = err }))
	if err := element.Define(reg, element.WithLoader(eng.Loader(memfs.New()))); err != nil {
		t.Fatal(err)
	}

	doc := dom.NewDocument()
	host, _ := doc.CreateElement(element.TagName)
	el, err := reg.Upgrade(doc, host)
	if err != nil {
		t.Fatal(err)
	}

	err = <-reg.Connect(ctx, el)
	if err == nil {
		t.Fatal("expected a load error")
	}
	if unhandled == nil {
		t.Error("failure not reported to the unhandled hook")
	}
	if el.(*element.HelloWorld).Component() != nil {
		t.Error("wrapper set after failed load")
	}
}
