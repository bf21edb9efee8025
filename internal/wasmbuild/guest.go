package wasmbuild

import (
	"strings"

	"github.com/wippyai/hello-element/abi"
)

// GuestOptions shapes a module that follows the hello guest contract.
type GuestOptions struct {
	// Root is the Element* render_component returns.
	Root uint32
	// ClickRoot, when set, makes invoke_on_click switch the render result
	// to ClickRoot and call platform_rerender.
	ClickRoot uint32
	// InitOutput is written through platform_write by _initialize.
	InitOutput string
	// TrapOnRender makes render_component execute unreachable.
	TrapOnRender bool
	// TrapOnInit makes _initialize execute unreachable.
	TrapOnInit bool
	// NoRender omits the render_component export.
	NoRender bool
	// ExtraImports adds "module#name" imports of type [] -> [].
	ExtraImports []string
}

// Guest assembles a module over the heap h. All heap allocations must be
// done before calling Guest.
func Guest(h *Heap, opts GuestOptions) []byte {
	m := New()
	write := m.Import(abi.ImportModule, abi.ImportWrite, []ValType{I32, I32}, nil)
	rerender := m.Import(abi.ImportModule, abi.ImportRerender, nil, nil)
	for _, imp := range opts.ExtraImports {
		mod, name, _ := strings.Cut(imp, "#")
		m.Import(mod, name, nil, nil)
	}

	cell := h.Alloc(4, 4)
	h.Put32(cell, opts.Root)

	var msg, msgLen uint32
	if opts.InitOutput != "" {
		msg = h.Bytes([]byte(opts.InitOutput))
		msgLen = uint32(len(opts.InitOutput))
	}

	if !opts.NoRender {
		if opts.TrapOnRender {
			m.Func(abi.ExportRender, nil, []ValType{I32}, Unreachable())
		} else {
			m.Func(abi.ExportRender, nil, []ValType{I32}, I32Const(int32(cell)), I32Load())
		}
	}

	if opts.ClickRoot != 0 {
		m.Func(abi.ExportClick, []ValType{I32}, nil,
			I32Const(int32(cell)), I32Const(int32(opts.ClickRoot)), I32Store(),
			Call(rerender),
		)
	} else {
		m.Func(abi.ExportClick, []ValType{I32}, nil)
	}

	switch {
	case opts.TrapOnInit:
		m.Func(abi.ExportInitialize, nil, nil, Unreachable())
	case msgLen > 0:
		m.Func(abi.ExportInitialize, nil, nil, I32Const(int32(msg)), I32Const(int32(msgLen)), Call(write))
	}

	m.Memory(h.Size()/65536 + 1)
	m.Data(h.Base(), h.Image())
	return m.Bytes()
}
