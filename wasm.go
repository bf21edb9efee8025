package helloelement

import "context"

// DefaultModulePath is the resource path the element loads its guest from.
const DefaultModulePath = "./hello.wasm"

// Memory represents guest linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	ReadU8(offset uint32) (uint8, error)
	ReadU32(offset uint32) (uint32, error)
}

// MemorySizer provides the current size of guest linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// RenderResult is the tag/text pair produced by one render call.
type RenderResult struct {
	Tag  string
	Text string
}

// Component is the module wrapper consumed by the element.
// Init must complete before Render is called.
type Component interface {
	Init(ctx context.Context) error
	Render(ctx context.Context) (RenderResult, error)
}

// Loader constructs a component for the module at path.
type Loader func(path string) Component
