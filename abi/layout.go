package abi

// Guest exports and imports.
const (
	ExportMemory     = "memory"
	ExportRender     = "render_component"
	ExportClick      = "invoke_on_click"
	ExportInitialize = "_initialize"

	ImportModule   = "env"
	ImportWrite    = "platform_write"
	ImportRerender = "platform_rerender"
)

// IndexOffset is the index assigned to the first element of a render pass.
const IndexOffset = 69

// Element field offsets.
const (
	ElementType        = 0
	ElementText        = 4
	ElementChildren    = 8
	ElementOnClick     = 12
	ElementOnClickArgs = 16
	ElementAttributes  = 20
	ElementIndex       = 24
	ElementSize        = 28
)

// List (Children, Attributes) field offsets.
const (
	ListCount    = 0
	ListCapacity = 4
	ListItems    = 8
	ListSize     = 12
)

// Attribute field offsets.
const (
	AttributeName  = 0
	AttributeValue = 4
	AttributeSize  = 8
)

// PointerSize is sizeof(void*) on wasm32.
const PointerSize = 4

// Decoding limits.
const (
	MaxDepth      = 64
	MaxChildren   = 4096
	MaxStringSize = 64 * 1024
)
