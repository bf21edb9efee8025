package wasmbuild

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/hello-element/abi"
)

// El describes an element to lay out in a Heap. An empty Text is stored as a
// NULL pointer. Index 0 assigns the next index in creation order, children
// before parents, the way the guest's element() does.
type El struct {
	Tag        string
	Text       string
	Attributes []abi.Attribute
	Children   []El
	OnClick    uint32
	Index      uint32
}

// Heap is a guest memory image starting at address 0. Allocations begin at
// base so that low addresses stay free for NULL checks.
type Heap struct {
	buf       []byte
	base      uint32
	nextIndex uint32
}

func NewHeap(base uint32) *Heap {
	return &Heap{
		buf:       make([]byte, base),
		base:      base,
		nextIndex: abi.IndexOffset,
	}
}

// Base returns the first allocated address.
func (h *Heap) Base() uint32 { return h.base }

// Image returns the bytes from Base to the end of the heap.
func (h *Heap) Image() []byte { return h.buf[h.base:] }

// Alloc reserves n zeroed bytes aligned to align.
func (h *Heap) Alloc(n, align uint32) uint32 {
	for uint32(len(h.buf))%align != 0 {
		h.buf = append(h.buf, 0)
	}
	addr := uint32(len(h.buf))
	h.buf = append(h.buf, make([]byte, n)...)
	return addr
}

// Put32 writes v at addr.
func (h *Heap) Put32(addr, v uint32) {
	binary.LittleEndian.PutUint32(h.buf[addr:], v)
}

// CString stores s with a NUL terminator.
func (h *Heap) CString(s string) uint32 {
	addr := h.Alloc(uint32(len(s))+1, 1)
	copy(h.buf[addr:], s)
	return addr
}

// Bytes stores raw bytes without a terminator.
func (h *Heap) Bytes(b []byte) uint32 {
	addr := h.Alloc(uint32(len(b)), 1)
	copy(h.buf[addr:], b)
	return addr
}

// Element lays out e and its subtree and returns the Element*.
func (h *Heap) Element(e El) uint32 {
	var children uint32
	if len(e.Children) > 0 {
		ptrs := make([]uint32, len(e.Children))
		for i, c := range e.Children {
			ptrs[i] = h.Element(c)
		}
		children = h.list(ptrs)
	}

	var attrs uint32
	if len(e.Attributes) > 0 {
		ptrs := make([]uint32, len(e.Attributes))
		for i, a := range e.Attributes {
			name := h.CString(a.Name)
			value := h.CString(a.Value)
			ptrs[i] = h.Alloc(abi.AttributeSize, 4)
			h.Put32(ptrs[i]+abi.AttributeName, name)
			h.Put32(ptrs[i]+abi.AttributeValue, value)
		}
		attrs = h.list(ptrs)
	}

	tag := h.CString(e.Tag)
	var text uint32
	if e.Text != "" {
		text = h.CString(e.Text)
	}

	index := e.Index
	if index == 0 {
		index = h.nextIndex
		h.nextIndex++
	}

	addr := h.Alloc(abi.ElementSize, 4)
	h.Put32(addr+abi.ElementType, tag)
	h.Put32(addr+abi.ElementText, text)
	h.Put32(addr+abi.ElementChildren, children)
	h.Put32(addr+abi.ElementOnClick, e.OnClick)
	h.Put32(addr+abi.ElementAttributes, attrs)
	h.Put32(addr+abi.ElementIndex, index)
	return addr
}

func (h *Heap) list(ptrs []uint32) uint32 {
	items := h.Alloc(uint32(len(ptrs))*abi.PointerSize, 4)
	for i, p := range ptrs {
		h.Put32(items+uint32(i)*abi.PointerSize, p)
	}
	addr := h.Alloc(abi.ListSize, 4)
	h.Put32(addr+abi.ListCount, uint32(len(ptrs)))
	h.Put32(addr+abi.ListCapacity, uint32(len(ptrs)))
	h.Put32(addr+abi.ListItems, items)
	return addr
}

// Read implements helloelement.Memory.
func (h *Heap) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(h.buf)) {
		return nil, fmt.Errorf("read %d bytes at 0x%x: out of range", length, offset)
	}
	out := make([]byte, length)
	copy(out, h.buf[offset:end])
	return out, nil
}

func (h *Heap) ReadU8(offset uint32) (uint8, error) {
	if offset >= uint32(len(h.buf)) {
		return 0, fmt.Errorf("read byte at 0x%x: out of range", offset)
	}
	return h.buf[offset], nil
}

func (h *Heap) ReadU32(offset uint32) (uint32, error) {
	b, err := h.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Size implements helloelement.MemorySizer.
func (h *Heap) Size() uint32 { return uint32(len(h.buf)) }
