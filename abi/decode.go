package abi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	helloelement "github.com/wippyai/hello-element"
	"github.com/wippyai/hello-element/errors"
)

// Node is one decoded guest element.
type Node struct {
	Tag        string
	Text       string
	Attributes []Attribute
	Children   []*Node
	Ptr        uint32
	Index      uint32
	Clickable  bool
}

// Attribute is a decoded name/value pair.
type Attribute struct {
	Name  string
	Value string
}

// Result returns the render result of n.
func (n *Node) Result() helloelement.RenderResult {
	return helloelement.RenderResult{Tag: n.Tag, Text: n.Text}
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Find returns the node with the given element index, or nil.
func (n *Node) Find(index uint32) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.Index == index {
			found = node
			return false
		}
		return true
	})
	return found
}

// Clickables returns the nodes with an on_click handler in document order.
func (n *Node) Clickables() []*Node {
	var out []*Node
	n.Walk(func(node *Node, _ int) bool {
		if node.Clickable {
			out = append(out, node)
		}
		return true
	})
	return out
}

// Decode reads the element tree rooted at ptr.
func Decode(mem helloelement.Memory, ptr uint32) (*Node, error) {
	d := &decoder{mem: mem, seen: make(map[uint32]bool)}
	if s, ok := mem.(helloelement.MemorySizer); ok {
		d.size = s.Size()
	}
	return d.element(ptr, nil, 0)
}

type decoder struct {
	mem  helloelement.Memory
	seen map[uint32]bool
	size uint32
}

func (d *decoder) element(ptr uint32, path []string, depth int) (*Node, error) {
	if ptr == 0 {
		return nil, errors.NilPointer(errors.PhaseDecode, path, "element")
	}
	if depth > MaxDepth {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(path...).
			Detail("tree deeper than %d", MaxDepth).
			Build()
	}
	if d.seen[ptr] {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(path...).
			Value(ptr).
			Detail("element 0x%x referenced more than once", ptr).
			Build()
	}
	d.seen[ptr] = true

	raw, err := d.read(ptr, ElementSize, path)
	if err != nil {
		return nil, err
	}
	field := func(off int) uint32 {
		return binary.LittleEndian.Uint32(raw[off:])
	}

	node := &Node{
		Ptr:       ptr,
		Index:     field(ElementIndex),
		Clickable: field(ElementOnClick) != 0,
	}

	typePtr := field(ElementType)
	if typePtr == 0 {
		return nil, errors.NilPointer(errors.PhaseDecode, extend(path, "type"), "element type")
	}
	if node.Tag, err = d.cstring(typePtr, extend(path, "type")); err != nil {
		return nil, err
	}
	if node.Tag == "" {
		return nil, errors.InvalidData(errors.PhaseDecode, extend(path, "type"), "empty element type")
	}

	if textPtr := field(ElementText); textPtr != 0 {
		if node.Text, err = d.cstring(textPtr, extend(path, "text")); err != nil {
			return nil, err
		}
	}

	if attrsPtr := field(ElementAttributes); attrsPtr != 0 {
		if node.Attributes, err = d.attributes(attrsPtr, extend(path, "attributes")); err != nil {
			return nil, err
		}
	}

	if childrenPtr := field(ElementChildren); childrenPtr != 0 {
		items, err := d.list(childrenPtr, extend(path, "children"))
		if err != nil {
			return nil, err
		}
		node.Children = make([]*Node, 0, len(items))
		for i, item := range items {
			child, err := d.element(item, extend(path, "children", strconv.Itoa(i)), depth+1)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	}

	return node, nil
}

func (d *decoder) attributes(ptr uint32, path []string) ([]Attribute, error) {
	items, err := d.list(ptr, path)
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, 0, len(items))
	for i, item := range items {
		p := extend(path, strconv.Itoa(i))
		if item == 0 {
			return nil, errors.NilPointer(errors.PhaseDecode, p, "attribute")
		}
		raw, err := d.read(item, AttributeSize, p)
		if err != nil {
			return nil, err
		}
		name, err := d.cstring(binary.LittleEndian.Uint32(raw[AttributeName:]), extend(p, "name"))
		if err != nil {
			return nil, err
		}
		value, err := d.cstring(binary.LittleEndian.Uint32(raw[AttributeValue:]), extend(p, "value"))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attribute{Name: name, Value: value})
	}
	return attrs, nil
}

// list reads a Children or Attributes header and returns its item pointers.
func (d *decoder) list(ptr uint32, path []string) ([]uint32, error) {
	raw, err := d.read(ptr, ListSize, path)
	if err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(raw[ListCount:])
	capacity := binary.LittleEndian.Uint32(raw[ListCapacity:])
	if count == 0 {
		return nil, nil
	}
	if count > MaxChildren {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(path...).
			Value(count).
			Detail("count %d exceeds limit %d", count, MaxChildren).
			Build()
	}
	if count > capacity {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(path...).
			Value(count).
			Detail("count %d exceeds capacity %d", count, capacity).
			Build()
	}
	itemsPtr := binary.LittleEndian.Uint32(raw[ListItems:])
	if itemsPtr == 0 {
		return nil, errors.NilPointer(errors.PhaseDecode, extend(path, "items"), "items")
	}
	buf, err := d.read(itemsPtr, count*PointerSize, extend(path, "items"))
	if err != nil {
		return nil, err
	}
	items := make([]uint32, count)
	for i := range items {
		items[i] = binary.LittleEndian.Uint32(buf[i*PointerSize:])
	}
	return items, nil
}

const stringChunk = 256

func (d *decoder) cstring(ptr uint32, path []string) (string, error) {
	if ptr == 0 {
		return "", errors.NilPointer(errors.PhaseDecode, path, "string")
	}
	if d.size == 0 {
		return d.cstringBytewise(ptr, path)
	}
	if ptr >= d.size {
		return "", errors.OutOfBounds(errors.PhaseDecode, path, ptr, d.size)
	}

	var out []byte
	for off := ptr; off < d.size; {
		n := min(uint32(stringChunk), d.size-off)
		chunk, err := d.read(off, n, path)
		if err != nil {
			return "", err
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			out = append(out, chunk[:i]...)
			return string(out), nil
		}
		out = append(out, chunk...)
		if len(out) > MaxStringSize {
			break
		}
		off += n
	}
	return "", unterminated(ptr, path)
}

func (d *decoder) cstringBytewise(ptr uint32, path []string) (string, error) {
	var out []byte
	for off := ptr; len(out) <= MaxStringSize; off++ {
		b, err := d.mem.ReadU8(off)
		if err != nil {
			return "", errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
				Path(path...).
				Value(off).
				Cause(err).
				Detail("read byte at 0x%x", off).
				Build()
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
	return "", unterminated(ptr, path)
}

func unterminated(ptr uint32, path []string) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Path(path...).
		Value(ptr).
		Detail("string at 0x%x is not NUL terminated within %d bytes", ptr, MaxStringSize).
		Build()
}

func (d *decoder) read(ptr, n uint32, path []string) ([]byte, error) {
	if d.size != 0 && (ptr >= d.size || n > d.size-ptr) {
		return nil, errors.OutOfBounds(errors.PhaseDecode, path, ptr, d.size)
	}
	buf, err := d.mem.Read(ptr, n)
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			Path(path...).
			Value(ptr).
			Cause(err).
			Detail("read %d bytes at 0x%x", n, ptr).
			Build()
	}
	if uint32(len(buf)) != n {
		return nil, errors.InvalidData(errors.PhaseDecode, path, fmt.Sprintf("short read at 0x%x: %d of %d bytes", ptr, len(buf), n))
	}
	return buf, nil
}

func extend(path []string, parts ...string) []string {
	out := make([]string, 0, len(path)+len(parts))
	out = append(out, path...)
	return append(out, parts...)
}
