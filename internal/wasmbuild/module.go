// Package wasmbuild assembles small core WebAssembly modules and guest memory
// images in-process. Tests use it to stand in for a compiled hello.wasm.
package wasmbuild

import (
	"bytes"
	"encoding/binary"
	"slices"
)

// ValType is a core value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

const (
	magic   = 0x6d736100 // \0asm
	version = 1

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	kindFunc   = 0x00
	kindMemory = 0x02

	funcTypeByte = 0x60
	opEnd        = 0x0b
)

type funcType struct {
	params  []ValType
	results []ValType
}

type importFunc struct {
	module  string
	name    string
	typeIdx uint32
}

type function struct {
	export  string
	body    []byte
	typeIdx uint32
}

type segment struct {
	data   []byte
	offset uint32
}

// Module is a module under construction. Imports must be declared before
// functions so that function indices stay stable.
type Module struct {
	types     []funcType
	imports   []importFunc
	funcs     []function
	data      []segment
	memPages  uint32
	hasMemory bool
}

func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []ValType) uint32 {
	for i, t := range m.types {
		if slices.Equal(t.params, params) && slices.Equal(t.results, results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// Import declares an imported function and returns its function index.
func (m *Module) Import(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmbuild: Import after Func")
	}
	m.imports = append(m.imports, importFunc{
		module:  module,
		name:    name,
		typeIdx: m.typeIndex(params, results),
	})
	return uint32(len(m.imports) - 1)
}

// Func defines a function. A non-empty export name exports it.
// The body is the concatenation of code; the final end is appended.
func (m *Module) Func(export string, params, results []ValType, code ...[]byte) uint32 {
	var body []byte
	for _, c := range code {
		body = append(body, c...)
	}
	m.funcs = append(m.funcs, function{
		export:  export,
		body:    body,
		typeIdx: m.typeIndex(params, results),
	})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory declares an exported "memory" of the given number of 64KiB pages.
func (m *Module) Memory(pages uint32) *Module {
	m.memPages = pages
	m.hasMemory = true
	return m
}

// Data adds an active data segment at offset.
func (m *Module) Data(offset uint32, data []byte) *Module {
	m.data = append(m.data, segment{offset: offset, data: data})
	return m
}

// Bytes encodes the module to the WebAssembly binary format.
func (m *Module) Bytes() []byte {
	var w bytes.Buffer
	_ = binary.Write(&w, binary.LittleEndian, uint32(magic))
	_ = binary.Write(&w, binary.LittleEndian, uint32(version))

	if len(m.types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.types)))
		for _, t := range m.types {
			sec.WriteByte(funcTypeByte)
			writeValTypes(&sec, t.params)
			writeValTypes(&sec, t.results)
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(m.imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.imports)))
		for _, imp := range m.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, imp.typeIdx)
		}
		writeSection(&w, sectionImport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			writeU32(&sec, f.typeIdx)
		}
		writeSection(&w, sectionFunction, sec.Bytes())
	}

	if m.hasMemory {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		sec.WriteByte(0x00) // min only
		writeU32(&sec, m.memPages)
		writeSection(&w, sectionMemory, sec.Bytes())
	}

	var exports bytes.Buffer
	var exportCount uint32
	if m.hasMemory {
		writeName(&exports, "memory")
		exports.WriteByte(kindMemory)
		writeU32(&exports, 0)
		exportCount++
	}
	for i, f := range m.funcs {
		if f.export == "" {
			continue
		}
		writeName(&exports, f.export)
		exports.WriteByte(kindFunc)
		writeU32(&exports, uint32(len(m.imports)+i))
		exportCount++
	}
	if exportCount > 0 {
		var sec bytes.Buffer
		writeU32(&sec, exportCount)
		sec.Write(exports.Bytes())
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body bytes.Buffer
			writeU32(&body, 0) // no locals
			body.Write(f.body)
			body.WriteByte(opEnd)
			writeU32(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&w, sectionCode, sec.Bytes())
	}

	if len(m.data) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.data)))
		for _, d := range m.data {
			sec.WriteByte(0x00) // active, memory 0
			sec.Write(I32Const(int32(d.offset)))
			sec.WriteByte(opEnd)
			writeU32(&sec, uint32(len(d.data)))
			sec.Write(d.data)
		}
		writeSection(&w, sectionData, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(data)))
	w.Write(data)
}

func writeValTypes(w *bytes.Buffer, types []ValType) {
	writeU32(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}

func writeName(w *bytes.Buffer, name string) {
	writeU32(w, uint32(len(name)))
	w.WriteString(name)
}
