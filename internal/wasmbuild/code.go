package wasmbuild

import "bytes"

// Instruction encoders. Each returns the bytes of one instruction.

func I32Const(v int32) []byte {
	var b bytes.Buffer
	b.WriteByte(0x41)
	writeS32(&b, v)
	return b.Bytes()
}

// I32Load loads from the address on the stack (align 4, offset 0).
func I32Load() []byte { return []byte{0x28, 0x02, 0x00} }

// I32Store stores value to address, both taken from the stack (align 4, offset 0).
func I32Store() []byte { return []byte{0x36, 0x02, 0x00} }

func I32Add() []byte { return []byte{0x6a} }

func Call(funcIdx uint32) []byte {
	var b bytes.Buffer
	b.WriteByte(0x10)
	writeU32(&b, funcIdx)
	return b.Bytes()
}

func LocalGet(idx uint32) []byte {
	var b bytes.Buffer
	b.WriteByte(0x20)
	writeU32(&b, idx)
	return b.Bytes()
}

func Drop() []byte { return []byte{0x1a} }

func Unreachable() []byte { return []byte{0x00} }

// writeU32 writes an unsigned LEB128 value
func writeU32(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// writeS32 writes a signed LEB128 value
func writeS32(w *bytes.Buffer, v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w.WriteByte(b)
		if done {
			return
		}
	}
}
