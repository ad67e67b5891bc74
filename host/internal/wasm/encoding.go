package wasm

import (
	"github.com/tetratelabs/wazero/api"
)

// Section IDs used by the table module.
const (
	sectionType    byte = 0x01
	sectionImport  byte = 0x02
	sectionTable   byte = 0x04
	sectionExport  byte = 0x07
	sectionElement byte = 0x09
)

const (
	externFunc  byte = 0x00
	externTable byte = 0x01

	funcRef  byte = 0x70
	funcType byte = 0x60

	opI32Const byte = 0x41
	opEnd      byte = 0x0b
)

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// EncodeULEB128 encodes an unsigned value in LEB128 format.
func EncodeULEB128(v uint32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		result = append(result, b)
		if v == 0 {
			return result
		}
	}
}

// EncodeSLEB128 encodes a signed value in LEB128 format.
func EncodeSLEB128(v int32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(result, b)
		}
		result = append(result, b|0x80)
	}
}

// ValTypeToWasm converts a wazero value type to its binary encoding.
func ValTypeToWasm(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	default:
		return 0x7f
	}
}

// EncodeName encodes a length-prefixed UTF-8 name.
func EncodeName(s string) []byte {
	return append(EncodeULEB128(uint32(len(s))), s...)
}

// EncodeFuncType encodes a function type entry.
func EncodeFuncType(params, results []api.ValueType) []byte {
	out := []byte{funcType}
	out = append(out, EncodeULEB128(uint32(len(params)))...)
	for _, t := range params {
		out = append(out, ValTypeToWasm(t))
	}
	out = append(out, EncodeULEB128(uint32(len(results)))...)
	for _, t := range results {
		out = append(out, ValTypeToWasm(t))
	}
	return out
}

func appendSection(wasm []byte, id byte, body []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, EncodeULEB128(uint32(len(body)))...)
	return append(wasm, body...)
}
