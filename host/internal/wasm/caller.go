package wasm

import (
	"github.com/tetratelabs/wazero/api"
)

const (
	sectionFunction byte = 0x03
	sectionCode     byte = 0x0a

	opLocalGet     byte = 0x20
	opCallIndirect byte = 0x11
)

// CallerModuleBuilder builds a module that imports a funcref table and
// exports a single function calling through it:
//
//	(func (export "call") (param $idx i32) (param i64...) (result i64...)
//	  local.get 1 ... local.get n
//	  local.get $idx
//	  call_indirect (type $stub))
//
// It is the guest-side counterpart of TableModuleBuilder: the index is a
// native function pointer, the remaining params are the raw words.
type CallerModuleBuilder struct {
	tableModuleName string
	tableName       string
	exportName      string
	params          []api.ValueType
	results         []api.ValueType
	tableSize       uint32
}

// NewCallerModuleBuilder creates a builder for calls of type params -> results
// through table tableName of module tableModuleName.
func NewCallerModuleBuilder(tableModuleName, tableName string, tableSize uint32, params, results []api.ValueType) *CallerModuleBuilder {
	return &CallerModuleBuilder{
		tableModuleName: tableModuleName,
		tableName:       tableName,
		exportName:      "call",
		params:          params,
		results:         results,
		tableSize:       tableSize,
	}
}

// SetExportName sets the name of the exported call function.
func (b *CallerModuleBuilder) SetExportName(name string) {
	b.exportName = name
}

// Build generates the module bytes.
func (b *CallerModuleBuilder) Build() []byte {
	wasm := append([]byte(nil), header...)
	wasm = appendSection(wasm, sectionType, b.buildTypeSection())
	wasm = appendSection(wasm, sectionImport, b.buildImportSection())
	wasm = appendSection(wasm, sectionFunction, []byte{0x01, 0x01})
	wasm = appendSection(wasm, sectionExport, b.buildExportSection())
	wasm = appendSection(wasm, sectionCode, b.buildCodeSection())
	return wasm
}

// buildTypeSection emits the stub type (0) and the caller type (1).
func (b *CallerModuleBuilder) buildTypeSection() []byte {
	section := EncodeULEB128(2)
	section = append(section, EncodeFuncType(b.params, b.results)...)
	callerParams := append([]api.ValueType{api.ValueTypeI32}, b.params...)
	return append(section, EncodeFuncType(callerParams, b.results)...)
}

func (b *CallerModuleBuilder) buildImportSection() []byte {
	section := EncodeULEB128(1)
	section = append(section, EncodeName(b.tableModuleName)...)
	section = append(section, EncodeName(b.tableName)...)
	section = append(section, externTable, funcRef, 0x00)
	return append(section, EncodeULEB128(b.tableSize)...)
}

func (b *CallerModuleBuilder) buildExportSection() []byte {
	section := EncodeULEB128(1)
	section = append(section, EncodeName(b.exportName)...)
	return append(section, externFunc, 0x00)
}

func (b *CallerModuleBuilder) buildCodeSection() []byte {
	body := []byte{0x00}
	for i := range b.params {
		body = append(body, opLocalGet)
		body = append(body, EncodeULEB128(uint32(i+1))...)
	}
	body = append(body, opLocalGet, 0x00)
	body = append(body, opCallIndirect, 0x00, 0x00)
	body = append(body, opEnd)

	section := EncodeULEB128(1)
	section = append(section, EncodeULEB128(uint32(len(body)))...)
	return append(section, body...)
}
