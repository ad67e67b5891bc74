package wasm

import (
	"github.com/tetratelabs/wazero/api"
)

// TableModuleBuilder builds a module that imports host functions of one
// signature and places them in an exported funcref table, so guests can
// reach each of them through call_indirect.
type TableModuleBuilder struct {
	hostModuleName  string
	tableExportName string
	params          []api.ValueType
	results         []api.ValueType
	funcs           []string
	offset          uint32
}

// NewTableModuleBuilder creates a builder for functions imported from
// hostModuleName, all of type params -> results.
func NewTableModuleBuilder(hostModuleName string, params, results []api.ValueType) *TableModuleBuilder {
	return &TableModuleBuilder{
		hostModuleName:  hostModuleName,
		tableExportName: "table",
		params:          params,
		results:         results,
	}
}

// AddFunc appends an import; its table index is offset plus its position.
func (b *TableModuleBuilder) AddFunc(name string) {
	b.funcs = append(b.funcs, name)
}

// SetOffset sets the table index of the first function. Indices below it
// stay null.
func (b *TableModuleBuilder) SetOffset(offset uint32) {
	b.offset = offset
}

// SetTableExport sets the export name of the table.
func (b *TableModuleBuilder) SetTableExport(name string) {
	b.tableExportName = name
}

// TableSize returns the table's fixed size.
func (b *TableModuleBuilder) TableSize() uint32 {
	return b.offset + uint32(len(b.funcs))
}

// Build generates the module bytes. Returns nil when no function was added.
func (b *TableModuleBuilder) Build() []byte {
	if len(b.funcs) == 0 {
		return nil
	}

	wasm := append([]byte(nil), header...)
	wasm = appendSection(wasm, sectionType, b.buildTypeSection())
	wasm = appendSection(wasm, sectionImport, b.buildImportSection())
	wasm = appendSection(wasm, sectionTable, b.buildTableSection())
	wasm = appendSection(wasm, sectionExport, b.buildExportSection())
	wasm = appendSection(wasm, sectionElement, b.buildElemSection())
	return wasm
}

func (b *TableModuleBuilder) buildTypeSection() []byte {
	section := EncodeULEB128(1)
	return append(section, EncodeFuncType(b.params, b.results)...)
}

func (b *TableModuleBuilder) buildImportSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs)))
	for _, name := range b.funcs {
		section = append(section, EncodeName(b.hostModuleName)...)
		section = append(section, EncodeName(name)...)
		section = append(section, externFunc, 0x00)
	}
	return section
}

func (b *TableModuleBuilder) buildTableSection() []byte {
	size := EncodeULEB128(b.TableSize())
	section := []byte{0x01, funcRef, 0x01}
	section = append(section, size...)
	return append(section, size...)
}

func (b *TableModuleBuilder) buildExportSection() []byte {
	section := EncodeULEB128(1)
	section = append(section, EncodeName(b.tableExportName)...)
	return append(section, externTable, 0x00)
}

// buildElemSection emits one active segment for table 0 starting at offset.
// Imported functions occupy function indices 0..n-1.
func (b *TableModuleBuilder) buildElemSection() []byte {
	section := []byte{0x01, 0x00, opI32Const}
	section = append(section, EncodeSLEB128(int32(b.offset))...)
	section = append(section, opEnd)
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)
	for i := range b.funcs {
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}
