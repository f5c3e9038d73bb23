package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/refcount/errors"
)

// Forwarder builds a core module that imports each of names from
// moduleName as (i32) -> i32 and re-exports it under the same name:
//
//	(func (export "clone") (param i32) (result i32)
//	  local.get 0
//	  call $refcount.clone)
//
// wazero forbids calling host module exports directly, so Go callers reach
// the host functions through an instance of this module.
func Forwarder(moduleName string, names []string) []byte {
	n := uint32(len(names))

	// Magic and version
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// Type section: one (i32) -> i32 signature shared by every function
	wasm = appendSection(wasm, 0x01, []byte{0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f})

	var imports []byte
	imports = appendULEB128(imports, n)
	for _, name := range names {
		imports = appendName(imports, moduleName)
		imports = appendName(imports, name)
		imports = append(imports, 0x00, 0x00)
	}
	wasm = appendSection(wasm, 0x02, imports)

	var funcs []byte
	funcs = appendULEB128(funcs, n)
	for range names {
		funcs = append(funcs, 0x00)
	}
	wasm = appendSection(wasm, 0x03, funcs)

	// Exports follow the imports in the function index space.
	var exports []byte
	exports = appendULEB128(exports, n)
	for i, name := range names {
		exports = appendName(exports, name)
		exports = append(exports, 0x00)
		exports = appendULEB128(exports, n+uint32(i))
	}
	wasm = appendSection(wasm, 0x07, exports)

	var code []byte
	code = appendULEB128(code, n)
	for i := range names {
		body := []byte{0x00, 0x20, 0x00, 0x10}
		body = appendULEB128(body, uint32(i))
		body = append(body, 0x0b)
		code = appendULEB128(code, uint32(len(body)))
		code = append(code, body...)
	}
	return appendSection(wasm, 0x0a, code)
}

// InstantiateForwarder instantiates Forwarder over every host function of
// the module named by opts. The host module must already be instantiated in rt.
// The instance is named after the host module with a ".guest" suffix.
func InstantiateForwarder(ctx context.Context, rt wazero.Runtime, opts Options) (api.Module, error) {
	name := opts.ModuleName
	if name == "" {
		name = DefaultModuleName
	}

	compiled, err := rt.CompileModule(ctx, Forwarder(name, exportNames))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "compile forwarder for "+name)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name+".guest"))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "instantiate forwarder for "+name)
	}
	return mod, nil
}

func appendSection(wasm []byte, id byte, content []byte) []byte {
	wasm = append(wasm, id)
	wasm = appendULEB128(wasm, uint32(len(content)))
	return append(wasm, content...)
}

func appendName(b []byte, name string) []byte {
	b = appendULEB128(b, uint32(len(name)))
	return append(b, name...)
}

func appendULEB128(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}
