// Package wasm3 decodes and inspects WebAssembly modules.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasm3/               Root package with file-level helpers
//	├── wasm/            Module decoder, data model and type interning
//	│   └── wasmtest/    Fluent module builder for test fixtures
//	├── crosscheck/      Compares a decoded module against wazero
//	├── errors/          Structured error types for debugging
//	└── cmd/wasmdump/    Command-line inspector
//
// # Quick Start
//
// Decode a module from disk:
//
//	m, err := wasm3.DecodeFile("module.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d functions, %d imported\n", m.NumFunctions(), m.NumFuncImports)
//
// Decode several modules against one environment so their signatures share
// a type table:
//
//	env := wasm.NewEnvironment()
//	a, _ := wasm3.Decode(env, first)
//	b, _ := wasm3.Decode(env, second)
//
// # Thread Safety
//
// An Environment is safe for concurrent decodes. A decoded Module is
// immutable by convention and may be read from several goroutines.
//
// # Memory Model
//
// A Module retains its input. Function bodies, data payloads and constant
// expressions are views into it rather than copies, so the input must not
// be modified after decoding.
package wasm3
