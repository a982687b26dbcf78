// Package wasm decodes WebAssembly binary modules into a structurally
// validated Module ready for instantiation.
//
// The decoder checks the header, section order and every count, index and
// length it reads, but it does not decode function bodies, evaluate
// constant expressions or instantiate element segments. Those are left to
// later phases, which receive Views into the retained input.
//
// # Decoding
//
//	data, _ := os.ReadFile("module.wasm")
//	env := wasm.NewEnvironment()
//	m, err := env.ParseModule(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i := range m.Functions {
//	    fmt.Println(m.Functions[i].Name(), m.Signature(uint32(i)))
//	}
//
// A decode either returns a complete Module or an error and no Module.
// Signatures are interned in the Environment's TypeTable only when the
// whole module has been accepted, so a failed decode leaves the
// environment untouched. One Environment can serve concurrent decodes.
//
// # Section Order
//
// Non-custom sections must appear at most once and in the order
//
//	type import function table memory global export start element
//	datacount code data
//
// Custom sections may appear anywhere. The "name" section assigns names
// to functions that are not exported; other custom sections go to the
// Environment's CustomSectionHandler.
//
// # Errors
//
// Errors are *errors.Error values carrying the section, entry path and
// absolute byte offset. Match them against the exported sentinels:
//
//	if errors.Is(err, wasm.ErrMisorderedSection) { ... }
//
// # Sanity Limits
//
// Every count in the input is checked against a ceiling from SanityLimits
// before storage is allocated for it. Override them through Config:
//
//	env := wasm.NewEnvironmentWithConfig(&wasm.Config{
//	    Limits: wasm.SanityLimits{MaxFunctions: 1000},
//	})
package wasm
