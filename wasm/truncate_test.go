package wasm_test

import (
	"errors"
	"testing"

	"github.com/birdhello/wasm3/wasm"
	"github.com/birdhello/wasm3/wasm/wasmtest"
)

func richModule() *wasmtest.Builder {
	b := wasmtest.New()
	sig := b.Type([]byte{wasmtest.I32, wasmtest.I32}, []byte{wasmtest.I32})
	void := b.Type(nil, nil)
	b.ImportFunc("env", "add", sig)
	b.ImportGlobal("env", "base", wasmtest.I32, false)
	main := b.Func(void, wasmtest.Body())
	b.Func(sig, wasmtest.Body(0x20, 0x00, 0x20, 0x01, 0x6A))
	b.Table(1, 1)
	b.Memory(1, 2)
	b.Global(wasmtest.I64, true, wasmtest.I64Const(-1))
	b.Export("main", wasm.KindFunc, main)
	b.Export("memory", wasm.KindMemory, 0)
	b.Start(main)
	b.Element(wasmtest.I32Const(0), main)
	b.DataCount(1)
	b.Data(wasmtest.GlobalGet(0), []byte("data"))
	b.FuncName(main+1, "add_local")
	b.Custom("meta", []byte{1, 2, 3})
	return b
}

// Every prefix that ends inside the header or inside a section must fail
// with a stream overrun. Prefixes ending on a section boundary are
// well-formed modules with fewer sections and may decode.
func TestTruncatedModule(t *testing.T) {
	b := richModule()
	data := b.Bytes()
	mustParse(t, data)

	boundaries := map[int]bool{8: true}
	w := wasmtest.Header()
	for _, s := range b.Sections() {
		w.Section(s.ID, s.Payload)
		boundaries[w.Len()] = true
	}
	if w.Len() != len(data) {
		t.Fatalf("section boundaries do not cover module: %d != %d", w.Len(), len(data))
	}

	for n := 0; n < len(data); n++ {
		prefix := data[:n:n]
		m, err := wasm.ParseModule(nil, prefix)
		if boundaries[n] {
			continue
		}
		if err == nil || m != nil {
			t.Fatalf("prefix %d: expected error, got module", n)
		}
		if !errors.Is(err, wasm.ErrStreamOverrun) {
			t.Errorf("prefix %d: expected stream overrun, got %v", n, err)
		}
	}
}

func FuzzParseModule(f *testing.F) {
	f.Add(richModule().Bytes())
	f.Add(wasmtest.Header().Bytes())
	f.Add([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x0F})

	f.Fuzz(func(t *testing.T, data []byte) {
		env := wasm.NewEnvironment()
		m, err := env.ParseModule(data)
		if err != nil {
			if m != nil {
				t.Fatal("module returned with error")
			}
			if env.Types.Len() != 0 {
				t.Fatal("failed decode registered types")
			}
			return
		}
		for i := range m.Functions {
			if m.Signature(uint32(i)) == nil {
				t.Fatalf("function %d has no signature", i)
			}
		}
		for _, seg := range m.DataSegments {
			if int(seg.Data.Offset())+int(seg.Data.Len()) > len(data) {
				t.Fatal("data view outside input")
			}
		}
	})
}
