package wasm_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/birdhello/wasm3/wasm"
	"github.com/birdhello/wasm3/wasm/wasmtest"
)

func TestTypeTableRegister(t *testing.T) {
	table := wasm.NewTypeTable()
	a := &wasm.FuncType{Types: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, NumRets: 1, NumArgs: 1}
	b := &wasm.FuncType{Types: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, NumRets: 1, NumArgs: 1}
	c := &wasm.FuncType{Types: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, NumArgs: 2}

	ha := table.Register(a)
	hb := table.Register(b)
	hc := table.Register(c)
	if ha != hb {
		t.Errorf("equal signatures got handles %d and %d", ha, hb)
	}
	if ha == hc {
		t.Error("distinct signatures share a handle")
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}
	if !table.Lookup(hc).Equal(c) {
		t.Errorf("Lookup(%d) = %v", hc, table.Lookup(hc))
	}
	if table.Lookup(99) != nil {
		t.Error("Lookup of unknown handle returned a signature")
	}
}

func TestTypeInterningAcrossModules(t *testing.T) {
	env := wasm.NewEnvironment()

	build := func(params ...byte) []byte {
		b := wasmtest.New()
		b.Type(params, []byte{wasmtest.I32})
		b.Type(nil, nil)
		return b.Bytes()
	}

	m1, err := env.ParseModule(build(wasmtest.I32))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	m2, err := env.ParseModule(build(wasmtest.I32))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if env.Types.Len() != 2 {
		t.Errorf("Types.Len = %d, want 2", env.Types.Len())
	}
	for i := range m1.FuncTypes {
		if m1.FuncTypes[i] != m2.FuncTypes[i] {
			t.Errorf("FuncTypes[%d]: %d != %d", i, m1.FuncTypes[i], m2.FuncTypes[i])
		}
	}
	if m1.FuncType(0) != m2.FuncType(0) {
		t.Error("equal signatures resolve to different values")
	}
	if m1.Environment() != env {
		t.Error("module not bound to its environment")
	}

	if _, err := env.ParseModule(build(wasmtest.F64)); err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if env.Types.Len() != 3 {
		t.Errorf("Types.Len = %d, want 3", env.Types.Len())
	}
}

func TestFailedDecodeLeavesTypesUntouched(t *testing.T) {
	env := wasm.NewEnvironment()

	b := wasmtest.New()
	b.Type([]byte{wasmtest.I64}, nil)
	if _, err := env.ParseModule(b.Bytes()); err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	before := env.Types.Len()

	bad := wasmtest.New()
	bad.Type([]byte{wasmtest.F32, wasmtest.F32}, nil)
	bad.Type(nil, []byte{wasmtest.F64})
	bad.Export("missing", wasm.KindFunc, 7)
	m, err := env.ParseModule(bad.Bytes())
	if err == nil || m != nil {
		t.Fatalf("expected failure, got %v, %v", m, err)
	}
	if got := env.Types.Len(); got != before {
		t.Errorf("Types.Len = %d after failed decode, want %d", got, before)
	}
}

func TestConcurrentDecode(t *testing.T) {
	env := wasm.NewEnvironment()
	params := [][]byte{nil, {wasmtest.I32}, {wasmtest.I64}, {wasmtest.I32, wasmtest.I64}}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := wasmtest.New()
			sig := b.Type(params[i%len(params)], nil)
			b.Func(sig, wasmtest.Body())
			m, err := env.ParseModule(b.Bytes())
			if err != nil {
				errs <- err
				return
			}
			if m.Signature(0) == nil {
				errs <- fmt.Errorf("module %d: missing signature", i)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if env.Types.Len() != len(params) {
		t.Errorf("Types.Len = %d, want %d", env.Types.Len(), len(params))
	}
}

func TestCustomSectionHandler(t *testing.T) {
	var gotName string
	var gotPayload []byte
	env := wasm.NewEnvironmentWithConfig(&wasm.Config{
		CustomSectionHandler: func(m *wasm.Module, name string, payload wasm.View) error {
			gotName = name
			gotPayload = payload.Bytes()
			return nil
		},
	})

	b := wasmtest.New()
	b.Custom("producers", []byte{0xDE, 0xAD})
	if _, err := env.ParseModule(b.Bytes()); err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if gotName != "producers" || string(gotPayload) != "\xde\xad" {
		t.Errorf("handler saw %q %x", gotName, gotPayload)
	}

	reject := errors.New("unsupported section")
	env.SetCustomSectionHandler(func(*wasm.Module, string, wasm.View) error { return reject })
	_, err := env.ParseModule(b.Bytes())
	if !errors.Is(err, wasm.ErrCustomSection) {
		t.Fatalf("expected ErrCustomSection, got %v", err)
	}
	if !errors.Is(err, reject) {
		t.Errorf("handler error not wrapped: %v", err)
	}

	env.SetCustomSectionHandler(nil)
	if _, err := env.ParseModule(b.Bytes()); err != nil {
		t.Errorf("ParseModule without handler: %v", err)
	}
}

func TestNameSection(t *testing.T) {
	b := wasmtest.New()
	sig := b.Type(nil, nil)
	b.ImportFunc("env", "host", sig)
	exported := b.Func(sig, wasmtest.Body())
	internal := b.Func(sig, wasmtest.Body())
	b.Export("main", wasm.KindFunc, exported)
	b.FuncName(0, "host_fn")
	b.FuncName(exported, "debug_main")
	b.FuncName(internal, "helper")
	b.FuncName(internal, "helper_again")
	b.FuncName(42, "ghost")
	m := mustParse(t, b.Bytes())

	tests := []struct {
		want  []string
		index uint32
	}{
		{index: 0, want: []string{"host_fn"}},
		{index: exported, want: []string{"main"}},
		{index: internal, want: []string{"helper"}},
	}
	for _, tt := range tests {
		got := m.Function(tt.index).Names
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("Function(%d).Names = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestNameSectionSkipsOtherSubsections(t *testing.T) {
	localNames := wasmtest.Concat([]byte{wasm.NameSubsectionLocal}, wasmtest.U32(3), []byte{0xFF, 0xFF, 0xFF})
	moduleName := wasmtest.Concat([]byte{wasm.NameSubsectionModule}, wasmtest.U32(4), wasmtest.Name("mod"))
	data := wasmtest.Raw(wasmtest.Section{
		ID:      wasm.SectionCustom,
		Payload: wasmtest.Concat(wasmtest.Name("name"), moduleName, localNames),
	})
	m := mustParse(t, data)
	if m.Name != wasm.DefaultModuleName {
		t.Errorf("Name = %q", m.Name)
	}

	truncated := wasmtest.Raw(wasmtest.Section{
		ID:      wasm.SectionCustom,
		Payload: wasmtest.Concat(wasmtest.Name("name"), []byte{wasm.NameSubsectionFunction}, wasmtest.U32(8), []byte{0x01}),
	})
	expectError(t, truncated, wasm.ErrStreamOverrun)
}

func TestDecoderLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	env := wasm.NewEnvironmentWithConfig(&wasm.Config{Logger: zap.New(core)})

	b := wasmtest.New()
	b.Func(b.Type(nil, nil), wasmtest.Body())
	b.Custom("ignored", nil)
	if _, err := env.ParseModule(b.Bytes()); err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	for _, msg := range []string{"load module", "section", "skipping custom section", "module loaded"} {
		if logs.FilterMessage(msg).Len() == 0 {
			t.Errorf("no %q log entry", msg)
		}
	}

	if _, err := env.ParseModule([]byte{0x00}); err == nil {
		t.Fatal("expected error")
	}
	if logs.FilterMessage("module rejected").Len() != 1 {
		t.Error("rejected module not logged")
	}
}

type sentinelBoundary struct{}

func (sentinelBoundary) Consume([]byte, int) (int, error) { return 0, wasm.ErrMalformed }

func TestBoundaryErrorLeavesSentinelIntact(t *testing.T) {
	before := wasm.ErrMalformed.Error()
	env := wasm.NewEnvironmentWithConfig(&wasm.Config{ConstExpr: sentinelBoundary{}})

	b := wasmtest.New()
	b.Global(wasmtest.I32, false, wasmtest.I32Const(1))
	_, err := env.ParseModule(b.Bytes())
	if !errors.Is(err, wasm.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if err == error(wasm.ErrMalformed) {
		t.Error("decoder returned the sentinel itself")
	}
	if got := wasm.ErrMalformed.Error(); got != before {
		t.Errorf("ErrMalformed changed: %q -> %q", before, got)
	}
}

func TestSetCustomSectionHandlerDuringDecode(t *testing.T) {
	env := wasm.NewEnvironment()
	b := wasmtest.New()
	b.Custom("producers", []byte{0x00})
	data := b.Bytes()
	accept := func(*wasm.Module, string, wasm.View) error { return nil }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			env.SetCustomSectionHandler(accept)
		}()
		go func() {
			defer wg.Done()
			if _, err := env.ParseModule(data); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}
