package wasmhost

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/refcount"
	"github.com/wippyai/refcount/resource"
)

type texture struct {
	refcount.Object
	freed *atomic.Int32
}

func (t *texture) Drop() { t.freed.Add(1) }

// setup instantiates the host module and a forwarder guest over it.
// Calls go through the guest since host module exports are not callable.
func setup(t *testing.T) (context.Context, api.Module, *resource.Table) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	table := resource.NewTable()
	t.Cleanup(func() { table.Close() })

	if _, err := Instantiate(ctx, rt, table); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	guest, err := InstantiateForwarder(ctx, rt, DefaultOptions())
	if err != nil {
		t.Fatalf("InstantiateForwarder: %v", err)
	}
	return ctx, guest, table
}

func call(t *testing.T, ctx context.Context, guest api.Module, name string, h uint32) uint32 {
	t.Helper()
	fn := guest.ExportedFunction(name)
	if fn == nil {
		t.Fatalf("export %q missing", name)
	}
	res, err := fn.Call(ctx, api.EncodeU32(h))
	if err != nil {
		t.Fatalf("%s(%d): %v", name, h, err)
	}
	return api.DecodeU32(res[0])
}

func insert(t *testing.T, table *resource.Table) (uint32, *atomic.Int32) {
	t.Helper()
	freed := &atomic.Int32{}
	h, err := table.InsertShared(1, refcount.New[refcount.Managed](&texture{freed: freed}))
	if err != nil {
		t.Fatal(err)
	}
	return uint32(h), freed
}

func TestHost_Exports(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := newBuilder(rt, resource.NewTable(), DefaultModuleName).Compile(ctx)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defs := compiled.ExportedFunctions()
	if len(defs) != len(Exports()) {
		t.Fatalf("exported %d functions, want %d", len(defs), len(Exports()))
	}
	for _, name := range Exports() {
		def, ok := defs[name]
		if !ok {
			t.Fatalf("export %q missing", name)
		}
		if len(def.ParamTypes()) != 1 || def.ParamTypes()[0] != api.ValueTypeI32 {
			t.Errorf("%s params = %v", name, def.ParamTypes())
		}
		if len(def.ResultTypes()) != 1 || def.ResultTypes()[0] != api.ValueTypeI32 {
			t.Errorf("%s results = %v", name, def.ResultTypes())
		}
	}
}

func TestHost_Lifecycle(t *testing.T) {
	ctx, mod, table := setup(t)
	h, freed := insert(t, table)

	h2 := call(t, ctx, mod, "clone", h)
	if h2 == 0 || h2 == h {
		t.Fatalf("clone = %d", h2)
	}
	if n := call(t, ctx, mod, "count", h); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	w := call(t, ctx, mod, "downgrade", h)
	if w == 0 {
		t.Fatal("downgrade failed")
	}
	if n := call(t, ctx, mod, "weak_count", h); n != 1 {
		t.Fatalf("weak_count = %d, want 1", n)
	}

	if call(t, ctx, mod, "drop", h) != 1 || call(t, ctx, mod, "drop", h2) != 1 {
		t.Fatal("drop failed")
	}
	if freed.Load() != 1 {
		t.Fatalf("target freed %d times, want 1", freed.Load())
	}
	if call(t, ctx, mod, "upgrade", w) != 0 {
		t.Fatal("upgrade of expired weak entry succeeded")
	}
	if call(t, ctx, mod, "count", w) != 0 {
		t.Fatal("expired weak entry reports owners")
	}
	if call(t, ctx, mod, "drop", w) != 1 {
		t.Fatal("drop of weak entry failed")
	}
	if table.Len() != 0 {
		t.Fatalf("Len = %d, want 0", table.Len())
	}
}

func TestHost_Upgrade(t *testing.T) {
	ctx, mod, table := setup(t)
	h, freed := insert(t, table)

	w := call(t, ctx, mod, "downgrade", h)
	up := call(t, ctx, mod, "upgrade", w)
	if up == 0 {
		t.Fatal("upgrade of live target failed")
	}
	call(t, ctx, mod, "drop", h)
	if freed.Load() != 0 {
		t.Fatal("upgraded entry did not keep target alive")
	}
	call(t, ctx, mod, "drop", up)
	if freed.Load() != 1 {
		t.Fatal("target not freed")
	}
}

func TestHost_Borrow(t *testing.T) {
	ctx, mod, table := setup(t)
	h, freed := insert(t, table)

	if call(t, ctx, mod, "borrow", h) != 1 {
		t.Fatal("borrow failed")
	}
	if call(t, ctx, mod, "drop", h) != 0 {
		t.Fatal("drop of borrowed entry succeeded")
	}
	if call(t, ctx, mod, "return_borrow", h) != 1 {
		t.Fatal("return_borrow failed")
	}
	if call(t, ctx, mod, "return_borrow", h) != 0 {
		t.Fatal("unbalanced return_borrow succeeded")
	}
	if call(t, ctx, mod, "drop", h) != 1 || freed.Load() != 1 {
		t.Fatal("drop after return failed")
	}
}

func TestHost_InvalidHandles(t *testing.T) {
	ctx, mod, _ := setup(t)
	for _, name := range Exports() {
		for _, h := range []uint32{0, 42} {
			if got := call(t, ctx, mod, name, h); got != 0 {
				t.Errorf("%s(%d) = %d, want 0", name, h, got)
			}
		}
	}
}

// guestDup is a module importing refcount.clone and exporting
// dup(i32) -> i32, which forwards to it:
//
//	(module
//	  (import "refcount" "clone" (func $clone (param i32) (result i32)))
//	  (func (export "dup") (param i32) (result i32)
//	    local.get 0
//	    call $clone))
var guestDup = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32) -> i32
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f,
	// import section: refcount.clone, func type 0
	0x02, 0x12, 0x01,
	0x08, 'r', 'e', 'f', 'c', 'o', 'u', 'n', 't',
	0x05, 'c', 'l', 'o', 'n', 'e',
	0x00, 0x00,
	// function section: one func of type 0
	0x03, 0x02, 0x01, 0x00,
	// export section: "dup" -> func 1
	0x07, 0x07, 0x01, 0x03, 'd', 'u', 'p', 0x00, 0x01,
	// code section
	0x0a, 0x08, 0x01, 0x06, 0x00, 0x20, 0x00, 0x10, 0x00, 0x0b,
}

func TestHost_GuestImport(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	table := resource.NewTable()
	defer table.Close()
	if _, err := Instantiate(ctx, rt, table); err != nil {
		t.Fatal(err)
	}

	guest, err := rt.Instantiate(ctx, guestDup)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}

	h, freed := insert(t, table)
	res, err := guest.ExportedFunction("dup").Call(ctx, api.EncodeU32(h))
	if err != nil {
		t.Fatalf("dup: %v", err)
	}
	h2 := resource.Handle(api.DecodeU32(res[0]))
	if h2 == 0 {
		t.Fatal("guest clone failed")
	}
	if table.Count(h2) != 2 {
		t.Fatalf("Count = %d, want 2", table.Count(h2))
	}

	table.Drop(resource.Handle(h))
	table.Drop(h2)
	if freed.Load() != 1 {
		t.Fatal("target not freed after both entries dropped")
	}
}

func TestInstantiate_Options(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Instantiate(ctx, rt, nil); err == nil {
		t.Fatal("nil table accepted")
	}

	table := resource.NewTable()
	mod, err := InstantiateWithOptions(ctx, rt, table, Options{ModuleName: "rc2"})
	if err != nil {
		t.Fatal(err)
	}
	if mod.Name() != "rc2" {
		t.Fatalf("module name = %q", mod.Name())
	}
	if _, err := InstantiateWithOptions(ctx, rt, table, Options{ModuleName: "rc2"}); err == nil {
		t.Fatal("duplicate module name accepted")
	}
}

func TestForwarder_Encoding(t *testing.T) {
	got := Forwarder("refcount", []string{"clone"})
	want := append([]byte(nil), guestDup[:len(guestDup)-19]...)
	want = append(want,
		0x07, 0x09, 0x01, 0x05, 'c', 'l', 'o', 'n', 'e', 0x00, 0x01,
		0x0a, 0x08, 0x01, 0x06, 0x00, 0x20, 0x00, 0x10, 0x00, 0x0b,
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("Forwarder =\n% x\nwant\n% x", got, want)
	}
}

func TestForwarder_CallIndexAbove127(t *testing.T) {
	names := make([]string, 130)
	for i := range names {
		names[i] = fmt.Sprintf("f%d", i)
	}
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	builder := rt.NewHostModuleBuilder("wide")
	for i, name := range names {
		v := uint32(i)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				stack[0] = api.EncodeU32(api.DecodeU32(stack[0]) + v)
			}), i32, i32).
			Export(name)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		t.Fatal(err)
	}
	guest, err := rt.Instantiate(ctx, Forwarder("wide", names))
	if err != nil {
		t.Fatalf("instantiate forwarder: %v", err)
	}
	res, err := guest.ExportedFunction("f129").Call(ctx, api.EncodeU32(1))
	if err != nil {
		t.Fatal(err)
	}
	if got := api.DecodeU32(res[0]); got != 130 {
		t.Fatalf("f129(1) = %d, want 130", got)
	}
}

func TestInstantiateForwarder_RequiresHostModule(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := InstantiateForwarder(ctx, rt, DefaultOptions()); err == nil {
		t.Fatal("forwarder instantiated without its host module")
	}

	table := resource.NewTable()
	defer table.Close()
	opts := Options{ModuleName: "rc3"}
	if _, err := InstantiateWithOptions(ctx, rt, table, opts); err != nil {
		t.Fatal(err)
	}
	guest, err := InstantiateForwarder(ctx, rt, opts)
	if err != nil {
		t.Fatalf("InstantiateForwarder: %v", err)
	}
	if guest.Name() != "rc3.guest" {
		t.Fatalf("guest name = %q", guest.Name())
	}
	h, _ := insert(t, table)
	if n := call(t, ctx, guest, "count", h); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}
