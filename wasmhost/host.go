package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/refcount"
	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/resource"
)

// DefaultModuleName is the import module name guests use.
const DefaultModuleName = "refcount"

// Options configures the host module.
type Options struct {
	// ModuleName overrides DefaultModuleName.
	ModuleName string
}

// DefaultOptions returns the default host module configuration.
func DefaultOptions() Options {
	return Options{ModuleName: DefaultModuleName}
}

// Instantiate builds the host module over table with default options.
func Instantiate(ctx context.Context, rt wazero.Runtime, table *resource.Table) (api.Module, error) {
	return InstantiateWithOptions(ctx, rt, table, DefaultOptions())
}

// InstantiateWithOptions builds the host module over table.
func InstantiateWithOptions(ctx context.Context, rt wazero.Runtime, table *resource.Table, opts Options) (api.Module, error) {
	if table == nil {
		return nil, errors.InvalidInput(errors.PhaseHost, "nil table")
	}
	name := opts.ModuleName
	if name == "" {
		name = DefaultModuleName
	}

	mod, err := newBuilder(rt, table, name).Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "instantiate host module "+name)
	}
	return mod, nil
}

// Exports returns the names of the host functions, each (i32) -> i32.
// Host module functions are reachable only through a guest import;
// see Forwarder.
func Exports() []string {
	return append([]string(nil), exportNames...)
}

var exportNames = []string{"clone", "drop", "downgrade", "upgrade", "count", "weak_count", "borrow", "return_borrow"}

var i32 = []api.ValueType{api.ValueTypeI32}

func newBuilder(rt wazero.Runtime, table *resource.Table, name string) wazero.HostModuleBuilder {
	h := &host{table: table}
	builder := rt.NewHostModuleBuilder(name)
	for _, f := range h.funcs() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, i32, i32).
			WithParameterNames("handle").
			Export(f.name)
	}
	return builder
}

type hostFunc struct {
	name string
	fn   api.GoModuleFunc
}

type host struct {
	table *resource.Table
}

func (h *host) funcs() []hostFunc {
	return []hostFunc{
		{"clone", h.handleOp("clone", h.table.Clone)},
		{"drop", h.statusOp("drop", h.table.Drop)},
		{"downgrade", h.handleOp("downgrade", h.table.Downgrade)},
		{"upgrade", h.handleOp("upgrade", h.table.Upgrade)},
		{"count", h.count},
		{"weak_count", h.weakCount},
		{"borrow", h.statusOp("borrow", h.table.Borrow)},
		{"return_borrow", h.statusOp("return_borrow", h.table.ReturnBorrow)},
	}
}

// handleOp adapts a table operation that yields a new handle.
func (h *host) handleOp(name string, op func(resource.Handle) (resource.Handle, error)) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		in := resource.Handle(api.DecodeU32(stack[0]))
		out, err := op(in)
		if err != nil {
			logFailure(name, in, err)
			out = 0
		}
		stack[0] = api.EncodeU32(uint32(out))
	}
}

// statusOp adapts a table operation that succeeds or fails, returning 1 or 0.
func (h *host) statusOp(name string, op func(resource.Handle) error) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		in := resource.Handle(api.DecodeU32(stack[0]))
		var ok uint32
		if err := op(in); err != nil {
			logFailure(name, in, err)
		} else {
			ok = 1
		}
		stack[0] = api.EncodeU32(ok)
	}
}

func (h *host) count(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeU32(h.table.Count(resource.Handle(api.DecodeU32(stack[0]))))
}

func (h *host) weakCount(ctx context.Context, mod api.Module, stack []uint64) {
	n := h.table.WeakCount(resource.Handle(api.DecodeU32(stack[0])))
	if n < 0 {
		n = 0
	}
	stack[0] = api.EncodeU32(uint32(n))
}

func logFailure(op string, h resource.Handle, err error) {
	if ce := refcount.Logger().Check(zap.DebugLevel, "host call failed"); ce != nil {
		ce.Write(zap.String("op", op), zap.Uint32("handle", uint32(h)), zap.Error(err))
	}
}
