package inspect

import (
	"cmp"
	"context"
	"io"
	"os"
	"slices"
	"sort"
	"sync"

	"fortio.org/safecast"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/errors"
	"github.com/wippyai/wasm-nucleus/guest"
)

const wasiModule = "wasi_snapshot_preview1"

// Options configures module loading.
type Options struct {
	// MemoryLimitPages caps guest memory in 64KiB pages. Zero keeps the
	// runtime default.
	MemoryLimitPages uint32
	// Stdout and Stderr receive the guest's WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Export is a module export that invokes an exposed function.
type Export struct {
	Name     string
	Kind     abi.Kind
	Function string
}

// Module is an instantiated guest module. Calls are serialized.
type Module struct {
	runtime  wazero.Runtime
	instance api.Module
	mem      memory
	exports  []Export
	stubbed  []string

	mu sync.Mutex
}

// LoadFile reads and loads the module at path.
func LoadFile(ctx context.Context, path string, opts Options) (*Module, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseInspect, "read", path, err)
	}
	return Load(ctx, wasm, opts)
}

// Load compiles and instantiates a guest module. WASI preview1 is provided;
// any other import is bound to a stub that fails when called, so modules
// written against a richer host can still be inspected.
func Load(ctx context.Context, wasm []byte, opts Options) (*Module, error) {
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if opts.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(opts.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, cfg)

	m, err := load(ctx, r, wasm, opts)
	if err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	return m, nil
}

func load(ctx context.Context, r wazero.Runtime, wasm []byte, opts Options) (*Module, error) {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return nil, errors.Instantiation(err)
	}

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInspect, errors.KindInvalidData, err, "compile module")
	}

	stubbed, err := stubImports(ctx, r, compiled)
	if err != nil {
		return nil, err
	}

	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")
	if opts.Stdout != nil {
		modCfg = modCfg.WithStdout(opts.Stdout)
	}
	if opts.Stderr != nil {
		modCfg = modCfg.WithStderr(opts.Stderr)
	}

	instance, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	if instance.Memory() == nil {
		return nil, errors.NotFound(errors.PhaseInspect, "memory", "memory")
	}

	m := &Module{
		runtime:  r,
		instance: instance,
		mem:      memory{mem: instance.Memory()},
		exports:  classify(compiled.ExportedFunctions()),
		stubbed:  stubbed,
	}
	Logger().Debug("module loaded",
		zap.Int("exports", len(m.exports)),
		zap.Strings("stubbed", stubbed))
	return m, nil
}

// stubImports binds every non-WASI function import to a function that
// fails the call. It returns the stubbed names as module.name.
func stubImports(ctx context.Context, r wazero.Runtime, compiled wazero.CompiledModule) ([]string, error) {
	byModule := make(map[string][]api.FunctionDefinition)
	for _, def := range compiled.ImportedFunctions() {
		mod, _, _ := def.Import()
		if mod == wasiModule {
			continue
		}
		byModule[mod] = append(byModule[mod], def)
	}

	modules := make([]string, 0, len(byModule))
	for mod := range byModule {
		modules = append(modules, mod)
	}
	sort.Strings(modules)

	var stubbed []string
	for _, mod := range modules {
		builder := r.NewHostModuleBuilder(mod)
		for _, def := range byModule[mod] {
			_, name, _ := def.Import()
			builder.NewFunctionBuilder().
				WithGoModuleFunction(unresolved(mod, name), def.ParamTypes(), def.ResultTypes()).
				Export(name)
			stubbed = append(stubbed, mod+"."+name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return nil, errors.Instantiation(err)
		}
	}
	return stubbed, nil
}

func unresolved(mod, name string) api.GoModuleFunc {
	return func(context.Context, api.Module, []uint64) {
		panic(errors.New(errors.PhaseCall, errors.KindUnsupported).
			Detail("host function %s.%s is not available during inspection", mod, name).
			Build())
	}
}

func classify(defs map[string]api.FunctionDefinition) []Export {
	var out []Export
	for name := range defs {
		kind, fn, ok := abi.ParseExportName(name)
		if !ok {
			continue
		}
		out = append(out, Export{Name: name, Kind: kind, Function: fn})
	}
	slices.SortFunc(out, func(a, b Export) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Exports returns the function exports in name order.
func (m *Module) Exports() []Export {
	return slices.Clone(m.exports)
}

// Stubbed returns the imports bound to failing stubs, as module.name.
func (m *Module) Stubbed() []string {
	return slices.Clone(m.stubbed)
}

// ABI calls __nucleus_abi and decodes the published schema.
func (m *Module) ABI(ctx context.Context) (abi.PortableSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results, err := m.call(ctx, abi.ExportABI)
	if err != nil {
		return abi.PortableSchema{}, err
	}
	addr, err := address(abi.ExportABI, results)
	if err != nil {
		return abi.PortableSchema{}, err
	}
	frame, err := m.takeFrame(ctx, addr)
	if err != nil {
		return abi.PortableSchema{}, err
	}
	return guest.ReadABI(frame)
}

// Call invokes the get, post or timer function name with SCALE-encoded
// arguments and returns the SCALE-encoded return value. A failure reported
// by the function comes back as *guest.CallError.
func (m *Module) Call(ctx context.Context, kind abi.Kind, name string, args []byte) ([]byte, error) {
	if !kind.HasReturn() {
		return nil, errors.InvalidInput(errors.PhaseCall, kind.String()+" functions do not return a result frame")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	export := kind.ExportName(name)
	results, err := m.callWithInput(ctx, export, args)
	if err != nil {
		return nil, err
	}
	addr, err := address(export, results)
	if err != nil {
		return nil, err
	}
	frame, err := m.takeFrame(ctx, addr)
	if err != nil {
		return nil, err
	}
	Logger().Debug("call",
		zap.String("export", export),
		zap.Int("args", len(args)),
		zap.Int("frame", len(frame)))
	return guest.ReadReply(frame)
}

// Callback delivers an encoded HTTP response to the callback function.
func (m *Module) Callback(ctx context.Context, args []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.callWithInput(ctx, abi.Callback.ExportName(""), args)
	return err
}

// Init runs the module's init function.
func (m *Module) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.call(ctx, abi.Init.ExportName(""))
	return err
}

// Close releases the runtime and everything instantiated in it.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

func (m *Module) call(ctx context.Context, export string, params ...uint64) ([]uint64, error) {
	fn := m.instance.ExportedFunction(export)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseCall, "export", export)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.New(errors.PhaseCall, errors.KindTrap).
			Detail("call %s", export).
			Cause(err).
			Build()
	}
	return results, nil
}

// callWithInput copies input into a guest buffer, calls export with it and
// frees the buffer afterwards.
func (m *Module) callWithInput(ctx context.Context, export string, input []byte) ([]uint64, error) {
	size, err := safecast.Conv[uint32](len(input))
	if err != nil {
		return nil, errors.Overflow(errors.PhaseCall, []string{"input"}, len(input), "u32")
	}
	res, err := m.call(ctx, abi.ExportAlloc, uint64(size))
	if err != nil {
		return nil, err
	}
	ptr, err := address(abi.ExportAlloc, res)
	if err != nil {
		return nil, err
	}
	defer m.free(ctx, ptr)

	if err := m.mem.write(ptr, input); err != nil {
		return nil, err
	}
	return m.call(ctx, export, uint64(ptr), uint64(size))
}

// address reads the single i32 result of export.
func address(export string, results []uint64) (uint32, error) {
	if len(results) != 1 {
		return 0, errors.New(errors.PhaseCall, errors.KindTypeMismatch).
			Detail("%s returned %d values, want one address", export, len(results)).
			Build()
	}
	return api.DecodeU32(results[0]), nil
}

// takeFrame copies the frame at addr out of guest memory and frees it.
func (m *Module) takeFrame(ctx context.Context, addr uint32) ([]byte, error) {
	defer m.free(ctx, addr)
	return m.mem.frame(addr)
}

func (m *Module) free(ctx context.Context, addr uint32) {
	if _, err := m.call(ctx, abi.ExportFree, uint64(addr)); err != nil {
		Logger().Warn("free guest buffer", zap.Uint32("addr", addr), zap.Error(err))
	}
}

// Missing returns the schema functions that have no matching export.
func (m *Module) Missing(schema abi.PortableSchema) []string {
	have := make(map[string]bool, len(m.exports))
	for _, e := range m.exports {
		have[e.Name] = true
	}
	var missing []string
	for _, fn := range schema.Functions {
		if name := fn.Kind.ExportName(fn.Name); !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
