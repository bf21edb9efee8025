package guest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
	billy "gopkg.in/src-d/go-billy.v4"

	helloelement "github.com/wippyai/hello-element"
	"github.com/wippyai/hello-element/abi"
	"github.com/wippyai/hello-element/errors"
)

const wasiModule = wasi_snapshot_preview1.ModuleName

// Config holds configuration for engine creation
type Config struct {
	// Logger receives engine and guest logs. nil uses Logger().
	Logger *zap.Logger

	// MemoryLimitPages sets the maximum memory per guest in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// Engine runs guests on a shared wazero runtime. It owns the env host
// module and routes its calls to the component that made them.
type Engine struct {
	runtime    wazero.Runtime
	log        *zap.Logger
	compiled   map[string]wazero.CompiledModule
	components sync.Map // instance name -> *Component
	seq        atomic.Uint64
	compileMu  sync.Mutex
	wasiMu     sync.Mutex
	wasiDone   bool
}

// NewEngine creates an engine and instantiates the env host module.
func NewEngine(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	log := Logger()
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}

	e := &Engine{
		runtime:  wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		log:      log,
		compiled: make(map[string]wazero.CompiledModule),
	}

	_, err := e.runtime.NewHostModuleBuilder(abi.ImportModule).
		NewFunctionBuilder().WithFunc(e.platformWrite).Export(abi.ImportWrite).
		NewFunctionBuilder().WithFunc(e.platformRerender).Export(abi.ImportRerender).
		Instantiate(ctx)
	if err != nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Wrap(errors.PhaseHost, errors.KindRegistration, err, "instantiate env host module")
	}

	return e, nil
}

// Close releases the runtime and every guest instantiated on it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Component returns an uninitialized component for the module at path,
// resolved against fs.
func (e *Engine) Component(fs billy.Filesystem, path string, opts ...Option) *Component {
	c := &Component{
		engine: e,
		fs:     fs,
		path:   path,
		log:    e.log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("module", path))
	return c
}

// Loader returns a helloelement.Loader that creates components on this engine.
func (e *Engine) Loader(fs billy.Filesystem, opts ...Option) helloelement.Loader {
	return func(path string) helloelement.Component {
		return e.Component(fs, path, opts...)
	}
}

func (e *Engine) compile(ctx context.Context, wasm []byte) (wazero.CompiledModule, error) {
	sum := sha256.Sum256(wasm)
	key := hex.EncodeToString(sum[:])

	e.compileMu.Lock()
	defer e.compileMu.Unlock()

	if cm, ok := e.compiled[key]; ok {
		return cm, nil
	}
	cm, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, err
	}
	e.compiled[key] = cm
	e.log.Debug("compiled guest", zap.String("sha256", key[:12]))
	return cm, nil
}

// resolveImports instantiates WASI when the guest needs it and reports
// imports nothing provides.
func (e *Engine) resolveImports(ctx context.Context, cm wazero.CompiledModule) error {
	var missing []string
	needsWASI := false
	for _, def := range cm.ImportedFunctions() {
		mod, name, _ := def.Import()
		switch mod {
		case wasiModule:
			needsWASI = true
		case abi.ImportModule:
			if name != abi.ImportWrite && name != abi.ImportRerender {
				missing = append(missing, mod+"#"+name)
			}
		default:
			missing = append(missing, mod+"#"+name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.NewMissingImportsError(missing)
	}
	if needsWASI {
		return e.initWASI(ctx)
	}
	return nil
}

func (e *Engine) initWASI(ctx context.Context) error {
	e.wasiMu.Lock()
	defer e.wasiMu.Unlock()

	if e.wasiDone {
		return nil
	}
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		return errors.Wrap(errors.PhaseInit, errors.KindInstantiation, err, "instantiate WASI preview1")
	}
	e.wasiDone = true
	return nil
}

// Instances returns the number of live guest instances on the engine.
func (e *Engine) Instances() int {
	n := 0
	e.components.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (e *Engine) nextName() string {
	return fmt.Sprintf("hello-%d", e.seq.Add(1))
}

func (e *Engine) caller(m api.Module) *Component {
	if m == nil {
		return nil
	}
	v, ok := e.components.Load(m.Name())
	if !ok {
		return nil
	}
	return v.(*Component)
}

func (e *Engine) platformWrite(_ context.Context, m api.Module, ptr, length uint32) {
	c := e.caller(m)
	if c == nil {
		e.log.Warn("platform_write from unknown guest", zap.String("instance", m.Name()))
		return
	}
	buf, ok := m.Memory().Read(ptr, length)
	if !ok {
		c.log.Warn("platform_write out of range", zap.Uint32("ptr", ptr), zap.Uint32("len", length))
		return
	}
	c.write(buf)
}

func (e *Engine) platformRerender(_ context.Context, m api.Module) {
	c := e.caller(m)
	if c == nil {
		e.log.Warn("platform_rerender from unknown guest", zap.String("instance", m.Name()))
		return
	}
	c.requestRerender()
}

// FuncInfo describes one imported or exported guest function.
type FuncInfo struct {
	Module  string
	Name    string
	Params  []string
	Results []string
}

func (f FuncInfo) String() string {
	name := f.Name
	if f.Module != "" {
		name = f.Module + "." + f.Name
	}
	sig := fmt.Sprintf("%s(%s)", name, strings.Join(f.Params, ", "))
	if len(f.Results) > 0 {
		sig += " -> " + strings.Join(f.Results, ", ")
	}
	return sig
}

// Inspect compiles the module at path and lists its imports and exports.
func (e *Engine) Inspect(ctx context.Context, fs billy.Filesystem, path string) (imports, exports []FuncInfo, err error) {
	wasm, err := ReadFile(fs, path)
	if err != nil {
		return nil, nil, err
	}
	cm, err := e.compile(ctx, wasm)
	if err != nil {
		return nil, nil, errors.Load("compile "+path, err)
	}

	for _, def := range cm.ImportedFunctions() {
		mod, name, _ := def.Import()
		imports = append(imports, describe(mod, name, def))
	}
	for name, def := range cm.ExportedFunctions() {
		exports = append(exports, describe("", name, def))
	}
	sort.Slice(exports, func(i, j int) bool { return exports[i].Name < exports[j].Name })
	return imports, exports, nil
}

func describe(mod, name string, def api.FunctionDefinition) FuncInfo {
	fi := FuncInfo{Module: mod, Name: name}
	for _, t := range def.ParamTypes() {
		fi.Params = append(fi.Params, api.ValueTypeName(t))
	}
	for _, t := range def.ResultTypes() {
		fi.Results = append(fi.Results, api.ValueTypeName(t))
	}
	return fi
}
