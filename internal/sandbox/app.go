package sandbox

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/ssnover/megabit/internal/hostconn"
	"github.com/ssnover/megabit/internal/mgerr"
	"github.com/ssnover/megabit/internal/screen"
	"github.com/ssnover/megabit/pkg/log"
)

// App is one loaded, instantiated guest binary plus the capability
// host bridging it to the screen buffer, transport, and its own
// key-value store. An App owns its wazero runtime exclusively; no two
// Apps share a runtime, so a trap in one never touches another's
// compiled module.
type App struct {
	manifest Manifest
	runtime  wazero.Runtime
	module   api.Module
	caps     *Capabilities
}

// Load compiles manifest's binary and instantiates it against a fresh
// capability host scoped to that app alone. The returned App has not
// yet had Setup called.
func Load(ctx context.Context, m Manifest, buf *screen.Buffer, conn *hostconn.Conn, events EventPublisher, logger log.Logger) (*App, error) {
	wasmBytes, err := os.ReadFile(m.BinPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", mgerr.ErrLoadFailure, m.BinPath, err)
	}

	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("%w: instantiating WASI for %s: %v", mgerr.ErrLoadFailure, m.Name, err)
	}

	caps := newCapabilities(m.Name, buf, conn, events, logger)
	if _, err := caps.instantiateHostModule(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("%w: registering capability host for %s: %v", mgerr.ErrLoadFailure, m.Name, err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("%w: compiling %s: %v", mgerr.ErrLoadFailure, m.BinPath, err)
	}

	modCfg := wazero.NewModuleConfig().WithName(m.Name).WithStdout(os.Stdout).WithStderr(os.Stderr)
	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("%w: instantiating %s: %v", mgerr.ErrLoadFailure, m.BinPath, err)
	}

	if mod.ExportedFunction("setup") == nil || mod.ExportedFunction("run") == nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("%w: %s does not export setup and run", mgerr.ErrLoadFailure, m.BinPath)
	}

	return &App{manifest: m, runtime: rt, module: mod, caps: caps}, nil
}

// Name is the manifest's display name.
func (a *App) Name() string { return a.manifest.Name }

// RefreshPeriod is the interval the scheduler should call Run at.
func (a *App) RefreshPeriod() time.Duration { return a.manifest.RefreshPeriod }

// Digest is the content hash of the loaded binary, for log lines.
func (a *App) Digest() uint64 { return a.manifest.Digest }

// Setup invokes the guest's setup() once. A panic raised by any
// capability function during the call surfaces here as
// mgerr.ErrSandboxTrap.
func (a *App) Setup(ctx context.Context) error {
	return a.call(ctx, "setup")
}

// Run invokes the guest's run() once.
func (a *App) Run(ctx context.Context) error {
	return a.call(ctx, "run")
}

func (a *App) call(ctx context.Context, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", mgerr.ErrSandboxTrap, r)
		}
	}()
	if _, callErr := a.module.ExportedFunction(name).Call(ctx); callErr != nil {
		return fmt.Errorf("%w: %v", mgerr.ErrSandboxTrap, callErr)
	}
	return nil
}

// Close releases the wazero runtime and everything compiled into it.
func (a *App) Close(ctx context.Context) error {
	return a.runtime.Close(ctx)
}
