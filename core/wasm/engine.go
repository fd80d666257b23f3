// Package wasm hosts a WebAssembly document renderer as a core.Engine.
//
// The module is a WASI command that reads one JSON request per line on
// stdin and writes one JSON response per line on stdout:
//
//	{"id":1,"op":"register","name":"letter","bundle":{"files":{...}}}
//	{"id":2,"op":"render","markdown":"# Hi","format":"pdf","quillName":"letter"}
//	{"id":3,"op":"info","name":"letter"}
//
//	{"id":1}
//	{"id":2,"result":{"artifacts":[{"bytes":[37,80,68,70]}]}}
//	{"id":3,"result":{"supportedFormats":["pdf","svg"]}}
//
// A failed request carries {"id":n,"error":"message"}. Byte payloads in
// render results may be number arrays, base64 strings, or wrapped objects;
// they are left as decoded JSON for the export package to normalize.
package wasm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// Options configures Start.
type Options struct {
	// ModuleSource is the compiled .wasm binary.
	ModuleSource []byte
	// ModuleName defaults to "renderer".
	ModuleName string
	// PoolSize is the number of module instances; defaults to 1.
	PoolSize int
	// CompilationCache is shared across runtimes when set.
	CompilationCache wazero.CompilationCache
	// Stderr receives the module's stderr; defaults to os.Stderr.
	Stderr io.Writer
	Logger *slog.Logger
}

// Engine forwards Engine calls to pooled module instances. Templates are
// registered on every instance so any of them can render.
type Engine struct {
	pool   *pool
	ids    atomic.Uint32
	logger *slog.Logger
}

// Start compiles the module and launches PoolSize instances.
func Start(ctx context.Context, opts Options) (*Engine, error) {
	if len(opts.ModuleSource) == 0 {
		return nil, errors.New("module source is empty")
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}
	if opts.ModuleName == "" {
		opts.ModuleName = "renderer"
	}
	if opts.CompilationCache == nil {
		opts.CompilationCache = wazero.NewCompilationCache()
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	runtimeConfig := wazero.NewRuntimeConfig().WithCompilationCache(opts.CompilationCache)

	// Compile once up front so a bad module fails here; instances reuse the cache.
	probe := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	if _, err := probe.CompileModule(ctx, opts.ModuleSource); err != nil {
		probe.Close(ctx)
		return nil, fmt.Errorf("compiling %s: %w", opts.ModuleName, err)
	}
	probe.Close(ctx)

	p := &pool{dispatchers: make([]*dispatcher, 0, opts.PoolSize)}
	for i := 0; i < opts.PoolSize; i++ {
		d, err := startInstance(ctx, opts, runtimeConfig)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.dispatchers = append(p.dispatchers, d)
	}
	opts.Logger.Debug("started wasm engine", "module", opts.ModuleName, "instances", opts.PoolSize)
	return &Engine{pool: p, logger: opts.Logger}, nil
}

// startInstance runs one module instance in its own runtime. The instance
// lives until its stdin is closed.
func startInstance(ctx context.Context, opts Options, runtimeConfig wazero.RuntimeConfig) (*dispatcher, error) {
	r := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("instantiating WASI: %w", err)
	}
	compiled, err := r.CompileModule(ctx, opts.ModuleSource)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("compiling %s: %w", opts.ModuleName, err)
	}

	stdin, stdout := newPipe(), newPipe()
	config := wazero.NewModuleConfig().
		WithName(opts.ModuleName).
		WithStdin(stdin).
		WithStdout(stdout).
		WithStderr(opts.Stderr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.InstantiateModule(ctx, compiled, config)
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			err = nil
		}
		if err != nil {
			opts.Logger.Error("wasm module exited", "module", opts.ModuleName, "error", err)
			stdout.PipeWriter.CloseWithError(err)
			return
		}
		stdout.PipeWriter.Close()
	}()

	closeInstance := func() error {
		if err := stdin.Close(); err != nil {
			return err
		}
		if err := stdout.Close(); err != nil {
			return err
		}
		<-done
		return r.Close(ctx)
	}
	return newDispatcher(stdin, stdout, closeInstance), nil
}

// Close stops every instance.
func (e *Engine) Close() error {
	return e.pool.Close()
}

func (e *Engine) nextID() uint32 {
	for {
		if id := e.ids.Add(1); id != 0 {
			return id
		}
	}
}

// RegisterTemplate sends the bundle to every instance.
func (e *Engine) RegisterTemplate(ctx context.Context, name string, bundle *core.Bundle) error {
	for i, d := range e.pool.dispatchers {
		req := request{ID: e.nextID(), Op: "register", Name: name, Bundle: bundle}
		if _, err := d.execute(ctx, req); err != nil {
			return fmt.Errorf("registering %s on instance %d: %w", name, i, err)
		}
	}
	e.logger.Debug("registered template", "name", name, "instances", len(e.pool.dispatchers))
	return nil
}

// Render asks one instance to render markdown.
func (e *Engine) Render(ctx context.Context, markdown string, opts core.RenderOptions) (*core.RenderResult, error) {
	req := request{
		ID:        e.nextID(),
		Op:        "render",
		Markdown:  markdown,
		Format:    string(opts.Format),
		QuillName: opts.QuillName,
		Assets:    opts.Assets,
	}
	resp, err := e.pool.get().execute(ctx, req)
	if err != nil {
		return nil, err
	}
	var result core.RenderResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("decoding render result: %w", err)
	}
	return &result, nil
}

// TemplateInfo asks one instance for a template's supported formats.
func (e *Engine) TemplateInfo(ctx context.Context, name string) (*core.TemplateInfo, error) {
	resp, err := e.pool.get().execute(ctx, request{ID: e.nextID(), Op: "info", Name: name})
	if err != nil {
		return nil, err
	}
	var info core.TemplateInfo
	if err := json.Unmarshal(resp.Result, &info); err != nil {
		return nil, fmt.Errorf("decoding template info: %w", err)
	}
	if info.Name == "" {
		info.Name = name
	}
	return &info, nil
}
