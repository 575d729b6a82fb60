// Package engine ties the compiler, the cleaning pipeline, the demangler and
// the performance analyzer into refreshes of a single source file.
package engine

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"asmscope/pkg/config"
	"asmscope/pkg/diag"
	"asmscope/pkg/lang"
	"asmscope/pkg/pipeline"
	"asmscope/pkg/session"
	"asmscope/pkg/symbols"
	"asmscope/pkg/toolchain"
	"asmscope/pkg/watch"
)

var ErrUnsupported = errors.New("unsupported source file")

type Options struct {
	// Logger receives one line per refresh. Nil discards.
	Logger *log.Logger
	Config config.Config
	// Language overrides detection by file extension.
	Language lang.Language
	// Runner executes external tools for the default driver and resolver.
	Runner   toolchain.Runner
	Driver   toolchain.Driver
	Resolver pipeline.Resolver
	Store    *session.Store
	// OnUpdate is called after each published snapshot.
	OnUpdate func(session.Snapshot)
}

type Engine struct {
	source   string
	language lang.Language
	log      *log.Logger
	driver   toolchain.Driver
	resolver pipeline.Resolver
	store    *session.Store
	onUpdate func(session.Snapshot)
	strip    bool
	limiter  *rate.Limiter

	mu    sync.Mutex
	flags []string
}

// New prepares an engine for source. Nothing runs until Refresh or Watch.
func New(source string, opts Options) (*Engine, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", source)
	}
	language := opts.Language
	if language == "" || language == lang.Unknown {
		language = lang.Detect(abs)
	}
	if language == lang.Unknown {
		return nil, errors.Wrapf(ErrUnsupported, "%s", filepath.Base(abs))
	}

	cfg := opts.Config
	if cfg.Demangler == "" {
		cfg = config.Default()
	}
	e := &Engine{
		source:   abs,
		language: language,
		log:      opts.Logger,
		driver:   opts.Driver,
		resolver: opts.Resolver,
		store:    opts.Store,
		onUpdate: opts.OnUpdate,
		strip:    cfg.StripsUnderscore(""),
		limiter:  newLimiter(cfg.RefreshInterval.Duration),
		flags:    lo.Compact(cfg.Flags),
	}
	if e.log == nil {
		e.log = log.New(io.Discard, "", 0)
	}
	if e.driver == nil {
		e.driver = toolchain.NewDriver(language, cfg.DriverOptions(opts.Runner))
	}
	if e.resolver == nil {
		e.resolver = &symbols.Resolver{
			Tools:   cfg.Toolset(),
			Runner:  opts.Runner,
			Builtin: cfg.BuiltinDemangler(),
		}
	}
	if e.store == nil {
		e.store = session.NewStore()
	}
	return e, nil
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (e *Engine) Source() string              { return e.source }
func (e *Engine) Language() lang.Language     { return e.language }
func (e *Engine) Store() *session.Store       { return e.store }
func (e *Engine) Driver() toolchain.Driver    { return e.driver }
func (e *Engine) Resolver() pipeline.Resolver { return e.resolver }

// Flags returns a copy of the compiler flags used by the next refresh.
func (e *Engine) Flags() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.flags...)
}

// SetFlags replaces the compiler flags and refreshes with them.
func (e *Engine) SetFlags(ctx context.Context, flags []string) (session.Snapshot, error) {
	e.mu.Lock()
	e.flags = lo.Compact(flags)
	e.mu.Unlock()
	return e.Refresh(ctx)
}

// Refresh compiles the source and publishes the result. Missing demanglers
// or analyzers degrade the snapshot rather than fail it. A refresh that
// finishes after a later one returns session.ErrStale.
func (e *Engine) Refresh(ctx context.Context) (session.Snapshot, error) {
	gen := e.store.Begin()
	flags := e.Flags()
	e.log.Printf("refresh %s flags=%v", e.source, flags)

	src, err := os.ReadFile(e.source)
	if err != nil {
		return session.Snapshot{}, errors.Wrap(err, "reading source")
	}
	asm, stderr, err := e.driver.Compile(ctx, e.source, flags)
	if err != nil {
		return session.Snapshot{}, errors.Wrap(err, "compiling")
	}
	diags := diag.Parse(stderr)

	res := pipeline.Process(asm, pipeline.Options{
		SourceFile:      e.source,
		Language:        e.language,
		StripUnderscore: e.strip,
	})

	// Both stages read the same mangled text and write disjoint results.
	var display, analyzerOut string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		display = e.resolver.Resolve(gctx, res.Mangled, e.language)
		return nil
	})
	g.Go(func() error {
		out, err := e.driver.Analyze(gctx, res.Mangled)
		switch {
		case errors.Is(err, toolchain.ErrNoInstructions):
		case err != nil:
			e.log.Printf("analyzer: %v", err)
		default:
			analyzerOut = out
		}
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return session.Snapshot{}, err
	}

	res = res.Finish(display)
	var alignment string
	if err := res.CheckAlignment(); err != nil {
		alignment = err.Error()
		e.log.Printf("alignment: %v", err)
	}
	stats, err := res.Stats(analyzerOut)
	if err != nil {
		alignment = err.Error()
		e.log.Printf("stats dropped: %v", err)
	}
	if symbols.HasWarning(res.Display) {
		e.log.Printf("demangler unavailable for %s", e.language)
	}

	snap := session.Snapshot{
		Generation:     gen,
		SourcePath:     e.source,
		SourceLines:    sourceLines(string(src)),
		Language:       e.language,
		Flags:          flags,
		LineMap:        res.LineMap,
		Stats:          stats,
		Diagnostics:    diags,
		Alignment:      alignment,
		Created:        time.Now(),
		Display:        res.Display,
		Mangled:        res.Mangled,
		AnalyzerOutput: analyzerOut,
		CompilerOutput: stderr,
	}
	if err := e.store.Apply(snap); err != nil {
		e.log.Printf("refresh %d dropped: %v", gen, err)
		return snap, err
	}

	errs, warns := diag.Count(diags)
	e.log.Printf("refresh %d: %d lines, %d mapped, %d with stats, %d errors, %d warnings",
		gen, len(res.DisplayLines()), len(res.LineMap), len(stats), errs, warns)
	if e.onUpdate != nil {
		e.onUpdate(snap)
	}
	return snap, nil
}

// Watch refreshes after every save of the source until ctx is done. Saves
// closer together than the configured refresh interval are merged.
func (e *Engine) Watch(ctx context.Context) error {
	w, err := watch.New(e.source)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case <-w.Events():
			if err := e.limiter.Wait(ctx); err != nil {
				return nil
			}
			if _, err := e.Refresh(ctx); err != nil && !errors.Is(err, session.ErrStale) && ctx.Err() == nil {
				e.log.Printf("refresh failed: %v", err)
			}
		}
	}
}

func sourceLines(src string) []string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.TrimSuffix(src, "\n")
	if src == "" {
		return nil
	}
	return strings.Split(src, "\n")
}
