// Package pipeline chains the cleaning, symbol resolution and stats
// reconciliation stages over one compiler output.
package pipeline

import (
	"context"
	"strings"

	"asmscope/pkg/lang"
	"asmscope/pkg/lexer"
	"asmscope/pkg/perf"
)

// Options are resolved once before a run.
type Options struct {
	// SourceFile selects the main .file entry by base name.
	SourceFile      string
	Language        lang.Language
	StripUnderscore bool
}

// Result is the output of one run. Display and Mangled hold the same lines
// up to symbol spelling, plus any trailing resolver warning in Display.
type Result struct {
	Display string
	Mangled string
	LineMap lexer.LineMap
	Files   *lexer.FileTable
	MainID  int
}

// Resolver turns mangled text into display text.
type Resolver interface {
	Resolve(ctx context.Context, text string, language lang.Language) string
}

// Process runs the scanner and the cleaner. Display is left equal to
// Mangled until Finish is called.
func Process(raw string, opts Options) Result {
	files, mainID := lexer.ScanDirectives(raw, opts.SourceFile)
	mangled, lm := lexer.Clean(raw, files, mainID, lexer.Options{
		StripUnderscore: opts.StripUnderscore,
		Language:        opts.Language,
	})
	return Result{
		Display: mangled,
		Mangled: mangled,
		LineMap: lm,
		Files:   files,
		MainID:  mainID,
	}
}

// Finish attaches the resolved display text.
func (r Result) Finish(display string) Result {
	r.Display = display
	return r
}

func (r Result) DisplayLines() []string { return splitLines(r.Display) }
func (r Result) MangledLines() []string { return splitLines(r.Mangled) }

// Run is Process followed by symbol resolution.
func Run(ctx context.Context, raw string, opts Options, resolver Resolver) Result {
	res := Process(raw, opts)
	if resolver == nil {
		return res
	}
	return res.Finish(resolver.Resolve(ctx, res.Mangled, opts.Language))
}

// Annotate parses an analyzer report and keys its figures by display line.
func Annotate(display string, analyzerOutput string) map[int]perf.InstructionStats {
	return perf.Reconcile(splitLines(display), perf.Parse(analyzerOutput))
}

// Stats parses an analyzer report fed with the mangled instructions and keys
// its figures by display line. A report that does not cover every instruction
// would shift figures onto the wrong lines, so it yields no stats and an error.
func (r Result) Stats(analyzerOutput string) (map[int]perf.InstructionStats, error) {
	parsed := perf.Parse(analyzerOutput)
	if err := perf.CheckCoverage(r.MangledLines(), parsed); err != nil {
		return map[int]perf.InstructionStats{}, err
	}
	return perf.Reconcile(r.DisplayLines(), parsed), nil
}

// CheckAlignment reports whether the display and mangled streams carry the
// same instruction sequence.
func (r Result) CheckAlignment() error {
	return perf.CheckAlignment(r.DisplayLines(), r.MangledLines())
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
