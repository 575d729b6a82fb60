//go:build !js

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"asmscope/pkg/diag"
	"asmscope/pkg/lang"
	"asmscope/pkg/pipeline"
	"asmscope/pkg/render"
	"asmscope/pkg/session"
	"asmscope/pkg/symbols"
)

// offlineInput names the files of one offline run. Only In is required.
type offlineInput struct {
	In        string
	Source    string
	Language  lang.Language
	Analyzer  string
	Stderr    string
	Darwin    bool
	Demangler string
}

func main() {
	inPath := flag.String("in", "", "raw compiler assembly (.s) to clean")
	srcPath := flag.String("src", "", "source file the assembly was compiled from")
	langName := flag.String("lang", "", "source language: cpp or rust (default: from -src)")
	mcaPath := flag.String("mca", "", "llvm-mca report for the cleaned assembly")
	stderrPath := flag.String("stderr", "", "compiler stderr to extract diagnostics from")
	darwin := flag.Bool("darwin", false, "strip the Mach-O leading underscore from symbols")
	demangler := flag.String("demangler", "tool", "demangler: tool or builtin")
	exportPath := flag.String("export", "", "write the session archive to this path")
	openPath := flag.String("open", "", "print a saved session archive instead of running the pipeline")
	showMangled := flag.Bool("mangled", false, "print the mangled stream instead of the display stream")
	showStats := flag.Bool("stats", false, "add uops and throughput columns")
	flag.Parse()

	if *inPath != "" && *openPath != "" {
		fmt.Fprintln(os.Stderr, "use either -in or -open, not both")
		os.Exit(2)
	}
	if *inPath == "" && *openPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in <file.s> to run the pipeline or -open <archive> to view a saved session")
		flag.Usage()
		os.Exit(2)
	}

	var snap session.Snapshot
	var err error
	if *openPath != "" {
		snap, err = session.ReadArchiveFile(*openPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open session %q: %v\n", *openPath, err)
			os.Exit(1)
		}
	} else {
		snap, err = buildSnapshot(context.Background(), offlineInput{
			In:        *inPath,
			Source:    *srcPath,
			Language:  lang.Parse(*langName),
			Analyzer:  *mcaPath,
			Stderr:    *stderrPath,
			Darwin:    *darwin,
			Demangler: *demangler,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	printSnapshot(os.Stdout, snap, *showMangled, *showStats)

	if *exportPath != "" {
		if err := session.WriteArchiveFile(*exportPath, snap); err != nil {
			fmt.Fprintf(os.Stderr, "failed to export session %q: %v\n", *exportPath, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "session written -> %s\n", *exportPath)
	}
}

// buildSnapshot runs the pipeline over files already produced by a compiler
// and an analyzer.
func buildSnapshot(ctx context.Context, in offlineInput) (session.Snapshot, error) {
	raw, err := os.ReadFile(in.In)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to read input file %q: %v", in.In, err)
	}
	language := in.Language
	if (language == "" || language == lang.Unknown) && in.Source != "" {
		language = lang.Detect(in.Source)
	}
	if language == "" || language == lang.Unknown {
		language = lang.CPP
	}

	var sourceLines []string
	if in.Source != "" {
		data, err := os.ReadFile(in.Source)
		if err != nil {
			return session.Snapshot{}, fmt.Errorf("failed to read source file %q: %v", in.Source, err)
		}
		sourceLines = strings.Split(strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), "\n")
	}
	analyzerOut, err := readOptional(in.Analyzer)
	if err != nil {
		return session.Snapshot{}, err
	}
	stderr, err := readOptional(in.Stderr)
	if err != nil {
		return session.Snapshot{}, err
	}

	res := pipeline.Run(ctx, string(raw), pipeline.Options{
		SourceFile:      in.Source,
		Language:        language,
		StripUnderscore: in.Darwin,
	}, &symbols.Resolver{Builtin: in.Demangler == "builtin"})

	snap := session.Snapshot{
		Generation:     1,
		SourcePath:     in.Source,
		SourceLines:    sourceLines,
		Language:       language,
		LineMap:        res.LineMap,
		Diagnostics:    diag.Parse(stderr),
		Created:        time.Now(),
		Display:        res.Display,
		Mangled:        res.Mangled,
		AnalyzerOutput: analyzerOut,
		CompilerOutput: stderr,
	}
	if err := res.CheckAlignment(); err != nil {
		snap.Alignment = err.Error()
	}
	stats, err := res.Stats(analyzerOut)
	if err != nil {
		snap.Alignment = err.Error()
	}
	snap.Stats = stats
	return snap, nil
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %v", path, err)
	}
	return string(data), nil
}

func printSnapshot(w io.Writer, snap session.Snapshot, mangled, stats bool) {
	if mangled {
		snap.Display = snap.Mangled
	}
	fmt.Fprintln(w, render.Listing(snap, render.Options{
		Stats:       stats,
		Source:      len(snap.SourceLines) > 0,
		SourceWidth: 60,
	}))
	if d := render.Diagnostics(snap.Diagnostics); d != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, d)
	}
	if snap.Alignment != "" {
		fmt.Fprintf(w, "\nstats may be misaligned: %s\n", snap.Alignment)
	}
}
