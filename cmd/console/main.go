package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"asmscope/pkg/config"
	"asmscope/pkg/engine"
	"asmscope/pkg/render"
	"asmscope/pkg/session"
	"asmscope/pkg/toolchain"
)

const sessionDir = ".asmscope"

// flagList collects a repeatable string flag.
type flagList []string

func (f *flagList) String() string     { return strings.Join(*f, " ") }
func (f *flagList) Set(v string) error { *f = append(*f, v); return nil }

// startDiskSyncer saves the latest snapshot every interval while stop is open.
func startDiskSyncer(store *session.Store, dir string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if store.Unsaved() {
				if err := store.PersistTo(dir); err != nil {
					log.Printf("saving session: %v", err)
				}
			}
		case <-stop:
			return
		}
	}
}

func main() {
	optLevel := flag.String("O", "", "optimization level (0-3, s)")
	var extra flagList
	flag.Var(&extra, "flag", "extra compiler flag (repeatable)")
	watchMode := flag.Bool("watch", false, "reprint the listing on every save")
	configPath := flag.String("config", "", "config file (default: .asmscope.yaml next to the source, then ~)")
	logPath := flag.String("log", "", "append refresh logs to this file")
	showStats := flag.Bool("stats", false, "add uops and throughput columns")
	save := flag.Bool("save", false, "keep the latest session under "+sessionDir+"/ next to the source")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: console [flags] <source.cpp|source.rs>")
		flag.Usage()
		os.Exit(2)
	}
	source := flag.Arg(0)

	cfg, err := loadConfig(*configPath, source)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *optLevel != "" {
		cfg.OptLevel = *optLevel
	}
	cfg.Flags = append(cfg.Flags, extra...)
	if *logPath != "" {
		cfg.LogFile = *logPath
	}

	logger, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer closeLog()

	eng, err := engine.New(source, engine.Options{
		Logger: logger,
		Config: cfg,
		Runner: toolchain.ExecRunner{},
		OnUpdate: func(snap session.Snapshot) {
			printSnapshot(os.Stdout, snap, *showStats)
		},
	})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := eng.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
		if !*watchMode {
			os.Exit(1)
		}
	}

	dir := filepath.Join(filepath.Dir(eng.Source()), sessionDir)
	if *watchMode {
		stopSyncer := make(chan struct{})
		if *save {
			go startDiskSyncer(eng.Store(), dir, 3*time.Second, stopSyncer)
		}
		fmt.Fprintf(os.Stderr, "watching %s (ctrl-c to stop)\n", eng.Source())
		if err := eng.Watch(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
		}
		close(stopSyncer)
	}

	if *save {
		if err := eng.Store().PersistTo(dir); err != nil {
			log.Fatalf("Failed to save session: %v", err)
		}
	}
}

func loadConfig(path, source string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Find(source)
}

func openLog(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return log.New(f, "", log.LstdFlags), func() { f.Close() }, nil
}

func printSnapshot(w io.Writer, snap session.Snapshot, stats bool) {
	fmt.Fprintf(w, "== %s  flags=%v  %s\n", filepath.Base(snap.SourcePath), snap.Flags, snap.Created.Format("15:04:05"))
	if listing := render.Listing(snap, render.Options{
		Stats:       stats,
		Source:      true,
		SourceWidth: 60,
		Color:       isTerminal(w),
	}); listing != "" {
		fmt.Fprintln(w, listing)
	}
	if d := render.Diagnostics(snap.Diagnostics); d != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, d)
	}
	if snap.Alignment != "" {
		fmt.Fprintf(w, "\nstats may be misaligned: %s\n", snap.Alignment)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
