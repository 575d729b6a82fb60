package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"

	"asmscope/pkg/config"
	"asmscope/pkg/engine"
	"asmscope/pkg/render"
	"asmscope/pkg/session"
	"asmscope/pkg/toolchain"
)

const (
	charWidth  = 7
	charHeight = 13
	// peek (label + 3 lines), help (3 lines), status bar, separators
	bottomLines = 10
	sessionDir  = ".asmscope"
)

type Game struct {
	eng  *engine.Engine
	ctx  context.Context
	face *text.GoXFace

	snap session.Snapshot
	rows []render.Row
	view view

	width, height int

	refreshing atomic.Bool
	errMu      sync.Mutex
	lastErr    string
}

func newGame(ctx context.Context, eng *engine.Engine) *Game {
	return &Game{
		eng:    eng,
		ctx:    ctx,
		face:   text.NewGoXFace(basicfont.Face7x13),
		width:  1024,
		height: 720,
	}
}

// pressed reports a key press with auto-repeat while held.
func pressed(keys ...ebiten.Key) bool {
	for _, k := range keys {
		d := inpututil.KeyPressDuration(k)
		if d == 1 || (d > 20 && d%3 == 0) {
			return true
		}
	}
	return false
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	g.sync()

	n := len(g.rows)
	g.view.rows = g.listingRows()
	switch {
	case pressed(ebiten.KeyArrowDown, ebiten.KeyJ):
		g.view.move(1, n)
	case pressed(ebiten.KeyArrowUp, ebiten.KeyK):
		g.view.move(-1, n)
	case pressed(ebiten.KeyPageDown):
		g.view.move(g.view.rows, n)
	case pressed(ebiten.KeyPageUp):
		g.view.move(-g.view.rows, n)
	case inpututil.IsKeyJustPressed(ebiten.KeyHome):
		g.view.setCursor(0, n)
	case inpututil.IsKeyJustPressed(ebiten.KeyEnd):
		g.view.setCursor(n-1, n)
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		g.view.move(-int(dy*3), n)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.startRefresh(g.eng.Flags())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		g.startRefresh(cycleOptFlag(g.eng.Flags()))
	}
	return nil
}

// sync picks up a newer snapshot from the store.
func (g *Game) sync() {
	snap, err := g.eng.Store().Latest()
	if err != nil || snap.Generation == g.snap.Generation {
		return
	}
	g.snap = snap
	g.rows = render.Rows(snap)
	g.view.setCursor(g.view.cursor, len(g.rows))
	ebiten.SetWindowTitle("asmscope - " + filepath.Base(snap.SourcePath))
}

func (g *Game) startRefresh(flags []string) {
	if !g.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer g.refreshing.Store(false)
		_, err := g.eng.SetFlags(g.ctx, flags)
		if errors.Is(err, session.ErrStale) {
			err = nil
		}
		g.setErr(err)
	}()
}

func (g *Game) setErr(err error) {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	g.lastErr = ""
	if err != nil {
		g.lastErr = err.Error()
	}
}

func (g *Game) errText() string {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	return g.lastErr
}

func (g *Game) listingRows() int {
	return max(g.height/charHeight-bottomLines, 1)
}

func (g *Game) drawText(dst *ebiten.Image, s string, col, row int, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(col*charWidth), float64(row*charHeight))
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(dst, s, g.face, op)
}

func fillRect(dst *ebiten.Image, col, row, cols, rows int, clr color.Color) {
	r := image.Rect(col*charWidth, row*charHeight, (col+cols)*charWidth, (row+rows)*charHeight)
	dst.SubImage(r).(*ebiten.Image).Fill(clr)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)
	cols := g.width / charWidth

	if len(g.rows) == 0 {
		g.drawEmpty(screen)
	} else {
		g.drawListing(screen, cols)
	}
	g.drawBottom(screen, cols)
}

func (g *Game) drawEmpty(screen *ebiten.Image) {
	msg := "waiting for the first compile..."
	if _, err := g.eng.Store().Latest(); err == nil {
		msg = "no assembly for this source"
	}
	g.drawText(screen, msg, 1, 0, colorDim)
	for i, d := range g.snap.Diagnostics {
		if i+2 >= g.listingRows() {
			break
		}
		g.drawText(screen, d.String(), 1, i+2, colorError)
	}
}

func (g *Game) drawListing(screen *ebiten.Image, cols int) {
	numWidth := len(fmt.Sprint(len(g.rows)))
	from, to := g.view.visible(len(g.rows))
	for i := from; i < to; i++ {
		row := i - from
		r := g.rows[i]
		if i == g.view.cursor {
			fillRect(screen, 0, row, cols, 1, colorCursor)
		}
		if r.HasStats {
			fillRect(screen, numWidth+1, row, 4, 1, severityTint[r.Severity])
		}
		clr := colorText
		if r.SourceLine == 0 && !r.HasStats {
			clr = colorDim
		}
		g.drawText(screen, listingLine(r, numWidth), 0, row, clr)
	}
}

func (g *Game) drawBottom(screen *ebiten.Image, cols int) {
	top := g.listingRows()
	fillRect(screen, 0, top, cols, bottomLines, colorPane)

	if g.view.cursor < len(g.rows) {
		if p, ok := render.SourcePeek(g.snap, g.view.cursor); ok {
			g.drawText(screen, " "+p.Label+" ", 1, top+1, colorAccent)
			for i, l := range p.Lines {
				marker, clr := " ", colorDim
				if l.Current {
					marker, clr = ">", colorHighlight
				}
				g.drawText(screen, fmt.Sprintf("%s%4d | %s", marker, l.Number, l.Text), 1, top+2+i, clr)
			}
		}
		for i, l := range helpLines(g.rows[g.view.cursor].Text) {
			g.drawText(screen, l, cols/2, top+1+i, colorAccent)
		}
	}

	status := statusLine(g.snap, g.view.cursor, g.refreshing.Load())
	if e := g.errText(); e != "" {
		status += " | " + e
	}
	fillRect(screen, 0, top+bottomLines-1, cols, 1, colorCursor)
	g.drawText(screen, status, 0, top+bottomLines-1, colorText)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

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
	configPath := flag.String("config", "", "config file (default: .asmscope.yaml next to the source, then ~)")
	optLevel := flag.String("O", "", "optimization level (0-3, s)")
	logPath := flag.String("log", "", "append refresh logs to this file")
	save := flag.Bool("save", false, "keep the latest session under "+sessionDir+"/ next to the source")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [flags] <source.cpp|source.rs>")
		flag.Usage()
		os.Exit(2)
	}
	source := flag.Arg(0)

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Find(source)
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *optLevel != "" {
		cfg.OptLevel = *optLevel
	}
	if *logPath != "" {
		cfg.LogFile = *logPath
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log: %v", err)
		}
		defer f.Close()
		logger = log.New(f, "", log.LstdFlags)
	}

	eng, err := engine.New(source, engine.Options{
		Logger: logger,
		Config: cfg,
		Runner: toolchain.ExecRunner{},
	})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	game := newGame(ctx, eng)
	game.startRefresh(eng.Flags())
	go func() {
		if err := eng.Watch(ctx); err != nil {
			game.setErr(err)
		}
	}()

	// Start background session syncer (saves the latest snapshot every 3 s)
	dir := filepath.Join(filepath.Dir(eng.Source()), sessionDir)
	stopSyncer := make(chan struct{})
	if *save {
		go startDiskSyncer(eng.Store(), dir, 3*time.Second, stopSyncer)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(game.width, game.height)
	ebiten.SetWindowTitle("asmscope - " + filepath.Base(eng.Source()))
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}

	// Graceful shutdown: stop syncer and do a final save
	cancel()
	close(stopSyncer)
	if *save {
		_ = eng.Store().PersistTo(dir)
	}
}
