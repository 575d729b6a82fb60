package main

import (
	"fmt"
	"image/color"
	"slices"
	"strings"

	"asmscope/pkg/diag"
	"asmscope/pkg/isa"
	"asmscope/pkg/render"
	"asmscope/pkg/session"
)

// view is the cursor and scroll state of the listing pane.
type view struct {
	cursor int
	top    int
	rows   int
}

// move shifts the cursor by delta over n lines and keeps it visible.
func (v *view) move(delta, n int) {
	v.setCursor(v.cursor+delta, n)
}

func (v *view) setCursor(c, n int) {
	if n <= 0 {
		v.cursor, v.top = 0, 0
		return
	}
	v.cursor = max(0, min(c, n-1))
	v.follow(n)
}

// follow scrolls so the cursor is on screen.
func (v *view) follow(n int) {
	rows := max(v.rows, 1)
	if v.cursor < v.top {
		v.top = v.cursor
	}
	if v.cursor >= v.top+rows {
		v.top = v.cursor - rows + 1
	}
	v.top = max(0, min(v.top, max(n-rows, 0)))
}

// visible returns the half-open range of line indexes on screen.
func (v *view) visible(n int) (int, int) {
	return v.top, min(v.top+max(v.rows, 1), n)
}

// Palette.
var (
	colorBackground = color.RGBA{0x19, 0x1a, 0x1a, 0xff}
	colorText       = color.RGBA{0xeb, 0xee, 0xee, 0xff}
	colorDim        = color.RGBA{0x9f, 0xbf, 0xc5, 0xff}
	colorCursor     = color.RGBA{0x2f, 0x3b, 0x3d, 0xff}
	colorPane       = color.RGBA{0x23, 0x26, 0x27, 0xff}
	colorAccent     = color.RGBA{0x94, 0xbf, 0xc1, 0xff}
	colorHighlight  = color.RGBA{0xfe, 0xcd, 0x91, 0xff}
	colorError      = color.RGBA{0xe0, 0x6c, 0x75, 0xff}
)

var severityTint = map[render.Severity]color.RGBA{
	render.Low:    {0x3c, 0x8d, 0x4f, 0xff},
	render.Medium: {0xc9, 0xa2, 0x27, 0xff},
	render.High:   {0xc8, 0x3a, 0x3a, 0xff},
}

// listingLine formats one row of the listing pane.
func listingLine(r render.Row, numWidth int) string {
	gutter := "    "
	if r.HasStats {
		gutter = fmt.Sprintf("%-4d", r.Stats.Latency)
	}
	return fmt.Sprintf("%*d %s %s", numWidth, r.Line, gutter, strings.ReplaceAll(r.Text, "\t", "    "))
}

// helpLines describes the instruction on the cursor line.
func helpLines(line string) []string {
	name, h, ok := isa.HelpForLine(line)
	if name == "" {
		return nil
	}
	if !ok {
		return []string{name, "no reference entry"}
	}
	return []string{
		h.Key + "  " + h.Description,
		"e.g. " + h.Example,
		"     " + h.Meaning,
	}
}

// statusLine summarises the snapshot for the bottom bar.
func statusLine(snap session.Snapshot, cursor int, refreshing bool) string {
	errs, warns := diag.Count(snap.Diagnostics)
	state := fmt.Sprintf("gen %d", snap.Generation)
	if refreshing {
		state = "compiling..."
	}
	return fmt.Sprintf(" line %d/%d | %d error(s) %d warning(s) | flags=%v | %s | r refresh  q quit",
		cursor+1, len(snap.DisplayLines()), errs, warns, snap.Flags, state)
}

var optCycle = []string{"-O0", "-O1", "-O2", "-O3"}

// cycleOptFlag replaces any -O<n> flag with the next level in optCycle.
func cycleOptFlag(flags []string) []string {
	next := optCycle[0]
	out := make([]string, 0, len(flags)+1)
	for _, f := range flags {
		if i := slices.Index(optCycle, f); i >= 0 {
			next = optCycle[(i+1)%len(optCycle)]
			continue
		}
		if len(f) == 3 && strings.HasPrefix(f, "-O") {
			continue
		}
		out = append(out, f)
	}
	return append(out, next)
}
