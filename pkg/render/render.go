// Package render lays out a session snapshot as text: the annotated
// listing, the source peek and the diagnostics block.
package render

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"asmscope/pkg/diag"
	"asmscope/pkg/lang"
	"asmscope/pkg/perf"
	"asmscope/pkg/session"
)

// Severity buckets an instruction's latency for colouring.
type Severity int

const (
	None Severity = iota
	Low
	Medium
	High
)

// Classify maps a latency in cycles onto a Severity.
func Classify(latency int) Severity {
	switch {
	case latency <= 1:
		return Low
	case latency <= 4:
		return Medium
	default:
		return High
	}
}

func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	}
	return "none"
}

// ANSI colour per severity, matching green / yellow / bold red.
var ansi = map[Severity]string{
	Low:    "\x1b[32m",
	Medium: "\x1b[33m",
	High:   "\x1b[1;31m",
}

const ansiReset = "\x1b[0m"

// Row is one display line with everything known about it.
type Row struct {
	// Line is 1-based.
	Line     int
	Text     string
	Stats    perf.InstructionStats
	HasStats bool
	Severity Severity
	// SourceLine is 0 when the line has no mapping of its own.
	SourceLine int
	Source     string
}

// Rows joins the display text with stats and source mapping.
func Rows(snap session.Snapshot) []Row {
	return lo.Map(snap.DisplayLines(), func(text string, i int) Row {
		r := Row{Line: i + 1, Text: text}
		if st, ok := snap.Stats[r.Line]; ok {
			r.Stats, r.HasStats = st, true
			r.Severity = Classify(st.Latency)
		}
		if src, ok := snap.LineMap[i]; ok {
			r.SourceLine = src
			r.Source = strings.TrimSpace(snap.SourceLine(src))
		}
		return r
	})
}

type Options struct {
	// Stats adds uops and reciprocal throughput next to the latency gutter.
	Stats bool
	// Source appends the mapped source line to each row.
	Source bool
	// SourceWidth truncates the source column; 0 means no limit.
	SourceWidth int
	// Color tints the gutter with ANSI escapes.
	Color bool
}

const gutterWidth = 4

// Listing renders the annotated listing, one row per display line.
func Listing(snap session.Snapshot, opts Options) string {
	rows := Rows(snap)
	if len(rows) == 0 {
		return ""
	}
	numWidth := len(fmt.Sprint(len(rows)))
	textWidth := 0
	if opts.Source {
		textWidth = lo.Max(lo.Map(rows, func(r Row, _ int) int { return len(expandTabs(r.Text)) }))
	}

	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%*d ", numWidth, r.Line)
		b.WriteString(gutter(r, opts.Color))
		if opts.Stats {
			if r.HasStats {
				fmt.Fprintf(&b, " %4.1f %5.2f", r.Stats.Uops, r.Stats.Throughput)
			} else {
				b.WriteString(strings.Repeat(" ", 11))
			}
		}
		b.WriteString(" | ")
		text := expandTabs(r.Text)
		b.WriteString(text)
		if opts.Source && r.SourceLine > 0 {
			b.WriteString(strings.Repeat(" ", textWidth-len(text)))
			fmt.Fprintf(&b, "  ; %d: %s", r.SourceLine, truncate(r.Source, opts.SourceWidth))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func gutter(r Row, color bool) string {
	if !r.HasStats {
		return strings.Repeat(" ", gutterWidth)
	}
	cell := fmt.Sprintf("%-*d", gutterWidth, r.Stats.Latency)
	if color {
		return ansi[r.Severity] + cell + ansiReset
	}
	return cell
}

func expandTabs(s string) string {
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := 8 - col%8
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

// peekReach bounds how far above the cursor SourcePeek looks for a mapping.
const peekReach = 20

// PeekLine is one line of a source peek.
type PeekLine struct {
	Number  int
	Text    string
	Current bool
}

// Peek is the source context for a display line.
type Peek struct {
	Label string
	Line  int
	Lines []PeekLine
}

// SourcePeek finds the source line behind the zero-based display index idx,
// searching upwards when idx itself is unmapped, and returns it with one line
// of context on each side.
func SourcePeek(snap session.Snapshot, idx int) (Peek, bool) {
	src, ok := 0, false
	for i := idx; i >= 0 && i > idx-peekReach; i-- {
		if src, ok = snap.LineMap[i]; ok {
			break
		}
	}
	if !ok || src < 1 || src > len(snap.SourceLines) {
		return Peek{}, false
	}

	p := Peek{Label: lang.SourceLabel(snap.Language), Line: src}
	for n := src - 1; n <= src+1; n++ {
		if n < 1 || n > len(snap.SourceLines) {
			continue
		}
		p.Lines = append(p.Lines, PeekLine{Number: n, Text: snap.SourceLine(n), Current: n == src})
	}
	return p, true
}

func (p Peek) String() string {
	var b strings.Builder
	b.WriteString(" " + p.Label + " \n")
	for _, l := range p.Lines {
		marker := " "
		if l.Current {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s%4d | %s\n", marker, l.Number, l.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Diagnostics renders the compiler diagnostics, errors first, followed by a
// summary line. It returns "" when there are none.
func Diagnostics(ds []diag.Diagnostic) string {
	if len(ds) == 0 {
		return ""
	}
	errs, warns := lo.FilterReject(ds, func(d diag.Diagnostic, _ int) bool {
		return d.Severity == diag.Error
	})
	lines := lo.Map(append(errs, warns...), func(d diag.Diagnostic, _ int) string {
		return d.String()
	})
	lines = append(lines, fmt.Sprintf("%d error(s), %d warning(s)", len(errs), len(warns)))
	return strings.Join(lines, "\n")
}
