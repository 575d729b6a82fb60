package perf

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"asmscope/pkg/isa"
)

// Reconcile re-keys ordinal stats by 1-based display line. Only lines the
// instruction classifier accepts advance the ordinal, which is the same rule
// used to pick the lines fed to the analyzer.
func Reconcile(lines []string, stats map[int]InstructionStats) map[int]InstructionStats {
	out := make(map[int]InstructionStats)
	if len(stats) == 0 {
		return out
	}
	ordinal := 0
	for i, line := range lines {
		if !isa.IsInstruction(line) {
			continue
		}
		if s, ok := stats[ordinal]; ok {
			out[i+1] = s
		}
		ordinal++
	}
	return out
}

// Mnemonics returns the instruction mnemonics of lines in order.
func Mnemonics(lines []string) []string {
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		return isa.Mnemonic(line)
	})
}

// AlignmentError describes the first position where the display and the
// mangled instruction sequences disagree.
type AlignmentError struct {
	Ordinal      int
	Display      string
	Mangled      string
	DisplayCount int
	MangledCount int
}

func (e *AlignmentError) Error() string {
	if e.DisplayCount != e.MangledCount {
		return fmt.Sprintf("instruction count mismatch: display has %d, mangled has %d (first difference at #%d: %q vs %q)",
			e.DisplayCount, e.MangledCount, e.Ordinal, e.Display, e.Mangled)
	}
	return fmt.Sprintf("mnemonic mismatch at instruction #%d: %q vs %q", e.Ordinal, e.Display, e.Mangled)
}

// CheckAlignment verifies that both streams hold the same sequence of
// instruction mnemonics, the precondition for Reconcile to be valid.
func CheckAlignment(display, mangled []string) error {
	d, m := Mnemonics(display), Mnemonics(mangled)
	if slices.Equal(d, m) {
		return nil
	}
	i := 0
	for i < len(d) && i < len(m) && d[i] == m[i] {
		i++
	}
	return &AlignmentError{
		Ordinal:      i,
		Display:      at(d, i),
		Mangled:      at(m, i),
		DisplayCount: len(d),
		MangledCount: len(m),
	}
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// CoverageError reports an analyzer report whose rows do not match the
// instructions it was fed one for one.
type CoverageError struct {
	Rows         int
	Instructions int
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("analyzer reported %d rows for %d instructions", e.Rows, e.Instructions)
}

// CheckCoverage verifies that stats hold exactly one row per instruction in
// lines, numbered from zero. An empty report is not an error.
func CheckCoverage(lines []string, stats map[int]InstructionStats) error {
	if len(stats) == 0 {
		return nil
	}
	n := lo.CountBy(lines, isa.IsInstruction)
	if len(stats) == n {
		if _, ok := stats[n-1]; ok {
			return nil
		}
	}
	return &CoverageError{Rows: len(stats), Instructions: n}
}
