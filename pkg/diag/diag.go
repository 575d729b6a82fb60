// Package diag extracts compiler diagnostics from stderr.
package diag

import (
	"regexp"
	"strconv"
	"strings"
)

// Severity is the level a compiler reports a diagnostic at. Notes are not
// collected.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
)

// Diagnostic is one compiler message pinned to a source position. Line and
// Column are 1-based as printed by the compiler.
type Diagnostic struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	return d.File + ":" + strconv.Itoa(d.Line) + ":" + strconv.Itoa(d.Column) + ": " + string(d.Severity) + ": " + d.Message
}

// path:line:col: severity: message
var diagLine = regexp.MustCompile(`^(.*):(\d+):(\d+):\s+(error|warning):\s+(.*)$`)

// Parse returns the gcc/clang style diagnostics in stderr in order of
// appearance. Other lines, including rustc's multi-line "error[E...]"
// format, are ignored.
func Parse(stderr string) []Diagnostic {
	var out []Diagnostic
	for _, line := range strings.Split(stderr, "\n") {
		m := diagLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		ln, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		col, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		out = append(out, Diagnostic{
			File:     m[1],
			Line:     ln,
			Column:   col,
			Severity: Severity(m[4]),
			Message:  strings.TrimSpace(m[5]),
		})
	}
	return out
}

// Count returns the number of errors and warnings in ds.
func Count(ds []Diagnostic) (errors, warnings int) {
	for _, d := range ds {
		switch d.Severity {
		case Error:
			errors++
		case Warning:
			warnings++
		}
	}
	return errors, warnings
}
