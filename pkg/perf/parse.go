// Package perf reads llvm-mca style analyzer reports and attaches the
// per-instruction figures to display lines.
package perf

import (
	"regexp"
	"strconv"
	"strings"
)

// InstructionStats are the analyzer's figures for one instruction.
type InstructionStats struct {
	Latency    int     `json:"latency"`
	Uops       float64 `json:"uops"`
	Throughput float64 `json:"throughput"`
}

const infoHeader = "Instruction Info:"

var (
	// [0]: {1, 0.50, 0.50, 0.00,  - }     pushq  %rbp
	bracketRow = regexp.MustCompile(`^\s*\[(\d+)\]:\s*\{\s*(\d+),\s*([\d.]+),\s*([\d.]+)`)
	//  1      3     1.00                        imul  eax, edi
	tableRow = regexp.MustCompile(`^\s*(\d+)\s+(\d+)\s+([\d.]+)`)
	// Resources: / Timeline view:
	topHeader = regexp.MustCompile(`^[A-Za-z][^:]*:\s*$`)
)

type rowKind int

const (
	noRow rowKind = iota
	bracketed
	tabular
)

// parser holds the scan state for one report.
type parser struct {
	inSection  bool
	headerSeen bool
	next       int
	stats      map[int]InstructionStats
}

// Parse extracts the Instruction Info section of an analyzer report, keyed
// by the zero-based ordinal of each instruction. Malformed or missing
// sections give an empty map.
func Parse(raw string) map[int]InstructionStats {
	p := &parser{stats: make(map[int]InstructionStats)}
	for _, line := range strings.Split(raw, "\n") {
		p.feed(strings.TrimRight(line, "\r"))
	}
	return p.stats
}

func (p *parser) feed(line string) {
	if strings.Contains(line, infoHeader) {
		p.inSection = true
		return
	}
	if !p.inSection {
		return
	}
	if strings.TrimSpace(line) == "" {
		if len(p.stats) > 0 {
			p.inSection = false
		}
		return
	}
	if topHeader.MatchString(line) {
		p.inSection = false
		return
	}
	if strings.Contains(line, "[1]") && strings.Contains(line, "[2]") {
		p.headerSeen = true
		return
	}

	switch kind, m := classify(line, p.headerSeen); kind {
	case bracketed:
		idx, _ := strconv.Atoi(m[1])
		p.stats[idx] = stats(m[2], m[3], m[4])
	case tabular:
		// columns are uops, latency, reciprocal throughput
		p.stats[p.next] = stats(m[2], m[1], m[3])
		p.next++
	}
}

// classify tries the bracketed shape first and falls back to a table row,
// which is only meaningful once the column header has been seen.
func classify(line string, headerSeen bool) (rowKind, []string) {
	if m := bracketRow.FindStringSubmatch(line); m != nil {
		return bracketed, m
	}
	if headerSeen {
		if m := tableRow.FindStringSubmatch(line); m != nil {
			return tabular, m
		}
	}
	return noRow, nil
}

func stats(latency, uops, throughput string) InstructionStats {
	l, _ := strconv.Atoi(latency)
	u, _ := strconv.ParseFloat(uops, 64)
	t, _ := strconv.ParseFloat(throughput, 64)
	return InstructionStats{Latency: l, Uops: u, Throughput: t}
}
