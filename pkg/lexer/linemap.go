package lexer

import "sort"

// LineMap maps zero-based output line indexes to one-based source lines.
// It is sparse: lines without known provenance have no entry.
type LineMap map[int]int

// Nearest returns the source line for idx, searching backwards to the
// closest mapped output line when idx itself has no entry.
func (m LineMap) Nearest(idx int) (int, bool) {
	for i := idx; i >= 0; i-- {
		if src, ok := m[i]; ok {
			return src, true
		}
	}
	return 0, false
}

// Indexes returns the mapped output indexes in ascending order.
func (m LineMap) Indexes() []int {
	out := make([]int, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// OutputLines returns, in ascending order, the output indexes that map to
// the given source line.
func (m LineMap) OutputLines(src int) []int {
	var out []int
	for _, idx := range m.Indexes() {
		if m[idx] == src {
			out = append(out, idx)
		}
	}
	return out
}
