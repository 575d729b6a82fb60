package perf

import (
	"fmt"
	"strings"
	"testing"
)

func syntheticReport(n int) (string, []string) {
	var b strings.Builder
	b.WriteString("Iterations:        100\n\nInstruction Info:\n[1]: #uOps\n[2]: Latency\n\n")
	b.WriteString("[1]    [2]    [3]    [4]    [5]    [6]    Instructions:\n")
	lines := make([]string, 0, 2*n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, " 1      %d     0.50                        addl\t$%d, %%eax\n", i%7+1, i)
		lines = append(lines, fmt.Sprintf("f%d():", i), fmt.Sprintf("\taddl\t$%d, %%eax", i))
	}
	b.WriteString("\nResources:\n")
	return b.String(), lines
}

func BenchmarkParse_Large(b *testing.B) {
	raw, _ := syntheticReport(2000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if len(Parse(raw)) != 2000 {
			b.Fatal("short parse")
		}
	}
}

func BenchmarkReconcile_Large(b *testing.B) {
	raw, lines := syntheticReport(2000)
	stats := Parse(raw)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if len(Reconcile(lines, stats)) != 2000 {
			b.Fatal("short reconcile")
		}
	}
}
