package main

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"asmscope/pkg/diag"
	"asmscope/pkg/lang"
	"asmscope/pkg/session"
)

func squareInput() offlineInput {
	return offlineInput{
		In:        "testdata/square.s",
		Source:    "testdata/square.cpp",
		Analyzer:  "testdata/square.mca",
		Stderr:    "testdata/square.stderr",
		Demangler: "builtin",
	}
}

func TestOfflinePipeline(t *testing.T) {
	snap, err := buildSnapshot(context.Background(), squareInput())
	if err != nil {
		t.Fatalf("buildSnapshot() error = %v", err)
	}
	if snap.Language != lang.CPP {
		t.Errorf("Language = %v; want cpp", snap.Language)
	}

	lines := snap.DisplayLines()
	if len(lines) != 17 {
		t.Fatalf("display has %d lines; want 17:\n%s", len(lines), snap.Display)
	}
	if lines[0] != "square(int):" || !strings.HasPrefix(lines[5], "sum(std::vector<int") {
		t.Errorf("labels not demangled: %q / %q", lines[0], lines[5])
	}
	for _, unwanted := range []string{"sar", ".loc", ".cfi", ".debug", "endbr64", "0x1a2"} {
		if strings.Contains(snap.Display, unwanted) {
			t.Errorf("display contains %q:\n%s", unwanted, snap.Display)
		}
	}

	// the imul in square() and the loads in sum()
	if st := snap.Stats[3]; st.Latency != 3 {
		t.Errorf("Stats[3] = %+v; want latency 3", st)
	}
	if st := snap.Stats[8]; st.Latency != 5 {
		t.Errorf("Stats[8] = %+v; want latency 5", st)
	}
	if len(snap.Stats) != 14 {
		t.Errorf("%d lines have stats; want 14", len(snap.Stats))
	}
	if snap.Alignment != "" {
		t.Errorf("Alignment = %q", snap.Alignment)
	}

	if src, ok := snap.LineMap[1]; !ok || snap.SourceLine(src) != "    return x * x;" {
		t.Errorf("line 1 maps to %d (%q)", src, snap.SourceLine(src))
	}
	if _, warns := diag.Count(snap.Diagnostics); warns != 1 {
		t.Errorf("Diagnostics = %+v; want one warning", snap.Diagnostics)
	}
}

func TestOfflinePipelineOutput(t *testing.T) {
	snap, err := buildSnapshot(context.Background(), squareInput())
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	printSnapshot(&out, snap, false, false)

	text := out.String()
	for _, want := range []string{
		" 3 3    |         imul    eax, edi",
		"; 4: return x * x;",
		"square.cpp:8:9: warning: variable 's' set but not used",
		"0 error(s), 1 warning(s)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output is missing %q:\n%s", want, text)
		}
	}

	out.Reset()
	printSnapshot(&out, snap, true, false)
	if !strings.Contains(out.String(), "_Z6squarei:") {
		t.Errorf("-mangled output is missing the mangled label:\n%s", out.String())
	}
}

func TestOfflineExportAndOpen(t *testing.T) {
	snap, err := buildSnapshot(context.Background(), squareInput())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "square.asmscope.zip")
	if err := session.WriteArchiveFile(path, snap); err != nil {
		t.Fatalf("WriteArchiveFile() error = %v", err)
	}
	opened, err := session.ReadArchiveFile(path)
	if err != nil {
		t.Fatalf("ReadArchiveFile() error = %v", err)
	}

	var before, after bytes.Buffer
	printSnapshot(&before, snap, false, true)
	printSnapshot(&after, opened, false, true)
	if before.String() != after.String() {
		t.Errorf("reopened session renders differently:\n%s\n---\n%s", before.String(), after.String())
	}
	if !reflect.DeepEqual(opened.LineMap, snap.LineMap) {
		t.Errorf("LineMap changed across the archive")
	}
}

func TestOfflineInputErrors(t *testing.T) {
	tests := []struct {
		name string
		in   offlineInput
	}{
		{"missing assembly", offlineInput{In: "testdata/none.s"}},
		{"missing source", offlineInput{In: "testdata/square.s", Source: "testdata/none.cpp"}},
		{"missing report", offlineInput{In: "testdata/square.s", Analyzer: "testdata/none.mca"}},
		{"missing stderr", offlineInput{In: "testdata/square.s", Stderr: "testdata/none.txt"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := buildSnapshot(context.Background(), tc.in); err == nil {
				t.Errorf("buildSnapshot() returned no error")
			}
		})
	}
}

func TestOfflinePartialReport(t *testing.T) {
	in := squareInput()
	in.Analyzer = "testdata/square_partial.mca"
	snap, err := buildSnapshot(context.Background(), in)
	if err != nil {
		t.Fatalf("buildSnapshot() error = %v", err)
	}
	if len(snap.Stats) != 0 {
		t.Errorf("Stats from a 3-row report over 14 instructions = %v; want none", snap.Stats)
	}
	if !strings.Contains(snap.Alignment, "3 rows for 14 instructions") {
		t.Errorf("Alignment = %q; want the row count mismatch", snap.Alignment)
	}
}

func TestOfflineLanguage(t *testing.T) {
	snap, err := buildSnapshot(context.Background(), offlineInput{In: "testdata/square.s"})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Language != lang.CPP || len(snap.SourceLines) != 0 {
		t.Errorf("snapshot without a source = %+v", snap)
	}
	if len(snap.Stats) != 0 {
		t.Errorf("Stats without a report = %v", snap.Stats)
	}

	tests := []struct {
		in   offlineInput
		want lang.Language
	}{
		{offlineInput{In: "testdata/square.s", Source: "testdata/square.cpp"}, lang.CPP},
		{offlineInput{In: "testdata/square.s", Language: lang.Unknown}, lang.CPP},
		{offlineInput{In: "testdata/square.s", Language: lang.Rust}, lang.Rust},
	}
	for _, tc := range tests {
		snap, err := buildSnapshot(context.Background(), tc.in)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Language != tc.want {
			t.Errorf("buildSnapshot(%+v) Language = %q; want %q", tc.in, snap.Language, tc.want)
		}
	}
}
