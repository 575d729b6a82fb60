package diag

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   []Diagnostic
	}{
		{
			name:   "unused variable warning",
			stderr: "main.cpp:3:12: warning: unused variable 'x'",
			want:   []Diagnostic{{File: "main.cpp", Line: 3, Column: 12, Severity: Warning, Message: "unused variable 'x'"}},
		},
		{
			name: "gcc output with context",
			stderr: "In file included from main.cpp:1:\n" +
				"/src/util.h: In function 'int f()':\n" +
				"/src/util.h:10:5: error: expected ';' before '}' token\n" +
				"   10 |     return 1\n" +
				"      |             ^\n" +
				"main.cpp:7:9: warning: unused variable 'y' [-Wunused-variable]\r\n" +
				"1 error generated.\n",
			want: []Diagnostic{
				{File: "/src/util.h", Line: 10, Column: 5, Severity: Error, Message: "expected ';' before '}' token"},
				{File: "main.cpp", Line: 7, Column: 9, Severity: Warning, Message: "unused variable 'y' [-Wunused-variable]"},
			},
		},
		{
			name:   "note is not a severity",
			stderr: "main.cpp:4:2: note: declared here\n",
		},
		{
			name: "rustc format is not recognized",
			stderr: "error[E0425]: cannot find value `x` in this scope\n" +
				" --> main.rs:2:5\n" +
				"  |\n" +
				"2 |     x\n",
		},
		{name: "empty", stderr: ""},
		{
			name:   "windows path",
			stderr: `C:\src\main.cpp:12:1: error: expected declaration`,
			want:   []Diagnostic{{File: `C:\src\main.cpp`, Line: 12, Column: 1, Severity: Error, Message: "expected declaration"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Parse(tc.stderr); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Parse(%q) = %+v; want %+v", tc.stderr, got, tc.want)
			}
		})
	}
}

func TestCount(t *testing.T) {
	ds := Parse("a.c:1:1: error: x\na.c:2:1: warning: y\na.c:3:1: warning: z\n")
	e, w := Count(ds)
	if e != 1 || w != 2 {
		t.Errorf("Count() = %d, %d; want 1, 2", e, w)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{File: "main.cpp", Line: 3, Column: 12, Severity: Warning, Message: "unused variable 'x'"}
	if got, want := d.String(), "main.cpp:3:12: warning: unused variable 'x'"; got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
}
