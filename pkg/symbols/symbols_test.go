package symbols

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"asmscope/pkg/lang"
	"asmscope/pkg/toolchain"
)

type fakeRunner struct {
	name   string
	stdin  string
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ []string, stdin string) (string, string, error) {
	f.name, f.stdin = name, stdin
	return f.stdout, "", f.err
}

func fakeTool(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func missing(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing")
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		in   string
		l    lang.Language
		want string
	}{
		{"call std::__1::vector<int, std::__1::allocator<int>>::push_back(int const&)", lang.CPP,
			"call std::vector<int, std::allocator<int>>::push_back(int const&)"},
		{"std::__cxx11::basic_string<char>", lang.CPP, "std::basic_string<char>"},
		{"std::__2::__2::map", lang.CPP, "std::map"},
		{"std::__cxx11::__1::list", lang.CPP, "std::list"},
		{"f[abi:cxx11]()", lang.CPP, "f()"},
		{"mov eax, 1", lang.CPP, "mov eax, 1"},
		{"call example::square::h0123456789abcdef", lang.Rust, "call example::square"},
		{"x::h0123456789abcdef0", lang.Rust, "x::h0123456789abcdef0"},
		{"<alloc::vec::Vec<alloc::string::String>>::push", lang.Rust, "<Vec<String>>::push"},
		{"core::ops::function::FnOnce::call_once", lang.Rust, "FnOnce::call_once"},
		{"core::ops::function::Fn::call", lang.Rust, "Fn::call"},
		{"core::fmt::write", lang.Rust, "fmt::write"},
		{"std::__1::vector", lang.Rust, "std::__1::vector"},
	}
	for _, tc := range tests {
		if got := Simplify(tc.in, tc.l); got != tc.want {
			t.Errorf("Simplify(%q, %s) = %q; want %q", tc.in, tc.l, got, tc.want)
		}
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	inputs := []string{
		"std::__1::__1::vector",
		"std::__cstd::__1::x",
		"alloc::vec::alloc::vec::VecVec",
		"core::fmt::core::fmt::",
		"::h0123456789abcdef::h0123456789abcdef",
		"[abi:x][abi:y]]",
	}
	for _, l := range []lang.Language{lang.CPP, lang.Rust} {
		for _, in := range inputs {
			once := Simplify(in, l)
			if twice := Simplify(once, l); twice != once {
				t.Errorf("Simplify not idempotent for %q (%s): %q then %q", in, l, once, twice)
			}
		}
	}
}

func FuzzSimplifyIdempotent(f *testing.F) {
	f.Add("std::__1::vector<std::__cxx11::string[abi:cxx11]>")
	f.Add("example::main::h0123456789abcdef")
	f.Add("core::ops::function::FnOnce::call_once")
	f.Fuzz(func(t *testing.T, s string) {
		for _, l := range []lang.Language{lang.CPP, lang.Rust} {
			once := Simplify(s, l)
			if twice := Simplify(once, l); twice != once {
				t.Errorf("Simplify(%q) not idempotent: %q -> %q", s, once, twice)
			}
		}
	})
}

func TestResolveWithTool(t *testing.T) {
	filt := fakeTool(t, "c++filt")
	r := &fakeRunner{stdout: "add(int, int):\n\tcall std::__1::vector<int>::size() const\n"}
	res := &Resolver{Tools: toolchain.Toolset{"c++filt": filt}, Runner: r}

	in := "_Z3addii:\n\tcall _ZNKSt3__16vectorIiE4sizeEv"
	got := res.Resolve(context.Background(), in, lang.CPP)
	want := "add(int, int):\n\tcall std::vector<int>::size() const"
	if got != want {
		t.Errorf("Resolve() = %q; want %q", got, want)
	}
	if r.name != filt || r.stdin != in {
		t.Errorf("ran %q with %q", r.name, r.stdin)
	}
}

func TestResolveRustFallback(t *testing.T) {
	llvm := fakeTool(t, "llvm-cxxfilt")
	r := &fakeRunner{stdout: "example::square::h0123456789abcdef:\n"}
	res := &Resolver{
		Tools:  toolchain.Toolset{"rustfilt": missing(t), "llvm-cxxfilt": llvm},
		Runner: r,
	}
	got := res.Resolve(context.Background(), "_ZN7example6square17h0123456789abcdefE:\n", lang.Rust)
	if got != "example::square:\n" {
		t.Errorf("Resolve() = %q", got)
	}
	if r.name != llvm {
		t.Errorf("ran %q; want fallback %q", r.name, llvm)
	}
}

func TestResolveSoftFailures(t *testing.T) {
	in := "_Z3foov:\n\tret"
	tests := []struct {
		name string
		res  *Resolver
		l    lang.Language
		want string
	}{
		{
			name: "missing c++filt",
			res:  &Resolver{Tools: toolchain.Toolset{"c++filt": missing(t)}},
			l:    lang.CPP,
			want: in + "\n# [WARN] c++filt not found, symbols mangled.",
		},
		{
			name: "missing rust tools",
			res:  &Resolver{Tools: toolchain.Toolset{"rustfilt": missing(t), "llvm-cxxfilt": missing(t)}},
			l:    lang.Rust,
			want: in + "\n# [WARN] rustfilt not found, symbols mangled.",
		},
		{
			name: "non-zero exit",
			res: &Resolver{
				Tools:  toolchain.Toolset{"c++filt": fakeTool(t, "c++filt")},
				Runner: &fakeRunner{stdout: "garbage", err: &toolchain.ExitError{Name: "c++filt", Code: 1}},
			},
			l:    lang.CPP,
			want: in,
		},
		{
			name: "runner error",
			res: &Resolver{
				Tools:  toolchain.Toolset{"c++filt": fakeTool(t, "c++filt")},
				Runner: &fakeRunner{err: errors.New("pipe closed")},
			},
			l:    lang.CPP,
			want: in + "\n# [WARN] demangling failed: pipe closed",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.res.Resolve(context.Background(), in, tc.l)
			if got != tc.want {
				t.Errorf("Resolve() = %q; want %q", got, tc.want)
			}
			// existing lines keep their positions
			gotLines := strings.Split(got, "\n")
			for i, l := range strings.Split(in, "\n") {
				if gotLines[i] != l {
					t.Errorf("line %d = %q; want %q", i, gotLines[i], l)
				}
			}
		})
	}
}

func TestResolveBuiltin(t *testing.T) {
	res := &Resolver{Builtin: true}
	in := "_Z3addii:\n\tcall\t__Z3foov\n\tleaq\tL_.str(%rip), %rdi\n\tcall\t_ZNSt3__16vectorIiNS_9allocatorIiEEE9push_backERKi"
	got := res.Resolve(context.Background(), in, lang.CPP)
	for _, want := range []string{"add(int, int):", "\tcall\tfoo()", "\tleaq\tL_.str(%rip), %rdi", "std::vector<int", "::push_back(int const&)"} {
		if !strings.Contains(got, want) {
			t.Errorf("Resolve() = %q; missing %q", got, want)
		}
	}
	if strings.Count(got, "\n") != strings.Count(in, "\n") {
		t.Errorf("builtin demangling changed the line count")
	}
}

func TestHasWarning(t *testing.T) {
	if !HasWarning("x\n# [WARN] c++filt not found, symbols mangled.") {
		t.Errorf("HasWarning missed a warning")
	}
	if HasWarning("x\n\tret") || HasWarning("") {
		t.Errorf("HasWarning reported a warning on clean text")
	}
}

func TestResolveEmpty(t *testing.T) {
	res := &Resolver{Tools: toolchain.Toolset{"c++filt": missing(t)}}
	if got := res.Resolve(context.Background(), "", lang.CPP); got != "" {
		t.Errorf("Resolve(\"\") = %q; want empty", got)
	}
}
