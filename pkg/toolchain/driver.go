package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"asmscope/pkg/isa"
	"asmscope/pkg/lang"
)

// Driver turns a source file into raw assembly and feeds cleaned assembly
// to the performance analyzer.
type Driver interface {
	// Compile returns the raw assembly and the compiler's stderr. A failed
	// compile is not an error: the assembly is empty and stderr carries the
	// diagnostics.
	Compile(ctx context.Context, source string, flags []string) (asm, stderr string, err error)
	Analyze(ctx context.Context, mangled string) (string, error)
}

// Options configure a Driver.
type Options struct {
	// Compiler overrides the default compiler binary name.
	Compiler string
	// OptLevel is the default optimization level ("0".."3", "s"); flags
	// passed to Compile win over it.
	OptLevel     string
	Tools        Toolset
	Runner       Runner
	AnalyzerArgs []string
	// Arch defaults to runtime.GOARCH.
	Arch string
}

func (o Options) runner() Runner {
	if o.Runner == nil {
		return ExecRunner{}
	}
	return o.Runner
}

func (o Options) arch() string {
	if o.Arch == "" {
		return runtime.GOARCH
	}
	return o.Arch
}

func isX86(arch string) bool {
	switch arch {
	case "amd64", "386", "x86_64", "i386":
		return true
	}
	return false
}

// NewDriver returns the driver for language. Unknown languages are compiled
// as C++.
func NewDriver(language lang.Language, opts Options) Driver {
	if language == lang.Rust {
		return &RustDriver{opts: opts}
	}
	return &CppDriver{opts: opts}
}

// CppDriver compiles C and C++ with a gcc-compatible compiler.
type CppDriver struct {
	opts Options
}

func (d *CppDriver) compiler() string {
	if d.opts.Compiler != "" {
		return d.opts.Compiler
	}
	return "g++"
}

// Args builds the compiler command line writing assembly to out.
func (d *CppDriver) Args(source string, flags []string, out string) []string {
	level := d.opts.OptLevel
	if level == "" {
		level = "3"
	}
	args := []string{"-S", "-g", "-fverbose-asm", "-O" + level}
	if isX86(d.opts.arch()) {
		args = append(args, "-masm=intel")
	}
	if db := FindCompileCommands(filepath.Dir(source)); db != "" {
		// an unreadable database only costs the project flags
		if dbFlags, err := FlagsFromDB(source, db); err == nil {
			args = append(args, dbFlags...)
		}
	}
	args = append(args, flags...)
	return append(args, source, "-o", out)
}

func (d *CppDriver) Compile(ctx context.Context, source string, flags []string) (string, string, error) {
	bin, err := d.opts.Tools.Lookup(d.compiler())
	if err != nil {
		return "", "", err
	}
	return compileTo(ctx, d.opts.runner(), bin, func(out string) []string {
		return d.Args(source, flags, out)
	})
}

func (d *CppDriver) Analyze(ctx context.Context, mangled string) (string, error) {
	return analyze(ctx, d.opts, mangled)
}

// RustDriver compiles single-file crates with rustc.
type RustDriver struct {
	opts Options
}

func (d *RustDriver) compiler() string {
	if d.opts.Compiler != "" {
		return d.opts.Compiler
	}
	return "rustc"
}

// Args builds the rustc command line writing assembly to out. C-style -O<n>
// flags are translated, rustc-native -C and -- flags pass through and
// everything else is dropped.
func (d *RustDriver) Args(source string, flags []string, out string) []string {
	args := []string{"--emit", "asm", "-C", "debuginfo=2"}
	if isX86(d.opts.arch()) {
		args = append(args, "-C", "llvm-args=--x86-asm-syntax=intel")
	}
	level := d.opts.OptLevel
	for _, f := range flags {
		switch {
		case len(f) == 3 && strings.HasPrefix(f, "-O") && strings.ContainsAny(f[2:], "0123sz"):
			level = f[2:]
		case strings.HasPrefix(f, "-C"), strings.HasPrefix(f, "--"):
			args = append(args, f)
		}
	}
	if level == "" {
		level = "0"
	}
	args = append(args, "-C", "opt-level="+level, "-o", out)
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	return append(args, source)
}

func (d *RustDriver) Compile(ctx context.Context, source string, flags []string) (string, string, error) {
	bin, err := d.opts.Tools.Lookup(d.compiler())
	if err != nil {
		return "", "", errors.Wrap(err, "install rustc via https://rustup.rs/")
	}
	return compileTo(ctx, d.opts.runner(), bin, func(out string) []string {
		return d.Args(source, flags, out)
	})
}

func (d *RustDriver) Analyze(ctx context.Context, mangled string) (string, error) {
	return analyze(ctx, d.opts, mangled)
}

// compileTo runs bin with an output path in a temporary file and returns the
// file's contents.
func compileTo(ctx context.Context, r Runner, bin string, args func(out string) []string) (string, string, error) {
	tmp, err := os.CreateTemp("", "asmscope-*.s")
	if err != nil {
		return "", "", errors.Wrap(err, "creating assembly output file")
	}
	out := tmp.Name()
	tmp.Close()
	defer os.Remove(out)

	_, stderr, err := r.Run(ctx, bin, args(out), "")
	if IsExit(err) {
		return "", stderr, nil
	}
	if err != nil {
		return "", stderr, err
	}
	asm, err := os.ReadFile(out)
	if err != nil {
		return "", stderr, errors.Wrap(err, "reading assembly output")
	}
	return string(asm), stderr, nil
}

// Sanitize keeps only the lines the analyzer should see: exactly those the
// instruction classifier accepts, so analyzer ordinals line up with display
// ordinals.
func Sanitize(mangled string) string {
	var keep []string
	for _, line := range strings.Split(mangled, "\n") {
		if isa.IsInstruction(line) {
			keep = append(keep, line)
		}
	}
	return strings.Join(keep, "\n")
}

// AnalyzerInput is the text piped to the analyzer for sanitized
// instructions. x86 listings are compiled to Intel syntax, so the analyzer is
// told to parse them that way; the directive is not an instruction and does
// not shift ordinals.
func AnalyzerInput(sanitized, arch string) string {
	if isX86(arch) {
		return ".intel_syntax noprefix\n" + sanitized + "\n"
	}
	return sanitized + "\n"
}

func analyze(ctx context.Context, opts Options, mangled string) (string, error) {
	input := Sanitize(mangled)
	if input == "" {
		return "", ErrNoInstructions
	}
	bin, err := opts.Tools.Lookup("llvm-mca")
	if err != nil {
		return "", err
	}
	stdout, stderr, err := opts.runner().Run(ctx, bin, opts.AnalyzerArgs, AnalyzerInput(input, opts.arch()))
	if err != nil {
		return "", errors.Wrapf(err, "llvm-mca: %s", strings.TrimSpace(stderr))
	}
	return stdout, nil
}
