// Package symbols turns mangled symbol names in cleaned assembly back into
// readable ones.
package symbols

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ianlancetaylor/demangle"

	"asmscope/pkg/lang"
	"asmscope/pkg/toolchain"
)

// WarnPrefix starts every note the resolver appends to its output.
const WarnPrefix = "# [WARN] "

// Demangler tools per language, in preference order.
var demanglers = map[lang.Language][]string{
	lang.CPP:  {"c++filt"},
	lang.Rust: {"rustfilt", "llvm-cxxfilt"},
}

// Resolver demangles cleaned assembly and simplifies the result.
// The zero value uses c++filt/rustfilt from PATH.
type Resolver struct {
	Tools  toolchain.Toolset
	Runner toolchain.Runner
	// Builtin demangles in-process instead of running a tool.
	Builtin bool
}

// Resolve never fails: when no demangler is usable the input comes back
// unchanged with a warning line appended. Appending keeps every existing
// line at its index.
func (r *Resolver) Resolve(ctx context.Context, text string, language lang.Language) string {
	return Simplify(r.Demangle(ctx, text, language), language)
}

// Demangle runs the demangling step alone.
func (r *Resolver) Demangle(ctx context.Context, text string, language lang.Language) string {
	if text == "" {
		return text
	}
	if r.Builtin {
		return demangleBuiltin(text)
	}

	tools, ok := demanglers[language]
	if !ok {
		tools = demanglers[lang.CPP]
	}
	bin, err := r.lookup(tools)
	if err != nil {
		return appendWarning(text, fmt.Sprintf("%s not found, symbols mangled.", tools[0]))
	}

	runner := r.Runner
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}
	out, _, err := runner.Run(ctx, bin, nil, text)
	if toolchain.IsExit(err) {
		return text
	}
	if err != nil {
		return appendWarning(text, fmt.Sprintf("demangling failed: %v", err))
	}
	// filters terminate every line; keep the input's line count
	if !strings.HasSuffix(text, "\n") {
		out = strings.TrimSuffix(out, "\n")
	}
	return out
}

func (r *Resolver) lookup(tools []string) (string, error) {
	var err error
	for _, name := range tools {
		var bin string
		if bin, err = r.Tools.Lookup(name); err == nil {
			return bin, nil
		}
	}
	return "", err
}

func appendWarning(text, msg string) string {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + WarnPrefix + msg
}

// Identifier-shaped runs; only those that look mangled are rewritten.
var symbolToken = regexp.MustCompile(`[\w$.]+`)

func demangleBuiltin(text string) string {
	return symbolToken.ReplaceAllStringFunc(text, func(tok string) string {
		name := tok
		// Mach-O adds one more leading underscore
		if strings.HasPrefix(name, "__Z") || strings.HasPrefix(name, "__R") {
			name = name[1:]
		}
		if !strings.HasPrefix(name, "_Z") && !strings.HasPrefix(name, "_R") {
			return tok
		}
		out, err := demangle.ToString(name)
		if err != nil {
			return tok
		}
		return out
	})
}
