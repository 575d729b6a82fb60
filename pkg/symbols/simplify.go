package symbols

import (
	"regexp"
	"strings"

	"asmscope/pkg/lang"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

var cppRules = []rule{
	{regexp.MustCompile(`std::(?:__1|__2|__cxx11)::`), "std::"},
	{regexp.MustCompile(`\[abi:[^\]]*\]`), ""},
}

var rustRules = []rule{
	{regexp.MustCompile(`::h[0-9a-f]{16}\b`), ""},
	{regexp.MustCompile(`core::ops::function::(FnOnce|FnMut|Fn)::`), "${1}::"},
	{regexp.MustCompile(`core::fmt::`), "fmt::"},
	{regexp.MustCompile(`alloc::string::String`), "String"},
	{regexp.MustCompile(`alloc::vec::Vec`), "Vec"},
}

// Simplify shortens demangled names. Every rule deletes text, so repeating
// the passes until nothing changes terminates, and the result is a fixed
// point: Simplify(Simplify(s)) == Simplify(s).
func Simplify(text string, language lang.Language) string {
	rules := cppRules
	if language == lang.Rust {
		rules = rustRules
	}
	for {
		next := text
		for _, r := range rules {
			next = r.re.ReplaceAllString(next, r.repl)
		}
		if next == text {
			return text
		}
		text = next
	}
}

// HasWarning reports whether text ends in a resolver warning.
func HasWarning(text string) bool {
	i := strings.LastIndex(text, "\n")
	return strings.HasPrefix(text[i+1:], WarnPrefix)
}
