package lexer

import (
	"regexp"
	"strings"
)

// A bare symbol reference starting with exactly one removable underscore.
var leadingUnderscore = regexp.MustCompile(`(^|[^\w.@%])_([A-Za-z_$])`)

// normalizer applies the portability rewrites to every emitted line.
type normalizer struct {
	stripUnderscore bool
}

// instruction rewrites symbol references outside string literals.
func (n normalizer) instruction(line string) string {
	line = strings.TrimRight(line, " \t\r")
	if !n.stripUnderscore {
		return line
	}
	return outsideQuotes(line, func(s string) string {
		return leadingUnderscore.ReplaceAllString(s, "${1}${2}")
	})
}

// label renders a label definition without its trailing comment and with
// private-label markers removed.
func (n normalizer) label(name string) string {
	name = stripPrivateMarker(name)
	if n.stripUnderscore {
		name = strings.TrimPrefix(name, "_")
	}
	return name + ":"
}

// stripPrivateMarker removes LLVM's literal-name marker and the dot of ELF
// local labels (".LC0" -> "LC0"), unquoting names that no longer need it.
func stripPrivateMarker(name string) string {
	quoted := len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`)
	if quoted {
		name = name[1 : len(name)-1]
	}
	name = strings.TrimPrefix(name, "\x01")
	name = strings.TrimPrefix(name, `\001`)
	if strings.HasPrefix(name, ".L") && len(name) > 2 {
		name = name[1:]
	}
	if quoted && strings.ContainsAny(name, " \t,:\"") {
		return `"` + name + `"`
	}
	return name
}

// outsideQuotes applies fn to the parts of line that are not inside a
// double-quoted string literal.
func outsideQuotes(line string, fn func(string) string) string {
	if !strings.Contains(line, `"`) {
		return fn(line)
	}
	var b strings.Builder
	start := 0
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inQuote && c == '\\' {
			i++
			continue
		}
		if c != '"' {
			continue
		}
		if inQuote {
			b.WriteString(line[start : i+1])
			start = i + 1
		} else {
			b.WriteString(fn(line[start:i]))
			start = i
		}
		inQuote = !inQuote
	}
	if inQuote {
		b.WriteString(line[start:])
	} else {
		b.WriteString(fn(line[start:]))
	}
	return b.String()
}
