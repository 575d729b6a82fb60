package lang

import (
	"path/filepath"
	"strings"
)

// Language selects the naming convention and toolchain used for a source file.
type Language string

const (
	CPP     Language = "cpp"
	Rust    Language = "rust"
	Unknown Language = "unknown"
)

var extensions = map[string]Language{
	".cpp": CPP,
	".cc":  CPP,
	".cxx": CPP,
	".c":   CPP,
	".C":   CPP,
	".rs":  Rust,
}

// Detect returns the language of a source file from its extension.
func Detect(path string) Language {
	if l, ok := extensions[filepath.Ext(path)]; ok {
		return l
	}
	return Unknown
}

// Supported reports whether Detect recognizes the file.
func Supported(path string) bool {
	_, ok := extensions[filepath.Ext(path)]
	return ok
}

// Parse maps a user supplied name ("c++", "rs", ...) onto a Language.
func Parse(name string) Language {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cpp", "c++", "cxx", "c", "native":
		return CPP
	case "rust", "rs":
		return Rust
	default:
		return Unknown
	}
}

// SourceLabel is the pane title used when showing source lines.
func SourceLabel(l Language) string {
	if l == Rust {
		return "RUST SOURCE"
	}
	return "C++ SOURCE"
}
