package lexer

import (
	"regexp"
	"strings"
)

var (
	// .section .debug_info,"",@progbits / .section __DWARF,__debug_line,regular,debug
	sectionDirective = regexp.MustCompile(`^\s*\.(section|pushsection)\s+("[^"]*"|[^\s,]+)(?:,\s*([^\s,]+))?`)
	bareSection      = regexp.MustCompile(`^\s*\.(text|data|bss)\b`)
	popSection       = regexp.MustCompile(`^\s*\.popsection\b`)
	previousSection  = regexp.MustCompile(`^\s*\.previous\b`)

	skipSection = regexp.MustCompile(`^(?:\.debug_|\.zdebug_|__DWARF\b|__debug_|\.note\b|\.note\.|\.comment\b|\.rustc\b|\.eh_frame\b|\.gcc_except_table\b|__LD\b|__compact_unwind\b|\.llvm_addrsig\b|\.llvm\.call-graph-profile\b)`)

	// .loc 1 10 0 prologue_end
	locDirective = regexp.MustCompile(`^\s*\.loc\s+(\d+)\s+(\d+)(?:\s+(\d+))?`)

	// foo: / .LBB0_1:   # %bb.1 / "weird name":
	labelLine = regexp.MustCompile(`^\s*("[^"]+"|[^\s:"#;]+):\s*(?:(?:#|//|;|@).*)?$`)

	cetNoop = regexp.MustCompile(`^\s*(?:endbr64|endbr32|bti(?:\s+[cj]{1,2})?)\s*(?:(?:#|//|;).*)?$`)

	dataDirective = regexp.MustCompile(`^\s*\.(?:string|asciz|ascii|byte)\b`)
)

// Compiler-internal temporaries and basic-block labels. Checked before
// systemSymbol when a label matches both.
var noiseLabel = regexp.MustCompile(`^(?:` +
	`\.L(?:FB|FE|BB|BE|BI|VL|CFI|EHB|EHE|LSDA|tmp|func_begin|func_end|text|etext|debug_|section_|line_table_start|cst_begin|exception|names)\w*` +
	`|\.L\d+` +
	`|L(?:BB|tmp|func_begin|func_end|ttbase|exception)\w*` +
	`|GCC_except_table\w*` +
	`|ltmp\d+` +
	`)$`)

// Labels owned by the language runtime rather than the user's code.
var cppSystemSymbol = regexp.MustCompile(
	`(?:std::|__gnu_cxx|__cxa_|__cxx_|_Unwind_|__gxx_personality|__dso_handle` +
		`|^_{1,2}ZN?K?St|^_{1,2}ZN9__gnu_cxx` +
		`|^_{1,2}Znw[jmy]|^_{1,2}Zna[jmy]|^_{1,2}Zdl|^_{1,2}Zda` +
		`|operator new|operator delete)`)

var rustSystemSymbol = regexp.MustCompile(
	`(?:__rust_alloc|__rust_dealloc|__rust_realloc|__rust_alloc_zeroed|__rust_alloc_error_handler|__rdl_|__rg_` +
		`|core::panicking|std::panicking|core::panic|rust_begin_unwind` +
		`|4core9panicking|3std9panicking|4core5panic)`)

func isNoiseLabel(name string) bool {
	return noiseLabel.MatchString(strings.Trim(name, `"`))
}

func isSystemSymbol(name string, rust bool) bool {
	if cppSystemSymbol.MatchString(name) {
		return true
	}
	return rust && rustSystemSymbol.MatchString(name)
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "//")
}
