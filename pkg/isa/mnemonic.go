package isa

import (
	"strings"
)

// baseOps are mnemonics recognized verbatim. Entries marked in sizedOps also
// accept a single AT&T operand-size suffix (b, w, l, q).
var baseOps = map[string]bool{
	// x86 integer
	"mov": true, "movabs": true, "movsx": true, "movzx": true, "movsxd": true,
	"lea": true, "add": true, "adc": true, "sub": true, "sbb": true,
	"imul": true, "mul": true, "idiv": true, "div": true, "inc": true, "dec": true,
	"neg": true, "not": true, "and": true, "or": true, "xor": true, "andn": true,
	"cmp": true, "test": true, "bt": true, "bts": true, "btr": true, "btc": true,
	"shl": true, "shr": true, "sar": true, "sal": true, "rol": true, "ror": true,
	"shld": true, "shrd": true, "shlx": true, "shrx": true, "sarx": true,
	"bsf": true, "bsr": true, "lzcnt": true, "tzcnt": true, "popcnt": true,
	"bswap": true, "xchg": true, "xadd": true, "cmpxchg": true,
	"cdq": true, "cqo": true, "cdqe": true, "cltq": true, "cltd": true, "cqto": true, "cwtl": true,
	"call": true, "ret": true, "jmp": true, "push": true, "pop": true,
	"leave": true, "enter": true, "nop": true, "int": true, "int3": true,
	"syscall": true, "hlt": true, "ud2": true, "pause": true,
	"rep": true, "repe": true, "repz": true, "repne": true, "repnz": true, "lock": true,
	"stos": true, "movs": true, "cmps": true, "scas": true, "lods": true,
	"jcxz": true, "jecxz": true, "jrcxz": true, "loop": true,
	"cmpxchg8b": true, "cmpxchg16b": true, "rdtsc": true, "cpuid": true,
	"mfence": true, "lfence": true, "sfence": true, "prefetcht0": true, "prefetchnta": true,

	// SSE/AVX scalar and packed
	"movss": true, "movsd": true, "movaps": true, "movapd": true, "movups": true, "movupd": true,
	"movdqa": true, "movdqu": true, "movd": true, "movq": true, "movhps": true, "movlps": true,
	"addss": true, "addsd": true, "addps": true, "addpd": true,
	"subss": true, "subsd": true, "subps": true, "subpd": true,
	"mulss": true, "mulsd": true, "mulps": true, "mulpd": true,
	"divss": true, "divsd": true, "divps": true, "divpd": true,
	"sqrtss": true, "sqrtsd": true, "minss": true, "minsd": true, "maxss": true, "maxsd": true,
	"andps": true, "andpd": true, "orps": true, "orpd": true, "xorps": true, "xorpd": true,
	"ucomiss": true, "ucomisd": true, "comiss": true, "comisd": true,
	"cvtsi2ss": true, "cvtsi2sd": true, "cvttss2si": true, "cvttsd2si": true,
	"cvtss2sd": true, "cvtsd2ss": true, "cvtdq2ps": true, "cvttps2dq": true,
	"shufps": true, "pshufd": true, "unpcklps": true, "unpcklpd": true,
	"paddd": true, "paddq": true, "psubd": true, "pmulld": true, "pxor": true, "por": true, "pand": true,
	"pcmpeqd": true, "pcmpeqb": true, "pmovmskb": true, "movmskps": true,
	"vzeroupper": true, "vfmadd231ss": true, "vfmadd231sd": true, "vfmadd231ps": true,
	"vbroadcastss": true, "vpbroadcastd": true, "vextractf128": true, "vinsertf128": true,

	// AArch64
	"ldr": true, "ldrb": true, "ldrh": true, "ldrsw": true, "ldur": true,
	"str": true, "strb": true, "strh": true, "stur": true,
	"ldp": true, "stp": true, "adr": true, "adrp": true,
	"madd": true, "msub": true, "sdiv": true, "udiv": true, "smull": true, "umull": true,
	"orr": true, "eor": true, "bic": true, "mvn": true, "movk": true, "movz": true, "movn": true,
	"lsl": true, "lsr": true, "asr": true, "ands": true, "adds": true, "subs": true, "cmn": true, "tst": true,
	"csel": true, "csinc": true, "csneg": true, "cset": true, "cinc": true,
	"b": true, "bl": true, "br": true, "blr": true, "cbz": true, "cbnz": true, "tbz": true, "tbnz": true,
	"sxtw": true, "uxtw": true, "sxtb": true, "uxtb": true, "fmov": true, "fadd": true,
	"fsub": true, "fmul": true, "fdiv": true, "fcmp": true, "scvtf": true, "fcvtzs": true,
}

// sizedOps accept an AT&T size suffix: addl, pushq, movb, ...
var sizedOps = map[string]bool{
	"mov": true, "movabs": true, "lea": true, "add": true, "adc": true, "sub": true, "sbb": true,
	"imul": true, "mul": true, "idiv": true, "div": true, "inc": true, "dec": true,
	"neg": true, "not": true, "and": true, "or": true, "xor": true, "andn": true,
	"cmp": true, "test": true, "bt": true, "bts": true, "btr": true, "btc": true,
	"shl": true, "shr": true, "sar": true, "sal": true, "rol": true, "ror": true,
	"shld": true, "shrd": true, "shlx": true, "shrx": true, "sarx": true,
	"bsf": true, "bsr": true, "lzcnt": true, "tzcnt": true, "popcnt": true, "bswap": true,
	"xchg": true, "xadd": true, "cmpxchg": true,
	"call": true, "ret": true, "jmp": true, "push": true, "pop": true, "leave": true,
	"stos": true, "movs": true, "cmps": true, "scas": true, "lods": true, "nop": true,
	"cvtsi2ss": true, "cvtsi2sd": true, "cvttss2si": true, "cvttsd2si": true,
}

// conditions are the x86 condition-code spellings used by jcc, cmovcc and setcc.
var conditions = map[string]bool{
	"o": true, "no": true, "b": true, "c": true, "nae": true, "ae": true, "nb": true, "nc": true,
	"e": true, "z": true, "ne": true, "nz": true, "be": true, "na": true, "a": true, "nbe": true,
	"s": true, "ns": true, "p": true, "pe": true, "np": true, "po": true,
	"l": true, "nge": true, "ge": true, "nl": true, "le": true, "ng": true, "g": true, "nle": true,
}

// armConditions are AArch64 condition codes for b.cond.
var armConditions = map[string]bool{
	"eq": true, "ne": true, "cs": true, "hs": true, "cc": true, "lo": true, "mi": true, "pl": true,
	"vs": true, "vc": true, "hi": true, "ls": true, "ge": true, "lt": true, "gt": true, "le": true,
	"al": true, "nv": true,
}

// IsMnemonic reports whether word is part of the instruction vocabulary.
// Matching is case-insensitive and on the whole word.
func IsMnemonic(word string) bool {
	w := strings.ToLower(word)
	if w == "" {
		return false
	}
	if baseOps[w] {
		return true
	}
	if rest, ok := strings.CutPrefix(w, "b."); ok {
		return armConditions[rest]
	}
	if rest, ok := strings.CutPrefix(w, "j"); ok && conditions[rest] {
		return true
	}
	if rest, ok := strings.CutPrefix(w, "set"); ok && (conditions[rest] || conditions[strings.TrimSuffix(rest, "b")]) {
		return true
	}
	if rest, ok := strings.CutPrefix(w, "cmov"); ok && (conditions[rest] || conditions[trimSizeSuffix(rest)]) {
		return true
	}
	if isExtendMove(w) {
		return true
	}
	if base := trimSizeSuffix(w); base != w && sizedOps[base] {
		return true
	}
	// VEX encoded forms of SSE instructions (vmovss, vaddsd, vpxor, ...).
	if rest, ok := strings.CutPrefix(w, "v"); ok && baseOps[rest] && !sizedOps[rest] {
		return true
	}
	return false
}

// isExtendMove matches AT&T sign/zero extension moves: movzbl, movswq, movslq.
func isExtendMove(w string) bool {
	if len(w) != 6 || !(strings.HasPrefix(w, "movz") || strings.HasPrefix(w, "movs")) {
		return false
	}
	from, to := w[4], w[5]
	return strings.IndexByte("bwl", from) >= 0 && strings.IndexByte("wlq", to) >= 0 && from != to
}

func trimSizeSuffix(w string) string {
	if len(w) < 2 {
		return w
	}
	switch w[len(w)-1] {
	case 'b', 'w', 'l', 'q':
		return w[:len(w)-1]
	}
	return w
}

// Mnemonic returns the lower-cased first field of an instruction line, and
// whether the line is an instruction at all. Labels, blank lines, comments
// and directives are never instructions.
func Mnemonic(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasSuffix(trimmed, ":") {
		return "", false
	}
	switch trimmed[0] {
	case '#', ';', '.', '@':
		return "", false
	}
	if strings.HasPrefix(trimmed, "//") {
		return "", false
	}
	end := strings.IndexAny(trimmed, " \t")
	word := trimmed
	if end >= 0 {
		word = trimmed[:end]
	}
	if !IsMnemonic(word) {
		return "", false
	}
	return strings.ToLower(word), true
}

// IsInstruction reports whether a display line is a real instruction.
func IsInstruction(line string) bool {
	_, ok := Mnemonic(line)
	return ok
}
