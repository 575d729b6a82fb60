package isa

import "testing"

func TestIsMnemonic(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"mov", true},
		{"MOV", true},
		{"movl", true},
		{"movq", true},
		{"pushq", true},
		{"popq", true},
		{"retq", true},
		{"leaq", true},
		{"movzbl", true},
		{"movslq", true},
		{"movabsq", true},
		{"jne", true},
		{"ja", true},
		{"jmpq", true},
		{"sete", true},
		{"cmovle", true},
		{"cmovgeq", true},
		{"vmovss", true},
		{"vpxor", true},
		{"cvtsi2sdl", true},
		{"nopw", true},
		{"b.eq", true},
		{"b.xx", false},
		{"stp", true},
		{"adrp", true},
		{"endbr64", false},
		{"main", false},
		{"foo", false},
		{"movzz", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsMnemonic(tc.word); got != tc.want {
			t.Errorf("IsMnemonic(%q) = %v; want %v", tc.word, got, tc.want)
		}
	}
}

func TestMnemonic(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOk bool
	}{
		{"\tpushq\t%rbp", "pushq", true},
		{"  mov eax, DWORD PTR [rbp-4]", "mov", true},
		{"\tMOVL $0, %eax  # x", "movl", true},
		{"\tret", "ret", true},
		{"main:", "", false},
		{"foo(int, int):", "", false},
		{"example::add:", "", false},
		{"", "", false},
		{"   ", "", false},
		{"# comment", "", false},
		{"// comment", "", false},
		{"; %bb.0:", "", false},
		{"\t.string \"add\"", "", false},
		{"\tadd:", "", false},
		{"call _Z3foov", "call", true},
		{"call foo(int)", "call", true},
	}
	for _, tc := range tests {
		got, ok := Mnemonic(tc.line)
		if got != tc.want || ok != tc.wantOk {
			t.Errorf("Mnemonic(%q) = %q, %v; want %q, %v", tc.line, got, ok, tc.want, tc.wantOk)
		}
	}
}

func TestLookupHelp(t *testing.T) {
	tests := []struct {
		mnemonic string
		wantKey  string
		wantOk   bool
	}{
		{"mov", "MOV", true},
		{"pushq", "PUSH", true},
		{"retq", "RET", true},
		{"jz", "JE/JZ", true},
		{"JNZ", "JNE/JNZ", true},
		{"xor", "AND/OR/XOR", true},
		{"xorl", "AND/OR/XOR", true},
		{"vfmadd231ss", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		h, ok := LookupHelp(tc.mnemonic)
		if ok != tc.wantOk || h.Key != tc.wantKey {
			t.Errorf("LookupHelp(%q) = %q, %v; want %q, %v", tc.mnemonic, h.Key, ok, tc.wantKey, tc.wantOk)
		}
	}
}

func TestHelpForLine(t *testing.T) {
	m, h, ok := HelpForLine("\tleaq\t-8(%rbp), %rax")
	if !ok || m != "LEAQ" || h.Key != "LEA" {
		t.Errorf("HelpForLine(leaq) = %q, %q, %v; want LEAQ, LEA, true", m, h.Key, ok)
	}
	if _, _, ok := HelpForLine("main:"); ok {
		t.Errorf("HelpForLine(main:) found help for a label")
	}
	m, _, ok = HelpForLine("\tcvttsd2si %xmm0, %eax")
	if ok || m != "CVTTSD2SI" {
		t.Errorf("HelpForLine(cvttsd2si) = %q, %v; want CVTTSD2SI, false", m, ok)
	}
}

func TestHelpEntriesIsCopy(t *testing.T) {
	entries := HelpEntries()
	if len(entries) != 20 {
		t.Fatalf("len(HelpEntries()) = %d; want 20", len(entries))
	}
	entries[0].Key = "CHANGED"
	if HelpEntries()[0].Key != "MOV" {
		t.Errorf("HelpEntries returned shared storage")
	}
}
