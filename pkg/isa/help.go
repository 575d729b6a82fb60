package isa

import "strings"

// Help describes a common instruction for the reference pane.
type Help struct {
	Key         string
	Description string
	Example     string
	Meaning     string
}

var helpTable = []Help{
	{"MOV", "Copies data from one location to another.", "mov eax, ebx", "Copy value from EBX into EAX"},
	{"PUSH", "Pushes a value onto the stack.", "push rax", "Put RAX onto the stack"},
	{"POP", "Pops a value from the stack into a register.", "pop rdi", "Take value from top of stack into RDI"},
	{"ADD", "Adds two operands and stores the result in the first.", "add eax, 5", "EAX = EAX + 5"},
	{"SUB", "Subtracts the second operand from the first.", "sub rsp, 16", "Allocate 16 bytes on the stack"},
	{"IMUL", "Signed multiplication of two operands.", "imul rax, rbx", "RAX = RAX * RBX"},
	{"IDIV", "Signed division.", "idiv rcx", "Divide RDX:RAX by RCX"},
	{"INC", "Increments an operand by 1.", "inc ecx", "ECX = ECX + 1"},
	{"DEC", "Decrements an operand by 1.", "dec edx", "EDX = EDX - 1"},
	{"CMP", "Compares two operands by setting CPU flags.", "cmp eax, 0", "Check if EAX is zero"},
	{"JMP", "Unconditional jump to a label or address.", "jmp .L2", "Always jump to label .L2"},
	{"JE/JZ", "Jump if equal / Jump if zero (ZF=1).", "je .Lerror", "Jump to .Lerror if previous CMP was equal"},
	{"JNE/JNZ", "Jump if not equal / Jump if not zero (ZF=0).", "jne .Lloop", "Jump to .Lloop if previous CMP was not equal"},
	{"JG", "Jump if greater (signed).", "jg .Lgreater", "Jump if left > right (signed)"},
	{"JL", "Jump if less (signed).", "jl .Lless", "Jump if left < right (signed)"},
	{"CALL", "Calls a function; pushes return address to stack.", "call printf", "Execute the printf function"},
	{"RET", "Returns from a function.", "ret", "Return to the calling function"},
	{"LEA", "Load Effective Address (calculates pointer).", "lea rax, [rbp-8]", "Get the address of a local variable"},
	{"AND/OR/XOR", "Bitwise logical operations.", "xor eax, eax", "Quickly set EAX to zero"},
	{"NOP", "No Operation (does nothing for one cycle).", "nop", "Wait/Do nothing for one cycle"},
}

var helpIndex = buildHelpIndex()

func buildHelpIndex() map[string]Help {
	idx := make(map[string]Help)
	for _, h := range helpTable {
		for _, alias := range strings.Split(h.Key, "/") {
			idx[alias] = h
		}
	}
	return idx
}

// LookupHelp finds the help entry for a mnemonic. AT&T size suffixes are
// ignored, so "pushq" resolves to PUSH and "retq" to RET.
func LookupHelp(mnemonic string) (Help, bool) {
	m := strings.ToUpper(strings.TrimSpace(mnemonic))
	if m == "" {
		return Help{}, false
	}
	if h, ok := helpIndex[m]; ok {
		return h, true
	}
	if base := strings.ToUpper(trimSizeSuffix(strings.ToLower(m))); base != m {
		if h, ok := helpIndex[base]; ok {
			return h, true
		}
	}
	return Help{}, false
}

// HelpForLine resolves the help entry for the instruction on a display line.
func HelpForLine(line string) (string, Help, bool) {
	m, ok := Mnemonic(line)
	if !ok {
		return "", Help{}, false
	}
	h, found := LookupHelp(m)
	return strings.ToUpper(m), h, found
}

// HelpEntries returns the reference table in display order.
func HelpEntries() []Help {
	out := make([]Help, len(helpTable))
	copy(out, helpTable)
	return out
}
