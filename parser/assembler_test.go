package parser_test

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/riscv-emulator/parser"
)

func assemble(t *testing.T, source string) ([]*parser.Instruction, *parser.Assembler) {
	t.Helper()
	a := parser.NewAssembler()
	instructions, err := a.Assemble(source)
	if err != nil {
		t.Fatalf("assembly failed: %v", err)
	}
	return instructions, a
}

func TestBasicInstructions(t *testing.T) {
	instructions, _ := assemble(t, `
		ADDI x1, x0, 42
		ADD x3, x1, x2
		SUB x4, x1, x2
		HALT
	`)

	if len(instructions) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(instructions))
	}

	if instructions[0].Opcode != "ADDI" || instructions[0].Rd != 1 || instructions[0].Imm != 42 {
		t.Errorf("unexpected ADDI record: %+v", instructions[0])
	}
	if instructions[1].Type != parser.RType || instructions[1].Rs2 != 2 {
		t.Errorf("unexpected ADD record: %+v", instructions[1])
	}
	if instructions[3].Type != parser.SystemType {
		t.Errorf("HALT should be a system instruction: %+v", instructions[3])
	}
}

func TestCommentsAndBlankLines(t *testing.T) {
	instructions, _ := assemble(t, `
		# leading comment
		ADDI x1, x0, 1  # trailing comment

		ADDI x2, x0, 2  ; semicolon comment
		HALT
	`)
	if len(instructions) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(instructions))
	}
}

func TestRegisterForms(t *testing.T) {
	instructions, _ := assemble(t, `
		ADDI sp, zero, 16
		ADDI T0, X0, 1
		ADDI fp, s0, 0
		HALT
	`)
	if instructions[0].Rd != 2 {
		t.Errorf("sp should be x2, got %d", instructions[0].Rd)
	}
	if instructions[1].Rd != 5 {
		t.Errorf("T0 should be x5, got %d", instructions[1].Rd)
	}
	if instructions[2].Rd != 8 || instructions[2].Rs1 != 8 {
		t.Errorf("fp and s0 should both be x8: %+v", instructions[2])
	}
}

func TestImmediateFormats(t *testing.T) {
	instructions, _ := assemble(t, `
		ADDI x1, x0, 42
		ADDI x2, x0, 0x2A
		ADDI x3, x0, 0b101010
		ADDI x4, x0, -42
		HALT
	`)
	for i := 0; i < 3; i++ {
		if instructions[i].Imm != 42 {
			t.Errorf("instruction %d: expected 42, got %d", i, instructions[i].Imm)
		}
	}
	if instructions[3].Imm != -42 {
		t.Errorf("expected -42, got %d", instructions[3].Imm)
	}
}

func TestMemoryOperands(t *testing.T) {
	instructions, _ := assemble(t, `
		LW x1, 100(x2)
		LW x2, 0(sp)
		SW x3, -8(s0)
		HALT
	`)
	if instructions[0].Imm != 100 || instructions[0].Rs1 != 2 {
		t.Errorf("unexpected LW record: %+v", instructions[0])
	}
	if instructions[1].Rs1 != 2 || instructions[1].Imm != 0 {
		t.Errorf("unexpected LW(sp) record: %+v", instructions[1])
	}
	if instructions[2].Imm != -8 || instructions[2].Rs1 != 8 || instructions[2].Rs2 != 3 {
		t.Errorf("unexpected SW record: %+v", instructions[2])
	}
}

func TestBranchLabelResolution(t *testing.T) {
	instructions, _ := assemble(t, `
		ADDI x1, x0, 1
		BEQ x1, x0, skip
		ADDI x2, x0, 2
	skip:
		HALT
	`)

	// BEQ at index 1, skip at index 3: offset = 12 - 4 = 8.
	if instructions[1].Imm != 8 {
		t.Errorf("expected branch offset 8, got %d", instructions[1].Imm)
	}
}

func TestBackwardBranch(t *testing.T) {
	instructions, _ := assemble(t, `
	loop:
		ADDI x1, x1, 1
		BNE x1, x2, loop
		HALT
	`)
	// BNE at index 1, loop at index 0: offset = 0 - 4 = -4.
	if instructions[1].Imm != -4 {
		t.Errorf("expected branch offset -4, got %d", instructions[1].Imm)
	}
}

func TestDataSectionLayout(t *testing.T) {
	_, a := assemble(t, `
.data
first: .word 1
second: .word 2
third: .byte 7
msg: .string "Hi"

.text
	HALT
	`)

	labels := a.Labels()
	if labels["first"] != 0x10000 || labels["second"] != 0x10004 {
		t.Errorf("unexpected word label addresses: %v", labels)
	}
	if labels["third"] != 0x10008 {
		t.Errorf("unexpected byte label address: 0x%X", labels["third"])
	}
	if labels["msg"] != 0x10009 {
		t.Errorf("unexpected string label address: 0x%X", labels["msg"])
	}

	data := a.DataSection()
	if data[0x10000] != 1 || data[0x10001] != 0 {
		t.Errorf("word not little-endian: %v", data)
	}
	if data[0x10009] != 'H' || data[0x1000A] != 'i' || data[0x1000B] != 0 {
		t.Errorf("string not null-terminated: %v", data)
	}
}

func TestWordDirectiveLittleEndian(t *testing.T) {
	_, a := assemble(t, `
.data
val: .word 0xDEADBEEF
.text
	HALT
	`)
	data := a.DataSection()
	want := []byte{0xEF, 0xBE, 0xAD, 0xDE}
	for i, b := range want {
		if data[uint32(0x10000+i)] != b {
			t.Errorf("byte %d: expected 0x%02X, got 0x%02X", i, b, data[uint32(0x10000+i)])
		}
	}
}

func TestAsciizSynonym(t *testing.T) {
	_, a := assemble(t, `
.data
s: .asciiz "ok"
.text
	HALT
	`)
	data := a.DataSection()
	if data[0x10000] != 'o' || data[0x10001] != 'k' || data[0x10002] != 0 {
		t.Errorf("asciiz layout wrong: %v", data)
	}
}

func TestStringEscapes(t *testing.T) {
	_, a := assemble(t, `
.data
s: .string "a\nb"
.text
	HALT
	`)
	data := a.DataSection()
	if data[0x10001] != 0x0A {
		t.Errorf("expected newline byte, got 0x%02X", data[0x10001])
	}
}

func TestLAExpandsToTwoInstructions(t *testing.T) {
	instructions, _ := assemble(t, `
.data
test_label: .word 42

.text
	LA x10, test_label
	`)

	if len(instructions) != 2 {
		t.Fatalf("LA should expand to 2 instructions, got %d", len(instructions))
	}
	if instructions[0].Opcode != "LUI" || instructions[1].Opcode != "ADDI" {
		t.Errorf("expected LUI+ADDI, got %s+%s", instructions[0].Opcode, instructions[1].Opcode)
	}
	if instructions[1].Rd != 10 || instructions[1].Rs1 != 10 {
		t.Errorf("ADDI half should use rd as source: %+v", instructions[1])
	}
}

func TestLALoadsCorrectAddress(t *testing.T) {
	instructions, a := assemble(t, `
.data
first: .word 1
second: .word 2
third: .word 3

.text
	LA x6, third
	`)

	addr := a.Labels()["third"]
	if addr != 0x10008 {
		t.Fatalf("expected third at 0x10008, got 0x%X", addr)
	}

	reconstructed := uint32(instructions[0].Imm)<<12 | uint32(instructions[1].Imm)&0xFFF
	if reconstructed != addr {
		t.Errorf("LA reconstructs 0x%X, want 0x%X", reconstructed, addr)
	}
}

func TestLAWithTextLabel(t *testing.T) {
	instructions, a := assemble(t, `
.text
main:
	LA x1, my_function
	JALR x0, x1, 0

my_function:
	ADDI x5, x5, 1
	JALR x0, x1, 0
	`)

	if a.Labels()["my_function"] != 12 {
		t.Fatalf("expected my_function at 12, got %d", a.Labels()["my_function"])
	}
	loaded := uint32(instructions[0].Imm)<<12 | uint32(instructions[1].Imm)&0xFFF
	if loaded != 12 {
		t.Errorf("LA loads %d, want 12", loaded)
	}
}

func TestJPseudoInstruction(t *testing.T) {
	instructions, _ := assemble(t, `
		ADDI x10, x0, 1
		J skip
		ADDI x11, x0, 2
	skip:
		HALT
	`)

	j := instructions[1]
	if j.Opcode != "JAL" || j.Rd != 0 {
		t.Errorf("J should expand to JAL x0: %+v", j)
	}
	// J at index 1, skip at index 3: offset 8.
	if j.Imm != 8 {
		t.Errorf("expected offset 8, got %d", j.Imm)
	}
}

func TestCallAndRet(t *testing.T) {
	instructions, _ := assemble(t, `
		CALL fn
		HALT
	fn:
		RET
	`)

	call := instructions[0]
	if call.Opcode != "JAL" || call.Rd != 1 {
		t.Errorf("CALL should expand to JAL ra: %+v", call)
	}
	ret := instructions[2]
	if ret.Opcode != "JALR" || ret.Rd != 0 || ret.Rs1 != 1 || ret.Imm != 0 {
		t.Errorf("RET should expand to JALR x0, ra, 0: %+v", ret)
	}
}

func TestNOPEncoding(t *testing.T) {
	instructions, _ := assemble(t, "NOP\nHALT")
	nop := instructions[0]
	if nop.Opcode != "ADDI" || nop.Rd != 0 || nop.Rs1 != 0 || nop.Imm != 0 {
		t.Errorf("NOP should encode as ADDI x0, x0, 0: %+v", nop)
	}
}

func TestCSRInstructions(t *testing.T) {
	instructions, _ := assemble(t, `
		CSRRW x1, 0x300, x2
		CSRRS x3, 0x304, x4
		CSRRWI x5, 0x305, 13
		HALT
	`)

	if instructions[0].Imm != 0x300 || instructions[0].Rs1 != 2 {
		t.Errorf("unexpected CSRRW record: %+v", instructions[0])
	}
	// Immediate form: 5-bit immediate in the rs1 slot.
	if instructions[2].Rs1 != 13 || instructions[2].Imm != 0x305 {
		t.Errorf("unexpected CSRRWI record: %+v", instructions[2])
	}
}

func TestCaseInsensitiveMnemonics(t *testing.T) {
	instructions, _ := assemble(t, `
		addi x1, x0, 1
		Addi x2, x0, 2
		HALT
	`)
	if instructions[0].Opcode != "ADDI" || instructions[1].Opcode != "ADDI" {
		t.Errorf("mnemonics should be upper-cased")
	}
}

func TestErrorUnknownInstruction(t *testing.T) {
	_, err := parser.NewAssembler().Assemble("BOGUS x1, x2\nHALT")
	if err == nil || !strings.Contains(err.Error(), "unknown instruction") {
		t.Errorf("expected unknown instruction error, got %v", err)
	}
}

func TestErrorUndefinedLabel(t *testing.T) {
	_, err := parser.NewAssembler().Assemble("J nowhere\nHALT")
	if err == nil || !strings.Contains(err.Error(), "undefined label") {
		t.Errorf("expected undefined label error, got %v", err)
	}
}

func TestErrorOperandCount(t *testing.T) {
	_, err := parser.NewAssembler().Assemble("ADD x1, x2")
	if err == nil || !strings.Contains(err.Error(), "requires 3 operands") {
		t.Errorf("expected operand count error, got %v", err)
	}

	_, err = parser.NewAssembler().Assemble("LA x10")
	if err == nil || !strings.Contains(err.Error(), "requires 2 operands") {
		t.Errorf("expected LA operand error, got %v", err)
	}
}

func TestErrorInvalidRegister(t *testing.T) {
	_, err := parser.NewAssembler().Assemble("ADD x1, x99, x2")
	if err == nil || !strings.Contains(err.Error(), "invalid register") {
		t.Errorf("expected invalid register error, got %v", err)
	}
}

func TestErrorReportsLineNumber(t *testing.T) {
	_, err := parser.NewAssembler().Assemble("ADDI x1, x0, 1\nBOGUS\nHALT")
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 in error, got %v", err)
	}
}

func TestLabelOnOwnLine(t *testing.T) {
	instructions, a := assemble(t, `
	start:
		ADDI x1, x0, 1
		HALT
	`)
	if a.Labels()["start"] != 0 {
		t.Errorf("start should be at 0, got %d", a.Labels()["start"])
	}
	if len(instructions) != 2 {
		t.Errorf("expected 2 instructions, got %d", len(instructions))
	}
}
