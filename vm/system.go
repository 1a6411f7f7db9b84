package vm

import (
	"github.com/lookbusy1344/riscv-emulator/parser"
)

// executeCSR executes the CSR read-modify-write instructions. The CSR
// address travels in the immediate field; the immediate forms carry
// their 5-bit immediate in the rs1 slot. Each operation is atomic with
// respect to the single flow of control.
func (vm *VM) executeCSR(inst *parser.Instruction) error {
	csrAddr := uint32(inst.Imm) & 0xFFF

	var old uint32
	var err error
	switch inst.Opcode {
	case "CSRRW":
		var rs1 uint32
		rs1, err = vm.CPU.ReadRegister(inst.Rs1)
		if err != nil {
			return err
		}
		old, err = vm.CPU.ReadCSR(csrAddr)
		if err == nil {
			err = vm.CPU.WriteCSR(csrAddr, rs1)
		}
	case "CSRRS":
		var rs1 uint32
		rs1, err = vm.CPU.ReadRegister(inst.Rs1)
		if err != nil {
			return err
		}
		old, err = vm.CPU.SetCSRBits(csrAddr, rs1)
	case "CSRRC":
		var rs1 uint32
		rs1, err = vm.CPU.ReadRegister(inst.Rs1)
		if err != nil {
			return err
		}
		old, err = vm.CPU.ClearCSRBits(csrAddr, rs1)
	case "CSRRWI":
		uimm := uint32(inst.Rs1) & 0x1F
		old, err = vm.CPU.ReadCSR(csrAddr)
		if err == nil {
			err = vm.CPU.WriteCSR(csrAddr, uimm)
		}
	case "CSRRSI":
		uimm := uint32(inst.Rs1) & 0x1F
		old, err = vm.CPU.SetCSRBits(csrAddr, uimm)
	case "CSRRCI":
		uimm := uint32(inst.Rs1) & 0x1F
		old, err = vm.CPU.ClearCSRBits(csrAddr, uimm)
	default:
		return &UnknownInstructionError{Opcode: inst.Opcode, Class: "I"}
	}
	if err != nil {
		return err
	}

	if err := vm.CPU.WriteRegister(inst.Rd, old); err != nil {
		return err
	}
	vm.CPU.IncrementPC()
	return nil
}

// executeSystem executes HALT, MRET and WFI.
//
// HALT leaves PC unchanged. MRET restores PC from mepc and re-enables
// interrupts; the engine does not post-increment. WFI sets the waiting
// flag and advances PC so execution resumes after it.
func (vm *VM) executeSystem(inst *parser.Instruction) error {
	switch inst.Opcode {
	case "HALT":
		vm.CPU.Halt()
		return nil

	case "MRET":
		vm.CPU.ReturnFromInterrupt()
		return nil

	case "WFI":
		if !vm.CPU.InterruptsEnabled() {
			vm.warnf("WFI at PC=0x%08X with interrupts disabled - potential deadlock", vm.CPU.PC)
		}
		vm.CPU.WaitForInterrupt()
		vm.CPU.IncrementPC()
		return nil
	}
	return &UnknownInstructionError{Opcode: inst.Opcode, Class: "SYSTEM"}
}
