package vm

import (
	"github.com/lookbusy1344/riscv-emulator/parser"
)

// executeBType evaluates a branch predicate. A taken branch adds the
// sign-extended 13-bit offset to PC; otherwise PC advances normally.
func (vm *VM) executeBType(inst *parser.Instruction) error {
	rs1, err := vm.CPU.ReadRegister(inst.Rs1)
	if err != nil {
		return err
	}
	rs2, err := vm.CPU.ReadRegister(inst.Rs2)
	if err != nil {
		return err
	}

	var taken bool
	switch inst.Opcode {
	case "BEQ":
		taken = rs1 == rs2
	case "BNE":
		taken = rs1 != rs2
	case "BLT":
		taken = ToSigned(rs1) < ToSigned(rs2)
	case "BGE":
		taken = ToSigned(rs1) >= ToSigned(rs2)
	case "BLTU":
		taken = rs1 < rs2
	case "BGEU":
		taken = rs1 >= rs2
	default:
		return &UnknownInstructionError{Opcode: inst.Opcode, Class: "B"}
	}

	if taken {
		offset := SignExtend(uint32(inst.Imm)&0x1FFF, 13)
		vm.CPU.SetPC(vm.CPU.PC + offset)
	} else {
		vm.CPU.IncrementPC()
	}
	return nil
}

// executeJType executes JAL and JALR. Both save PC+4 into rd; JAL is
// PC-relative with a 20-bit offset, JALR computes rs1 plus a 12-bit
// offset and masks bit 0 of the target.
func (vm *VM) executeJType(inst *parser.Instruction) error {
	switch inst.Opcode {
	case "JAL":
		if err := vm.CPU.WriteRegister(inst.Rd, vm.CPU.PC+4); err != nil {
			return err
		}
		offset := SignExtend(uint32(inst.Imm)&0xFFFFF, 20)
		vm.CPU.SetPC(vm.CPU.PC + offset)
		return nil

	case "JALR":
		returnAddr := vm.CPU.PC + 4
		rs1, err := vm.CPU.ReadRegister(inst.Rs1)
		if err != nil {
			return err
		}
		offset := SignExtend(uint32(inst.Imm)&0xFFF, 12)
		target := (rs1 + offset) &^ 1
		if err := vm.CPU.WriteRegister(inst.Rd, returnAddr); err != nil {
			return err
		}
		vm.CPU.SetPC(target)
		return nil
	}
	return &UnknownInstructionError{Opcode: inst.Opcode, Class: "J"}
}

// executeUType executes LUI and AUIPC, then advances PC.
func (vm *VM) executeUType(inst *parser.Instruction) error {
	var value uint32
	switch inst.Opcode {
	case "LUI":
		value = (uint32(inst.Imm) & 0xFFFFF) << 12
	case "AUIPC":
		value = (uint32(inst.Imm)&0xFFFFF)<<12 + vm.CPU.PC
	default:
		return &UnknownInstructionError{Opcode: inst.Opcode, Class: "U"}
	}

	if err := vm.CPU.WriteRegister(inst.Rd, value); err != nil {
		return err
	}
	vm.CPU.IncrementPC()
	return nil
}
