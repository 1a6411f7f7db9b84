package vm

import (
	"github.com/lookbusy1344/riscv-emulator/parser"
)

var loadMnemonics = map[string]bool{
	"LW": true, "LB": true, "LH": true, "LBU": true, "LHU": true,
}

func isLoad(opcode string) bool { return loadMnemonics[opcode] }

// executeLoad executes LW/LB/LH/LBU/LHU, then advances PC. Halfword
// loads are composed from two byte reads and carry no alignment
// requirement.
func (vm *VM) executeLoad(inst *parser.Instruction) error {
	rs1, err := vm.CPU.ReadRegister(inst.Rs1)
	if err != nil {
		return err
	}
	addr := rs1 + SignExtend(uint32(inst.Imm)&0xFFF, 12)

	var value uint32
	switch inst.Opcode {
	case "LW":
		value, err = vm.Memory.ReadWord(addr)
	case "LB":
		var b byte
		b, err = vm.Memory.ReadByte(addr)
		value = SignExtend(uint32(b), 8)
	case "LBU":
		var b byte
		b, err = vm.Memory.ReadByte(addr)
		value = uint32(b)
	case "LH":
		value, err = vm.readHalfword(addr)
		value = SignExtend(value, 16)
	case "LHU":
		value, err = vm.readHalfword(addr)
	default:
		return &UnknownInstructionError{Opcode: inst.Opcode, Class: "I"}
	}
	if err != nil {
		return err
	}

	if err := vm.CPU.WriteRegister(inst.Rd, value); err != nil {
		return err
	}
	vm.CPU.IncrementPC()
	return nil
}

func (vm *VM) readHalfword(addr uint32) (uint32, error) {
	b0, err := vm.Memory.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	b1, err := vm.Memory.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint32(b0) | uint32(b1)<<8, nil
}

// executeSType executes SW/SB/SH, then advances PC.
func (vm *VM) executeSType(inst *parser.Instruction) error {
	rs1, err := vm.CPU.ReadRegister(inst.Rs1)
	if err != nil {
		return err
	}
	rs2, err := vm.CPU.ReadRegister(inst.Rs2)
	if err != nil {
		return err
	}
	addr := rs1 + SignExtend(uint32(inst.Imm)&0xFFF, 12)

	switch inst.Opcode {
	case "SW":
		err = vm.Memory.WriteWord(addr, rs2)
	case "SB":
		err = vm.Memory.WriteByte(addr, byte(rs2))
	case "SH":
		if err = vm.Memory.WriteByte(addr, byte(rs2)); err == nil {
			err = vm.Memory.WriteByte(addr+1, byte(rs2>>8))
		}
	default:
		return &UnknownInstructionError{Opcode: inst.Opcode, Class: "S"}
	}
	if err != nil {
		return err
	}

	vm.CPU.IncrementPC()
	return nil
}
