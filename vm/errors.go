package vm

import (
	"errors"
	"fmt"
)

// OutOfBoundsError reports a memory access outside [0, MemorySize).
type OutOfBoundsError struct {
	Address uint32
	Size    uint32
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("memory access out of bounds: 0x%08X (size %d)", e.Address, e.Size)
}

// UnalignedError reports a word access whose address is not a multiple
// of 4.
type UnalignedError struct {
	Address uint32
}

func (e *UnalignedError) Error() string {
	return fmt.Sprintf("unaligned memory access: 0x%08X (must be 4-byte aligned)", e.Address)
}

// ProtectionError reports a write into the protected text region.
type ProtectionError struct {
	Address uint32
}

func (e *ProtectionError) Error() string {
	return fmt.Sprintf("cannot write to protected text segment: 0x%08X", e.Address)
}

// PCOutOfBoundsError reports a program counter outside the decoded
// instruction list.
type PCOutOfBoundsError struct {
	PC uint32
}

func (e *PCOutOfBoundsError) Error() string {
	return fmt.Sprintf("PC out of bounds: 0x%08X", e.PC)
}

// UnknownInstructionError reports a decoded record whose opcode is not
// handled by its instruction class.
type UnknownInstructionError struct {
	Opcode string
	Class  string
}

func (e *UnknownInstructionError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("unknown %s-type instruction: %s", e.Class, e.Opcode)
	}
	return fmt.Sprintf("unknown instruction: %s", e.Opcode)
}

// InvalidCSRError reports a CSR access to an address outside the
// defined set.
type InvalidCSRError struct {
	Address uint32
}

func (e *InvalidCSRError) Error() string {
	return fmt.Sprintf("invalid CSR address: 0x%03X", e.Address)
}

// InvalidRegisterError reports a GPR index outside 0..31 or an
// unparseable register name.
type InvalidRegisterError struct {
	Register int
	Name     string
}

func (e *InvalidRegisterError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid register: %q", e.Name)
	}
	return fmt.Sprintf("invalid register: %d", e.Register)
}

// StackEntry is one word of the stack window captured in a snapshot.
type StackEntry struct {
	Address uint32
	Value   uint32
}

// Snapshot captures the machine state at the moment of a fault. It is a
// pure data product; rendering it as text is the debugger's job.
type Snapshot struct {
	Registers           [NumRegisters]uint32
	PC                  uint32
	InstructionCount    uint64
	Halted              bool
	WaitingForInterrupt bool
	CSRs                map[uint32]uint32

	// Instruction context around the faulting PC: formatted records
	// starting at instruction index ContextStart; CurrentIndex is the
	// index of PC/4 within the full list.
	ContextStart int
	CurrentIndex int
	Context      []string

	// Stack window relative to sp (lowest address first).
	StackPointer uint32
	Stack        []StackEntry
}

// VMError wraps a runtime fault with a classification tag, one-line
// hints and a full machine snapshot.
type VMError struct {
	Message      string
	Kind         string
	Hints        []string
	FaultAddress *uint32
	Snapshot     *Snapshot
	Err          error
}

func (e *VMError) Error() string { return e.Message }

func (e *VMError) Unwrap() error { return e.Err }

// classify maps a fault to its classification tag, hints and (when the
// error type carries one) the fault address.
func classify(err error) (kind string, hints []string, faultAddr *uint32) {
	var oob *OutOfBoundsError
	var unaligned *UnalignedError
	var prot *ProtectionError
	var pcOOB *PCOutOfBoundsError
	var unknown *UnknownInstructionError
	var badCSR *InvalidCSRError
	var badReg *InvalidRegisterError

	switch {
	case errors.As(err, &oob):
		return "memory-access", []string{
			"check the address computation feeding the load/store",
			"valid addresses are 0x00000 through 0xFFFFF",
		}, &oob.Address
	case errors.As(err, &unaligned):
		return "memory-alignment", []string{
			"word accesses must be 4-byte aligned",
		}, &unaligned.Address
	case errors.As(err, &prot):
		return "memory-protection", []string{
			"text protection is enabled; writes to 0x00000-0x0FFFF are forbidden",
			"place writable data in the data segment (0x10000+)",
		}, &prot.Address
	case errors.As(err, &pcOOB):
		return "pc-out-of-bounds", []string{
			"the program may be missing a HALT",
			"check branch and jump targets",
		}, nil
	case errors.As(err, &unknown):
		return "unknown-instruction", nil, nil
	case errors.As(err, &badCSR):
		return "invalid-csr", []string{
			"defined CSRs: 0x300, 0x304, 0x305, 0x341, 0x342, 0x344",
		}, nil
	case errors.As(err, &badReg):
		return "invalid-register", nil, nil
	}
	return "execution", nil, nil
}
