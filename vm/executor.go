// Package vm implements the RISC virtual machine: the register and CSR
// file, the 1 MiB memory with memory-mapped devices, the two timers, the
// text display and the fetch-execute step loop.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/lookbusy1344/riscv-emulator/parser"
)

// DefaultMaxInstructions is the run cap when the driver does not supply
// one.
const DefaultMaxInstructions = 1000000

// VM is the complete virtual machine. It owns the CPU, memory, devices
// and the decoded instruction list, and drives them one step at a time.
type VM struct {
	CPU       *CPU
	Memory    *Memory
	Display   *Display
	Timer     *Timer
	RTTimer   *RealTimeTimer
	Clock     *Clock
	Assembler *parser.Assembler

	Instructions []*parser.Instruction
	Breakpoints  map[uint32]bool

	// WarningWriter receives non-fatal diagnostics (e.g. WFI with
	// interrupts disabled). Defaults to stderr.
	WarningWriter io.Writer
}

// NewVM creates a fully wired virtual machine with the clock disabled.
func NewVM() *VM {
	display := NewDisplay()
	timer := NewTimer()
	rtTimer := NewRealTimeTimer()
	return &VM{
		CPU:           NewCPU(),
		Memory:        NewMemory(display, timer, rtTimer),
		Display:       display,
		Timer:         timer,
		RTTimer:       rtTimer,
		Clock:         NewClock(1000, false),
		Assembler:     parser.NewAssembler(),
		Breakpoints:   make(map[uint32]bool),
		WarningWriter: os.Stderr,
	}
}

// LoadProgram assembles source text, preloads the data section and
// resets the machine: registers, CSRs, timers and PC cleared, then
// sp set to the top of the stack.
func (vm *VM) LoadProgram(source string) error {
	instructions, err := vm.Assembler.Assemble(source)
	if err != nil {
		return fmt.Errorf("assembly error: %w", err)
	}
	vm.Instructions = instructions

	for address, value := range vm.Assembler.DataSection() {
		if err := vm.Memory.SetByte(address, value); err != nil {
			return err
		}
	}

	vm.CPU.Reset()
	vm.Timer.Reset()
	vm.RTTimer.Reset()
	vm.Clock.Reset()

	// Stack grows downward from the top of the stack region.
	_ = vm.CPU.WriteRegister(2, InitialSP)

	return nil
}

// Step executes one machine cycle:
//
//  1. halted -> false
//  2. tick the cycle timer, check the real-time timer; raise mip bits
//  3. dispatch the highest-priority pending enabled interrupt (waking
//     WFI first)
//  4. if still waiting for interrupt, count the cycle and return
//  5. bounds-check PC, honour breakpoints, fetch and execute
//
// It returns false when execution should stop (halt or breakpoint) and
// wraps any fault into a *VMError carrying a machine snapshot.
func (vm *VM) Step() (bool, error) {
	if vm.CPU.Halted {
		return false, nil
	}

	if vm.Timer.Tick() {
		vm.CPU.SetInterruptPending(MieMTIE)
	}
	if vm.RTTimer.Check() {
		vm.CPU.SetInterruptPending(MieRTIE)
	}

	if vm.CPU.HasPendingInterrupts() {
		if cause, ok := vm.CPU.HighestPriorityInterrupt(); ok {
			if vm.CPU.WaitingForInterrupt {
				vm.CPU.WakeFromWait()
			}
			vm.CPU.EnterInterrupt(cause)
			switch cause {
			case IntTimer:
				vm.CPU.ClearInterruptPending(MieMTIE)
			case IntTimerRealtime:
				vm.CPU.ClearInterruptPending(MieRTIE)
			}
		}
	}

	if vm.CPU.WaitingForInterrupt {
		// Timers keep ticking while the CPU sleeps; the cycle still
		// counts.
		vm.CPU.InstructionCount++
		vm.Clock.Tick()
		return true, nil
	}

	index := vm.CPU.PC / 4
	if vm.CPU.PC%4 != 0 || index >= uint32(len(vm.Instructions)) {
		err := &PCOutOfBoundsError{PC: vm.CPU.PC}
		return false, vm.wrapError(err.Error(), err)
	}

	if vm.Breakpoints[vm.CPU.PC] {
		return false, nil
	}

	inst := vm.Instructions[index]
	if err := vm.execute(inst); err != nil {
		return false, vm.wrapError(
			fmt.Sprintf("execution error at PC=0x%08X: %v", vm.CPU.PC, err), err)
	}
	vm.CPU.InstructionCount++

	vm.Clock.Tick()

	return !vm.CPU.Halted, nil
}

// Run executes until halt, breakpoint, error or the instruction cap.
// It returns the number of steps after which execution continued; the
// step that halts the machine or pauses at a breakpoint is not counted.
func (vm *VM) Run(maxInstructions int) (int, error) {
	if maxInstructions <= 0 {
		maxInstructions = DefaultMaxInstructions
	}

	count := 0
	for count < maxInstructions {
		cont, err := vm.Step()
		if err != nil {
			return count, err
		}
		if !cont {
			break
		}
		count++
	}
	return count, nil
}

// execute dispatches one decoded instruction to its class handler.
func (vm *VM) execute(inst *parser.Instruction) error {
	switch inst.Type {
	case parser.RType:
		return vm.executeRType(inst)
	case parser.IType:
		return vm.executeIType(inst)
	case parser.SType:
		return vm.executeSType(inst)
	case parser.BType:
		return vm.executeBType(inst)
	case parser.JType:
		return vm.executeJType(inst)
	case parser.UType:
		return vm.executeUType(inst)
	case parser.SystemType:
		return vm.executeSystem(inst)
	}
	return &UnknownInstructionError{Opcode: inst.Opcode}
}

// AddBreakpoint sets a breakpoint at the given byte address.
func (vm *VM) AddBreakpoint(address uint32) {
	vm.Breakpoints[address] = true
}

// RemoveBreakpoint clears a breakpoint.
func (vm *VM) RemoveBreakpoint(address uint32) {
	delete(vm.Breakpoints, address)
}

// State is the driver-visible machine state.
type State struct {
	PC                  uint32
	Registers           [NumRegisters]uint32
	InstructionCount    uint64
	Halted              bool
	WaitingForInterrupt bool
}

// GetState returns a copy of the current machine state.
func (vm *VM) GetState() State {
	return State{
		PC:                  vm.CPU.PC,
		Registers:           vm.CPU.Registers,
		InstructionCount:    vm.CPU.InstructionCount,
		Halted:              vm.CPU.Halted,
		WaitingForInterrupt: vm.CPU.WaitingForInterrupt,
	}
}

// CurrentInstruction returns the instruction at PC, or nil if PC is
// outside the program.
func (vm *VM) CurrentInstruction() *parser.Instruction {
	return vm.InstructionAt(vm.CPU.PC)
}

// InstructionAt returns the instruction at a byte address, or nil.
func (vm *VM) InstructionAt(address uint32) *parser.Instruction {
	index := address / 4
	if address%4 != 0 || index >= uint32(len(vm.Instructions)) {
		return nil
	}
	return vm.Instructions[index]
}

// CurrentInstructionText formats the instruction at PC.
func (vm *VM) CurrentInstructionText() string {
	if inst := vm.CurrentInstruction(); inst != nil {
		return inst.String()
	}
	return "???"
}

// NextInstructionText formats the fall-through instruction at PC+4.
func (vm *VM) NextInstructionText() string {
	if vm.CPU.Halted {
		return "(halted)"
	}
	if vm.CPU.WaitingForInterrupt {
		return "(waiting for interrupt)"
	}
	if inst := vm.InstructionAt(vm.CPU.PC + 4); inst != nil {
		return inst.String()
	}
	return "(end of program)"
}

func (vm *VM) warnf(format string, args ...interface{}) {
	if vm.WarningWriter != nil {
		fmt.Fprintf(vm.WarningWriter, format+"\n", args...)
	}
}

// wrapError builds the structured VMError for a fault, snapshotting the
// machine.
func (vm *VM) wrapError(message string, err error) *VMError {
	kind, hints, faultAddr := classify(err)
	return &VMError{
		Message:      message,
		Kind:         kind,
		Hints:        hints,
		FaultAddress: faultAddr,
		Snapshot:     vm.snapshot(),
		Err:          err,
	}
}

// snapshotContextRadius is the number of instructions captured on each
// side of PC in a fault snapshot.
const snapshotContextRadius = 4

func (vm *VM) snapshot() *Snapshot {
	s := &Snapshot{
		Registers:           vm.CPU.Registers,
		PC:                  vm.CPU.PC,
		InstructionCount:    vm.CPU.InstructionCount,
		Halted:              vm.CPU.Halted,
		WaitingForInterrupt: vm.CPU.WaitingForInterrupt,
		CSRs:                vm.CPU.CSRSnapshot(),
		StackPointer:        vm.CPU.Registers[2],
	}

	index := int(vm.CPU.PC / 4)
	s.CurrentIndex = index
	start := index - snapshotContextRadius
	if start < 0 {
		start = 0
	}
	end := index + snapshotContextRadius + 1
	if end > len(vm.Instructions) {
		end = len(vm.Instructions)
	}
	s.ContextStart = start
	for i := start; i < end; i++ {
		s.Context = append(s.Context, vm.Instructions[i].String())
	}

	// Stack window: sixteen words starting at sp.
	sp := s.StackPointer
	for i := uint32(0); i < 16; i++ {
		addr := sp + i*4
		word, err := vm.Memory.ReadWord(addr)
		if err != nil {
			break
		}
		s.Stack = append(s.Stack, StackEntry{Address: addr, Value: word})
	}

	return s
}
