package debugger

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/riscv-emulator/vm"
)

const reportWidth = 80

// FormatExceptionReport renders a structured VM fault as the full text
// report: classification, hints, instruction context, registers, CSRs,
// stack window and fault-address analysis. The snapshot itself is pure
// data; this is the only place it becomes text.
func FormatExceptionReport(err *vm.VMError) string {
	var sb strings.Builder
	rule := strings.Repeat("=", reportWidth)
	thin := strings.Repeat("-", reportWidth)

	sb.WriteString("\n" + rule + "\n")
	sb.WriteString(center(" CPU EXCEPTION ", reportWidth) + "\n")
	sb.WriteString(rule + "\n\n")

	fmt.Fprintf(&sb, "Classification: %s\n", err.Kind)
	fmt.Fprintf(&sb, "Message: %s\n", err.Message)
	if len(err.Hints) > 0 {
		sb.WriteString("\nHints:\n")
		for _, hint := range err.Hints {
			fmt.Fprintf(&sb, "  - %s\n", hint)
		}
	}

	snap := err.Snapshot
	if snap == nil {
		sb.WriteString(rule + "\n")
		return sb.String()
	}

	sb.WriteString("\n" + thin + "\n\n")
	sb.WriteString(formatContext(snap))
	sb.WriteString("\n" + thin + "\n\n")
	sb.WriteString(formatRegisters(snap))
	sb.WriteString("\n" + thin + "\n\n")
	sb.WriteString(formatCSRs(snap))
	sb.WriteString("\n" + thin + "\n\n")
	sb.WriteString(formatStack(snap))

	if err.FaultAddress != nil {
		addr := *err.FaultAddress
		sb.WriteString("\n" + thin + "\n\n")
		fmt.Fprintf(&sb, "Fault address: 0x%08X (%s region)\n", addr, vm.RegionName(addr))
	}

	sb.WriteString("\n" + rule + "\n")
	return sb.String()
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := width - len(s)
	left := pad / 2
	return strings.Repeat("=", left) + s + strings.Repeat("=", pad-left)
}

func formatContext(snap *vm.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("Instruction context:\n")
	if len(snap.Context) == 0 {
		sb.WriteString("  (no instructions)\n")
		return sb.String()
	}
	for i, text := range snap.Context {
		index := snap.ContextStart + i
		marker := "  "
		if index == snap.CurrentIndex {
			marker = "->"
		}
		fmt.Fprintf(&sb, " %s [0x%08X] %s\n", marker, index*4, text)
	}
	return sb.String()
}

func formatRegisters(snap *vm.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PC: 0x%08X  Instructions: %d  halted=%v wfi=%v\n\n",
		snap.PC, snap.InstructionCount, snap.Halted, snap.WaitingForInterrupt)
	for i := 0; i < vm.NumRegisters; i += 2 {
		fmt.Fprintf(&sb, "%-12s: 0x%08X  %-12s: 0x%08X\n",
			vm.RegisterName(i), snap.Registers[i],
			vm.RegisterName(i+1), snap.Registers[i+1])
	}
	return sb.String()
}

func formatCSRs(snap *vm.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("CSRs:\n")
	for _, entry := range []struct {
		addr uint32
		name string
	}{
		{vm.CSRMstatus, "mstatus"},
		{vm.CSRMie, "mie"},
		{vm.CSRMtvec, "mtvec"},
		{vm.CSRMepc, "mepc"},
		{vm.CSRMcause, "mcause"},
		{vm.CSRMip, "mip"},
	} {
		fmt.Fprintf(&sb, "  %-8s (0x%03X): 0x%08X\n", entry.name, entry.addr, snap.CSRs[entry.addr])
	}
	return sb.String()
}

func formatStack(snap *vm.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stack (sp = 0x%08X):\n", snap.StackPointer)
	if len(snap.Stack) == 0 {
		sb.WriteString("  (stack pointer outside readable memory)\n")
		return sb.String()
	}
	for _, entry := range snap.Stack {
		marker := "  "
		if entry.Address == snap.StackPointer {
			marker = "->"
		}
		fmt.Fprintf(&sb, " %s 0x%08X: 0x%08X\n", marker, entry.Address, entry.Value)
	}
	return sb.String()
}
