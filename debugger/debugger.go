package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lookbusy1344/riscv-emulator/vm"
)

// Debugger drives a VM interactively: stepping, breakpoints, state
// inspection. The same command set backs the line-mode REPL, the TUI
// and the GUI.
type Debugger struct {
	VM          *vm.VM
	Breakpoints *BreakpointManager
	History     *CommandHistory

	// Labels maps assembly labels to addresses for break/examine
	// commands.
	Labels map[string]uint32

	// Quit is set by the quit command; REPL loops exit when they see
	// it.
	Quit bool

	// LastCommand repeats on empty input (step, continue and friends).
	LastCommand string

	// Output collects command output; front-ends drain it after each
	// command.
	Output strings.Builder
}

// NewDebugger creates a debugger for the given machine.
func NewDebugger(machine *vm.VM) *Debugger {
	return &Debugger{
		VM:          machine,
		Breakpoints: NewBreakpointManager(),
		History:     NewCommandHistory(DefaultHistorySize),
		Labels:      make(map[string]uint32),
	}
}

// LoadLabels installs the assembler's label table.
func (d *Debugger) LoadLabels(labels map[string]uint32) {
	d.Labels = labels
}

// Printf writes formatted output to the output buffer.
func (d *Debugger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.Output, format, args...)
}

// Println writes a line to the output buffer.
func (d *Debugger) Println(args ...interface{}) {
	fmt.Fprintln(&d.Output, args...)
}

// DrainOutput returns and clears the buffered output.
func (d *Debugger) DrainOutput() string {
	out := d.Output.String()
	d.Output.Reset()
	return out
}

// ResolveAddress resolves a label or numeric address argument.
func (d *Debugger) ResolveAddress(arg string) (uint32, error) {
	if addr, ok := d.Labels[arg]; ok {
		return addr, nil
	}
	v, err := parseNumber(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %s", arg)
	}
	return uint32(v), nil
}

func parseNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		return strconv.ParseUint(s[2:], 16, 32)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		return strconv.ParseUint(s[2:], 2, 32)
	}
	return strconv.ParseUint(s, 10, 32)
}

// ExecuteCommand parses and runs one command line. An empty line
// repeats the last command.
func (d *Debugger) ExecuteCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		line = d.LastCommand
	}
	if line == "" {
		return nil
	}
	d.History.Add(line)
	d.LastCommand = line

	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	return d.handleCommand(cmd, args)
}

func (d *Debugger) handleCommand(cmd string, args []string) error {
	switch cmd {
	case "step", "s":
		return d.cmdStep(args)
	case "continue", "c", "run", "r":
		return d.cmdContinue(args)
	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args, true)
	case "disable":
		return d.cmdEnable(args, false)
	case "info", "i":
		return d.cmdInfo(args)
	case "x":
		return d.cmdExamine(args)
	case "print", "p":
		return d.cmdPrint(args)
	case "set":
		return d.cmdSet(args)
	case "reset":
		return d.cmdReset(args)
	case "help", "h", "?":
		return d.cmdHelp(args)
	case "quit", "q", "exit":
		d.Quit = true
		return nil
	}
	return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
}

// RunREPL reads commands from in until quit or EOF, writing prompts and
// output to out.
func (d *Debugger) RunREPL(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "RISC VM debugger. Type 'help' for commands.")
	d.showLocation()
	fmt.Fprint(out, d.DrainOutput())

	for !d.Quit {
		fmt.Fprint(out, "(dbg) ")
		if !scanner.Scan() {
			break
		}
		if err := d.ExecuteCommand(scanner.Text()); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		fmt.Fprint(out, d.DrainOutput())
	}
	return scanner.Err()
}

// showLocation prints the current PC and instruction.
func (d *Debugger) showLocation() {
	cpu := d.VM.CPU
	switch {
	case cpu.Halted:
		d.Printf("[0x%08X] (halted)\n", cpu.PC)
	case cpu.WaitingForInterrupt:
		d.Printf("[0x%08X] (waiting for interrupt)\n", cpu.PC)
	default:
		d.Printf("[0x%08X] %s\n", cpu.PC, d.VM.CurrentInstructionText())
	}
}
