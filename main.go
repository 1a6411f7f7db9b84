package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/lookbusy1344/riscv-emulator/config"
	"github.com/lookbusy1344/riscv-emulator/debugger"
	"github.com/lookbusy1344/riscv-emulator/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start the line-mode debugger")
		tuiMode     = flag.Bool("tui", false, "Start the full-screen TUI debugger")
		guiMode     = flag.Bool("gui", false, "Start the windowed GUI debugger")

		maxInstructions = flag.Int("max-instructions", 0, "Maximum instructions before halt (0 = config default)")
		protectText     = flag.Bool("protect-text", false, "Forbid writes to the text segment")
		clockHz         = flag.Int("clock", 0, "CPU clock frequency in Hz (0 = config default)")
		enableClock     = flag.Bool("enable-clock", false, "Throttle execution to the clock frequency")
		breakpoints     = flag.String("break", "", "Comma-separated breakpoint addresses")

		showDisplay  = flag.Bool("show-display", false, "Always print the display after the run")
		liveRender   = flag.Bool("live", false, "Render the display while running (requires a TTY)")
		dumpRegs     = flag.Bool("dump-regs", false, "Print registers after the run")
		verboseMode  = flag.Bool("verbose", false, "Verbose output")
		configPath   = flag.String("config", "", "Config file path (default: platform config dir)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("RISC VM Emulator %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp || flag.NArg() == 0 {
		printHelp()
		if *showHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Configuration: file first, flags override.
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *maxInstructions > 0 {
		cfg.Execution.MaxInstructions = *maxInstructions
	}
	if *clockHz > 0 {
		cfg.Execution.ClockHz = *clockHz
	}
	if *protectText {
		cfg.Execution.ProtectText = true
	}
	if *enableClock {
		cfg.Execution.EnableClock = true
	}
	if *liveRender {
		cfg.Display.LiveRender = true
	}

	asmFile := flag.Arg(0)
	source, err := os.ReadFile(asmFile) // #nosec G304 -- user-supplied program path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", asmFile, err)
		os.Exit(1)
	}

	machine := vm.NewVM()
	machine.Memory.ProtectText = cfg.Execution.ProtectText
	machine.Clock.SetFrequency(cfg.Execution.ClockHz)
	machine.Clock.Enabled = cfg.Execution.EnableClock

	if err := machine.LoadProgram(string(source)); err != nil {
		fmt.Fprintf(os.Stderr, "Assembly error:\n%v\n", err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Assembled %d instructions, %d data bytes\n",
			len(machine.Instructions), len(machine.Assembler.DataSection()))
	}

	if err := applyBreakpoints(machine, *breakpoints); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *debugMode || *tuiMode || *guiMode {
		runDebugger(machine, *tuiMode, *guiMode)
		return
	}

	exitCode := runProgram(machine, cfg)

	if *showDisplay || displayHasContent(machine.Display) {
		renderDisplay(machine.Display, cfg.Display.ShowCursor, cfg.Display.SimpleOutput)
	}
	if *dumpRegs {
		fmt.Println(machine.CPU.DumpRegisters())
	}

	os.Exit(exitCode)
}

// runProgram executes to completion, optionally rendering the display
// live, and returns the process exit code.
func runProgram(machine *vm.VM, cfg *config.Config) int {
	live := cfg.Display.LiveRender && term.IsTerminal(int(os.Stdout.Fd()))
	if live {
		if _, h, err := term.GetSize(int(os.Stdout.Fd())); err != nil || h < vm.DisplayRows+3 {
			// Terminal too small for a useful live view.
			live = false
		}
	}

	var count int
	var err error
	if live {
		count, err = runWithVisualization(machine, cfg)
	} else {
		count, err = machine.Run(cfg.Execution.MaxInstructions)
	}

	if err != nil {
		var vmErr *vm.VMError
		if errors.As(err, &vmErr) {
			fmt.Fprint(os.Stderr, debugger.FormatExceptionReport(vmErr))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	if count >= cfg.Execution.MaxInstructions && !machine.CPU.Halted {
		fmt.Fprintf(os.Stderr, "Execution stopped after %d instructions\n", count)
	}
	return 0
}

// runWithVisualization steps the machine, refreshing the terminal
// display at an interval matched to the clock speed.
func runWithVisualization(machine *vm.VM, cfg *config.Config) (int, error) {
	interval := 10000
	if machine.Clock.Enabled {
		switch hz := machine.Clock.Frequency(); {
		case hz <= 10:
			interval = 1
		case hz <= 100:
			interval = 10
		case hz <= 1000:
			interval = 100
		}
	}

	count := 0
	for count < cfg.Execution.MaxInstructions {
		cont, err := machine.Step()
		if err != nil {
			return count, err
		}
		if !cont {
			break
		}
		count++
		if count%interval == 0 && machine.Display.Dirty {
			renderDisplay(machine.Display, cfg.Display.ShowCursor, cfg.Display.SimpleOutput)
			machine.Display.Dirty = false
		}
	}
	return count, nil
}

// runDebugger hands the machine to the chosen debugger front-end.
func runDebugger(machine *vm.VM, tuiMode, guiMode bool) {
	dbg := debugger.NewDebugger(machine)
	dbg.LoadLabels(machine.Assembler.Labels())
	for addr := range machine.Breakpoints {
		dbg.Breakpoints.Add(addr, false)
	}

	var err error
	switch {
	case guiMode:
		err = debugger.RunGUI(dbg)
	case tuiMode:
		err = debugger.NewTUI(dbg).Run()
	default:
		err = dbg.RunREPL(os.Stdin, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
		os.Exit(1)
	}
}

func applyBreakpoints(machine *vm.VM, spec string) error {
	if spec == "" {
		return nil
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var addr uint32
		if _, err := fmt.Sscanf(part, "0x%x", &addr); err != nil {
			if _, err := fmt.Sscanf(part, "%d", &addr); err != nil {
				return fmt.Errorf("invalid breakpoint address: %s", part)
			}
		}
		machine.AddBreakpoint(addr)
	}
	return nil
}

// displayHasContent reports whether any cell differs from a blank.
func displayHasContent(d *vm.Display) bool {
	for y := 0; y < vm.DisplayRows; y++ {
		if strings.TrimSpace(d.Line(y)) != "" {
			return true
		}
	}
	return false
}

// renderDisplay prints the display grid, boxed unless simple output is
// requested.
func renderDisplay(d *vm.Display, showCursor, simple bool) {
	if simple {
		fmt.Print("\033[2J\033[H")
		fmt.Println(d.Text())
		return
	}

	fmt.Print("\033[2J\033[H")
	fmt.Println("┌" + strings.Repeat("─", vm.DisplayCols) + "┐")
	for y := 0; y < vm.DisplayRows; y++ {
		line := d.Line(y)
		if showCursor && y == d.CursorY && d.CursorX < len(line) {
			line = line[:d.CursorX] + "\033[7m" + string(line[d.CursorX]) + "\033[0m" + line[d.CursorX+1:]
		}
		fmt.Println("│" + line + "│")
	}
	fmt.Println("└" + strings.Repeat("─", vm.DisplayCols) + "┘")
	if showCursor {
		fmt.Printf("Cursor: (%d, %d)\n", d.CursorX, d.CursorY)
	}
}

func printHelp() {
	fmt.Printf(`RISC VM Emulator %s

Usage: riscv-emulator [options] program.asm

Options:
  -debug              start the line-mode debugger
  -tui                start the full-screen TUI debugger
  -gui                start the windowed GUI debugger
  -max-instructions N instruction cap for run (default from config)
  -protect-text       forbid writes to the text segment
  -clock HZ           CPU clock frequency (1-10000 Hz)
  -enable-clock       throttle execution to the clock frequency
  -break A,B,...      set breakpoints before running
  -live               render the display while running
  -show-display       always print the display after the run
  -dump-regs          print registers after the run
  -config PATH        config file path
  -verbose            verbose output
  -version            show version
`, Version)
}
