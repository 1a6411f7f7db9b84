package debugger

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/lookbusy1344/riscv-emulator/vm"
)

// stepBudget caps a continue so a runaway program cannot wedge the
// front-end.
const stepBudget = 1000000

// cmdStep executes one instruction, or N with "step N".
func (d *Debugger) cmdStep(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("invalid step count: %s", args[0])
		}
		n = v
	}

	for i := 0; i < n; i++ {
		// A breakpoint on the starting PC is stepped over, as in continue.
		addr := d.VM.CPU.PC
		over := i == 0 && d.VM.Breakpoints[addr]
		if over {
			d.VM.RemoveBreakpoint(addr)
		}
		cont, err := d.stepOnce()
		if over {
			d.VM.AddBreakpoint(addr)
		}
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	d.showLocation()
	return nil
}

// stepOnce advances one instruction, reporting breakpoint hits.
func (d *Debugger) stepOnce() (bool, error) {
	cont, err := d.VM.Step()
	if err != nil {
		var vmErr *vm.VMError
		if errors.As(err, &vmErr) {
			d.Printf("%s", FormatExceptionReport(vmErr))
			return false, nil
		}
		return false, err
	}
	if !cont && !d.VM.CPU.Halted {
		if bp := d.Breakpoints.ProcessHit(d.VM.CPU.PC); bp != nil {
			d.Printf("breakpoint %d hit at 0x%08X\n", bp.ID, bp.Address)
			if bp.Temporary {
				d.VM.RemoveBreakpoint(bp.Address)
			}
		}
	}
	return cont, nil
}

// cmdContinue resumes execution until halt, breakpoint or fault.
// A breakpoint on the current PC is stepped over first so continue
// makes progress after a hit.
func (d *Debugger) cmdContinue(args []string) error {
	if d.VM.CPU.Halted {
		d.Println("program has halted; use 'reset' to restart")
		return nil
	}

	if addr := d.VM.CPU.PC; d.VM.Breakpoints[addr] {
		d.VM.RemoveBreakpoint(addr)
		_, err := d.VM.Step()
		d.VM.AddBreakpoint(addr)
		if err != nil {
			var vmErr *vm.VMError
			if errors.As(err, &vmErr) {
				d.Printf("%s", FormatExceptionReport(vmErr))
				return nil
			}
			return err
		}
	}

	for i := 0; i < stepBudget; i++ {
		cont, err := d.stepOnce()
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	d.showLocation()
	return nil
}

// cmdBreak sets a breakpoint at a label or address; with no argument it
// lists breakpoints.
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return d.cmdInfo([]string{"breakpoints"})
	}
	addr, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	bp := d.Breakpoints.Add(addr, false)
	d.VM.AddBreakpoint(addr)
	d.Printf("breakpoint %d set at 0x%08X\n", bp.ID, addr)
	return nil
}

// cmdTBreak sets a temporary breakpoint.
func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("tbreak requires an address or label")
	}
	addr, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	bp := d.Breakpoints.Add(addr, true)
	d.VM.AddBreakpoint(addr)
	d.Printf("temporary breakpoint %d set at 0x%08X\n", bp.ID, addr)
	return nil
}

// cmdDelete removes a breakpoint by id, or all with no argument.
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		for _, bp := range d.Breakpoints.All() {
			d.VM.RemoveBreakpoint(bp.Address)
		}
		d.Breakpoints.Clear()
		d.Println("all breakpoints deleted")
		return nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	for _, bp := range d.Breakpoints.All() {
		if bp.ID == id {
			d.VM.RemoveBreakpoint(bp.Address)
		}
	}
	if err := d.Breakpoints.Delete(id); err != nil {
		return err
	}
	d.Printf("breakpoint %d deleted\n", id)
	return nil
}

// cmdEnable enables or disables a breakpoint by id, syncing the VM's
// address set.
func (d *Debugger) cmdEnable(args []string, enabled bool) error {
	if len(args) == 0 {
		return fmt.Errorf("expected a breakpoint id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	if err := d.Breakpoints.SetEnabled(id, enabled); err != nil {
		return err
	}
	for _, bp := range d.Breakpoints.All() {
		if bp.ID == id {
			if enabled {
				d.VM.AddBreakpoint(bp.Address)
			} else {
				d.VM.RemoveBreakpoint(bp.Address)
			}
		}
	}
	return nil
}

// cmdInfo shows machine state: registers, csr, timers, breakpoints,
// display, labels.
func (d *Debugger) cmdInfo(args []string) error {
	topic := "registers"
	if len(args) > 0 {
		topic = args[0]
	}

	switch topic {
	case "registers", "regs", "r":
		d.Println(d.VM.CPU.DumpRegisters())

	case "csr", "csrs":
		csrs := d.VM.CPU.CSRSnapshot()
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
			d.Printf("%-8s (0x%03X): 0x%08X\n", entry.name, entry.addr, csrs[entry.addr])
		}

	case "timers", "timer":
		t := d.VM.Timer
		d.Printf("cycle timer:     counter=%d compare=%d control=0x%02X prescaler=%d status=0x%02X\n",
			t.ReadCounter(), t.ReadCompare(), t.ReadControl(), t.ReadPrescaler(), t.ReadStatus())
		rt := d.VM.RTTimer
		d.Printf("real-time timer: counter=%d frequency=%dHz control=0x%02X compare=%d status=0x%02X\n",
			rt.ReadCounter(), rt.ReadFrequency(), rt.ReadControl(), rt.ReadCompare(), rt.ReadStatus())

	case "breakpoints", "break", "b":
		bps := d.Breakpoints.All()
		if len(bps) == 0 {
			d.Println("no breakpoints set")
			return nil
		}
		for _, bp := range bps {
			state := "enabled"
			if !bp.Enabled {
				state = "disabled"
			}
			d.Printf("%d: 0x%08X %s (hits: %d)\n", bp.ID, bp.Address, state, bp.HitCount)
		}

	case "display":
		d.Println(d.VM.Display.Text())

	case "labels":
		for name, addr := range d.Labels {
			d.Printf("%-20s 0x%08X\n", name, addr)
		}

	default:
		return fmt.Errorf("unknown info topic: %s", topic)
	}
	return nil
}

// cmdExamine dumps memory: x ADDR [LEN].
func (d *Debugger) cmdExamine(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("x requires an address or label")
	}
	addr, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	length := uint32(64)
	if len(args) > 1 {
		v, err := parseNumber(args[1])
		if err != nil {
			return fmt.Errorf("invalid length: %s", args[1])
		}
		length = uint32(v)
	}
	d.Println(d.VM.Memory.Dump(addr, length))
	return nil
}

// cmdPrint shows a register: print REG.
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("print requires a register name")
	}
	value, err := d.VM.CPU.ReadRegisterNamed(args[0])
	if err != nil {
		return err
	}
	reg, _ := vm.RegisterByName(args[0])
	d.Printf("%s = 0x%08X (%d)\n", vm.RegisterName(reg), value, int32(value))
	return nil
}

// cmdSet writes a register: set REG VALUE.
func (d *Debugger) cmdSet(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("set requires a register and a value")
	}
	v, err := parseNumber(args[1])
	if err != nil {
		return fmt.Errorf("invalid value: %s", args[1])
	}
	if err := d.VM.CPU.WriteRegisterNamed(args[0], uint32(v)); err != nil {
		return err
	}
	return d.cmdPrint(args[:1])
}

// cmdReset resets CPU, timers and clock, keeping the loaded program and
// memory contents.
func (d *Debugger) cmdReset(args []string) error {
	d.VM.CPU.Reset()
	d.VM.Timer.Reset()
	d.VM.RTTimer.Reset()
	d.VM.Clock.Reset()
	_ = d.VM.CPU.WriteRegister(2, vm.InitialSP)
	d.Println("machine reset")
	d.showLocation()
	return nil
}

func (d *Debugger) cmdHelp(args []string) error {
	d.Println(`commands:
  step [N], s          execute one (or N) instructions
  continue, c          run until halt, breakpoint or fault
  break ADDR|LABEL, b  set a breakpoint
  tbreak ADDR|LABEL    set a temporary breakpoint
  delete [ID], d       delete a breakpoint (or all)
  enable/disable ID    toggle a breakpoint
  info TOPIC, i        registers | csr | timers | breakpoints | display | labels
  x ADDR [LEN]         examine memory
  print REG, p         show a register
  set REG VALUE        write a register
  reset                reset CPU and timers, keep program
  quit, q              leave the debugger`)
	return nil
}
