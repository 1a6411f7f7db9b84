package vm_test

import (
	"testing"

	"github.com/lookbusy1344/riscv-emulator/vm"
)

func TestRegisterZeroHardwired(t *testing.T) {
	cpu := vm.NewCPU()

	if err := cpu.WriteRegister(0, 0xDEADBEEF); err != nil {
		t.Fatalf("write to x0 should not error: %v", err)
	}
	v, err := cpu.ReadRegister(0)
	if err != nil {
		t.Fatalf("read x0: %v", err)
	}
	if v != 0 {
		t.Errorf("x0 should always read 0, got 0x%08X", v)
	}
}

func TestRegisterReadWrite(t *testing.T) {
	cpu := vm.NewCPU()

	for reg := 1; reg < vm.NumRegisters; reg++ {
		want := uint32(reg * 3)
		if err := cpu.WriteRegister(reg, want); err != nil {
			t.Fatalf("write x%d: %v", reg, err)
		}
		got, err := cpu.ReadRegister(reg)
		if err != nil {
			t.Fatalf("read x%d: %v", reg, err)
		}
		if got != want {
			t.Errorf("x%d = %d, want %d", reg, got, want)
		}
	}
}

func TestRegisterBoundsError(t *testing.T) {
	cpu := vm.NewCPU()
	if _, err := cpu.ReadRegister(32); err == nil {
		t.Error("reading x32 should fail")
	}
	if err := cpu.WriteRegister(-1, 0); err == nil {
		t.Error("writing x-1 should fail")
	}
}

func TestRegisterByName(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"zero", 0}, {"ra", 1}, {"sp", 2}, {"gp", 3}, {"tp", 4},
		{"t0", 5}, {"t6", 31}, {"s0", 8}, {"fp", 8}, {"s11", 27},
		{"a0", 10}, {"a7", 17},
		{"x0", 0}, {"x31", 31}, {"X15", 15}, {"SP", 2}, {"A0", 10},
	}
	for _, tt := range tests {
		got, err := vm.RegisterByName(tt.name)
		if err != nil {
			t.Errorf("RegisterByName(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("RegisterByName(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}

	for _, bad := range []string{"x32", "q5", "", "x-1"} {
		if _, err := vm.RegisterByName(bad); err == nil {
			t.Errorf("RegisterByName(%q) should fail", bad)
		}
	}
}

func TestNamedAccess(t *testing.T) {
	cpu := vm.NewCPU()
	if err := cpu.WriteRegisterNamed("a0", 1234); err != nil {
		t.Fatal(err)
	}
	v, err := cpu.ReadRegisterNamed("x10")
	if err != nil {
		t.Fatal(err)
	}
	if v != 1234 {
		t.Errorf("a0/x10 mismatch: %d", v)
	}
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		value uint32
		bits  uint
		want  uint32
	}{
		{0x7FF, 12, 0x7FF},
		{0x800, 12, 0xFFFFF800},
		{0xFFF, 12, 0xFFFFFFFF},
		{0xFF, 8, 0xFFFFFFFF},
		{0x7F, 8, 0x7F},
		{0x1000, 13, 0xFFFFF000},
		{0, 12, 0},
	}
	for _, tt := range tests {
		if got := vm.SignExtend(tt.value, tt.bits); got != tt.want {
			t.Errorf("SignExtend(0x%X, %d) = 0x%08X, want 0x%08X", tt.value, tt.bits, got, tt.want)
		}
	}
}

func TestSignExtendRoundTrip(t *testing.T) {
	// Sign-extending a k-bit value then masking back yields the original.
	for _, v := range []uint32{0, 1, 0x7FF, 0x800, 0xFFF} {
		ext := vm.SignExtend(v, 12)
		if ext&0xFFF != v {
			t.Errorf("round trip failed for 0x%X: 0x%X", v, ext&0xFFF)
		}
	}
}

func TestSignedConversions(t *testing.T) {
	if vm.ToSigned(0xFFFFFFFF) != -1 {
		t.Error("0xFFFFFFFF should be -1")
	}
	if vm.ToSigned(0x80000000) != -2147483648 {
		t.Error("0x80000000 should be INT_MIN")
	}
	if vm.ToUnsigned(-1) != 0xFFFFFFFF {
		t.Error("-1 should be 0xFFFFFFFF")
	}
}

func TestCSRReadWrite(t *testing.T) {
	cpu := vm.NewCPU()

	if err := cpu.WriteCSR(vm.CSRMtvec, 0x100); err != nil {
		t.Fatal(err)
	}
	v, err := cpu.ReadCSR(vm.CSRMtvec)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x100 {
		t.Errorf("mtvec = 0x%X, want 0x100", v)
	}

	if _, err := cpu.ReadCSR(0x999); err == nil {
		t.Error("reading an undefined CSR should fail")
	}
	if err := cpu.WriteCSR(0x999, 1); err == nil {
		t.Error("writing an undefined CSR should fail")
	}
}

func TestMstatusWriteSyncsInterruptEnable(t *testing.T) {
	cpu := vm.NewCPU()

	if cpu.InterruptsEnabled() {
		t.Error("interrupts should start disabled")
	}
	if err := cpu.WriteCSR(vm.CSRMstatus, vm.MstatusMIE); err != nil {
		t.Fatal(err)
	}
	if !cpu.InterruptsEnabled() {
		t.Error("writing mstatus.MIE should enable interrupts")
	}
	if err := cpu.WriteCSR(vm.CSRMstatus, 0); err != nil {
		t.Fatal(err)
	}
	if cpu.InterruptsEnabled() {
		t.Error("clearing mstatus should disable interrupts")
	}
}

func TestSetClearCSRBits(t *testing.T) {
	cpu := vm.NewCPU()

	old, err := cpu.SetCSRBits(vm.CSRMie, vm.MieMTIE)
	if err != nil || old != 0 {
		t.Fatalf("SetCSRBits: old=%d err=%v", old, err)
	}
	v, _ := cpu.ReadCSR(vm.CSRMie)
	if v != vm.MieMTIE {
		t.Errorf("mie = 0x%X, want 0x%X", v, vm.MieMTIE)
	}

	old, err = cpu.ClearCSRBits(vm.CSRMie, vm.MieMTIE)
	if err != nil || old != vm.MieMTIE {
		t.Fatalf("ClearCSRBits: old=%d err=%v", old, err)
	}
	v, _ = cpu.ReadCSR(vm.CSRMie)
	if v != 0 {
		t.Errorf("mie = 0x%X, want 0", v)
	}
}

func TestInterruptPriority(t *testing.T) {
	cpu := vm.NewCPU()
	cpu.EnableInterrupts()
	_, _ = cpu.SetCSRBits(vm.CSRMie, vm.MieMTIE|vm.MieRTIE)

	// Only cycle timer pending.
	cpu.SetInterruptPending(vm.MieMTIE)
	cause, ok := cpu.HighestPriorityInterrupt()
	if !ok || cause != vm.IntTimer {
		t.Errorf("expected cycle timer cause, got 0x%X ok=%v", cause, ok)
	}

	// Both pending: real-time timer wins.
	cpu.SetInterruptPending(vm.MieRTIE)
	cause, ok = cpu.HighestPriorityInterrupt()
	if !ok || cause != vm.IntTimerRealtime {
		t.Errorf("expected real-time cause, got 0x%X ok=%v", cause, ok)
	}
}

func TestNoPendingWhenGloballyDisabled(t *testing.T) {
	cpu := vm.NewCPU()
	_, _ = cpu.SetCSRBits(vm.CSRMie, vm.MieMTIE)
	cpu.SetInterruptPending(vm.MieMTIE)

	if cpu.HasPendingInterrupts() {
		t.Error("pending interrupts must be gated by mstatus.MIE")
	}
	if _, ok := cpu.HighestPriorityInterrupt(); ok {
		t.Error("no interrupt should be deliverable with MIE clear")
	}
}

func TestTrapEntryAtomicity(t *testing.T) {
	cpu := vm.NewCPU()
	cpu.EnableInterrupts()
	_ = cpu.WriteCSR(vm.CSRMtvec, 0x40)
	cpu.SetPC(0x20)

	cpu.EnterInterrupt(vm.IntTimer)

	mepc, _ := cpu.ReadCSR(vm.CSRMepc)
	mcause, _ := cpu.ReadCSR(vm.CSRMcause)
	if mepc != 0x20 {
		t.Errorf("mepc = 0x%X, want 0x20", mepc)
	}
	if mcause != vm.IntTimer {
		t.Errorf("mcause = 0x%X, want 0x%X", mcause, uint32(vm.IntTimer))
	}
	if cpu.PC != 0x40 {
		t.Errorf("PC = 0x%X, want mtvec 0x40", cpu.PC)
	}
	if cpu.InterruptsEnabled() {
		t.Error("trap entry must clear MIE")
	}
}

func TestMRETInvertsTrapEntry(t *testing.T) {
	cpu := vm.NewCPU()
	cpu.EnableInterrupts()
	_ = cpu.WriteCSR(vm.CSRMtvec, 0x40)
	cpu.SetPC(0x20)

	cpu.EnterInterrupt(vm.IntTimer)
	cpu.ReturnFromInterrupt()

	if cpu.PC != 0x20 {
		t.Errorf("MRET should restore PC: 0x%X", cpu.PC)
	}
	if !cpu.InterruptsEnabled() {
		t.Error("MRET should re-enable interrupts")
	}
}

func TestCPUReset(t *testing.T) {
	cpu := vm.NewCPU()
	_ = cpu.WriteRegister(5, 99)
	cpu.SetPC(0x100)
	cpu.EnableInterrupts()
	cpu.Halt()
	cpu.WaitForInterrupt()

	cpu.Reset()

	if v, _ := cpu.ReadRegister(5); v != 0 {
		t.Error("registers should clear on reset")
	}
	if cpu.PC != 0 || cpu.Halted || cpu.WaitingForInterrupt || cpu.InterruptsEnabled() {
		t.Error("flags should clear on reset")
	}
	if v, _ := cpu.ReadCSR(vm.CSRMstatus); v != 0 {
		t.Error("CSRs should clear on reset")
	}
}
