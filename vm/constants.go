package vm

// Memory regions. All addresses are byte addresses into a 1 MiB flat
// space; the layout matches the assembler's section bases.
const (
	MemorySize = 0x100000 // 1 MiB

	TextStart = 0x00000
	TextEnd   = 0x0FFFF
	DataStart = 0x10000
	DataEnd   = 0x3FFFF
	HeapStart = 0x40000
	HeapEnd   = 0x7FFFF
	StackEnd  = 0x80000
	StackTop  = 0xBFFFF // stack grows downward
	RAMStart  = 0xC0000
	RAMEnd    = 0xEFFFF
	MMIOStart = 0xF0000
	MMIOEnd   = 0xFFFFF

	// Initial stack pointer (top of stack, word aligned).
	InitialSP = 0xBFFFC
)

// Display memory-mapped ranges and control registers.
const (
	DisplayBufferStart  = 0xF0000
	DisplayBufferEnd    = 0xF7CFF
	DisplayControlStart = 0xF7D00
	DisplayControlEnd   = 0xF7D7F

	CtrlPage    = 0xF7D00
	CtrlCursorX = 0xF7D01
	CtrlCursorY = 0xF7D02
	CtrlMode    = 0xF7D03
	CtrlScroll  = 0xF7D04
	CtrlClear   = 0xF7D05
)

// Cycle-based timer registers.
const (
	TimerCounter   = 0xF7E00
	TimerCompare   = 0xF7E04
	TimerControl   = 0xF7E08
	TimerPrescaler = 0xF7E0C
	TimerStatus    = 0xF7E10
)

// Real-time timer registers.
const (
	RTTimerCounter   = 0xF7E20
	RTTimerFrequency = 0xF7E24
	RTTimerControl   = 0xF7E28
	RTTimerStatus    = 0xF7E2C
	RTTimerCompare   = 0xF7E30
)

// CSR addresses (RISC-V machine mode subset).
const (
	CSRMstatus = 0x300
	CSRMie     = 0x304
	CSRMtvec   = 0x305
	CSRMepc    = 0x341
	CSRMcause  = 0x342
	CSRMip     = 0x344
)

// mstatus bits.
const (
	MstatusMIE = 0x08 // global machine interrupt enable
)

// mie/mip source bits.
const (
	MieMTIE = 0x080 // cycle-based timer interrupt
	MieRTIE = 0x800 // real-time timer interrupt
)

// Interrupt cause codes. The top bit marks "interrupt, not exception".
const (
	IntTimer         = 0x80000007
	IntTimerRealtime = 0x8000000B
)

// RegionName classifies an address for diagnostics.
func RegionName(addr uint32) string {
	switch {
	case addr <= TextEnd:
		return "TEXT"
	case addr <= DataEnd:
		return "DATA"
	case addr <= HeapEnd:
		return "HEAP"
	case addr <= StackTop:
		return "STACK"
	case addr <= RAMEnd:
		return "RAM"
	case addr >= DisplayBufferStart && addr <= DisplayBufferEnd:
		return "DISPLAY_BUFFER"
	case addr >= DisplayControlStart && addr <= DisplayControlEnd:
		return "DISPLAY_CTRL"
	case addr >= TimerCounter && addr <= TimerStatus:
		return "TIMER"
	case addr >= RTTimerCounter && addr <= RTTimerCompare:
		return "RT_TIMER"
	case addr < MemorySize:
		return "MMIO"
	}
	return "UNMAPPED"
}
