package vm

import (
	"fmt"
	"strings"
)

// Memory is the 1 MiB flat byte array with region-based protection and
// memory-mapped I/O dispatch. Word accesses are little-endian and must
// be 4-byte aligned, except word writes to the display control
// registers, which sit at consecutive byte addresses.
//
// Memory holds non-owning references to the devices it dispatches to;
// the VM owns both. MMIO word stores are consumed by the device handler
// and never reach the backing array. Byte stores are not dispatched: a
// byte store into an MMIO range lands in the backing array.
type Memory struct {
	data []byte

	display *Display
	timer   *Timer
	rtTimer *RealTimeTimer

	// ProtectText forbids every write (byte or word) into the text
	// region when set.
	ProtectText bool
}

// NewMemory creates a memory wired to the given devices. Any device may
// be nil. With a nil display, word writes to the display ranges are
// ignored; with a nil timer, that timer's register range behaves as
// plain memory.
func NewMemory(display *Display, timer *Timer, rtTimer *RealTimeTimer) *Memory {
	return &Memory{
		data:    make([]byte, MemorySize),
		display: display,
		timer:   timer,
		rtTimer: rtTimer,
	}
}

func checkBounds(address uint32, size uint32) error {
	if address >= MemorySize || MemorySize-address < size {
		return &OutOfBoundsError{Address: address, Size: size}
	}
	return nil
}

func checkAlignment(address uint32) error {
	if address%4 != 0 {
		return &UnalignedError{Address: address}
	}
	return nil
}

func (m *Memory) checkTextProtection(address uint32) error {
	if m.ProtectText && address <= TextEnd {
		return &ProtectionError{Address: address}
	}
	return nil
}

// ReadByte reads a single byte. Byte reads are raw: they never dispatch
// to devices, so MMIO addresses read back whatever the backing array
// holds (zero unless written through a non-MMIO path).
func (m *Memory) ReadByte(address uint32) (byte, error) {
	if err := checkBounds(address, 1); err != nil {
		return 0, err
	}
	return m.data[address], nil
}

// WriteByte writes a single byte, honouring text protection. It never
// dispatches to devices, so MMIO addresses store into the backing array.
func (m *Memory) WriteByte(address uint32, value byte) error {
	if err := checkBounds(address, 1); err != nil {
		return err
	}
	if err := m.checkTextProtection(address); err != nil {
		return err
	}
	m.data[address] = value
	return nil
}

// ReadWord reads a little-endian 32-bit word. Timer register ranges
// dispatch to the devices; everything else reads the backing array.
func (m *Memory) ReadWord(address uint32) (uint32, error) {
	if err := checkBounds(address, 4); err != nil {
		return 0, err
	}
	if err := checkAlignment(address); err != nil {
		return 0, err
	}

	if m.timer != nil && address >= TimerCounter && address <= TimerStatus {
		return m.readTimerRegister(address), nil
	}
	if m.rtTimer != nil && address >= RTTimerCounter && address <= RTTimerCompare {
		return m.readRTTimerRegister(address), nil
	}

	return uint32(m.data[address]) |
		uint32(m.data[address+1])<<8 |
		uint32(m.data[address+2])<<16 |
		uint32(m.data[address+3])<<24, nil
}

// WriteWord writes a little-endian 32-bit word. Writes into the display
// or timer ranges dispatch to the device and leave the backing array
// untouched. The display control registers are byte-spaced, so writes to
// them are accepted at any address in their range.
func (m *Memory) WriteWord(address uint32, value uint32) error {
	if err := checkBounds(address, 4); err != nil {
		return err
	}
	if address >= DisplayControlStart && address <= DisplayControlEnd {
		m.handleControlRegisterWrite(address, value)
		return nil
	}
	if err := checkAlignment(address); err != nil {
		return err
	}
	if err := m.checkTextProtection(address); err != nil {
		return err
	}

	switch {
	case address >= DisplayBufferStart && address <= DisplayBufferEnd:
		m.handleDisplayWrite(address, value)
		return nil
	case m.timer != nil && address >= TimerCounter && address <= TimerStatus:
		m.writeTimerRegister(address, value)
		return nil
	case m.rtTimer != nil && address >= RTTimerCounter && address <= RTTimerCompare:
		m.writeRTTimerRegister(address, value)
		return nil
	}

	m.data[address] = byte(value)
	m.data[address+1] = byte(value >> 8)
	m.data[address+2] = byte(value >> 16)
	m.data[address+3] = byte(value >> 24)
	return nil
}

// handleDisplayWrite unpacks the word LSB-first into up to four
// characters. Zero bytes mean "no update", not "clear" - a cell cannot
// be blanked through the buffer with a zero store.
func (m *Memory) handleDisplayWrite(address uint32, value uint32) {
	if m.display == nil {
		return
	}
	offset := address - DisplayBufferStart
	for i := uint32(0); i < 4; i++ {
		b := byte(value >> (8 * i))
		if b == 0 {
			continue
		}
		charOffset := offset + i
		col := int(charOffset % DisplayCols)
		row := int(charOffset / DisplayCols % DisplayRows)
		m.display.WriteChar(col, row, b)
	}
}

func (m *Memory) handleControlRegisterWrite(address uint32, value uint32) {
	if m.display == nil {
		return
	}
	switch address {
	case CtrlPage:
		m.display.CurrentPage = value & 0x0F
	case CtrlCursorX:
		m.display.CursorX = int(value % DisplayCols)
	case CtrlCursorY:
		m.display.CursorY = int(value % DisplayRows)
	case CtrlMode:
		m.display.Mode = value
	case CtrlScroll:
		m.display.AutoScroll = value != 0
	case CtrlClear:
		m.display.Clear()
	}
}

func (m *Memory) readTimerRegister(address uint32) uint32 {
	switch address {
	case TimerCounter:
		return m.timer.ReadCounter()
	case TimerCompare:
		return m.timer.ReadCompare()
	case TimerControl:
		return m.timer.ReadControl()
	case TimerPrescaler:
		return m.timer.ReadPrescaler()
	case TimerStatus:
		return m.timer.ReadStatus()
	}
	return 0
}

func (m *Memory) writeTimerRegister(address uint32, value uint32) {
	switch address {
	case TimerCounter:
		m.timer.WriteCounter(value)
	case TimerCompare:
		m.timer.WriteCompare(value)
	case TimerControl:
		m.timer.WriteControl(value)
	case TimerPrescaler:
		m.timer.WritePrescaler(value)
	}
}

func (m *Memory) readRTTimerRegister(address uint32) uint32 {
	switch address {
	case RTTimerCounter:
		return m.rtTimer.ReadCounter()
	case RTTimerFrequency:
		return m.rtTimer.ReadFrequency()
	case RTTimerControl:
		return m.rtTimer.ReadControl()
	case RTTimerStatus:
		return m.rtTimer.ReadStatus()
	case RTTimerCompare:
		return m.rtTimer.ReadCompare()
	}
	return 0
}

func (m *Memory) writeRTTimerRegister(address uint32, value uint32) {
	switch address {
	case RTTimerCounter:
		m.rtTimer.WriteCounter(value)
	case RTTimerFrequency:
		m.rtTimer.WriteFrequency(value)
	case RTTimerControl:
		m.rtTimer.WriteControl(value)
	case RTTimerCompare:
		m.rtTimer.WriteCompare(value)
	}
}

// LoadProgram copies a program image into memory at the start address,
// bypassing MMIO dispatch and text protection.
func (m *Memory) LoadProgram(program []byte, start uint32) error {
	if start >= MemorySize || MemorySize-start < uint32(len(program)) {
		return fmt.Errorf("program too large for memory: %d bytes at 0x%08X", len(program), start)
	}
	copy(m.data[start:], program)
	return nil
}

// SetByte writes a raw byte without protection or MMIO dispatch; used
// for preloading assembled data.
func (m *Memory) SetByte(address uint32, value byte) error {
	if err := checkBounds(address, 1); err != nil {
		return err
	}
	m.data[address] = value
	return nil
}

// Reset clears the backing array.
func (m *Memory) Reset() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// Dump formats length bytes starting at start as hex plus ASCII,
// 16 bytes per line.
func (m *Memory) Dump(start uint32, length uint32) string {
	var sb strings.Builder
	for i := uint32(0); i < length; i += 16 {
		addr := start + i
		if addr >= MemorySize {
			break
		}
		end := addr + 16
		if end > MemorySize {
			end = MemorySize
		}
		row := m.data[addr:end]

		hexBytes := make([]string, len(row))
		ascii := make([]byte, len(row))
		for j, b := range row {
			hexBytes[j] = fmt.Sprintf("%02X", b)
			if b >= 32 && b < 127 {
				ascii[j] = b
			} else {
				ascii[j] = '.'
			}
		}
		fmt.Fprintf(&sb, "0x%08X  %-48s  %s\n", addr, strings.Join(hexBytes, " "), ascii)
	}
	return strings.TrimRight(sb.String(), "\n")
}
