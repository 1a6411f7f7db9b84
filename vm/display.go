package vm

import (
	"strings"
)

// Display dimensions.
const (
	DisplayCols  = 80
	DisplayRows  = 25
	DisplayPages = 16
)

// Display is the text-mode display device: an 80x25 character grid with
// a cursor, driven through the memory-mapped buffer and control
// registers.
type Display struct {
	Buffer      [DisplayRows][DisplayCols]byte
	CursorX     int
	CursorY     int
	CurrentPage uint32
	Mode        uint32
	AutoScroll  bool

	// Dirty is set whenever the grid contents change so renderers can
	// skip unchanged frames. SetCursor, WriteChar's newline and carriage
	// return, and the control register writes other than clear do not
	// set it.
	Dirty bool
}

// NewDisplay creates a cleared display.
func NewDisplay() *Display {
	d := &Display{}
	d.Clear()
	d.AutoScroll = true
	return d
}

// WriteChar writes a character at grid position (x, y). Control codes
// act on the cursor instead: 0x0A newline, 0x0D carriage return, 0x08
// backspace (blanks the cell), 0x09 tab to the next multiple of 4
// columns. Only printable ASCII lands in the grid.
func (d *Display) WriteChar(x, y int, char byte) {
	if x < 0 || x >= DisplayCols || y < 0 || y >= DisplayRows {
		return
	}
	switch {
	case char == 0x0A:
		d.CursorY++
		d.CursorX = 0
	case char == 0x0D:
		d.CursorX = 0
	case char == 0x08:
		if d.CursorX > 0 {
			d.CursorX--
			d.Buffer[d.CursorY][d.CursorX] = ' '
			d.Dirty = true
		}
	case char == 0x09:
		spaces := 4 - d.CursorX%4
		for i := 0; i < spaces; i++ {
			if d.CursorX < DisplayCols {
				d.Buffer[d.CursorY][d.CursorX] = ' '
				d.CursorX++
				d.Dirty = true
			}
		}
	case char >= 0x20 && char <= 0x7E:
		d.Buffer[y][x] = char
		d.Dirty = true
	}
}

// WriteAtCursor writes a character at the cursor and advances it,
// wrapping at column 80 and scrolling past row 25 when auto-scroll is
// enabled.
func (d *Display) WriteAtCursor(char byte) {
	switch {
	case char == 0x0A:
		d.CursorY++
		d.CursorX = 0
	case char == 0x0D:
		d.CursorX = 0
	case char == 0x08:
		if d.CursorX > 0 {
			d.CursorX--
			d.Buffer[d.CursorY][d.CursorX] = ' '
		}
	case char == 0x09:
		spaces := 4 - d.CursorX%4
		for i := 0; i < spaces; i++ {
			if d.CursorX < DisplayCols {
				d.Buffer[d.CursorY][d.CursorX] = ' '
				d.CursorX++
			}
		}
	case char >= 0x20 && char <= 0x7E:
		d.Buffer[d.CursorY][d.CursorX] = char
		d.CursorX++
		if d.CursorX >= DisplayCols {
			d.CursorX = 0
			d.CursorY++
		}
	}

	if d.CursorY >= DisplayRows {
		if d.AutoScroll {
			d.ScrollUp()
		} else {
			d.CursorY = DisplayRows - 1
		}
	}

	d.Dirty = true
}

// ScrollUp drops the top row and appends a blank row at the bottom.
func (d *Display) ScrollUp() {
	copy(d.Buffer[:], d.Buffer[1:])
	for x := 0; x < DisplayCols; x++ {
		d.Buffer[DisplayRows-1][x] = ' '
	}
	d.CursorY = DisplayRows - 1
	d.Dirty = true
}

// Clear blanks the grid and homes the cursor.
func (d *Display) Clear() {
	for y := 0; y < DisplayRows; y++ {
		for x := 0; x < DisplayCols; x++ {
			d.Buffer[y][x] = ' '
		}
	}
	d.CursorX = 0
	d.CursorY = 0
	d.Dirty = true
}

// SetCursor moves the cursor; out-of-range coordinates are ignored per
// axis.
func (d *Display) SetCursor(x, y int) {
	if x >= 0 && x < DisplayCols {
		d.CursorX = x
	}
	if y >= 0 && y < DisplayRows {
		d.CursorY = y
	}
}

// Text returns the whole grid as a newline-joined string.
func (d *Display) Text() string {
	lines := make([]string, DisplayRows)
	for y := 0; y < DisplayRows; y++ {
		lines[y] = string(d.Buffer[y][:])
	}
	return strings.Join(lines, "\n")
}

// Line returns a single row as a string, or "" if y is out of range.
func (d *Display) Line(y int) string {
	if y < 0 || y >= DisplayRows {
		return ""
	}
	return string(d.Buffer[y][:])
}
