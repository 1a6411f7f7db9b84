package debugger

// CommandHistory keeps a bounded list of entered commands with
// shell-style navigation.
type CommandHistory struct {
	entries []string
	maxSize int
	cursor  int
}

// DefaultHistorySize bounds the history when no size is configured.
const DefaultHistorySize = 1000

// NewCommandHistory creates a history with the given capacity (or the
// default when size is not positive).
func NewCommandHistory(size int) *CommandHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &CommandHistory{maxSize: size}
}

// Add appends a command, skipping consecutive duplicates, and resets
// navigation to the end.
func (h *CommandHistory) Add(cmd string) {
	if cmd == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		h.cursor = len(h.entries)
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
	h.cursor = len(h.entries)
}

// Previous steps back through the history, staying on the oldest entry
// once it is reached; returns "" when the history is empty.
func (h *CommandHistory) Previous() string {
	if h.cursor > 0 {
		h.cursor--
	}
	if h.cursor < len(h.entries) {
		return h.entries[h.cursor]
	}
	return ""
}

// Next steps forward through the history; returns "" past the end.
func (h *CommandHistory) Next() string {
	if h.cursor < len(h.entries) {
		h.cursor++
	}
	if h.cursor < len(h.entries) {
		return h.entries[h.cursor]
	}
	return ""
}

// Last returns the most recent command, or "".
func (h *CommandHistory) Last() string {
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

// All returns a copy of the history, oldest first.
func (h *CommandHistory) All() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of stored commands.
func (h *CommandHistory) Len() int { return len(h.entries) }
