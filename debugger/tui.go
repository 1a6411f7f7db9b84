package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/riscv-emulator/vm"
)

// TUI is the full-screen debugger front-end built on tview.
type TUI struct {
	Debugger *Debugger
	App      *tview.Application
	Pages    *tview.Pages

	MainLayout *tview.Flex

	DisplayView     *tview.TextView
	RegisterView    *tview.TextView
	SourceView      *tview.TextView
	BreakpointsView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField
}

// NewTUI creates the TUI for a debugger.
func NewTUI(debugger *Debugger) *TUI {
	tui := &TUI{
		Debugger: debugger,
		App:      tview.NewApplication(),
	}
	tui.initializeViews()
	tui.buildLayout()
	tui.setupKeyBindings()
	return tui
}

func (t *TUI) initializeViews() {
	t.DisplayView = tview.NewTextView().
		SetScrollable(false).
		SetWrap(false)
	t.DisplayView.SetBorder(true).SetTitle(" Display ")

	t.RegisterView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.SourceView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.SourceView.SetBorder(true).SetTitle(" Program ")

	t.BreakpointsView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.BreakpointsView.SetBorder(true).SetTitle(" Breakpoints ")

	t.OutputView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

func (t *TUI) buildLayout() {
	leftPanel := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.DisplayView, vm.DisplayRows+2, 0, false).
		AddItem(t.SourceView, 0, 1, false)

	rightPanel := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 0, 2, false).
		AddItem(t.BreakpointsView, 8, 0, false)

	mainContent := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(leftPanel, 0, 2, false).
		AddItem(rightPanel, 0, 1, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainContent, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.Pages = tview.NewPages().
		AddPage("main", t.MainLayout, true, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			t.executeCommand("help")
			return nil
		case tcell.KeyF5:
			t.executeCommand("continue")
			return nil
		case tcell.KeyF11, tcell.KeyF10:
			t.executeCommand("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			t.RefreshAll()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	t.CommandInput.SetText("")
	t.executeCommand(cmd)
}

func (t *TUI) executeCommand(cmd string) {
	err := t.Debugger.ExecuteCommand(cmd)
	if err != nil {
		t.writeOutput(fmt.Sprintf("[red]error:[white] %v\n", err))
	}
	if out := t.Debugger.DrainOutput(); out != "" {
		t.writeOutput(tview.Escape(out))
	}
	if t.Debugger.Quit {
		t.App.Stop()
		return
	}
	t.RefreshAll()
}

func (t *TUI) writeOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text))
	t.OutputView.ScrollToEnd()
}

// RefreshAll redraws every panel from the current machine state.
func (t *TUI) RefreshAll() {
	t.updateDisplayView()
	t.updateRegisterView()
	t.updateSourceView()
	t.updateBreakpointsView()
	t.App.Draw()
}

func (t *TUI) updateDisplayView() {
	t.DisplayView.SetText(t.Debugger.VM.Display.Text())
}

func (t *TUI) updateRegisterView() {
	cpu := t.Debugger.VM.CPU
	lines := []string{fmt.Sprintf("PC: 0x%08X  count: %d", cpu.PC, cpu.InstructionCount)}
	for i := 0; i < vm.NumRegisters; i += 2 {
		lines = append(lines, fmt.Sprintf("%-10s 0x%08X  %-10s 0x%08X",
			vm.RegisterName(i), cpu.Registers[i],
			vm.RegisterName(i+1), cpu.Registers[i+1]))
	}
	lines = append(lines, "")
	csrs := cpu.CSRSnapshot()
	lines = append(lines, fmt.Sprintf("mstatus 0x%08X  mie 0x%08X", csrs[vm.CSRMstatus], csrs[vm.CSRMie]))
	lines = append(lines, fmt.Sprintf("mip     0x%08X  mtvec 0x%08X", csrs[vm.CSRMip], csrs[vm.CSRMtvec]))
	t.RegisterView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) updateSourceView() {
	machine := t.Debugger.VM
	pc := machine.CPU.PC
	index := int(pc / 4)

	start := index - 8
	if start < 0 {
		start = 0
	}
	end := start + 20
	if end > len(machine.Instructions) {
		end = len(machine.Instructions)
	}

	var lines []string
	for i := start; i < end; i++ {
		addr := uint32(i * 4)
		marker := "  "
		color := "white"
		if addr == pc {
			marker = "->"
			color = "yellow"
		}
		if t.Debugger.Breakpoints.Has(addr) {
			marker = "* "
		}
		lines = append(lines, fmt.Sprintf("[%s]%s 0x%08X: %s[white]",
			color, marker, addr, tview.Escape(machine.Instructions[i].String())))
	}
	t.SourceView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) updateBreakpointsView() {
	bps := t.Debugger.Breakpoints.All()
	if len(bps) == 0 {
		t.BreakpointsView.SetText("[yellow]no breakpoints set[white]")
		return
	}
	var lines []string
	for _, bp := range bps {
		state := "[green]enabled[white]"
		if !bp.Enabled {
			state = "[red]disabled[white]"
		}
		lines = append(lines, fmt.Sprintf("%d: 0x%08X %s (hits: %d)", bp.ID, bp.Address, state, bp.HitCount))
	}
	t.BreakpointsView.SetText(strings.Join(lines, "\n"))
}

// Run starts the TUI event loop.
func (t *TUI) Run() error {
	t.RefreshAll()
	t.writeOutput("[green]RISC VM debugger[white]\n")
	t.writeOutput("F5 continue, F11 step, F1 help, Ctrl-C quit\n\n")
	return t.App.SetRoot(t.Pages, true).SetFocus(t.CommandInput).Run()
}

// Stop terminates the TUI event loop.
func (t *TUI) Stop() {
	t.App.Stop()
}
