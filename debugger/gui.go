package debugger

import (
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/lookbusy1344/riscv-emulator/vm"
)

// GUI is the windowed debugger front-end built on fyne.
type GUI struct {
	Debugger *Debugger
	App      fyne.App
	Window   fyne.Window

	DisplayView  *widget.TextGrid
	RegisterView *widget.TextGrid
	ConsoleView  *widget.TextGrid
	StatusLabel  *widget.Label
	Toolbar      *widget.Toolbar

	running bool
	stop    chan struct{}
}

// RunGUI opens the debugger window and blocks until it closes.
func RunGUI(dbg *Debugger) error {
	gui := newGUI(dbg)
	gui.Window.ShowAndRun()
	return nil
}

func newGUI(debugger *Debugger) *GUI {
	guiApp := app.New()
	window := guiApp.NewWindow("RISC VM Debugger")

	gui := &GUI{
		Debugger: debugger,
		App:      guiApp,
		Window:   window,
		stop:     make(chan struct{}),
	}

	gui.DisplayView = widget.NewTextGrid()
	gui.RegisterView = widget.NewTextGrid()
	gui.ConsoleView = widget.NewTextGrid()
	gui.StatusLabel = widget.NewLabel("Ready")

	gui.Toolbar = widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), gui.onStep),
		widget.NewToolbarAction(theme.MediaPlayIcon(), gui.onRun),
		widget.NewToolbarAction(theme.MediaPauseIcon(), gui.onPause),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), gui.onReset),
	)

	displayPanel := container.NewBorder(
		widget.NewLabel("Display"), nil, nil, nil,
		container.NewScroll(gui.DisplayView),
	)
	registerPanel := container.NewBorder(
		widget.NewLabel("Registers"), nil, nil, nil,
		container.NewScroll(gui.RegisterView),
	)
	consolePanel := container.NewBorder(
		widget.NewLabel("Console"), nil, nil, nil,
		container.NewScroll(gui.ConsoleView),
	)

	content := container.NewHSplit(displayPanel, registerPanel)
	content.SetOffset(0.65)
	main := container.NewVSplit(content, consolePanel)
	main.SetOffset(0.75)

	window.SetContent(container.NewBorder(gui.Toolbar, gui.StatusLabel, nil, nil, main))
	window.Resize(fyne.NewSize(1100, 700))

	gui.refresh()
	return gui
}

func (g *GUI) onStep() {
	if g.running {
		return
	}
	g.runCommand("step")
}

// onRun resumes execution on a background goroutine, refreshing the
// window periodically until halt, breakpoint or pause.
func (g *GUI) onRun() {
	if g.running {
		return
	}
	g.running = true
	g.StatusLabel.SetText("Running")

	go func() {
		defer func() {
			g.running = false
		}()
		for {
			select {
			case <-g.stop:
				fyne.Do(func() {
					g.StatusLabel.SetText("Paused")
					g.refresh()
				})
				return
			default:
			}

			cont, err := g.Debugger.VM.Step()
			if err != nil || !cont {
				fyne.Do(func() {
					if err != nil {
						g.appendConsole(err.Error())
						g.StatusLabel.SetText("Fault")
					} else if g.Debugger.VM.CPU.Halted {
						g.StatusLabel.SetText("Halted")
					} else {
						g.StatusLabel.SetText("Breakpoint")
					}
					g.refresh()
				})
				return
			}

			if g.Debugger.VM.CPU.InstructionCount%2048 == 0 {
				fyne.Do(g.refresh)
				time.Sleep(time.Millisecond)
			}
		}
	}()
}

func (g *GUI) onPause() {
	if !g.running {
		return
	}
	select {
	case g.stop <- struct{}{}:
	default:
	}
}

func (g *GUI) onReset() {
	if g.running {
		return
	}
	g.runCommand("reset")
}

func (g *GUI) runCommand(cmd string) {
	if err := g.Debugger.ExecuteCommand(cmd); err != nil {
		g.appendConsole(fmt.Sprintf("error: %v", err))
	}
	if out := g.Debugger.DrainOutput(); out != "" {
		g.appendConsole(strings.TrimRight(out, "\n"))
	}
	g.refresh()
}

func (g *GUI) appendConsole(text string) {
	existing := g.ConsoleView.Text()
	if existing != "" {
		existing += "\n"
	}
	g.ConsoleView.SetText(existing + text)
}

// refresh redraws the display grid and register panel.
func (g *GUI) refresh() {
	g.DisplayView.SetText(g.Debugger.VM.Display.Text())

	cpu := g.Debugger.VM.CPU
	var sb strings.Builder
	fmt.Fprintf(&sb, "PC: 0x%08X  count: %d\n\n", cpu.PC, cpu.InstructionCount)
	for i := 0; i < vm.NumRegisters; i += 2 {
		fmt.Fprintf(&sb, "%-10s 0x%08X  %-10s 0x%08X\n",
			vm.RegisterName(i), cpu.Registers[i],
			vm.RegisterName(i+1), cpu.Registers[i+1])
	}
	csrs := cpu.CSRSnapshot()
	fmt.Fprintf(&sb, "\nmstatus 0x%08X  mie 0x%08X\nmip     0x%08X  mtvec 0x%08X\n",
		csrs[vm.CSRMstatus], csrs[vm.CSRMie], csrs[vm.CSRMip], csrs[vm.CSRMtvec])
	g.RegisterView.SetText(sb.String())
}
