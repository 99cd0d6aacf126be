package states

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/cellbuf"

	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/keymap"
	"github.com/arbor-tui/arbor/internal/panelkit"
	"github.com/arbor-tui/arbor/internal/styles"
	"github.com/arbor-tui/arbor/internal/tree"
)

// Help is a static overlay listing the registry's bound keys, pushed on
// top of whichever panel invoked it and popped on any key.
type Help struct {
	registry *keymap.Registry
	scroll   int
}

// NewHelp builds the help overlay without a registry, so a short built-in
// cheat sheet is shown instead of the live binding table.
func NewHelp() *Help { return &Help{} }

// NewHelpWithRegistry builds the help overlay backed by the app's live
// keybinding registry, so config-file rebindings show up here too.
func NewHelpWithRegistry(reg *keymap.Registry) *Help { return &Help{registry: reg} }

func (h *Help) Type() panelkit.PanelType { return panelkit.Help }
func (h *Help) Mode() int                { return 0 }
func (h *Help) SetMode(int)              {}

func (h *Help) SelectedPath() string           { return "" }
func (h *Help) Selection() tree.Selection       { return tree.Selection{} }
func (h *Help) TreeOptions() tree.Options       { return tree.Options{} }
func (h *Help) WithNewOptions(tree.Options) panelkit.PanelState { return h }
func (h *Help) Refresh()                        {}
func (h *Help) PendingTaskLabel() string        { return "" }
func (h *Help) StartingInput() string           { return "" }

func (h *Help) OnCommand(cmd command.Command) panelkit.CmdResult {
	switch cmd.Verb {
	case "quit":
		return panelkit.CmdResult{Kind: panelkit.Quit}
	default:
		return panelkit.CmdResult{Kind: panelkit.PopState}
	}
}

func (h *Help) OnPendingTask(tea.Msg) panelkit.CmdResult {
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

func (h *Help) Display(width, height int) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Keys"))
	b.WriteByte('\n')

	lines := h.bindingLines()
	if width > 0 {
		var wrapped []string
		for _, l := range lines {
			wrapped = append(wrapped, strings.Split(cellbuf.Wrap(l, width, ""), "\n")...)
		}
		lines = wrapped
	}
	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	for i, l := range lines {
		if i >= height-2 {
			break
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(styles.Muted.Render("press any key to close"))
	return b.String()
}

func (h *Help) bindingLines() []string {
	if h.registry == nil {
		return []string{
			styles.KeyHint.Render("enter") + "  focus directory / open file",
			styles.KeyHint.Render("esc") + "    back",
			styles.KeyHint.Render("h") + "      toggle hidden files",
			styles.KeyHint.Render("s") + "      toggle sizes",
			styles.KeyHint.Render(":q") + "     quit",
		}
	}
	var lines []string
	for _, ctx := range h.registry.AllContexts() {
		for _, b := range h.registry.BindingsForContext(ctx) {
			lines = append(lines, fmt.Sprintf("%s  %s", styles.KeyHint.Render(b.Key), b.Command))
		}
	}
	return lines
}
