package states

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/panelkit"
	"github.com/arbor-tui/arbor/internal/styles"
	"github.com/arbor-tui/arbor/internal/tree"
)

// Stage is the PanelState backing the stage panel: an ordered list of
// paths accumulated from tree browsers via the stage/unstage/toggle-stage
// verbs, shared across panels through the app loop (since staging mutates
// the panel list rather than any one panel's own state).
type Stage struct {
	paths    []string
	selected int
}

// NewStage builds an empty stage.
func NewStage() *Stage { return &Stage{} }

// Add appends path if it isn't already staged.
func (s *Stage) Add(path string) {
	for _, p := range s.paths {
		if p == path {
			return
		}
	}
	s.paths = append(s.paths, path)
}

// Remove drops path from the stage, if present.
func (s *Stage) Remove(path string) {
	for i, p := range s.paths {
		if p == path {
			s.paths = append(s.paths[:i], s.paths[i+1:]...)
			if s.selected >= len(s.paths) {
				s.selected = len(s.paths) - 1
			}
			return
		}
	}
}

// Toggle adds path if absent, removes it if present.
func (s *Stage) Toggle(path string) {
	for _, p := range s.paths {
		if p == path {
			s.Remove(path)
			return
		}
	}
	s.Add(path)
}

// Clear empties the stage.
func (s *Stage) Clear() { s.paths = nil; s.selected = 0 }

// Paths returns the staged paths in insertion order.
func (s *Stage) Paths() []string { return s.paths }

func (st *Stage) Type() panelkit.PanelType { return panelkit.Stage }
func (st *Stage) Mode() int                { return 0 }
func (st *Stage) SetMode(int)              {}

func (st *Stage) SelectedPath() string {
	if st.selected < 0 || st.selected >= len(st.paths) {
		return ""
	}
	return st.paths[st.selected]
}

func (st *Stage) Selection() tree.Selection {
	return tree.Selection{Path: st.SelectedPath(), Kind: tree.SelectionAny}
}
func (st *Stage) TreeOptions() tree.Options           { return tree.Options{} }
func (st *Stage) WithNewOptions(tree.Options) panelkit.PanelState { return st }
func (st *Stage) Refresh()                            {}
func (st *Stage) PendingTaskLabel() string             { return "" }
func (st *Stage) StartingInput() string                { return "" }

func (st *Stage) OnCommand(cmd command.Command) panelkit.CmdResult {
	switch cmd.Verb {
	case "quit":
		return panelkit.CmdResult{Kind: panelkit.Quit}
	case "back", "escape":
		return panelkit.CmdResult{Kind: panelkit.ClosePanel}
	case "line_up":
		if st.selected > 0 {
			st.selected--
		}
	case "line_down":
		if st.selected < len(st.paths)-1 {
			st.selected++
		}
	case "unstage":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.UnstageSelection}
	case "clear_stage":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.ClearStage}
	}
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

func (st *Stage) OnPendingTask(tea.Msg) panelkit.CmdResult {
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

func (st *Stage) Display(width, height int) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Stage"))
	b.WriteByte('\n')
	if len(st.paths) == 0 {
		b.WriteString(styles.Muted.Render("nothing staged"))
		return b.String()
	}
	for i, p := range st.paths {
		line := p
		if width > 0 && runewidth.StringWidth(line) > width {
			line = runewidth.Truncate(line, width, "…")
		}
		if i == st.selected {
			line = styles.ListItemSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
