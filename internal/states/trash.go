package states

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/panelkit"
	"github.com/arbor-tui/arbor/internal/styles"
	"github.com/arbor-tui/arbor/internal/tree"
)

// TrashEntry is one item in the trash directory. Refresh builds entries
// from the directory listing alone, so OriginalPath stays empty and the
// restore verb reports the original location as unknown.
type TrashEntry struct {
	OriginalPath string
	TrashPath    string
	DeletedAt    time.Time
}

// Trash is the PanelState listing files moved aside rather than deleted
// outright, grounded on the same soft-delete idea broot's verbs support
// via a shell command but rendered here as its own browsable panel.
type Trash struct {
	dir      string
	entries  []TrashEntry
	selected int
}

// NewTrash builds a trash state rooted at dir (typically a hidden
// directory under the tree root, e.g. ".arbor-trash").
func NewTrash(dir string) *Trash {
	t := &Trash{dir: dir}
	t.Refresh()
	return t
}

func (t *Trash) Type() panelkit.PanelType { return panelkit.Trash }
func (t *Trash) Mode() int                { return 0 }
func (t *Trash) SetMode(int)              {}

func (t *Trash) SelectedPath() string {
	if t.selected < 0 || t.selected >= len(t.entries) {
		return ""
	}
	return t.entries[t.selected].TrashPath
}

func (t *Trash) Selection() tree.Selection {
	return tree.Selection{Path: t.SelectedPath(), Kind: tree.SelectionAny}
}
func (t *Trash) TreeOptions() tree.Options           { return tree.Options{} }
func (t *Trash) WithNewOptions(tree.Options) panelkit.PanelState { return t }

// Refresh rereads the trash directory's contents from disk.
func (t *Trash) Refresh() {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		t.entries = nil
		return
	}
	t.entries = t.entries[:0]
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		t.entries = append(t.entries, TrashEntry{
			TrashPath: filepath.Join(t.dir, e.Name()),
			DeletedAt: info.ModTime(),
		})
	}
	if t.selected >= len(t.entries) {
		t.selected = len(t.entries) - 1
	}
}

func (t *Trash) PendingTaskLabel() string { return "" }
func (t *Trash) StartingInput() string    { return "" }

func (t *Trash) OnCommand(cmd command.Command) panelkit.CmdResult {
	switch cmd.Verb {
	case "quit":
		return panelkit.CmdResult{Kind: panelkit.Quit}
	case "back", "escape":
		return panelkit.CmdResult{Kind: panelkit.ClosePanel}
	case "line_up":
		if t.selected > 0 {
			t.selected--
		}
	case "line_down":
		if t.selected < len(t.entries)-1 {
			t.selected++
		}
	case "refresh":
		t.Refresh()
	case "restore":
		return t.restoreSelected()
	case "purge":
		return t.purgeSelected()
	}
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

func (t *Trash) restoreSelected() panelkit.CmdResult {
	if t.selected < 0 || t.selected >= len(t.entries) {
		return panelkit.MessageResult("nothing selected")
	}
	e := t.entries[t.selected]
	if e.OriginalPath == "" {
		return panelkit.ErrorResult(fmt.Errorf("restore: original location unknown for %s", e.TrashPath))
	}
	if err := os.Rename(e.TrashPath, e.OriginalPath); err != nil {
		return panelkit.ErrorResult(err)
	}
	t.Refresh()
	return panelkit.MessageResult("restored " + e.OriginalPath)
}

func (t *Trash) purgeSelected() panelkit.CmdResult {
	if t.selected < 0 || t.selected >= len(t.entries) {
		return panelkit.MessageResult("nothing selected")
	}
	e := t.entries[t.selected]
	if err := os.RemoveAll(e.TrashPath); err != nil {
		return panelkit.ErrorResult(err)
	}
	t.Refresh()
	return panelkit.MessageResult("purged " + e.TrashPath)
}

func (t *Trash) OnPendingTask(tea.Msg) panelkit.CmdResult {
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

func (t *Trash) Display(width, height int) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Trash"))
	b.WriteByte('\n')
	if len(t.entries) == 0 {
		b.WriteString(styles.Muted.Render("trash is empty"))
		return b.String()
	}
	for i, e := range t.entries {
		line := fmt.Sprintf("%s  %s", e.DeletedAt.Format("Jan 02 15:04"), filepath.Base(e.TrashPath))
		if i == t.selected {
			line = styles.ListItemSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
