package states

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/panelkit"
	"github.com/arbor-tui/arbor/internal/styles"
	"github.com/arbor-tui/arbor/internal/tree"
	"github.com/arbor-tui/arbor/internal/verb"
)

// FSInfo describes one mounted filesystem.
type FSInfo struct {
	Device     string
	MountPoint string
	FSType     string
	SizeBytes  uint64
	UsedBytes  uint64
	FreeBytes  uint64
}

// virtualFSTypes lists mount types that never hold user files and only
// clutter the listing (the kernel publishes dozens of them).
var virtualFSTypes = map[string]bool{
	"proc": true, "sysfs": true, "devpts": true, "cgroup": true,
	"cgroup2": true, "securityfs": true, "pstore": true, "bpf": true,
	"tracefs": true, "debugfs": true, "configfs": true, "fusectl": true,
	"mqueue": true, "hugetlbfs": true, "binfmt_misc": true,
	"autofs": true, "rpc_pipefs": true, "nsfs": true,
}

// listMounts reads the kernel's mount table and returns the real
// filesystems, with sizes filled in where statfs succeeds. On systems
// without /proc it degrades to the single filesystem holding "/".
func listMounts() []FSInfo {
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		root := FSInfo{Device: "/", MountPoint: "/", FSType: "unknown"}
		statFS("/", &root)
		return []FSInfo{root}
	}
	return parseMounts(string(data))
}

// parseMounts parses /proc/self/mounts content: one mount per line,
// "device mountpoint fstype options dump pass", octal-escaped spaces.
func parseMounts(data string) []FSInfo {
	var out []FSInfo
	for _, line := range strings.Split(data, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		fsType := fields[2]
		if virtualFSTypes[fsType] {
			continue
		}
		fs := FSInfo{
			Device:     unescapeMountField(fields[0]),
			MountPoint: unescapeMountField(fields[1]),
			FSType:     fsType,
		}
		statFS(fs.MountPoint, &fs)
		out = append(out, fs)
	}
	return out
}

// unescapeMountField decodes the \040-style octal escapes the kernel uses
// for spaces, tabs, newlines, and backslashes in mount fields.
func unescapeMountField(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) &&
			s[i+1] >= '0' && s[i+1] <= '7' &&
			s[i+2] >= '0' && s[i+2] <= '7' &&
			s[i+3] >= '0' && s[i+3] <= '7' {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Filesystems is the PanelState listing mounted filesystems; entering one
// opens a tree browser rooted at its mount point.
type Filesystems struct {
	mounts   []FSInfo
	selected int

	opts  tree.Options
	verbs *verb.Store
}

// NewFilesystems builds the filesystems state, inheriting the tree options
// and verb store the opening browser was using so the entered tree behaves
// like the one it was opened from.
func NewFilesystems(opts tree.Options, verbs *verb.Store) *Filesystems {
	f := &Filesystems{opts: opts, verbs: verbs}
	f.Refresh()
	return f
}

func (f *Filesystems) Type() panelkit.PanelType { return panelkit.Filesystems }
func (f *Filesystems) Mode() int                { return 0 }
func (f *Filesystems) SetMode(int)              {}

func (f *Filesystems) SelectedPath() string {
	if f.selected < 0 || f.selected >= len(f.mounts) {
		return ""
	}
	return f.mounts[f.selected].MountPoint
}

func (f *Filesystems) Selection() tree.Selection {
	return tree.Selection{Path: f.SelectedPath(), Kind: tree.SelectionDirectory}
}
func (f *Filesystems) TreeOptions() tree.Options                 { return f.opts }
func (f *Filesystems) WithNewOptions(tree.Options) panelkit.PanelState { return f }

// Refresh rereads the mount table.
func (f *Filesystems) Refresh() {
	f.mounts = listMounts()
	if f.selected >= len(f.mounts) {
		f.selected = len(f.mounts) - 1
	}
	if f.selected < 0 {
		f.selected = 0
	}
}

func (f *Filesystems) PendingTaskLabel() string { return "" }
func (f *Filesystems) StartingInput() string    { return "" }

func (f *Filesystems) OnCommand(cmd command.Command) panelkit.CmdResult {
	switch cmd.Verb {
	case "quit":
		return panelkit.CmdResult{Kind: panelkit.Quit}
	case "back", "escape":
		return panelkit.CmdResult{Kind: panelkit.PopState}
	case "line_up":
		if f.selected > 0 {
			f.selected--
		}
	case "line_down":
		if f.selected < len(f.mounts)-1 {
			f.selected++
		}
	case "refresh":
		f.Refresh()
	case "focus", "open_stay", "cd":
		mp := f.SelectedPath()
		if mp == "" {
			return panelkit.MessageResult("nothing selected")
		}
		return panelkit.CmdResult{Kind: panelkit.NewState, State: NewTreeBrowser(mp, f.opts, f.verbs)}
	}
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

func (f *Filesystems) OnPendingTask(tea.Msg) panelkit.CmdResult {
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

func (f *Filesystems) Display(width, height int) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Filesystems"))
	b.WriteByte('\n')
	if len(f.mounts) == 0 {
		b.WriteString(styles.Muted.Render("no mounted filesystems found"))
		return b.String()
	}
	for i, fs := range f.mounts {
		sizeCol := "         -"
		useCol := "    -"
		if fs.SizeBytes > 0 {
			sizeCol = fmt.Sprintf("%10s", humanize.IBytes(fs.SizeBytes))
			useCol = fmt.Sprintf("%4d%%", fs.UsedBytes*100/fs.SizeBytes)
		}
		mount := fs.MountPoint
		budget := width - 10 - 5 - len(fs.FSType) - 8
		if budget > 0 && runewidth.StringWidth(mount) > budget {
			mount = runewidth.Truncate(mount, budget, "…")
		}
		line := fmt.Sprintf("%s %s  %-8s %s", sizeCol, useCol, fs.FSType, mount)
		if i == f.selected {
			line = styles.ListItemSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
