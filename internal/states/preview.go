package states

import (
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/filesum"
	"github.com/arbor-tui/arbor/internal/panelkit"
	"github.com/arbor-tui/arbor/internal/preview"
	"github.com/arbor-tui/arbor/internal/styles"
	"github.com/arbor-tui/arbor/internal/tree"
	"github.com/arbor-tui/arbor/internal/watch"
)

// previewReadyMsg carries a freshly built preview back to the state that
// requested it, tagged with the generation it was built for.
type previewReadyMsg struct {
	generation int
	preview    preview.Preview
}

// watchFiredMsg wraps a file-change notification; OnPendingTask rebuilds
// the preview when one names the previewed path. Preview starts no
// watcher, so nothing in this package sends the message.
type watchFiredMsg struct {
	path string
}

// Preview is the PanelState pushed (or opened as its own panel) to show
// the rendered content of one file, with markdown-mode toggling. The
// content does not reload by itself when the file changes on disk (the
// watcher field is never started); the refresh verb rebuilds it.
type Preview struct {
	path         string
	markdownMode bool
	content      preview.Preview
	generation   int
	pending      bool

	// builtWidth/builtHeight/builtMarkdown remember the dimensions and mode
	// content was last rendered for, so Display only re-runs preview.Build
	// (a directory preview's size walk included) when something the output
	// actually depends on changed, rather than on every repaint.
	builtWidth, builtHeight int
	builtMarkdown           bool

	watcher *watch.Watcher
}

// NewPreview builds a preview state for path.
// A directory's recursive size walk is never done inline here: the panel
// opens with a fast placeholder and the caller is expected to run InitCmd
// to fill in the real summary once it's computed off the UI thread.
func NewPreview(path string) *Preview {
	p := &Preview{path: path, markdownMode: true}
	p.content = p.fastBuild(80, 24)
	return p
}

// isDir reports whether path is (still) a directory, best-effort.
func (p *Preview) isDir() bool {
	info, err := os.Lstat(p.path)
	return err == nil && info.IsDir()
}

// fastBuild returns content safe to compute inline: the full preview for
// anything but a directory, whose size summary instead comes from a
// placeholder plus a queued buildCmd.
func (p *Preview) fastBuild(width, height int) preview.Preview {
	if p.isDir() {
		p.pending = true
		return preview.BuildPlaceholder(p.path, width, height, p.markdownMode)
	}
	return preview.Build(p.path, width, height, p.markdownMode)
}

// buildCmd runs the full (potentially slow, for a directory's size walk)
// preview build on a worker goroutine, tagged with the state's current
// generation so a stale result arriving after a later Refresh or path
// change is discarded by OnPendingTask.
func (p *Preview) buildCmd(width, height int) tea.Cmd {
	gen := p.generation
	path, markdown := p.path, p.markdownMode
	return func() tea.Msg {
		return previewReadyMsg{generation: gen, preview: preview.Build(path, width, height, markdown)}
	}
}

// InitCmd returns the async build command needed to replace a placeholder
// set by NewPreview or Refresh, or nil if the content built inline already.
func (p *Preview) InitCmd() tea.Cmd {
	if !p.pending {
		return nil
	}
	w, h := p.builtWidth, p.builtHeight
	if w == 0 && h == 0 {
		w, h = 80, 24
	}
	return p.buildCmd(w, h)
}

func (p *Preview) Type() panelkit.PanelType { return panelkit.Preview }
func (p *Preview) Mode() int {
	if p.markdownMode {
		return 1
	}
	return 0
}
func (p *Preview) SetMode(m int) { p.markdownMode = m != 0 }

func (p *Preview) SelectedPath() string { return p.path }
func (p *Preview) Selection() tree.Selection {
	return tree.Selection{Path: p.path, Kind: tree.SelectionFile}
}
func (p *Preview) TreeOptions() tree.Options           { return tree.Options{} }
func (p *Preview) WithNewOptions(tree.Options) panelkit.PanelState { return p }

func (p *Preview) Refresh() {
	p.generation++
	w, h := p.builtWidth, p.builtHeight
	if w == 0 && h == 0 {
		w, h = 80, 24
	}
	p.content = p.fastBuild(w, h)
}

func (p *Preview) PendingTaskLabel() string {
	if p.pending {
		return "rendering preview"
	}
	return ""
}

func (p *Preview) StartingInput() string { return "" }

// OnCommand ignores any typed pattern text — previews don't filter — and
// only reacts to verb invocations.
func (p *Preview) OnCommand(cmd command.Command) panelkit.CmdResult {
	switch cmd.Verb {
	case "back", "escape", "close_preview":
		return panelkit.CmdResult{Kind: panelkit.ClosePanel}
	case "quit":
		return panelkit.CmdResult{Kind: panelkit.Quit}
	case "preview_text":
		p.markdownMode = false
		p.Refresh()
		return panelkit.CmdResult{Kind: panelkit.Keep, Cmd: p.InitCmd()}
	case "preview_image", "preview_binary":
		return panelkit.CmdResult{Kind: panelkit.Keep}
	case "refresh":
		if p.isDir() {
			filesum.InvalidateCache()
		}
		p.Refresh()
		return panelkit.CmdResult{Kind: panelkit.Keep, Cmd: p.InitCmd()}
	}
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

func (p *Preview) OnPendingTask(msg tea.Msg) panelkit.CmdResult {
	switch m := msg.(type) {
	case previewReadyMsg:
		if m.generation != p.generation {
			return panelkit.CmdResult{Kind: panelkit.Keep}
		}
		p.pending = false
		p.content = m.preview
	case watchFiredMsg:
		if m.path == p.path {
			p.Refresh()
			return panelkit.CmdResult{Kind: panelkit.Keep, Cmd: p.InitCmd()}
		}
	}
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

// Display only re-runs a build when something the output actually depends
// on changed (size, markdown mode), rather than on every repaint. While a
// directory's async size walk is still pending, it skips that rebuild
// entirely so it doesn't race the result InitCmd already queued — that
// result lands via OnPendingTask and the next dimension change will pick
// up builtWidth/builtHeight from there.
func (p *Preview) Display(width, height int) string {
	if !p.pending && (width != p.builtWidth || height != p.builtHeight || p.markdownMode != p.builtMarkdown) {
		p.content = preview.Build(p.path, width, height, p.markdownMode)
		p.builtWidth, p.builtHeight, p.builtMarkdown = width, height, p.markdownMode
	}
	lines := strings.Split(p.content.Body, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	header := styles.Subtitle.Render(p.path)
	if len(lines) > 0 {
		lines[0] = header
	}
	return strings.Join(lines, "\n")
}
