// Package states implements the panelkit.PanelState variants: the tree
// browser (the workhorse, backing every panel's root state), and the
// thinner overlay states pushed on top of it (preview, help, stage, trash).
package states

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/arbor-tui/arbor/internal/apperrors"
	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/dam"
	"github.com/arbor-tui/arbor/internal/filesum"
	"github.com/arbor-tui/arbor/internal/gitstatus"
	"github.com/arbor-tui/arbor/internal/panelkit"
	"github.com/arbor-tui/arbor/internal/pattern"
	"github.com/arbor-tui/arbor/internal/styles"
	"github.com/arbor-tui/arbor/internal/tree"
	"github.com/arbor-tui/arbor/internal/treebuild"
	"github.com/arbor-tui/arbor/internal/ui"
	"github.com/arbor-tui/arbor/internal/verb"
)

// BuildResultMsg carries a background tree rebuild's result back into the
// state that requested it. Generation lets a stale result (superseded by a
// faster-typed keystroke before the old build finished) be discarded on
// arrival instead of clobbering newer data.
type BuildResultMsg struct {
	Generation     int
	Tree           *tree.Tree
	Err            error
	Interrupted    bool
	TooManyMatches bool
	MatchLimit     int
}

// GitSummaryMsg carries a background git-status refresh's result.
type GitSummaryMsg struct {
	Generation int
	Summary    gitstatus.Summary
	HasRepo    bool
}

// TreeBrowser is the primary PanelState: a filtered, flattened view of one
// directory tree, with an optional git repository overlay.
type TreeBrowser struct {
	root string
	opts tree.Options
	pat  pattern.Pattern

	t *tree.Tree

	repo    *gitstatus.Repo
	summary gitstatus.Summary
	hasRepo bool

	verbs *verb.Store

	generation int
	pending    bool
	taskLabel  string

	// buildCancel is closed to interrupt whichever rebuild is currently
	// in flight, the moment a newer one is requested (a keystroke always
	// wins over a stale filter pass).
	buildCancel chan struct{}

	lastHeight int // most recent Display height, used to size MoveSelection's paging
}

// NewTreeBrowser builds the initial browser state rooted at root, doing a
// synchronous first build so the panel has something to show immediately.
func NewTreeBrowser(root string, opts tree.Options, verbs *verb.Store) *TreeBrowser {
	tb := &TreeBrowser{root: root, opts: opts, pat: pattern.None, verbs: verbs}
	tb.t = treebuild.New(root, tb.pat, tb.opts).Build()
	if repo, err := gitstatus.Discover(root); err == nil && repo != nil {
		tb.repo = repo
		if sum, err := repo.Summarize(); err == nil {
			tb.summary = sum
			tb.hasRepo = true
		}
	}
	return tb
}

func (tb *TreeBrowser) Type() panelkit.PanelType { return panelkit.TreeBrowser }
func (tb *TreeBrowser) Mode() int                { return 0 }
func (tb *TreeBrowser) SetMode(int)              {}

func (tb *TreeBrowser) SelectedPath() string {
	if l := tb.t.Selected(); l != nil {
		return l.Path
	}
	return tb.root
}

func (tb *TreeBrowser) Selection() tree.Selection { return tb.t.CurrentSelection() }
func (tb *TreeBrowser) TreeOptions() tree.Options { return tb.opts }

// WithNewOptions rebuilds synchronously: display-toggle flips are cheap and
// infrequent enough that blocking the redraw for one is unnoticeable,
// unlike a pattern edit, which goes through the async path in OnCommand.
func (tb *TreeBrowser) WithNewOptions(opts tree.Options) panelkit.PanelState {
	next := &TreeBrowser{
		root: tb.root, opts: opts, pat: tb.pat,
		repo: tb.repo, summary: tb.summary, hasRepo: tb.hasRepo,
		verbs: tb.verbs, generation: tb.generation,
	}
	selected := tb.SelectedPath()
	next.t = treebuild.New(next.root, next.pat, next.opts).Build()
	next.t.TrySelectPath(selected)
	return next
}

func (tb *TreeBrowser) Refresh() {
	filesum.InvalidateCache()
	selected := tb.SelectedPath()
	tb.t = treebuild.New(tb.root, tb.pat, tb.opts).Build()
	tb.t.TrySelectPath(selected)
	if tb.repo != nil {
		_ = tb.repo.Refresh()
		if sum, err := tb.repo.Summarize(); err == nil {
			tb.summary = sum
		}
	}
}

func (tb *TreeBrowser) PendingTaskLabel() string {
	if tb.pending {
		return tb.taskLabel
	}
	return ""
}

func (tb *TreeBrowser) StartingInput() string {
	if tb.pat == pattern.None {
		return ""
	}
	return tb.pat.String()
}

// rebuildCmd kicks off an async rebuild tagged with the browser's current
// generation, so OnPendingTask can tell a stale result from a fresh one.
// Any build already in flight is signaled to abort via its cancel channel
// before the new one starts, and the new build races its own cancel
// channel through a Dam so a still-later keystroke can abort it too.
func (tb *TreeBrowser) rebuildCmd() tea.Cmd {
	if tb.buildCancel != nil {
		close(tb.buildCancel)
	}
	cancel := make(chan struct{})
	tb.buildCancel = cancel

	gen := tb.generation
	root, pat, opts := tb.root, tb.pat, tb.opts
	return func() tea.Msg {
		d := dam.New[struct{}](nil, cancel)
		res := d.TryCompute(func() any {
			obs := func() bool {
				select {
				case <-cancel:
					return true
				default:
					return false
				}
			}
			return treebuild.New(root, pat, opts).WithObserver(obs).Build()
		})
		if res.Interrupted {
			return BuildResultMsg{Generation: gen, Interrupted: true}
		}
		t, _ := res.Value.(*tree.Tree)
		if t == nil {
			return BuildResultMsg{Generation: gen}
		}
		return BuildResultMsg{
			Generation:     gen,
			Tree:           t,
			Interrupted:    t.Interrupted,
			TooManyMatches: t.TooManyMatches,
			MatchLimit:     t.MatchLimit,
		}
	}
}

func (tb *TreeBrowser) gitSummaryCmd() tea.Cmd {
	gen := tb.generation
	repo := tb.repo
	if repo == nil {
		return nil
	}
	return func() tea.Msg {
		if err := repo.Refresh(); err != nil {
			return GitSummaryMsg{Generation: gen, HasRepo: false}
		}
		sum, err := repo.Summarize()
		if err != nil {
			return GitSummaryMsg{Generation: gen, HasRepo: false}
		}
		return GitSummaryMsg{Generation: gen, Summary: sum, HasRepo: true}
	}
}

// OnPendingTask folds an async rebuild or git refresh back in, discarding
// anything tagged with a generation older than the browser's current one.
func (tb *TreeBrowser) OnPendingTask(msg tea.Msg) panelkit.CmdResult {
	switch m := msg.(type) {
	case BuildResultMsg:
		if m.Generation != tb.generation {
			return panelkit.CmdResult{Kind: panelkit.Keep}
		}
		tb.pending = false
		tb.taskLabel = ""
		tb.buildCancel = nil
		if m.Interrupted {
			// Silent by design: a superseded build leaves the previous
			// tree in place rather than surfacing anything.
			return panelkit.CmdResult{Kind: panelkit.Keep}
		}
		if m.Err != nil {
			return panelkit.ErrorResult(m.Err)
		}
		selected := tb.SelectedPath()
		tb.t = m.Tree
		if !tb.t.TrySelectPath(selected) {
			tb.t.TrySelectBestMatch()
		}
		if m.TooManyMatches {
			err := apperrors.WrapSub(apperrors.TreeBuild, apperrors.SubTooManyMatches, "treebuild.Build",
				fmt.Errorf("more than %d matches, showing a partial result", m.MatchLimit))
			return panelkit.ErrorResult(err)
		}
		return panelkit.CmdResult{Kind: panelkit.Keep}
	case GitSummaryMsg:
		if m.Generation != tb.generation {
			return panelkit.CmdResult{Kind: panelkit.Keep}
		}
		if m.HasRepo {
			tb.summary = m.Summary
			tb.hasRepo = true
		}
		return panelkit.CmdResult{Kind: panelkit.Keep}
	}
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

// OnCommand applies a parsed pattern edit and/or dispatches a verb.
func (tb *TreeBrowser) OnCommand(cmd command.Command) panelkit.CmdResult {
	res := panelkit.CmdResult{Kind: panelkit.Keep}

	if cmd.Pattern != tb.pat {
		tb.pat = cmd.Pattern
		tb.generation++
		tb.pending = true
		tb.taskLabel = "filtering"
		res.Cmd = tb.rebuildCmd()
	}

	if cmd.Verb == "" {
		return res
	}
	return tb.dispatchVerb(cmd.Verb, cmd.Args, cmd.Bang)
}

func (tb *TreeBrowser) dispatchVerb(name, args string, bang bool) panelkit.CmdResult {
	switch name {
	case "back", "escape":
		return panelkit.CmdResult{Kind: panelkit.ClosePanel}
	case "quit":
		return panelkit.CmdResult{Kind: panelkit.Quit}
	case "refresh":
		tb.Refresh()
		return panelkit.CmdResult{Kind: panelkit.Keep}
	case "line_up":
		tb.t.MoveSelection(-1, tb.pageHeight(), true)
		return panelkit.CmdResult{Kind: panelkit.Keep}
	case "line_down":
		tb.t.MoveSelection(1, tb.pageHeight(), true)
		return panelkit.CmdResult{Kind: panelkit.Keep}
	case "next_match":
		tb.t.TrySelectBestMatch()
		return panelkit.CmdResult{Kind: panelkit.Keep}
	case "previous_match":
		tb.t.TrySelectBestMatch()
		return panelkit.CmdResult{Kind: panelkit.Keep}
	case "toggle_hidden":
		return tb.toggled(func(o *tree.Options) { o.ShowHidden = !o.ShowHidden })
	case "toggle_files":
		return tb.toggled(func(o *tree.Options) { o.OnlyFolders = !o.OnlyFolders })
	case "toggle_sizes":
		return tb.toggled(func(o *tree.Options) { o.ShowSizes = !o.ShowSizes })
	case "toggle_counts":
		return tb.toggled(func(o *tree.Options) { o.ShowCounts = !o.ShowCounts })
	case "toggle_dates":
		return tb.toggled(func(o *tree.Options) { o.ShowDates = !o.ShowDates })
	case "toggle_git_status":
		return tb.toggled(func(o *tree.Options) { o.ShowGitStatus = !o.ShowGitStatus })
	case "toggle_gitignore":
		return tb.toggled(func(o *tree.Options) { o.ShowGitIgnored = !o.ShowGitIgnored })
	case "toggle_perm":
		return tb.toggled(func(o *tree.Options) { o.ShowPermissions = !o.ShowPermissions })
	case "toggle_trim_root":
		return tb.toggled(func(o *tree.Options) { o.TrimRoot = !o.TrimRoot })
	case "no_sort":
		return tb.toggled(func(o *tree.Options) { o.Sort = tree.SortNone })
	case "sort_by_size":
		return tb.toggled(func(o *tree.Options) { o.Sort = tree.SortSize; o.TrimRoot = false })
	case "sort_by_date":
		return tb.toggled(func(o *tree.Options) { o.Sort = tree.SortDate; o.TrimRoot = false })
	case "sort_by_count":
		return tb.toggled(func(o *tree.Options) { o.Sort = tree.SortCount; o.TrimRoot = false })
	case "sort_by_type":
		return tb.toggled(func(o *tree.Options) { o.Sort = tree.SortTypeDirsFirst; o.TrimRoot = false })
	case "print_path":
		return panelkit.MessageResult(tb.SelectedPath())
	case "print_relative_path":
		rel, err := filepath.Rel(tb.root, tb.SelectedPath())
		if err != nil {
			rel = tb.SelectedPath()
		}
		return panelkit.MessageResult(rel)
	case "copy_path":
		if err := clipboard.WriteAll(tb.SelectedPath()); err != nil {
			return panelkit.ErrorResult(err)
		}
		return panelkit.MessageResult("copied path")
	case "focus", "open_stay", "cd":
		sel := tb.t.Selected()
		if sel == nil {
			return panelkit.MessageResult("nothing selected")
		}
		if !sel.IsDir() {
			if name == "focus" {
				// The open action on a file: hand off to the open verb.
				return tb.dispatchVerb("open", args, bang)
			}
			return panelkit.MessageResult("not a directory")
		}
		child := NewTreeBrowser(sel.Path, tb.opts, tb.verbs)
		return panelkit.CmdResult{Kind: panelkit.NewState, State: child}
	case "parent":
		parent := filepath.Dir(tb.root)
		child := NewTreeBrowser(parent, tb.opts, tb.verbs)
		child.t.TrySelectPath(tb.root)
		return panelkit.CmdResult{Kind: panelkit.NewState, State: child}
	case "open_preview", "preview_text", "preview_image", "preview_binary", "toggle_preview":
		np := NewPreview(tb.SelectedPath())
		return panelkit.CmdResult{
			Kind: panelkit.OpenPanel, Purpose: panelkit.PurposePreview, Direction: panelkit.DirectionRight,
			State: np, Cmd: np.InitCmd(),
		}
	case "panel_left":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.PanelLeft}
	case "panel_right":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.PanelRight}
	case "stage":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.StageSelection}
	case "unstage":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.UnstageSelection}
	case "toggle_stage":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.ToggleStageSelection}
	case "clear_stage":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.ClearStage}
	case "open_stage":
		return panelkit.CmdResult{Kind: panelkit.HandleInApp, Internal: panelkit.OpenStagePanel}
	case "open_trash", "trash":
		return panelkit.CmdResult{Kind: panelkit.NewState, State: NewTrash(filepath.Join(tb.root, ".arbor-trash"))}
	case "help":
		return panelkit.CmdResult{Kind: panelkit.NewState, State: NewHelp()}
	case "filesystems":
		return panelkit.CmdResult{Kind: panelkit.NewState, State: NewFilesystems(tb.opts, tb.verbs)}
	case "toggle_root_fs":
		return tb.toggled(func(o *tree.Options) { o.ShowRootFs = !o.ShowRootFs })
	case "open", "open_leave":
		if tb.verbs == nil {
			return panelkit.ErrorResult(fmt.Errorf("open: no verb store configured"))
		}
		v, ok := tb.verbs.ByKey("open")
		if !ok {
			v, _, _, ok = tb.verbs.Resolve("open")
			if !ok {
				return panelkit.MessageResult("no open verb configured")
			}
		}
		if err := v.CheckArgs(args, ""); err != nil {
			return panelkit.ErrorResult(err)
		}
		ctx := verb.Context{Selection: tb.SelectedPath(), Root: tb.root, Args: args, Line: tb.Selection().Line, Bang: bang}
		return panelkit.CmdResult{Kind: panelkit.Launch, LaunchSpec: &panelkit.LaunchSpec{Verb: v, Ctx: ctx}}
	default:
		if tb.verbs == nil {
			return panelkit.MessageResult("unknown verb: " + name)
		}
		// The registry keys placeholder verbs by their full invocation
		// pattern ("cp {newpath}"), so resolution runs on the rejoined
		// name+args text, capturing the named groups as it matches.
		invocation := name
		if args != "" {
			invocation += " " + args
		}
		v, arg, groups, ok := tb.verbs.Resolve(invocation)
		if !ok {
			return panelkit.MessageResult("unknown verb: " + name)
		}
		if args == "" {
			args = arg
		}
		if v.NeedsConfirm && !bang {
			return panelkit.MessageResult(fmt.Sprintf("%s needs confirmation: type :%s!", v.Name, name))
		}
		// A NeedAnotherPanel verb can't be validated here: only the app
		// loop knows the other panel's selection, and its launch path
		// re-runs CheckArgs with it filled in.
		if !v.NeedAnotherPanel {
			if err := v.CheckArgs(args, ""); err != nil {
				return panelkit.ErrorResult(err)
			}
		}
		ctx := verb.Context{Selection: tb.SelectedPath(), Root: tb.root, Args: args, Line: tb.Selection().Line, Groups: groups, Bang: bang}
		if v.Exec == verb.ExecExternal {
			return panelkit.CmdResult{Kind: panelkit.Launch, LaunchSpec: &panelkit.LaunchSpec{Verb: v, Ctx: ctx}}
		}
		if err := tb.verbs.Run(v, ctx); err != nil {
			return panelkit.ErrorResult(err)
		}
		return panelkit.CmdResult{Kind: panelkit.Keep}
	}
}

// toggled applies a display-option mutation and rebuilds the tree
// synchronously in place, preserving the current selection.
func (tb *TreeBrowser) toggled(mutate func(*tree.Options)) panelkit.CmdResult {
	opts := tb.opts
	mutate(&opts)
	next := tb.WithNewOptions(opts).(*TreeBrowser)
	*tb = *next
	return panelkit.CmdResult{Kind: panelkit.Keep}
}

// pageHeight returns the content height last passed to Display, falling
// back to a sane default before the first render.
func (tb *TreeBrowser) pageHeight() int {
	if tb.lastHeight > 0 {
		return tb.lastHeight
	}
	return 20
}

func (tb *TreeBrowser) Display(width, height int) string {
	if height <= 0 || width <= 0 {
		return ""
	}
	tb.lastHeight = height
	tb.t.EnsureVisible(height)
	lines := tb.t.VisibleLines(height)

	rows := make([]string, 0, height)
	for i, l := range lines {
		if tb.opts.TrimRoot && l.Depth == 0 && len(tb.t.Lines) > 1 {
			continue
		}
		idx := tb.t.ScrollTop + i
		rows = append(rows, tb.renderLine(l, idx == tb.t.Selection, width-1))
	}
	for len(rows) < height {
		rows = append(rows, "")
	}

	sb := ui.RenderScrollbar(ui.ScrollbarParams{
		TotalItems:   len(tb.t.Lines),
		ScrollOffset: tb.t.ScrollTop,
		VisibleItems: height,
		TrackHeight:  height,
	})
	sbLines := strings.Split(sb, "\n")
	for i := range rows {
		thumb := " "
		if i < len(sbLines) {
			thumb = sbLines[i]
		}
		rows[i] = rows[i] + thumb
	}
	return strings.Join(rows, "\n")
}

func (tb *TreeBrowser) renderLine(l *tree.Line, selected bool, width int) string {
	if l.Type == tree.LinePruning {
		return styles.Muted.Render(fmt.Sprintf("%s%d unlisted", strings.Repeat("  ", l.Depth), l.Unlisted))
	}

	indent := strings.Repeat("  ", l.Depth)
	name := l.Name
	nameStyle := styles.FileBrowserFile
	if l.IsDir() {
		nameStyle = styles.FileBrowserDir
		name += "/"
	}
	if tb.opts.ShowGitStatus && l.GitStat != gitstatus.StatusNone {
		nameStyle = gitStatusStyle(l.GitStat, nameStyle)
	}
	if l.GitIgnored {
		nameStyle = styles.Muted
	}

	var permCol, trailer string
	if tb.opts.ShowPermissions {
		permCol = l.Mode.String() + " "
	}
	if tb.opts.ShowSizes && l.Size != nil {
		trailer += "  " + formatSize(l.Size.Bytes)
	}
	if tb.opts.ShowCounts && l.Size != nil {
		trailer += fmt.Sprintf("  %d", l.Size.Count)
	}
	if tb.opts.ShowDates && !l.ModTime.IsZero() {
		trailer += "  " + l.ModTime.Format("Jan 02 15:04")
	}
	if tb.opts.ShowRootFs && l.Depth == 0 {
		var fs FSInfo
		if statFS(l.Path, &fs) && fs.SizeBytes > 0 {
			trailer += fmt.Sprintf("  %s free of %s",
				humanize.IBytes(fs.FreeBytes), humanize.IBytes(fs.SizeBytes))
		}
	}

	// The name is the one column of unbounded width (a deeply nested or
	// long filename); crop it to whatever's left after the fixed-width
	// columns so a single overlong entry can't push the scrollbar or a
	// neighboring panel off-screen.
	nameBudget := width - runewidth.StringWidth(indent) - runewidth.StringWidth(permCol) - runewidth.StringWidth(trailer)
	if nameBudget > 0 && runewidth.StringWidth(name) > nameBudget {
		name = runewidth.Truncate(name, nameBudget, "…")
	}

	line := indent
	if permCol != "" {
		line += styles.FileBrowserLineNumber.Render(permCol)
	}
	line += nameStyle.Render(name)
	if trailer != "" {
		line += styles.FileBrowserLineNumber.Render(trailer)
	}

	if lipgloss.Width(line) < width {
		line += strings.Repeat(" ", width-lipgloss.Width(line))
	}
	if selected {
		return styles.ListItemSelected.Render(line)
	}
	return line
}

func gitStatusStyle(s gitstatus.LineStatus, fallback lipgloss.Style) lipgloss.Style {
	switch {
	case s.HasAny(gitstatus.StatusConflict):
		return styles.StatusBlocked
	case s.HasAny(gitstatus.StatusDeleted):
		return styles.StatusDeleted
	case s.HasAny(gitstatus.StatusModified | gitstatus.StatusRenamed):
		return styles.StatusModified
	case s.HasAny(gitstatus.StatusNew):
		return styles.StatusUntracked
	default:
		return fallback
	}
}

func formatSize(n uint64) string {
	return humanize.IBytes(n)
}
