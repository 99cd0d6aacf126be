// Package app implements the App Loop: a left-to-right list of Panels,
// input routing (keyboard priority table, mouse hit-testing), redraw
// scheduling, and interpretation of the CmdResult each PanelState
// produces. It is the outermost tea.Model the CLI front end runs.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/config"
	"github.com/arbor-tui/arbor/internal/keymap"
	"github.com/arbor-tui/arbor/internal/modal"
	"github.com/arbor-tui/arbor/internal/mouse"
	"github.com/arbor-tui/arbor/internal/palette"
	"github.com/arbor-tui/arbor/internal/panelkit"
	"github.com/arbor-tui/arbor/internal/states"
	"github.com/arbor-tui/arbor/internal/styles"
	"github.com/arbor-tui/arbor/internal/tree"
	"github.com/arbor-tui/arbor/internal/ui"
	"github.com/arbor-tui/arbor/internal/verb"
	"github.com/arbor-tui/arbor/internal/version"
)

// gitRefreshMsg ticks every panel's git status on the interval configured
// by GitStatusConfig.RefreshMillis.
type gitRefreshMsg time.Time

// spinnerTickMsg advances the footer's pending-task spinner while any
// panel has background work in flight.
type spinnerTickMsg time.Time

// execFinishedMsg reports the outcome of a suspended external launch.
type execFinishedMsg struct{ err error }

// ExternalCommandMsg is how the control socket (internal/netctl) injects a
// command line into the running app: netctl runs on its own goroutine and
// can't touch panel state directly, so it hands the line to tea.Program.Send
// and the App Loop dispatches it on the active panel on its next Update,
// same as a typed-and-entered line.
type ExternalCommandMsg struct{ Line string }

// Model is the root Bubble Tea model driving the whole browser: the
// panel list, the verb registry every panel shares, and the last error
// or message shown on the status line.
type Model struct {
	cfg        *config.Config
	verbs      *verb.Store
	km         *keymap.Registry
	root       string
	outcmdPath string
	appVersion string

	panels  []*panelkit.Panel
	active  int
	nextID  uint32
	stage   *states.Stage
	stageID uint32 // 0 until the Stage panel is opened

	palette     palette.Model
	paletteOpen bool

	// quitModal is non-nil while the discard-staged-items confirmation is
	// up; it swallows all input until dismissed.
	quitModal  *modal.Modal
	modalMouse *mouse.Handler

	spinner ui.BrailleSpinner

	width, height int

	statusMsg   string
	statusIsErr bool
	quitting    bool
}

// New builds the initial Model with a single Tree Browser panel rooted
// at root.
func New(root string, cfg *config.Config, verbs *verb.Store, km *keymap.Registry) Model {
	opts := tree.Options{
		ShowHidden:      cfg.Tree.ShowHidden,
		ShowGitIgnored:  cfg.Tree.ShowGitIgnored,
		ShowSizes:       cfg.Tree.ShowSizes,
		ShowCounts:      cfg.Tree.ShowCounts,
		ShowDates:       cfg.Tree.ShowDates,
		ShowPermissions: cfg.Tree.ShowPermissions,
		ShowGitStatus:   cfg.Tree.ShowGitStatus && cfg.GitStatus.Enabled,
		ShowRootFs:      cfg.Tree.ShowRootFs,
		TrimRoot:        cfg.Tree.TrimRoot,
		OnlyFolders:     cfg.Tree.OnlyFolders,
		Sort:            tree.SortKind(cfg.Tree.Sort),
		TargetedSize:    cfg.Tree.TargetedSize,
		SpecialPaths:    specialPathsFromConfig(cfg.SpecialPaths),
	}
	m := Model{
		cfg: cfg, verbs: verbs, km: km, root: root,
		stage:      states.NewStage(),
		palette:    palette.New(),
		modalMouse: mouse.NewHandler(),
		spinner:    ui.NewBrailleSpinner(),
		appVersion: "dev",
	}
	root0 := states.NewTreeBrowser(root, opts, verbs)
	m.panels = append(m.panels, panelkit.NewPanel(m.nextID, root0, panelkit.PurposeNormal))
	m.nextID++
	return m
}

// Init starts the periodic git-status refresh ticker (when enabled) and a
// background update check.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{version.CheckAsync(m.appVersion), tickSpinner()}
	if m.cfg.GitStatus.Enabled {
		cmds = append(cmds, tickGit(m.cfg.GitStatus.RefreshMillis))
	}
	return tea.Batch(cmds...)
}

func tickSpinner() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

// anyPendingTask reports whether any panel's top state has background
// work in flight, driving the footer spinner.
func (m *Model) anyPendingTask() bool {
	for _, p := range m.panels {
		if p.Top().PendingTaskLabel() != "" {
			return true
		}
	}
	return false
}

// specialPathsFromConfig converts the config file's prefix→directive map
// into the typed form the tree builder consults; unknown directive names
// fall back to Default rather than failing the whole startup.
func specialPathsFromConfig(m map[string]string) []tree.SpecialPath {
	var out []tree.SpecialPath
	for prefix, dir := range m {
		d := tree.DirectiveDefault
		switch strings.ToLower(dir) {
		case "always":
			d = tree.DirectiveAlways
		case "never":
			d = tree.DirectiveNever
		}
		out = append(out, tree.SpecialPath{Prefix: prefix, Directive: d})
	}
	return out
}

func tickGit(millis int) tea.Cmd {
	if millis <= 0 {
		millis = 1000
	}
	return tea.Tick(time.Duration(millis)*time.Millisecond, func(t time.Time) tea.Msg {
		return gitRefreshMsg(t)
	})
}

func (m *Model) activePanel() *panelkit.Panel { return m.panels[m.active] }

// Root returns the starting root this Model was constructed with, the
// answer a control-socket GET_ROOT query expects.
func (m Model) Root() string { return m.root }

// WithOutcmd sets the path a FromParentShell verb writes its expanded
// command line to, returning m for chaining at construction time.
func (m Model) WithOutcmd(path string) Model {
	m.outcmdPath = path
	return m
}

// WithVersion records the binary's own version string for the startup
// update check.
func (m Model) WithVersion(v string) Model {
	if v != "" {
		m.appVersion = v
	}
	return m
}

// Update implements the App Loop's per-event iteration: route the event,
// apply the resulting command, interpret the CmdResult, repaint. Update
// itself stays a value receiver (tea.Model's contract); all mutation
// happens on the addressable local copy via the pointer-receiver step.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := (&m).step(msg)
	return m, cmd
}

func (m *Model) step(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.palette.SetSize(msg.Width, msg.Height)
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case palette.CommandSelectedMsg:
		m.paletteOpen = false
		return m.dispatch(m.active, ":"+msg.CommandID)

	case version.CheckResultMsg:
		if msg.HasUpdate {
			m.showMessage(fmt.Sprintf("update available: %s → %s", msg.CurrentVersion, msg.LatestVersion))
		}
		return nil

	case spinnerTickMsg:
		if m.anyPendingTask() {
			if !m.spinner.IsActive() {
				m.spinner.Start()
			}
			m.spinner.Tick()
		} else {
			m.spinner.Stop()
		}
		return tickSpinner()

	case gitRefreshMsg:
		cmds := m.broadcastPendingTask(msg)
		cmds = append(cmds, tickGit(m.cfg.GitStatus.RefreshMillis))
		return tea.Batch(cmds...)

	case execFinishedMsg:
		if msg.err != nil {
			m.showError(msg.err)
		}
		return nil

	case ExternalCommandMsg:
		return m.dispatch(m.active, msg.Line)

	default:
		// Any other message (build results, preview renders, watch
		// events, git summaries, ...) is a background task result: every
		// panel gets a look, since the message carries its own
		// generation tag and panels silently ignore one that isn't
		// theirs (panelkit.Keep).
		return tea.Batch(m.broadcastPendingTask(msg)...)
	}
}

func (m *Model) broadcastPendingTask(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	for i, p := range m.panels {
		res := p.DispatchPendingTask(msg)
		if c := m.interpret(i, res); c != nil {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

// handleKey implements the fixed keyboard priority table from spec.md
// §4.6: esc, then enter-with-verb, then "?", then a verb's bound key,
// then (skipped here: autocomplete cycling), then raw insertion.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return tea.Quit
	}

	if m.quitModal != nil {
		action, cmd := m.quitModal.HandleKey(msg)
		switch action {
		case "confirm":
			m.quitModal = nil
			m.quitting = true
			return tea.Quit
		case "cancel":
			m.quitModal = nil
		}
		return cmd
	}

	if m.paletteOpen {
		if msg.String() == "esc" {
			m.paletteOpen = false
			return nil
		}
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return cmd
	}

	p := m.activePanel()
	key := msg.String()

	switch {
	case key == "ctrl+p":
		m.openPalette()
		return m.palette.Init()

	case key == "esc":
		if p.Input != "" {
			p.Input = ""
			return m.applyLivePattern(p)
		}
		return m.dispatch(m.active, ":back")

	case key == "enter":
		raw := p.Input
		p.Input = ""
		if raw == "" {
			// An empty enter is the open action: descend into the
			// selected directory (or run the open verb on a file).
			raw = ":focus"
		}
		return m.dispatch(m.active, raw)

	case key == "?" && p.Input == "":
		p.Push(states.NewHelpWithRegistry(m.km))
		return nil
	}

	if v, ok := m.verbs.ByKey(key); ok && p.Input == "" {
		return m.dispatch(m.active, ":"+v.Name)
	}

	// Bound keys dispatch their command by name; printable keys only do so
	// while the input line is empty, since once the user is typing a
	// pattern every rune belongs to the input.
	if p.Input == "" || msg.Type != tea.KeyRunes {
		ctxName := p.Top().Type().String()
		if id, ok := m.km.Lookup(key, ctxName); ok {
			return m.dispatch(m.active, ":"+id)
		}
	}

	switch msg.Type {
	case tea.KeyBackspace:
		if n := len(p.Input); n > 0 {
			p.Input = p.Input[:n-1]
			return m.applyLivePattern(p)
		}
	case tea.KeyRunes, tea.KeySpace:
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		p.Input += text
		return m.applyLivePattern(p)
	}
	return nil
}

// handleMouse makes the panel under the pointer active and maps the wheel
// to line scrolling on it. A click only focuses that panel: the row under
// the pointer is not selected, and there is no hit-testing of individual
// rows or glyphs.
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.quitModal != nil {
		switch m.quitModal.HandleMouse(msg, m.modalMouse) {
		case "confirm":
			m.quitModal = nil
			m.quitting = true
			return tea.Quit
		case "cancel":
			m.quitModal = nil
		}
		return nil
	}
	if m.paletteOpen {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return cmd
	}

	idx := m.panelAt(msg.X)
	if idx < 0 {
		return nil
	}
	m.active = idx
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m.dispatch(idx, ":line_up")
	case tea.MouseButtonWheelDown:
		return m.dispatch(idx, ":line_down")
	}
	return nil
}

// panelAt returns the index of the panel column containing screen
// x-coordinate x, or -1 if none (shouldn't happen once sized).
func (m *Model) panelAt(x int) int {
	if len(m.panels) == 0 || m.width == 0 {
		return -1
	}
	colWidth := m.width / len(m.panels)
	if colWidth <= 0 {
		return 0
	}
	idx := x / colWidth
	if idx >= len(m.panels) {
		idx = len(m.panels) - 1
	}
	return idx
}

// applyLivePattern re-parses the panel's input line and feeds only its
// pattern portion to the top state, so the filtered view updates on
// every keystroke while a verb invocation only commits on enter.
func (m *Model) applyLivePattern(p *panelkit.Panel) tea.Cmd {
	cmd, err := command.Parse(p.Input)
	if err != nil {
		return nil
	}
	cmd.Verb, cmd.Args = "", ""
	res := p.Top().OnCommand(cmd)
	return res.Cmd
}

// dispatch parses raw as a full command (pattern and/or verb) against the
// panel at idx and interprets the resulting CmdResult.
func (m *Model) dispatch(idx int, raw string) tea.Cmd {
	// The palette verb lives at the app level: no panel state can render
	// an overlay spanning every column.
	if raw == ":palette" {
		m.openPalette()
		return m.palette.Init()
	}
	res, err := m.panels[idx].Dispatch(raw)
	if err != nil {
		m.showError(err)
		return nil
	}
	return m.interpret(idx, res)
}

// interpret applies the app-level directives a PanelState can't satisfy
// on its own: opening/closing panels, moving focus, staging, launching
// external commands, and quitting.
func (m *Model) interpret(idx int, res panelkit.CmdResult) tea.Cmd {
	switch res.Kind {
	case panelkit.ClosePanel:
		m.closePanel(idx)
	case panelkit.OpenPanel:
		m.openPanel(res)
	case panelkit.ApplyOnPanel:
		for _, p := range m.panels {
			if p.ID == res.TargetID {
				p.Push(res.State)
			}
		}
	case panelkit.DisplayError:
		m.showError(res.Err)
	case panelkit.Message:
		m.showMessage(res.Msg)
	case panelkit.RefreshState:
		m.panels[idx].Top().Refresh()
	case panelkit.ExecuteSequence:
		var cmds []tea.Cmd
		for _, raw := range res.Sequence {
			if c := m.dispatch(idx, raw); c != nil {
				cmds = append(cmds, c)
			}
		}
		return tea.Batch(cmds...)
	case panelkit.HandleInApp:
		m.handleInternal(idx, res.Internal)
	case panelkit.Launch:
		return m.launch(res.LaunchSpec)
	case panelkit.Quit:
		if len(m.stage.Paths()) > 0 && m.quitModal == nil {
			m.openQuitConfirm()
			return res.Cmd
		}
		m.quitting = true
		return tea.Quit
	}
	return res.Cmd
}

// openPalette builds the command palette's entry list from the keymap
// registry plus per-verb descriptions and shows it as an overlay.
func (m *Model) openPalette() {
	metas := make([]palette.VerbMeta, 0, len(m.verbs.All()))
	for _, v := range m.verbs.All() {
		metas = append(metas, palette.VerbMeta{Name: v.Name, Description: v.Description, Context: "global"})
	}
	m.palette.SetSize(m.width, m.height)
	m.palette.Open(m.km, metas, m.activePanel().Top().Type().String(), "tree")
	m.paletteOpen = true
}

// openQuitConfirm puts up the discard-staged-items confirmation instead of
// quitting outright: staged paths are working state the user built up by
// hand, and one stray :quit shouldn't throw them away silently.
func (m *Model) openQuitConfirm() {
	n := len(m.stage.Paths())
	m.quitModal = modal.New("Quit?",
		modal.WithVariant(modal.VariantWarning),
		modal.WithPrimaryAction("confirm"),
	).
		AddSection(modal.Text(fmt.Sprintf("%d staged item(s) will be discarded.", n))).
		AddSection(modal.Spacer()).
		AddSection(modal.Buttons(
			modal.Btn("Quit", "confirm", modal.BtnDanger()),
			modal.Btn("Cancel", "cancel"),
		))
}

// closePanel removes the panel at idx from the list, enforcing the
// invariant that at least one non-preview/non-stage panel always exists.
func (m *Model) closePanel(idx int) {
	if len(m.panels) <= 1 {
		return
	}
	closing := m.panels[idx]
	if closing.Purpose != panelkit.PurposePreview && closing.Purpose != panelkit.PurposeStage {
		remaining := 0
		for _, p := range m.panels {
			if p != closing && p.Purpose != panelkit.PurposePreview && p.Purpose != panelkit.PurposeStage {
				remaining++
			}
		}
		if remaining == 0 {
			return
		}
	}
	m.panels = append(m.panels[:idx], m.panels[idx+1:]...)
	if m.active >= len(m.panels) {
		m.active = len(m.panels) - 1
	}
	if closing.Purpose == panelkit.PurposeStage {
		m.stageID = 0
	}
}

// openPanel inserts a new panel next to the active one, enforcing "at
// most one Preview" / "at most one Stage" by focusing the existing one
// instead of duplicating it.
func (m *Model) openPanel(res panelkit.CmdResult) {
	if res.Purpose == panelkit.PurposePreview {
		for i, p := range m.panels {
			if p.Purpose == panelkit.PurposePreview {
				p.Replace(res.State)
				m.active = i
				return
			}
		}
	}
	if res.Purpose == panelkit.PurposeStage {
		for i, p := range m.panels {
			if p.Purpose == panelkit.PurposeStage {
				m.active = i
				return
			}
		}
	}
	np := panelkit.NewPanel(m.nextID, res.State, res.Purpose)
	m.nextID++
	insertAt := m.active + 1
	if res.Direction == panelkit.DirectionLeft {
		insertAt = m.active
	}
	m.panels = append(m.panels, nil)
	copy(m.panels[insertAt+1:], m.panels[insertAt:])
	m.panels[insertAt] = np
	m.active = insertAt
	if res.Purpose == panelkit.PurposeStage {
		m.stageID = np.ID
	}
}

// handleInternal applies the directives that mutate app-level state
// rather than any one panel's own view.
func (m *Model) handleInternal(idx int, action panelkit.InternalAction) {
	switch action {
	case panelkit.PanelLeft:
		if m.active > 0 {
			m.active--
		}
	case panelkit.PanelRight:
		if m.active < len(m.panels)-1 {
			m.active++
		}
	case panelkit.StageSelection:
		m.stage.Add(m.panels[idx].Top().SelectedPath())
	case panelkit.UnstageSelection:
		m.stage.Remove(m.panels[idx].Top().SelectedPath())
	case panelkit.ToggleStageSelection:
		m.stage.Toggle(m.panels[idx].Top().SelectedPath())
	case panelkit.ClearStage:
		m.stage.Clear()
	case panelkit.OpenStagePanel:
		m.openPanel(panelkit.CmdResult{
			Kind: panelkit.OpenPanel, State: m.stage,
			Purpose: panelkit.PurposeStage, Direction: panelkit.DirectionRight,
		})
	}
}

// otherPanelPath implements the "two-panel convenience": when exactly two
// non-Preview panels exist, verb execution can see the non-focused one's
// selection (e.g. for a cross-panel move/diff verb).
func (m *Model) otherPanelPath() string {
	var nonPreview []*panelkit.Panel
	for _, p := range m.panels {
		if p.Purpose != panelkit.PurposePreview {
			nonPreview = append(nonPreview, p)
		}
	}
	if len(nonPreview) != 2 {
		return ""
	}
	active := m.activePanel()
	for _, p := range nonPreview {
		if p.ID != active.ID {
			return p.Top().SelectedPath()
		}
	}
	return ""
}

// launch runs an external verb. Most verbs suspend bubbletea's raw-mode
// terminal for the duration via tea.ExecProcess (LeaveApp and the
// unsupported StayInAppTerm, which falls back to the same path);
// FromParentShell instead writes its expanded command line to the
// --outcmd file for a wrapper shell to source and quits, and
// StayInAppGui detaches the process so the app keeps running.
func (m *Model) launch(spec *panelkit.LaunchSpec) tea.Cmd {
	if spec == nil || spec.Verb == nil {
		return nil
	}
	spec.Ctx.OtherPanel = m.otherPanelPath()
	if err := spec.Verb.CheckArgs(spec.Ctx.Args, spec.Ctx.OtherPanel); err != nil {
		m.showError(err)
		return nil
	}

	if spec.Verb.Mode == verb.ModeFromParentShell {
		if err := m.writeOutcmd(spec.Verb, spec.Ctx); err != nil {
			m.showError(err)
			return nil
		}
		m.quitting = true
		return tea.Quit
	}

	cmdObj := m.verbs.BuildExternalCmd(spec.Verb, spec.Ctx)
	if spec.Verb.Mode == verb.ModeStayInAppGui {
		// Detached from the TUI's own stdio so a GUI viewer can't fight
		// bubbletea for the terminal while the app keeps running.
		cmdObj.Stdin = nil
		cmdObj.Stdout = nil
		cmdObj.Stderr = nil
		if err := cmdObj.Start(); err != nil {
			m.showError(err)
		}
		return nil
	}
	return tea.ExecProcess(cmdObj, func(err error) tea.Msg {
		return execFinishedMsg{err: err}
	})
}

// writeOutcmd appends v's expanded command line to the app's --outcmd
// file, one line per invocation, for the cooperating shell wrapper to
// source after the app exits.
func (m *Model) writeOutcmd(v *verb.Verb, ctx verb.Context) error {
	if m.outcmdPath == "" {
		return fmt.Errorf("verb %q needs --outcmd, none was given", v.Name)
	}
	f, err := os.OpenFile(m.outcmdPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	line := m.verbs.ExpandedLine(v, ctx)
	_, err = fmt.Fprintln(f, line)
	return err
}

func (m *Model) showError(err error) {
	if err == nil {
		return
	}
	m.statusMsg = err.Error()
	m.statusIsErr = true
}

func (m *Model) showMessage(msg string) {
	m.statusMsg = msg
	m.statusIsErr = false
}

// View renders the header tab strip, every panel's content side by side,
// and the status/input line at the bottom.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	colWidth := m.width / len(m.panels)
	cols := make([]string, len(m.panels))
	for i, p := range m.panels {
		w := colWidth
		if i == len(m.panels)-1 {
			w = m.width - colWidth*(len(m.panels)-1)
		}
		cols[i] = p.View(w, bodyHeight)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	view := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	if m.paletteOpen {
		view = ui.OverlayModal(view, m.palette.View(), m.width, m.height)
	}
	if m.quitModal != nil {
		box := m.quitModal.Render(m.width, m.height, m.modalMouse)
		view = ui.OverlayModal(view, box, m.width, m.height)
	}
	return view
}

func (m Model) renderHeader() string {
	var tabs []string
	for i, p := range m.panels {
		label := p.Top().Type().String()
		if path := p.Top().SelectedPath(); path != "" {
			label = path
		}
		style := styles.Subtitle
		if i == m.active {
			style = styles.Title
		}
		tabs = append(tabs, style.Render(label))
	}
	return strings.Join(tabs, " │ ")
}

func (m Model) renderFooter() string {
	p := m.panels[m.active]
	if label := p.Top().PendingTaskLabel(); label != "" {
		if frame := m.spinner.View(); frame != "" {
			return frame + " " + styles.Muted.Render(label)
		}
		return styles.Muted.Render(label + "...")
	}
	if m.statusMsg != "" {
		style := lipgloss.NewStyle()
		if m.statusIsErr {
			style = style.Foreground(styles.Error)
		} else {
			style = style.Foreground(styles.TextMuted)
		}
		return style.Render(m.statusMsg)
	}
	return fmt.Sprintf("> %s", p.Input)
}
