// Package panelkit defines the panel/state-stack model shared by every
// screen of the browser: a Panel owns a stack of PanelStates (tree view,
// preview, a pushed help screen, ...) and routes commands to whichever
// state is on top; the App Loop (internal/app) owns a left-to-right list
// of Panels and interprets the CmdResult each one produces.
package panelkit

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/tree"
	"github.com/arbor-tui/arbor/internal/verb"
)

// PanelType identifies which view a PanelState renders.
type PanelType int

const (
	TreeBrowser PanelType = iota
	Preview
	Help
	Stage
	Trash
	Filesystems
)

func (t PanelType) String() string {
	switch t {
	case TreeBrowser:
		return "tree"
	case Preview:
		return "preview"
	case Help:
		return "help"
	case Stage:
		return "stage"
	case Trash:
		return "trash"
	case Filesystems:
		return "filesystems"
	default:
		return "unknown"
	}
}

// Direction indicates which side of the active panel a new panel opens on.
type Direction int

const (
	DirectionRight Direction = iota
	DirectionLeft
)

// Purpose tags what role a Panel plays in the app's panel list, governing
// the "at most one Preview panel" / "at most one Stage panel" invariants.
type Purpose int

const (
	PurposeNormal Purpose = iota
	PurposePreview
	PurposeStage
)

// InternalAction is the set of directives a PanelState can't act on
// itself because they mutate the panel list (open/close panels, move
// lines between the tree and the stage) rather than the state's own view.
type InternalAction int

const (
	InternalNone InternalAction = iota
	PanelLeft
	PanelRight
	StageSelection
	UnstageSelection
	ToggleStageSelection
	ClearStage
	OpenStagePanel
)

// LaunchSpec describes an external command the app loop should run outside
// the TUI (suspending bubbletea's raw-mode terminal for the duration).
type LaunchSpec struct {
	Verb *verb.Verb
	Ctx  verb.Context
}

// ResultKind discriminates which fields of a CmdResult are meaningful; it
// mirrors the closed sum of loop directives a PanelState can produce.
type ResultKind int

const (
	Keep ResultKind = iota
	PopState
	ClosePanel
	NewState
	OpenPanel
	ApplyOnPanel
	DisplayError
	Message
	RefreshState
	ExecuteSequence
	HandleInApp
	Launch
	Quit
)

// CmdResult is what a PanelState returns after handling a command: a
// closed sum of app-loop directives. Only the fields relevant to Kind are
// populated; the zero CmdResult is Keep (do nothing).
type CmdResult struct {
	Kind ResultKind

	// ClosePanel
	Validate bool   // run the panel's pending validation (e.g. confirm discard) before closing
	TargetID uint32 // ClosePanel/ApplyOnPanel: which panel, 0 means "the active one"

	// NewState / OpenPanel
	State     PanelState
	Purpose   Purpose
	Direction Direction

	// DisplayError / Message
	Err error
	Msg string

	// RefreshState
	ClearCache bool

	// ExecuteSequence
	Sequence []string

	// HandleInApp
	Internal InternalAction

	// Launch
	LaunchSpec *LaunchSpec

	// Every CmdResult may additionally carry a tea.Cmd to run (e.g. kick
	// off a background tree rebuild, a git status refresh).
	Cmd tea.Cmd
}

// KeepCmd wraps a tea.Cmd in an otherwise do-nothing CmdResult, the common
// case of "handled, redraw, and also kick off this background work".
func KeepCmd(cmd tea.Cmd) CmdResult { return CmdResult{Kind: Keep, Cmd: cmd} }

// ErrorResult builds a DisplayError result.
func ErrorResult(err error) CmdResult { return CmdResult{Kind: DisplayError, Err: err} }

// MessageResult builds a status-line Message result.
func MessageResult(msg string) CmdResult { return CmdResult{Kind: Message, Msg: msg} }

// PanelState is one layer of a panel's stack: the root tree view, or a
// transient overlay pushed on top of it (help, a pushed preview). Only the
// top of the stack receives commands; everything beneath it stays alive
// but dormant.
type PanelState interface {
	// Type identifies which kind of view this state renders.
	Type() PanelType
	// Mode is a state-specific sub-mode (e.g. preview's text-vs-markdown
	// toggle); states that have no submodes return 0.
	Mode() int
	SetMode(int)

	// SelectedPath is the filesystem path the state currently considers
	// "selected" — what verbs and the preview panel act on.
	SelectedPath() string
	// Selection is the richer Selection handle (kind, executable bit, row).
	Selection() tree.Selection

	// TreeOptions exposes the display toggles (hidden files, sizes, sort,
	// ...) currently in effect, shared across states that show a tree.
	TreeOptions() tree.Options
	// WithNewOptions returns a new state of the same kind rebuilt with opts.
	WithNewOptions(opts tree.Options) PanelState

	// Refresh rebuilds the state's data from disk, preserving selection
	// where possible.
	Refresh()

	// Display renders the state at the given content dimensions (header
	// and input line are drawn by the panel, not the state).
	Display(width, height int) string

	// OnCommand applies a parsed Command (pattern edit and/or verb
	// invocation) to the state.
	OnCommand(cmd command.Command) CmdResult
	// OnPendingTask folds a background task's result (tea.Msg) into the
	// state, e.g. a partial tree rebuild or a git status refresh.
	OnPendingTask(msg tea.Msg) CmdResult
	// PendingTaskLabel names the task in progress for the status line's
	// spinner, or "" if nothing is pending.
	PendingTaskLabel() string
	// StartingInput is the text the input line should be pre-filled with
	// when this state becomes active (usually the live pattern text).
	StartingInput() string
}

// Panel is one column of the layout: an id, a stack of states, the last
// known render area, the text currently in its input line, and its role
// among the app's panel list.
type Panel struct {
	ID      uint32
	stack   []PanelState
	Purpose Purpose

	Width, Height int // last rendered content area, excluding header/input

	Input string // raw text of the panel's input line
}

// NewPanel creates a panel with root as its only (bottom) state. A panel
// is never empty once created; closing its last state closes the panel
// itself (an App Loop-level concern, not Panel's).
func NewPanel(id uint32, root PanelState, purpose Purpose) *Panel {
	return &Panel{ID: id, stack: []PanelState{root}, Purpose: purpose, Input: root.StartingInput()}
}

// Top returns the currently active state.
func (p *Panel) Top() PanelState {
	return p.stack[len(p.stack)-1]
}

// Push adds a new state on top of the stack and seeds the input line from it.
func (p *Panel) Push(s PanelState) {
	p.stack = append(p.stack, s)
	p.Input = s.StartingInput()
}

// Pop removes the top state, unless it's the last one. Returns whether a
// state was actually popped.
func (p *Panel) Pop() bool {
	if len(p.stack) <= 1 {
		return false
	}
	p.stack = p.stack[:len(p.stack)-1]
	p.Input = p.Top().StartingInput()
	return true
}

// Replace swaps the top state for s in place (used by WithNewOptions
// rebuilds, which must not grow the stack).
func (p *Panel) Replace(s PanelState) {
	p.stack[len(p.stack)-1] = s
}

// Depth reports how many states are stacked, including the root.
func (p *Panel) Depth() int {
	return len(p.stack)
}

// Dispatch parses raw input-line text and forwards the resulting Command
// to the top state, applying any push/pop/replace the result calls for
// locally. Directives the Panel can't satisfy itself (app-level ones)
// pass through unmodified for the App Loop to interpret.
func (p *Panel) Dispatch(raw string) (CmdResult, error) {
	cmd, err := command.Parse(raw)
	if err != nil {
		return CmdResult{}, err
	}
	res := p.Top().OnCommand(cmd)
	p.applyLocal(res)
	return res, nil
}

// DispatchPendingTask forwards a background task result to the top state.
func (p *Panel) DispatchPendingTask(msg tea.Msg) CmdResult {
	res := p.Top().OnPendingTask(msg)
	p.applyLocal(res)
	return res
}

// applyLocal handles the directives that only ever affect this panel's own
// stack (PopState, NewState); everything else is left for the App Loop.
func (p *Panel) applyLocal(res CmdResult) {
	switch res.Kind {
	case PopState:
		p.Pop()
	case NewState:
		if res.State != nil {
			p.Push(res.State)
		}
	}
}

// View renders the top state.
func (p *Panel) View(width, height int) string {
	p.Width, p.Height = width, height
	return p.Top().Display(width, height)
}
