// Package modal renders declarative overlay dialogs (confirmations, verb
// prompts, the project/root switcher) on top of whatever panel state is
// active beneath them, with automatic tab-focus cycling and mouse hit
// region registration.
package modal

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arbor-tui/arbor/internal/mouse"
)

// Variant selects the modal's accent color and border treatment.
type Variant int

const (
	VariantDefault Variant = iota
	VariantDanger
	VariantWarning
	VariantInfo
)

const (
	// DefaultWidth is used when no WithWidth option is given.
	DefaultWidth = 60
	// MinModalWidth is the floor a modal is clamped to on narrow terminals.
	MinModalWidth = 30
	// ModalPadding accounts for the border (2 cols) and horizontal padding (4 cols).
	ModalPadding = 6
)

// Option configures a Modal at construction time.
type Option func(*Modal)

// WithVariant sets the modal's accent variant.
func WithVariant(v Variant) Option {
	return func(m *Modal) { m.variant = v }
}

// WithWidth sets the modal's preferred width, before clamping to the screen.
func WithWidth(w int) Option {
	return func(m *Modal) { m.width = w }
}

// WithPrimaryAction sets the action ID returned when Enter is pressed on a
// focused element that doesn't itself produce an action (e.g. a checkbox).
func WithPrimaryAction(id string) Option {
	return func(m *Modal) { m.primaryAction = id }
}

// WithoutHints hides the keyboard hint line.
func WithoutHints() Option {
	return func(m *Modal) { m.showHints = false }
}

// WithCloseOnBackdrop controls whether clicking outside the modal dismisses it.
func WithCloseOnBackdrop(close bool) Option {
	return func(m *Modal) { m.closeOnBackdrop = close }
}

// Modal is a declarative overlay dialog built from a list of Sections.
type Modal struct {
	title           string
	variant         Variant
	width           int
	sections        []Section
	showHints       bool
	primaryAction   string
	closeOnBackdrop bool

	focusIdx     int
	hoverID      string
	focusIDs     []string
	scrollOffset int
}

// New creates a Modal with the given title and options.
func New(title string, opts ...Option) *Modal {
	m := &Modal{
		title:           title,
		variant:         VariantDefault,
		width:           DefaultWidth,
		showHints:       true,
		closeOnBackdrop: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddSection appends a section to the modal body and returns the modal for chaining.
func (m *Modal) AddSection(s Section) *Modal {
	m.sections = append(m.sections, s)
	return m
}

// Render lays the modal out for the given screen size and registers its
// hit regions with handler, returning the styled modal box.
func (m *Modal) Render(screenW, screenH int, handler *mouse.Handler) string {
	return m.buildLayout(screenW, screenH, handler)
}

// HandleKey processes one keystroke, returning the action it triggers (if
// any) and a tea.Cmd to run (e.g. a textinput cursor blink).
func (m *Modal) HandleKey(msg tea.KeyMsg) (action string, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return "cancel", nil

	case "tab":
		m.cycleFocus(1)
		return "", nil

	case "shift+tab":
		m.cycleFocus(-1)
		return "", nil

	case "enter":
		focusID := m.currentFocusID()
		if focusID == "" {
			return "", nil
		}
		if action, cmd = m.routeToFocusedSection(msg); action != "" {
			return action, cmd
		}
		if m.primaryAction != "" {
			return m.primaryAction, cmd
		}
		return focusID, cmd

	default:
		return m.routeToFocusedSection(msg)
	}
}

// HandleMouse processes one mouse event against the modal's registered hit
// regions, returning the action it triggers (if any).
func (m *Modal) HandleMouse(msg tea.MouseMsg, handler *mouse.Handler) string {
	action := handler.HandleMouse(msg)

	switch action.Type {
	case mouse.ActionClick:
		if action.Region == nil {
			return ""
		}
		id := action.Region.ID

		if id == "modal-backdrop" {
			if m.closeOnBackdrop {
				return "cancel"
			}
			return ""
		}
		if id == "modal-body" {
			return ""
		}
		for i, fid := range m.focusIDs {
			if fid == id {
				m.focusIdx = i
				return id
			}
		}
		return ""

	case mouse.ActionHover:
		if action.Region != nil && action.Region.ID != "modal-backdrop" && action.Region.ID != "modal-body" {
			m.hoverID = action.Region.ID
		} else {
			m.hoverID = ""
		}
		return ""

	case mouse.ActionScrollUp:
		if action.Region != nil && action.Region.ID == "modal-body" {
			m.scrollOffset = max(0, m.scrollOffset-3)
		}
		return ""

	case mouse.ActionScrollDown:
		if action.Region != nil && action.Region.ID == "modal-body" {
			m.scrollOffset += 3
		}
		return ""
	}

	return ""
}

// ScrollBy adjusts the scroll offset by delta lines; buildLayout clamps it
// to the content's actual range on the next render.
func (m *Modal) ScrollBy(delta int) { m.scrollOffset += delta }

// ScrollToTop resets the scroll position to the first line.
func (m *Modal) ScrollToTop() { m.scrollOffset = 0 }

// ScrollToBottom requests the last page of content; buildLayout clamps it.
func (m *Modal) ScrollToBottom() { m.scrollOffset = 1 << 30 }

// SetFocus moves focus to the element with the given ID, if present.
func (m *Modal) SetFocus(id string) {
	for i, fid := range m.focusIDs {
		if fid == id {
			m.focusIdx = i
			return
		}
	}
}

// FocusedID returns the currently focused element's ID, or "" if none.
func (m *Modal) FocusedID() string {
	return m.currentFocusID()
}

// HoveredID returns the currently hovered element's ID, or "" if none.
func (m *Modal) HoveredID() string {
	return m.hoverID
}

// Reset clears focus, hover, and scroll state, as when reopening a reused modal.
func (m *Modal) Reset() {
	m.focusIdx = 0
	m.hoverID = ""
	m.scrollOffset = 0
}

// currentFocusID returns the ID of the currently focused element.
func (m *Modal) currentFocusID() string {
	if len(m.focusIDs) == 0 {
		return ""
	}
	if m.focusIdx < 0 || m.focusIdx >= len(m.focusIDs) {
		return m.focusIDs[0]
	}
	return m.focusIDs[m.focusIdx]
}

// cycleFocus moves focus by delta, wrapping around the focusable list.
func (m *Modal) cycleFocus(delta int) {
	if len(m.focusIDs) == 0 {
		return
	}
	m.focusIdx = (m.focusIdx + delta + len(m.focusIDs)) % len(m.focusIDs)
}

// routeToFocusedSection forwards msg to whichever section owns the
// currently focused element.
func (m *Modal) routeToFocusedSection(msg tea.KeyMsg) (string, tea.Cmd) {
	focusID := m.currentFocusID()
	if focusID == "" {
		return "", nil
	}
	for _, section := range m.sections {
		if action, cmd := section.Update(msg, focusID); action != "" || cmd != nil {
			return action, cmd
		}
	}
	return "", nil
}
