package palette

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arbor-tui/arbor/internal/styles"
)

// keyColumnWidth is the fixed width for the key column to ensure alignment.
// Fits "shift+tab" (9 chars) + KeyHint padding (2) + 1 buffer.
const keyColumnWidth = 12

// Palette-specific styles
var (
	paletteBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Primary).
			Background(styles.BgSecondary).
			Padding(1, 2)

	layerHeaderCurrent = lipgloss.NewStyle().
				Foreground(styles.Primary).
				Bold(true).
				PaddingLeft(1).
				MarginTop(1)

	layerHeaderPlugin = lipgloss.NewStyle().
				Foreground(styles.Secondary).
				Bold(true).
				PaddingLeft(1).
				MarginTop(1)

	layerHeaderGlobal = lipgloss.NewStyle().
				Foreground(styles.TextSubtle).
				PaddingLeft(1).
				MarginTop(1)

	entryNormal = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	entrySelected = lipgloss.NewStyle().
			Foreground(styles.TextPrimary).
			Background(styles.BgTertiary)

	entryName = lipgloss.NewStyle().
			Foreground(styles.TextPrimary).
			Width(20)

	entryDesc = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	matchHighlight = lipgloss.NewStyle().
			Foreground(styles.Primary).
			Bold(true)
)

// renderItem represents a single line in the palette (header or entry).
type renderItem struct {
	isHeader   bool
	layer      Layer
	entry      *PaletteEntry
	entryIndex int // index in filtered entries (for cursor matching)
}

// View renders the command palette.
func (m Model) View() string {
	// Clear hit regions from previous render
	m.mouseHandler.Clear()

	var b strings.Builder

	width := min(80, m.width-4)
	if width < 40 {
		width = 40
	}

	// Content width inside the box padding
	contentWidth := width - 4

	promptPrefix := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true).Render(">")
	escChip := styles.KeyHint.Render("esc")
	inputWidth := contentWidth - lipgloss.Width(promptPrefix) - lipgloss.Width(escChip) - 3
	paddedInput := lipgloss.NewStyle().Width(inputWidth).Render(m.textInput.View())
	header := fmt.Sprintf("%s %s %s", promptPrefix, paddedInput, escChip)
	b.WriteString(header)
	b.WriteString("\n")

	// Mode indicator with context badge
	var modeText string
	if m.showAllContexts {
		modeText = styles.BarChip.Render("All Contexts")
	} else {
		modeText = styles.BarChip.Render(m.activeContext)
	}
	toggleHint := styles.Muted.Render("tab to toggle")
	b.WriteString(fmt.Sprintf("%s  %s", modeText, toggleHint))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", contentWidth))
	b.WriteString("\n")

	items := m.buildRenderItems()
	totalEntries := len(m.filtered)

	visibleStart := m.offset
	visibleEnd := m.offset + m.maxVisible
	if visibleEnd > totalEntries {
		visibleEnd = totalEntries
	}

	// Track Y position for hit regions (relative to modal content).
	// Header = 3 lines (input, mode indicator, divider).
	currentY := 3

	if m.offset > 0 {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  ↑ %d more above", m.offset)))
		b.WriteString("\n")
		currentY++
	}

	for _, item := range items {
		if item.isHeader {
			if m.layerHasVisibleEntries(item.layer, visibleStart, visibleEnd) {
				b.WriteString(m.renderLayerHeader(item.layer))
				b.WriteString("\n")
				currentY++
			}
			continue
		}
		if item.entryIndex >= visibleStart && item.entryIndex < visibleEnd {
			isSelected := item.entryIndex == m.cursor
			line := m.renderEntry(*item.entry, isSelected, width-4)
			b.WriteString(line)
			b.WriteString("\n")

			m.mouseHandler.HitMap.AddRect(regionPaletteEntry, 0, currentY, width, 1, item.entryIndex)
			currentY++
		}
	}

	if visibleEnd < totalEntries {
		remaining := totalEntries - visibleEnd
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  ↓ %d more below", remaining)))
		b.WriteString("\n")
	}

	if len(m.filtered) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("No matching commands"))
		b.WriteString("\n")
	}

	content := strings.TrimRight(b.String(), "\n")
	return paletteBox.Width(width).Render(content)
}

// buildRenderItems creates a flat list of headers and entries for rendering.
func (m Model) buildRenderItems() []renderItem {
	groups := GroupEntriesByLayer(m.filtered)
	layers := []Layer{LayerCurrentMode, LayerPlugin, LayerGlobal}

	var items []renderItem
	entryIndex := 0

	for _, layer := range layers {
		entries, ok := groups[layer]
		if !ok || len(entries) == 0 {
			continue
		}
		items = append(items, renderItem{isHeader: true, layer: layer})
		for i := range entries {
			items = append(items, renderItem{
				entry:      &entries[i],
				entryIndex: entryIndex,
			})
			entryIndex++
		}
	}

	return items
}

// layerHasVisibleEntries checks if a layer has any entries in the visible range.
func (m Model) layerHasVisibleEntries(layer Layer, visibleStart, visibleEnd int) bool {
	groups := GroupEntriesByLayer(m.filtered)
	layers := []Layer{LayerCurrentMode, LayerPlugin, LayerGlobal}

	entryIndex := 0
	for _, l := range layers {
		entries := groups[l]
		layerStart := entryIndex
		layerEnd := entryIndex + len(entries)
		if l == layer {
			return layerStart < visibleEnd && layerEnd > visibleStart
		}
		entryIndex = layerEnd
	}
	return false
}

// renderLayerHeader renders a layer section header.
func (m Model) renderLayerHeader(layer Layer) string {
	switch layer {
	case LayerCurrentMode:
		return layerHeaderCurrent.Render(strings.ToUpper(m.activeContext))
	case LayerPlugin:
		return layerHeaderPlugin.Render(strings.ToUpper(m.pluginContext))
	default:
		return layerHeaderGlobal.Render("GLOBAL")
	}
}

// renderEntry renders a single palette entry.
func (m Model) renderEntry(entry PaletteEntry, selected bool, maxWidth int) string {
	// Key column rendered as a chip, padded to a fixed width for alignment
	keyStr := styles.KeyHint.Render(entry.Key)
	keyWidth := lipgloss.Width(keyStr)
	if keyWidth < keyColumnWidth {
		keyStr = keyStr + strings.Repeat(" ", keyColumnWidth-keyWidth)
	}

	nameStr := m.highlightMatches(entry.Name, entry.MatchRanges)
	nameStr = entryName.Render(nameStr)

	// Account for: 2 leading spaces + keyColumnWidth + 1 space + 20 name + 1 space
	descWidth := maxWidth - keyColumnWidth - 20 - 4
	desc := entry.Description
	if entry.ContextCount > 1 {
		desc = fmt.Sprintf("%s (%d contexts)", desc, entry.ContextCount)
	}
	if descWidth > 3 && len(desc) > descWidth {
		desc = desc[:descWidth-3] + "..."
	}
	descStr := entryDesc.Render(desc)

	line := fmt.Sprintf("  %s %s %s", keyStr, nameStr, descStr)
	paddedLine := lipgloss.NewStyle().Width(maxWidth).Render(line)

	if selected {
		return entrySelected.Width(maxWidth).Render(paddedLine)
	}
	return entryNormal.Render(paddedLine)
}

// highlightMatches applies highlighting to matched characters.
func (m Model) highlightMatches(text string, ranges []MatchRange) string {
	if len(ranges) == 0 {
		return text
	}

	var result strings.Builder
	lastEnd := 0
	for _, r := range ranges {
		if r.Start > lastEnd {
			result.WriteString(text[lastEnd:r.Start])
		}
		if r.End <= len(text) {
			result.WriteString(matchHighlight.Render(text[r.Start:r.End]))
		}
		lastEnd = r.End
	}
	if lastEnd < len(text) {
		result.WriteString(text[lastEnd:])
	}
	return result.String()
}
