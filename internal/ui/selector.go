package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// SelectorItem is one selectable account
type SelectorItem struct {
	ID          string
	Label       string
	Description string
	Current     bool
}

type selectorKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Cancel key.Binding
}

var selectorKeys = selectorKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Choose: key.NewBinding(key.WithKeys("enter")),
	Cancel: key.NewBinding(key.WithKeys("esc", "q", "ctrl+c")),
}

// Selector is an interactive list selector
type Selector struct {
	title    string
	items    []SelectorItem
	cursor   int
	selected int
	active   bool
	width    int
}

// NewSelector creates a selector with the cursor on the current item.
func NewSelector(title string, items []SelectorItem) Selector {
	selected := 0
	for i, item := range items {
		if item.Current {
			selected = i
			break
		}
	}

	return Selector{
		title:    title,
		items:    items,
		cursor:   selected,
		selected: selected,
		active:   true,
		width:    80,
	}
}

func (s *Selector) SetWidth(w int) {
	s.width = w
}

// Active returns whether the selector still waits for input
func (s *Selector) Active() bool {
	return s.active
}

// Selected returns the selected item ID, or empty if cancelled
func (s *Selector) Selected() string {
	if s.selected >= 0 && s.selected < len(s.items) {
		return s.items[s.selected].ID
	}
	return ""
}

// Cancelled returns whether the selector was cancelled
func (s *Selector) Cancelled() bool {
	return !s.active && s.selected == -1
}

// Init implements tea.Model.
func (s *Selector) Init() tea.Cmd {
	return nil
}

// Update handles selector input and quits the program once a choice is made.
func (s *Selector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !s.active {
		return s, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetWidth(msg.Width)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, selectorKeys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, selectorKeys.Down):
			if s.cursor < len(s.items)-1 {
				s.cursor++
			}
		case key.Matches(msg, selectorKeys.Choose):
			s.selected = s.cursor
			s.active = false
			return s, tea.Quit
		case key.Matches(msg, selectorKeys.Cancel):
			s.selected = -1
			s.active = false
			return s, tea.Quit
		}
	}

	return s, nil
}

// View renders the selector
func (s *Selector) View() string {
	if !s.active {
		return ""
	}

	var b strings.Builder

	b.WriteString(HelpStyle.Render(s.title + " (↑/↓ navigate, enter select, esc cancel)"))
	b.WriteString("\n\n")

	labelWidth := 44
	if s.width > 0 && s.width < 60 {
		labelWidth = s.width - 16
	}

	for i, item := range s.items {
		isCursor := i == s.cursor

		if isCursor {
			b.WriteString(SelectorCursor.Render(SymbolArrow) + " ")
		} else {
			b.WriteString("  ")
		}

		display := item.Label
		if display == "" {
			display = item.ID
		}
		label := fmt.Sprintf("%-*s", labelWidth, display)
		if isCursor {
			b.WriteString(SelectorActive.Render(label))
		} else {
			b.WriteString(SelectorItemStyle.Render(label))
		}

		desc := item.Description
		if item.Current {
			desc = strings.TrimSpace(desc + " (current)")
		}
		if desc != "" {
			b.WriteString(SelectorDim.Render(desc))
		}

		b.WriteString("\n")
	}

	return b.String()
}

// Select runs an interactive selector over items and returns the chosen ID,
// or "" when the user cancels.
func Select(ctx context.Context, in io.Reader, out io.Writer, title string, items []SelectorItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("nothing to select")
	}
	s := NewSelector(title, items)
	p := tea.NewProgram(&s, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		return "", err
	}
	if s.Cancelled() {
		return "", nil
	}
	return s.Selected(), nil
}
