package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/doughlab/cookieforge/pkg/pipeline"
)

// List styles.
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// artifactChoice is one toggleable row in the picker.
type artifactChoice struct {
	name        string
	description string
	checked     bool
}

// ArtifactPickerModel is the bubbletea model for interactive artifact
// selection in `forge -i`.
type ArtifactPickerModel struct {
	Choices   []artifactChoice
	Cursor    int
	Confirmed bool
}

// NewArtifactPickerModel creates the picker with both artifacts preselected.
func NewArtifactPickerModel() ArtifactPickerModel {
	return ArtifactPickerModel{
		Choices: []artifactChoice{
			{name: pipeline.ArtifactCutter, description: "outline cutting shell", checked: true},
			{name: pipeline.ArtifactStamp, description: "interior detail stamp", checked: true},
		},
	}
}

func (m ArtifactPickerModel) Init() tea.Cmd {
	return nil
}

func (m ArtifactPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Choices)-1 {
				m.Cursor++
			}
		case " ":
			m.Choices[m.Cursor].checked = !m.Choices[m.Cursor].checked
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ArtifactPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Artifacts"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ␣ toggle  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	for i, ch := range m.Choices {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		check := "[ ]"
		if ch.checked {
			check = "[" + styleIconSuccess.Render(iconSuccess) + "]"
		}
		style := listNormalStyle
		if i == m.Cursor {
			style = listSelectedStyle
		}
		fmt.Fprintf(&b, "%s%s %s  %s\n",
			cursor, check, style.Render(ch.name), listDimStyle.Render(ch.description))
	}
	return b.String()
}

// Selected returns the names of the checked artifacts, or nil when the
// picker was quit without confirming.
func (m ArtifactPickerModel) Selected() []string {
	if !m.Confirmed {
		return nil
	}
	var out []string
	for _, ch := range m.Choices {
		if ch.checked {
			out = append(out, ch.name)
		}
	}
	return out
}

// pickArtifacts runs the interactive picker and returns the chosen names.
func pickArtifacts() ([]string, error) {
	final, err := tea.NewProgram(NewArtifactPickerModel()).Run()
	if err != nil {
		return nil, fmt.Errorf("artifact picker: %w", err)
	}
	m, ok := final.(ArtifactPickerModel)
	if !ok {
		return nil, nil
	}
	return m.Selected(), nil
}
