package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cuetask/internal/model"
	"github.com/verte-zerg/cuetask/internal/participant"
)

const (
	fieldIdentifier = iota
	fieldSex
	fieldAge
	fieldCount
)

var (
	formTitleStyle = lipgloss.NewStyle().Bold(true)
	formLabelStyle = lipgloss.NewStyle().Width(12)
	formFocusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	formErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	formHintStyle  = lipgloss.NewStyle().Faint(true)
)

// Form collects the participant identity before a run.
type Form struct {
	identifier textinput.Model
	age        textinput.Model
	sex        int
	focus      int

	err       string
	submitted bool
	cancelled bool
}

// NewForm returns a dialog pre-filled with defaults.
func NewForm(initial model.Participant) *Form {
	id := textinput.New()
	id.Placeholder = "identifier"
	id.CharLimit = 32
	id.SetValue(initial.Identifier)
	id.Focus()

	age := textinput.New()
	age.Placeholder = participant.DefaultAge
	age.CharLimit = 3
	age.SetValue(initial.Age)
	if initial.Age == "" {
		age.SetValue(participant.DefaultAge)
	}

	f := &Form{identifier: id, age: age}
	for i, s := range participant.Sexes {
		if strings.EqualFold(s, initial.Sex) {
			f.sex = i
		}
	}
	return f
}

// Participant returns the participant entered so far.
func (f *Form) Participant() model.Participant {
	return participant.Normalize(model.Participant{
		Identifier: f.identifier.Value(),
		Sex:        participant.Sexes[f.sex],
		Age:        f.age.Value(),
	})
}

// Init implements tea.Model.
func (f *Form) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, f.updateInput(msg)
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		f.cancelled = true
		return f, tea.Quit
	case tea.KeyEnter:
		p := f.Participant()
		if err := participant.Validate(p); err != nil {
			f.err = err.Error()
			return f, nil
		}
		f.submitted = true
		return f, tea.Quit
	case tea.KeyTab, tea.KeyDown:
		return f, f.setFocus((f.focus + 1) % fieldCount)
	case tea.KeyShiftTab, tea.KeyUp:
		return f, f.setFocus((f.focus + fieldCount - 1) % fieldCount)
	}
	if f.focus == fieldSex {
		switch key.String() {
		case "left", "right", " ", "h", "l":
			f.sex = (f.sex + 1) % len(participant.Sexes)
		default:
			for i, s := range participant.Sexes {
				if strings.EqualFold(key.String(), s) {
					f.sex = i
				}
			}
		}
		return f, nil
	}
	f.err = ""
	return f, f.updateInput(msg)
}

func (f *Form) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case fieldIdentifier:
		f.identifier, cmd = f.identifier.Update(msg)
	case fieldAge:
		f.age, cmd = f.age.Update(msg)
	}
	return cmd
}

func (f *Form) setFocus(field int) tea.Cmd {
	f.focus = field
	f.identifier.Blur()
	f.age.Blur()
	switch field {
	case fieldIdentifier:
		return f.identifier.Focus()
	case fieldAge:
		return f.age.Focus()
	}
	return nil
}

// View implements tea.Model.
func (f *Form) View() string {
	var b strings.Builder
	b.WriteString(formTitleStyle.Render("Participant"))
	b.WriteString("\n\n")
	b.WriteString(f.row(fieldIdentifier, "Identifier", f.identifier.View()))
	b.WriteString(f.row(fieldSex, "Sex", f.sexView()))
	b.WriteString(f.row(fieldAge, "Age", f.age.View()))
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(formErrorStyle.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(formHintStyle.Render("tab next - enter start - esc cancel"))
	return b.String()
}

func (f *Form) row(field int, label, value string) string {
	l := formLabelStyle.Render(label)
	if f.focus == field {
		l = formFocusStyle.Inherit(formLabelStyle).Render(label)
	}
	return l + value + "\n"
}

func (f *Form) sexView() string {
	parts := make([]string, len(participant.Sexes))
	for i, s := range participant.Sexes {
		if i == f.sex {
			parts[i] = "[" + s + "]"
		} else {
			parts[i] = " " + s + " "
		}
	}
	return strings.Join(parts, " ")
}

// AskParticipant shows the dialog and returns the entered participant.
// Dismissing the dialog returns participant.ErrDialogCancelled.
func AskParticipant(initial model.Participant, opts ...tea.ProgramOption) (model.Participant, error) {
	final, err := tea.NewProgram(NewForm(initial), opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return model.Participant{}, participant.ErrDialogCancelled
		}
		return model.Participant{}, fmt.Errorf("failed to run participant dialog: %w", err)
	}
	f, ok := final.(*Form)
	if !ok || !f.submitted {
		return model.Participant{}, participant.ErrDialogCancelled
	}
	return f.Participant(), nil
}
