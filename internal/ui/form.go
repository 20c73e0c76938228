package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"pmdash/internal/api"
)

type formState struct {
	projectID   int
	title       string
	description string
	index       int
}

func formFields() []string {
	return []string{"title", "description"}
}

func (fs formState) currentLabel() string {
	return formFields()[fs.index]
}

func (fs formState) currentValue() string {
	switch fs.index {
	case 0:
		return fs.title
	case 1:
		return fs.description
	default:
		return ""
	}
}

func (fs *formState) setCurrentValue(v string) {
	switch fs.index {
	case 0:
		fs.title = v
	case 1:
		fs.description = v
	}
}

func (fs formState) heading() string {
	if fs.projectID == 0 {
		return "New project"
	}
	return fmt.Sprintf("Edit project #%d", fs.projectID)
}

// startForm opens the project editor; id 0 creates a new project.
func (m Model) startForm(id int, in api.ProjectInput) (tea.Model, tea.Cmd) {
	if !m.role.CanMutate() {
		m.info("Only managers can add or edit projects")
		return m, nil
	}
	if m.active != ResourceProjects {
		m.info("Switch to projects to add one")
		return m, nil
	}
	m.form = &formState{
		projectID:   id,
		title:       in.Title,
		description: in.Description,
	}
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.input.CursorEnd()
	m.input.Focus()
	m.mode = modeForm
	m.info(m.formPrompt())
	return m, nil
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = modeList
		return m, nil
	}
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.form = nil
		m.mode = modeList
		m.input.Blur()
		m.input.SetValue("")
		m.info("Cancelled")
		return m, nil
	case "tab", "down":
		m.moveField(1)
		return m, nil
	case "shift+tab", "up":
		m.moveField(-1)
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.form.setCurrentValue(m.input.Value())
		if m.form.index >= len(formFields())-1 {
			return m.saveForm()
		}
		m.moveField(1)
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) moveField(delta int) {
	m.form.setCurrentValue(m.input.Value())
	m.form.index = wrapIndex(m.form.index+delta, len(formFields()))
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.input.CursorEnd()
	m.info(m.formPrompt())
}

func (m Model) saveForm() (tea.Model, tea.Cmd) {
	in := api.ProjectInput{
		Title:       strings.TrimSpace(m.form.title),
		Description: strings.TrimSpace(m.form.description),
	}
	if in.Title == "" {
		m.form.index = 0
		m.input.SetValue("")
		m.input.Placeholder = m.form.currentLabel()
		m.info("Title cannot be empty")
		return m, nil
	}
	id := m.form.projectID
	m.form = nil
	m.mode = modeList
	m.input.Blur()
	m.input.SetValue("")
	m.info("Saving...")
	return m, saveProjectCmd(m.ctx, m.backend, id, in)
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s (field %d of %d). Enter to advance, Esc to cancel, tab to move.",
		m.form.heading(), m.form.currentLabel(), m.form.index+1, len(formFields()))
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}
