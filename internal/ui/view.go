package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pmdash/internal/api"
	"pmdash/internal/config"
	"pmdash/internal/listing"
)

const dateLayout = "02/01/2006, 03:04 pm"

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Project Manager Dashboard"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(m.role.String()))
	b.WriteString("\n")
	b.WriteString(m.renderUserStats())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.mode {
	case modeDetail:
		b.WriteString(dialogStyle.Render(m.renderDetail()))
	case modeHistory:
		b.WriteString(dialogStyle.Render(m.renderHistory()))
	default:
		b.WriteString(m.renderList())
		b.WriteString("\n")
		b.WriteString(m.renderPager())
	}

	if m.mode == modeSearch || m.mode == modeForm {
		b.WriteString("\n\n")
		if m.form != nil {
			b.WriteString(m.form.heading() + " • " + m.form.currentLabel() + "\n")
		}
		b.WriteString(m.input.View())
	}

	if d := m.deletion(m.active); d.PromptVisible() {
		_, name := d.Target()
		body := fmt.Sprintf("Delete %s %q?\n\n", singular(m.active), name)
		if d.IsDeleting() {
			body += m.spinner.View() + " Deleting..."
		} else {
			body += "y confirm • n cancel"
		}
		b.WriteString("\n\n")
		b.WriteString(dialogStyle.Render(body))
	}

	b.WriteString("\n\n")
	b.WriteString(renderNotice(m.notice))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(renderHelp(m.cfg.Keys, m.role)))
	return b.String()
}

func (m Model) renderUserStats() string {
	active, inactive := 0, 0
	if m.users != nil {
		active, inactive = m.users.Activated, m.users.Deactivated
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		statCardStyle.Render(fmt.Sprintf("Active users\n%d", active)),
		statCardStyle.Render(fmt.Sprintf("Inactive users\n%d", inactive)),
	)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, 2)
	for _, r := range []Resource{ResourceProjects, ResourceTasks} {
		label := strings.ToUpper(r.String()[:1]) + r.String()[1:]
		if r == m.active {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderList() string {
	if m.role == api.RoleUnknown {
		return mutedStyle.Render("Waiting for a role.")
	}
	var rows [][]string
	var header []string
	var cursor int
	var cached bool
	if m.active == ResourceTasks {
		header = []string{"#", "Title", "Status", "Project", "Employee", "Creation Date"}
		for _, t := range m.tasks.retrieval.Items {
			rows = append(rows, taskRow(t))
		}
		cursor, cached = m.tasks.cursor, m.tasks.cached
	} else {
		header = []string{"#", "Title", "Description", "Creation Date", "Tasks"}
		for _, p := range m.projects.retrieval.Items {
			rows = append(rows, projectRow(p))
		}
		cursor, cached = m.projects.cursor, m.projects.cached
	}

	if m.loading(m.active) && len(rows) == 0 {
		return m.spinner.View() + " Loading..."
	}
	if len(rows) == 0 {
		return mutedStyle.Render("No data")
	}

	widths := columnWidths(header, rows)
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(headerStyle.Render(formatRow(header, widths)))
	b.WriteString("\n")
	for i, row := range rows {
		line := formatRow(row, widths)
		if i == cursor && m.mode == modeList {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if cached {
		b.WriteString(mutedStyle.Render("(cached)"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderPager() string {
	q := m.query(m.active)
	pages := q.TotalPages()
	if pages < 1 {
		pages = 1
	}
	line := fmt.Sprintf("Page %d of %d • %d per page • %d %s", q.PageNumber, pages, q.PageSize, q.TotalRecords, m.active.String())
	if q.Title != "" {
		line += fmt.Sprintf(" • title: %q", q.Title)
	}
	if m.loading(m.active) {
		line += " " + m.spinner.View()
	}
	return line
}

func (m Model) renderDetail() string {
	var b strings.Builder
	if m.active == ResourceTasks {
		t, ok := m.tasks.selection.Current()
		if !ok {
			return "No task selected"
		}
		b.WriteString(fmt.Sprintf("Task #%d\n\n", t.ID))
		b.WriteString(fmt.Sprintf("Title       : %s\n", t.Title))
		b.WriteString(fmt.Sprintf("Description : %s\n", emptyPlaceholder(t.Description)))
		b.WriteString(fmt.Sprintf("Status      : %s\n", emptyPlaceholder(t.Status)))
		b.WriteString(fmt.Sprintf("Project     : %s\n", emptyPlaceholder(taskProject(t))))
		b.WriteString(fmt.Sprintf("Employee    : %s\n", emptyPlaceholder(taskEmployee(t))))
		b.WriteString(fmt.Sprintf("Created     : %s", formatDate(t.CreationDate)))
		return b.String()
	}
	p, ok := m.projects.selection.Current()
	if !ok {
		return "No project selected"
	}
	b.WriteString(fmt.Sprintf("Project #%d\n\n", p.ID))
	b.WriteString(fmt.Sprintf("Title       : %s\n", p.Title))
	b.WriteString(fmt.Sprintf("Description : %s\n", emptyPlaceholder(p.Description)))
	b.WriteString(fmt.Sprintf("Created     : %s\n", formatDate(p.CreationDate)))
	b.WriteString(fmt.Sprintf("Tasks       : %s", emptyPlaceholder(strings.Join(p.TaskTitles(), ", "))))
	return b.String()
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No activity yet"
	}
	var b strings.Builder
	b.WriteString("Recent activity\n\n")
	for _, a := range m.history {
		target := a.Resource
		if a.EntityID != 0 {
			target += " #" + strconv.Itoa(a.EntityID)
		}
		b.WriteString(fmt.Sprintf("%s  %-6s  %-14s  %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04"), a.Kind, target, a.Message))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderNotice(n listing.Notice) string {
	switch n.Kind {
	case listing.NoticeSuccess:
		return successStyle.Render(n.Text)
	case listing.NoticeError:
		return errorStyle.Render(n.Text)
	default:
		return n.Text
	}
}

func renderHelp(k config.Keymap, role api.Role) string {
	help := fmt.Sprintf("%s/%s move • %s search • %s/%s page • %s page size • %s view • %s switch • %s reload • %s history",
		k.Up, k.Down, k.Search, k.PrevPage, k.NextPage, k.PageSize, k.Detail, k.Switch, k.Reload, k.History)
	if role.CanMutate() {
		help += fmt.Sprintf(" • %s add • %s edit • %s delete", k.Add, k.Edit, k.Delete)
	}
	return help + fmt.Sprintf(" • %s quit", k.Quit)
}

func projectRow(p api.Project) []string {
	return []string{
		strconv.Itoa(p.ID),
		truncate(p.Title, 30),
		truncate(p.Description, 40),
		formatDate(p.CreationDate),
		truncate(strings.Join(p.TaskTitles(), ", "), 40),
	}
}

func taskRow(t api.Task) []string {
	return []string{
		strconv.Itoa(t.ID),
		truncate(t.Title, 30),
		t.Status,
		truncate(taskProject(t), 24),
		truncate(taskEmployee(t), 20),
		formatDate(t.CreationDate),
	}
}

func taskProject(t api.Task) string {
	if t.Project == nil {
		return ""
	}
	return t.Project.Title
}

func taskEmployee(t api.Task) string {
	if t.Employee == nil {
		return ""
	}
	return t.Employee.UserName
}

func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
	}
	return strings.Join(parts, "  ")
}

func formatDate(t api.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateLayout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}
