package ui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"pmdash/internal/api"
	"pmdash/internal/config"
	"pmdash/internal/listing"
	"pmdash/internal/storage"
)

type Resource int

const (
	ResourceProjects Resource = iota
	ResourceTasks
)

func ParseResource(name string) (Resource, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "projects", "project":
		return ResourceProjects, nil
	case "tasks", "task":
		return ResourceTasks, nil
	default:
		return ResourceProjects, fmt.Errorf("unknown resource %q", name)
	}
}

func (r Resource) String() string {
	if r == ResourceTasks {
		return "tasks"
	}
	return "projects"
}

type mode int

const (
	modeList mode = iota
	modeSearch
	modeForm
	modeDetail
	modeHistory
)

const historyLimit = 15

type listView[T any] struct {
	query     listing.Query
	retrieval listing.Retrieval[T]
	deletion  listing.Deletion
	selection listing.Selection[T]
	cursor    int
	cached    bool
}

func newListView[T any](pageSize int) listView[T] {
	return listView[T]{query: listing.NewQuery(pageSize)}
}

type Deps struct {
	Backend  Backend
	Journal  Journal
	Config   config.Config
	Role     api.Role
	Resource Resource
	Logger   *slog.Logger
}

type Model struct {
	ctx      context.Context
	backend  Backend
	journal  Journal
	logger   *slog.Logger
	cfg      config.Config
	role     api.Role
	active   Resource
	projects listView[api.Project]
	tasks    listView[api.Task]
	mode     mode
	input    textinput.Model
	form     *formState
	spinner  spinner.Model
	users    *api.UserCount
	history  []storage.Activity
	notice   listing.Notice
	width    int
}

func New(ctx context.Context, d Deps) Model {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		ctx:      ctx,
		backend:  d.Backend,
		journal:  d.Journal,
		logger:   logger,
		cfg:      d.Config,
		role:     d.Role,
		active:   d.Resource,
		projects: newListView[api.Project](d.Config.PageSize),
		tasks:    newListView[api.Task](d.Config.PageSize),
		mode:     modeList,
		input:    ti,
		spinner:  sp,
	}
	if m.role == api.RoleUnknown {
		m.info("No role configured: set role in the config file or pass --role.")
	} else {
		m.info(fmt.Sprintf("Signed in as %s", m.role))
		m.warmStart(m.active)
	}
	return m
}

func Run(ctx context.Context, d Deps) error {
	m := New(ctx, d)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return startMsg{} },
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		if m.backend == nil {
			return m, nil
		}
		return m, tea.Batch(m.reload(m.active), userCountCmd(m.ctx, m.backend))
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.deletion(m.active).PromptVisible() {
			return m.updateDeleteConfirm(msg.String())
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearchMode(msg)
		case modeForm:
			return m.updateFormMode(msg.String(), msg)
		case modeDetail, modeHistory:
			return m.updateOverlay(msg.String())
		}
		return m.updateListMode(msg.String())
	case loadedMsg[api.Project]:
		return m, handleLoaded(&m, ResourceProjects, &m.projects, msg.res)
	case loadedMsg[api.Task]:
		return m, handleLoaded(&m, ResourceTasks, &m.tasks, msg.res)
	case deletedMsg:
		return m.finishDelete(msg)
	case savedMsg:
		return m.finishSave(msg)
	case userCountMsg:
		if msg.err != nil {
			m.logger.Warn("user count failed", "error", msg.err)
			return m, nil
		}
		uc := msg.count
		m.users = &uc
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Quit:
		return m.quit()
	case m.cfg.Keys.Down, "down":
		m.moveCursor(1)
	case m.cfg.Keys.Up, "up":
		m.moveCursor(-1)
	case m.cfg.Keys.Switch:
		if m.active == ResourceProjects {
			m.active = ResourceTasks
		} else {
			m.active = ResourceProjects
		}
		m.info("Showing " + m.active.String())
		if m.retrievalSeq(m.active) == 0 {
			m.warmStart(m.active)
			return m, m.reload(m.active)
		}
	case m.cfg.Keys.Reload:
		return m, m.reload(m.active)
	case m.cfg.Keys.Search:
		m.mode = modeSearch
		m.input.Placeholder = "Search by title"
		m.input.SetValue(m.query(m.active).Title)
		m.input.CursorEnd()
		m.input.Focus()
		m.info("Type to filter by title, enter or esc to finish")
	case m.cfg.Keys.NextPage, "right":
		if m.query(m.active).NextPage() {
			return m, m.reload(m.active)
		}
	case m.cfg.Keys.PrevPage, "left":
		if m.query(m.active).PrevPage() {
			return m, m.reload(m.active)
		}
	case m.cfg.Keys.PageSize:
		q := m.query(m.active)
		if q.SetPageSize(nextPageSize(m.cfg.PageSizes, q.PageSize)) {
			return m, m.reload(m.active)
		}
	case m.cfg.Keys.Detail:
		if !m.showDetail() {
			m.info("Nothing to show")
		}
	case m.cfg.Keys.Delete:
		return m.selectForDelete()
	case m.cfg.Keys.Add:
		return m.startForm(0, api.ProjectInput{})
	case m.cfg.Keys.Edit:
		if m.active != ResourceProjects || len(m.projects.retrieval.Items) == 0 {
			m.info("Nothing to edit")
			return m, nil
		}
		p := m.projects.retrieval.Items[m.projects.cursor]
		return m.startForm(p.ID, api.ProjectInput{Title: p.Title, Description: p.Description})
	case m.cfg.Keys.History:
		m.openHistory()
	}
	return m, nil
}

func (m Model) updateSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.cfg.Keys.Confirm, m.cfg.Keys.Cancel, "enter", "esc":
		m.mode = modeList
		m.input.Blur()
		m.input.SetValue("")
		m.info(searchSummary(m.query(m.active).Title))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.query(m.active).SetTitleFilter(strings.TrimSpace(m.input.Value())) {
		m.setCursor(0)
		return m, tea.Batch(cmd, m.reload(m.active))
	}
	return m, cmd
}

func (m Model) updateOverlay(key string) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, m.cfg.Keys.Confirm, m.cfg.Keys.Quit, "esc", "enter":
		if m.mode == modeDetail {
			m.hideDetail()
		}
		m.history = nil
		m.mode = modeList
	}
	return m, nil
}

func (m Model) selectForDelete() (tea.Model, tea.Cmd) {
	if !m.role.CanMutate() {
		m.info("Only managers can delete")
		return m, nil
	}
	id, name, ok := m.current()
	if !ok {
		return m, nil
	}
	if err := m.deletion(m.active).Select(id, name); err != nil {
		m.notify(listing.Failure(err))
		return m, nil
	}
	m.info(fmt.Sprintf("Are you sure that you want to delete %s %q? y/n", singular(m.active), name))
	return m, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	d := m.deletion(m.active)
	if d.IsDeleting() {
		return m, nil
	}
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		d.Cancel()
		m.info("Delete cancelled")
		return m, nil
	case "y", "Y":
		id, err := d.Confirm()
		if err != nil {
			m.info(err.Error())
			return m, nil
		}
		m.info("Deleting...")
		return m, deleteCmd(m.ctx, m.backend, m.active, id)
	default:
		return m, nil
	}
}

// finishDelete runs after the delete call returned: notice, prompt cleanup,
// then a refresh of the same query when the delete went through.
func (m Model) finishDelete(msg deletedMsg) (tea.Model, tea.Cmd) {
	n := m.deletion(msg.resource).Finish(msg.message, msg.err)
	m.notify(n)
	kind := storage.ActivityDelete
	if msg.err != nil {
		kind = storage.ActivityError
		m.logger.Warn("delete failed", "resource", msg.resource.String(), "id", msg.id, "error", msg.err)
	}
	m.record(storage.Activity{Kind: kind, Resource: msg.resource.String(), EntityID: msg.id, Message: n.Text})
	if msg.err != nil {
		return m, nil
	}
	return m, m.reload(msg.resource)
}

func (m Model) finishSave(msg savedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		n := listing.Failure(msg.err)
		m.notify(n)
		m.logger.Warn("save failed", "kind", string(msg.kind), "error", msg.err)
		m.record(storage.Activity{Kind: storage.ActivityError, Resource: ResourceProjects.String(), EntityID: msg.project.ID, Message: n.Text})
		return m, nil
	}
	text := "Project updated"
	if msg.kind == storage.ActivityCreate {
		text = "Project created"
	}
	m.notify(listing.Success(text))
	m.record(storage.Activity{Kind: msg.kind, Resource: ResourceProjects.String(), EntityID: msg.project.ID, Message: text})
	return m, m.reload(ResourceProjects)
}

func handleLoaded[T any](m *Model, r Resource, v *listView[T], res listing.Result[T]) tea.Cmd {
	if !v.retrieval.Apply(res) {
		return nil
	}
	if res.Err != nil {
		n := listing.Failure(res.Err)
		m.notify(n)
		m.logger.Warn("retrieval failed", "resource", r.String(), "params", fmt.Sprintf("%+v", res.Params), "error", res.Err)
		m.record(storage.Activity{Kind: storage.ActivityError, Resource: r.String(), Message: n.Text})
		return nil
	}
	v.cached = false
	v.cursor = clampCursor(v.cursor, len(v.retrieval.Items))
	if m.journal != nil {
		if err := m.journal.SaveSnapshot(m.snapshotKey(r, res.Params), res.Page.TotalRecords, res.Page.Items); err != nil {
			m.logger.Warn("snapshot save failed", "error", err)
		}
	}
	if v.query.SetTotalRecordCount(v.retrieval.Total) {
		return m.reload(r)
	}
	return nil
}

// reload issues a retrieval for r with its current query. It does nothing
// until a role is known.
func (m *Model) reload(r Resource) tea.Cmd {
	if m.role == api.RoleUnknown || m.backend == nil {
		return nil
	}
	if r == ResourceTasks {
		return fetchCmd[api.Task](m.ctx, &m.tasks, listing.ListerFunc[api.Task](m.backend.ListTasks), m.role)
	}
	return fetchCmd[api.Project](m.ctx, &m.projects, listing.ListerFunc[api.Project](m.backend.ListProjects), m.role)
}

// warmStart shows the last page stored for the current query until the live
// retrieval answers.
func (m *Model) warmStart(r Resource) {
	if m.journal == nil {
		return
	}
	switch r {
	case ResourceTasks:
		loadSnapshot(m, r, &m.tasks)
	default:
		loadSnapshot(m, r, &m.projects)
	}
}

func loadSnapshot[T any](m *Model, r Resource, v *listView[T]) {
	var items []T
	snap, ok, err := m.journal.LoadSnapshot(m.snapshotKey(r, v.query.Params()), &items)
	if err != nil {
		m.logger.Warn("snapshot load failed", "error", err)
		return
	}
	if !ok {
		return
	}
	v.retrieval.Items = items
	v.retrieval.Total = snap.Total
	v.query.SetTotalRecordCount(snap.Total)
	v.cached = true
}

func (m *Model) snapshotKey(r Resource, p api.ListParams) storage.SnapshotKey {
	return storage.SnapshotKey{
		Resource:   r.String(),
		Role:       m.role.String(),
		Title:      p.Title,
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
	}
}

func (m *Model) openHistory() {
	if m.journal == nil {
		m.info("History unavailable")
		return
	}
	entries, err := m.journal.RecentActivity(historyLimit)
	if err != nil {
		m.notify(listing.Notice{Kind: listing.NoticeError, Text: fmt.Sprintf("history failed: %v", err)})
		return
	}
	m.history = entries
	m.mode = modeHistory
}

func (m *Model) record(a storage.Activity) {
	if m.journal == nil {
		return
	}
	if _, err := m.journal.Record(a); err != nil {
		m.logger.Warn("journal write failed", "error", err)
	}
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.projects.retrieval.Stop()
	m.tasks.retrieval.Stop()
	return *m, tea.Quit
}

func (m *Model) notify(n listing.Notice) {
	m.notice = n
}

func (m *Model) info(text string) {
	m.notice = listing.Notice{Kind: listing.NoticeNone, Text: text}
}

func (m *Model) query(r Resource) *listing.Query {
	if r == ResourceTasks {
		return &m.tasks.query
	}
	return &m.projects.query
}

func (m *Model) deletion(r Resource) *listing.Deletion {
	if r == ResourceTasks {
		return &m.tasks.deletion
	}
	return &m.projects.deletion
}

func (m *Model) retrievalSeq(r Resource) uint64 {
	if r == ResourceTasks {
		return m.tasks.retrieval.Seq()
	}
	return m.projects.retrieval.Seq()
}

func (m *Model) loading(r Resource) bool {
	if r == ResourceTasks {
		return m.tasks.retrieval.Loading
	}
	return m.projects.retrieval.Loading
}

// current returns the row under the cursor in the active view.
func (m *Model) current() (int, string, bool) {
	if m.active == ResourceTasks {
		if len(m.tasks.retrieval.Items) == 0 {
			return 0, "", false
		}
		t := m.tasks.retrieval.Items[m.tasks.cursor]
		return t.ID, t.Title, true
	}
	if len(m.projects.retrieval.Items) == 0 {
		return 0, "", false
	}
	p := m.projects.retrieval.Items[m.projects.cursor]
	return p.ID, p.Title, true
}

func (m *Model) moveCursor(delta int) {
	if m.active == ResourceTasks {
		m.tasks.cursor = clampCursor(m.tasks.cursor+delta, len(m.tasks.retrieval.Items))
		return
	}
	m.projects.cursor = clampCursor(m.projects.cursor+delta, len(m.projects.retrieval.Items))
}

func (m *Model) setCursor(i int) {
	if m.active == ResourceTasks {
		m.tasks.cursor = clampCursor(i, len(m.tasks.retrieval.Items))
		return
	}
	m.projects.cursor = clampCursor(i, len(m.projects.retrieval.Items))
}

func (m *Model) showDetail() bool {
	if m.active == ResourceTasks {
		if len(m.tasks.retrieval.Items) == 0 {
			return false
		}
		m.tasks.selection.Show(m.tasks.retrieval.Items[m.tasks.cursor])
	} else {
		if len(m.projects.retrieval.Items) == 0 {
			return false
		}
		m.projects.selection.Show(m.projects.retrieval.Items[m.projects.cursor])
	}
	m.mode = modeDetail
	return true
}

func (m *Model) hideDetail() {
	m.projects.selection.Hide()
	m.tasks.selection.Hide()
}

func nextPageSize(choices []int, current int) int {
	if len(choices) == 0 {
		return current
	}
	for i, c := range choices {
		if c == current {
			return choices[(i+1)%len(choices)]
		}
	}
	for _, c := range choices {
		if c > current {
			return c
		}
	}
	return choices[0]
}

func searchSummary(title string) string {
	if title == "" {
		return "Showing all records"
	}
	return fmt.Sprintf("Filtered by %q", title)
}

func singular(r Resource) string {
	if r == ResourceTasks {
		return "task"
	}
	return "project"
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
