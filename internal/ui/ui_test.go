package ui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"pmdash/internal/api"
	"pmdash/internal/config"
	"pmdash/internal/listing"
	"pmdash/internal/storage"
)

type listCall struct {
	resource Resource
	role     api.Role
	params   api.ListParams
}

type fakeBackend struct {
	calls     []listCall
	projects  []api.Project
	total     int
	listErr   error
	deleted   []int
	deleteRes api.MutationResult
	deleteErr error
	created   []api.ProjectInput
	updated   map[int]api.ProjectInput
}

func (f *fakeBackend) ListProjects(_ context.Context, role api.Role, p api.ListParams) (api.Page[api.Project], error) {
	f.calls = append(f.calls, listCall{resource: ResourceProjects, role: role, params: p})
	if f.listErr != nil {
		return api.Page[api.Project]{}, f.listErr
	}
	return api.Page[api.Project]{Items: f.projects, TotalRecords: f.total}, nil
}

func (f *fakeBackend) ListTasks(_ context.Context, role api.Role, p api.ListParams) (api.Page[api.Task], error) {
	f.calls = append(f.calls, listCall{resource: ResourceTasks, role: role, params: p})
	return api.Page[api.Task]{Items: []api.Task{{ID: 11, Title: "write docs", Status: "ToDo"}}, TotalRecords: 1}, nil
}

func (f *fakeBackend) CreateProject(_ context.Context, in api.ProjectInput) (api.Project, error) {
	f.created = append(f.created, in)
	return api.Project{ID: 99, Title: in.Title}, nil
}

func (f *fakeBackend) UpdateProject(_ context.Context, id int, in api.ProjectInput) (api.Project, error) {
	if f.updated == nil {
		f.updated = map[int]api.ProjectInput{}
	}
	f.updated[id] = in
	return api.Project{ID: id, Title: in.Title}, nil
}

func (f *fakeBackend) DeleteProject(_ context.Context, id int) (api.MutationResult, error) {
	f.deleted = append(f.deleted, id)
	return f.deleteRes, f.deleteErr
}

func (f *fakeBackend) DeleteTask(_ context.Context, id int) (api.MutationResult, error) {
	f.deleted = append(f.deleted, id)
	return f.deleteRes, f.deleteErr
}

func (f *fakeBackend) UserCount(context.Context) (api.UserCount, error) {
	return api.UserCount{Activated: 4, Deactivated: 1}, nil
}

func testConfig() config.Config {
	return config.Config{
		PageSize:  10,
		PageSizes: []int{5, 10, 20},
		Keys: config.Keymap{
			Quit: "q", Up: "k", Down: "j", Search: "/", NextPage: "n", PrevPage: "p",
			PageSize: "z", Detail: "enter", Delete: "d", Add: "a", Edit: "e",
			Confirm: "enter", Cancel: "esc", Switch: "tab", Reload: "g", History: "h",
		},
	}
}

func newTestModel(t *testing.T, role api.Role, b *fakeBackend, j Journal) Model {
	t.Helper()
	m := New(context.Background(), Deps{Backend: b, Journal: j, Config: testConfig(), Role: role})
	m.input.Cursor.SetMode(cursor.CursorStatic)
	return m
}

func openJournal(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// collect runs cmd and every command batched under it, returning the
// resulting messages without spinner ticks.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case spinner.TickMsg:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

// drive feeds msg to m and keeps feeding the messages its commands produce
// until none are left.
func drive(m Model, msg tea.Msg) Model {
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		updated, cmd := m.Update(next)
		m = updated.(Model)
		queue = append(queue, collect(cmd)...)
	}
	return m
}

func press(m Model, key string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func pressAndDrive(m Model, key string) Model {
	m, cmd := press(m, key)
	for _, msg := range collect(cmd) {
		m = drive(m, msg)
	}
	return m
}

func sampleProjects(n int) []api.Project {
	out := make([]api.Project, n)
	for i := range out {
		out[i] = api.Project{ID: i + 1, Title: "Project", Tasks: []api.Task{{Title: "t"}}}
	}
	return out
}

func TestStart_ManagerUsesManagerListing(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(3), total: 3}
	m := drive(newTestModel(t, api.RoleManager, b, nil), startMsg{})

	require.Len(t, b.calls, 1)
	require.Equal(t, api.RoleManager, b.calls[0].role)
	require.Equal(t, api.ListParams{Title: "", PageNumber: 1, PageSize: 10}, b.calls[0].params)
	require.Len(t, m.projects.retrieval.Items, 3)
	require.False(t, m.projects.retrieval.Loading)
	require.NotNil(t, m.users)
	require.Equal(t, 4, m.users.Activated)
	require.Contains(t, m.View(), "Project Manager Dashboard")
}

func TestStart_EmployeeListingAndNoDelete(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(2), total: 2}
	m := drive(newTestModel(t, api.RoleEmployee, b, nil), startMsg{})
	require.Equal(t, api.RoleEmployee, b.calls[0].role)

	m, cmd := press(m, "d")
	require.Nil(t, cmd)
	require.False(t, m.projects.deletion.PromptVisible())
	require.Equal(t, "Only managers can delete", m.notice.Text)
}

func TestStart_UnknownRoleSkipsRetrieval(t *testing.T) {
	b := &fakeBackend{}
	m := drive(newTestModel(t, api.RoleUnknown, b, nil), startMsg{})
	require.Empty(t, b.calls)
	require.Contains(t, m.View(), "Waiting for a role")
}

func TestCountShrinkClampsAndRefetches(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(10), total: 30}
	m := drive(newTestModel(t, api.RoleManager, b, nil), startMsg{})
	m.projects.query.SetTitleFilter("Alpha")
	require.True(t, m.projects.query.NextPage())

	b.calls = nil
	b.projects = sampleProjects(5)
	b.total = 5
	m = drive(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})

	require.Len(t, b.calls, 2)
	require.Equal(t, api.ListParams{Title: "Alpha", PageNumber: 2, PageSize: 10}, b.calls[0].params)
	require.Equal(t, api.ListParams{Title: "Alpha", PageNumber: 1, PageSize: 10}, b.calls[1].params)
	require.Equal(t, 1, m.projects.query.PageNumber)
	require.Equal(t, 1, m.projects.query.TotalPages())
}

func TestPagingKeys(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(10), total: 25}
	m := drive(newTestModel(t, api.RoleManager, b, nil), startMsg{})

	m, cmd := press(m, "p")
	require.Nil(t, cmd, "prev on first page is a no-op")

	m = pressAndDrive(m, "n")
	require.Equal(t, 2, m.projects.query.PageNumber)
	m = pressAndDrive(m, "n")
	require.Equal(t, 3, m.projects.query.PageNumber)
	_, cmd = press(m, "n")
	require.Nil(t, cmd, "next on last page is a no-op")

	m = pressAndDrive(m, "z")
	require.Equal(t, 20, m.projects.query.PageSize)
	require.Equal(t, 2, m.projects.query.PageNumber)
	last := b.calls[len(b.calls)-1]
	require.Equal(t, api.ListParams{PageNumber: 2, PageSize: 20}, last.params)
}

func TestDeleteSuccessRefreshesSameQuery(t *testing.T) {
	b := &fakeBackend{projects: []api.Project{{ID: 7, Title: "Alpha"}}, total: 1, deleteRes: api.MutationResult{Message: "Deleted successfully"}}
	j := openJournal(t)
	m := drive(newTestModel(t, api.RoleManager, b, j), startMsg{})
	before := m.projects.query.Params()

	m, cmd := press(m, "d")
	require.Nil(t, cmd)
	require.True(t, m.projects.deletion.PromptVisible())
	require.False(t, m.projects.deletion.IsDeleting())

	m, cmd = press(m, "y")
	require.True(t, m.projects.deletion.IsDeleting())
	require.True(t, m.projects.deletion.PromptVisible())
	require.Contains(t, m.View(), "Deleting")

	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	require.Equal(t, []int{7}, b.deleted)

	b.calls = nil
	updated, refresh := m.Update(msgs[0])
	m = updated.(Model)
	require.False(t, m.projects.deletion.IsDeleting())
	require.False(t, m.projects.deletion.PromptVisible())
	require.Equal(t, listing.Success("Deleted successfully"), m.notice)
	require.NotNil(t, refresh)
	require.True(t, m.projects.retrieval.Loading)

	for _, msg := range collect(refresh) {
		m = drive(m, msg)
	}
	require.Len(t, b.calls, 1)
	require.Equal(t, before, b.calls[0].params)

	entries, err := j.RecentActivity(5)
	require.NoError(t, err)
	require.Equal(t, storage.ActivityDelete, entries[0].Kind)
	require.Equal(t, 7, entries[0].EntityID)
}

func TestDeleteFailureLeavesData(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(2), total: 2, deleteErr: &api.ServerError{Status: 400, Message: "Project has tasks"}}
	m := drive(newTestModel(t, api.RoleManager, b, nil), startMsg{})
	items := m.projects.retrieval.Items

	m, _ = press(m, "d")
	m, cmd := press(m, "y")
	msgs := collect(cmd)
	require.Len(t, msgs, 1)

	b.calls = nil
	updated, refresh := m.Update(msgs[0])
	m = updated.(Model)
	require.Nil(t, refresh)
	require.Empty(t, b.calls)
	require.False(t, m.projects.deletion.PromptVisible())
	require.Equal(t, listing.NoticeError, m.notice.Kind)
	require.Equal(t, "Project has tasks", m.notice.Text)
	require.Equal(t, items, m.projects.retrieval.Items)
}

func TestDeleteCancel(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(1), total: 1}
	m := drive(newTestModel(t, api.RoleManager, b, nil), startMsg{})

	m, _ = press(m, "d")
	m, cmd := press(m, "n")
	require.Nil(t, cmd)
	require.False(t, m.projects.deletion.PromptVisible())
	require.Empty(t, b.deleted)
	require.Equal(t, 1, m.projects.query.PageNumber, "n is not read as next page while prompting")
}

func TestSearchDiscardsStaleResults(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(3), total: 30}
	m := drive(newTestModel(t, api.RoleManager, b, nil), startMsg{})
	require.True(t, m.projects.query.NextPage())

	m, _ = press(m, "/")
	require.Equal(t, modeSearch, m.mode)

	m, first := press(m, "A")
	require.Equal(t, 1, m.projects.query.PageNumber)
	m, second := press(m, "l")
	require.Equal(t, "Al", m.projects.query.Title)

	firstMsgs := collect(first)
	b.projects = sampleProjects(1)
	b.total = 1
	secondMsgs := collect(second)

	for _, msg := range secondMsgs {
		m = drive(m, msg)
	}
	for _, msg := range firstMsgs {
		m = drive(m, msg)
	}
	require.Len(t, m.projects.retrieval.Items, 1, "older response must not overwrite the newer one")
	require.Equal(t, 1, m.projects.retrieval.Total)

	m, _ = press(m, "enter")
	require.Equal(t, modeList, m.mode)
	require.Equal(t, "Al", m.projects.query.Title)
}

func TestRetrievalFailureNotice(t *testing.T) {
	b := &fakeBackend{listErr: &api.TransportError{Op: "GET /Project/manager", Err: errors.New("refused")}}
	j := openJournal(t)
	m := drive(newTestModel(t, api.RoleManager, b, j), startMsg{})

	require.False(t, m.projects.retrieval.Loading)
	require.Equal(t, listing.Notice{Kind: listing.NoticeError, Text: "Something went wrong!"}, m.notice)
	entries, err := j.RecentActivity(1)
	require.NoError(t, err)
	require.Equal(t, storage.ActivityError, entries[0].Kind)
}

func TestSwitchToTasks(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(1), total: 1}
	m := drive(newTestModel(t, api.RoleEmployee, b, nil), startMsg{})

	m = pressAndDrive(m, "tab")
	require.Equal(t, ResourceTasks, m.active)
	require.Equal(t, ResourceTasks, b.calls[len(b.calls)-1].resource)
	require.Len(t, m.tasks.retrieval.Items, 1)
	require.Contains(t, m.View(), "write docs")

	m = pressAndDrive(m, "enter")
	require.Equal(t, modeDetail, m.mode)
	task, ok := m.tasks.selection.Current()
	require.True(t, ok)
	require.Equal(t, 11, task.ID)

	m, _ = press(m, "esc")
	require.Equal(t, modeList, m.mode)
	require.False(t, m.tasks.selection.Visible())
}

func TestCreateProjectForm(t *testing.T) {
	b := &fakeBackend{projects: sampleProjects(1), total: 1}
	m := drive(newTestModel(t, api.RoleManager, b, nil), startMsg{})

	m, _ = press(m, "a")
	require.Equal(t, modeForm, m.mode)

	m, _ = press(m, "enter")
	m, cmd := press(m, "enter")
	require.Nil(t, cmd)
	require.Equal(t, "Title cannot be empty", m.notice.Text)

	m, _ = press(m, "Launch")
	m, _ = press(m, "enter")
	m, _ = press(m, "Spring")
	b.calls = nil
	m = pressAndDrive(m, "enter")

	require.Equal(t, []api.ProjectInput{{Title: "Launch", Description: "Spring"}}, b.created)
	require.Equal(t, modeList, m.mode)
	require.Equal(t, listing.Success("Project created"), m.notice)
	require.Len(t, b.calls, 1, "list is refreshed after create")
}

func TestEditProjectForm(t *testing.T) {
	b := &fakeBackend{projects: []api.Project{{ID: 4, Title: "Old", Description: "keep"}}, total: 1}
	m := drive(newTestModel(t, api.RoleManager, b, nil), startMsg{})

	m, _ = press(m, "e")
	require.Equal(t, modeForm, m.mode)
	m.input.SetValue("New")
	m, _ = press(m, "enter")
	m = pressAndDrive(m, "enter")

	require.Equal(t, api.ProjectInput{Title: "New", Description: "keep"}, b.updated[4])
	require.Equal(t, listing.Success("Project updated"), m.notice)
}

func TestWarmStartFromSnapshot(t *testing.T) {
	j := openJournal(t)
	key := storage.SnapshotKey{Resource: "projects", Role: "Manager", PageNumber: 1, PageSize: 10}
	require.NoError(t, j.SaveSnapshot(key, 1, []api.Project{{ID: 42, Title: "Cached"}}))

	b := &fakeBackend{projects: sampleProjects(2), total: 2}
	m := newTestModel(t, api.RoleManager, b, j)
	require.True(t, m.projects.cached)
	require.Equal(t, 42, m.projects.retrieval.Items[0].ID)
	require.Contains(t, m.View(), "(cached)")

	m = drive(m, startMsg{})
	require.False(t, m.projects.cached)
	require.Len(t, m.projects.retrieval.Items, 2)
}

func TestHistoryOverlay(t *testing.T) {
	j := openJournal(t)
	_, err := j.Record(storage.Activity{Kind: storage.ActivityDelete, Resource: "projects", EntityID: 3, Message: "Deleted successfully"})
	require.NoError(t, err)

	m := drive(newTestModel(t, api.RoleManager, &fakeBackend{}, j), startMsg{})
	m, _ = press(m, "h")
	require.Equal(t, modeHistory, m.mode)
	require.Contains(t, m.View(), "projects #3")

	m, _ = press(m, "esc")
	require.Equal(t, modeList, m.mode)
}

func TestNextPageSize(t *testing.T) {
	require.Equal(t, 10, nextPageSize([]int{5, 10, 20}, 5))
	require.Equal(t, 5, nextPageSize([]int{5, 10, 20}, 20))
	require.Equal(t, 20, nextPageSize([]int{5, 10, 20}, 15))
	require.Equal(t, 5, nextPageSize([]int{5, 10, 20}, 99))
	require.Equal(t, 7, nextPageSize(nil, 7))
}

func TestParseResource(t *testing.T) {
	r, err := ParseResource("Tasks")
	require.NoError(t, err)
	require.Equal(t, ResourceTasks, r)
	r, err = ParseResource("")
	require.NoError(t, err)
	require.Equal(t, ResourceProjects, r)
	_, err = ParseResource("users")
	require.Error(t, err)
}
