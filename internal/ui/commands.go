package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"pmdash/internal/api"
	"pmdash/internal/listing"
	"pmdash/internal/storage"
)

// Backend is the slice of the REST client the dashboard drives.
type Backend interface {
	ListProjects(ctx context.Context, role api.Role, p api.ListParams) (api.Page[api.Project], error)
	ListTasks(ctx context.Context, role api.Role, p api.ListParams) (api.Page[api.Task], error)
	CreateProject(ctx context.Context, in api.ProjectInput) (api.Project, error)
	UpdateProject(ctx context.Context, id int, in api.ProjectInput) (api.Project, error)
	DeleteProject(ctx context.Context, id int) (api.MutationResult, error)
	DeleteTask(ctx context.Context, id int) (api.MutationResult, error)
	UserCount(ctx context.Context) (api.UserCount, error)
}

// Journal keeps activity and page snapshots across sessions.
type Journal interface {
	Record(a storage.Activity) (storage.Activity, error)
	RecentActivity(limit int) ([]storage.Activity, error)
	SaveSnapshot(key storage.SnapshotKey, total int, items any) error
	LoadSnapshot(key storage.SnapshotKey, items any) (storage.Snapshot, bool, error)
}

type startMsg struct{}

type loadedMsg[T any] struct {
	res listing.Result[T]
}

type deletedMsg struct {
	resource Resource
	id       int
	message  string
	err      error
}

type savedMsg struct {
	kind    storage.ActivityKind
	project api.Project
	err     error
}

type userCountMsg struct {
	count api.UserCount
	err   error
}

func fetchCmd[T any](parent context.Context, v *listView[T], l listing.Lister[T], role api.Role) tea.Cmd {
	seq, ctx := v.retrieval.Begin(parent)
	q := v.query
	return func() tea.Msg {
		return loadedMsg[T]{res: listing.Fetch(ctx, seq, l, role, q)}
	}
}

func deleteCmd(ctx context.Context, b Backend, r Resource, id int) tea.Cmd {
	return func() tea.Msg {
		var res api.MutationResult
		var err error
		if r == ResourceTasks {
			res, err = b.DeleteTask(ctx, id)
		} else {
			res, err = b.DeleteProject(ctx, id)
		}
		return deletedMsg{resource: r, id: id, message: res.Message, err: err}
	}
}

func saveProjectCmd(ctx context.Context, b Backend, id int, in api.ProjectInput) tea.Cmd {
	return func() tea.Msg {
		if id == 0 {
			p, err := b.CreateProject(ctx, in)
			return savedMsg{kind: storage.ActivityCreate, project: p, err: err}
		}
		p, err := b.UpdateProject(ctx, id, in)
		if p.ID == 0 {
			p.ID = id
		}
		return savedMsg{kind: storage.ActivityUpdate, project: p, err: err}
	}
}

func userCountCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		uc, err := b.UserCount(ctx)
		return userCountMsg{count: uc, err: err}
	}
}
