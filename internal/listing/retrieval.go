package listing

import (
	"context"
	"errors"

	"pmdash/internal/api"
)

// Lister fetches one page of T for a role.
type Lister[T any] interface {
	List(ctx context.Context, role api.Role, p api.ListParams) (api.Page[T], error)
}

type ListerFunc[T any] func(ctx context.Context, role api.Role, p api.ListParams) (api.Page[T], error)

func (f ListerFunc[T]) List(ctx context.Context, role api.Role, p api.ListParams) (api.Page[T], error) {
	return f(ctx, role, p)
}

// Result is the outcome of one retrieval, tagged with the sequence number it
// was issued under.
type Result[T any] struct {
	Seq    uint64
	Params api.ListParams
	Page   api.Page[T]
	Err    error
}

// Retrieval holds the last applied page for a list view. Only the response
// to the most recently issued request is ever applied.
type Retrieval[T any] struct {
	Items   []T
	Total   int
	Loading bool
	Err     error

	seq    uint64
	cancel context.CancelFunc
}

// Begin issues a new sequence number, cancels whatever request was still in
// flight and marks the view as loading.
func (r *Retrieval[T]) Begin(parent context.Context) (uint64, context.Context) {
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.seq++
	r.Loading = true
	return r.seq, ctx
}

// Seq is the sequence number of the latest issued request.
func (r *Retrieval[T]) Seq() uint64 {
	return r.seq
}

// Apply stores res if it answers the latest request. Stale and canceled
// results are dropped. On failure the previous items stay in place.
func (r *Retrieval[T]) Apply(res Result[T]) bool {
	if res.Seq != r.seq {
		return false
	}
	r.Loading = false
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if errors.Is(res.Err, context.Canceled) {
		return false
	}
	if res.Err != nil {
		r.Err = res.Err
		return true
	}
	r.Items = res.Page.Items
	r.Total = res.Page.TotalRecords
	r.Err = nil
	return true
}

// Stop cancels the in-flight request, if any.
func (r *Retrieval[T]) Stop() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.Loading = false
}

// Fetch runs one retrieval for q. Role picks the listing endpoint inside l.
func Fetch[T any](ctx context.Context, seq uint64, l Lister[T], role api.Role, q Query) Result[T] {
	p := q.Params()
	page, err := l.List(ctx, role, p)
	return Result[T]{Seq: seq, Params: p, Page: page, Err: err}
}
