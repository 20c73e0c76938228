package listing

// Selection holds at most one item picked for the detail view.
type Selection[T any] struct {
	item    T
	visible bool
}

func (s *Selection[T]) Show(item T) {
	s.item = item
	s.visible = true
}

func (s *Selection[T]) Hide() {
	var zero T
	s.item = zero
	s.visible = false
}

func (s Selection[T]) Visible() bool { return s.visible }

func (s Selection[T]) Current() (T, bool) {
	return s.item, s.visible
}
