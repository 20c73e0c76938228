package listing

import "errors"

type DeletePhase int

const (
	DeleteIdle DeletePhase = iota
	DeletePending
	DeleteRunning
)

func (p DeletePhase) String() string {
	switch p {
	case DeletePending:
		return "pending"
	case DeleteRunning:
		return "deleting"
	default:
		return "idle"
	}
}

var (
	ErrDeleteBusy      = errors.New("a delete is already running")
	ErrNothingSelected = errors.New("nothing selected for delete")
)

// Deletion is the two-phase delete flow: an item is marked, then confirmed.
// Idle -> Pending (Select) -> Running (Confirm) -> Idle (Finish), and
// Pending -> Idle on Cancel.
type Deletion struct {
	phase DeletePhase
	id    int
	name  string
}

func (d Deletion) Phase() DeletePhase { return d.phase }

// PromptVisible reports whether the confirmation prompt is on screen.
func (d Deletion) PromptVisible() bool { return d.phase != DeleteIdle }

func (d Deletion) IsDeleting() bool { return d.phase == DeleteRunning }

func (d Deletion) Target() (id int, name string) { return d.id, d.name }

// Select marks an item for delete, replacing any earlier pending mark.
func (d *Deletion) Select(id int, name string) error {
	if d.phase == DeleteRunning {
		return ErrDeleteBusy
	}
	d.phase = DeletePending
	d.id = id
	d.name = name
	return nil
}

func (d *Deletion) Cancel() bool {
	if d.phase != DeletePending {
		return false
	}
	*d = Deletion{}
	return true
}

// Confirm moves a pending mark into the running state and returns the id to
// delete.
func (d *Deletion) Confirm() (int, error) {
	switch d.phase {
	case DeleteRunning:
		return 0, ErrDeleteBusy
	case DeleteIdle:
		return 0, ErrNothingSelected
	}
	d.phase = DeleteRunning
	return d.id, nil
}

// Finish closes the flow after the delete call returned, whatever the
// outcome, and builds the notice to show.
func (d *Deletion) Finish(message string, err error) Notice {
	*d = Deletion{}
	if err != nil {
		return Failure(err)
	}
	if message == "" {
		message = msgDeleted
	}
	return Success(message)
}
