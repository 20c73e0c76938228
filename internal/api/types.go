package api

import (
	"strings"
	"time"
)

type Project struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreationDate Timestamp `json:"creationDate"`
	Tasks        []Task    `json:"task"`
}

// TaskTitles lists the titles of the project's tasks in order.
func (p Project) TaskTitles() []string {
	titles := make([]string, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		titles = append(titles, t.Title)
	}
	return titles
}

type Task struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreationDate Timestamp `json:"creationDate"`
	Project      *TaskRef  `json:"project,omitempty"`
	Employee     *UserRef  `json:"employee,omitempty"`
}

type TaskRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type UserRef struct {
	ID       int    `json:"id"`
	UserName string `json:"userName"`
}

// Page is one slice of a listing plus the total used for pagination.
type Page[T any] struct {
	Items        []T `json:"data"`
	TotalRecords int `json:"totalNumberOfRecords"`
	PageNumber   int `json:"pageNumber,omitempty"`
	PageSize     int `json:"pageSize,omitempty"`
	TotalPages   int `json:"totalNumberOfPages,omitempty"`
}

type UserCount struct {
	Activated   int `json:"activatedEmployeeCount"`
	Deactivated int `json:"deactivatedEmployeeCount"`
}

// ProjectInput is the body of create and update requests.
type ProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MutationResult is the optional acknowledgement returned by mutating calls.
type MutationResult struct {
	Message string `json:"message,omitempty"`
}

// Timestamp accepts RFC 3339 values with or without a zone suffix.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
