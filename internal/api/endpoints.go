package api

import (
	"fmt"
	"net/url"
	"strconv"
)

// Endpoints is the path table for one backend resource.
type Endpoints struct {
	ManagerList  string
	EmployeeList string
	Collection   string
}

var (
	Projects = Endpoints{
		ManagerList:  "/Project/manager",
		EmployeeList: "/Project/employee",
		Collection:   "/Project",
	}
	Tasks = Endpoints{
		ManagerList:  "/Task/manager",
		EmployeeList: "/Task",
		Collection:   "/Task",
	}
)

const UsersCount = "/Users/count"

// List returns the listing path scoped to role. Only RoleManager gets the
// manager listing.
func (e Endpoints) List(role Role) string {
	if role == RoleManager {
		return e.ManagerList
	}
	return e.EmployeeList
}

func (e Endpoints) Create() string {
	return e.Collection
}

func (e Endpoints) Get(id int) string {
	return e.item(id)
}

func (e Endpoints) Update(id int) string {
	return e.item(id)
}

func (e Endpoints) Delete(id int) string {
	return e.item(id)
}

func (e Endpoints) item(id int) string {
	return fmt.Sprintf("%s/%d", e.Collection, id)
}

// ListParams are the query parameters accepted by the listing endpoints.
type ListParams struct {
	Title      string
	PageNumber int
	PageSize   int
}

func (p ListParams) Values() url.Values {
	v := url.Values{}
	v.Set("title", p.Title)
	v.Set("pageNumber", strconv.Itoa(p.PageNumber))
	v.Set("pageSize", strconv.Itoa(p.PageSize))
	return v
}
