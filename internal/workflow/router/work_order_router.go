package router

import (
	"net/http"

	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/internal/workflow/service"
)

// WorkOrderRouter serves work order intake and the account and user directories.
type WorkOrderRouter struct {
	wos *service.WorkOrderService
	ds  *service.DirectoryService
}

func NewWorkOrderRouter(wos *service.WorkOrderService, ds *service.DirectoryService) *WorkOrderRouter {
	return &WorkOrderRouter{wos: wos, ds: ds}
}

// HandleCreateWorkOrder handles POST /api/workorders
// Request body: CreateWorkOrderDTO
func (wr *WorkOrderRouter) HandleCreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWorkOrderDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	workOrder, err := wr.wos.CreateWorkOrder(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, "create work order", err)
		return
	}
	writeJSON(w, http.StatusCreated, workOrder)
}

// HandleGetWorkOrders handles GET /api/workorders?offset={offset}&limit={limit}
func (wr *WorkOrderRouter) HandleGetWorkOrders(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pagination(w, r)
	if !ok {
		return
	}

	result, err := wr.wos.ListWorkOrders(r.Context(), model.ListFilter{Offset: offset, Limit: limit})
	if err != nil {
		writeServiceError(w, r, "list work orders", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGetWorkOrder handles GET /api/workorders/{id}
func (wr *WorkOrderRouter) HandleGetWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	workOrder, err := wr.wos.GetWorkOrderByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get work order", err)
		return
	}
	writeJSON(w, http.StatusOK, workOrder)
}

// HandleCreateAccount handles POST /api/accounts
func (wr *WorkOrderRouter) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var account model.Account
	if !decodeJSON(w, r, &account) {
		return
	}

	created, err := wr.ds.CreateAccount(r.Context(), &account)
	if err != nil {
		writeServiceError(w, r, "create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleGetAccount handles GET /api/accounts/{id}
func (wr *WorkOrderRouter) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	account, err := wr.ds.GetAccountByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleGetUsers handles GET /api/users?department={department}
// The list feeds the assignee dropdown.
func (wr *WorkOrderRouter) HandleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := wr.ds.ListUsers(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		writeServiceError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleCreateUser handles POST /api/users
func (wr *WorkOrderRouter) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var user model.User
	if !decodeJSON(w, r, &user) {
		return
	}

	created, err := wr.ds.CreateUser(r.Context(), &user)
	if err != nil {
		writeServiceError(w, r, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
