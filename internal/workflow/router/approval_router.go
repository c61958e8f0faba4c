package router

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/internal/workflow/service"
)

// ApprovalRouter serves the stage history, the pending queue and approval decisions.
type ApprovalRouter struct {
	as *service.ApprovalService
	ss *service.WorkflowStageService
}

func NewApprovalRouter(as *service.ApprovalService, ss *service.WorkflowStageService) *ApprovalRouter {
	return &ApprovalRouter{as: as, ss: ss}
}

// HandleGetWorkflowStages handles GET /api/workflow-stages
// Optional Query Filters: woId, stage, pending, offset, limit
func (ar *ApprovalRouter) HandleGetWorkflowStages(w http.ResponseWriter, r *http.Request) {
	var filter model.WorkflowStageFilter
	query := r.URL.Query()

	if woID := query.Get("woId"); woID != "" {
		id, err := uuid.Parse(woID)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid woId: %v", err))
			return
		}
		filter.WorkOrderID = &id
	}

	if raw := query.Get("stage"); raw != "" {
		stage, err := model.ParseStage(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.StageName = &stage
	}

	if raw := query.Get("pending"); raw != "" {
		pending, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'pending' query parameter, must be a boolean")
			return
		}
		filter.OpenOnly = pending
	}

	offset, limit, ok := pagination(w, r)
	if !ok {
		return
	}
	filter.Offset, filter.Limit = offset, limit

	result, err := ar.ss.ListWorkflowStages(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "list workflow stages", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandlePreviewRouting handles POST /api/approvals/preview
// Runs the routing aggregate and validation on a draft without writing anything.
func (ar *ApprovalRouter) HandlePreviewRouting(w http.ResponseWriter, r *http.Request) {
	var req model.RoutingPreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, service.PreviewRouting(req))
}

// HandleSubmitDecision handles POST /api/workflow-stages/{id}/decision
// Request body: ApprovalRequest. Response: ApprovalResult.
func (ar *ApprovalRouter) HandleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	stageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.ApprovalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.StageID = stageID

	result, err := ar.as.Submit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, "submit decision", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
