package router

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/internal/workflow/service"
)

// StageRecordRouter serves the records created as a work order moves through the stages.
type StageRecordRouter struct {
	rs *service.StageRecordService
}

func NewStageRecordRouter(rs *service.StageRecordService) *StageRecordRouter {
	return &StageRecordRouter{rs: rs}
}

// getHandler builds a GET /{collection}/{id} handler around a lookup.
func getHandler[T any](action string, get func(context.Context, uuid.UUID) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		record, err := get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, action, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// HandleGetSalesLead handles GET /api/salesleads/{id}
func (sr *StageRecordRouter) HandleGetSalesLead(w http.ResponseWriter, r *http.Request) {
	getHandler("get sales lead", sr.rs.GetSalesLeadByID)(w, r)
}

// HandleGetTechnicalRecommendation handles GET /api/technicals/{id}
func (sr *StageRecordRouter) HandleGetTechnicalRecommendation(w http.ResponseWriter, r *http.Request) {
	getHandler("get technical recommendation", sr.rs.GetTechnicalRecommendationByID)(w, r)
}

// HandleGetRFQ handles GET /api/rfqs/{id}
func (sr *StageRecordRouter) HandleGetRFQ(w http.ResponseWriter, r *http.Request) {
	getHandler("get RFQ", sr.rs.GetRFQByID)(w, r)
}

// HandleGetQuotation handles GET /api/quotations/{id}
func (sr *StageRecordRouter) HandleGetQuotation(w http.ResponseWriter, r *http.Request) {
	getHandler("get quotation", sr.rs.GetQuotationByID)(w, r)
}

// HandleCreateTechnicalRecommendation handles POST /api/technicals
// Request body: CreateTechnicalRecommendationDTO
func (sr *StageRecordRouter) HandleCreateTechnicalRecommendation(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTechnicalRecommendationDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	tr, err := sr.rs.CreateTechnicalRecommendation(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, "create technical recommendation", err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

// HandleReplaceProducts handles PUT /api/technicals/{id}/products
// Request body: array of Product
func (sr *StageRecordRouter) HandleReplaceProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var products []model.Product
	if !decodeJSON(w, r, &products) {
		return
	}

	tr, err := sr.rs.ReplaceProducts(r.Context(), id, products)
	if err != nil {
		writeServiceError(w, r, "replace products", err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// HandleUpsertItemMappings handles PUT /api/technicals/{id}/mappings
// Request body: UpsertItemMappingsDTO. Response: the merged productId -> item map.
func (sr *StageRecordRouter) HandleUpsertItemMappings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.UpsertItemMappingsDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	mappings, err := sr.rs.UpsertItemMappings(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, "store item mappings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}
