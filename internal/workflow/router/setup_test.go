package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/salesops/workflow/internal/database"
	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/internal/workflow/service"
)

type testServer struct {
	mux        *http.ServeMux
	workOrders *service.WorkOrderService
	stages     *service.WorkflowStageService
	records    *service.StageRecordService
}

func setupTestServer(t *testing.T) *testServer {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	stages := service.NewWorkflowStageService(db)
	workOrders := service.NewWorkOrderService(db, stages)
	directory := service.NewDirectoryService(db)
	records := service.NewStageRecordService(db, stages, nil)
	approvals := service.NewApprovalService(db, stages, records, workOrders, directory, nil)

	wor := NewWorkOrderRouter(workOrders, directory)
	srr := NewStageRecordRouter(records)
	ar := NewApprovalRouter(approvals, stages)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/workorders", wor.HandleCreateWorkOrder)
	mux.HandleFunc("GET /api/workorders", wor.HandleGetWorkOrders)
	mux.HandleFunc("GET /api/workorders/{id}", wor.HandleGetWorkOrder)
	mux.HandleFunc("POST /api/accounts", wor.HandleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", wor.HandleGetAccount)
	mux.HandleFunc("GET /api/users", wor.HandleGetUsers)
	mux.HandleFunc("POST /api/users", wor.HandleCreateUser)
	mux.HandleFunc("POST /api/technicals", srr.HandleCreateTechnicalRecommendation)
	mux.HandleFunc("GET /api/technicals/{id}", srr.HandleGetTechnicalRecommendation)
	mux.HandleFunc("PUT /api/technicals/{id}/products", srr.HandleReplaceProducts)
	mux.HandleFunc("PUT /api/technicals/{id}/mappings", srr.HandleUpsertItemMappings)
	mux.HandleFunc("GET /api/rfqs/{id}", srr.HandleGetRFQ)
	mux.HandleFunc("GET /api/workflow-stages", ar.HandleGetWorkflowStages)
	mux.HandleFunc("POST /api/workflow-stages/{id}/decision", ar.HandleSubmitDecision)
	mux.HandleFunc("POST /api/approvals/preview", ar.HandlePreviewRouting)

	return &testServer{mux: mux, workOrders: workOrders, stages: stages, records: records}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// openStage returns the single open row for a work order.
func (s *testServer) openStage(t *testing.T, workOrderID uuid.UUID) model.WorkflowStage {
	t.Helper()
	result, err := s.stages.ListWorkflowStages(t.Context(), model.WorkflowStageFilter{WorkOrderID: &workOrderID, OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	return result.Items[0]
}
