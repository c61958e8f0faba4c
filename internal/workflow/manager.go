package workflow

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"gorm.io/gorm"

	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/internal/workflow/router"
	"github.com/salesops/workflow/internal/workflow/service"
)

// DecisionArchiver receives every committed decision.
type DecisionArchiver interface {
	Archive(ctx context.Context, n model.DecisionNotification) error
}

// Manager wires the workflow services and routers and runs the listener that forwards
// committed decisions to the archive.
type Manager struct {
	workOrderService     *service.WorkOrderService
	directoryService     *service.DirectoryService
	stageRecordService   *service.StageRecordService
	workflowStageService *service.WorkflowStageService
	approvalService      *service.ApprovalService
	workOrderRouter      *router.WorkOrderRouter
	stageRecordRouter    *router.StageRecordRouter
	approvalRouter       *router.ApprovalRouter
	decisionChan         chan model.DecisionNotification
	archiver             DecisionArchiver
	ctx                  context.Context
	cancel               context.CancelFunc
	wg                   sync.WaitGroup
}

// NewManager creates the workflow manager. catalog and archiver may be nil, which
// disables inventory checks on item mappings and decision archiving respectively.
func NewManager(db *gorm.DB, catalog service.ItemCatalog, archiver DecisionArchiver, bufferSize int) *Manager {
	decisionChan := make(chan model.DecisionNotification, bufferSize)

	// Initialize services
	workflowStageService := service.NewWorkflowStageService(db)
	workOrderService := service.NewWorkOrderService(db, workflowStageService)
	directoryService := service.NewDirectoryService(db)
	stageRecordService := service.NewStageRecordService(db, workflowStageService, catalog)
	approvalService := service.NewApprovalService(db, workflowStageService, stageRecordService,
		workOrderService, directoryService, decisionChan)

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		workOrderService:     workOrderService,
		directoryService:     directoryService,
		stageRecordService:   stageRecordService,
		workflowStageService: workflowStageService,
		approvalService:      approvalService,
		workOrderRouter:      router.NewWorkOrderRouter(workOrderService, directoryService),
		stageRecordRouter:    router.NewStageRecordRouter(stageRecordService),
		approvalRouter:       router.NewApprovalRouter(approvalService, workflowStageService),
		decisionChan:         decisionChan,
		archiver:             archiver,
		ctx:                  ctx,
		cancel:               cancel,
	}
}

// RegisterRoutes mounts the workflow API on mux.
func (m *Manager) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workorders", m.workOrderRouter.HandleCreateWorkOrder)
	mux.HandleFunc("GET /api/workorders", m.workOrderRouter.HandleGetWorkOrders)
	mux.HandleFunc("GET /api/workorders/{id}", m.workOrderRouter.HandleGetWorkOrder)
	mux.HandleFunc("POST /api/accounts", m.workOrderRouter.HandleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", m.workOrderRouter.HandleGetAccount)
	mux.HandleFunc("GET /api/users", m.workOrderRouter.HandleGetUsers)
	mux.HandleFunc("POST /api/users", m.workOrderRouter.HandleCreateUser)

	mux.HandleFunc("GET /api/salesleads/{id}", m.stageRecordRouter.HandleGetSalesLead)
	mux.HandleFunc("POST /api/technicals", m.stageRecordRouter.HandleCreateTechnicalRecommendation)
	mux.HandleFunc("GET /api/technicals/{id}", m.stageRecordRouter.HandleGetTechnicalRecommendation)
	mux.HandleFunc("PUT /api/technicals/{id}/products", m.stageRecordRouter.HandleReplaceProducts)
	mux.HandleFunc("PUT /api/technicals/{id}/mappings", m.stageRecordRouter.HandleUpsertItemMappings)
	mux.HandleFunc("GET /api/rfqs/{id}", m.stageRecordRouter.HandleGetRFQ)
	mux.HandleFunc("GET /api/quotations/{id}", m.stageRecordRouter.HandleGetQuotation)

	mux.HandleFunc("GET /api/workflow-stages", m.approvalRouter.HandleGetWorkflowStages)
	mux.HandleFunc("POST /api/workflow-stages/{id}/decision", m.approvalRouter.HandleSubmitDecision)
	mux.HandleFunc("POST /api/approvals/preview", m.approvalRouter.HandlePreviewRouting)
}

// StartDecisionListener starts a goroutine that archives committed decisions.
func (m *Manager) StartDecisionListener() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.ctx.Done():
				m.drain()
				slog.Info("decision listener stopped")
				return
			case n := <-m.decisionChan:
				m.handleDecision(n)
			}
		}
	}()
}

// drain archives whatever was already queued when the listener was stopped.
func (m *Manager) drain() {
	for {
		select {
		case n := <-m.decisionChan:
			m.handleDecision(n)
		default:
			return
		}
	}
}

func (m *Manager) handleDecision(n model.DecisionNotification) {
	if m.archiver == nil {
		return
	}
	// Archive writes outlive the listener context so a stop does not abort the drain.
	if err := m.archiver.Archive(context.WithoutCancel(m.ctx), n); err != nil {
		// The decision is committed; a failed snapshot is only logged.
		slog.Error("failed to archive decision",
			"stageID", n.StageID,
			"workOrderID", n.WorkOrderID,
			"decision", n.Decision,
			"error", err)
		return
	}
	slog.Debug("decision archived", "stageID", n.StageID, "workOrderID", n.WorkOrderID)
}

// StopDecisionListener stops the listener and waits for queued decisions to be archived.
func (m *Manager) StopDecisionListener() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
