package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salesops/workflow/internal/metrics"
	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/internal/workflow/routing"
)

// ApprovalService records approval decisions on open stages and creates the records for
// the stage(s) that follow. A decision, the records it creates and the rows it opens are
// written in a single transaction.
type ApprovalService struct {
	db         *gorm.DB
	stages     WorkflowStageRepository
	records    *StageRecordService
	workOrders *WorkOrderService
	directory  *DirectoryService
	notify     chan<- model.DecisionNotification
}

func NewApprovalService(
	db *gorm.DB,
	stages WorkflowStageRepository,
	records *StageRecordService,
	workOrders *WorkOrderService,
	directory *DirectoryService,
	notify chan<- model.DecisionNotification,
) *ApprovalService {
	return &ApprovalService{
		db:         db,
		stages:     stages,
		records:    records,
		workOrders: workOrders,
		directory:  directory,
		notify:     notify,
	}
}

// approvalPlan is what an approval will write, computed before anything is written.
type approvalPlan struct {
	next  model.Stage
	draft *routing.Draft
	agg   *routing.Aggregate
	tr    *model.TechnicalRecommendation
	// stored holds the recommendation's item mappings before this approval.
	stored map[string]string
}

// Submit applies an approve or reject decision to the open stage row req.StageID.
// Validation failures come back as *routing.ValidationError and leave the database untouched.
func (s *ApprovalService) Submit(ctx context.Context, req *model.ApprovalRequest) (*model.ApprovalResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: approval request cannot be nil", ErrInvalidInput)
	}
	if req.Decision != model.DecisionApprove && req.Decision != model.DecisionReject {
		return nil, fmt.Errorf("%w: decision must be approve or reject", ErrInvalidInput)
	}

	var (
		open   model.WorkflowStage
		result *model.ApprovalResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stage, err := s.stages.GetWorkflowStageByIDInTx(ctx, tx, req.StageID)
		if err != nil {
			return err
		}
		open = *stage

		if !open.Status.IsOpen() {
			return fmt.Errorf("workflow stage %s is %s: %w", open.ID, open.Status, ErrStageNotOpen)
		}
		if open.DecidedBy != nil {
			return fmt.Errorf("workflow stage %s: %w", open.ID, ErrStageAlreadyDecided)
		}

		if req.Decision == model.DecisionReject {
			result, err = s.reject(ctx, tx, &open, req)
			return err
		}

		plan, err := s.plan(ctx, tx, &open, req)
		if err != nil {
			return err
		}
		result, err = s.approve(ctx, tx, &open, req, plan)
		return err
	})
	if err != nil {
		var verr *routing.ValidationError
		switch {
		case errors.As(err, &verr):
			metrics.RecordValidationFailure(string(open.StageName), verr.Reason)
		case errors.Is(err, ErrStageAlreadyDecided):
			metrics.RecordConflict(string(open.StageName))
		}
		return nil, err
	}

	metrics.RecordDecision(string(open.StageName), string(req.Decision))
	if result.Routing != nil {
		metrics.RecordRouting(routingOutcome(*result.Routing))
	}
	if result.Converged {
		metrics.RecordConvergence()
	}

	slog.InfoContext(ctx, "workflow stage decided",
		"stageID", open.ID,
		"workOrderID", open.WorkOrderID,
		"stage", open.StageName,
		"decision", req.Decision,
		"nextStage", result.NextStage,
		"createdRecords", len(result.CreatedIDs),
		"converged", result.Converged)

	s.publish(model.DecisionNotification{
		WorkOrderID: open.WorkOrderID,
		StageID:     open.ID,
		Stage:       open.StageName,
		Decision:    req.Decision,
		ActedBy:     req.ApprovedBy,
		DecidedAt:   result.Decision.CreatedAt,
		Result:      *result,
	})

	return result, nil
}

// publish hands the notification to the listener without blocking the request.
func (s *ApprovalService) publish(n model.DecisionNotification) {
	if s.notify == nil {
		return
	}
	select {
	case s.notify <- n:
	default:
		slog.Warn("decision notification dropped, listener is behind",
			"stageID", n.StageID, "workOrderID", n.WorkOrderID)
	}
}

// plan validates an approval and decides where it goes. It does not write.
func (s *ApprovalService) plan(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, req *model.ApprovalRequest) (*approvalPlan, error) {
	if open.StageName == model.StageTechnicalRecommendation {
		return s.planRecommendation(ctx, tx, open, req)
	}

	transition := StageTransition{Current: open.StageName, Chosen: req.NextStage}
	if open.StageName == model.StageRFQ {
		transition.IsNewAccount = s.isNewAccount(ctx, tx, open.WorkOrderID)
	}
	next, err := ResolveNextStage(transition)
	if err != nil {
		return nil, err
	}

	// Approving a terminal stage forwards to itself and assigns nothing.
	if next != open.StageName {
		if verr := routing.ValidateForm(req.Form, false); verr != nil {
			return nil, verr
		}
		if err := checkDueDates(req.Form, false); err != nil {
			return nil, err
		}
	}
	return &approvalPlan{next: next}, nil
}

func (s *ApprovalService) planRecommendation(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, req *model.ApprovalRequest) (*approvalPlan, error) {
	if open.RecordID == nil {
		return nil, fmt.Errorf("%w: workflow stage %s has no technical recommendation", ErrInvalidInput, open.ID)
	}
	tr, err := s.records.GetTechnicalRecommendationByIDInTx(ctx, tx, *open.RecordID)
	if err != nil {
		return nil, err
	}
	stored, err := s.records.GetItemMappingsInTx(ctx, tx, tr.ID)
	if err != nil {
		return nil, err
	}

	draft := routing.NewDraft(tr.Products)
	for productID, itemID := range stored {
		draft = routing.Reduce(draft, routing.MapItem{ProductID: productID, InventoryItemID: itemID})
	}
	draft = applyRequest(draft, req.ProductRouting, req.NewItemFlags, req.ItemMappings, req.Form)

	if verr := draft.Validate(); verr != nil {
		return nil, verr
	}
	agg := draft.Aggregate()
	if err := checkDueDates(req.Form, agg.IsMixed); err != nil {
		return nil, err
	}
	next, err := ResolveNextStage(StageTransition{Current: open.StageName, Routing: agg})
	if err != nil {
		return nil, err
	}

	return &approvalPlan{next: next, draft: &draft, agg: &agg, tr: tr, stored: stored}, nil
}

// applyRequest folds the approver's edits into a draft.
func applyRequest(d routing.Draft, productRouting map[string]model.Routing, newItems map[string]bool, mappings map[string]string, form model.ApprovalForm) routing.Draft {
	for productID, r := range productRouting {
		d = routing.Reduce(d, routing.SetRouting{ProductID: productID, Routing: r})
	}
	for productID, isNew := range newItems {
		d = routing.Reduce(d, routing.SetNewItem{ProductID: productID, IsNew: isNew})
	}
	for productID, itemID := range mappings {
		d = routing.Reduce(d, routing.MapItem{ProductID: productID, InventoryItemID: itemID})
	}
	return routing.Reduce(d, routing.SetForm{Form: form})
}

// isNewAccount reports the work order's flag. A failed lookup counts as an existing account.
func (s *ApprovalService) isNewAccount(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) bool {
	workOrder, err := s.workOrders.GetWorkOrderByIDInTx(ctx, tx, workOrderID)
	if err != nil {
		slog.WarnContext(ctx, "work order lookup failed, treating account as existing",
			"workOrderID", workOrderID, "error", err)
		return false
	}
	return workOrder.IsNewAccount
}

// decide claims the open row and appends the decision row for it.
func (s *ApprovalService) decide(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, status model.StageStatus, next *model.Stage, req *model.ApprovalRequest, note string) (*model.WorkflowStage, error) {
	decision := model.WorkflowStage{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		WorkOrderID: open.WorkOrderID,
		StageName:   open.StageName,
		Status:      status,
		RecordID:    open.RecordID,
		AssignedTo:  open.AssignedTo,
		DueDate:     open.DueDate,
		Remarks:     req.Form.Remarks,
		NextStage:   next,
		ActedBy:     req.ApprovedBy,
		RoutingNote: note,
	}

	if err := s.stages.ClaimOpenWorkflowStageInTx(ctx, tx, open.ID, decision.ID); err != nil {
		return nil, err
	}
	rows, err := s.stages.CreateWorkflowStagesInTx(ctx, tx, []model.WorkflowStage{decision})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (s *ApprovalService) reject(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, req *model.ApprovalRequest) (*model.ApprovalResult, error) {
	decision, err := s.decide(ctx, tx, open, model.StageStatusRejected, nil, req, "")
	if err != nil {
		return nil, err
	}
	return &model.ApprovalResult{
		Decision:      *decision,
		EnteredStages: []model.WorkflowStage{},
		CreatedIDs:    []uuid.UUID{},
	}, nil
}

func (s *ApprovalService) approve(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, req *model.ApprovalRequest, plan *approvalPlan) (*model.ApprovalResult, error) {
	var note string
	if plan.agg != nil {
		note = plan.agg.Message()
	}

	next := plan.next
	decision, err := s.decide(ctx, tx, open, model.StageStatusApproved, &next, req, note)
	if err != nil {
		return nil, err
	}

	result := &model.ApprovalResult{
		Decision:      *decision,
		NextStage:     &next,
		EnteredStages: []model.WorkflowStage{},
		CreatedIDs:    []uuid.UUID{},
	}
	if plan.agg != nil {
		summary := plan.agg.Summary()
		result.Routing = &summary
	}
	if next == open.StageName {
		return result, nil
	}

	var entries []model.WorkflowStage
	switch {
	case open.StageName == model.StageTechnicalRecommendation:
		entries, err = s.routeRecommendation(ctx, tx, open, req.Form, plan, result)
	case next == model.StageSalesLead:
		entries, err = s.enterSalesLead(ctx, tx, open, req.Form.Single(), result)
	case next == model.StageTechnicalRecommendation:
		entries, err = s.enterTechnicalRecommendation(ctx, tx, open, req.Form.Single(), result)
	case next == model.StageNAEF:
		entries, err = s.enterNAEF(ctx, tx, open, req.Form.Single(), result)
	case next == model.StageQuotations:
		entries, err = s.enterQuotationFromRFQ(ctx, tx, open, req.Form.Single(), result)
	default:
		err = fmt.Errorf("no stage record is created for %s -> %s", open.StageName, next)
	}
	if err != nil {
		return nil, err
	}

	created, err := s.stages.CreateWorkflowStagesInTx(ctx, tx, entries)
	if err != nil {
		return nil, err
	}
	result.EnteredStages = created
	return result, nil
}

func (s *ApprovalService) enterSalesLead(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, track model.Track, result *model.ApprovalResult) ([]model.WorkflowStage, error) {
	lead := &model.SalesLead{
		Assignment:  assignmentFrom(track),
		WorkOrderID: open.WorkOrderID,
	}
	if err := s.records.CreateSalesLeadInTx(ctx, tx, lead); err != nil {
		return nil, err
	}
	result.CreatedIDs = append(result.CreatedIDs, lead.ID)
	return []model.WorkflowStage{entryRow(open.WorkOrderID, model.StageSalesLead, lead.ID, lead.Assignment)}, nil
}

func (s *ApprovalService) enterTechnicalRecommendation(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, track model.Track, result *model.ApprovalResult) ([]model.WorkflowStage, error) {
	tr := &model.TechnicalRecommendation{
		Assignment:  assignmentFrom(track),
		WorkOrderID: open.WorkOrderID,
	}
	if open.StageName == model.StageSalesLead {
		tr.SalesLeadID = open.RecordID
	}
	if err := s.records.CreateTechnicalRecommendationInTx(ctx, tx, tr); err != nil {
		return nil, err
	}
	result.CreatedIDs = append(result.CreatedIDs, tr.ID)
	return []model.WorkflowStage{entryRow(open.WorkOrderID, model.StageTechnicalRecommendation, tr.ID, tr.Assignment)}, nil
}

// routeRecommendation records the routing on the recommendation and splits its products
// into an RFQ, a quotation, or both. In the mixed case the quotation waits for the RFQ.
func (s *ApprovalService) routeRecommendation(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, form model.ApprovalForm, plan *approvalPlan, result *model.ApprovalResult) ([]model.WorkflowStage, error) {
	tr, agg := plan.tr, *plan.agg

	resolved := plan.draft.Resolved()
	tr.Products = resolved
	if err := s.records.SaveProductsInTx(ctx, tx, tr); err != nil {
		return nil, err
	}

	mappings := make(map[string]string)
	for _, p := range resolved {
		if p.InventoryItemID != "" {
			mappings[p.ID] = p.InventoryItemID
		}
	}
	// Stored mappings the approver cleared are removed from the mapping table as well.
	for productID := range plan.stored {
		if _, ok := mappings[productID]; !ok {
			mappings[productID] = ""
		}
	}
	if err := s.records.ApplyItemMappingsInTx(ctx, tx, tr.ID, mappings); err != nil {
		return nil, err
	}

	rfqTrack, quotationTrack := form.Single(), form.Single()
	if agg.IsMixed {
		rfqTrack, quotationTrack = form.RFQTrack(), form.QuotationTrack()
	}

	var entries []model.WorkflowStage
	if agg.RFQCount > 0 {
		rfq := &model.RFQ{
			Assignment:                assignmentFrom(rfqTrack),
			WorkOrderID:               open.WorkOrderID,
			TechnicalRecommendationID: &tr.ID,
			Items:                     stageItems(resolved, model.RoutingRFQ),
		}
		if err := s.records.CreateRFQInTx(ctx, tx, rfq); err != nil {
			return nil, err
		}
		result.CreatedIDs = append(result.CreatedIDs, rfq.ID)
		entries = append(entries, entryRow(open.WorkOrderID, model.StageRFQ, rfq.ID, rfq.Assignment))
	}

	if agg.DirectCount > 0 {
		quotation := &model.Quotation{
			Assignment:                assignmentFrom(quotationTrack),
			WorkOrderID:               open.WorkOrderID,
			TechnicalRecommendationID: &tr.ID,
			Status:                    model.QuotationStatusPending,
			Items:                     stageItems(resolved, model.RoutingDirectQuotation),
		}
		if agg.IsMixed {
			quotation.Status = model.QuotationStatusAwaitingRFQ
		}
		if err := s.records.CreateQuotationInTx(ctx, tx, quotation); err != nil {
			return nil, err
		}
		result.CreatedIDs = append(result.CreatedIDs, quotation.ID)
		if quotation.Status == model.QuotationStatusPending {
			entries = append(entries, entryRow(open.WorkOrderID, model.StageQuotations, quotation.ID, quotation.Assignment))
		}
	}

	return entries, nil
}

// enterNAEF flags the work order's account for New Account Evaluation.
func (s *ApprovalService) enterNAEF(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, track model.Track, result *model.ApprovalResult) ([]model.WorkflowStage, error) {
	workOrder, err := s.workOrders.GetWorkOrderByIDInTx(ctx, tx, open.WorkOrderID)
	if err != nil {
		return nil, err
	}
	if workOrder.AccountID == nil {
		return nil, fmt.Errorf("%w: work order %s has no account to evaluate", ErrInvalidInput, workOrder.ID)
	}
	account, err := s.directory.GetAccountByIDInTx(ctx, tx, *workOrder.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.directory.FlagNAEFInTx(ctx, tx, account, track); err != nil {
		return nil, err
	}
	result.CreatedIDs = append(result.CreatedIDs, account.ID)
	return []model.WorkflowStage{entryRow(open.WorkOrderID, model.StageNAEF, account.ID, assignmentFrom(track))}, nil
}

// enterQuotationFromRFQ moves RFQ items into quotation. When the recommendation parked
// direct items in a quotation, the RFQ items join it instead of starting a new one.
func (s *ApprovalService) enterQuotationFromRFQ(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage, track model.Track, result *model.ApprovalResult) ([]model.WorkflowStage, error) {
	rfq, err := s.sourceRFQ(ctx, tx, open)
	if err != nil {
		return nil, err
	}

	var waiting *model.Quotation
	if rfq != nil && rfq.TechnicalRecommendationID != nil {
		waiting, err = s.records.FindAwaitingQuotationInTx(ctx, tx, *rfq.TechnicalRecommendationID)
		if err != nil {
			return nil, err
		}
	}

	if waiting != nil {
		waiting.Items = append(waiting.Items, rfq.Items...)
		waiting.Status = model.QuotationStatusPending
		waiting.RFQID = &rfq.ID
		requested := assignmentFrom(track)
		if waiting.AssignedTo == "" {
			waiting.AssignedTo = requested.AssignedTo
		}
		if waiting.DueDate == nil {
			waiting.DueDate = requested.DueDate
		}
		if err := s.records.SaveQuotationInTx(ctx, tx, waiting); err != nil {
			return nil, err
		}
		result.Converged = true
		result.CreatedIDs = append(result.CreatedIDs, waiting.ID)
		return []model.WorkflowStage{entryRow(open.WorkOrderID, model.StageQuotations, waiting.ID, waiting.Assignment)}, nil
	}

	quotation := &model.Quotation{
		Assignment:  assignmentFrom(track),
		WorkOrderID: open.WorkOrderID,
		Status:      model.QuotationStatusPending,
		Items:       []model.StageItem{},
	}
	if rfq != nil {
		quotation.TechnicalRecommendationID = rfq.TechnicalRecommendationID
		quotation.RFQID = &rfq.ID
		quotation.Items = append(quotation.Items, rfq.Items...)
	}
	if err := s.records.CreateQuotationInTx(ctx, tx, quotation); err != nil {
		return nil, err
	}
	result.CreatedIDs = append(result.CreatedIDs, quotation.ID)
	return []model.WorkflowStage{entryRow(open.WorkOrderID, model.StageQuotations, quotation.ID, quotation.Assignment)}, nil
}

// sourceRFQ finds the RFQ whose items move into quotation: the decided row's record for an
// RFQ stage, the work order's latest RFQ for NAEF. Nil when the work order never had one.
func (s *ApprovalService) sourceRFQ(ctx context.Context, tx *gorm.DB, open *model.WorkflowStage) (*model.RFQ, error) {
	var (
		rfq *model.RFQ
		err error
	)
	if open.StageName == model.StageRFQ && open.RecordID != nil {
		rfq, err = s.records.GetRFQByIDInTx(ctx, tx, *open.RecordID)
	} else {
		rfq, err = s.records.GetLatestRFQForWorkOrderInTx(ctx, tx, open.WorkOrderID)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rfq, err
}

// PreviewRouting evaluates a draft without touching the database.
func PreviewRouting(req model.RoutingPreviewRequest) model.RoutingPreviewResponse {
	draft := applyRequest(routing.NewDraft(req.Products), req.ProductRouting, req.NewItemFlags, req.ItemMappings, req.Form)

	resp := model.RoutingPreviewResponse{
		Routing: draft.Aggregate().Summary(),
		Valid:   true,
	}
	if verr := draft.Validate(); verr != nil {
		resp.Valid = false
		resp.Error = verr.Message
	}
	return resp
}

// checkDueDates rejects due dates that are present but unparseable.
func checkDueDates(form model.ApprovalForm, mixed bool) error {
	dates := []struct{ label, value string }{{"due date", form.DueDate}}
	if mixed {
		dates = []struct{ label, value string }{
			{"RFQ due date", form.RFQDueDate},
			{"Quotation due date", form.QuotationDueDate},
		}
	}
	for _, d := range dates {
		label, value := d.label, d.value
		if _, ok := parseDueDate(value); !ok {
			return &routing.ValidationError{
				Reason:  routing.ReasonInvalidDueDate,
				Message: fmt.Sprintf("The %s %q is not a valid date (expected YYYY-MM-DD).", label, value),
			}
		}
	}
	return nil
}

func assignmentFrom(track model.Track) model.Assignment {
	dueDate, _ := parseDueDate(track.DueDate)
	return model.Assignment{
		AssignedTo: track.Assignee,
		DueDate:    dueDate,
		FromTime:   track.FromTime,
		ToTime:     track.ToTime,
		Remarks:    track.Remarks,
	}
}

// entryRow opens a Pending row for a record entering a stage.
func entryRow(workOrderID uuid.UUID, stage model.Stage, recordID uuid.UUID, a model.Assignment) model.WorkflowStage {
	return model.WorkflowStage{
		WorkOrderID: workOrderID,
		StageName:   stage,
		Status:      model.StageStatusPending,
		RecordID:    &recordID,
		AssignedTo:  a.AssignedTo,
		DueDate:     a.DueDate,
		FromTime:    a.FromTime,
		ToTime:      a.ToTime,
		Remarks:     a.Remarks,
	}
}

func stageItems(products []model.Product, r model.Routing) []model.StageItem {
	items := []model.StageItem{}
	for _, p := range products {
		if p.Routing != r {
			continue
		}
		items = append(items, model.StageItem{
			ProductID:       p.ID,
			ProductName:     p.ProductName,
			CorrectedPartNo: p.CorrectedPartNo,
			Description:     p.Description,
			Quantity:        p.Quantity,
			Routing:         p.Routing,
			InventoryItemID: p.InventoryItemID,
		})
	}
	return items
}
