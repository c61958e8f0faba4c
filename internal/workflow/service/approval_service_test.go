package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/internal/workflow/routing"
)

func singleTrack(assignee string) model.ApprovalForm {
	return model.ApprovalForm{Assignee: assignee, DueDate: "2025-01-10"}
}

func routeAll(r model.Routing, ids ...string) map[string]model.Routing {
	out := make(map[string]model.Routing, len(ids))
	for _, id := range ids {
		out[id] = r
	}
	return out
}

func TestApprovalService_AllRFQ(t *testing.T) {
	f := newFixture(t, nil)
	tr, open := f.createRecommendation(t, nil, products("p1", "p2", "p3"))

	result, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        open.ID,
		Decision:       model.DecisionApprove,
		ApprovedBy:     "manager",
		ProductRouting: routeAll(model.RoutingRFQ, "p1", "p2", "p3"),
		Form:           singleTrack("alice"),
	})
	require.NoError(t, err)

	require.NotNil(t, result.NextStage)
	assert.Equal(t, model.StageRFQ, *result.NextStage)
	assert.Equal(t, model.StageStatusApproved, result.Decision.Status)
	require.NotNil(t, result.Decision.NextStage)
	assert.Equal(t, model.StageRFQ, *result.Decision.NextStage)
	assert.Equal(t, "All 3 products will be routed to RFQ.", result.Decision.RoutingNote)
	require.NotNil(t, result.Routing)
	assert.True(t, result.Routing.AllRFQ)

	assert.EqualValues(t, 1, f.count(t, &model.RFQ{}, ""))
	assert.EqualValues(t, 0, f.count(t, &model.Quotation{}, ""))
	assert.EqualValues(t, 1, f.count(t, &model.WorkflowStage{}, "stage_name = ? AND status = ?", model.StageTechnicalRecommendation, model.StageStatusApproved))

	rfq, err := f.records.GetRFQByID(f.ctx, result.CreatedIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "alice", rfq.AssignedTo)
	require.NotNil(t, rfq.DueDate)
	assert.Equal(t, "2025-01-10", rfq.DueDate.Format("2006-01-02"))
	assert.Len(t, rfq.Items, 3)
	assert.Equal(t, &tr.ID, rfq.TechnicalRecommendationID)

	require.Len(t, result.EnteredStages, 1)
	assert.Equal(t, model.StageRFQ, result.EnteredStages[0].StageName)
	assert.Equal(t, model.StageStatusPending, result.EnteredStages[0].Status)
	assert.Equal(t, &rfq.ID, result.EnteredStages[0].RecordID)

	stored, err := f.records.GetTechnicalRecommendationByID(f.ctx, tr.ID)
	require.NoError(t, err)
	for _, p := range stored.Products {
		assert.Equal(t, model.RoutingRFQ, p.Routing)
	}

	decided, err := f.stages.GetWorkflowStageByID(f.ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, &result.Decision.ID, decided.DecidedBy)
}

func TestApprovalService_AllDirect(t *testing.T) {
	f := newFixture(t, nil)
	_, open := f.createRecommendation(t, nil, products("p1", "p2"))

	result, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        open.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: routeAll(model.RoutingDirectQuotation, "p1", "p2"),
		ItemMappings:   map[string]string{"p1": "INV-1", "p2": "INV-2"},
		Form:           singleTrack("bob"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.StageQuotations, *result.NextStage)
	assert.EqualValues(t, 0, f.count(t, &model.RFQ{}, ""))
	assert.EqualValues(t, 1, f.count(t, &model.Quotation{}, ""))
	assert.EqualValues(t, 2, f.count(t, &model.ItemMapping{}, ""))

	quotation, err := f.records.GetQuotationByID(f.ctx, result.CreatedIDs[0])
	require.NoError(t, err)
	assert.Equal(t, model.QuotationStatusPending, quotation.Status)
	assert.Equal(t, "bob", quotation.AssignedTo)
	require.Len(t, quotation.Items, 2)
	assert.Equal(t, "INV-1", quotation.Items[0].InventoryItemID)

	require.Len(t, result.EnteredStages, 1)
	assert.Equal(t, model.StageQuotations, result.EnteredStages[0].StageName)
}

func TestApprovalService_StoredMappingsSatisfyDirectRouting(t *testing.T) {
	f := newFixture(t, nil)
	tr, open := f.createRecommendation(t, nil, products("p1"))

	_, err := f.records.UpsertItemMappings(f.ctx, tr.ID, &model.UpsertItemMappingsDTO{
		Mappings: map[string]string{"p1": "INV-9"},
	})
	require.NoError(t, err)

	result, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        open.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: routeAll(model.RoutingDirectQuotation, "p1"),
		Form:           singleTrack("bob"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageQuotations, *result.NextStage)
}

func TestApprovalService_ClearedMappingIsRemoved(t *testing.T) {
	f := newFixture(t, nil)
	tr, open := f.createRecommendation(t, nil, products("p1", "p2"))

	_, err := f.records.UpsertItemMappings(f.ctx, tr.ID, &model.UpsertItemMappingsDTO{
		Mappings: map[string]string{"p1": "INV-9", "p2": "INV-7"},
	})
	require.NoError(t, err)

	_, err = f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        open.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: routeAll(model.RoutingRFQ, "p1", "p2"),
		ItemMappings:   map[string]string{"p1": ""},
		Form:           singleTrack("alice"),
	})
	require.NoError(t, err)

	stored, err := f.records.GetTechnicalRecommendationByID(f.ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, stored.Products, 2)
	assert.Empty(t, stored.Products[0].InventoryItemID)
	assert.Equal(t, "INV-7", stored.Products[1].InventoryItemID)

	mappings, err := f.records.GetItemMappingsInTx(f.ctx, f.db, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"p2": "INV-7"}, mappings)
}

func TestApprovalService_InvalidMixedDueDatesReportRFQFirst(t *testing.T) {
	f := newFixture(t, nil)
	_, open := f.createRecommendation(t, nil, products("p1", "p2"))

	req := &model.ApprovalRequest{
		StageID:        open.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: map[string]model.Routing{"p1": model.RoutingRFQ, "p2": model.RoutingDirectQuotation},
		ItemMappings:   map[string]string{"p2": "INV-2"},
		Form: model.ApprovalForm{
			RFQAssignee:       "rfq-owner",
			RFQDueDate:        "soon",
			QuotationAssignee: "quote-owner",
			QuotationDueDate:  "later",
		},
	}

	for range 10 {
		_, err := f.approvals.Submit(f.ctx, req)
		var verr *routing.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, routing.ReasonInvalidDueDate, verr.Reason)
		assert.Equal(t, `The RFQ due date "soon" is not a valid date (expected YYYY-MM-DD).`, verr.Message)
	}
	assert.EqualValues(t, 0, f.count(t, &model.RFQ{}, ""))
}

func TestApprovalService_MixedRoutingConverges(t *testing.T) {
	f := newFixture(t, nil)
	wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{})
	tr, open := f.createRecommendation(t, wo, products("A", "B"))

	req := &model.ApprovalRequest{
		StageID:        open.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: map[string]model.Routing{"A": model.RoutingRFQ, "B": model.RoutingDirectQuotation},
		ItemMappings:   map[string]string{"B": "INV-B"},
		Form: model.ApprovalForm{
			Assignee:          "alice",
			DueDate:           "2025-01-10",
			RFQAssignee:       "rfq-owner",
			RFQDueDate:        "2025-01-10",
			QuotationAssignee: "quote-owner",
		},
	}

	stagesBefore := f.count(t, &model.WorkflowStage{}, "")
	_, err := f.approvals.Submit(f.ctx, req)
	var verr *routing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, routing.ReasonMissingDueDate, verr.Reason)
	assert.EqualValues(t, stagesBefore, f.count(t, &model.WorkflowStage{}, ""))
	assert.EqualValues(t, 0, f.count(t, &model.RFQ{}, ""))
	assert.EqualValues(t, 0, f.count(t, &model.ItemMapping{}, ""))

	req.Form.QuotationDueDate = "2025-01-12"
	result, err := f.approvals.Submit(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.StageRFQ, *result.NextStage)
	assert.True(t, result.Routing.IsMixed)
	assert.NotEmpty(t, result.Routing.Disclaimer)
	assert.Len(t, result.CreatedIDs, 2)

	// Only the RFQ track opens a stage now; the quotation waits.
	require.Len(t, result.EnteredStages, 1)
	assert.Equal(t, model.StageRFQ, result.EnteredStages[0].StageName)
	assert.Equal(t, "rfq-owner", result.EnteredStages[0].AssignedTo)

	waiting, err := f.records.FindAwaitingQuotationInTx(f.ctx, f.db, tr.ID)
	require.NoError(t, err)
	require.NotNil(t, waiting)
	assert.Equal(t, "quote-owner", waiting.AssignedTo)
	require.Len(t, waiting.Items, 1)
	assert.Equal(t, "B", waiting.Items[0].ProductID)

	rfqOpen := f.openStage(t, wo.ID, model.StageRFQ)
	converged, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:  rfqOpen.ID,
		Decision: model.DecisionApprove,
		Form:     singleTrack("someone-else"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageQuotations, *converged.NextStage)
	assert.True(t, converged.Converged)

	assert.EqualValues(t, 1, f.count(t, &model.Quotation{}, ""))
	quotation, err := f.records.GetQuotationByID(f.ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuotationStatusPending, quotation.Status)
	assert.Equal(t, "quote-owner", quotation.AssignedTo)
	assert.Len(t, quotation.Items, 2)
	assert.NotNil(t, quotation.RFQID)

	quotationOpen := f.openStage(t, wo.ID, model.StageQuotations)
	assert.Equal(t, &quotation.ID, quotationOpen.RecordID)
}

func TestApprovalService_NewItemCannotGoDirect(t *testing.T) {
	f := newFixture(t, nil)
	_, open := f.createRecommendation(t, nil, []model.Product{{ID: "x", ProductName: "Rack Server"}})

	_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        open.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: routeAll(model.RoutingDirectQuotation, "x"),
		NewItemFlags:   map[string]bool{"x": true},
		ItemMappings:   map[string]string{"x": "INV-1"},
		Form:           singleTrack("alice"),
	})

	var verr *routing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, routing.ReasonNewItemDirect, verr.Reason)
	assert.Contains(t, verr.Message, "Rack Server")
	assert.EqualValues(t, 0, f.count(t, &model.Quotation{}, ""))
}

func TestApprovalService_InvalidDueDate(t *testing.T) {
	f := newFixture(t, nil)
	_, open := f.createRecommendation(t, nil, products("p1"))

	_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        open.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: routeAll(model.RoutingRFQ, "p1"),
		Form:           model.ApprovalForm{Assignee: "alice", DueDate: "next tuesday"},
	})

	var verr *routing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, routing.ReasonInvalidDueDate, verr.Reason)
}

func TestApprovalService_Reject(t *testing.T) {
	for _, stage := range []model.Stage{model.StageWorkOrder, model.StageTechnicalRecommendation} {
		t.Run(string(stage), func(t *testing.T) {
			f := newFixture(t, nil)
			wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{AssignedTo: "sales"})
			open := f.openStage(t, wo.ID, model.StageWorkOrder)
			if stage == model.StageTechnicalRecommendation {
				_, open = f.createRecommendation(t, wo, products("p1"))
			}
			stagesBefore := f.count(t, &model.WorkflowStage{}, "")

			result, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
				StageID:  open.ID,
				Decision: model.DecisionReject,
				Form:     model.ApprovalForm{Remarks: "incomplete"},
			})
			require.NoError(t, err)

			assert.Nil(t, result.NextStage)
			assert.Equal(t, model.StageStatusRejected, result.Decision.Status)
			assert.Nil(t, result.Decision.NextStage)
			assert.Equal(t, "incomplete", result.Decision.Remarks)
			assert.Empty(t, result.EnteredStages)
			assert.Empty(t, result.CreatedIDs)

			assert.EqualValues(t, stagesBefore+1, f.count(t, &model.WorkflowStage{}, ""))
			assert.EqualValues(t, 0, f.count(t, &model.SalesLead{}, ""))
			assert.EqualValues(t, 0, f.count(t, &model.RFQ{}, ""))
			assert.EqualValues(t, 0, f.count(t, &model.Quotation{}, ""))
		})
	}
}

func TestApprovalService_FullPipelineDirectQuotation(t *testing.T) {
	f := newFixture(t, nil)
	wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{AssignedTo: "sales", DueDate: "2025-01-05"})

	woResult, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:  f.openStage(t, wo.ID, model.StageWorkOrder).ID,
		Decision: model.DecisionApprove,
		Form:     singleTrack("lead-owner"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageSalesLead, *woResult.NextStage)
	assert.EqualValues(t, 1, f.count(t, &model.SalesLead{}, ""))

	slResult, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:   f.openStage(t, wo.ID, model.StageSalesLead).ID,
		Decision:  model.DecisionApprove,
		NextStage: model.StageTechnicalRecommendation,
		Form:      singleTrack("engineer"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageTechnicalRecommendation, *slResult.NextStage)

	trOpen := f.openStage(t, wo.ID, model.StageTechnicalRecommendation)
	tr, err := f.records.GetTechnicalRecommendationByID(f.ctx, *trOpen.RecordID)
	require.NoError(t, err)
	assert.Equal(t, &woResult.CreatedIDs[0], tr.SalesLeadID)

	_, err = f.records.ReplaceProducts(f.ctx, tr.ID, products("p1"))
	require.NoError(t, err)

	trResult, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        trOpen.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: routeAll(model.RoutingDirectQuotation, "p1"),
		ItemMappings:   map[string]string{"p1": "INV-1"},
		Form:           singleTrack("quoter"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageQuotations, *trResult.NextStage)

	final, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:  f.openStage(t, wo.ID, model.StageQuotations).ID,
		Decision: model.DecisionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageQuotations, *final.NextStage)
	assert.Empty(t, final.EnteredStages)
	assert.Empty(t, final.CreatedIDs)

	timeline, err := f.stages.ListWorkflowStages(f.ctx, model.WorkflowStageFilter{WorkOrderID: &wo.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 8, timeline.TotalCount)
	assert.Equal(t, model.StageWorkOrder, timeline.Items[0].StageName)
	assert.Equal(t, model.StageStatusPending, timeline.Items[0].Status)
}

func TestApprovalService_NAEFPath(t *testing.T) {
	f := newFixture(t, nil)
	account, err := f.directory.CreateAccount(f.ctx, &model.Account{Name: "Acme"})
	require.NoError(t, err)
	wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{AccountID: &account.ID, IsNewAccount: true})
	_, trOpen := f.createRecommendation(t, wo, products("p1"))

	_, err = f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        trOpen.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: routeAll(model.RoutingRFQ, "p1"),
		Form:           singleTrack("buyer"),
	})
	require.NoError(t, err)

	rfqResult, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:  f.openStage(t, wo.ID, model.StageRFQ).ID,
		Decision: model.DecisionApprove,
		Form:     model.ApprovalForm{Assignee: "credit", DueDate: "2025-02-01", Remarks: "check terms"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageNAEF, *rfqResult.NextStage)
	assert.Equal(t, []uuid.UUID{account.ID}, rfqResult.CreatedIDs)

	flagged, err := f.directory.GetAccountByID(f.ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, flagged.IsNAEF)
	assert.Equal(t, "credit", flagged.NAEFAssignedTo)
	assert.Equal(t, "check terms", flagged.NAEFRemarks)

	naefResult, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:  f.openStage(t, wo.ID, model.StageNAEF).ID,
		Decision: model.DecisionApprove,
		Form:     singleTrack("quoter"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageQuotations, *naefResult.NextStage)

	quotation, err := f.records.GetQuotationByID(f.ctx, naefResult.CreatedIDs[0])
	require.NoError(t, err)
	assert.Len(t, quotation.Items, 1)
	assert.NotNil(t, quotation.RFQID)
}

func TestApprovalService_MissingWorkOrderMeansExistingAccount(t *testing.T) {
	f := newFixture(t, nil)
	orphanWO := uuid.New()
	rfq := &model.RFQ{WorkOrderID: orphanWO, Items: []model.StageItem{{ProductID: "p1", Routing: model.RoutingRFQ}}}
	require.NoError(t, f.records.CreateRFQInTx(f.ctx, f.db, rfq))
	rows, err := f.stages.CreateWorkflowStagesInTx(f.ctx, f.db, []model.WorkflowStage{
		entryRow(orphanWO, model.StageRFQ, rfq.ID, model.Assignment{AssignedTo: "buyer"}),
	})
	require.NoError(t, err)

	result, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:  rows[0].ID,
		Decision: model.DecisionApprove,
		Form:     singleTrack("quoter"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StageQuotations, *result.NextStage)
	assert.EqualValues(t, 1, f.count(t, &model.Quotation{}, ""))
}

func TestApprovalService_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t, nil)
	// A new account without an account record cannot enter NAEF.
	wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{IsNewAccount: true})
	_, trOpen := f.createRecommendation(t, wo, products("p1"))
	_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:        trOpen.ID,
		Decision:       model.DecisionApprove,
		ProductRouting: routeAll(model.RoutingRFQ, "p1"),
		Form:           singleTrack("buyer"),
	})
	require.NoError(t, err)

	rfqOpen := f.openStage(t, wo.ID, model.StageRFQ)
	stagesBefore := f.count(t, &model.WorkflowStage{}, "")

	_, err = f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID:  rfqOpen.ID,
		Decision: model.DecisionApprove,
		Form:     singleTrack("credit"),
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	assert.EqualValues(t, stagesBefore, f.count(t, &model.WorkflowStage{}, ""))
	stillOpen, err := f.stages.GetWorkflowStageByID(f.ctx, rfqOpen.ID)
	require.NoError(t, err)
	assert.Nil(t, stillOpen.DecidedBy)
}

func TestApprovalService_SecondDecisionConflicts(t *testing.T) {
	f := newFixture(t, nil)
	wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{})
	open := f.openStage(t, wo.ID, model.StageWorkOrder)
	req := &model.ApprovalRequest{StageID: open.ID, Decision: model.DecisionApprove, Form: singleTrack("a")}

	_, err := f.approvals.Submit(f.ctx, req)
	require.NoError(t, err)

	_, err = f.approvals.Submit(f.ctx, req)
	assert.ErrorIs(t, err, ErrStageAlreadyDecided)
	assert.EqualValues(t, 1, f.count(t, &model.SalesLead{}, ""))
}

func TestApprovalService_ConcurrentDecisions(t *testing.T) {
	f := newFixture(t, nil)
	wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{})
	open := f.openStage(t, wo.ID, model.StageWorkOrder)

	const approvers = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < approvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
				StageID: open.ID, Decision: model.DecisionApprove, Form: singleTrack("a"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrStageAlreadyDecided):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, approvers-1, conflicts)
	assert.EqualValues(t, 1, f.count(t, &model.SalesLead{}, ""))
}

func TestApprovalService_Errors(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("NilRequest", func(t *testing.T) {
		_, err := f.approvals.Submit(f.ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("UnknownDecision", func(t *testing.T) {
		_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{StageID: uuid.New(), Decision: "maybe"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("StageNotFound", func(t *testing.T) {
		_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{StageID: uuid.New(), Decision: model.DecisionReject})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DecisionRowIsNotOpen", func(t *testing.T) {
		wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{})
		result, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
			StageID: f.openStage(t, wo.ID, model.StageWorkOrder).ID, Decision: model.DecisionReject,
		})
		require.NoError(t, err)

		_, err = f.approvals.Submit(f.ctx, &model.ApprovalRequest{StageID: result.Decision.ID, Decision: model.DecisionReject})
		assert.ErrorIs(t, err, ErrStageNotOpen)
	})

	t.Run("UnreachableNextStage", func(t *testing.T) {
		wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{})
		_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
			StageID:   f.openStage(t, wo.ID, model.StageWorkOrder).ID,
			Decision:  model.DecisionApprove,
			NextStage: model.StageQuotations,
			Form:      singleTrack("a"),
		})
		var verr *routing.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, routing.ReasonInvalidNextStage, verr.Reason)
	})

	t.Run("MissingAssignee", func(t *testing.T) {
		wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{})
		_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
			StageID:  f.openStage(t, wo.ID, model.StageWorkOrder).ID,
			Decision: model.DecisionApprove,
			Form:     model.ApprovalForm{DueDate: "2025-01-10"},
		})
		var verr *routing.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, routing.ReasonMissingAssignee, verr.Reason)
	})
}

func TestApprovalService_PublishesNotification(t *testing.T) {
	f := newFixture(t, nil)
	wo := f.createWorkOrder(t, model.CreateWorkOrderDTO{})
	open := f.openStage(t, wo.ID, model.StageWorkOrder)

	_, err := f.approvals.Submit(f.ctx, &model.ApprovalRequest{
		StageID: open.ID, Decision: model.DecisionApprove, ApprovedBy: "manager", Form: singleTrack("a"),
	})
	require.NoError(t, err)

	select {
	case n := <-f.notify:
		assert.Equal(t, open.ID, n.StageID)
		assert.Equal(t, wo.ID, n.WorkOrderID)
		assert.Equal(t, model.DecisionApprove, n.Decision)
		assert.Equal(t, "manager", n.ActedBy)
		assert.Equal(t, model.StageSalesLead, *n.Result.NextStage)
	default:
		t.Fatal("expected a decision notification")
	}
}

func TestPreviewRouting(t *testing.T) {
	resp := PreviewRouting(model.RoutingPreviewRequest{
		Products:       products("A", "B"),
		ProductRouting: map[string]model.Routing{"A": model.RoutingRFQ, "B": model.RoutingDirectQuotation},
		ItemMappings:   map[string]string{"B": "INV-B"},
		Form: model.ApprovalForm{
			RFQAssignee: "r", RFQDueDate: "2025-01-10", QuotationAssignee: "q",
		},
	})

	assert.True(t, resp.Routing.IsMixed)
	assert.Equal(t, model.StageRFQ, resp.Routing.NextStage)
	assert.False(t, resp.Valid)
	assert.Equal(t, "Please set a Quotation due date.", resp.Error)
}
