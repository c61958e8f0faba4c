package service

import (
	"fmt"
	"slices"

	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/internal/workflow/routing"
)

// StageTransition is everything the next-stage table looks at.
type StageTransition struct {
	Current      model.Stage
	Chosen       model.Stage       // Approver-chosen successor, honoured for Work Order and Sales Lead
	Routing      routing.Aggregate // Only read for Technical Recommendation
	IsNewAccount bool              // Only read for RFQ
}

// chosenSuccessors lists the successors an approver may pick, default first.
var chosenSuccessors = map[model.Stage][]model.Stage{
	model.StageWorkOrder: {model.StageSalesLead},
	model.StageSalesLead: {model.StageTechnicalRecommendation},
}

// ResolveNextStage applies the stage transition table. First match wins:
//
//	Work Order               -> approver choice, default Sales Lead
//	Sales Lead               -> approver choice, default Technical Recommendation
//	Technical Recommendation -> routing aggregate (RFQ for all-RFQ or mixed, Quotations for all-direct)
//	RFQ                      -> NAEF for a new account, otherwise Quotations
//	NAEF                     -> Quotations
//	anything else            -> the current stage
//
// The returned error is always a *routing.ValidationError.
func ResolveNextStage(t StageTransition) (model.Stage, error) {
	switch t.Current {
	case model.StageWorkOrder, model.StageSalesLead:
		allowed := chosenSuccessors[t.Current]
		if t.Chosen == "" {
			return allowed[0], nil
		}
		if !slices.Contains(allowed, t.Chosen) {
			return "", &routing.ValidationError{
				Reason:  routing.ReasonInvalidNextStage,
				Message: fmt.Sprintf("%s cannot be approved into %s.", t.Current, t.Chosen),
			}
		}
		return t.Chosen, nil

	case model.StageTechnicalRecommendation:
		if t.Routing.NextStage == "" {
			return "", &routing.ValidationError{
				Reason:  routing.ReasonUnrouted,
				Message: "Please select a routing for every product.",
			}
		}
		return t.Routing.NextStage, nil

	case model.StageRFQ:
		if t.IsNewAccount {
			return model.StageNAEF, nil
		}
		return model.StageQuotations, nil

	case model.StageNAEF:
		return model.StageQuotations, nil
	}

	return t.Current, nil
}

// routingOutcome labels a routing summary for metrics.
func routingOutcome(agg model.RoutingSummary) string {
	switch {
	case agg.IsMixed:
		return "mixed"
	case agg.AllRFQ:
		return "all_rfq"
	case agg.AllDirect:
		return "all_direct"
	}
	return "undecided"
}
