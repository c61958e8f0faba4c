// Package routing holds the pure decision logic behind a Technical Recommendation
// approval: per-item routing, aggregation into a next stage, and validation.
// Nothing in this package performs I/O, so callers may evaluate it on every edit.
package routing

import (
	"fmt"

	"github.com/salesops/workflow/internal/workflow/model"
)

// MixedDisclaimer is shown whenever some items go to RFQ and others skip to Quotation.
const MixedDisclaimer = "RFQ items are processed first. Once the RFQ is approved, all items " +
	"(RFQ and direct) converge into a single quotation."

// Aggregate is the overall routing decision derived from per-item routing.
type Aggregate struct {
	Total       int
	RFQCount    int
	DirectCount int
	AllRFQ      bool
	AllDirect   bool
	IsMixed     bool
	NextStage   model.Stage // Empty until every item agrees or the routing is mixed
}

// AggregateRouting counts routing values over productRouting and derives the next stage.
// total is the number of products on the recommendation.
func AggregateRouting(productRouting map[string]model.Routing, total int) Aggregate {
	agg := Aggregate{Total: total}
	for _, r := range productRouting {
		switch r {
		case model.RoutingRFQ:
			agg.RFQCount++
		case model.RoutingDirectQuotation:
			agg.DirectCount++
		}
	}

	agg.AllRFQ = total > 0 && agg.RFQCount == total
	agg.AllDirect = total > 0 && agg.DirectCount == total
	agg.IsMixed = agg.RFQCount > 0 && agg.DirectCount > 0

	switch {
	case agg.AllRFQ || agg.IsMixed:
		agg.NextStage = model.StageRFQ
	case agg.AllDirect:
		agg.NextStage = model.StageQuotations
	}
	return agg
}

// Message is the human-readable routing summary. It is empty while no decision exists.
func (a Aggregate) Message() string {
	switch {
	case a.AllRFQ:
		return fmt.Sprintf("All %d %s will be routed to RFQ.", a.Total, plural(a.Total))
	case a.AllDirect:
		return fmt.Sprintf("All %d %s will go directly to Quotation.", a.Total, plural(a.Total))
	case a.IsMixed:
		return fmt.Sprintf("Mixed routing: %d %s to RFQ, %d %s directly to Quotation.",
			a.RFQCount, plural(a.RFQCount), a.DirectCount, plural(a.DirectCount))
	}
	return ""
}

// Disclaimer explains convergence for mixed routing and is empty otherwise.
func (a Aggregate) Disclaimer() string {
	if a.IsMixed {
		return MixedDisclaimer
	}
	return ""
}

// Summary converts the aggregate into its API representation.
func (a Aggregate) Summary() model.RoutingSummary {
	return model.RoutingSummary{
		Total:       a.Total,
		RFQCount:    a.RFQCount,
		DirectCount: a.DirectCount,
		AllRFQ:      a.AllRFQ,
		AllDirect:   a.AllDirect,
		IsMixed:     a.IsMixed,
		NextStage:   a.NextStage,
		Message:     a.Message(),
		Disclaimer:  a.Disclaimer(),
	}
}

func plural(n int) string {
	if n == 1 {
		return "product"
	}
	return "products"
}
