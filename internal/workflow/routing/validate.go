package routing

import (
	"fmt"
	"strings"

	"github.com/salesops/workflow/internal/workflow/model"
)

// Reasons classify validation failures for metrics and tests.
const (
	ReasonNoProducts       = "no_products"
	ReasonUnrouted         = "unrouted"
	ReasonNewItemDirect    = "new_item_direct_quotation"
	ReasonUnmappedDirect   = "unmapped_direct_quotation"
	ReasonMissingAssignee  = "missing_assignee"
	ReasonMissingDueDate   = "missing_due_date"
	ReasonInvalidDueDate   = "invalid_due_date"
	ReasonInvalidNextStage = "invalid_next_stage"
)

// ValidationError is a correctable problem with an approval. Message is shown to the
// approver as-is.
type ValidationError struct {
	Reason    string
	ProductID string
	Message   string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(reason, productID, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, ProductID: productID, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the draft and returns the first failure, or nil.
func (d Draft) Validate() *ValidationError {
	if len(d.Products) == 0 {
		return invalid(ReasonNoProducts, "", "Add at least one product before routing the recommendation.")
	}

	unrouted := 0
	for _, p := range d.Products {
		if d.Routing[p.ID] == model.RoutingUnrouted {
			unrouted++
		}
	}
	if unrouted > 0 {
		return invalid(ReasonUnrouted, "", "Please select a routing for every product (%d %s not routed).",
			unrouted, plural(unrouted))
	}

	for _, p := range d.Products {
		if d.NewItems[p.ID] && d.Routing[p.ID] == model.RoutingDirectQuotation {
			return invalid(ReasonNewItemDirect, p.ID,
				"%q is a new item and must be routed to RFQ, not directly to Quotation.", displayName(p))
		}
	}

	for _, p := range d.Products {
		if d.Routing[p.ID] == model.RoutingDirectQuotation && d.Mappings[p.ID] == "" {
			return invalid(ReasonUnmappedDirect, p.ID,
				"%q must be mapped to an inventory item before it can go directly to Quotation.", displayName(p))
		}
	}

	if err := ValidateForm(d.Form, d.Aggregate().IsMixed); err != nil {
		return err
	}
	return nil
}

// ValidateForm checks the assignee fields alone. Mixed routing needs both tracks filled;
// otherwise the single-track assignee and due date are required.
func ValidateForm(form model.ApprovalForm, mixed bool) *ValidationError {
	if mixed {
		switch {
		case blank(form.RFQAssignee):
			return invalid(ReasonMissingAssignee, "", "Please select an RFQ assignee.")
		case blank(form.QuotationAssignee):
			return invalid(ReasonMissingAssignee, "", "Please select a Quotation assignee.")
		case blank(form.RFQDueDate):
			return invalid(ReasonMissingDueDate, "", "Please set an RFQ due date.")
		case blank(form.QuotationDueDate):
			return invalid(ReasonMissingDueDate, "", "Please set a Quotation due date.")
		}
		return nil
	}

	switch {
	case blank(form.Assignee):
		return invalid(ReasonMissingAssignee, "", "Please select an assignee.")
	case blank(form.DueDate):
		return invalid(ReasonMissingDueDate, "", "Please set a due date.")
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func displayName(p model.Product) string {
	if p.ProductName != "" {
		return p.ProductName
	}
	if p.CorrectedPartNo != "" {
		return p.CorrectedPartNo
	}
	return p.ID
}
