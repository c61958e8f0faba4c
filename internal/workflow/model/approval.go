package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Decision is the approver's action on an open stage.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// UnmarshalJSON accepts "approve"/"approved" and "reject"/"rejected" in any case.
func (d *Decision) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decision must be a string: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved":
		*d = DecisionApprove
	case "reject", "rejected":
		*d = DecisionReject
	default:
		return fmt.Errorf("unknown decision %q", raw)
	}
	return nil
}

// ApprovalForm carries the assignee fields entered with a decision. The single-track
// fields apply unless routing is mixed, in which case the RFQ and Quotation tracks
// each need their own assignee and due date.
type ApprovalForm struct {
	Assignee string `json:"assignee"`
	DueDate  string `json:"dueDate"`
	FromTime string `json:"fromTime,omitempty"`
	ToTime   string `json:"toTime,omitempty"`
	Remarks  string `json:"remarks,omitempty"`

	RFQAssignee string `json:"rfqAssignee,omitempty"`
	RFQDueDate  string `json:"rfqDueDate,omitempty"`
	RFQFromTime string `json:"rfqFromTime,omitempty"`
	RFQToTime   string `json:"rfqToTime,omitempty"`
	RFQRemarks  string `json:"rfqRemarks,omitempty"`

	QuotationAssignee string `json:"quotationAssignee,omitempty"`
	QuotationDueDate  string `json:"quotationDueDate,omitempty"`
	QuotationFromTime string `json:"quotationFromTime,omitempty"`
	QuotationToTime   string `json:"quotationToTime,omitempty"`
	QuotationRemarks  string `json:"quotationRemarks,omitempty"`
}

// Track is one assignee/due-date set extracted from an ApprovalForm.
type Track struct {
	Assignee string
	DueDate  string
	FromTime string
	ToTime   string
	Remarks  string
}

// Single returns the single-track fields.
func (f ApprovalForm) Single() Track {
	return Track{Assignee: f.Assignee, DueDate: f.DueDate, FromTime: f.FromTime, ToTime: f.ToTime, Remarks: f.Remarks}
}

// RFQTrack returns the RFQ half of a split form.
func (f ApprovalForm) RFQTrack() Track {
	return Track{Assignee: f.RFQAssignee, DueDate: f.RFQDueDate, FromTime: f.RFQFromTime, ToTime: f.RFQToTime, Remarks: f.RFQRemarks}
}

// QuotationTrack returns the Quotation half of a split form.
func (f ApprovalForm) QuotationTrack() Track {
	return Track{Assignee: f.QuotationAssignee, DueDate: f.QuotationDueDate, FromTime: f.QuotationFromTime, ToTime: f.QuotationToTime, Remarks: f.QuotationRemarks}
}

// ApprovalRequest is the body of POST /api/workflow-stages/{id}/decision.
type ApprovalRequest struct {
	StageID        uuid.UUID          `json:"-"`                        // Open WorkflowStage row being decided (from path)
	Decision       Decision           `json:"modalType"`                // approve | reject
	ApprovedBy     string             `json:"approvedBy"`               // Acting approver
	NextStage      Stage              `json:"nextStage,omitempty"`      // Approver-chosen successor for Work Order / Sales Lead
	ProductRouting map[string]Routing `json:"productRouting,omitempty"` // productId -> routing (Technical Recommendation only)
	NewItemFlags   map[string]bool    `json:"newItemFlags,omitempty"`   // productId -> isNewItem
	ItemMappings   map[string]string  `json:"itemMappings,omitempty"`   // productId -> kristemItemId, merged over stored mappings
	Form           ApprovalForm       `json:"form"`
}

// ApprovalResult describes what a decision wrote.
type ApprovalResult struct {
	Decision      WorkflowStage   `json:"decision"`            // History row appended for the decided stage
	NextStage     *Stage          `json:"nextStage"`           // Null on rejection
	EnteredStages []WorkflowStage `json:"enteredStages"`       // Pending rows opened for the next stage(s)
	Routing       *RoutingSummary `json:"routing,omitempty"`   // Present on Technical Recommendation approvals
	CreatedIDs    []uuid.UUID     `json:"createdRecordIds"`    // Stage records created or updated
	Converged     bool            `json:"converged,omitempty"` // RFQ items merged into a waiting quotation
}

// RoutingSummary is the serialized output of the routing aggregator.
type RoutingSummary struct {
	Total       int    `json:"total"`
	RFQCount    int    `json:"rfqCount"`
	DirectCount int    `json:"directCount"`
	AllRFQ      bool   `json:"allRfq"`
	AllDirect   bool   `json:"allDirect"`
	IsMixed     bool   `json:"isMixed"`
	NextStage   Stage  `json:"nextStage,omitempty"`
	Message     string `json:"message,omitempty"`
	Disclaimer  string `json:"disclaimer,omitempty"`
}

// RoutingPreviewRequest is the body of POST /api/approvals/preview.
type RoutingPreviewRequest struct {
	Products       []Product          `json:"products"`
	ProductRouting map[string]Routing `json:"productRouting"`
	NewItemFlags   map[string]bool    `json:"newItemFlags"`
	ItemMappings   map[string]string  `json:"itemMappings"`
	Form           ApprovalForm       `json:"form"`
}

// RoutingPreviewResponse returns the aggregate and the first validation failure, if any.
type RoutingPreviewResponse struct {
	Routing RoutingSummary `json:"routing"`
	Valid   bool           `json:"valid"`
	Error   string         `json:"error,omitempty"`
}
