package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStage is one append-only history row for a work order. A row is written when a
// record enters a stage (Pending) and another when an approver decides it (Approved/Rejected).
type WorkflowStage struct {
	BaseModel
	WorkOrderID uuid.UUID   `gorm:"type:uuid;column:wo_id;not null;index" json:"woId"`
	StageName   Stage       `gorm:"type:varchar(50);column:stage_name;not null" json:"stageName"`
	Status      StageStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	RecordID    *uuid.UUID  `gorm:"type:uuid;column:record_id" json:"recordId,omitempty"`        // Stage record that entered this stage (sales lead, RFQ, account for NAEF...)
	AssignedTo  string      `gorm:"type:varchar(255);column:assigned_to" json:"assignedTo"`      // User ID responsible for the stage
	DueDate     *time.Time  `gorm:"type:date;column:due_date" json:"dueDate,omitempty"`          // Due date for the assignee
	FromTime    string      `gorm:"type:varchar(10);column:from_time" json:"fromTime,omitempty"` // Optional schedule window start (HH:MM)
	ToTime      string      `gorm:"type:varchar(10);column:to_time" json:"toTime,omitempty"`     // Optional schedule window end (HH:MM)
	Remarks     string      `gorm:"type:text;column:remarks" json:"remarks"`                     // Free-form remarks
	NextStage   *Stage      `gorm:"type:varchar(50);column:next_stage" json:"nextStage"`         // Null on rejection and on entry rows
	ActedBy     string      `gorm:"type:varchar(255);column:acted_by" json:"actedBy,omitempty"`  // Approver who recorded the decision
	DecidedBy   *uuid.UUID  `gorm:"type:uuid;column:decided_by" json:"decidedBy,omitempty"`      // Decision row that closed this open row
	RoutingNote string      `gorm:"type:text;column:routing_note" json:"routingNote,omitempty"`  // Routing summary captured on TR decisions
}

func (ws *WorkflowStage) TableName() string {
	return "workflow_stages"
}

// WorkflowStageFilter is used when listing history rows.
type WorkflowStageFilter struct {
	WorkOrderID *uuid.UUID
	StageName   *Stage
	OpenOnly    bool
	Offset      *int
	Limit       *int
}

// WorkflowStageListResult is a page of history rows.
type WorkflowStageListResult struct {
	TotalCount int64           `json:"totalCount"`
	Items      []WorkflowStage `json:"items"`
	Offset     int             `json:"offset"`
	Limit      int             `json:"limit"`
}
