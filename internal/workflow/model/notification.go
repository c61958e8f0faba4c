package model

import (
	"time"

	"github.com/google/uuid"
)

// DecisionNotification is published after an approval decision commits.
type DecisionNotification struct {
	WorkOrderID uuid.UUID      `json:"woId"`
	StageID     uuid.UUID      `json:"stageId"` // Open row that was decided
	Stage       Stage          `json:"stage"`
	Decision    Decision       `json:"decision"`
	ActedBy     string         `json:"actedBy,omitempty"`
	DecidedAt   time.Time      `json:"decidedAt"`
	Result      ApprovalResult `json:"result"`
}
