package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage identifies one step of the sales pipeline.
type Stage string

const (
	StageWorkOrder               Stage = "Work Order"
	StageSalesLead               Stage = "Sales Lead"
	StageTechnicalRecommendation Stage = "Technical Recommendation"
	StageRFQ                     Stage = "RFQ"
	StageNAEF                    Stage = "NAEF"
	StageQuotations              Stage = "Quotations"
)

// Stages lists the catalog in pipeline order.
var Stages = []Stage{
	StageWorkOrder,
	StageSalesLead,
	StageTechnicalRecommendation,
	StageRFQ,
	StageNAEF,
	StageQuotations,
}

// stageAliases maps every accepted spelling (after key normalization) to its canonical stage.
var stageAliases = map[string]Stage{
	"workorder":                StageWorkOrder,
	"workorders":               StageWorkOrder,
	"wo":                       StageWorkOrder,
	"saleslead":                StageSalesLead,
	"salesleads":               StageSalesLead,
	"sl":                       StageSalesLead,
	"technicalrecommendation":  StageTechnicalRecommendation,
	"technicalrecommendations": StageTechnicalRecommendation,
	"technical":                StageTechnicalRecommendation,
	"technicals":               StageTechnicalRecommendation,
	"tr":                       StageTechnicalRecommendation,
	"rfq":                      StageRFQ,
	"rfqs":                     StageRFQ,
	"naef":                     StageNAEF,
	"quotation":                StageQuotations,
	"quotations":               StageQuotations,
}

// stageKey lowercases s and drops separators so "Sales Lead", "sales_lead" and
// "sales-lead" collapse to the same key.
func stageKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseStage normalizes any known spelling of a stage name into its canonical Stage.
func ParseStage(s string) (Stage, error) {
	if stage, ok := stageAliases[stageKey(s)]; ok {
		return stage, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// IsValid reports whether s is one of the canonical stages.
func (s Stage) IsValid() bool {
	for _, stage := range Stages {
		if stage == s {
			return true
		}
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}

// UnmarshalJSON accepts any known spelling and stores the canonical value.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("stage must be a string: %w", err)
	}
	if raw == "" {
		*s = ""
		return nil
	}
	stage, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = stage
	return nil
}

// StageStatus is the status recorded on a WorkflowStage history row.
type StageStatus string

const (
	StageStatusPending    StageStatus = "Pending"
	StageStatusInProgress StageStatus = "In Progress"
	StageStatusSubmitted  StageStatus = "Submitted"
	StageStatusApproved   StageStatus = "Approved"
	StageStatusRejected   StageStatus = "Rejected"
)

var statusAliases = map[string]StageStatus{
	"pending":    StageStatusPending,
	"inprogress": StageStatusInProgress,
	"submitted":  StageStatusSubmitted,
	"approved":   StageStatusApproved,
	"rejected":   StageStatusRejected,
}

// ParseStageStatus tolerates case and separator variants ("In Progress", "in_progress", "INPROGRESS").
func ParseStageStatus(s string) (StageStatus, error) {
	if status, ok := statusAliases[stageKey(s)]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown stage status %q", s)
}

// IsOpen reports whether a row with this status still awaits an approver's decision.
func (s StageStatus) IsOpen() bool {
	switch s {
	case StageStatusPending, StageStatusInProgress, StageStatusSubmitted:
		return true
	}
	return false
}

// UnmarshalJSON accepts any tolerated spelling and stores the canonical value.
func (s *StageStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("status must be a string: %w", err)
	}
	if raw == "" {
		*s = ""
		return nil
	}
	status, err := ParseStageStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}
