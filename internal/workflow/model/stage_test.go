package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		input string
		want  Stage
	}{
		{"Sales Lead", StageSalesLead},
		{"sales_lead", StageSalesLead},
		{"salesleads", StageSalesLead},
		{"SALES-LEAD", StageSalesLead},
		{"technical_recommendation", StageTechnicalRecommendation},
		{"technicals", StageTechnicalRecommendation},
		{"rfq", StageRFQ},
		{"RFQs", StageRFQ},
		{"naef", StageNAEF},
		{"quotation", StageQuotations},
		{"Quotations", StageQuotations},
		{"work_order", StageWorkOrder},
		{"workorders", StageWorkOrder},
		{"  Work Order  ", StageWorkOrder},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStage(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}

	for _, bad := range []string{"", "billing", "sales lead 2"} {
		_, err := ParseStage(bad)
		assert.Error(t, err, bad)
	}
	assert.False(t, Stage("sales_lead").IsValid())
}

func TestParseStageStatus(t *testing.T) {
	for _, input := range []string{"In Progress", "in_progress", "inprogress", "IN PROGRESS"} {
		got, err := ParseStageStatus(input)
		require.NoError(t, err, input)
		assert.Equal(t, StageStatusInProgress, got)
	}

	_, err := ParseStageStatus("done")
	assert.Error(t, err)
}

func TestStageStatus_IsOpen(t *testing.T) {
	assert.True(t, StageStatusPending.IsOpen())
	assert.True(t, StageStatusInProgress.IsOpen())
	assert.True(t, StageStatusSubmitted.IsOpen())
	assert.False(t, StageStatusApproved.IsOpen())
	assert.False(t, StageStatusRejected.IsOpen())
}

func TestStage_UnmarshalJSON(t *testing.T) {
	var row struct {
		Stage  Stage       `json:"stage"`
		Status StageStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"stage":"technical_recommendation","status":"in_progress"}`), &row))
	assert.Equal(t, StageTechnicalRecommendation, row.Stage)
	assert.Equal(t, StageStatusInProgress, row.Status)

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"Technical Recommendation","status":"In Progress"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"stage":"billing"}`), &row))
	assert.Error(t, json.Unmarshal([]byte(`{"stage":7}`), &row))
}

func TestParseRouting(t *testing.T) {
	tests := []struct {
		input   string
		want    Routing
		wantErr bool
	}{
		{"", RoutingUnrouted, false},
		{"  ", RoutingUnrouted, false},
		{"rfq", RoutingRFQ, false},
		{"RFQ", RoutingRFQ, false},
		{"direct_quotation", RoutingDirectQuotation, false},
		{"Direct-Quotation", RoutingDirectQuotation, false},
		{"directquotation", RoutingDirectQuotation, false},
		{"direct", RoutingDirectQuotation, false},
		{"quotation", "", true},
		{"email", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRouting(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouting_UnmarshalJSON(t *testing.T) {
	var r Routing
	require.NoError(t, json.Unmarshal([]byte(`"Direct"`), &r))
	assert.Equal(t, RoutingDirectQuotation, r)

	require.NoError(t, json.Unmarshal([]byte(`"RFQ"`), &r))
	assert.Equal(t, RoutingRFQ, r)

	require.NoError(t, json.Unmarshal([]byte(`""`), &r))
	assert.Equal(t, RoutingUnrouted, r)

	assert.Error(t, json.Unmarshal([]byte(`"fax"`), &r))
	assert.Error(t, json.Unmarshal([]byte(`1`), &r))
}

func TestApprovalRequest_UnmarshalJSON(t *testing.T) {
	var req ApprovalRequest
	body := `{
		"modalType": "Approved",
		"approvedBy": "manager",
		"productRouting": {"p1": "RFQ", "p2": "direct-quotation", "p3": ""}
	}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, DecisionApprove, req.Decision)
	assert.Equal(t, map[string]Routing{
		"p1": RoutingRFQ,
		"p2": RoutingDirectQuotation,
		"p3": RoutingUnrouted,
	}, req.ProductRouting)

	assert.Error(t, json.Unmarshal([]byte(`{"modalType":"maybe"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"productRouting":{"p1":"email"}}`), &req))
}
