package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is a line item on a Technical Recommendation.
type Product struct {
	ID              string  `json:"id"`
	ProductName     string  `json:"productName"`
	CorrectedPartNo string  `json:"correctedPartNo,omitempty"`
	Description     string  `json:"description,omitempty"`
	Quantity        float64 `json:"quantity,omitempty"`
	Routing         Routing `json:"routing,omitempty"`         // Recorded when the recommendation is approved
	IsNewItem       bool    `json:"isNewItem,omitempty"`       // New/unmapped inventory item, must go through RFQ
	InventoryItemID string  `json:"inventoryItemId,omitempty"` // Mapped external inventory item
}

// StageItem is a product carried into an RFQ or Quotation.
type StageItem struct {
	ProductID       string  `json:"productId"`
	ProductName     string  `json:"productName"`
	CorrectedPartNo string  `json:"correctedPartNo,omitempty"`
	Description     string  `json:"description,omitempty"`
	Quantity        float64 `json:"quantity,omitempty"`
	Routing         Routing `json:"routing"`                   // Track the item arrived through
	InventoryItemID string  `json:"inventoryItemId,omitempty"` // Set for direct-quotation items
}

// Assignment holds the assignee fields every stage record carries.
type Assignment struct {
	AssignedTo string     `gorm:"type:varchar(255);column:assigned_to" json:"assignedTo"`
	DueDate    *time.Time `gorm:"type:date;column:due_date" json:"dueDate,omitempty"`
	FromTime   string     `gorm:"type:varchar(10);column:from_time" json:"fromTime,omitempty"`
	ToTime     string     `gorm:"type:varchar(10);column:to_time" json:"toTime,omitempty"`
	Remarks    string     `gorm:"type:text;column:remarks" json:"remarks"`
}

// SalesLead is created when a work order is approved.
type SalesLead struct {
	BaseModel
	Assignment
	WorkOrderID uuid.UUID `gorm:"type:uuid;column:wo_id;not null;index" json:"woId"`
}

func (sl *SalesLead) TableName() string {
	return "sales_leads"
}

// TechnicalRecommendation carries the products an approver routes.
type TechnicalRecommendation struct {
	BaseModel
	Assignment
	WorkOrderID uuid.UUID  `gorm:"type:uuid;column:wo_id;not null;index" json:"woId"`
	SalesLeadID *uuid.UUID `gorm:"type:uuid;column:sales_lead_id" json:"salesLeadId,omitempty"`
	Products    []Product  `gorm:"type:jsonb;column:products;serializer:json;not null" json:"products"`
}

func (tr *TechnicalRecommendation) TableName() string {
	return "technical_recommendations"
}

// RFQ gathers vendor quotations for items that are not catalog-priced.
type RFQ struct {
	BaseModel
	Assignment
	WorkOrderID               uuid.UUID   `gorm:"type:uuid;column:wo_id;not null;index" json:"woId"`
	TechnicalRecommendationID *uuid.UUID  `gorm:"type:uuid;column:technical_recommendation_id;index" json:"technicalRecommendationId,omitempty"`
	Items                     []StageItem `gorm:"type:jsonb;column:items;serializer:json;not null" json:"items"`
}

func (r *RFQ) TableName() string {
	return "rfqs"
}

// QuotationStatus tracks whether a quotation still waits for RFQ items to converge.
type QuotationStatus string

const (
	QuotationStatusAwaitingRFQ QuotationStatus = "Awaiting RFQ" // Direct items parked until the RFQ track is approved
	QuotationStatusPending     QuotationStatus = "Pending"      // All items present, quotation work can start
)

// Quotation is the final stage record.
type Quotation struct {
	BaseModel
	Assignment
	WorkOrderID               uuid.UUID       `gorm:"type:uuid;column:wo_id;not null;index" json:"woId"`
	TechnicalRecommendationID *uuid.UUID      `gorm:"type:uuid;column:technical_recommendation_id;index" json:"technicalRecommendationId,omitempty"`
	RFQID                     *uuid.UUID      `gorm:"type:uuid;column:rfq_id" json:"rfqId,omitempty"`
	Status                    QuotationStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	Items                     []StageItem     `gorm:"type:jsonb;column:items;serializer:json;not null" json:"items"`
}

func (q *Quotation) TableName() string {
	return "quotations"
}

// ItemMapping associates a recommended product with an external inventory item.
type ItemMapping struct {
	BaseModel
	TechnicalRecommendationID uuid.UUID `gorm:"type:uuid;column:technical_recommendation_id;not null;uniqueIndex:idx_item_mapping_product" json:"technicalRecommendationId"`
	ProductID                 string    `gorm:"type:varchar(100);column:product_id;not null;uniqueIndex:idx_item_mapping_product" json:"productId"`
	InventoryItemID           string    `gorm:"type:varchar(100);column:kristem_item_id;not null" json:"kristemItemId"`
}

func (im *ItemMapping) TableName() string {
	return "item_mappings"
}

// UpsertItemMappingsDTO is the request body for storing mappings on a recommendation.
type UpsertItemMappingsDTO struct {
	Mappings map[string]string `json:"mappings"` // productId -> kristemItemId; empty value removes the mapping
}

// CreateTechnicalRecommendationDTO seeds a recommendation directly (used by intake tooling and tests).
type CreateTechnicalRecommendationDTO struct {
	WorkOrderID uuid.UUID  `json:"woId"`
	SalesLeadID *uuid.UUID `json:"salesLeadId,omitempty"`
	Products    []Product  `json:"products"`
	AssignedTo  string     `json:"assignedTo"`
	Remarks     string     `json:"remarks"`
}
