package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salesops/workflow/internal/workflow/model"
)

// ItemCatalog answers whether an external inventory item exists.
type ItemCatalog interface {
	StockExists(ctx context.Context, itemID string) (bool, error)
}

// StageRecordService stores the records created as a work order moves through the pipeline:
// sales leads, technical recommendations, RFQs, quotations and item mappings.
type StageRecordService struct {
	db      *gorm.DB
	stages  WorkflowStageRepository
	catalog ItemCatalog
}

func NewStageRecordService(db *gorm.DB, stages WorkflowStageRepository, catalog ItemCatalog) *StageRecordService {
	return &StageRecordService{db: db, stages: stages, catalog: catalog}
}

// firstByID loads a record by primary key, mapping a miss to ErrNotFound.
func firstByID[T any](ctx context.Context, tx *gorm.DB, kind string, id uuid.UUID) (*T, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: %s ID cannot be nil", ErrInvalidInput, kind)
	}
	var record T
	if err := tx.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve %s: %w", kind, err)
	}
	return &record, nil
}

func (s *StageRecordService) CreateSalesLeadInTx(ctx context.Context, tx *gorm.DB, lead *model.SalesLead) error {
	if err := tx.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("failed to create sales lead: %w", err)
	}
	return nil
}

func (s *StageRecordService) GetSalesLeadByID(ctx context.Context, id uuid.UUID) (*model.SalesLead, error) {
	return firstByID[model.SalesLead](ctx, s.db, "sales lead", id)
}

// CreateTechnicalRecommendation records a recommendation outside the approval flow and
// opens its Pending stage row so it shows up in the approvals queue.
func (s *StageRecordService) CreateTechnicalRecommendation(ctx context.Context, req *model.CreateTechnicalRecommendationDTO) (*model.TechnicalRecommendation, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: create request cannot be nil", ErrInvalidInput)
	}
	products, err := normalizeProducts(req.Products)
	if err != nil {
		return nil, err
	}

	tr := &model.TechnicalRecommendation{
		Assignment:  model.Assignment{AssignedTo: req.AssignedTo, Remarks: req.Remarks},
		WorkOrderID: req.WorkOrderID,
		SalesLeadID: req.SalesLeadID,
		Products:    products,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := firstByID[model.WorkOrder](ctx, tx, "work order", req.WorkOrderID); err != nil {
			return err
		}
		if err := s.CreateTechnicalRecommendationInTx(ctx, tx, tr); err != nil {
			return err
		}
		entry := model.WorkflowStage{
			WorkOrderID: tr.WorkOrderID,
			StageName:   model.StageTechnicalRecommendation,
			Status:      model.StageStatusPending,
			RecordID:    &tr.ID,
			AssignedTo:  tr.AssignedTo,
			Remarks:     tr.Remarks,
		}
		_, err := s.stages.CreateWorkflowStagesInTx(ctx, tx, []model.WorkflowStage{entry})
		return err
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func (s *StageRecordService) CreateTechnicalRecommendationInTx(ctx context.Context, tx *gorm.DB, tr *model.TechnicalRecommendation) error {
	if tr.Products == nil {
		tr.Products = []model.Product{}
	}
	if err := tx.WithContext(ctx).Create(tr).Error; err != nil {
		return fmt.Errorf("failed to create technical recommendation: %w", err)
	}
	return nil
}

func (s *StageRecordService) GetTechnicalRecommendationByID(ctx context.Context, id uuid.UUID) (*model.TechnicalRecommendation, error) {
	return s.GetTechnicalRecommendationByIDInTx(ctx, s.db, id)
}

func (s *StageRecordService) GetTechnicalRecommendationByIDInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.TechnicalRecommendation, error) {
	return firstByID[model.TechnicalRecommendation](ctx, tx, "technical recommendation", id)
}

// ReplaceProducts sets the recommended products. Products without an ID get one.
func (s *StageRecordService) ReplaceProducts(ctx context.Context, id uuid.UUID, products []model.Product) (*model.TechnicalRecommendation, error) {
	normalized, err := normalizeProducts(products)
	if err != nil {
		return nil, err
	}

	var tr *model.TechnicalRecommendation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tr, err = s.GetTechnicalRecommendationByIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.requireOpenRecommendationInTx(ctx, tx, tr); err != nil {
			return err
		}
		tr.Products = normalized
		return s.SaveProductsInTx(ctx, tx, tr)
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// requireOpenRecommendationInTx rejects edits once the recommendation has been decided,
// since its products have already been copied into RFQ and quotation items.
func (s *StageRecordService) requireOpenRecommendationInTx(ctx context.Context, tx *gorm.DB, tr *model.TechnicalRecommendation) error {
	open, err := s.stages.HasOpenWorkflowStageForRecordInTx(ctx, tx, model.StageTechnicalRecommendation, tr.ID)
	if err != nil {
		return err
	}
	if !open {
		return fmt.Errorf("technical recommendation %s has no open approval: %w", tr.ID, ErrStageNotOpen)
	}
	return nil
}

func (s *StageRecordService) SaveProductsInTx(ctx context.Context, tx *gorm.DB, tr *model.TechnicalRecommendation) error {
	if err := tx.WithContext(ctx).Model(tr).Select("products", "updated_at").Updates(tr).Error; err != nil {
		return fmt.Errorf("failed to save products for technical recommendation %s: %w", tr.ID, err)
	}
	return nil
}

func normalizeProducts(products []model.Product) ([]model.Product, error) {
	out := make([]model.Product, len(products))
	seen := make(map[string]bool, len(products))
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate product ID %q", ErrInvalidInput, p.ID)
		}
		seen[p.ID] = true
		out[i] = p
	}
	return out, nil
}

func (s *StageRecordService) CreateRFQInTx(ctx context.Context, tx *gorm.DB, rfq *model.RFQ) error {
	if err := tx.WithContext(ctx).Create(rfq).Error; err != nil {
		return fmt.Errorf("failed to create RFQ: %w", err)
	}
	return nil
}

func (s *StageRecordService) GetRFQByID(ctx context.Context, id uuid.UUID) (*model.RFQ, error) {
	return s.GetRFQByIDInTx(ctx, s.db, id)
}

func (s *StageRecordService) GetRFQByIDInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.RFQ, error) {
	return firstByID[model.RFQ](ctx, tx, "RFQ", id)
}

// GetLatestRFQForWorkOrderInTx returns the most recent RFQ raised for a work order.
func (s *StageRecordService) GetLatestRFQForWorkOrderInTx(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) (*model.RFQ, error) {
	var rfq model.RFQ
	err := tx.WithContext(ctx).Where("wo_id = ?", workOrderID).Order("created_at DESC").First(&rfq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("RFQ for work order %s: %w", workOrderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve RFQ: %w", err)
	}
	return &rfq, nil
}

func (s *StageRecordService) CreateQuotationInTx(ctx context.Context, tx *gorm.DB, quotation *model.Quotation) error {
	if err := tx.WithContext(ctx).Create(quotation).Error; err != nil {
		return fmt.Errorf("failed to create quotation: %w", err)
	}
	return nil
}

func (s *StageRecordService) SaveQuotationInTx(ctx context.Context, tx *gorm.DB, quotation *model.Quotation) error {
	if err := tx.WithContext(ctx).Save(quotation).Error; err != nil {
		return fmt.Errorf("failed to update quotation %s: %w", quotation.ID, err)
	}
	return nil
}

func (s *StageRecordService) GetQuotationByID(ctx context.Context, id uuid.UUID) (*model.Quotation, error) {
	return firstByID[model.Quotation](ctx, s.db, "quotation", id)
}

// FindAwaitingQuotationInTx returns the quotation parked for a recommendation's RFQ items,
// or nil when there is none.
func (s *StageRecordService) FindAwaitingQuotationInTx(ctx context.Context, tx *gorm.DB, technicalRecommendationID uuid.UUID) (*model.Quotation, error) {
	var quotations []model.Quotation
	err := tx.WithContext(ctx).
		Where("technical_recommendation_id = ? AND status = ?", technicalRecommendationID, model.QuotationStatusAwaitingRFQ).
		Order("created_at ASC").
		Limit(1).
		Find(&quotations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up awaiting quotation: %w", err)
	}
	if len(quotations) == 0 {
		return nil, nil
	}
	return &quotations[0], nil
}

// GetItemMappingsInTx returns productId -> inventory item for a recommendation.
func (s *StageRecordService) GetItemMappingsInTx(ctx context.Context, tx *gorm.DB, technicalRecommendationID uuid.UUID) (map[string]string, error) {
	var mappings []model.ItemMapping
	if err := tx.WithContext(ctx).Where("technical_recommendation_id = ?", technicalRecommendationID).Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve item mappings: %w", err)
	}
	out := make(map[string]string, len(mappings))
	for _, m := range mappings {
		out[m.ProductID] = m.InventoryItemID
	}
	return out, nil
}

// ApplyItemMappingsInTx upserts every non-empty mapping and removes the ones mapped to "".
func (s *StageRecordService) ApplyItemMappingsInTx(ctx context.Context, tx *gorm.DB, technicalRecommendationID uuid.UUID, mappings map[string]string) error {
	for productID, itemID := range mappings {
		if itemID == "" {
			err := tx.WithContext(ctx).
				Where("technical_recommendation_id = ? AND product_id = ?", technicalRecommendationID, productID).
				Delete(&model.ItemMapping{}).Error
			if err != nil {
				return fmt.Errorf("failed to remove mapping for product %s: %w", productID, err)
			}
			continue
		}

		mapping := model.ItemMapping{
			TechnicalRecommendationID: technicalRecommendationID,
			ProductID:                 productID,
			InventoryItemID:           itemID,
		}
		err := tx.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "technical_recommendation_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kristem_item_id", "updated_at"}),
		}).Create(&mapping).Error
		if err != nil {
			return fmt.Errorf("failed to store mapping for product %s: %w", productID, err)
		}
	}
	return nil
}

// UpsertItemMappings stores mappings for products on a recommendation. Each inventory item
// is checked against the catalog; an unreachable catalog is logged and does not block the write.
func (s *StageRecordService) UpsertItemMappings(ctx context.Context, technicalRecommendationID uuid.UUID, req *model.UpsertItemMappingsDTO) (map[string]string, error) {
	if req == nil || len(req.Mappings) == 0 {
		return nil, fmt.Errorf("%w: no mappings supplied", ErrInvalidInput)
	}

	for productID, itemID := range req.Mappings {
		if itemID == "" || s.catalog == nil {
			continue
		}
		exists, err := s.catalog.StockExists(ctx, itemID)
		if err != nil {
			slog.WarnContext(ctx, "inventory catalog unavailable, accepting mapping unchecked",
				"productID", productID, "inventoryItemID", itemID, "error", err)
			continue
		}
		if !exists {
			return nil, fmt.Errorf("%w: inventory item %q does not exist", ErrInvalidInput, itemID)
		}
	}

	var result map[string]string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tr, err := s.GetTechnicalRecommendationByIDInTx(ctx, tx, technicalRecommendationID)
		if err != nil {
			return err
		}
		if err := s.requireOpenRecommendationInTx(ctx, tx, tr); err != nil {
			return err
		}
		known := make(map[string]bool, len(tr.Products))
		for _, p := range tr.Products {
			known[p.ID] = true
		}
		for productID := range req.Mappings {
			if !known[productID] {
				return fmt.Errorf("%w: product %q is not on technical recommendation %s", ErrInvalidInput, productID, tr.ID)
			}
		}

		if err := s.ApplyItemMappingsInTx(ctx, tx, tr.ID, req.Mappings); err != nil {
			return err
		}
		result, err = s.GetItemMappingsInTx(ctx, tx, tr.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
