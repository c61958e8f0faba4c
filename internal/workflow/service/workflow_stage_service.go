package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/utils"
)

// WorkflowStageRepository is the persistence surface the approval flow needs for history rows.
type WorkflowStageRepository interface {
	GetWorkflowStageByIDInTx(ctx context.Context, tx *gorm.DB, stageID uuid.UUID) (*model.WorkflowStage, error)
	CreateWorkflowStagesInTx(ctx context.Context, tx *gorm.DB, stages []model.WorkflowStage) ([]model.WorkflowStage, error)
	ClaimOpenWorkflowStageInTx(ctx context.Context, tx *gorm.DB, stageID uuid.UUID, decisionID uuid.UUID) error
	HasOpenWorkflowStageForRecordInTx(ctx context.Context, tx *gorm.DB, stage model.Stage, recordID uuid.UUID) (bool, error)
}

// WorkflowStageService stores the append-only stage history.
type WorkflowStageService struct {
	db *gorm.DB
}

func NewWorkflowStageService(db *gorm.DB) *WorkflowStageService {
	return &WorkflowStageService{db: db}
}

// GetWorkflowStageByID retrieves a single history row.
func (s *WorkflowStageService) GetWorkflowStageByID(ctx context.Context, stageID uuid.UUID) (*model.WorkflowStage, error) {
	return s.GetWorkflowStageByIDInTx(ctx, s.db, stageID)
}

// GetWorkflowStageByIDInTx retrieves a single history row within a transaction.
func (s *WorkflowStageService) GetWorkflowStageByIDInTx(ctx context.Context, tx *gorm.DB, stageID uuid.UUID) (*model.WorkflowStage, error) {
	if stageID == uuid.Nil {
		return nil, fmt.Errorf("%w: workflow stage ID cannot be nil", ErrInvalidInput)
	}

	var stage model.WorkflowStage
	if err := tx.WithContext(ctx).First(&stage, "id = ?", stageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("workflow stage %s: %w", stageID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve workflow stage: %w", err)
	}
	return &stage, nil
}

// CreateWorkflowStagesInTx appends history rows and returns them with their generated IDs.
func (s *WorkflowStageService) CreateWorkflowStagesInTx(ctx context.Context, tx *gorm.DB, stages []model.WorkflowStage) ([]model.WorkflowStage, error) {
	if len(stages) == 0 {
		return []model.WorkflowStage{}, nil
	}
	if err := tx.WithContext(ctx).Create(&stages).Error; err != nil {
		return nil, fmt.Errorf("failed to create workflow stages: %w", err)
	}
	return stages, nil
}

// ClaimOpenWorkflowStageInTx marks an open row as decided by decisionID. Only the first
// caller wins; everyone else gets ErrStageAlreadyDecided.
func (s *WorkflowStageService) ClaimOpenWorkflowStageInTx(ctx context.Context, tx *gorm.DB, stageID uuid.UUID, decisionID uuid.UUID) error {
	result := tx.WithContext(ctx).
		Model(&model.WorkflowStage{}).
		Where("id = ? AND decided_by IS NULL", stageID).
		Update("decided_by", decisionID)
	if result.Error != nil {
		return fmt.Errorf("failed to claim workflow stage %s: %w", stageID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("workflow stage %s: %w", stageID, ErrStageAlreadyDecided)
	}
	return nil
}

// HasOpenWorkflowStageForRecordInTx reports whether recordID still has an undecided row in stage.
func (s *WorkflowStageService) HasOpenWorkflowStageForRecordInTx(ctx context.Context, tx *gorm.DB, stage model.Stage, recordID uuid.UUID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.WorkflowStage{}).
		Where("stage_name = ? AND record_id = ? AND status IN ? AND decided_by IS NULL", stage, recordID, openStatuses()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check open %s row for record %s: %w", stage, recordID, err)
	}
	return count > 0, nil
}

// ListWorkflowStages returns history rows matching the filter. Rows for a single work order
// come back oldest first so they read as a timeline; the pending queue is also oldest first.
func (s *WorkflowStageService) ListWorkflowStages(ctx context.Context, filter model.WorkflowStageFilter) (*model.WorkflowStageListResult, error) {
	query := s.db.WithContext(ctx).Model(&model.WorkflowStage{})

	if filter.WorkOrderID != nil {
		query = query.Where("wo_id = ?", *filter.WorkOrderID)
	}
	if filter.StageName != nil {
		query = query.Where("stage_name = ?", *filter.StageName)
	}
	if filter.OpenOnly {
		query = query.Where("status IN ? AND decided_by IS NULL", openStatuses())
	}

	var totalCount int64
	if err := query.Session(&gorm.Session{}).Count(&totalCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count workflow stages: %w", err)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)

	var stages []model.WorkflowStage
	if err := query.Order("created_at ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&stages).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve workflow stages: %w", err)
	}

	return &model.WorkflowStageListResult{
		TotalCount: totalCount,
		Items:      stages,
		Offset:     offset,
		Limit:      limit,
	}, nil
}

func openStatuses() []model.StageStatus {
	return []model.StageStatus{model.StageStatusPending, model.StageStatusInProgress, model.StageStatusSubmitted}
}
