package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salesops/workflow/internal/workflow/model"
	"github.com/salesops/workflow/utils"
)

type WorkOrderService struct {
	db     *gorm.DB
	stages WorkflowStageRepository
}

func NewWorkOrderService(db *gorm.DB, stages WorkflowStageRepository) *WorkOrderService {
	return &WorkOrderService{db: db, stages: stages}
}

// CreateWorkOrder opens a work order and its first Pending stage row in one transaction.
func (s *WorkOrderService) CreateWorkOrder(ctx context.Context, req *model.CreateWorkOrderDTO) (*model.WorkOrder, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: create request cannot be nil", ErrInvalidInput)
	}
	if strings.TrimSpace(req.WONumber) == "" {
		return nil, fmt.Errorf("%w: work order number cannot be empty", ErrInvalidInput)
	}
	dueDate, ok := parseDueDate(req.DueDate)
	if !ok {
		return nil, fmt.Errorf("%w: invalid due date %q, expected YYYY-MM-DD", ErrInvalidInput, req.DueDate)
	}

	workOrder := &model.WorkOrder{
		WONumber:      strings.TrimSpace(req.WONumber),
		AccountID:     req.AccountID,
		IsNewAccount:  req.IsNewAccount,
		ProjectName:   req.ProjectName,
		Description:   req.Description,
		ContactPerson: req.ContactPerson,
		AssignedTo:    req.AssignedTo,
		DueDate:       dueDate,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if workOrder.AccountID != nil {
			var count int64
			if err := tx.Model(&model.Account{}).Where("id = ?", *workOrder.AccountID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check account: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("account %s: %w", *workOrder.AccountID, ErrNotFound)
			}
		}

		if err := tx.Create(workOrder).Error; err != nil {
			return fmt.Errorf("failed to create work order: %w", err)
		}

		entry := model.WorkflowStage{
			WorkOrderID: workOrder.ID,
			StageName:   model.StageWorkOrder,
			Status:      model.StageStatusPending,
			RecordID:    &workOrder.ID,
			AssignedTo:  workOrder.AssignedTo,
			DueDate:     workOrder.DueDate,
			Remarks:     workOrder.Description,
		}
		if _, err := s.stages.CreateWorkflowStagesInTx(ctx, tx, []model.WorkflowStage{entry}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return workOrder, nil
}

// GetWorkOrderByID retrieves a work order by its ID.
func (s *WorkOrderService) GetWorkOrderByID(ctx context.Context, workOrderID uuid.UUID) (*model.WorkOrder, error) {
	return s.GetWorkOrderByIDInTx(ctx, s.db, workOrderID)
}

func (s *WorkOrderService) GetWorkOrderByIDInTx(ctx context.Context, tx *gorm.DB, workOrderID uuid.UUID) (*model.WorkOrder, error) {
	if workOrderID == uuid.Nil {
		return nil, fmt.Errorf("%w: work order ID cannot be nil", ErrInvalidInput)
	}

	var workOrder model.WorkOrder
	if err := tx.WithContext(ctx).First(&workOrder, "id = ?", workOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("work order %s: %w", workOrderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve work order: %w", err)
	}
	return &workOrder, nil
}

// ListWorkOrders returns work orders newest first.
func (s *WorkOrderService) ListWorkOrders(ctx context.Context, filter model.ListFilter) (*model.WorkOrderListResult, error) {
	query := s.db.WithContext(ctx).Model(&model.WorkOrder{})

	var totalCount int64
	if err := query.Session(&gorm.Session{}).Count(&totalCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count work orders: %w", err)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)

	var workOrders []model.WorkOrder
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&workOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve work orders: %w", err)
	}

	return &model.WorkOrderListResult{
		TotalCount: totalCount,
		Items:      workOrders,
		Offset:     offset,
		Limit:      limit,
	}, nil
}
