package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/salesops/workflow/internal/database"
	"github.com/salesops/workflow/internal/workflow/model"
)

// setupTestDB returns a postgres-dialect gorm DB backed by sqlmock.
func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, sqlMock
}

// setupSQLiteDB returns a migrated in-memory database private to the test. A single
// connection keeps every statement on the same in-memory instance.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// fixture wires every service against one sqlite database.
type fixture struct {
	ctx        context.Context
	db         *gorm.DB
	stages     *WorkflowStageService
	records    *StageRecordService
	workOrders *WorkOrderService
	directory  *DirectoryService
	approvals  *ApprovalService
	notify     chan model.DecisionNotification
}

func newFixture(t *testing.T, catalog ItemCatalog) *fixture {
	db := setupSQLiteDB(t)
	stages := NewWorkflowStageService(db)
	records := NewStageRecordService(db, stages, catalog)
	workOrders := NewWorkOrderService(db, stages)
	directory := NewDirectoryService(db)
	notify := make(chan model.DecisionNotification, 16)

	return &fixture{
		ctx:        context.Background(),
		db:         db,
		stages:     stages,
		records:    records,
		workOrders: workOrders,
		directory:  directory,
		approvals:  NewApprovalService(db, stages, records, workOrders, directory, notify),
		notify:     notify,
	}
}

func (f *fixture) createWorkOrder(t *testing.T, dto model.CreateWorkOrderDTO) *model.WorkOrder {
	if dto.WONumber == "" {
		dto.WONumber = "WO-" + uuid.NewString()[:8]
	}
	wo, err := f.workOrders.CreateWorkOrder(f.ctx, &dto)
	require.NoError(t, err)
	return wo
}

// createRecommendation seeds a work order and a recommendation awaiting approval and
// returns the recommendation with its open stage row.
func (f *fixture) createRecommendation(t *testing.T, wo *model.WorkOrder, products []model.Product) (*model.TechnicalRecommendation, *model.WorkflowStage) {
	if wo == nil {
		wo = f.createWorkOrder(t, model.CreateWorkOrderDTO{})
	}
	tr, err := f.records.CreateTechnicalRecommendation(f.ctx, &model.CreateTechnicalRecommendationDTO{
		WorkOrderID: wo.ID,
		Products:    products,
		AssignedTo:  "engineer",
	})
	require.NoError(t, err)
	return tr, f.openStage(t, wo.ID, model.StageTechnicalRecommendation)
}

// openStage returns the single open row for a stage of a work order.
func (f *fixture) openStage(t *testing.T, workOrderID uuid.UUID, stage model.Stage) *model.WorkflowStage {
	result, err := f.stages.ListWorkflowStages(f.ctx, model.WorkflowStageFilter{
		WorkOrderID: &workOrderID,
		StageName:   &stage,
		OpenOnly:    true,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1, "expected one open %s row", stage)
	return &result.Items[0]
}

func (f *fixture) count(t *testing.T, m any, query string, args ...any) int64 {
	var n int64
	q := f.db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func products(ids ...string) []model.Product {
	out := make([]model.Product, len(ids))
	for i, id := range ids {
		out[i] = model.Product{ID: id, ProductName: "Product " + id, Quantity: 1}
	}
	return out
}
