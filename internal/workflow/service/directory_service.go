package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salesops/workflow/internal/workflow/model"
)

// DirectoryService stores accounts and the users that stages are assigned to.
type DirectoryService struct {
	db *gorm.DB
}

func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{db: db}
}

func (s *DirectoryService) CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	if account == nil || strings.TrimSpace(account.Name) == "" {
		return nil, fmt.Errorf("%w: account name cannot be empty", ErrInvalidInput)
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (s *DirectoryService) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	return s.GetAccountByIDInTx(ctx, s.db, accountID)
}

func (s *DirectoryService) GetAccountByIDInTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := tx.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}
	return &account, nil
}

// FlagNAEFInTx marks the account as under New Account Evaluation and records who owns it.
func (s *DirectoryService) FlagNAEFInTx(ctx context.Context, tx *gorm.DB, account *model.Account, track model.Track) error {
	dueDate, _ := parseDueDate(track.DueDate)
	account.IsNAEF = true
	account.NAEFAssignedTo = track.Assignee
	account.NAEFDueDate = dueDate
	account.NAEFRemarks = track.Remarks
	if err := tx.WithContext(ctx).Save(account).Error; err != nil {
		return fmt.Errorf("failed to flag account %s for NAEF: %w", account.ID, err)
	}
	return nil
}

func (s *DirectoryService) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	if user == nil || strings.TrimSpace(user.Username) == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by name, optionally restricted to a department.
func (s *DirectoryService) ListUsers(ctx context.Context, department string) ([]model.User, error) {
	query := s.db.WithContext(ctx).Model(&model.User{})
	if department != "" {
		query = query.Where("department = ?", department)
	}

	var users []model.User
	if err := query.Order("full_name ASC").Order("username ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}
	return users, nil
}
