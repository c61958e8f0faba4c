package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an approver or assignee.
type User struct {
	BaseModel
	Username   string `gorm:"type:varchar(100);column:username;not null;unique" json:"username"`
	FullName   string `gorm:"type:varchar(255);column:full_name" json:"fullName"`
	Email      string `gorm:"type:varchar(255);column:email" json:"email"`
	Department string `gorm:"type:varchar(100);column:department" json:"department"`
	Role       string `gorm:"type:varchar(50);column:role" json:"role"`
}

func (u *User) TableName() string {
	return "users"
}

// Account is the customer a work order is raised for. NAEF is tracked as a flag on it.
type Account struct {
	BaseModel
	Name           string     `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Industry       string     `gorm:"type:varchar(100);column:industry" json:"industry"`
	IsNAEF         bool       `gorm:"column:is_naef;not null;default:false" json:"isNaef"`
	NAEFAssignedTo string     `gorm:"type:varchar(255);column:naef_assigned_to" json:"naefAssignedTo,omitempty"`
	NAEFDueDate    *time.Time `gorm:"type:date;column:naef_due_date" json:"naefDueDate,omitempty"`
	NAEFRemarks    string     `gorm:"type:text;column:naef_remarks" json:"naefRemarks,omitempty"`
}

func (a *Account) TableName() string {
	return "accounts"
}

// WorkOrder is the entry point of the pipeline.
type WorkOrder struct {
	BaseModel
	WONumber      string     `gorm:"type:varchar(50);column:wo_number;not null;unique" json:"woNumber"`
	AccountID     *uuid.UUID `gorm:"type:uuid;column:account_id" json:"accountId,omitempty"`
	IsNewAccount  bool       `gorm:"column:is_new_account;not null;default:false" json:"isNewAccount"`
	ProjectName   string     `gorm:"type:varchar(255);column:project_name" json:"projectName"`
	Description   string     `gorm:"type:text;column:description" json:"description"`
	ContactPerson string     `gorm:"type:varchar(255);column:contact_person" json:"contactPerson"`
	AssignedTo    string     `gorm:"type:varchar(255);column:assigned_to" json:"assignedTo"`
	DueDate       *time.Time `gorm:"type:date;column:due_date" json:"dueDate,omitempty"`
}

func (wo *WorkOrder) TableName() string {
	return "work_orders"
}

// CreateWorkOrderDTO is the request body for opening a work order.
type CreateWorkOrderDTO struct {
	WONumber      string     `json:"woNumber"`
	AccountID     *uuid.UUID `json:"accountId,omitempty"`
	IsNewAccount  bool       `json:"isNewAccount"`
	ProjectName   string     `json:"projectName"`
	Description   string     `json:"description"`
	ContactPerson string     `json:"contactPerson"`
	AssignedTo    string     `json:"assignedTo"`
	DueDate       string     `json:"dueDate"`
}

// ListFilter is the generic pagination filter used by list endpoints.
type ListFilter struct {
	Offset *int
	Limit  *int
}

// WorkOrderListResult is a page of work orders.
type WorkOrderListResult struct {
	TotalCount int64       `json:"totalCount"`
	Items      []WorkOrder `json:"items"`
	Offset     int         `json:"offset"`
	Limit      int         `json:"limit"`
}
