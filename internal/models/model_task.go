package models

import (
	"time"

	"github.com/socialpulse/backend/pkg/types"
)

// Task is owned by the record-keeping collaborator; the core only reads it
// for the overdue-task sweep.
type Task struct {
	ID       string           `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClientID string           `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`
	Title    string           `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Status   types.TaskStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	DueDate  string           `gorm:"column:due_date;type:varchar(10);index" json:"due_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Task) TableName() string { return "task" }
