package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Event struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Slug      string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`
	EventDate *time.Time `gorm:"index" json:"event_date,omitempty"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
