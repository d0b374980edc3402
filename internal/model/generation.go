package model

import (
	"time"

	"gorm.io/gorm"
)

// Статусы генерации
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Generation запись о запуске генерации продукта для чипа
type Generation struct {
	ID      string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Product string   `gorm:"type:varchar(32);not null;index" json:"product"`
	Tile    string   `gorm:"type:varchar(32);not null" json:"tile"`
	Cx      int64    `gorm:"not null" json:"cx"`
	Cy      int64    `gorm:"not null" json:"cy"`
	Dates   []string `gorm:"serializer:json" json:"dates"`
	Status  string   `gorm:"type:varchar(16);not null;index" json:"status"`

	// Статистика
	Pixels   int `gorm:"not null;default:0" json:"pixels"`
	Values   int `gorm:"not null;default:0" json:"values"`
	Failures int `gorm:"not null;default:0" json:"failures"`

	Error string   `gorm:"type:text" json:"error,omitempty"`
	Paths []string `gorm:"serializer:json" json:"paths"`

	StartedAt  time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName указывает имя таблицы для Generation
func (Generation) TableName() string {
	return "generations"
}
