package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Filename   string         `gorm:"type:varchar(512);not null"`
	Format     string         `gorm:"type:varchar(32);not null"`
	Status     string         `gorm:"type:varchar(32);not null;index"`
	FailReason string         `gorm:"type:text"`
	ChunkCount int            `gorm:"default:0"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
