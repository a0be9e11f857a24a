package model

import "time"

// IndexMeta is a singleton row (id = 1) describing the index. Generation is
// a monotonically increasing counter bumped on every insert/delete so
// queries can detect staleness.
type IndexMeta struct {
	Id           int       `gorm:"primaryKey"`
	ModelVersion string    `gorm:"type:varchar(64);not null"`
	Dimensions   int       `gorm:"not null"`
	Generation   uint64    `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (IndexMeta) TableName() string {
	return "index_meta"
}
