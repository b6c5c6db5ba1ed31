package models

import "time"

// Base is the base model for all entities.
// ID is a database-assigned integer; timestamps are managed by GORM.
type Base struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}
