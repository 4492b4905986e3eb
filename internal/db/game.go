package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID        string                      `gorm:"primaryKey;size:36"`
	GameCode  string                      `gorm:"size:12;uniqueIndex;not null"`
	CreatorID string                      `gorm:"size:64;not null"`
	Players   datatypes.JSONSlice[string] `gorm:"not null"`
	Round     int                         `gorm:"not null;default:0"`
	TimeLimit int                         `gorm:"not null;default:60"`
	CreatedAt time.Time                   `gorm:"not null"`
	UpdatedAt time.Time                   `gorm:"not null"`
}
