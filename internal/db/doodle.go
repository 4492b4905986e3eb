package db

import "time"

type Doodle struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ImageData  []byte    `gorm:"not null"`
	ArtistID   string    `gorm:"size:64;index;not null"`
	ParentID   *string   `gorm:"size:36;index"`
	RootID     string    `gorm:"size:36;index;not null"`
	TailLength int       `gorm:"not null;default:1"`
	InGame     bool      `gorm:"not null;default:false;index"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}
