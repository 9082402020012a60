package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventRecord struct {
	ID         string         `gorm:"primaryKey;size:36"`
	EventType  string         `gorm:"size:64;index"`
	Payload    datatypes.JSON `gorm:"type:json"`
	OccurredAt time.Time      `gorm:"index"`
}
