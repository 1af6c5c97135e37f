package model

import "time"

// ProcessedEvent represents the processed_events table, the ledger of
// processor event ids that have been claimed.
type ProcessedEvent struct {
	EventID    string    `gorm:"type:varchar(255);primaryKey"`
	EventType  string    `gorm:"type:varchar(100);not null"`
	ReceivedAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName specifies the table name
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
