package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog is one immutable entry in the inventory audit ledger. Entries are
// only ever appended; nothing in the service updates or deletes them.
type AuditLog struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProductID snowflake.ID      `gorm:"not null;index" json:"product_id"`
	Action    string            `gorm:"not null" json:"action"`
	ActorID   *string           `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Entry is the read-side projection including the product name used by the
// listing endpoint.
type Entry struct {
	AuditLog
	ProductName string `json:"product_name"`
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	ProductID snowflake.ID
	Search    string
	Cursor    *Cursor
	Limit     int
}
