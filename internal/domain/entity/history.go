package entity

import (
	"time"

	"github.com/osusproperties/brokerage-core/internal/domain/approval"
)

// AuditEntry is an immutable record of one approval transition
type AuditEntry struct {
	ID        int64            `json:"id"`
	RecordID  int64            `json:"record_id"`
	Actor     string           `json:"actor"`
	FromState approval.State   `json:"from_state"`
	ToState   approval.State   `json:"to_state"`
	Trigger   approval.Trigger `json:"trigger"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// SystemParam is a key-value configuration parameter, mirroring ir.config_parameter
type SystemParam struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}
