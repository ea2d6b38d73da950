package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lead is a prospective buyer captured by the CRM
type Lead struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Budget       decimal.Decimal `json:"budget"`
	PropertyType string          `json:"property_type"`
	Source       string          `json:"source"`
	Notes        string          `json:"notes"`
	Score        *int            `json:"score,omitempty"`
	Reasoning    string          `json:"reasoning,omitempty"`
	ScoredAt     *time.Time      `json:"scored_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// LeadScore is the outcome of scoring a lead
type LeadScore struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}
