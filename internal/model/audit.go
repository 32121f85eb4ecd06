package model

import (
	"encoding/json"
	"time"
)

// AuditStatus represents the current state of an audit run.
type AuditStatus string

const (
	AuditStatusQueued   AuditStatus = "queued"
	AuditStatusRunning  AuditStatus = "running"
	AuditStatusComplete AuditStatus = "complete"
	AuditStatusFailed   AuditStatus = "failed"
)

// Audit represents one monitoring run for an entity across one or more platforms.
type Audit struct {
	ID          string      `json:"id"`
	EntityID    string      `json:"entity_id"`
	Status      AuditStatus `json:"status"`
	Platforms   []string    `json:"platforms"`
	TotalTokens int         `json:"total_tokens"`
	TotalCost   float64     `json:"total_cost"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// QueryStatus represents the lifecycle state of a single query record.
type QueryStatus string

const (
	QueryStatusPending   QueryStatus = "pending"
	QueryStatusRunning   QueryStatus = "running"
	QueryStatusCompleted QueryStatus = "completed"
	QueryStatusFailed    QueryStatus = "failed"
)

// Citation is the normalized wire form of a single source reference as
// recorded on a query record. All fields are optional; a bare URL string
// in the stored citations array is equally valid.
type Citation struct {
	URL     string `json:"url,omitempty"`
	Source  string `json:"source,omitempty"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// QueryRecord is one platform/query pair executed during an audit. The
// Citations payload is stored as raw JSON because platforms disagree on
// shape; it is normalized at analysis time, never here.
type QueryRecord struct {
	ID           string          `json:"id"`
	AuditID      string          `json:"audit_id"`
	Platform     string          `json:"platform"`
	QueryText    string          `json:"query_text"`
	ResponseText *string         `json:"response_text,omitempty"`
	Citations    json.RawMessage `json:"citations,omitempty"`
	Status       QueryStatus     `json:"status"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	CostUSD      float64         `json:"cost_usd"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Response returns the response text, or "" when the record has none.
func (r *QueryRecord) Response() string {
	if r.ResponseText == nil {
		return ""
	}
	return *r.ResponseText
}

// Scorable reports whether the record contributes to text-based scoring:
// only completed records with a non-empty response do.
func (r *QueryRecord) Scorable() bool {
	return r.Status == QueryStatusCompleted && r.Response() != ""
}
