package models

import (
	"encoding/json"
	"time"
)

type ChatCategory string

const (
	ChatCategoryChat     ChatCategory = "chat"
	ChatCategoryAnalysis ChatCategory = "analysis"
	ChatCategoryPlan     ChatCategory = "plan"
)

type ChatEntry struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Category   ChatCategory    `json:"category"`
	Input      string          `json:"input"`
	Output     string          `json:"output"`
	Structured json.RawMessage `json:"structured,omitempty"` // parsed model JSON, nil when the reply was free text
	CreatedAt  time.Time       `json:"created_at"`
}
