package models

import (
	"encoding/json"
	"time"
)

// LatestSnapshotID is the id of the single cached snapshot document.
const LatestSnapshotID = "latest"

type AnalyticsSnapshot struct {
	ID          string          `json:"id"`
	WindowDays  int             `json:"window_days"`
	Summary     json.RawMessage `json:"summary"`
	GeneratedAt time.Time       `json:"generated_at"`
}
