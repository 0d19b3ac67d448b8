package models

import "time"

type MessageType string

const (
	MessageTypeText      MessageType = "text"
	MessageTypeHazard    MessageType = "hazard"
	MessageTypeTraffic   MessageType = "traffic"
	MessageTypeEmergency MessageType = "emergency"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Message struct {
	ID            string      `json:"id"`
	FromVehicleID string      `json:"from_vehicle_id"`
	ToVehicleID   string      `json:"to_vehicle_id,omitempty"` // empty on a broadcast master
	BroadcastID   string      `json:"broadcast_id,omitempty"`  // master id, set on broadcast copies
	Body          string      `json:"body"`
	Type          MessageType `json:"type"`
	Priority      Priority    `json:"priority"`
	AIEnhanced    bool        `json:"ai_enhanced"`
	AIInsight     string      `json:"ai_insight,omitempty"`
	Read          bool        `json:"read"`
	CreatedAt     time.Time   `json:"created_at"`
}
