package models

import "time"

type Preferences struct {
	AlertRadiusKm float64        `json:"alert_radius_km"`
	AlertTypes    []DisasterType `json:"alert_types"`
	Units         string         `json:"units"` // metric or imperial
}

type User struct {
	ID          string      `json:"id"` // subject from the identity provider
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	PhotoURL    string      `json:"photo_url,omitempty"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	LastLoginAt time.Time   `json:"last_login_at"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		AlertRadiusKm: 50,
		AlertTypes:    append([]DisasterType(nil), DisasterTypes...),
		Units:         "metric",
	}
}
