package repository

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/geo"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

var ErrNotFound = eris.New("not found")

type Filter struct {
	Limit        int
	Offset       int
	Since        *time.Time
	Type         *models.DisasterType
	MinSeverity  *models.Severity // >= this severity (e.g. HIGH includes HIGH and CRITICAL)
	MinMagnitude *float64
}

type DisasterRepository interface {
	Add(ctx context.Context, d *models.Disaster) error
	GetByID(ctx context.Context, id string) (*models.Disaster, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListDisasters(ctx context.Context, opts Filter) ([]models.Disaster, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type VehicleRepository interface {
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	ListVehiclesByUser(ctx context.Context, userID string) ([]models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	// ListVehiclesInBox returns vehicles whose stored coordinates fall inside
	// box and whose stored status equals status.
	ListVehiclesInBox(ctx context.Context, box geo.Box, status models.VehicleStatus) ([]models.Vehicle, error)
	UpdateLocation(ctx context.Context, id string, loc models.Location, status models.VehicleStatus, seen time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.VehicleStatus) error
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListMessagesForVehicle(ctx context.Context, vehicleID string, limit int) ([]models.Message, error)
	CountByBroadcast(ctx context.Context, broadcastID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ChatRepository interface {
	CreateChat(ctx context.Context, e *models.ChatEntry) error
	GetChat(ctx context.Context, id string) (*models.ChatEntry, error)
	ListChats(ctx context.Context, userID string, category *models.ChatCategory, limit int) ([]models.ChatEntry, error)
	DeleteChat(ctx context.Context, id string) error
	DeleteChatsByUser(ctx context.Context, userID string) (int64, error)
	DeleteChatsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type UserRepository interface {
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error
	DeleteUser(ctx context.Context, id string) error
}

type AnalyticsRepository interface {
	SaveSnapshot(ctx context.Context, s *models.AnalyticsSnapshot) error
	LatestSnapshot(ctx context.Context) (*models.AnalyticsSnapshot, error)
}
