package auth

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
)

// Profile carries optional client-side overrides for the token claims.
type Profile struct {
	DisplayName string `json:"display_name" binding:"max=100"`
	PhotoURL    string `json:"photo_url" binding:"omitempty,url,max=500"`
}

type PreferencesRequest struct {
	AlertRadiusKm float64               `json:"alert_radius_km" binding:"required,gt=0,max=1000"`
	AlertTypes    []models.DisasterType `json:"alert_types" binding:"required,dive,oneof=earthquake weather tsunami volcano"`
	Units         string                `json:"units" binding:"required,oneof=metric imperial"`
}

func (r PreferencesRequest) Preferences() models.Preferences {
	return models.Preferences{
		AlertRadiusKm: r.AlertRadiusKm,
		AlertTypes:    r.AlertTypes,
		Units:         r.Units,
	}
}

type UserService struct {
	users repository.UserRepository
	chats repository.ChatRepository
	now   func() time.Time
}

func NewUserService(users repository.UserRepository, chats repository.ChatRepository) *UserService {
	return &UserService{users: users, chats: chats, now: time.Now}
}

// Verify creates or refreshes the user behind identity and records the login.
func (s *UserService) Verify(ctx context.Context, identity Identity, profile Profile) (*models.User, error) {
	now := s.now().UTC()
	u := &models.User{
		ID:          identity.UserID,
		Email:       identity.Email,
		DisplayName: firstNonEmpty(profile.DisplayName, identity.Name),
		PhotoURL:    firstNonEmpty(profile.PhotoURL, identity.Picture),
		Preferences: models.DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	if err := s.users.UpsertUser(ctx, u); err != nil {
		return nil, err
	}

	stored, err := s.users.GetUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("user verified", zap.String("user_id", stored.ID))
	return stored, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *UserService) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) (*models.User, error) {
	if err := s.users.UpdatePreferences(ctx, id, prefs); err != nil {
		return nil, err
	}
	return s.users.GetUser(ctx, id)
}

// Delete removes the user and their chat history.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	n, err := s.chats.DeleteChatsByUser(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "delete chat history for %s", id)
	}
	zap.L().Info("user deleted", zap.String("user_id", id), zap.Int64("chats", n))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
