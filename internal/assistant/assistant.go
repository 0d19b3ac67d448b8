// Package assistant wraps the AI proxy with the user-facing chat features
// and keeps their history.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/ai"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
)

var ErrForbidden = eris.New("chat entry belongs to another user")

type PlanRequest struct {
	Location  string   `json:"location" binding:"required,max=200"`
	Household string   `json:"household" binding:"max=500"`
	Hazards   []string `json:"hazards" binding:"max=10,dive,max=50"`
}

type Service struct {
	client ai.Client
	chats  repository.ChatRepository
	now    func() time.Time
}

func NewService(client ai.Client, chats repository.ChatRepository) *Service {
	return &Service{
		client: client,
		chats:  chats,
		now:    time.Now,
	}
}

// Available reports whether a model is configured.
func (s *Service) Available() bool { return s.client != nil }

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := ai.Complete(ctx, s.client, ai.Request{System: ai.SystemPrompt, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (s *Service) Ask(ctx context.Context, userID, message, details string) (*models.ChatEntry, error) {
	text, err := s.complete(ctx, ai.ChatPrompt(message, details))
	if err != nil {
		return nil, err
	}
	return s.record(ctx, userID, models.ChatCategoryChat, message, text, nil)
}

func (s *Service) AnalyzeDisaster(ctx context.Context, userID string, d models.Disaster) (*models.ChatEntry, error) {
	text, err := s.complete(ctx, ai.DisasterAnalysisPrompt(d))
	if err != nil {
		return nil, err
	}
	structured := s.structured(text, "summary", "risk_level", "recommendations")
	return s.record(ctx, userID, models.ChatCategoryAnalysis, d.Title, text, structured)
}

func (s *Service) EmergencyPlan(ctx context.Context, userID string, req PlanRequest) (*models.ChatEntry, error) {
	text, err := s.complete(ctx, ai.EmergencyPlanPrompt(req.Location, req.Household, req.Hazards))
	if err != nil {
		return nil, err
	}
	input, _ := json.Marshal(req)
	structured := s.structured(text, "steps", "supplies", "contacts")
	return s.record(ctx, userID, models.ChatCategoryPlan, string(input), text, structured)
}

// EnhanceMessage rewrites a vehicle message. It is not stored in history.
func (s *Service) EnhanceMessage(ctx context.Context, body, details string) (*ai.Enhancement, error) {
	text, err := s.complete(ctx, ai.EnhanceMessagePrompt(body, details))
	if err != nil {
		return nil, err
	}

	var e ai.Enhancement
	if err := ai.ExtractJSON(text, &e); err != nil {
		return nil, err
	}
	if strings.TrimSpace(e.EnhancedMessage) == "" {
		return nil, eris.Wrap(ai.ErrNoJSON, "enhanced_message is empty")
	}
	return &e, nil
}

// structured returns the parsed reply, or nil so the raw text is kept alone.
func (s *Service) structured(text string, keys ...string) json.RawMessage {
	raw, _, err := ai.ExtractObject(text, keys...)
	if err != nil {
		zap.L().Debug("model reply is not structured", zap.Error(err))
		return nil
	}
	return raw
}

func (s *Service) record(ctx context.Context, userID string, category models.ChatCategory, input, output string, structured json.RawMessage) (*models.ChatEntry, error) {
	e := &models.ChatEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		Category:   category,
		Input:      input,
		Output:     output,
		Structured: structured,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.chats.CreateChat(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) History(ctx context.Context, userID string, category *models.ChatCategory, limit int) ([]models.ChatEntry, error) {
	entries, err := s.chats.ListChats(ctx, userID, category, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ChatEntry{}
	}
	return entries, nil
}

// Delete removes one entry owned by userID. Entries of other users are left
// untouched and reported as ErrForbidden.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	e, err := s.chats.GetChat(ctx, id)
	if err != nil {
		return err
	}
	if e.UserID != userID {
		return eris.Wrapf(ErrForbidden, "chat %s", id)
	}
	if err := s.chats.DeleteChat(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}
