// Package v2v manages vehicles and the messages they exchange.
package v2v

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-disaster-v2v/internal/ai"
	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/geo"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
	"github.com/mr1hm/go-disaster-v2v/internal/stream"
)

var (
	ErrForbidden       = eris.New("vehicle belongs to another user")
	ErrInvalidRadius   = eris.New("invalid radius")
	ErrInvalidLocation = eris.New("invalid location")
)

const copyConcurrency = 8

// Enhancer rewrites a message body with the AI proxy.
type Enhancer interface {
	EnhanceMessage(ctx context.Context, body, details string) (*ai.Enhancement, error)
}

type Service struct {
	cfg         config.V2VConfig
	vehicles    repository.VehicleRepository
	messages    repository.MessageRepository
	enhancer    Enhancer
	broadcaster *stream.Broadcaster
	now         func() time.Time
}

func NewService(cfg config.V2VConfig, vehicles repository.VehicleRepository, messages repository.MessageRepository, enhancer Enhancer, broadcaster *stream.Broadcaster) *Service {
	return &Service{
		cfg:         cfg,
		vehicles:    vehicles,
		messages:    messages,
		enhancer:    enhancer,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

type LocationInput struct {
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
	Heading   float64  `json:"heading" binding:"min=0,max=360"`
	Speed     float64  `json:"speed" binding:"min=0"`
}

func (l LocationInput) Location() (models.Location, error) {
	if l.Latitude == nil || l.Longitude == nil {
		return models.Location{}, eris.Wrap(ErrInvalidLocation, "latitude and longitude are required")
	}
	loc := models.Location{Latitude: *l.Latitude, Longitude: *l.Longitude, Heading: l.Heading, Speed: l.Speed}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return models.Location{}, eris.Wrapf(ErrInvalidLocation, "%.5f,%.5f", loc.Latitude, loc.Longitude)
	}
	return loc, nil
}

type RegisterRequest struct {
	Name     string        `json:"name" binding:"required,max=100"`
	Type     string        `json:"type" binding:"required,oneof=car truck bus motorcycle van emergency other"`
	Make     string        `json:"make" binding:"max=50"`
	Model    string        `json:"model" binding:"max=50"`
	Year     int           `json:"year" binding:"omitempty,min=1900,max=2100"`
	Location LocationInput `json:"location" binding:"required"`
}

func (s *Service) Register(ctx context.Context, userID string, req RegisterRequest) (*models.Vehicle, error) {
	loc, err := req.Location.Location()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	v := &models.Vehicle{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      req.Name,
		Type:      req.Type,
		Make:      req.Make,
		Model:     req.Model,
		Year:      req.Year,
		Location:  loc,
		Status:    models.VehicleStatusActive,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.vehicles.CreateVehicle(ctx, v); err != nil {
		return nil, err
	}
	zap.L().Info("vehicle registered", zap.String("id", v.ID), zap.String("user_id", userID))
	return v, nil
}

// owned loads id and checks that userID owns it.
func (s *Service) owned(ctx context.Context, userID, id string) (*models.Vehicle, error) {
	v, err := s.vehicles.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, eris.Wrapf(ErrForbidden, "vehicle %s", id)
	}
	return v, nil
}

// Get returns the vehicle with its status recomputed from LastSeen.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Vehicle, error) {
	v, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	v.Status = NextStatus(v.Status, v.LastSeen, s.now())
	return v, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Vehicle, error) {
	vs, err := s.vehicles.ListVehiclesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]models.Vehicle, 0, len(vs))
	for _, v := range vs {
		v.Status = NextStatus(v.Status, v.LastSeen, now)
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) UpdateLocation(ctx context.Context, userID, id string, in LocationInput) (*models.Vehicle, error) {
	loc, err := in.Location()
	if err != nil {
		return nil, err
	}
	v, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	status := v.Status
	if status != models.VehicleStatusMaintenance {
		if status, err = Transition(status, EventHeartbeat); err != nil {
			return nil, err
		}
	}

	seen := s.now().UTC()
	if err := s.vehicles.UpdateLocation(ctx, id, loc, status, seen); err != nil {
		return nil, err
	}
	v.Location = loc
	v.Status = status
	v.LastSeen = seen
	v.UpdatedAt = seen
	return v, nil
}

// SetMaintenance moves a vehicle into maintenance, or back to the status its
// LastSeen implies.
func (s *Service) SetMaintenance(ctx context.Context, userID, id string, on bool) (*models.Vehicle, error) {
	v, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var status models.VehicleStatus
	switch {
	case on && v.Status == models.VehicleStatusMaintenance:
		return v, nil
	case on:
		status, err = Transition(v.Status, EventService)
	case v.Status != models.VehicleStatusMaintenance:
		return v, nil
	default:
		status, err = Transition(v.Status, EventRestore)
		if err == nil {
			status = NextStatus(status, v.LastSeen, s.now())
		}
	}
	if err != nil {
		return nil, err
	}

	if err := s.vehicles.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	v.Status = status
	return v, nil
}

// FindNearby returns active vehicles within radiusKm of the caller's
// vehicle, nearest first. The reference vehicle is never included.
func (s *Service) FindNearby(ctx context.Context, userID, vehicleID string, radiusKm float64) ([]models.NearbyVehicle, error) {
	if err := s.checkRadius(radiusKm); err != nil {
		return nil, err
	}
	ref, err := s.owned(ctx, userID, vehicleID)
	if err != nil {
		return nil, err
	}
	return s.nearby(ctx, ref, radiusKm)
}

// DefaultRadius is the search radius used when a caller gives none.
func (s *Service) DefaultRadius() float64 { return s.cfg.DefaultRadiusKm }

func (s *Service) checkRadius(radiusKm float64) error {
	if radiusKm <= 0 || radiusKm > s.cfg.MaxRadiusKm {
		return eris.Wrapf(ErrInvalidRadius, "radius %.2f km must be in (0, %.0f]", radiusKm, s.cfg.MaxRadiusKm)
	}
	return nil
}

func (s *Service) nearby(ctx context.Context, ref *models.Vehicle, radiusKm float64) ([]models.NearbyVehicle, error) {
	lat, lon := ref.Location.Latitude, ref.Location.Longitude
	box := geo.BoundingBox(lat, lon, radiusKm)

	candidates, err := s.vehicles.ListVehiclesInBox(ctx, box, models.VehicleStatusActive)
	if err != nil {
		return nil, err
	}

	out := make([]models.NearbyVehicle, 0, len(candidates))
	for _, v := range candidates {
		if v.ID == ref.ID {
			continue
		}
		d := geo.Haversine(lat, lon, v.Location.Latitude, v.Location.Longitude)
		if d > radiusKm {
			continue
		}
		out = append(out, models.NearbyVehicle{Vehicle: v, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out, nil
}

type SendMessageRequest struct {
	FromVehicleID string             `json:"from_vehicle_id" binding:"required"`
	ToVehicleID   string             `json:"to_vehicle_id" binding:"required"`
	Body          string             `json:"body" binding:"required,max=1000"`
	Type          models.MessageType `json:"type" binding:"omitempty,oneof=text hazard traffic emergency"`
	Priority      models.Priority    `json:"priority" binding:"omitempty,oneof=low normal high critical"`
	Enhance       bool               `json:"enhance"`
	Context       string             `json:"context" binding:"max=500"`
}

// SendMessage stores a direct message and pushes it to the recipient's
// stream. The recipient is not required to exist.
func (s *Service) SendMessage(ctx context.Context, userID string, req SendMessageRequest) (*models.Message, error) {
	if _, err := s.owned(ctx, userID, req.FromVehicleID); err != nil {
		return nil, err
	}

	m := &models.Message{
		ID:            uuid.NewString(),
		FromVehicleID: req.FromVehicleID,
		ToVehicleID:   req.ToVehicleID,
		Body:          req.Body,
		Type:          defaultType(req.Type, models.MessageTypeText),
		Priority:      defaultPriority(req.Priority, models.PriorityNormal),
		CreatedAt:     s.now().UTC(),
	}
	if req.Enhance {
		s.enhance(ctx, m, req.Context)
	}

	if err := s.messages.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	s.publish(m)
	return m, nil
}

// enhance rewrites m in place. On any AI failure m is left as written.
func (s *Service) enhance(ctx context.Context, m *models.Message, details string) {
	if s.enhancer == nil {
		return
	}
	e, err := s.enhancer.EnhanceMessage(ctx, m.Body, details)
	if err != nil {
		zap.L().Warn("message enhancement failed, sending original", zap.String("message_id", m.ID), zap.Error(err))
		return
	}
	m.Body = e.EnhancedMessage
	m.AIInsight = e.Insight
	m.AIEnhanced = true
	if p := models.Priority(e.Priority); isPriority(p) && priorityRank(p) > priorityRank(m.Priority) {
		m.Priority = p
	}
}

func (s *Service) publish(m *models.Message) {
	if s.broadcaster == nil || m.ToVehicleID == "" {
		return
	}
	s.broadcaster.Publish(m.ToVehicleID, stream.NewEvent(stream.KindMessage, m))
}

type BroadcastRequest struct {
	FromVehicleID string             `json:"from_vehicle_id" binding:"required"`
	Body          string             `json:"body" binding:"required,max=1000"`
	Type          models.MessageType `json:"type" binding:"omitempty,oneof=text hazard traffic emergency"`
	Priority      models.Priority    `json:"priority" binding:"omitempty,oneof=low normal high critical"`
	RadiusKm      float64            `json:"radius_km" binding:"omitempty,gt=0"`
	Enhance       bool               `json:"enhance"`
	Context       string             `json:"context" binding:"max=500"`
}

type BroadcastResult struct {
	Master     *models.Message `json:"master"`
	Recipients int             `json:"recipients"`
	Delivered  int             `json:"delivered"`
	Failed     int             `json:"failed"`
}

// Broadcast stores one master message and one copy per nearby active
// vehicle. Copies are written independently: a failed copy is counted and
// logged, never retried, and does not undo the others.
func (s *Service) Broadcast(ctx context.Context, userID string, req BroadcastRequest) (*BroadcastResult, error) {
	radius := req.RadiusKm
	if radius == 0 {
		radius = s.cfg.BroadcastRadiusKm
	}
	if err := s.checkRadius(radius); err != nil {
		return nil, err
	}
	sender, err := s.owned(ctx, userID, req.FromVehicleID)
	if err != nil {
		return nil, err
	}

	master := &models.Message{
		ID:            uuid.NewString(),
		FromVehicleID: sender.ID,
		Body:          req.Body,
		Type:          defaultType(req.Type, models.MessageTypeEmergency),
		Priority:      defaultPriority(req.Priority, models.PriorityCritical),
		CreatedAt:     s.now().UTC(),
	}
	if req.Enhance {
		s.enhance(ctx, master, req.Context)
	}
	if err := s.messages.CreateMessage(ctx, master); err != nil {
		return nil, err
	}

	recipients, err := s.nearby(ctx, sender, radius)
	if err != nil {
		return nil, eris.Wrapf(err, "find recipients for broadcast %s", master.ID)
	}

	var delivered, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for _, r := range recipients {
		g.Go(func() error {
			c := *master
			c.ID = uuid.NewString()
			c.ToVehicleID = r.ID
			c.BroadcastID = master.ID
			if err := s.messages.CreateMessage(gctx, &c); err != nil {
				failed.Add(1)
				zap.L().Error("broadcast copy failed",
					zap.String("broadcast_id", master.ID), zap.String("to", r.ID), zap.Error(err))
				return nil
			}
			delivered.Add(1)
			s.publish(&c)
			return nil
		})
	}
	_ = g.Wait()

	res := &BroadcastResult{
		Master:     master,
		Recipients: len(recipients),
		Delivered:  int(delivered.Load()),
		Failed:     int(failed.Load()),
	}
	zap.L().Info("broadcast sent",
		zap.String("broadcast_id", master.ID),
		zap.Int("recipients", res.Recipients),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (s *Service) Inbox(ctx context.Context, userID, vehicleID string, limit int) ([]models.Message, error) {
	if _, err := s.owned(ctx, userID, vehicleID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListMessagesForVehicle(ctx, vehicleID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// MarkRead marks a message read on behalf of the owner of its recipient.
func (s *Service) MarkRead(ctx context.Context, userID, messageID string) (*models.Message, error) {
	m, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.ToVehicleID == "" {
		return nil, eris.Wrapf(ErrForbidden, "message %s has no recipient", messageID)
	}
	if _, err := s.owned(ctx, userID, m.ToVehicleID); err != nil {
		return nil, err
	}
	if err := s.messages.MarkRead(ctx, messageID); err != nil {
		return nil, err
	}
	m.Read = true
	return m, nil
}

// SweepStatuses writes the time-derived status of every vehicle whose stored
// status is out of date, returning how many changed.
func (s *Service) SweepStatuses(ctx context.Context) (int, error) {
	vs, err := s.vehicles.ListVehicles(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	changed := 0
	for _, v := range vs {
		next := NextStatus(v.Status, v.LastSeen, now)
		if next == v.Status {
			continue
		}
		if err := s.vehicles.UpdateStatus(ctx, v.ID, next); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

func defaultType(t, def models.MessageType) models.MessageType {
	if t == "" {
		return def
	}
	return t
}

func defaultPriority(p, def models.Priority) models.Priority {
	if p == "" {
		return def
	}
	return p
}

var priorityRanks = map[models.Priority]int{
	models.PriorityLow:      1,
	models.PriorityNormal:   2,
	models.PriorityHigh:     3,
	models.PriorityCritical: 4,
}

func isPriority(p models.Priority) bool { return priorityRanks[p] > 0 }
func priorityRank(p models.Priority) int { return priorityRanks[p] }
