package v2v

import (
	"context"
	"errors"
	"time"

	"github.com/looplab/fsm"
	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

// Elapsed time since last seen that moves a vehicle out of active and
// out of warning.
const (
	WarningAfter  = 10 * time.Minute
	InactiveAfter = 30 * time.Minute
)

// Status events.
const (
	EventHeartbeat = "heartbeat"
	EventStale     = "stale"
	EventExpire    = "expire"
	EventService   = "service"
	EventRestore   = "restore"
)

var ErrInvalidTransition = eris.New("invalid status transition")

var (
	active      = string(models.VehicleStatusActive)
	warning     = string(models.VehicleStatusWarning)
	inactive    = string(models.VehicleStatusInactive)
	maintenance = string(models.VehicleStatusMaintenance)
)

var statusEvents = fsm.Events{
	{Name: EventHeartbeat, Src: []string{active, warning, inactive}, Dst: active},
	{Name: EventStale, Src: []string{active, inactive}, Dst: warning},
	{Name: EventExpire, Src: []string{active, warning}, Dst: inactive},
	{Name: EventService, Src: []string{active, warning, inactive}, Dst: maintenance},
	{Name: EventRestore, Src: []string{maintenance}, Dst: active},
}

// DeriveStatus maps time since lastSeen onto active, warning or inactive.
// Both 10 and 30 minutes are still a warning.
func DeriveStatus(lastSeen, now time.Time) models.VehicleStatus {
	elapsed := now.Sub(lastSeen)
	switch {
	case elapsed < WarningAfter:
		return models.VehicleStatusActive
	case elapsed <= InactiveAfter:
		return models.VehicleStatusWarning
	default:
		return models.VehicleStatusInactive
	}
}

// Transition applies event to current and returns the resulting status.
func Transition(current models.VehicleStatus, event string) (models.VehicleStatus, error) {
	machine := fsm.NewFSM(string(current), statusEvents, fsm.Callbacks{})
	err := machine.Event(context.Background(), event)

	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return current, eris.Wrapf(ErrInvalidTransition, "%s from %s: %v", event, current, err)
	}
	return models.VehicleStatus(machine.Current()), nil
}

// NextStatus moves current toward the status implied by lastSeen.
// Maintenance is only left through an explicit restore.
func NextStatus(current models.VehicleStatus, lastSeen, now time.Time) models.VehicleStatus {
	if current == models.VehicleStatusMaintenance {
		return current
	}

	target := DeriveStatus(lastSeen, now)
	if target == current {
		return current
	}

	var event string
	switch target {
	case models.VehicleStatusActive:
		event = EventHeartbeat
	case models.VehicleStatusWarning:
		event = EventStale
	default:
		event = EventExpire
	}

	next, err := Transition(current, event)
	if err != nil {
		// Unknown stored status; trust the clock.
		return target
	}
	return next
}
