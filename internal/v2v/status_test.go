package v2v

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		elapsed time.Duration
		want    models.VehicleStatus
	}{
		{0, models.VehicleStatusActive},
		{9*time.Minute + 59*time.Second, models.VehicleStatusActive},
		{10 * time.Minute, models.VehicleStatusWarning},
		{20 * time.Minute, models.VehicleStatusWarning},
		{30 * time.Minute, models.VehicleStatusWarning},
		{30*time.Minute + time.Second, models.VehicleStatusInactive},
		{48 * time.Hour, models.VehicleStatusInactive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(now.Add(-tt.elapsed), now), "elapsed %s", tt.elapsed)
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from  models.VehicleStatus
		event string
		want  models.VehicleStatus
		err   bool
	}{
		{models.VehicleStatusInactive, EventHeartbeat, models.VehicleStatusActive, false},
		{models.VehicleStatusActive, EventHeartbeat, models.VehicleStatusActive, false},
		{models.VehicleStatusActive, EventStale, models.VehicleStatusWarning, false},
		{models.VehicleStatusWarning, EventExpire, models.VehicleStatusInactive, false},
		{models.VehicleStatusWarning, EventService, models.VehicleStatusMaintenance, false},
		{models.VehicleStatusMaintenance, EventRestore, models.VehicleStatusActive, false},
		{models.VehicleStatusMaintenance, EventHeartbeat, models.VehicleStatusMaintenance, true},
		{models.VehicleStatusActive, EventRestore, models.VehicleStatusActive, true},
		{models.VehicleStatusActive, "explode", models.VehicleStatusActive, true},
	}
	for _, tt := range tests {
		got, err := Transition(tt.from, tt.event)
		if tt.err {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s from %s", tt.event, tt.from)
		} else {
			require.NoError(t, err, "%s from %s", tt.event, tt.from)
		}
		assert.Equal(t, tt.want, got, "%s from %s", tt.event, tt.from)
	}
}

func TestNextStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, models.VehicleStatusWarning, NextStatus(models.VehicleStatusActive, now.Add(-15*time.Minute), now))
	assert.Equal(t, models.VehicleStatusInactive, NextStatus(models.VehicleStatusActive, now.Add(-time.Hour), now))
	assert.Equal(t, models.VehicleStatusInactive, NextStatus(models.VehicleStatusWarning, now.Add(-time.Hour), now))
	assert.Equal(t, models.VehicleStatusActive, NextStatus(models.VehicleStatusInactive, now, now))
	assert.Equal(t, models.VehicleStatusMaintenance, NextStatus(models.VehicleStatusMaintenance, now.Add(-time.Hour), now))
	assert.Equal(t, models.VehicleStatusWarning, NextStatus("", now.Add(-20*time.Minute), now))
}
