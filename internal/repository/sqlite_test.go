package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-v2v/internal/geo"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testDisaster(id string, typ models.DisasterType, sev models.Severity, ts time.Time) *models.Disaster {
	return &models.Disaster{
		ID:        id,
		Source:    "test",
		Type:      typ,
		Severity:  sev,
		Title:     "Test " + id,
		Magnitude: 5.5,
		Latitude:  35.0,
		Longitude: 139.0,
		Timestamp: ts,
		CreatedAt: ts,
	}
}

func TestSQLiteDB_AddAndGetDisaster(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	d := testDisaster("usgs_123", models.DisasterTypeEarthquake, models.SeverityModerate, now)
	d.Place = "10km N of Tokyo"
	require.NoError(t, db.Add(ctx, d))

	got, err := db.GetByID(ctx, "usgs_123")
	require.NoError(t, err)
	assert.Equal(t, "Test usgs_123", got.Title)
	assert.Equal(t, models.DisasterTypeEarthquake, got.Type)
	assert.Equal(t, models.SeverityModerate, got.Severity)
	assert.Equal(t, "10km N of Tokyo", got.Place)
	assert.InDelta(t, 5.5, got.Magnitude, 0.001)
	assert.True(t, now.Equal(got.Timestamp))
}

func TestSQLiteDB_GetDisasterNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteDB_DuplicateDisaster(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	d := testDisaster("dup", models.DisasterTypeEarthquake, models.SeverityLow, time.Now())

	require.NoError(t, db.Add(ctx, d))
	assert.Error(t, db.Add(ctx, d))

	ok, err := db.Exists(ctx, "dup")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.Exists(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteDB_ListDisasters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	fixtures := []*models.Disaster{
		testDisaster("a", models.DisasterTypeEarthquake, models.SeverityLow, base.Add(-3*time.Hour)),
		testDisaster("b", models.DisasterTypeWeather, models.SeverityHigh, base.Add(-2*time.Hour)),
		testDisaster("c", models.DisasterTypeEarthquake, models.SeverityCritical, base.Add(-1*time.Hour)),
		testDisaster("d", models.DisasterTypeVolcano, models.SeverityModerate, base.Add(-48*time.Hour)),
	}
	for _, d := range fixtures {
		require.NoError(t, db.Add(ctx, d))
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := db.ListDisasters(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, []string{"c", "b", "a", "d"}, ids(got))
	})

	t.Run("type", func(t *testing.T) {
		typ := models.DisasterTypeEarthquake
		got, err := db.ListDisasters(ctx, Filter{Type: &typ})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, ids(got))
	})

	t.Run("min severity", func(t *testing.T) {
		sev := models.SeverityHigh
		got, err := db.ListDisasters(ctx, Filter{MinSeverity: &sev})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, ids(got))
	})

	t.Run("since", func(t *testing.T) {
		since := base.Add(-24 * time.Hour)
		got, err := db.ListDisasters(ctx, Filter{Since: &since})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := db.ListDisasters(ctx, Filter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, ids(got))
	})
}

func TestSQLiteDB_DeleteBefore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.Add(ctx, testDisaster("old", models.DisasterTypeWeather, models.SeverityLow, now.Add(-40*24*time.Hour))))
	require.NoError(t, db.Add(ctx, testDisaster("new", models.DisasterTypeWeather, models.SeverityLow, now)))

	n, err := db.DeleteBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ok, err := db.Exists(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testVehicle(id, user string, lat, lon float64, status models.VehicleStatus) *models.Vehicle {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Vehicle{
		ID:        id,
		UserID:    user,
		Name:      "Vehicle " + id,
		Type:      "car",
		Make:      "Toyota",
		Model:     "Prius",
		Year:      2021,
		Location:  models.Location{Latitude: lat, Longitude: lon, Heading: 90, Speed: 40},
		Status:    status,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLiteDB_Vehicles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateVehicle(ctx, testVehicle("v1", "u1", 30.27, -97.74, models.VehicleStatusActive)))
	require.NoError(t, db.CreateVehicle(ctx, testVehicle("v2", "u1", 30.28, -97.75, models.VehicleStatusInactive)))
	require.NoError(t, db.CreateVehicle(ctx, testVehicle("v3", "u2", 32.78, -96.80, models.VehicleStatusActive)))

	got, err := db.GetVehicle(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Toyota", got.Make)
	assert.Equal(t, 2021, got.Year)
	assert.InDelta(t, 90, got.Location.Heading, 0.001)

	_, err = db.GetVehicle(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	mine, err := db.ListVehiclesByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := db.ListVehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	box := geo.BoundingBox(30.27, -97.74, 10)
	inBox, err := db.ListVehiclesInBox(ctx, box, models.VehicleStatusActive)
	require.NoError(t, err)
	require.Len(t, inBox, 1)
	assert.Equal(t, "v1", inBox[0].ID)

	seen := time.Now().UTC().Truncate(time.Millisecond)
	loc := models.Location{Latitude: 30.30, Longitude: -97.70, Heading: 180, Speed: 10}
	require.NoError(t, db.UpdateLocation(ctx, "v2", loc, models.VehicleStatusActive, seen))
	got, err = db.GetVehicle(ctx, "v2")
	require.NoError(t, err)
	assert.Equal(t, models.VehicleStatusActive, got.Status)
	assert.InDelta(t, 30.30, got.Location.Latitude, 0.0001)
	assert.True(t, seen.Equal(got.LastSeen))

	require.NoError(t, db.UpdateStatus(ctx, "v2", models.VehicleStatusMaintenance))
	got, err = db.GetVehicle(ctx, "v2")
	require.NoError(t, err)
	assert.Equal(t, models.VehicleStatusMaintenance, got.Status)

	err = db.UpdateStatus(ctx, "ghost", models.VehicleStatusActive)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteDB_VehiclesAcrossAntimeridian(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateVehicle(ctx, testVehicle("east", "u1", 0, 179.99, models.VehicleStatusActive)))
	require.NoError(t, db.CreateVehicle(ctx, testVehicle("west", "u1", 0, -179.99, models.VehicleStatusActive)))

	got, err := db.ListVehiclesInBox(ctx, geo.BoundingBox(0, 179.99, 10), models.VehicleStatusActive)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteDB_Messages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	master := &models.Message{
		ID:            "m0",
		FromVehicleID: "v1",
		Body:          "Road closed ahead",
		Type:          models.MessageTypeHazard,
		Priority:      models.PriorityHigh,
		CreatedAt:     base,
	}
	require.NoError(t, db.CreateMessage(ctx, master))
	for i, to := range []string{"v2", "v3"} {
		require.NoError(t, db.CreateMessage(ctx, &models.Message{
			ID:            fmt.Sprintf("m%d", i+1),
			FromVehicleID: "v1",
			ToVehicleID:   to,
			BroadcastID:   "m0",
			Body:          master.Body,
			Type:          master.Type,
			Priority:      master.Priority,
			AIEnhanced:    true,
			AIInsight:     "Detour via 5th St",
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}))
	}

	n, err := db.CountByBroadcast(ctx, "m0")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	inbox, err := db.ListMessagesForVehicle(ctx, "v2", 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "m0", inbox[0].BroadcastID)
	assert.True(t, inbox[0].AIEnhanced)
	assert.Equal(t, "Detour via 5th St", inbox[0].AIInsight)
	assert.False(t, inbox[0].Read)

	require.NoError(t, db.MarkRead(ctx, "m1"))
	got, err := db.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, got.Read)

	assert.True(t, errors.Is(db.MarkRead(ctx, "missing"), ErrNotFound))

	deleted, err := db.DeleteMessagesBefore(ctx, base.Add(500*time.Millisecond))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}

func TestSQLiteDB_Chats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	entries := []*models.ChatEntry{
		{ID: "c1", UserID: "u1", Category: models.ChatCategoryChat, Input: "hi", Output: "hello", CreatedAt: base.Add(-2 * time.Minute)},
		{ID: "c2", UserID: "u1", Category: models.ChatCategoryPlan, Input: "plan", Output: "{}", Structured: json.RawMessage(`{"steps":[]}`), CreatedAt: base.Add(-time.Minute)},
		{ID: "c3", UserID: "u2", Category: models.ChatCategoryChat, Input: "yo", Output: "hey", CreatedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, db.CreateChat(ctx, e))
	}

	got, err := db.GetChat(ctx, "c2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"steps":[]}`, string(got.Structured))

	got, err = db.GetChat(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got.Structured)

	list, err := db.ListChats(ctx, "u1", nil, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)

	cat := models.ChatCategoryChat
	list, err = db.ListChats(ctx, "u1", &cat, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c1", list[0].ID)

	require.NoError(t, db.DeleteChat(ctx, "c1"))
	assert.True(t, errors.Is(db.DeleteChat(ctx, "c1"), ErrNotFound))

	n, err := db.DeleteChatsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = db.DeleteChatsBefore(ctx, base.Add(time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSQLiteDB_Users(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	u := &models.User{
		ID:          "u1",
		Email:       "a@example.com",
		DisplayName: "Ann",
		Preferences: models.DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	require.NoError(t, db.UpsertUser(ctx, u))

	prefs := models.Preferences{AlertRadiusKm: 25, AlertTypes: []models.DisasterType{models.DisasterTypeTsunami}, Units: "imperial"}
	require.NoError(t, db.UpdatePreferences(ctx, "u1", prefs))

	// A second login refreshes the profile but keeps preferences.
	later := now.Add(time.Hour)
	u2 := *u
	u2.DisplayName = "Ann B"
	u2.CreatedAt = later
	u2.UpdatedAt = later
	u2.LastLoginAt = later
	require.NoError(t, db.UpsertUser(ctx, &u2))

	got, err := db.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann B", got.DisplayName)
	assert.Equal(t, prefs, got.Preferences)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.True(t, later.Equal(got.LastLoginAt))

	assert.True(t, errors.Is(db.UpdatePreferences(ctx, "ghost", prefs), ErrNotFound))

	require.NoError(t, db.DeleteUser(ctx, "u1"))
	_, err = db.GetUser(ctx, "u1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteDB_AnalyticsSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.LatestSnapshot(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	first := &models.AnalyticsSnapshot{ID: "s1", WindowDays: 7, Summary: json.RawMessage(`{"total":1}`), GeneratedAt: time.Now()}
	second := &models.AnalyticsSnapshot{ID: "s2", WindowDays: 30, Summary: json.RawMessage(`{"total":2}`), GeneratedAt: time.Now()}
	require.NoError(t, db.SaveSnapshot(ctx, first))
	require.NoError(t, db.SaveSnapshot(ctx, second))

	got, err := db.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.LatestSnapshotID, got.ID)
	assert.Equal(t, 30, got.WindowDays)
	assert.JSONEq(t, `{"total":2}`, string(got.Summary))
}

func ids(ds []models.Disaster) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}
