package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/geo"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const vehicleColumns = `id, user_id, name, type, make, model, year, latitude, longitude,
	heading, speed, status, last_seen, created_at, updated_at`

func (s *SQLiteDB) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Name, v.Type, v.Make, v.Model, v.Year,
		v.Location.Latitude, v.Location.Longitude, v.Location.Heading, v.Location.Speed,
		string(v.Status), toMillis(v.LastSeen), toMillis(v.CreatedAt), toMillis(v.UpdatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "insert vehicle %s", v.ID)
	}
	return nil
}

func (s *SQLiteDB) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "vehicle %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get vehicle %s", id)
	}
	return v, nil
}

func (s *SQLiteDB) ListVehiclesByUser(ctx context.Context, userID string) ([]models.Vehicle, error) {
	return s.queryVehicles(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE user_id = ? ORDER BY created_at`, userID)
}

func (s *SQLiteDB) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return s.queryVehicles(ctx, `SELECT `+vehicleColumns+` FROM vehicles`)
}

func (s *SQLiteDB) ListVehiclesInBox(ctx context.Context, box geo.Box, status models.VehicleStatus) ([]models.Vehicle, error) {
	args := []any{box.MinLat(), box.MaxLat(), string(status)}

	var lonClauses []string
	for _, r := range box.LonRanges() {
		lonClauses = append(lonClauses, "(longitude BETWEEN ? AND ?)")
		args = append(args, r[0], r[1])
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles
		WHERE latitude BETWEEN ? AND ? AND status = ? AND (` + strings.Join(lonClauses, " OR ") + `)`
	return s.queryVehicles(ctx, query, args...)
}

func (s *SQLiteDB) UpdateLocation(ctx context.Context, id string, loc models.Location, status models.VehicleStatus, seen time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vehicles SET latitude = ?, longitude = ?, heading = ?, speed = ?, status = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`,
		loc.Latitude, loc.Longitude, loc.Heading, loc.Speed, string(status), toMillis(seen), toMillis(time.Now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "update vehicle location %s", id)
	}
	return checkRowsAffected(res, "vehicle", id)
}

func (s *SQLiteDB) UpdateStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vehicles SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMillis(time.Now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "update vehicle status %s", id)
	}
	return checkRowsAffected(res, "vehicle", id)
}

func (s *SQLiteDB) queryVehicles(ctx context.Context, query string, args ...any) ([]models.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "query vehicles")
	}
	defer rows.Close()

	var out []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan vehicle")
		}
		out = append(out, *v)
	}
	return out, eris.Wrap(rows.Err(), "iterate vehicles")
}

func scanVehicle(sc scanner) (*models.Vehicle, error) {
	var (
		v                          models.Vehicle
		status                     string
		vmake, vmodel              sql.NullString
		year                       sql.NullInt64
		heading, speed             sql.NullFloat64
		lastSeen, created, updated int64
	)
	err := sc.Scan(&v.ID, &v.UserID, &v.Name, &v.Type, &vmake, &vmodel, &year,
		&v.Location.Latitude, &v.Location.Longitude, &heading, &speed,
		&status, &lastSeen, &created, &updated)
	if err != nil {
		return nil, err
	}
	v.Make = vmake.String
	v.Model = vmodel.String
	v.Year = int(year.Int64)
	v.Location.Heading = heading.Float64
	v.Location.Speed = speed.Float64
	v.Status = models.VehicleStatus(status)
	v.LastSeen = fromMillis(lastSeen)
	v.CreatedAt = fromMillis(created)
	v.UpdatedAt = fromMillis(updated)
	return &v, nil
}
