package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const disasterColumns = `id, source, type, severity, title, description, latitude, longitude,
	place, country, magnitude, depth_km, wind_speed, alert_level, url, timestamp, created_at`

func (s *SQLiteDB) Add(ctx context.Context, d *models.Disaster) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO disasters (`+disasterColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Source, string(d.Type), int(d.Severity), d.Title, d.Description, d.Latitude, d.Longitude,
		d.Place, d.Country, d.Magnitude, d.DepthKm, d.WindSpeed, d.AlertLevel, d.URL,
		toMillis(d.Timestamp), toMillis(d.CreatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "insert disaster %s", d.ID)
	}
	return nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.Disaster, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+disasterColumns+` FROM disasters WHERE id = ?`, id)
	d, err := scanDisaster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "disaster %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get disaster %s", id)
	}
	return d, nil
}

func (s *SQLiteDB) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM disasters WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "check disaster %s", id)
	}
	return n > 0, nil
}

func (s *SQLiteDB) ListDisasters(ctx context.Context, opts Filter) ([]models.Disaster, error) {
	var (
		where []string
		args  []any
	)
	if opts.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, toMillis(*opts.Since))
	}
	if opts.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*opts.Type))
	}
	if opts.MinSeverity != nil {
		where = append(where, "severity >= ?")
		args = append(args, int(*opts.MinSeverity))
	}
	if opts.MinMagnitude != nil {
		where = append(where, "magnitude >= ?")
		args = append(args, *opts.MinMagnitude)
	}

	query := `SELECT ` + disasterColumns + ` FROM disasters`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "list disasters")
	}
	defer rows.Close()

	var out []models.Disaster
	for rows.Next() {
		d, err := scanDisaster(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan disaster")
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "iterate disasters")
}

func (s *SQLiteDB) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM disasters WHERE timestamp < ?`, toMillis(cutoff))
	if err != nil {
		return 0, eris.Wrap(err, "delete old disasters")
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDisaster(sc scanner) (*models.Disaster, error) {
	var (
		d                           models.Disaster
		typ                         string
		severity                    int
		description, place, country sql.NullString
		alertLevel, url             sql.NullString
		magnitude, depth, wind      sql.NullFloat64
		timestamp, createdAt        int64
	)
	err := sc.Scan(&d.ID, &d.Source, &typ, &severity, &d.Title, &description, &d.Latitude, &d.Longitude,
		&place, &country, &magnitude, &depth, &wind, &alertLevel, &url, &timestamp, &createdAt)
	if err != nil {
		return nil, err
	}
	d.Type = models.DisasterType(typ)
	d.Severity = models.Severity(severity)
	d.Description = description.String
	d.Place = place.String
	d.Country = country.String
	d.Magnitude = magnitude.Float64
	d.DepthKm = depth.Float64
	d.WindSpeed = wind.Float64
	d.AlertLevel = alertLevel.String
	d.URL = url.String
	d.Timestamp = fromMillis(timestamp)
	d.CreatedAt = fromMillis(createdAt)
	return &d, nil
}
