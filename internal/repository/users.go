package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

// UpsertUser inserts the user or refreshes its profile fields. Preferences
// and created_at are kept on conflict.
func (s *SQLiteDB) UpsertUser(ctx context.Context, u *models.User) error {
	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return eris.Wrap(err, "marshal preferences")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, photo_url, preferences, created_at, updated_at, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			photo_url = excluded.photo_url,
			updated_at = excluded.updated_at,
			last_login_at = excluded.last_login_at`,
		u.ID, u.Email, u.DisplayName, u.PhotoURL, string(prefs),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt), toMillis(u.LastLoginAt),
	)
	if err != nil {
		return eris.Wrapf(err, "upsert user %s", u.ID)
	}
	return nil
}

func (s *SQLiteDB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var (
		u                         models.User
		email, name, photo        sql.NullString
		prefs                     string
		created, updated, lastLog int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, photo_url, preferences, created_at, updated_at, last_login_at
		FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &email, &name, &photo, &prefs, &created, &updated, &lastLog)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "user %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get user %s", id)
	}
	if err := json.Unmarshal([]byte(prefs), &u.Preferences); err != nil {
		return nil, eris.Wrapf(err, "decode preferences for %s", id)
	}
	u.Email = email.String
	u.DisplayName = name.String
	u.PhotoURL = photo.String
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	u.LastLoginAt = fromMillis(lastLog)
	return &u, nil
}

func (s *SQLiteDB) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return eris.Wrap(err, "marshal preferences")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET preferences = ?, updated_at = ? WHERE id = ?`,
		string(raw), toMillis(time.Now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "update preferences %s", id)
	}
	return checkRowsAffected(res, "user", id)
}

func (s *SQLiteDB) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "delete user %s", id)
	}
	return checkRowsAffected(res, "user", id)
}
