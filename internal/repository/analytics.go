package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

// SaveSnapshot stores s as a history row and overwrites the cached latest document.
func (s *SQLiteDB) SaveSnapshot(ctx context.Context, snap *models.AnalyticsSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin snapshot tx")
	}
	defer tx.Rollback()

	for _, id := range []string{snap.ID, models.LatestSnapshotID} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analytics (id, window_days, summary, generated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				window_days = excluded.window_days,
				summary = excluded.summary,
				generated_at = excluded.generated_at`,
			id, snap.WindowDays, string(snap.Summary), toMillis(snap.GeneratedAt),
		)
		if err != nil {
			return eris.Wrapf(err, "save snapshot %s", id)
		}
	}
	return eris.Wrap(tx.Commit(), "commit snapshot")
}

func (s *SQLiteDB) LatestSnapshot(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	var (
		snap      models.AnalyticsSnapshot
		summary   string
		generated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, window_days, summary, generated_at FROM analytics WHERE id = ?`, models.LatestSnapshotID,
	).Scan(&snap.ID, &snap.WindowDays, &summary, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "analytics snapshot")
	}
	if err != nil {
		return nil, eris.Wrap(err, "get analytics snapshot")
	}
	snap.Summary = []byte(summary)
	snap.GeneratedAt = fromMillis(generated)
	return &snap, nil
}
