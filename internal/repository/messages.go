package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const messageColumns = `id, from_vehicle_id, to_vehicle_id, broadcast_id, body, type, priority,
	ai_enhanced, ai_insight, read, created_at`

func (s *SQLiteDB) CreateMessage(ctx context.Context, m *models.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.FromVehicleID, m.ToVehicleID, m.BroadcastID, m.Body, string(m.Type), string(m.Priority),
		boolToInt(m.AIEnhanced), m.AIInsight, boolToInt(m.Read), toMillis(m.CreatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "insert message %s", m.ID)
	}
	return nil
}

func (s *SQLiteDB) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "message %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get message %s", id)
	}
	return m, nil
}

// ListMessagesForVehicle returns messages addressed to vehicleID, newest first.
func (s *SQLiteDB) ListMessagesForVehicle(ctx context.Context, vehicleID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE to_vehicle_id = ? ORDER BY created_at DESC LIMIT ?`,
		vehicleID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "list messages for vehicle %s", vehicleID)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan message")
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "iterate messages")
}

// CountByBroadcast counts the master message plus every copy of a broadcast.
func (s *SQLiteDB) CountByBroadcast(ctx context.Context, broadcastID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM messages WHERE id = ? OR broadcast_id = ?`, broadcastID, broadcastID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "count broadcast %s", broadcastID)
	}
	return n, nil
}

func (s *SQLiteDB) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "mark message read %s", id)
	}
	return checkRowsAffected(res, "message", id)
}

func (s *SQLiteDB) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, eris.Wrap(err, "delete old messages")
	}
	return res.RowsAffected()
}

func scanMessage(sc scanner) (*models.Message, error) {
	var (
		m                      models.Message
		to, broadcast, insight sql.NullString
		typ, priority          string
		enhanced, read         int
		created                int64
	)
	err := sc.Scan(&m.ID, &m.FromVehicleID, &to, &broadcast, &m.Body, &typ, &priority,
		&enhanced, &insight, &read, &created)
	if err != nil {
		return nil, err
	}
	m.ToVehicleID = to.String
	m.BroadcastID = broadcast.String
	m.Type = models.MessageType(typ)
	m.Priority = models.Priority(priority)
	m.AIEnhanced = enhanced == 1
	m.AIInsight = insight.String
	m.Read = read == 1
	m.CreatedAt = fromMillis(created)
	return &m, nil
}
