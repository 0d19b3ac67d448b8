package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const chatColumns = `id, user_id, category, input, output, structured, created_at`

func (s *SQLiteDB) CreateChat(ctx context.Context, e *models.ChatEntry) error {
	var structured sql.NullString
	if len(e.Structured) > 0 {
		structured = sql.NullString{String: string(e.Structured), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (`+chatColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Category), e.Input, e.Output, structured, toMillis(e.CreatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "insert chat %s", e.ID)
	}
	return nil
}

func (s *SQLiteDB) GetChat(ctx context.Context, id string) (*models.ChatEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chat_history WHERE id = ?`, id)
	e, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "chat %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get chat %s", id)
	}
	return e, nil
}

func (s *SQLiteDB) ListChats(ctx context.Context, userID string, category *models.ChatCategory, limit int) ([]models.ChatEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + chatColumns + ` FROM chat_history WHERE user_id = ?`
	args := []any{userID}
	if category != nil {
		query += ` AND category = ?`
		args = append(args, string(*category))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "list chats for %s", userID)
	}
	defer rows.Close()

	var out []models.ChatEntry
	for rows.Next() {
		e, err := scanChat(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan chat")
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "iterate chats")
}

func (s *SQLiteDB) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "delete chat %s", id)
	}
	return checkRowsAffected(res, "chat", id)
}

func (s *SQLiteDB) DeleteChatsByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, eris.Wrapf(err, "delete chats for %s", userID)
	}
	return res.RowsAffected()
}

func (s *SQLiteDB) DeleteChatsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE created_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, eris.Wrap(err, "delete old chats")
	}
	return res.RowsAffected()
}

func scanChat(sc scanner) (*models.ChatEntry, error) {
	var (
		e          models.ChatEntry
		category   string
		structured sql.NullString
		created    int64
	)
	if err := sc.Scan(&e.ID, &e.UserID, &category, &e.Input, &e.Output, &structured, &created); err != nil {
		return nil, err
	}
	e.Category = models.ChatCategory(category)
	if structured.Valid && structured.String != "" {
		e.Structured = []byte(structured.String)
	}
	e.CreatedAt = fromMillis(created)
	return &e, nil
}
