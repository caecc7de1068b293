package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ReplaceChats replaces the cached roster wholesale, mirroring the
// gateway's full-snapshot push semantics. Labels carried by the snapshot
// are merged into chat_labels additively (absence never removes), matching
// the in-memory registry.
func (db *DB) ReplaceChats(chats []Chat, labelsByChat map[string][]string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM chats`); err != nil {
		return fmt.Errorf("clear chats: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, c := range chats {
		if _, err := tx.Exec(`
			INSERT INTO chats (id, name, is_group, unread_count, last_activity, last_preview, avatar_url, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.IsGroup, c.UnreadCount, c.LastActivity, c.LastPreview, c.AvatarURL, now); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
	}

	for chatID, labelIDs := range labelsByChat {
		if _, err := tx.Exec(`DELETE FROM chat_labels WHERE chat_id = ?`, chatID); err != nil {
			return fmt.Errorf("clear chat labels: %w", err)
		}
		for _, labelID := range labelIDs {
			if _, err := tx.Exec(`
				INSERT INTO chat_labels (chat_id, label_id) VALUES (?, ?)
				ON CONFLICT(chat_id, label_id) DO NOTHING`,
				chatID, labelID); err != nil {
				return fmt.Errorf("insert chat label: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster: %w", err)
	}
	return nil
}

// ListChats returns cached chats sorted by last activity descending.
func (db *DB) ListChats(limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT id, name, is_group, unread_count, last_activity, last_preview, avatar_url
		FROM chats
		ORDER BY last_activity DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.IsGroup, &c.UnreadCount, &c.LastActivity, &c.LastPreview, &c.AvatarURL); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single cached chat by id, or nil when absent.
func (db *DB) GetChat(id string) (*Chat, error) {
	var c Chat
	err := db.QueryRow(`
		SELECT id, name, is_group, unread_count, last_activity, last_preview, avatar_url
		FROM chats WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.IsGroup, &c.UnreadCount, &c.LastActivity, &c.LastPreview, &c.AvatarURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LabelsForChat returns the cached label ids attached to a chat.
func (db *DB) LabelsForChat(chatID string) ([]string, error) {
	rows, err := db.Query(`SELECT label_id FROM chat_labels WHERE chat_id = ? ORDER BY label_id`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
