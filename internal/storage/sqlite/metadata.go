// Package sqlite persists editor-only quest metadata, currently canvas node
// positions. Metadata is presentation state and never part of a quest
// document itself.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

// MetadataStore stores per-quest editor metadata in a SQLite database.
type MetadataStore struct {
	db *sql.DB
}

// OpenMetadataStore opens (or creates) a metadata database at the given path.
func OpenMetadataStore(path string) (*MetadataStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}

	// SQLite: single writer, so keep a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure metadata database: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS quest_metadata (
			quest_id TEXT PRIMARY KEY,
			node_positions TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize metadata schema: %w", err)
	}

	return &MetadataStore{db: db}, nil
}

// Close closes the underlying database.
func (s *MetadataStore) Close() error {
	return s.db.Close()
}

// Get returns the stored metadata for a quest. A quest with no stored
// metadata yields an empty position map, not an error.
func (s *MetadataStore) Get(questID string) (*quest.Metadata, error) {
	if err := quest.ValidateQuestID(questID); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRow(
		"SELECT node_positions FROM quest_metadata WHERE quest_id = ?", questID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return &quest.Metadata{
			QuestID:       questID,
			NodePositions: map[int]quest.Position{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load metadata for %s: %w", questID, err)
	}

	positions := map[int]quest.Position{}
	if err := json.Unmarshal([]byte(raw), &positions); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", questID, err)
	}
	return &quest.Metadata{QuestID: questID, NodePositions: positions}, nil
}

// Save stores metadata for a quest, replacing any previous entry.
func (s *MetadataStore) Save(meta *quest.Metadata) error {
	if err := quest.ValidateQuestID(meta.QuestID); err != nil {
		return err
	}

	positions := meta.NodePositions
	if positions == nil {
		positions = map[int]quest.Position{}
	}
	raw, err := json.Marshal(positions)
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", meta.QuestID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO quest_metadata (quest_id, node_positions) VALUES (?, ?)
		ON CONFLICT (quest_id) DO UPDATE SET node_positions = excluded.node_positions
	`, meta.QuestID, string(raw))
	if err != nil {
		return fmt.Errorf("store metadata for %s: %w", meta.QuestID, err)
	}
	return nil
}

// Delete removes any stored metadata for a quest. Deleting metadata that
// does not exist is not an error.
func (s *MetadataStore) Delete(questID string) error {
	if err := quest.ValidateQuestID(questID); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM quest_metadata WHERE quest_id = ?", questID); err != nil {
		return fmt.Errorf("delete metadata for %s: %w", questID, err)
	}
	return nil
}
