// Package files persists quest documents and reference data as YAML files
// on disk. Quests live one file per quest, named by quest ID; reference
// data lives in fixed per-kind files.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

// QuestRepository stores quest documents under a single directory.
type QuestRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewQuestRepository opens a quest directory, creating it if needed.
func NewQuestRepository(dir string) (*QuestRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create quest directory: %w", err)
	}
	return &QuestRepository{dir: dir}, nil
}

func (r *QuestRepository) path(questID string) (string, error) {
	if err := quest.ValidateQuestID(questID); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, questID+".yaml"), nil
}

// List returns the IDs of all stored quests, sorted.
func (r *QuestRepository) List() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read quest directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		id, ok := strings.CutSuffix(name, ".yaml")
		if !ok {
			continue
		}
		if quest.ValidateQuestID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get loads a quest by ID. Returns quest.ErrNotFound if no such quest exists.
func (r *QuestRepository) Get(questID string) (*quest.Document, error) {
	path, err := r.path(questID)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: quest %s", quest.ErrNotFound, questID)
		}
		return nil, fmt.Errorf("read quest %s: %w", questID, err)
	}

	var doc quest.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse quest %s: %w", questID, err)
	}
	if doc.QuestID != questID {
		return nil, fmt.Errorf("%w: quest file %s contains QuestID %q", quest.ErrSchemaViolation, questID, doc.QuestID)
	}
	return &doc, nil
}

// Exists reports whether a quest with the given ID is stored.
func (r *QuestRepository) Exists(questID string) (bool, error) {
	path, err := r.path(questID)
	if err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save writes a quest document to disk. The write is atomic: the document is
// written to a temp file in the same directory and renamed over the target.
func (r *QuestRepository) Save(doc *quest.Document) error {
	path, err := r.path(doc.QuestID)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode quest %s: %w", doc.QuestID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, "."+doc.QuestID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for quest %s: %w", doc.QuestID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write quest %s: %w", doc.QuestID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write quest %s: %w", doc.QuestID, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store quest %s: %w", doc.QuestID, err)
	}
	return nil
}

// Delete removes a quest from disk. Returns quest.ErrNotFound if it does
// not exist.
func (r *QuestRepository) Delete(questID string) error {
	path, err := r.path(questID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: quest %s", quest.ErrNotFound, questID)
		}
		return fmt.Errorf("delete quest %s: %w", questID, err)
	}
	return nil
}
