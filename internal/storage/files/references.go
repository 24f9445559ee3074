package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

// ReferenceRepository serves the world data quests refer to: items,
// factions, resources, NPCs and objects. Each kind lives in a fixed YAML
// file under the reference directory; a missing file means an empty list.
type ReferenceRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewReferenceRepository opens a reference data directory.
func NewReferenceRepository(dir string) (*ReferenceRepository, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open reference directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open reference directory: %s is not a directory", dir)
	}
	return &ReferenceRepository{dir: dir}, nil
}

func loadList[T any](r *ReferenceRepository, filename string) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(r.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	var list []T
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// ListItems returns all known items.
func (r *ReferenceRepository) ListItems() ([]quest.Item, error) {
	return loadList[quest.Item](r, "items.yaml")
}

// ListFactions returns all known factions.
func (r *ReferenceRepository) ListFactions() ([]quest.Faction, error) {
	return loadList[quest.Faction](r, "factions.yaml")
}

// ListResources returns all known resources.
func (r *ReferenceRepository) ListResources() ([]quest.Resource, error) {
	return loadList[quest.Resource](r, "resources.yaml")
}

// ListNPCs returns all known NPCs.
func (r *ReferenceRepository) ListNPCs() ([]quest.NPC, error) {
	return loadList[quest.NPC](r, "npcs.yaml")
}

// ListObjects returns all known world objects.
func (r *ReferenceRepository) ListObjects() ([]quest.Object, error) {
	return loadList[quest.Object](r, "objects.yaml")
}
