package files

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

func testRepo(t *testing.T) *QuestRepository {
	t.Helper()
	repo, err := NewQuestRepository(t.TempDir())
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	return repo
}

func sampleDoc(questID string) *quest.Document {
	return &quest.Document{
		QuestID:     questID,
		QuestType:   quest.SideQuest,
		DisplayName: quest.Text{quest.LocaleEnUS: "Sample"},
		QuestNodes: []quest.Node{
			{NodeID: 0, NodeType: quest.NodeEntryPoint, NextNodes: []int{1}},
			{NodeID: 1, NodeType: quest.NodeActions,
				Actions: []quest.Action{quest.VerbAction(quest.CompleteQuest)}},
		},
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	repo := testRepo(t)
	doc := sampleDoc("Demo.Gate")

	if err := repo.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Get("Demo.Gate")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.QuestID != doc.QuestID || len(got.QuestNodes) != 2 {
		t.Errorf("round trip lost data: %+v", got)
	}
	if !reflect.DeepEqual(got.QuestNodes[0].NextNodes, []int{1}) {
		t.Errorf("NextNodes = %v", got.QuestNodes[0].NextNodes)
	}
	if got.QuestNodes[1].Actions[0].Verb != quest.CompleteQuest {
		t.Errorf("action = %+v", got.QuestNodes[1].Actions[0])
	}
}

func TestGetMissingQuest(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.Get("Demo.Missing")
	if !errors.Is(err, quest.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListSorted(t *testing.T) {
	repo := testRepo(t)
	for _, id := range []string{"Zeta.Q", "Alpha.Q", "Mid.Q"} {
		if err := repo.Save(sampleDoc(id)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	ids, err := repo.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Alpha.Q", "Mid.Q", "Zeta.Q"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewQuestRepository(dir)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	if err := repo.Save(sampleDoc("Demo.Gate")); err != nil {
		t.Fatalf("save: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "lowercase.yaml"), []byte("x"), 0o644)

	ids, err := repo.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"Demo.Gate"}) {
		t.Errorf("ids = %v", ids)
	}
}

func TestDelete(t *testing.T) {
	repo := testRepo(t)
	if err := repo.Save(sampleDoc("Demo.Gate")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Delete("Demo.Gate"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete("Demo.Gate"); !errors.Is(err, quest.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	exists, err := repo.Exists("Demo.Gate")
	if err != nil || exists {
		t.Errorf("exists = %v, %v", exists, err)
	}
}

func TestRejectsInvalidQuestID(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.Get("../escape"); !errors.Is(err, quest.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if err := repo.Save(&quest.Document{QuestID: "lower"}); !errors.Is(err, quest.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestMismatchedFileContents(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewQuestRepository(dir)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "Demo.Gate.yaml"), []byte("QuestID: Other.Quest\n"), 0o644)

	if _, err := repo.Get("Demo.Gate"); !errors.Is(err, quest.ErrSchemaViolation) {
		t.Errorf("err = %v, want ErrSchemaViolation", err)
	}
}

func TestReferenceRepositoryMissingFilesAreEmpty(t *testing.T) {
	refs, err := NewReferenceRepository(t.TempDir())
	if err != nil {
		t.Fatalf("open refs: %v", err)
	}
	items, err := refs.ListItems()
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %+v", items)
	}
}

func TestReferenceRepositoryLoadsYAML(t *testing.T) {
	dir := t.TempDir()
	content := "- NPCID: gatekeeper\n  DisplayName:\n    en-US: The Gatekeeper\n"
	if err := os.WriteFile(filepath.Join(dir, "npcs.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write npcs: %v", err)
	}
	refs, err := NewReferenceRepository(dir)
	if err != nil {
		t.Fatalf("open refs: %v", err)
	}

	npcs, err := refs.ListNPCs()
	if err != nil {
		t.Fatalf("list npcs: %v", err)
	}
	if len(npcs) != 1 || npcs[0].NPCID != "gatekeeper" {
		t.Errorf("npcs = %+v", npcs)
	}
	if npcs[0].DisplayName.Get(quest.LocaleEnUS) != "The Gatekeeper" {
		t.Errorf("display name = %+v", npcs[0].DisplayName)
	}
}
