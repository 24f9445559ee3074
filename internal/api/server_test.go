package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AaronLay10/QuestForge/internal/quest"
	"github.com/AaronLay10/QuestForge/internal/rules"
	"github.com/AaronLay10/QuestForge/internal/storage/files"
	"github.com/AaronLay10/QuestForge/internal/storage/sqlite"
)

// newTestServer wires a full server against temp storage with auth disabled.
func newTestServer(t *testing.T, devMode bool) *httptest.Server {
	t.Helper()
	resetAuth()

	dir := t.TempDir()
	quests, err := files.NewQuestRepository(filepath.Join(dir, "quests"))
	if err != nil {
		t.Fatalf("quest repo: %v", err)
	}

	refDir := filepath.Join(dir, "data")
	os.MkdirAll(refDir, 0o755)
	npcs := "- NPCID: gatekeeper\n  DisplayName:\n    en-US: The Gatekeeper\n"
	if err := os.WriteFile(filepath.Join(refDir, "npcs.yaml"), []byte(npcs), 0o644); err != nil {
		t.Fatalf("write npcs: %v", err)
	}
	refData, err := files.NewReferenceRepository(refDir)
	if err != nil {
		t.Fatalf("reference repo: %v", err)
	}

	metadata, err := sqlite.OpenMetadataStore(filepath.Join(dir, "metadata.db"))
	if err != nil {
		t.Fatalf("metadata store: %v", err)
	}
	t.Cleanup(func() { metadata.Close() })

	server := NewServer(quests, refData, metadata, rules.NewValidator(refData), nil, 50*time.Millisecond, devMode)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// validQuestBody builds a save request for a minimal quest that passes
// validation: one entry point feeding one terminal actions node.
func validQuestBody(t *testing.T, questID string) []byte {
	t.Helper()
	doc := quest.Document{
		QuestID:     questID,
		QuestType:   quest.SideQuest,
		DisplayName: quest.Text{quest.LocaleEnUS: "Test Quest"},
		QuestNodes: []quest.Node{
			{NodeID: 0, NodeType: quest.NodeEntryPoint, NextNodes: []int{1}},
			{NodeID: 1, NodeType: quest.NodeActions,
				Actions: []quest.Action{quest.VerbAction(quest.CompleteQuest)}},
		},
	}
	body, err := json.Marshal(struct {
		Quest    quest.Document  `json:"quest"`
		Metadata *quest.Metadata `json:"metadata,omitempty"`
	}{
		Quest: doc,
		Metadata: &quest.Metadata{
			NodePositions: map[int]quest.Position{0: {X: 100, Y: 100}, 1: {X: 320, Y: 100}},
		},
	})
	if err != nil {
		t.Fatalf("marshal quest: %v", err)
	}
	return body
}

func doJSON(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	resetAuth()
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", resp.Status)
	}
	if resp.Service != "quest-editor" {
		t.Errorf("expected service 'quest-editor', got '%s'", resp.Service)
	}
}

func TestQuestLifecycle(t *testing.T) {
	ts := newTestServer(t, false)
	questURL := ts.URL + "/api/quests/Demo.Gate"

	// Create
	resp := doJSON(t, http.MethodPut, questURL, validQuestBody(t, "Demo.Gate"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	var result quest.ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	resp.Body.Close()
	if !result.Valid {
		t.Errorf("quest should validate: %+v", result.Errors)
	}

	// List
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/quests", nil)
	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(ids) != 1 || ids[0] != "Demo.Gate" {
		t.Errorf("ids = %v", ids)
	}

	// Get, with metadata included from the save
	resp = doJSON(t, http.MethodGet, questURL, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var got struct {
		Quest    quest.Document `json:"quest"`
		Metadata quest.Metadata `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode quest: %v", err)
	}
	resp.Body.Close()
	if got.Quest.QuestID != "Demo.Gate" || len(got.Quest.QuestNodes) != 2 {
		t.Errorf("quest = %+v", got.Quest)
	}
	if got.Metadata.NodePositions[0] != (quest.Position{X: 100, Y: 100}) {
		t.Errorf("metadata = %+v", got.Metadata)
	}

	// Delete
	resp = doJSON(t, http.MethodDelete, questURL, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, questURL, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestSaveQuestIDMismatch(t *testing.T) {
	ts := newTestServer(t, false)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/quests/Demo.Other", validQuestBody(t, "Demo.Gate"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSaveRejectsWrongContentType(t *testing.T) {
	ts := newTestServer(t, false)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/quests/Demo.Gate",
		bytes.NewReader(validQuestBody(t, "Demo.Gate")))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestSaveInvalidQuestStillPersists(t *testing.T) {
	ts := newTestServer(t, false)

	// Dangling successor makes the quest invalid but it must still be saved.
	doc := quest.Document{
		QuestID:   "Demo.Broken",
		QuestType: quest.SideQuest,
		QuestNodes: []quest.Node{
			{NodeID: 0, NodeType: quest.NodeEntryPoint, NextNodes: []int{99}},
		},
	}
	body, _ := json.Marshal(map[string]interface{}{"quest": doc})

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/quests/Demo.Broken", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	var result quest.ValidationResult
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if result.Valid {
		t.Error("quest with dangling edge should be invalid")
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/quests/Demo.Broken", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("invalid quest was not persisted, status = %d", resp.StatusCode)
	}
}

func TestInvalidQuestIDRejected(t *testing.T) {
	ts := newTestServer(t, false)
	for _, id := range []string{"lowercase", "has%20space", "9Starts.WithDigit"} {
		resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/quests/%s", ts.URL, id), nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, resp.StatusCode)
		}
	}
}

func TestValidateEndpoint(t *testing.T) {
	ts := newTestServer(t, false)

	doc := quest.Document{
		QuestID:   "Demo.Gate",
		QuestType: quest.SideQuest,
		QuestNodes: []quest.Node{
			{NodeID: 0, NodeType: quest.NodeEntryPoint, NextNodes: []int{0}},
		},
	}
	body, _ := json.Marshal(doc)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/validate", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var result quest.ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if result.Valid {
		t.Error("self-referencing entry point should be invalid")
	}
	if len(result.Errors) == 0 {
		t.Error("expected validation errors")
	}
}

func TestMetadataEndpoints(t *testing.T) {
	ts := newTestServer(t, false)
	url := ts.URL + "/api/metadata/Demo.Gate"

	meta := quest.Metadata{NodePositions: map[int]quest.Position{2: {X: 10, Y: 20}}}
	body, _ := json.Marshal(meta)
	resp := doJSON(t, http.MethodPut, url, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, url, nil)
	var got quest.Metadata
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if got.QuestID != "Demo.Gate" || got.NodePositions[2] != (quest.Position{X: 10, Y: 20}) {
		t.Errorf("metadata = %+v", got)
	}
}

func TestReferenceEndpoint(t *testing.T) {
	ts := newTestServer(t, false)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/npcs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var npcs []quest.NPC
	if err := json.NewDecoder(resp.Body).Decode(&npcs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(npcs) != 1 || npcs[0].NPCID != "gatekeeper" {
		t.Errorf("npcs = %+v", npcs)
	}

	// Missing reference file yields an empty list, not an error
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/items", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("items status = %d", resp.StatusCode)
	}
}

func TestCORSHeadersInDevMode(t *testing.T) {
	ts := newTestServer(t, true)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/quests", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	// Unknown origins get no CORS headers
	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/quests", nil)
	req2.Header.Set("Origin", "http://evil.example.com")
	resp2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp2.Body.Close()
	if resp2.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Error("unexpected CORS header for unknown origin")
	}
}

func TestNoCORSHeadersWithoutDevMode(t *testing.T) {
	ts := newTestServer(t, false)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/quests", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Error("CORS headers should only be sent in dev mode")
	}
}
