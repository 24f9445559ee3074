package validation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

func TestClientPostsDocumentAndDecodesResult(t *testing.T) {
	var gotContentType string
	var gotQuestID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		var doc quest.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotQuestID = doc.QuestID

		result := quest.NewValidationResult()
		result.AddNodeError(2, "terminal node must not have successors")
		json.NewEncoder(w).Encode(result)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Validate(context.Background(), &quest.Document{QuestID: "Demo.Gate"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotQuestID != "Demo.Gate" {
		t.Errorf("quest id = %q", gotQuestID)
	}
	if result.Valid {
		t.Error("result should be invalid")
	}
	if len(result.Errors) != 1 || result.Errors[0].NodeID == nil || *result.Errors[0].NodeID != 2 {
		t.Errorf("errors = %+v", result.Errors)
	}
}

func TestClientReportsServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "schema rejected", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Validate(context.Background(), &quest.Document{QuestID: "Demo.Gate"}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestClientHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL)
	if _, err := client.Validate(ctx, &quest.Document{QuestID: "Demo.Gate"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
