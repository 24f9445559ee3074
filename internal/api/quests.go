package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AaronLay10/QuestForge/internal/events"
	"github.com/AaronLay10/QuestForge/internal/quest"
)

func (s *Server) handleQuests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listQuests(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleQuest(w http.ResponseWriter, r *http.Request) {
	questID := strings.TrimPrefix(r.URL.Path, "/api/quests/")
	if questID == "" {
		http.Error(w, "quest ID required", http.StatusBadRequest)
		return
	}

	if err := quest.ValidateQuestID(questID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getQuest(w, r, questID)
	case http.MethodPut:
		s.saveQuest(w, r, questID)
	case http.MethodDelete:
		s.deleteQuest(w, r, questID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listQuests(w http.ResponseWriter, r *http.Request) {
	questIDs, err := s.quests.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, questIDs)
}

func (s *Server) getQuest(w http.ResponseWriter, r *http.Request, questID string) {
	doc, err := s.quests.Get(questID)
	if err != nil {
		if errors.Is(err, quest.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Include metadata in response (log error but don't fail the request)
	meta, err := s.metadata.Get(questID)
	if err != nil {
		slog.Warn("failed to fetch metadata", "quest", questID, "error", err)
	}

	events.EmitQuest("info", "quest.loaded", "", questID, nil)

	response := struct {
		Quest    *quest.Document `json:"quest"`
		Metadata *quest.Metadata `json:"metadata,omitempty"`
	}{
		Quest:    doc,
		Metadata: meta,
	}
	writeJSON(w, response)
}

func (s *Server) saveQuest(w http.ResponseWriter, r *http.Request, questID string) {
	if !requireJSONContentType(w, r) {
		return
	}

	var request struct {
		Quest    quest.Document  `json:"quest"`
		Metadata *quest.Metadata `json:"metadata,omitempty"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.Quest.QuestID != questID {
		http.Error(w, "quest ID mismatch", http.StatusBadRequest)
		return
	}

	existed, err := s.quests.Exists(questID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := s.validator.Validate(r.Context(), &request.Quest)
	if err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	// Save even if invalid, so work in progress is never lost.
	if err := s.quests.Save(&request.Quest); err != nil {
		events.EmitQuest("error", "quest.save_failed", err.Error(), questID, nil)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if request.Metadata != nil {
		request.Metadata.QuestID = questID
		if err := s.metadata.Save(request.Metadata); err != nil {
			slog.Warn("failed to save metadata", "quest", questID, "error", err)
		} else {
			events.EmitQuest("info", "metadata.saved", "", questID, nil)
		}
	}

	if existed {
		events.EmitQuest("info", "quest.saved", "", questID, map[string]interface{}{
			"valid": result.Valid,
		})
	} else {
		events.EmitQuest("info", "quest.created", "", questID, map[string]interface{}{
			"valid": result.Valid,
		})
	}
	if s.notifier != nil {
		s.notifier.QuestSaved(questID)
	}

	writeJSON(w, result)
}

func (s *Server) deleteQuest(w http.ResponseWriter, r *http.Request, questID string) {
	if err := s.quests.Delete(questID); err != nil {
		if errors.Is(err, quest.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Also delete metadata (log error but don't fail, the quest is gone)
	if err := s.metadata.Delete(questID); err != nil {
		slog.Warn("failed to delete metadata", "quest", questID, "error", err)
	}

	events.EmitQuest("info", "quest.deleted", "", questID, nil)
	if s.notifier != nil {
		s.notifier.QuestDeleted(questID)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	serveReferenceList(w, r, s.refData.ListItems)
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	serveReferenceList(w, r, s.refData.ListFactions)
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	serveReferenceList(w, r, s.refData.ListResources)
}

func (s *Server) handleNPCs(w http.ResponseWriter, r *http.Request) {
	serveReferenceList(w, r, s.refData.ListNPCs)
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	serveReferenceList(w, r, s.refData.ListObjects)
}

func serveReferenceList[T any](w http.ResponseWriter, r *http.Request, list func() ([]T, error)) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	values, err := list()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, values)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	questID := strings.TrimPrefix(r.URL.Path, "/api/metadata/")
	if questID == "" {
		http.Error(w, "quest ID required", http.StatusBadRequest)
		return
	}

	// Validate quest ID format to prevent injection attacks
	if err := quest.ValidateQuestID(questID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		meta, err := s.metadata.Get(questID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, meta)

	case http.MethodPut:
		if !requireJSONContentType(w, r) {
			return
		}
		var meta quest.Metadata
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		meta.QuestID = questID
		if err := s.metadata.Save(&meta); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		events.EmitQuest("info", "metadata.saved", "", questID, nil)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !requireJSONContentType(w, r) {
		return
	}

	var doc quest.Document
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.validator.Validate(r.Context(), &doc)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	events.EmitQuest("info", "quest.validated", "", doc.QuestID, map[string]interface{}{
		"valid":    result.Valid,
		"errors":   len(result.Errors),
		"warnings": len(result.Warnings),
	})
	writeJSON(w, result)
}
