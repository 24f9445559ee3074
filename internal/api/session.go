package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AaronLay10/QuestForge/internal/editor"
	"github.com/AaronLay10/QuestForge/internal/events"
	"github.com/AaronLay10/QuestForge/internal/graph"
	"github.com/AaronLay10/QuestForge/internal/quest"
)

var activeSessions atomic.Int64

// ActiveSessions returns the number of live editing sessions.
func ActiveSessions() int {
	return int(activeSessions.Load())
}

// sessionCommand is one edit sent by the client.
type sessionCommand struct {
	Op       string          `json:"op"`
	NodeID   string          `json:"nodeId,omitempty"`
	NodeType quest.NodeType  `json:"nodeType,omitempty"`
	Position *quest.Position `json:"position,omitempty"`
	Data     *quest.Node     `json:"data,omitempty"`
	Source   string          `json:"source,omitempty"`
	Target   string          `json:"target,omitempty"`
	Handle   graph.Handle    `json:"routingHandle,omitempty"`
	EdgeID   string          `json:"edgeId,omitempty"`
}

// sessionMessage is one message pushed to the client.
type sessionMessage struct {
	Type       string                  `json:"type"`
	Op         string                  `json:"op,omitempty"`
	Error      string                  `json:"error,omitempty"`
	NodeID     *int                    `json:"nodeId,omitempty"`
	EdgeID     string                  `json:"edgeId,omitempty"`
	Graph      *graph.State            `json:"graph,omitempty"`
	Generation uint64                  `json:"generation,omitempty"`
	Validation *quest.ValidationResult `json:"validation,omitempty"`
}

// wsSessionHandler runs an interactive editing session for one quest. Edits
// arrive as JSON commands, are applied to the canvas model, and settle into
// document saves after a short debounce. Validation runs after every save
// and results are pushed back to the client.
func (s *Server) wsSessionHandler(w http.ResponseWriter, r *http.Request) {
	role := authenticate(r)
	if role == "" {
		requireAuth(w)
		return
	}

	questID := r.URL.Query().Get("quest")
	if err := quest.ValidateQuestID(questID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := s.quests.Get(questID)
	if err != nil {
		if errors.Is(err, quest.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	meta, err := s.metadata.Get(questID)
	if err != nil {
		slog.Warn("failed to fetch metadata", "quest", questID, "error", err)
		meta = &quest.Metadata{QuestID: questID, NodePositions: map[int]quest.Position{}}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	sessionID := uuid.NewString()
	activeSessions.Add(1)
	events.Emit("info", "session.started", "", events.Event{QuestID: questID, SessionID: sessionID})

	out := make(chan sessionMessage, 64)
	sess := editor.NewSession(s.settle, s.flushFunc(questID, sessionID, out))
	sess.Load(doc, meta)

	es := &editSession{
		server:    s,
		session:   sess,
		conn:      conn,
		out:       out,
		questID:   questID,
		sessionID: sessionID,
	}
	es.run()
}

type editSession struct {
	server    *Server
	session   *editor.Session
	conn      *websocket.Conn
	out       chan sessionMessage
	questID   string
	sessionID string

	closeOnce sync.Once
}

func (es *editSession) close() {
	es.closeOnce.Do(func() {
		es.session.Close()
		es.conn.Close()
		activeSessions.Add(-1)
		events.Emit("info", "session.closed", "", events.Event{QuestID: es.questID, SessionID: es.sessionID})
	})
}

func (es *editSession) run() {
	defer es.close()

	// Initial snapshot so the client can render the canvas.
	es.send(sessionMessage{Type: "graph", Graph: es.session.Graph()})

	done := make(chan struct{})
	go es.readLoop(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case msg := <-es.out:
			if !es.write(msg) {
				return
			}

		case <-ticker.C:
			es.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := es.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (es *editSession) readLoop(done chan struct{}) {
	defer close(done)

	es.conn.SetReadDeadline(time.Now().Add(pongWait))
	es.conn.SetPongHandler(func(string) error {
		es.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	es.conn.SetReadLimit(maxRequestBodySize)

	for {
		_, data, err := es.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd sessionCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			es.send(sessionMessage{Type: "error", Error: "invalid JSON: " + err.Error()})
			continue
		}
		es.apply(cmd)
	}
}

func (es *editSession) apply(cmd sessionCommand) {
	switch cmd.Op {
	case "add_node":
		pos := quest.Position{}
		if cmd.Position != nil {
			pos = *cmd.Position
		}
		id, err := es.session.AddNode(cmd.NodeType, pos)
		if err != nil {
			es.sendError(cmd.Op, err)
			return
		}
		events.Emit("info", "node.added", "", events.Event{
			QuestID: es.questID, SessionID: es.sessionID,
			Fields: map[string]interface{}{"node_id": id},
		})
		es.send(sessionMessage{Type: "ack", Op: cmd.Op, NodeID: &id})

	case "remove_node":
		if err := es.session.RemoveNode(cmd.NodeID); err != nil {
			es.sendError(cmd.Op, err)
			return
		}
		events.Emit("info", "node.removed", "", events.Event{
			QuestID: es.questID, SessionID: es.sessionID,
			Fields: map[string]interface{}{"node_id": cmd.NodeID},
		})
		es.send(sessionMessage{Type: "ack", Op: cmd.Op})

	case "move_node":
		if cmd.Position == nil {
			es.send(sessionMessage{Type: "error", Op: cmd.Op, Error: "position required"})
			return
		}
		if err := es.session.MoveNode(cmd.NodeID, *cmd.Position); err != nil {
			es.sendError(cmd.Op, err)
			return
		}
		events.Emit("debug", "node.moved", "", events.Event{
			QuestID: es.questID, SessionID: es.sessionID,
			Fields: map[string]interface{}{"node_id": cmd.NodeID},
		})
		es.send(sessionMessage{Type: "ack", Op: cmd.Op})

	case "update_node":
		if cmd.Data == nil {
			es.send(sessionMessage{Type: "error", Op: cmd.Op, Error: "data required"})
			return
		}
		if err := es.session.UpdateNodeData(cmd.NodeID, *cmd.Data); err != nil {
			es.sendError(cmd.Op, err)
			return
		}
		events.Emit("info", "node.updated", "", events.Event{
			QuestID: es.questID, SessionID: es.sessionID,
			Fields: map[string]interface{}{"node_id": cmd.NodeID},
		})
		es.send(sessionMessage{Type: "ack", Op: cmd.Op})

	case "connect":
		edgeID, err := es.session.Connect(cmd.Source, cmd.Target, cmd.Handle)
		if err != nil {
			es.sendError(cmd.Op, err)
			return
		}
		events.Emit("info", "edge.connected", "", events.Event{
			QuestID: es.questID, SessionID: es.sessionID,
			Fields: map[string]interface{}{"edge_id": edgeID},
		})
		es.send(sessionMessage{Type: "ack", Op: cmd.Op, EdgeID: edgeID})

	case "disconnect":
		if err := es.session.Disconnect(cmd.EdgeID); err != nil {
			es.sendError(cmd.Op, err)
			return
		}
		events.Emit("info", "edge.removed", "", events.Event{
			QuestID: es.questID, SessionID: es.sessionID,
			Fields: map[string]interface{}{"edge_id": cmd.EdgeID},
		})
		es.send(sessionMessage{Type: "ack", Op: cmd.Op})

	case "flush":
		es.session.FlushNow()
		es.send(sessionMessage{Type: "ack", Op: cmd.Op})

	case "graph":
		es.send(sessionMessage{Type: "graph", Graph: es.session.Graph()})

	default:
		es.send(sessionMessage{Type: "error", Op: cmd.Op, Error: "unknown op"})
	}
}

func (es *editSession) sendError(op string, err error) {
	es.send(sessionMessage{Type: "error", Op: op, Error: err.Error()})
}

// send queues a message for the writer goroutine, dropping it if the client
// cannot keep up.
func (es *editSession) send(msg sessionMessage) {
	select {
	case es.out <- msg:
	default:
	}
}

func (es *editSession) write(msg sessionMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("encode session message", "error", err)
		return true
	}
	es.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := es.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	return true
}

// flushFunc persists a settled document snapshot and kicks off validation.
// It runs on the session's debounce timer goroutine.
func (s *Server) flushFunc(questID, sessionID string, out chan sessionMessage) editor.FlushFunc {
	return func(f editor.Flush) {
		if err := s.quests.Save(f.Document); err != nil {
			f.Session.RetainDirty(f.Generation)
			events.Emit("error", "quest.save_failed", err.Error(), events.Event{
				QuestID: questID, SessionID: sessionID,
			})
			select {
			case out <- sessionMessage{Type: "error", Error: "save failed: " + err.Error()}:
			default:
			}
			return
		}
		if err := s.metadata.Save(f.Metadata); err != nil {
			slog.Warn("failed to save metadata", "quest", questID, "error", err)
		}
		events.Emit("info", "quest.flushed", "", events.Event{
			QuestID: questID, SessionID: sessionID,
			Fields: map[string]interface{}{"generation": f.Generation},
		})
		select {
		case out <- sessionMessage{Type: "flushed", Generation: f.Generation}:
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		result, err := s.validator.Validate(ctx, f.Document)
		if err != nil {
			slog.Warn("validation failed", "quest", questID, "error", err)
			return
		}
		if !f.Session.ApplyValidation(f.Generation, result) {
			// Superseded by a newer edit, drop silently.
			return
		}
		events.Emit("info", "quest.validated", "", events.Event{
			QuestID: questID, SessionID: sessionID,
			Fields: map[string]interface{}{
				"valid":    result.Valid,
				"errors":   len(result.Errors),
				"warnings": len(result.Warnings),
			},
		})
		select {
		case out <- sessionMessage{Type: "validation", Generation: f.Generation, Validation: result}:
		default:
		}
	}
}
