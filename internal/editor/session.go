// Package editor owns the live canvas state for one open quest and keeps it
// synchronized with the canonical document through a debounced flush cycle.
package editor

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/AaronLay10/QuestForge/internal/graph"
	"github.com/AaronLay10/QuestForge/internal/quest"
)

// DefaultSettle is the debounce window collapsing bursts of edits into one
// document flush.
const DefaultSettle = 100 * time.Millisecond

// maxNodeID bounds the node id space. Allocation refuses rather than
// overflowing once the next id would reach it.
const maxNodeID = 1<<31 - 1

// Session errors.
var (
	// ErrNoDocument is returned for edits against an empty session.
	ErrNoDocument = errors.New("no document loaded")

	// ErrIDSpaceExhausted is returned when node id allocation would reach
	// the id space bound. The graph is left unchanged.
	ErrIDSpaceExhausted = errors.New("node id space exhausted")
)

// State is the session's logical lifecycle state.
type State int

const (
	// Empty means no document is loaded.
	Empty State = iota
	// Loaded means a document is loaded and no edits are pending.
	Loaded
	// Dirty means structural edits await the next flush.
	Dirty
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loaded:
		return "loaded"
	case Dirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// Flush carries a committed document and its layout metadata to the
// consumer after the settle window closes.
type Flush struct {
	Generation uint64
	QuestID    string
	Document   *quest.Document
	Metadata   *quest.Metadata

	// Session is the originating session, so consumers can feed
	// validation results back via ApplyValidation.
	Session *Session
}

// FlushFunc receives committed flushes. It is called without the session
// lock held and may call back into the session.
type FlushFunc func(Flush)

// Session owns the single live graph/document pair. External consumers only
// ever see committed, flushed documents, never partially applied edits.
type Session struct {
	mu     sync.Mutex
	settle time.Duration
	flush  FlushFunc

	doc   *quest.Document
	graph *graph.State
	dirty bool
	timer *time.Timer

	// generation counts load and edit events. Flushes and validation
	// results carry the generation they were derived from so stale
	// in-flight results can be discarded by arrival order.
	generation    uint64
	appliedResult uint64
	validation    *quest.ValidationResult
}

// NewSession creates a session. settle <= 0 selects DefaultSettle. flush may
// be nil when the caller drains documents through FlushNow only.
func NewSession(settle time.Duration, flush FlushFunc) *Session {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Session{settle: settle, flush: flush}
}

// Load replaces the session contents wholesale. Loading is not an edit: it
// never schedules a flush, and it discards any pending one. A load also
// bumps the generation so validation results still in flight for the
// previous document are ignored on arrival.
func (s *Session) Load(doc *quest.Document, meta *quest.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimerLocked()
	s.doc = doc.Clone()
	s.graph = graph.FromDocument(doc, meta)
	s.dirty = false
	s.generation++
	s.validation = nil
}

// Close discards any pending flush. The session stays usable for reads.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimerLocked()
	s.dirty = false
}

// State returns the logical lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.doc == nil:
		return Empty
	case s.dirty:
		return Dirty
	default:
		return Loaded
	}
}

// Generation returns the current edit generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Document returns a copy of the last committed document.
func (s *Session) Document() *quest.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Graph returns a copy of the live graph state.
func (s *Session) Graph() *graph.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// Metadata returns the current layout metadata derived from the live graph.
func (s *Session) Metadata() *quest.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	return graph.ExtractMetadata(s.doc.QuestID, s.graph)
}

// Validation returns the most recently applied validation result, if any.
func (s *Session) Validation() *quest.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validation
}

// ApplyValidation records a validation result derived from the given
// generation. Results for superseded generations are discarded and false is
// returned: a stale in-flight validation must never overwrite state derived
// from a newer edit or a newer load.
func (s *Session) ApplyValidation(generation uint64, result *quest.ValidationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation < s.generation || generation < s.appliedResult {
		return false
	}
	s.appliedResult = generation
	s.validation = result
	return true
}

// AddNode allocates the next node id, places a node of the given type at
// pos, and returns the new id. Allocation is max(existing ids, -1)+1; it is
// refused once the id space bound would be reached, with no mutation.
func (s *Session) AddNode(nodeType quest.NodeType, pos quest.Position) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0, ErrNoDocument
	}

	newID := s.graph.MaxNodeID() + 1
	if newID >= maxNodeID {
		return 0, ErrIDSpaceExhausted
	}

	s.graph.AddNode(graph.Node{
		ID:       strconv.Itoa(newID),
		Position: pos,
		Data: graph.NodeData{
			Node: quest.Node{NodeID: newID, NodeType: nodeType},
		},
	})
	s.markDirtyLocked()
	return newID, nil
}

// RemoveNode deletes a node and its incident edges.
func (s *Session) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	if !s.graph.RemoveNode(id) {
		return fmt.Errorf("node %q: %w", id, quest.ErrNotFound)
	}
	s.markDirtyLocked()
	return nil
}

// MoveNode updates a node's canvas position. Position-only edits flow
// through the same debounce path so the emitted metadata stays current even
// when no document field changes.
func (s *Session) MoveNode(id string, pos quest.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	n := s.graph.Node(id)
	if n == nil {
		return fmt.Errorf("node %q: %w", id, quest.ErrNotFound)
	}
	n.Position = pos
	s.markDirtyLocked()
	return nil
}

// UpdateNodeData replaces a node's field data. The node's id and type are
// kept; everything else comes from the supplied node.
func (s *Session) UpdateNodeData(id string, data quest.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	n := s.graph.Node(id)
	if n == nil {
		return fmt.Errorf("node %q: %w", id, quest.ErrNotFound)
	}
	updated := data.Clone()
	updated.NodeID = n.Data.NodeID
	updated.NodeType = n.Data.NodeType
	n.Data.Node = updated
	s.markDirtyLocked()
	return nil
}

// Connect draws an edge between two nodes with the given routing handle.
func (s *Session) Connect(source, target string, handle graph.Handle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNoDocument
	}
	id, err := s.graph.Connect(source, target, handle)
	if err != nil {
		return "", err
	}
	s.markDirtyLocked()
	return id, nil
}

// Disconnect removes an edge by id.
func (s *Session) Disconnect(edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	if !s.graph.RemoveEdge(edgeID) {
		return fmt.Errorf("edge %q: %w", edgeID, quest.ErrNotFound)
	}
	s.markDirtyLocked()
	return nil
}

// FlushNow forces an immediate flush of pending edits, bypassing the settle
// window. Returns the committed document and metadata, or nil document when
// the session is empty.
func (s *Session) FlushNow() (*quest.Document, *quest.Metadata) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return nil, nil
	}
	s.cancelTimerLocked()
	flush, fn := s.commitLocked()
	s.mu.Unlock()

	if fn != nil {
		fn(flush)
	}
	return flush.Document.Clone(), flush.Metadata.Clone()
}

// RetainDirty re-marks the session dirty after a downstream save failed,
// so the edits keep surfacing as pending and a later flush retries them.
// The generation guards against clobbering newer edits that already
// re-dirtied the session. No timer is armed: the retry rides on the next
// edit or an explicit flush, not a tight loop against a broken store.
func (s *Session) RetainDirty(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || generation != s.generation {
		return
	}
	s.dirty = true
}

// markDirtyLocked bumps the generation and restarts the single settle
// timer. At most one flush is ever pending: a new edit inside the window
// cancels and replaces the previous timer instead of queuing a second one.
func (s *Session) markDirtyLocked() {
	s.dirty = true
	s.generation++
	s.cancelTimerLocked()
	s.timer = time.AfterFunc(s.settle, s.fire)
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// fire runs when the settle window closes. It converts the graph as it is
// now, not as it was when the timer was scheduled: edits that raced the
// timer are included in the flush.
func (s *Session) fire() {
	s.mu.Lock()
	if s.doc == nil || !s.dirty {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	flush, fn := s.commitLocked()
	s.mu.Unlock()

	if fn != nil {
		fn(flush)
	}
}

// commitLocked derives the canonical document from the current graph
// snapshot and returns to Loaded.
func (s *Session) commitLocked() (Flush, FlushFunc) {
	doc := graph.ToDocument(s.graph, s.doc)
	meta := graph.ExtractMetadata(doc.QuestID, s.graph)
	s.doc = doc
	s.dirty = false
	return Flush{
		Generation: s.generation,
		QuestID:    doc.QuestID,
		Document:   doc.Clone(),
		Metadata:   meta,
		Session:    s,
	}, s.flush
}
