// Package graph holds the interactive canvas representation of a quest and
// the pure projections between it and the canonical document.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

// Handle discriminates which successor field an edge represents: none for
// node-level NextNodes, option-{i} for a dialog option, branch-true/false
// for a condition branch arm.
type Handle string

const (
	HandleNone        Handle = ""
	HandleBranchTrue  Handle = "branch-true"
	HandleBranchFalse Handle = "branch-false"
)

const optionHandlePrefix = "option-"

// OptionHandle returns the handle for option index i.
func OptionHandle(i int) Handle {
	return Handle(optionHandlePrefix + strconv.Itoa(i))
}

// OptionIndex returns the option index carried by the handle, if any.
func (h Handle) OptionIndex() (int, bool) {
	s, ok := strings.CutPrefix(string(h), optionHandlePrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// NodeData is the denormalized copy of a quest node carried by a canvas
// node, plus transient editor-only flags. Transient flags never survive the
// projection back to a document.
type NodeData struct {
	quest.Node
	Highlighted bool `json:"highlighted,omitempty"`
}

// Node is a positioned canvas node. ID is the stringified quest NodeID.
type Node struct {
	ID       string         `json:"id"`
	Position quest.Position `json:"position"`
	Data     NodeData       `json:"data"`
}

// Edge is a drawn connection between two canvas nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Handle Handle `json:"routingHandle,omitempty"`
}

// State is the editable mirror of a quest document.
type State struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// EdgeID builds the canonical edge identifier for a connection.
func EdgeID(source, target string, handle Handle) string {
	if handle == HandleNone {
		return source + "-" + target
	}
	return source + "-" + string(handle) + "-" + target
}

// Node returns the node with the given id, or nil.
func (s *State) Node(id string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// Edge returns the edge with the given id, or nil.
func (s *State) Edge(id string) *Edge {
	for i := range s.Edges {
		if s.Edges[i].ID == id {
			return &s.Edges[i]
		}
	}
	return nil
}

// MaxNodeID returns the largest numeric node id in the graph, or -1 when the
// graph has no parseable ids.
func (s *State) MaxNodeID() int {
	max := -1
	for i := range s.Nodes {
		if id, err := strconv.Atoi(s.Nodes[i].ID); err == nil && id > max {
			max = id
		}
	}
	return max
}

// AddNode appends a node to the graph.
func (s *State) AddNode(n Node) {
	s.Nodes = append(s.Nodes, n)
}

// RemoveNode deletes a node and every edge incident to it. Returns false if
// the node does not exist.
func (s *State) RemoveNode(id string) bool {
	idx := -1
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	s.Nodes = append(s.Nodes[:idx], s.Nodes[idx+1:]...)

	kept := s.Edges[:0]
	for _, e := range s.Edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	s.Edges = kept
	return true
}

// Connect adds an edge between two existing nodes. Duplicate connections
// (same source, target, and handle) are rejected.
func (s *State) Connect(source, target string, handle Handle) (string, error) {
	if s.Node(source) == nil {
		return "", fmt.Errorf("source node %q not found", source)
	}
	if s.Node(target) == nil {
		return "", fmt.Errorf("target node %q not found", target)
	}
	id := EdgeID(source, target, handle)
	if s.Edge(id) != nil {
		return "", fmt.Errorf("edge %q already exists", id)
	}
	s.Edges = append(s.Edges, Edge{ID: id, Source: source, Target: target, Handle: handle})
	return id, nil
}

// RemoveEdge deletes an edge by id. Returns false if it does not exist.
func (s *State) RemoveEdge(id string) bool {
	for i := range s.Edges {
		if s.Edges[i].ID == id {
			s.Edges = append(s.Edges[:i], s.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{}
	if s.Nodes != nil {
		out.Nodes = make([]Node, len(s.Nodes))
		for i, n := range s.Nodes {
			out.Nodes[i] = Node{
				ID:       n.ID,
				Position: n.Position,
				Data: NodeData{
					Node:        n.Data.Node.Clone(),
					Highlighted: n.Data.Highlighted,
				},
			}
		}
	}
	if s.Edges != nil {
		out.Edges = make([]Edge, len(s.Edges))
		copy(out.Edges, s.Edges)
	}
	return out
}
