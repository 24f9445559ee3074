package graph

import (
	"strconv"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

// Fallback layout grid for nodes without stored positions.
const (
	gridOriginX = 100
	gridOriginY = 100
	gridStepX   = 220
	gridStepY   = 150
	gridColumns = 5
)

// fallbackPosition places the node at index i on a deterministic grid.
func fallbackPosition(i int) quest.Position {
	return quest.Position{
		X: gridOriginX + float64(i%gridColumns)*gridStepX,
		Y: gridOriginY + float64(i/gridColumns)*gridStepY,
	}
}

// FromDocument projects a document and its layout metadata into a canvas
// state. The projection is pure: inputs are never mutated and identical
// inputs always produce the same state.
//
// Edge derivation follows the per-type routing policy: decision nodes emit
// one handled edge per (option index, target) pair, condition branches emit
// a handled edge per target in each arm, and every other type emits plain
// edges from its node-level successor list.
func FromDocument(doc *quest.Document, meta *quest.Metadata) *State {
	s := &State{}
	if doc == nil {
		return s
	}

	for i, qn := range doc.QuestNodes {
		pos, ok := quest.Position{}, false
		if meta != nil {
			pos, ok = meta.NodePositions[qn.NodeID]
		}
		if !ok {
			pos = fallbackPosition(i)
		}
		s.Nodes = append(s.Nodes, Node{
			ID:       strconv.Itoa(qn.NodeID),
			Position: pos,
			Data:     NodeData{Node: qn.Clone()},
		})
	}

	for _, qn := range doc.QuestNodes {
		source := strconv.Itoa(qn.NodeID)
		switch {
		case qn.NodeType.IsDecision():
			for i, opt := range qn.Options {
				for _, target := range opt.NextNodes {
					s.Edges = append(s.Edges, edge(source, target, OptionHandle(i)))
				}
			}
		case qn.NodeType == quest.NodeConditionBranch:
			for _, target := range qn.NextNodesIfTrue {
				s.Edges = append(s.Edges, edge(source, target, HandleBranchTrue))
			}
			for _, target := range qn.NextNodesIfFalse {
				s.Edges = append(s.Edges, edge(source, target, HandleBranchFalse))
			}
		default:
			for _, target := range qn.NextNodes {
				s.Edges = append(s.Edges, edge(source, target, HandleNone))
			}
		}
	}

	return s
}

func edge(source string, target int, handle Handle) Edge {
	t := strconv.Itoa(target)
	return Edge{ID: EdgeID(source, t, handle), Source: source, Target: t, Handle: handle}
}

// successors groups a state's edges by source node and routing handle.
type successors struct {
	plain       map[string][]int
	options     map[string]map[int][]int
	branchTrue  map[string][]int
	branchFalse map[string][]int
}

func groupEdges(s *State) successors {
	g := successors{
		plain:       make(map[string][]int),
		options:     make(map[string]map[int][]int),
		branchTrue:  make(map[string][]int),
		branchFalse: make(map[string][]int),
	}
	for _, e := range s.Edges {
		target, err := strconv.Atoi(e.Target)
		if err != nil {
			// Unparseable target: no contribution. The interactive
			// session can hold half-typed references; the validator
			// reports dangling ids at flush time.
			continue
		}
		switch e.Handle {
		case HandleNone:
			g.plain[e.Source] = append(g.plain[e.Source], target)
		case HandleBranchTrue:
			g.branchTrue[e.Source] = append(g.branchTrue[e.Source], target)
		case HandleBranchFalse:
			g.branchFalse[e.Source] = append(g.branchFalse[e.Source], target)
		default:
			i, ok := e.Handle.OptionIndex()
			if !ok {
				continue
			}
			if g.options[e.Source] == nil {
				g.options[e.Source] = make(map[int][]int)
			}
			g.options[e.Source][i] = append(g.options[e.Source][i], target)
		}
	}
	return g
}

// ToDocument projects a canvas state back into a canonical document. prev
// supplies the fields the graph does not carry: quest identity, type,
// versions, display name, journal entry, and repeatability. Node order
// follows the state's node slice; successor order within a node follows
// edge-slice iteration order, which is not guaranteed beyond the insertion
// order of the current edge collection.
//
// The projection is defensively total: nodes and edge targets whose ids do
// not parse as integers contribute nothing rather than failing.
func ToDocument(s *State, prev *quest.Document) *quest.Document {
	doc := &quest.Document{}
	if prev != nil {
		doc.QuestTypeVersion = prev.QuestTypeVersion
		doc.QuestVersion = prev.QuestVersion
		doc.QuestID = prev.QuestID
		doc.QuestType = prev.QuestType
		doc.DisplayName = prev.DisplayName.Clone()
		doc.JournalEntry = prev.JournalEntry.Clone()
		doc.Repeatable = prev.Repeatable
	}
	if s == nil {
		return doc
	}

	g := groupEdges(s)

	for i := range s.Nodes {
		n := &s.Nodes[i]
		id, err := strconv.Atoi(n.ID)
		if err != nil {
			continue
		}

		qn := n.Data.Node.Clone()
		qn.NodeID = id

		switch {
		case qn.NodeType.IsDecision():
			// Decision successors live in options, never at node level.
			qn.NextNodes = nil
			qn.NextNodesIfTrue = nil
			qn.NextNodesIfFalse = nil
			for idx := range qn.Options {
				if targets, ok := g.options[n.ID][idx]; ok {
					qn.Options[idx].NextNodes = append([]int(nil), targets...)
				}
				// No edges for this option: keep whatever the option
				// already stored, so undrawn connections are not lost.
			}
		case qn.NodeType == quest.NodeConditionBranch:
			qn.NextNodes = nil
			qn.NextNodesIfTrue = nil
			qn.NextNodesIfFalse = nil
			if targets, ok := g.branchTrue[n.ID]; ok {
				qn.NextNodesIfTrue = append([]int(nil), targets...)
			}
			if targets, ok := g.branchFalse[n.ID]; ok {
				qn.NextNodesIfFalse = append([]int(nil), targets...)
			}
		default:
			qn.NextNodes = nil
			qn.NextNodesIfTrue = nil
			qn.NextNodesIfFalse = nil
			if targets, ok := g.plain[n.ID]; ok {
				qn.NextNodes = append([]int(nil), targets...)
			}
			// Options survive as data for non-decision types only when the
			// node actually carries them (legacy quests).
		}

		doc.QuestNodes = append(doc.QuestNodes, qn)
	}

	return doc
}

// ExtractMetadata captures the current node positions as layout metadata.
// Nodes with unparseable ids are skipped.
func ExtractMetadata(questID string, s *State) *quest.Metadata {
	meta := &quest.Metadata{
		QuestID:       questID,
		NodePositions: make(map[int]quest.Position),
	}
	if s == nil {
		return meta
	}
	for i := range s.Nodes {
		id, err := strconv.Atoi(s.Nodes[i].ID)
		if err != nil {
			continue
		}
		meta.NodePositions[id] = s.Nodes[i].Position
	}
	return meta
}
