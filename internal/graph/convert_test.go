package graph

import (
	"reflect"
	"testing"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

func simpleDoc() *quest.Document {
	return &quest.Document{
		QuestTypeVersion: 1,
		QuestVersion:     3,
		QuestID:          "Demo.Gate",
		QuestType:        quest.SideQuest,
		DisplayName:      quest.Text{quest.LocaleEnUS: "The Gate"},
		QuestNodes: []quest.Node{
			{NodeID: 0, NodeType: quest.NodeEntryPoint, NextNodes: []int{1}},
			{NodeID: 1, NodeType: quest.NodeActions, NextNodes: nil,
				Actions: []quest.Action{quest.VerbAction(quest.CompleteQuest)}},
		},
	}
}

func TestFromDocumentPlainEdges(t *testing.T) {
	s := FromDocument(simpleDoc(), nil)

	if len(s.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(s.Nodes))
	}
	if len(s.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(s.Edges))
	}
	e := s.Edges[0]
	if e.Source != "0" || e.Target != "1" || e.Handle != HandleNone {
		t.Errorf("edge = %+v", e)
	}
	if e.ID != "0-1" {
		t.Errorf("edge id = %q, want 0-1", e.ID)
	}
}

func TestFromDocumentFallbackGrid(t *testing.T) {
	doc := &quest.Document{QuestID: "Demo.Grid"}
	for i := 0; i < 7; i++ {
		doc.QuestNodes = append(doc.QuestNodes, quest.Node{NodeID: i, NodeType: quest.NodeDialog})
	}
	s := FromDocument(doc, nil)

	want := []quest.Position{
		{X: 100, Y: 100}, {X: 320, Y: 100}, {X: 540, Y: 100}, {X: 760, Y: 100}, {X: 980, Y: 100},
		{X: 100, Y: 250}, {X: 320, Y: 250},
	}
	for i, n := range s.Nodes {
		if n.Position != want[i] {
			t.Errorf("node %d position = %+v, want %+v", i, n.Position, want[i])
		}
	}
}

func TestFromDocumentUsesStoredPositions(t *testing.T) {
	doc := simpleDoc()
	meta := &quest.Metadata{
		QuestID: doc.QuestID,
		NodePositions: map[int]quest.Position{
			0: {X: 42, Y: 7},
		},
	}
	s := FromDocument(doc, meta)

	if s.Nodes[0].Position != (quest.Position{X: 42, Y: 7}) {
		t.Errorf("stored position not used: %+v", s.Nodes[0].Position)
	}
	// Node 1 has no stored position and falls back to the grid slot of
	// its index.
	if s.Nodes[1].Position != (quest.Position{X: 320, Y: 100}) {
		t.Errorf("fallback position = %+v", s.Nodes[1].Position)
	}
}

func TestDecisionOptionEdges(t *testing.T) {
	doc := &quest.Document{
		QuestID: "Demo.Choice",
		QuestNodes: []quest.Node{
			{NodeID: 0, NodeType: quest.NodePlayerDecisionDialog, Options: []quest.DialogOption{
				{Text: quest.Text{quest.LocaleEnUS: "yes"}, NextNodes: []int{1}},
				{Text: quest.Text{quest.LocaleEnUS: "no"}, NextNodes: []int{2}},
			}},
			{NodeID: 1, NodeType: quest.NodeDialog},
			{NodeID: 2, NodeType: quest.NodeDialog},
		},
	}
	s := FromDocument(doc, nil)

	if len(s.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(s.Edges))
	}
	if s.Edges[0].Handle != OptionHandle(0) || s.Edges[0].Target != "1" {
		t.Errorf("edge 0 = %+v", s.Edges[0])
	}
	if s.Edges[1].Handle != OptionHandle(1) || s.Edges[1].Target != "2" {
		t.Errorf("edge 1 = %+v", s.Edges[1])
	}
	if s.Edges[0].ID != "0-option-0-1" {
		t.Errorf("edge id = %q", s.Edges[0].ID)
	}
}

func TestRoundTripPreservesDocument(t *testing.T) {
	doc := simpleDoc()
	s := FromDocument(doc, nil)
	got := ToDocument(s, doc)

	if got.QuestID != doc.QuestID || got.QuestVersion != doc.QuestVersion {
		t.Errorf("identity fields lost: %+v", got)
	}
	if !reflect.DeepEqual(got.QuestNodes[0].NextNodes, []int{1}) {
		t.Errorf("NextNodes = %v", got.QuestNodes[0].NextNodes)
	}
	if len(got.QuestNodes[1].NextNodes) != 0 {
		t.Errorf("terminal node gained successors: %v", got.QuestNodes[1].NextNodes)
	}
}

func TestDecisionKeepsStoredOptionTargetsWithoutEdges(t *testing.T) {
	// An option with stored successors but no drawn edges must keep the
	// stored successors: the canvas may simply not have them drawn yet.
	doc := &quest.Document{
		QuestID: "Demo.Choice",
		QuestNodes: []quest.Node{
			{NodeID: 0, NodeType: quest.NodeDecision, Options: []quest.DialogOption{
				{NextNodes: []int{1}},
				{NextNodes: []int{2}},
			}},
			{NodeID: 1, NodeType: quest.NodeDialog},
			{NodeID: 2, NodeType: quest.NodeDialog},
		},
	}
	s := FromDocument(doc, nil)

	// Remove only the edge for option 1.
	if !s.RemoveEdge("0-option-1-2") {
		t.Fatal("edge 0-option-1-2 not found")
	}

	got := ToDocument(s, doc)
	opts := got.QuestNodes[0].Options
	if !reflect.DeepEqual(opts[0].NextNodes, []int{1}) {
		t.Errorf("option 0 targets = %v", opts[0].NextNodes)
	}
	if !reflect.DeepEqual(opts[1].NextNodes, []int{2}) {
		t.Errorf("option 1 lost stored targets: %v", opts[1].NextNodes)
	}
	if got.QuestNodes[0].NextNodes != nil {
		t.Errorf("decision node has top-level NextNodes: %v", got.QuestNodes[0].NextNodes)
	}
}

func TestConditionBranchArms(t *testing.T) {
	doc := &quest.Document{
		QuestID: "Demo.Branch",
		QuestNodes: []quest.Node{
			{NodeID: 0, NodeType: quest.NodeConditionBranch,
				Conditions:       []quest.Condition{{QuestCompleted: "Demo.Intro"}},
				NextNodesIfTrue:  []int{1},
				NextNodesIfFalse: []int{2},
			},
			{NodeID: 1, NodeType: quest.NodeDialog},
			{NodeID: 2, NodeType: quest.NodeDialog},
		},
	}
	s := FromDocument(doc, nil)

	if len(s.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(s.Edges))
	}
	if s.Edges[0].Handle != HandleBranchTrue || s.Edges[1].Handle != HandleBranchFalse {
		t.Errorf("handles = %q, %q", s.Edges[0].Handle, s.Edges[1].Handle)
	}

	// Remove the false arm: the field must be omitted, not emptied to a
	// non-nil slice.
	s.RemoveEdge("0-branch-false-2")
	got := ToDocument(s, doc)
	if !reflect.DeepEqual(got.QuestNodes[0].NextNodesIfTrue, []int{1}) {
		t.Errorf("IfTrue = %v", got.QuestNodes[0].NextNodesIfTrue)
	}
	if got.QuestNodes[0].NextNodesIfFalse != nil {
		t.Errorf("IfFalse should be nil, got %v", got.QuestNodes[0].NextNodesIfFalse)
	}
}

func TestToDocumentSkipsUnparseableIDs(t *testing.T) {
	s := &State{
		Nodes: []Node{
			{ID: "0", Data: NodeData{Node: quest.Node{NodeType: quest.NodeEntryPoint}}},
			{ID: "draft", Data: NodeData{Node: quest.Node{NodeType: quest.NodeDialog}}},
		},
		Edges: []Edge{
			{ID: "0-draft", Source: "0", Target: "draft"},
		},
	}
	got := ToDocument(s, nil)

	if len(got.QuestNodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(got.QuestNodes))
	}
	if len(got.QuestNodes[0].NextNodes) != 0 {
		t.Errorf("edge to unparseable target survived: %v", got.QuestNodes[0].NextNodes)
	}
}

func TestExtractMetadata(t *testing.T) {
	s := &State{
		Nodes: []Node{
			{ID: "0", Position: quest.Position{X: 10, Y: 20}},
			{ID: "5", Position: quest.Position{X: 30, Y: 40}},
			{ID: "x", Position: quest.Position{X: 1, Y: 1}},
		},
	}
	meta := ExtractMetadata("Demo.Gate", s)

	if meta.QuestID != "Demo.Gate" {
		t.Errorf("quest id = %q", meta.QuestID)
	}
	if len(meta.NodePositions) != 2 {
		t.Fatalf("positions = %d, want 2", len(meta.NodePositions))
	}
	if meta.NodePositions[5] != (quest.Position{X: 30, Y: 40}) {
		t.Errorf("position 5 = %+v", meta.NodePositions[5])
	}
}

func TestMaxNodeID(t *testing.T) {
	s := &State{}
	if s.MaxNodeID() != -1 {
		t.Errorf("empty graph max = %d, want -1", s.MaxNodeID())
	}
	s.AddNode(Node{ID: "3"})
	s.AddNode(Node{ID: "7"})
	s.AddNode(Node{ID: "junk"})
	if s.MaxNodeID() != 7 {
		t.Errorf("max = %d, want 7", s.MaxNodeID())
	}
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	doc := simpleDoc()
	s := FromDocument(doc, nil)

	if !s.RemoveNode("1") {
		t.Fatal("node 1 not removed")
	}
	if len(s.Edges) != 0 {
		t.Errorf("incident edge survived: %+v", s.Edges)
	}
}

func TestConnectRejectsDuplicates(t *testing.T) {
	s := &State{Nodes: []Node{{ID: "0"}, {ID: "1"}}}
	if _, err := s.Connect("0", "1", HandleNone); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if _, err := s.Connect("0", "1", HandleNone); err == nil {
		t.Fatal("duplicate connect should fail")
	}
	// Same endpoints with a different handle is a distinct edge.
	if _, err := s.Connect("0", "1", HandleBranchTrue); err != nil {
		t.Errorf("handled connect: %v", err)
	}
}

func TestOptionHandleParsing(t *testing.T) {
	if i, ok := OptionHandle(4).OptionIndex(); !ok || i != 4 {
		t.Errorf("OptionIndex = %d, %v", i, ok)
	}
	for _, h := range []Handle{HandleNone, HandleBranchTrue, "option-", "option-x", "option--1"} {
		if _, ok := h.OptionIndex(); ok {
			t.Errorf("handle %q should not parse as option", h)
		}
	}
}
