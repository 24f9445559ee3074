package quest

import (
	"fmt"
	"regexp"
)

// maxQuestIDLength is the maximum allowed length for quest IDs.
const maxQuestIDLength = 100

// validQuestIDPattern matches the schema pattern: must start with an uppercase
// letter, followed by alphanumeric, dots, hyphens, underscores, or colons.
var validQuestIDPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9.\-_:]*$`)

// ValidateQuestID checks whether a quest ID conforms to the schema pattern.
func ValidateQuestID(questID string) error {
	if questID == "" {
		return fmt.Errorf("%w: quest ID cannot be empty", ErrInvalidInput)
	}
	if len(questID) > maxQuestIDLength {
		return fmt.Errorf("%w: quest ID exceeds maximum length of %d characters", ErrInvalidInput, maxQuestIDLength)
	}
	if !validQuestIDPattern.MatchString(questID) {
		return fmt.Errorf("%w: quest ID must start with an uppercase letter, followed by alphanumeric, dots, hyphens, underscores, or colons", ErrInvalidInput)
	}
	return nil
}

// QuestType classifies a quest within the content pipeline.
type QuestType string

const (
	SideQuest      QuestType = "SideQuest"
	MainQuest      QuestType = "MainQuest"
	CompanionQuest QuestType = "CompanionQuest"
	FactionQuest   QuestType = "FactionQuest"
	DistrictQuest  QuestType = "DistrictQuest"
	MasteryQuest   QuestType = "MasteryQuest"
)

// Repeatable describes how often a quest may be replayed.
type Repeatable string

const (
	RepeatNever  Repeatable = "never"
	RepeatDaily  Repeatable = "daily"
	RepeatWeekly Repeatable = "weekly"
	RepeatAlways Repeatable = "always"
)

// NodeType tags a quest node and determines its fields and successor routing.
type NodeType string

const (
	NodeEntryPoint           NodeType = "EntryPoint"
	NodeDialog               NodeType = "Dialog"
	NodePlayerDecisionDialog NodeType = "PlayerDecisionDialog"
	NodeDecision             NodeType = "Decision"
	NodeConditionWatcher     NodeType = "ConditionWatcher"
	NodeConditionBranch      NodeType = "ConditionBranch"
	NodeActions              NodeType = "Actions"
	NodeQuestProgress        NodeType = "QuestProgress"
	NodeQuestAvailable       NodeType = "QuestAvailable"
)

// IsDecision reports whether the node type routes its successors through
// dialog options instead of a node-level successor list. Both names appear
// in existing quest data and are treated identically.
func (t NodeType) IsDecision() bool {
	return t == NodePlayerDecisionDialog || t == NodeDecision
}

// Document is the canonical quest artifact loaded from and saved to the
// content pipeline.
type Document struct {
	QuestTypeVersion int        `yaml:"QuestTypeVersion" json:"QuestTypeVersion"`
	QuestVersion     int        `yaml:"QuestVersion" json:"QuestVersion"`
	QuestID          string     `yaml:"QuestID" json:"QuestID"`
	QuestType        QuestType  `yaml:"QuestType" json:"QuestType"`
	DisplayName      Text       `yaml:"DisplayName,omitempty" json:"DisplayName,omitempty"`
	JournalEntry     Text       `yaml:"JournalEntry,omitempty" json:"JournalEntry,omitempty"`
	Repeatable       Repeatable `yaml:"Repeatable,omitempty" json:"Repeatable,omitempty"`
	QuestNodes       []Node     `yaml:"QuestNodes" json:"QuestNodes"`
}

// Node is a single step in the quest graph, tagged by NodeType.
// Optional fields are omitted entirely when absent; the validation gateway
// distinguishes absent from empty in some cases.
type Node struct {
	NodeID                int                `yaml:"NodeID" json:"NodeID"`
	NodeType              NodeType           `yaml:"NodeType" json:"NodeType"`
	NextNodes             []int              `yaml:"NextNodes,omitempty" json:"NextNodes,omitempty"`
	NextNodesIfTrue       []int              `yaml:"NextNodesIfTrue,omitempty" json:"NextNodesIfTrue,omitempty"`
	NextNodesIfFalse      []int              `yaml:"NextNodesIfFalse,omitempty" json:"NextNodesIfFalse,omitempty"`
	Conditions            []Condition        `yaml:"Conditions,omitempty" json:"Conditions,omitempty"`
	ConditionsRequired    ConditionsRequired `yaml:"ConditionsRequired,omitempty" json:"ConditionsRequired,omitempty"`
	ConversationPartner   string             `yaml:"ConversationPartner,omitempty" json:"ConversationPartner,omitempty"`
	Speaker               string             `yaml:"Speaker,omitempty" json:"Speaker,omitempty"`
	Text                  Text               `yaml:"Text,omitempty" json:"Text,omitempty"`
	Options               []DialogOption     `yaml:"Options,omitempty" json:"Options,omitempty"`
	Messages              []DialogMessage    `yaml:"Messages,omitempty" json:"Messages,omitempty"`
	Actions               []Action           `yaml:"Actions,omitempty" json:"Actions,omitempty"`
	QuestStageTitle       Text               `yaml:"QuestStageTitle,omitempty" json:"QuestStageTitle,omitempty"`
	QuestStageDescription Text               `yaml:"QuestStageDescription,omitempty" json:"QuestStageDescription,omitempty"`
}

// DialogOption is a player dialog choice. Successors of decision nodes live
// here, never at node level.
type DialogOption struct {
	Text          Text        `yaml:"Text,omitempty" json:"Text,omitempty"`
	Conditions    []Condition `yaml:"Conditions,omitempty" json:"Conditions,omitempty"`
	NextNodes     []int       `yaml:"NextNodes,omitempty" json:"NextNodes,omitempty"`
	DefaultOption bool        `yaml:"DefaultOption,omitempty" json:"DefaultOption,omitempty"`
}

// DialogMessage is one line in a dialog sequence.
type DialogMessage struct {
	Speaker string `yaml:"Speaker" json:"Speaker"`
	Text    Text   `yaml:"Text,omitempty" json:"Text,omitempty"`
}

// Position is a node's location on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Metadata stores editor layout data for a quest. It is persisted alongside
// the document but is never required for document validity.
type Metadata struct {
	QuestID       string           `json:"questId"`
	NodePositions map[int]Position `json:"nodePositions"`
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	out := &Metadata{QuestID: m.QuestID}
	if m.NodePositions != nil {
		out.NodePositions = make(map[int]Position, len(m.NodePositions))
		for id, pos := range m.NodePositions {
			out.NodePositions[id] = pos
		}
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.DisplayName = d.DisplayName.Clone()
	out.JournalEntry = d.JournalEntry.Clone()
	if d.QuestNodes != nil {
		out.QuestNodes = make([]Node, len(d.QuestNodes))
		for i := range d.QuestNodes {
			out.QuestNodes[i] = d.QuestNodes[i].Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.NextNodes = cloneInts(n.NextNodes)
	out.NextNodesIfTrue = cloneInts(n.NextNodesIfTrue)
	out.NextNodesIfFalse = cloneInts(n.NextNodesIfFalse)
	out.Conditions = cloneConditions(n.Conditions)
	out.Text = n.Text.Clone()
	out.QuestStageTitle = n.QuestStageTitle.Clone()
	out.QuestStageDescription = n.QuestStageDescription.Clone()
	if n.Options != nil {
		out.Options = make([]DialogOption, len(n.Options))
		for i := range n.Options {
			out.Options[i] = n.Options[i].Clone()
		}
	}
	if n.Messages != nil {
		out.Messages = make([]DialogMessage, len(n.Messages))
		for i := range n.Messages {
			out.Messages[i] = DialogMessage{Speaker: n.Messages[i].Speaker, Text: n.Messages[i].Text.Clone()}
		}
	}
	if n.Actions != nil {
		out.Actions = make([]Action, len(n.Actions))
		for i := range n.Actions {
			out.Actions[i] = n.Actions[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the option.
func (o DialogOption) Clone() DialogOption {
	out := o
	out.Text = o.Text.Clone()
	out.Conditions = cloneConditions(o.Conditions)
	out.NextNodes = cloneInts(o.NextNodes)
	return out
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func cloneConditions(in []Condition) []Condition {
	if in == nil {
		return nil
	}
	out := make([]Condition, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
