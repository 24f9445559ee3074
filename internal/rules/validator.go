// Package rules implements the validation contract in-process. The editor
// core only depends on the contract; this package is the default
// implementation wired in when no external validator service is configured.
package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AaronLay10/QuestForge/internal/quest"
	"github.com/AaronLay10/QuestForge/internal/storage/files"
)

// Validator checks quests against structural and reference rules.
type Validator struct {
	refData *files.ReferenceRepository
}

// NewValidator creates a validator. refData may be nil, in which case
// reference checks are skipped.
func NewValidator(refData *files.ReferenceRepository) *Validator {
	return &Validator{refData: refData}
}

// Validate checks a quest against all rules.
func (v *Validator) Validate(ctx context.Context, doc *quest.Document) (*quest.ValidationResult, error) {
	result := quest.NewValidationResult()

	validateQuestID(doc, result)
	validateUniqueNodeIDs(doc, result)
	validateNodeConnections(doc, result)
	validateEntryPoints(doc, result)
	validateTerminalNodes(doc, result)
	validateDecisions(doc, result)
	validateConditionBranches(doc, result)
	validateConditionShapes(doc, result)
	validateNoCycles(doc, result)
	v.validateReferences(doc, result)
	validateUnreferencedNodes(doc, result)
	validateJournalAtFlowStart(doc, result)
	validateJournalAtFlowEnd(doc, result)

	return result, ctx.Err()
}

func validateQuestID(doc *quest.Document, result *quest.ValidationResult) {
	if err := quest.ValidateQuestID(doc.QuestID); err != nil {
		result.AddGlobalError("invalid QuestID: " + doc.QuestID)
	}
}

func validateUniqueNodeIDs(doc *quest.Document, result *quest.ValidationResult) {
	seen := make(map[int]bool)
	for _, node := range doc.QuestNodes {
		if node.NodeID < 0 {
			result.AddNodeError(node.NodeID, "NodeID must be non-negative")
		}
		if seen[node.NodeID] {
			result.AddNodeError(node.NodeID, "duplicate NodeID")
		}
		seen[node.NodeID] = true
	}
}

func validateNodeConnections(doc *quest.Document, result *quest.ValidationResult) {
	nodeIDs := make(map[int]bool)
	for _, node := range doc.QuestNodes {
		nodeIDs[node.NodeID] = true
	}

	checkList := func(nodeID int, list []int, listName string) {
		seen := make(map[int]bool)
		for _, nextID := range list {
			if !nodeIDs[nextID] {
				result.AddNodeError(nodeID, fmt.Sprintf("%s references non-existent NodeID %d", listName, nextID))
			}
			if nextID == nodeID {
				result.AddNodeError(nodeID, fmt.Sprintf("node references itself in %s", listName))
			}
			if seen[nextID] {
				result.AddNodeError(nodeID, fmt.Sprintf("duplicate edge to NodeID %d", nextID))
			}
			seen[nextID] = true
		}
	}

	for _, node := range doc.QuestNodes {
		checkList(node.NodeID, node.NextNodes, "NextNodes")
		checkList(node.NodeID, node.NextNodesIfTrue, "NextNodesIfTrue")
		checkList(node.NodeID, node.NextNodesIfFalse, "NextNodesIfFalse")
		for i, opt := range node.Options {
			checkList(node.NodeID, opt.NextNodes, fmt.Sprintf("option %d NextNodes", i+1))
		}
	}

	// Non-EntryPoint nodes need incoming connections; EntryPoints permit none.
	hasIncoming := make(map[int]bool)
	for _, node := range doc.QuestNodes {
		for _, nextID := range outgoingEdges(&node) {
			hasIncoming[nextID] = true
		}
	}
	for _, node := range doc.QuestNodes {
		if node.NodeType == quest.NodeEntryPoint {
			if hasIncoming[node.NodeID] {
				result.AddNodeError(node.NodeID, "EntryPoint must not have incoming connections")
			}
			continue
		}
		if !hasIncoming[node.NodeID] {
			result.AddNodeError(node.NodeID, "non-EntryPoint node has no incoming connections")
		}
	}
}

func validateEntryPoints(doc *quest.Document, result *quest.ValidationResult) {
	for _, node := range doc.QuestNodes {
		if node.NodeType == quest.NodeEntryPoint {
			return
		}
	}
	result.AddGlobalError("quest must have at least one EntryPoint node")
}

func validateTerminalNodes(doc *quest.Document, result *quest.ValidationResult) {
	for _, node := range doc.QuestNodes {
		if node.NodeType != quest.NodeActions {
			continue
		}

		terminalCount := 0
		for _, action := range node.Actions {
			if action.IsTerminal() {
				terminalCount++
			}
		}

		isTerminal := terminalCount > 0
		hasOutgoing := len(node.NextNodes) > 0

		if isTerminal && hasOutgoing {
			result.AddNodeError(node.NodeID, "terminal action node should not have NextNodes")
		}
		if !isTerminal && !hasOutgoing {
			result.AddNodeError(node.NodeID, "non-terminal Actions node must have NextNodes (quest flow ends with unspecified behaviour)")
		}
		if terminalCount > 1 {
			result.AddNodeError(node.NodeID, "Actions node has more than one terminal action")
		}
	}
}

func validateDecisions(doc *quest.Document, result *quest.ValidationResult) {
	for _, node := range doc.QuestNodes {
		if !node.NodeType.IsDecision() {
			continue
		}

		if len(node.NextNodes) > 0 {
			result.AddNodeError(node.NodeID, "decision node must not have top-level NextNodes; use NextNodes in each option instead")
		}
		if len(node.Options) == 0 {
			result.AddNodeError(node.NodeID, "decision node must have at least one option")
		}

		defaults := 0
		for i, opt := range node.Options {
			if len(opt.NextNodes) == 0 {
				result.AddNodeError(node.NodeID, fmt.Sprintf("option %d must have NextNodes", i+1))
			}
			if opt.DefaultOption {
				defaults++
			}
		}
		if defaults > 1 {
			result.AddNodeError(node.NodeID, "decision node has more than one default option")
		}
	}
}

func validateConditionBranches(doc *quest.Document, result *quest.ValidationResult) {
	for _, node := range doc.QuestNodes {
		if node.NodeType != quest.NodeConditionBranch {
			continue
		}

		if len(node.NextNodes) > 0 {
			result.AddNodeError(node.NodeID, "ConditionBranch must not have top-level NextNodes; use NextNodesIfTrue and NextNodesIfFalse instead")
		}
		if len(node.Conditions) == 0 {
			result.AddNodeError(node.NodeID, "ConditionBranch must have at least one condition")
		}
		if len(node.NextNodesIfTrue) == 0 && len(node.NextNodesIfFalse) == 0 {
			result.AddNodeError(node.NodeID, "ConditionBranch must have at least one of NextNodesIfTrue or NextNodesIfFalse")
		}
	}
}

func validateConditionShapes(doc *quest.Document, result *quest.ValidationResult) {
	checkConditions := func(nodeID int, conditions []quest.Condition) {
		for _, cond := range conditions {
			if cond.Tag() == "" {
				result.AddNodeError(nodeID, "condition must have exactly one key")
				continue
			}
			if cond.TimePassed != "" && !quest.ValidTimeSpan(cond.TimePassed) {
				result.AddNodeError(nodeID, "TimePassed must be a count followed by h, d, w, M, or y: "+cond.TimePassed)
			}
			if cond.EventTriggered != nil && cond.EventTriggered.Count < 1 {
				result.AddNodeError(nodeID, "EventTriggered count must be at least 1")
			}
		}
	}

	for _, node := range doc.QuestNodes {
		checkConditions(node.NodeID, node.Conditions)
		for _, opt := range node.Options {
			checkConditions(node.NodeID, opt.Conditions)
		}
		if node.ConditionsRequired.IsSet() && !node.ConditionsRequired.IsAll() {
			if n, ok := node.ConditionsRequired.Count(); !ok || n < 1 || n > len(node.Conditions) {
				result.AddNodeError(node.NodeID, "ConditionsRequired count must be between 1 and the number of conditions")
			}
		}
		for _, action := range node.Actions {
			if action.Tag() == "" {
				result.AddNodeError(node.NodeID, "action must be a verb or have exactly one key")
			}
		}
	}
}

func validateNoCycles(doc *quest.Document, result *quest.ValidationResult) {
	adj := make(map[int][]int)
	for _, node := range doc.QuestNodes {
		adj[node.NodeID] = outgoingEdges(&node)
	}

	const (
		white = 0 // not visited
		gray  = 1 // visiting, in current path
		black = 2 // visited
	)

	color := make(map[int]int)
	for _, node := range doc.QuestNodes {
		color[node.NodeID] = white
	}

	var dfs func(nodeID int) bool
	dfs = func(nodeID int) bool {
		color[nodeID] = gray
		for _, nextID := range adj[nodeID] {
			if color[nextID] == gray {
				return true
			}
			if color[nextID] == white && dfs(nextID) {
				return true
			}
		}
		color[nodeID] = black
		return false
	}

	for _, node := range doc.QuestNodes {
		if color[node.NodeID] == white && dfs(node.NodeID) {
			result.AddGlobalError("quest contains a cycle (loops are not allowed)")
			return
		}
	}
}

func (v *Validator) validateReferences(doc *quest.Document, result *quest.ValidationResult) {
	if v.refData == nil {
		return
	}

	npcs := loadIDs(v.refData.ListNPCs, func(n quest.NPC) string { return n.NPCID })
	items := loadIDs(v.refData.ListItems, func(i quest.Item) string { return i.ItemID })
	factions := loadIDs(v.refData.ListFactions, func(f quest.Faction) string { return f.FactionID })
	resources := loadIDs(v.refData.ListResources, func(r quest.Resource) string { return r.ResourceID })
	objects := loadIDs(v.refData.ListObjects, func(o quest.Object) string { return o.ObjectID })

	checkConditions := func(nodeID int, conditions []quest.Condition) {
		for _, cond := range conditions {
			if cond.ResourceAvailability != nil && cond.ResourceAvailability.Resource != "" {
				if !resources[cond.ResourceAvailability.Resource] {
					result.AddNodeError(nodeID, "unknown resource in ResourceAvailability: "+cond.ResourceAvailability.Resource)
				}
			}
			if cond.FactionStanding != nil && cond.FactionStanding.Faction != "" {
				if !factions[cond.FactionStanding.Faction] {
					result.AddNodeError(nodeID, "unknown faction in FactionStanding: "+cond.FactionStanding.Faction)
				}
			}
			if cond.ItemLost != "" && !items[cond.ItemLost] {
				result.AddNodeError(nodeID, "unknown item in ItemLost: "+cond.ItemLost)
			}
			for _, entry := range cond.Inventory {
				if entry.Type != "" && !items[entry.Type] {
					result.AddNodeError(nodeID, "unknown item type in Inventory: "+entry.Type)
				}
			}
			if cond.ItemUsedOnObject != nil {
				if cond.ItemUsedOnObject.Item != "" && !items[cond.ItemUsedOnObject.Item] {
					result.AddNodeError(nodeID, "unknown item in ItemUsedOnObject: "+cond.ItemUsedOnObject.Item)
				}
				if cond.ItemUsedOnObject.Object != "" && !objects[cond.ItemUsedOnObject.Object] {
					result.AddNodeError(nodeID, "unknown object in ItemUsedOnObject: "+cond.ItemUsedOnObject.Object)
				}
			}
			if cond.ItemUsedOnNPC != nil {
				if cond.ItemUsedOnNPC.Item != "" && !items[cond.ItemUsedOnNPC.Item] {
					result.AddNodeError(nodeID, "unknown item in ItemUsedOnNPC: "+cond.ItemUsedOnNPC.Item)
				}
				if cond.ItemUsedOnNPC.NPC != "" && !npcs[cond.ItemUsedOnNPC.NPC] {
					result.AddNodeError(nodeID, "unknown NPC in ItemUsedOnNPC: "+cond.ItemUsedOnNPC.NPC)
				}
			}
		}
	}

	for _, node := range doc.QuestNodes {
		if node.ConversationPartner != "" && !npcs[node.ConversationPartner] {
			result.AddNodeError(node.NodeID, "unknown conversation partner: "+node.ConversationPartner)
		}
		if node.Speaker != "" && !npcs[node.Speaker] {
			result.AddNodeError(node.NodeID, "unknown speaker: "+node.Speaker)
		}

		// "Player" is always a valid message speaker.
		for _, msg := range node.Messages {
			if msg.Speaker != "Player" && !npcs[msg.Speaker] {
				result.AddNodeError(node.NodeID, "unknown speaker in message: "+msg.Speaker)
			}
		}

		checkConditions(node.NodeID, node.Conditions)
		for _, opt := range node.Options {
			checkConditions(node.NodeID, opt.Conditions)
		}

		for _, action := range node.Actions {
			for _, stack := range action.ItemsGained {
				if stack.Type != "" && !items[stack.Type] {
					result.AddNodeError(node.NodeID, "unknown item type in ItemsGained: "+stack.Type)
				}
			}
			for _, stack := range action.ItemsLost {
				if stack.Type != "" && !items[stack.Type] {
					result.AddNodeError(node.NodeID, "unknown item type in ItemsLost: "+stack.Type)
				}
			}
			if action.FactionStanding != nil && action.FactionStanding.Faction != "" {
				if !factions[action.FactionStanding.Faction] {
					result.AddNodeError(node.NodeID, "unknown faction in FactionStanding: "+action.FactionStanding.Faction)
				}
			}
		}
	}
}

func loadIDs[T any](list func() ([]T, error), id func(T) string) map[string]bool {
	values, err := list()
	if err != nil {
		slog.Warn("failed to load reference data for validation", "error", err)
		return map[string]bool{}
	}
	ids := make(map[string]bool, len(values))
	for _, v := range values {
		ids[id(v)] = true
	}
	return ids
}

// validateUnreferencedNodes warns about nodes nothing routes to. These are
// reachable only by editing mistakes, but they do not break the document.
func validateUnreferencedNodes(doc *quest.Document, result *quest.ValidationResult) {
	referenced := make(map[int]bool)
	for _, node := range doc.QuestNodes {
		for _, nextID := range outgoingEdges(&node) {
			referenced[nextID] = true
		}
	}
	for _, node := range doc.QuestNodes {
		if node.NodeType == quest.NodeEntryPoint {
			continue
		}
		if !referenced[node.NodeID] {
			result.AddNodeWarning(node.NodeID, "NodeID is never referenced by any other node")
		}
	}
}

// outgoingEdges returns all nodes a given node can transition to.
func outgoingEdges(node *quest.Node) []int {
	edges := make([]int, 0)
	edges = append(edges, node.NextNodes...)
	edges = append(edges, node.NextNodesIfTrue...)
	edges = append(edges, node.NextNodesIfFalse...)
	for _, opt := range node.Options {
		edges = append(edges, opt.NextNodes...)
	}
	return edges
}

func nodeHasAction(node *quest.Node, tag string) bool {
	for _, action := range node.Actions {
		if action.Tag() == tag {
			return true
		}
	}
	return false
}

func isTerminalNode(node *quest.Node) bool {
	if node.NodeType != quest.NodeActions {
		return false
	}
	for _, action := range node.Actions {
		if action.IsTerminal() {
			return true
		}
	}
	return false
}

// validateJournalAtFlowStart checks that the first Actions node reachable
// from each EntryPoint writes the journal and stage description.
func validateJournalAtFlowStart(doc *quest.Document, result *quest.ValidationResult) {
	nodeByID := make(map[int]*quest.Node)
	for i := range doc.QuestNodes {
		nodeByID[doc.QuestNodes[i].NodeID] = &doc.QuestNodes[i]
	}

	for _, node := range doc.QuestNodes {
		if node.NodeType != quest.NodeEntryPoint {
			continue
		}

		visited := make(map[int]bool)
		queue := outgoingEdges(&node)
		var firstActions *quest.Node

		for len(queue) > 0 && firstActions == nil {
			currentID := queue[0]
			queue = queue[1:]
			if visited[currentID] {
				continue
			}
			visited[currentID] = true

			current, exists := nodeByID[currentID]
			if !exists {
				continue
			}
			if current.NodeType == quest.NodeActions {
				firstActions = current
				break
			}
			queue = append(queue, outgoingEdges(current)...)
		}

		if firstActions == nil {
			result.AddNodeWarning(node.NodeID, "EntryPoint flow has no Actions node")
			continue
		}
		if !nodeHasAction(firstActions, "JournalEntry") {
			result.AddNodeWarning(firstActions.NodeID, "first Actions node in flow should have a JournalEntry action")
		}
		if !nodeHasAction(firstActions, "QuestStageDescription") {
			result.AddNodeWarning(firstActions.NodeID, "first Actions node in flow should have a QuestStageDescription action")
		}
	}
}

// validateJournalAtFlowEnd checks that every terminal Actions chain writes a
// closing journal entry.
func validateJournalAtFlowEnd(doc *quest.Document, result *quest.ValidationResult) {
	nodeByID := make(map[int]*quest.Node)
	incomingFrom := make(map[int][]int)
	for i := range doc.QuestNodes {
		node := &doc.QuestNodes[i]
		nodeByID[node.NodeID] = node
		for _, nextID := range outgoingEdges(node) {
			incomingFrom[nextID] = append(incomingFrom[nextID], node.NodeID)
		}
	}

	for i := range doc.QuestNodes {
		node := &doc.QuestNodes[i]
		if !isTerminalNode(node) {
			continue
		}

		// The chain is the terminal node plus all consecutive Actions
		// nodes leading into it.
		chain := []*quest.Node{node}
		visited := map[int]bool{node.NodeID: true}
		toCheck := []int{node.NodeID}
		for len(toCheck) > 0 {
			currentID := toCheck[0]
			toCheck = toCheck[1:]
			for _, prevID := range incomingFrom[currentID] {
				if visited[prevID] {
					continue
				}
				prev, exists := nodeByID[prevID]
				if !exists || prev.NodeType != quest.NodeActions {
					continue
				}
				visited[prevID] = true
				chain = append(chain, prev)
				toCheck = append(toCheck, prevID)
			}
		}

		hasJournal := false
		for _, chainNode := range chain {
			if nodeHasAction(chainNode, "JournalEntry") {
				hasJournal = true
				break
			}
		}
		if !hasJournal {
			result.AddNodeWarning(node.NodeID, "terminal Actions chain should contain a JournalEntry action")
		}
	}
}
