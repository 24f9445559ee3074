package quest

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Verb is a bare-string action with no payload.
type Verb string

const (
	AcceptQuest   Verb = "AcceptQuest"
	DeclineQuest  Verb = "DeclineQuest"
	PostponeQuest Verb = "PostponeQuest"
	FailQuest     Verb = "FailQuest"
	CompleteQuest Verb = "CompleteQuest"
)

// IsTerminal reports whether the verb ends the quest flow.
func (v Verb) IsTerminal() bool {
	return v == CompleteQuest || v == FailQuest || v == DeclineQuest
}

// Operations for SetVariable actions.
const (
	OpSetTo      = "set to"
	OpUnset      = "unset"
	OpIncreaseBy = "increase by"
	OpDecreaseBy = "decrease by"
)

// ItemStack is a typed stack of items gained or lost.
type ItemStack struct {
	Type      string `yaml:"Type" json:"Type"`
	Count     int    `yaml:"Count" json:"Count"`
	QuestItem bool   `yaml:"QuestItem,omitempty" json:"QuestItem,omitempty"`
}

// FactionStandingChange adjusts the player's standing with a faction.
type FactionStandingChange struct {
	Faction string `yaml:"Faction" json:"Faction"`
	Points  int    `yaml:"Points" json:"Points"`
}

// SetVariable mutates a quest variable.
type SetVariable struct {
	Name      string `yaml:"Name" json:"Name"`
	Operation string `yaml:"Operation" json:"Operation"`
	Value     int    `yaml:"Value,omitempty" json:"Value,omitempty"`
}

// Action is either a bare verb or a single-key tagged variant. The wire form
// is a plain string for verbs and a one-key object otherwise.
type Action struct {
	Verb                  Verb
	ItemsGained           []ItemStack
	ItemsLost             []ItemStack
	Currency              *int
	Experience            *int
	FactionStanding       *FactionStandingChange
	JournalEntry          Text
	SetVariable           *SetVariable
	QuestStageTitle       Text
	QuestStageDescription Text
}

// VerbAction returns a bare-verb action.
func VerbAction(v Verb) Action {
	return Action{Verb: v}
}

// Tag returns the wire key of the populated variant, or the verb itself for
// bare-verb actions. Empty when the action is unset.
func (a Action) Tag() string {
	if a.Verb != "" {
		return string(a.Verb)
	}
	tag, _, err := a.wire()
	if err != nil {
		return ""
	}
	return tag
}

// IsTerminal reports whether the action ends the quest flow.
func (a Action) IsTerminal() bool {
	return a.Verb.IsTerminal()
}

func (a Action) wire() (string, interface{}, error) {
	var tag string
	var payload interface{}
	count := 0
	set := func(t string, p interface{}) {
		tag = t
		payload = p
		count++
	}

	if a.ItemsGained != nil {
		set("ItemsGained", a.ItemsGained)
	}
	if a.ItemsLost != nil {
		set("ItemsLost", a.ItemsLost)
	}
	if a.Currency != nil {
		set("Currency", *a.Currency)
	}
	if a.Experience != nil {
		set("Experience", *a.Experience)
	}
	if a.FactionStanding != nil {
		set("FactionStanding", a.FactionStanding)
	}
	if a.JournalEntry != nil {
		set("JournalEntry", a.JournalEntry)
	}
	if a.SetVariable != nil {
		set("SetVariable", a.SetVariable)
	}
	if a.QuestStageTitle != nil {
		set("QuestStageTitle", a.QuestStageTitle)
	}
	if a.QuestStageDescription != nil {
		set("QuestStageDescription", a.QuestStageDescription)
	}

	if a.Verb != "" {
		if count != 0 {
			return "", nil, fmt.Errorf("%w: action mixes a verb with a payload variant", ErrSchemaViolation)
		}
		return string(a.Verb), nil, nil
	}
	if count != 1 {
		return "", nil, fmt.Errorf("%w: action must have exactly one key, has %d", ErrSchemaViolation, count)
	}
	return tag, payload, nil
}

func (a *Action) decode(tag string, dec func(out interface{}) error) error {
	switch tag {
	case "ItemsGained":
		return dec(&a.ItemsGained)
	case "ItemsLost":
		return dec(&a.ItemsLost)
	case "Currency":
		a.Currency = new(int)
		return dec(a.Currency)
	case "Experience":
		a.Experience = new(int)
		return dec(a.Experience)
	case "FactionStanding":
		a.FactionStanding = &FactionStandingChange{}
		return dec(a.FactionStanding)
	case "JournalEntry":
		return dec(&a.JournalEntry)
	case "SetVariable":
		a.SetVariable = &SetVariable{}
		return dec(a.SetVariable)
	case "QuestStageTitle":
		return dec(&a.QuestStageTitle)
	case "QuestStageDescription":
		return dec(&a.QuestStageDescription)
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrSchemaViolation, tag)
	}
}

func (a *Action) setVerb(s string) error {
	switch Verb(s) {
	case AcceptQuest, DeclineQuest, PostponeQuest, FailQuest, CompleteQuest:
		a.Verb = Verb(s)
		return nil
	default:
		return fmt.Errorf("%w: unknown action verb %q", ErrSchemaViolation, s)
	}
}

// MarshalJSON emits bare verbs as strings and variants as one-key objects.
func (a Action) MarshalJSON() ([]byte, error) {
	tag, payload, err := a.wire()
	if err != nil {
		return nil, err
	}
	if a.Verb != "" {
		return json.Marshal(tag)
	}
	return json.Marshal(map[string]interface{}{tag: payload})
}

// UnmarshalJSON accepts a verb string or a single-key object.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return a.setVerb(s)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: action must be a string or an object: %v", ErrSchemaViolation, err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("%w: action must have exactly one key, has %d", ErrSchemaViolation, len(raw))
	}
	for tag, payload := range raw {
		return a.decode(tag, func(out interface{}) error {
			return json.Unmarshal(payload, out)
		})
	}
	return nil
}

// MarshalYAML emits bare verbs as strings and variants as one-key mappings.
func (a Action) MarshalYAML() (interface{}, error) {
	tag, payload, err := a.wire()
	if err != nil {
		return nil, err
	}
	if a.Verb != "" {
		return tag, nil
	}
	return map[string]interface{}{tag: payload}, nil
}

// UnmarshalYAML accepts a verb string or a single-key mapping.
func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return fmt.Errorf("%w: action must be a string or a mapping", ErrSchemaViolation)
		}
		return a.setVerb(s)
	}
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("%w: action must be a string or a mapping with exactly one key", ErrSchemaViolation)
	}
	tag := value.Content[0].Value
	payload := value.Content[1]
	return a.decode(tag, func(out interface{}) error {
		return payload.Decode(out)
	})
}

// Clone returns a deep copy of the action.
func (a Action) Clone() Action {
	out := a
	if a.ItemsGained != nil {
		out.ItemsGained = make([]ItemStack, len(a.ItemsGained))
		copy(out.ItemsGained, a.ItemsGained)
	}
	if a.ItemsLost != nil {
		out.ItemsLost = make([]ItemStack, len(a.ItemsLost))
		copy(out.ItemsLost, a.ItemsLost)
	}
	if a.Currency != nil {
		n := *a.Currency
		out.Currency = &n
	}
	if a.Experience != nil {
		n := *a.Experience
		out.Experience = &n
	}
	if a.FactionStanding != nil {
		v := *a.FactionStanding
		out.FactionStanding = &v
	}
	out.JournalEntry = a.JournalEntry.Clone()
	if a.SetVariable != nil {
		v := *a.SetVariable
		out.SetVariable = &v
	}
	out.QuestStageTitle = a.QuestStageTitle.Clone()
	out.QuestStageDescription = a.QuestStageDescription.Clone()
	return out
}
