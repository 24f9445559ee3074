package quest

import (
	"encoding/json"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// timeSpanPattern matches TimePassed values: a count followed by a unit
// (hours, days, weeks, months, years).
var timeSpanPattern = regexp.MustCompile(`^\d+[hdwMy]$`)

// ValidTimeSpan reports whether s is a well-formed TimePassed value.
func ValidTimeSpan(s string) bool {
	return timeSpanPattern.MatchString(s)
}

// Comparison operators for Variable conditions.
const (
	CompareEqual       = "equal"
	CompareNotEqual    = "not equal"
	CompareGreaterThan = "greater than"
	CompareSmallerThan = "smaller than"
)

// ResourceAvailability checks whether a world resource is available.
type ResourceAvailability struct {
	Resource  string `yaml:"Resource" json:"Resource"`
	Available bool   `yaml:"Available" json:"Available"`
}

// FactionStandingCheck checks the player's standing with a faction.
type FactionStandingCheck struct {
	Faction  string `yaml:"Faction" json:"Faction"`
	MinLevel *int   `yaml:"MinLevel,omitempty" json:"MinLevel,omitempty"`
	MaxLevel *int   `yaml:"MaxLevel,omitempty" json:"MaxLevel,omitempty"`
}

// InventoryEntry is one required inventory stack.
type InventoryEntry struct {
	Type      string `yaml:"Type" json:"Type"`
	MinCount  int    `yaml:"MinCount,omitempty" json:"MinCount,omitempty"`
	QuestItem bool   `yaml:"QuestItem,omitempty" json:"QuestItem,omitempty"`
}

// VariableCheck compares a quest variable against a value.
type VariableCheck struct {
	Name       string `yaml:"Name" json:"Name"`
	Comparison string `yaml:"Comparison" json:"Comparison"`
	Value      int    `yaml:"Value" json:"Value"`
}

// EventTrigger requires a named event to have fired at least Count times.
type EventTrigger struct {
	Event string `yaml:"Event" json:"Event"`
	Count int    `yaml:"Count" json:"Count"`
}

// ItemUsedOnObject checks whether an item was used on a world object.
type ItemUsedOnObject struct {
	Item   string `yaml:"Item" json:"Item"`
	Object string `yaml:"Object" json:"Object"`
}

// ItemUsedOnNPC checks whether an item was used on an NPC.
type ItemUsedOnNPC struct {
	Item string `yaml:"Item" json:"Item"`
	NPC  string `yaml:"NPC" json:"NPC"`
}

// Condition is a single-key tagged variant. Exactly one field may be set; the
// wire form is an object with that field's name as its only key. Multi-key
// objects are rejected as schema violations at the boundary instead of
// silently picking one key.
type Condition struct {
	QuestCompleted       string
	ResourceAvailability *ResourceAvailability
	FactionStanding      *FactionStandingCheck
	TimePassed           string
	ItemLost             string
	Inventory            []InventoryEntry
	Variable             *VariableCheck
	EventTriggered       *EventTrigger
	ItemUsedOnObject     *ItemUsedOnObject
	ItemUsedOnNPC        *ItemUsedOnNPC
}

// Tag returns the wire key of the populated variant, or empty if none is set.
func (c Condition) Tag() string {
	tag, _, err := c.wire()
	if err != nil {
		return ""
	}
	return tag
}

// wire returns the single populated (key, payload) pair.
func (c Condition) wire() (string, interface{}, error) {
	var tag string
	var payload interface{}
	count := 0
	set := func(t string, p interface{}) {
		tag = t
		payload = p
		count++
	}

	if c.QuestCompleted != "" {
		set("QuestCompleted", c.QuestCompleted)
	}
	if c.ResourceAvailability != nil {
		set("ResourceAvailability", c.ResourceAvailability)
	}
	if c.FactionStanding != nil {
		set("FactionStanding", c.FactionStanding)
	}
	if c.TimePassed != "" {
		set("TimePassed", c.TimePassed)
	}
	if c.ItemLost != "" {
		set("ItemLost", c.ItemLost)
	}
	if c.Inventory != nil {
		set("Inventory", c.Inventory)
	}
	if c.Variable != nil {
		set("Variable", c.Variable)
	}
	if c.EventTriggered != nil {
		set("EventTriggered", c.EventTriggered)
	}
	if c.ItemUsedOnObject != nil {
		set("ItemUsedOnObject", c.ItemUsedOnObject)
	}
	if c.ItemUsedOnNPC != nil {
		set("ItemUsedOnNPC", c.ItemUsedOnNPC)
	}

	if count != 1 {
		return "", nil, fmt.Errorf("%w: condition must have exactly one key, has %d", ErrSchemaViolation, count)
	}
	return tag, payload, nil
}

// decode fills the variant named by tag from the given decode function.
func (c *Condition) decode(tag string, dec func(out interface{}) error) error {
	switch tag {
	case "QuestCompleted":
		return dec(&c.QuestCompleted)
	case "ResourceAvailability":
		c.ResourceAvailability = &ResourceAvailability{}
		return dec(c.ResourceAvailability)
	case "FactionStanding":
		c.FactionStanding = &FactionStandingCheck{}
		return dec(c.FactionStanding)
	case "TimePassed":
		return dec(&c.TimePassed)
	case "ItemLost":
		return dec(&c.ItemLost)
	case "Inventory":
		return dec(&c.Inventory)
	case "Variable":
		c.Variable = &VariableCheck{}
		return dec(c.Variable)
	case "EventTriggered":
		c.EventTriggered = &EventTrigger{}
		return dec(c.EventTriggered)
	case "ItemUsedOnObject":
		c.ItemUsedOnObject = &ItemUsedOnObject{}
		return dec(c.ItemUsedOnObject)
	case "ItemUsedOnNPC":
		c.ItemUsedOnNPC = &ItemUsedOnNPC{}
		return dec(c.ItemUsedOnNPC)
	default:
		return fmt.Errorf("%w: unknown condition type %q", ErrSchemaViolation, tag)
	}
}

// MarshalJSON emits the condition as a single-key object.
func (c Condition) MarshalJSON() ([]byte, error) {
	tag, payload, err := c.wire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{tag: payload})
}

// UnmarshalJSON parses a single-key object into the matching variant.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: condition must be an object: %v", ErrSchemaViolation, err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("%w: condition must have exactly one key, has %d", ErrSchemaViolation, len(raw))
	}
	for tag, payload := range raw {
		return c.decode(tag, func(out interface{}) error {
			return json.Unmarshal(payload, out)
		})
	}
	return nil
}

// MarshalYAML emits the condition as a single-key mapping.
func (c Condition) MarshalYAML() (interface{}, error) {
	tag, payload, err := c.wire()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{tag: payload}, nil
}

// UnmarshalYAML parses a single-key mapping into the matching variant.
func (c *Condition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("%w: condition must be a mapping with exactly one key", ErrSchemaViolation)
	}
	tag := value.Content[0].Value
	payload := value.Content[1]
	return c.decode(tag, func(out interface{}) error {
		return payload.Decode(out)
	})
}

// Clone returns a deep copy of the condition.
func (c Condition) Clone() Condition {
	out := c
	if c.ResourceAvailability != nil {
		v := *c.ResourceAvailability
		out.ResourceAvailability = &v
	}
	if c.FactionStanding != nil {
		v := *c.FactionStanding
		if c.FactionStanding.MinLevel != nil {
			n := *c.FactionStanding.MinLevel
			v.MinLevel = &n
		}
		if c.FactionStanding.MaxLevel != nil {
			n := *c.FactionStanding.MaxLevel
			v.MaxLevel = &n
		}
		out.FactionStanding = &v
	}
	if c.Inventory != nil {
		out.Inventory = make([]InventoryEntry, len(c.Inventory))
		copy(out.Inventory, c.Inventory)
	}
	if c.Variable != nil {
		v := *c.Variable
		out.Variable = &v
	}
	if c.EventTriggered != nil {
		v := *c.EventTriggered
		out.EventTriggered = &v
	}
	if c.ItemUsedOnObject != nil {
		v := *c.ItemUsedOnObject
		out.ItemUsedOnObject = &v
	}
	if c.ItemUsedOnNPC != nil {
		v := *c.ItemUsedOnNPC
		out.ItemUsedOnNPC = &v
	}
	return out
}
