package quest

// Reference data: read-only lookup tables used to render human-friendly
// labels for ids stored in conditions and actions. The editor never enforces
// them itself; the validator does.

// Item is an item type definition.
type Item struct {
	ItemID      string `yaml:"ItemID" json:"ItemID"`
	DisplayName Text   `yaml:"DisplayName,omitempty" json:"DisplayName,omitempty"`
	Description Text   `yaml:"Description,omitempty" json:"Description,omitempty"`
	Stackable   bool   `yaml:"Stackable,omitempty" json:"Stackable,omitempty"`
	MaxStack    int    `yaml:"MaxStack,omitempty" json:"MaxStack,omitempty"`
	Category    string `yaml:"Category,omitempty" json:"Category,omitempty"`
}

// Faction is a faction definition.
type Faction struct {
	FactionID       string `yaml:"FactionID" json:"FactionID"`
	DisplayName     Text   `yaml:"DisplayName,omitempty" json:"DisplayName,omitempty"`
	Description     Text   `yaml:"Description,omitempty" json:"Description,omitempty"`
	FactionType     string `yaml:"FactionType,omitempty" json:"FactionType,omitempty"`
	MaxLevel        int    `yaml:"MaxLevel,omitempty" json:"MaxLevel,omitempty"`
	InitialStanding int    `yaml:"InitialStanding,omitempty" json:"InitialStanding,omitempty"`
}

// Resource is a world resource definition.
type Resource struct {
	ResourceID  string `yaml:"ResourceID" json:"ResourceID"`
	DisplayName Text   `yaml:"DisplayName,omitempty" json:"DisplayName,omitempty"`
	Description Text   `yaml:"Description,omitempty" json:"Description,omitempty"`
	Category    string `yaml:"Category,omitempty" json:"Category,omitempty"`
}

// NPC is a conversation partner or speaker definition.
type NPC struct {
	NPCID       string `yaml:"NPCID" json:"NPCID"`
	DisplayName Text   `yaml:"DisplayName,omitempty" json:"DisplayName,omitempty"`
	Title       Text   `yaml:"Title,omitempty" json:"Title,omitempty"`
	Description Text   `yaml:"Description,omitempty" json:"Description,omitempty"`
	Location    string `yaml:"Location,omitempty" json:"Location,omitempty"`
	FactionID   string `yaml:"FactionID,omitempty" json:"FactionID,omitempty"`
}

// Object is a world object definition.
type Object struct {
	ObjectID    string `yaml:"ObjectID" json:"ObjectID"`
	DisplayName Text   `yaml:"DisplayName,omitempty" json:"DisplayName,omitempty"`
	Description Text   `yaml:"Description,omitempty" json:"Description,omitempty"`
	Location    string `yaml:"Location,omitempty" json:"Location,omitempty"`
}
