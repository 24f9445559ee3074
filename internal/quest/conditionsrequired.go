package quest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConditionsRequired says how many of a node's conditions must hold: the
// literal "all" or an integer count. The zero value means unset and is never
// serialized; the gateway defaults unset to "all".
type ConditionsRequired string

// RequireAll requires every condition to hold.
const RequireAll ConditionsRequired = "all"

// RequireCount requires at least n conditions to hold.
func RequireCount(n int) ConditionsRequired {
	return ConditionsRequired(strconv.Itoa(n))
}

// IsSet reports whether the field carries a value.
func (c ConditionsRequired) IsSet() bool { return c != "" }

// IsAll reports whether every condition is required.
func (c ConditionsRequired) IsAll() bool { return c == RequireAll }

// Count returns the numeric requirement, if the field holds one.
func (c ConditionsRequired) Count() (int, bool) {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON emits "all" as a string and counts as bare numbers.
func (c ConditionsRequired) MarshalJSON() ([]byte, error) {
	if c == RequireAll {
		return json.Marshal(string(c))
	}
	if n, ok := c.Count(); ok {
		return json.Marshal(n)
	}
	return nil, fmt.Errorf("%w: invalid ConditionsRequired %q", ErrSchemaViolation, string(c))
}

// UnmarshalJSON accepts the string "all" or an integer.
func (c *ConditionsRequired) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != string(RequireAll) {
			return fmt.Errorf("%w: ConditionsRequired string must be \"all\", got %q", ErrSchemaViolation, s)
		}
		*c = RequireAll
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: ConditionsRequired must be \"all\" or an integer", ErrSchemaViolation)
	}
	*c = RequireCount(n)
	return nil
}

// MarshalYAML emits "all" as a string and counts as integers.
func (c ConditionsRequired) MarshalYAML() (interface{}, error) {
	if c == RequireAll {
		return string(c), nil
	}
	if n, ok := c.Count(); ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: invalid ConditionsRequired %q", ErrSchemaViolation, string(c))
}

// UnmarshalYAML accepts the string "all" or an integer.
func (c *ConditionsRequired) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*c = RequireCount(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil || s != string(RequireAll) {
		return fmt.Errorf("%w: ConditionsRequired must be \"all\" or an integer", ErrSchemaViolation)
	}
	*c = RequireAll
	return nil
}
