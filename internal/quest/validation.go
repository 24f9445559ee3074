package quest

import "fmt"

// Issue is a single validation finding, optionally tied to a node.
type Issue struct {
	NodeID  *int   `json:"nodeId,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e Issue) Error() string {
	if e.NodeID != nil {
		return fmt.Sprintf("Node %d: %s", *e.NodeID, e.Message)
	}
	return e.Message
}

// ValidationResult is the outcome of submitting a document to the validation
// gateway. Errors make the document invalid; warnings do not.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// NewValidationResult creates an empty valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// AddError adds an error and marks the result as invalid.
func (r *ValidationResult) AddError(issue Issue) {
	r.Valid = false
	r.Errors = append(r.Errors, issue)
}

// AddNodeError adds an error associated with a specific node.
func (r *ValidationResult) AddNodeError(nodeID int, message string) {
	r.AddError(Issue{NodeID: &nodeID, Message: message})
}

// AddGlobalError adds an error not associated with a specific node.
func (r *ValidationResult) AddGlobalError(message string) {
	r.AddError(Issue{Message: message})
}

// AddNodeWarning adds a warning associated with a specific node.
func (r *ValidationResult) AddNodeWarning(nodeID int, message string) {
	r.Warnings = append(r.Warnings, Issue{NodeID: &nodeID, Message: message})
}

// AddGlobalWarning adds a warning not associated with a specific node.
func (r *ValidationResult) AddGlobalWarning(message string) {
	r.Warnings = append(r.Warnings, Issue{Message: message})
}
