// Package activity implements the Anti-Corruption Layer translators for the
// downstream audit service's activity resources.
package activity

// RecordDTO matches the audit service's ActivityRecord schema.
type RecordDTO struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ProjectID  string `json:"project_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Action     string `json:"action"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// ListResponseDTO matches the audit service's activity list response.
type ListResponseDTO struct {
	Records []RecordDTO `json:"records"`
	Count   int64       `json:"count"`
}
