// Package event implements the Anti-Corruption Layer translators for the
// downstream notification service's event resources.
package event

// EventDTO matches the notification service's inbound event schema.
type EventDTO struct {
	Type      string         `json:"type"`
	ProjectID string         `json:"project_id,omitempty"`
	Targets   []string       `json:"targets"`
	Payload   map[string]any `json:"payload,omitempty"`
}
