package event

import (
	"slices"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

// ToEventDTO converts a domain Event to the wire schema. Targets is never
// null on the wire.
func ToEventDTO(ev *domain.Event) EventDTO {
	targets := slices.Clone(ev.TargetUserIDs)
	if targets == nil {
		targets = []string{}
	}
	return EventDTO{
		Type:      ev.Type,
		ProjectID: ev.ProjectID,
		Targets:   targets,
		Payload:   ev.Payload,
	}
}
