package activity

import (
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

// ToRecordDTO converts a domain ActivityRecord to the wire schema.
// Timestamps are RFC 3339 with nanoseconds so ordering survives the trip.
func ToRecordDTO(rec *domain.ActivityRecord) RecordDTO {
	return RecordDTO{
		ID:         rec.ID,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		ProjectID:  rec.ProjectID,
		ActorID:    rec.ActorID,
		Action:     rec.Action,
		OldValue:   rec.OldValue,
		NewValue:   rec.NewValue,
		Timestamp:  rec.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// ToDomainRecord converts a wire record to a domain ActivityRecord. An
// unparseable timestamp yields the zero time.
func ToDomainRecord(dto *RecordDTO) domain.ActivityRecord {
	ts, _ := time.Parse(time.RFC3339Nano, dto.Timestamp)

	return domain.ActivityRecord{
		ID:         dto.ID,
		EntityType: dto.EntityType,
		EntityID:   dto.EntityID,
		ProjectID:  dto.ProjectID,
		ActorID:    dto.ActorID,
		Action:     dto.Action,
		OldValue:   dto.OldValue,
		NewValue:   dto.NewValue,
		Timestamp:  ts,
	}
}

// ToDomainRecordList converts a list response, preserving order.
func ToDomainRecordList(dto ListResponseDTO) []domain.ActivityRecord {
	out := make([]domain.ActivityRecord, len(dto.Records))
	for i := range dto.Records {
		out[i] = ToDomainRecord(&dto.Records[i])
	}
	return out
}
