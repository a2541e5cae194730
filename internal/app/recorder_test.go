package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen11/trackflow/internal/adapters/audit"
	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/platform/clock"
	"github.com/jsamuelsen11/trackflow/mocks"
)

func TestRecorder_Record_StampsMissingFields(t *testing.T) {
	t.Parallel()

	sink := audit.NewMemorySink()
	r := NewRecorder(sink, clock.Fake(epoch), nil, discardLogger())
	ctx := context.Background()

	r.Record(ctx, domain.ActivityRecord{EntityType: domain.EntityBug, EntityID: "b1", Action: domain.ActionCreated})
	r.Record(ctx, domain.ActivityRecord{ID: "fixed", EntityType: domain.EntityBug, EntityID: "b1", Action: domain.ActionUpdated, Timestamp: epoch.Add(-1)})

	got, err := r.Activity(ctx, domain.EntityBug, "b1")
	if err != nil {
		t.Fatalf("Activity() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Activity() = %d records, want 2", len(got))
	}
	if got[0].ID == "" || !got[0].Timestamp.Equal(epoch) {
		t.Errorf("first record ID %q at %v, want generated ID at %v", got[0].ID, got[0].Timestamp, epoch)
	}
	if got[1].ID != "fixed" || !got[1].Timestamp.Equal(epoch.Add(-1)) {
		t.Errorf("second record = %+v, want caller values kept", got[1])
	}
}

func TestRecorder_Record_SwallowsSinkError(t *testing.T) {
	t.Parallel()

	sink := mocks.NewMockAuditSink(t)
	sink.EXPECT().
		Record(mock.Anything, mock.MatchedBy(func(rec domain.ActivityRecord) bool { return rec.EntityID == "w1" })).
		Return(errors.New("disk full")).
		Once()

	r := NewRecorder(sink, clock.Fake(epoch), nil, discardLogger())
	r.Record(context.Background(), domain.ActivityRecord{EntityType: domain.EntityWorkItem, EntityID: "w1"})

	if _, err := r.Activity(context.Background(), domain.EntityWorkItem, "w1"); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("Activity() error = %v, want ErrUnavailable for a write-only sink", err)
	}
}

func TestRecorder_NilSink(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil, nil, nil, nil)
	r.Record(context.Background(), domain.ActivityRecord{EntityID: "x"})

	if _, err := r.Activity(context.Background(), domain.EntityWorkItem, "x"); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("Activity() error = %v, want ErrUnavailable", err)
	}
}
