package event

import (
	"encoding/json"
	"testing"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

func TestToEventDTO(t *testing.T) {
	t.Parallel()

	ev := domain.Event{
		TargetUserIDs: []string{"u1", "u2"},
		ProjectID:     "p1",
		Type:          domain.EventBugStatusChanged,
		Payload:       map[string]any{"bug_id": "b1"},
	}

	got := ToEventDTO(&ev)
	if got.Type != domain.EventBugStatusChanged || got.ProjectID != "p1" || len(got.Targets) != 2 {
		t.Errorf("ToEventDTO() = %+v", got)
	}

	got.Targets[0] = "changed"
	if ev.TargetUserIDs[0] != "u1" {
		t.Error("ToEventDTO() shares the target slice with the event")
	}
}

func TestToEventDTO_EmptyTargetsEncodeAsArray(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(ToEventDTO(&domain.Event{Type: domain.EventWorkItemCreated}))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if want := `{"type":"work_item.created","targets":[]}`; string(body) != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}
