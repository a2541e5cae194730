package handlers_test

import (
	"net/http"
	"testing"

	"github.com/jsamuelsen11/trackflow/internal/adapters/http/dto"
)

func sprintParams(id string) map[string]string {
	return map[string]string{"sprintId": id}
}

func (e *env) sprint(t *testing.T, name string) dto.SprintResponse {
	t.Helper()

	rec := call(t, handlersFor(e).sprints.CreateSprint, manager, http.MethodPost, "/api/v1/sprints", nil,
		dto.CreateSprintRequest{ProjectID: e.projectID, Name: name, Goal: "Ship login"})
	requireStatus(t, rec, http.StatusCreated)
	return decodeJSON[dto.SprintResponse](t, rec)
}

func TestCreateSprint(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	h := handlersFor(e).sprints

	s := e.sprint(t, "Sprint 1")
	if s.Status != "planned" || s.Goal != "Ship login" {
		t.Errorf("sprint = %+v, want planned with goal", s)
	}

	rec := call(t, h.CreateSprint, dev, http.MethodPost, "/api/v1/sprints", nil, dto.CreateSprintRequest{ProjectID: e.projectID, Name: "x"})
	requireStatus(t, rec, http.StatusForbidden)

	rec = call(t, h.GetSprint, guest, http.MethodGet, "/", sprintParams(s.ID), nil)
	requireStatus(t, rec, http.StatusOK)
	requireStatus(t, call(t, h.GetSprint, guest, http.MethodGet, "/", sprintParams("nope"), nil), http.StatusNotFound)
}

func TestSprintLifecycle(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	hs := handlersFor(e)
	s := e.sprint(t, "Sprint 1")
	w := e.item(t, "Login page")

	rec := call(t, hs.sprints.Assign, manager, http.MethodPost, "/", sprintParams(s.ID),
		dto.AssignRequest{TicketID: w.ID, AssigneeID: dev.ID, Role: "developer", Estimate: 5})
	requireStatus(t, rec, http.StatusCreated)
	a := decodeJSON[dto.AssignmentResponse](t, rec)
	if a.Status != "assigned" || a.Estimate != 5 || a.Role != "developer" {
		t.Errorf("assignment = %+v", a)
	}

	rec = call(t, hs.sprints.Assign, manager, http.MethodPost, "/", sprintParams(s.ID),
		dto.AssignRequest{TicketID: w.ID, AssigneeID: dev.ID})
	requireStatus(t, rec, http.StatusConflict)

	requireStatus(t, call(t, hs.sprints.CompleteSprint, manager, http.MethodPost, "/", sprintParams(s.ID), nil), http.StatusUnprocessableEntity)
	requireStatus(t, call(t, hs.sprints.StartSprint, manager, http.MethodPost, "/", sprintParams(s.ID), nil), http.StatusOK)

	assignment := map[string]string{"sprintId": s.ID, "assignmentId": a.ID}
	for _, status := range []string{"in_progress", "completed"} {
		rec = call(t, hs.sprints.UpdateAssignment, dev, http.MethodPatch, "/", assignment, dto.UpdateAssignmentRequest{Status: status})
		requireStatus(t, rec, http.StatusOK)
	}
	if got := decodeJSON[dto.AssignmentResponse](t, rec); got.CompletedAt == "" || got.StartedAt == "" {
		t.Errorf("assignment = %+v, want started and completed timestamps", got)
	}

	rec = call(t, hs.sprints.UpdateAssignment, qa, http.MethodPatch, "/", assignment, dto.UpdateAssignmentRequest{Status: "blocked"})
	requireStatus(t, rec, http.StatusForbidden)

	rec = call(t, hs.sprints.CompleteSprint, manager, http.MethodPost, "/", sprintParams(s.ID), nil)
	requireStatus(t, rec, http.StatusOK)
	done := decodeJSON[dto.SprintResponse](t, rec)
	if done.Status != "completed" || done.Metrics.Completed != 0 || !done.Assignments[0].Archived {
		t.Errorf("sprint = %+v, want completed with archived assignments", done)
	}

	rec = call(t, hs.items.GetWorkItem, guest, http.MethodGet, "/", itemParams(w.ID), nil)
	if got := decodeJSON[dto.WorkItemResponse](t, rec).Status; got != "done" {
		t.Errorf("item status = %q, want done after sprint completion", got)
	}

	requireStatus(t, call(t, hs.sprints.CancelSprint, manager, http.MethodPost, "/", sprintParams(s.ID), nil), http.StatusUnprocessableEntity)
}

func TestCancelSprint(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	h := handlersFor(e).sprints
	s := e.sprint(t, "Sprint 1")

	requireStatus(t, call(t, h.CancelSprint, dev, http.MethodPost, "/", sprintParams(s.ID), nil), http.StatusForbidden)

	rec := call(t, h.CancelSprint, manager, http.MethodPost, "/", sprintParams(s.ID), nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decodeJSON[dto.SprintResponse](t, rec).Status; got != "cancelled" {
		t.Errorf("Status = %q, want cancelled", got)
	}
}
