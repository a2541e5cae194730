package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/domain/project"
	"github.com/jsamuelsen11/trackflow/internal/ports"
)

// ProjectService implements ports.ProjectService.
type ProjectService struct {
	*core
}

var _ ports.ProjectService = (*ProjectService)(nil)

// NewProjectService creates a ProjectService. A nil Deps.Logger gets a no-op
// logger.
func NewProjectService(d Deps) *ProjectService {
	return &ProjectService{core: newCore(d)}
}

// CreateProject stores a new project with its number allocator at 1.
func (s *ProjectService) CreateProject(ctx context.Context, actor domain.Actor, p *project.Project) (*project.Project, error) {
	s.logger.InfoContext(ctx, "creating project", slog.String("key", p.Key))
	if err := requirePrivileged(actor, "create projects"); err != nil {
		return nil, s.fail(ctx, "CreateProject", err)
	}

	now := s.now()
	created := *p
	if created.ID == "" {
		created.ID = newID()
	}
	created.Modules = nil
	created.NextNumber = 1
	created.CreatedBy = actor.ID
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := created.Validate(); err != nil {
		return nil, s.fail(ctx, "CreateProject", err)
	}
	if err := s.store.CreateProject(ctx, &created); err != nil {
		return nil, s.fail(ctx, "CreateProject", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityProject,
		EntityID:   created.ID,
		ProjectID:  created.ID,
		ActorID:    actor.ID,
		Action:     domain.ActionCreated,
		NewValue:   created.Key,
	})
	return &created, nil
}

// GetProject returns the project.
func (s *ProjectService) GetProject(ctx context.Context, id string) (*project.Project, error) {
	s.logger.InfoContext(ctx, "getting project", slog.String("project_id", id))

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "GetProject", err)
	}
	return p, nil
}

// AddModule appends a module with a unique name to the project.
func (s *ProjectService) AddModule(ctx context.Context, actor domain.Actor, projectID, name string) (*project.Module, error) {
	s.logger.InfoContext(ctx, "adding module",
		slog.String("project_id", projectID),
		slog.String("name", name),
	)
	if err := requirePrivileged(actor, "add modules"); err != nil {
		return nil, s.fail(ctx, "AddModule", err)
	}

	var m project.Module
	err := s.retryOnConflict(ctx, domain.EntityProject, func() error {
		p, err := s.store.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		now := s.now()
		m = project.Module{ID: newID(), Name: name, CreatedAt: now}
		if err := p.AddModule(m); err != nil {
			return err
		}
		p.UpdatedAt = now
		return s.store.SaveProject(ctx, p)
	})
	if err != nil {
		return nil, s.fail(ctx, "AddModule", err)
	}

	s.recorder.Record(ctx, domain.ActivityRecord{
		EntityType: domain.EntityProject,
		EntityID:   projectID,
		ProjectID:  projectID,
		ActorID:    actor.ID,
		Action:     domain.ActionModuleAdded,
		NewValue:   m.Name,
	})
	return &m, nil
}
