// Package project defines the Project aggregate that owns modules and, through
// them, work items. The project is the unit of optimistic concurrency for
// every work item it owns: writing any item bumps the project's Version.
package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/domain"
)

// Module groups work items inside a project.
type Module struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Project is the owning aggregate of modules and work items. Work items are
// stored flat by ID with a back-reference to (ProjectID, ModuleID); the
// project document holds only the number allocator and the version.
type Project struct {
	ID          string
	Key         string
	Name        string
	Description string
	Modules     []Module
	// NextNumber is the display number the next work item receives.
	// It only grows, so numbers are never reassigned.
	NextNumber int
	Version    int64
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks business rules for the Project entity.
// Returns a *domain.ValidationError (wrapping domain.ErrValidation) with per-field details,
// or nil if all rules pass.
func (p *Project) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = domain.MsgRequired
	}
	if strings.TrimSpace(p.Key) == "" {
		fields["key"] = domain.MsgRequired
	} else if strings.ContainsAny(p.Key, " -/") {
		fields["key"] = fmt.Sprintf("must not contain spaces, dashes or slashes, got %q", p.Key)
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Module returns the module with the given ID.
func (p *Project) Module(id string) (*Module, bool) {
	for i := range p.Modules {
		if p.Modules[i].ID == id {
			return &p.Modules[i], true
		}
	}
	return nil, false
}

// AddModule appends a module. Module names are unique per project.
func (p *Project) AddModule(m Module) error {
	if strings.TrimSpace(m.Name) == "" {
		return &domain.ValidationError{Fields: map[string]string{"name": domain.MsgRequired}}
	}
	for i := range p.Modules {
		if strings.EqualFold(p.Modules[i].Name, m.Name) {
			return fmt.Errorf("module %q in project %s: %w", m.Name, p.ID, domain.ErrAlreadyExists)
		}
	}
	p.Modules = append(p.Modules, m)
	return nil
}

// AllocateNumber reserves the next display number. The reservation only
// becomes durable when the project is saved.
func (p *Project) AllocateNumber() int {
	if p.NextNumber < 1 {
		p.NextNumber = 1
	}
	n := p.NextNumber
	p.NextNumber++
	return n
}

// DisplayKey renders a work item number as "KEY-42".
func (p *Project) DisplayKey(number int) string {
	return fmt.Sprintf("%s-%d", p.Key, number)
}
