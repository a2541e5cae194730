// Package domain contains shared domain types used across entity sub-packages.
// Entity-specific types live in sub-packages (domain/project, domain/workitem,
// domain/kanban, domain/sprint, domain/bug) and the transition rules live in
// domain/workflow. This root package holds sentinel errors, the Role enum and
// Actor identity, and the append-only ActivityRecord shared by every
// component.
package domain
