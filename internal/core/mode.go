// Package core is the orchestration layer.  It composes transports
// and capabilities into complete operational modes and provides a
// builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	protocol → session → registry → chat  ─┐
//	transport → retry → capability ────────┴→  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of chatd (serve or
// connect).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
