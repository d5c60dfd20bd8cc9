// Package standard holds the domain types for accreditation frameworks and
// their hierarchical requirement nodes.
package standard

import (
	"time"

	"github.com/google/uuid"
)

// Standard is one accreditation framework (e.g. "SACSCOC 2024"), identified
// by a stable business key. Re-importing the same key updates the header in
// place rather than creating a new one.
type Standard struct {
	ID        uuid.UUID
	Key       string
	Name      string
	Version   *string
	Publisher *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemInput is a caller-supplied node descriptor before resolution. ParentCode
// references another input's Code within the same batch; absent for roots.
type ItemInput struct {
	Code        string
	Title       string
	Description *string
	ParentCode  *string
}

// Item is a resolved, persisted node in a standard's hierarchy. Level is the
// zero-based depth; Path is the "/"-joined chain of codes from the root.
type Item struct {
	ID          uuid.UUID
	StandardID  uuid.UUID
	Code        string
	Title       string
	Description *string
	ParentID    *uuid.UUID
	Level       int
	Path        string
	CreatedAt   time.Time
}
