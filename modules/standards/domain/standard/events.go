package standard

import "github.com/google/uuid"

// ImportedEvent is published after an import batch has been committed.
type ImportedEvent struct {
	StandardID uuid.UUID
	Key        string
	Count      int
}
