package artifacts

import (
	"time"
)

// Artifact is a structured record captured during housekeeping for
// external persistence.
type Artifact struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Content   []byte            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Recorder is the interface the lifecycle engine hands resource-details
// records to. Implementations persist artifacts for later retrieval by
// external tooling.
type Recorder interface {
	// AddArtifact stores one artifact and returns its assigned ID.
	AddArtifact(kind string, content []byte, metadata map[string]string) (string, error)
}

// Store extends Recorder with retrieval and lifecycle management.
type Store interface {
	Recorder
	GetArtifact(id string) (*Artifact, error)
	ListArtifacts() ([]*Artifact, error)
	Close() error
}
