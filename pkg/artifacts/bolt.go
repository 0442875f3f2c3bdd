package artifacts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketArtifacts = []byte("artifacts")

// BoltStore implements Store using a local BoltDB file. It is the default
// artifact sink when no external artifact service is configured.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the artifact database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketArtifacts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create artifact bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// AddArtifact stores one artifact and returns its assigned ID.
func (s *BoltStore) AddArtifact(kind string, content []byte, metadata map[string]string) (string, error) {
	artifact := &Artifact{
		ID:        uuid.New().String(),
		Kind:      kind,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArtifacts)
		data, err := json.Marshal(artifact)
		if err != nil {
			return err
		}
		return b.Put([]byte(artifact.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to persist artifact: %w", err)
	}

	return artifact.ID, nil
}

// GetArtifact retrieves an artifact by ID.
func (s *BoltStore) GetArtifact(id string) (*Artifact, error) {
	var artifact Artifact
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArtifacts)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("artifact not found: %s", id)
		}
		return json.Unmarshal(data, &artifact)
	})
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// ListArtifacts returns all stored artifacts.
func (s *BoltStore) ListArtifacts() ([]*Artifact, error) {
	var artifacts []*Artifact
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArtifacts)
		return b.ForEach(func(k, v []byte) error {
			var artifact Artifact
			if err := json.Unmarshal(v, &artifact); err != nil {
				return err
			}
			artifacts = append(artifacts, &artifact)
			return nil
		})
	})
	return artifacts, err
}
