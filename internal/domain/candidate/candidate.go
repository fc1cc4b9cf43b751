package candidate

import (
	"fmt"
	"time"
)

// MaxContentSize is the maximum post content size in bytes.
const MaxContentSize = 16384

// Candidate is an open post available for matching (immutable value object).
// The zero expiresAt means the candidate never expires.
type Candidate struct {
	id        string
	ownerID   int64
	topic     string
	content   string
	vector    []float32
	createdAt time.Time
	expiresAt time.Time
}

// New validates and creates a Candidate without an expiry.
func New(id string, ownerID int64, topic, content string, vector []float32, createdAt time.Time) (Candidate, error) {
	if ownerID <= 0 {
		return Candidate{}, fmt.Errorf("owner ID must be positive")
	}
	if topic == "" {
		return Candidate{}, fmt.Errorf("topic is required")
	}
	if content == "" {
		return Candidate{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Candidate{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	if len(vector) == 0 {
		return Candidate{}, fmt.Errorf("vector is required")
	}

	return Candidate{
		id:        id,
		ownerID:   ownerID,
		topic:     topic,
		content:   content,
		vector:    vector,
		createdAt: createdAt,
	}, nil
}

// Reconstruct creates a Candidate without validation.
func Reconstruct(
	id string, ownerID int64, topic, content string,
	vector []float32, createdAt, expiresAt time.Time,
) Candidate {
	return Candidate{
		id: id, ownerID: ownerID, topic: topic, content: content,
		vector: vector, createdAt: createdAt, expiresAt: expiresAt,
	}
}

// ID returns the post identifier.
func (c *Candidate) ID() string { return c.id }

// OwnerID returns the submitter identifier.
func (c *Candidate) OwnerID() int64 { return c.ownerID }

// Topic returns the topic the post was submitted under.
func (c *Candidate) Topic() string { return c.topic }

// Content returns the post text.
func (c *Candidate) Content() string { return c.content }

// Vector returns the embedding vector. The slice is shared and must not be modified.
func (c *Candidate) Vector() []float32 { return c.vector }

// CreatedAt returns the post timestamp.
func (c *Candidate) CreatedAt() time.Time { return c.createdAt }

// ExpiresAt returns the expiry, zero if open-ended.
func (c *Candidate) ExpiresAt() time.Time { return c.expiresAt }

// HasExpiry reports whether an expiry is set.
func (c *Candidate) HasExpiry() bool { return !c.expiresAt.IsZero() }

// IsLive reports whether the candidate is visible at now.
func (c *Candidate) IsLive(now time.Time) bool {
	return c.expiresAt.IsZero() || c.expiresAt.After(now)
}

// WithExpiry returns a copy with the given expiry set.
func (c *Candidate) WithExpiry(t time.Time) Candidate {
	return Candidate{
		id: c.id, ownerID: c.ownerID, topic: c.topic, content: c.content,
		vector: c.vector, createdAt: c.createdAt, expiresAt: t,
	}
}
