package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no document exists at the requested key.
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict is returned by Commit when a check no longer holds.
	ErrVersionConflict = errors.New("document version conflict")
	// ErrUnavailable wraps backend transport failures.
	ErrUnavailable = errors.New("storage backend unavailable")
)

// Document is a stored value with its current version token.
type Document struct {
	Key     []string
	Data    json.RawMessage
	Version string
}

// Check asserts the state a document must be in for a commit to apply.
// Version "" asserts the document must not exist.
type Check struct {
	Key     []string
	Version string
}

// Op is a single mutation inside a commit batch.
type Op struct {
	Key    []string
	Data   json.RawMessage
	Delete bool
}

// Set builds a set operation.
func Set(key []string, data json.RawMessage) Op {
	return Op{Key: key, Data: data}
}

// Delete builds a delete operation.
func Delete(key []string) Op {
	return Op{Key: key, Delete: true}
}

// Store is the document storage collaborator. Commit is atomic: either every
// check holds and every op applies, or nothing does.
type Store interface {
	Get(ctx context.Context, key []string) (Document, error)
	List(ctx context.Context, prefix []string) ([]Document, error)
	Commit(ctx context.Context, checks []Check, ops []Op) error
}

// Key elements are joined with an unprintable separator so element
// boundaries survive arbitrary content such as email addresses.
const keySeparator = "\x1f"

func joinKey(key []string) string {
	return strings.Join(key, keySeparator)
}

func splitKey(key string) []string {
	return strings.Split(key, keySeparator)
}
