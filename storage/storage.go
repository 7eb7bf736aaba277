package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrInvalidCursor is returned when a listing cursor cannot be decoded
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidDocument is returned when a collection, id or payload is unusable
	ErrInvalidDocument = errors.New("invalid document")
)

// Document is a stored record addressed by collection path and id.
type Document struct {
	ID         string
	Collection string
	Data       map[string]any
}

// Filter is an equality condition on a top-level document field.
type Filter struct {
	Field string
	Value any
}

// Page is one page of a collection listing. NextCursor is empty on the last page.
type Page struct {
	Documents  []*Document
	NextCursor string
}

// DocumentStore is the generic document database consumed by the hardening
// facade. Implementations must be safe for concurrent use.
//
// Set replaces the document, or deep-merges data into it when merge is true,
// creating it if needed. Update replaces the given top-level fields of an
// existing document and returns ErrNotFound when it is missing. Delete of a
// missing document is not an error. Query returns up to limit documents
// matching every filter, ordered by id. List pages through a collection in id
// order; an empty cursor starts at the beginning.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	Update(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]*Document, error)
	List(ctx context.Context, collection string, limit int, cursor string) (*Page, error)
}

// EncodeCursor returns the opaque cursor that resumes a listing after id.
func EncodeCursor(id string) string {
	if id == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeCursor returns the id a cursor resumes after. An empty cursor
// decodes to an empty id.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidCursor
	}
	return string(raw), nil
}

// CheckKey rejects empty collection paths and ids before they reach a backend.
func CheckKey(collection, id string) error {
	if collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidDocument)
	}
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDocument)
	}
	return nil
}
