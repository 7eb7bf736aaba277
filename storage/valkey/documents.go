package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/journeyman-jobs/hardening/internal/util"
	"github.com/journeyman-jobs/hardening/storage"
)

// Get retrieves a document, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (doc *storage.Document, err error) {
	ctx, span := s.startStorageSpan(ctx, "get")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "get", err, startTime)
	}()

	if err := storage.CheckKey(collection, id); err != nil {
		return nil, err
	}

	raw, err := s.getRaw(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, storage.ErrNotFound
	}

	data, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return &storage.Document{ID: id, Collection: collection, Data: data}, nil
}

// Set writes a document. With merge the payload is deep-merged into the
// stored document using an optimistic compare-and-set.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) (err error) {
	ctx, span := s.startStorageSpan(ctx, "set")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "set", err, startTime)
	}()

	if err := storage.CheckKey(collection, id); err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("%w: data is required", storage.ErrInvalidDocument)
	}

	if merge {
		err = s.readModifyWrite(ctx, collection, id, func(current map[string]any, exists bool) (map[string]any, error) {
			if !exists {
				return data, nil
			}
			return storage.MergeData(current, data), nil
		})
	} else {
		err = s.setDocument(ctx, collection, id, data)
	}
	if err != nil {
		return err
	}

	s.logger.Debug("Stored document",
		"collection", collection,
		"id_prefix", util.SafeTruncate(id, idLogLength),
		"merge", merge)
	return nil
}

// Update replaces the given top-level fields of an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) (err error) {
	ctx, span := s.startStorageSpan(ctx, "update")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "update", err, startTime)
	}()

	if err := storage.CheckKey(collection, id); err != nil {
		return err
	}

	return s.readModifyWrite(ctx, collection, id, func(current map[string]any, exists bool) (map[string]any, error) {
		if !exists {
			return nil, storage.ErrNotFound
		}
		return storage.ApplyUpdate(current, data), nil
	})
}

// Delete removes a document and its index entry. Deleting a missing
// document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) (err error) {
	ctx, span := s.startStorageSpan(ctx, "delete")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "delete", err, startTime)
	}()

	if err := storage.CheckKey(collection, id); err != nil {
		return err
	}

	err = s.client.Do(ctx,
		s.client.B().Eval().Script(luaDeleteDocument).
			Numkeys(2).
			Key(s.docKey(collection, id), s.indexKey(collection)).
			Arg(id).
			Build(),
	).Error()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.logger.Debug("Deleted document",
		"collection", collection,
		"id_prefix", util.SafeTruncate(id, idLogLength))
	return nil
}

// Query returns up to limit documents matching every filter, in id order.
// Filter values are compared in their JSON form. A non-positive limit
// returns all matches.
func (s *Store) Query(ctx context.Context, collection string, filters []storage.Filter, limit int) (docs []*storage.Document, err error) {
	ctx, span := s.startStorageSpan(ctx, "query")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "query", err, startTime)
	}()

	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", storage.ErrInvalidDocument)
	}

	normalized := make([]storage.Filter, len(filters))
	for i, f := range filters {
		v, err := storage.NormalizeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize filter %s: %w", f.Field, err)
		}
		normalized[i] = storage.Filter{Field: f.Field, Value: v}
	}

	err = s.scan(ctx, collection, "", func(doc *storage.Document) bool {
		if !storage.Matches(doc.Data, normalized) {
			return true
		}
		docs = append(docs, doc)
		return limit <= 0 || len(docs) < limit
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// List returns one page of a collection in id order.
func (s *Store) List(ctx context.Context, collection string, limit int, cursor string) (page *storage.Page, err error) {
	ctx, span := s.startStorageSpan(ctx, "list")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "list", err, startTime)
	}()

	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", storage.ErrInvalidDocument)
	}
	after, err := storage.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	page = &storage.Page{}
	err = s.scan(ctx, collection, after, func(doc *storage.Document) bool {
		if limit > 0 && len(page.Documents) == limit {
			// one more document exists beyond this page
			page.NextCursor = storage.EncodeCursor(page.Documents[limit-1].ID)
			return false
		}
		page.Documents = append(page.Documents, doc)
		return true
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// setDocument writes a document and its index entry atomically
func (s *Store) setDocument(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := s.encode(data)
	if err != nil {
		return err
	}

	err = s.client.Do(ctx,
		s.client.B().Eval().Script(luaSetDocument).
			Numkeys(2).
			Key(s.docKey(collection, id), s.indexKey(collection)).
			Arg(raw, id).
			Build(),
	).Error()
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// readModifyWrite applies modify to the stored document and writes the result
// if nobody changed the document in between, retrying on conflict.
func (s *Store) readModifyWrite(ctx context.Context, collection, id string, modify func(current map[string]any, exists bool) (map[string]any, error)) error {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		raw, err := s.getRaw(ctx, collection, id)
		if err != nil {
			return err
		}

		var current map[string]any
		if raw != "" {
			if current, err = decode(raw); err != nil {
				return err
			}
		}

		next, err := modify(current, raw != "")
		if err != nil {
			return err
		}
		encoded, err := s.encode(next)
		if err != nil {
			return err
		}

		err = s.compareAndSet(ctx, collection, id, raw, encoded)
		if errors.Is(err, errWriteConflict) {
			s.logger.Debug("Retrying document write after conflict",
				"collection", collection,
				"id_prefix", util.SafeTruncate(id, idLogLength),
				"attempt", attempt+1)
			continue
		}
		return err
	}
	return fmt.Errorf("failed to write document after %d attempts: %w", maxCASRetries, errWriteConflict)
}

// scan walks a collection in id order starting after the given id, calling fn
// for every stored document until fn returns false.
func (s *Store) scan(ctx context.Context, collection, after string, fn func(*storage.Document) bool) error {
	for {
		ids, err := s.rangeIDs(ctx, collection, after, scanBatchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		docs, err := s.fetchDocuments(ctx, collection, ids)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if !fn(doc) {
				return nil
			}
		}

		if len(ids) < scanBatchSize {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

// rangeIDs returns up to count ids of a collection greater than after
func (s *Store) rangeIDs(ctx context.Context, collection, after string, count int) ([]string, error) {
	lower := "-"
	if after != "" {
		lower = "(" + after
	}

	ids, err := s.client.Do(ctx,
		s.client.B().Zrangebylex().Key(s.indexKey(collection)).
			Min(lower).Max("+").
			Limit(0, int64(count)).
			Build(),
	).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to read collection index: %w", err)
	}
	return ids, nil
}

// fetchDocuments loads the given documents in order. Ids whose document was
// deleted after the index read are skipped.
func (s *Store) fetchDocuments(ctx context.Context, collection string, ids []string) ([]*storage.Document, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}

	values, err := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}

	docs := make([]*storage.Document, 0, len(values))
	for i, v := range values {
		raw, err := v.ToString()
		if err != nil {
			if isNilError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read document %s: %w", ids[i], err)
		}
		data, err := decode(raw)
		if err != nil {
			s.logger.Warn("Failed to decode document, skipping",
				"collection", collection,
				"id_prefix", util.SafeTruncate(ids[i], idLogLength),
				"error", err)
			continue
		}
		docs = append(docs, &storage.Document{ID: ids[i], Collection: collection, Data: data})
	}
	return docs, nil
}
