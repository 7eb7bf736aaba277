package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	fieldNamePattern      = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// SanitizeFieldName checks that name is safe to use as a document field name.
// Field names are never trimmed: surrounding whitespace is rejected.
func (v *Validator) SanitizeFieldName(name string) (string, error) {
	return v.fieldName("field", name)
}

func (v *Validator) fieldName(field, name string) (string, error) {
	if name == "" {
		return "", NewError(field, "field name is required")
	}
	if utf8.RuneCountInString(name) > v.cfg.MaxIdentifierLength {
		return "", NewError(field, "field name must be at most %d characters", v.cfg.MaxIdentifierLength)
	}
	if !fieldNamePattern.MatchString(name) {
		return "", NewError(field, "field name %q may only contain letters, digits and underscores",
			SanitizeForDisplay(name))
	}
	return name, nil
}

// SanitizeDocumentID trims id and checks that it is a safe document id.
// Any string without "/" that is not "." or ".." and fits the length bound is
// returned trimmed and otherwise unchanged.
func (v *Validator) SanitizeDocumentID(id string) (string, error) {
	return v.documentID("id", id)
}

func (v *Validator) documentID(field, id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", NewError(field, "document id is required")
	}
	if utf8.RuneCountInString(trimmed) > v.cfg.MaxIdentifierLength {
		return "", NewError(field, "document id must be at most %d characters", v.cfg.MaxIdentifierLength)
	}
	if strings.Contains(trimmed, "/") {
		return "", NewError(field, "document id must not contain '/'")
	}
	if trimmed == "." || trimmed == ".." {
		return "", NewError(field, "document id must not be '.' or '..'")
	}
	return trimmed, nil
}

// SanitizeCollectionName checks a single collection name segment
func (v *Validator) SanitizeCollectionName(name string) (string, error) {
	return v.collectionName("collection", name)
}

func (v *Validator) collectionName(field, name string) (string, error) {
	if name == "" {
		return "", NewError(field, "collection name is required")
	}
	if utf8.RuneCountInString(name) > v.cfg.MaxIdentifierLength {
		return "", NewError(field, "collection name must be at most %d characters", v.cfg.MaxIdentifierLength)
	}
	if !collectionNamePattern.MatchString(name) {
		return "", NewError(field, "collection name %q may only contain letters, digits, '_' and '-'",
			SanitizeForDisplay(name))
	}
	return name, nil
}

// ValidateCollectionPath checks a "/"-delimited collection path such as
// "jobs" or "locals/46/jobs". The path must have an odd number of segments;
// even positions are collection names and odd positions are document ids.
// Segments are not trimmed.
func (v *Validator) ValidateCollectionPath(path string) (string, error) {
	const field = "collection"

	if path == "" {
		return "", NewError(field, "collection path is required")
	}

	segments := strings.Split(path, "/")
	if len(segments)%2 == 0 {
		return "", NewError(field, "collection path must have an odd number of segments, got %d", len(segments))
	}

	for i, seg := range segments {
		if i%2 == 0 {
			if _, err := v.collectionName(field, seg); err != nil {
				return "", err
			}
			continue
		}
		id, err := v.documentID(field, seg)
		if err != nil {
			return "", err
		}
		if id != seg {
			return "", NewError(field, "path segment %d must not have surrounding whitespace", i)
		}
	}
	return path, nil
}

// SanitizeFieldName validates a field name with the default validator
func SanitizeFieldName(name string) (string, error) {
	return defaultValidator.SanitizeFieldName(name)
}

// SanitizeDocumentID validates a document id with the default validator
func SanitizeDocumentID(id string) (string, error) {
	return defaultValidator.SanitizeDocumentID(id)
}

// ValidateCollectionPath validates a collection path with the default validator
func ValidateCollectionPath(path string) (string, error) {
	return defaultValidator.ValidateCollectionPath(path)
}
