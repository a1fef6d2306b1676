package core

import (
	"fmt"
	"strings"
)

// legacySourceTypes maps the source type names used by older clients.
var legacySourceTypes = map[string]SourceType{
	"pdf":      SourceTypeFile,
	"document": SourceTypeFile,
	"url":      SourceTypeWebpage,
	"youtube":  SourceTypeVideo,
}

// ParseSourceType parses a declared source type, accepting legacy aliases.
func ParseSourceType(s string) (SourceType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch st := SourceType(s); st {
	case SourceTypeFile, SourceTypeWebpage, SourceTypeVideo:
		return st, nil
	}
	if st, ok := legacySourceTypes[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSourceType, s)
}

// CanTransition reports whether a worker-driven status change is allowed.
//
// Allowed:
//   - pending -> processing
//   - processing -> processing (redelivery within the same generation)
//   - processing -> completed
//   - processing -> failed
//
// Returning to pending is only possible through re-submission, which starts a new generation.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed
	}
	return false
}

// ValidateContent validates a Content according to domain rules.
//
// Validation rules:
//   - OwnerID, Title and Source.Locator must not be empty
//   - Source.Type must be a known source type
//   - ExtractedText is non-empty exactly when Status is completed
func ValidateContent(c *Content) error {
	if c == nil {
		return fmt.Errorf("%w: content is nil", ErrValidation)
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(c.Source.Locator) == "" {
		return fmt.Errorf("%w: source locator is required", ErrValidation)
	}
	if _, err := ParseSourceType(string(c.Source.Type)); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if (c.ExtractedText != "") != (c.Status == StatusCompleted) {
		return fmt.Errorf("%w: extracted text must be set exactly when status is %s", ErrValidation, StatusCompleted)
	}
	return nil
}
