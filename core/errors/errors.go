// Package errors holds the error types shared by the chunk store, the USFM
// importer and exporter, the conflict workflow and the CLI. Every typed error
// unwraps to one of the sentinels below unless it carries its own cause, so
// callers branch with errors.Is and only reach for errors.As when they need
// the context fields.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for a book, chapter or chunk that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for bad ids, references, options and
	// malformed documents.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported is returned for file types and archive formats the
	// tool cannot read.
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string // "book", "chapter", "chunk", "verse", ...
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err == nil {
		return ErrNotFound
	}
	return e.Err
}

// ValidationError reports a rejected input value.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

// IOError wraps a failed filesystem or database operation.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports a document that could not be decoded: a manifest, a
// chunk map or a reference.
type ParseError struct {
	Format  string
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

// UnsupportedError reports a feature or file type the tool does not handle.
type UnsupportedError struct {
	Feature string
	Reason  string
	Err     error
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return "unsupported " + e.Feature
	}
	return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err == nil {
		return ErrUnsupported
	}
	return e.Err
}

// ChunkError attaches a chunk's position in its book to a failure while
// walking the chunks of a book.
type ChunkError struct {
	ChapterID string
	ChunkID   string
	Err       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %s-%s: %v", e.ChapterID, e.ChunkID, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// NewNotFound returns a NotFoundError for resource id.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidation returns a ValidationError for field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewIO returns an IOError; err must not be nil.
func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// NewParse returns a ParseError without an underlying cause.
func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

// NewUnsupported returns an UnsupportedError.
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// InChunk wraps err with the chunk it happened in. A nil err stays nil.
func InChunk(chapterID, chunkID string, err error) error {
	if err == nil {
		return nil
	}
	return &ChunkError{ChapterID: chapterID, ChunkID: chunkID, Err: err}
}

// Wrap prefixes err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is calls errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// As calls errors.As.
func As(err error, target any) bool { return errors.As(err, target) }
