package service

import (
	"context"
	"errors"
	"fmt"

	"lensgate/internal/media"
	"lensgate/internal/notion"
	"lensgate/internal/reconcile"
	"lensgate/internal/storage"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrSyncInProgress is returned when a sync is requested while another runs.
	ErrSyncInProgress = errors.New("sync in progress")
)

// Error codes reported to sync callers.
const (
	CodeMissingConfig  = "missing_config"
	CodeDownloadFailed = "download_failed"
	CodeServerError    = "server_error"
	CodeRateLimited    = "rate_limited"
	CodeInProgress     = "sync_in_progress"
	CodeTimeout        = "timeout"
	CodeSyncFailed     = "sync_failed"
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ErrorCode maps a sync failure to its outbound tag.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, reconcile.ErrMissingConfig):
		return CodeMissingConfig
	case errors.Is(err, ErrSyncInProgress):
		return CodeInProgress
	case errors.Is(err, notion.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, notion.ErrServerError):
		return CodeServerError
	case errors.Is(err, media.ErrDownloadFailed):
		return CodeDownloadFailed
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	default:
		return CodeSyncFailed
	}
}

// notFound translates storage misses into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
