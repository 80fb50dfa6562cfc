package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfirmationRequired is returned when the consecutive-number check could not
// reach the store and the caller has not confirmed the number manually.
var ErrConfirmationRequired = errors.New("consecutive number could not be verified, manual confirmation required")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func notFound(entity string, key interface{}) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func conflict(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// Candidate is a fuzzy match offered to the operator for disambiguation.
type Candidate struct {
	Barcode       string  `json:"barcode"`
	ItemID        string  `json:"item_id"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	Score         float64 `json:"score"`
}

// AmbiguousMatchError is an outcome, not a failure: nothing was written and the
// caller must pick one of the candidates.
type AmbiguousMatchError struct {
	Code       string
	Candidates []Candidate
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("code %q matches %d similar barcodes", e.Code, len(e.Candidates))
}

// BatchFailure identifies one failed sync batch so it can be retried on its own.
type BatchFailure struct {
	Phase string   `json:"phase"`
	Batch int      `json:"batch"`
	Keys  []string `json:"keys"`
	Err   error    `json:"-"`
}

func (f BatchFailure) Error() string {
	return fmt.Sprintf("%s batch %d (%d keys): %v", f.Phase, f.Batch, len(f.Keys), f.Err)
}

type PartialBatchFailure struct {
	SyncID   string
	Failures []BatchFailure
}

func (e *PartialBatchFailure) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("catalog sync %s: %d batch(es) failed: %s", e.SyncID, len(e.Failures), strings.Join(parts, "; "))
}

func (e *PartialBatchFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
