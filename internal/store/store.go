// Package store defines the persistence contracts of the portal and the
// connection helpers shared by its backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"internship/internal/model"
)

var (
	// ErrNotFound is returned when no row or document has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a versioned write finds the record changed since it was read.
	ErrConflict = errors.New("version conflict")
	// ErrDuplicate is returned when a write would break a uniqueness rule.
	ErrDuplicate = errors.New("duplicate key")
	// ErrStorageFailure wraps every failure of the backend itself.
	ErrStorageFailure = errors.New("storage failure")
)

// Failure wraps err as a storage failure unless it already is a contract error.
func Failure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}

// RequestStore persists internship requests.
type RequestStore interface {
	LoadRequests(ctx context.Context) ([]model.Request, error)
	SaveRequests(ctx context.Context, all []model.Request) error
	GetRequest(ctx context.Context, id string) (model.Request, error)
	InsertRequest(ctx context.Context, r model.Request) error
	// InsertRequestIf inserts r unless check, run against the current collection,
	// returns an error. The check and the insert are atomic with respect to other
	// InsertRequestIf calls; check's error is returned unchanged.
	InsertRequestIf(ctx context.Context, r model.Request, check func(all []model.Request) error) error
	// UpdateRequest replaces the stored record when its version still equals expectedVersion.
	UpdateRequest(ctx context.Context, r model.Request, expectedVersion int64) error
}

// CheckinStore persists attendance check-ins. Inserts and updates enforce the
// (studentId, date) uniqueness rule and report ErrDuplicate.
type CheckinStore interface {
	LoadCheckins(ctx context.Context) ([]model.CheckinEntry, error)
	SaveCheckins(ctx context.Context, all []model.CheckinEntry) error
	GetCheckin(ctx context.Context, id string) (model.CheckinEntry, error)
	InsertCheckin(ctx context.Context, c model.CheckinEntry) error
	UpdateCheckin(ctx context.Context, c model.CheckinEntry) error
	DeleteCheckin(ctx context.Context, id string) error
}

// HistoryStore persists the transition audit trail.
type HistoryStore interface {
	AppendHistory(ctx context.Context, h model.HistoryEntry) error
	ListHistory(ctx context.Context, requestID string) ([]model.HistoryEntry, error)
}

// Store is everything a backend provides.
type Store interface {
	RequestStore
	CheckinStore
	HistoryStore
	Healthy(ctx context.Context) bool
	Close() error
}

// CheckUniqueCheckins reports ErrDuplicate when two entries share a student and date.
// Entries with the same id are the same row and never collide with themselves.
func CheckUniqueCheckins(entries []model.CheckinEntry) error {
	seen := make(map[[2]string]string, len(entries))
	for _, c := range entries {
		key := [2]string{c.StudentID, c.Date}
		if id, ok := seen[key]; ok && id != c.ID {
			return fmt.Errorf("%w: student %s already checked in on %s", ErrDuplicate, c.StudentID, c.Date)
		}
		seen[key] = c.ID
	}
	return nil
}
