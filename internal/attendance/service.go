// Package attendance records daily internship check-ins.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"internship/internal/identity"
	"internship/internal/metrics"
	"internship/internal/model"
	"internship/internal/store"
)

var (
	// ErrDuplicateCheckin is returned when the student already has an entry for that date.
	ErrDuplicateCheckin = errors.New("student already checked in on this date")
	// ErrInvalidDate is returned for malformed dates and for self-service check-ins not dated today.
	ErrInvalidDate = errors.New("invalid check-in date")
	// ErrInvalidStatus is returned for statuses other than present, late and absent.
	ErrInvalidStatus = errors.New("invalid check-in status")
	// ErrMissingStudent is returned when a check-in names no student.
	ErrMissingStudent = errors.New("student id required")
	// ErrNotFound is returned when no check-in has the given id.
	ErrNotFound = errors.New("check-in not found")
)

// Input carries the caller-supplied fields of a check-in.
type Input struct {
	StudentID   string              `json:"studentId"`
	StudentName string              `json:"studentName"`
	Date        string              `json:"date"`
	Status      model.CheckinStatus `json:"status"`
	Note        string              `json:"note"`
}

// Edit carries the mutable fields of an existing check-in. Empty Date or Status keep the stored value.
type Edit struct {
	Date   string              `json:"date"`
	Status model.CheckinStatus `json:"status"`
	Note   string              `json:"note"`
}

// Service coordinates check-in writes against a CheckinStore.
type Service struct {
	store   store.CheckinStore
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewService creates a service. loc is the calendar used to decide what "today" is.
func NewService(s store.CheckinStore, loc *time.Location, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:   s,
		loc:     loc,
		now:     time.Now,
		metrics: m,
		logger:  logger.With().Str("component", "attendance").Logger(),
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Today returns the current calendar date in the service's time zone.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(model.DateLayout)
}

// Record is the self-service check-in. The date defaults to today and may not be anything else.
func (s *Service) Record(ctx context.Context, in Input) (model.CheckinEntry, error) {
	entry, err := s.build(in)
	if err != nil {
		s.metrics.Checkin(metrics.OutcomeRejected)
		return model.CheckinEntry{}, err
	}
	if entry.Date != s.Today() {
		s.metrics.Checkin(metrics.OutcomeRejected)
		return model.CheckinEntry{}, fmt.Errorf("%w: %s is not today (%s)", ErrInvalidDate, entry.Date, s.Today())
	}

	if err := s.store.InsertCheckin(ctx, entry); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.metrics.Checkin(metrics.OutcomeRejected)
			s.logger.Warn().Str("student_id", entry.StudentID).Str("date", entry.Date).Msg("duplicate check-in")
			return model.CheckinEntry{}, ErrDuplicateCheckin
		}
		s.metrics.Checkin(metrics.OutcomeError)
		s.logger.Error().Err(err).Str("student_id", entry.StudentID).Msg("store check-in")
		return model.CheckinEntry{}, err
	}
	s.metrics.Checkin(metrics.OutcomeOK)
	s.logger.Info().Str("checkin_id", entry.ID).Str("student_id", entry.StudentID).Str("status", string(entry.Status)).Msg("check-in recorded")
	return entry, nil
}

// Update is the administrative edit; it may move an entry to any valid date that does not collide.
func (s *Service) Update(ctx context.Context, id string, e Edit) (model.CheckinEntry, error) {
	cur, err := s.store.GetCheckin(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.CheckinEntry{}, ErrNotFound
		}
		return model.CheckinEntry{}, err
	}

	next := cur
	if strings.TrimSpace(e.Date) != "" {
		d, err := canonicalDate(e.Date)
		if err != nil {
			return model.CheckinEntry{}, err
		}
		next.Date = d
	}
	if e.Status != "" {
		if !e.Status.Valid() {
			return model.CheckinEntry{}, fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
		}
		next.Status = e.Status
	}
	next.Note = strings.TrimSpace(e.Note)
	next.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateCheckin(ctx, next); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return model.CheckinEntry{}, ErrDuplicateCheckin
		case errors.Is(err, store.ErrNotFound):
			return model.CheckinEntry{}, ErrNotFound
		}
		s.logger.Error().Err(err).Str("checkin_id", id).Msg("update check-in")
		return model.CheckinEntry{}, err
	}
	s.logger.Info().Str("checkin_id", id).Str("date", next.Date).Msg("check-in edited")
	return next, nil
}

// Delete removes a check-in.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteCheckin(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info().Str("checkin_id", id).Msg("check-in deleted")
	return nil
}

// Import appends a batch of historical check-ins. A collision inside the batch or with a
// stored entry rejects the whole batch.
func (s *Service) Import(ctx context.Context, batch []Input) ([]model.CheckinEntry, error) {
	entries := make([]model.CheckinEntry, 0, len(batch))
	for i, in := range batch {
		entry, err := s.build(in)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	existing, err := s.store.LoadCheckins(ctx)
	if err != nil {
		return nil, err
	}
	all := append(existing, entries...)
	if err := store.CheckUniqueCheckins(all); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateCheckin, err)
	}
	if err := s.store.SaveCheckins(ctx, all); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateCheckin
		}
		s.logger.Error().Err(err).Int("batch", len(entries)).Msg("import check-ins")
		return nil, err
	}
	s.logger.Info().Int("imported", len(entries)).Msg("check-ins imported")
	return entries, nil
}

// List returns check-ins oldest first, restricted to one student when studentID is set.
func (s *Service) List(ctx context.Context, studentID string) ([]model.CheckinEntry, error) {
	all, err := s.store.LoadCheckins(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.CheckinEntry, 0, len(all))
	for _, c := range all {
		if studentID == "" || identity.Equal(c.StudentID, studentID) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// All returns the unfiltered collection for progress calculation.
func (s *Service) All(ctx context.Context) ([]model.CheckinEntry, error) {
	return s.store.LoadCheckins(ctx)
}

func (s *Service) build(in Input) (model.CheckinEntry, error) {
	studentID := strings.TrimSpace(in.StudentID)
	if studentID == "" {
		return model.CheckinEntry{}, ErrMissingStudent
	}
	date := s.Today()
	if strings.TrimSpace(in.Date) != "" {
		d, err := canonicalDate(in.Date)
		if err != nil {
			return model.CheckinEntry{}, err
		}
		date = d
	}
	status := in.Status
	if status == "" {
		status = model.CheckinPresent
	}
	if !status.Valid() {
		return model.CheckinEntry{}, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	now := s.now().UTC()
	return model.CheckinEntry{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		StudentName: strings.TrimSpace(in.StudentName),
		Date:        date,
		Status:      status,
		Note:        strings.TrimSpace(in.Note),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func canonicalDate(s string) (string, error) {
	d, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d.Format(model.DateLayout), nil
}
