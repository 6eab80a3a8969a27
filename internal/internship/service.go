// Package internship is the request service: submission, status workflow,
// sub-records, progress and history, all scoped by the viewer's visibility.
package internship

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"internship/internal/attachments"
	"internship/internal/history"
	"internship/internal/identity"
	"internship/internal/metrics"
	"internship/internal/model"
	"internship/internal/progress"
	"internship/internal/queue"
	"internship/internal/store"
	"internship/internal/visibility"
	"internship/internal/workflow"
)

var (
	// ErrNotFound is returned when no request has the given id.
	ErrNotFound = errors.New("request not found")
	// ErrNotVisible is returned when the request exists but is outside the viewer's scope.
	ErrNotVisible = errors.New("request not visible")
	// ErrActiveRequestExists is returned when the student already has a request that was not rejected.
	ErrActiveRequestExists = errors.New("student already has an active request")
	// ErrStaleRecord is returned when the request changed between read and write.
	ErrStaleRecord = errors.New("request was modified concurrently")
	// ErrForbidden is returned when the role may not perform the operation at all.
	ErrForbidden = errors.New("operation not permitted for role")
	// ErrInvalidSubmission is returned for incomplete or inconsistent submissions.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrInvalidScore is returned for evaluation scores outside 0..100.
	ErrInvalidScore = errors.New("evaluation score must be between 0 and 100")
)

// Deps are the collaborators of a Service. Queue and Uploader are optional.
type Deps struct {
	Requests store.RequestStore
	Checkins store.CheckinStore
	History  store.HistoryStore
	Queue    queue.Queue
	Uploader attachments.Uploader
	Filter   *visibility.Filter
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// Service implements the request operations.
type Service struct {
	requests store.RequestStore
	checkins store.CheckinStore
	history  store.HistoryStore
	queue    queue.Queue
	uploader attachments.Uploader
	filter   *visibility.Filter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a request service.
func NewService(d Deps) *Service {
	filter := d.Filter
	if filter == nil {
		filter = visibility.New(visibility.DefaultPolicy())
	}
	return &Service{
		requests: d.Requests,
		checkins: d.Checkins,
		history:  d.History,
		queue:    d.Queue,
		uploader: d.Uploader,
		filter:   filter,
		metrics:  d.Metrics,
		logger:   d.Logger.With().Str("component", "internship").Logger(),
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// View is a request together with its derived attendance progress.
type View struct {
	model.Request
	Progress int `json:"progress"`
}

// Submission is the student's application form.
type Submission struct {
	Company   string        `json:"company"`
	Position  string        `json:"position"`
	StartDate string        `json:"startDate"`
	EndDate   string        `json:"endDate"`
	Details   model.Details `json:"details"`
}

// Submit files a new request for a student in PendingAdvisor.
func (s *Service) Submit(ctx context.Context, u model.User, sub Submission) (model.Request, error) {
	if u.Role != model.RoleStudent {
		return model.Request{}, fmt.Errorf("%w: only students submit requests", ErrForbidden)
	}
	owner := identity.UserStudentCandidates(u)
	if len(owner) == 0 {
		return model.Request{}, fmt.Errorf("%w: account has no student identity", ErrInvalidSubmission)
	}
	company := strings.TrimSpace(sub.Company)
	if company == "" {
		company = strings.TrimSpace(sub.Details.CompanyInfo.Name)
	}
	if company == "" {
		return model.Request{}, fmt.Errorf("%w: company is required", ErrInvalidSubmission)
	}
	if err := checkRange(sub.StartDate, sub.EndDate); err != nil {
		return model.Request{}, err
	}

	now := s.now().UTC()
	details := sub.Details
	fillStudentInfo(&details.StudentInfo, u)
	if details.CompanyInfo.Name == "" {
		details.CompanyInfo.Name = company
	}
	studentID := strings.TrimSpace(u.StudentID)
	if studentID == "" {
		studentID = strings.TrimSpace(u.StudentCode)
	}
	r := model.Request{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		StudentCode:   strings.TrimSpace(u.StudentCode),
		Username:      u.Username,
		Email:         u.Email,
		StudentName:   details.StudentInfo.Name,
		Department:    firstNonEmpty(u.Department, u.Major),
		Company:       company,
		Position:      strings.TrimSpace(sub.Position),
		SubmittedDate: now,
		Status:        model.StatusPendingAdvisor,
		StartDate:     strings.TrimSpace(sub.StartDate),
		EndDate:       strings.TrimSpace(sub.EndDate),
		Details:       details,
		UpdatedAt:     now,
	}
	noActive := func(all []model.Request) error {
		for _, existing := range all {
			if !existing.Status.Rejected() && identity.MatchAny(owner, identity.RequestStudentCandidates(existing)) {
				return fmt.Errorf("%w: %s is %s", ErrActiveRequestExists, existing.ID, existing.Status)
			}
		}
		return nil
	}
	if err := s.requests.InsertRequestIf(ctx, r, noActive); err != nil {
		if errors.Is(err, ErrActiveRequestExists) {
			s.logger.Warn().Err(err).Str("student", u.Subject()).Msg("submission rejected")
		} else {
			s.logger.Error().Err(err).Str("student", u.Subject()).Msg("insert request")
		}
		return model.Request{}, err
	}
	s.logger.Info().Str("request_id", r.ID).Str("student", u.Subject()).Str("company", company).Msg("request submitted")
	return r, nil
}

// Get returns a request the viewer is allowed to see.
func (s *Service) Get(ctx context.Context, u model.User, id string) (model.Request, error) {
	all, err := s.requests.LoadRequests(ctx)
	if err != nil {
		return model.Request{}, err
	}
	return s.visible(all, u, id)
}

// List returns the viewer's visible requests with their progress.
func (s *Service) List(ctx context.Context, u model.User) ([]View, error) {
	all, err := s.requests.LoadRequests(ctx)
	if err != nil {
		return nil, err
	}
	visible := s.filter.Visible(all, u)
	s.metrics.Visible(len(visible))

	checkins, err := s.checkins.LoadCheckins(ctx)
	if err != nil {
		return nil, err
	}
	ids, names := viewerCandidates(u)
	out := make([]View, 0, len(visible))
	for _, r := range visible {
		out = append(out, View{Request: r, Progress: progress.Calculate(r, checkins, ids, names)})
	}
	return out, nil
}

// Progress returns the attendance progress of a visible request.
func (s *Service) Progress(ctx context.Context, u model.User, id string) (int, error) {
	r, err := s.Get(ctx, u, id)
	if err != nil {
		return 0, err
	}
	checkins, err := s.checkins.LoadCheckins(ctx)
	if err != nil {
		return 0, err
	}
	ids, names := viewerCandidates(u)
	return progress.Calculate(r, checkins, ids, names), nil
}

// Transition applies action to the request on behalf of u. The write only succeeds if
// nobody else changed the request since it was read.
func (s *Service) Transition(ctx context.Context, u model.User, id string, action model.Action, reason string) (model.Request, error) {
	cur, err := s.Get(ctx, u, id)
	if err != nil {
		return model.Request{}, err
	}

	next, err := workflow.Transition(cur, u.Role, action, reason, s.now())
	if err != nil {
		s.metrics.Transition(string(cur.Status), "", metrics.OutcomeRejected)
		s.logger.Warn().Err(err).Str("request_id", id).Str("status", string(cur.Status)).
			Str("role", string(u.Role)).Str("action", string(action)).Msg("transition rejected")
		return model.Request{}, err
	}
	next.Version = cur.Version + 1

	if err := s.write(ctx, next, cur.Version); err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, ErrStaleRecord) {
			outcome = metrics.OutcomeStale
		}
		s.metrics.Transition(string(cur.Status), string(next.Status), outcome)
		return model.Request{}, err
	}
	s.metrics.Transition(string(cur.Status), string(next.Status), metrics.OutcomeOK)
	s.logger.Info().Str("request_id", id).Str("from", string(cur.Status)).Str("to", string(next.Status)).
		Str("actor", u.Subject()).Msg("request transitioned")

	s.publish(ctx, model.HistoryEntry{
		ID:        uuid.NewString(),
		RequestID: id,
		From:      cur.Status,
		To:        next.Status,
		Action:    action,
		ActorRole: u.Role,
		ActorID:   u.Subject(),
		Reason:    next.RejectReason,
		At:        next.UpdatedAt,
	})
	return next, nil
}

// History returns the recorded transitions of a visible request, oldest first.
func (s *Service) History(ctx context.Context, u model.User, id string) ([]model.HistoryEntry, error) {
	if _, err := s.Get(ctx, u, id); err != nil {
		return nil, err
	}
	return s.history.ListHistory(ctx, id)
}

// SetSupervisionAppointment records the advisor's site-visit booking.
func (s *Service) SetSupervisionAppointment(ctx context.Context, u model.User, id string, a model.SupervisionAppointment) (model.Request, error) {
	return s.attach(ctx, u, id, workflow.AttachSupervisionAppointment, func(r *model.Request, now time.Time) error {
		a.SetBy, a.SetAt = u.Subject(), now
		r.SupervisionAppointment = &a
		return nil
	})
}

// SetSupervisionReport records the advisor's report.
func (s *Service) SetSupervisionReport(ctx context.Context, u model.User, id string, rep model.SupervisionReport) (model.Request, error) {
	return s.attach(ctx, u, id, workflow.AttachSupervisionReport, func(r *model.Request, now time.Time) error {
		rep.SetBy, rep.SetAt = u.Subject(), now
		r.SupervisionReport = &rep
		return nil
	})
}

// SetEvaluation records the company's evaluation form and overall score.
func (s *Service) SetEvaluation(ctx context.Context, u model.User, id string, form model.EvaluationForm, score float64) (model.Request, error) {
	if score < 0 || score > 100 {
		return model.Request{}, ErrInvalidScore
	}
	return s.attach(ctx, u, id, workflow.AttachEvaluation, func(r *model.Request, now time.Time) error {
		form.SetBy, form.SetAt = u.Subject(), now
		r.EvaluationForm = &form
		r.EvaluationScore = &score
		return nil
	})
}

// IssueCertificate marks a completed internship as certified.
func (s *Service) IssueCertificate(ctx context.Context, u model.User, id string) (model.Request, error) {
	return s.attach(ctx, u, id, workflow.AttachCertificate, func(r *model.Request, _ time.Time) error {
		r.CertificateIssued = true
		return nil
	})
}

// AttachPaymentProof uploads the student's payment proof and records it on the request.
func (s *Service) AttachPaymentProof(ctx context.Context, u model.User, id string, f attachments.File) (model.Request, error) {
	if s.uploader == nil {
		return model.Request{}, attachments.ErrNotConfigured
	}
	cur, err := s.Get(ctx, u, id)
	if err != nil {
		return model.Request{}, err
	}
	if err := workflow.CanAttach(cur.Status, u.Role, workflow.AttachPaymentProof); err != nil {
		return model.Request{}, err
	}
	res, err := s.uploader.Upload(ctx, id, f)
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", id).Msg("payment proof upload failed")
		return model.Request{}, err
	}
	r, err := s.attach(ctx, u, id, workflow.AttachPaymentProof, func(r *model.Request, now time.Time) error {
		r.PaymentProof = &model.Attachment{URL: res.URL, PublicID: res.PublicID, UploadedBy: u.Subject(), UploadedAt: now}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", id).Str("public_id", res.PublicID).Msg("uploaded payment proof not recorded")
	}
	return r, err
}

func (s *Service) attach(ctx context.Context, u model.User, id string, what workflow.Attachment, apply func(*model.Request, time.Time) error) (model.Request, error) {
	cur, err := s.Get(ctx, u, id)
	if err != nil {
		return model.Request{}, err
	}
	if err := workflow.CanAttach(cur.Status, u.Role, what); err != nil {
		s.logger.Warn().Err(err).Str("request_id", id).Str("role", string(u.Role)).Msg("attach rejected")
		return model.Request{}, err
	}
	now := s.now().UTC()
	next := cur
	if err := apply(&next, now); err != nil {
		return model.Request{}, err
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = now
	if err := s.write(ctx, next, cur.Version); err != nil {
		return model.Request{}, err
	}
	s.logger.Info().Str("request_id", id).Str("sub_record", string(what)).Str("actor", u.Subject()).Msg("sub-record set")
	return next, nil
}

func (s *Service) write(ctx context.Context, next model.Request, expected int64) error {
	err := s.requests.UpdateRequest(ctx, next, expected)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		s.logger.Warn().Str("request_id", next.ID).Int64("expected_version", expected).Msg("stale write")
		return ErrStaleRecord
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	}
	s.logger.Error().Err(err).Str("request_id", next.ID).Msg("update request")
	return err
}

func (s *Service) publish(ctx context.Context, e model.HistoryEntry) {
	if s.queue == nil {
		return
	}
	if err := history.Publish(ctx, s.queue, e); err != nil {
		s.logger.Error().Err(err).Str("request_id", e.RequestID).Msg("publish transition event")
	}
}

func (s *Service) visible(all []model.Request, u model.User, id string) (model.Request, error) {
	for _, r := range all {
		if r.ID != id {
			continue
		}
		if !s.filter.CanSee(all, id, u) {
			return model.Request{}, ErrNotVisible
		}
		return r, nil
	}
	return model.Request{}, ErrNotFound
}

// viewerCandidates adds a student viewer's own identity to attendance matching.
func viewerCandidates(u model.User) (ids, names []string) {
	if u.Role != model.RoleStudent {
		return nil, nil
	}
	return identity.UserIDs(u), identity.UserNames(u)
}

func fillStudentInfo(info *model.StudentInfo, u model.User) {
	if info.Name == "" {
		info.Name = firstNonEmpty(u.FullName, u.Name, u.Username)
	}
	if info.StudentCode == "" {
		info.StudentCode = firstNonEmpty(u.StudentCode, u.StudentID)
	}
	if info.Email == "" {
		info.Email = u.Email
	}
	if info.Major == "" {
		info.Major = u.Major
	}
}

func checkRange(start, end string) error {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil
	}
	s, okS := progress.ParseDate(start)
	e, okE := progress.ParseDate(end)
	if !okS || !okE {
		return fmt.Errorf("%w: startDate and endDate must both be YYYY-MM-DD", ErrInvalidSubmission)
	}
	if e.Before(s) {
		return fmt.Errorf("%w: endDate precedes startDate", ErrInvalidSubmission)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
