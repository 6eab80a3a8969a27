package sqlstore_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"internship/internal/model"
	"internship/internal/store"
	"internship/internal/store/sqlstore"
)

func setupStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.OpenSQLite(ctx, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := store.MigrateSQLite(db); err != nil {
		db.Close()
		t.Fatalf("failed to migrate: %v", err)
	}
	s := sqlstore.New(db, sqlstore.SQLite, zerolog.Nop())
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRequest(id string) model.Request {
	return model.Request{
		ID:            id,
		StudentID:     "6401",
		StudentName:   "Alice",
		Department:    "Computer Science",
		Company:       "ABC",
		Position:      "Backend intern",
		SubmittedDate: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Status:        model.StatusPendingAdvisor,
		Details:       model.Details{CompanyInfo: model.CompanyInfo{Name: "บริษัท ABC จำกัด"}},
	}
}

func TestRequestRoundTripAndVersioning(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.GetRequest(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	r := sampleRequest("r1")
	if err := s.InsertRequest(ctx, r); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	if err := s.InsertRequest(ctx, r); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}

	got, err := s.GetRequest(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Details.CompanyInfo.Name != "บริษัท ABC จำกัด" || got.Version != 0 {
		t.Fatalf("unexpected request %#v", got)
	}

	got.Status = model.StatusPendingAdminReview
	got.Version = 1
	if err := s.UpdateRequest(ctx, got, 0); err != nil {
		t.Fatalf("UpdateRequest: %v", err)
	}

	stale := got
	stale.Status = model.StatusRejectedByAdmin
	stale.Version = 1
	if err := s.UpdateRequest(ctx, stale, 0); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict got %v", err)
	}
	missing := sampleRequest("nope")
	if err := s.UpdateRequest(ctx, missing, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	after, _ := s.GetRequest(ctx, "r1")
	if after.Status != model.StatusPendingAdminReview || after.Version != 1 {
		t.Fatalf("stale write leaked: %#v", after)
	}
}

func TestInsertRequestIfVetoLeavesTableUntouched(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	errActive := errors.New("active request")
	oneActive := func(all []model.Request) error {
		if len(all) > 0 {
			return errActive
		}
		return nil
	}

	if err := s.InsertRequestIf(ctx, sampleRequest("r1"), oneActive); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.InsertRequestIf(ctx, sampleRequest("r2"), oneActive); !errors.Is(err, errActive) {
		t.Fatalf("expected the check's own error, got %v", err)
	}
	if err := s.InsertRequestIf(ctx, sampleRequest("r1"), nil); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}
	all, err := s.LoadRequests(ctx)
	if err != nil || len(all) != 1 || all[0].ID != "r1" {
		t.Fatalf("LoadRequests = %v, %v", all, err)
	}
}

func TestSaveRequestsRewritesCollection(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.SaveRequests(ctx, []model.Request{sampleRequest("a"), sampleRequest("b")}); err != nil {
		t.Fatalf("SaveRequests: %v", err)
	}
	if err := s.SaveRequests(ctx, []model.Request{sampleRequest("c"), sampleRequest("c")}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}
	all, err := s.LoadRequests(ctx)
	if err != nil {
		t.Fatalf("LoadRequests: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("failed save must leave collection intact, got %#v", all)
	}
}

func checkin(id, student, date string) model.CheckinEntry {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return model.CheckinEntry{ID: id, StudentID: student, StudentName: "Alice", Date: date, Status: model.CheckinPresent, CreatedAt: now, UpdatedAt: now}
}

func TestCheckinUniqueness(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.InsertCheckin(ctx, checkin("c1", "S1", "2024-06-01")); err != nil {
		t.Fatalf("InsertCheckin: %v", err)
	}
	second := checkin("c2", "S1", "2024-06-01")
	second.Status = model.CheckinLate
	if err := s.InsertCheckin(ctx, second); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}
	if err := s.InsertCheckin(ctx, checkin("c3", "S1", "2024-06-02")); err != nil {
		t.Fatalf("InsertCheckin: %v", err)
	}

	moved := checkin("c3", "S1", "2024-06-01")
	if err := s.UpdateCheckin(ctx, moved); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on colliding edit got %v", err)
	}
	moved.Date = "2024-06-03"
	moved.Note = "fixed"
	if err := s.UpdateCheckin(ctx, moved); err != nil {
		t.Fatalf("UpdateCheckin: %v", err)
	}
	got, err := s.GetCheckin(ctx, "c3")
	if err != nil {
		t.Fatalf("GetCheckin: %v", err)
	}
	if got.Date != "2024-06-03" || got.Note != "fixed" || !got.CreatedAt.Equal(moved.CreatedAt) {
		t.Fatalf("unexpected checkin %#v", got)
	}

	if err := s.UpdateCheckin(ctx, checkin("zz", "S1", "2024-07-01")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if err := s.DeleteCheckin(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCheckin: %v", err)
	}
	if err := s.DeleteCheckin(ctx, "c1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	all, err := s.LoadCheckins(ctx)
	if err != nil {
		t.Fatalf("LoadCheckins: %v", err)
	}
	if len(all) != 1 || all[0].ID != "c3" {
		t.Fatalf("unexpected checkins %#v", all)
	}
}

func TestSaveCheckinsRejectsCollisions(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.SaveCheckins(ctx, []model.CheckinEntry{checkin("a", "S1", "2024-06-01")}); err != nil {
		t.Fatalf("SaveCheckins: %v", err)
	}
	batch := []model.CheckinEntry{checkin("b", "S2", "2024-06-01"), checkin("c", "S2", "2024-06-01")}
	if err := s.SaveCheckins(ctx, batch); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}
	all, _ := s.LoadCheckins(ctx)
	if len(all) != 1 || all[0].ID != "a" {
		t.Fatalf("collection changed after failed save: %#v", all)
	}
}

func TestHistoryOrdering(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	entries := []model.HistoryEntry{
		{ID: "h2", RequestID: "r1", From: model.StatusPendingAdminReview, To: model.StatusPendingCompanyResponse, Action: model.ActionApprove, ActorRole: model.RoleAdmin, At: base.Add(time.Hour)},
		{ID: "h1", RequestID: "r1", From: model.StatusPendingAdvisor, To: model.StatusPendingAdminReview, Action: model.ActionApprove, ActorRole: model.RoleAdvisor, At: base},
		{ID: "h3", RequestID: "r2", From: model.StatusPendingAdvisor, To: model.StatusRejectedByAdvisor, Action: model.ActionReject, ActorRole: model.RoleAdvisor, Reason: "late", At: base},
	}
	for _, h := range entries {
		if err := s.AppendHistory(ctx, h); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}
	// redelivery is ignored
	if err := s.AppendHistory(ctx, entries[0]); err != nil {
		t.Fatalf("AppendHistory redelivery: %v", err)
	}

	got, err := s.ListHistory(ctx, "r1")
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(got) != 2 || got[0].ID != "h1" || got[1].ID != "h2" || !got[1].At.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected history %#v", got)
	}
}
