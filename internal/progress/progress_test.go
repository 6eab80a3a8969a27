package progress

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"internship/internal/model"
)

func inProgress() model.Request {
	return model.Request{
		ID:          "r1",
		StudentID:   "S1",
		StudentName: "Alice Smith",
		Status:      model.StatusInProgress,
		StartDate:   "2024-06-01",
		EndDate:     "2024-06-10",
	}
}

func checkinsFor(id, name string, from, n int) []model.CheckinEntry {
	var out []model.CheckinEntry
	for i := 0; i < n; i++ {
		out = append(out, model.CheckinEntry{
			ID:          fmt.Sprintf("c%d", from+i),
			StudentID:   id,
			StudentName: name,
			Date:        fmt.Sprintf("2024-06-%02d", from+i),
			Status:      model.CheckinPresent,
		})
	}
	return out
}

func TestHalfwayThroughTenDays(t *testing.T) {
	got := Calculate(inProgress(), checkinsFor("S1", "", 1, 5), nil, nil)
	if got != 50 {
		t.Fatalf("expected 50 got %d", got)
	}
}

func TestNotStartedIsZero(t *testing.T) {
	for _, st := range []model.Status{model.StatusPendingAdvisor, model.StatusApproved, model.StatusRejectedByAdmin} {
		r := inProgress()
		r.Status = st
		if got := Calculate(r, checkinsFor("S1", "", 1, 10), nil, nil); got != 0 {
			t.Fatalf("%s: expected 0 got %d", st, got)
		}
	}
}

func TestRangeResolution(t *testing.T) {
	r := inProgress()
	r.StartDate, r.EndDate = "", ""
	r.Details.StartDate = "2024-06-01T00:00:00Z"
	r.Details.EndDate = "2024-06-01"
	if got := Calculate(r, checkinsFor("S1", "", 1, 1), nil, nil); got != 100 {
		t.Fatalf("single-day range: expected 100 got %d", got)
	}

	r.Details.EndDate = "2024-05-31"
	if got := Calculate(r, checkinsFor("S1", "", 1, 1), nil, nil); got != 0 {
		t.Fatalf("inverted range: expected 0 got %d", got)
	}

	r.Details.EndDate = ""
	if got := Calculate(r, checkinsFor("S1", "", 1, 1), nil, nil); got != 0 {
		t.Fatalf("missing end: expected 0 got %d", got)
	}
}

func TestOverlongRangeIsInvalid(t *testing.T) {
	r := inProgress()
	r.EndDate = "2044-06-10"
	if got := Calculate(r, checkinsFor("S1", "", 1, 10), nil, nil); got != 0 {
		t.Fatalf("overlong range: expected 0 got %d", got)
	}
	if _, _, ok := Range(r); ok {
		t.Fatal("Range accepted an overlong range")
	}

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := len(Days(start, start.AddDate(0, 0, MaxRangeDays-1))); got != MaxRangeDays {
		t.Fatalf("longest range: got %d days", got)
	}
	if got := Days(start, start.AddDate(0, 0, MaxRangeDays)); got != nil {
		t.Fatalf("range past the cap must not be truncated, got %d days", len(got))
	}
}

func TestMatchingByNameAndExternalCandidates(t *testing.T) {
	r := inProgress()
	byName := checkinsFor("other-id", "  alice SMITH ", 1, 3)
	if got := Calculate(r, byName, nil, nil); got != 30 {
		t.Fatalf("expected 30 got %d", got)
	}

	r.StudentID, r.StudentName = "", ""
	if got := Calculate(r, byName, nil, nil); got != 0 {
		t.Fatalf("no candidates must match nothing, got %d", got)
	}
	if got := Calculate(r, checkinsFor("6401", "", 1, 2), []string{"6401"}, nil); got != 20 {
		t.Fatalf("external id candidate: expected 20 got %d", got)
	}
}

func TestDuplicateDaysAndOutOfRangeIgnored(t *testing.T) {
	cs := checkinsFor("S1", "", 1, 2)
	cs = append(cs, checkinsFor("S1", "", 1, 2)...)
	cs = append(cs, model.CheckinEntry{StudentID: "S1", Date: "2024-07-01"})
	cs = append(cs, model.CheckinEntry{StudentID: "S2", Date: "2024-06-05"})
	cs = append(cs, model.CheckinEntry{StudentID: "S1", Date: "not a date"})
	if got := Calculate(inProgress(), cs, nil, nil); got != 20 {
		t.Fatalf("expected 20 got %d", got)
	}
}

func TestIdempotentOrderIndependentMonotonic(t *testing.T) {
	r := inProgress()
	r.Status = model.StatusCompleted
	cs := checkinsFor("S1", "", 1, 7)

	first := Calculate(r, cs, nil, nil)
	if again := Calculate(r, cs, nil, nil); again != first {
		t.Fatalf("not idempotent: %d vs %d", first, again)
	}

	shuffled := append([]model.CheckinEntry(nil), cs...)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if got := Calculate(r, shuffled, nil, nil); got != first {
		t.Fatalf("order dependent: %d vs %d", got, first)
	}

	prev := 0
	var grow []model.CheckinEntry
	for _, c := range checkinsFor("S1", "", 1, 10) {
		grow = append(grow, c)
		got := Calculate(r, grow, nil, nil)
		if got < prev {
			t.Fatalf("progress decreased from %d to %d", prev, got)
		}
		prev = got
	}
	if prev != 100 {
		t.Fatalf("expected full attendance to reach 100 got %d", prev)
	}
}
