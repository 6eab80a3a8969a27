package workflow

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"internship/internal/model"
)

var roles = []model.Role{model.RoleStudent, model.RoleAdvisor, model.RoleAdmin, model.RoleCompany}
var actions = []model.Action{model.ActionApprove, model.ActionReject, model.ActionAdvance}

func TestTransitionTable(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		from   model.Status
		role   model.Role
		action model.Action
		want   model.Status
	}{
		{model.StatusPendingAdvisor, model.RoleAdvisor, model.ActionApprove, model.StatusPendingAdminReview},
		{model.StatusPendingAdvisor, model.RoleAdvisor, model.ActionReject, model.StatusRejectedByAdvisor},
		{model.StatusPendingAdminReview, model.RoleAdmin, model.ActionApprove, model.StatusPendingCompanyResponse},
		{model.StatusPendingAdminReview, model.RoleAdmin, model.ActionReject, model.StatusRejectedByAdmin},
		{model.StatusPendingCompanyResponse, model.RoleCompany, model.ActionApprove, model.StatusApproved},
		{model.StatusPendingCompanyResponse, model.RoleCompany, model.ActionReject, model.StatusRejectedByCompany},
		{model.StatusApproved, model.RoleAdmin, model.ActionAdvance, model.StatusInProgress},
		{model.StatusInProgress, model.RoleAdmin, model.ActionAdvance, model.StatusCompleted},
	}
	for _, tc := range cases {
		req := model.Request{ID: "r1", Status: tc.from}
		got, err := Transition(req, tc.role, tc.action, "because", now)
		if err != nil {
			t.Fatalf("%s/%s/%s: unexpected error %v", tc.from, tc.role, tc.action, err)
		}
		if got.Status != tc.want {
			t.Fatalf("%s/%s/%s: got %s want %s", tc.from, tc.role, tc.action, got.Status, tc.want)
		}
		if !got.UpdatedAt.Equal(now) {
			t.Fatalf("expected UpdatedAt stamped")
		}
		if tc.want.Rejected() && got.RejectReason != "because" {
			t.Fatalf("expected reject reason kept, got %q", got.RejectReason)
		}
		if !tc.want.Rejected() && got.RejectReason != "" {
			t.Fatalf("expected no reject reason on %s, got %q", tc.want, got.RejectReason)
		}
	}
}

func TestIllegalTriplesLeaveRecordUnchanged(t *testing.T) {
	legal := 0
	for _, st := range model.AllStatuses {
		for _, role := range roles {
			for _, action := range actions {
				if _, ok := transitions[edge{st, role, action}]; ok {
					legal++
					continue
				}
				req := model.Request{ID: "r1", Status: st, RejectReason: "old", Version: 3}
				got, err := Transition(req, role, action, "reason", time.Now())
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s/%s/%s: expected ErrInvalidTransition got %v", st, role, action, err)
				}
				if !reflect.DeepEqual(got, req) {
					t.Fatalf("%s/%s/%s: record changed: %#v", st, role, action, got)
				}
			}
		}
	}
	if legal != 8 {
		t.Fatalf("expected 8 legal edges, found %d", legal)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	rejecting := map[model.Status]model.Role{
		model.StatusPendingAdvisor:         model.RoleAdvisor,
		model.StatusPendingAdminReview:     model.RoleAdmin,
		model.StatusPendingCompanyResponse: model.RoleCompany,
	}
	for st, role := range rejecting {
		for _, reason := range []string{"", "   "} {
			req := model.Request{ID: "r1", Status: st}
			got, err := Transition(req, role, model.ActionReject, reason, time.Now())
			if !errors.Is(err, ErrMissingReason) {
				t.Fatalf("%s: expected ErrMissingReason got %v", st, err)
			}
			if got.Status != st {
				t.Fatalf("%s: status mutated to %s", st, got.Status)
			}
		}
	}
}

func TestAdminRejectKeepsReason(t *testing.T) {
	req := model.Request{ID: "r1", Status: model.StatusPendingAdminReview}
	got, err := Transition(req, model.RoleAdmin, model.ActionReject, "missing documents", time.Now())
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != model.StatusRejectedByAdmin || got.RejectReason != "missing documents" {
		t.Fatalf("unexpected result %#v", got)
	}
	if req.Status != model.StatusPendingAdminReview {
		t.Fatalf("input was mutated")
	}
}

func TestTerminalStatesHaveNoActions(t *testing.T) {
	for _, st := range model.AllStatuses {
		if !st.Terminal() {
			continue
		}
		for _, role := range roles {
			if acts := Actions(st, role); len(acts) != 0 {
				t.Fatalf("%s/%s: expected no actions got %v", st, role, acts)
			}
		}
	}
	if got := Actions(model.StatusPendingAdvisor, model.RoleAdvisor); !reflect.DeepEqual(got, []model.Action{model.ActionApprove, model.ActionReject}) {
		t.Fatalf("unexpected advisor actions %v", got)
	}
}

func TestCanAttach(t *testing.T) {
	cases := []struct {
		status model.Status
		role   model.Role
		what   Attachment
		ok     bool
	}{
		{model.StatusApproved, model.RoleAdvisor, AttachSupervisionAppointment, true},
		{model.StatusPendingAdvisor, model.RoleAdvisor, AttachSupervisionAppointment, false},
		{model.StatusApproved, model.RoleAdmin, AttachSupervisionAppointment, false},
		{model.StatusInProgress, model.RoleAdvisor, AttachSupervisionReport, true},
		{model.StatusCompleted, model.RoleCompany, AttachEvaluation, true},
		{model.StatusApproved, model.RoleCompany, AttachEvaluation, false},
		{model.StatusCompleted, model.RoleAdmin, AttachCertificate, true},
		{model.StatusInProgress, model.RoleAdmin, AttachCertificate, false},
		{model.StatusApproved, model.RoleStudent, AttachPaymentProof, true},
		{model.StatusRejectedByCompany, model.RoleStudent, AttachPaymentProof, false},
		{model.StatusCompleted, model.RoleAdmin, Attachment("bogus"), false},
	}
	for _, tc := range cases {
		err := CanAttach(tc.status, tc.role, tc.what)
		if tc.ok && err != nil {
			t.Fatalf("%s/%s/%s: unexpected error %v", tc.status, tc.role, tc.what, err)
		}
		if !tc.ok && !errors.Is(err, ErrAttachNotAllowed) {
			t.Fatalf("%s/%s/%s: expected ErrAttachNotAllowed got %v", tc.status, tc.role, tc.what, err)
		}
	}
}
