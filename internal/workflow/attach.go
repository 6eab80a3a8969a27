package workflow

import (
	"errors"
	"fmt"

	"internship/internal/model"
)

// ErrAttachNotAllowed is returned when a sub-record is set by the wrong role or too early.
var ErrAttachNotAllowed = errors.New("attachment not allowed")

// Attachment names a sub-record that can be set on an active request.
type Attachment string

const (
	AttachSupervisionAppointment Attachment = "supervision_appointment"
	AttachSupervisionReport      Attachment = "supervision_report"
	AttachEvaluation             Attachment = "evaluation"
	AttachCertificate            Attachment = "certificate"
	AttachPaymentProof           Attachment = "payment_proof"
)

type attachRule struct {
	role     model.Role
	statuses []model.Status
}

var attachRules = map[Attachment]attachRule{
	AttachSupervisionAppointment: {model.RoleAdvisor, []model.Status{model.StatusApproved, model.StatusInProgress}},
	AttachSupervisionReport:      {model.RoleAdvisor, []model.Status{model.StatusInProgress, model.StatusCompleted}},
	AttachEvaluation:             {model.RoleCompany, []model.Status{model.StatusInProgress, model.StatusCompleted}},
	AttachCertificate:            {model.RoleAdmin, []model.Status{model.StatusCompleted}},
	AttachPaymentProof:           {model.RoleStudent, []model.Status{model.StatusApproved, model.StatusInProgress}},
}

// CanAttach checks that role may set the sub-record while the request is in status.
func CanAttach(status model.Status, role model.Role, what Attachment) error {
	rule, ok := attachRules[what]
	if !ok {
		return fmt.Errorf("%w: unknown sub-record %q", ErrAttachNotAllowed, what)
	}
	if rule.role != role {
		return fmt.Errorf("%w: %s cannot set %s", ErrAttachNotAllowed, role, what)
	}
	for _, s := range rule.statuses {
		if s == status {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires status in %v, request is %s", ErrAttachNotAllowed, what, rule.statuses, status)
}
