package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"internship/internal/model"
)

var (
	// ErrInvalidTransition is returned when the action is not legal for the actor in the current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrMissingReason is returned when a reject carries no justification.
	ErrMissingReason = errors.New("reject reason required")
)

type edge struct {
	from   model.Status
	role   model.Role
	action model.Action
}

// transitions is the complete approval pipeline. Anything not listed is illegal.
var transitions = map[edge]model.Status{
	{model.StatusPendingAdvisor, model.RoleAdvisor, model.ActionApprove}:         model.StatusPendingAdminReview,
	{model.StatusPendingAdvisor, model.RoleAdvisor, model.ActionReject}:          model.StatusRejectedByAdvisor,
	{model.StatusPendingAdminReview, model.RoleAdmin, model.ActionApprove}:       model.StatusPendingCompanyResponse,
	{model.StatusPendingAdminReview, model.RoleAdmin, model.ActionReject}:        model.StatusRejectedByAdmin,
	{model.StatusPendingCompanyResponse, model.RoleCompany, model.ActionApprove}: model.StatusApproved,
	{model.StatusPendingCompanyResponse, model.RoleCompany, model.ActionReject}:  model.StatusRejectedByCompany,
	{model.StatusApproved, model.RoleAdmin, model.ActionAdvance}:                 model.StatusInProgress,
	{model.StatusInProgress, model.RoleAdmin, model.ActionAdvance}:               model.StatusCompleted,
}

// Next computes the status reached from current when role performs action.
// Reason validation is not part of Next; see Transition.
func Next(current model.Status, role model.Role, action model.Action) (model.Status, error) {
	next, ok := transitions[edge{current, role, action}]
	if !ok {
		return "", fmt.Errorf("%w: %s cannot %s a request in %s", ErrInvalidTransition, role, action, current)
	}
	return next, nil
}

// Transition applies action to a copy of req and returns the updated copy. The input is never
// modified, so a failed call leaves the caller's record as it was. now stamps UpdatedAt.
func Transition(req model.Request, role model.Role, action model.Action, reason string, now time.Time) (model.Request, error) {
	next, err := Next(req.Status, role, action)
	if err != nil {
		return req, err
	}
	reason = strings.TrimSpace(reason)
	if action == model.ActionReject && reason == "" {
		return req, ErrMissingReason
	}

	out := req
	out.Status = next
	if next.Rejected() {
		out.RejectReason = reason
	} else {
		out.RejectReason = ""
	}
	out.UpdatedAt = now.UTC()
	return out, nil
}

// Actions lists what role may do to a request currently in status, in a stable order.
// Callers use it to decide which buttons to offer; legality is still checked by Transition.
func Actions(status model.Status, role model.Role) []model.Action {
	var out []model.Action
	for _, a := range []model.Action{model.ActionApprove, model.ActionReject, model.ActionAdvance} {
		if _, ok := transitions[edge{status, role, a}]; ok {
			out = append(out, a)
		}
	}
	return out
}
