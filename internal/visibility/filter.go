// Package visibility decides which internship requests a user may see and act on.
package visibility

import (
	"strings"

	"internship/internal/identity"
	"internship/internal/model"
)

// placeholderToken marks a generic, unconfigured company account.
const placeholderToken = "company"

// CompanyPipeline is the set of statuses a company can have been involved in.
var CompanyPipeline = map[model.Status]bool{
	model.StatusPendingCompanyResponse: true,
	model.StatusApproved:               true,
	model.StatusRejectedByCompany:      true,
	model.StatusInProgress:             true,
	model.StatusCompleted:              true,
}

// Policy holds the two permissive defaults of the filter so that deployments can turn them off.
type Policy struct {
	// OpenScopeWithoutDepartment lets an advisor or admin with no department see every request.
	OpenScopeWithoutDepartment bool
	// PlaceholderCompanyFallback shows the whole company pipeline to a placeholder company
	// account that matched nothing.
	PlaceholderCompanyFallback bool
}

// DefaultPolicy keeps both permissive defaults on.
func DefaultPolicy() Policy {
	return Policy{OpenScopeWithoutDepartment: true, PlaceholderCompanyFallback: true}
}

// Filter applies a Policy.
type Filter struct {
	policy Policy
}

// New creates a filter.
func New(p Policy) *Filter {
	return &Filter{policy: p}
}

// Visible returns the requests u may see, preserving input order. It never mutates all.
func (f *Filter) Visible(all []model.Request, u model.User) []model.Request {
	switch u.Role {
	case model.RoleStudent:
		return f.student(all, u)
	case model.RoleAdvisor, model.RoleAdmin:
		return f.department(all, u)
	case model.RoleCompany:
		return f.company(all, u)
	default:
		return []model.Request{}
	}
}

// CanSee reports whether the request with id is in u's visible subset of all.
// The company fallback depends on the whole collection, so a lone request is not enough.
func (f *Filter) CanSee(all []model.Request, id string, u model.User) bool {
	for _, r := range f.Visible(all, u) {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (f *Filter) student(all []model.Request, u model.User) []model.Request {
	out := []model.Request{}
	mine := identity.UserStudentCandidates(u)
	if len(mine) == 0 {
		return out
	}
	for _, r := range all {
		if identity.MatchAny(mine, identity.RequestStudentCandidates(r)) {
			out = append(out, r)
		}
	}
	return out
}

func (f *Filter) department(all []model.Request, u model.User) []model.Request {
	dept := identity.UserDepartment(u)
	if dept == "" {
		if !f.policy.OpenScopeWithoutDepartment {
			return []model.Request{}
		}
		return append([]model.Request{}, all...)
	}
	out := []model.Request{}
	for _, r := range all {
		if identity.RequestDepartment(r) == dept {
			out = append(out, r)
		}
	}
	return out
}

func (f *Filter) company(all []model.Request, u model.User) []model.Request {
	names := identity.UserCompanyNames(u)
	out := []model.Request{}
	for _, r := range all {
		if companyMatches(r, names) {
			out = append(out, r)
		}
	}
	if len(out) > 0 || !f.policy.PlaceholderCompanyFallback || !isPlaceholder(u) {
		return out
	}
	for _, r := range all {
		if CompanyPipeline[r.Status] {
			out = append(out, r)
		}
	}
	return out
}

func companyMatches(r model.Request, userNames []string) bool {
	for _, rn := range identity.RequestCompanyNames(r) {
		for _, un := range userNames {
			if identity.Overlaps(rn, un) {
				return true
			}
		}
	}
	return false
}

// isPlaceholder looks at names only; a login like hr@mycompany.co.th is not a placeholder.
func isPlaceholder(u model.User) bool {
	for _, n := range identity.UserCompanyDisplayNames(u) {
		if strings.Contains(n, placeholderToken) {
			return true
		}
	}
	return false
}
