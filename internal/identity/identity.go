// Package identity normalizes and extracts the identity strings used to match users,
// requests and check-ins whose field names drifted over time.
package identity

import (
	"strings"

	"internship/internal/model"
)

// Normalize trims, lower-cases and collapses internal whitespace runs to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Equal compares two identity strings after normalization. Empty values never match.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// Overlaps reports whether either normalized value contains the other.
func Overlaps(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Kind groups candidate values that are compared with each other.
type Kind string

const (
	KindStudentID Kind = "student_id"
	KindUsername  Kind = "username"
	KindEmail     Kind = "email"
)

// Candidate is one identity value of a given kind.
type Candidate struct {
	Kind  Kind
	Value string
}

// StudentOrder is the precedence in which student identity kinds are checked.
var StudentOrder = []Kind{KindStudentID, KindUsername, KindEmail}

// UserStudentCandidates returns the viewing student's identity values in precedence order.
func UserStudentCandidates(u model.User) []Candidate {
	return compact([]Candidate{
		{KindStudentID, u.StudentID},
		{KindStudentID, u.StudentCode},
		{KindUsername, u.Username},
		{KindEmail, u.Email},
	})
}

// RequestStudentCandidates returns the identity values a request carries for its owner.
func RequestStudentCandidates(r model.Request) []Candidate {
	return compact([]Candidate{
		{KindStudentID, r.StudentID},
		{KindStudentID, r.StudentCode},
		{KindStudentID, r.Details.StudentInfo.StudentCode},
		{KindUsername, r.Username},
		{KindEmail, r.Email},
		{KindEmail, r.Details.StudentInfo.Email},
	})
}

// MatchAny reports whether any candidate of a matches a candidate of the same kind in b.
func MatchAny(a, b []Candidate) bool {
	for _, kind := range StudentOrder {
		for _, ca := range a {
			if ca.Kind != kind {
				continue
			}
			for _, cb := range b {
				if cb.Kind == kind && Equal(ca.Value, cb.Value) {
					return true
				}
			}
		}
	}
	return false
}

// UserDepartment is the department scope of an advisor or admin, falling back to major.
func UserDepartment(u model.User) string {
	if d := Normalize(u.Department); d != "" {
		return d
	}
	return Normalize(u.Major)
}

// RequestDepartment is the department of a request, falling back to the applicant's major.
func RequestDepartment(r model.Request) string {
	if d := Normalize(r.Department); d != "" {
		return d
	}
	return Normalize(r.Details.StudentInfo.Major)
}

// UserCompanyNames returns the normalized names a company account may be known by.
func UserCompanyNames(u model.User) []string {
	return normalizedSet(u.CompanyName, u.Name, u.FullName, u.Username, u.Email)
}

// UserCompanyDisplayNames returns only the name fields of a company account, leaving
// out login handles such as username and email.
func UserCompanyDisplayNames(u model.User) []string {
	return normalizedSet(u.CompanyName, u.Name, u.FullName)
}

// RequestCompanyNames returns the normalized company names recorded on a request.
func RequestCompanyNames(r model.Request) []string {
	return normalizedSet(r.Company, r.Details.CompanyInfo.Name)
}

// RequestIDs returns the student id values a request can be matched on for attendance.
func RequestIDs(r model.Request) []string {
	return normalizedSet(r.StudentID, r.StudentCode, r.Details.StudentInfo.StudentCode)
}

// RequestNames returns the student names a request can be matched on for attendance.
func RequestNames(r model.Request) []string {
	return normalizedSet(r.StudentName, r.Details.StudentInfo.Name)
}

// UserIDs returns a student account's id values for attendance matching.
func UserIDs(u model.User) []string {
	return normalizedSet(u.StudentID, u.StudentCode)
}

// UserNames returns a student account's display names for attendance matching.
func UserNames(u model.User) []string {
	return normalizedSet(u.FullName, u.Name)
}

// Merge normalizes and de-duplicates several candidate lists, keeping first-seen order.
func Merge(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return normalizedSet(all...)
}

func normalizedSet(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := Normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func compact(in []Candidate) []Candidate {
	out := in[:0]
	for _, c := range in {
		if Normalize(c.Value) != "" {
			out = append(out, c)
		}
	}
	return out
}
