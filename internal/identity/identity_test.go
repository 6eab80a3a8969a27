package identity

import (
	"reflect"
	"testing"

	"internship/internal/model"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  ABC  Co.,   Ltd ": "abc co., ltd",
		"\tบริษัท ABC\nจำกัด": "บริษัท abc จำกัด",
		"":                    "",
		"   ":                 "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q want %q", in, got, want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps("ABC", "บริษัท ABC จำกัด") {
		t.Fatalf("expected substring match")
	}
	if !Overlaps("บริษัท  abc จำกัด", "abc") {
		t.Fatalf("expected reverse substring match")
	}
	if Overlaps("", "abc") || Overlaps("xyz", "abc") {
		t.Fatalf("unexpected match")
	}
}

func TestMatchAnySameKindOnly(t *testing.T) {
	u := UserStudentCandidates(model.User{StudentCode: "6401", Username: "alice"})
	r := RequestStudentCandidates(model.Request{StudentID: " 6401 "})
	if !MatchAny(u, r) {
		t.Fatalf("expected student code to match studentId")
	}
	// a username equal to another request's email must not match across kinds
	u = UserStudentCandidates(model.User{Username: "a@x.com"})
	r = RequestStudentCandidates(model.Request{Email: "a@x.com"})
	if MatchAny(u, r) {
		t.Fatalf("expected no cross-kind match")
	}
}

func TestDepartmentFallback(t *testing.T) {
	r := model.Request{Details: model.Details{StudentInfo: model.StudentInfo{Major: " Computer  Science"}}}
	if got := RequestDepartment(r); got != "computer science" {
		t.Fatalf("unexpected department %q", got)
	}
	if got := UserDepartment(model.User{Major: "CS"}); got != "cs" {
		t.Fatalf("unexpected user department %q", got)
	}
}

func TestMergeDeduplicates(t *testing.T) {
	got := Merge([]string{"S1", " s1"}, []string{"", "S2"})
	if !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Fatalf("unexpected merge %v", got)
	}
}
