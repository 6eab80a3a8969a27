package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an internship request.
type Status string

const (
	StatusPendingAdvisor         Status = "pending_advisor"
	StatusPendingAdminReview     Status = "pending_admin_review"
	StatusPendingCompanyResponse Status = "pending_company_response"
	StatusApproved               Status = "approved"
	StatusInProgress             Status = "in_progress"
	StatusCompleted              Status = "completed"
	StatusRejectedByAdvisor      Status = "rejected_by_advisor"
	StatusRejectedByAdmin        Status = "rejected_by_admin"
	StatusRejectedByCompany      Status = "rejected_by_company"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusPendingAdvisor,
	StatusPendingAdminReview,
	StatusPendingCompanyResponse,
	StatusApproved,
	StatusInProgress,
	StatusCompleted,
	StatusRejectedByAdvisor,
	StatusRejectedByAdmin,
	StatusRejectedByCompany,
}

// ParseStatus validates a wire value.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if Status(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

// Rejected reports whether s is one of the terminal rejection states.
func (s Status) Rejected() bool {
	switch s {
	case StatusRejectedByAdvisor, StatusRejectedByAdmin, StatusRejectedByCompany:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s.Rejected()
}

// Role is the kind of actor viewing or acting on requests.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdvisor Role = "advisor"
	RoleAdmin   Role = "admin"
	RoleCompany Role = "company"
)

// Valid returns true when the role is a supported value.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdvisor, RoleAdmin, RoleCompany:
		return true
	}
	return false
}

// Action is what an actor asks the workflow to do.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionAdvance Action = "advance"
)

// StudentInfo is the applicant section of the submitted form.
type StudentInfo struct {
	Name        string `json:"name,omitempty"`
	StudentCode string `json:"student_code,omitempty"`
	Major       string `json:"major,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

// CompanyInfo is the placement section of the submitted form.
type CompanyInfo struct {
	Name         string `json:"name,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Details holds the full application payload. It is reference data only.
type Details struct {
	StudentInfo    StudentInfo `json:"student_info"`
	CompanyInfo    CompanyInfo `json:"company_info"`
	JobDescription string      `json:"job_description,omitempty"`
	StartDate      string      `json:"startDate,omitempty"`
	EndDate        string      `json:"endDate,omitempty"`
}

// SupervisionAppointment is the advisor's site-visit booking.
type SupervisionAppointment struct {
	Date     string    `json:"date" binding:"required"`
	Time     string    `json:"time,omitempty"`
	Location string    `json:"location,omitempty"`
	Note     string    `json:"note,omitempty"`
	SetBy    string    `json:"setBy,omitempty"`
	SetAt    time.Time `json:"setAt"`
}

// SupervisionReport is the advisor's write-up after a visit.
type SupervisionReport struct {
	Summary string    `json:"summary" binding:"required"`
	Score   *float64  `json:"score,omitempty"`
	SetBy   string    `json:"setBy,omitempty"`
	SetAt   time.Time `json:"setAt"`
}

// EvaluationForm is the company's assessment of the intern.
type EvaluationForm struct {
	Criteria map[string]int `json:"criteria,omitempty"`
	Comment  string         `json:"comment,omitempty"`
	SetBy    string         `json:"setBy,omitempty"`
	SetAt    time.Time      `json:"setAt"`
}

// Attachment references an uploaded file such as the payment proof.
type Attachment struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"publicId,omitempty"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Request is one student's internship application.
type Request struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"studentId"`
	StudentCode   string    `json:"student_code,omitempty"`
	Username      string    `json:"username,omitempty"`
	Email         string    `json:"email,omitempty"`
	StudentName   string    `json:"studentName"`
	Department    string    `json:"department"`
	Company       string    `json:"company"`
	Position      string    `json:"position"`
	SubmittedDate time.Time `json:"submittedDate"`
	Status        Status    `json:"status"`
	RejectReason  string    `json:"rejectReason,omitempty"`
	StartDate     string    `json:"startDate,omitempty"`
	EndDate       string    `json:"endDate,omitempty"`
	Details       Details   `json:"details"`

	SupervisionAppointment *SupervisionAppointment `json:"supervisionAppointment,omitempty"`
	SupervisionReport      *SupervisionReport      `json:"supervisionReport,omitempty"`
	EvaluationForm         *EvaluationForm         `json:"evaluationForm,omitempty"`
	EvaluationScore        *float64                `json:"evaluationScore,omitempty"`
	CertificateIssued      bool                    `json:"certificateIssued"`
	PaymentProof           *Attachment             `json:"paymentProof,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CheckinStatus is the attendance outcome of one day.
type CheckinStatus string

const (
	CheckinPresent CheckinStatus = "present"
	CheckinLate    CheckinStatus = "late"
	CheckinAbsent  CheckinStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s CheckinStatus) Valid() bool {
	switch s {
	case CheckinPresent, CheckinLate, CheckinAbsent:
		return true
	}
	return false
}

// CheckinEntry is one student's attendance for one calendar date.
type CheckinEntry struct {
	ID          string        `json:"id"`
	StudentID   string        `json:"studentId"`
	StudentName string        `json:"studentName"`
	Date        string        `json:"date"`
	Status      CheckinStatus `json:"status"`
	Note        string        `json:"note,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// User is the viewing or acting account. The user directory itself lives elsewhere;
// only the identity fields used for matching are carried here.
type User struct {
	ID          string `json:"id,omitempty"`
	Role        Role   `json:"role"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	StudentID   string `json:"studentId,omitempty"`
	StudentCode string `json:"student_code,omitempty"`
	Department  string `json:"department,omitempty"`
	Major       string `json:"major,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// Subject returns the most stable identifier of the user for logs and audit rows.
func (u User) Subject() string {
	for _, v := range []string{u.ID, u.Username, u.Email, u.StudentID, u.StudentCode, u.CompanyName, u.Name} {
		if v != "" {
			return v
		}
	}
	return string(u.Role)
}

// HistoryEntry records one applied status transition.
type HistoryEntry struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Action    Action    `json:"action"`
	ActorRole Role      `json:"actorRole"`
	ActorID   string    `json:"actorId"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// DateLayout is the ISO calendar date format used for check-ins and internship ranges.
const DateLayout = "2006-01-02"
