package welfare

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// PROGRAMS - Vocational training with capacity and entry rules
// =============================================================================

// EligibilityRules are the optional entry requirements of a program.
type EligibilityRules struct {
	MinContributions *int `json:"min_contributions,omitempty"`
	MinAge           *int `json:"min_age,omitempty"`
	MaxAge           *int `json:"max_age,omitempty"`
}

// ParseEligibilityRules reads a loosely-typed rule set. Numbers may arrive
// as JSON numbers or numeric strings; unknown keys are ignored.
func ParseEligibilityRules(raw map[string]any) (EligibilityRules, error) {
	var rules EligibilityRules
	for key, dst := range map[string]**int{
		"min_contributions": &rules.MinContributions,
		"min_age":           &rules.MinAge,
		"max_age":           &rules.MaxAge,
	} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		n, err := ruleInt(v)
		if err != nil {
			return EligibilityRules{}, generic.Invalid("eligibility_rules."+key, "%v", err)
		}
		if n < 0 {
			return EligibilityRules{}, generic.Invalid("eligibility_rules."+key, "must not be negative")
		}
		*dst = &n
	}
	if rules.MinAge != nil && rules.MaxAge != nil && *rules.MinAge > *rules.MaxAge {
		return EligibilityRules{}, generic.Invalid("eligibility_rules", "min_age %d is above max_age %d", *rules.MinAge, *rules.MaxAge)
	}
	return rules, nil
}

func ruleInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("unsupported value %v", v)
}

// Check evaluates every rule and returns all unmet ones. A member without a
// date of birth fails any age rule.
func (r EligibilityRules) Check(m Member, paidContributions int, asOf time.Time) []string {
	var issues []string
	if r.MinContributions != nil && paidContributions < *r.MinContributions {
		issues = append(issues, fmt.Sprintf("%d paid contributions, program requires at least %d", paidContributions, *r.MinContributions))
	}
	if r.MinAge == nil && r.MaxAge == nil {
		return issues
	}
	if m.DateOfBirth == nil {
		return append(issues, "date of birth is required to check the program's age limits")
	}
	age := generic.AgeOn(*m.DateOfBirth, asOf)
	if r.MinAge != nil && age < *r.MinAge {
		issues = append(issues, fmt.Sprintf("age %d is below the minimum of %d", age, *r.MinAge))
	}
	if r.MaxAge != nil && age > *r.MaxAge {
		issues = append(issues, fmt.Sprintf("age %d is above the maximum of %d", age, *r.MaxAge))
	}
	return issues
}

type Program struct {
	ID          int64
	Name        string
	Description string
	Capacity    int // 0 = unlimited
	Rules       EligibilityRules
	StartDate   *time.Time
	EndDate     *time.Time
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Program) Validate() error {
	if p.Name == "" {
		return generic.Invalid("name", "is required")
	}
	if p.Capacity < 0 {
		return generic.Invalid("capacity", "must not be negative")
	}
	if p.StartDate != nil && p.EndDate != nil && generic.DayBefore(*p.EndDate, *p.StartDate) {
		return generic.Invalid("end_date", "must not be before start_date")
	}
	return nil
}

// HasRoom reports whether another member can enroll.
func (p Program) HasRoom(enrolled int) bool {
	return p.Capacity == 0 || enrolled < p.Capacity
}

// =============================================================================
// ENROLLMENT
// =============================================================================

type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentWithdrawn EnrollmentStatus = "withdrawn"
)

// CertificatePrefix is the sequence prefix for completion certificates.
const CertificatePrefix = "CRT"

type Enrollment struct {
	ID                int64
	ProgramID         int64
	MemberID          int64
	Status            EnrollmentStatus
	EnrolledAt        time.Time
	CompletedAt       *time.Time
	WithdrawnAt       *time.Time
	CertificateNumber string
	CertificateIssued *time.Time
	UpdatedAt         time.Time
}

const enrollmentEntity = "enrollment"

func (e *Enrollment) Complete(at time.Time) error {
	if err := generic.Guard(enrollmentEntity, e.ID, "complete", e.Status, EnrollmentEnrolled); err != nil {
		return err
	}
	e.Status = EnrollmentCompleted
	e.CompletedAt = &at
	e.UpdatedAt = at
	return nil
}

func (e *Enrollment) Withdraw(at time.Time) error {
	if err := generic.Guard(enrollmentEntity, e.ID, "withdraw", e.Status, EnrollmentEnrolled); err != nil {
		return err
	}
	e.Status = EnrollmentWithdrawn
	e.WithdrawnAt = &at
	e.UpdatedAt = at
	return nil
}

// IssueCertificate stamps a certificate number on a completed enrollment.
func (e *Enrollment) IssueCertificate(number string, at time.Time) error {
	if err := generic.Guard(enrollmentEntity, e.ID, "issue certificate for", e.Status, EnrollmentCompleted); err != nil {
		return err
	}
	if e.CertificateNumber != "" {
		return &generic.ConflictError{Message: fmt.Sprintf("enrollment %d already has certificate %s", e.ID, e.CertificateNumber)}
	}
	if number == "" {
		return generic.Invalid("certificate_number", "is required")
	}
	e.CertificateNumber = number
	e.CertificateIssued = &at
	e.UpdatedAt = at
	return nil
}
