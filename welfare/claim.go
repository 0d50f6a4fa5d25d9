/*
claim.go - Health claims against the fund

PURPOSE:
  A member (or one of their dependents) is treated by a healthcare provider
  and files a claim for the bill. The fund covers a percentage of the bill;
  the member pays the rest.

COVERAGE:
  covered_amount = billed_amount × coverage_percent / 100   (2 places)
  copay_amount   = billed_amount − covered_amount

  Recomputed on create and whenever billed_amount or coverage_percent
  changes, so covered + copay always equals billed.

STATUS FLOW:
  submitted ──approve──▶ approved ──pay──▶ paid
      └─────reject─────▶ rejected

  Submission is gated by CheckClaimEligibility in the service; the entity
  itself does not know the member's contribution history.
*/
package welfare

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
)

type ClaimType string

const (
	ClaimOutpatient ClaimType = "outpatient"
	ClaimInpatient  ClaimType = "inpatient"
	ClaimSurgery    ClaimType = "surgery"
	ClaimMaternity  ClaimType = "maternity"
)

func (t ClaimType) Valid() bool {
	switch t {
	case ClaimOutpatient, ClaimInpatient, ClaimSurgery, ClaimMaternity:
		return true
	}
	return false
}

type ClaimStatus string

const (
	ClaimSubmitted ClaimStatus = "submitted"
	ClaimApproved  ClaimStatus = "approved"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimPaid      ClaimStatus = "paid"
)

// ClaimPrefix is the sequence prefix for claim numbers.
const ClaimPrefix = "CLM"

// DefaultCoveragePercent applies when a claim is filed without one.
var DefaultCoveragePercent = decimal.NewFromInt(90)

type HealthcareProvider struct {
	ID        int64
	Name      string
	Address   string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

func (p HealthcareProvider) Validate() error {
	if p.Name == "" {
		return generic.Invalid("name", "is required")
	}
	return nil
}

// ClaimDocument references supporting paperwork held by the document store.
type ClaimDocument struct {
	ID         int64
	ClaimID    int64
	FilePath   string
	Type       string
	Size       int64
	MimeType   string
	UploadedBy generic.Actor
	CreatedAt  time.Time
}

func (d ClaimDocument) Validate() error {
	if d.FilePath == "" {
		return generic.Invalid("file_path", "is required")
	}
	if d.Type == "" {
		return generic.Invalid("type", "is required")
	}
	if d.Size <= 0 {
		return generic.Invalid("size", "must be greater than zero")
	}
	if d.MimeType == "" {
		return generic.Invalid("mime_type", "is required")
	}
	return nil
}

type HealthClaim struct {
	ID              int64
	ClaimNumber     string
	MemberID        int64
	DependentID     *int64
	ProviderID      int64
	ClaimType       ClaimType
	TreatmentDate   time.Time
	Diagnosis       string
	BilledAmount    decimal.Decimal
	CoveragePercent decimal.Decimal
	CoveredAmount   decimal.Decimal
	CopayAmount     decimal.Decimal
	Status          ClaimStatus
	SubmittedBy     generic.Actor
	ReviewedBy      generic.Actor
	ReviewedAt      *time.Time
	ReviewNotes     string
	PaidBy          generic.Actor
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Documents []ClaimDocument
}

// CoverageSplit divides a bill into the covered share and the copay.
func CoverageSplit(billed, pct decimal.Decimal) (covered, copay decimal.Decimal) {
	covered = generic.Percent(billed, pct)
	copay = generic.Money(billed.Sub(covered))
	return covered, copay
}

func validateCoverage(billed, pct decimal.Decimal) error {
	if billed.IsNegative() {
		return generic.Invalid("billed_amount", "must not be negative")
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return generic.Invalid("coverage_percent", "must be between 0 and 100")
	}
	return nil
}

// ClaimDraft is what a submitter supplies. A nil CoveragePercent means the
// default applies; an explicit zero is kept.
type ClaimDraft struct {
	MemberID        int64
	DependentID     *int64
	ProviderID      int64
	ClaimType       ClaimType
	TreatmentDate   time.Time
	Diagnosis       string
	BilledAmount    decimal.Decimal
	CoveragePercent *decimal.Decimal
}

// NewClaim validates a draft, defaults the coverage and splits the bill.
func NewClaim(d ClaimDraft, at time.Time) (HealthClaim, error) {
	if d.MemberID == 0 {
		return HealthClaim{}, generic.Invalid("member_id", "is required")
	}
	if d.ProviderID == 0 {
		return HealthClaim{}, generic.Invalid("provider_id", "is required")
	}
	if !d.ClaimType.Valid() {
		return HealthClaim{}, generic.Invalid("claim_type", "must be one of outpatient, inpatient, surgery, maternity")
	}
	if d.TreatmentDate.IsZero() {
		return HealthClaim{}, generic.Invalid("treatment_date", "is required")
	}
	pct := DefaultCoveragePercent
	if d.CoveragePercent != nil {
		pct = *d.CoveragePercent
	}
	if err := validateCoverage(d.BilledAmount, pct); err != nil {
		return HealthClaim{}, err
	}

	c := HealthClaim{
		MemberID:        d.MemberID,
		DependentID:     d.DependentID,
		ProviderID:      d.ProviderID,
		ClaimType:       d.ClaimType,
		TreatmentDate:   generic.Date(d.TreatmentDate),
		Diagnosis:       d.Diagnosis,
		BilledAmount:    generic.Money(d.BilledAmount),
		CoveragePercent: pct,
		Status:          ClaimSubmitted,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	c.CoveredAmount, c.CopayAmount = CoverageSplit(c.BilledAmount, c.CoveragePercent)
	return c, nil
}

// ClaimUpdate carries editable claim fields. Nil = unchanged.
type ClaimUpdate struct {
	BilledAmount    *decimal.Decimal
	CoveragePercent *decimal.Decimal
	Diagnosis       *string
}

// Apply edits a submitted claim, re-splitting the bill only when the billed
// amount or coverage changed.
func (c *HealthClaim) Apply(u ClaimUpdate, at time.Time) error {
	if err := generic.Guard("claim", c.ID, "edit", c.Status, ClaimSubmitted); err != nil {
		return err
	}
	billed, pct := c.BilledAmount, c.CoveragePercent
	if u.BilledAmount != nil {
		billed = generic.Money(*u.BilledAmount)
	}
	if u.CoveragePercent != nil {
		pct = *u.CoveragePercent
	}
	if err := validateCoverage(billed, pct); err != nil {
		return err
	}

	if !billed.Equal(c.BilledAmount) || !pct.Equal(c.CoveragePercent) {
		c.BilledAmount, c.CoveragePercent = billed, pct
		c.CoveredAmount, c.CopayAmount = CoverageSplit(billed, pct)
	}
	if u.Diagnosis != nil {
		c.Diagnosis = *u.Diagnosis
	}
	c.UpdatedAt = at
	return nil
}

const claimEntity = "claim"

func (c *HealthClaim) Approve(actor generic.Actor, notes string, at time.Time) error {
	if err := generic.Guard(claimEntity, c.ID, "approve", c.Status, ClaimSubmitted); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	c.Status = ClaimApproved
	c.ReviewedBy = actor
	c.ReviewedAt = &at
	c.ReviewNotes = notes
	c.UpdatedAt = at
	return nil
}

func (c *HealthClaim) Reject(actor generic.Actor, reason string, at time.Time) error {
	if err := generic.Guard(claimEntity, c.ID, "reject", c.Status, ClaimSubmitted); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	if reason == "" {
		return generic.Invalid("reason", "a rejection reason is required")
	}
	c.Status = ClaimRejected
	c.ReviewedBy = actor
	c.ReviewedAt = &at
	c.ReviewNotes = reason
	c.UpdatedAt = at
	return nil
}

// MarkPaid settles an approved claim. The fund pays the covered amount.
func (c *HealthClaim) MarkPaid(actor generic.Actor, at time.Time) error {
	if err := generic.Guard(claimEntity, c.ID, "pay", c.Status, ClaimApproved); err != nil {
		return err
	}
	if err := generic.RequireActor(actor); err != nil {
		return err
	}
	c.Status = ClaimPaid
	c.PaidBy = actor
	c.PaidAt = &at
	c.UpdatedAt = at
	return nil
}

// AttachDocument adds paperwork to a claim still under review.
func (c *HealthClaim) AttachDocument(d ClaimDocument, actor generic.Actor, at time.Time) (ClaimDocument, error) {
	if err := generic.Guard(claimEntity, c.ID, "attach document to", c.Status, ClaimSubmitted); err != nil {
		return ClaimDocument{}, err
	}
	if err := d.Validate(); err != nil {
		return ClaimDocument{}, err
	}
	d.ClaimID = c.ID
	d.UploadedBy = actor
	d.CreatedAt = at
	c.Documents = append(c.Documents, d)
	return d, nil
}
