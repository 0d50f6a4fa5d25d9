/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model in welfare/ from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry `validate` tags checked by go-playground/validator
  before the handler calls into the services. Shape checks only: amounts,
  statuses and eligibility are re-checked by the domain.

FORMATS:
  Dates are "YYYY-MM-DD", timestamps RFC3339, money a decimal string.

SEE ALSO:
  - handlers.go: Uses these types
  - welfare/: Domain types these map from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type BankAccountDTO struct {
	AccountNumber string `json:"account_number" validate:"omitempty,max=34"`
	AccountName   string `json:"account_name" validate:"omitempty,max=200"`
	BankName      string `json:"bank_name" validate:"omitempty,max=200"`
}

type PreRegisterRequest struct {
	FullName    string          `json:"full_name" validate:"required,max=200"`
	Phone       string          `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth string          `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	PlanID      *int64          `json:"plan_id" validate:"omitempty,gt=0"`
	Bank        *BankAccountDTO `json:"bank"`
}

type UpdateMemberRequest struct {
	FullName    *string         `json:"full_name" validate:"omitempty,min=1,max=200"`
	Phone       *string         `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth *string         `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	PlanID      *int64          `json:"plan_id" validate:"omitempty,gt=0"`
	Bank        *BankAccountDTO `json:"bank"`
}

type DependentRequest struct {
	FullName     string `json:"full_name" validate:"required,max=200"`
	Relationship string `json:"relationship" validate:"required,oneof=spouse child parent sibling other"`
	DateOfBirth  string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

type PlanRequest struct {
	Name      string          `json:"name" validate:"required,max=100"`
	Frequency string          `json:"frequency" validate:"required,oneof=daily weekly monthly quarterly annual"`
	Amount    decimal.Decimal `json:"amount"`
	Active    *bool           `json:"active"`
}

type ContributionRequest struct {
	MemberID    int64            `json:"member_id" validate:"required,gt=0"`
	Amount      *decimal.Decimal `json:"amount"`
	PaymentDate string           `json:"payment_date" validate:"required,datetime=2006-01-02"`
	PeriodStart *string          `json:"period_start" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd   *string          `json:"period_end" validate:"omitempty,datetime=2006-01-02"`
	Status      string           `json:"status" validate:"omitempty,oneof=pending paid overdue"`
}

type UpdateContributionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	PaymentDate *string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	PeriodStart *string          `json:"period_start" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd   *string          `json:"period_end" validate:"omitempty,datetime=2006-01-02"`
}

type MarkPaidRequest struct {
	PaymentDate *string `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
}

type LoanRequest struct {
	MemberID          int64            `json:"member_id" validate:"required,gt=0"`
	Amount            decimal.Decimal  `json:"amount"`
	RepaymentMode     string           `json:"repayment_mode" validate:"omitempty,oneof=installments full"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount"`
	RepaymentPeriod   string           `json:"repayment_period" validate:"omitempty,max=50"`
	Purpose           string           `json:"purpose" validate:"omitempty,max=500"`
}

type RepaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Reference   string          `json:"reference" validate:"omitempty,max=100"`
}

type ProviderRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"omitempty,max=500"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Active  *bool  `json:"active"`
}

type ClaimRequest struct {
	MemberID        int64            `json:"member_id" validate:"required,gt=0"`
	DependentID     *int64           `json:"dependent_id" validate:"omitempty,gt=0"`
	ProviderID      int64            `json:"provider_id" validate:"required,gt=0"`
	ClaimType       string           `json:"claim_type" validate:"required,oneof=outpatient inpatient surgery maternity"`
	TreatmentDate   string           `json:"treatment_date" validate:"required,datetime=2006-01-02"`
	Diagnosis       string           `json:"diagnosis" validate:"omitempty,max=1000"`
	BilledAmount    decimal.Decimal  `json:"billed_amount"`
	CoveragePercent *decimal.Decimal `json:"coverage_percent"`
}

type UpdateClaimRequest struct {
	BilledAmount    *decimal.Decimal `json:"billed_amount"`
	CoveragePercent *decimal.Decimal `json:"coverage_percent"`
	Diagnosis       *string          `json:"diagnosis" validate:"omitempty,max=1000"`
}

// NotesRequest carries optional reviewer notes for approve/verify/disburse.
type NotesRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=1000"`
}

// RejectRequest requires a reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type DocumentRequest struct {
	FilePath string `json:"file_path" validate:"required,max=500"`
	Type     string `json:"type" validate:"required,max=50"`
	Size     int64  `json:"size" validate:"gt=0"`
	MimeType string `json:"mime_type" validate:"required,max=100"`
}

type CashoutRequestRequest struct {
	MemberID int64           `json:"member_id" validate:"required,gt=0"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason" validate:"omitempty,max=1000"`
}

type ApproveCashoutRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Notes  string           `json:"notes" validate:"omitempty,max=1000"`
}

type ApprovalRequest struct {
	SubjectType string `json:"subject_type" validate:"required,oneof=loan claim registration"`
	SubjectID   int64  `json:"subject_id" validate:"required,gt=0"`
	Level       int    `json:"level" validate:"required,min=1,max=3"`
}

type DecideApprovalRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Comments string `json:"comments" validate:"omitempty,max=1000"`
}

type ProgramRequest struct {
	Name             string         `json:"name" validate:"required,max=200"`
	Description      string         `json:"description" validate:"omitempty,max=2000"`
	Capacity         int            `json:"capacity" validate:"gte=0"`
	EligibilityRules map[string]any `json:"eligibility_rules"`
	StartDate        *string        `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate          *string        `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Active           *bool          `json:"active"`
}

type EnrollRequest struct {
	MemberID int64 `json:"member_id" validate:"required,gt=0"`
}

type LedgerEntryRequest struct {
	Type            string          `json:"type" validate:"required,oneof=inflow outflow"`
	Source          string          `json:"source" validate:"required,max=50"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate string          `json:"transaction_date" validate:"required,datetime=2006-01-02"`
	MemberID        *int64          `json:"member_id" validate:"omitempty,gt=0"`
	Reference       string          `json:"reference" validate:"omitempty,max=100"`
	Description     string          `json:"description" validate:"omitempty,max=500"`
	IdempotencyKey  string          `json:"idempotency_key" validate:"omitempty,max=200"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is returned for all errors. Issues lists every unmet
// eligibility condition when the error is an eligibility failure.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Issues  []string `json:"issues,omitempty"`
}

type MemberDTO struct {
	ID                   int64          `json:"id"`
	RegistrationNumber   string         `json:"registration_number"`
	FullName             string         `json:"full_name"`
	Phone                string         `json:"phone,omitempty"`
	DateOfBirth          string         `json:"date_of_birth,omitempty"`
	PlanID               *int64         `json:"plan_id,omitempty"`
	Status               string         `json:"status"`
	RegistrationDate     string         `json:"registration_date"`
	EligibilityStartDate string         `json:"eligibility_start_date,omitempty"`
	IsComplete           bool           `json:"is_complete"`
	CashoutCount         int            `json:"cashout_count"`
	LastCashoutDate      string         `json:"last_cashout_date,omitempty"`
	Bank                 BankAccountDTO `json:"bank"`
	CreatedAt            string         `json:"created_at"`
	UpdatedAt            string         `json:"updated_at"`
}

type DependentDTO struct {
	ID           int64  `json:"id"`
	MemberID     int64  `json:"member_id"`
	FullName     string `json:"full_name"`
	Relationship string `json:"relationship"`
	DateOfBirth  string `json:"date_of_birth"`
	Eligible     bool   `json:"eligible"`
}

type PlanDTO struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Frequency string          `json:"frequency"`
	Amount    decimal.Decimal `json:"amount"`
	Active    bool            `json:"active"`
}

type ContributionDTO struct {
	ID            int64           `json:"id"`
	MemberID      int64           `json:"member_id"`
	PlanID        int64           `json:"plan_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	FineAmount    decimal.Decimal `json:"fine_amount"`
	Total         decimal.Decimal `json:"total"`
	PaymentDate   string          `json:"payment_date"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	Status        string          `json:"status"`
	ReceiptNumber string          `json:"receipt_number"`
	RecordedBy    string          `json:"recorded_by"`
	CreatedAt     string          `json:"created_at"`
}

type RepaymentDTO struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Reference   string          `json:"reference,omitempty"`
	RecordedBy  string          `json:"recorded_by"`
}

type LoanDTO struct {
	ID                 int64            `json:"id"`
	MemberID           int64            `json:"member_id"`
	Amount             decimal.Decimal  `json:"amount"`
	RepaymentMode      string           `json:"repayment_mode"`
	InstallmentAmount  *decimal.Decimal `json:"installment_amount,omitempty"`
	RepaymentPeriod    string           `json:"repayment_period,omitempty"`
	Purpose            string           `json:"purpose,omitempty"`
	Status             string           `json:"status"`
	StartDate          string           `json:"start_date,omitempty"`
	DueDate            string           `json:"due_date,omitempty"`
	TotalRepaid        decimal.Decimal  `json:"total_repaid"`
	OutstandingBalance decimal.Decimal  `json:"outstanding_balance"`
	ApprovedBy         string           `json:"approved_by,omitempty"`
	DisbursedBy        string           `json:"disbursed_by,omitempty"`
	Repayments         []RepaymentDTO   `json:"repayments"`
	CreatedAt          string           `json:"created_at"`
}

type ProviderDTO struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Active  bool   `json:"active"`
}

type DocumentDTO struct {
	ID         int64  `json:"id"`
	FilePath   string `json:"file_path"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type,omitempty"`
	UploadedBy string `json:"uploaded_by"`
	CreatedAt  string `json:"created_at"`
}

type ClaimDTO struct {
	ID              int64           `json:"id"`
	ClaimNumber     string          `json:"claim_number"`
	MemberID        int64           `json:"member_id"`
	DependentID     *int64          `json:"dependent_id,omitempty"`
	ProviderID      int64           `json:"provider_id"`
	ClaimType       string          `json:"claim_type"`
	TreatmentDate   string          `json:"treatment_date"`
	Diagnosis       string          `json:"diagnosis,omitempty"`
	BilledAmount    decimal.Decimal `json:"billed_amount"`
	CoveragePercent decimal.Decimal `json:"coverage_percent"`
	CoveredAmount   decimal.Decimal `json:"covered_amount"`
	CopayAmount     decimal.Decimal `json:"copay_amount"`
	Status          string          `json:"status"`
	SubmittedBy     string          `json:"submitted_by"`
	ReviewedBy      string          `json:"reviewed_by,omitempty"`
	ReviewNotes     string          `json:"review_notes,omitempty"`
	PaidBy          string          `json:"paid_by,omitempty"`
	Documents       []DocumentDTO   `json:"documents"`
	CreatedAt       string          `json:"created_at"`
}

type StageDTO struct {
	By    string `json:"by"`
	At    string `json:"at"`
	Notes string `json:"notes,omitempty"`
}

type CashoutDTO struct {
	ID              int64            `json:"id"`
	MemberID        int64            `json:"member_id"`
	RequestedAmount decimal.Decimal  `json:"requested_amount"`
	ApprovedAmount  *decimal.Decimal `json:"approved_amount,omitempty"`
	Status          string           `json:"status"`
	Reason          string           `json:"reason,omitempty"`
	Bank            BankAccountDTO   `json:"bank"`
	Verified        *StageDTO        `json:"verified,omitempty"`
	Approved        *StageDTO        `json:"approved,omitempty"`
	Disbursed       *StageDTO        `json:"disbursed,omitempty"`
	Rejected        *StageDTO        `json:"rejected,omitempty"`
	CreatedAt       string           `json:"created_at"`
}

type ApprovalDTO struct {
	ID          int64  `json:"id"`
	SubjectType string `json:"subject_type"`
	SubjectID   int64  `json:"subject_id"`
	Level       int    `json:"level"`
	LevelName   string `json:"level_name"`
	Approver    string `json:"approver"`
	Status      string `json:"status"`
	Comments    string `json:"comments,omitempty"`
	DecidedAt   string `json:"decided_at,omitempty"`
}

type ProgramDTO struct {
	ID               int64                    `json:"id"`
	Name             string                   `json:"name"`
	Description      string                   `json:"description,omitempty"`
	Capacity         int                      `json:"capacity"`
	EligibilityRules welfare.EligibilityRules `json:"eligibility_rules"`
	StartDate        string                   `json:"start_date,omitempty"`
	EndDate          string                   `json:"end_date,omitempty"`
	Active           bool                     `json:"active"`
}

type EnrollmentDTO struct {
	ID                  int64  `json:"id"`
	ProgramID           int64  `json:"program_id"`
	MemberID            int64  `json:"member_id"`
	Status              string `json:"status"`
	EnrolledAt          string `json:"enrolled_at"`
	CompletedAt         string `json:"completed_at,omitempty"`
	WithdrawnAt         string `json:"withdrawn_at,omitempty"`
	CertificateNumber   string `json:"certificate_number,omitempty"`
	CertificateIssuedAt string `json:"certificate_issued_at,omitempty"`
}

type EntryDTO struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate string          `json:"transaction_date"`
	MemberID        *int64          `json:"member_id,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	Description     string          `json:"description,omitempty"`
	ReversalOf      string          `json:"reversal_of,omitempty"`
	RecordedBy      string          `json:"recorded_by"`
	CreatedAt       string          `json:"created_at"`
}

type SummaryLineDTO struct {
	Type   string          `json:"type"`
	Source string          `json:"source"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

type MonthlySummaryDTO struct {
	Year         int              `json:"year"`
	Month        int              `json:"month"`
	Lines        []SummaryLineDTO `json:"lines"`
	TotalInflow  decimal.Decimal  `json:"total_inflow"`
	TotalOutflow decimal.Decimal  `json:"total_outflow"`
	Net          decimal.Decimal  `json:"net"`
}

type EligibilityDTO struct {
	MemberID int64                 `json:"member_id"`
	Claim    ClaimEligibilityDTO   `json:"claim"`
	Loan     LoanEligibilityDTO    `json:"loan"`
	Cashout  CashoutEligibilityDTO `json:"cashout"`
}

type ClaimEligibilityDTO struct {
	ClaimType             string   `json:"claim_type"`
	Eligible              bool     `json:"eligible"`
	Issues                []string `json:"issues"`
	DaysSinceRegistration int      `json:"days_since_registration"`
	ContributionCount     int      `json:"contribution_count"`
	RequiredContributions int      `json:"required_contributions"`
}

type LoanEligibilityDTO struct {
	Eligible            bool     `json:"eligible"`
	Issues              []string `json:"issues"`
	RecentContributions int      `json:"recent_contributions"`
	OpenLoans           int      `json:"open_loans"`
}

type CashoutEligibilityDTO struct {
	EligibleAmount decimal.Decimal `json:"eligible_amount"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return generic.FormatDate(*t)
}

func formatTimestampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTimestamp(*t)
}

func toBankDTO(b welfare.BankAccount) BankAccountDTO {
	return BankAccountDTO{AccountNumber: b.AccountNumber, AccountName: b.AccountName, BankName: b.BankName}
}

func (b *BankAccountDTO) toDomain() *welfare.BankAccount {
	if b == nil {
		return nil
	}
	return &welfare.BankAccount{AccountNumber: b.AccountNumber, AccountName: b.AccountName, BankName: b.BankName}
}

func toMemberDTO(m *welfare.Member) MemberDTO {
	return MemberDTO{
		ID:                   m.ID,
		RegistrationNumber:   m.RegistrationNumber,
		FullName:             m.FullName,
		Phone:                m.Phone,
		DateOfBirth:          formatDatePtr(m.DateOfBirth),
		PlanID:               m.PlanID,
		Status:               string(m.Status),
		RegistrationDate:     generic.FormatDate(m.RegistrationDate),
		EligibilityStartDate: formatDatePtr(m.EligibilityStartDate),
		IsComplete:           m.IsComplete,
		CashoutCount:         m.CashoutCount,
		LastCashoutDate:      formatDatePtr(m.LastCashoutDate),
		Bank:                 toBankDTO(m.Bank),
		CreatedAt:            formatTimestamp(m.CreatedAt),
		UpdatedAt:            formatTimestamp(m.UpdatedAt),
	}
}

func toDependentDTO(d *welfare.Dependent) DependentDTO {
	return DependentDTO{
		ID:           d.ID,
		MemberID:     d.MemberID,
		FullName:     d.FullName,
		Relationship: string(d.Relationship),
		DateOfBirth:  generic.FormatDate(d.DateOfBirth),
		Eligible:     d.Eligible,
	}
}

func toPlanDTO(p *welfare.ContributionPlan) PlanDTO {
	return PlanDTO{ID: p.ID, Name: p.Name, Frequency: string(p.Frequency), Amount: p.Amount, Active: p.Active}
}

func toContributionDTO(c *welfare.Contribution) ContributionDTO {
	return ContributionDTO{
		ID:            c.ID,
		MemberID:      c.MemberID,
		PlanID:        c.PlanID,
		Amount:        c.Amount,
		FineAmount:    c.FineAmount,
		Total:         c.Total(),
		PaymentDate:   generic.FormatDate(c.PaymentDate),
		PeriodStart:   generic.FormatDate(c.PeriodStart),
		PeriodEnd:     generic.FormatDate(c.PeriodEnd),
		Status:        string(c.Status),
		ReceiptNumber: c.ReceiptNumber,
		RecordedBy:    string(c.RecordedBy),
		CreatedAt:     formatTimestamp(c.CreatedAt),
	}
}

func toLoanDTO(l *welfare.Loan) LoanDTO {
	repayments := make([]RepaymentDTO, 0, len(l.Repayments))
	for _, r := range l.Repayments {
		repayments = append(repayments, RepaymentDTO{
			ID:          r.ID,
			Amount:      r.Amount,
			PaymentDate: generic.FormatDate(r.PaymentDate),
			Reference:   r.Reference,
			RecordedBy:  string(r.RecordedBy),
		})
	}
	return LoanDTO{
		ID:                 l.ID,
		MemberID:           l.MemberID,
		Amount:             l.Amount,
		RepaymentMode:      string(l.RepaymentMode),
		InstallmentAmount:  l.InstallmentAmount,
		RepaymentPeriod:    l.RepaymentPeriod,
		Purpose:            l.Purpose,
		Status:             string(l.Status),
		StartDate:          formatDatePtr(l.StartDate),
		DueDate:            formatDatePtr(l.DueDate()),
		TotalRepaid:        l.TotalRepaid(),
		OutstandingBalance: l.OutstandingBalance(),
		ApprovedBy:         string(l.ApprovedBy),
		DisbursedBy:        string(l.DisbursedBy),
		Repayments:         repayments,
		CreatedAt:          formatTimestamp(l.CreatedAt),
	}
}

func toProviderDTO(p *welfare.HealthcareProvider) ProviderDTO {
	return ProviderDTO{ID: p.ID, Name: p.Name, Address: p.Address, Phone: p.Phone, Active: p.Active}
}

func toDocumentDTO(d *welfare.ClaimDocument) DocumentDTO {
	return DocumentDTO{
		ID:         d.ID,
		FilePath:   d.FilePath,
		Type:       d.Type,
		Size:       d.Size,
		MimeType:   d.MimeType,
		UploadedBy: string(d.UploadedBy),
		CreatedAt:  formatTimestamp(d.CreatedAt),
	}
}

func toClaimDTO(c *welfare.HealthClaim) ClaimDTO {
	docs := make([]DocumentDTO, 0, len(c.Documents))
	for i := range c.Documents {
		docs = append(docs, toDocumentDTO(&c.Documents[i]))
	}
	return ClaimDTO{
		ID:              c.ID,
		ClaimNumber:     c.ClaimNumber,
		MemberID:        c.MemberID,
		DependentID:     c.DependentID,
		ProviderID:      c.ProviderID,
		ClaimType:       string(c.ClaimType),
		TreatmentDate:   generic.FormatDate(c.TreatmentDate),
		Diagnosis:       c.Diagnosis,
		BilledAmount:    c.BilledAmount,
		CoveragePercent: c.CoveragePercent,
		CoveredAmount:   c.CoveredAmount,
		CopayAmount:     c.CopayAmount,
		Status:          string(c.Status),
		SubmittedBy:     string(c.SubmittedBy),
		ReviewedBy:      string(c.ReviewedBy),
		ReviewNotes:     c.ReviewNotes,
		PaidBy:          string(c.PaidBy),
		Documents:       docs,
		CreatedAt:       formatTimestamp(c.CreatedAt),
	}
}

func toStageDTO(s *welfare.StageStamp) *StageDTO {
	if s == nil {
		return nil
	}
	return &StageDTO{By: string(s.By), At: formatTimestamp(s.At), Notes: s.Notes}
}

func toCashoutDTO(r *welfare.CashoutRequest) CashoutDTO {
	return CashoutDTO{
		ID:              r.ID,
		MemberID:        r.MemberID,
		RequestedAmount: r.RequestedAmount,
		ApprovedAmount:  r.ApprovedAmount,
		Status:          string(r.Status),
		Reason:          r.Reason,
		Bank:            toBankDTO(r.Bank),
		Verified:        toStageDTO(r.Verified),
		Approved:        toStageDTO(r.Approved),
		Disbursed:       toStageDTO(r.Disbursed),
		Rejected:        toStageDTO(r.Rejected),
		CreatedAt:       formatTimestamp(r.CreatedAt),
	}
}

func toApprovalDTO(a *welfare.Approval) ApprovalDTO {
	return ApprovalDTO{
		ID:          a.ID,
		SubjectType: string(a.Subject.Kind()),
		SubjectID:   a.Subject.SubjectID(),
		Level:       int(a.Level),
		LevelName:   a.Level.String(),
		Approver:    string(a.Approver),
		Status:      string(a.Status),
		Comments:    a.Comments,
		DecidedAt:   formatTimestampPtr(a.DecidedAt),
	}
}

func toProgramDTO(p *welfare.Program) ProgramDTO {
	return ProgramDTO{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		Capacity:         p.Capacity,
		EligibilityRules: p.Rules,
		StartDate:        formatDatePtr(p.StartDate),
		EndDate:          formatDatePtr(p.EndDate),
		Active:           p.Active,
	}
}

func toEnrollmentDTO(e *welfare.Enrollment) EnrollmentDTO {
	return EnrollmentDTO{
		ID:                  e.ID,
		ProgramID:           e.ProgramID,
		MemberID:            e.MemberID,
		Status:              string(e.Status),
		EnrolledAt:          formatTimestamp(e.EnrolledAt),
		CompletedAt:         formatTimestampPtr(e.CompletedAt),
		WithdrawnAt:         formatTimestampPtr(e.WithdrawnAt),
		CertificateNumber:   e.CertificateNumber,
		CertificateIssuedAt: formatTimestampPtr(e.CertificateIssued),
	}
}

func toEntryDTO(e *generic.Entry) EntryDTO {
	return EntryDTO{
		ID:              string(e.ID),
		Type:            string(e.Type),
		Source:          e.Source,
		Amount:          e.Amount,
		TransactionDate: generic.FormatDate(e.TransactionDate),
		MemberID:        e.MemberID,
		Reference:       e.Reference,
		Description:     e.Description,
		ReversalOf:      string(e.ReversalOf),
		RecordedBy:      string(e.RecordedBy),
		CreatedAt:       formatTimestamp(e.CreatedAt),
	}
}

func toSummaryDTO(s *generic.MonthlySummary) MonthlySummaryDTO {
	lines := make([]SummaryLineDTO, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, SummaryLineDTO{Type: string(l.Type), Source: l.Source, Total: l.Total, Count: l.Count})
	}
	return MonthlySummaryDTO{
		Year:         s.Year,
		Month:        int(s.Month),
		Lines:        lines,
		TotalInflow:  s.TotalInflow,
		TotalOutflow: s.TotalOutflow,
		Net:          s.Net,
	}
}

// mapSlice converts a slice of domain values with a pointer-taking mapper.
func mapSlice[T, D any](items []T, fn func(*T) D) []D {
	out := make([]D, 0, len(items))
	for i := range items {
		out = append(out, fn(&items[i]))
	}
	return out
}
