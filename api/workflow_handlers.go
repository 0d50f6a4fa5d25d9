package api

import (
	"context"
	"net/http"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// ListLoans filters by ?member_id= and ?status=.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	memberID, ok := queryID(w, r, "member_id")
	if !ok {
		return
	}
	loans, err := h.Service.ListLoans(r.Context(), welfare.LoanFilter{
		MemberID: memberID,
		Status:   welfare.LoanStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(loans, toLoanDTO))
}

// ListOverdueLoans lists disbursed loans past term, as of ?as_of= or today.
func (h *Handler) ListOverdueLoans(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseOptionalDate("as_of", nonEmpty(r.URL.Query().Get("as_of")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	at := h.Service.Now()
	if asOf != nil {
		at = *asOf
	}
	loans, err := h.Service.OverdueLoans(r.Context(), at)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(loans, toLoanDTO))
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	l, err := h.Service.GetLoan(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// ApplyForLoan files a loan application after the eligibility check.
func (h *Handler) ApplyForLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req LoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.Service.ApplyForLoan(r.Context(), welfare.LoanApplication{
		MemberID:          req.MemberID,
		Amount:            req.Amount,
		RepaymentMode:     welfare.RepaymentMode(req.RepaymentMode),
		InstallmentAmount: req.InstallmentAmount,
		RepaymentPeriod:   req.RepaymentPeriod,
		Purpose:           req.Purpose,
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

type loanAction func(*welfare.Service, context.Context, int64, generic.Actor) (*welfare.Loan, error)

// loanActionHandler adapts a no-body loan transition.
func (h *Handler) loanActionHandler(fn loanAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		l, err := fn(h.Service, r.Context(), id, actor)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLoanDTO(l))
	}
}

// RecordRepayment adds a repayment; the loan closes itself once repaid.
func (h *Handler) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req RepaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDateField("payment_date", req.PaymentDate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	l, err := h.Service.RecordRepayment(r.Context(), id, welfare.LoanRepayment{
		Amount:      req.Amount,
		PaymentDate: date,
		Reference:   req.Reference,
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

// =============================================================================
// PROVIDER & CLAIM HANDLERS
// =============================================================================

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.Service.ListProviders(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(providers, toProviderDTO))
}

func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Service.GetProvider(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProviderDTO(p))
}

func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ProviderRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Service.CreateProvider(r.Context(), welfare.HealthcareProvider{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Active:  boolOr(req.Active, true),
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProviderDTO(p))
}

func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	memberID, ok := queryID(w, r, "member_id")
	if !ok {
		return
	}
	claims, err := h.Service.ListClaims(r.Context(), welfare.ClaimFilter{
		MemberID: memberID,
		Status:   welfare.ClaimStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(claims, toClaimDTO))
}

func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.GetClaim(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(c))
}

// SubmitClaim files a claim. Coverage defaults to 90% when omitted.
func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ClaimRequest
	if !h.decode(w, r, &req) {
		return
	}
	treatment, err := parseDateField("treatment_date", req.TreatmentDate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	c, err := h.Service.SubmitClaim(r.Context(), welfare.ClaimDraft{
		MemberID:        req.MemberID,
		DependentID:     req.DependentID,
		ProviderID:      req.ProviderID,
		ClaimType:       welfare.ClaimType(req.ClaimType),
		TreatmentDate:   treatment,
		Diagnosis:       req.Diagnosis,
		BilledAmount:    req.BilledAmount,
		CoveragePercent: req.CoveragePercent,
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClaimDTO(c))
}

func (h *Handler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateClaimRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.UpdateClaim(r.Context(), id, welfare.ClaimUpdate{
		BilledAmount:    req.BilledAmount,
		CoveragePercent: req.CoveragePercent,
		Diagnosis:       req.Diagnosis,
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(c))
}

func (h *Handler) ApproveClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req NotesRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.ApproveClaim(r.Context(), id, actor, req.Notes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(c))
}

func (h *Handler) RejectClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.RejectClaim(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(c))
}

func (h *Handler) PayClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.PayClaim(r.Context(), id, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(c))
}

// AttachClaimDocument records metadata for a file stored elsewhere.
func (h *Handler) AttachClaimDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req DocumentRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.Service.AttachClaimDocument(r.Context(), id, welfare.ClaimDocument{
		FilePath: req.FilePath,
		Type:     req.Type,
		Size:     req.Size,
		MimeType: req.MimeType,
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(d))
}

// =============================================================================
// CASHOUT HANDLERS
// =============================================================================

func (h *Handler) ListCashouts(w http.ResponseWriter, r *http.Request) {
	memberID, ok := queryID(w, r, "member_id")
	if !ok {
		return
	}
	list, err := h.Service.ListCashouts(r.Context(), welfare.CashoutFilter{
		MemberID: memberID,
		Status:   welfare.CashoutStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toCashoutDTO))
}

func (h *Handler) GetCashout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.GetCashout(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashoutDTO(c))
}

func (h *Handler) RequestCashout(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CashoutRequestRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.RequestCashout(r.Context(), req.MemberID, req.Amount, req.Reason, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCashoutDTO(c))
}

func (h *Handler) VerifyCashout(w http.ResponseWriter, r *http.Request) {
	h.cashoutNotes(w, r, (*welfare.Service).VerifyCashout)
}

func (h *Handler) DisburseCashout(w http.ResponseWriter, r *http.Request) {
	h.cashoutNotes(w, r, (*welfare.Service).DisburseCashout)
}

func (h *Handler) cashoutNotes(w http.ResponseWriter, r *http.Request,
	fn func(*welfare.Service, context.Context, int64, generic.Actor, string) (*welfare.CashoutRequest, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req NotesRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := fn(h.Service, r.Context(), id, actor, req.Notes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashoutDTO(c))
}

// ApproveCashout approves a verified request, optionally for a lower amount.
func (h *Handler) ApproveCashout(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ApproveCashoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.ApproveCashout(r.Context(), id, actor, req.Amount, req.Notes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashoutDTO(c))
}

func (h *Handler) RejectCashout(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.RejectCashout(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCashoutDTO(c))
}

// =============================================================================
// APPROVAL HANDLERS
// =============================================================================

// ListApprovals requires ?subject_type= and ?subject_id=.
func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := queryID(w, r, "subject_id")
	if !ok {
		return
	}
	if subjectID == nil {
		writeError(w, http.StatusBadRequest, "subject_type and subject_id are required", nil)
		return
	}
	subject, err := welfare.SubjectFrom(welfare.SubjectKind(r.URL.Query().Get("subject_type")), *subjectID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	list, err := h.Service.ListApprovals(r.Context(), subject)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toApprovalDTO))
}

func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.Service.GetApproval(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalDTO(a))
}

// RecordApproval opens a pending approval step; the actor is the approver.
func (h *Handler) RecordApproval(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ApprovalRequest
	if !h.decode(w, r, &req) {
		return
	}
	subject, err := welfare.SubjectFrom(welfare.SubjectKind(req.SubjectType), req.SubjectID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	a, err := h.Service.RecordApproval(r.Context(), subject, welfare.ApprovalLevel(req.Level), actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApprovalDTO(a))
}

func (h *Handler) DecideApproval(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req DecideApprovalRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.Service.DecideApproval(r.Context(), id, welfare.ApprovalStatus(req.Decision), actor, req.Comments)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalDTO(a))
}

// =============================================================================
// PROGRAM HANDLERS
// =============================================================================

func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.Service.ListPrograms(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(programs, toProgramDTO))
}

func (h *Handler) GetProgram(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Service.GetProgram(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgramDTO(p))
}

// CreateProgram accepts eligibility rules as loose JSON; numbers may be
// strings ("3") and are normalized by the domain parser.
func (h *Handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ProgramRequest
	if !h.decode(w, r, &req) {
		return
	}
	rules, err := welfare.ParseEligibilityRules(req.EligibilityRules)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	p := welfare.Program{
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		Rules:       rules,
		Active:      boolOr(req.Active, true),
	}
	if p.StartDate, err = parseOptionalDate("start_date", req.StartDate); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if p.EndDate, err = parseOptionalDate("end_date", req.EndDate); err != nil {
		h.writeServiceError(w, err)
		return
	}

	created, err := h.Service.CreateProgram(r.Context(), p, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProgramDTO(created))
}

func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.Service.ListEnrollments(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toEnrollmentDTO))
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	programID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req EnrollRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.Service.Enroll(r.Context(), programID, req.MemberID, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEnrollmentDTO(e))
}

type enrollmentAction func(*welfare.Service, context.Context, int64, generic.Actor) (*welfare.Enrollment, error)

func (h *Handler) enrollmentActionHandler(fn enrollmentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		e, err := fn(h.Service, r.Context(), id, actor)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEnrollmentDTO(e))
	}
}
