/*
handlers.go - HTTP API handlers for the welfare fund engine

PURPOSE:
  Exposes the welfare services via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to welfare.Service.

ENDPOINTS:
  Members:
    GET    /api/members                        List members (?status=)
    POST   /api/members                        Pre-register a member
    GET    /api/members/{id}                   Member details
    PUT    /api/members/{id}                   Update profile
    POST   /api/members/{id}/{action}          complete | approve | suspend |
                                               deactivate | reactivate | terminate
    GET    /api/members/{id}/eligibility       Claim, loan and cashout eligibility
    POST   /api/members/{id}/eligibility       Recalculate eligibility start date
    GET    /api/members/{id}/dependents        List dependents
    POST   /api/members/{id}/dependents        Add dependent
    PUT    /api/members/{id}/dependents/{did}  Update dependent

  Contributions:
    GET/POST /api/plans, GET /api/plans/{id}
    GET/POST /api/contributions, GET/PUT /api/contributions/{id}
    POST   /api/contributions/{id}/pay | cancel

  Ledger:
    GET    /api/ledger/entries                 Filtered entries
    POST   /api/ledger/entries                 Manual entry
    POST   /api/ledger/entries/{id}/reverse    Reverse an entry
    GET    /api/ledger/balance                 Balance (?as_of=)
    GET    /api/ledger/summary                 Monthly summary (?year=&month=)

  Workflows (workflow_handlers.go):
    loans, providers, claims, cashouts, approvals, programs, enrollments

  Admin:
    POST   /api/admin/sweep                    Run the overdue sweep now

ACTOR:
  Every write names its actor in the X-Actor-ID header. The actor is passed
  explicitly into the service call; there is no ambient user.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, missing actor
  - 404: Entity not found
  - 409: Invalid transition, uniqueness conflict, concurrent modification
  - 422: Eligibility failure (every unmet condition in "issues")
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// ActorHeader names the caller performing a write.
const ActorHeader = "X-Actor-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *welfare.Service
	DB      Pinger
	Logger  *slog.Logger

	validate *validator.Validate
}

// NewHandler creates a handler over the given service.
func NewHandler(svc *welfare.Service, db Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{Service: svc, DB: db, Logger: logger, validate: v}
}

// Health reports liveness and database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns members, optionally filtered by status.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	filter := welfare.MemberFilter{Status: welfare.MemberStatus(r.URL.Query().Get("status"))}
	members, err := h.Service.ListMembers(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(members, toMemberDTO))
}

// GetMember returns a single member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.Service.GetMember(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// PreRegister creates a member in pre_registered status.
func (h *Handler) PreRegister(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req PreRegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	draft := welfare.Member{FullName: req.FullName, Phone: req.Phone, PlanID: req.PlanID}
	if req.Bank != nil {
		draft.Bank = *req.Bank.toDomain()
	}
	if req.DateOfBirth != "" {
		dob, err := parseDateField("date_of_birth", req.DateOfBirth)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		draft.DateOfBirth = &dob
	}

	m, err := h.Service.PreRegister(r.Context(), draft, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

// UpdateMember edits profile fields.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateMemberRequest
	if !h.decode(w, r, &req) {
		return
	}
	u := welfare.MemberUpdate{FullName: req.FullName, Phone: req.Phone, PlanID: req.PlanID, Bank: req.Bank.toDomain()}
	if req.DateOfBirth != nil {
		dob, err := parseDateField("date_of_birth", *req.DateOfBirth)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		u.DateOfBirth = &dob
	}

	m, err := h.Service.UpdateMemberProfile(r.Context(), id, u, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

type memberTransition func(*welfare.Service, context.Context, int64, generic.Actor) (*welfare.Member, error)

var memberActions = map[string]memberTransition{
	"complete":   (*welfare.Service).CompleteRegistration,
	"approve":    (*welfare.Service).ApproveMember,
	"suspend":    (*welfare.Service).SuspendMember,
	"deactivate": (*welfare.Service).DeactivateMember,
	"reactivate": (*welfare.Service).ReactivateMember,
	"terminate":  (*welfare.Service).TerminateMember,
}

// TransitionMember runs a lifecycle action named in the path.
// POST /api/members/{id}/{action}
func (h *Handler) TransitionMember(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	fn, known := memberActions[action]
	if !known {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown member action %q", action), nil)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := fn(h.Service, r.Context(), id, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// GetEligibility reports claim, loan and cashout eligibility together.
// GET /api/members/{id}/eligibility?claim_type=outpatient
func (h *Handler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ct := welfare.ClaimType(r.URL.Query().Get("claim_type"))
	if ct == "" {
		ct = welfare.ClaimOutpatient
	}
	if !ct.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid claim_type %q", ct), nil)
		return
	}

	ctx := r.Context()
	claim, err := h.Service.ClaimEligibility(ctx, id, ct)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	loan, err := h.Service.LoanEligibility(ctx, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	cashout, err := h.Service.EligibleCashout(ctx, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EligibilityDTO{
		MemberID: id,
		Claim: ClaimEligibilityDTO{
			ClaimType:             string(ct),
			Eligible:              claim.Eligible,
			Issues:                nonNil(claim.Issues),
			DaysSinceRegistration: claim.DaysSinceRegistration,
			ContributionCount:     claim.ContributionCount,
			RequiredContributions: claim.RequiredContributions,
		},
		Loan: LoanEligibilityDTO{
			Eligible:            loan.Eligible,
			Issues:              nonNil(loan.Issues),
			RecentContributions: loan.RecentContributions,
			OpenLoans:           loan.OpenLoans,
		},
		Cashout: CashoutEligibilityDTO{EligibleAmount: cashout},
	})
}

// RecalculateEligibility refreshes the member's eligibility start date.
func (h *Handler) RecalculateEligibility(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.Service.RecalculateEligibility(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// =============================================================================
// DEPENDENT HANDLERS
// =============================================================================

func (h *Handler) ListDependents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	deps, err := h.Service.ListDependents(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(deps, toDependentDTO))
}

// SaveDependent creates a dependent, or updates one when {did} is in the path.
func (h *Handler) SaveDependent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var depID int64
	if chi.URLParam(r, "did") != "" {
		if depID, ok = pathID(w, r, "did"); !ok {
			return
		}
	}
	var req DependentRequest
	if !h.decode(w, r, &req) {
		return
	}
	dob, err := parseDateField("date_of_birth", req.DateOfBirth)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	d, err := h.Service.SaveDependent(r.Context(), welfare.Dependent{
		ID:           depID,
		MemberID:     memberID,
		FullName:     req.FullName,
		Relationship: welfare.Relationship(req.Relationship),
		DateOfBirth:  dob,
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if depID != 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, toDependentDTO(d))
}

// =============================================================================
// PLAN & CONTRIBUTION HANDLERS
// =============================================================================

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Service.ListPlans(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(plans, toPlanDTO))
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Service.GetPlan(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(p))
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req PlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Service.CreatePlan(r.Context(), welfare.ContributionPlan{
		Name:      req.Name,
		Frequency: generic.Frequency(req.Frequency),
		Amount:    req.Amount,
		Active:    boolOr(req.Active, true),
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(p))
}

// ListContributions filters by ?member_id= and ?status=.
func (h *Handler) ListContributions(w http.ResponseWriter, r *http.Request) {
	memberID, ok := queryID(w, r, "member_id")
	if !ok {
		return
	}
	list, err := h.Service.ListContributions(r.Context(), welfare.ContributionFilter{
		MemberID: memberID,
		Status:   welfare.ContributionStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toContributionDTO))
}

func (h *Handler) GetContribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.GetContribution(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionDTO(c))
}

// RecordContribution records a payment and issues its receipt number.
func (h *Handler) RecordContribution(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ContributionRequest
	if !h.decode(w, r, &req) {
		return
	}
	paymentDate, err := parseDateField("payment_date", req.PaymentDate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	periodStart, err := parseOptionalDate("period_start", req.PeriodStart)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	periodEnd, err := parseOptionalDate("period_end", req.PeriodEnd)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	c, err := h.Service.RecordContribution(r.Context(), welfare.ContributionInput{
		MemberID:    req.MemberID,
		Amount:      req.Amount,
		PaymentDate: paymentDate,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      welfare.ContributionStatus(req.Status),
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContributionDTO(c))
}

func (h *Handler) UpdateContribution(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateContributionRequest
	if !h.decode(w, r, &req) {
		return
	}
	u := welfare.ContributionUpdate{Amount: req.Amount}
	var err error
	if u.PaymentDate, err = parseOptionalDate("payment_date", req.PaymentDate); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if u.PeriodStart, err = parseOptionalDate("period_start", req.PeriodStart); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if u.PeriodEnd, err = parseOptionalDate("period_end", req.PeriodEnd); err != nil {
		h.writeServiceError(w, err)
		return
	}

	c, err := h.Service.UpdateContribution(r.Context(), id, u, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionDTO(c))
}

// MarkContributionPaid settles a pending or overdue contribution.
func (h *Handler) MarkContributionPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req MarkPaidRequest
	if !h.decode(w, r, &req) {
		return
	}
	paymentDate, err := parseOptionalDate("payment_date", req.PaymentDate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	c, err := h.Service.MarkContributionPaid(r.Context(), id, paymentDate, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionDTO(c))
}

func (h *Handler) CancelContribution(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.CancelContribution(r.Context(), id, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionDTO(c))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListLedgerEntries filters by ?from=&to=&member_id=&type=&source=.
func (h *Handler) ListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := generic.EntryFilter{Type: generic.EntryType(q.Get("type")), Source: q.Get("source")}

	var err error
	if filter.From, err = parseOptionalDate("from", nonEmpty(q.Get("from"))); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if filter.To, err = parseOptionalDate("to", nonEmpty(q.Get("to"))); err != nil {
		h.writeServiceError(w, err)
		return
	}
	memberID, ok := queryID(w, r, "member_id")
	if !ok {
		return
	}
	filter.MemberID = memberID

	entries, err := h.Service.LedgerEntries(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, toEntryDTO))
}

// RecordLedgerEntry posts a manual entry (donations, expenses).
func (h *Handler) RecordLedgerEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req LedgerEntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDateField("transaction_date", req.TransactionDate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	e, err := h.Service.RecordEntry(r.Context(), generic.Entry{
		Type:            generic.EntryType(req.Type),
		Source:          req.Source,
		Amount:          req.Amount,
		TransactionDate: date,
		MemberID:        req.MemberID,
		Reference:       req.Reference,
		Description:     req.Description,
		IdempotencyKey:  req.IdempotencyKey,
	}, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(&e))
}

// ReverseLedgerEntry posts the opposite of an existing entry.
func (h *Handler) ReverseLedgerEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.Service.ReverseEntry(r.Context(), generic.EntryID(chi.URLParam(r, "id")), actor, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(&e))
}

// GetBalance returns the fund balance, as of ?as_of= when given.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseOptionalDate("as_of", nonEmpty(r.URL.Query().Get("as_of")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	var balance decimal.Decimal
	if asOf != nil {
		balance, err = h.Service.BalanceAsOf(r.Context(), *asOf)
	} else {
		balance, err = h.Service.CurrentBalance(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	resp := map[string]any{"balance": balance}
	if asOf != nil {
		resp["as_of"] = generic.FormatDate(*asOf)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMonthlySummary totals one month by type and source.
// GET /api/ledger/summary?year=2024&month=3 (defaults to the current month)
func (h *Handler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	now := h.Service.Now()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			writeError(w, http.StatusBadRequest, "Invalid month (use 1-12)", err)
			return
		}
		month = n
	}

	s, err := h.Service.MonthlySummary(r.Context(), year, time.Month(month))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

// TriggerSweep runs the overdue sweep immediately.
// POST /api/admin/sweep?as_of=YYYY-MM-DD
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseOptionalDate("as_of", nonEmpty(r.URL.Query().Get("as_of")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	at := h.Service.Now()
	if asOf != nil {
		at = *asOf
	}
	result, err := RunSweep(r.Context(), h.Service, at)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps domain errors to HTTP statuses. The message is the
// domain error text, which is written for end users.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if generic.IsClientError(err) || generic.IsNotFound(err) {
		h.Logger.Debug("request rejected", "error", err)
	}
	var elig *generic.EligibilityError
	switch {
	case errors.As(err, &elig):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Issues: elig.Issues})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, generic.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, generic.ErrInvalidTransition),
		errors.Is(err, generic.ErrConflict),
		errors.Is(err, generic.ErrDuplicateIdempotencyKey),
		errors.Is(err, generic.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		h.Logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

// decode reads a JSON body into dst and validates it. An empty body decodes
// to the zero value so optional bodies can be omitted.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, validationMessage(fe))
			}
			writeError(w, http.StatusBadRequest, strings.Join(msgs, "; "), nil)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

func requireActor(w http.ResponseWriter, r *http.Request) (generic.Actor, bool) {
	actor := generic.Actor(strings.TrimSpace(r.Header.Get(ActorHeader)))
	if err := generic.RequireActor(actor); err != nil {
		writeError(w, http.StatusBadRequest, ActorHeader+" header is required", nil)
		return "", false
	}
	return actor, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s %q", name, raw), nil)
		return 0, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s %q", name, raw), nil)
		return nil, false
	}
	return &id, true
}

func parseDateField(field, s string) (time.Time, error) {
	d, err := generic.ParseDate(s)
	if err != nil {
		return time.Time{}, generic.Invalid(field, "must be a date (YYYY-MM-DD), got %q", s)
	}
	return d, nil
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseDateField(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
