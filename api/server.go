/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/members/*        Registration, lifecycle, eligibility, dependents
  /api/plans/*          Contribution plans
  /api/contributions/*  Contributions and receipts
  /api/loans/*          Loan workflow
  /api/providers/*      Healthcare providers
  /api/claims/*         Health claim workflow
  /api/cashouts/*       Cashout workflow
  /api/approvals/*      Multi-level approval records
  /api/programs/*       Programs and enrollments
  /api/enrollments/*    Enrollment transitions and certificates
  /api/ledger/*         Fund ledger
  /api/admin/*          Manual sweep
  /health               Liveness and database check

SECURITY NOTE:
  No authentication middleware. The X-Actor-ID header is trusted as-is and
  must be set by an authenticating proxy in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mcdf/welfare-engine/welfare"
)

// NewRouter creates a new router with all routes configured. allowedOrigins
// configures CORS; nil keeps the local development defaults.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.PreRegister)
			r.Get("/{id}", h.GetMember)
			r.Put("/{id}", h.UpdateMember)
			r.Get("/{id}/eligibility", h.GetEligibility)
			r.Post("/{id}/eligibility", h.RecalculateEligibility)
			r.Get("/{id}/dependents", h.ListDependents)
			r.Post("/{id}/dependents", h.SaveDependent)
			r.Put("/{id}/dependents/{did}", h.SaveDependent)
			r.Post("/{id}/{action}", h.TransitionMember)
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", h.ListPlans)
			r.Post("/", h.CreatePlan)
			r.Get("/{id}", h.GetPlan)
		})

		r.Route("/contributions", func(r chi.Router) {
			r.Get("/", h.ListContributions)
			r.Post("/", h.RecordContribution)
			r.Get("/{id}", h.GetContribution)
			r.Put("/{id}", h.UpdateContribution)
			r.Post("/{id}/pay", h.MarkContributionPaid)
			r.Post("/{id}/cancel", h.CancelContribution)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.ListLoans)
			r.Post("/", h.ApplyForLoan)
			r.Get("/overdue", h.ListOverdueLoans)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/approve", h.loanActionHandler((*welfare.Service).ApproveLoan))
			r.Post("/{id}/disburse", h.loanActionHandler((*welfare.Service).DisburseLoan))
			r.Post("/{id}/repaid", h.loanActionHandler((*welfare.Service).MarkLoanRepaid))
			r.Post("/{id}/default", h.loanActionHandler((*welfare.Service).MarkLoanDefaulted))
			r.Post("/{id}/repayments", h.RecordRepayment)
		})

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", h.ListProviders)
			r.Post("/", h.CreateProvider)
			r.Get("/{id}", h.GetProvider)
		})

		r.Route("/claims", func(r chi.Router) {
			r.Get("/", h.ListClaims)
			r.Post("/", h.SubmitClaim)
			r.Get("/{id}", h.GetClaim)
			r.Put("/{id}", h.UpdateClaim)
			r.Post("/{id}/approve", h.ApproveClaim)
			r.Post("/{id}/reject", h.RejectClaim)
			r.Post("/{id}/pay", h.PayClaim)
			r.Post("/{id}/documents", h.AttachClaimDocument)
		})

		r.Route("/cashouts", func(r chi.Router) {
			r.Get("/", h.ListCashouts)
			r.Post("/", h.RequestCashout)
			r.Get("/{id}", h.GetCashout)
			r.Post("/{id}/verify", h.VerifyCashout)
			r.Post("/{id}/approve", h.ApproveCashout)
			r.Post("/{id}/disburse", h.DisburseCashout)
			r.Post("/{id}/reject", h.RejectCashout)
		})

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", h.ListApprovals)
			r.Post("/", h.RecordApproval)
			r.Get("/{id}", h.GetApproval)
			r.Post("/{id}/decide", h.DecideApproval)
		})

		r.Route("/programs", func(r chi.Router) {
			r.Get("/", h.ListPrograms)
			r.Post("/", h.CreateProgram)
			r.Get("/{id}", h.GetProgram)
			r.Get("/{id}/enrollments", h.ListEnrollments)
			r.Post("/{id}/enrollments", h.Enroll)
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Post("/{id}/complete", h.enrollmentActionHandler((*welfare.Service).CompleteEnrollment))
			r.Post("/{id}/withdraw", h.enrollmentActionHandler((*welfare.Service).WithdrawEnrollment))
			r.Post("/{id}/certificate", h.enrollmentActionHandler((*welfare.Service).IssueCertificate))
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/entries", h.ListLedgerEntries)
			r.Post("/entries", h.RecordLedgerEntry)
			r.Post("/entries/{id}/reverse", h.ReverseLedgerEntry)
			r.Get("/balance", h.GetBalance)
			r.Get("/summary", h.GetMonthlySummary)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
		})
	})

	return r
}
