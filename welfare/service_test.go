package welfare_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/store/sqlite"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const admin = generic.Actor("admin-1")

var serviceNow = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t    *testing.T
	ctx  context.Context
	svc  *welfare.Service
	plan *welfare.ContributionPlan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := welfare.NewService(store, nil)
	svc.Clock = generic.FixedClock(serviceNow)

	ctx := context.Background()
	plan, err := svc.CreatePlan(ctx, welfare.ContributionPlan{
		Name:      "Monthly",
		Frequency: generic.FrequencyMonthly,
		Amount:    money(1000),
		Active:    true,
	}, admin)
	require.NoError(t, err)

	return &fixture{t: t, ctx: ctx, svc: svc, plan: plan}
}

// activeMember pre-registers, completes and approves a member.
func (f *fixture) activeMember(name string, registered time.Time) *welfare.Member {
	f.t.Helper()
	planID := f.plan.ID
	m, err := f.svc.PreRegister(f.ctx, welfare.Member{
		FullName:         name,
		PlanID:           &planID,
		RegistrationDate: registered,
		Bank:             welfare.BankAccount{AccountNumber: "0123456789", AccountName: name, BankName: "First Bank"},
	}, admin)
	require.NoError(f.t, err)
	_, err = f.svc.CompleteRegistration(f.ctx, m.ID, admin)
	require.NoError(f.t, err)
	m, err = f.svc.ApproveMember(f.ctx, m.ID, admin)
	require.NoError(f.t, err)
	return m
}

// payMonths records n paid plan contributions, one per month, the latest
// paid on 2024-05-20.
func (f *fixture) payMonths(memberID int64, n int) []*welfare.Contribution {
	f.t.Helper()
	var out []*welfare.Contribution
	for i := n - 1; i >= 0; i-- {
		c, err := f.svc.RecordContribution(f.ctx, welfare.ContributionInput{
			MemberID:    memberID,
			PaymentDate: generic.AddMonths(day(2024, time.May, 20), -i),
			Status:      welfare.ContributionPaid,
		}, admin)
		require.NoError(f.t, err)
		out = append(out, c)
	}
	return out
}

func (f *fixture) balance() decimal.Decimal {
	f.t.Helper()
	b, err := f.svc.CurrentBalance(f.ctx)
	require.NoError(f.t, err)
	return b
}

// =============================================================================
// MEMBERS
// =============================================================================

func TestService_RegistrationAndEligibilityWindow(t *testing.T) {
	// GIVEN: a member registered 2024-01-01 and approved
	// WHEN: five monthly contributions are paid
	// THEN: the eligibility window opens on 2024-03-01
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))

	assert.Equal(t, "MCDF/00001", m.RegistrationNumber)
	assert.Equal(t, welfare.MemberActive, m.Status)
	assert.True(t, m.IsComplete)
	assert.Nil(t, m.EligibilityStartDate)

	f.payMonths(m.ID, 5)

	got, err := f.svc.GetMember(f.ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EligibilityStartDate)
	assert.Equal(t, day(2024, time.March, 1), *got.EligibilityStartDate)

	// Suspension closes the window.
	got, err = f.svc.SuspendMember(f.ctx, m.ID, admin)
	require.NoError(t, err)
	assert.Nil(t, got.EligibilityStartDate)
}

func TestService_RegistrationNumbersIncrease(t *testing.T) {
	f := newFixture(t)
	first := f.activeMember("Ada Obi", day(2024, time.January, 1))
	second := f.activeMember("Bayo Ade", day(2024, time.January, 2))

	assert.Equal(t, "MCDF/00001", first.RegistrationNumber)
	assert.Equal(t, "MCDF/00002", second.RegistrationNumber)
}

func TestService_TransitionMember_NotFoundAndInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApproveMember(f.ctx, 999, admin)
	assert.True(t, generic.IsNotFound(err))

	m := f.activeMember("Ada Obi", day(2024, time.January, 1))
	_, err = f.svc.ApproveMember(f.ctx, m.ID, admin)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	_, err = f.svc.ApproveMember(f.ctx, m.ID, "")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestService_SaveDependent_DerivesCoverage(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))

	spouse, err := f.svc.SaveDependent(f.ctx, welfare.Dependent{
		MemberID:     m.ID,
		FullName:     "Chidi Obi",
		Relationship: welfare.RelationshipSpouse,
		DateOfBirth:  day(1990, time.April, 2),
		Eligible:     true,
	}, admin)
	require.NoError(t, err)
	assert.False(t, spouse.Eligible, "member has no eligibility window yet")

	f.payMonths(m.ID, 5)

	deps, err := f.svc.ListDependents(f.ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.True(t, deps[0].Eligible)
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

func TestService_RecordContribution_PostsToLedger(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))

	paid := f.payMonths(m.ID, 3)

	assert.True(t, f.balance().Equal(money(3000)))
	for _, c := range paid {
		assert.Equal(t, f.plan.ID, c.PlanID)
		assert.True(t, c.Amount.Equal(money(1000)), "amount defaults from the plan")
		assert.Equal(t, 20, c.PaymentDate.Day())
		assert.Equal(t, 1, c.PeriodStart.Day())
	}

	entries, err := f.svc.LedgerEntries(f.ctx, generic.EntryFilter{MemberID: &m.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestService_ReceiptNumbersStrictlyIncrease(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))

	paid := f.payMonths(m.ID, 6)

	key := generic.MonthlyKey(welfare.ReceiptPrefix, serviceNow)
	var last string
	for _, c := range paid {
		require.True(t, strings.HasPrefix(c.ReceiptNumber, key), c.ReceiptNumber)
		assert.Greater(t, c.ReceiptNumber, last)
		last = c.ReceiptNumber
	}
	assert.Equal(t, "RCP2024060001", paid[0].ReceiptNumber)
}

func TestService_LateContribution_FineCollectedOnPayment(t *testing.T) {
	// GIVEN: a pending January contribution paid 15 February
	// WHEN: it is marked paid
	// THEN: amount and fine both reach the ledger
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))

	c, err := f.svc.RecordContribution(f.ctx, welfare.ContributionInput{
		MemberID:    m.ID,
		PaymentDate: day(2024, time.February, 15),
		PeriodStart: ptr(day(2024, time.January, 1)),
		PeriodEnd:   ptr(day(2024, time.January, 31)),
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, welfare.ContributionPending, c.Status)
	assert.True(t, c.FineAmount.Equal(money(500)))
	assert.True(t, f.balance().IsZero(), "pending contributions are not posted")

	c, err = f.svc.MarkContributionPaid(f.ctx, c.ID, nil, admin)
	require.NoError(t, err)
	assert.Equal(t, welfare.ContributionPaid, c.Status)
	assert.True(t, f.balance().Equal(money(1500)))

	_, err = f.svc.MarkContributionPaid(f.ctx, c.ID, nil, admin)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	assert.True(t, f.balance().Equal(money(1500)))
}

func TestService_RecordContribution_RejectsHalfPeriod(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))

	_, err := f.svc.RecordContribution(f.ctx, welfare.ContributionInput{
		MemberID:    m.ID,
		PaymentDate: day(2024, time.February, 15),
		PeriodStart: ptr(day(2024, time.January, 1)),
	}, admin)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestService_MarkOverdueContributions(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))

	may, err := f.svc.RecordContribution(f.ctx, welfare.ContributionInput{
		MemberID:    m.ID,
		PaymentDate: day(2024, time.May, 10),
	}, admin)
	require.NoError(t, err)
	june, err := f.svc.RecordContribution(f.ctx, welfare.ContributionInput{
		MemberID:    m.ID,
		PaymentDate: day(2024, time.June, 10),
	}, admin)
	require.NoError(t, err)

	marked, err := f.svc.MarkOverdueContributions(f.ctx, serviceNow)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	got, err := f.svc.GetContribution(f.ctx, may.ID)
	require.NoError(t, err)
	assert.Equal(t, welfare.ContributionOverdue, got.Status)

	got, err = f.svc.GetContribution(f.ctx, june.ID)
	require.NoError(t, err)
	assert.Equal(t, welfare.ContributionPending, got.Status)

	marked, err = f.svc.MarkOverdueContributions(f.ctx, serviceNow)
	require.NoError(t, err)
	assert.Zero(t, marked)
}

// =============================================================================
// LOANS
// =============================================================================

func TestService_LoanLifecycle(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2023, time.June, 1))
	f.payMonths(m.ID, 12)

	loan, err := f.svc.ApplyForLoan(f.ctx, welfare.LoanApplication{
		MemberID:        m.ID,
		Amount:          money(6000),
		RepaymentPeriod: "6 months",
		Purpose:         "farm inputs",
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, welfare.LoanPending, loan.Status)
	assert.Equal(t, welfare.RepaymentInstallments, loan.RepaymentMode)
	assert.True(t, loan.InstallmentAmount.Equal(money(1000)))

	_, err = f.svc.ApproveLoan(f.ctx, loan.ID, admin)
	require.NoError(t, err)
	loan, err = f.svc.DisburseLoan(f.ctx, loan.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, welfare.LoanDisbursed, loan.Status)
	assert.True(t, f.balance().Equal(money(6000)), "12000 in, 6000 out")

	loan, err = f.svc.RecordRepayment(f.ctx, loan.ID, welfare.LoanRepayment{Amount: money(2500), PaymentDate: day(2024, time.June, 14)}, admin)
	require.NoError(t, err)
	assert.True(t, loan.OutstandingBalance().Equal(money(3500)))
	assert.Equal(t, welfare.LoanDisbursed, loan.Status)

	loan, err = f.svc.RecordRepayment(f.ctx, loan.ID, welfare.LoanRepayment{Amount: money(3500), PaymentDate: day(2024, time.June, 15)}, admin)
	require.NoError(t, err)
	assert.Equal(t, welfare.LoanRepaid, loan.Status)
	assert.True(t, loan.OutstandingBalance().IsZero())
	assert.True(t, f.balance().Equal(money(12000)))

	got, err := f.svc.GetLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, got.Repayments, 2)
	assert.Equal(t, welfare.LoanRepaid, got.Status)
}

func TestService_ApplyForLoan_ReportsEveryIssue(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))
	f.payMonths(m.ID, 5)

	_, err := f.svc.ApplyForLoan(f.ctx, welfare.LoanApplication{MemberID: m.ID, Amount: money(6000), RepaymentPeriod: "6 months"}, admin)

	var elig *generic.EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Len(t, elig.Issues, 1)

	loans, err := f.svc.ListLoans(f.ctx, welfare.LoanFilter{MemberID: &m.ID})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestService_ApplyForLoan_OneOpenLoanAtATime(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2023, time.June, 1))
	f.payMonths(m.ID, 12)

	first, err := f.svc.ApplyForLoan(f.ctx, welfare.LoanApplication{MemberID: m.ID, Amount: money(3000), RepaymentPeriod: "3 months"}, admin)
	require.NoError(t, err)
	_, err = f.svc.ApproveLoan(f.ctx, first.ID, admin)
	require.NoError(t, err)

	_, err = f.svc.ApplyForLoan(f.ctx, welfare.LoanApplication{MemberID: m.ID, Amount: money(1000), RepaymentPeriod: "3 months"}, admin)
	assert.ErrorIs(t, err, generic.ErrIneligible)
}

func TestService_OverdueLoans(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2023, time.June, 1))
	f.payMonths(m.ID, 12)

	loan, err := f.svc.ApplyForLoan(f.ctx, welfare.LoanApplication{MemberID: m.ID, Amount: money(2000), RepaymentPeriod: "2 months"}, admin)
	require.NoError(t, err)
	_, err = f.svc.ApproveLoan(f.ctx, loan.ID, admin)
	require.NoError(t, err)
	_, err = f.svc.DisburseLoan(f.ctx, loan.ID, admin)
	require.NoError(t, err)

	overdue, err := f.svc.OverdueLoans(f.ctx, day(2024, time.August, 15))
	require.NoError(t, err)
	assert.Empty(t, overdue, "due on the 15th")

	overdue, err = f.svc.OverdueLoans(f.ctx, day(2024, time.August, 16))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, loan.ID, overdue[0].ID)
}

// =============================================================================
// CLAIMS
// =============================================================================

func TestService_ClaimLifecycle(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))
	f.payMonths(m.ID, 5)

	provider, err := f.svc.CreateProvider(f.ctx, welfare.HealthcareProvider{Name: "General Hospital", Active: true}, admin)
	require.NoError(t, err)

	claim, err := f.svc.SubmitClaim(f.ctx, welfare.ClaimDraft{
		MemberID:      m.ID,
		ProviderID:    provider.ID,
		ClaimType:     welfare.ClaimSurgery,
		TreatmentDate: day(2024, time.June, 1),
		BilledAmount:  money(20000),
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, "CLM2024060001", claim.ClaimNumber)
	assert.True(t, claim.CoveredAmount.Equal(money(18000)))
	assert.True(t, claim.CopayAmount.Equal(money(2000)))

	_, err = f.svc.AttachClaimDocument(f.ctx, claim.ID, welfare.ClaimDocument{
		FilePath: "claims/1/invoice.pdf", Type: "invoice", Size: 2048, MimeType: "application/pdf",
	}, admin)
	require.NoError(t, err)

	_, err = f.svc.ApproveClaim(f.ctx, claim.ID, admin, "reviewed")
	require.NoError(t, err)
	claim, err = f.svc.PayClaim(f.ctx, claim.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, welfare.ClaimPaid, claim.Status)

	assert.True(t, f.balance().Equal(money(5000-18000)))

	got, err := f.svc.GetClaim(f.ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 1)
}

func TestService_ZeroCoverageClaimPaysNothing(t *testing.T) {
	// GIVEN: an eligible member filing with coverage_percent 0
	// WHEN: the claim is approved and paid
	// THEN: no health_claim outflow is posted and the balance is unchanged
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))
	f.payMonths(m.ID, 5)

	provider, err := f.svc.CreateProvider(f.ctx, welfare.HealthcareProvider{Name: "General Hospital", Active: true}, admin)
	require.NoError(t, err)

	claim, err := f.svc.SubmitClaim(f.ctx, welfare.ClaimDraft{
		MemberID:        m.ID,
		ProviderID:      provider.ID,
		ClaimType:       welfare.ClaimSurgery,
		TreatmentDate:   day(2024, time.June, 1),
		BilledAmount:    money(20000),
		CoveragePercent: ptr(decimal.Zero),
	}, admin)
	require.NoError(t, err)
	assert.True(t, claim.CoveredAmount.IsZero(), "covered %s", claim.CoveredAmount)
	assert.True(t, claim.CopayAmount.Equal(money(20000)))

	_, err = f.svc.ApproveClaim(f.ctx, claim.ID, admin, "")
	require.NoError(t, err)
	_, err = f.svc.PayClaim(f.ctx, claim.ID, admin)
	require.NoError(t, err)

	assert.True(t, f.balance().Equal(money(5000)))
}

func TestService_SubmitClaim_Ineligible(t *testing.T) {
	// GIVEN: a member registered 2 weeks ago without contributions
	// THEN: the waiting period and contribution count are both reported
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.June, 1))
	provider, err := f.svc.CreateProvider(f.ctx, welfare.HealthcareProvider{Name: "General Hospital", Active: true}, admin)
	require.NoError(t, err)

	_, err = f.svc.SubmitClaim(f.ctx, welfare.ClaimDraft{
		MemberID:      m.ID,
		ProviderID:    provider.ID,
		ClaimType:     welfare.ClaimOutpatient,
		TreatmentDate: day(2024, time.June, 10),
		BilledAmount:  money(3000),
	}, admin)

	var elig *generic.EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Len(t, elig.Issues, 2)

	claims, err := f.svc.ListClaims(f.ctx, welfare.ClaimFilter{MemberID: &m.ID})
	require.NoError(t, err)
	assert.Empty(t, claims)
}

// =============================================================================
// CASHOUTS
// =============================================================================

func TestService_CashoutLifecycle(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))
	f.payMonths(m.ID, 5)

	eligible, err := f.svc.EligibleCashout(f.ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, eligible.Equal(money(5000)))

	r, err := f.svc.RequestCashout(f.ctx, m.ID, money(4000), "school fees", admin)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", r.Bank.AccountNumber)

	_, err = f.svc.RequestCashout(f.ctx, m.ID, money(500), "again", admin)
	assert.ErrorIs(t, err, generic.ErrConflict, "one open request per member")

	_, err = f.svc.VerifyCashout(f.ctx, r.ID, "officer-1", "")
	require.NoError(t, err)
	_, err = f.svc.ApproveCashout(f.ctx, r.ID, admin, nil, "")
	require.NoError(t, err)
	r, err = f.svc.DisburseCashout(f.ctx, r.ID, "finance-1", "sent")
	require.NoError(t, err)
	assert.Equal(t, welfare.CashoutDisbursed, r.Status)

	member, err := f.svc.GetMember(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, member.CashoutCount)
	require.NotNil(t, member.LastCashoutDate)
	assert.Equal(t, day(2024, time.June, 15), *member.LastCashoutDate)
	assert.True(t, f.balance().Equal(money(1000)))

	// A disbursed request cannot be rejected and stays as it was.
	_, err = f.svc.RejectCashout(f.ctx, r.ID, admin, "too late")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	got, err := f.svc.GetCashout(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, welfare.CashoutDisbursed, got.Status)
	assert.Nil(t, got.Rejected)
}

func TestService_RequestCashout_AboveEntitlement(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))
	f.payMonths(m.ID, 2)

	_, err := f.svc.RequestCashout(f.ctx, m.ID, money(2500), "", admin)
	assert.ErrorIs(t, err, generic.ErrIneligible)
}

// =============================================================================
// APPROVALS AND PROGRAMS
// =============================================================================

func TestService_Approvals(t *testing.T) {
	f := newFixture(t)
	m := f.activeMember("Ada Obi", day(2024, time.January, 1))

	_, err := f.svc.RecordApproval(f.ctx, welfare.LoanSubject{LoanID: 42}, welfare.LevelState, "state-1")
	assert.True(t, generic.IsNotFound(err))

	subject := welfare.RegistrationSubject{MemberID: m.ID}
	project, err := f.svc.RecordApproval(f.ctx, subject, welfare.LevelProject, "pm-1")
	require.NoError(t, err)
	_, err = f.svc.RecordApproval(f.ctx, subject, welfare.LevelLocalGovernment, "lg-1")
	require.NoError(t, err)

	decided, err := f.svc.DecideApproval(f.ctx, project.ID, welfare.ApprovalApproved, "pm-1", "fine")
	require.NoError(t, err)
	assert.Equal(t, welfare.ApprovalApproved, decided.Status)

	all, err := f.svc.ListApprovals(f.ctx, subject)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_ProgramEnrollment(t *testing.T) {
	f := newFixture(t)
	ada := f.activeMember("Ada Obi", day(2024, time.January, 1))
	bayo := f.activeMember("Bayo Ade", day(2024, time.January, 1))
	f.payMonths(ada.ID, 2)

	rules, err := welfare.ParseEligibilityRules(map[string]any{"min_contributions": 1})
	require.NoError(t, err)
	program, err := f.svc.CreateProgram(f.ctx, welfare.Program{Name: "Tailoring", Capacity: 1, Rules: rules, Active: true}, admin)
	require.NoError(t, err)

	_, err = f.svc.Enroll(f.ctx, program.ID, bayo.ID, admin)
	assert.ErrorIs(t, err, generic.ErrIneligible, "no contributions yet")

	e, err := f.svc.Enroll(f.ctx, program.ID, ada.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, welfare.EnrollmentEnrolled, e.Status)

	_, err = f.svc.Enroll(f.ctx, program.ID, ada.ID, admin)
	assert.ErrorIs(t, err, generic.ErrConflict)

	_, err = f.svc.IssueCertificate(f.ctx, e.ID, admin)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	_, err = f.svc.CompleteEnrollment(f.ctx, e.ID, admin)
	require.NoError(t, err)
	e, err = f.svc.IssueCertificate(f.ctx, e.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, "CRT2024060001", e.CertificateNumber)

	_, err = f.svc.IssueCertificate(f.ctx, e.ID, admin)
	assert.ErrorIs(t, err, generic.ErrConflict)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestService_ReverseEntry(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.RecordEntry(f.ctx, generic.Entry{
		Type:            generic.EntryInflow,
		Source:          "donation",
		Amount:          money(750),
		TransactionDate: day(2024, time.June, 1),
		IdempotencyKey:  "donation-1",
	}, admin)
	require.NoError(t, err)
	assert.True(t, f.balance().Equal(money(750)))

	_, err = f.svc.RecordEntry(f.ctx, generic.Entry{
		Type:            generic.EntryInflow,
		Source:          "donation",
		Amount:          money(750),
		TransactionDate: day(2024, time.June, 1),
		IdempotencyKey:  "donation-1",
	}, admin)
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	_, err = f.svc.ReverseEntry(f.ctx, e.ID, admin, "")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.svc.ReverseEntry(f.ctx, e.ID, admin, "bounced")
	require.NoError(t, err)
	assert.True(t, f.balance().IsZero())
}
