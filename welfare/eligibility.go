/*
eligibility.go - Member eligibility rules

PURPOSE:
  Derives when a member may start filing health claims, whether a given
  claim type is allowed today, and whether a member may take a loan.
  Everything here is a pure function of the member record plus counts the
  caller loaded from the store; nothing is persisted.

RULES:
  Eligibility window:
    is_complete AND status == active AND >= 5 paid contributions with a
    payment date in the trailing 5 months
      => eligibility_start_date = registration_date + 60 days

  Claim eligibility (all rules evaluated, every failure reported):
    1. status == active
    2. >= 60 days since registration (created_at if no registration date)
    3. paid contributions >= 1 (outpatient) or 5 (inpatient/surgery/maternity)

  Loan eligibility (all rules evaluated, every failure reported):
    1. status == active
    2. >= 12 paid contributions in the trailing 12 months
    3. no loan currently approved or disbursed

SEE ALSO:
  - dependent.go: Dependent eligibility follows the member's window
  - eligibility_service.go: Loads the counts and persists the window
*/
package welfare

import (
	"fmt"
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

const (
	WaitingPeriodDays          = 60
	WindowLookbackMonths       = 5
	WindowMinContributions     = 5
	LoanLookbackMonths         = 12
	LoanMinRecentContributions = 12
	OutpatientMinContributions = 1
	MajorClaimMinContributions = 5
)

// =============================================================================
// ELIGIBILITY WINDOW
// =============================================================================

// EligibilityStartDate returns registration_date + 60 days when the member
// qualifies, nil otherwise. recentPaid is the number of paid contributions
// with a payment date in the trailing WindowLookbackMonths.
func EligibilityStartDate(m Member, recentPaid int) *time.Time {
	if !m.IsComplete || m.Status != MemberActive {
		return nil
	}
	if recentPaid < WindowMinContributions {
		return nil
	}
	start := generic.AddDays(m.ReferenceDate(), WaitingPeriodDays)
	return &start
}

// LookbackStart returns the first day of a trailing window of months.
func LookbackStart(asOf time.Time, months int) time.Time {
	return generic.AddMonths(asOf, -months)
}

// =============================================================================
// CLAIM ELIGIBILITY
// =============================================================================

// RequiredContributions is the paid-contribution minimum for a claim type.
func RequiredContributions(ct ClaimType) int {
	if ct == ClaimOutpatient {
		return OutpatientMinContributions
	}
	return MajorClaimMinContributions
}

type ClaimEligibility struct {
	Eligible              bool
	Issues                []string
	DaysSinceRegistration int
	ContributionCount     int
	RequiredContributions int
}

// Err converts a failed check into an *generic.EligibilityError.
func (e ClaimEligibility) Err(subject string) error {
	if e.Eligible {
		return nil
	}
	return &generic.EligibilityError{Subject: subject, Issues: e.Issues}
}

// CheckClaimEligibility evaluates every claim rule and collects the failures.
func CheckClaimEligibility(m Member, ct ClaimType, paidCount int, asOf time.Time) ClaimEligibility {
	result := ClaimEligibility{
		DaysSinceRegistration: generic.DaysBetween(m.ReferenceDate(), asOf),
		ContributionCount:     paidCount,
		RequiredContributions: RequiredContributions(ct),
	}

	if !ct.Valid() {
		result.Issues = append(result.Issues, fmt.Sprintf("unknown claim type %q", ct))
	}
	if m.Status != MemberActive {
		result.Issues = append(result.Issues, fmt.Sprintf("membership status is %s, must be active", m.Status))
	}
	if result.DaysSinceRegistration < WaitingPeriodDays {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"registered %d days ago, must wait %d days before claiming",
			result.DaysSinceRegistration, WaitingPeriodDays))
	}
	if paidCount < result.RequiredContributions {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"%d paid contributions, %s claims require at least %d",
			paidCount, ct, result.RequiredContributions))
	}

	result.Eligible = len(result.Issues) == 0
	return result
}

// =============================================================================
// LOAN ELIGIBILITY
// =============================================================================

type LoanEligibility struct {
	Eligible            bool
	Issues              []string
	RecentContributions int
	OpenLoans           int
}

func (e LoanEligibility) Err(subject string) error {
	if e.Eligible {
		return nil
	}
	return &generic.EligibilityError{Subject: subject, Issues: e.Issues}
}

// CheckLoanEligibility evaluates every loan rule and collects the failures.
// openLoans counts the member's loans in approved or disbursed status.
func CheckLoanEligibility(m Member, recentPaid, openLoans int) LoanEligibility {
	result := LoanEligibility{RecentContributions: recentPaid, OpenLoans: openLoans}

	if m.Status != MemberActive {
		result.Issues = append(result.Issues, fmt.Sprintf("membership status is %s, must be active", m.Status))
	}
	if recentPaid < LoanMinRecentContributions {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"%d paid contributions in the last %d months, at least %d required",
			recentPaid, LoanLookbackMonths, LoanMinRecentContributions))
	}
	if openLoans > 0 {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"member has %d loan(s) approved or disbursed, settle them first", openLoans))
	}

	result.Eligible = len(result.Issues) == 0
	return result
}
