/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Actor header and request validation (400)
- Error mapping: not found (404), invalid transition (409), ineligible (422)
- Registration, contribution and balance round trip
- Manual overdue sweep
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/logging"
	"github.com/mcdf/welfare-engine/store/sqlite"
	"github.com/mcdf/welfare-engine/welfare"
)

var apiNow = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

type testAPI struct {
	t      *testing.T
	router http.Handler
	svc    *welfare.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := welfare.NewService(store, nil)
	svc.Clock = generic.FixedClock(apiNow)
	return &testAPI{t: t, router: NewRouter(NewHandler(svc, store, nil), nil), svc: svc}
}

// do sends a request as actor (empty = no header) and returns the recorder.
func (a *testAPI) do(method, path, actor string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// activeMember registers a member on a 1000 monthly plan and approves them.
func (a *testAPI) activeMember() MemberDTO {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/plans", "admin-1", map[string]any{
		"name": "Monthly", "frequency": "monthly", "amount": "1000",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	plan := decodeBody[PlanDTO](a.t, rec)

	rec = a.do(http.MethodPost, "/api/members", "admin-1", map[string]any{
		"full_name": "Ada Obi",
		"plan_id":   plan.ID,
		"bank":      map[string]any{"account_number": "0123456789", "account_name": "Ada Obi", "bank_name": "First Bank"},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decodeBody[MemberDTO](a.t, rec)

	for _, action := range []string{"complete", "approve"} {
		rec = a.do(http.MethodPost, "/api/members/"+itoa(m.ID)+"/"+action, "admin-1", nil)
		require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	}
	return decodeBody[MemberDTO](a.t, rec)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// =============================================================================
// TESTS
// =============================================================================

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreRegister_RequiresActor(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/members", "", map[string]any{"full_name": "Ada Obi"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, ActorHeader)
}

func TestPreRegister_ValidationMessageUsesJSONNames(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/members", "admin-1", map[string]any{"phone": "0800"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "full_name is required", resp.Error)
}

func TestGetMember_NotFound(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodGet, "/api/members/99", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/api/members/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionMember_InvalidTransitionIsConflict(t *testing.T) {
	a := newTestAPI(t)
	m := a.activeMember()
	assert.Equal(t, "active", m.Status)
	assert.Equal(t, "MCDF/00001", m.RegistrationNumber)

	rec := a.do(http.MethodPost, "/api/members/"+itoa(m.ID)+"/approve", "admin-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/members/"+itoa(m.ID)+"/promote", "admin-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContribution_RecordedAndBalanced(t *testing.T) {
	// GIVEN: an active member on a 1000 monthly plan
	// WHEN: a paid contribution is recorded without an amount
	// THEN: the plan amount is posted and the fund balance is 1000
	a := newTestAPI(t)
	m := a.activeMember()

	rec := a.do(http.MethodPost, "/api/contributions", "clerk-1", map[string]any{
		"member_id":    m.ID,
		"payment_date": "2024-06-10",
		"status":       "paid",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decodeBody[ContributionDTO](t, rec)
	assert.Equal(t, "RCP2024060001", c.ReceiptNumber)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "2024-06-01", c.PeriodStart)
	assert.Equal(t, "2024-06-30", c.PeriodEnd)
	assert.Equal(t, "clerk-1", c.RecordedBy)

	rec = a.do(http.MethodGet, "/api/ledger/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decodeBody[struct {
		Balance decimal.Decimal `json:"balance"`
	}](t, rec)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(1000)), "got %s", balance.Balance)
}

func TestApplyForLoan_IneligibleListsIssues(t *testing.T) {
	a := newTestAPI(t)
	m := a.activeMember()

	rec := a.do(http.MethodPost, "/api/loans", "admin-1", map[string]any{
		"member_id":        m.ID,
		"amount":           "60000",
		"repayment_period": "6 months",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Len(t, resp.Issues, 1)
}

func TestRejectCashout_RequiresReason(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/cashouts/1/reject", "admin-1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reason is required", decodeBody[ErrorResponse](t, rec).Error)
}

func TestTriggerSweep(t *testing.T) {
	a := newTestAPI(t)
	m := a.activeMember()

	_, err := a.svc.RecordContribution(context.Background(), welfare.ContributionInput{
		MemberID:    m.ID,
		PaymentDate: generic.NewDate(2024, time.May, 10),
	}, "clerk-1")
	require.NoError(t, err)

	rec := a.do(http.MethodPost, "/api/admin/sweep?as_of=2024-06-01", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[SweepResult](t, rec)
	assert.Equal(t, "2024-06-01", result.AsOf)
	assert.Equal(t, 1, result.OverdueContributions)
	assert.Empty(t, result.OverdueLoans)

	rec = a.do(http.MethodPost, "/api/admin/sweep?as_of=June", "admin-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepScheduler_SweepsOnStart(t *testing.T) {
	a := newTestAPI(t)
	m := a.activeMember()
	c, err := a.svc.RecordContribution(context.Background(), welfare.ContributionInput{
		MemberID:    m.ID,
		PaymentDate: generic.NewDate(2024, time.May, 10),
	}, "clerk-1")
	require.NoError(t, err)

	s := NewSweepScheduler(a.svc, nil)
	s.Start()
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		got, err := a.svc.GetContribution(context.Background(), c.ID)
		return err == nil && got.Status == welfare.ContributionOverdue
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSweepScheduler_Disabled(t *testing.T) {
	a := newTestAPI(t)
	s := NewSweepScheduler(a.svc, nil)
	s.Enabled = false

	s.Start()
	s.Stop()
	assert.Nil(t, s.ticker)
}

func TestWriteServiceError_ClientErrorsLogAtDebug(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAPI(t)
	h := NewHandler(a.svc, nil, logging.NewWithWriter(&buf, "debug"))
	router := NewRouter(h, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/members/99", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.Contains(t, buf.String(), "request rejected")
	assert.NotContains(t, buf.String(), "request failed")
}

func TestAttachClaimDocument_RequiresSizeAndMimeType(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/claims/1/documents", "admin-1", map[string]any{
		"file_path": "claims/1/invoice.pdf",
		"type":      "invoice",
		"size":      0,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "size must be greater than 0; mime_type is required", decodeBody[ErrorResponse](t, rec).Error)
}
