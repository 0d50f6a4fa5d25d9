package welfare_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

func TestRegistrationNumber(t *testing.T) {
	assert.Equal(t, "MCDF/00042", welfare.RegistrationNumber(42))
	assert.Equal(t, "MCDF/123456", welfare.RegistrationNumber(123456))
}

func TestMember_RegistrationFlow(t *testing.T) {
	m := welfare.Member{ID: 1, FullName: "Ada Obi", Status: welfare.MemberPreRegistered}

	// No plan selected yet.
	assert.ErrorIs(t, m.Complete(testNow), generic.ErrValidation)
	assert.Equal(t, welfare.MemberPreRegistered, m.Status)

	m.PlanID = ptr(int64(1))
	require.NoError(t, m.Complete(testNow))
	assert.Equal(t, welfare.MemberPending, m.Status)
	assert.True(t, m.IsComplete)

	require.NoError(t, m.Approve(testNow))
	assert.Equal(t, welfare.MemberActive, m.Status)
}

func TestMember_ApproveRequiresPending(t *testing.T) {
	m := welfare.Member{ID: 1, Status: welfare.MemberPreRegistered}
	before := m

	err := m.Approve(testNow)

	var transition *generic.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "approve", transition.Action)
	assert.Equal(t, before, m)
}

func TestMember_LeavingActiveClearsEligibilityWindow(t *testing.T) {
	for name, leave := range map[string]func(*welfare.Member, time.Time) error{
		"suspend":    (*welfare.Member).Suspend,
		"deactivate": (*welfare.Member).Deactivate,
		"terminate":  (*welfare.Member).Terminate,
	} {
		t.Run(name, func(t *testing.T) {
			m := activeMember()
			m.EligibilityStartDate = ptr(day(2024, time.March, 1))

			require.NoError(t, leave(&m, testNow))
			assert.Nil(t, m.EligibilityStartDate)
		})
	}
}

func TestMember_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    welfare.MemberStatus
		act     func(*welfare.Member, time.Time) error
		want    welfare.MemberStatus
		allowed bool
	}{
		{"suspend active", welfare.MemberActive, (*welfare.Member).Suspend, welfare.MemberSuspended, true},
		{"suspend inactive", welfare.MemberInactive, (*welfare.Member).Suspend, "", false},
		{"deactivate suspended", welfare.MemberSuspended, (*welfare.Member).Deactivate, welfare.MemberInactive, true},
		{"reactivate suspended", welfare.MemberSuspended, (*welfare.Member).Reactivate, welfare.MemberActive, true},
		{"reactivate inactive", welfare.MemberInactive, (*welfare.Member).Reactivate, welfare.MemberActive, true},
		{"reactivate active", welfare.MemberActive, (*welfare.Member).Reactivate, "", false},
		{"terminate inactive", welfare.MemberInactive, (*welfare.Member).Terminate, welfare.MemberTerminated, true},
		{"terminate pending", welfare.MemberPending, (*welfare.Member).Terminate, "", false},
		{"reactivate terminated", welfare.MemberTerminated, (*welfare.Member).Reactivate, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := activeMember()
			m.Status = tt.from
			before := m

			err := tt.act(&m, testNow)
			if !tt.allowed {
				assert.ErrorIs(t, err, generic.ErrInvalidTransition)
				assert.Equal(t, before, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Status)
		})
	}
}

func TestDependentEligible(t *testing.T) {
	asOf := day(2024, time.June, 1)
	child := welfare.Dependent{Relationship: welfare.RelationshipChild, DateOfBirth: day(2009, time.June, 1)}
	assert.True(t, welfare.DependentEligible(child, false, asOf), "15 years old is still covered")

	child.DateOfBirth = day(2008, time.May, 31)
	assert.False(t, welfare.DependentEligible(child, true, asOf))

	spouse := welfare.Dependent{Relationship: welfare.RelationshipSpouse, DateOfBirth: day(1990, time.January, 1)}
	assert.True(t, welfare.DependentEligible(spouse, true, asOf))
	assert.False(t, welfare.DependentEligible(spouse, false, asOf))

	parent := welfare.Dependent{Relationship: welfare.RelationshipParent, DateOfBirth: day(1960, time.March, 3)}
	assert.True(t, welfare.DependentEligible(parent, true, asOf))
	assert.False(t, welfare.DependentEligible(parent, false, asOf))
}

func TestDependent_Validate(t *testing.T) {
	d := welfare.Dependent{MemberID: 1, FullName: "Tobi Obi", Relationship: "cousin", DateOfBirth: day(2015, time.May, 1)}
	assert.ErrorIs(t, d.Validate(), generic.ErrValidation)

	d.Relationship = welfare.RelationshipOther
	assert.NoError(t, d.Validate())
}
