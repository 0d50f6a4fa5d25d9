package welfare

import (
	"time"

	"github.com/mcdf/welfare-engine/generic"
)

type Relationship string

const (
	RelationshipSpouse  Relationship = "spouse"
	RelationshipChild   Relationship = "child"
	RelationshipParent  Relationship = "parent"
	RelationshipSibling Relationship = "sibling"
	RelationshipOther   Relationship = "other"
)

func (r Relationship) Valid() bool {
	switch r {
	case RelationshipSpouse, RelationshipChild, RelationshipParent, RelationshipSibling, RelationshipOther:
		return true
	}
	return false
}

// ChildMaxAge is the oldest a child dependent can be and stay covered.
const ChildMaxAge = 15

type Dependent struct {
	ID           int64
	MemberID     int64
	FullName     string
	Relationship Relationship
	DateOfBirth  time.Time
	Eligible     bool // derived, overwritten on every save
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (d Dependent) Validate() error {
	if d.MemberID == 0 {
		return generic.Invalid("member_id", "is required")
	}
	if d.FullName == "" {
		return generic.Invalid("full_name", "is required")
	}
	if !d.Relationship.Valid() {
		return generic.Invalid("relationship", "must be one of spouse, child, parent, sibling, other")
	}
	if d.DateOfBirth.IsZero() {
		return generic.Invalid("date_of_birth", "is required")
	}
	return nil
}

// DependentEligible derives a dependent's coverage.
//
// Children up to ChildMaxAge are always covered. Spouses, parents, siblings
// and others follow the member's health eligibility.
func DependentEligible(d Dependent, memberHealthEligible bool, asOf time.Time) bool {
	switch d.Relationship {
	case RelationshipChild:
		return generic.AgeOn(d.DateOfBirth, asOf) <= ChildMaxAge
	case RelationshipSpouse:
		return memberHealthEligible
	case RelationshipParent, RelationshipSibling, RelationshipOther:
		// Extended family follows the member's health eligibility.
		return memberHealthEligible
	default:
		return false
	}
}
