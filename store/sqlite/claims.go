package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/welfare"
)

// =============================================================================
// HEALTHCARE PROVIDERS
// =============================================================================

func (c *conn) CreateProvider(ctx context.Context, p *welfare.HealthcareProvider) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO healthcare_providers (name, address, phone, active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.Name, nullString(p.Address), nullString(p.Phone), p.Active, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert provider: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetProvider(ctx context.Context, id int64) (*welfare.HealthcareProvider, error) {
	row := c.q.QueryRowContext(ctx,
		"SELECT id, name, address, phone, active, created_at FROM healthcare_providers WHERE id = ?", id)
	p, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *conn) ListProviders(ctx context.Context) ([]welfare.HealthcareProvider, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT id, name, address, phone, active, created_at FROM healthcare_providers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	defer rows.Close()

	var out []welfare.HealthcareProvider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProvider(row scanner) (welfare.HealthcareProvider, error) {
	var p welfare.HealthcareProvider
	var address, phone sql.NullString
	var createdAt string
	if err := row.Scan(&p.ID, &p.Name, &address, &phone, &p.Active, &createdAt); err != nil {
		return welfare.HealthcareProvider{}, err
	}
	p.Address = address.String
	p.Phone = phone.String
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// =============================================================================
// HEALTH CLAIMS
// =============================================================================

const claimColumns = `id, claim_number, member_id, dependent_id, provider_id, claim_type, treatment_date,
	diagnosis, billed_amount, coverage_percent, covered_amount, copay_amount, status, submitted_by,
	reviewed_by, reviewed_at, review_notes, paid_by, paid_at, created_at, updated_at`

func (c *conn) CreateClaim(ctx context.Context, cl *welfare.HealthClaim) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO health_claims (claim_number, member_id, dependent_id, provider_id, claim_type, treatment_date,
			diagnosis, billed_amount, coverage_percent, covered_amount, copay_amount, status, submitted_by,
			reviewed_by, reviewed_at, review_notes, paid_by, paid_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cl.ClaimNumber, cl.MemberID, nullID(cl.DependentID), cl.ProviderID, string(cl.ClaimType),
		generic.FormatDate(cl.TreatmentDate), nullString(cl.Diagnosis),
		cl.BilledAmount.String(), cl.CoveragePercent.String(), cl.CoveredAmount.String(), cl.CopayAmount.String(),
		string(cl.Status), string(cl.SubmittedBy),
		nullString(string(cl.ReviewedBy)), nullTime(cl.ReviewedAt), nullString(cl.ReviewNotes),
		nullString(string(cl.PaidBy)), nullTime(cl.PaidAt),
		formatTime(cl.CreatedAt), formatTime(cl.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{Message: fmt.Sprintf("claim number %s is already taken", cl.ClaimNumber)}
		}
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	cl.ID, err = res.LastInsertId()
	return err
}

// GetClaim loads the claim with its documents.
func (c *conn) GetClaim(ctx context.Context, id int64) (*welfare.HealthClaim, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+claimColumns+" FROM health_claims WHERE id = ?", id)
	cl, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cl.Documents, err = c.loadDocuments(ctx, cl.ID); err != nil {
		return nil, err
	}
	return &cl, nil
}

func (c *conn) UpdateClaim(ctx context.Context, cl *welfare.HealthClaim, expected welfare.ClaimStatus) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE health_claims SET diagnosis = ?, billed_amount = ?, coverage_percent = ?, covered_amount = ?,
			copay_amount = ?, status = ?, reviewed_by = ?, reviewed_at = ?, review_notes = ?,
			paid_by = ?, paid_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		nullString(cl.Diagnosis), cl.BilledAmount.String(), cl.CoveragePercent.String(),
		cl.CoveredAmount.String(), cl.CopayAmount.String(), string(cl.Status),
		nullString(string(cl.ReviewedBy)), nullTime(cl.ReviewedAt), nullString(cl.ReviewNotes),
		nullString(string(cl.PaidBy)), nullTime(cl.PaidAt), formatTime(cl.UpdatedAt),
		cl.ID, string(expected),
	)
	return checkGuarded(res, err, "claim", cl.ID)
}

// ListClaims returns claims without their documents.
func (c *conn) ListClaims(ctx context.Context, filter welfare.ClaimFilter) ([]welfare.HealthClaim, error) {
	var w where
	if filter.MemberID != nil {
		w.add("member_id = ?", *filter.MemberID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	rows, err := c.q.QueryContext(ctx, "SELECT "+claimColumns+" FROM health_claims"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var out []welfare.HealthClaim
	for rows.Next() {
		cl, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}

func (c *conn) AddClaimDocument(ctx context.Context, d *welfare.ClaimDocument) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO claim_documents (claim_id, file_path, doc_type, size, mime_type, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ClaimID, d.FilePath, d.Type, d.Size, d.MimeType, string(d.UploadedBy), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert claim document: %w", err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (c *conn) loadDocuments(ctx context.Context, claimID int64) ([]welfare.ClaimDocument, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, claim_id, file_path, doc_type, size, mime_type, uploaded_by, created_at
		FROM claim_documents WHERE claim_id = ? ORDER BY id
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to query claim documents: %w", err)
	}
	defer rows.Close()

	var out []welfare.ClaimDocument
	for rows.Next() {
		var d welfare.ClaimDocument
		var uploadedBy, createdAt string
		if err := rows.Scan(&d.ID, &d.ClaimID, &d.FilePath, &d.Type, &d.Size, &d.MimeType, &uploadedBy, &createdAt); err != nil {
			return nil, err
		}
		d.UploadedBy = generic.Actor(uploadedBy)
		d.CreatedAt = parseTime(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanClaim(row scanner) (welfare.HealthClaim, error) {
	var cl welfare.HealthClaim
	var dependentID sql.NullInt64
	var claimType, treatmentDate, billed, pct, covered, copay, status, submittedBy, createdAt, updatedAt string
	var diagnosis, reviewedBy, reviewedAt, reviewNotes, paidBy, paidAt sql.NullString

	err := row.Scan(&cl.ID, &cl.ClaimNumber, &cl.MemberID, &dependentID, &cl.ProviderID, &claimType, &treatmentDate,
		&diagnosis, &billed, &pct, &covered, &copay, &status, &submittedBy,
		&reviewedBy, &reviewedAt, &reviewNotes, &paidBy, &paidAt, &createdAt, &updatedAt)
	if err != nil {
		return welfare.HealthClaim{}, err
	}

	cl.DependentID = idPtr(dependentID)
	cl.ClaimType = welfare.ClaimType(claimType)
	cl.TreatmentDate = parseDate(treatmentDate)
	cl.Diagnosis = diagnosis.String
	cl.BilledAmount = generic.MustParseDecimal(billed)
	cl.CoveragePercent = generic.MustParseDecimal(pct)
	cl.CoveredAmount = generic.MustParseDecimal(covered)
	cl.CopayAmount = generic.MustParseDecimal(copay)
	cl.Status = welfare.ClaimStatus(status)
	cl.SubmittedBy = generic.Actor(submittedBy)
	cl.ReviewedBy = generic.Actor(reviewedBy.String)
	cl.ReviewedAt = timePtr(reviewedAt)
	cl.ReviewNotes = reviewNotes.String
	cl.PaidBy = generic.Actor(paidBy.String)
	cl.PaidAt = timePtr(paidAt)
	cl.CreatedAt = parseTime(createdAt)
	cl.UpdatedAt = parseTime(updatedAt)
	return cl, nil
}
