package generic_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcdf/welfare-engine/generic"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		client    bool
		retryable bool
	}{
		{"validation", generic.Invalid("amount", "must be positive"), true, false},
		{"conflict", &generic.ConflictError{Message: "taken"}, true, false},
		{"ineligible", &generic.EligibilityError{Subject: "loan", Issues: []string{"too new"}}, true, false},
		{"duplicate key", generic.ErrDuplicateIdempotencyKey, true, false},
		{"concurrent write", fmt.Errorf("update loan 3: %w", generic.ErrConcurrentModification), false, true},
		{"not found", generic.NotFound("member", 9), false, false},
		{"unknown", errors.New("disk full"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.client, generic.IsClientError(tt.err))
			assert.Equal(t, tt.retryable, generic.IsRetryable(tt.err))
		})
	}
}
