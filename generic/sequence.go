package generic

import (
	"context"
	"fmt"
	"time"
)

// MonthlyKey returns the per-month sequence name, e.g. "RCP202402".
func MonthlyKey(prefix string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s%04d%02d", prefix, at.Year(), int(at.Month()))
}

// MonthlyNumber formats prefix + YYYY + MM + 4-digit sequence.
//
//	MonthlyNumber("RCP", feb2024, 1) == "RCP2024020001"
func MonthlyNumber(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s%04d", MonthlyKey(prefix, at), seq)
}

// NextMonthlyNumber allocates the next number for prefix in at's month.
func NextMonthlyNumber(ctx context.Context, seq Sequencer, prefix string, at time.Time) (string, error) {
	key := MonthlyKey(prefix, at)
	n, err := seq.NextValue(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s number: %w", prefix, err)
	}
	return MonthlyNumber(prefix, at, n), nil
}
